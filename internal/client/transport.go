package client

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/anikama/anikama-cli/internal/metrics"
)

// slowRequestThreshold is the duration above which requests are logged at WARN level.
const slowRequestThreshold = 500 * time.Millisecond

type routeKey struct{}

func withRoute(ctx context.Context, route string) context.Context {
	return context.WithValue(ctx, routeKey{}, route)
}

func routeFrom(req *http.Request) string {
	if r, ok := req.Context().Value(routeKey{}).(string); ok {
		return r
	}
	return req.Method + " " + req.URL.Path
}

// loggingTransport logs every request with timing and records it in metrics.
// Slow requests are logged at WARN level.
type loggingTransport struct {
	base    http.RoundTripper
	logger  *slog.Logger
	metrics *metrics.Collector
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	route := routeFrom(req)

	resp, err := t.base.RoundTrip(req)

	duration := time.Since(start)
	attrs := []any{
		"route", route,
		"url", req.URL.String(),
		"duration_ms", duration.Milliseconds(),
	}

	failed := err != nil || resp.StatusCode >= 400
	t.metrics.RecordResult(metrics.OpAPIPrefix+route, duration, failed)

	switch {
	case err != nil:
		attrs = append(attrs, "error", err.Error())
		t.logger.Error("request failed", attrs...)
	case resp.StatusCode >= 400:
		attrs = append(attrs, "status", resp.StatusCode)
		t.logger.Warn("request rejected", attrs...)
	case duration > slowRequestThreshold:
		attrs = append(attrs, "status", resp.StatusCode)
		t.logger.Warn("slow request", attrs...)
	default:
		attrs = append(attrs, "status", resp.StatusCode)
		t.logger.Debug("request completed", attrs...)
	}

	return resp, err
}
