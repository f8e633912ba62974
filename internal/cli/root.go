// Package cli provides the command-line interface for anikama.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/anikama/anikama-cli/internal/affinity"
	"github.com/anikama/anikama-cli/internal/auth"
	"github.com/anikama/anikama-cli/internal/client"
	"github.com/anikama/anikama-cli/internal/config"
	"github.com/anikama/anikama-cli/internal/db"
	"github.com/anikama/anikama-cli/internal/metrics"
	"github.com/anikama/anikama-cli/internal/session"
)

// annotationView marks commands that take over the terminal. Their logs go
// to the log file only.
const (
	annotationView = "view"
	viewFullScreen = "fullscreen"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose   bool
	showStats bool

	cfg        config.Config
	logger     = slog.Default()
	logCleanup func() error
	collector  *metrics.Collector

	// Runtime wiring, built once per invocation
	apiClient     *client.Client
	authProvider  *auth.GoTrue
	sessionFile   *auth.FileStore
	sessions      *session.Store
	subscription  *session.Subscription
	relationships *affinity.Service

	// Lazy-initialized chat archive
	archiveClient *db.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "anikama",
	Short: "Chat with anime companions from your terminal",
	Long: `Anikama is a terminal client for the anikama companion app.

Browse companions, chat with them, watch and react to their stories, track
your affinity with each of them, and top up your coin balance.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip wiring for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()

		level := cfg.LogLevel
		if verbose {
			level = slog.LevelDebug
		}
		if cmd.Annotations[annotationView] == viewFullScreen {
			logger, logCleanup = config.SetupFileLogger(cfg.LogFile, level)
		} else {
			logger, logCleanup = config.SetupLogger(cfg.LogFile, level)
		}
		slog.SetDefault(logger)

		collector = metrics.NewCollector()
		sessions = session.NewStore()
		sessionFile = auth.NewFileStore(cfg.SessionFile)
		authProvider = auth.NewGoTrue(cfg.SupabaseURL, cfg.SupabaseAnonKey, sessionFile, auth.WithLogger(logger))
		apiClient = client.New(cfg.APIURL,
			client.WithTimeout(cfg.ClientTimeout),
			client.WithTokenSource(sessions.Token),
			client.WithLogger(logger),
			client.WithMetrics(collector),
		)
		relationships = affinity.NewService(apiClient, cfg.RelationshipStale, logger)

		subscription = session.NewSubscription(authProvider, sessions, logger)
		if err := subscription.Start(cmd.Context()); err != nil {
			return fmt.Errorf("start session: %w", err)
		}
		return nil
	},
}

// getArchive connects to the chat archive on first use. It returns nil when
// no archive is configured.
func getArchive(ctx context.Context) (*db.Client, error) {
	if cfg.ArchiveURL == "" {
		return nil, nil
	}
	if archiveClient != nil {
		return archiveClient, nil
	}

	c, err := db.NewClient(ctx, db.Config{
		URL:       cfg.ArchiveURL,
		Namespace: cfg.ArchiveNamespace,
		Database:  cfg.ArchiveDatabase,
		Username:  cfg.ArchiveUser,
		Password:  cfg.ArchivePass,
		AuthLevel: cfg.ArchiveAuthLevel,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to archive: %w", err)
	}
	c.WithMetrics(collector)
	if err := c.InitSchema(ctx); err != nil {
		_ = c.Close(ctx)
		return nil, fmt.Errorf("initialize archive schema: %w", err)
	}
	archiveClient = c
	return c, nil
}

// requireSession returns the session user or an error telling the user to log in.
func requireSession() (*session.User, error) {
	u := sessions.Current()
	if u == nil {
		return nil, fmt.Errorf("%w: run 'anikama login' first", client.ErrUnauthenticated)
	}
	return u, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	err := rootCmd.ExecuteContext(context.Background())
	shutdown()
	return err
}

// shutdown releases what PersistentPreRunE set up. It runs after failed
// commands too, where cobra skips post-run hooks.
func shutdown() {
	if subscription != nil {
		subscription.Stop()
	}
	if archiveClient != nil {
		if err := archiveClient.Close(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close archive: %v\n", err)
		}
		archiveClient = nil
	}
	if showStats && collector != nil {
		fmt.Fprintln(os.Stderr)
		collector.Snapshot().WriteTable(os.Stderr)
	}
	if logCleanup != nil {
		_ = logCleanup()
		logCleanup = nil
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&showStats, "stats", false, "print request timings after the command")

	// Add subcommands
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(companionsCmd)
	rootCmd.AddCommand(companionCmd)
	rootCmd.AddCommand(chatsCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(storiesCmd)
	rootCmd.AddCommand(storyCmd)
	rootCmd.AddCommand(relationshipCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(topupCmd)
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(exportCmd)
}
