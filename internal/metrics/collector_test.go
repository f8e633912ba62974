package metrics

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorRecordTiming(t *testing.T) {
	c := NewCollector()
	c.RecordTiming(OpLLMGenerate, 100*time.Millisecond)
	c.RecordTiming(OpLLMGenerate, 300*time.Millisecond)

	snap := c.Get(OpLLMGenerate)
	require.NotNil(t, snap)
	assert.Equal(t, int64(2), snap.Count)
	assert.Equal(t, int64(400), snap.TotalTimeMs)
	assert.Equal(t, 200.0, snap.AvgTimeMs)
	assert.Equal(t, int64(100), snap.MinTimeMs)
	assert.Equal(t, int64(300), snap.MaxTimeMs)
	assert.Equal(t, int64(0), snap.Errors)
}

func TestCollectorRecordResult(t *testing.T) {
	c := NewCollector()
	c.RecordResult(OpAPIPrefix+"GET /api/v1/companions", 10*time.Millisecond, false)
	c.RecordResult(OpAPIPrefix+"GET /api/v1/companions", 20*time.Millisecond, true)

	snap := c.Get(OpAPIPrefix + "GET /api/v1/companions")
	require.NotNil(t, snap)
	assert.Equal(t, int64(2), snap.Count)
	assert.Equal(t, int64(1), snap.Errors)
}

func TestCollectorSnapshotSorted(t *testing.T) {
	c := NewCollector()
	c.RecordTiming(OpWalletSubmit, time.Millisecond)
	c.RecordTiming(OpArchive, time.Millisecond)
	c.RecordTiming(OpLLMGenerate, time.Millisecond)

	snap := c.Snapshot()
	require.Len(t, snap.Operations, 3)
	assert.Equal(t, OpArchive, snap.Operations[0].Name)
	assert.Equal(t, OpLLMGenerate, snap.Operations[1].Name)
	assert.Equal(t, OpWalletSubmit, snap.Operations[2].Name)

	var buf bytes.Buffer
	snap.WriteTable(&buf)
	assert.Contains(t, buf.String(), OpWalletSubmit)
}

func TestCollectorUnknownOperation(t *testing.T) {
	c := NewCollector()
	assert.Nil(t, c.Get("missing"))

	var buf bytes.Buffer
	c.Snapshot().WriteTable(&buf)
	assert.Contains(t, buf.String(), "No operations recorded.")
}

func TestCollectorNilSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() { c.RecordTiming(OpArchive, time.Second) })
}

func TestCollectorConcurrent(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RecordTiming(OpArchive, time.Millisecond)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(50), c.Get(OpArchive).Count)
}
