package metrics

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummary_CountsSuccessAndFailure(t *testing.T) {
	c := New()
	done := c.Start("search_memory")
	done(true, "")
	done2 := c.Start("search_memory")
	done2(false, "INTERNAL_ERROR")

	summary := c.Summary()
	require.Len(t, summary.Tools, 1)
	assert.Equal(t, 2, summary.Tools[0].Count)
	assert.Equal(t, 1, summary.Tools[0].SuccessCount)
	assert.Equal(t, 1, summary.Tools[0].FailureCount)
}

func TestSummary_RollingBufferDropsOldest(t *testing.T) {
	c := New()
	for i := 0; i < maxSamples+10; i++ {
		done := c.Start("create_note")
		done(true, "")
	}
	summary := c.Summary()
	require.Len(t, summary.Tools, 1)
	assert.Equal(t, maxSamples, summary.Tools[0].Count)
}

func TestRecordQueueGauge_KeepsLast100(t *testing.T) {
	c := New()
	for i := 0; i < 150; i++ {
		c.RecordQueueGauge(QueueSnapshot{QueueSize: i, Timestamp: time.Now()})
	}
	c.mu.Lock()
	n := len(c.snapshots)
	c.mu.Unlock()
	assert.Equal(t, maxSnapshots, n)
}

func TestWriteProm_RendersExpectedMetricNames(t *testing.T) {
	c := New()
	done := c.Start("list_notes")
	done(true, "")
	c.RecordQueueGauge(QueueSnapshot{QueueSize: 3})

	var buf bytes.Buffer
	require.NoError(t, c.WriteProm(&buf))
	out := buf.String()

	assert.Contains(t, out, "mcp_tool_requests_total")
	assert.Contains(t, out, "mcp_tool_success_total")
	assert.Contains(t, out, "mcp_tool_failure_total")
	assert.Contains(t, out, "mcp_tool_duration_p50_ms")
	assert.Contains(t, out, "mcp_tool_duration_p95_ms")
	assert.Contains(t, out, "mcp_tool_success_rate")
	assert.Contains(t, out, "mcp_index_queue_size")
	assert.True(t, strings.Contains(out, "# HELP") && strings.Contains(out, "# TYPE"))
}

func TestReset_ClearsSamples(t *testing.T) {
	c := New()
	done := c.Start("delete_note")
	done(true, "")
	c.Reset()
	assert.Empty(t, c.Summary().Tools)
}
