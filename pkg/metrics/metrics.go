// Package metrics implements the metrics collector (component H): rolling
// per-tool sample buffers and queue gauge snapshots, summarized on demand
// and rendered as Prometheus text exposition. It is grounded in the pack's
// own metrics package (cuemby-warren's pkg/metrics), which registers
// prometheus.Gauge/Counter values and renders them via client_golang; this
// collector keeps that library as the exposition-format writer but derives
// every value at render time from the bespoke sample buffer, per the data
// model's "counters are derived at read time from a copy of the sample
// buffer" rule.
package metrics

import (
	"bytes"
	"io"
	"net/http/httptest"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sample is one tool invocation record.
type Sample struct {
	ToolName  string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Success   bool
	ErrorCode string
	done      bool
}

// QueueSnapshot is one point-in-time reading of the recovery queue.
type QueueSnapshot struct {
	QueueSize        int
	ProcessingCount  int
	SuccessCount     int64
	FailureCount     int64
	Timestamp        time.Time
}

const (
	maxSamples  = 1000
	maxSnapshots = 100
)

// Collector is a process-scoped metrics collector. Safe for concurrent use.
type Collector struct {
	mu        sync.Mutex
	samples   []Sample // ring buffer, oldest dropped once full
	snapshots []QueueSnapshot
	start     time.Time
	now       func() time.Time
}

// New builds a Collector whose uptime is measured from construction time.
func New() *Collector {
	return &Collector{start: time.Now(), now: time.Now}
}

// Start begins timing a tool call, returning a function to call on
// completion with the outcome.
func (c *Collector) Start(toolName string) func(success bool, errorCode string) {
	startTime := c.now()
	return func(success bool, errorCode string) {
		end := c.now()
		c.record(Sample{
			ToolName:  toolName,
			StartTime: startTime,
			EndTime:   end,
			Duration:  end.Sub(startTime),
			Success:   success,
			ErrorCode: errorCode,
			done:      true,
		})
	}
}

func (c *Collector) record(s Sample) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples = append(c.samples, s)
	if len(c.samples) > maxSamples {
		c.samples = c.samples[len(c.samples)-maxSamples:]
	}
}

// RecordQueueGauge appends a queue snapshot, dropping the oldest once the
// buffer exceeds 100 entries.
func (c *Collector) RecordQueueGauge(snap QueueSnapshot) {
	if snap.Timestamp.IsZero() {
		snap.Timestamp = c.now()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots = append(c.snapshots, snap)
	if len(c.snapshots) > maxSnapshots {
		c.snapshots = c.snapshots[len(c.snapshots)-maxSnapshots:]
	}
}

// Reset clears all samples and snapshots (used by get_metrics{reset:true}).
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples = nil
	c.snapshots = nil
}

// ToolSummary is the derived per-tool rollup.
type ToolSummary struct {
	Name            string
	Count           int
	SuccessCount    int
	FailureCount    int
	MeanDurationMs  float64
	P50Ms           float64
	P95Ms           float64
}

// QueueSummary is the derived recovery-queue rollup.
type QueueSummary struct {
	CurrentSize      int
	ProcessedTotal   int64
	SuccessTotal     int64
	FailureTotal     int64
}

// Summary is the full derived rollup across tools and the queue.
type Summary struct {
	Tools  []ToolSummary
	Queue  QueueSummary
	Uptime time.Duration
}

// Summary derives count/success/failure/mean/p50/p95 per tool from a copy
// of the sample buffer, plus the latest queue snapshot's cumulative totals.
func (c *Collector) Summary() Summary {
	c.mu.Lock()
	samples := append([]Sample(nil), c.samples...)
	snapshots := append([]QueueSnapshot(nil), c.snapshots...)
	start := c.start
	c.mu.Unlock()

	byTool := make(map[string][]Sample)
	var order []string
	for _, s := range samples {
		if _, ok := byTool[s.ToolName]; !ok {
			order = append(order, s.ToolName)
		}
		byTool[s.ToolName] = append(byTool[s.ToolName], s)
	}
	sort.Strings(order)

	tools := make([]ToolSummary, 0, len(order))
	for _, name := range order {
		tools = append(tools, summarizeTool(name, byTool[name]))
	}

	var q QueueSummary
	if len(snapshots) > 0 {
		last := snapshots[len(snapshots)-1]
		q = QueueSummary{
			CurrentSize:    last.QueueSize,
			ProcessedTotal: last.SuccessCount + last.FailureCount,
			SuccessTotal:   last.SuccessCount,
			FailureTotal:   last.FailureCount,
		}
	}

	return Summary{Tools: tools, Queue: q, Uptime: c.now().Sub(start)}
}

func summarizeTool(name string, samples []Sample) ToolSummary {
	durations := make([]float64, 0, len(samples))
	var successCount int
	var totalMs float64
	for _, s := range samples {
		ms := float64(s.Duration.Microseconds()) / 1000.0
		durations = append(durations, ms)
		totalMs += ms
		if s.Success {
			successCount++
		}
	}
	sort.Float64s(durations)

	mean := 0.0
	if len(durations) > 0 {
		mean = totalMs / float64(len(durations))
	}

	return ToolSummary{
		Name:           name,
		Count:          len(samples),
		SuccessCount:   successCount,
		FailureCount:   len(samples) - successCount,
		MeanDurationMs: mean,
		P50Ms:          percentile(durations, 0.50),
		P95Ms:          percentile(durations, 0.95),
	}
}

// percentile returns the value at p (0..1) of a pre-sorted slice: the
// element at index floor(p*(n-1)), with no interpolation between
// neighbours. An empty slice returns 0.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)-1))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// --- Prometheus exposition ---

// promCollector adapts a Summary snapshot to prometheus.Collector so
// client_golang's text encoder (via promhttp) produces the exposition
// format; every Collect call re-derives its values from the live Collector.
type promCollector struct {
	c *Collector
}

var (
	requestsDesc = prometheus.NewDesc("mcp_tool_requests_total", "Total tool invocations", []string{"tool"}, nil)
	successDesc  = prometheus.NewDesc("mcp_tool_success_total", "Successful tool invocations", []string{"tool"}, nil)
	failureDesc  = prometheus.NewDesc("mcp_tool_failure_total", "Failed tool invocations", []string{"tool"}, nil)
	p50Desc      = prometheus.NewDesc("mcp_tool_duration_p50_ms", "Median tool duration in milliseconds", []string{"tool"}, nil)
	p95Desc      = prometheus.NewDesc("mcp_tool_duration_p95_ms", "95th percentile tool duration in milliseconds", []string{"tool"}, nil)
	rateDesc     = prometheus.NewDesc("mcp_tool_success_rate", "Tool success rate (0-1)", []string{"tool"}, nil)
	queueDesc    = prometheus.NewDesc("mcp_index_queue_size", "Current size of the index recovery queue", nil, nil)
)

func (p *promCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- requestsDesc
	ch <- successDesc
	ch <- failureDesc
	ch <- p50Desc
	ch <- p95Desc
	ch <- rateDesc
	ch <- queueDesc
}

func (p *promCollector) Collect(ch chan<- prometheus.Metric) {
	summary := p.c.Summary()
	for _, t := range summary.Tools {
		ch <- prometheus.MustNewConstMetric(requestsDesc, prometheus.CounterValue, float64(t.Count), t.Name)
		ch <- prometheus.MustNewConstMetric(successDesc, prometheus.CounterValue, float64(t.SuccessCount), t.Name)
		ch <- prometheus.MustNewConstMetric(failureDesc, prometheus.CounterValue, float64(t.FailureCount), t.Name)
		ch <- prometheus.MustNewConstMetric(p50Desc, prometheus.GaugeValue, t.P50Ms, t.Name)
		ch <- prometheus.MustNewConstMetric(p95Desc, prometheus.GaugeValue, t.P95Ms, t.Name)
		rate := 0.0
		if t.Count > 0 {
			rate = float64(t.SuccessCount) / float64(t.Count)
		}
		ch <- prometheus.MustNewConstMetric(rateDesc, prometheus.GaugeValue, rate, t.Name)
	}
	ch <- prometheus.MustNewConstMetric(queueDesc, prometheus.GaugeValue, float64(summary.Queue.CurrentSize))
}

// WriteProm renders the current summary as Prometheus text exposition. It
// builds a dedicated registry per call so concurrent renders never race on
// shared collector registration.
func (c *Collector) WriteProm(w io.Writer) error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(&promCollector{c: c}); err != nil {
		return err
	}
	handler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	_, err := io.Copy(w, bytes.NewReader(rec.Body.Bytes()))
	return err
}
