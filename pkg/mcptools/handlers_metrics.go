package mcptools

import (
	"context"
	"strings"

	"github.com/atomicobject/vaultmcp/pkg/metrics"
	"github.com/atomicobject/vaultmcp/pkg/recovery"
	"github.com/atomicobject/vaultmcp/pkg/vaulterr"
)

// queueSnapshotFromStatus projects a recovery.Status into the metrics
// package's gauge-snapshot shape, which has no dependency on pkg/recovery.
func queueSnapshotFromStatus(s recovery.Status) metrics.QueueSnapshot {
	processing := 0
	if s.Processing {
		processing = s.Size
	}
	return metrics.QueueSnapshot{
		QueueSize:       s.Size,
		ProcessingCount: processing,
		SuccessCount:    s.Succeeded,
		FailureCount:    s.Failed,
	}
}

// toolMetricEntry is one tool's derived summary row.
type toolMetricEntry struct {
	Name           string  `json:"name"`
	Count          int     `json:"count"`
	SuccessCount   int     `json:"successCount"`
	FailureCount   int     `json:"failureCount"`
	MeanDurationMs float64 `json:"meanDurationMs"`
	P50Ms          float64 `json:"p50Ms"`
	P95Ms          float64 `json:"p95Ms"`
}

type queueMetricSummary struct {
	CurrentSize    int   `json:"currentSize"`
	ProcessedTotal int64 `json:"processedTotal"`
	SuccessTotal   int64 `json:"successTotal"`
	FailureTotal   int64 `json:"failureTotal"`
}

// getMetricsResponse is the JSON payload for get_metrics{format:"json"}.
type getMetricsResponse struct {
	Tools      []toolMetricEntry  `json:"tools"`
	Queue      queueMetricSummary `json:"queue"`
	UptimeSecs float64            `json:"uptimeSeconds"`
}

func handleGetMetrics(ctx context.Context, ec *ExecutionContext, args map[string]any) (Result, error) {
	collector := ec.Metrics()
	if q := ec.Queue(); q != nil {
		status := q.Status()
		collector.RecordQueueGauge(queueSnapshotFromStatus(status))
	}

	format := argString(args, "format", "json")

	if argBool(args, "reset", false) {
		defer collector.Reset()
	}

	if format == "prometheus" {
		var sb strings.Builder
		if err := collector.WriteProm(&sb); err != nil {
			return Result{}, vaulterr.Wrap(vaulterr.InternalError, "failed to render prometheus metrics", err)
		}
		return textResult(sb.String(), nil), nil
	}

	summary := collector.Summary()
	tools := make([]toolMetricEntry, 0, len(summary.Tools))
	for _, t := range summary.Tools {
		tools = append(tools, toolMetricEntry{
			Name: t.Name, Count: t.Count, SuccessCount: t.SuccessCount, FailureCount: t.FailureCount,
			MeanDurationMs: t.MeanDurationMs, P50Ms: t.P50Ms, P95Ms: t.P95Ms,
		})
	}

	return jsonResult(getMetricsResponse{
		Tools: tools,
		Queue: queueMetricSummary{
			CurrentSize:    summary.Queue.CurrentSize,
			ProcessedTotal: summary.Queue.ProcessedTotal,
			SuccessTotal:   summary.Queue.SuccessTotal,
			FailureTotal:   summary.Queue.FailureTotal,
		},
		UptimeSecs: summary.Uptime.Seconds(),
	})
}
