package mcptools

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/atomicobject/vaultmcp/pkg/execpolicy"
	"github.com/atomicobject/vaultmcp/pkg/metrics"
	"github.com/atomicobject/vaultmcp/pkg/notestore"
	"github.com/atomicobject/vaultmcp/pkg/recovery"
	"github.com/atomicobject/vaultmcp/pkg/searchindex"
)

// ExecutionContext owns every piece of shared state a tool handler may
// touch: the note store, the lazily-opened search index, the recovery
// queue, and the metrics collector. Per the design notes, these are
// created lazily on first use so a test can build a throwaway
// ExecutionContext per case while the server builds exactly one shared
// instance for its whole process lifetime. Teardown is explicit via
// Close.
type ExecutionContext struct {
	VaultPath string
	IndexPath string
	Policy    execpolicy.Policy
	Logger    zerolog.Logger
	Recovery  recovery.Options

	Store *notestore.Store

	mu      sync.Mutex
	index   *searchindex.Index
	indexErr error
	queue   *metricsQueue
}

// metricsQueue bundles the recovery queue with the metrics collector so a
// single lazy-init path can wire the queue's Apply callback to this
// context's Store/Index and build both together; the collector's queue
// gauges are fed from the queue's Status when get_metrics runs.
type metricsQueue struct {
	queue   *recovery.Queue
	metrics *metrics.Collector
}

// NewExecutionContext builds a context rooted at vaultPath, ready to open
// the index at indexPath lazily on first need.
func NewExecutionContext(vaultPath, indexPath string, policy execpolicy.Policy, logger zerolog.Logger, recoveryOpts recovery.Options) *ExecutionContext {
	return &ExecutionContext{
		VaultPath: vaultPath,
		IndexPath: indexPath,
		Policy:    policy,
		Logger:    logger,
		Recovery:  recoveryOpts,
		Store:     notestore.New(vaultPath, false),
	}
}

// Index lazily opens the search index on first call and reuses it after.
func (ec *ExecutionContext) Index() (*searchindex.Index, error) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	if ec.index != nil || ec.indexErr != nil {
		return ec.index, ec.indexErr
	}
	ec.index, ec.indexErr = searchindex.Open(ec.IndexPath)
	return ec.index, ec.indexErr
}

// Queue lazily builds the recovery queue, wiring its Apply callback to
// reindex via this context's Store and Index. The metrics collector is
// built alongside it so both share one init path.
func (ec *ExecutionContext) Queue() *recovery.Queue {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	if ec.queue == nil {
		collector := metrics.New()
		q := recovery.New(ec.Recovery, ec.recoveryApply)
		ec.queue = &metricsQueue{queue: q, metrics: collector}
	}
	return ec.queue.queue
}

// Metrics lazily builds (if needed) and returns the metrics collector.
func (ec *ExecutionContext) Metrics() *metrics.Collector {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	if ec.queue == nil {
		collector := metrics.New()
		q := recovery.New(ec.Recovery, ec.recoveryApply)
		ec.queue = &metricsQueue{queue: q, metrics: collector}
	}
	return ec.queue.metrics
}

// recoveryApply performs one deferred index mutation by re-deriving the
// note's indexable record from disk (for index/update) or removing it from
// the index (for delete).
func (ec *ExecutionContext) recoveryApply(ctx context.Context, e recovery.Entry) error {
	idx, err := ec.Index()
	if err != nil {
		return err
	}

	if e.Key.Op == recovery.OpDelete {
		return idx.RemoveNote(ctx, e.Key.UID)
	}

	note, _, err := ec.Store.FindByUID(e.Key.UID)
	if err != nil {
		return err
	}
	rec, err := ec.buildRecord(note)
	if err != nil {
		return err
	}
	return idx.IndexNote(ctx, rec)
}

// Close releases the index connection and stops the recovery worker. Safe
// to call on a context that never opened either.
func (ec *ExecutionContext) Close() {
	ec.mu.Lock()
	idx := ec.index
	q := ec.queue
	ec.mu.Unlock()

	if q != nil {
		q.queue.Cleanup()
	}
	if idx != nil {
		_ = idx.Close()
	}
}
