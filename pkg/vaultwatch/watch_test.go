package vaultwatch

import (
	"context"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atomicobject/vaultmcp/pkg/recovery"
)

type fakeWatcher struct {
	events chan fsnotify.Event
	errs   chan error
	added  []string
	closed bool
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{events: make(chan fsnotify.Event, 8), errs: make(chan error, 1)}
}

func (f *fakeWatcher) Add(name string) error             { f.added = append(f.added, name); return nil }
func (f *fakeWatcher) Close() error                      { f.closed = true; return nil }
func (f *fakeWatcher) Events() <-chan fsnotify.Event      { return f.events }
func (f *fakeWatcher) Errors() <-chan error               { return f.errs }

func newTestWatch(t *testing.T, w *fakeWatcher) (*VaultWatch, *recovery.Queue, chan recovery.Entry) {
	t.Helper()
	applied := make(chan recovery.Entry, 8)
	q := recovery.New(recovery.Options{WorkerInterval: 5 * time.Millisecond, BaseDelay: time.Millisecond}, func(ctx context.Context, e recovery.Entry) error {
		applied <- e
		return nil
	})

	uidOf := func(path string) (string, bool) {
		if path == "/vault/unknown.md" {
			return "", false
		}
		return "uid-for-" + path, true
	}

	vw, err := newForTest(w, q, uidOf)
	require.NoError(t, err)
	return vw, q, applied
}

// newForTest builds a VaultWatch without walking a real directory tree,
// exercising the same constructor fields New populates.
func newForTest(w Watcher, q *recovery.Queue, uidOf UIDExtractor) (*VaultWatch, error) {
	return &VaultWatch{
		watcher: w,
		queue:   q,
		uidOf:   uidOf,
		logger:  zerolog.Nop(),
		watched: make(map[string]struct{}),
	}, nil
}

func TestHandle_WriteEventEnqueuesUpdate(t *testing.T) {
	w := newFakeWatcher()
	vw, q, applied := newTestWatch(t, w)
	vw.Start(context.Background())
	defer vw.Stop()

	w.events <- fsnotify.Event{Name: "/vault/note.md", Op: fsnotify.Write}

	select {
	case e := <-applied:
		assert.Equal(t, recovery.OpUpdate, e.Key.Op)
	case <-time.After(time.Second):
		t.Fatal("expected enqueued entry")
	}
	_ = q
}

func TestHandle_RemoveEventEnqueuesDelete(t *testing.T) {
	w := newFakeWatcher()
	vw, _, applied := newTestWatch(t, w)
	vw.Start(context.Background())
	defer vw.Stop()

	w.events <- fsnotify.Event{Name: "/vault/note.md", Op: fsnotify.Remove}

	select {
	case e := <-applied:
		assert.Equal(t, recovery.OpDelete, e.Key.Op)
	case <-time.After(time.Second):
		t.Fatal("expected enqueued entry")
	}
}

func TestHandle_UnresolvableUIDIsIgnored(t *testing.T) {
	w := newFakeWatcher()
	vw, _, applied := newTestWatch(t, w)
	vw.Start(context.Background())
	defer vw.Stop()

	w.events <- fsnotify.Event{Name: "/vault/unknown.md", Op: fsnotify.Write}

	select {
	case <-applied:
		t.Fatal("did not expect an enqueue for an unresolvable uid")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHandle_NonMarkdownDirEventTracksWatchSet(t *testing.T) {
	w := newFakeWatcher()
	vw, _, _ := newTestWatch(t, w)
	vw.handleDir(fsnotify.Event{Name: "/vault/sub", Op: fsnotify.Remove})
	assert.NotContains(t, vw.watched, "/vault/sub")
}

func TestStop_ClosesUnderlyingWatcher(t *testing.T) {
	w := newFakeWatcher()
	vw, _, _ := newTestWatch(t, w)
	vw.Start(context.Background())
	vw.Stop()
	assert.True(t, w.closed)
}
