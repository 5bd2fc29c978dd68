// Package vaultwatch watches the vault directory for external edits (notes
// created, modified, or removed outside the server's own tool calls) and
// feeds them into the recovery queue for best-effort reindexing. It is
// grounded in the teacher's pkg/cache watchLoop: fsnotify events are
// translated into coarse-grained markers rather than acted on directly,
// and a single context cancellation stops the loop. This watcher skips the
// teacher's in-memory file/tag cache entirely — it has no read-side cache
// to keep warm, only the recovery queue to notify.
package vaultwatch

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/atomicobject/vaultmcp/pkg/recovery"
)

// Watcher abstracts fsnotify so tests can supply a fake event source,
// matching the teacher's cache.Watcher interface.
type Watcher interface {
	Add(name string) error
	Close() error
	Events() <-chan fsnotify.Event
	Errors() <-chan error
}

type fsNotifyWatcher struct{ *fsnotify.Watcher }

func (f *fsNotifyWatcher) Events() <-chan fsnotify.Event { return f.Watcher.Events }
func (f *fsNotifyWatcher) Errors() <-chan error          { return f.Watcher.Errors }

// UIDExtractor maps a path under the vault to the note UID the recovery
// queue should key on. Callers supply this since vaultwatch has no note
// parsing of its own — recomputing the UID from the file's front matter is
// notestore's job, not the watcher's.
type UIDExtractor func(path string) (uid string, ok bool)

// VaultWatch watches a vault root and enqueues recovery work for external
// edits.
type VaultWatch struct {
	watcher  Watcher
	queue    *recovery.Queue
	uidOf    UIDExtractor
	logger   zerolog.Logger
	watched  map[string]struct{}
	ctx      context.Context
	cancel   context.CancelFunc
}

// New builds a VaultWatch rooted at vaultPath. If w is nil, a real
// fsnotify.Watcher is created.
func New(vaultPath string, w Watcher, q *recovery.Queue, uidOf UIDExtractor, logger zerolog.Logger) (*VaultWatch, error) {
	if w == nil {
		raw, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, err
		}
		w = &fsNotifyWatcher{Watcher: raw}
	}

	vw := &VaultWatch{
		watcher: w,
		queue:   q,
		uidOf:   uidOf,
		logger:  logger,
		watched: make(map[string]struct{}),
	}

	if err := vw.addTree(vaultPath); err != nil {
		_ = w.Close()
		return nil, err
	}
	return vw, nil
}

func (vw *VaultWatch) addTree(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() && !strings.HasPrefix(filepath.Base(path), ".") {
			if err := vw.watcher.Add(path); err != nil {
				return err
			}
			vw.watched[path] = struct{}{}
		}
		return nil
	})
}

// Start runs the watch loop until ctx is canceled or Stop is called.
func (vw *VaultWatch) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	vw.ctx = ctx
	vw.cancel = cancel
	go vw.loop()
}

// Stop cancels the watch loop and releases the underlying watcher.
func (vw *VaultWatch) Stop() {
	if vw.cancel != nil {
		vw.cancel()
	}
	_ = vw.watcher.Close()
}

func (vw *VaultWatch) loop() {
	for {
		select {
		case <-vw.ctx.Done():
			return
		case evt, ok := <-vw.watcher.Events():
			if !ok {
				return
			}
			vw.handle(evt)
		case err, ok := <-vw.watcher.Errors():
			if !ok {
				return
			}
			vw.logger.Warn().Err(err).Msg("vault watcher error")
		}
	}
}

func (vw *VaultWatch) handle(evt fsnotify.Event) {
	if !strings.HasSuffix(evt.Name, ".md") {
		vw.handleDir(evt)
		return
	}

	var op recovery.Operation
	switch {
	case evt.Op&fsnotify.Create == fsnotify.Create, evt.Op&fsnotify.Write == fsnotify.Write:
		op = recovery.OpUpdate
	case evt.Op&fsnotify.Remove == fsnotify.Remove, evt.Op&fsnotify.Rename == fsnotify.Rename:
		op = recovery.OpDelete
	default:
		return
	}

	uid, ok := vw.uidOf(evt.Name)
	if !ok {
		vw.logger.Debug().Str("path", evt.Name).Msg("ignoring external edit with no resolvable uid")
		return
	}

	vw.queue.Enqueue(recovery.Key{UID: uid, Op: op}, evt.Name)
}

// handleDir keeps the watch set in sync when directories are added or
// removed, mirroring the teacher's addWatch/dropDirIndex pairing.
func (vw *VaultWatch) handleDir(evt fsnotify.Event) {
	if evt.Op&fsnotify.Create == fsnotify.Create {
		info, err := os.Stat(evt.Name)
		if err == nil && info.IsDir() {
			if err := vw.watcher.Add(evt.Name); err == nil {
				vw.watched[evt.Name] = struct{}{}
			}
		}
		return
	}
	if evt.Op&fsnotify.Remove == fsnotify.Remove || evt.Op&fsnotify.Rename == fsnotify.Rename {
		delete(vw.watched, evt.Name)
	}
}
