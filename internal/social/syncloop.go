package social

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
	"sync/atomic"

	"revayat/internal/observability"
	"revayat/internal/remote"

	"golang.org/x/sync/singleflight"
)

// syncLoop runs the background half of a store: the initial remote fetch,
// full-collection pushes after each change and inline image uploads.
// A loop with a nil remote does nothing.
type syncLoop[T any] struct {
	name   string
	remote remote.RemoteSync[T]
	images remote.ImageUploader
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	closed  bool
	wg      sync.WaitGroup
	ready   atomic.Bool
	uploads singleflight.Group
}

func newSyncLoop[T any](name string, rs remote.RemoteSync[T], images remote.ImageUploader, logger *slog.Logger) *syncLoop[T] {
	ctx, cancel := context.WithCancel(context.Background())
	l := &syncLoop[T]{
		name:   name,
		remote: rs,
		images: images,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
	if rs == nil {
		// nothing to wait for when running local-only
		l.ready.Store(true)
	}
	return l
}

func (l *syncLoop[T]) enabled() bool {
	return l.remote != nil
}

// Ready reports whether the initial fetch has settled.
func (l *syncLoop[T]) Ready() bool {
	return l.ready.Load()
}

func (l *syncLoop[T]) spawn(fn func(ctx context.Context)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		fn(l.ctx)
	}()
}

// start launches the initial fetch. apply receives the fetched collection;
// snapshot reads the state to push once the loop is ready. When
// readyOnFailure is set a failed fetch still unlocks pushes.
func (l *syncLoop[T]) start(apply func(context.Context, []T), snapshot func() []T, readyOnFailure bool) {
	if !l.enabled() {
		return
	}
	l.spawn(func(ctx context.Context) {
		observability.LogAsyncOperationStart(ctx, l.logger, "sync.fetch", map[string]interface{}{"collection": l.name})
		items, err := l.remote.FetchAll(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			observability.LogAsyncOperationError(ctx, l.logger, "sync.fetch", err, map[string]interface{}{"collection": l.name})
			if !readyOnFailure {
				return
			}
		} else {
			apply(ctx, items)
			observability.LogAsyncOperationEnd(ctx, l.logger, "sync.fetch", map[string]interface{}{
				"collection": l.name,
				"items":      len(items),
			})
		}
		l.ready.Store(true)
		l.push(snapshot())
	})
}

// push sends items as the new remote collection. Pushes before the loop is
// ready are dropped; overlapping pushes are not ordered.
func (l *syncLoop[T]) push(items []T) {
	if !l.enabled() || !l.ready.Load() {
		return
	}
	l.spawn(func(ctx context.Context) {
		if err := l.remote.PushAll(ctx, items); err != nil && ctx.Err() == nil {
			observability.LogAsyncOperationError(ctx, l.logger, "sync.push", err, map[string]interface{}{
				"collection": l.name,
				"items":      len(items),
			})
		}
	})
}

// materialize uploads an inline image for item id and hands the hosted URL
// to apply. Concurrent requests for the same payload share one upload.
func (l *syncLoop[T]) materialize(id, inline string, apply func(ctx context.Context, id, inline, hosted string)) {
	if !l.enabled() || l.images == nil || !remote.IsInlineImage(inline) {
		return
	}
	sum := sha256.Sum256([]byte(inline))
	key := id + ":" + hex.EncodeToString(sum[:8])

	l.spawn(func(ctx context.Context) {
		v, err, _ := l.uploads.Do(key, func() (interface{}, error) {
			return l.images.Upload(ctx, inline, id)
		})
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			observability.ImageUploads.WithLabelValues(l.name, "error").Inc()
			observability.LogAsyncOperationError(ctx, l.logger, "sync.upload", err, map[string]interface{}{
				"collection": l.name,
				"id":         id,
			})
			return
		}
		observability.ImageUploads.WithLabelValues(l.name, "ok").Inc()
		apply(ctx, id, inline, v.(string))
	})
}

// Wait blocks until all background work started so far has finished.
func (l *syncLoop[T]) Wait() {
	l.wg.Wait()
}

// Close cancels background work, waits for it and rejects new work.
func (l *syncLoop[T]) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.cancel()
	l.wg.Wait()
}
