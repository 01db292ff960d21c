// Package testutil provides shared test doubles and fixtures.
package testutil

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"sync"
	"time"
)

// ErrRemoteDown is returned by stubs configured to fail.
var ErrRemoteDown = errors.New("remote unavailable")

// CollectionStub is an in-memory remote collection.
type CollectionStub[T any] struct {
	mu       sync.Mutex
	items    []T
	pushes   [][]T
	fetches  int
	FetchErr error
	PushErr  error
	// Gate, when set, blocks FetchAll until it is closed or the context ends.
	Gate chan struct{}
}

// NewCollectionStub creates a stub holding items.
func NewCollectionStub[T any](items ...T) *CollectionStub[T] {
	return &CollectionStub[T]{items: items}
}

// FetchAll returns a copy of the stored items.
func (s *CollectionStub[T]) FetchAll(ctx context.Context) ([]T, error) {
	if s.Gate != nil {
		select {
		case <-s.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	if s.FetchErr != nil {
		return nil, s.FetchErr
	}
	return append([]T{}, s.items...), nil
}

// PushAll replaces the stored items and records the push.
func (s *CollectionStub[T]) PushAll(_ context.Context, items []T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.PushErr != nil {
		return s.PushErr
	}
	snapshot := append([]T{}, items...)
	s.pushes = append(s.pushes, snapshot)
	s.items = snapshot
	return nil
}

// Items returns the current remote document.
func (s *CollectionStub[T]) Items() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]T{}, s.items...)
}

// Pushes returns how many pushes were accepted.
func (s *CollectionStub[T]) Pushes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pushes)
}

// Fetches returns how many fetches completed.
func (s *CollectionStub[T]) Fetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

// UploaderStub hosts inline images at a fixed base URL.
type UploaderStub struct {
	mu    sync.Mutex
	calls []string
	Err   error
	// Gate, when set, blocks Upload until it is closed or the context ends.
	Gate chan struct{}
}

// Upload returns https://cdn.test/uploads/<reference>.png.
func (u *UploaderStub) Upload(ctx context.Context, dataURL, reference string) (string, error) {
	if u.Gate != nil {
		select {
		case <-u.Gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls = append(u.calls, reference)
	if u.Err != nil {
		return "", u.Err
	}
	return fmt.Sprintf("https://cdn.test/uploads/%s.png", reference), nil
}

// Calls returns the references uploaded so far.
func (u *UploaderStub) Calls() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string{}, u.calls...)
}

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a clock frozen at now.
func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// SequentialIDs returns a generator yielding prefix-1, prefix-2, ...
func SequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

// TinyPNG returns an in-memory PNG byte slice with the requested dimensions.
func TinyPNG(t interface {
	Helper()
	Fatalf(string, ...any)
}, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// PNGDataURL wraps raw PNG bytes in a base64 data URL.
func PNGDataURL(raw []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)
}
