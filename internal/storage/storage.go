// Package storage implements the local durable key/value state that backs
// every social store, plus the document storage used by the remote server.
//
// Each logical collection lives under its own key and is written whole.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when a key has never been written.
var ErrNotFound = errors.New("storage: key not found")

// KeyValue is the persistence port the stores depend on.
type KeyValue interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Pinger is implemented by drivers backed by a network service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Storage keys for the social collections.
const (
	KeyAccounts      = "revayat.accounts.v1"
	KeyActiveAccount = "revayat.activeAccountId"
	KeyExplorePosts  = "revayat.explore.posts.v2"
	KeyFollowMap     = "revayat.follow.map.v1"
	KeySavedContent  = "revayat.saved.content.v1"
	KeyStories       = "revayat.stories.v1"
)

// LoadJSON reads key and decodes it into dest. It returns false with a nil
// error when the key does not exist.
func LoadJSON(ctx context.Context, kv KeyValue, key string, dest any) (bool, error) {
	raw, err := kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SaveJSON encodes v and writes it under key.
func SaveJSON(ctx context.Context, kv KeyValue, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := kv.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
