// Package bootstrap turns configuration into the storage, Redis and remote
// dependencies shared by the CLI and the collaborator server.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"revayat/internal/config"
	"revayat/internal/observability"
	"revayat/internal/remote"
	"revayat/internal/storage"

	"github.com/redis/go-redis/v9"
)

// Options control runtime initialization behavior.
type Options struct {
	// Namespace separates the CLI's local state from the collaborator's
	// documents when they share a backend. It names the sqlite file, the
	// file store subdirectory and the Redis key prefix.
	Namespace string
	// WantRedis connects to REDIS_URL even when storage uses another driver.
	// An unreachable Redis is logged and left nil.
	WantRedis bool
}

// Runtime is the set of initialized dependencies.
type Runtime struct {
	Storage storage.KeyValue
	Redis   *redis.Client
	Remote  *remote.Gateway

	closers []io.Closer
}

// InitRuntime opens the configured storage driver and builds the remote gateway.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	if opts.Namespace == "" {
		opts.Namespace = "revayat"
	}

	rt := &Runtime{Remote: remote.New(cfg.RemoteAPIBaseURL, cfg.SyncTimeout())}

	kv, err := OpenStorage(ctx, cfg, opts.Namespace)
	if err != nil {
		return nil, err
	}
	rt.Storage = kv
	if c, ok := kv.(io.Closer); ok {
		rt.closers = append(rt.closers, c)
	}
	if rs, ok := kv.(*storage.RedisStore); ok {
		rt.Redis = rs.Client()
	}

	if opts.WantRedis && rt.Redis == nil && cfg.RedisURL != "" {
		rs, err := storage.NewRedisStore(ctx, cfg.RedisURL, opts.Namespace)
		if err != nil {
			observability.Logger.WarnContext(ctx, "redis unavailable, continuing without it",
				slog.String("error", err.Error()))
		} else {
			rt.Redis = rs.Client()
			rt.closers = append(rt.closers, rs)
		}
	}

	return rt, nil
}

// OpenStorage opens the key/value store selected by STORAGE_DRIVER.
func OpenStorage(ctx context.Context, cfg *config.Config, namespace string) (storage.KeyValue, error) {
	switch cfg.StorageDriver {
	case config.StorageMemory:
		return storage.NewMemoryStore(), nil
	case config.StorageFile:
		kv, err := storage.NewFileStore(filepath.Join(cfg.StoragePath, namespace))
		if err != nil {
			return nil, fmt.Errorf("open file storage: %w", err)
		}
		return kv, nil
	case config.StorageRedis:
		kv, err := storage.NewRedisStore(ctx, cfg.RedisURL, namespace)
		if err != nil {
			return nil, fmt.Errorf("open redis storage: %w", err)
		}
		return kv, nil
	case config.StorageSQLite:
		if err := os.MkdirAll(cfg.StoragePath, 0o750); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
		kv, err := storage.OpenSQLite(filepath.Join(cfg.StoragePath, namespace+".db"))
		if err != nil {
			return nil, fmt.Errorf("open sqlite storage: %w", err)
		}
		return kv, nil
	case config.StoragePostgres:
		dsn := storage.PostgresDSN(cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)
		kv, err := storage.OpenPostgres(dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres storage: %w", err)
		}
		return kv, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

// Close releases every connection opened by InitRuntime.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
