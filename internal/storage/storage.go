// Package storage provides the durable key-value backends behind the session store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"wayfarer/pkg/traveltypes"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// ErrUnknownBackend reports a backend name Open does not recognize.
var ErrUnknownBackend = errors.New("unknown storage backend")

// Options selects and configures a backend.
type Options struct {
	Backend string
	// Path is a directory for the file backend and a database file for sqlite.
	Path string
	// RedisURL is a redis:// connection URL.
	RedisURL string
}

// Open returns the backend named by opts.Backend. An empty name selects the file backend.
func Open(ctx context.Context, opts Options) (traveltypes.KV, error) {
	switch strings.ToLower(opts.Backend) {
	case "", BackendFile:
		return NewFileKV(opts.Path)
	case BackendSQLite:
		return OpenSQLiteKV(ctx, opts.Path)
	case BackendRedis:
		return OpenRedisKV(ctx, opts.RedisURL)
	case BackendMemory:
		return NewMemoryKV(), nil
	default:
		return nil, fmt.Errorf("%w: %w %q", traveltypes.ErrStorage, ErrUnknownBackend, opts.Backend)
	}
}

func notFound(key string) error {
	return fmt.Errorf("%w: key %q", traveltypes.ErrNotFound, key)
}
