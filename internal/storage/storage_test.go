package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"wayfarer/pkg/traveltypes"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseKV(t *testing.T, kv traveltypes.KV) {
	t.Helper()
	ctx := context.Background()

	_, err := kv.Get(ctx, "wayfarer/missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, traveltypes.ErrNotFound))

	require.NoError(t, kv.Put(ctx, "wayfarer/state", []byte(`{"allSessions":[]}`)))
	value, err := kv.Get(ctx, "wayfarer/state")
	require.NoError(t, err)
	assert.JSONEq(t, `{"allSessions":[]}`, string(value))

	require.NoError(t, kv.Put(ctx, "wayfarer/state", []byte(`{"activeSessionId":"b"}`)))
	value, err = kv.Get(ctx, "wayfarer/state")
	require.NoError(t, err)
	assert.JSONEq(t, `{"activeSessionId":"b"}`, string(value))
}

func TestMemoryKV(t *testing.T) {
	kv := NewMemoryKV()
	exerciseKV(t, kv)

	kv.FailPuts = errors.New("disk full")
	assert.EqualError(t, kv.Put(context.Background(), "k", nil), "disk full")
}

func TestFileKV(t *testing.T) {
	dir := t.TempDir()
	kv, err := NewFileKV(dir)
	require.NoError(t, err)
	exerciseKV(t, kv)

	// Keys are escaped into a single file name.
	_, err = os.Stat(filepath.Join(dir, "wayfarer%2Fstate.json"))
	assert.NoError(t, err)

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	require.NoError(t, kv.Close())
}

func TestFileKV_RequiresDirectory(t *testing.T) {
	_, err := NewFileKV("")
	assert.True(t, errors.Is(err, traveltypes.ErrStorage))
}

func TestSQLiteKV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "wayfarer.db")
	kv, err := OpenSQLiteKV(context.Background(), path)
	require.NoError(t, err)
	defer func() { _ = kv.Close() }()

	exerciseKV(t, kv)
}

func TestSQLiteKV_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "wayfarer.db")

	kv, err := OpenSQLiteKV(ctx, path)
	require.NoError(t, err)
	require.NoError(t, kv.Put(ctx, "wayfarer/state", []byte("v1")))
	require.NoError(t, kv.Close())

	reopened, err := OpenSQLiteKV(ctx, path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	value, err := reopened.Get(ctx, "wayfarer/state")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(value))
}

func TestRedisKV(t *testing.T) {
	url := os.Getenv("WAYFARER_TEST_REDIS_URL")
	if url == "" {
		t.Skip("WAYFARER_TEST_REDIS_URL not set")
	}
	kv, err := OpenRedisKV(context.Background(), url)
	require.NoError(t, err)
	defer func() { _ = kv.Close() }()

	_ = kv.client.Del(context.Background(), "wayfarer/state", "wayfarer/missing").Err()
	exerciseKV(t, kv)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	kv, err := Open(ctx, Options{Backend: "MEMORY"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryKV{}, kv)

	kv, err = Open(ctx, Options{Path: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileKV{}, kv)

	_, err = Open(ctx, Options{Backend: "redis"})
	assert.True(t, errors.Is(err, traveltypes.ErrStorage))

	_, err = Open(ctx, Options{Backend: "etcd"})
	assert.ErrorIs(t, err, ErrUnknownBackend)
	assert.Contains(t, err.Error(), "unknown storage backend")
}
