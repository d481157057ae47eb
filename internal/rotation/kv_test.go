package rotation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKV(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	_, err := kv.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, kv.Set(ctx, "doc/with:odd chars", []byte(`{"a":1}`)))
	got, err := kv.Get(ctx, "doc/with:odd chars")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))

	require.NoError(t, kv.Set(ctx, "doc/with:odd chars", []byte(`{"a":2}`)))
	got, err = kv.Get(ctx, "doc/with:odd chars")
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, string(got))

	require.NoError(t, kv.Delete(ctx, "doc/with:odd chars"))
	_, err = kv.Get(ctx, "doc/with:odd chars")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, kv.Delete(ctx, "never-set"))
}

func TestMemoryKV(t *testing.T) {
	testKV(t, NewMemoryKV())
}

func TestFileKV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "rotation")
	kv, err := NewFileKV(dir)
	require.NoError(t, err)
	testKV(t, kv)

	// No temp files left behind.
	require.NoError(t, kv.Set(context.Background(), "doc-1", []byte(`{}`)))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "doc-1.json", entries[0].Name())
}

func TestRedisKV(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	kv := NewRedisKV(client)
	testKV(t, kv)

	require.NoError(t, kv.Set(context.Background(), "doc-1", []byte(`x`)))
	assert.True(t, mr.Exists(RedisPrefix+"doc-1"), "keys must carry the prefix")
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	client.Close()

	_, err = NewRedisClient(context.Background(), "not a url")
	assert.Error(t, err)
}

func TestSelectorWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	s := newTestSelector(NewRedisKV(client))
	ctx := context.Background()

	first, err := s.Select(ctx, tmpl(6), 3)
	require.NoError(t, err)
	second, err := s.Select(ctx, tmpl(6), 3)
	require.NoError(t, err)
	for _, i := range second.Indices {
		assert.NotContains(t, first.Indices, i)
	}
}
