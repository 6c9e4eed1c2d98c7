package sqlitecache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) (*Cache, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "cache.db")
	c, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, path
}

func TestCache_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	c, _ := openTemp(t)

	v, err := c.Get(ctx, "transactions_u1")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, c.Set(ctx, "transactions_u1", []byte(`{"transactions":[]}`)))
	require.NoError(t, c.Set(ctx, "transactions_u1", []byte(`{"transactions":[{"id":"a"}]}`)))

	v, err = c.Get(ctx, "transactions_u1")
	require.NoError(t, err)
	assert.Equal(t, `{"transactions":[{"id":"a"}]}`, string(v))

	require.NoError(t, c.Delete(ctx, "transactions_u1"))
	v, err = c.Get(ctx, "transactions_u1")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, c.Delete(ctx, "missing"))
}

func TestCache_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	c, path := openTemp(t)
	require.NoError(t, c.Set(ctx, "k", []byte("v")))
	require.NoError(t, c.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	v, err := reopened.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)
}

func TestCache_EmptyValue(t *testing.T) {
	ctx := context.Background()
	c, _ := openTemp(t)

	require.NoError(t, c.Set(ctx, "k", nil))
	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Empty(t, v)
}
