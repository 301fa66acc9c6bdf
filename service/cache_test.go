package service

import (
	"context"
	"testing"

	"lexilingua-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKey(t *testing.T) {
	base := CacheKey(TaskRisks, "This  agreement\nis binding.", models.English)

	assert.Len(t, base, 64)
	assert.Equal(t, base, CacheKey(TaskRisks, "  This agreement is\tbinding. ", models.English), "whitespace is normalized")
	assert.NotEqual(t, base, CacheKey(TaskSummary, "This agreement is binding.", models.English), "task is part of the key")
	assert.NotEqual(t, base, CacheKey(TaskRisks, "This agreement is binding.", models.Telugu), "language is part of the key")
	assert.NotEqual(t, base, CacheKey(TaskRisks, "This agreement is void.", models.English))
}

func TestLRUCacheEvictsOldest(t *testing.T) {
	ctx := context.Background()
	c, err := NewLRUCache(2)
	require.NoError(t, err)

	c.Set(ctx, "a", []byte("1"))
	c.Set(ctx, "b", []byte("2"))
	_, _ = c.Get(ctx, "a")
	c.Set(ctx, "c", []byte("3"))

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get(ctx, "b")
	assert.False(t, ok, "least recently used entry is evicted")

	v, ok := c.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, []byte("1"), v)
}

func TestNewLRUCacheRejectsZeroSize(t *testing.T) {
	_, err := NewLRUCache(0)
	assert.Error(t, err)
}

func TestNoopCache(t *testing.T) {
	ctx := context.Background()
	c := NoopCache()
	c.Set(ctx, "k", []byte("v"))
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}
