package internal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lychee-technology/attrschema"
)

// countingStore counts lookups served by an in-memory map.
type countingStore struct {
	sets  map[int64]*attrschema.AttributeSet
	gets  int
	lists int
}

func (c *countingStore) GetAttributeSet(ctx context.Context, id int64) (*attrschema.AttributeSet, error) {
	c.gets++
	set, ok := c.sets[id]
	if !ok {
		return nil, attrschema.NewAttributeSetNotFoundError(id)
	}
	return set.Clone(), nil
}

func (c *countingStore) ListAttributeSets(ctx context.Context) ([]*attrschema.AttributeSet, error) {
	c.lists++
	return []*attrschema.AttributeSet{}, nil
}

func TestCachedAttributeSetStore(t *testing.T) {
	next := &countingStore{sets: map[int64]*attrschema.AttributeSet{7: productSet()}}
	cache := NewCachedAttributeSetStore(next, time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	first, err := cache.GetAttributeSet(ctx, 7)
	require.NoError(t, err)
	second, err := cache.GetAttributeSet(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, next.gets)
	assert.Equal(t, first, second)

	// callers get copies
	second.Attributes[0].Code = "mutated"
	third, err := cache.GetAttributeSet(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "color", third.Attributes[0].Code)

	now = now.Add(2 * time.Minute)
	_, err = cache.GetAttributeSet(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, next.gets)

	cache.Invalidate(7)
	_, err = cache.GetAttributeSet(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 3, next.gets)

	cache.Invalidate()
	_, err = cache.GetAttributeSet(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 4, next.gets)
}

func TestCachedAttributeSetStoreDoesNotCacheMisses(t *testing.T) {
	next := &countingStore{sets: map[int64]*attrschema.AttributeSet{}}
	cache := NewCachedAttributeSetStore(next, 0)

	for i := 0; i < 2; i++ {
		_, err := cache.GetAttributeSet(context.Background(), 1)
		assert.True(t, attrschema.IsNotFound(err))
	}
	assert.Equal(t, 2, next.gets)

	_, err := cache.ListAttributeSets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, next.lists)
}
