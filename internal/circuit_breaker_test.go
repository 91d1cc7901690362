package internal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lychee-technology/attrschema"
)

type flakyStore struct {
	calls int
	err   error
}

func (f *flakyStore) GetAttributeSet(ctx context.Context, id int64) (*attrschema.AttributeSet, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &attrschema.AttributeSet{ID: id, Name: "Shirts"}, nil
}

func (f *flakyStore) ListAttributeSets(ctx context.Context) ([]*attrschema.AttributeSet, error) {
	f.calls++
	return nil, f.err
}

func testBreaker(clock *time.Time) *CircuitBreaker {
	cb := NewCircuitBreaker(2, time.Minute, 30*time.Second)
	cb.now = func() time.Time { return *clock }
	return cb
}

func TestCircuitBreakerOpensAndRecovers(t *testing.T) {
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cb := testBreaker(&clock)

	cb.RecordFailure()
	assert.False(t, cb.IsOpen())
	cb.RecordFailure()
	assert.True(t, cb.IsOpen())

	clock = clock.Add(31 * time.Second)
	assert.False(t, cb.IsOpen())

	cb.RecordSuccess()
	cb.RecordFailure()
	assert.False(t, cb.IsOpen())
}

func TestCircuitBreakerForgetsOldFailures(t *testing.T) {
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cb := testBreaker(&clock)

	cb.RecordFailure()
	clock = clock.Add(2 * time.Minute)
	cb.RecordFailure()
	assert.False(t, cb.IsOpen())
}

func TestNilCircuitBreakerNeverOpens(t *testing.T) {
	cb := NewCircuitBreaker(0, time.Minute, time.Minute)
	require.Nil(t, cb)
	cb.RecordFailure()
	assert.False(t, cb.IsOpen())
}

func TestBreakerAttributeSetStore(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("opens after repeated store errors", func(t *testing.T) {
		next := &flakyStore{err: attrschema.NewStoreError("query failed", errors.New("connection reset"))}
		store := NewBreakerAttributeSetStore(next, testBreaker(&clock))

		for i := 0; i < 2; i++ {
			_, err := store.GetAttributeSet(ctx, 7)
			require.Error(t, err)
		}

		_, err := store.GetAttributeSet(ctx, 7)
		require.ErrorIs(t, err, ErrCircuitOpen)
		assert.Equal(t, 2, next.calls)

		_, err = store.ListAttributeSets(ctx)
		require.ErrorIs(t, err, ErrCircuitOpen)
		require.ErrorIs(t, store.CheckHealth(ctx), ErrCircuitOpen)
	})

	t.Run("not found does not count", func(t *testing.T) {
		next := &flakyStore{err: attrschema.NewAttributeSetNotFoundError(9)}
		store := NewBreakerAttributeSetStore(next, testBreaker(&clock))

		for i := 0; i < 3; i++ {
			_, err := store.GetAttributeSet(ctx, 9)
			require.True(t, attrschema.IsNotFound(err))
		}
		assert.Equal(t, 3, next.calls)
	})

	t.Run("cancelled callers do not count", func(t *testing.T) {
		next := &flakyStore{err: context.Canceled}
		store := NewBreakerAttributeSetStore(next, testBreaker(&clock))
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		for i := 0; i < 3; i++ {
			_, err := store.GetAttributeSet(cancelled, 7)
			require.ErrorIs(t, err, context.Canceled)
		}
		assert.Equal(t, 3, next.calls)
	})

	t.Run("success passes through", func(t *testing.T) {
		store := NewBreakerAttributeSetStore(&flakyStore{}, testBreaker(&clock))
		set, err := store.GetAttributeSet(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, "Shirts", set.Name)
		assert.NoError(t, store.CheckHealth(ctx))
	})
}
