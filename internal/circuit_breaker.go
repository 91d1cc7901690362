package internal

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lychee-technology/attrschema"
)

// ErrCircuitOpen is the cause of store errors returned while the breaker is open.
var ErrCircuitOpen = errors.New("attribute set store circuit open")

// CircuitBreaker is a lightweight in-memory circuit breaker.
type CircuitBreaker struct {
	mu           sync.Mutex
	failures     []time.Time
	threshold    int
	window       time.Duration
	openUntil    time.Time
	openDuration time.Duration
	now          func() time.Time
}

// NewCircuitBreaker creates a breaker that opens for openDuration once
// threshold failures happen within window. A threshold of zero or less
// yields a nil breaker, which never opens.
func NewCircuitBreaker(threshold int, window, openDuration time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		return nil
	}
	return &CircuitBreaker{
		threshold:    threshold,
		window:       window,
		openDuration: openDuration,
		failures:     make([]time.Time, 0, threshold),
		now:          time.Now,
	}
}

// RecordFailure records a failure and opens the breaker if the threshold is reached.
func (cb *CircuitBreaker) RecordFailure() {
	if cb == nil {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.now()
	cutoff := now.Add(-cb.window)
	i := 0
	for ; i < len(cb.failures); i++ {
		if cb.failures[i].After(cutoff) {
			break
		}
	}
	if i > 0 {
		cb.failures = append([]time.Time{}, cb.failures[i:]...)
	}
	cb.failures = append(cb.failures, now)

	if len(cb.failures) >= cb.threshold {
		cb.openUntil = now.Add(cb.openDuration)
	}
}

// RecordSuccess resets the failure history.
func (cb *CircuitBreaker) RecordSuccess() {
	if cb == nil {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = cb.failures[:0]
	cb.openUntil = time.Time{}
}

// IsOpen reports whether calls should currently be short-circuited.
func (cb *CircuitBreaker) IsOpen() bool {
	if cb == nil {
		return false
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.now().Before(cb.openUntil)
}

// BreakerAttributeSetStore fails fast while a remote store keeps erroring.
// Missing sets and caller cancellations are not counted as failures.
type BreakerAttributeSetStore struct {
	next    attrschema.AttributeSetStore
	breaker *CircuitBreaker
}

var (
	_ attrschema.AttributeSetStore = (*BreakerAttributeSetStore)(nil)
	_ attrschema.HealthChecker     = (*BreakerAttributeSetStore)(nil)
)

// NewBreakerAttributeSetStore wraps next with breaker.
func NewBreakerAttributeSetStore(next attrschema.AttributeSetStore, breaker *CircuitBreaker) *BreakerAttributeSetStore {
	return &BreakerAttributeSetStore{next: next, breaker: breaker}
}

func (b *BreakerAttributeSetStore) GetAttributeSet(ctx context.Context, id int64) (*attrschema.AttributeSet, error) {
	if b.breaker.IsOpen() {
		return nil, openCircuitError()
	}
	set, err := b.next.GetAttributeSet(ctx, id)
	b.record(ctx, err)
	return set, err
}

func (b *BreakerAttributeSetStore) ListAttributeSets(ctx context.Context) ([]*attrschema.AttributeSet, error) {
	if b.breaker.IsOpen() {
		return nil, openCircuitError()
	}
	sets, err := b.next.ListAttributeSets(ctx)
	b.record(ctx, err)
	return sets, err
}

// CheckHealth reports an open breaker before probing the backend.
func (b *BreakerAttributeSetStore) CheckHealth(ctx context.Context) error {
	if b.breaker.IsOpen() {
		return openCircuitError()
	}
	if hc, ok := b.next.(attrschema.HealthChecker); ok {
		return hc.CheckHealth(ctx)
	}
	return nil
}

func (b *BreakerAttributeSetStore) record(ctx context.Context, err error) {
	switch {
	case err == nil, attrschema.IsNotFound(err):
		b.breaker.RecordSuccess()
	case ctx.Err() != nil:
	default:
		b.breaker.RecordFailure()
		if b.breaker.IsOpen() {
			zap.S().Warnw("attribute set store circuit opened", "error", err)
		}
	}
}

func openCircuitError() error {
	return attrschema.NewStoreError("attribute set store is temporarily unavailable", ErrCircuitOpen)
}
