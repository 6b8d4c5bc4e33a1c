// Package pending correlates tool calls that wait for a browser-side action
// with the out-of-band message that later completes them.
//
// Each correlation id moves absent -> pending -> {fulfilled, rejected,
// timed out}. All three end states are terminal and remove the entry, so
// the id may be reused afterwards. An id cannot be pending twice.
package pending

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrAlreadyPending is returned by Begin for an id that is still pending.
	ErrAlreadyPending = errors.New("request is already pending")
	// ErrTimeout settles requests whose deadline passed.
	ErrTimeout = errors.New("request timed out")
	// ErrRejected wraps the reason given to Reject.
	ErrRejected = errors.New("request rejected")
	// ErrEmptyID is returned by Begin for an empty correlation id.
	ErrEmptyID = errors.New("correlation id is empty")
)

type outcome[T any] struct {
	value T
	err   error
}

type entry[T any] struct {
	done     chan outcome[T] // buffered; receives exactly one outcome
	timer    *time.Timer
	deadline time.Time
}

// Correlator holds pending requests keyed by caller-unique correlation ids.
// Safe for concurrent use.
type Correlator[T any] struct {
	mu       sync.Mutex
	entries  map[string]*entry[T]
	onChange func(pending int)
}

// New creates an empty correlator.
func New[T any]() *Correlator[T] {
	return &Correlator[T]{entries: make(map[string]*entry[T])}
}

// OnChange registers a callback receiving the pending count after every
// transition. Used to feed metrics.
func (c *Correlator[T]) OnChange(fn func(pending int)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// Request is a pending entry returned by Begin.
type Request[T any] struct {
	id    string
	owner *Correlator[T]
	entry *entry[T]
}

// ID returns the correlation id.
func (r *Request[T]) ID() string {
	return r.id
}

// Begin registers id as pending. A positive timeout settles the request with
// ErrTimeout once it elapses; zero means it only ends by Fulfill, Reject,
// Sweep or the waiter's context.
func (c *Correlator[T]) Begin(id string, timeout time.Duration) (*Request[T], error) {
	if id == "" {
		return nil, ErrEmptyID
	}

	c.mu.Lock()
	if _, exists := c.entries[id]; exists {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: callId %q", ErrAlreadyPending, id)
	}
	e := &entry[T]{done: make(chan outcome[T], 1)}
	if timeout > 0 {
		e.deadline = time.Now().Add(timeout)
		e.timer = time.AfterFunc(timeout, func() {
			c.settle(id, e, outcome[T]{err: fmt.Errorf("%w after %s", ErrTimeout, timeout)})
		})
	}
	c.entries[id] = e
	n, notify := len(c.entries), c.onChange
	c.mu.Unlock()

	if notify != nil {
		notify(n)
	}
	return &Request[T]{id: id, owner: c, entry: e}, nil
}

// Wait blocks until the request is settled or ctx ends. Cancelling ctx
// settles the request with the context error.
func (r *Request[T]) Wait(ctx context.Context) (T, error) {
	select {
	case o := <-r.entry.done:
		return o.value, o.err
	case <-ctx.Done():
		if r.owner.settle(r.id, r.entry, outcome[T]{err: ctx.Err()}) {
			var zero T
			return zero, ctx.Err()
		}
		// Settled concurrently; the outcome is already buffered.
		o := <-r.entry.done
		return o.value, o.err
	}
}

// Fulfill settles id with v. Returns false for unknown or settled ids.
func (c *Correlator[T]) Fulfill(id string, v T) bool {
	return c.settle(id, nil, outcome[T]{value: v})
}

// Reject settles id with an error wrapping ErrRejected and reason.
// Returns false for unknown or settled ids.
func (c *Correlator[T]) Reject(id string, reason error) bool {
	if reason == nil {
		reason = errors.New("no reason given")
	}
	return c.settle(id, nil, outcome[T]{err: fmt.Errorf("%w: %w", ErrRejected, reason)})
}

// IsPending reports whether id is waiting.
func (c *Correlator[T]) IsPending(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[id]
	return ok
}

// Len returns the number of pending requests.
func (c *Correlator[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Sweep settles every request whose deadline is before now with ErrTimeout
// and returns how many it settled.
func (c *Correlator[T]) Sweep(now time.Time) int {
	c.mu.Lock()
	var expired []string
	for id, e := range c.entries {
		if !e.deadline.IsZero() && e.deadline.Before(now) {
			expired = append(expired, id)
		}
	}
	c.mu.Unlock()

	settled := 0
	for _, id := range expired {
		if c.settle(id, nil, outcome[T]{err: fmt.Errorf("%w: swept", ErrTimeout)}) {
			settled++
		}
	}
	return settled
}

// settle delivers o to the entry for id. When want is non-nil, only that
// exact entry is settled, so a stale timer cannot end a newer request that
// reused the id.
func (c *Correlator[T]) settle(id string, want *entry[T], o outcome[T]) bool {
	c.mu.Lock()
	e, ok := c.entries[id]
	if !ok || (want != nil && e != want) {
		c.mu.Unlock()
		return false
	}
	delete(c.entries, id)
	n, notify := len(c.entries), c.onChange
	c.mu.Unlock()

	if e.timer != nil {
		e.timer.Stop()
	}
	e.done <- o
	if notify != nil {
		notify(n)
	}
	return true
}
