// Package resource implements the console's per-entity CRUD surfaces. Every
// mutation goes to the backend first; when the call fails the same mutation
// is applied to local state instead, so the console keeps working without a
// backend. The two paths are kept distinguishable through Outcome.
package resource

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sajagmathur/mlconsole/internal/client"
	"github.com/sajagmathur/mlconsole/internal/metrics"
)

// ErrNotFound reports a soft id lookup that failed; dangling references are
// not an integrity violation here, the record is simply absent.
var ErrNotFound = errors.New("record not found")

// Outcome distinguishes backend-confirmed mutations from optimistic local
// ones.
type Outcome int

const (
	// Applied means the backend confirmed the mutation.
	Applied Outcome = iota
	// AppliedLocally means the backend call failed and the mutation was
	// applied to local state only. It is never reconciled later.
	AppliedLocally
)

func (o Outcome) String() string {
	if o == AppliedLocally {
		return "applied locally"
	}
	return "applied"
}

// Result carries a mutation outcome together with the resulting record.
type Result[T any] struct {
	Outcome Outcome
	Record  T
}

// API is the slice of the REST client a collection needs.
type API interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string) error
}

// Descriptor binds a record type to its REST path and id accessors.
type Descriptor[T any] struct {
	Kind  string
	Path  string
	ID    func(T) string
	SetID func(*T, string)
}

// Collection owns the local list state for one record kind.
type Collection[T any] struct {
	mu      sync.Mutex
	api     API
	d       Descriptor[T]
	metrics *metrics.Metrics
	items   []T
	closed  bool
}

// NewCollection creates a collection for the given descriptor.
func NewCollection[T any](api API, d Descriptor[T], m *metrics.Metrics) *Collection[T] {
	return &Collection[T]{api: api, d: d, metrics: m}
}

// List fetches all records. On success the local list is replaced with the
// server's; on failure the current local list is returned as-is. A 401 is an
// auth event, not an outage, and propagates.
func (c *Collection[T]) List(ctx context.Context) ([]T, Outcome, error) {
	var out []T
	err := c.api.Get(ctx, c.d.Path, &out)
	if err == nil {
		c.mu.Lock()
		c.items = out
		local := c.copyLocked()
		c.mu.Unlock()
		return local, Applied, nil
	}
	if client.IsUnauthorized(err) {
		return nil, Applied, err
	}

	c.fallback("list")
	c.mu.Lock()
	local := c.copyLocked()
	c.mu.Unlock()
	return local, AppliedLocally, nil
}

// Get looks up a record in local state by id.
func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range c.items {
		if c.d.ID(item) == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Create posts a new record. On failure the record is kept locally under a
// generated "local-" id.
func (c *Collection[T]) Create(ctx context.Context, rec T) (Result[T], error) {
	var out T
	err := c.api.Post(ctx, c.d.Path, rec, &out)
	if err == nil {
		c.upsert(out)
		return Result[T]{Outcome: Applied, Record: out}, nil
	}
	if client.IsUnauthorized(err) {
		return Result[T]{}, err
	}

	c.fallback("create")
	c.d.SetID(&rec, "local-"+uuid.NewString())
	c.upsert(rec)
	return Result[T]{Outcome: AppliedLocally, Record: rec}, nil
}

// Update puts a record under its id. On failure the local copy is replaced
// with the submitted one.
func (c *Collection[T]) Update(ctx context.Context, id string, rec T) (Result[T], error) {
	c.d.SetID(&rec, id)

	var out T
	err := c.api.Put(ctx, c.d.Path+"/"+id, rec, &out)
	if err == nil {
		c.upsert(out)
		return Result[T]{Outcome: Applied, Record: out}, nil
	}
	if client.IsUnauthorized(err) {
		return Result[T]{}, err
	}

	c.fallback("update")
	c.upsert(rec)
	return Result[T]{Outcome: AppliedLocally, Record: rec}, nil
}

// Delete removes a record. On failure it is removed from local state anyway.
func (c *Collection[T]) Delete(ctx context.Context, id string) (Outcome, error) {
	err := c.api.Delete(ctx, c.d.Path+"/"+id)
	if err == nil {
		c.remove(id)
		return Applied, nil
	}
	if client.IsUnauthorized(err) {
		return Applied, err
	}

	c.fallback("delete")
	c.remove(id)
	return AppliedLocally, nil
}

// Transition posts a verb against a record (approve, reject, pause). On
// failure apply is run against the local copy; a missing local record is
// ErrNotFound.
func (c *Collection[T]) Transition(ctx context.Context, id, verb string, apply func(T) T) (Result[T], error) {
	var out T
	err := c.api.Post(ctx, c.d.Path+"/"+id+"/"+verb, nil, &out)
	if err == nil {
		c.upsert(out)
		return Result[T]{Outcome: Applied, Record: out}, nil
	}
	if client.IsUnauthorized(err) {
		return Result[T]{}, err
	}

	c.fallback(verb)
	rec, ok := c.Get(id)
	if !ok {
		return Result[T]{}, ErrNotFound
	}
	rec = apply(rec)
	c.upsert(rec)
	return Result[T]{Outcome: AppliedLocally, Record: rec}, nil
}

// Run posts a run-style verb. When applied locally, start is applied now and
// finish after completeAfter, imitating the execution the backend would do.
// The delayed flip is dropped if the collection closes first.
func (c *Collection[T]) Run(ctx context.Context, id, verb string, start, finish func(T) T, completeAfter time.Duration) (Result[T], error) {
	res, err := c.Transition(ctx, id, verb, start)
	if err != nil || res.Outcome != AppliedLocally {
		return res, err
	}

	time.AfterFunc(completeAfter, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed {
			return
		}
		for i, item := range c.items {
			if c.d.ID(item) == id {
				c.items[i] = finish(item)
				return
			}
		}
	})
	return res, nil
}

// Seed replaces the local list. Used by tests and offline bootstrapping.
func (c *Collection[T]) Seed(items []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append([]T(nil), items...)
}

// Items returns a copy of the local list.
func (c *Collection[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyLocked()
}

// Close drops any pending simulated-run completions.
func (c *Collection[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *Collection[T]) fallback(op string) {
	if c.metrics != nil {
		c.metrics.IncFallback(c.d.Kind, op)
	}
}

func (c *Collection[T]) upsert(rec T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.d.ID(rec)
	for i, item := range c.items {
		if c.d.ID(item) == id {
			c.items[i] = rec
			return
		}
	}
	c.items = append(c.items, rec)
}

func (c *Collection[T]) remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, item := range c.items {
		if c.d.ID(item) == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

func (c *Collection[T]) copyLocked() []T {
	return append([]T(nil), c.items...)
}
