// Package teardown runs best-effort cleanup worklists.
//
// A [Worklist] collects items as they are acquired and releases them in
// reverse order. Every release is attempted even when an earlier one fails;
// failures are accumulated in a [Collector] which reports the first one and
// keeps the rest for diagnostics.
package teardown

import (
	"context"
	"errors"
	"fmt"
)

// Failure pairs an item name with the error it produced.
type Failure struct {
	Name string
	Err  error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Name, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Collector accumulates failures in the order they occurred.
// The zero value is ready to use.
type Collector struct {
	failures []Failure
}

// Add records err under name. Nil errors are ignored.
func (c *Collector) Add(name string, err error) {
	if err == nil {
		return
	}
	c.failures = append(c.failures, Failure{Name: name, Err: err})
}

// First returns the earliest recorded error, or nil.
func (c *Collector) First() error {
	if len(c.failures) == 0 {
		return nil
	}
	return c.failures[0].Err
}

// Failures returns a copy of every recorded failure in order.
func (c *Collector) Failures() []Failure {
	out := make([]Failure, len(c.failures))
	copy(out, c.failures)
	return out
}

// Len returns the number of recorded failures.
func (c *Collector) Len() int {
	return len(c.failures)
}

// Err joins all recorded failures, or returns nil when there are none.
func (c *Collector) Err() error {
	if len(c.failures) == 0 {
		return nil
	}
	errs := make([]error, len(c.failures))
	for i, f := range c.failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Worklist is an ordered list of acquired items awaiting release.
type Worklist[T any] struct {
	items []T
	name  func(T) string
}

// NewWorklist creates an empty worklist. name labels items in failures.
func NewWorklist[T any](name func(T) string) *Worklist[T] {
	return &Worklist[T]{name: name}
}

// Push records an acquired item.
func (w *Worklist[T]) Push(item T) {
	w.items = append(w.items, item)
}

// Items returns the items in acquisition order.
func (w *Worklist[T]) Items() []T {
	out := make([]T, len(w.items))
	copy(out, w.items)
	return out
}

// Len returns the number of pending items.
func (w *Worklist[T]) Len() int {
	return len(w.items)
}

// Drain calls release for every item, last acquired first, and empties the
// worklist. A failing release never stops the remaining ones; failures are
// added to c in the order they happen.
func (w *Worklist[T]) Drain(ctx context.Context, c *Collector, release func(context.Context, T) error) {
	for i := len(w.items) - 1; i >= 0; i-- {
		item := w.items[i]
		c.Add(w.name(item), release(ctx, item))
	}
	w.items = nil
}
