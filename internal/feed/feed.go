// Package feed keeps an in-memory list synchronized with a live query.
// Each delivered snapshot fully replaces the previous list; there is no
// incremental merge. Queries are unordered and every snapshot is sorted
// client-side with the view's comparator before delivery.
package feed

import (
	"context"
	"sort"

	"trip-planner/internal/database"
)

// State of the reconciliation machine. Loading until the first
// delivery, then Synced on every successful delivery, Error when a
// query fails; the feed stays subscribed in Error and recovers
// silently on the next successful delivery.
type State int

const (
	Loading State = iota
	Synced
	Error
)

// Snapshot is one delivery: the full replacement list plus the state
// it was produced in. On Error, Items holds the last known value and
// Err carries the failure for a user-visible notice.
type Snapshot[T any] struct {
	State State
	Items []T
	Err   error
}

// Query produces the current matching documents.
type Query[T any] func(ctx context.Context) ([]T, error)

// Feed is a live subscription to one query.
type Feed[T any] struct {
	updates chan Snapshot[T]
}

// Watch subscribes to a collection and delivers a snapshot immediately
// and again after every change notification. Cancelling ctx tears the
// feed down: the updates channel is closed and the hub registration
// released, so no delivery ever lands on an inactive consumer.
func Watch[T any](ctx context.Context, hub *database.Hub, collection string, query Query[T], less func(a, b T) bool) *Feed[T] {
	f := &Feed[T]{updates: make(chan Snapshot[T], 1)}

	ticks, unsubscribe := hub.Subscribe(collection)

	go func() {
		defer close(f.updates)
		defer unsubscribe()

		var last []T
		for {
			items, err := query(ctx)
			var snap Snapshot[T]
			if err != nil {
				// List frozen at its last value; subscription stays
				// registered for silent recovery.
				snap = Snapshot[T]{State: Error, Items: last, Err: err}
			} else {
				sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
				last = items
				snap = Snapshot[T]{State: Synced, Items: items}
			}

			select {
			case f.updates <- snap:
			case <-ctx.Done():
				return
			}

			select {
			case <-ticks:
			case <-ctx.Done():
				return
			}
		}
	}()

	return f
}

// Updates returns the delivery channel. It is closed on teardown.
func (f *Feed[T]) Updates() <-chan Snapshot[T] {
	return f.updates
}
