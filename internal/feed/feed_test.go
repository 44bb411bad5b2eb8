package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"trip-planner/internal/database"
)

// fakeSource is a query backend whose contents and failure mode can be
// swapped between deliveries.
type fakeSource struct {
	mu    sync.Mutex
	items []int
	err   error
}

func (s *fakeSource) set(items []int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
	s.err = err
}

func (s *fakeSource) query(_ context.Context) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]int, len(s.items))
	copy(out, s.items)
	return out, nil
}

func intAsc(a, b int) bool { return a < b }

func receive(t *testing.T, f *Feed[int]) Snapshot[int] {
	t.Helper()
	select {
	case snap, ok := <-f.Updates():
		if !ok {
			t.Fatal("updates channel closed unexpectedly")
		}
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return Snapshot[int]{}
}

func TestWatchDeliversSortedSnapshots(t *testing.T) {
	hub := database.NewHub()
	src := &fakeSource{items: []int{3, 1, 2}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := Watch(ctx, hub, database.CollectionPlans, src.query, intAsc)

	snap := receive(t, f)
	if snap.State != Synced {
		t.Fatalf("expected first delivery to be Synced, got %v", snap.State)
	}
	if len(snap.Items) != 3 || snap.Items[0] != 1 || snap.Items[2] != 3 {
		t.Fatalf("expected client-side sorted snapshot, got %v", snap.Items)
	}

	// A change tick triggers a re-query and a full replacement.
	src.set([]int{5, 4}, nil)
	hub.Notify(database.CollectionPlans)

	snap = receive(t, f)
	if snap.State != Synced {
		t.Fatalf("expected Synced, got %v", snap.State)
	}
	if len(snap.Items) != 2 || snap.Items[0] != 4 || snap.Items[1] != 5 {
		t.Fatalf("expected replaced snapshot [4 5], got %v", snap.Items)
	}
}

func TestWatchKeepsLastSnapshotOnErrorAndRecovers(t *testing.T) {
	hub := database.NewHub()
	src := &fakeSource{items: []int{1, 2}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := Watch(ctx, hub, database.CollectionPlans, src.query, intAsc)
	receive(t, f) // initial Synced delivery

	queryErr := errors.New("listener dropped")
	src.set(nil, queryErr)
	hub.Notify(database.CollectionPlans)

	snap := receive(t, f)
	if snap.State != Error {
		t.Fatalf("expected Error state, got %v", snap.State)
	}
	if !errors.Is(snap.Err, queryErr) {
		t.Fatalf("expected delivery error to be surfaced, got %v", snap.Err)
	}
	if len(snap.Items) != 2 {
		t.Fatalf("expected list frozen at last known value, got %v", snap.Items)
	}

	// The subscription was not torn down: the next successful delivery
	// recovers silently.
	src.set([]int{7}, nil)
	hub.Notify(database.CollectionPlans)

	snap = receive(t, f)
	if snap.State != Synced || len(snap.Items) != 1 || snap.Items[0] != 7 {
		t.Fatalf("expected silent recovery to [7], got state %v items %v", snap.State, snap.Items)
	}
}

func TestWatchTeardownClosesUpdates(t *testing.T) {
	hub := database.NewHub()
	src := &fakeSource{items: []int{1}}

	ctx, cancel := context.WithCancel(context.Background())
	f := Watch(ctx, hub, database.CollectionPlans, src.query, intAsc)
	receive(t, f)

	cancel()

	select {
	case _, ok := <-f.Updates():
		if ok {
			// A snapshot may have been in flight; the next read must
			// observe the close.
			if _, ok := <-f.Updates(); ok {
				t.Fatal("expected updates channel to close after teardown")
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for teardown")
	}
}
