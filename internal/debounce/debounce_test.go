package debounce

import (
	"context"
	"sync"
	"testing"
	"time"
)

// recorder collects committed values safely across goroutines.
type recorder struct {
	mu     sync.Mutex
	values []string
}

func (r *recorder) commit(v string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.values))
	copy(out, r.values)
	return out
}

func TestRapidEditsProduceOneWrite(t *testing.T) {
	rec := &recorder{}
	s := NewSaver(context.Background(), 50*time.Millisecond, rec.commit)
	s.MarkLoaded()

	s.Set("a")
	time.Sleep(10 * time.Millisecond)
	s.Set("ab")
	time.Sleep(10 * time.Millisecond)
	s.Set("abc")

	time.Sleep(150 * time.Millisecond)

	got := rec.snapshot()
	if len(got) != 1 {
		t.Fatalf("expected exactly one write, got %d: %v", len(got), got)
	}
	if got[0] != "abc" {
		t.Errorf("expected latest value %q to be written, got %q", "abc", got[0])
	}
}

func TestCloseBeforeWindowWritesNothing(t *testing.T) {
	rec := &recorder{}
	s := NewSaver(context.Background(), 500*time.Millisecond, rec.commit)
	s.MarkLoaded()

	s.Set("draft")
	time.Sleep(100 * time.Millisecond)
	s.Close()

	time.Sleep(600 * time.Millisecond)

	if got := rec.snapshot(); len(got) != 0 {
		t.Fatalf("expected zero writes after close, got %v", got)
	}
}

func TestContextTeardownCancelsPendingWrite(t *testing.T) {
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	s := NewSaver(ctx, 100*time.Millisecond, rec.commit)
	s.MarkLoaded()

	s.Set("doomed")
	cancel()

	time.Sleep(250 * time.Millisecond)

	if got := rec.snapshot(); len(got) != 0 {
		t.Fatalf("expected zero writes after context cancel, got %v", got)
	}
}

func TestSaveSuppressedUntilLoaded(t *testing.T) {
	rec := &recorder{}
	s := NewSaver(context.Background(), 20*time.Millisecond, rec.commit)

	// Edits while the initial load is still in flight must not reach
	// storage: the empty editor must never clobber the stored value.
	s.Set("")
	time.Sleep(80 * time.Millisecond)
	if got := rec.snapshot(); len(got) != 0 {
		t.Fatalf("expected no writes before load completed, got %v", got)
	}

	s.MarkLoaded()
	s.Set("loaded edit")
	time.Sleep(80 * time.Millisecond)

	got := rec.snapshot()
	if len(got) != 1 || got[0] != "loaded edit" {
		t.Fatalf("expected one write of %q, got %v", "loaded edit", got)
	}
}

func TestFlushCommitsPendingValueImmediately(t *testing.T) {
	rec := &recorder{}
	s := NewSaver(context.Background(), time.Hour, rec.commit)
	s.MarkLoaded()

	s.Set("now")
	s.Flush()

	got := rec.snapshot()
	if len(got) != 1 || got[0] != "now" {
		t.Fatalf("expected flushed write of %q, got %v", "now", got)
	}

	// Nothing left pending afterwards.
	s.Flush()
	if got := rec.snapshot(); len(got) != 1 {
		t.Fatalf("expected no extra write after second flush, got %v", got)
	}
}

func TestCancelDropsPendingButKeepsSaverUsable(t *testing.T) {
	rec := &recorder{}
	s := NewSaver(context.Background(), 30*time.Millisecond, rec.commit)
	s.MarkLoaded()

	s.Set("dropped")
	s.Cancel()
	time.Sleep(80 * time.Millisecond)
	if got := rec.snapshot(); len(got) != 0 {
		t.Fatalf("expected no writes after cancel, got %v", got)
	}

	s.Set("kept")
	time.Sleep(80 * time.Millisecond)
	got := rec.snapshot()
	if len(got) != 1 || got[0] != "kept" {
		t.Fatalf("expected one write of %q, got %v", "kept", got)
	}
}
