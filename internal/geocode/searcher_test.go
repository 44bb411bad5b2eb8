package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// deliveries collects prediction lists handed to the searcher callback.
type deliveries struct {
	mu    sync.Mutex
	lists [][]Place
}

func (d *deliveries) deliver(places []Place) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lists = append(d.lists, places)
}

func (d *deliveries) last() ([]Place, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.lists) == 0 {
		return nil, 0
	}
	return d.lists[len(d.lists)-1], len(d.lists)
}

func newSearchServer(t *testing.T, requests *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.Write([]byte(`[{"display_name": "Kuta Beach, Badung", "lat": "-8.7185", "lon": "115.1686", "namedetails": {"name": "Kuta Beach"}}]`))
	}))
}

func TestShortQueryIssuesNoLookup(t *testing.T) {
	var requests atomic.Int64
	server := newSearchServer(t, &requests)
	defer server.Close()

	d := &deliveries{}
	s := NewSearcher(context.Background(), NewClient(server.URL), 30*time.Millisecond, d.deliver)
	defer s.Close()

	s.SetQuery("ku")
	time.Sleep(100 * time.Millisecond)

	if got := requests.Load(); got != 0 {
		t.Fatalf("expected zero lookups for a 2-rune query, got %d", got)
	}
	last, n := d.last()
	if n != 1 || len(last) != 0 {
		t.Fatalf("expected one empty prediction delivery, got %d deliveries, last %v", n, last)
	}
}

func TestThreeRuneQueryLooksUpAfterWindow(t *testing.T) {
	var requests atomic.Int64
	server := newSearchServer(t, &requests)
	defer server.Close()

	d := &deliveries{}
	s := NewSearcher(context.Background(), NewClient(server.URL), 50*time.Millisecond, d.deliver)
	defer s.Close()

	s.SetQuery("kut")

	if got := requests.Load(); got != 0 {
		t.Fatalf("lookup fired before the window elapsed")
	}

	time.Sleep(200 * time.Millisecond)

	if got := requests.Load(); got != 1 {
		t.Fatalf("expected exactly one lookup, got %d", got)
	}
	last, _ := d.last()
	if len(last) != 1 || last[0].Name != "Kuta Beach" {
		t.Fatalf("expected Kuta Beach prediction, got %v", last)
	}
}

func TestRapidTypingCoalescesLookups(t *testing.T) {
	var requests atomic.Int64
	server := newSearchServer(t, &requests)
	defer server.Close()

	d := &deliveries{}
	s := NewSearcher(context.Background(), NewClient(server.URL), 50*time.Millisecond, d.deliver)
	defer s.Close()

	s.SetQuery("kut")
	time.Sleep(10 * time.Millisecond)
	s.SetQuery("kuta")
	time.Sleep(10 * time.Millisecond)
	s.SetQuery("kuta b")

	time.Sleep(200 * time.Millisecond)

	if got := requests.Load(); got != 1 {
		t.Fatalf("expected rapid edits to coalesce into one lookup, got %d", got)
	}
}

func TestShrinkingBelowMinimumClearsPending(t *testing.T) {
	var requests atomic.Int64
	server := newSearchServer(t, &requests)
	defer server.Close()

	d := &deliveries{}
	s := NewSearcher(context.Background(), NewClient(server.URL), 50*time.Millisecond, d.deliver)
	defer s.Close()

	s.SetQuery("kuta")
	s.SetQuery("ku") // deleted back below the minimum

	time.Sleep(200 * time.Millisecond)

	if got := requests.Load(); got != 0 {
		t.Fatalf("expected pending lookup to be cancelled, got %d requests", got)
	}
	last, _ := d.last()
	if len(last) != 0 {
		t.Fatalf("expected cleared predictions, got %v", last)
	}
}
