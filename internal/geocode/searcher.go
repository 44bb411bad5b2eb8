package geocode

import (
	"context"
	"log"
	"time"
	"unicode/utf8"

	"trip-planner/internal/debounce"
)

const (
	// DefaultSearchWindow is the quiet period between the last
	// keystroke and the outbound lookup.
	DefaultSearchWindow = 500 * time.Millisecond

	// MinQueryLength is the shortest query worth a lookup; anything
	// shorter issues no request and clears the prediction list.
	MinQueryLength = 3
)

// Searcher debounces a stream of query edits into at most one lookup
// per quiet period and delivers each prediction list to the callback.
// Lookup failures degrade to an empty list; they never block the flow
// that owns the search box.
type Searcher struct {
	client  *Client
	deliver func([]Place)
	saver   *debounce.Saver[string]
	ctx     context.Context
}

// NewSearcher creates a searcher bound to ctx; cancelling ctx drops
// any pending lookup.
func NewSearcher(ctx context.Context, client *Client, window time.Duration, deliver func([]Place)) *Searcher {
	s := &Searcher{client: client, deliver: deliver, ctx: ctx}
	s.saver = debounce.NewSaver(ctx, window, s.lookup)
	// There is no stored value to wait for; the guard is only
	// meaningful for persisted editors.
	s.saver.MarkLoaded()
	return s
}

// SetQuery feeds the current text of the search box. Queries below the
// minimum length cancel any pending lookup and clear the predictions.
func (s *Searcher) SetQuery(query string) {
	if utf8.RuneCountInString(query) < MinQueryLength {
		s.saver.Cancel()
		s.deliver(nil)
		return
	}
	s.saver.Set(query)
}

func (s *Searcher) lookup(query string) {
	places, err := s.client.Search(s.ctx, query)
	if err != nil {
		log.Printf("Place search for %q failed: %v", query, err)
		s.deliver(nil)
		return
	}
	s.deliver(places)
}

// Close drops a pending lookup.
func (s *Searcher) Close() {
	s.saver.Close()
}
