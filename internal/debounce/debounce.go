// Package debounce coalesces a rapidly-changing local value into
// infrequent durable writes: a commit is scheduled a quiet period
// after the most recent change, and any change before the timer fires
// restarts it, so only the latest value is ever written.
package debounce

import (
	"context"
	"sync"
	"time"
)

// Saver debounces commits of a value. At most one commit is pending at
// a time; the value passed to commit is the most recent value at the
// moment the timer fires.
//
// Commits are suppressed until MarkLoaded is called. This guards the
// first write: a slow initial load racing a fast default-value save
// must not overwrite durable state.
type Saver[T any] struct {
	window time.Duration
	commit func(T)

	mu     sync.Mutex
	timer  *time.Timer
	latest T
	loaded bool
	closed bool
}

// NewSaver creates a Saver. When ctx is cancelled the saver closes and
// a pending commit is dropped, so a torn-down owner never races a late
// write against a freshly loaded value.
func NewSaver[T any](ctx context.Context, window time.Duration, commit func(T)) *Saver[T] {
	s := &Saver[T]{window: window, commit: commit}
	if ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			s.Close()
		}()
	}
	return s
}

// Set records a new value and restarts the quiet-period timer.
func (s *Saver[T]) Set(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.latest = v
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.window, s.fire)
}

func (s *Saver[T]) fire() {
	s.mu.Lock()
	if s.closed || !s.loaded {
		s.timer = nil
		s.mu.Unlock()
		return
	}
	v := s.latest
	s.timer = nil
	s.mu.Unlock()

	s.commit(v)
}

// MarkLoaded clears the loading guard. Call it once the initial value
// has been loaded, whether the load succeeded or failed.
func (s *Saver[T]) MarkLoaded() {
	s.mu.Lock()
	s.loaded = true
	s.mu.Unlock()
}

// Cancel drops a pending commit without closing the saver.
func (s *Saver[T]) Cancel() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
}

// Flush commits a pending value immediately instead of waiting out the
// quiet period. No-op when nothing is pending or the initial load has
// not completed.
func (s *Saver[T]) Flush() {
	s.mu.Lock()
	if s.closed || !s.loaded || s.timer == nil {
		s.mu.Unlock()
		return
	}
	s.timer.Stop()
	s.timer = nil
	v := s.latest
	s.mu.Unlock()

	s.commit(v)
}

// Close cancels any pending commit and rejects further use.
func (s *Saver[T]) Close() {
	s.mu.Lock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
}
