package notes

import (
	"context"
	"log"
	"sync"
	"time"

	"trip-planner/internal/debounce"
)

// DefaultSaveWindow is the quiet period between the last journal edit
// and the durable write.
const DefaultSaveWindow = 500 * time.Millisecond

// JournalSession is an open journal editor for one plan: edits are
// committed through the debounced saver, and saving stays suppressed
// until the initial load has completed so a slow load can never be
// clobbered by an empty draft.
type JournalSession struct {
	store  *Store
	planID string
	saver  *debounce.Saver[string]

	mu      sync.Mutex
	content string
	onSave  func()
}

// OpenJournal creates a session bound to ctx; cancelling ctx (or
// calling Close) drops any pending save. Call Load before editing.
func OpenJournal(ctx context.Context, store *Store, planID string, window time.Duration) *JournalSession {
	j := &JournalSession{store: store, planID: planID}
	j.saver = debounce.NewSaver(ctx, window, func(text string) {
		if err := store.SaveJournal(planID, text); err != nil {
			log.Printf("Failed to save journal for plan %s: %v", planID, err)
			return
		}
		j.mu.Lock()
		fn := j.onSave
		j.mu.Unlock()
		if fn != nil {
			fn()
		}
	})
	return j
}

// SetOnSave registers a callback invoked after each durable write.
// Edits coalesce, so the callback fires once per quiet period, not
// once per keystroke.
func (j *JournalSession) SetOnSave(fn func()) {
	j.mu.Lock()
	j.onSave = fn
	j.mu.Unlock()
}

// Load reads the stored journal into the session. The save guard is
// cleared whether or not the load succeeds.
func (j *JournalSession) Load() error {
	defer j.saver.MarkLoaded()

	text, err := j.store.Journal(j.planID)
	if err != nil {
		return err
	}

	j.mu.Lock()
	j.content = text
	j.mu.Unlock()
	return nil
}

// SetContent replaces the draft text and schedules a debounced save.
func (j *JournalSession) SetContent(text string) {
	j.mu.Lock()
	j.content = text
	j.mu.Unlock()
	j.saver.Set(text)
}

// Content returns the current draft text.
func (j *JournalSession) Content() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.content
}

// Flush writes a pending draft immediately.
func (j *JournalSession) Flush() {
	j.saver.Flush()
}

// Close cancels any pending save. A session closed before its quiet
// period elapses writes nothing.
func (j *JournalSession) Close() {
	j.saver.Close()
}
