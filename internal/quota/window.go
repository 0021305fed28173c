package quota

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// WindowSpan is the trailing span of the per-minute throttle.
const WindowSpan = time.Minute

// Window tracks per-user admission timestamps over a trailing duration.
// State is process-local and deliberately not persisted: a restart clears
// every window, which is acceptable for the soft per-minute throttle (the
// hard daily cap lives in the database).
type Window struct {
	mu     sync.Mutex
	span   time.Duration
	byUser map[uuid.UUID][]time.Time
}

// NewWindow creates a sliding window covering the given span.
func NewWindow(span time.Duration) *Window {
	return &Window{
		span:   span,
		byUser: make(map[uuid.UUID][]time.Time),
	}
}

// Count prunes entries older than now-span and returns how many remain.
// Unknown users start with an empty window.
func (w *Window) Count(userID uuid.UUID, now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	kept := w.prune(userID, now)
	return len(kept)
}

// Append records an admission at the given instant. Callers append only
// after the request has actually been admitted.
func (w *Window) Append(userID uuid.UUID, now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.byUser[userID] = append(w.prune(userID, now), now)
}

// Peek returns the in-window count without mutating stored state.
func (w *Window) Peek(userID uuid.UUID, now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := now.Add(-w.span)
	n := 0
	for _, ts := range w.byUser[userID] {
		if ts.After(cutoff) {
			n++
		}
	}
	return n
}

// prune drops expired timestamps for a user and returns the survivors.
// Caller must hold w.mu.
func (w *Window) prune(userID uuid.UUID, now time.Time) []time.Time {
	cutoff := now.Add(-w.span)
	entries := w.byUser[userID]

	// Timestamps are appended in order, so find the first live one.
	i := 0
	for i < len(entries) && !entries[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return entries
	}
	kept := entries[i:]
	if len(kept) == 0 {
		delete(w.byUser, userID)
		return nil
	}
	w.byUser[userID] = kept
	return kept
}
