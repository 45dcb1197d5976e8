package usage

import "sync"

// Tracker is an append-only ledger of (original, source) references.
// All methods are goroutine-safe.
type Tracker struct {
	mu     sync.Mutex
	order  []string            // originals in first-seen order
	usedBy map[string][]string // original -> source ids in first-seen order
	seen   map[[2]string]struct{}
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		usedBy: make(map[string][]string),
		seen:   make(map[[2]string]struct{}),
	}
}

// RecordUsage notes that sourceID references original. Repeated pairs are ignored.
func (t *Tracker) RecordUsage(original, sourceID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := [2]string{original, sourceID}
	if _, ok := t.seen[key]; ok {
		return
	}
	t.seen[key] = struct{}{}

	if _, ok := t.usedBy[original]; !ok {
		t.order = append(t.order, original)
	}
	t.usedBy[original] = append(t.usedBy[original], sourceID)
}

// UsedBy returns a copy of the sources referencing original.
func (t *Tracker) UsedBy(original string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.usedBy[original]...)
}

// Originals returns every tracked original in first-seen order.
func (t *Tracker) Originals() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.order...)
}

// Snapshot returns a deep copy of the ledger.
func (t *Tracker) Snapshot() map[string][]string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string][]string, len(t.usedBy))
	for orig, ids := range t.usedBy {
		out[orig] = append([]string(nil), ids...)
	}
	return out
}
