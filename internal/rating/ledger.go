package rating

import (
	"sort"
	"sync"
)

// Entry pairs a staff id with its claim counter.
type Entry struct {
	StaffID string
	Count   int
}

// Ledger counts successful ticket claims per staff identity. Counters only
// ever increase, by one per claim.
type Ledger struct {
	mu     sync.Mutex
	counts map[string]int
	// order tracks first-discovery order of staff ids so that TopN ties
	// break deterministically.
	order []string
}

// NewLedger creates a ledger seeded from a persisted snapshot. Seed entries
// are discovered in sorted key order so restarts keep a stable tiebreak.
func NewLedger(seed map[string]int) *Ledger {
	ledger := &Ledger{counts: make(map[string]int, len(seed))}
	keys := make([]string, 0, len(seed))
	for staffID := range seed {
		keys = append(keys, staffID)
	}
	sort.Strings(keys)
	for _, staffID := range keys {
		if seed[staffID] < 0 {
			continue
		}
		ledger.counts[staffID] = seed[staffID]
		ledger.order = append(ledger.order, staffID)
	}
	return ledger
}

// Increment adds one to the counter for staffID, starting from zero for
// unseen identities. Returns the new value.
func (l *Ledger) Increment(staffID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, seen := l.counts[staffID]; !seen {
		l.order = append(l.order, staffID)
	}
	l.counts[staffID]++
	return l.counts[staffID]
}

// Get returns the counter for staffID, zero if absent.
func (l *Ledger) Get(staffID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[staffID]
}

// TopN returns up to n entries ordered by count descending. Ties keep
// discovery order (stable sort).
func (l *Ledger) TopN(n int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := make([]Entry, 0, len(l.order))
	for _, staffID := range l.order {
		entries = append(entries, Entry{StaffID: staffID, Count: l.counts[staffID]})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})
	if n >= 0 && n < len(entries) {
		entries = entries[:n]
	}
	return entries
}

// Export returns a copy of all counters for persistence.
func (l *Ledger) Export() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]int, len(l.counts))
	for staffID, count := range l.counts {
		out[staffID] = count
	}
	return out
}
