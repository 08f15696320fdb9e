package core

import (
	"sync"
)

// ResultStore holds the analyzed emails for the current run.
//
// The store is replaced wholesale by each run via Replace; readers only ever
// observe a complete snapshot, never a half-populated batch. Insertion order
// is preserved and there is at most one entry per mailbox identifier.
type ResultStore struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]*AnalyzedEmail
}

// NewResultStore creates an empty result store
func NewResultStore() *ResultStore {
	return &ResultStore{
		entries: make(map[string]*AnalyzedEmail),
	}
}

// Replace atomically swaps the store contents for a new run. Duplicate IDs
// keep their first-seen position; the later entry overwrites the value.
func (s *ResultStore) Replace(batch []*AnalyzedEmail) {
	order := make([]string, 0, len(batch))
	entries := make(map[string]*AnalyzedEmail, len(batch))

	for _, item := range batch {
		if item == nil {
			continue
		}
		if _, seen := entries[item.ID]; !seen {
			order = append(order, item.ID)
		}
		entries[item.ID] = item
	}

	s.mu.Lock()
	s.order = order
	s.entries = entries
	s.mu.Unlock()
}

// All returns every analyzed email in insertion order
func (s *ResultStore) All() []*AnalyzedEmail {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*AnalyzedEmail, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, s.entries[id])
	}
	return result
}

// Get returns the analyzed email for one mailbox identifier
func (s *ResultStore) Get(id string) (*AnalyzedEmail, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	return entry, ok
}

// Len returns the number of stored entries
func (s *ResultStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// FilterByTier returns the analyzed emails matching exactly the given tier,
// in insertion order
func (s *ResultStore) FilterByTier(tier Tier) []*AnalyzedEmail {
	return s.filter(func(e *AnalyzedEmail) bool {
		return e.Verdict != nil && e.Verdict.Tier == tier
	})
}

// FilterByDeadline returns the analyzed emails whose deadline-presence
// matches hasDeadline, in insertion order
func (s *ResultStore) FilterByDeadline(hasDeadline bool) []*AnalyzedEmail {
	return s.filter(func(e *AnalyzedEmail) bool {
		return e.Verdict != nil && e.Verdict.HasDeadline() == hasDeadline
	})
}

func (s *ResultStore) filter(keep func(*AnalyzedEmail) bool) []*AnalyzedEmail {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*AnalyzedEmail, 0, len(s.order))
	for _, id := range s.order {
		if entry := s.entries[id]; keep(entry) {
			result = append(result, entry)
		}
	}
	return result
}
