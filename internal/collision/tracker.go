// Package collision indexes header keywords by hash and detects hash collisions.
package collision

import (
	"github.com/arloliu/fitsimg/errs"
)

// Tracker maps keyword hashes to card positions. It keeps the keyword
// text next to each hash so that two keywords sharing a hash are detected.
// The first keyword tracked under a hash keeps resolving. Lookups of any
// later keyword with that hash report a miss, and callers fall back to a
// linear scan.
type Tracker struct {
	keywords     map[uint64]string // Hash → keyword for collision detection
	positions    map[uint64]int    // Hash → card position
	order        []string          // Keywords in the order they were tracked
	hasCollision bool              // Whether a collision has been detected
}

// NewTracker creates a new collision tracker.
func NewTracker() *Tracker {
	return &Tracker{
		keywords:  make(map[uint64]string),
		positions: make(map[uint64]int),
		order:     make([]string, 0),
	}
}

// Track records keyword with its hash at card position pos.
// Returns error if:
// - The keyword is empty (ErrInvalidKeyword)
// - The same keyword is tracked twice (ErrDuplicateKeyword)
//
// Note: Hash collisions (different keywords, same hash) are NOT errors here.
// The collision flag is set and the first keyword keeps the hash.
func (t *Tracker) Track(keyword string, hash uint64, pos int) error {
	if keyword == "" {
		return errs.ErrInvalidKeyword
	}

	if existing, exists := t.keywords[hash]; exists {
		if existing == keyword {
			return errs.ErrDuplicateKeyword
		}
		t.hasCollision = true
		t.order = append(t.order, keyword)

		return nil
	}

	t.keywords[hash] = keyword
	t.positions[hash] = pos
	t.order = append(t.order, keyword)

	return nil
}

// Lookup returns the card position of keyword. The second result is false
// when the keyword is unknown or another keyword was tracked first under
// its hash.
func (t *Tracker) Lookup(keyword string, hash uint64) (int, bool) {
	existing, ok := t.keywords[hash]
	if !ok || existing != keyword {
		return 0, false
	}

	return t.positions[hash], true
}

// HasCollision returns true if a collision has been detected.
func (t *Tracker) HasCollision() bool {
	return t.hasCollision
}

// Keywords returns the tracked keywords in tracking order.
func (t *Tracker) Keywords() []string {
	return t.order
}

// Count returns the number of tracked keywords.
func (t *Tracker) Count() int {
	return len(t.order)
}

// Reset clears all tracked keywords and collision state.
func (t *Tracker) Reset() {
	// Clear maps but preserve capacity to avoid allocations
	for k := range t.keywords {
		delete(t.keywords, k)
	}
	for k := range t.positions {
		delete(t.positions, k)
	}
	t.order = t.order[:0]
	t.hasCollision = false
}
