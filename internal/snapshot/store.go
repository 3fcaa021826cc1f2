// Package snapshot holds the single current enriched dataset. Replace
// and Current are atomic; readers never observe a half-written snapshot.
package snapshot

import (
	"sync/atomic"

	"github.com/frotaviva/trip-compliance/internal/core/model"
)

type Store struct {
	cur atomic.Pointer[model.Snapshot]
}

func NewStore() *Store {
	return &Store{}
}

// Replace installs snap as the current snapshot. The previous one is
// dropped; no history is kept. The last Replace to complete wins.
func (s *Store) Replace(snap model.Snapshot) {
	s.cur.Store(&snap)
}

// Current returns the current snapshot. ok is false until the first
// successful import.
func (s *Store) Current() (model.Snapshot, bool) {
	p := s.cur.Load()
	if p == nil {
		return model.Snapshot{}, false
	}
	return *p, true
}
