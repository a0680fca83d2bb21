// Package reference holds the answer key currently used for grading.
package reference

import (
	"sync/atomic"

	"aigrader/internal/model"
)

// Store holds a single active answer key. Set replaces it with one atomic
// pointer swap, so concurrent readers see either the old or the new key and
// never a partial value. Keys live in memory only and are lost on restart.
type Store struct {
	current atomic.Pointer[model.AnswerKey]
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Set replaces the active answer key. The previous key is discarded.
func (s *Store) Set(key model.AnswerKey) {
	s.current.Store(&key)
}

// Get returns a copy of the active answer key and whether one has been set.
func (s *Store) Get() (model.AnswerKey, bool) {
	k := s.current.Load()
	if k == nil {
		return model.AnswerKey{}, false
	}
	return *k, true
}
