// Package observe holds single-value diagnostic slots such as the most
// recent webhook delivery or unlock attempt.
package observe

import "sync"

// Slot keeps the last value put into it. The zero value is empty and ready
// to use. Concurrent writers race and the last write wins.
type Slot[T any] struct {
	mu    sync.RWMutex
	value T
	set   bool
}

// NewSlot returns an empty slot.
func NewSlot[T any]() *Slot[T] {
	return &Slot[T]{}
}

// Put replaces the slot's value.
func (s *Slot[T]) Put(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = v
	s.set = true
}

// Last returns the most recent value and whether anything was ever put.
func (s *Slot[T]) Last() (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value, s.set
}
