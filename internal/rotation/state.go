package rotation

import (
	"sync"
	"time"
)

// State tracks which slot is loaded. The Scheduler is the only writer of
// the slot pointers; the Listener reads them concurrently.
type State struct {
	mu       sync.Mutex
	active   string
	previous string
	lastSwap time.Time
	// finalConsumed latches once the last remaining slot was activated.
	finalConsumed bool
}

// Active returns the loaded slot, or "" before the first activation.
func (s *State) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Previous returns the slot loaded before the active one.
func (s *State) Previous() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.previous
}

// LastSwap returns the time of the most recent activation.
func (s *State) LastSwap() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSwap
}

// snapshot returns the active slot and the time it was loaded, read
// together so a concurrent activation can't pair one slot with another's
// swap time.
func (s *State) snapshot() (string, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, s.lastSwap
}

// FinalConsumed reports whether the last remaining slot was activated.
func (s *State) FinalConsumed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalConsumed
}

// consumeFinal sets the final slot latch and reports whether this call
// set it.
func (s *State) consumeFinal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalConsumed {
		return false
	}
	s.finalConsumed = true
	return true
}

func (s *State) activate(slot string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previous = s.active
	s.active = slot
	s.lastSwap = at
}

func (s *State) touch(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSwap = at
}
