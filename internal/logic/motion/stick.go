package motion

import "sync"

// StickLatch holds the latest joystick state set by the operator surface.
type StickLatch struct {
	mu    sync.RWMutex
	stick Stick
}

// Set replaces the stick state.
func (s *StickLatch) Set(st Stick) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stick = st
}

// Get returns the stick state.
func (s *StickLatch) Get() Stick {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stick
}
