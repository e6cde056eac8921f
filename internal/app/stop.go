package app

import "sync"

// StopSwitch is a one-shot latch for user stop requests. Any number of
// sources (keyboard, tray, HTTP, signals) may trip it; the loop checks it
// once per iteration.
type StopSwitch struct {
	once   sync.Once
	done   chan struct{}
	mu     sync.Mutex
	reason string
}

// NewStopSwitch creates an untripped switch.
func NewStopSwitch() *StopSwitch {
	return &StopSwitch{done: make(chan struct{})}
}

// Request trips the switch. Only the first reason is kept.
func (s *StopSwitch) Request(reason string) {
	s.once.Do(func() {
		s.mu.Lock()
		s.reason = reason
		s.mu.Unlock()
		close(s.done)
	})
}

// Requested reports whether the switch has been tripped. It never blocks.
func (s *StopSwitch) Requested() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Done is closed once the switch trips.
func (s *StopSwitch) Done() <-chan struct{} {
	return s.done
}

// Reason returns the first stop reason, or "" if not tripped.
func (s *StopSwitch) Reason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}
