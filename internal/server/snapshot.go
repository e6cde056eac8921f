package server

import (
	"sync"
	"time"

	"github.com/ayusman/strand/internal/app"
)

// Status is the JSON form of one decision.
type Status struct {
	Session    string    `json:"session"`
	Frame      int       `json:"frame"`
	Presence   string    `json:"presence"`
	Confidence float64   `json:"confidence"`
	Label      string    `json:"label"`
	Signal     string    `json:"signal,omitempty"`
	Sent       bool      `json:"sent"`
	Timestamp  time.Time `json:"timestamp"`
}

func statusFrom(d app.Decision) Status {
	s := Status{
		Session:    d.Session,
		Frame:      d.Frame,
		Presence:   d.Result.Presence.String(),
		Confidence: d.Result.Confidence,
		Label:      d.Label,
		Sent:       d.Outcome.Sent,
		Timestamp:  d.Timestamp,
	}
	if d.Outcome.Mapped {
		s.Signal = d.Outcome.Signal.String()
	}
	return s
}

// Snapshot holds the most recent decision and its JPEG. Readers wait on
// Changed for the next update.
type Snapshot struct {
	mu      sync.RWMutex
	status  Status
	jpeg    []byte
	has     bool
	changed chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{changed: make(chan struct{}), done: make(chan struct{})}
}

// Update replaces the snapshot and wakes every waiter. A nil jpeg keeps
// the previous frame.
func (s *Snapshot) Update(status Status, jpeg []byte) {
	s.mu.Lock()
	s.status = status
	s.has = true
	if jpeg != nil {
		s.jpeg = jpeg
	}
	close(s.changed)
	s.changed = make(chan struct{})
	s.mu.Unlock()
}

// Status returns the last decision, if any.
func (s *Snapshot) Status() (Status, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status, s.has
}

// Frame returns the last JPEG and a channel closed on the next update.
// The returned slice is never modified.
func (s *Snapshot) Frame() ([]byte, <-chan struct{}) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jpeg, s.changed
}

// Close marks the snapshot finished; Done is closed and stream readers return.
func (s *Snapshot) Close() {
	s.once.Do(func() { close(s.done) })
}

// Done is closed by Close.
func (s *Snapshot) Done() <-chan struct{} {
	return s.done
}
