package capture

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockSource plays back pre-recorded frames for testing.
type MockSource struct {
	frames   []*gocv.Mat
	index    int
	loop     bool
	failures int
	reads    int
	releases int
	width    int
	height   int
	openErr  error
	mu       sync.Mutex
	running  bool
}

// NewMockSource plays frames in order. With loop set playback restarts
// after the last frame; otherwise reads fail once the frames run out.
func NewMockSource(frames []*gocv.Mat, loop bool) *MockSource {
	return &MockSource{
		frames: frames,
		loop:   loop,
	}
}

// Open starts playback from the first frame, or fails with the error set by SetOpenError.
func (c *MockSource) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.openErr != nil {
		return c.openErr
	}
	c.running = true
	c.index = 0
	return nil
}

// Release stops playback and counts the call.
func (c *MockSource) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	c.releases++
	return nil
}

// Read returns a clone of the next frame, which the caller must close.
func (c *MockSource) Read() (*gocv.Mat, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reads++

	if !c.running {
		return nil, false
	}

	if c.failures > 0 {
		c.failures--
		return nil, false
	}

	if len(c.frames) == 0 {
		return nil, false
	}

	if c.index >= len(c.frames) {
		if !c.loop {
			return nil, false
		}
		c.index = 0
	}

	// Clone the frame so the original isn't modified
	frame := c.frames[c.index].Clone()
	c.index++

	return &frame, true
}

// SetResolution records the requested size.
func (c *MockSource) SetResolution(width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.width, c.height = width, height
}

// IsOpen reports whether playback is running.
func (c *MockSource) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// FailNext makes the next n reads fail before playback resumes.
func (c *MockSource) FailNext(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = n
}

// SetOpenError makes Open fail with err.
func (c *MockSource) SetOpenError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openErr = err
}

// Reads returns the number of Read calls.
func (c *MockSource) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

// Releases returns the number of Release calls.
func (c *MockSource) Releases() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.releases
}

// Resolution returns the last requested resolution.
func (c *MockSource) Resolution() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width, c.height
}
