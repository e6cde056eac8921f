package detector

import (
	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	results []Result
	err     error
	calls   int
	closed  bool
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetResults sets the results returned by successive Detect calls.
// The last result repeats once the sequence is exhausted.
func (m *MockDetector) SetResults(results ...Result) {
	m.results = results
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Detect returns the pre-configured result or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (Result, error) {
	m.calls++
	if m.err != nil {
		return Result{}, m.err
	}
	if len(m.results) == 0 {
		return Result{Presence: NoHair}, nil
	}

	idx := m.calls - 1
	if idx >= len(m.results) {
		idx = len(m.results) - 1
	}
	return m.results[idx], nil
}

// Calls returns how many times Detect was invoked.
func (m *MockDetector) Calls() int {
	return m.calls
}

// Closed reports whether Close was called.
func (m *MockDetector) Closed() bool {
	return m.closed
}

// Close marks the mock as closed.
func (m *MockDetector) Close() error {
	m.closed = true
	return nil
}
