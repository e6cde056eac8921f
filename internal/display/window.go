package display

import (
	"sync"

	"gocv.io/x/gocv"
)

// Window shows frames in native OpenCV windows, one per view name.
type Window struct {
	mu      sync.Mutex
	windows map[string]*gocv.Window
	order   []string
	debug   bool
}

// NewWindow creates a window display. With debug set it also acts as a
// detector.Inspector and shows the intermediate masks.
func NewWindow(debug bool) *Window {
	return &Window{
		windows: make(map[string]*gocv.Window),
		debug:   debug,
	}
}

// Show renders m in the named window, creating it on first use.
func (w *Window) Show(name string, m gocv.Mat) {
	if m.Empty() {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	win, ok := w.windows[name]
	if !ok {
		win = gocv.NewWindow(name)
		w.windows[name] = win
		w.order = append(w.order, name)
	}
	win.IMShow(m)
}

// Inspect implements detector.Inspector. Masks are only shown in debug mode.
func (w *Window) Inspect(stage string, mask gocv.Mat) {
	if w.debug {
		w.Show(stage, mask)
	}
}

// StopRequested pumps the GUI event loop for 1ms and checks for StopKey.
func (w *Window) StopRequested() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.order) == 0 {
		return false
	}
	key := w.windows[w.order[0]].WaitKey(1)
	return key >= 0 && key&0xFF == StopKey
}

// Close destroys every window.
func (w *Window) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var firstErr error
	for _, name := range w.order {
		if err := w.windows[name].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	w.windows = make(map[string]*gocv.Window)
	w.order = nil
	return firstErr
}
