// Package tray provides a system tray menu for the strand hair detector.
package tray

import (
	"fmt"
	"sync"

	"github.com/ayusman/strand/internal/app"
	"github.com/getlantern/systray"
	"gocv.io/x/gocv"
)

// Tray shows the last decision and offers a Quit item.
type Tray struct {
	onQuit   func()
	onReady  func()
	last     string
	signal   string
	mu       sync.RWMutex
	quitTray func()
	started  bool

	// Menu items stored for later updates
	menuLast   *systray.MenuItem
	menuSignal *systray.MenuItem
}

// New creates a new Tray with no decision shown.
func New() *Tray {
	return &Tray{
		last:     "Last: none",
		signal:   "Signal: -",
		quitTray: systray.Quit,
	}
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// OnReady sets the callback run once the tray is up. The detection loop is
// usually started from here, since Run owns the calling goroutine.
func (t *Tray) OnReady(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onReady = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.ready, t.exit)
}

// Quit removes the tray icon and makes Run return.
func (t *Tray) Quit() {
	t.quitTray()
}

// ready is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) ready() {
	systray.SetTitle("strand")
	systray.SetTooltip("strand hair detector")

	t.mu.Lock()
	t.menuLast = systray.AddMenuItem(t.last, "Last decision")
	t.menuLast.Disable()
	t.menuSignal = systray.AddMenuItem(t.signal, "Last byte sent to the microcontroller")
	t.menuSignal.Disable()
	callback := t.onReady
	t.started = true
	t.mu.Unlock()

	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Stop detection and quit")

	go func() {
		<-menuQuit.ClickedCh
		t.handleQuit()
	}()

	if callback != nil {
		go callback()
	}
}

func (t *Tray) exit() {}

// Started reports whether the tray came up and ran the OnReady callback.
func (t *Tray) Started() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.started
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	t.Quit()
}

// Observe updates the menu with the latest decision.
func (t *Tray) Observe(d app.Decision, _ gocv.Mat) {
	last := "Last: " + d.Label
	if d.Outcome.Label != "" {
		last = fmt.Sprintf("Last: %s (%.2f)", d.Outcome.Label, d.Result.Confidence)
	}

	signal := "Signal: -"
	if d.Outcome.Mapped {
		signal = "Signal: " + d.Outcome.Signal.String()
		if !d.Outcome.Sent {
			signal += " (not sent)"
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if last != t.last && t.menuLast != nil {
		t.menuLast.SetTitle(last)
	}
	if signal != t.signal && t.menuSignal != nil {
		t.menuSignal.SetTitle(signal)
	}
	t.last, t.signal = last, signal
}

// Last returns the titles currently shown for the decision and signal.
func (t *Tray) Last() (decision, signal string) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last, t.signal
}
