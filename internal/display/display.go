// Package display shows annotated frames and debug masks, and polls the
// keyboard for the stop key.
package display

import (
	"fmt"
	"image"
	"image/color"

	"github.com/ayusman/strand/internal/detector"
	"gocv.io/x/gocv"
)

// MainWindow is the title of the annotated live view.
const MainWindow = "Hair Detection"

// StopKey ends the loop when pressed in any window.
const StopKey = 'q'

// Display is where the loop sends frames for a human to look at.
type Display interface {
	// Show renders m in the named view. m is only valid during the call.
	Show(name string, m gocv.Mat)
	// StopRequested polls for user input once and reports a stop request.
	StopRequested() bool
	// Close tears down every view. Safe to call more than once.
	Close() error
}

// Label returns the on-frame text for a result, e.g. "No Hair (0.00)".
func Label(result detector.Result) string {
	return fmt.Sprintf("%s (%.2f)", result.Presence, result.Confidence)
}

// Annotate draws the result label in the top-left corner of frame.
func Annotate(frame *gocv.Mat, result detector.Result) {
	gocv.PutText(frame, Label(result), image.Pt(10, 30),
		gocv.FontHersheySimplex, 1, color.RGBA{G: 255}, 2)
}

// Headless discards frames. Stop requests come from elsewhere.
type Headless struct{}

// Show does nothing.
func (Headless) Show(string, gocv.Mat) {}

// StopRequested always reports false.
func (Headless) StopRequested() bool { return false }

// Close does nothing.
func (Headless) Close() error { return nil }
