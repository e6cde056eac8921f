// Package app provides the detection loop for the strand hair detector.
package app

import (
	"errors"
	"log/slog"
	"time"

	"github.com/ayusman/strand/internal/capture"
	"github.com/ayusman/strand/internal/detector"
	"github.com/ayusman/strand/internal/display"
	"github.com/ayusman/strand/internal/link"
	"gocv.io/x/gocv"
)

// ErrSourceEnded is returned by Run when a read fails under StopOnReadFailure.
var ErrSourceEnded = errors.New("frame could not be read or the stream ended")

// Emitter sends the signal for one decision.
type Emitter interface {
	Emit(result detector.Result) link.Outcome
}

// Decision is everything the loop knows about one processed frame.
type Decision struct {
	Session   string
	Frame     int
	Result    detector.Result
	Label     string
	Outcome   link.Outcome
	Timestamp time.Time
}

// Observer is notified after every decision. The annotated frame is only
// valid during the call and must not be retained.
type Observer interface {
	Observe(d Decision, annotated gocv.Mat)
}

// Config holds the collaborators and settings of the loop.
type Config struct {
	Source   capture.FrameSource
	Detector detector.Detector
	Emitter  Emitter
	Display  display.Display
	Stop     *StopSwitch
	Logger   *slog.Logger

	Observers []Observer

	OnReadFailure ReadFailurePolicy
	RetryDelay    time.Duration

	// Width and Height are requested from the source before the first read.
	Width  int
	Height int

	// Session tags log lines and decisions for this run.
	Session string
}

// Stats summarises a finished run.
type Stats struct {
	Frames       int
	Hair         int
	NoHair       int
	Sent         int
	ReadFailures int
	DetectErrors int
}

// App is the detection loop: read one frame, classify it, signal, display,
// repeat. It runs on the caller's goroutine and owns the source and display
// for its lifetime.
type App struct {
	config Config
	logger *slog.Logger
	stats  Stats
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	if config.Display == nil {
		config.Display = display.Headless{}
	}
	if config.Stop == nil {
		config.Stop = NewStopSwitch()
	}
	if config.Width <= 0 || config.Height <= 0 {
		config.Width, config.Height = capture.DefaultWidth, capture.DefaultHeight
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = DefaultRetryDelay
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.Session != "" {
		logger = logger.With(slog.String("session", config.Session))
	}

	return &App{
		config: config,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Stop requests the loop to end at the start of its next iteration.
func (a *App) Stop(reason string) {
	a.config.Stop.Request(reason)
}

// Stats returns the counters of the last run.
func (a *App) Stats() Stats {
	return a.stats
}
