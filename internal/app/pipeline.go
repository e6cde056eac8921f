package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ayusman/strand/internal/detector"
	"github.com/ayusman/strand/internal/display"
	"gocv.io/x/gocv"
)

// Run opens the source and processes frames until a stop request, context
// cancellation, or (under StopOnReadFailure) a failed read. The source is
// released and the display closed on every exit path.
//
// Loop logic:
// 1. Check for a stop request
// 2. Read one frame (blocking)
// 3. On read failure, stop or pause and retry depending on the policy
// 4. Detect, emit the signal, annotate and show the frame
// 5. Notify observers, poll the display for the stop key
// 6. Close the frame before the next read
func (a *App) Run(ctx context.Context) error {
	a.stats = Stats{}

	defer a.teardown()

	if err := a.config.Source.Open(); err != nil {
		return fmt.Errorf("open frame source: %w", err)
	}
	a.config.Source.SetResolution(a.config.Width, a.config.Height)

	a.logger.Info("detection loop started",
		slog.String("onReadFailure", a.config.OnReadFailure.String()),
	)

	for {
		if a.stopRequested(ctx) {
			return nil
		}

		frame, ok := a.config.Source.Read()
		if !ok {
			a.stats.ReadFailures++
			if a.config.OnReadFailure != RetryOnReadFailure {
				a.logger.Error("frame could not be read or the stream ended; stopping")
				return ErrSourceEnded
			}

			a.logger.Warn("frame unavailable, retrying", slog.Duration("delay", a.config.RetryDelay))
			a.pause(ctx, a.config.RetryDelay)
			continue
		}

		a.step(frame)
		frame.Close()

		if a.config.Display.StopRequested() {
			a.config.Stop.Request("stop key pressed")
		}
	}
}

// step runs one decision cycle on frame.
func (a *App) step(frame *gocv.Mat) {
	result, err := a.config.Detector.Detect(frame)
	if err != nil {
		a.stats.DetectErrors++
		a.logger.Error("detection failed", slog.Any("error", err))
		return
	}

	a.stats.Frames++
	switch result.Presence {
	case detector.Hair:
		a.stats.Hair++
	case detector.NoHair:
		a.stats.NoHair++
	}

	outcome := a.config.Emitter.Emit(result)
	if outcome.Sent {
		a.stats.Sent++
	}

	display.Annotate(frame, result)
	a.config.Display.Show(display.MainWindow, *frame)

	if len(a.config.Observers) == 0 {
		return
	}

	d := Decision{
		Session:   a.config.Session,
		Frame:     a.stats.Frames,
		Result:    result,
		Label:     display.Label(result),
		Outcome:   outcome,
		Timestamp: time.Now(),
	}
	for _, o := range a.config.Observers {
		o.Observe(d, *frame)
	}
}

func (a *App) stopRequested(ctx context.Context) bool {
	if err := ctx.Err(); err != nil {
		a.logger.Info("stop requested", slog.String("reason", "context "+err.Error()))
		return true
	}
	if a.config.Stop.Requested() {
		a.logger.Info("stop requested", slog.String("reason", a.config.Stop.Reason()))
		return true
	}
	return false
}

// displayPollInterval is how often the display is polled while pausing.
const displayPollInterval = 50 * time.Millisecond

// pause waits for d unless the loop is asked to stop first. The display is
// polled throughout so the window stays responsive and the stop key works.
func (a *App) pause(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	ticker := time.NewTicker(displayPollInterval)
	defer ticker.Stop()

	for {
		if a.config.Display.StopRequested() {
			a.config.Stop.Request("stop key pressed")
			return
		}

		select {
		case <-timer.C:
			return
		case <-ctx.Done():
			return
		case <-a.config.Stop.Done():
			return
		case <-ticker.C:
		}
	}
}

func (a *App) teardown() {
	if err := a.config.Source.Release(); err != nil {
		a.logger.Error("error releasing frame source", slog.Any("error", err))
	}
	if err := a.config.Display.Close(); err != nil {
		a.logger.Error("error closing display", slog.Any("error", err))
	}

	a.logger.Info("detection loop stopped",
		slog.Int("frames", a.stats.Frames),
		slog.Int("hair", a.stats.Hair),
		slog.Int("noHair", a.stats.NoHair),
		slog.Int("sent", a.stats.Sent),
		slog.Int("readFailures", a.stats.ReadFailures),
	)
}
