package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ayusman/strand/internal/capture"
	"github.com/ayusman/strand/internal/config"
	"github.com/ayusman/strand/internal/detector"
	"github.com/ayusman/strand/internal/display"
	"github.com/ayusman/strand/internal/link"
	"github.com/spf13/cobra"
)

// errNoFrame is returned by probe when the source produced nothing.
var errNoFrame = errors.New("no frame could be read from the source")

func newProbeCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Read one frame, print its edge density and decision, and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(cmd, *cfg)
		},
	}
}

func runProbe(cmd *cobra.Command, cfg config.Config) error {
	logger, logCloser := newLogger(cfg)
	defer logCloser.Close()

	profile, err := cfg.ResolveProfile()
	if err != nil {
		return err
	}

	src, err := capture.NewSource(cfg.Source, capture.Options{Timeout: profile.Timeout}, logger)
	if err != nil {
		return err
	}
	if err := src.Open(); err != nil {
		return err
	}
	defer src.Release()
	src.SetResolution(capture.DefaultWidth, capture.DefaultHeight)

	frame, ok := src.Read()
	if !ok {
		return errNoFrame
	}
	defer frame.Close()

	det, err := detector.NewEdgeDetector(profile.Detector, logger)
	if err != nil {
		return err
	}
	defer det.Close()

	result, err := det.Detect(frame)
	if err != nil {
		return err
	}

	label, _ := link.LabelFor(result.Presence)
	sig, _ := link.SignalFor(result.Presence)

	logger.Debug("probe finished", slog.String("profile", profile.Name))

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "frame:     %dx%d\n", frame.Cols(), frame.Rows())
	fmt.Fprintf(out, "profile:   %s (threshold %.3f)\n", profile.Name, profile.Detector.Threshold)
	fmt.Fprintf(out, "density:   %.5f\n", result.Confidence)
	fmt.Fprintf(out, "decision:  %s\n", display.Label(result))
	okBanner.Fprintf(out, "signal:    %s (%s)\n", sig, label)
	return nil
}
