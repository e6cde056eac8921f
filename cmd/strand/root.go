package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/ayusman/strand/internal/app"
	"github.com/ayusman/strand/internal/capture"
	"github.com/ayusman/strand/internal/config"
	"github.com/ayusman/strand/internal/detector"
	"github.com/ayusman/strand/internal/display"
	"github.com/ayusman/strand/internal/link"
	"github.com/ayusman/strand/internal/logging"
	"github.com/ayusman/strand/internal/server"
	"github.com/ayusman/strand/internal/tray"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// Version is the application version.
const Version = "0.1.0"

var (
	okBanner   = color.New(color.FgGreen, color.Bold)
	warnBanner = color.New(color.FgYellow, color.Bold)
)

func newRootCmd() *cobra.Command {
	cfg := config.Default()
	var envFile string

	root := &cobra.Command{
		Use:           "strand",
		Short:         "Edge-density hair detector with a serial signal output",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(envFile); err != nil {
				return err
			}
			// Flags win over the environment: re-apply only the flags
			// the user actually set on top of the env-derived values.
			fromEnv, err := config.Default().FromEnv(os.LookupEnv)
			if err != nil {
				return err
			}
			applyUnsetFlags(cmd, &cfg, fromEnv)
			return cfg.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetection(cmd.Context(), cfg)
		},
	}

	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	f := root.PersistentFlags()
	f.StringVar(&envFile, "env-file", ".env", "File of KEY=value lines loaded into the environment if present")
	f.StringVarP(&cfg.Source, "source", "s", cfg.Source, "Camera index (\"0\") or HTTP capture URL ($"+config.EnvSource+")")
	f.StringVar(&cfg.Profile, "profile", cfg.Profile, "Detector profile: core or prototype ($"+config.EnvProfile+")")
	f.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-request timeout for HTTP sources, 0 for the profile's ($"+config.EnvTimeout+")")
	f.StringVar(&cfg.OnReadFailure, "on-read-failure", cfg.OnReadFailure, "Override the profile's read failure policy: stop or retry ($"+config.EnvOnReadFailure+")")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error ($"+config.EnvLogLevel+")")
	f.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "text or json ($"+config.EnvLogFormat+")")
	f.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Also write logs to this rotating file ($"+config.EnvLogFile+")")

	rf := root.Flags()
	rf.StringVarP(&cfg.SerialPort, "serial-port", "p", cfg.SerialPort, "Serial port of the microcontroller ($"+config.EnvSerialPort+")")
	rf.UintVar(&cfg.Baud, "baud", cfg.Baud, "Serial baud rate ($"+config.EnvBaud+")")
	rf.BoolVar(&cfg.Window, "window", cfg.Window, "Show the annotated frame in a window; q stops ($"+config.EnvWindow+")")
	rf.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Show the edge, dilated and ROI masks ($"+config.EnvDebug+")")
	rf.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "Serve the preview API on this address, e.g. :8080 ($"+config.EnvHTTP+")")
	rf.StringVar(&cfg.StaticDir, "static-dir", cfg.StaticDir, "Directory served at / by the preview server ($"+config.EnvStaticDir+")")
	rf.BoolVar(&cfg.Tray, "tray", cfg.Tray, "Show a system tray menu with a Quit item ($"+config.EnvTray+")")

	root.AddCommand(newProbeCmd(&cfg))
	return root
}

// applyUnsetFlags copies env values into cfg for every flag left at its default.
func applyUnsetFlags(cmd *cobra.Command, cfg *config.Config, env config.Config) {
	set := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}

	if !set("source") {
		cfg.Source = env.Source
	}
	if !set("serial-port") {
		cfg.SerialPort = env.SerialPort
	}
	if !set("baud") {
		cfg.Baud = env.Baud
	}
	if !set("profile") {
		cfg.Profile = env.Profile
	}
	if !set("timeout") {
		cfg.Timeout = env.Timeout
	}
	if !set("on-read-failure") {
		cfg.OnReadFailure = env.OnReadFailure
	}
	if !set("window") {
		cfg.Window = env.Window
	}
	if !set("debug") {
		cfg.Debug = env.Debug
	}
	if !set("http") {
		cfg.HTTPAddr = env.HTTPAddr
	}
	if !set("static-dir") {
		cfg.StaticDir = env.StaticDir
	}
	if !set("tray") {
		cfg.Tray = env.Tray
	}
	if !set("log-level") {
		cfg.LogLevel = env.LogLevel
	}
	if !set("log-format") {
		cfg.LogFormat = env.LogFormat
	}
	if !set("log-file") {
		cfg.LogFile = env.LogFile
	}
}

func newLogger(cfg config.Config) (*slog.Logger, io.Closer) {
	return logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
}

func runDetection(ctx context.Context, cfg config.Config) error {
	logger, logCloser := newLogger(cfg)
	defer logCloser.Close()

	session := uuid.NewString()
	logger = logger.With(slog.String("session", session))

	profile, err := cfg.ResolveProfile()
	if err != nil {
		return err
	}

	src, err := capture.NewSource(cfg.Source, capture.Options{Timeout: profile.Timeout}, logger)
	if err != nil {
		return err
	}

	det, err := detector.NewEdgeDetector(profile.Detector, logger)
	if err != nil {
		return err
	}
	defer det.Close()

	lnk := openLink(cfg, logger)
	defer lnk.Close()

	stop := app.NewStopSwitch()
	appConfig := app.Config{
		Source:        src,
		Detector:      det,
		Emitter:       lnk,
		Stop:          stop,
		Logger:        logger,
		OnReadFailure: profile.OnReadFailure,
		RetryDelay:    profile.RetryDelay,
		Session:       session,
	}

	if cfg.Tray && cfg.Window {
		logger.Warn("window display disabled while the tray owns the main thread")
		cfg.Window = false
	}
	if cfg.Window {
		win := display.NewWindow(cfg.Debug)
		if cfg.Debug {
			det.SetInspector(win)
		}
		appConfig.Display = win
	}

	if cfg.HTTPAddr != "" {
		srv := server.New(server.Config{StaticDir: cfg.StaticDir, Stop: stop, Logger: logger})
		appConfig.Observers = append(appConfig.Observers, srv)
		go func() {
			if err := srv.ListenAndServe(ctx, cfg.HTTPAddr); err != nil {
				logger.Error("preview server failed", slog.Any("error", err))
			}
		}()
	}

	var t *tray.Tray
	if cfg.Tray {
		t = tray.New()
		t.OnQuit(func() { stop.Request("tray quit") })
		appConfig.Observers = append(appConfig.Observers, t)
	}

	a := app.New(appConfig)

	logger.Info("starting detection",
		slog.String("source", cfg.Source),
		slog.String("profile", profile.Name),
		slog.Duration("timeout", profile.Timeout),
	)

	if t == nil {
		return finish(a.Run(ctx))
	}

	return finish(runWithTray(t, stop, func() error { return a.Run(ctx) }))
}

// trayRunner is the part of the tray the run hand-off needs.
type trayRunner interface {
	OnReady(fn func())
	Run()
	Quit()
	Started() bool
}

// runWithTray gives the main goroutine to the tray and runs the loop from
// its ready callback. If the tray never comes up the loop never starts.
func runWithTray(t trayRunner, stop *app.StopSwitch, run func() error) error {
	done := make(chan error, 1)
	t.OnReady(func() {
		done <- run()
		t.Quit()
	})
	t.Run()

	if !t.Started() {
		return nil
	}

	select {
	case err := <-done:
		return err
	default:
		// Tray exited before the loop; stop it and wait.
		stop.Request("tray exited")
		return <-done
	}
}

// finish maps the end-of-stream condition to a clean exit.
func finish(err error) error {
	if errors.Is(err, app.ErrSourceEnded) {
		warnBanner.Fprintln(os.Stderr, "Frame source ended; detection stopped.")
		return nil
	}
	return err
}

// openLink opens the serial port or falls back to a link that only logs.
func openLink(cfg config.Config, logger *slog.Logger) *link.Link {
	if cfg.SerialPort == "" {
		warnBanner.Fprintln(os.Stderr, "No serial port configured; continuing without serial output.")
		return link.NewLink(nil, logger)
	}

	lnk, err := link.Open(link.Options{Port: cfg.SerialPort, BaudRate: cfg.Baud}, logger)
	if err != nil {
		warnBanner.Fprintf(os.Stderr, "Could not connect to the microcontroller: %v\n", err)
		warnBanner.Fprintln(os.Stderr, "Continuing without serial output. Check the cable and --serial-port.")
		return link.NewLink(nil, logger)
	}

	okBanner.Fprintf(os.Stderr, "Connected to %s at %d baud.\n", cfg.SerialPort, cfg.Baud)
	return lnk
}
