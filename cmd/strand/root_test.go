package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/strand/internal/app"
	"github.com/ayusman/strand/internal/config"
	"github.com/ayusman/strand/internal/testframes"
)

func TestApplyUnsetFlags(t *testing.T) {
	cmd := newRootCmd()
	if err := cmd.ParseFlags([]string{"--source", "2", "--baud", "19200"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}

	cfg := config.Default()
	cfg.Source = "2"
	cfg.Baud = 19200

	env := config.Default()
	env.Source = "http://cam.local/capture"
	env.Baud = 115200
	env.Profile = "prototype"
	env.Tray = true

	applyUnsetFlags(cmd, &cfg, env)

	if cfg.Source != "2" || cfg.Baud != 19200 {
		t.Errorf("flags set on the command line should win, got source=%q baud=%d", cfg.Source, cfg.Baud)
	}
	if cfg.Profile != "prototype" || !cfg.Tray {
		t.Errorf("unset flags should take env values, got profile=%q tray=%v", cfg.Profile, cfg.Tray)
	}
}

func TestProbe(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping gocv test in short mode")
	}

	blank := testframes.Blank(testframes.Rows, testframes.Cols)
	defer blank.Close()
	shot, err := testframes.JPEG(blank)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	cam := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(shot)
	}))
	defer cam.Close()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{
		"probe",
		"--source", cam.URL + "/capture",
		"--env-file", filepath.Join(t.TempDir(), "missing.env"),
		"--log-level", "error",
	})

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("probe error = %v", err)
	}

	got := out.String()
	for _, want := range []string{"frame:     640x480", "density:   0.00000", "decision:  No Hair (0.00)", "signal:    1 (Hair detected)"} {
		if !strings.Contains(got, want) {
			t.Errorf("probe output missing %q:\n%s", want, got)
		}
	}
}

func TestProbe_UnreachableSource(t *testing.T) {
	cam := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer cam.Close()

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{
		"probe",
		"--source", cam.URL,
		"--env-file", filepath.Join(t.TempDir(), "missing.env"),
		"--log-level", "error",
	})

	if err := cmd.ExecuteContext(context.Background()); err != errNoFrame {
		t.Errorf("probe error = %v, want errNoFrame", err)
	}
}

func TestRoot_RejectsInvalidConfig(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"probe", "--profile", "ml", "--env-file", filepath.Join(t.TempDir(), "missing.env")})

	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Error("expected an error for an unknown profile")
	}
}

// fakeTray mimics systray: Run blocks until Quit unless it exits on its own.
type fakeTray struct {
	comesUp  bool
	exitsNow bool
	ready    func()
	started  bool
	quit     chan struct{}
	quitOnce sync.Once
}

func newFakeTray(comesUp, exitsNow bool) *fakeTray {
	return &fakeTray{comesUp: comesUp, exitsNow: exitsNow, quit: make(chan struct{})}
}

func (f *fakeTray) OnReady(fn func()) { f.ready = fn }
func (f *fakeTray) Started() bool     { return f.started }
func (f *fakeTray) Quit()             { f.quitOnce.Do(func() { close(f.quit) }) }

func (f *fakeTray) Run() {
	if !f.comesUp {
		return
	}
	f.started = true
	go f.ready()
	if f.exitsNow {
		return
	}
	<-f.quit
}

func TestRunWithTray(t *testing.T) {
	errLoop := errors.New("loop failed")

	t.Run("tray never comes up", func(t *testing.T) {
		called := false
		err := runWithTray(newFakeTray(false, false), app.NewStopSwitch(), func() error {
			called = true
			return nil
		})
		if err != nil {
			t.Errorf("runWithTray() error = %v, want nil", err)
		}
		if called {
			t.Error("loop should not run without a tray")
		}
	})

	t.Run("loop result is returned", func(t *testing.T) {
		err := runWithTray(newFakeTray(true, false), app.NewStopSwitch(), func() error {
			return errLoop
		})
		if !errors.Is(err, errLoop) {
			t.Errorf("runWithTray() error = %v, want %v", err, errLoop)
		}
	})

	t.Run("tray exit stops the loop", func(t *testing.T) {
		stop := app.NewStopSwitch()
		done := make(chan error, 1)
		go func() {
			done <- runWithTray(newFakeTray(true, true), stop, func() error {
				<-stop.Done()
				return nil
			})
		}()

		select {
		case err := <-done:
			if err != nil {
				t.Errorf("runWithTray() error = %v, want nil", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("runWithTray() did not return after the tray exited")
		}
		if stop.Reason() != "tray exited" {
			t.Errorf("stop reason = %q, want tray exited", stop.Reason())
		}
	})
}
