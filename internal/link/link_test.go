package link

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/jacobsa/go-serial/serial"

	"github.com/ayusman/strand/internal/detector"
	"github.com/ayusman/strand/internal/logging"
)

// TestMapping_InvertedLabels pins the deployed contract. The labels read
// backwards relative to the presence names; this test documents that so a
// change to the firmware contract is a deliberate decision.
func TestMapping_InvertedLabels(t *testing.T) {
	tests := []struct {
		presence   detector.Presence
		wantLabel  string
		wantSignal Signal
	}{
		{detector.NoHair, "Hair detected", '1'},
		{detector.Hair, "No hair detected", '0'},
	}

	for _, tt := range tests {
		t.Run(tt.presence.String(), func(t *testing.T) {
			label, ok := LabelFor(tt.presence)
			if !ok || label != tt.wantLabel {
				t.Errorf("LabelFor(%v) = %q, %v; want %q", tt.presence, label, ok, tt.wantLabel)
			}
			sig, ok := SignalFor(tt.presence)
			if !ok || sig != tt.wantSignal {
				t.Errorf("SignalFor(%v) = %q, %v; want %q", tt.presence, sig, ok, tt.wantSignal)
			}
		})
	}
}

func TestMapping_Unknown(t *testing.T) {
	if _, ok := LabelFor(detector.Presence(9)); ok {
		t.Error("LabelFor(unknown) should not be ok")
	}
	if _, ok := SignalFor(detector.Presence(9)); ok {
		t.Error("SignalFor(unknown) should not be ok")
	}
}

func TestSignal_String(t *testing.T) {
	if SignalOne.String() != "1" || SignalZero.String() != "0" {
		t.Errorf("String() = %q/%q, want 1/0", SignalOne.String(), SignalZero.String())
	}
}

type closingBuffer struct {
	bytes.Buffer
	closed int
}

func (b *closingBuffer) Close() error {
	b.closed++
	return nil
}

type failingWriter struct{ err error }

func (f failingWriter) Write([]byte) (int, error) { return 0, f.err }

func TestLink_Emit(t *testing.T) {
	tests := []struct {
		name     string
		result   detector.Result
		want     string
		wantLog  string
		wantSent bool
	}{
		{
			name:     "no hair sends one",
			result:   detector.Result{Presence: detector.NoHair, Confidence: 0},
			want:     "1",
			wantLog:  "Hair detected",
			wantSent: true,
		},
		{
			name:     "hair sends zero",
			result:   detector.Result{Presence: detector.Hair, Confidence: 0.3},
			want:     "0",
			wantLog:  "No hair detected",
			wantSent: true,
		},
		{
			name:    "unknown presence writes nothing",
			result:  detector.Result{Presence: detector.Presence(42)},
			want:    "",
			wantLog: "unknown detection state",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			port := &closingBuffer{}
			l := NewLink(port, logging.NewWriter(&logs, logging.Options{Level: "debug"}))

			out := l.Emit(tt.result)

			if got := port.String(); got != tt.want {
				t.Errorf("written = %q, want %q", got, tt.want)
			}
			if out.Sent != tt.wantSent {
				t.Errorf("Sent = %v, want %v", out.Sent, tt.wantSent)
			}
			if !strings.Contains(logs.String(), tt.wantLog) {
				t.Errorf("logs missing %q: %s", tt.wantLog, logs.String())
			}
		})
	}
}

func TestLink_Emit_Sequence(t *testing.T) {
	port := &closingBuffer{}
	l := NewLink(port, logging.Discard())

	for _, p := range []detector.Presence{detector.NoHair, detector.Hair, detector.Hair, detector.NoHair} {
		l.Emit(detector.Result{Presence: p})
	}

	if got := port.String(); got != "1001" {
		t.Errorf("written = %q, want 1001", got)
	}
}

func TestLink_Emit_WriteFailure(t *testing.T) {
	var logs bytes.Buffer
	l := NewLink(failingWriter{err: errors.New("device disconnected")}, logging.NewWriter(&logs, logging.Options{}))

	out := l.Emit(detector.Result{Presence: detector.NoHair})

	if out.Sent {
		t.Error("Sent should be false when the write fails")
	}
	if !out.Mapped || out.Signal != SignalOne {
		t.Errorf("Outcome = %+v, want mapped signal '1'", out)
	}
	if !strings.Contains(logs.String(), "serial write failed") || !strings.Contains(logs.String(), "device disconnected") {
		t.Errorf("write failure not logged: %s", logs.String())
	}
}

func TestLink_Degraded(t *testing.T) {
	var logs bytes.Buffer
	l := NewLink(nil, logging.NewWriter(&logs, logging.Options{}))

	if l.IsOpen() {
		t.Error("IsOpen() should be false without a writer")
	}

	out := l.Emit(detector.Result{Presence: detector.Hair, Confidence: 0.2})
	if out.Sent {
		t.Error("degraded link should not report a send")
	}
	if out.Label != "No hair detected" {
		t.Errorf("Label = %q, want decision still labelled", out.Label)
	}
	if strings.Contains(logs.String(), "level=ERROR") {
		t.Errorf("degraded mode should not log write errors: %s", logs.String())
	}
}

func TestLink_Close(t *testing.T) {
	port := &closingBuffer{}
	l := NewLink(port, logging.Discard())

	if !l.IsOpen() {
		t.Fatal("IsOpen() should be true with a writer")
	}

	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if port.closed != 1 {
		t.Errorf("port closed %d times, want 1", port.closed)
	}

	l.Emit(detector.Result{Presence: detector.NoHair})
	if port.Len() != 0 {
		t.Errorf("Emit after Close wrote %q", port.String())
	}
}

func TestOpen_Errors(t *testing.T) {
	if _, err := Open(Options{}, logging.Discard()); err == nil {
		t.Error("Open() with empty port should fail")
	}

	if _, err := Open(Options{Port: "/dev/strand-does-not-exist"}, logging.Discard()); err == nil {
		t.Error("Open() on a missing device should fail")
	}
}

func TestOpen_SettleDelay(t *testing.T) {
	tests := []struct {
		name  string
		delay time.Duration
		want  []time.Duration
	}{
		{name: "zero uses default", delay: 0, want: []time.Duration{DefaultSettleDelay}},
		{name: "explicit", delay: 500 * time.Millisecond, want: []time.Duration{500 * time.Millisecond}},
		{name: "negative skips", delay: -1, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var slept []time.Duration
			var opened serial.OpenOptions
			port := &closingBuffer{}

			origOpen, origSleep := openPort, sleep
			t.Cleanup(func() { openPort, sleep = origOpen, origSleep })
			openPort = func(o serial.OpenOptions) (io.ReadWriteCloser, error) {
				opened = o
				return port, nil
			}
			sleep = func(d time.Duration) { slept = append(slept, d) }

			l, err := Open(Options{Port: "/dev/ttyACM0", SettleDelay: tt.delay}, logging.Discard())
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer l.Close()

			if len(slept) != len(tt.want) {
				t.Fatalf("slept %v, want %v", slept, tt.want)
			}
			for i := range tt.want {
				if slept[i] != tt.want[i] {
					t.Errorf("slept %v, want %v", slept, tt.want)
				}
			}
			if opened.BaudRate != DefaultBaudRate || opened.DataBits != 8 || opened.StopBits != 1 {
				t.Errorf("port options = %+v, want 9600 8N1", opened)
			}
			if l.Port() != "/dev/ttyACM0" || !l.IsOpen() {
				t.Errorf("Port() = %q, IsOpen() = %v", l.Port(), l.IsOpen())
			}
		})
	}
}

func TestLink_ClosedWriteIsSentinel(t *testing.T) {
	l := NewLink(nil, logging.Discard())

	if err := l.write(SignalOne); !errors.Is(err, ErrLinkClosed) {
		t.Errorf("write() error = %v, want ErrLinkClosed", err)
	}
}
