package link

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ayusman/strand/internal/detector"
	"github.com/jacobsa/go-serial/serial"
	"golang.org/x/xerrors"
)

// DefaultBaudRate matches the microcontroller sketch.
const DefaultBaudRate = 9600

// DefaultSettleDelay is how long to wait after opening the port. Opening the
// port resets most Arduino boards, and bytes sent during the bootloader are lost.
const DefaultSettleDelay = 2 * time.Second

// ErrLinkClosed is reported when a signal is emitted without an open channel.
var ErrLinkClosed = xerrors.New("signal link is not open")

// Replaced in tests.
var (
	openPort = func(o serial.OpenOptions) (io.ReadWriteCloser, error) { return serial.Open(o) }
	sleep    = time.Sleep
)

// Options configures the serial port.
type Options struct {
	Port     string
	BaudRate uint
	// SettleDelay is the wait after opening. Zero means DefaultSettleDelay,
	// a negative value skips the wait.
	SettleDelay time.Duration
}

func (o Options) settleDelay() time.Duration {
	switch {
	case o.SettleDelay < 0:
		return 0
	case o.SettleDelay == 0:
		return DefaultSettleDelay
	default:
		return o.SettleDelay
	}
}

// Outcome describes what Emit did for one decision.
type Outcome struct {
	Label  string
	Signal Signal
	// Mapped is false when the presence had no table entry.
	Mapped bool
	// Sent is true when the byte was written successfully.
	Sent bool
}

// Link writes one signal byte per decision. A Link without a writer runs in
// degraded mode: decisions are still logged but nothing is sent.
type Link struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	port   string
	logger *slog.Logger
}

// NewLink wraps w. A nil w yields a degraded link.
func NewLink(w io.Writer, logger *slog.Logger) *Link {
	l := &Link{
		w:      w,
		logger: logger.With(slog.String("component", "link")),
	}
	if c, ok := w.(io.Closer); ok {
		l.closer = c
	}
	return l
}

// Open opens the serial port (8N1) and waits for the board to settle.
func Open(opts Options, logger *slog.Logger) (*Link, error) {
	if opts.Port == "" {
		return nil, xerrors.New("serial port name is empty")
	}
	baud := opts.BaudRate
	if baud == 0 {
		baud = DefaultBaudRate
	}

	port, err := openPort(serial.OpenOptions{
		PortName:        opts.Port,
		BaudRate:        baud,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
	})
	if err != nil {
		return nil, xerrors.Errorf("open serial port %s: %w", opts.Port, err)
	}

	if d := opts.settleDelay(); d > 0 {
		sleep(d)
	}

	l := NewLink(port, logger)
	l.port = opts.Port
	l.logger = l.logger.With(slog.String("port", opts.Port))
	l.logger.Info("serial link opened", slog.Uint64("baud", uint64(baud)))
	return l, nil
}

// IsOpen reports whether signals will be written.
func (l *Link) IsOpen() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w != nil
}

// Port returns the serial port name, or "" for links not opened by Open.
func (l *Link) Port() string {
	return l.port
}

// Emit logs the decision label and writes the mapped byte when the link is
// open. Write failures are logged and reported in the Outcome, never returned.
func (l *Link) Emit(result detector.Result) Outcome {
	label, okLabel := LabelFor(result.Presence)
	sig, okSig := SignalFor(result.Presence)
	if !okLabel || !okSig {
		l.logger.Warn("unknown detection state",
			slog.String("presence", result.Presence.String()),
			slog.Float64("confidence", result.Confidence),
		)
		return Outcome{}
	}

	l.logger.Info(label, slog.Float64("confidence", result.Confidence))

	out := Outcome{Label: label, Signal: sig, Mapped: true}
	if err := l.write(sig); err != nil {
		if !errors.Is(err, ErrLinkClosed) {
			l.logger.Error("serial write failed", slog.String("signal", sig.String()), slog.Any("error", err))
		}
		return out
	}

	out.Sent = true
	l.logger.Info("sent signal", slog.String("signal", sig.String()), slog.String("label", label))
	return out
}

func (l *Link) write(sig Signal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.w == nil {
		return ErrLinkClosed
	}

	n, err := l.w.Write([]byte{byte(sig)})
	if err != nil {
		return err
	}
	if n != 1 {
		return io.ErrShortWrite
	}
	return nil
}

// Close closes the underlying port. Safe to call more than once.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.w = nil
	if l.closer == nil {
		return nil
	}

	err := l.closer.Close()
	l.closer = nil
	if err == nil {
		l.logger.Info("serial link closed")
	}
	return err
}
