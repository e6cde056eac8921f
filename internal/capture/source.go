// Package capture provides single-frame acquisition from a local capture
// device or an HTTP snapshot endpoint using GoCV (OpenCV).
package capture

import (
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gocv.io/x/gocv"
	"golang.org/x/xerrors"
)

// Default capture settings
const (
	DefaultWidth   = 640
	DefaultHeight  = 480
	DefaultTimeout = 5 * time.Second
)

var (
	// ErrSourceNotOpen is returned when using a source that has not been opened.
	ErrSourceNotOpen = xerrors.New("frame source is not open")
	// ErrUnsupportedSource is returned for an address that is neither a device index nor an HTTP URL.
	ErrUnsupportedSource = xerrors.New("unsupported frame source address")
)

// FrameSource acquires one frame per Read call.
type FrameSource interface {
	// Open establishes the acquisition channel.
	Open() error
	// Read blocks until one frame is available. On any failure it returns
	// (nil, false). The caller owns and must close the returned Mat.
	Read() (*gocv.Mat, bool)
	// Release tears the channel down. Safe to call more than once.
	Release() error
	// SetResolution requests a capture size. Sources that do not control
	// their output size ignore it.
	SetResolution(width, height int)
	// IsOpen reports whether the source is open.
	IsOpen() bool
}

// Options configures source construction.
type Options struct {
	// Timeout bounds each network request. Zero means DefaultTimeout.
	Timeout time.Duration
}

// NewSource picks the variant from the address: a non-negative integer is a
// local device index, an http(s) URL is a snapshot endpoint.
func NewSource(addr string, opts Options, logger *slog.Logger) (FrameSource, error) {
	addr = strings.TrimSpace(addr)

	if id, err := strconv.Atoi(addr); err == nil {
		if id < 0 {
			return nil, xerrors.Errorf("device index %d: %w", id, ErrUnsupportedSource)
		}
		return NewDevice(id, logger), nil
	}

	u, err := url.Parse(addr)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, xerrors.Errorf("%q: %w", addr, ErrUnsupportedSource)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return NewHTTP(u.String(), timeout, logger), nil
}
