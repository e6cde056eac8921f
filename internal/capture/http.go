package capture

import (
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"gocv.io/x/gocv"
	"golang.org/x/xerrors"
)

// Upper bound on a snapshot body. ESP32-CAM UXGA JPEGs stay well under this.
const maxSnapshotBytes = 16 << 20

// httpSource fetches one encoded image per Read from a snapshot URL.
type httpSource struct {
	url      string
	timeout  time.Duration
	maxBytes int64
	client   *http.Client
	mu       sync.Mutex
	logger   *slog.Logger
}

// NewHTTP creates a FrameSource that issues one GET per Read against url.
func NewHTTP(url string, timeout time.Duration, logger *slog.Logger) FrameSource {
	return &httpSource{
		url:      url,
		timeout:  timeout,
		maxBytes: maxSnapshotBytes,
		logger:   logger.With(slog.String("component", "capture"), slog.String("url", url)),
	}
}

// Open creates the HTTP client. Reachability is only tested by Read.
func (s *httpSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return nil
	}

	s.client = &http.Client{
		Timeout: s.timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   s.timeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConnsPerHost: 1,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	s.logger.Info("capture session opened", slog.Duration("timeout", s.timeout))
	return nil
}

// Read performs a single GET and decodes the body. Any transport error,
// non-200 status or undecodable body yields (nil, false).
func (s *httpSource) Read() (*gocv.Mat, bool) {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()

	if client == nil {
		s.logger.Error("read failed", slog.Any("error", ErrSourceNotOpen))
		return nil, false
	}

	mat, err := s.fetch(client)
	if err != nil {
		s.logger.Error("capture request failed", slog.Any("error", err))
		return nil, false
	}
	return mat, true
}

func (s *httpSource) fetch(client *http.Client) (*gocv.Mat, error) {
	resp, err := client.Get(s.url)
	if err != nil {
		return nil, xerrors.Errorf("get snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, xerrors.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, xerrors.Errorf("read snapshot body: %w", err)
	}
	if int64(len(body)) > s.maxBytes {
		return nil, xerrors.Errorf("snapshot body exceeds %d bytes", s.maxBytes)
	}

	mat, err := gocv.IMDecode(body, gocv.IMReadColor)
	if err != nil {
		return nil, xerrors.Errorf("decode snapshot: %w", err)
	}
	if mat.Empty() {
		mat.Close()
		return nil, xerrors.Errorf("decode snapshot: %d bytes produced an empty image", len(body))
	}

	return &mat, nil
}

// Release drops pooled connections. Safe to call more than once.
func (s *httpSource) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}

	s.client.CloseIdleConnections()
	s.client = nil
	return nil
}

// SetResolution is ignored: the endpoint controls its own output size.
func (s *httpSource) SetResolution(width, height int) {
	s.logger.Debug("resolution request ignored for network source",
		slog.Int("width", width), slog.Int("height", height))
}

// IsOpen reports whether Open has been called without a matching Release.
func (s *httpSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.client != nil
}
