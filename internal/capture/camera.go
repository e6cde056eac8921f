package capture

import (
	"log/slog"
	"sync"

	"gocv.io/x/gocv"
	"golang.org/x/xerrors"
)

// deviceSource manages video capture from a camera device using GoCV.
type deviceSource struct {
	deviceID int
	capture  *gocv.VideoCapture
	mu       sync.Mutex
	running  bool
	logger   *slog.Logger
}

// NewDevice creates a FrameSource for the given local device index.
func NewDevice(deviceID int, logger *slog.Logger) FrameSource {
	return &deviceSource{
		deviceID: deviceID,
		logger:   logger.With(slog.String("component", "capture"), slog.Int("device", deviceID)),
	}
}

// Open opens the camera for capturing frames.
func (c *deviceSource) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(c.deviceID)
	if err != nil {
		return xerrors.Errorf("open capture device %d: %w", c.deviceID, err)
	}

	c.capture = capture
	c.running = true

	c.logger.Info("capture device opened")
	return nil
}

// Release closes the camera and releases resources.
func (c *deviceSource) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	c.running = false

	return err
}

// Read reads a single frame from the camera. The device driver decides how
// long this blocks.
func (c *deviceSource) Read() (*gocv.Mat, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.logger.Error("read failed", slog.Any("error", ErrSourceNotOpen))
		return nil, false
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok {
		mat.Close()
		c.logger.Error("failed to read frame from camera")
		return nil, false
	}

	if mat.Empty() {
		mat.Close()
		c.logger.Error("captured frame is empty")
		return nil, false
	}

	return &mat, true
}

// SetResolution asks the driver for a capture size. The driver may pick the
// closest mode it supports.
func (c *deviceSource) SetResolution(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		c.logger.Warn("resolution not applied: device is not open")
		return
	}

	c.capture.Set(gocv.VideoCaptureFrameWidth, float64(width))
	c.capture.Set(gocv.VideoCaptureFrameHeight, float64(height))
	c.logger.Info("requested capture resolution", slog.Int("width", width), slog.Int("height", height))
}

// IsOpen returns true if the camera is currently open and running.
func (c *deviceSource) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}
