// Package detector turns a camera frame into a hair / no-hair decision using
// edge density over the centre of the frame.
package detector

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// ErrEmptyFrame is returned when a nil or empty frame is passed for analysis.
var ErrEmptyFrame = errors.New("frame is empty")

// Presence is the two-valued classification outcome.
type Presence int

const (
	// NoHair means the edge density did not exceed the threshold.
	NoHair Presence = iota
	// Hair means the edge density exceeded the threshold.
	Hair
)

// String returns the display name used in the on-frame label.
func (p Presence) String() string {
	switch p {
	case Hair:
		return "Hair"
	case NoHair:
		return "No Hair"
	default:
		return fmt.Sprintf("Presence(%d)", int(p))
	}
}

// Result is the outcome of analysing one frame.
// Confidence is the raw edge-density ratio that drove the decision, not a probability.
type Result struct {
	Presence   Presence
	Confidence float64
}

// Detector defines the interface for hair detection implementations.
type Detector interface {
	// Detect analyzes a single frame. The frame is not modified or retained.
	Detect(frame *gocv.Mat) (Result, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds the parameters of the edge-density pipeline.
type Config struct {
	// Threshold is the density above which a frame is classified as Hair.
	Threshold float64

	// BlurSize is the square Gaussian kernel size. 0 disables smoothing.
	BlurSize int

	// CannyLow and CannyHigh are the gradient hysteresis thresholds.
	CannyLow  float32
	CannyHigh float32

	// DilateSize is the square rectangular structuring element size. 0 disables dilation.
	DilateSize int

	// DilateIterations is the number of dilation passes (default 1).
	DilateIterations int

	// ROIDivisor selects the centred region: rows [h/d, (d-1)h/d) and
	// columns [w/d, (d-1)w/d). 4 keeps the middle half; 0 keeps the whole frame.
	ROIDivisor int
}

// CoreConfig is the per-frame detector used by the polling loop.
func CoreConfig() Config {
	return Config{
		Threshold:        0.01,
		BlurSize:         3,
		CannyLow:         30,
		CannyHigh:        80,
		DilateSize:       2,
		DilateIterations: 1,
		ROIDivisor:       4,
	}
}

// PrototypeConfig is the standalone URL prototype: raw Canny over the whole frame.
func PrototypeConfig() Config {
	return Config{
		Threshold:  0.02,
		BlurSize:   0,
		CannyLow:   50,
		CannyHigh:  150,
		DilateSize: 0,
		ROIDivisor: 0,
	}
}

// Validate reports the first invalid parameter.
func (c Config) Validate() error {
	switch {
	case c.Threshold < 0 || c.Threshold > 1:
		return fmt.Errorf("threshold %v outside [0,1]", c.Threshold)
	case c.BlurSize < 0 || (c.BlurSize > 0 && c.BlurSize%2 == 0):
		return fmt.Errorf("blur size %d must be 0 or a positive odd number", c.BlurSize)
	case c.CannyLow < 0 || c.CannyHigh < c.CannyLow:
		return fmt.Errorf("canny thresholds %v/%v must satisfy 0 <= low <= high", c.CannyLow, c.CannyHigh)
	case c.DilateSize < 0:
		return fmt.Errorf("dilate size %d must not be negative", c.DilateSize)
	case c.DilateIterations < 0:
		return fmt.Errorf("dilate iterations %d must not be negative", c.DilateIterations)
	case c.ROIDivisor < 0 || c.ROIDivisor == 1 || c.ROIDivisor == 2:
		return fmt.Errorf("roi divisor %d must be 0 or at least 3", c.ROIDivisor)
	}
	return nil
}
