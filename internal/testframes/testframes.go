// Package testframes builds synthetic frames for tests.
package testframes

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Canvas size used by the reference fixtures.
const (
	Rows = 480
	Cols = 640
)

// Blank returns a uniformly white 3-channel frame.
func Blank(rows, cols int) gocv.Mat {
	return Uniform(rows, cols, 255)
}

// Uniform returns a 3-channel frame with every sample set to v.
func Uniform(rows, cols int, v float64) gocv.Mat {
	mat := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV8UC3)
	mat.SetTo(gocv.NewScalar(v, v, v, 0))
	return mat
}

// Lined returns a white 480x640 3-channel frame with 1-pixel black horizontal
// lines from x=100 to x=540, every 10 rows from row 50 up to (not including) 400.
func Lined() gocv.Mat {
	gray := gocv.NewMatWithSize(Rows, Cols, gocv.MatTypeCV8UC1)
	defer gray.Close()
	gray.SetTo(gocv.NewScalar(255, 0, 0, 0))

	black := color.RGBA{0, 0, 0, 0}
	for y := 50; y < 400; y += 10 {
		gocv.Line(&gray, image.Pt(100, y), image.Pt(540, y), black, 1)
	}

	bgr := gocv.NewMat()
	gocv.CvtColor(gray, &bgr, gocv.ColorGrayToBGR)
	return bgr
}

// Noise returns a 3-channel frame filled with uniform random samples.
func Noise(rows, cols int) gocv.Mat {
	mat := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV8UC3)
	gocv.RandU(&mat, gocv.NewScalar(0, 0, 0, 0), gocv.NewScalar(256, 256, 256, 0))
	return mat
}

// JPEG encodes mat as JPEG bytes.
func JPEG(mat gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		return nil, err
	}
	defer buf.Close()

	// GetBytes aliases native memory; copy before the buffer is closed.
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}
