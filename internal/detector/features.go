package detector

import (
	"image"

	"gocv.io/x/gocv"
)

// Names under which intermediate masks are handed to an Inspector.
const (
	StageEdges   = "Edges"
	StageDilated = "Dilated"
	StageROI     = "ROI"
)

// Inspector receives intermediate masks for debugging. The Mat is only valid
// for the duration of the call.
type Inspector interface {
	Inspect(stage string, mask gocv.Mat)
}

// EdgeExtractor computes edge density for a frame.
type EdgeExtractor struct {
	cfg       Config
	kernel    gocv.Mat
	inspector Inspector
}

// NewEdgeExtractor creates an extractor for the given configuration.
// Call Close to release the structuring element.
func NewEdgeExtractor(cfg Config) *EdgeExtractor {
	e := &EdgeExtractor{cfg: cfg, kernel: gocv.NewMat()}
	if cfg.DilateSize > 0 {
		e.kernel.Close()
		e.kernel = gocv.GetStructuringElement(gocv.MorphRect, image.Pt(cfg.DilateSize, cfg.DilateSize))
	}
	return e
}

// SetInspector installs a debug inspector. nil disables inspection.
func (e *EdgeExtractor) SetInspector(i Inspector) {
	e.inspector = i
}

// Extract returns the fraction of edge pixels inside the region of interest.
//
// Pipeline:
// 1. Convert to grayscale (single-channel input is used as is)
// 2. Gaussian blur (BlurSize x BlurSize, sigma 0)
// 3. Canny edge detection (CannyLow/CannyHigh)
// 4. Rectangular dilation (DilateSize x DilateSize, DilateIterations passes)
// 5. Crop the centred ROI
// 6. nonzero / area
func (e *EdgeExtractor) Extract(frame *gocv.Mat) (float64, error) {
	if frame == nil || frame.Empty() {
		return 0, ErrEmptyFrame
	}

	gray := gocv.NewMat()
	defer gray.Close()

	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	smoothed := &gray
	if e.cfg.BlurSize > 0 {
		blurred := gocv.NewMat()
		defer blurred.Close()
		gocv.GaussianBlur(gray, &blurred, image.Pt(e.cfg.BlurSize, e.cfg.BlurSize), 0, 0, gocv.BorderDefault)
		smoothed = &blurred
	}

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(*smoothed, &edges, e.cfg.CannyLow, e.cfg.CannyHigh)
	e.inspect(StageEdges, edges)

	mask := &edges
	if e.cfg.DilateSize > 0 {
		dilated := gocv.NewMat()
		defer dilated.Close()
		gocv.Dilate(edges, &dilated, e.kernel)
		for i := 1; i < e.cfg.DilateIterations; i++ {
			gocv.Dilate(dilated, &dilated, e.kernel)
		}
		mask = &dilated
		e.inspect(StageDilated, dilated)
	}

	rect := roiRect(mask.Rows(), mask.Cols(), e.cfg.ROIDivisor)
	if rect.Empty() {
		return 0, nil
	}

	roi := mask.Region(rect)
	defer roi.Close()
	e.inspect(StageROI, roi)

	area := roi.Rows() * roi.Cols()
	return float64(gocv.CountNonZero(roi)) / float64(area), nil
}

// Close releases the structuring element.
func (e *EdgeExtractor) Close() error {
	return e.kernel.Close()
}

func (e *EdgeExtractor) inspect(stage string, m gocv.Mat) {
	if e.inspector != nil {
		e.inspector.Inspect(stage, m)
	}
}

// roiRect returns the centred inspection rectangle for a rows x cols mask.
func roiRect(rows, cols, divisor int) image.Rectangle {
	if divisor <= 0 {
		return image.Rect(0, 0, cols, rows)
	}
	return image.Rect(cols/divisor, rows/divisor, cols*(divisor-1)/divisor, rows*(divisor-1)/divisor)
}
