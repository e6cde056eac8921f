package detector

import (
	"log/slog"

	"gocv.io/x/gocv"
)

// EdgeDetector is the OpenCV edge-density Detector.
type EdgeDetector struct {
	cfg        Config
	extractor  *EdgeExtractor
	classifier Classifier
	logger     *slog.Logger
}

// NewEdgeDetector validates cfg and builds the extractor and classifier.
func NewEdgeDetector(cfg Config, logger *slog.Logger) (*EdgeDetector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &EdgeDetector{
		cfg:        cfg,
		extractor:  NewEdgeExtractor(cfg),
		classifier: NewClassifier(cfg.Threshold),
		logger:     logger.With(slog.String("component", "detector")),
	}, nil
}

// Config returns the configuration the detector was built with.
func (d *EdgeDetector) Config() Config {
	return d.cfg
}

// SetInspector forwards intermediate masks to i.
func (d *EdgeDetector) SetInspector(i Inspector) {
	d.extractor.SetInspector(i)
}

// Detect extracts the edge density of frame and classifies it.
func (d *EdgeDetector) Detect(frame *gocv.Mat) (Result, error) {
	density, err := d.extractor.Extract(frame)
	if err != nil {
		return Result{}, err
	}

	result := d.classifier.Classify(density)

	d.logger.Debug("frame classified",
		slog.String("presence", result.Presence.String()),
		slog.Float64("density", density),
		slog.Float64("threshold", d.classifier.Threshold()),
	)

	return result, nil
}

// Close releases the extractor's resources.
func (d *EdgeDetector) Close() error {
	return d.extractor.Close()
}
