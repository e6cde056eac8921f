package detector

// Classifier maps an edge density to a Presence with a single fixed threshold.
// Each call is independent; there is no smoothing across frames.
type Classifier struct {
	threshold float64
}

// NewClassifier creates a Classifier. Densities strictly greater than
// threshold are Hair; a density equal to the threshold is NoHair.
func NewClassifier(threshold float64) Classifier {
	return Classifier{threshold: threshold}
}

// Threshold returns the decision threshold.
func (c Classifier) Threshold() float64 {
	return c.threshold
}

// Classify returns the result for a density.
func (c Classifier) Classify(density float64) Result {
	if density > c.threshold {
		return Result{Presence: Hair, Confidence: density}
	}
	return Result{Presence: NoHair, Confidence: density}
}
