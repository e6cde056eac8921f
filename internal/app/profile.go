package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/ayusman/strand/internal/capture"
	"github.com/ayusman/strand/internal/detector"
)

// ReadFailurePolicy decides what the loop does when a frame cannot be read.
type ReadFailurePolicy int

const (
	// StopOnReadFailure ends the loop on the first failed read.
	StopOnReadFailure ReadFailurePolicy = iota
	// RetryOnReadFailure pauses for the retry delay and reads again.
	RetryOnReadFailure
)

// String returns the flag spelling of the policy.
func (p ReadFailurePolicy) String() string {
	switch p {
	case StopOnReadFailure:
		return "stop"
	case RetryOnReadFailure:
		return "retry"
	default:
		return fmt.Sprintf("ReadFailurePolicy(%d)", int(p))
	}
}

// ParseReadFailurePolicy parses "stop" or "retry".
func ParseReadFailurePolicy(s string) (ReadFailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stop":
		return StopOnReadFailure, nil
	case "retry":
		return RetryOnReadFailure, nil
	default:
		return 0, fmt.Errorf("unknown read failure policy %q (want stop or retry)", s)
	}
}

// DefaultRetryDelay is the pause between reads under RetryOnReadFailure.
const DefaultRetryDelay = time.Second

// Profile bundles a detector configuration with the acquisition behaviour
// it was tuned alongside.
type Profile struct {
	Name          string
	Detector      detector.Config
	OnReadFailure ReadFailurePolicy
	RetryDelay    time.Duration
	Timeout       time.Duration
}

// CoreProfile is the main detection loop: blurred, dilated, centre ROI,
// stop when the camera goes away.
func CoreProfile() Profile {
	return Profile{
		Name:          "core",
		Detector:      detector.CoreConfig(),
		OnReadFailure: StopOnReadFailure,
		RetryDelay:    DefaultRetryDelay,
		Timeout:       capture.DefaultTimeout,
	}
}

// PrototypeProfile is the standalone URL script: raw Canny over the whole
// frame, keep retrying when a snapshot fails.
func PrototypeProfile() Profile {
	return Profile{
		Name:          "prototype",
		Detector:      detector.PrototypeConfig(),
		OnReadFailure: RetryOnReadFailure,
		RetryDelay:    DefaultRetryDelay,
		Timeout:       capture.DefaultTimeout,
	}
}

// ProfileByName returns the named profile.
func ProfileByName(name string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "core":
		return CoreProfile(), nil
	case "prototype":
		return PrototypeProfile(), nil
	default:
		return Profile{}, fmt.Errorf("unknown profile %q (want core or prototype)", name)
	}
}
