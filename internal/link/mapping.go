// Package link maps detection results to the single-byte signal sent to the
// microcontroller and owns the serial connection it travels over.
package link

import (
	"github.com/ayusman/strand/internal/detector"
)

// Signal is the byte written to the microcontroller for one decision.
type Signal byte

// Signal values understood by the microcontroller firmware.
const (
	SignalOne  Signal = '1'
	SignalZero Signal = '0'
)

// String returns the signal as a one-character string.
func (s Signal) String() string {
	return string(rune(s))
}

// The three lookups below are kept separate and reproduce the deployed
// firmware contract exactly. Note the inversion: NoHair is logged as
// "Hair detected" and sends '1'; Hair is logged as "No hair detected" and
// sends '0'. Changing either table changes what the microcontroller does.
var (
	labels = map[detector.Presence]string{
		detector.NoHair: "Hair detected",
		detector.Hair:   "No hair detected",
	}

	signals = map[detector.Presence]Signal{
		detector.NoHair: SignalOne,
		detector.Hair:   SignalZero,
	}
)

// LabelFor returns the log label for p. ok is false for unknown presences.
func LabelFor(p detector.Presence) (label string, ok bool) {
	label, ok = labels[p]
	return label, ok
}

// SignalFor returns the byte to send for p. ok is false for unknown presences.
func SignalFor(p detector.Presence) (sig Signal, ok bool) {
	sig, ok = signals[p]
	return sig, ok
}
