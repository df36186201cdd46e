// Package datatypes holds the types exchanged between the receiver,
// the engines and the reporters.
package datatypes

import (
	"time"
)

// A Profile is the matrix profile of one time series window, together
// with enough metadata to tie it back to the series it was computed
// from. The fields are public because this struct gets json-encoded.
type Profile struct {
	// The fingerprint of the metric this window belongs to. Zero for
	// profiles computed outside the receiver (e.g. from a file).
	MetricFingerprint uint64 `json:"fingerprint"`

	// A human-readable name for the series.
	MetricName string `json:"metricName"`

	// The subsequence length (m) the profile was computed with.
	SubsequenceLength int `json:"subsequenceLength"`

	// When the profile was computed.
	ComputedAt time.Time `json:"computedAt"`

	// One distance per window position, len(T) - m + 1 values.
	Distances []float64 `json:"distances"`
}

// MinIndex returns the position of the smallest distance, the motif
// location, or -1 for an empty profile.
func (p *Profile) MinIndex() int {
	best := -1
	for i, d := range p.Distances {
		if best < 0 || d < p.Distances[best] {
			best = i
		}
	}
	return best
}

// MaxIndex returns the position of the largest distance, the discord
// location, or -1 for an empty profile.
func (p *Profile) MaxIndex() int {
	best := -1
	for i, d := range p.Distances {
		if best < 0 || d > p.Distances[best] {
			best = i
		}
	}
	return best
}
