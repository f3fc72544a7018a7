// Package gesture turns detected symbols into commands.
package gesture

import "time"

// Symbol is a single discrete gesture code such as "A" or "7".
type Symbol string

// Source identifies where a detection came from.
type Source string

const (
	// SourceLocal marks symbols produced by the on-device region heuristic.
	SourceLocal Source = "local"
	// SourceRemote marks symbols pushed by the remote detection service.
	SourceRemote Source = "remote"
)

// NoConfidence is used when a detection carries no confidence value.
const NoConfidence = -1.0

// Detection is one symbol observation offered to the Buffer.
type Detection struct {
	Symbol     Symbol
	Confidence float64 // NoConfidence when unknown
	Action     string  // optional command hint from the remote service
	Source     Source
	At         time.Time
}

// HasConfidence reports whether the detection carries a confidence value.
func (d Detection) HasConfidence() bool {
	return d.Confidence >= 0
}
