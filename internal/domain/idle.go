package domain

import "fmt"

// IdleSample is one reading of "seconds since last user input".
// OK is false when no backend could answer.
type IdleSample struct {
	Seconds uint64
	OK      bool
}

// UnavailableSample is the reading of a sensor that cannot answer.
var UnavailableSample = IdleSample{}

// Ptr returns the reading as an optional value for snapshots.
func (s IdleSample) Ptr() *uint64 {
	if !s.OK {
		return nil
	}
	v := s.Seconds
	return &v
}

// String returns a human-readable reading.
func (s IdleSample) String() string {
	if !s.OK {
		return "unavailable"
	}
	return fmt.Sprintf("%ds", s.Seconds)
}
