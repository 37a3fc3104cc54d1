package radar

import (
	"time"
)

// Sweep manages the rotating sweep line state.
type Sweep struct {
	Angle     float64 // Current angle in degrees [0, 360)
	StartTime time.Time
	RPM       float64
}

// NewSweep creates a new sweep starting at 0 degrees (east).
func NewSweep(rpm float64) *Sweep {
	return &Sweep{
		Angle:     0,
		StartTime: time.Now(),
		RPM:       rpm,
	}
}

// At returns the sweep angle at time t without changing the sweep.
func (s *Sweep) At(t time.Time) float64 {
	elapsed := t.Sub(s.StartTime).Seconds()
	rps := s.RPM / 60.0 // rotations per second
	return NormalizeDegrees(elapsed * rps * 360)
}

// Update advances the sweep angle based on elapsed time.
func (s *Sweep) Update() {
	s.Angle = s.At(time.Now())
}

// Degrees returns the current sweep angle in degrees.
func (s *Sweep) Degrees() float64 {
	return s.Angle
}
