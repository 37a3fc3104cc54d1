package sensor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrNoReading is returned when a provider has nothing to report before the
// poll deadline.
var ErrNoReading = errors.New("no reading available")

// ErrInvalidReading is returned for readings outside the data model, such as
// negative or non-finite distances.
var ErrInvalidReading = errors.New("invalid reading")

// DistanceSample is one point of the distance history.
type DistanceSample struct {
	Timestamp time.Time `json:"timestamp"`
	Distance  float64   `json:"distance"` // Centimeters
}

// RadarPoint is a detection placed on the radar at sweep time.
type RadarPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Angle     float64   `json:"angle"`    // Degrees [0, 360), clockwise from +x
	Distance  float64   `json:"distance"` // Ratio of the radar range [0, 1]
}

// Age returns how long ago the point was detected.
func (p RadarPoint) Age(now time.Time) time.Duration {
	return now.Sub(p.Timestamp)
}

// Reading is what a provider reports on each poll.
type Reading struct {
	Distance float64 // Centimeters
	Angle    float64 // Degrees, only meaningful if HasAngle
	HasAngle bool
	Detected bool
}

// Validate reports whether the reading can be recorded.
func (r Reading) Validate() error {
	if math.IsNaN(r.Distance) || math.IsInf(r.Distance, 0) {
		return fmt.Errorf("%w: distance %v", ErrInvalidReading, r.Distance)
	}
	if r.Distance < 0 {
		return fmt.Errorf("%w: negative distance %v", ErrInvalidReading, r.Distance)
	}
	if r.HasAngle && (math.IsNaN(r.Angle) || math.IsInf(r.Angle, 0)) {
		return fmt.Errorf("%w: angle %v", ErrInvalidReading, r.Angle)
	}
	return nil
}

// Provider delivers one reading per poll.
type Provider interface {
	Poll(ctx context.Context) (Reading, error)
}

// Connector is implemented by providers that hold a link to the device.
// Connect returns the port name shown on the dashboard.
type Connector interface {
	Connect(ctx context.Context) (string, error)
	Disconnect() error
}
