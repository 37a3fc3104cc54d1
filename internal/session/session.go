package session

import (
	"sync"
	"time"

	"arduino-radar.klederson.com/internal/config"
	"arduino-radar.klederson.com/internal/radar"
	"arduino-radar.klederson.com/internal/sensor"
)

// Status labels shown by the dashboards.
const (
	StatusReady      = "Ready"
	StatusConnected  = "Connected"
	StatusCollecting = "Collecting"
	StatusError      = "Error"
)

// Event describes one recorded reading.
type Event struct {
	Sample   sensor.DistanceSample `json:"sample"`
	Angle    float64               `json:"angle"`
	Detected bool                  `json:"detected"`
	Point    *sensor.RadarPoint    `json:"point,omitempty"`
}

// Snapshot is a copy of the session state, safe to hand to renderers.
type Snapshot struct {
	Connected  bool
	Collecting bool
	Port       string
	Samples    []sensor.DistanceSample
	Detected   bool
	Points     []sensor.RadarPoint
	Status     string
	LastError  string
	Version    uint64
}

// Latest returns the most recent sample, if any.
func (s Snapshot) Latest() (sensor.DistanceSample, bool) {
	if len(s.Samples) == 0 {
		return sensor.DistanceSample{}, false
	}
	return s.Samples[len(s.Samples)-1], true
}

// LatestPoint returns the most recent radar point, if any.
func (s Snapshot) LatestPoint() (sensor.RadarPoint, bool) {
	if len(s.Points) == 0 {
		return sensor.RadarPoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// Session is the thread-safe application state shared by the reading source
// and the renderers.
type Session struct {
	mu          sync.RWMutex
	maxDistance float64

	connected  bool
	collecting bool
	port       string
	samples    []sensor.DistanceSample
	detected   bool
	points     []sensor.RadarPoint
	lastErr    error
	version    uint64
}

// New creates an empty, disconnected session. maxDistance is the radar range
// in centimeters used to normalize detections.
func New(maxDistance float64) *Session {
	if maxDistance <= 0 {
		maxDistance = config.MaxDistanceCM
	}
	return &Session{
		maxDistance: maxDistance,
		port:        config.NoPort,
	}
}

// Connect marks the sensor link as up.
func (s *Session) Connect(port string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connected = true
	s.port = port
	s.lastErr = nil
	s.version++
}

// Disconnect drops the link and forces collection to stop.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connected = false
	s.collecting = false
	s.port = config.NoPort
	s.lastErr = nil
	s.version++
}

// Start begins collection. It is a no-op without a prior Connect and
// reports whether collection is now active.
func (s *Session) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return false
	}
	if !s.collecting {
		s.collecting = true
		s.lastErr = nil
		s.version++
	}
	return true
}

// Stop ends collection.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.collecting {
		s.collecting = false
		s.version++
	}
}

// Clear discards the sample history, the detection flag and radar points.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.samples = nil
	s.detected = false
	s.points = nil
	s.version++
}

// Fail records a provider failure and stops collection. A failure that
// arrives after collection already stopped is ignored; Fail reports whether
// it was recorded.
func (s *Session) Fail(err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.collecting {
		return false
	}
	s.lastErr = err
	s.collecting = false
	s.version++
	return true
}

// Record appends a reading taken at the given time. sweepAngle (degrees)
// places the detection when the reading carries no angle. Readings that
// arrive while not collecting, or that fail validation, are dropped.
func (s *Session) Record(r sensor.Reading, at time.Time, sweepAngle float64) (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.collecting || r.Validate() != nil {
		return Event{}, false
	}

	sample := sensor.DistanceSample{Timestamp: at, Distance: r.Distance}
	s.samples = append(s.samples, sample)
	s.detected = r.Detected
	s.version++

	angle := sweepAngle
	if r.HasAngle {
		angle = r.Angle
	}
	ev := Event{Sample: sample, Angle: radar.NormalizeDegrees(angle), Detected: r.Detected}
	if r.Detected {
		p := sensor.RadarPoint{
			Timestamp: at,
			Angle:     ev.Angle,
			Distance:  clampRatio(r.Distance / s.maxDistance),
		}
		s.points = append(s.points, p)
		ev.Point = &p
	}
	return ev, true
}

// Prune removes radar points older than fade. Returns the number removed.
func (s *Session) Prune(now time.Time, fade time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.points[:0]
	for _, p := range s.points {
		if p.Age(now) < fade {
			kept = append(kept, p)
		}
	}
	removed := len(s.points) - len(kept)
	// Zero the tail of the backing array.
	for i := len(kept); i < len(s.points); i++ {
		s.points[i] = sensor.RadarPoint{}
	}
	s.points = kept
	if removed > 0 {
		s.version++
	}
	return removed
}

// Collecting reports whether the reading source should run.
func (s *Session) Collecting() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collecting
}

// Version increases on every state change.
func (s *Session) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Connected:  s.connected,
		Collecting: s.collecting,
		Port:       s.port,
		Samples:    append([]sensor.DistanceSample(nil), s.samples...),
		Detected:   s.detected,
		Points:     append([]sensor.RadarPoint(nil), s.points...),
		Status:     s.status(),
		Version:    s.version,
	}
	if s.lastErr != nil {
		snap.LastError = s.lastErr.Error()
	}
	return snap
}

func (s *Session) status() string {
	switch {
	case s.collecting:
		return StatusCollecting
	case s.lastErr != nil:
		return StatusError
	case s.connected:
		return StatusConnected
	default:
		return StatusReady
	}
}

// clampRatio keeps a detection inside the radar range.
func clampRatio(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
