package config

import "time"

const (
	// Radar display
	RingCount     = 4   // Number of concentric rings
	RadiusFactor  = 0.9 // Drawing radius as a fraction of half the surface side
	SweepHalfDeg  = 2.0 // Sweep wedge half-width in degrees
	SweepSpeedRPM = 15  // Sweep rotations per minute
	AspectRatio   = 0.5 // Terminal char aspect correction (chars are ~2:1 tall)
	TargetFPS     = 30  // Target frames per second
	MaxDistanceCM = 400 // Chart y max and radar range in centimeters
	DotRadius     = 3.0 // Detection dot radius in pixels
	RingRadius    = 8.0 // Detection ring radius in pixels
	RingOpacity   = 0.5 // Detection ring opacity relative to the dot
	DefaultFade   = 5 * time.Second

	// Reading source
	SampleInterval = time.Second
	PollTimeout    = 2 * time.Second

	// Simulation
	SimMinDistance     = 50.0
	SimMaxDistance     = 250.0
	SimDetectChance    = 0.2
	SimPortName        = "COM3"
	BLEServiceUUID     = 0xFFE0
	BLECharUUID        = 0xFFE1
	BLEScanTimeout     = 10 * time.Second
	HTTPRequestTimeout = 2 * time.Second

	// Terminal dashboard
	EventLogSize = 64

	// Server
	DefaultAddr     = ":8080"
	ShutdownTimeout = 10 * time.Second
	WSWriteTimeout  = 5 * time.Second // Per-frame websocket write deadline

	// App
	AppName    = "ARDUINO-RADAR"
	AppVersion = "1.0"
	NoPort     = "None"
)
