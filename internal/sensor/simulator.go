package sensor

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"arduino-radar.klederson.com/internal/config"
)

// Simulator generates synthetic readings for demo mode.
type Simulator struct {
	mu           sync.Mutex
	rng          *rand.Rand
	minDistance  float64
	maxDistance  float64
	detectChance float64
	port         string
}

// NewSimulator creates a simulator from the simulation settings. A zero seed
// picks one from the clock.
func NewSimulator(cfg config.SimulationConfig) *Simulator {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	port := cfg.Port
	if port == "" {
		port = config.SimPortName
	}
	return &Simulator{
		rng:          rand.New(rand.NewSource(seed)),
		minDistance:  cfg.MinDistance,
		maxDistance:  cfg.MaxDistance,
		detectChance: cfg.DetectChance,
		port:         port,
	}
}

// Connect pretends to open the serial port.
func (s *Simulator) Connect(ctx context.Context) (string, error) {
	return s.port, nil
}

func (s *Simulator) Disconnect() error { return nil }

// Poll draws a distance uniformly from the configured range and, in an
// independent trial, decides whether an object was detected.
func (s *Simulator) Poll(ctx context.Context) (Reading, error) {
	if err := ctx.Err(); err != nil {
		return Reading{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dist := s.minDistance + s.rng.Float64()*(s.maxDistance-s.minDistance)
	detected := s.rng.Float64() < s.detectChance
	return Reading{Distance: dist, Detected: detected}, nil
}
