package timeseries

import (
	"sync"

	"arduino-radar.klederson.com/internal/sensor"
)

// Renderer owns the live chart. Every update replaces it; at most one chart
// is unreleased at any time.
type Renderer struct {
	mu      sync.Mutex
	current *Chart
}

// NewRenderer creates a renderer with no chart.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Update releases the previous chart and builds a new one from samples.
func (r *Renderer) Update(samples []sensor.DistanceSample, detected bool) *Chart {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		r.current.release()
	}
	r.current = newChart(samples, detected)
	return r.current
}

// Current returns the live chart, or nil before the first update.
func (r *Renderer) Current() *Chart {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Close releases the live chart.
func (r *Renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		r.current.release()
		r.current = nil
	}
}
