package app

import (
	"time"

	"arduino-radar.klederson.com/internal/collector"
)

// FrameMsg triggers a frame update for animation.
type FrameMsg time.Time

// SampleTickMsg schedules the next sensor poll. Ticks from an earlier
// collection run carry a stale generation and are dropped.
type SampleTickMsg struct {
	gen int
}

// SampleMsg carries a finished poll back to the model.
type SampleMsg struct {
	Result collector.Result
	gen    int
}

// ConnectedMsg reports the outcome of a connect attempt.
type ConnectedMsg struct {
	Port string
	Err  error
}

// DisconnectedMsg reports that the device link was closed.
type DisconnectedMsg struct {
	Err error
}
