package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"arduino-radar.klederson.com/internal/config"
	"arduino-radar.klederson.com/internal/radar"
	"arduino-radar.klederson.com/internal/sensor"
	"arduino-radar.klederson.com/internal/session"
	"github.com/sirupsen/logrus"
)

// Listener receives every recorded reading.
type Listener interface {
	Publish(ev session.Event)
}

// Options configures a Collector.
type Options struct {
	Interval    time.Duration
	PollTimeout time.Duration
	Fade        time.Duration
	Listener    Listener
	Log         logrus.FieldLogger
	Now         func() time.Time
}

// Collector polls the provider while the session is collecting and records
// the results.
type Collector struct {
	provider sensor.Provider
	sess     *session.Session
	sweep    *radar.Sweep
	opts     Options
	log      logrus.FieldLogger
}

// New creates a collector. The sweep supplies the angle for detections
// that carry none.
func New(provider sensor.Provider, sess *session.Session, sweep *radar.Sweep, opts Options) *Collector {
	if opts.Interval <= 0 {
		opts.Interval = config.SampleInterval
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = config.PollTimeout
	}
	if opts.Fade <= 0 {
		opts.Fade = config.DefaultFade
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Collector{
		provider: provider,
		sess:     sess,
		sweep:    sweep,
		opts:     opts,
		log:      log.WithField("component", "collector"),
	}
}

// Run ticks every interval until ctx is done.
func (c *Collector) Run(ctx context.Context) {
	t := time.NewTimer(0)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.prune()
			if c.sess.Collecting() {
				_, _, _ = c.Tick(ctx)
			}
			t.Reset(c.opts.Interval)
		}
	}
}

// Result is the outcome of one provider poll.
type Result struct {
	Reading  sensor.Reading
	At       time.Time
	Err      error
	Canceled bool // The caller's context ended during the poll
}

// Poll reads the provider once, bounded by the poll timeout. It does not
// touch the session.
func (c *Collector) Poll(ctx context.Context) Result {
	cctx, cancel := context.WithTimeout(ctx, c.opts.PollTimeout)
	defer cancel()

	r, err := c.provider.Poll(cctx)
	res := Result{Reading: r, At: c.opts.Now(), Err: err}
	if err != nil && ctx.Err() != nil {
		res.Err = ctx.Err()
		res.Canceled = true
	}
	return res
}

// Apply records a poll result. A provider error stops collection and is
// returned unless collection had already stopped. Polls that ended without a
// reading and invalid readings are skipped.
func (c *Collector) Apply(res Result) (session.Event, bool, error) {
	if res.Canceled {
		return session.Event{}, false, res.Err
	}
	if errors.Is(res.Err, sensor.ErrNoReading) {
		c.log.Debug("no reading this interval")
		return session.Event{}, false, nil
	}
	if res.Err != nil {
		err := fmt.Errorf("poll sensor: %w", res.Err)
		if !c.sess.Fail(err) {
			c.log.WithError(err).Debug("poll failed after collection stopped")
			return session.Event{}, false, nil
		}
		c.log.WithError(err).Warn("stopping collection")
		return session.Event{}, false, err
	}

	if err := res.Reading.Validate(); err != nil {
		c.log.WithError(err).Warn("discarding reading")
		return session.Event{}, false, nil
	}

	ev, ok := c.sess.Record(res.Reading, res.At, c.sweep.At(res.At))
	if !ok {
		return ev, false, nil
	}
	c.log.WithFields(logrus.Fields{
		"distance": res.Reading.Distance,
		"detected": res.Reading.Detected,
	}).Debug("reading recorded")
	if c.opts.Listener != nil {
		c.opts.Listener.Publish(ev)
	}
	return ev, true, nil
}

// Tick polls once and applies the result.
func (c *Collector) Tick(ctx context.Context) (session.Event, bool, error) {
	return c.Apply(c.Poll(ctx))
}

func (c *Collector) prune() {
	if n := c.sess.Prune(c.opts.Now(), c.opts.Fade); n > 0 {
		c.log.WithField("removed", n).Debug("pruned radar points")
	}
}
