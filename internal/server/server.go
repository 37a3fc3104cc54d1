package server

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"arduino-radar.klederson.com/internal/config"
	"arduino-radar.klederson.com/internal/radar"
	"arduino-radar.klederson.com/internal/sensor"
	"arduino-radar.klederson.com/internal/session"
	"arduino-radar.klederson.com/internal/timeseries"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

//go:embed static/index.html
var indexHTML []byte

// Options configures a Server.
type Options struct {
	Session     *session.Session
	Connector   sensor.Connector
	Sweep       *radar.Sweep
	Fade        time.Duration
	MaxDistance float64
	Log         logrus.FieldLogger
	Now         func() time.Time
}

// Server exposes the session over HTTP and websocket.
type Server struct {
	sess        *session.Session
	conn        sensor.Connector
	sweep       *radar.Sweep
	fade        time.Duration
	maxDistance float64
	now         func() time.Time
	log         logrus.FieldLogger
	hub         *hub

	// chartMu guards the chart renderer and the version it was built from.
	chartMu      sync.Mutex
	charts       *timeseries.Renderer
	chartVersion uint64

	lastMu sync.RWMutex
	last   *session.Event
}

// New creates a server. It implements collector.Listener.
func New(opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Fade <= 0 {
		opts.Fade = config.DefaultFade
	}
	if opts.MaxDistance <= 0 {
		opts.MaxDistance = config.MaxDistanceCM
	}
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("component", "server")
	return &Server{
		sess:        opts.Session,
		conn:        opts.Connector,
		sweep:       opts.Sweep,
		fade:        opts.Fade,
		maxDistance: opts.MaxDistance,
		now:         opts.Now,
		log:         log,
		hub:         newHub(log),
		charts:      timeseries.NewRenderer(),
	}
}

// Publish records the latest event and forwards it to websocket clients.
func (s *Server) Publish(ev session.Event) {
	s.lastMu.Lock()
	s.last = &ev
	s.lastMu.Unlock()

	s.hub.broadcast(Message{Type: "reading", Data: ev})
}

func (s *Server) lastEvent() (session.Event, bool) {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	if s.last == nil {
		return session.Event{}, false
	}
	return *s.last, true
}

func (s *Server) resetLast() {
	s.lastMu.Lock()
	s.last = nil
	s.lastMu.Unlock()
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), Logger(s.log), CORS())

	api := r.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.GET("/status", s.handleStatus)

		api.GET("/radar", s.handleRadar)
		api.GET("/radar/distance", s.handleDistance)
		api.GET("/radar/sweep", s.handleSweep)

		api.POST("/connect", s.handleConnect)
		api.POST("/disconnect", s.handleDisconnect)
		api.POST("/start", s.handleStart)
		api.POST("/stop", s.handleStop)
		api.POST("/clear", s.handleClear)
	}

	r.GET("/radar.png", s.handleRadarPNG)
	r.GET("/chart.png", s.handleChartPNG)
	r.GET("/ws", s.handleWebSocket)

	r.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
	})
	return r
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	s.hub.close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close releases the live chart.
func (s *Server) Close() {
	s.chartMu.Lock()
	defer s.chartMu.Unlock()
	s.charts.Close()
}

// chart returns a chart matching the current session version.
// The caller must hold chartMu.
func (s *Server) chart() *timeseries.Chart {
	snap := s.sess.Snapshot()
	current := s.charts.Current()
	if current == nil || snap.Version != s.chartVersion {
		current = s.charts.Update(snap.Samples, snap.Detected)
		s.chartVersion = snap.Version
	}
	return current
}
