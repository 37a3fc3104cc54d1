package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"arduino-radar.klederson.com/internal/config"
	"arduino-radar.klederson.com/internal/radar"
	"arduino-radar.klederson.com/internal/sensor"
	"arduino-radar.klederson.com/internal/timeseries"
	"github.com/gin-gonic/gin"
)

const (
	defaultRadarSize   = 400
	defaultChartWidth  = 800
	defaultChartHeight = 400
	minImageSide       = 64
	maxImageSide       = 2048
)

// StatusView is the dashboard summary served by /api/status.
type StatusView struct {
	Status          string                 `json:"status"`
	Connected       bool                   `json:"connected"`
	Collecting      bool                   `json:"collecting"`
	Port            string                 `json:"port"`
	DataPoints      int                    `json:"data_points"`
	Detected        bool                   `json:"detected"`
	ObjectsDetected int                    `json:"objects_detected"`
	SweepAngle      float64                `json:"sweep_angle"`
	LastError       string                 `json:"last_error,omitempty"`
	Latest          *sensor.DistanceSample `json:"latest,omitempty"`
	LatestDetection *sensor.RadarPoint     `json:"latest_detection,omitempty"`
}

// PointView is a radar point with its current opacity.
type PointView struct {
	sensor.RadarPoint
	Opacity float64 `json:"opacity"`
}

// SweepView is served by /api/radar/sweep.
type SweepView struct {
	Angle  float64     `json:"angle"`
	FadeMS int64       `json:"fade_ms"`
	Points []PointView `json:"points"`
}

func (s *Server) statusView() StatusView {
	snap := s.sess.Snapshot()
	v := StatusView{
		Status:          snap.Status,
		Connected:       snap.Connected,
		Collecting:      snap.Collecting,
		Port:            snap.Port,
		DataPoints:      len(snap.Samples),
		Detected:        snap.Detected,
		ObjectsDetected: len(snap.Points),
		SweepAngle:      s.sweep.At(s.now()),
		LastError:       snap.LastError,
	}
	if latest, ok := snap.Latest(); ok {
		v.Latest = &latest
	}
	if p, ok := snap.LatestPoint(); ok {
		v.LatestDetection = &p
	}
	return v
}

// respondStatus answers a control action and tells websocket clients.
func (s *Server) respondStatus(c *gin.Context) {
	v := s.statusView()
	s.hub.broadcast(Message{Type: "status", Data: v})
	Success(c, v)
}

func (s *Server) handleHealth(c *gin.Context) {
	Success(c, gin.H{
		"status":  "ok",
		"name":    config.AppName,
		"version": config.AppVersion,
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	Success(c, s.statusView())
}

// handleRadar serves the latest reading in the shape HTTPProvider polls.
func (s *Server) handleRadar(c *gin.Context) {
	ev, ok := s.lastEvent()
	if !ok {
		Unavailable(c, "no reading yet")
		return
	}
	c.JSON(http.StatusOK, sensor.ReadingToJSON(sensor.Reading{
		Distance: ev.Sample.Distance,
		Angle:    ev.Angle,
		HasAngle: true,
		Detected: ev.Detected,
	}))
}

func (s *Server) handleDistance(c *gin.Context) {
	samples := s.sess.Snapshot().Samples
	if samples == nil {
		samples = []sensor.DistanceSample{}
	}
	Success(c, samples)
}

func (s *Server) handleSweep(c *gin.Context) {
	now := s.now()
	snap := s.sess.Snapshot()
	v := SweepView{
		Angle:  s.sweep.At(now),
		FadeMS: s.fade.Milliseconds(),
		Points: make([]PointView, 0, len(snap.Points)),
	}
	for _, p := range snap.Points {
		op := radar.Opacity(now, p.Timestamp, s.fade)
		if op <= 0 {
			continue
		}
		v.Points = append(v.Points, PointView{RadarPoint: p, Opacity: min(op, 1)})
	}
	Success(c, v)
}

func (s *Server) handleConnect(c *gin.Context) {
	if s.sess.Snapshot().Connected {
		s.respondStatus(c)
		return
	}
	port, err := s.conn.Connect(c.Request.Context())
	if err != nil {
		s.log.WithError(err).Warn("connect failed")
		Unavailable(c, fmt.Sprintf("connect: %v", err))
		return
	}
	s.sess.Connect(port)
	s.log.WithField("port", port).Info("connected")
	s.respondStatus(c)
}

func (s *Server) handleDisconnect(c *gin.Context) {
	if err := s.conn.Disconnect(); err != nil {
		s.log.WithError(err).Warn("disconnect")
	}
	s.sess.Disconnect()
	s.log.Info("disconnected")
	s.respondStatus(c)
}

func (s *Server) handleStart(c *gin.Context) {
	if !s.sess.Start() {
		Conflict(c, "not connected")
		return
	}
	s.log.Info("collection started")
	s.respondStatus(c)
}

func (s *Server) handleStop(c *gin.Context) {
	s.sess.Stop()
	s.log.Info("collection stopped")
	s.respondStatus(c)
}

func (s *Server) handleClear(c *gin.Context) {
	s.sess.Clear()
	s.resetLast()
	s.log.Info("data cleared")
	s.respondStatus(c)
}

func (s *Server) handleRadarPNG(c *gin.Context) {
	size, err := queryDim(c, "size", defaultRadarSize)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	now := s.now()
	snap := s.sess.Snapshot()
	surface := radar.NewImageSurface()
	radar.Render(surface, size, size, radar.Frame{
		Angle:  s.sweep.At(now),
		Points: snap.Points,
		Fade:   s.fade,
		Now:    now,
	}, radar.DefaultStyle())
	surface.LabelRings(radar.NewLayout(size, size), s.maxDistance)

	var buf bytes.Buffer
	if err := surface.EncodePNG(&buf); err != nil {
		_ = c.Error(err)
		InternalError(c, "encode radar")
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func (s *Server) handleChartPNG(c *gin.Context) {
	width, err := queryDim(c, "width", defaultChartWidth)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	height, err := queryDim(c, "height", defaultChartHeight)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	var buf bytes.Buffer
	s.chartMu.Lock()
	err = s.chart().RenderPNG(&buf, width, height)
	s.chartMu.Unlock()

	switch {
	case errors.Is(err, timeseries.ErrNoSamples):
		Error(c, http.StatusNotFound, "no samples")
		return
	case err != nil:
		_ = c.Error(err)
		InternalError(c, "render chart")
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func (s *Server) handleWebSocket(c *gin.Context) {
	s.hub.serve(c.Writer, c.Request, Message{Type: "status", Data: s.statusView()})
}

// queryDim parses an image dimension query parameter.
func queryDim(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < minImageSide || v > maxImageSide {
		return 0, fmt.Errorf("%s must be an integer in [%d, %d]", key, minImageSide, maxImageSide)
	}
	return v, nil
}
