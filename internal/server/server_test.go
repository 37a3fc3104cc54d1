package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"arduino-radar.klederson.com/internal/radar"
	"arduino-radar.klederson.com/internal/sensor"
	"arduino-radar.klederson.com/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConnector struct {
	port         string
	err          error
	disconnected bool
}

func (f *fakeConnector) Connect(ctx context.Context) (string, error) {
	return f.port, f.err
}

func (f *fakeConnector) Disconnect() error {
	f.disconnected = true
	return nil
}

func newTestServer(t *testing.T, conn sensor.Connector) (*Server, *session.Session, http.Handler) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, _ := logtest.NewNullLogger()
	sess := session.New(400)
	s := New(Options{
		Session:   sess,
		Connector: conn,
		Sweep:     radar.NewSweep(15),
		Fade:      5 * time.Second,
		Log:       log,
	})
	t.Cleanup(s.Close)
	return s, sess, s.Router()
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeStatus(t *testing.T, w *httptest.ResponseRecorder) StatusView {
	t.Helper()
	var body struct {
		Code int        `json:"code"`
		Data StatusView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 0, body.Code)
	return body.Data
}

func TestHealth(t *testing.T) {
	_, _, h := newTestServer(t, &fakeConnector{port: "COM3"})

	w := do(t, h, http.MethodGet, "/api/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestPreflight(t *testing.T) {
	_, _, h := newTestServer(t, &fakeConnector{port: "COM3"})

	w := do(t, h, http.MethodOptions, "/api/start")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestControlFlow(t *testing.T) {
	conn := &fakeConnector{port: "COM3"}
	_, _, h := newTestServer(t, conn)

	w := do(t, h, http.MethodPost, "/api/start")
	assert.Equal(t, http.StatusConflict, w.Code, "start requires a connection")

	w = do(t, h, http.MethodPost, "/api/connect")
	require.Equal(t, http.StatusOK, w.Code)
	st := decodeStatus(t, w)
	assert.True(t, st.Connected)
	assert.Equal(t, "COM3", st.Port)
	assert.Equal(t, session.StatusConnected, st.Status)

	w = do(t, h, http.MethodPost, "/api/start")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, session.StatusCollecting, decodeStatus(t, w).Status)

	w = do(t, h, http.MethodPost, "/api/stop")
	assert.Equal(t, session.StatusConnected, decodeStatus(t, w).Status)

	w = do(t, h, http.MethodPost, "/api/disconnect")
	st = decodeStatus(t, w)
	assert.False(t, st.Connected)
	assert.Equal(t, "None", st.Port)
	assert.True(t, conn.disconnected)
}

func TestConnectFailure(t *testing.T) {
	_, sess, h := newTestServer(t, &fakeConnector{err: errors.New("device not found")})

	w := do(t, h, http.MethodPost, "/api/connect")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "device not found")
	assert.False(t, sess.Snapshot().Connected)
}

func TestRadarEndpointServesLatestReading(t *testing.T) {
	s, sess, h := newTestServer(t, &fakeConnector{port: "COM3"})

	w := do(t, h, http.MethodGet, "/api/radar")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	sess.Connect("COM3")
	sess.Start()
	ev, ok := sess.Record(sensor.Reading{Distance: 123, Angle: 45, HasAngle: true, Detected: true}, time.Now(), 0)
	require.True(t, ok)
	s.Publish(ev)

	w = do(t, h, http.MethodGet, "/api/radar")
	require.Equal(t, http.StatusOK, w.Code)
	var body sensor.ReadingJSON
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 123.0, body.Distance)
	require.NotNil(t, body.Angle)
	assert.Equal(t, 45.0, *body.Angle)
	assert.True(t, body.Detected)

	do(t, h, http.MethodPost, "/api/clear")
	w = do(t, h, http.MethodGet, "/api/radar")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRadarEndpointFeedsHTTPProvider(t *testing.T) {
	s, sess, h := newTestServer(t, &fakeConnector{port: "COM3"})
	sess.Connect("COM3")
	sess.Start()
	ev, _ := sess.Record(sensor.Reading{Distance: 210}, time.Now(), 300)
	s.Publish(ev)

	ts := httptest.NewServer(h)
	defer ts.Close()

	p := sensor.NewHTTPProvider(ts.URL+"/api/radar", time.Second)
	r, err := p.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 210.0, r.Distance)
	assert.True(t, r.HasAngle)
	assert.Equal(t, 300.0, r.Angle)
	assert.False(t, r.Detected)
}

func TestDistanceAndSweep(t *testing.T) {
	_, sess, h := newTestServer(t, &fakeConnector{port: "COM3"})

	w := do(t, h, http.MethodGet, "/api/radar/distance")
	assert.JSONEq(t, `{"code":0,"message":"success","data":[]}`, w.Body.String())

	sess.Connect("COM3")
	sess.Start()
	now := time.Now()
	sess.Record(sensor.Reading{Distance: 100, Detected: true}, now, 90)
	sess.Record(sensor.Reading{Distance: 150}, now, 90)
	sess.Record(sensor.Reading{Distance: 300, Detected: true}, now.Add(-time.Minute), 180)

	w = do(t, h, http.MethodGet, "/api/radar/distance")
	var dist struct {
		Data []sensor.DistanceSample `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dist))
	require.Len(t, dist.Data, 3)
	assert.Equal(t, 150.0, dist.Data[1].Distance)

	w = do(t, h, http.MethodGet, "/api/radar/sweep")
	var sweep struct {
		Data SweepView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sweep))
	assert.Equal(t, int64(5000), sweep.Data.FadeMS)
	require.Len(t, sweep.Data.Points, 1, "expired points are not served")
	assert.Equal(t, 90.0, sweep.Data.Points[0].Angle)
	assert.InDelta(t, 0.25, sweep.Data.Points[0].Distance, 1e-9)
	assert.Greater(t, sweep.Data.Points[0].Opacity, 0.9)
}

func TestDistanceSkipsNonFiniteReadings(t *testing.T) {
	_, sess, h := newTestServer(t, &fakeConnector{port: "COM3"})
	sess.Connect("COM3")
	sess.Start()
	now := time.Now()
	sess.Record(sensor.Reading{Distance: math.NaN()}, now, 0)
	sess.Record(sensor.Reading{Distance: 100, Angle: math.Inf(1), HasAngle: true, Detected: true}, now, 0)
	sess.Record(sensor.Reading{Distance: 120}, now, 0)

	w := do(t, h, http.MethodGet, "/api/radar/distance")
	require.Equal(t, http.StatusOK, w.Code)
	var dist struct {
		Data []sensor.DistanceSample `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dist))
	require.Len(t, dist.Data, 1)
	assert.Equal(t, 120.0, dist.Data[0].Distance)
}

func TestStatus(t *testing.T) {
	_, sess, h := newTestServer(t, &fakeConnector{port: "COM3"})
	sess.Connect("COM7")
	sess.Start()
	sess.Record(sensor.Reading{Distance: 80, Detected: true}, time.Now(), 10)

	st := decodeStatus(t, do(t, h, http.MethodGet, "/api/status"))
	assert.Equal(t, "COM7", st.Port)
	assert.Equal(t, 1, st.DataPoints)
	assert.Equal(t, 1, st.ObjectsDetected)
	assert.True(t, st.Detected)
	require.NotNil(t, st.Latest)
	assert.Equal(t, 80.0, st.Latest.Distance)
	require.NotNil(t, st.LatestDetection)
	assert.Equal(t, 10.0, st.LatestDetection.Angle)
}

func TestRadarPNG(t *testing.T) {
	_, _, h := newTestServer(t, &fakeConnector{port: "COM3"})

	w := do(t, h, http.MethodGet, "/radar.png?size=256")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 256, img.Bounds().Dx())

	w = do(t, h, http.MethodGet, "/radar.png?size=abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, h, http.MethodGet, "/radar.png?size=10")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChartPNG(t *testing.T) {
	s, sess, h := newTestServer(t, &fakeConnector{port: "COM3"})

	w := do(t, h, http.MethodGet, "/chart.png")
	assert.Equal(t, http.StatusNotFound, w.Code)

	sess.Connect("COM3")
	sess.Start()
	sess.Record(sensor.Reading{Distance: 100}, time.Now(), 0)

	w = do(t, h, http.MethodGet, "/chart.png?width=320&height=200")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 320, img.Bounds().Dx())

	// Unchanged session reuses the chart; a new sample replaces it.
	first := s.charts.Current()
	do(t, h, http.MethodGet, "/chart.png")
	assert.Same(t, first, s.charts.Current())

	sess.Record(sensor.Reading{Distance: 120}, time.Now(), 0)
	do(t, h, http.MethodGet, "/chart.png")
	assert.NotSame(t, first, s.charts.Current())
	assert.True(t, first.Released())
}

func TestIndex(t *testing.T) {
	_, _, h := newTestServer(t, &fakeConnector{port: "COM3"})

	w := do(t, h, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/html"))
	assert.Contains(t, w.Body.String(), "Arduino Radar")
}

func TestWebSocketStream(t *testing.T) {
	s, sess, h := newTestServer(t, &fakeConnector{port: "COM3"})
	ts := httptest.NewServer(h)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer c.Close()

	var hello Message
	require.NoError(t, c.ReadJSON(&hello))
	assert.Equal(t, "status", hello.Type)
	require.Eventually(t, func() bool { return s.hub.count() == 1 }, time.Second, 5*time.Millisecond)

	sess.Connect("COM3")
	sess.Start()
	ev, _ := sess.Record(sensor.Reading{Distance: 77, Detected: true}, time.Now(), 30)
	s.Publish(ev)

	var got struct {
		Type string        `json:"type"`
		Data session.Event `json:"data"`
	}
	require.NoError(t, c.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, c.ReadJSON(&got))
	assert.Equal(t, "reading", got.Type)
	assert.Equal(t, 77.0, got.Data.Sample.Distance)
	require.NotNil(t, got.Data.Point)
	assert.Equal(t, 30.0, got.Data.Point.Angle)
}

func TestStalledClientIsDropped(t *testing.T) {
	s, _, h := newTestServer(t, &fakeConnector{port: "COM3"})
	s.hub.writeWait = 50 * time.Millisecond
	ts := httptest.NewServer(h)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer c.Close()
	require.Eventually(t, func() bool { return s.hub.count() == 1 }, time.Second, 5*time.Millisecond)

	// The client never reads, so the socket buffers fill up and a write
	// eventually hits the deadline.
	big := Message{Type: "reading", Data: strings.Repeat("x", 1<<20)}
	start := time.Now()
	for i := 0; i < 256 && s.hub.count() > 0; i++ {
		s.hub.broadcast(big)
	}
	assert.Zero(t, s.hub.count())
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestRunShutsDown(t *testing.T) {
	s, _, _ := newTestServer(t, &fakeConnector{port: "COM3"})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, "127.0.0.1:0") }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down")
	}
}
