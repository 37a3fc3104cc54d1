package sensor

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"arduino-radar.klederson.com/internal/config"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSimulator(seed int64) *Simulator {
	cfg := config.Default().Simulation
	cfg.Seed = seed
	return NewSimulator(cfg)
}

func TestSimulator_DistanceWithinRange(t *testing.T) {
	sim := newTestSimulator(7)
	ctx := context.Background()

	for i := 0; i < 10000; i++ {
		r, err := sim.Poll(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, r.Distance, 50.0)
		assert.LessOrEqual(t, r.Distance, 250.0)
		assert.False(t, r.HasAngle)
	}
}

func TestSimulator_DetectionFrequency(t *testing.T) {
	sim := newTestSimulator(42)
	ctx := context.Background()

	const trials = 20000
	hits := 0
	for i := 0; i < trials; i++ {
		r, err := sim.Poll(ctx)
		require.NoError(t, err)
		if r.Detected {
			hits++
		}
	}
	// 0.2 ± ~6 standard deviations at n=20000
	assert.InDelta(t, 0.2, float64(hits)/trials, 0.02)
}

func TestSimulator_ConnectReportsPort(t *testing.T) {
	sim := newTestSimulator(1)
	port, err := sim.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "COM3", port)
	assert.NoError(t, sim.Disconnect())
}

func TestSimulator_CancelledContext(t *testing.T) {
	sim := newTestSimulator(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := sim.Poll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Reading
	}{
		{"distance only", "123.5\r\n", Reading{Distance: 123.5}},
		{"distance and angle", "80, 45", Reading{Distance: 80, Angle: 45, HasAngle: true}},
		{"all fields", "60,90,1", Reading{Distance: 60, Angle: 90, HasAngle: true, Detected: true}},
		{"bool word", "60,90,false", Reading{Distance: 60, Angle: 90, HasAngle: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLine(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLine_Errors(t *testing.T) {
	for _, line := range []string{"", "   ", "abc", "-5", "10,x", "10,20,maybe", "1,2,3,4", "NaN", "inf", "-Inf", "10,NaN", "10,inf,1"} {
		_, err := ParseLine(line)
		assert.Error(t, err, "line %q", line)
	}
}

func TestReading_Validate(t *testing.T) {
	assert.NoError(t, Reading{Distance: 0}.Validate())
	assert.NoError(t, Reading{Distance: 10, Angle: math.NaN()}.Validate(), "angle unused without HasAngle")

	for _, r := range []Reading{
		{Distance: math.NaN()},
		{Distance: math.Inf(1)},
		{Distance: -1},
		{Distance: 10, Angle: math.Inf(-1), HasAngle: true},
	} {
		assert.ErrorIs(t, r.Validate(), ErrInvalidReading, "%+v", r)
	}
}

func TestHTTPProvider_Poll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/radar", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"distance": 123, "angle": 45, "detected": true}`))
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL+"/api/radar", time.Second)
	port, err := p.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, srv.Listener.Addr().String(), port)

	r, err := p.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Reading{Distance: 123, Angle: 45, HasAngle: true, Detected: true}, r)
	assert.NoError(t, p.Disconnect())
}

func TestHTTPProvider_AngleOptional(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"distance": 99.5}`))
	}))
	defer srv.Close()

	r, err := NewHTTPProvider(srv.URL, time.Second).Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Reading{Distance: 99.5}, r)
}

func TestHTTPProvider_Errors(t *testing.T) {
	t.Run("bad status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()
		_, err := NewHTTPProvider(srv.URL, time.Second).Poll(context.Background())
		assert.ErrorContains(t, err, "status: 503")
	})

	t.Run("bad body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}))
		defer srv.Close()
		_, err := NewHTTPProvider(srv.URL, time.Second).Poll(context.Background())
		assert.ErrorContains(t, err, "decode sensor reading")
	})

	t.Run("no host", func(t *testing.T) {
		_, err := NewHTTPProvider("/api/radar", time.Second).Connect(context.Background())
		assert.Error(t, err)
	})
}

func TestReadingJSON_RoundTripKeepsAngleOptional(t *testing.T) {
	j := ReadingToJSON(Reading{Distance: 10})
	assert.Nil(t, j.Angle)
	assert.Equal(t, Reading{Distance: 10}, j.ToReading())

	j = ReadingToJSON(Reading{Distance: 10, Angle: 30, HasAngle: true})
	require.NotNil(t, j.Angle)
	assert.Equal(t, 30.0, *j.Angle)
}

func newTestBLE() (*BLEProvider, *logtest.Hook) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return NewBLEProvider("HMSoft", time.Second, logger), hook
}

func TestBLEProvider_DeliverReassemblesChunks(t *testing.T) {
	p, _ := newTestBLE()

	p.deliver([]byte("12"))
	p.deliver([]byte("0.5,4"))
	p.deliver([]byte("5,1\n"))

	r, err := p.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Reading{Distance: 120.5, Angle: 45, HasAngle: true, Detected: true}, r)
}

func TestBLEProvider_KeepsNewestLine(t *testing.T) {
	p, hook := newTestBLE()

	p.deliver([]byte("100\ngarbage\n200\n"))

	r, err := p.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 200.0, r.Distance)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "dropping line", hook.LastEntry().Message)
}

func TestBLEProvider_PollTimesOut(t *testing.T) {
	p, _ := newTestBLE()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := p.Poll(ctx)
	assert.ErrorIs(t, err, ErrNoReading)
	assert.NoError(t, p.Disconnect())
}
