package app

import (
	"context"
	"fmt"
	"time"

	"arduino-radar.klederson.com/internal/collector"
	"arduino-radar.klederson.com/internal/config"
	"arduino-radar.klederson.com/internal/radar"
	"arduino-radar.klederson.com/internal/sensor"
	"arduino-radar.klederson.com/internal/session"
	"arduino-radar.klederson.com/internal/timeseries"
	"arduino-radar.klederson.com/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
)

// Options configures the terminal dashboard.
type Options struct {
	Source      string // Shown in the menu bar
	Provider    sensor.Provider
	Connector   sensor.Connector // Optional; without one Connect succeeds at once
	Interval    time.Duration
	PollTimeout time.Duration
	Fade        time.Duration
	SweepRPM    float64
	MaxDistance float64
	Log         logrus.FieldLogger
	Now         func() time.Time
}

// shared holds state shared between the Bubble Tea model copies and main.go.
// Because Bubble Tea uses value receivers, pointer fields ensure all copies
// see the same underlying data.
type shared struct {
	ctx       context.Context
	cancel    context.CancelFunc
	sess      *session.Session
	sweep     *radar.Sweep
	collector *collector.Collector
	conn      sensor.Connector
	charts    *timeseries.Renderer
	events    *EventLog
	log       logrus.FieldLogger
}

// AppModel is the root Bubble Tea model for the radar dashboard.
type AppModel struct {
	width  int
	height int

	source      string
	interval    time.Duration
	fade        time.Duration
	maxDistance float64
	now         func() time.Time

	// Bumped whenever collection starts or stops so in-flight polls from
	// an earlier run are discarded.
	gen          int
	connecting   bool
	chartVersion uint64
	hasChart     bool

	shared *shared

	// Cached snapshot
	snap session.Snapshot
}

// New creates a new AppModel.
func New(opts Options) AppModel {
	if opts.Interval <= 0 {
		opts.Interval = config.SampleInterval
	}
	if opts.Fade <= 0 {
		opts.Fade = config.DefaultFade
	}
	if opts.SweepRPM <= 0 {
		opts.SweepRPM = config.SweepSpeedRPM
	}
	if opts.MaxDistance <= 0 {
		opts.MaxDistance = config.MaxDistanceCM
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("component", "tui")

	sess := session.New(opts.MaxDistance)
	sweep := radar.NewSweep(opts.SweepRPM)
	ctx, cancel := context.WithCancel(context.Background())

	return AppModel{
		source:      opts.Source,
		interval:    opts.Interval,
		fade:        opts.Fade,
		maxDistance: opts.MaxDistance,
		now:         opts.Now,
		snap:        sess.Snapshot(),
		shared: &shared{
			ctx:    ctx,
			cancel: cancel,
			sess:   sess,
			sweep:  sweep,
			collector: collector.New(opts.Provider, sess, sweep, collector.Options{
				Interval:    opts.Interval,
				PollTimeout: opts.PollTimeout,
				Fade:        opts.Fade,
				Log:         log,
				Now:         opts.Now,
			}),
			conn:   opts.Connector,
			charts: timeseries.NewRenderer(),
			events: NewEventLog(config.EventLogSize),
			log:    log,
		},
	}
}

// Session exposes the dashboard state.
func (m AppModel) Session() *session.Session {
	return m.shared.sess
}

// Events exposes the on-screen event log.
func (m AppModel) Events() *EventLog {
	return m.shared.events
}

func (m AppModel) Init() tea.Cmd {
	return frameCmd()
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case FrameMsg:
		m.refresh()
		return m, frameCmd()

	case ConnectedMsg:
		m.connecting = false
		if msg.Err != nil {
			m.logf(ui.LevelError, "connect failed: %v", msg.Err)
			m.shared.log.WithError(msg.Err).Warn("connect failed")
			return m, nil
		}
		m.shared.sess.Connect(msg.Port)
		m.logf(ui.LevelInfo, "connected to %s", msg.Port)
		m.shared.log.WithField("port", msg.Port).Info("connected")
		m.refresh()
		return m, nil

	case DisconnectedMsg:
		if msg.Err != nil {
			m.logf(ui.LevelWarn, "disconnect: %v", msg.Err)
			m.shared.log.WithError(msg.Err).Warn("disconnect")
		}
		return m, nil

	case SampleTickMsg:
		if msg.gen != m.gen || !m.shared.sess.Collecting() {
			return m, nil
		}
		return m, pollCmd(m.shared.ctx, m.shared.collector, msg.gen)

	case SampleMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		return m.applySample(msg.Result)
	}

	return m, nil
}

func (m AppModel) applySample(res collector.Result) (tea.Model, tea.Cmd) {
	ev, recorded, err := m.shared.collector.Apply(res)
	if res.Canceled {
		return m, nil
	}
	if err != nil {
		m.logf(ui.LevelError, "%v", err)
		m.refresh()
		return m, nil
	}
	if recorded && ev.Detected {
		m.logf(ui.LevelDetect, "object at %.0fdeg, %.1f cm", ev.Angle, ev.Sample.Distance)
	}
	m.refresh()
	if !m.shared.sess.Collecting() {
		return m, nil
	}
	return m, sampleTickCmd(m.interval, m.gen)
}

func (m AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sess := m.shared.sess

	switch msg.String() {
	case "q", "Q", "ctrl+c":
		m.Shutdown()
		return m, tea.Quit

	case "c", "C":
		if m.snap.Connected || m.connecting {
			return m, nil
		}
		m.connecting = true
		m.logf(ui.LevelInfo, "connecting to %s", m.source)
		return m, connectCmd(m.shared.ctx, m.shared.conn, m.source)

	case "d", "D":
		if !m.snap.Connected {
			return m, nil
		}
		m.gen++
		sess.Disconnect()
		m.logf(ui.LevelInfo, "disconnected")
		m.refresh()
		return m, disconnectCmd(m.shared.conn)

	case "s", "S":
		if sess.Collecting() {
			return m, nil
		}
		if !sess.Start() {
			m.logf(ui.LevelWarn, "connect before starting collection")
			return m, nil
		}
		m.gen++
		m.logf(ui.LevelInfo, "collection started")
		m.refresh()
		return m, pollCmd(m.shared.ctx, m.shared.collector, m.gen)

	case "p", "P":
		if !sess.Collecting() {
			return m, nil
		}
		m.gen++
		sess.Stop()
		m.logf(ui.LevelInfo, "collection stopped")
		m.refresh()

	case "x", "X":
		sess.Clear()
		m.logf(ui.LevelInfo, "data cleared")
		m.refresh()
	}

	return m, nil
}

// refresh advances the sweep, drops faded points and rebuilds the chart when
// the data changed.
func (m *AppModel) refresh() {
	now := m.now()
	m.shared.sweep.Update()
	m.shared.sess.Prune(now, m.fade)
	m.snap = m.shared.sess.Snapshot()
	if !m.hasChart || m.snap.Version != m.chartVersion {
		m.shared.charts.Update(m.snap.Samples, m.snap.Detected)
		m.chartVersion = m.snap.Version
		m.hasChart = true
	}
}

func (m *AppModel) logf(level, format string, args ...any) {
	m.shared.events.Addf(m.now(), level, format, args...)
}

// Shutdown cancels in-flight polls, closes the device link and releases the
// chart.
func (m AppModel) Shutdown() {
	m.shared.cancel()
	if m.shared.conn != nil {
		if err := m.shared.conn.Disconnect(); err != nil {
			m.shared.log.WithError(err).Debug("disconnect on shutdown")
		}
	}
	m.shared.charts.Close()
}

func (m AppModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing Arduino Radar..."
	}

	menuH := 1
	statusH := 1
	chartH := max((m.height-menuH-statusH)/3, 6)
	bodyH := max(m.height-menuH-statusH-chartH, 8)

	radarW := max(m.width*3/5, 30)
	sideW := m.width - radarW
	if sideW < 24 {
		sideW = 24
		radarW = max(m.width-sideW, 10)
	}

	menuBar := ui.RenderMenuBar(m.width, m.source, m.snap.Connected, m.snap.Collecting)

	innerW := max(radarW-4, 5)
	innerH := max(bodyH-3, 3)
	surf := radar.NewCellSurface(innerW, innerH)
	cw, ch := surf.ContainerSize()
	radar.Render(surf, cw, ch, radar.Frame{
		Angle:  m.shared.sweep.Degrees(),
		Points: m.snap.Points,
		Fade:   m.fade,
		Now:    m.now(),
	}, radar.TerminalStyle())
	legend := radar.RenderLegend(innerW, m.maxDistance, m.fade)
	radarPanel := ui.RenderRadarPanel(radarW, bodyH, surf.String(), legend)

	infoH := min(bodyH, 17)
	logPanel := ""
	if bodyH-infoH >= 5 {
		logPanel = ui.RenderLogPanel(m.shared.events.Entries(), sideW, bodyH-infoH)
	} else {
		infoH = bodyH
	}
	infoPanel := ui.RenderInfoPanel(m.snap, m.now(), m.shared.sweep.Degrees(), sideW, infoH)

	chartPanel := ui.RenderChartPanel(m.width, chartH, "DISTANCE (cm)", m.chartText(m.width-4, chartH-3))

	statusBar := ui.RenderStatusBar(m.width, m.snap.Status, len(m.snap.Samples), len(m.snap.Points),
		m.shared.sweep.Degrees(), m.maxDistance, m.fade)

	return ui.ComposeLayout(menuBar, radarPanel, infoPanel, logPanel, chartPanel, statusBar)
}

func (m AppModel) chartText(width, height int) string {
	chart := m.shared.charts.Current()
	if chart == nil || chart.PointCount() == 0 {
		return ui.StyleHelp.Render(" no data")
	}
	text, err := chart.Text(width, height)
	if err != nil {
		return ui.StyleHelp.Render(fmt.Sprintf(" %v", err))
	}
	return text
}

func frameCmd() tea.Cmd {
	return tea.Tick(time.Second/config.TargetFPS, func(t time.Time) tea.Msg {
		return FrameMsg(t)
	})
}

func sampleTickCmd(interval time.Duration, gen int) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return SampleTickMsg{gen: gen}
	})
}

func pollCmd(ctx context.Context, c *collector.Collector, gen int) tea.Cmd {
	return func() tea.Msg {
		return SampleMsg{Result: c.Poll(ctx), gen: gen}
	}
}

func connectCmd(ctx context.Context, conn sensor.Connector, fallback string) tea.Cmd {
	return func() tea.Msg {
		if conn == nil {
			return ConnectedMsg{Port: fallback}
		}
		port, err := conn.Connect(ctx)
		return ConnectedMsg{Port: port, Err: err}
	}
}

func disconnectCmd(conn sensor.Connector) tea.Cmd {
	return func() tea.Msg {
		if conn == nil {
			return DisconnectedMsg{}
		}
		return DisconnectedMsg{Err: conn.Disconnect()}
	}
}
