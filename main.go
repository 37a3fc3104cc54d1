package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"arduino-radar.klederson.com/internal/app"
	"arduino-radar.klederson.com/internal/collector"
	"arduino-radar.klederson.com/internal/config"
	"arduino-radar.klederson.com/internal/logging"
	"arduino-radar.klederson.com/internal/radar"
	"arduino-radar.klederson.com/internal/sensor"
	"arduino-radar.klederson.com/internal/server"
	"arduino-radar.klederson.com/internal/session"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/fang"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	flagConfig    string
	flagSource    string
	flagURL       string
	flagDevice    string
	flagFade      time.Duration
	flagInterval  time.Duration
	flagLogFile   string
	flagLogLevel  string
	flagAddr      string
	flagAutostart bool
)

// sensorStack is a reading source that can also be connected.
type sensorStack interface {
	sensor.Provider
	sensor.Connector
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "arduino-radar",
		Short: "Arduino Radar - live radar and distance dashboard for an ultrasonic sensor",
		Long: `Arduino Radar reads distance measurements from an Arduino sonar and shows
them on a rotating radar display with a distance-over-time chart.

Readings come from a built-in simulator (default), another radar instance
over HTTP, or a BLE serial module. Run "serve" for the web dashboard.`,
		Version:      config.AppVersion,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "YAML config file")
	pf.StringVar(&flagSource, "source", "", "Reading source: simulate, http or ble")
	pf.StringVar(&flagURL, "url", "", "Radar endpoint polled by the http source")
	pf.StringVar(&flagDevice, "device", "", "BLE device name used by the ble source")
	pf.DurationVar(&flagFade, "fade", 0, "How long a detection stays on the radar")
	pf.DurationVar(&flagInterval, "interval", 0, "Time between readings")
	pf.StringVar(&flagLogFile, "log-file", "", "Write logs to this file")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn or error")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web dashboard and JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address")
	serveCmd.Flags().BoolVar(&flagAutostart, "autostart", false, "Connect and start collecting on launch")
	rootCmd.AddCommand(serveCmd)

	if err := fang.Execute(context.Background(), rootCmd); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies the command line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("source") {
		cfg.Sensor.Source = flagSource
	}
	if flags.Changed("url") {
		cfg.Sensor.URL = flagURL
	}
	if flags.Changed("device") {
		cfg.Sensor.Device = flagDevice
	}
	if flags.Changed("fade") {
		cfg.Radar.Fade = flagFade
	}
	if flags.Changed("interval") {
		cfg.Sensor.Interval = flagInterval
	}
	if flags.Changed("log-file") {
		cfg.Log.File = flagLogFile
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = flagLogLevel
	}
	if flags.Changed("addr") {
		cfg.Server.Addr = flagAddr
	}
	if flags.Changed("autostart") {
		cfg.Server.Autostart = flagAutostart
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newSensor(cfg *config.Config, log logrus.FieldLogger) (sensorStack, string) {
	switch cfg.Sensor.Source {
	case config.SourceHTTP:
		return sensor.NewHTTPProvider(cfg.Sensor.URL, cfg.Sensor.PollTimeout), cfg.Sensor.URL
	case config.SourceBLE:
		return sensor.NewBLEProvider(cfg.Sensor.Device, cfg.Sensor.ScanTimeout, log), cfg.Sensor.Device
	default:
		return sensor.NewSimulator(cfg.Simulation), cfg.Sensor.Source
	}
}

func runTUI(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// The terminal belongs to the dashboard; logs only go to a file.
	log, closer, err := logging.Open(cfg.Log, io.Discard)
	if err != nil {
		return err
	}
	defer closer.Close()

	src, name := newSensor(cfg, log)
	model := app.New(app.Options{
		Source:      name,
		Provider:    src,
		Connector:   src,
		Interval:    cfg.Sensor.Interval,
		PollTimeout: cfg.Sensor.PollTimeout,
		Fade:        cfg.Radar.Fade,
		SweepRPM:    cfg.Radar.SweepRPM,
		MaxDistance: cfg.Radar.MaxDistanceCM,
		Log:         log,
	})
	defer model.Shutdown()

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithContext(cmd.Context()),
		tea.WithFPS(config.TargetFPS),
	)

	_, err = p.Run()
	return err
}

func runServe(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, closer, err := logging.Open(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	src, name := newSensor(cfg, log)
	sess := session.New(cfg.Radar.MaxDistanceCM)
	sweep := radar.NewSweep(cfg.Radar.SweepRPM)

	srv := server.New(server.Options{
		Session:     sess,
		Connector:   src,
		Sweep:       sweep,
		Fade:        cfg.Radar.Fade,
		MaxDistance: cfg.Radar.MaxDistanceCM,
		Log:         log,
	})
	defer srv.Close()

	col := collector.New(src, sess, sweep, collector.Options{
		Interval:    cfg.Sensor.Interval,
		PollTimeout: cfg.Sensor.PollTimeout,
		Fade:        cfg.Radar.Fade,
		Listener:    srv,
		Log:         log,
	})

	if cfg.Server.Autostart {
		port, err := src.Connect(ctx)
		if err != nil {
			return fmt.Errorf("connect %s: %w", name, err)
		}
		sess.Connect(port)
		sess.Start()
		log.WithField("port", port).Info("collection started")
	}
	defer func() {
		if err := src.Disconnect(); err != nil {
			log.WithError(err).Debug("disconnect on shutdown")
		}
	}()

	go col.Run(ctx)

	log.WithFields(logrus.Fields{
		"addr":   cfg.Server.Addr,
		"source": cfg.Sensor.Source,
	}).Info("serving dashboard")
	return srv.Run(ctx, cfg.Server.Addr)
}
