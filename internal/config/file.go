package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Source names accepted by SensorConfig.Source.
const (
	SourceSimulate = "simulate"
	SourceHTTP     = "http"
	SourceBLE      = "ble"
)

type SensorConfig struct {
	Source      string        `yaml:"source"`
	Interval    time.Duration `yaml:"interval"`
	PollTimeout time.Duration `yaml:"poll_timeout"`
	URL         string        `yaml:"url"`
	Device      string        `yaml:"device"`
	ScanTimeout time.Duration `yaml:"scan_timeout"`
}

type SimulationConfig struct {
	MinDistance  float64 `yaml:"min_distance_cm"`
	MaxDistance  float64 `yaml:"max_distance_cm"`
	DetectChance float64 `yaml:"detect_probability"`
	Port         string  `yaml:"port"`
	Seed         int64   `yaml:"seed"`
}

type RadarConfig struct {
	Fade          time.Duration `yaml:"fade"`
	SweepRPM      float64       `yaml:"sweep_rpm"`
	MaxDistanceCM float64       `yaml:"max_distance_cm"`
}

type ServerConfig struct {
	Addr      string `yaml:"addr"`
	Autostart bool   `yaml:"autostart"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Config is the top-level structure for radar.yaml.
type Config struct {
	Sensor     SensorConfig     `yaml:"sensor"`
	Simulation SimulationConfig `yaml:"simulation"`
	Radar      RadarConfig      `yaml:"radar"`
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Sensor: SensorConfig{
			Source:      SourceSimulate,
			Interval:    SampleInterval,
			PollTimeout: PollTimeout,
			ScanTimeout: BLEScanTimeout,
		},
		Simulation: SimulationConfig{
			MinDistance:  SimMinDistance,
			MaxDistance:  SimMaxDistance,
			DetectChance: SimDetectChance,
			Port:         SimPortName,
		},
		Radar: RadarConfig{
			Fade:          DefaultFade,
			SweepRPM:      SweepSpeedRPM,
			MaxDistanceCM: MaxDistanceCM,
		},
		Server: ServerConfig{
			Addr: DefaultAddr,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML file on top of the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Sensor.Source {
	case SourceSimulate:
	case SourceHTTP:
		if c.Sensor.URL == "" {
			return errors.New("sensor.url is required for the http source")
		}
	case SourceBLE:
		if c.Sensor.Device == "" {
			return errors.New("sensor.device is required for the ble source")
		}
	default:
		return fmt.Errorf("unknown sensor source %q", c.Sensor.Source)
	}
	if c.Sensor.Interval <= 0 {
		return fmt.Errorf("sensor.interval must be positive, got %s", c.Sensor.Interval)
	}
	if c.Sensor.PollTimeout <= 0 {
		return fmt.Errorf("sensor.poll_timeout must be positive, got %s", c.Sensor.PollTimeout)
	}
	if c.Radar.Fade <= 0 {
		return fmt.Errorf("radar.fade must be positive, got %s", c.Radar.Fade)
	}
	if c.Radar.MaxDistanceCM <= 0 {
		return fmt.Errorf("radar.max_distance_cm must be positive, got %g", c.Radar.MaxDistanceCM)
	}
	if c.Radar.SweepRPM < 0 {
		return fmt.Errorf("radar.sweep_rpm must not be negative, got %g", c.Radar.SweepRPM)
	}
	s := c.Simulation
	if s.MinDistance < 0 || s.MaxDistance <= s.MinDistance {
		return fmt.Errorf("simulation distance range [%g, %g] is invalid", s.MinDistance, s.MaxDistance)
	}
	if s.MaxDistance > c.Radar.MaxDistanceCM {
		return fmt.Errorf("simulation.max_distance_cm %g exceeds radar.max_distance_cm %g", s.MaxDistance, c.Radar.MaxDistanceCM)
	}
	if s.DetectChance < 0 || s.DetectChance > 1 {
		return fmt.Errorf("simulation.detect_probability must be within [0, 1], got %g", s.DetectChance)
	}
	return nil
}
