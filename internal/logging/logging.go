package logging

import (
	"fmt"
	"io"
	"os"

	"arduino-radar.klederson.com/internal/config"
	"github.com/sirupsen/logrus"
)

// New builds a logger writing text records to out.
func New(level string, out io.Writer) (*logrus.Logger, error) {
	lvl := logrus.InfoLevel
	if level != "" {
		var err error
		lvl, err = logrus.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
	}
	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
		DisableColors:   out != os.Stderr,
	})
	return log, nil
}

// Open builds the logger described by cfg. Without a file, records go to
// fallback. The returned closer releases the file, if any.
func Open(cfg config.LogConfig, fallback io.Writer) (*logrus.Logger, io.Closer, error) {
	out := fallback
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out, closer = f, f
	}
	log, err := New(cfg.Level, out)
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}
	return log, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
