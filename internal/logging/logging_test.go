package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"arduino-radar.klederson.com/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("debug", &buf)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())

	log.WithField("component", "test").Debug("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "component=test")
}

func TestNewDefaultsToInfo(t *testing.T) {
	log, err := New("", &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New("loud", &bytes.Buffer{})
	assert.ErrorContains(t, err, "log level")
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "radar.log")
	log, closer, err := Open(config.LogConfig{Level: "info", File: path}, &bytes.Buffer{})
	require.NoError(t, err)

	log.Info("connected")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "connected")
}

func TestOpenFallback(t *testing.T) {
	var buf bytes.Buffer
	log, closer, err := Open(config.LogConfig{}, &buf)
	require.NoError(t, err)
	defer closer.Close()

	log.Warn("no file")
	assert.Contains(t, buf.String(), "no file")
}

func TestOpenBadPath(t *testing.T) {
	_, _, err := Open(config.LogConfig{File: filepath.Join(t.TempDir(), "missing", "x.log")}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "open log file")
}
