package logger

import (
	"testing"

	"github.com/gunther-tgbot-go/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerParsesLevel(t *testing.T) {
	cfg := &config.LoggingConfig{Level: "debug", Format: "json", Output: "stdout"}

	log, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	cfg := &config.LoggingConfig{Level: "loud", Output: "stdout"}

	_, err := NewLogger(cfg)
	assert.Error(t, err)
}

func TestWithUserAddsUserField(t *testing.T) {
	log := logrus.New()

	entry := WithUser(log, 42)
	assert.Equal(t, int64(42), entry.Data["user_id"])
}
