package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8083, cfg.Port)
	assert.Equal(t, ":8083", cfg.Addr())
	assert.Equal(t, "vexa.events", cfg.AMQPExchange)
	assert.Equal(t, "vexa-service", cfg.ServiceName)
	assert.Equal(t, 256, cfg.WSSendBuffer)
	assert.Equal(t, 10*time.Second, cfg.WSWriteWait)
	assert.Equal(t, 60*time.Second, cfg.WSPongWait)
	assert.Equal(t, int64(65536), cfg.WSMaxMessageBytes)
	assert.False(t, cfg.EnforceSenderIdentity)
	assert.Empty(t, cfg.DatabaseDSN)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("ENFORCE_SENDER_IDENTITY", "true")
	t.Setenv("WS_PONG_WAIT", "5s")
	t.Setenv("APP_ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.True(t, cfg.EnforceSenderIdentity)
	assert.Equal(t, 5*time.Second, cfg.WSPongWait)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("PORT", "not-a-port")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsPresenceTTLBelowPingPeriod(t *testing.T) {
	t.Setenv("PRESENCE_TTL", "30s")
	t.Setenv("WS_PONG_WAIT", "60s")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsZeroSendBuffer(t *testing.T) {
	t.Setenv("WS_SEND_BUFFER", "0")
	_, err := Load()
	assert.Error(t, err)
}
