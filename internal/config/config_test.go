package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_SMTP_PASSWORD", "s3cret")
	path := writeConfig(t, `
server:
  port: "9090"
  baseUrl: https://example.com
redis:
  addr: localhost:6379
  ttl: 1h
smtp:
  host: smtp.example.com
  port: 587
  password: ${TEST_SMTP_PASSWORD}
  from: quiz@example.com
events:
  brokers: [kafka:9092]
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "s3cret", cfg.SMTP.Password)
	assert.Equal(t, []string{"kafka:9092"}, cfg.Events.Brokers)
	assert.Equal(t, time.Hour, TTLDuration(cfg.Redis.TTL, time.Minute))
}

func TestLoadValidates(t *testing.T) {
	tests := map[string]string{
		"bad log level":       "log:\n  level: loud\n",
		"smtp without sender": "smtp:\n  host: smtp.example.com\n",
		"bad base url":        "server:\n  baseUrl: not a url\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadShippedConfig(t *testing.T) {
	_, err := Load("../../config/config.yaml")
	require.NoError(t, err)
}

func TestTTLDurationFallback(t *testing.T) {
	assert.Equal(t, 5*time.Minute, TTLDuration("", 5*time.Minute))
	assert.Equal(t, 5*time.Minute, TTLDuration("soon", 5*time.Minute))
	assert.Equal(t, 90*time.Second, TTLDuration("90s", 5*time.Minute))
}
