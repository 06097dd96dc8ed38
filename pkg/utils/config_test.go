package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadAuthConfig_Defaults(t *testing.T) {
	t.Setenv("BOOKHUB_JWT_SECRET", "")
	t.Setenv("BOOKHUB_JWT_ISSUER", "")
	t.Setenv("BOOKHUB_JWT_TTL_HOURS", "")

	cfg := LoadAuthConfig()
	assert.Equal(t, "dev-secret-change-me", cfg.JWTSecret)
	assert.Equal(t, "bookhub", cfg.JWTIssuer)
	assert.Equal(t, 24*time.Hour, cfg.JWTDuration)
}

func TestLoadAuthConfig_FromEnv(t *testing.T) {
	t.Setenv("BOOKHUB_JWT_SECRET", "super-secret")
	t.Setenv("BOOKHUB_JWT_ISSUER", "my-issuer")
	t.Setenv("BOOKHUB_JWT_TTL_HOURS", "2")

	cfg := LoadAuthConfig()
	assert.Equal(t, "super-secret", cfg.JWTSecret)
	assert.Equal(t, "my-issuer", cfg.JWTIssuer)
	assert.Equal(t, 2*time.Hour, cfg.JWTDuration)
}

func TestLoadAuthConfig_BadTTLFallsBack(t *testing.T) {
	t.Setenv("BOOKHUB_JWT_TTL_HOURS", "not-a-number")

	cfg := LoadAuthConfig()
	assert.Equal(t, 24*time.Hour, cfg.JWTDuration)

	t.Setenv("BOOKHUB_JWT_TTL_HOURS", "-3")
	cfg = LoadAuthConfig()
	assert.Equal(t, 24*time.Hour, cfg.JWTDuration)
}

func TestLoadServerConfig(t *testing.T) {
	t.Setenv("BOOKHUB_HTTP_ADDR", "")
	t.Setenv("BOOKHUB_FEED_ADDR", "")
	t.Setenv("BOOKHUB_NOTIFY_ADDR", "")

	cfg := LoadServerConfig()
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, ":7070", cfg.FeedAddr)
	assert.Equal(t, ":7071", cfg.NotifyAddr)

	t.Setenv("BOOKHUB_HTTP_ADDR", ":9999")
	cfg = LoadServerConfig()
	assert.Equal(t, ":9999", cfg.HTTPAddr)
}
