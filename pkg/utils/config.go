package utils

import (
	"os"
	"strconv"
	"time"
)

type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTDuration time.Duration
}

func LoadAuthConfig() AuthConfig {
	secret := os.Getenv("BOOKHUB_JWT_SECRET")
	if secret == "" {
		// dev default (change for demo / production)
		secret = "dev-secret-change-me"
	}

	issuer := os.Getenv("BOOKHUB_JWT_ISSUER")
	if issuer == "" {
		issuer = "bookhub"
	}

	dur := 24 * time.Hour
	if ttl := os.Getenv("BOOKHUB_JWT_TTL_HOURS"); ttl != "" {
		if hours, err := strconv.Atoi(ttl); err == nil && hours > 0 {
			dur = time.Duration(hours) * time.Hour
		}
	}

	return AuthConfig{
		JWTSecret:   secret,
		JWTIssuer:   issuer,
		JWTDuration: dur,
	}
}

type ServerConfig struct {
	HTTPAddr   string
	FeedAddr   string
	NotifyAddr string
}

func LoadServerConfig() ServerConfig {
	return ServerConfig{
		HTTPAddr:   envOr("BOOKHUB_HTTP_ADDR", ":8080"),
		FeedAddr:   envOr("BOOKHUB_FEED_ADDR", ":7070"),
		NotifyAddr: envOr("BOOKHUB_NOTIFY_ADDR", ":7071"),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
