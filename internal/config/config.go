package config

import (
	"errors"
	"os"
	"strings"
)

type Config struct {
	HTTPAddr  string
	PublicURL string

	DBDriver string
	DBDSN    string

	// Server-only secrets. RandomizationSecret seeds per-participant
	// question shuffles, TokenSecret derives link tokens, RealtimeSecret
	// signs dashboard stream JWTs. None of them ever reach a client.
	RandomizationSecret string
	TokenSecret         string
	RealtimeSecret      string

	EmailDriver string // smtp|log
	EmailFrom   string
	SMTPAddr    string
	SMTPUser    string
	SMTPPass    string

	AdminUser     string
	AdminPassHash string // bcrypt

	CORSOrigins []string
}

func FromEnv() Config {
	pub := strings.TrimSuffix(envOr("PUBLIC_URL", "http://localhost:3000"), "/")
	return Config{
		HTTPAddr:  envOr("HTTP_ADDR", ":8080"),
		PublicURL: pub,

		DBDriver: envOr("DB_DRIVER", "sqlite"),
		DBDSN:    envOr("DB_DSN", ""),

		RandomizationSecret: os.Getenv("RANDOMIZATION_SECRET"),
		TokenSecret:         os.Getenv("TOKEN_SECRET"),
		RealtimeSecret:      os.Getenv("REALTIME_JWT_SECRET"),

		EmailDriver: envOr("EMAIL_DRIVER", "log"),
		EmailFrom:   envOr("EMAIL_FROM", "Operating Strengths <assessments@localhost>"),
		SMTPAddr:    envOr("SMTP_ADDR", "localhost:587"),
		SMTPUser:    os.Getenv("SMTP_USER"),
		SMTPPass:    os.Getenv("SMTP_PASS"),

		AdminUser:     envOr("ADMIN_USER", "admin"),
		AdminPassHash: os.Getenv("ADMIN_PASS_HASH"),

		CORSOrigins: csvOr("CORS_ORIGINS", "http://localhost:3000"),
	}
}

// Validate rejects a deployment that cannot serve its core flows.
// Secrets are established at process start and never mutated afterward.
func (c Config) Validate() error {
	if strings.TrimSpace(c.TokenSecret) == "" {
		return errors.New("TOKEN_SECRET is required for token derivation")
	}
	if strings.TrimSpace(c.RandomizationSecret) == "" {
		return errors.New("RANDOMIZATION_SECRET is required for question shuffling")
	}
	if strings.TrimSpace(c.RealtimeSecret) == "" {
		return errors.New("REALTIME_JWT_SECRET is required for dashboard streams")
	}
	return nil
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
