// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"os"
	"strconv"
)

// Storage mode selectors. Evaluated once at startup, never per request.
const (
	StorageLocal      = "local"
	StorageS3         = "s3"
	StorageLocalStack = "localstack"
)

// Config holds every recognized setting for the service.
type Config struct {
	Addr        string
	DatabaseDSN string

	// SessionSecret signs the session cookie. The process refuses to start
	// without it.
	SessionSecret string
	Production    bool

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	StorageType        string
	AWSRegion          string
	S3Bucket           string
	AWSEndpointURL     string
	AWSAccessKeyID     string
	AWSSecretAccessKey string

	LocalTranscriptsPath string
	TranscriptsBasePath  string
	TranscriptsJSONLKey  string

	AdminEmail    string
	AdminPassword string
}

// Load builds a Config from the environment, applying development defaults.
func Load() (*Config, error) {
	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		return nil, errors.New("SESSION_SECRET must be set")
	}

	cfg := &Config{
		Addr:          envOr("LISTEN_ADDR", ":8080"),
		DatabaseDSN:   os.Getenv("DATABASE_URL"),
		SessionSecret: secret,
		Production:    os.Getenv("APP_ENV") == "production",

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: envIntOr("SMTP_PORT", 587),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		SMTPFrom: os.Getenv("SMTP_FROM"),

		StorageType:        envOr("STORAGE_TYPE", StorageLocal),
		AWSRegion:          envOr("AWS_REGION", "us-east-1"),
		S3Bucket:           os.Getenv("AWS_S3_BUCKET"),
		AWSEndpointURL:     os.Getenv("AWS_ENDPOINT_URL"),
		AWSAccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),

		LocalTranscriptsPath: envOr("LOCAL_TRANSCRIPTS_PATH", "./public/audio/transcripts"),
		TranscriptsBasePath:  envOr("TRANSCRIPTS_BASE_PATH", "audio/transcripts"),
		TranscriptsJSONLKey:  envOr("TRANSCRIPTS_JSONL_KEY", "audio/transcripts/transcriptions.jsonl"),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}
	if cfg.SMTPFrom == "" {
		cfg.SMTPFrom = cfg.SMTPUser
	}

	switch cfg.StorageType {
	case StorageLocal, StorageS3, StorageLocalStack:
	default:
		return nil, errors.New("STORAGE_TYPE must be one of local, s3, localstack")
	}
	if cfg.StorageType != StorageLocal && cfg.S3Bucket == "" {
		return nil, errors.New("AWS_S3_BUCKET is required for S3 storage")
	}

	return cfg, nil
}

// SMTPConfigured reports whether outbound email can be attempted at all.
func (c *Config) SMTPConfigured() bool {
	return c.SMTPHost != "" && c.SMTPUser != "" && c.SMTPPass != ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
