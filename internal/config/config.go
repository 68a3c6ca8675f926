// Package config reads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the process-level configuration. Per-job options arrive with
// each upload instead.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string

	// Bucket is the S3 bucket artifacts are published to.
	Bucket string

	// GeminiAPIKey enables captioning and narrative synthesis. Empty runs
	// the pipeline degraded: sentinel captions, no screenplay.
	GeminiAPIKey string

	// WhisperBin is the whisper executable path.
	WhisperBin string

	// URLTTL is the lifetime of presigned artifact URLs.
	URLTTL time.Duration
}

// Load reads configuration from the environment. FRAMEFORGE_BUCKET is the
// only required variable.
func Load() (*Config, error) {
	cfg := &Config{
		Addr:         envOr("FRAMEFORGE_ADDR", ":8080"),
		Bucket:       os.Getenv("FRAMEFORGE_BUCKET"),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		WhisperBin:   envOr("FRAMEFORGE_WHISPER_BIN", "whisper"),
		URLTTL:       60 * time.Minute,
	}

	if cfg.Bucket == "" {
		return nil, fmt.Errorf("FRAMEFORGE_BUCKET must be set")
	}

	if raw := os.Getenv("FRAMEFORGE_URL_TTL_MINUTES"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes <= 0 {
			return nil, fmt.Errorf("FRAMEFORGE_URL_TTL_MINUTES must be a positive integer, got %q", raw)
		}
		cfg.URLTTL = time.Duration(minutes) * time.Minute
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
