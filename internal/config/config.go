package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the trex server.
type Config struct {
	Port      int
	Version   string
	Upstream  UpstreamConfig
	Artifacts ArtifactsConfig
	Telemetry TelemetryConfig
}

// UpstreamConfig points at the external experiment translation service.
type UpstreamConfig struct {
	BaseURL string
	Timeout time.Duration
}

// ArtifactsConfig locates run image artifacts on disk.
type ArtifactsConfig struct {
	Dir string
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:    envInt("TREX_PORT", 5000),
		Version: envStr("TREX_VERSION", "0.1.0"),
		Upstream: UpstreamConfig{
			BaseURL: envStr("TREX_UPSTREAM_URL", "http://localhost:8000"),
			Timeout: envDuration("TREX_UPSTREAM_TIMEOUT", 60*time.Second),
		},
		Artifacts: ArtifactsConfig{
			Dir: envStr("TREX_ARTIFACTS_DIR", "artifacts"),
		},
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", false),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "trex-server"),
		},
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
