package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment variable read by LoadEnv.
const EnvPrefix = "DATAPREP"

// Env holds process-level settings. Command-line flags override these.
type Env struct {
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat      string `envconfig:"LOG_FORMAT" default:"text"`
	MetricsBackend string `envconfig:"METRICS_BACKEND" default:"none"`
	PushgatewayURL string `envconfig:"PUSHGATEWAY_URL" default:"http://localhost:9091"`
	MetricsTags    string `envconfig:"METRICS_TAGS"`
	DSN            string `envconfig:"DSN"`
	Workers        int    `envconfig:"WORKERS" default:"1"`
}

// LoadEnv reads DATAPREP_* variables.
func LoadEnv() (Env, error) {
	var e Env
	if err := envconfig.Process(EnvPrefix, &e); err != nil {
		return Env{}, fmt.Errorf("load env: %w", err)
	}
	if e.Workers < 1 {
		e.Workers = 1
	}
	return e, nil
}

// SlogLevel maps LogLevel to a slog.Level; unknown values mean info.
func (e Env) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(e.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
