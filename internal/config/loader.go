package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
)

// Transport names accepted by CALENDAR_TRANSPORT.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
	TransportBoth  = "both"
)

const startTimeLayout = "2006-01-02T15:04:05"

// Config captures environment driven configuration values for the calendar service.
type Config struct {
	SQLitePath   string
	PolicyFile   string
	StartTime    time.Time
	Location     *time.Location
	HTTPAddr     string
	Transport    string
	LogLevel     slog.Level
	OTelEndpoint string
}

type rawEnv struct {
	SQLitePath   string `env:"CALENDAR_SQLITE_PATH"   envDefault:"calendar.db"`
	PolicyFile   string `env:"CALENDAR_POLICY_FILE"`
	StartTime    string `env:"CALENDAR_START_TIME"`
	Timezone     string `env:"CALENDAR_TIMEZONE"      envDefault:"UTC"`
	HTTPAddr     string `env:"CALENDAR_HTTP_ADDR"     envDefault:":8080"`
	Transport    string `env:"CALENDAR_TRANSPORT"     envDefault:"stdio"`
	LogLevel     string `env:"CALENDAR_LOG_LEVEL"     envDefault:"info"`
	OTelEndpoint string `env:"CALENDAR_OTEL_ENDPOINT"`
}

// Load parses configuration values from the current process environment.
//
// Defaults apply for every unset variable. Invalid values are collected and
// reported together so a misconfigured deployment fails with one message.
func Load() (Config, error) {
	return LoadWithOverrides(nil)
}

// LoadWithOverrides behaves like Load but lets overrides, keyed by
// environment variable name, take precedence over the process environment.
// Command line flags use it to win over the environment.
func LoadWithOverrides(overrides map[string]string) (Config, error) {
	environment := env.ToMap(os.Environ())
	for key, value := range overrides {
		environment[key] = value
	}

	var raw rawEnv
	if err := env.ParseWithOptions(&raw, env.Options{Environment: environment}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return raw.resolve()
}

func (raw rawEnv) resolve() (Config, error) {
	cfg := Config{
		SQLitePath:   strings.TrimSpace(raw.SQLitePath),
		PolicyFile:   strings.TrimSpace(raw.PolicyFile),
		HTTPAddr:     strings.TrimSpace(raw.HTTPAddr),
		Transport:    strings.ToLower(strings.TrimSpace(raw.Transport)),
		OTelEndpoint: strings.TrimSpace(raw.OTelEndpoint),
	}

	invalid := make([]string, 0, 4)

	if cfg.SQLitePath == "" {
		invalid = append(invalid, "CALENDAR_SQLITE_PATH")
	}

	loc, err := time.LoadLocation(strings.TrimSpace(raw.Timezone))
	if err != nil {
		invalid = append(invalid, "CALENDAR_TIMEZONE")
		loc = time.UTC
	}
	cfg.Location = loc

	if value := strings.TrimSpace(raw.StartTime); value != "" {
		start, err := time.ParseInLocation(startTimeLayout, value, loc)
		if err != nil {
			invalid = append(invalid, "CALENDAR_START_TIME")
		} else {
			cfg.StartTime = start
		}
	}

	switch cfg.Transport {
	case TransportStdio, TransportHTTP, TransportBoth:
	default:
		invalid = append(invalid, "CALENDAR_TRANSPORT")
	}

	if cfg.Transport != TransportStdio && cfg.HTTPAddr == "" {
		invalid = append(invalid, "CALENDAR_HTTP_ADDR")
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(strings.TrimSpace(raw.LogLevel))); err != nil {
		invalid = append(invalid, "CALENDAR_LOG_LEVEL")
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("%w: %s", ErrInvalidEnvironment, strings.Join(invalid, ", "))
	}
	return cfg, nil
}

// ErrInvalidEnvironment reports environment variables holding unusable values.
var ErrInvalidEnvironment = errors.New("invalid environment values")

// ServeStdio reports whether the MCP server should run over stdio.
func (c Config) ServeStdio() bool {
	return c.Transport == TransportStdio || c.Transport == TransportBoth
}

// ServeHTTP reports whether the HTTP API should be started.
func (c Config) ServeHTTP() bool {
	return c.Transport == TransportHTTP || c.Transport == TransportBoth
}

// InitialTime returns the configured virtual start time, or the wall clock
// truncated to the second when none was set.
func (c Config) InitialTime(now time.Time) time.Time {
	if !c.StartTime.IsZero() {
		return c.StartTime
	}
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	wall := now.In(loc)
	return time.Date(wall.Year(), wall.Month(), wall.Day(), wall.Hour(), wall.Minute(), wall.Second(), 0, loc)
}
