package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/example/meeting-calendar/internal/scheduler"
)

// PolicyFile is the on-disk form of the calendar policy.
type PolicyFile struct {
	// Rooms is the bookable room pool, in listing order.
	Rooms []string `yaml:"rooms"`

	// BusinessHours bounds every meeting, as "HH:MM" in the configured zone.
	BusinessHours struct {
		Open  string `yaml:"open"`
		Close string `yaml:"close"`
	} `yaml:"business_hours"`
}

// LoadPolicy reads a YAML policy file. An empty path yields the default
// policy. Missing fields fall back to their defaults.
func LoadPolicy(path string) (scheduler.Policy, error) {
	if strings.TrimSpace(path) == "" {
		return scheduler.DefaultPolicy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return scheduler.Policy{}, fmt.Errorf("read policy file: %w", err)
	}
	policy, err := ParsePolicy(data)
	if err != nil {
		return scheduler.Policy{}, fmt.Errorf("policy file %s: %w", path, err)
	}
	return policy, nil
}

// ParsePolicy decodes and validates a YAML policy document.
func ParsePolicy(data []byte) (scheduler.Policy, error) {
	var file PolicyFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return scheduler.Policy{}, fmt.Errorf("decode policy: %w", err)
	}

	policy := scheduler.DefaultPolicy()
	if len(file.Rooms) > 0 {
		policy.Rooms = file.Rooms
	}
	if file.BusinessHours.Open != "" {
		open, err := parseClock(file.BusinessHours.Open)
		if err != nil {
			return scheduler.Policy{}, fmt.Errorf("business_hours.open: %w", err)
		}
		policy.Open = open
	}
	if file.BusinessHours.Close != "" {
		closing, err := parseClock(file.BusinessHours.Close)
		if err != nil {
			return scheduler.Policy{}, fmt.Errorf("business_hours.close: %w", err)
		}
		policy.Close = closing
	}

	if err := policy.Validate(); err != nil {
		return scheduler.Policy{}, err
	}
	return policy, nil
}

func parseClock(value string) (time.Duration, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%q is not HH:MM", value)
	}
	return time.Duration(parsed.Hour())*time.Hour + time.Duration(parsed.Minute())*time.Minute, nil
}
