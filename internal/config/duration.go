package config

import (
	"fmt"
	"strings"
	"time"
)

func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

// durationOr returns def for empty, zero or invalid input. Validate reports
// invalid input before a config is committed.
func durationOr(raw string, def time.Duration) time.Duration {
	d, err := ParseDurationField("", raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// PollPeriod is the sleep between cycles.
func (c *Config) PollPeriod() time.Duration {
	return durationOr(c.Poll.Period, 600*time.Second)
}

// RequestTimeout bounds one API request.
func (c *Config) RequestTimeout() time.Duration {
	return durationOr(c.API.RequestTimeout, 30*time.Second)
}

// SendTimeout bounds one delivery attempt; 0 means the notifier default.
func (c *Config) SendTimeout() time.Duration { return durationOr(c.Notifier.SendTimeout, 0) }

// DedupWindow is 0 unless duplicate suppression is configured.
func (c *Config) DedupWindow() time.Duration { return durationOr(c.Notifier.DedupWindow, 0) }

// MetricsTimeouts returns the ops server read, write and idle timeouts.
func (c *Config) MetricsTimeouts() (read, write, idle time.Duration) {
	return durationOr(c.Metrics.ReadTimeout, 5*time.Second),
		durationOr(c.Metrics.WriteTimeout, 0),
		durationOr(c.Metrics.IdleTimeout, time.Minute)
}
