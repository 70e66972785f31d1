package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks values that the decoder cannot: duration strings, the
// endpoint URL and the log level.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error

	if ep := strings.TrimSpace(cfg.API.Endpoint); ep != "" {
		u, err := url.Parse(ep)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("api.endpoint: %w", err))
		case u.Scheme != "http" && u.Scheme != "https", u.Host == "":
			errs = append(errs, fmt.Errorf("api.endpoint: %q must be an absolute http(s) URL", ep))
		}
	}

	durations := []struct{ path, raw string }{
		{"api.request_timeout", cfg.API.RequestTimeout},
		{"poll.period", cfg.Poll.Period},
		{"notifier.send_timeout", cfg.Notifier.SendTimeout},
		{"notifier.dedup_window", cfg.Notifier.DedupWindow},
		{"metrics.read_timeout", cfg.Metrics.ReadTimeout},
		{"metrics.write_timeout", cfg.Metrics.WriteTimeout},
		{"metrics.idle_timeout", cfg.Metrics.IdleTimeout},
	}
	for _, d := range durations {
		if _, err := ParseDurationField(d.path, d.raw); err != nil {
			errs = append(errs, err)
		}
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Level)) {
	case "", "trace", "debug", "info", "warn", "warning", "error", "critical", "fatal":
	default:
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", cfg.Logging.Level))
	}

	return errors.Join(errs...)
}
