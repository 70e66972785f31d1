package app

import (
	"errors"
	"net"
	"strings"

	"hwbot/internal/config"
	"hwbot/internal/notifier"
	"hwbot/internal/observability/metrics"
	"hwbot/internal/practicum"
	logx "hwbot/pkg/logx"
)

func mapLoggingConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapPracticumConfig(cfg *config.Config, creds config.Credentials) practicum.Config {
	return practicum.Config{
		Endpoint: strings.TrimSpace(cfg.API.Endpoint),
		Token:    creds.PracticumToken,
		Timeout:  cfg.RequestTimeout(),
	}
}

func mapNotifierConfig(cfg *config.Config, creds config.Credentials) notifier.Config {
	return notifier.Config{
		ChatID:       creds.ChatID,
		ChatUsername: creds.ChatUsername,
		SendTimeout:  cfg.SendTimeout(),
		DedupWindow:  cfg.DedupWindow(),
	}
}

func mapMetricsConfig(cfg *config.Config) metrics.ServerConfig {
	read, write, idle := cfg.MetricsTimeouts()
	return metrics.ServerConfig{
		Enabled:       cfg.Metrics.Enabled,
		Addr:          strings.TrimSpace(cfg.Metrics.Addr),
		Token:         strings.TrimSpace(cfg.Metrics.Token),
		AllowInsecure: cfg.Metrics.AllowInsecure,
		Pprof:         cfg.Metrics.Pprof,
		ReadTimeout:   read,
		WriteTimeout:  write,
		IdleTimeout:   idle,
	}
}

// validateMetricsConfig rejects an ops server config that would refuse to
// start, so a hot reload can't silently take /metrics down.
func validateMetricsConfig(cfg *config.Config) error {
	mc := mapMetricsConfig(cfg)
	if !mc.Enabled {
		return nil
	}
	addr := mc.Addr
	if addr == "" {
		addr = metrics.DefaultAddr
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return errors.New("metrics.addr: " + err.Error())
	}
	if mc.Token != "" || mc.AllowInsecure {
		return nil
	}
	if ip := net.ParseIP(host); strings.EqualFold(host, "localhost") || (ip != nil && ip.IsLoopback()) {
		return nil
	}
	return errors.New("metrics.addr: non-loopback bind requires metrics.token or metrics.allow_insecure")
}
