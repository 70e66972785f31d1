package config

import (
	"strings"

	logx "hwbot/pkg/logx"
)

// SummarizeConfigChange returns (1) a compact list of changed sections and
// (2) safe structured attrs for logging (never includes secrets like tokens).
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 5)
	attrs := make([]logx.Field, 0, 16)
	trim := strings.TrimSpace

	// API (restart required; reported so the operator notices)
	if trim(oldCfg.API.Endpoint) != trim(newCfg.API.Endpoint) ||
		trim(oldCfg.API.RequestTimeout) != trim(newCfg.API.RequestTimeout) {
		changed = append(changed, "api")
		attrs = append(attrs,
			logx.String("api.endpoint", trim(newCfg.API.Endpoint)),
			logx.String("api.request_timeout", trim(newCfg.API.RequestTimeout)),
			logx.Bool("api.restart_required", true),
		)
	}

	if trim(oldCfg.Poll.Period) != trim(newCfg.Poll.Period) {
		changed = append(changed, "poll")
		attrs = append(attrs, logx.String("poll.period", trim(newCfg.Poll.Period)))
	}

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
			logx.String("logx.file_path", trim(newCfg.Logging.File.Path)),
		)
	}

	if trim(oldCfg.Notifier.SendTimeout) != trim(newCfg.Notifier.SendTimeout) ||
		trim(oldCfg.Notifier.DedupWindow) != trim(newCfg.Notifier.DedupWindow) {
		changed = append(changed, "notifier")
		attrs = append(attrs,
			logx.String("notifier.send_timeout", trim(newCfg.Notifier.SendTimeout)),
			logx.String("notifier.dedup_window", trim(newCfg.Notifier.DedupWindow)),
		)
	}

	// Metrics (never log token)
	om, nm := oldCfg.Metrics, newCfg.Metrics
	tokenSetChanged := (trim(om.Token) != "") != (trim(nm.Token) != "")
	om.Token, nm.Token = "", ""
	if om != nm || tokenSetChanged {
		changed = append(changed, "metrics")
		attrs = append(attrs,
			logx.Bool("metrics.enabled", nm.Enabled),
			logx.String("metrics.addr", trim(nm.Addr)),
			logx.Bool("metrics.pprof", nm.Pprof),
			logx.Bool("metrics.token_set", trim(newCfg.Metrics.Token) != ""),
			logx.Bool("metrics.allow_insecure", nm.AllowInsecure),
		)
	}

	return changed, attrs
}
