package config

// Config is the on-disk configuration (JSON or YAML). Secrets are never read
// from this file; see LoadCredentials.
//
// All durations are Go duration strings (e.g. "500ms", "30s", "10m").
type Config struct {
	API      APIConfig      `json:"api"`
	Poll     PollConfig     `json:"poll"`
	Logging  LoggingConfig  `json:"logging"`
	Notifier NotifierConfig `json:"notifier"`
	Metrics  MetricsConfig  `json:"metrics"`
}

// APIConfig is read once at startup; changes require a restart.
type APIConfig struct {
	Endpoint       string `json:"endpoint"`
	RequestTimeout string `json:"request_timeout"`
}

type PollConfig struct {
	// Period is the sleep between cycles. Hot-reloadable.
	Period string `json:"period"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// NotifierConfig controls delivery to the chat.
//
// Defaults (when fields are omitted/zero):
//   - send_timeout: "10s"
//   - dedup_window: "0s" (every message is sent, including repeats)
type NotifierConfig struct {
	SendTimeout string `json:"send_timeout,omitempty"`
	DedupWindow string `json:"dedup_window,omitempty"`
}

// MetricsConfig controls the optional ops HTTP server (/metrics, /healthz,
// /debug/pprof/).
//
// Security note:
//   - Prefer binding to localhost (e.g. "127.0.0.1:9464").
//   - If you bind to a non-loopback address, set a token or explicitly allow_insecure.
type MetricsConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"`  // default: "127.0.0.1:9464"
	Token         string `json:"token,omitempty"` // optional bearer token (do not log)
	AllowInsecure bool   `json:"allow_insecure,omitempty"`
	Pprof         bool   `json:"pprof,omitempty"`

	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`
}

const (
	DefaultPeriod         = "600s"
	DefaultRequestTimeout = "30s"
	DefaultLogLevel       = "info"
	DefaultLogFile        = "homework.log"
)

// Default is the configuration used when no file exists. Parse decodes on top
// of it, so omitted keys keep these values.
func Default() *Config {
	return &Config{
		API:  APIConfig{RequestTimeout: DefaultRequestTimeout},
		Poll: PollConfig{Period: DefaultPeriod},
		Logging: LoggingConfig{
			Level:   DefaultLogLevel,
			Console: true,
			File:    LoggingFile{Enabled: true, Path: DefaultLogFile},
		},
	}
}
