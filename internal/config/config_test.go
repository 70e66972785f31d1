package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestParseMissingFileUsesDefaults(t *testing.T) {
	m := NewConfigManager(filepath.Join(t.TempDir(), "absent.json"))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PollPeriod() != 600*time.Second {
		t.Fatalf("period = %v, want 600s", cfg.PollPeriod())
	}
	if cfg.RequestTimeout() != 30*time.Second {
		t.Fatalf("request timeout = %v, want 30s", cfg.RequestTimeout())
	}
	if !cfg.Logging.File.Enabled || cfg.Logging.File.Path != DefaultLogFile {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if cfg.DedupWindow() != 0 {
		t.Fatalf("dedup must be off by default, got %v", cfg.DedupWindow())
	}
	if m.Get() != cfg {
		t.Fatal("Load should commit the config")
	}
}

func TestParseJSONKeepsDefaultsForOmittedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeFile(t, path, `{"poll": {"period": "5m"}, "notifier": {"dedup_window": "1h"}}`)

	cfg, err := NewConfigManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PollPeriod() != 5*time.Minute {
		t.Fatalf("period = %v", cfg.PollPeriod())
	}
	if cfg.DedupWindow() != time.Hour {
		t.Fatalf("dedup = %v", cfg.DedupWindow())
	}
	if cfg.Logging.Level != DefaultLogLevel || !cfg.Logging.Console {
		t.Fatalf("logging defaults lost: %+v", cfg.Logging)
	}
}

func TestParseYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, `
api:
  endpoint: https://example.test/api/
  request_timeout: 5s
logging:
  level: debug
  file:
    enabled: false
metrics:
  enabled: true
  addr: 127.0.0.1:0
  pprof: true
`)
	cfg, err := NewConfigManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.Endpoint != "https://example.test/api/" || cfg.RequestTimeout() != 5*time.Second {
		t.Fatalf("unexpected api: %+v", cfg.API)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.File.Enabled {
		t.Fatalf("unexpected logging: %+v", cfg.Logging)
	}
	if !cfg.Metrics.Enabled || !cfg.Metrics.Pprof {
		t.Fatalf("unexpected metrics: %+v", cfg.Metrics)
	}
}

func TestParseRejectsUnknownFieldsAndTrailingData(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"unknown.json":  `{"poll": {"period": "1m", "jitter": "1s"}}`,
		"trailing.json": `{"poll": {"period": "1m"}} {}`,
		"unknown.yaml":  "telegram:\n  token: x\n",
	}
	for name, body := range cases {
		path := filepath.Join(dir, name)
		writeFile(t, path, body)
		if _, err := NewConfigManager(path).Parse(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	cfg.Poll.Period = "soon"
	cfg.API.Endpoint = "practicum"
	cfg.Logging.Level = "loud"
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"poll.period", "api.endpoint", "logging.level"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q should mention %s", err, want)
		}
	}

	if _, err := NewConfigManager("").Load(); err != nil {
		t.Fatalf("empty path should load defaults: %v", err)
	}
}

func TestLoadCredentials(t *testing.T) {
	env := map[string]string{
		EnvPracticumToken: "p",
		EnvTelegramToken:  "t",
		EnvTelegramChatID: "-100123",
	}
	lookup := func(k string) (string, bool) { v, ok := env[k]; return v, ok }

	c, err := LoadCredentials(lookup)
	if err != nil {
		t.Fatalf("LoadCredentials: %v", err)
	}
	if c.PracticumToken != "p" || c.TelegramToken != "t" || c.ChatID != -100123 {
		t.Fatalf("unexpected credentials: %+v", c)
	}

	if c.Chat() != "-100123" {
		t.Fatalf("Chat() = %q", c.Chat())
	}

	env[EnvTelegramChatID] = "@hw_channel"
	c, err = LoadCredentials(lookup)
	if err != nil {
		t.Fatalf("LoadCredentials with @username: %v", err)
	}
	if c.ChatUsername != "@hw_channel" || c.ChatID != 0 || c.Chat() != "@hw_channel" {
		t.Fatalf("unexpected credentials: %+v", c)
	}

	for _, bad := range []string{"hw_channel", "@abc", "@1channel", "@bad-name", "12ab"} {
		env[EnvTelegramChatID] = bad
		if _, err := LoadCredentials(lookup); !errors.Is(err, ErrInvalidChatID) {
			t.Fatalf("%q: expected ErrInvalidChatID, got %v", bad, err)
		}
	}
}

func TestLoadCredentialsNamesEveryMissingVariable(t *testing.T) {
	_, err := LoadCredentials(func(string) (string, bool) { return "", false })
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
	for _, k := range []string{EnvPracticumToken, EnvTelegramToken, EnvTelegramChatID} {
		if !strings.Contains(err.Error(), k) {
			t.Fatalf("error %q should name %s", err, k)
		}
	}

	_, err = LoadCredentials(func(k string) (string, bool) {
		if k == EnvTelegramToken {
			return "  ", true
		}
		return "1", true
	})
	if err == nil || !strings.Contains(err.Error(), EnvTelegramToken) || strings.Contains(err.Error(), EnvPracticumToken) {
		t.Fatalf("only the blank variable should be reported, got %v", err)
	}
}

func TestLoadEnvFileRealEnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	writeFile(t, path, "HWBOT_TEST_FROM_FILE=file\nHWBOT_TEST_OVERRIDE=file\n")
	t.Setenv("HWBOT_TEST_OVERRIDE", "env")
	t.Cleanup(func() { _ = os.Unsetenv("HWBOT_TEST_FROM_FILE") })

	loaded, err := LoadEnvFile(path)
	if err != nil || !loaded {
		t.Fatalf("LoadEnvFile = %v, %v", loaded, err)
	}
	if got := os.Getenv("HWBOT_TEST_FROM_FILE"); got != "file" {
		t.Fatalf("HWBOT_TEST_FROM_FILE = %q", got)
	}
	if got := os.Getenv("HWBOT_TEST_OVERRIDE"); got != "env" {
		t.Fatalf("real env must win, got %q", got)
	}

	loaded, err = LoadEnvFile(filepath.Join(t.TempDir(), "nope.env"))
	if err != nil || loaded {
		t.Fatalf("missing env file should be skipped, got %v, %v", loaded, err)
	}
}

func TestSummarizeConfigChangeHidesToken(t *testing.T) {
	oldCfg := Default()
	newCfg := Default()
	newCfg.Poll.Period = "1m"
	newCfg.Metrics.Token = "super-secret"

	changed, attrs := SummarizeConfigChange(oldCfg, newCfg)
	if strings.Join(changed, ",") != "poll,metrics" {
		t.Fatalf("changed = %v", changed)
	}
	if len(attrs) == 0 {
		t.Fatal("expected attrs")
	}

	same, _ := SummarizeConfigChange(newCfg, newCfg)
	if len(same) != 0 {
		t.Fatalf("identical configs should report nothing, got %v", same)
	}
}

func TestWatchPublishesValidChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeFile(t, path, `{"poll": {"period": "10m"}}`)

	m := NewConfigManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Watch(ctx)
	}()

	// Invalid content is rejected, then a valid change is published. Keep
	// rewriting until the watcher is up and the update arrives.
	writeFile(t, path, `{"poll": {"period": "often"}}`)
	tick := time.NewTicker(300 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case cfg := <-ch:
			if cfg.PollPeriod() != 2*time.Minute {
				t.Fatalf("published period = %v, want 2m", cfg.PollPeriod())
			}
			cancel()
			<-done
			return
		case <-tick.C:
			writeFile(t, path, `{"poll": {"period": "2m"}}`)
		case <-ctx.Done():
			t.Fatal("no config published")
		}
	}
}
