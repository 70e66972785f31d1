package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	json "github.com/goccy/go-json"

	logx "hwbot/pkg/logx"
)

// validateTimeout bounds the external validator during a reload.
const validateTimeout = 5 * time.Second

// ConfigManager owns the current Config and publishes accepted reloads to
// subscribers.
type ConfigManager struct {
	path string
	log  logx.Logger

	mu     sync.RWMutex
	cfg    *Config
	digest uint64

	validator func(ctx context.Context, cfg *Config) error

	// subsMu is held while sending so Unsubscribe never closes a channel
	// mid-send.
	subsMu sync.Mutex
	subs   map[chan *Config]struct{}
}

// NewConfigManager manages the file at path. An empty path means defaults only.
func NewConfigManager(path string) *ConfigManager {
	return &ConfigManager{
		path: strings.TrimSpace(path),
		subs: make(map[chan *Config]struct{}),
	}
}

func (m *ConfigManager) Path() string { return m.path }

func (m *ConfigManager) SetLogger(log logx.Logger) { m.log = log }

// SetValidator adds a check that a reloaded config must pass before it is
// committed. Load does not call it.
func (m *ConfigManager) SetValidator(fn func(ctx context.Context, cfg *Config) error) {
	m.validator = fn
}

// Parse reads the file on top of Default(). A missing file yields the defaults;
// any other read or decode error is returned.
func (m *ConfigManager) Parse() (*Config, error) {
	cfg := Default()
	if m.path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(m.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return cfg, nil
	case err != nil:
		return nil, err
	}

	body, format, err := coerceToJSONBytes(m.path, raw)
	if err != nil {
		return nil, err
	}
	if body = bytes.TrimSpace(body); len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return cfg, nil
	}
	if err := decodeStrict(body, cfg); err != nil {
		return nil, fmt.Errorf("%s config %s: %w", format, m.path, err)
	}
	return cfg, nil
}

// decodeStrict rejects unknown keys and anything after the first document.
func decodeStrict(body []byte, into *Config) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(into); err != nil {
		return err
	}
	var extra json.RawMessage
	switch err := dec.Decode(&extra); {
	case errors.Is(err, io.EOF):
		return nil
	case err != nil:
		return err
	default:
		return errors.New("trailing data after config document")
	}
}

// Load parses, validates and commits the config.
func (m *ConfigManager) Load() (*Config, error) {
	cfg, err := m.Parse()
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	m.Commit(cfg)
	return cfg, nil
}

func (m *ConfigManager) Commit(cfg *Config) {
	d := digest(cfg)
	m.mu.Lock()
	m.cfg, m.digest = cfg, d
	m.mu.Unlock()
}

func (m *ConfigManager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *ConfigManager) sameAsCommitted(d uint64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return d != 0 && d == m.digest
}

// digest fingerprints the decoded config, so formatting-only edits are ignored.
func digest(cfg *Config) uint64 {
	if cfg == nil {
		return 0
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		return 0
	}
	return xxhash.Sum64(b)
}

// Subscribe returns a channel receiving every accepted reload. A slow
// subscriber loses older updates, never the latest.
func (m *ConfigManager) Subscribe(buffer int) chan *Config {
	ch := make(chan *Config, max(buffer, 1))
	m.subsMu.Lock()
	m.subs[ch] = struct{}{}
	m.subsMu.Unlock()
	return ch
}

// Unsubscribe detaches and closes ch.
func (m *ConfigManager) Unsubscribe(ch chan *Config) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	if _, ok := m.subs[ch]; ok {
		delete(m.subs, ch)
		close(ch)
	}
}

func (m *ConfigManager) publish(cfg *Config) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for ch := range m.subs {
		if !offerLatest(ch, cfg) {
			m.log.Debug("config update dropped (subscriber slow)", logx.Int("queue_cap", cap(ch)))
		}
	}
}

// offerLatest sends cfg, evicting one queued item if the buffer is full.
func offerLatest(ch chan *Config, cfg *Config) bool {
	for attempt := 0; attempt < 2; attempt++ {
		select {
		case ch <- cfg:
			return true
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
	return false
}

// reload re-reads the file and publishes it when the content changed and every
// check accepts it.
func (m *ConfigManager) reload(ctx context.Context) {
	log := m.log.With(logx.String("path", m.path))

	cfg, err := m.Parse()
	if err != nil {
		log.Warn("config parse failed", logx.Err(err))
		return
	}
	d := digest(cfg)
	if m.sameAsCommitted(d) {
		log.Debug("config unchanged; skipping publish")
		return
	}
	if err := m.check(ctx, cfg); err != nil {
		log.Warn("config rejected", logx.Err(err))
		return
	}

	m.Commit(cfg)
	m.publish(cfg)
	log.Debug("config published", logx.String("digest", fmt.Sprintf("%016x", d)))
}

func (m *ConfigManager) check(ctx context.Context, cfg *Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	if m.validator == nil {
		return nil
	}
	vctx, cancel := context.WithTimeout(ctx, validateTimeout)
	defer cancel()
	return m.validator(vctx, cfg)
}
