package notifier

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/coocood/freecache"

	"hwbot/internal/homework"
	"hwbot/internal/observability/metrics"
	kit "hwbot/internal/transport"
	logx "hwbot/pkg/logx"
)

const op = "send message"

var ErrNoSender = errors.New("notifier has no sender")

// Service is safe for concurrent use.
type Service struct {
	mu      sync.Mutex
	cfg     Config
	sender  kit.Sender
	log     logx.Logger
	metrics *metrics.Metrics

	dedup *freecache.Cache
}

func New(cfg Config, sender kit.Sender, log logx.Logger, m *metrics.Metrics) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{sender: sender, log: log, metrics: m}
	s.applyLocked(cfg)
	return s
}

// Apply swaps the runtime config. Shrinking the window to 0 drops remembered
// messages.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.applyLocked(cfg)
	s.mu.Unlock()
}

func (s *Service) applyLocked(cfg Config) {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultSendTimeout
	}
	if cfg.DedupWindow < 0 {
		cfg.DedupWindow = 0
	}
	if cfg.DedupCacheBytes <= 0 {
		cfg.DedupCacheBytes = DefaultDedupCacheBytes
	}

	switch {
	case cfg.DedupWindow == 0:
		s.dedup = nil
	case s.dedup == nil || cfg.DedupCacheBytes != s.cfg.DedupCacheBytes:
		s.dedup = freecache.NewCache(cfg.DedupCacheBytes)
	}
	s.cfg = cfg
}

// Send attempts delivery of text to the configured chat and reports whether it
// reached the chat. Failures are logged, never returned.
func (s *Service) Send(ctx context.Context, text string) bool {
	s.mu.Lock()
	cfg := s.cfg
	cache := s.dedup
	s.mu.Unlock()

	to := cfg.target()
	log := s.log.With(logx.String("chat", to.String()))

	if strings.TrimSpace(text) == "" {
		log.Warn("empty message not sent")
		return false
	}

	key := dedupKey(to, text)
	if cache != nil {
		if _, err := cache.Get(key); err == nil {
			s.metrics.ObserveNotification(metrics.NotificationSuppressed)
			log.Debug("duplicate message suppressed", logx.Duration("window", cfg.DedupWindow))
			return false
		}
	}

	if err := s.deliver(ctx, cfg, text); err != nil {
		s.metrics.ObserveNotification(metrics.NotificationFailed)
		err = homework.Wrap(homework.KindDelivery, op, err)
		log.Error("message delivery failed",
			logx.String("kind", homework.KindOf(err).String()),
			logx.Err(err),
		)
		return false
	}

	if cache != nil {
		_ = cache.Set(key, []byte{1}, windowSeconds(cfg.DedupWindow))
	}
	s.metrics.ObserveNotification(metrics.NotificationSent)
	log.Info("message sent", logx.String("text", text))
	return true
}

func (s *Service) deliver(ctx context.Context, cfg Config, text string) error {
	if s.sender == nil {
		return ErrNoSender
	}
	if ctx == nil {
		ctx = context.Background()
	}
	callCtx, cancel := context.WithTimeout(ctx, cfg.SendTimeout)
	defer cancel()
	_, err := s.sender.SendText(callCtx, cfg.target(), text, nil)
	return err
}

func dedupKey(to kit.ChatTarget, text string) []byte {
	d := xxhash.New()
	_, _ = d.WriteString(to.String())
	_, _ = d.WriteString("|")
	_, _ = d.WriteString(text)
	return strconv.AppendUint(nil, d.Sum64(), 16)
}

// freecache expires in whole seconds; partial seconds round up.
func windowSeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}
