package notifier

import (
	"time"

	kit "hwbot/internal/transport"
)

const (
	DefaultSendTimeout = 10 * time.Second
	// DefaultDedupCacheBytes sizes the dedup cache; freecache enforces a 512KiB floor.
	DefaultDedupCacheBytes = 512 * 1024
)

// Config controls delivery to the fixed chat.
type Config struct {
	ChatID int64

	// ChatUsername ("@channel") is used instead of ChatID when set.
	ChatUsername string

	// SendTimeout bounds a single delivery attempt.
	SendTimeout time.Duration

	// DedupWindow suppresses an identical message sent again within the window.
	// 0 disables suppression.
	DedupWindow     time.Duration
	DedupCacheBytes int
}

func (c Config) target() kit.ChatTarget {
	return kit.ChatTarget{ChatID: c.ChatID, Username: c.ChatUsername}
}
