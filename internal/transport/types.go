package transport

import (
	"context"
	"strconv"
)

// ChatTarget addresses a Telegram chat. A non-empty Username ("@channel")
// takes precedence over ChatID.
type ChatTarget struct {
	ChatID   int64
	Username string
}

func (t ChatTarget) String() string {
	if t.Username != "" {
		return t.Username
	}
	return strconv.FormatInt(t.ChatID, 10)
}

// MessageRef identifies a delivered message.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

// Sender delivers outbound text messages.
type Sender interface {
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
}
