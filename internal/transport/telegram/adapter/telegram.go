package adapter

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	kit "hwbot/internal/transport"
	logx "hwbot/pkg/logx"
)

const defaultTimeout = 15 * time.Second

var ErrEmptyToken = errors.New("telegram token is empty")

// Config configures the Telegram sender. APIURL overrides the Bot API base URL.
type Config struct {
	Token   string
	APIURL  string
	Timeout time.Duration
}

// Adapter is an outbound-only Telegram client. It never polls for updates.
type Adapter struct {
	bot *tele.Bot
	log logx.Logger
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, ErrEmptyToken
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	// Offline skips getMe, so a bad token shows up as a failed send rather than
	// a startup error.
	bot, err := tele.NewBot(tele.Settings{
		URL:     strings.TrimSpace(cfg.APIURL),
		Token:   token,
		Client:  &http.Client{Timeout: timeout},
		Offline: true,
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Adapter{bot: bot, log: log}, nil
}

// SendText delivers text, split into several messages when it is too long.
// The returned ref points at the first message.
func (a *Adapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	var o kit.SendOptions
	if opt != nil {
		o = *opt
	}
	sendOpts := &tele.SendOptions{ParseMode: o.ParseMode, DisableWebPagePreview: o.DisablePreview}
	chunks := chunkText(text, maxMessageRunes, strings.EqualFold(o.ParseMode, tele.ModeHTML))

	ref := kit.MessageRef{ChatID: to.ChatID}
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return ref, err
		}
		msg, err := a.bot.Send(recipient(to), chunk, sendOpts)
		if err != nil {
			return ref, err
		}
		if i == 0 {
			ref.MessageID = msg.ID
		}
	}
	if len(chunks) > 1 {
		a.log.Debug("message split", logx.Int("chunks", len(chunks)), logx.String("chat", to.String()))
	}
	return ref, nil
}

// username is a public chat addressed by "@name".
type username string

func (u username) Recipient() string { return string(u) }

func recipient(to kit.ChatTarget) tele.Recipient {
	if to.Username != "" {
		return username(to.Username)
	}
	return tele.ChatID(to.ChatID)
}
