package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvPracticumToken = "PRACTICUM_TOKEN"
	EnvTelegramToken  = "TELEGRAM_TOKEN"
	EnvTelegramChatID = "TELEGRAM_CHAT_ID"

	DefaultEnvFile = ".env"
)

var (
	ErrMissingCredentials = errors.New("missing required environment variables")
	ErrInvalidChatID      = errors.New("invalid " + EnvTelegramChatID)
)

// Credentials are the secrets the bot needs. They only ever come from the
// process environment.
type Credentials struct {
	PracticumToken string
	TelegramToken  string

	// Exactly one of ChatID and ChatUsername is set.
	ChatID       int64
	ChatUsername string
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment.
// Variables that are already set win. A missing file is not an error; loaded
// reports whether the file was read.
func LoadEnvFile(path string) (loaded bool, err error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return false, nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err := godotenv.Load(path); err != nil {
		return false, fmt.Errorf("load %s: %w", path, err)
	}
	return true, nil
}

// LoadCredentials reads the three secrets through lookup (os.LookupEnv when
// nil). The error names every variable that is absent or empty.
func LoadCredentials(lookup func(string) (string, bool)) (Credentials, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	c := Credentials{
		PracticumToken: get(EnvPracticumToken),
		TelegramToken:  get(EnvTelegramToken),
	}
	chat := get(EnvTelegramChatID)

	var missing []string
	for _, kv := range [][2]string{
		{EnvPracticumToken, c.PracticumToken},
		{EnvTelegramToken, c.TelegramToken},
		{EnvTelegramChatID, chat},
	} {
		if kv[1] == "" {
			missing = append(missing, kv[0])
		}
	}
	if len(missing) > 0 {
		return Credentials{}, fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}

	if id, err := strconv.ParseInt(chat, 10, 64); err == nil {
		c.ChatID = id
		return c, nil
	}
	if name, ok := strings.CutPrefix(chat, "@"); ok && validChatUsername(name) {
		c.ChatUsername = chat
		return c, nil
	}
	return Credentials{}, fmt.Errorf("%w: %q is neither a numeric id nor an @username", ErrInvalidChatID, chat)
}

// Chat returns the chat identifier as configured, for logs.
func (c Credentials) Chat() string {
	if c.ChatUsername != "" {
		return c.ChatUsername
	}
	return strconv.FormatInt(c.ChatID, 10)
}

// validChatUsername follows Telegram's rules: 5-32 characters of letters,
// digits and underscores, starting with a letter.
func validChatUsername(name string) bool {
	if len(name) < 5 || len(name) > 32 {
		return false
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '_'):
		default:
			return false
		}
	}
	return true
}
