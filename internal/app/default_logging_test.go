package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hwbot/internal/config"
	"hwbot/internal/notifier"
	"hwbot/internal/poller"
	kit "hwbot/internal/transport"
	logx "hwbot/pkg/logx"
)

type staticFetcher struct{ body string }

func (f staticFetcher) Statuses(context.Context, int64) (any, error) {
	var body any
	err := json.Unmarshal([]byte(f.body), &body)
	return body, err
}

type okSender struct{}

func (okSender) SendText(_ context.Context, to kit.ChatTarget, _ string, _ *kit.SendOptions) (kit.MessageRef, error) {
	return kit.MessageRef{ChatID: to.ChatID, MessageID: 1}, nil
}

func TestDefaultLoggingRecordsRoutineEvents(t *testing.T) {
	cfg := config.Default()
	logPath := filepath.Join(t.TempDir(), "homework.log")
	cfg.Logging.File.Path = logPath

	logs, log := logx.New(mapLoggingConfig(cfg))
	notif := notifier.New(notifier.Config{ChatID: 42}, okSender{}, log.With(logx.String("comp", "notifier")), nil)
	loop := poller.New(poller.Config{}, staticFetcher{body: `{"homeworks": [], "current_date": 1700000000}`},
		notif, log.With(logx.String("comp", "poller")), nil)

	ctx := context.Background()
	require.NoError(t, loop.RunCycle(ctx))
	assert.Equal(t, int64(1700000000), loop.Cursor())
	assert.True(t, notif.Send(ctx, "hello"))
	require.NoError(t, logs.Close())

	b, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"message":"no new statuses"`)
	assert.Contains(t, string(b), `"message":"message sent"`)
}
