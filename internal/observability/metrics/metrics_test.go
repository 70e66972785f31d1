package metrics

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "hwbot/pkg/logx"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveCycle(CycleNotified)
	m.ObserveFailure("transport")
	m.ObserveNotification(NotificationSent)
	m.ObserveFetch(time.Second)
	m.SetCursor(1)
	assert.Nil(t, m.Registry())
}

func TestCounters(t *testing.T) {
	m := New()
	m.ObserveCycle(CycleNoUpdates)
	m.ObserveCycle(CycleNoUpdates)
	m.ObserveFailure("shape")
	m.ObserveNotification(NotificationFailed)
	m.SetCursor(1700000000)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cycles.WithLabelValues(CycleNoUpdates)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cycles.WithLabelValues(CycleFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("shape")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues(NotificationFailed)))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.cursor))
}

func get(t *testing.T, url, bearer string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, http.NoBody)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

func TestServerServesMetricsAndHealth(t *testing.T) {
	m := New()
	m.ObserveCycle(CycleNotified)

	srv := NewServer(ServerConfig{Enabled: true, Addr: "127.0.0.1:0"}, m, nil, logx.Nop())
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() { srv.Stop(context.Background()) })

	addr := srv.Addr()
	require.NotEmpty(t, addr)

	code, body := get(t, "http://"+addr+"/metrics", "")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, strings.Contains(body, `hwbot_poll_cycles_total{result="notified"} 1`), body)

	code, body = get(t, "http://"+addr+"/healthz", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body)

	code, _ = get(t, "http://"+addr+"/debug/pprof/", "")
	assert.Equal(t, http.StatusNotFound, code, "pprof must be opt-in")
}

func TestServerTokenAndHealthProbe(t *testing.T) {
	healthy := false
	srv := NewServer(ServerConfig{Enabled: true, Addr: "127.0.0.1:0", Token: "s3cret", Pprof: true}, New(), func() bool { return healthy }, logx.Nop())
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() { srv.Stop(context.Background()) })
	base := "http://" + srv.Addr()

	code, _ := get(t, base+"/metrics", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = get(t, base+"/metrics", "wrong")
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = get(t, base+"/metrics?token=s3cret", "")
	assert.Equal(t, http.StatusOK, code)

	code, _ = get(t, base+"/healthz", "s3cret")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	code, _ = get(t, base+"/debug/pprof/", "s3cret")
	assert.Equal(t, http.StatusOK, code)
}

func TestServerRefusesInsecureBind(t *testing.T) {
	srv := NewServer(ServerConfig{Enabled: true, Addr: "0.0.0.0:0"}, New(), nil, logx.Nop())
	err := srv.Start(context.Background())
	assert.ErrorIs(t, err, ErrInsecureBind)
	assert.Empty(t, srv.Addr())
}

func TestServerReconfigureEnableDisable(t *testing.T) {
	srv := NewServer(ServerConfig{}, New(), nil, logx.Nop())
	t.Cleanup(func() { srv.Stop(context.Background()) })
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, srv.Reconfigure(ctx, ServerConfig{Enabled: false}))
	assert.Empty(t, srv.Addr())

	require.NoError(t, srv.Reconfigure(ctx, ServerConfig{Enabled: true, Addr: "127.0.0.1:0"}))
	require.NotEmpty(t, srv.Addr())

	require.NoError(t, srv.Reconfigure(ctx, ServerConfig{Enabled: false}))
	assert.Empty(t, srv.Addr(), "server should stop when disabled")
}

func TestIsLoopbackAddr(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:9464": true,
		"localhost:1":    true,
		"[::1]:80":       true,
		":9464":          false,
		"0.0.0.0:9464":   false,
		"10.0.0.1:80":    false,
		"garbage":        false,
	}
	for addr, want := range cases {
		assert.Equal(t, want, isLoopbackAddr(addr), addr)
	}
}
