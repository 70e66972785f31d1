package systemd

import (
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNoSocketIsNoop(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	t.Setenv("WATCHDOG_USEC", "")

	n := New()
	if n.WatchdogInterval() != 0 {
		t.Fatalf("watchdog = %v, want 0", n.WatchdogInterval())
	}
	sent, err := n.Ready()
	if err != nil || sent {
		t.Fatalf("Ready() = %v, %v; want false, nil", sent, err)
	}
	n.Watchdog()
	n.Stopping()
}

func TestNotifySocketReceivesStates(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "notify.sock")
	conn, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: sock, Net: "unixgram"})
	if err != nil {
		t.Skipf("unixgram not available: %v", err)
	}
	defer conn.Close()

	t.Setenv("NOTIFY_SOCKET", sock)
	t.Setenv("WATCHDOG_USEC", "2000000")
	t.Setenv("WATCHDOG_PID", "")

	n := New()
	if n.WatchdogInterval() != 2*time.Second {
		t.Fatalf("watchdog = %v, want 2s", n.WatchdogInterval())
	}

	if sent, err := n.Ready(); err != nil || !sent {
		t.Fatalf("Ready() = %v, %v", sent, err)
	}
	n.Watchdog()
	n.Stopping()

	var got []string
	buf := make([]byte, 256)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for len(got) < 3 {
		k, err := conn.Read(buf)
		if err != nil {
			t.Fatalf("read: %v (got %v)", err, got)
		}
		got = append(got, string(buf[:k]))
	}
	if strings.Join(got, ",") != "READY=1,WATCHDOG=1,STOPPING=1" {
		t.Fatalf("states = %v", got)
	}
}
