// Package systemd reports service state to systemd through the sd_notify
// protocol. Outside a systemd unit (no NOTIFY_SOCKET) every call is a no-op.
package systemd

import (
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Notifier sends readiness and watchdog messages.
type Notifier struct {
	watchdog time.Duration
}

// New reads WATCHDOG_USEC once. An error from the environment disables the
// watchdog rather than failing startup.
func New() *Notifier {
	d, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		d = 0
	}
	return &Notifier{watchdog: d}
}

// WatchdogInterval is the unit's WatchdogSec, 0 when disabled.
func (n *Notifier) WatchdogInterval() time.Duration {
	if n == nil {
		return 0
	}
	return n.watchdog
}

// Ready sends READY=1. sent is false when not running under systemd.
func (n *Notifier) Ready() (sent bool, err error) {
	return daemon.SdNotify(false, daemon.SdNotifyReady)
}

// Watchdog sends WATCHDOG=1 when the unit has a watchdog configured.
func (n *Notifier) Watchdog() {
	if n.WatchdogInterval() <= 0 {
		return
	}
	_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
}

// Stopping sends STOPPING=1.
func (n *Notifier) Stopping() {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
}
