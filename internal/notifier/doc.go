// Package notifier delivers status messages to the configured chat.
//
// Delivery is synchronous and best-effort: a failed send is logged with
// kind=delivery and reported to the caller as a false result, never as an
// error. The poll loop therefore cannot fail because the chat itself is
// unreachable.
//
// # Duplicate suppression
//
// With a non-zero dedup window the service remembers a hash of each delivered
// message in a freecache cache and skips an identical message until the window
// expires. The window is 0 by default, so every attempt reaches the chat.
package notifier
