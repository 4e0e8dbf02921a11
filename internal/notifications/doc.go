// Package notifications delivers catalog events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Per-event toggles let operators silence categories they do not
// care about without losing the rest.
package notifications
