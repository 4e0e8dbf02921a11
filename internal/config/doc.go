// Package config loads, validates, and normalizes the TOML configuration
// consumed by the daemon and CLI.
//
// Configuration resolves from an explicit path, ~/.config/shelfmark/config.toml,
// or ./shelfmark.toml, in that order. Defaults apply for every omitted value so
// a missing file still yields a runnable configuration (with upstream providers
// disabled until configured).
package config
