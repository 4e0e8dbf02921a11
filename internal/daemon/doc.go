// Package daemon coordinates the long-running shelfmark process: it owns the
// catalog store, enforces single-instance execution via a file lock, and
// serves the HTTP JSON API that the CLI and other clients talk to.
package daemon
