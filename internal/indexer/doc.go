// Package indexer implements the upstream release-search client. It speaks
// the Prowlarr v1 search API, parses release titles into title/author/
// narrator fields, and memoizes recent queries so repeated searches do not
// hammer the upstream service.
package indexer
