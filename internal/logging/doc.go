// Package logging builds slog loggers with console and JSON output and
// provides typed attribute helpers shared across the codebase.
//
// Components obtain a scoped logger via NewComponentLogger so every record
// carries a component attribute. Field keys that appear in structured output
// are centralized in fields.go to keep log queries stable.
package logging
