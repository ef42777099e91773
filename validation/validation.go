// Package validation collects field-level input errors so they can be
// reported together instead of one at a time.
package validation

import (
	"sort"
	"strings"
)

// Errors maps a field name to the reason its value was rejected.
type Errors map[string]string

// Add records msg for field. The first message recorded for a field wins.
func (e Errors) Add(field, msg string) {
	if _, ok := e[field]; ok {
		return
	}
	e[field] = msg
}

// Err returns nil when no error was recorded, so callers can write
// `return errs.Err()`.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[f])
	}
	return "invalid input: " + strings.Join(parts, "; ")
}
