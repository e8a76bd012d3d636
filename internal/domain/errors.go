package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoData signals that the provider had no events for a query (HTTP 204).
// It is distinct from a successful query that matched zero events.
var ErrNoData = errors.New("no earthquake data available")

// ValidationError reports perception fields that are missing or invalid.
type ValidationError struct {
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "missing or invalid fields"
	}
	return fmt.Sprintf("%s: %s", reason, strings.Join(e.Fields, ", "))
}
