package schedule

import "fmt"

// ValidationError reports a business-rule violation caught before anything
// was persisted. Saves that return it have no side effects.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return e.Reason
}
