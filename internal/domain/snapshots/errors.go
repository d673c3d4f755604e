package snapshots

import (
	"errors"
	"fmt"
)

// ErrNotFound reports that no snapshot was ever computed for a domain and
// use case, even after date fallback.
var ErrNotFound = errors.New("no reliability data for domain and use case")

// ValidationError reports malformed caller input. It is surfaced with a
// specific message and never logged as a server fault.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}
