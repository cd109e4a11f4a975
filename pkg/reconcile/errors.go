package reconcile

import (
	"errors"
	"fmt"
)

// ErrSchemaConflict indicates two field groups declared incompatible types
// for the same logical column.
var ErrSchemaConflict = errors.New("unified schema conflict")

// SourceError wraps a failure to fully read one of the three record sources.
// Reconciliation is all-or-nothing per request: any mid-iteration store error
// aborts the pass so a partial export is never presented as complete.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("record source %q unavailable: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// IsSourceUnavailable reports whether err was caused by an unreadable record source.
func IsSourceUnavailable(err error) bool {
	var se *SourceError
	return errors.As(err, &se)
}
