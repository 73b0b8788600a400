package aggregate

import (
	"errors"
	"fmt"

	"enip/models"
)

// ErrUncategorizable is wrapped by every CategorizationError
var ErrUncategorizable = errors.New("uncategorizable result")

// CategorizationError reports a record whose level, office or reporting unit
// does not map onto any summary shape
type CategorizationError struct {
	ElexID string
	State  string
	Level  models.Level
	Office models.Office
	Reason string
}

func (e *CategorizationError) Error() string {
	return fmt.Sprintf("uncategorizable result %s (%s %s %s): %s", e.ElexID, e.State, e.Level, e.Office, e.Reason)
}

func (e *CategorizationError) Unwrap() error {
	return ErrUncategorizable
}

func uncategorizable(rec models.ResultRecord, format string, args ...any) error {
	return &CategorizationError{
		ElexID: rec.ElexID,
		State:  rec.StatePostal,
		Level:  rec.Level,
		Office: rec.OfficeID,
		Reason: fmt.Sprintf(format, args...),
	}
}
