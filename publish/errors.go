package publish

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSchemaValidation marks documents rejected by their schema
var ErrSchemaValidation = errors.New("document failed schema validation")

// ValidationError describes a rejected document and where its payload was quarantined
type ValidationError struct {
	Path           string
	Schema         string
	QuarantinePath string
	Problems       []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s against %s (quarantined at %s): %s",
		e.Path, ErrSchemaValidation, e.Schema, e.QuarantinePath, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrSchemaValidation
}
