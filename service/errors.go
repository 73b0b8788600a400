package service

import (
	"fmt"
	"sort"
	"strings"
)

// ExportError summarises the geographies that failed in one export pass
type ExportError struct {
	IngestID int64
	Failures map[string]error
}

// Paths returns the failed document paths in sorted order
func (e *ExportError) Paths() []string {
	paths := make([]string, 0, len(e.Failures))
	for p := range e.Failures {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export of ingest run %d failed for %d geographies: %s",
		e.IngestID, len(e.Failures), strings.Join(e.Paths(), ", "))
}

func (e *ExportError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, p := range e.Paths() {
		errs = append(errs, e.Failures[p])
	}
	return errs
}
