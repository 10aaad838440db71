package series

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cyp0633/calseries/server/storage"
)

// ErrNotOwner is returned when a user acts on a record created by someone else
var ErrNotOwner = errors.New("not the creator of this record")

// StoreError wraps a persistence failure with the operation that caused it
type StoreError struct {
	Op  string
	ID  string
	Err error
}

func (e *StoreError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("series store: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("series store: %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err means the requested record does not exist
func IsNotFound(err error) bool {
	return storage.IsNotFound(err)
}

func notFound(what, id string) error {
	return &storage.Error{Type: storage.ErrNotFound, Message: fmt.Sprintf("%s %s not found", what, id)}
}

// OccurrenceFailure is one occurrence that could not be deleted
type OccurrenceFailure struct {
	OccurrenceID string `json:"occurrenceId"`
	Err          error  `json:"-"`
}

// DeleteError aggregates the per-occurrence failures of a series deletion
type DeleteError struct {
	SeriesID string
	Total    int
	Failures []OccurrenceFailure
}

func (e *DeleteError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = fmt.Sprintf("%s: %v", f.OccurrenceID, f.Err)
	}
	return fmt.Sprintf("delete series %s: %d of %d occurrences failed: %s",
		e.SeriesID, len(e.Failures), e.Total, strings.Join(msgs, "; "))
}

func (e *DeleteError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// GenerationLimitWarning signals that the safety cap truncated a series.
// It is informational; the series was still created.
type GenerationLimitWarning struct {
	SeriesID  string `json:"seriesId"`
	Limit     int    `json:"limit"`
	Generated int    `json:"generated"`
}

func (w GenerationLimitWarning) String() string {
	return fmt.Sprintf("series %s truncated at %d occurrences", w.SeriesID, w.Limit)
}
