package recurrence

import (
	"errors"
	"fmt"
	"time"
)

// InvalidRuleError is returned when a rule fails structural validation
type InvalidRuleError struct {
	Field  string
	Reason string
}

func (e *InvalidRuleError) Error() string {
	return fmt.Sprintf("invalid recurrence rule: %s: %s", e.Field, e.Reason)
}

// ErrInvalidWindow is returned when the first occurrence ends before it starts
var ErrInvalidWindow = errors.New("occurrence end precedes start")

// IsInvalidRule reports whether err carries an InvalidRuleError
func IsInvalidRule(err error) bool {
	var ire *InvalidRuleError
	return errors.As(err, &ire)
}

// Validate checks the rule's structure. An unrecognised Type is accepted;
// expansion stops after the first occurrence for such rules.
func (r Rule) Validate() error {
	if r.Interval < 1 {
		return &InvalidRuleError{Field: "interval", Reason: fmt.Sprintf("must be at least 1, got %d", r.Interval)}
	}
	if len(r.DaysOfWeek) > 0 && len(r.DaysOfMonth) > 0 {
		return &InvalidRuleError{Field: "daysOfWeek", Reason: "cannot be combined with daysOfMonth"}
	}
	for _, d := range r.DaysOfWeek {
		if d < time.Sunday || d > time.Saturday {
			return &InvalidRuleError{Field: "daysOfWeek", Reason: fmt.Sprintf("weekday %d out of range 0-6", d)}
		}
	}
	for _, d := range r.DaysOfMonth {
		if d < 1 || d > 31 {
			return &InvalidRuleError{Field: "daysOfMonth", Reason: fmt.Sprintf("day %d out of range 1-31", d)}
		}
	}

	switch r.EndType {
	case EndNever, "":
	case EndOnDate:
		end, ok := r.EndDate.Get()
		if !ok || end.IsZero() {
			return &InvalidRuleError{Field: "endDate", Reason: "required when endType is onDate"}
		}
	case EndAfterOccurrences:
		n, ok := r.OccurrencesCount.Get()
		if !ok {
			return &InvalidRuleError{Field: "occurrencesCount", Reason: "required when endType is afterOccurrences"}
		}
		if n < 1 {
			return &InvalidRuleError{Field: "occurrencesCount", Reason: fmt.Sprintf("must be at least 1, got %d", n)}
		}
	default:
		return &InvalidRuleError{Field: "endType", Reason: fmt.Sprintf("unknown end type %q", r.EndType)}
	}
	return nil
}
