package recurrence

import (
	"encoding/json"
	"time"

	"github.com/samber/mo"
)

// Frequency is the unit a rule repeats in
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

// IsValid reports whether the frequency is one the engine can step
func (f Frequency) IsValid() bool {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// EndType selects how a series terminates
type EndType string

const (
	EndNever            EndType = "never"
	EndOnDate           EndType = "onDate"
	EndAfterOccurrences EndType = "afterOccurrences"
)

// Rule describes how an event repeats.
//
// DaysOfWeek is only consulted for weekly rules and DaysOfMonth only for
// monthly rules. EndDate is meaningful iff EndType is EndOnDate, and
// OccurrencesCount iff EndType is EndAfterOccurrences.
type Rule struct {
	Type             Frequency
	Interval         int
	DaysOfWeek       []time.Weekday
	DaysOfMonth      []int
	EndType          EndType
	EndDate          mo.Option[time.Time]
	OccurrencesCount mo.Option[int]
}

// ruleJSON is the wire form of Rule. Absent optionals are omitted, never null.
type ruleJSON struct {
	Type             Frequency      `json:"type"`
	Interval         int            `json:"interval"`
	DaysOfWeek       []time.Weekday `json:"daysOfWeek,omitempty"`
	DaysOfMonth      []int          `json:"daysOfMonth,omitempty"`
	EndType          EndType        `json:"endType"`
	EndDate          *time.Time     `json:"endDate,omitempty"`
	OccurrencesCount *int           `json:"occurrencesCount,omitempty"`
}

func (r Rule) MarshalJSON() ([]byte, error) {
	w := ruleJSON{
		Type:        r.Type,
		Interval:    r.Interval,
		DaysOfWeek:  r.DaysOfWeek,
		DaysOfMonth: r.DaysOfMonth,
		EndType:     r.EndType,
	}
	if v, ok := r.EndDate.Get(); ok {
		w.EndDate = &v
	}
	if v, ok := r.OccurrencesCount.Get(); ok {
		w.OccurrencesCount = &v
	}
	return json.Marshal(w)
}

func (r *Rule) UnmarshalJSON(data []byte) error {
	var w ruleJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = Rule{
		Type:        w.Type,
		Interval:    w.Interval,
		DaysOfWeek:  w.DaysOfWeek,
		DaysOfMonth: w.DaysOfMonth,
		EndType:     w.EndType,
	}
	if w.EndDate != nil {
		r.EndDate = mo.Some(*w.EndDate)
	}
	if w.OccurrencesCount != nil {
		r.OccurrencesCount = mo.Some(*w.OccurrencesCount)
	}
	return nil
}

// Window is the start/end pair of a single occurrence
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns end minus start
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// StopReason records why expansion ended
type StopReason string

const (
	StopEndDate         StopReason = "end_date"
	StopCount           StopReason = "count"
	StopLimit           StopReason = "limit"
	StopUnsupportedType StopReason = "unsupported_type"
)

// Result is the output of one expansion
type Result struct {
	Windows []Window   `json:"windows"`
	Reason  StopReason `json:"reason"`
}

// Truncated reports whether the safety cap cut the sequence short
func (r Result) Truncated() bool {
	return r.Reason == StopLimit
}

func (r Result) clone() Result {
	windows := make([]Window, len(r.Windows))
	copy(windows, r.Windows)
	return Result{Windows: windows, Reason: r.Reason}
}
