package recurrence

import (
	"fmt"
	"time"

	"github.com/emersion/go-ical"
)

// ExtractRuleFromComponent reads the RRULE of an iCal component. The boolean
// is false when the component does not recur.
func ExtractRuleFromComponent(comp *ical.Component) (Rule, bool, error) {
	prop := comp.Props.Get(ical.PropRecurrenceRule)
	if prop == nil || prop.Value == "" {
		return Rule{}, false, nil
	}
	rule, err := RuleFromRRule(prop.Value)
	if err != nil {
		return Rule{}, true, err
	}
	return rule, true, nil
}

// SetRuleOnComponent writes rule as the component's RRULE property
func SetRuleOnComponent(comp *ical.Component, rule Rule) error {
	value, err := rule.RRuleString()
	if err != nil {
		return fmt.Errorf("failed to render RRULE: %w", err)
	}
	// RRULE is a RECUR value; SetText would escape its separators
	prop := ical.NewProp(ical.PropRecurrenceRule)
	prop.Value = value
	comp.Props.Set(prop)
	return nil
}

// ExtractWindowFromComponent extracts start and end times from an iCal component.
// Floating and date-only values are interpreted in loc.
func ExtractWindowFromComponent(comp *ical.Component, loc *time.Location) (Window, bool) {
	start, err := comp.Props.DateTime(ical.PropDateTimeStart, loc)
	if err != nil || start.IsZero() {
		return Window{}, false
	}

	var end time.Time
	if dtend, err := comp.Props.DateTime(ical.PropDateTimeEnd, loc); err == nil && !dtend.IsZero() {
		end = dtend

		// An all-day event whose end equals its start lasts the whole day
		if isAllDayDate(start) && sameDate(start, end) {
			end = start.AddDate(0, 0, 1)
		}
	} else if durationProp := comp.Props.Get(ical.PropDuration); durationProp != nil {
		duration, err := durationProp.Duration()
		if err != nil {
			return Window{}, false
		}
		end = start.Add(duration)
	} else if isAllDayDate(start) {
		end = start.AddDate(0, 0, 1)
	} else {
		end = start
	}

	if end.Before(start) {
		return Window{}, false
	}
	return Window{Start: start, End: end}, true
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// isAllDayDate checks if a time represents an all-day date (time part is midnight)
func isAllDayDate(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0
}
