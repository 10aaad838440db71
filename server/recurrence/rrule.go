package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/mo"
	"github.com/teambition/rrule-go"
)

// ErrUnsupportedRRule is returned when an RRULE uses parts a Rule cannot express
var ErrUnsupportedRRule = errors.New("unsupported RRULE")

// weekdays maps time.Weekday (0=Sunday) onto rrule-go's weekday values
var weekdays = [...]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

var frequencies = map[Frequency]rrule.Frequency{
	Daily:   rrule.DAILY,
	Weekly:  rrule.WEEKLY,
	Monthly: rrule.MONTHLY,
	Yearly:  rrule.YEARLY,
}

// ToROption converts the rule to an RFC 5545 recurrence option anchored at
// dtstart. Weeks start on Sunday to match weekday wrap-around.
//
// The conversion is exact for daily and weekly rules. RFC 5545 skips months
// that lack the requested day where this package clamps, so monthly rules
// anchored past day 28 diverge.
func (r Rule) ToROption(dtstart time.Time) (*rrule.ROption, error) {
	freq, ok := frequencies[r.Type]
	if !ok {
		return nil, fmt.Errorf("%w: frequency %q", ErrUnsupportedRRule, r.Type)
	}

	opt := &rrule.ROption{
		Freq:     freq,
		Dtstart:  dtstart,
		Interval: max(r.Interval, 1),
		Wkst:     rrule.SU,
	}
	if r.Type == Weekly {
		for _, d := range sortedWeekdays(r.DaysOfWeek) {
			opt.Byweekday = append(opt.Byweekday, weekdays[d])
		}
	}
	if r.Type == Monthly {
		opt.Bymonthday = sortedInts(r.DaysOfMonth)
	}

	switch r.EndType {
	case EndOnDate:
		opt.Until = r.EndDate.OrEmpty()
	case EndAfterOccurrences:
		opt.Count = r.OccurrencesCount.OrEmpty()
	}
	return opt, nil
}

// RRuleString renders the rule as an RRULE value without DTSTART
func (r Rule) RRuleString() (string, error) {
	opt, err := r.ToROption(time.Time{})
	if err != nil {
		return "", err
	}
	return opt.RRuleString(), nil
}

// RuleFromROption converts a parsed RRULE back into a Rule
func RuleFromROption(opt rrule.ROption) (Rule, error) {
	rule := Rule{
		Interval: max(opt.Interval, 1),
		EndType:  EndNever,
	}

	switch opt.Freq {
	case rrule.DAILY:
		rule.Type = Daily
	case rrule.WEEKLY:
		rule.Type = Weekly
	case rrule.MONTHLY:
		rule.Type = Monthly
	case rrule.YEARLY:
		rule.Type = Yearly
	default:
		return Rule{}, fmt.Errorf("%w: FREQ=%s", ErrUnsupportedRRule, opt.Freq)
	}

	unsupported := map[string]int{
		"BYSETPOS":  len(opt.Bysetpos),
		"BYMONTH":   len(opt.Bymonth),
		"BYYEARDAY": len(opt.Byyearday),
		"BYWEEKNO":  len(opt.Byweekno),
		"BYHOUR":    len(opt.Byhour),
		"BYMINUTE":  len(opt.Byminute),
		"BYSECOND":  len(opt.Bysecond),
		"BYEASTER":  len(opt.Byeaster),
	}
	for part, n := range unsupported {
		if n > 0 {
			return Rule{}, fmt.Errorf("%w: %s", ErrUnsupportedRRule, part)
		}
	}

	if len(opt.Byweekday) > 0 {
		if rule.Type != Weekly {
			return Rule{}, fmt.Errorf("%w: BYDAY with FREQ=%s", ErrUnsupportedRRule, opt.Freq)
		}
		for _, wd := range opt.Byweekday {
			if wd.N() != 0 {
				return Rule{}, fmt.Errorf("%w: ordinal BYDAY %s", ErrUnsupportedRRule, wd)
			}
			// rrule-go counts from Monday
			rule.DaysOfWeek = append(rule.DaysOfWeek, time.Weekday((wd.Day()+1)%7))
		}
	}
	if len(opt.Bymonthday) > 0 {
		if rule.Type != Monthly {
			return Rule{}, fmt.Errorf("%w: BYMONTHDAY with FREQ=%s", ErrUnsupportedRRule, opt.Freq)
		}
		for _, d := range opt.Bymonthday {
			if d < 1 {
				return Rule{}, fmt.Errorf("%w: BYMONTHDAY=%d", ErrUnsupportedRRule, d)
			}
		}
		rule.DaysOfMonth = append([]int(nil), opt.Bymonthday...)
	}

	switch {
	case opt.Count > 0 && !opt.Until.IsZero():
		return Rule{}, fmt.Errorf("%w: COUNT and UNTIL together", ErrUnsupportedRRule)
	case opt.Count > 0:
		rule.EndType = EndAfterOccurrences
		rule.OccurrencesCount = mo.Some(opt.Count)
	case !opt.Until.IsZero():
		rule.EndType = EndOnDate
		rule.EndDate = mo.Some(opt.Until)
	}

	return rule, rule.Validate()
}

// RuleFromRRule parses an RRULE value, with or without the "RRULE:" prefix
func RuleFromRRule(value string) (Rule, error) {
	opt, err := rrule.StrToROption(strings.TrimSpace(value))
	if err != nil {
		return Rule{}, fmt.Errorf("failed to parse RRULE '%s': %w", value, err)
	}
	return RuleFromROption(*opt)
}
