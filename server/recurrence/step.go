package recurrence

import (
	"slices"
	"time"
)

// Step returns the occurrence following cur under rule. The second return
// value is false when the rule's type cannot be stepped.
//
// Step never mutates its inputs and always moves strictly forward.
func Step(cur Window, rule Rule) (Window, bool) {
	interval := max(rule.Interval, 1)

	switch rule.Type {
	case Daily:
		return shiftDays(cur, interval), true
	case Weekly:
		if len(rule.DaysOfWeek) == 0 {
			return shiftDays(cur, 7*interval), true
		}
		return shiftDays(cur, weeklyDelta(cur.Start.Weekday(), sortedWeekdays(rule.DaysOfWeek), interval)), true
	case Monthly:
		var next time.Time
		if len(rule.DaysOfMonth) == 0 {
			next = addMonthsClamped(cur.Start, interval, cur.Start.Day())
		} else {
			next = nextMonthDay(cur.Start, sortedInts(rule.DaysOfMonth), interval)
		}
		return shiftDays(cur, civilDaysBetween(cur.Start, next)), true
	case Yearly:
		// End moves by the same number of civil days as start, so a Feb 29
		// window that normalizes to Mar 1 keeps its duration.
		next := cur.Start.AddDate(interval, 0, 0)
		return shiftDays(cur, civilDaysBetween(cur.Start, next)), true
	default:
		return cur, false
	}
}

func shiftDays(w Window, days int) Window {
	return Window{
		Start: w.Start.AddDate(0, 0, days),
		End:   w.End.AddDate(0, 0, days),
	}
}

// weeklyDelta returns the number of days to the next eligible weekday.
// days must be sorted ascending and non-empty.
func weeklyDelta(current time.Weekday, days []time.Weekday, interval int) int {
	d := int(current)
	for _, v := range days {
		if int(v) > d {
			return int(v) - d
		}
	}
	// 7-d is in 1..7, so the current day is always left behind.
	return (7 - d) + 7*(interval-1) + int(days[0])
}

// nextMonthDay moves to the next listed day-of-month. days must be sorted
// ascending and non-empty.
func nextMonthDay(t time.Time, days []int, interval int) time.Time {
	d := t.Day()
	dim := daysIn(t.Year(), t.Month())
	for _, v := range days {
		if v > d && v <= dim {
			return time.Date(t.Year(), t.Month(), v, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
		}
	}
	return addMonthsClamped(t, interval, days[0])
}

// addMonthsClamped moves t forward by n months and lands on day, clamped to
// the target month's length. Time of day is kept.
func addMonthsClamped(t time.Time, n, day int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	day = min(day, daysIn(first.Year(), first.Month()))
	return time.Date(first.Year(), first.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// civilDaysBetween counts calendar days from a to b using their wall-clock dates
func civilDaysBetween(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bd.Sub(ad).Hours() / 24)
}

func sortedWeekdays(days []time.Weekday) []time.Weekday {
	out := slices.Clone(days)
	slices.Sort(out)
	return slices.Compact(out)
}

func sortedInts(days []int) []int {
	out := slices.Clone(days)
	slices.Sort(out)
	return slices.Compact(out)
}
