package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWeeklyDelta(t *testing.T) {
	tests := []struct {
		name     string
		current  time.Weekday
		days     []time.Weekday
		interval int
		expected int
	}{
		{"next day in same week", time.Monday, []time.Weekday{1, 3, 5}, 1, 2},
		{"wrap to first day next week", time.Friday, []time.Weekday{1, 3, 5}, 1, 3},
		{"wrap skips interval weeks", time.Friday, []time.Weekday{1, 3, 5}, 3, 17},
		{"only current day listed", time.Wednesday, []time.Weekday{3}, 1, 7},
		{"sunday only from sunday", time.Sunday, []time.Weekday{0}, 1, 7},
		{"sunday only from sunday every two weeks", time.Sunday, []time.Weekday{0}, 2, 14},
		{"current day not in set", time.Tuesday, []time.Weekday{1}, 1, 6},
		{"saturday to sunday", time.Saturday, []time.Weekday{0, 6}, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, weeklyDelta(tt.current, tt.days, tt.interval))
		})
	}
}

func TestStep_IsPure(t *testing.T) {
	days := []time.Weekday{time.Friday, time.Monday}
	rule := Rule{Type: Weekly, Interval: 1, DaysOfWeek: days}
	cur := Window{Start: date(2024, 1, 1, 9, 0), End: date(2024, 1, 1, 10, 0)}

	next, ok := Step(cur, rule)
	assert.True(t, ok)
	assert.Equal(t, date(2024, 1, 5, 9, 0), next.Start)

	again, _ := Step(cur, rule)
	assert.Equal(t, next, again)
	assert.Equal(t, []time.Weekday{time.Friday, time.Monday}, days, "day set must not be reordered in place")
	assert.Equal(t, date(2024, 1, 1, 9, 0), cur.Start)
}

func TestStep_MonthlyDaySkipsShortMonths(t *testing.T) {
	rule := Rule{Type: Monthly, Interval: 1, DaysOfMonth: []int{10, 30}}

	// Feb 10 2023: 30 does not exist in February, so move on to March 10
	cur := Window{Start: date(2023, 2, 10, 8, 0), End: date(2023, 2, 10, 9, 0)}
	next, ok := Step(cur, rule)
	assert.True(t, ok)
	assert.Equal(t, date(2023, 3, 10, 8, 0), next.Start)
	assert.Equal(t, date(2023, 3, 10, 9, 0), next.End)
}

func TestStep_MonthlyEndFollowsStart(t *testing.T) {
	rule := Rule{Type: Monthly, Interval: 1}

	// Overnight event: end date differs from start date
	cur := Window{Start: date(2024, 1, 31, 22, 0), End: date(2024, 2, 1, 2, 0)}
	next, ok := Step(cur, rule)
	assert.True(t, ok)
	assert.Equal(t, date(2024, 2, 29, 22, 0), next.Start)
	assert.Equal(t, date(2024, 3, 1, 2, 0), next.End)
}

func TestStep_YearlyFromLeapDay(t *testing.T) {
	start := time.Date(2024, 2, 29, 22, 0, 0, 0, time.UTC)
	cur := Window{Start: start, End: start.Add(150 * time.Minute)}

	next, ok := Step(cur, Rule{Type: Yearly, Interval: 1})
	assert.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 1, 22, 0, 0, 0, time.UTC), next.Start)
	assert.Equal(t, time.Date(2025, 3, 2, 0, 30, 0, 0, time.UTC), next.End)
}

func TestStep_UnknownType(t *testing.T) {
	cur := Window{Start: date(2024, 1, 1, 9, 0), End: date(2024, 1, 1, 10, 0)}
	next, ok := Step(cur, Rule{Type: "hourly", Interval: 1})
	assert.False(t, ok)
	assert.Equal(t, cur, next)
}

func TestDaysIn(t *testing.T) {
	assert.Equal(t, 29, daysIn(2024, time.February))
	assert.Equal(t, 28, daysIn(2023, time.February))
	assert.Equal(t, 28, daysIn(2100, time.February))
	assert.Equal(t, 31, daysIn(2024, time.December))
	assert.Equal(t, 30, daysIn(2024, time.April))
}
