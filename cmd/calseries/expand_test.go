package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/cyp0633/calseries/server/recurrence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWeekdays(t *testing.T) {
	tests := []struct {
		in      string
		want    []time.Weekday
		wantErr bool
	}{
		{in: "", want: nil},
		{in: "mon,Wed, fri", want: []time.Weekday{time.Monday, time.Wednesday, time.Friday}},
		{in: "0,6", want: []time.Weekday{time.Sunday, time.Saturday}},
		{in: "7", wantErr: true},
		{in: "funday", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseWeekdays(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMonthDays(t *testing.T) {
	got, err := parseMonthDays("1, 15,31")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 15, 31}, got)

	_, err = parseMonthDays("1,x")
	assert.Error(t, err)
}

func TestParseTime(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	got, err := parseTime("2025-03-10T09:30", berlin)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 9, 30, 0, 0, berlin), got)

	got, err = parseTime("2025-03-10T08:00:00Z", berlin)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)))

	got, err = parseTime("2025-03-10", berlin)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 23, 59, 59, 0, berlin), got)

	_, err = parseTime("", berlin)
	assert.Error(t, err)
	_, err = parseTime("next tuesday", berlin)
	assert.Error(t, err)
}

func TestPrintResult(t *testing.T) {
	start := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	res := recurrence.Result{
		Windows: []recurrence.Window{{Start: start, End: start.Add(time.Hour)}},
		Reason:  recurrence.StopLimit,
	}

	var buf bytes.Buffer
	require.NoError(t, printResult(&buf, res, false))
	assert.Contains(t, buf.String(), "2025-01-06T09:00:00Z")
	assert.Contains(t, buf.String(), "1 occurrences")
	assert.Contains(t, buf.String(), "safety cap")

	buf.Reset()
	require.NoError(t, printResult(&buf, res, true))
	assert.Contains(t, buf.String(), `"truncated": true`)
}
