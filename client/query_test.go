package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listing = `[
	{"id":"s1_0000","seriesId":"s1","isSeries":true,"title":"Gym: Legs","start":"2024-01-01T09:00:00Z","end":"2024-01-01T10:00:00Z","selectedDate":"2024-01-01"},
	{"id":"e1","isSeries":false,"title":"Dentist","start":"2024-01-01T11:00:00Z","end":"2024-01-01T12:00:00Z","selectedDate":"2024-01-01"},
	{"id":"s2_0000","seriesId":"s2","isSeries":true,"title":"Gym: Arms","start":"2024-01-01T18:00:00Z","end":"2024-01-01T19:00:00Z","selectedDate":"2024-01-01"}
]`

func TestEventQuery(t *testing.T) {
	day := time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		build   func(EventQuery) EventQuery
		wantURL string
		wantIDs []string
	}{
		{
			name:    "own events",
			build:   func(q EventQuery) EventQuery { return q },
			wantURL: "events",
			wantIDs: []string{"s1_0000", "e1", "s2_0000"},
		},
		{
			name:    "on date",
			build:   func(q EventQuery) EventQuery { return q.OnDate(day) },
			wantURL: "events?date=2024-01-01",
			wantIDs: []string{"s1_0000", "e1", "s2_0000"},
		},
		{
			name:    "series only",
			build:   func(q EventQuery) EventQuery { return q.SeriesOnly() },
			wantURL: "events",
			wantIDs: []string{"s1_0000", "s2_0000"},
		},
		{
			name:    "standalone only",
			build:   func(q EventQuery) EventQuery { return q.SeriesOnly().StandaloneOnly() },
			wantURL: "events",
			wantIDs: []string{"e1"},
		},
		{
			name:    "title and limit",
			build:   func(q EventQuery) EventQuery { return q.Title("gym").Limit(1) },
			wantURL: "events",
			wantIDs: []string{"s1_0000"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockHTTPClient{getBody: listing}
			c := New(m)

			got, err := tt.build(c.Events()).Do(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, m.lastURL)

			ids := make([]string, len(got))
			for i, occ := range got {
				ids[i] = occ.ID
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestClientPaths(t *testing.T) {
	ctx := context.Background()
	m := &mockHTTPClient{getBody: `{}`}
	c := New(m)

	_, err := c.GetSeries(ctx, "a/b")
	require.NoError(t, err)
	assert.Equal(t, "series/a%2Fb", m.lastURL)

	_, err = c.ExportSeries(ctx, "s1", true)
	require.NoError(t, err)
	assert.Equal(t, "series/s1/calendar.ics?format=rrule", m.lastURL)

	_, err = c.ImportSeries(ctx, []byte("BEGIN:VCALENDAR"))
	require.NoError(t, err)
	assert.Equal(t, mimeTypeCalendar, m.lastCType)

	_, err = c.ReportEvent(ctx, "e1", "spam")
	require.NoError(t, err)
	assert.Equal(t, "events/e1/reports", m.lastURL)
	assert.JSONEq(t, `{"reason":"spam"}`, string(m.lastBody))

	require.NoError(t, c.DeleteEvent(ctx, "e1"))
	assert.Equal(t, "events/e1", m.lastURL)
}

func TestDial(t *testing.T) {
	_, err := Dial("not a url", "u", "p", nil)
	assert.Error(t, err)

	c, err := Dial("http://localhost:8080/api", "u", "p", nil)
	require.NoError(t, err)
	assert.NotNil(t, c)
}
