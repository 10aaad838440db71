package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cyp0633/calseries/internal/httpclient"
	"github.com/cyp0633/calseries/server"
	authmemory "github.com/cyp0633/calseries/server/auth/memory"
	"github.com/cyp0633/calseries/server/recurrence"
	"github.com/cyp0633/calseries/server/series"
	"github.com/cyp0633/calseries/server/storage/memory"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T) string {
	t.Helper()

	svc := series.NewService(series.NewDocumentStore(memory.New()), recurrence.NewEngine())
	users := authmemory.New()
	require.NoError(t, users.AddUser(authmemory.User{Username: "alice", Password: "pw"}))
	require.NoError(t, users.AddUser(authmemory.User{Username: "bob", Password: "pw"}))

	srv, err := server.New(svc, server.WithBasePath("/api"), server.WithAuthenticator(users, "test"))
	require.NoError(t, err)

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts.URL + "/api"
}

func TestClientAgainstServer(t *testing.T) {
	ctx := context.Background()
	base := startServer(t)

	alice, err := Dial(base, "alice", "pw", nil)
	require.NoError(t, err)
	bob, err := Dial(base, "bob", "pw", nil)
	require.NoError(t, err)

	start := time.Date(2024, 1, 31, 10, 0, 0, 0, time.UTC)
	rule := recurrence.Rule{
		Type:             recurrence.Monthly,
		Interval:         1,
		EndType:          recurrence.EndAfterOccurrences,
		OccurrencesCount: mo.Some(3),
	}

	preview, err := alice.Preview(ctx, PreviewInput{Rule: rule, Start: start, End: start.Add(time.Hour)})
	require.NoError(t, err)
	assert.Len(t, preview.Windows, 3)

	created, err := alice.CreateSeries(ctx, SeriesInput{
		Name:  "Rent",
		Rule:  rule,
		Event: series.EventData{Title: "Pay"},
		Start: start,
		End:   start.Add(time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, created.Occurrences, 3)
	seriesID := created.Series.ID

	occs, err := bob.Occurrences(ctx, seriesID)
	require.NoError(t, err)
	require.Len(t, occs, 3)
	assert.Equal(t, "2024-02-29", occs[1].SelectedDate)

	ics, err := alice.ExportSeries(ctx, seriesID, true)
	require.NoError(t, err)
	assert.Contains(t, string(ics), "RRULE:FREQ=MONTHLY")

	err = bob.DeleteSeries(ctx, seriesID)
	assert.True(t, httpclient.IsStatus(err, http.StatusForbidden))

	require.NoError(t, alice.DeleteEvent(ctx, occs[1].ID))
	mine, err := alice.Events().SeriesOnly().Do(ctx)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	again, err := alice.Rematerialize(ctx, seriesID)
	require.NoError(t, err)
	assert.Len(t, again.Occurrences, 2, "individually deleted occurrences stay deleted")
	assert.Equal(t, 1, again.Skipped)

	require.NoError(t, alice.DeleteSeries(ctx, seriesID))
	_, err = alice.GetSeries(ctx, seriesID)
	assert.True(t, httpclient.IsStatus(err, http.StatusNotFound))
}

func TestClientImportAndEvents(t *testing.T) {
	ctx := context.Background()
	alice, err := Dial(startServer(t), "alice", "pw", nil)
	require.NoError(t, err)

	ics := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//EN",
		"BEGIN:VEVENT",
		"UID:x",
		"DTSTAMP:20240101T000000Z",
		"DTSTART:20240101T090000Z",
		"DTEND:20240101T093000Z",
		"RRULE:FREQ=WEEKLY;BYDAY=MO,WE;COUNT=4",
		"SUMMARY:Swim",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\r\n")
	res, err := alice.ImportSeries(ctx, []byte(ics))
	require.NoError(t, err)
	assert.Len(t, res.Occurrences, 4)

	day := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	ev, err := alice.CreateEvent(ctx, EventInput{
		Event: series.EventData{Title: "Dentist"},
		Start: day.Add(14 * time.Hour),
		End:   day.Add(15 * time.Hour),
	})
	require.NoError(t, err)

	onDay, err := alice.Events().OnDate(day).Do(ctx)
	require.NoError(t, err)
	assert.Len(t, onDay, 2)

	standalone, err := alice.Events().StandaloneOnly().Do(ctx)
	require.NoError(t, err)
	require.Len(t, standalone, 1)
	assert.Equal(t, ev.ID, standalone[0].ID)

	report, err := alice.ReportEvent(ctx, ev.ID, "duplicate")
	require.NoError(t, err)
	assert.NotEmpty(t, report.ID)

	got, err := alice.GetEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dentist", got.Title)
}
