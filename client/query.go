package client

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/cyp0633/calseries/internal/httpclient"
	"github.com/cyp0633/calseries/server/series"
)

// EventQuery builds an event listing. Without OnDate it lists the caller's own events.
type EventQuery interface {
	OnDate(date time.Time) EventQuery
	SeriesOnly() EventQuery
	StandaloneOnly() EventQuery
	Title(substr string) EventQuery
	Limit(limit int) EventQuery
	Do(ctx context.Context) ([]*series.EventOccurrence, error)
}

type eventQuery struct {
	client     httpclient.HttpClientWrapper
	date       string
	seriesOnly bool
	standalone bool
	title      string
	limit      int
}

func (q *eventQuery) OnDate(date time.Time) EventQuery {
	q.date = date.Format(series.DateLayout)
	return q
}

func (q *eventQuery) SeriesOnly() EventQuery {
	q.seriesOnly = true
	q.standalone = false
	return q
}

func (q *eventQuery) StandaloneOnly() EventQuery {
	q.standalone = true
	q.seriesOnly = false
	return q
}

func (q *eventQuery) Title(substr string) EventQuery {
	q.title = substr
	return q
}

func (q *eventQuery) Limit(limit int) EventQuery {
	q.limit = limit
	return q
}

// Do fetches the listing and applies the client-side filters
func (q *eventQuery) Do(ctx context.Context) ([]*series.EventOccurrence, error) {
	path := "events"
	if q.date != "" {
		path += "?" + url.Values{"date": {q.date}}.Encode()
	}

	var occs []*series.EventOccurrence
	if err := q.client.DoGET(ctx, path, &occs); err != nil {
		return nil, err
	}

	out := occs[:0]
	for _, occ := range occs {
		if q.seriesOnly && !occ.IsSeries() {
			continue
		}
		if q.standalone && occ.IsSeries() {
			continue
		}
		if q.title != "" && !strings.Contains(strings.ToLower(occ.Title), strings.ToLower(q.title)) {
			continue
		}
		out = append(out, occ)
		if q.limit > 0 && len(out) == q.limit {
			break
		}
	}
	return out, nil
}
