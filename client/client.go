package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cyp0633/calseries/internal/httpclient"
	"github.com/cyp0633/calseries/server/recurrence"
	"github.com/cyp0633/calseries/server/series"
)

const (
	mimeTypeJSON     = "application/json"
	mimeTypeCalendar = "text/calendar; charset=utf-8"
)

// SeriesClient defines the operations of the series HTTP API
type SeriesClient interface {
	CreateSeries(ctx context.Context, in SeriesInput) (*series.CreateResult, error)
	// ImportSeries creates a series from an iCalendar VEVENT carrying an RRULE
	ImportSeries(ctx context.Context, ics []byte) (*series.CreateResult, error)
	GetSeries(ctx context.Context, id string) (*series.EventSeries, error)
	Occurrences(ctx context.Context, seriesID string) ([]*series.EventOccurrence, error)
	// ExportSeries returns the series as iCalendar, one VEVENT per occurrence
	// or a single recurring VEVENT when asRRule is set
	ExportSeries(ctx context.Context, id string, asRRule bool) ([]byte, error)
	Rematerialize(ctx context.Context, id string) (*series.CreateResult, error)
	DeleteSeries(ctx context.Context, id string) error

	CreateEvent(ctx context.Context, in EventInput) (*series.EventOccurrence, error)
	GetEvent(ctx context.Context, id string) (*series.EventOccurrence, error)
	DeleteEvent(ctx context.Context, id string) error
	ReportEvent(ctx context.Context, id, reason string) (*series.Report, error)
	Events() EventQuery

	Preview(ctx context.Context, in PreviewInput) (*PreviewResult, error)
}

// SeriesInput describes a series to create
type SeriesInput struct {
	Name     string           `json:"name"`
	Rule     recurrence.Rule  `json:"rule"`
	Event    series.EventData `json:"event"`
	Start    time.Time        `json:"start"`
	End      time.Time        `json:"end"`
	TimeZone string           `json:"timeZone,omitempty"`
}

// EventInput describes a standalone event
type EventInput struct {
	Event    series.EventData `json:"event"`
	Start    time.Time        `json:"start"`
	End      time.Time        `json:"end"`
	TimeZone string           `json:"timeZone,omitempty"`
}

// PreviewInput is a rule to expand without storing anything
type PreviewInput struct {
	Rule     recurrence.Rule `json:"rule"`
	Start    time.Time       `json:"start"`
	End      time.Time       `json:"end"`
	TimeZone string          `json:"timeZone,omitempty"`
}

// PreviewResult lists the windows a rule would produce
type PreviewResult struct {
	Windows   []recurrence.Window   `json:"windows"`
	Reason    recurrence.StopReason `json:"reason"`
	Truncated bool                  `json:"truncated"`
}

type seriesClient struct {
	httpClient httpclient.HttpClientWrapper
}

// New creates a client on top of an existing wrapper
func New(httpClient httpclient.HttpClientWrapper) SeriesClient {
	return &seriesClient{httpClient: httpClient}
}

// Dial creates a client for the API at baseURL using Basic authentication.
// A nil logger discards debug output.
func Dial(baseURL, username, password string, logger *slog.Logger) (SeriesClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid URL %q", baseURL)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	hc := &http.Client{
		Timeout:   30 * time.Second,
		Transport: httpclient.NewBasicAuthTransport(username, password, nil, logger),
	}
	wrapper, err := httpclient.NewHttpClientWrapper(hc, *u, logger)
	if err != nil {
		return nil, err
	}
	return New(wrapper), nil
}

func (c *seriesClient) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	_, err = c.httpClient.DoPOST(ctx, path, mimeTypeJSON, body, out)
	return err
}

func seriesPath(id string, rest ...string) string {
	p := "series/" + url.PathEscape(id)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

func eventPath(id string) string {
	return "events/" + url.PathEscape(id)
}

func (c *seriesClient) CreateSeries(ctx context.Context, in SeriesInput) (*series.CreateResult, error) {
	var res series.CreateResult
	if err := c.postJSON(ctx, "series", in, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *seriesClient) ImportSeries(ctx context.Context, ics []byte) (*series.CreateResult, error) {
	var res series.CreateResult
	if _, err := c.httpClient.DoPOST(ctx, "series", mimeTypeCalendar, ics, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *seriesClient) GetSeries(ctx context.Context, id string) (*series.EventSeries, error) {
	var sr series.EventSeries
	if err := c.httpClient.DoGET(ctx, seriesPath(id), &sr); err != nil {
		return nil, err
	}
	return &sr, nil
}

func (c *seriesClient) Occurrences(ctx context.Context, seriesID string) ([]*series.EventOccurrence, error) {
	var occs []*series.EventOccurrence
	if err := c.httpClient.DoGET(ctx, seriesPath(seriesID, "occurrences"), &occs); err != nil {
		return nil, err
	}
	return occs, nil
}

func (c *seriesClient) ExportSeries(ctx context.Context, id string, asRRule bool) ([]byte, error) {
	p := seriesPath(id, "calendar.ics")
	if asRRule {
		p += "?format=rrule"
	}
	body, _, err := c.httpClient.DoGETRaw(ctx, p)
	return body, err
}

func (c *seriesClient) Rematerialize(ctx context.Context, id string) (*series.CreateResult, error) {
	var res series.CreateResult
	if _, err := c.httpClient.DoPOST(ctx, seriesPath(id, "rematerialize"), mimeTypeJSON, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *seriesClient) DeleteSeries(ctx context.Context, id string) error {
	return c.httpClient.DoDELETE(ctx, seriesPath(id))
}

func (c *seriesClient) CreateEvent(ctx context.Context, in EventInput) (*series.EventOccurrence, error) {
	var occ series.EventOccurrence
	if err := c.postJSON(ctx, "events", in, &occ); err != nil {
		return nil, err
	}
	return &occ, nil
}

func (c *seriesClient) GetEvent(ctx context.Context, id string) (*series.EventOccurrence, error) {
	var occ series.EventOccurrence
	if err := c.httpClient.DoGET(ctx, eventPath(id), &occ); err != nil {
		return nil, err
	}
	return &occ, nil
}

func (c *seriesClient) DeleteEvent(ctx context.Context, id string) error {
	return c.httpClient.DoDELETE(ctx, eventPath(id))
}

func (c *seriesClient) ReportEvent(ctx context.Context, id, reason string) (*series.Report, error) {
	var report series.Report
	if err := c.postJSON(ctx, eventPath(id)+"/reports", map[string]string{"reason": reason}, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *seriesClient) Preview(ctx context.Context, in PreviewInput) (*PreviewResult, error) {
	var res PreviewResult
	if err := c.postJSON(ctx, "preview", in, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *seriesClient) Events() EventQuery {
	return &eventQuery{client: c.httpClient}
}
