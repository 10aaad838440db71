package series

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cyp0633/calseries/server/recurrence"
	"github.com/samber/mo"
	"golang.org/x/sync/errgroup"
)

// Clock supplies the current time for createdAt stamps
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// DefaultBatchLimit bounds concurrent occurrence writes
const DefaultBatchLimit = 16

// ErrInvalidEvent is returned for event input that fails basic checks
var ErrInvalidEvent = errors.New("invalid event")

// CreateSeriesRequest carries everything needed to create a series
type CreateSeriesRequest struct {
	Name  string
	Rule  recurrence.Rule
	Event EventData
	Start time.Time
	End   time.Time
	Owner Owner
}

// CreateResult reports what a create or rematerialize call persisted.
// On a write failure Occurrences lists only the records that were written.
type CreateResult struct {
	Series      *EventSeries            `json:"series"`
	Occurrences []*EventOccurrence      `json:"occurrences"`
	Warning     *GenerationLimitWarning `json:"warning,omitempty"`
	// Skipped counts occurrences left out because they were deleted individually
	Skipped int `json:"skipped,omitempty"`
}

// Service wires rule validation, occurrence generation and persistence
type Service struct {
	store      SeriesStore
	engine     *recurrence.Engine
	clock      Clock
	logger     *slog.Logger
	batchLimit int
}

// Option configures a Service
type Option func(*Service)

func WithClock(clock Clock) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithBatchLimit bounds the number of concurrent occurrence writes
func WithBatchLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchLimit = n
		}
	}
}

// NewService creates a series service. A nil engine uses recurrence defaults.
func NewService(store SeriesStore, engine *recurrence.Engine, opts ...Option) *Service {
	if engine == nil {
		engine = recurrence.NewEngine()
	}
	s := &Service{
		store:      store,
		engine:     engine,
		clock:      SystemClock{},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		batchLimit: DefaultBatchLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Preview expands a rule without touching the store
func (s *Service) Preview(rule recurrence.Rule, start, end time.Time) (recurrence.Result, error) {
	return s.engine.Generate(rule, start, end)
}

// CreateEventSeries validates the rule, generates every occurrence and
// persists the series followed by its occurrences. Validation failures
// happen before any write. Occurrence writes are not rolled back on
// failure; RematerializeSeries can safely retry them.
func (s *Service) CreateEventSeries(ctx context.Context, req CreateSeriesRequest) (*CreateResult, error) {
	if req.Owner.ID == "" {
		return nil, fmt.Errorf("%w: missing creator", ErrInvalidEvent)
	}

	generated, err := s.engine.Generate(req.Rule, req.Start, req.End)
	if err != nil {
		return nil, err
	}

	series := &EventSeries{
		Name:          req.Name,
		CreatorID:     req.Owner.ID,
		CreatorHandle: req.Owner.Handle,
		Recurrence:    req.Rule,
		BaseEventData: req.Event,
		FirstStart:    req.Start,
		FirstEnd:      req.End,
		TimeZone:      zoneName(req.Start.Location()),
		CreatedAt:     s.clock.Now(),
	}
	if _, err := s.store.CreateSeries(ctx, series); err != nil {
		return nil, err
	}

	s.logger.Info("series created", "series_id", series.ID, "type", req.Rule.Type, "occurrences", len(generated.Windows))
	return s.materialize(ctx, series, generated)
}

// RematerializeSeries regenerates a stored series and rewrites its
// occurrences. Occurrence ids are derived from the series id and index, so
// repeating the call never duplicates records. Occurrences the owner deleted
// one by one stay deleted.
func (s *Service) RematerializeSeries(ctx context.Context, seriesID string) (*CreateResult, error) {
	series, err := s.store.GetSeries(ctx, seriesID)
	if err != nil {
		return nil, err
	}

	loc := series.Location()
	generated, err := s.engine.Generate(series.Recurrence, series.FirstStart.In(loc), series.FirstEnd.In(loc))
	if err != nil {
		return nil, err
	}

	s.logger.Info("rematerializing series", "series_id", series.ID, "occurrences", len(generated.Windows))
	return s.materialize(ctx, series, generated)
}

func (s *Service) materialize(ctx context.Context, series *EventSeries, generated recurrence.Result) (*CreateResult, error) {
	result := &CreateResult{Series: series}
	if generated.Truncated() {
		result.Warning = &GenerationLimitWarning{
			SeriesID:  series.ID,
			Limit:     s.engine.MaxOccurrences(),
			Generated: len(generated.Windows),
		}
		s.logger.Warn("series truncated by generation limit", "series_id", series.ID, "limit", result.Warning.Limit)
	}

	occurrences := make([]*EventOccurrence, 0, len(generated.Windows))
	for i, w := range generated.Windows {
		if series.Excluded[OccurrenceID(series.ID, i)] {
			result.Skipped++
			continue
		}
		occurrences = append(occurrences, s.buildOccurrence(series, i, w))
	}

	written, err := s.writeOccurrences(ctx, occurrences)
	result.Occurrences = written
	if err != nil {
		s.logger.Error("series partially materialized", "series_id", series.ID,
			"written", len(written), "total", len(occurrences), "error", err)
		return result, err
	}
	return result, nil
}

func (s *Service) buildOccurrence(series *EventSeries, index int, w recurrence.Window) *EventOccurrence {
	data := series.BaseEventData
	data.Participants = append([]string(nil), series.BaseEventData.Participants...)
	data.Title = fmt.Sprintf("%s: %s", series.Name, series.BaseEventData.Title)

	return &EventOccurrence{
		ID:            OccurrenceID(series.ID, index),
		SeriesID:      mo.Some(series.ID),
		Index:         index,
		CreatorID:     series.CreatorID,
		CreatorHandle: series.CreatorHandle,
		Start:         w.Start,
		End:           w.End,
		SelectedDate:  w.Start.Format(DateLayout),
		CreatedAt:     series.CreatedAt,
		EventData:     data,
	}
}

// writeOccurrences issues the writes concurrently and returns the ones that
// succeeded, in input order, with the first error. The context is checked
// before each write is started.
func (s *Service) writeOccurrences(ctx context.Context, occurrences []*EventOccurrence) ([]*EventOccurrence, error) {
	done := make([]bool, len(occurrences))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchLimit)
	for i, occ := range occurrences {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := s.store.CreateOccurrence(gctx, occ); err != nil {
				return err
			}
			done[i] = true
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		// The loop may have stopped early on a parent cancellation
		err = ctx.Err()
	}

	written := make([]*EventOccurrence, 0, len(occurrences))
	for i, occ := range occurrences {
		if done[i] {
			written = append(written, occ)
		}
	}
	return written, err
}

// CreateEvent stores a standalone event that belongs to no series
func (s *Service) CreateEvent(ctx context.Context, owner Owner, data EventData, start, end time.Time) (*EventOccurrence, error) {
	if owner.ID == "" {
		return nil, fmt.Errorf("%w: missing creator", ErrInvalidEvent)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEvent, recurrence.ErrInvalidWindow)
	}

	occ := &EventOccurrence{
		CreatorID:     owner.ID,
		CreatorHandle: owner.Handle,
		Start:         start,
		End:           end,
		SelectedDate:  start.Format(DateLayout),
		CreatedAt:     s.clock.Now(),
		EventData:     data,
	}
	if err := s.store.CreateOccurrence(ctx, occ); err != nil {
		return nil, err
	}
	s.logger.Info("event created", "event_id", occ.ID, "creator_id", owner.ID)
	return occ, nil
}

// GetSeries returns a stored series
func (s *Service) GetSeries(ctx context.Context, id string) (*EventSeries, error) {
	return s.store.GetSeries(ctx, id)
}

// GetOccurrence returns a stored occurrence or standalone event
func (s *Service) GetOccurrence(ctx context.Context, id string) (*EventOccurrence, error) {
	return s.store.GetOccurrence(ctx, id)
}

// ListOccurrences returns a series' occurrences ordered by start
func (s *Service) ListOccurrences(ctx context.Context, seriesID string) ([]*EventOccurrence, error) {
	return s.store.ListOccurrencesBySeries(ctx, seriesID)
}

// ListOwnerEvents returns every event a user created
func (s *Service) ListOwnerEvents(ctx context.Context, creatorID string) ([]*EventOccurrence, error) {
	return s.store.ListOccurrencesByOwner(ctx, creatorID)
}

// ListEventsOnDate returns every event whose selected date is date (YYYY-MM-DD)
func (s *Service) ListEventsOnDate(ctx context.Context, date string) ([]*EventOccurrence, error) {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return nil, fmt.Errorf("%w: date %q: %w", ErrInvalidEvent, date, err)
	}
	return s.store.ListOccurrencesOnDate(ctx, date)
}

// DeleteSeries deletes a series and all of its occurrences on behalf of requester
func (s *Service) DeleteSeries(ctx context.Context, requester Owner, seriesID string) error {
	series, err := s.store.GetSeries(ctx, seriesID)
	switch {
	case err == nil:
		if series.CreatorID != requester.ID {
			return ErrNotOwner
		}
	case IsNotFound(err):
		// The record may be gone after a partial deletion; check the leftovers
		leftovers, err := s.store.ListOccurrencesBySeries(ctx, seriesID)
		if err != nil {
			return err
		}
		for _, occ := range leftovers {
			if occ.CreatorID != requester.ID {
				return ErrNotOwner
			}
		}
	default:
		return err
	}

	if err := s.store.DeleteSeries(ctx, seriesID); err != nil {
		return err
	}
	s.logger.Info("series deleted", "series_id", seriesID, "requester", requester.ID)
	return nil
}

// DeleteOccurrence deletes a single occurrence or standalone event. The
// series record and sibling occurrences are left untouched.
func (s *Service) DeleteOccurrence(ctx context.Context, requester Owner, id string) error {
	occ, err := s.store.GetOccurrence(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil
		}
		return err
	}
	if occ.CreatorID != requester.ID {
		return ErrNotOwner
	}
	if err := s.store.DeleteOccurrence(ctx, id); err != nil {
		return err
	}
	if seriesID, ok := occ.SeriesID.Get(); ok {
		if err := s.store.ExcludeOccurrence(ctx, seriesID, id); err != nil {
			return err
		}
	}
	s.logger.Info("occurrence deleted", "event_id", id, "requester", requester.ID)
	return nil
}

// ReportEvent files a moderation report against an event
func (s *Service) ReportEvent(ctx context.Context, reporter Owner, eventID, reason string) (*Report, error) {
	report := &Report{ReporterID: reporter.ID, Reason: reason, CreatedAt: s.clock.Now()}
	if _, err := s.store.AddReport(ctx, eventID, report); err != nil {
		return nil, err
	}
	return report, nil
}

func zoneName(loc *time.Location) string {
	if loc == nil || loc == time.Local {
		return ""
	}
	return loc.String()
}
