package series

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/cyp0633/calseries/server/storage"
)

// SeriesStore persists series, their occurrences and standalone events
type SeriesStore interface {
	// CreateSeries stores series, assigning an id when it has none, and returns the id
	CreateSeries(ctx context.Context, series *EventSeries) (string, error)
	GetSeries(ctx context.Context, id string) (*EventSeries, error)
	// CreateOccurrence writes the occurrence and its per-owner index entry
	CreateOccurrence(ctx context.Context, occ *EventOccurrence) error
	GetOccurrence(ctx context.Context, id string) (*EventOccurrence, error)
	// DeleteOccurrence removes an occurrence with its reports and index entry.
	// Deleting an absent occurrence is not an error.
	DeleteOccurrence(ctx context.Context, id string) error
	// ExcludeOccurrence marks an occurrence of a live series as deleted so it
	// is skipped on rematerialization. An absent series is not an error.
	ExcludeOccurrence(ctx context.Context, seriesID, occurrenceID string) error
	// DeleteSeries removes the series record and every occurrence tagged with it
	DeleteSeries(ctx context.Context, id string) error
	ListOccurrencesBySeries(ctx context.Context, seriesID string) ([]*EventOccurrence, error)
	ListOccurrencesByOwner(ctx context.Context, creatorID string) ([]*EventOccurrence, error)
	ListOccurrencesOnDate(ctx context.Context, date string) ([]*EventOccurrence, error)
	AddReport(ctx context.Context, eventID string, report *Report) (string, error)
}

// DefaultDeleteConcurrency bounds parallel occurrence deletes
const DefaultDeleteConcurrency = 16

// DocumentStore implements SeriesStore on a storage.Store document tree
type DocumentStore struct {
	kv          storage.Store
	logger      *slog.Logger
	concurrency int
}

// StoreOption configures a DocumentStore
type StoreOption func(*DocumentStore)

// WithStoreLogger sets the logger used for deletion progress
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *DocumentStore) {
		s.logger = logger
	}
}

// WithDeleteConcurrency bounds the number of concurrent occurrence deletes
func WithDeleteConcurrency(n int) StoreOption {
	return func(s *DocumentStore) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewDocumentStore creates a SeriesStore backed by kv
func NewDocumentStore(kv storage.Store, opts ...StoreOption) *DocumentStore {
	s := &DocumentStore{
		kv:          kv,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		concurrency: DefaultDeleteConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func seriesPath(id string) string { return storage.Join(storage.RootEventSeries, id) }
func eventPath(id string) string  { return storage.Join(storage.RootEvents, id) }
func reportsPath(id string) string {
	return storage.Join(storage.RootReports, id)
}
func ownerIndexPath(creatorID, eventID string) string {
	return storage.Join(storage.RootUserEvents, creatorID, eventID)
}

func (s *DocumentStore) CreateSeries(ctx context.Context, series *EventSeries) (string, error) {
	if series.ID == "" {
		id, err := s.kv.Push(ctx, storage.RootEventSeries)
		if err != nil {
			return "", &StoreError{Op: "createSeries", Err: err}
		}
		series.ID = id
	}
	if err := s.kv.Set(ctx, seriesPath(series.ID), series); err != nil {
		return "", &StoreError{Op: "createSeries", ID: series.ID, Err: err}
	}
	return series.ID, nil
}

func (s *DocumentStore) GetSeries(ctx context.Context, id string) (*EventSeries, error) {
	var series EventSeries
	ok, err := storage.GetInto(ctx, s.kv, seriesPath(id), &series)
	if err != nil {
		return nil, &StoreError{Op: "getSeries", ID: id, Err: err}
	}
	if !ok {
		return nil, &StoreError{Op: "getSeries", ID: id, Err: notFound("series", id)}
	}
	return &series, nil
}

func (s *DocumentStore) CreateOccurrence(ctx context.Context, occ *EventOccurrence) error {
	if occ.ID == "" {
		id, err := s.kv.Push(ctx, storage.RootEvents)
		if err != nil {
			return &StoreError{Op: "createOccurrence", Err: err}
		}
		occ.ID = id
	}

	fields := map[string]any{
		eventPath(occ.ID): occ,
	}
	if occ.CreatorID != "" {
		fields[ownerIndexPath(occ.CreatorID, occ.ID)] = true
	}
	if err := s.kv.Update(ctx, "", fields); err != nil {
		return &StoreError{Op: "createOccurrence", ID: occ.ID, Err: err}
	}
	return nil
}

func (s *DocumentStore) GetOccurrence(ctx context.Context, id string) (*EventOccurrence, error) {
	occ, ok, err := s.lookupOccurrence(ctx, id)
	if err != nil {
		return nil, &StoreError{Op: "getOccurrence", ID: id, Err: err}
	}
	if !ok {
		return nil, &StoreError{Op: "getOccurrence", ID: id, Err: notFound("occurrence", id)}
	}
	return occ, nil
}

func (s *DocumentStore) lookupOccurrence(ctx context.Context, id string) (*EventOccurrence, bool, error) {
	var occ EventOccurrence
	ok, err := storage.GetInto(ctx, s.kv, eventPath(id), &occ)
	if err != nil || !ok {
		return nil, false, err
	}
	return &occ, true, nil
}

func (s *DocumentStore) DeleteOccurrence(ctx context.Context, id string) error {
	occ, ok, err := s.lookupOccurrence(ctx, id)
	if err != nil {
		return &StoreError{Op: "deleteOccurrence", ID: id, Err: err}
	}

	fields := map[string]any{
		eventPath(id):   nil,
		reportsPath(id): nil,
	}
	if ok && occ.CreatorID != "" {
		fields[ownerIndexPath(occ.CreatorID, id)] = nil
	}
	if err := s.kv.Update(ctx, "", fields); err != nil {
		return &StoreError{Op: "deleteOccurrence", ID: id, Err: err}
	}
	return nil
}

func (s *DocumentStore) ExcludeOccurrence(ctx context.Context, seriesID, occurrenceID string) error {
	// The record is removed before its occurrences, so a missing id means the
	// series is being deleted and the marker would only resurrect its node
	existing, err := s.kv.Get(ctx, storage.Join(seriesPath(seriesID), "id"))
	if err != nil {
		return &StoreError{Op: "excludeOccurrence", ID: occurrenceID, Err: err}
	}
	if existing.IsAbsent() {
		return nil
	}
	marker := storage.Join(seriesPath(seriesID), "excluded", occurrenceID)
	if err := s.kv.Update(ctx, "", map[string]any{marker: true}); err != nil {
		return &StoreError{Op: "excludeOccurrence", ID: occurrenceID, Err: err}
	}
	return nil
}

// DeleteSeries removes the series record, then deletes its occurrences
// concurrently. Occurrences created after the listing are not seen.
// Occurrences left behind by an earlier partial deletion are still removed
// even when the series record is already gone.
func (s *DocumentStore) DeleteSeries(ctx context.Context, id string) error {
	var existing EventSeries
	recordExists, err := storage.GetInto(ctx, s.kv, seriesPath(id), &existing)
	if err != nil {
		return &StoreError{Op: "deleteSeries", ID: id, Err: err}
	}
	if recordExists {
		if err := s.kv.Remove(ctx, seriesPath(id)); err != nil {
			return &StoreError{Op: "deleteSeries", ID: id, Err: err}
		}
	}

	occurrences, err := s.ListOccurrencesBySeries(ctx, id)
	if err != nil {
		return err
	}
	if !recordExists && len(occurrences) == 0 {
		return &StoreError{Op: "deleteSeries", ID: id, Err: notFound("series", id)}
	}

	s.logger.Info("deleting series occurrences", "series_id", id, "count", len(occurrences))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures []OccurrenceFailure
		sem      = make(chan struct{}, s.concurrency)
	)
	for _, occ := range occurrences {
		if ctx.Err() != nil {
			mu.Lock()
			failures = append(failures, OccurrenceFailure{OccurrenceID: occ.ID, Err: ctx.Err()})
			mu.Unlock()
			continue
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(occID string) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := s.DeleteOccurrence(ctx, occID); err != nil {
				s.logger.Warn("failed to delete occurrence", "series_id", id, "occurrence_id", occID, "error", err)
				mu.Lock()
				failures = append(failures, OccurrenceFailure{OccurrenceID: occID, Err: err})
				mu.Unlock()
			}
		}(occ.ID)
	}
	wg.Wait()

	if len(failures) > 0 {
		sort.Slice(failures, func(i, j int) bool { return failures[i].OccurrenceID < failures[j].OccurrenceID })
		return &DeleteError{SeriesID: id, Total: len(occurrences), Failures: failures}
	}
	return nil
}

// scanEvents decodes every stored event and keeps those matching keep
func (s *DocumentStore) scanEvents(ctx context.Context, op string, keep func(*EventOccurrence) bool) ([]*EventOccurrence, error) {
	children, err := storage.Children(ctx, s.kv, storage.RootEvents)
	if err != nil {
		return nil, &StoreError{Op: op, Err: err}
	}

	var out []*EventOccurrence
	for id, raw := range children {
		var occ EventOccurrence
		if err := json.Unmarshal(raw, &occ); err != nil {
			return nil, &StoreError{Op: op, ID: id, Err: fmt.Errorf("decode event: %w", err)}
		}
		if occ.ID == "" {
			occ.ID = id
		}
		if keep(&occ) {
			out = append(out, &occ)
		}
	}
	sortOccurrences(out)
	return out, nil
}

func sortOccurrences(occs []*EventOccurrence) {
	sort.Slice(occs, func(i, j int) bool {
		if !occs[i].Start.Equal(occs[j].Start) {
			return occs[i].Start.Before(occs[j].Start)
		}
		return occs[i].ID < occs[j].ID
	})
}

func (s *DocumentStore) ListOccurrencesBySeries(ctx context.Context, seriesID string) ([]*EventOccurrence, error) {
	return s.scanEvents(ctx, "listOccurrencesBySeries", func(o *EventOccurrence) bool {
		id, ok := o.SeriesID.Get()
		return ok && id == seriesID
	})
}

func (s *DocumentStore) ListOccurrencesOnDate(ctx context.Context, date string) ([]*EventOccurrence, error) {
	return s.scanEvents(ctx, "listOccurrencesOnDate", func(o *EventOccurrence) bool {
		return o.SelectedDate == date
	})
}

func (s *DocumentStore) ListOccurrencesByOwner(ctx context.Context, creatorID string) ([]*EventOccurrence, error) {
	ids, err := storage.ChildKeys(ctx, s.kv, storage.Join(storage.RootUserEvents, creatorID))
	if err != nil {
		return nil, &StoreError{Op: "listOccurrencesByOwner", ID: creatorID, Err: err}
	}

	out := make([]*EventOccurrence, 0, len(ids))
	for _, id := range ids {
		occ, ok, err := s.lookupOccurrence(ctx, id)
		if err != nil {
			return nil, &StoreError{Op: "listOccurrencesByOwner", ID: id, Err: err}
		}
		// Index entries can outlive their event after a partial failure
		if ok {
			out = append(out, occ)
		}
	}
	sortOccurrences(out)
	return out, nil
}

func (s *DocumentStore) AddReport(ctx context.Context, eventID string, report *Report) (string, error) {
	if _, ok, err := s.lookupOccurrence(ctx, eventID); err != nil {
		return "", &StoreError{Op: "addReport", ID: eventID, Err: err}
	} else if !ok {
		return "", &StoreError{Op: "addReport", ID: eventID, Err: notFound("occurrence", eventID)}
	}

	if report.ID == "" {
		id, err := s.kv.Push(ctx, reportsPath(eventID))
		if err != nil {
			return "", &StoreError{Op: "addReport", ID: eventID, Err: err}
		}
		report.ID = id
	}
	if err := s.kv.Set(ctx, storage.Join(reportsPath(eventID), report.ID), report); err != nil {
		return "", &StoreError{Op: "addReport", ID: eventID, Err: err}
	}
	return report.ID, nil
}

// ListReports returns the reports filed against an event
func (s *DocumentStore) ListReports(ctx context.Context, eventID string) ([]*Report, error) {
	children, err := storage.Children(ctx, s.kv, reportsPath(eventID))
	if err != nil {
		return nil, &StoreError{Op: "listReports", ID: eventID, Err: err}
	}
	out := make([]*Report, 0, len(children))
	for _, raw := range children {
		var r Report
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, &StoreError{Op: "listReports", ID: eventID, Err: err}
		}
		out = append(out, &r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
