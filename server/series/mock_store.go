package series

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockSeriesStore implements the SeriesStore interface for testing
type MockSeriesStore struct {
	mock.Mock
}

func (m *MockSeriesStore) CreateSeries(ctx context.Context, series *EventSeries) (string, error) {
	args := m.Called(ctx, series)
	return args.String(0), args.Error(1)
}

func (m *MockSeriesStore) GetSeries(ctx context.Context, id string) (*EventSeries, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*EventSeries), args.Error(1)
}

func (m *MockSeriesStore) CreateOccurrence(ctx context.Context, occ *EventOccurrence) error {
	args := m.Called(ctx, occ)
	return args.Error(0)
}

func (m *MockSeriesStore) GetOccurrence(ctx context.Context, id string) (*EventOccurrence, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*EventOccurrence), args.Error(1)
}

func (m *MockSeriesStore) DeleteOccurrence(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSeriesStore) ExcludeOccurrence(ctx context.Context, seriesID, occurrenceID string) error {
	args := m.Called(ctx, seriesID, occurrenceID)
	return args.Error(0)
}

func (m *MockSeriesStore) DeleteSeries(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSeriesStore) ListOccurrencesBySeries(ctx context.Context, seriesID string) ([]*EventOccurrence, error) {
	args := m.Called(ctx, seriesID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*EventOccurrence), args.Error(1)
}

func (m *MockSeriesStore) ListOccurrencesByOwner(ctx context.Context, creatorID string) ([]*EventOccurrence, error) {
	args := m.Called(ctx, creatorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*EventOccurrence), args.Error(1)
}

func (m *MockSeriesStore) ListOccurrencesOnDate(ctx context.Context, date string) ([]*EventOccurrence, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*EventOccurrence), args.Error(1)
}

func (m *MockSeriesStore) AddReport(ctx context.Context, eventID string, report *Report) (string, error) {
	args := m.Called(ctx, eventID, report)
	return args.String(0), args.Error(1)
}
