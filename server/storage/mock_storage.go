package storage

import (
	"context"
	"encoding/json"

	"github.com/samber/mo"
	"github.com/stretchr/testify/mock"
)

// MockStore implements the Store interface for testing
type MockStore struct {
	mock.Mock
}

// Get implements the Store interface
func (m *MockStore) Get(ctx context.Context, path string) (mo.Option[json.RawMessage], error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return mo.None[json.RawMessage](), args.Error(1)
	}
	return args.Get(0).(mo.Option[json.RawMessage]), args.Error(1)
}

// Set implements the Store interface
func (m *MockStore) Set(ctx context.Context, path string, value any) error {
	args := m.Called(ctx, path, value)
	return args.Error(0)
}

// Update implements the Store interface
func (m *MockStore) Update(ctx context.Context, path string, fields map[string]any) error {
	args := m.Called(ctx, path, fields)
	return args.Error(0)
}

// Remove implements the Store interface
func (m *MockStore) Remove(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

// Push implements the Store interface
func (m *MockStore) Push(ctx context.Context, path string) (string, error) {
	args := m.Called(ctx, path)
	return args.String(0), args.Error(1)
}

// --- Helper methods for creating test data ---

// Found wraps a JSON literal as a present Get result
func Found(raw string) mo.Option[json.RawMessage] {
	return mo.Some(json.RawMessage(raw))
}

// Absent is the Get result for a missing path
func Absent() mo.Option[json.RawMessage] {
	return mo.None[json.RawMessage]()
}
