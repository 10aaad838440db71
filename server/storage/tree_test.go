package storage

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatten(t *testing.T) {
	type record struct {
		Title  string   `json:"title"`
		Tags   []string `json:"tags,omitempty"`
		Parent *string  `json:"parent"`
	}

	leaves, err := Flatten("events/e1", record{Title: "Gym", Tags: []string{"x"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]json.RawMessage{
		"events/e1/title": json.RawMessage(`"Gym"`),
		"events/e1/tags":  json.RawMessage(`["x"]`),
	}, leaves)

	leaves, err = Flatten("a", map[string]any{"empty": map[string]any{}})
	require.NoError(t, err)
	assert.Empty(t, leaves)

	_, err = Flatten("", 1)
	assert.True(t, IsInvalidInput(err))

	_, err = Flatten("a", func() {})
	assert.True(t, IsInvalidInput(err))
}

func TestPlanUpdate(t *testing.T) {
	writes, err := PlanUpdate("events", map[string]any{"e2/title": "B", "e1": nil})
	require.NoError(t, err)
	require.Len(t, writes, 2)
	assert.Equal(t, "events/e1", writes[0].Path)
	assert.Empty(t, writes[0].Leaves)
	assert.Equal(t, "events/e2/title", writes[1].Path)

	_, err = PlanUpdate("", map[string]any{"a/b": 1, "a/b/c": 2})
	assert.True(t, IsInvalidInput(err))

	_, err = PlanUpdate("", map[string]any{"": 1})
	assert.True(t, IsInvalidInput(err))

	writes, err = PlanUpdate("", nil)
	require.NoError(t, err)
	assert.Empty(t, writes)
}

func TestAssemble(t *testing.T) {
	leaves := map[string]json.RawMessage{
		"events/e1/title":    json.RawMessage(`"A"`),
		"events/e1/meta/pos": json.RawMessage(`1`),
		"events/e2/title":    json.RawMessage(`"B"`),
		"eventsX/e3":         json.RawMessage(`true`),
	}

	raw, ok, err := Assemble("events", leaves)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"e1":{"title":"A","meta":{"pos":1}},"e2":{"title":"B"}}`, string(raw))

	raw, ok, err = Assemble("events/e1/title", leaves)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `"A"`, string(raw))

	_, ok, err = Assemble("events/e9", leaves)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestError(t *testing.T) {
	cause := errors.New("disk full")
	err := error(&Error{Type: ErrUnavailable, Message: "insert node", Err: cause})

	assert.Equal(t, "unavailable: insert node: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, &Error{Type: ErrUnavailable})
	assert.False(t, IsNotFound(err))
	assert.True(t, IsNotFound(&Error{Type: ErrNotFound, Message: "series not found"}))
}
