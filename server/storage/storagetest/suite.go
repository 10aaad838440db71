// Package storagetest holds a conformance suite shared by every storage.Store backend.
package storagetest

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/cyp0633/calseries/server/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises a fresh store from newStore against the Store contract
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	ctx := context.Background()

	get := func(t *testing.T, s storage.Store, path string) (string, bool) {
		t.Helper()
		v, err := s.Get(ctx, path)
		require.NoError(t, err)
		raw, ok := v.Get()
		return string(raw), ok
	}

	t.Run("get absent", func(t *testing.T) {
		s := newStore(t)
		_, ok := get(t, s, "events/missing")
		assert.False(t, ok)
	})

	t.Run("set and get object", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "events/e1", map[string]any{
			"title":  "Standup",
			"count":  3,
			"tags":   []string{"a", "b"},
			"nested": map[string]any{"x": true},
			"gone":   nil,
		}))

		raw, ok := get(t, s, "events/e1")
		require.True(t, ok)
		assert.JSONEq(t, `{"title":"Standup","count":3,"tags":["a","b"],"nested":{"x":true}}`, raw)

		raw, ok = get(t, s, "events/e1/title")
		require.True(t, ok)
		assert.Equal(t, `"Standup"`, raw)

		raw, ok = get(t, s, "events")
		require.True(t, ok)
		assert.JSONEq(t, `{"e1":{"title":"Standup","count":3,"tags":["a","b"],"nested":{"x":true}}}`, raw)
	})

	t.Run("set replaces subtree", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "a", map[string]any{"x": 1, "y": 2}))
		require.NoError(t, s.Set(ctx, "a", map[string]any{"z": 3}))

		raw, ok := get(t, s, "a")
		require.True(t, ok)
		assert.JSONEq(t, `{"z":3}`, raw)
	})

	t.Run("set beneath a primitive replaces it", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "a", "leaf"))
		require.NoError(t, s.Set(ctx, "a/b", 1))

		raw, ok := get(t, s, "a")
		require.True(t, ok)
		assert.JSONEq(t, `{"b":1}`, raw)
	})

	t.Run("set null removes", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "a/b", 1))
		require.NoError(t, s.Set(ctx, "a/b", nil))
		_, ok := get(t, s, "a")
		assert.False(t, ok)
	})

	t.Run("sibling prefixes are isolated", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "events/e1", map[string]any{"v": 1}))
		require.NoError(t, s.Set(ctx, "events/e1-x", map[string]any{"v": 2}))
		require.NoError(t, s.Set(ctx, "events/e10", map[string]any{"v": 3}))

		require.NoError(t, s.Remove(ctx, "events/e1"))

		_, ok := get(t, s, "events/e1")
		assert.False(t, ok)
		_, ok = get(t, s, "events/e1-x")
		assert.True(t, ok)
		_, ok = get(t, s, "events/e10")
		assert.True(t, ok)
	})

	t.Run("multi-path update at root", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "userEvents/u1/old", true))
		require.NoError(t, s.Update(ctx, "", map[string]any{
			"events/e1":         map[string]any{"title": "A"},
			"userEvents/u1/e1":  true,
			"userEvents/u1/old": nil,
		}))

		raw, ok := get(t, s, "events/e1/title")
		require.True(t, ok)
		assert.Equal(t, `"A"`, raw)

		raw, ok = get(t, s, "userEvents/u1")
		require.True(t, ok)
		assert.JSONEq(t, `{"e1":true}`, raw)
	})

	t.Run("update relative to a path keeps other children", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "events/e1", map[string]any{"title": "A", "location": "Room 1"}))
		require.NoError(t, s.Update(ctx, "events/e1", map[string]any{"title": "B"}))

		raw, ok := get(t, s, "events/e1")
		require.True(t, ok)
		assert.JSONEq(t, `{"title":"B","location":"Room 1"}`, raw)
	})

	t.Run("update rejects overlapping keys", func(t *testing.T) {
		s := newStore(t)
		err := s.Update(ctx, "", map[string]any{"a": 1, "a/b": 2})
		assert.True(t, storage.IsInvalidInput(err))
		_, ok := get(t, s, "a")
		assert.False(t, ok, "rejected update must not write anything")
	})

	t.Run("remove is idempotent", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "a/b", 1))
		require.NoError(t, s.Remove(ctx, "a"))
		require.NoError(t, s.Remove(ctx, "a"))
		_, ok := get(t, s, "a/b")
		assert.False(t, ok)
	})

	t.Run("invalid paths", func(t *testing.T) {
		s := newStore(t)
		for _, p := range []string{"a//b", "a.b", "a/#", "a/$x", "x[0]"} {
			_, err := s.Get(ctx, p)
			assert.True(t, storage.IsInvalidInput(err), p)
			assert.True(t, storage.IsInvalidInput(s.Set(ctx, p, 1)), p)
		}
		assert.True(t, storage.IsInvalidInput(s.Set(ctx, "", map[string]any{"a": 1})))
		assert.True(t, storage.IsInvalidInput(s.Set(ctx, "a", map[string]any{"b.c": 1})))
	})

	t.Run("push ids are unique and ordered", func(t *testing.T) {
		s := newStore(t)
		first, err := s.Push(ctx, "events")
		require.NoError(t, err)
		second, err := s.Push(ctx, "events")
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
		assert.Less(t, first, second)
	})

	t.Run("round trip preserves large numbers", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "n", map[string]any{"big": int64(9007199254740993)}))
		raw, ok := get(t, s, "n")
		require.True(t, ok)

		var out map[string]json.Number
		require.NoError(t, json.Unmarshal([]byte(raw), &out))
		assert.Equal(t, "9007199254740993", out["big"].String())
	})
}
