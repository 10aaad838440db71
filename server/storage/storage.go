package storage

import (
	"context"
	"encoding/json"

	"github.com/samber/mo"
)

// Store is a hierarchical JSON document store addressed by slash-separated
// paths. Backends keep only leaf values: storing JSON null or an empty
// object at a path is the same as removing it.
type Store interface {
	// Get returns the value at path, assembling child leaves into an object.
	// An absent path yields mo.None without error.
	Get(ctx context.Context, path string) (mo.Option[json.RawMessage], error)
	// Set replaces the whole subtree at path with value.
	Set(ctx context.Context, path string, value any) error
	// Update applies several writes relative to path in one atomic step.
	// Keys may contain slashes; a nil value removes that subtree.
	Update(ctx context.Context, path string, fields map[string]any) error
	// Remove deletes the subtree at path. Removing an absent path is not an error.
	Remove(ctx context.Context, path string) error
	// Push returns a fresh, time-ordered child key under path.
	Push(ctx context.Context, path string) (string, error)
}
