package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// GetInto reads path and decodes it into out. It returns false when the
// path is absent.
func GetInto(ctx context.Context, s Store, path string, out any) (bool, error) {
	value, err := s.Get(ctx, path)
	if err != nil {
		return false, err
	}
	raw, ok := value.Get()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("decode %q: %w", path, err)
	}
	return true, nil
}

// Children returns the direct children of path keyed by their key
func Children(ctx context.Context, s Store, path string) (map[string]json.RawMessage, error) {
	children := make(map[string]json.RawMessage)
	ok, err := GetInto(ctx, s, path, &children)
	if err != nil {
		return nil, err
	}
	if !ok {
		return map[string]json.RawMessage{}, nil
	}
	return children, nil
}

// ChildKeys returns the sorted keys of path's direct children
func ChildKeys(ctx context.Context, s Store, path string) ([]string, error) {
	children, err := Children(ctx, s, path)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(children))
	for k := range children {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
