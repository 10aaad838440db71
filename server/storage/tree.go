package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Write is one subtree replacement produced by PlanSet or PlanUpdate.
// Backends clear Path's subtree and any leaf stored at an ancestor of
// Path, then insert Leaves.
type Write struct {
	Path   string
	Leaves map[string]json.RawMessage
}

// Flatten converts value into leaf entries keyed by absolute path.
// Nulls and empty objects produce no leaves. Arrays are stored whole.
func Flatten(base string, value any) (map[string]json.RawMessage, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, &Error{Type: ErrInvalidInput, Message: "value is not JSON encodable", Err: err}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, &Error{Type: ErrInvalidInput, Message: "value is not JSON encodable", Err: err}
	}

	leaves := make(map[string]json.RawMessage)
	if err := flattenInto(leaves, base, tree); err != nil {
		return nil, err
	}
	return leaves, nil
}

func flattenInto(leaves map[string]json.RawMessage, path string, node any) error {
	switch v := node.(type) {
	case nil:
		return nil
	case map[string]any:
		for key, child := range v {
			if key == "" || strings.ContainsAny(key, forbiddenKeyChars+"/") {
				return invalidPath(Join(path, key), "object key contains a reserved character")
			}
			if err := flattenInto(leaves, Join(path, key), child); err != nil {
				return err
			}
		}
		return nil
	default:
		if path == "" {
			return invalidPath(path, "root can only hold an object")
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return &Error{Type: ErrInvalidInput, Message: fmt.Sprintf("cannot encode %s", path), Err: err}
		}
		leaves[path] = raw
		return nil
	}
}

// PlanSet prepares a Set of value at path
func PlanSet(path string, value any) (Write, error) {
	clean, err := CleanPath(path)
	if err != nil {
		return Write{}, err
	}
	if clean == "" {
		return Write{}, invalidPath(path, "cannot set the root")
	}
	leaves, err := Flatten(clean, value)
	if err != nil {
		return Write{}, err
	}
	return Write{Path: clean, Leaves: leaves}, nil
}

// PlanUpdate prepares a multi-path update relative to base. Keys may not
// overlap, since the resulting order of writes would be ambiguous.
func PlanUpdate(base string, fields map[string]any) ([]Write, error) {
	cleanBase, err := CleanPath(base)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}

	writes := make([]Write, 0, len(fields))
	for key, value := range fields {
		rel, err := CleanPath(key)
		if err != nil {
			return nil, err
		}
		if rel == "" {
			return nil, invalidPath(key, "update key must not be empty")
		}
		full := Join(cleanBase, rel)
		leaves, err := Flatten(full, value)
		if err != nil {
			return nil, err
		}
		writes = append(writes, Write{Path: full, Leaves: leaves})
	}

	sort.Slice(writes, func(i, j int) bool { return writes[i].Path < writes[j].Path })
	for i := 1; i < len(writes); i++ {
		if InSubtree(writes[i].Path, writes[i-1].Path) {
			return nil, invalidPath(writes[i].Path, "overlaps update key "+writes[i-1].Path)
		}
	}
	return writes, nil
}

// Assemble rebuilds the JSON value at root from leaves in its subtree.
// The boolean is false when no leaf lies in the subtree.
func Assemble(root string, leaves map[string]json.RawMessage) (json.RawMessage, bool, error) {
	if v, ok := leaves[root]; ok && root != "" {
		return v, true, nil
	}

	tree := make(map[string]any)
	found := false
	for p, raw := range leaves {
		if !InSubtree(p, root) || p == root {
			continue
		}
		found = true
		segments := strings.Split(Relative(p, root), "/")
		node := tree
		for _, s := range segments[:len(segments)-1] {
			child, ok := node[s].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[s] = child
			}
			node = child
		}
		node[segments[len(segments)-1]] = raw
	}
	if !found {
		return nil, false, nil
	}

	out, err := json.Marshal(tree)
	if err != nil {
		return nil, false, fmt.Errorf("assemble %q: %w", root, err)
	}
	return out, true, nil
}
