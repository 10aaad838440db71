package storage

import (
	"strings"

	"github.com/google/uuid"
)

// Top-level roots of the document tree
const (
	RootEventSeries = "eventSeries"
	RootEvents      = "events"
	RootUserEvents  = "userEvents"
	RootReports     = "reports"
)

const forbiddenKeyChars = ".#$[]"

// Join builds a path from segments, skipping empty ones
func Join(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		s = strings.Trim(s, "/")
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}

// SplitPath validates path and returns its segments. The empty path is the
// root and yields no segments.
func SplitPath(path string) ([]string, error) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil, nil
	}
	segments := strings.Split(trimmed, "/")
	for _, s := range segments {
		if s == "" {
			return nil, invalidPath(path, "empty segment")
		}
		if strings.ContainsAny(s, forbiddenKeyChars) {
			return nil, invalidPath(path, "segment contains one of "+forbiddenKeyChars)
		}
	}
	return segments, nil
}

// CleanPath validates path and returns its canonical form
func CleanPath(path string) (string, error) {
	segments, err := SplitPath(path)
	if err != nil {
		return "", err
	}
	return strings.Join(segments, "/"), nil
}

// Ancestors returns every proper ancestor of a canonical path, root excluded
func Ancestors(path string) []string {
	var out []string
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			out = append(out, path[:i])
		}
	}
	return out
}

// InSubtree reports whether p equals root or lies beneath it
func InSubtree(p, root string) bool {
	if root == "" {
		return true
	}
	return p == root || strings.HasPrefix(p, root+"/")
}

// Relative returns p relative to root; p must be in root's subtree
func Relative(p, root string) string {
	if root == "" {
		return p
	}
	return strings.TrimPrefix(strings.TrimPrefix(p, root), "/")
}

// NewPushID returns a time-ordered unique key suitable for Push
func NewPushID() string {
	return uuid.Must(uuid.NewV7()).String()
}
