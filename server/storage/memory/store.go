// memory based implementation for testing and single-process deployments
package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/cyp0633/calseries/server/storage"
	"github.com/samber/mo"
)

// Store implements storage.Store using an in-memory map of leaf values
type Store struct {
	mu     sync.RWMutex
	leaves map[string]json.RawMessage // key: canonical leaf path
}

// New creates a new in-memory storage
func New() *Store {
	return &Store{
		leaves: make(map[string]json.RawMessage),
	}
}

func (s *Store) Get(ctx context.Context, path string) (mo.Option[json.RawMessage], error) {
	if err := ctx.Err(); err != nil {
		return mo.None[json.RawMessage](), err
	}
	clean, err := storage.CleanPath(path)
	if err != nil {
		return mo.None[json.RawMessage](), err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if v, ok := s.leaves[clean]; ok && clean != "" {
		return mo.Some(append(json.RawMessage(nil), v...)), nil
	}

	subtree := make(map[string]json.RawMessage)
	for p, v := range s.leaves {
		if storage.InSubtree(p, clean) {
			subtree[p] = v
		}
	}
	raw, ok, err := storage.Assemble(clean, subtree)
	if err != nil || !ok {
		return mo.None[json.RawMessage](), err
	}
	return mo.Some(raw), nil
}

func (s *Store) Set(ctx context.Context, path string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w, err := storage.PlanSet(path, value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.apply(w)
	return nil
}

func (s *Store) Update(ctx context.Context, path string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	writes, err := storage.PlanUpdate(path, fields)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range writes {
		s.apply(w)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean, err := storage.CleanPath(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.apply(storage.Write{Path: clean})
	return nil
}

func (s *Store) Push(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, err := storage.CleanPath(path); err != nil {
		return "", err
	}
	return storage.NewPushID(), nil
}

// Len returns the number of stored leaves
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.leaves)
}

// apply must be called with the write lock held
func (s *Store) apply(w storage.Write) {
	for _, a := range storage.Ancestors(w.Path) {
		delete(s.leaves, a)
	}
	for p := range s.leaves {
		if storage.InSubtree(p, w.Path) {
			delete(s.leaves, p)
		}
	}
	for p, v := range w.Leaves {
		s.leaves[p] = v
	}
}
