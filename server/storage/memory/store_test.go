package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/cyp0633/calseries/server/storage"
	"github.com/cyp0633/calseries/server/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Contract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		return New()
	})
}

func TestStore_ConcurrentUpdates(t *testing.T) {
	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := storage.NewPushID()
			err := s.Update(ctx, "", map[string]any{
				"events/" + id:           map[string]any{"n": i},
				"userEvents/owner/" + id: true,
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	keys, err := storage.ChildKeys(ctx, s, "userEvents/owner")
	require.NoError(t, err)
	assert.Len(t, keys, 50)
	assert.Equal(t, 100, s.Len())
}

func TestStore_CancelledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Set(ctx, "a", 1), context.Canceled)
	_, err := s.Get(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)
}
