package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/ragask/internal/models"
	"github.com/xhad/ragask/pkg/store"
)

type recordingStore struct {
	queries int
	closed  bool
}

func (r *recordingStore) Query(context.Context, models.Embedding, int) ([]models.ScoredResult, error) {
	r.queries++
	return []models.ScoredResult{{Text: "hit", Score: 1}}, nil
}

func (r *recordingStore) EnsureSchema(context.Context) error { return nil }
func (r *recordingStore) Insert(context.Context, []models.DocumentRow) error { return nil }

func (r *recordingStore) Close() error {
	r.closed = true
	return nil
}

func TestLazyOpensOnFirstUse(t *testing.T) {
	inner := &recordingStore{}
	opens := 0
	lazy := store.NewLazyFunc(func(context.Context) (store.Store, error) {
		opens++
		return inner, nil
	})
	assert.Equal(t, 0, opens)

	for i := 0; i < 2; i++ {
		results, err := lazy.Query(context.Background(), models.Embedding{1}, 5)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	}

	assert.Equal(t, 1, opens)
	assert.Equal(t, 2, inner.queries)

	require.NoError(t, lazy.Close())
	assert.True(t, inner.closed)
}

func TestLazyConnectionFailureSurfacesFromQuery(t *testing.T) {
	refused := errors.New("dial tcp 127.0.0.1:3306: connect: connection refused")
	lazy := store.NewLazyFunc(func(context.Context) (store.Store, error) {
		return nil, refused
	})

	_, err := lazy.Query(context.Background(), models.Embedding{1}, 5)
	assert.ErrorIs(t, err, refused)
	assert.NoError(t, lazy.Close())
}
