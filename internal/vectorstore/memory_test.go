package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	apperr "github.com/medscribe/clinrag/internal/pkg/errors"
)

func rec(id, doc string, idx int, emb []float32) Record {
	return Record{ID: id, DocumentID: doc, ChunkIndex: idx, Text: "text " + id, Embedding: emb}
}

func TestMemoryStoreSearchOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2)
	require.NoError(t, store.Upsert(ctx, []Record{
		rec("a:0", "a", 0, []float32{1, 0}),
		rec("a:1", "a", 1, []float32{0.9, 0.1}),
		rec("a:2", "a", 2, []float32{0, 1}),
	}))

	matches, err := store.Search(ctx, []float32{1, 0}, 10, -1)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	for i := 1; i < len(matches); i++ {
		require.LessOrEqual(t, matches[i].Score, matches[i-1].Score)
	}
	require.Equal(t, 0, matches[0].ChunkIndex)
}

func TestMemoryStoreSearchTiesByInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2)
	// identical vectors, identical scores
	require.NoError(t, store.Upsert(ctx, []Record{
		rec("x:0", "x", 0, []float32{1, 0}),
		rec("y:0", "y", 0, []float32{1, 0}),
		rec("z:0", "z", 0, []float32{1, 0}),
	}))

	matches, err := store.Search(ctx, []float32{1, 0}, 3, 0)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	require.Equal(t, "x", matches[0].DocumentID)
	require.Equal(t, "y", matches[1].DocumentID)
	require.Equal(t, "z", matches[2].DocumentID)
}

func TestMemoryStoreSearchRespectsKAndMinScore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2)
	require.NoError(t, store.Upsert(ctx, []Record{
		rec("a:0", "a", 0, []float32{1, 0}),
		rec("a:1", "a", 1, []float32{0.8, 0.2}),
		rec("a:2", "a", 2, []float32{0.6, 0.4}),
		rec("a:3", "a", 3, []float32{0, 1}),
		rec("a:4", "a", 4, []float32{-1, 0}),
	}))

	matches, err := store.Search(ctx, []float32{1, 0}, 3, 0.5)
	require.NoError(t, err)
	require.LessOrEqual(t, len(matches), 3)
	for _, m := range matches {
		require.GreaterOrEqual(t, m.Score, float32(0.5))
	}
}

func TestMemoryStoreSearchInvalidK(t *testing.T) {
	store := NewMemoryStore(2)
	_, err := store.Search(context.Background(), []float32{1, 0}, 0, 0)
	require.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestMemoryStoreUpsertOverwritesByID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2)
	require.NoError(t, store.Upsert(ctx, []Record{rec("a:0", "a", 0, []float32{1, 0})}))
	require.NoError(t, store.Upsert(ctx, []Record{
		{ID: "a:0", DocumentID: "a", ChunkIndex: 0, Text: "updated", Embedding: []float32{0, 1}},
	}))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	matches, err := store.Search(ctx, []float32{0, 1}, 1, 0.5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "updated", matches[0].Text)
}

func TestMemoryStoreUpsertDimensionMismatch(t *testing.T) {
	store := NewMemoryStore(3)
	err := store.Upsert(context.Background(), []Record{rec("a:0", "a", 0, []float32{1, 0})})
	require.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestMemoryStoreDeleteByDocument(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2)
	require.NoError(t, store.Upsert(ctx, []Record{
		rec("a:0", "a", 0, []float32{1, 0}),
		rec("a:1", "a", 1, []float32{0, 1}),
		rec("b:0", "b", 0, []float32{1, 1}),
	}))

	removed, err := store.DeleteByDocument(ctx, "a")
	require.NoError(t, err)
	require.EqualValues(t, 2, removed)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestMemoryStoreClearIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2)
	require.NoError(t, store.Upsert(ctx, []Record{rec("a:0", "a", 0, []float32{1, 0})}))

	require.NoError(t, store.Clear(ctx))
	count, err := store.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 0, count)

	// clearing an empty store is a no-op
	require.NoError(t, store.Clear(ctx))
}

func TestMemoryStoreSearchEmpty(t *testing.T) {
	store := NewMemoryStore(2)
	matches, err := store.Search(context.Background(), []float32{1, 0}, 5, 0)
	require.NoError(t, err)
	require.Empty(t, matches)
}
