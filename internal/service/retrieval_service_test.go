package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/medscribe/clinrag/internal/ai"
	"github.com/medscribe/clinrag/internal/pkg/errors"
	"github.com/medscribe/clinrag/internal/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wordEmbedder maps each text to a 3-dim vector keyed by which marker word
// it contains, so similarity between question and chunk is predictable.
type wordEmbedder struct {
	calls int
}

func (e *wordEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	e.calls++
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty text", errors.ErrInvalid)
	}
	switch {
	case strings.Contains(text, "aspirin"):
		return []float32{1, 0, 0}, nil
	case strings.Contains(text, "insulin"):
		return []float32{0, 1, 0}, nil
	default:
		return []float32{0, 0, 1}, nil
	}
}

func (e *wordEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		v, err := e.Embed(ctx, text, taskType)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (e *wordEmbedder) ModelName() string {
	return "test-embed"
}

var _ ai.IEmbedder = (*wordEmbedder)(nil)

func newTestRetrieval(t *testing.T) (*RetrievalService, *vectorstore.MemoryStore) {
	t.Helper()
	store := vectorstore.NewMemoryStore(3)
	svc := NewRetrievalService(store, &wordEmbedder{}, RetrievalOptions{
		ChunkSize:    40,
		ChunkOverlap: 8,
		TopK:         4,
		MinScore:     0.2,
	})
	return svc, store
}

func TestIngestAndRetrieve(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestRetrieval(t)

	n, err := svc.Ingest(ctx, "doc-aspirin", "aspirin reduces fever and inflammation")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = svc.Ingest(ctx, "doc-insulin", "insulin lowers blood glucose")
	require.NoError(t, err)

	matches, err := svc.Retrieve(ctx, "what does aspirin do", 0, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "doc-aspirin", matches[0].DocumentID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
}

func TestIngestReplacesPreviousChunks(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestRetrieval(t)

	long := strings.Repeat("aspirin dosing notes. ", 6)
	n, err := svc.Ingest(ctx, "doc-1", long)
	require.NoError(t, err)
	require.Greater(t, n, 1)

	n, err = svc.Ingest(ctx, "doc-1", "aspirin short")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestIngestSkipsBlankWindows(t *testing.T) {
	ctx := context.Background()
	store := vectorstore.NewMemoryStore(3)
	svc := NewRetrievalService(store, &wordEmbedder{}, RetrievalOptions{
		ChunkSize:    4,
		ChunkOverlap: 0,
		TopK:         4,
		MinScore:     0.2,
	})

	// the middle window is pure whitespace; the rest of the document still
	// gets indexed
	n, err := svc.Ingest(ctx, "doc-1", "ab        cd")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestRetrieveRespectsOverrides(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestRetrieval(t)

	for _, id := range []string{"a", "b", "c"} {
		_, err := svc.Ingest(ctx, "doc-"+id, "aspirin note "+id)
		require.NoError(t, err)
	}
	matches, err := svc.Retrieve(ctx, "aspirin", 2, nil)
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	// a threshold above every score filters all matches out
	high := float32(0.99)
	matches, err = svc.Retrieve(ctx, "metformin", 0, &high)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRetrieveInvalidInput(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestRetrieval(t)

	_, err := svc.Retrieve(ctx, "   ", 0, nil)
	assert.ErrorIs(t, err, errors.ErrInvalid)

	bad := float32(1.5)
	_, err = svc.Retrieve(ctx, "aspirin", 0, &bad)
	assert.ErrorIs(t, err, errors.ErrInvalid)
}

func TestIngestInvalidInput(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestRetrieval(t)

	_, err := svc.Ingest(ctx, "", "some text")
	assert.ErrorIs(t, err, errors.ErrInvalid)
	_, err = svc.Ingest(ctx, "doc-1", "  \n ")
	assert.ErrorIs(t, err, errors.ErrInvalid)
}

func TestRetrieveEmptyIndex(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestRetrieval(t)

	matches, err := svc.Retrieve(ctx, "anything", 0, nil)
	require.NoError(t, err)
	assert.Empty(t, matches)
}
