package service

import (
	"context"
	"testing"

	"github.com/medscribe/clinrag/internal/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDocuments(t *testing.T) (*DocumentService, *RetrievalService) {
	t.Helper()
	retrieval, _ := newTestRetrieval(t)
	return NewDocumentService(retrieval, nil, nil, DocumentOptions{MaxDocumentBytes: 1024}), retrieval
}

func TestUploadAndRetrieve(t *testing.T) {
	ctx := context.Background()
	svc, retrieval := newTestDocuments(t)

	doc, err := svc.Upload(ctx, "", "aspirin.txt", []byte("aspirin reduces fever"))
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, 1, doc.ChunkCount)
	assert.Len(t, doc.ContentHash, 64)

	matches, err := retrieval.Retrieve(ctx, "aspirin", 0, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, doc.ID, matches[0].DocumentID)
}

func TestUploadMarkdownFlattened(t *testing.T) {
	ctx := context.Background()
	svc, retrieval := newTestDocuments(t)

	md := "# Dosage\n\nTake **aspirin** with water.\n"
	doc, err := svc.Upload(ctx, "", "dosage.md", []byte(md))
	require.NoError(t, err)

	matches, err := retrieval.Retrieve(ctx, "aspirin", 0, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, doc.ID, matches[0].DocumentID)
	assert.NotContains(t, matches[0].Text, "**")
	assert.NotContains(t, matches[0].Text, "#")
}

func TestUploadSameNameReplaces(t *testing.T) {
	ctx := context.Background()
	svc, retrieval := newTestDocuments(t)

	first, err := svc.Upload(ctx, "", "notes.txt", []byte("aspirin aspirin aspirin"))
	require.NoError(t, err)
	second, err := svc.Upload(ctx, "", "notes.txt", []byte("insulin brief"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	count, err := retrieval.ChunkCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, second.ChunkCount, count)
}

func TestUploadExplicitID(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestDocuments(t)

	doc, err := svc.Upload(ctx, "doc-42", "aspirin.txt", []byte("aspirin reduces fever"))
	require.NoError(t, err)
	assert.Equal(t, "doc-42", doc.ID)
}

func TestUploadValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestDocuments(t)

	_, err := svc.Upload(ctx, "", "", []byte("text"))
	assert.ErrorIs(t, err, errors.ErrInvalid)
	_, err = svc.Upload(ctx, "", "a.txt", nil)
	assert.ErrorIs(t, err, errors.ErrInvalid)
	_, err = svc.Upload(ctx, "", "big.txt", make([]byte, 2048))
	assert.ErrorIs(t, err, errors.ErrInvalid)
}

func TestClearAndStatus(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestDocuments(t)

	_, err := svc.Upload(ctx, "", "a.txt", []byte("aspirin one"))
	require.NoError(t, err)

	st := svc.Status(ctx)
	assert.True(t, st.StoreReachable)
	assert.EqualValues(t, 1, st.ChunkCount)

	require.NoError(t, svc.Clear(ctx))
	st = svc.Status(ctx)
	assert.EqualValues(t, 0, st.ChunkCount)
}

func TestDeleteDocument(t *testing.T) {
	ctx := context.Background()
	svc, retrieval := newTestDocuments(t)

	doc, err := svc.Upload(ctx, "", "a.txt", []byte("aspirin one"))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, doc.ID))

	count, err := retrieval.ChunkCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}
