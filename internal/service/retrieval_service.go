package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/medscribe/clinrag/internal/ai"
	"github.com/medscribe/clinrag/internal/chunker"
	"github.com/medscribe/clinrag/internal/pkg/errors"
	"github.com/medscribe/clinrag/internal/vectorstore"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const (
	taskTypeDocument = "RETRIEVAL_DOCUMENT"
	taskTypeQuery    = "RETRIEVAL_QUERY"
)

type RetrievalOptions struct {
	ChunkSize    int
	ChunkOverlap int
	TopK         int
	MinScore     float32
	EmbedTimeout time.Duration
}

// RetrievalService owns the chunk-embed-store half of the pipeline and the
// similarity search over it.
type RetrievalService struct {
	store    vectorstore.Store
	embedder ai.IEmbedder
	opts     RetrievalOptions
}

func NewRetrievalService(store vectorstore.Store, embedder ai.IEmbedder, opts RetrievalOptions) *RetrievalService {
	if opts.EmbedTimeout <= 0 {
		opts.EmbedTimeout = 30 * time.Second
	}
	return &RetrievalService{store: store, embedder: embedder, opts: opts}
}

// Ingest chunks the text, embeds every chunk, and replaces whatever the store
// held for the document. Returns the number of chunks written.
func (s *RetrievalService) Ingest(ctx context.Context, documentID string, text string) (int, error) {
	if strings.TrimSpace(documentID) == "" {
		return 0, fmt.Errorf("%w: document id is empty", errors.ErrInvalid)
	}
	if strings.TrimSpace(text) == "" {
		return 0, fmt.Errorf("%w: document text is empty", errors.ErrInvalid)
	}
	chunks, err := chunker.Split(text, s.opts.ChunkSize, s.opts.ChunkOverlap)
	if err != nil {
		return 0, err
	}
	// whitespace runs can produce windows with no content; embedding
	// providers reject blank input, so those windows are not indexed
	texts := make([]string, 0, len(chunks))
	n := 0
	for _, c := range chunks {
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		chunks[n] = c
		n++
		texts = append(texts, c.Text)
	}
	chunks = chunks[:n]
	ectx, cancel := context.WithTimeout(ctx, s.opts.EmbedTimeout)
	defer cancel()
	embeddings, err := s.embedder.EmbedBatch(ectx, texts, taskTypeDocument)
	if err != nil {
		return 0, fmt.Errorf("embed document chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return 0, fmt.Errorf("%w: embedding count mismatch, chunks:%d, embeddings:%d",
			errors.ErrInternal, len(chunks), len(embeddings))
	}
	records := make([]vectorstore.Record, 0, len(chunks))
	for i, c := range chunks {
		records = append(records, vectorstore.Record{
			ID:         fmt.Sprintf("%s:%d", documentID, c.Index),
			DocumentID: documentID,
			ChunkIndex: c.Index,
			Text:       c.Text,
			Embedding:  embeddings[i],
		})
	}
	// drop stale chunks first so a shrinking document leaves no orphans
	if _, err := s.store.DeleteByDocument(ctx, documentID); err != nil && !errors.IsIndexNotReady(err) {
		return 0, fmt.Errorf("delete previous chunks: %w", err)
	}
	if err := s.store.Upsert(ctx, records); err != nil {
		return 0, fmt.Errorf("store chunks: %w", err)
	}
	logutil.GetLogger(ctx).Debug("document ingested", zap.String("document_id", documentID),
		zap.Int("chunk_count", len(records)))
	return len(records), nil
}

// Retrieve embeds the question and returns the top matches. k and minScore
// override the configured defaults when provided. An empty or not yet
// created index yields an empty result, not an error.
func (s *RetrievalService) Retrieve(ctx context.Context, question string, k int, minScore *float32) ([]vectorstore.Match, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question is empty", errors.ErrInvalid)
	}
	if k <= 0 {
		k = s.opts.TopK
	}
	threshold := s.opts.MinScore
	if minScore != nil {
		threshold = *minScore
	}
	if threshold < -1 || threshold > 1 {
		return nil, fmt.Errorf("%w: min_score must be in [-1, 1]", errors.ErrInvalid)
	}
	ectx, cancel := context.WithTimeout(ctx, s.opts.EmbedTimeout)
	defer cancel()
	vector, err := s.embedder.Embed(ectx, question, taskTypeQuery)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	matches, err := s.store.Search(ctx, vector, k, threshold)
	if err != nil {
		if errors.IsIndexNotReady(err) {
			logutil.GetLogger(ctx).Info("vector index not ready, answering without context")
			return nil, nil
		}
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	return matches, nil
}

func (s *RetrievalService) ChunkCount(ctx context.Context) (int64, error) {
	count, err := s.store.Count(ctx)
	if err != nil {
		if errors.IsIndexNotReady(err) {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}

func (s *RetrievalService) DeleteDocument(ctx context.Context, documentID string) (int64, error) {
	if strings.TrimSpace(documentID) == "" {
		return 0, fmt.Errorf("%w: document id is empty", errors.ErrInvalid)
	}
	return s.store.DeleteByDocument(ctx, documentID)
}

func (s *RetrievalService) Clear(ctx context.Context) error {
	return s.store.Clear(ctx)
}
