package vectorstore

import "context"

// Record is one embedded chunk. ID is "<document-id>:<chunk-index>" so a
// re-ingested chunk overwrites its previous version.
type Record struct {
	ID         string
	DocumentID string
	ChunkIndex int
	Text       string
	Embedding  []float32
}

// Match is one retrieval hit. Score is cosine similarity in [-1, 1].
type Match struct {
	Text       string  `json:"text"`
	DocumentID string  `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float32 `json:"score"`
}

// Store persists embedded chunks and answers nearest-neighbor queries.
//
// Search returns at most k matches with score >= minScore, ordered by
// descending score; ties break by insertion order, earliest first. A store
// whose index has not been created yet reports ErrIndexNotReady; callers
// treat that as an empty corpus.
type Store interface {
	Upsert(ctx context.Context, records []Record) error
	Search(ctx context.Context, vector []float32, k int, minScore float32) ([]Match, error)
	DeleteByDocument(ctx context.Context, documentID string) (int64, error)
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
}
