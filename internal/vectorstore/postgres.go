package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	apperr "github.com/medscribe/clinrag/internal/pkg/errors"
)

// PostgresStore keeps chunk vectors in a pgvector-enabled Postgres table.
// The seq column is a bigserial assigned on first insert, which is what
// makes the search tie-break deterministic.
type PostgresStore struct {
	db  *sql.DB
	dim int
}

func NewPostgresStore(db *sql.DB, dim int) *PostgresStore {
	return &PostgresStore{db: db, dim: dim}
}

func (s *PostgresStore) Upsert(ctx context.Context, records []Record) error {
	const query = `
		INSERT INTO chunks (id, document_id, chunk_index, content, embedding, ctime)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			chunk_index = EXCLUDED.chunk_index,
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			ctime = EXCLUDED.ctime
	`
	now := time.Now().UnixMilli()
	for _, rec := range records {
		if s.dim > 0 && len(rec.Embedding) != s.dim {
			return fmt.Errorf("%w: embedding for %s has dimension %d, store expects %d",
				apperr.ErrInvalid, rec.ID, len(rec.Embedding), s.dim)
		}
		_, err := s.db.ExecContext(ctx, query,
			rec.ID, rec.DocumentID, rec.ChunkIndex, rec.Text,
			pgvector.NewVector(rec.Embedding), now)
		if err != nil {
			return s.mapErr(err)
		}
	}
	return nil
}

func (s *PostgresStore) Search(ctx context.Context, vector []float32, k int, minScore float32) ([]Match, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be >= 1, got %d", apperr.ErrInvalid, k)
	}
	if s.dim > 0 && len(vector) != s.dim {
		return nil, fmt.Errorf("%w: query vector has dimension %d, store expects %d",
			apperr.ErrInvalid, len(vector), s.dim)
	}
	const query = `
		SELECT content, document_id, chunk_index, 1 - (embedding <=> $1) AS score
		FROM chunks
		WHERE 1 - (embedding <=> $1) >= $2
		ORDER BY score DESC, seq ASC
		LIMIT $3
	`
	rows, err := s.db.QueryContext(ctx, query, pgvector.NewVector(vector), minScore, k)
	if err != nil {
		return nil, s.mapErr(err)
	}
	defer rows.Close()
	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.Text, &m.DocumentID, &m.ChunkIndex, &m.Score); err != nil {
			return nil, s.mapErr(err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (s *PostgresStore) DeleteByDocument(ctx context.Context, documentID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return 0, s.mapErr(err)
	}
	return res.RowsAffected()
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return s.mapErr(err)
	}
	return nil
}

func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count); err != nil {
		return 0, s.mapErr(err)
	}
	return count, nil
}

func (s *PostgresStore) mapErr(err error) error {
	if pgErr, ok := err.(*pq.Error); ok && pgErr.Code == "42P01" {
		// undefined_table: the index has not been created yet
		return fmt.Errorf("%w: %v", apperr.ErrIndexNotReady, err)
	}
	return fmt.Errorf("%w: %v", apperr.ErrUnavailable, err)
}
