package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/medscribe/clinrag/internal/model"
	"github.com/medscribe/clinrag/internal/pkg/dbutil"
	apperr "github.com/medscribe/clinrag/internal/pkg/errors"
)

const documentFields = "id, name, content_hash, chunk_count, size, ctime, mtime"

type DocumentRepo struct {
	db *sql.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) Upsert(ctx context.Context, doc *model.Document) error {
	const query = `
		INSERT INTO documents (id, name, content_hash, chunk_count, size, ctime, mtime)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			content_hash = EXCLUDED.content_hash,
			chunk_count = EXCLUDED.chunk_count,
			size = EXCLUDED.size,
			mtime = EXCLUDED.mtime
	`
	_, err := r.db.ExecContext(ctx, query,
		doc.ID, doc.Name, doc.ContentHash, doc.ChunkCount, doc.Size, doc.Ctime, doc.Mtime)
	return err
}

func (r *DocumentRepo) Get(ctx context.Context, id string) (*model.Document, error) {
	where := map[string]interface{}{
		"id": id,
	}
	sqlStr, args, err := builder.BuildSelect("documents",
		where, []string{"id", "name", "content_hash", "chunk_count", "size", "ctime", "mtime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	row := r.db.QueryRowContext(ctx, sqlStr, args...)
	var doc model.Document
	if err := row.Scan(&doc.ID, &doc.Name, &doc.ContentHash, &doc.ChunkCount, &doc.Size, &doc.Ctime, &doc.Mtime); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepo) List(ctx context.Context) ([]model.Document, error) {
	where := map[string]interface{}{
		"_orderby": "mtime desc",
	}
	sqlStr, args, err := builder.BuildSelect("documents",
		where, []string{"id", "name", "content_hash", "chunk_count", "size", "ctime", "mtime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocuments(rows)
}

func (r *DocumentRepo) ListByIDs(ctx context.Context, ids []string) ([]model.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + documentFields + ` FROM documents WHERE id IN (?)`
	query, args, err := sqlx.In(query, ids)
	if err != nil {
		return nil, err
	}
	query = sqlx.Rebind(sqlx.DOLLAR, query)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocuments(rows)
}

func (r *DocumentRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	return err
}

func (r *DocumentRepo) DeleteAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM documents`)
	return err
}

func scanDocuments(rows *sql.Rows) ([]model.Document, error) {
	var docs []model.Document
	for rows.Next() {
		var doc model.Document
		if err := rows.Scan(&doc.ID, &doc.Name, &doc.ContentHash, &doc.ChunkCount, &doc.Size, &doc.Ctime, &doc.Mtime); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}
