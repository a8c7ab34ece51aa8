package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/medscribe/clinrag/internal/chunker"
	"github.com/medscribe/clinrag/internal/filestore"
	"github.com/medscribe/clinrag/internal/model"
	"github.com/medscribe/clinrag/internal/pkg/errors"
	"github.com/medscribe/clinrag/internal/repo"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type DocumentOptions struct {
	MaxDocumentBytes int64
}

// DocumentService handles the upload side: flatten markdown, archive the raw
// bytes, feed the text through the retrieval pipeline, and track metadata.
// Both docs and archive may be nil when running on the in-memory store;
// metadata and the raw-byte archive are skipped in that mode.
type DocumentService struct {
	retrieval *RetrievalService
	docs      *repo.DocumentRepo
	archive   filestore.Store
	opts      DocumentOptions
}

func NewDocumentService(retrieval *RetrievalService, docs *repo.DocumentRepo, archive filestore.Store, opts DocumentOptions) *DocumentService {
	if opts.MaxDocumentBytes <= 0 {
		opts.MaxDocumentBytes = 4 << 20
	}
	return &DocumentService{retrieval: retrieval, docs: docs, archive: archive, opts: opts}
}

// Upload indexes one document. When id is empty it derives from the name,
// so re-uploading the same file replaces its vector records instead of
// piling up.
func (s *DocumentService) Upload(ctx context.Context, id, name string, content []byte) (*model.Document, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: document name is empty", errors.ErrInvalid)
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: document is empty", errors.ErrInvalid)
	}
	if int64(len(content)) > s.opts.MaxDocumentBytes {
		return nil, fmt.Errorf("%w: document exceeds %d bytes", errors.ErrInvalid, s.opts.MaxDocumentBytes)
	}
	text := string(content)
	if isMarkdownName(name) {
		text = chunker.PlainText(text)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: document has no indexable text", errors.ErrInvalid)
	}
	id = strings.TrimSpace(id)
	if id == "" {
		id = documentID(name)
	}
	if s.archive != nil {
		if err := s.archive.Save(ctx, id, filestore.NewBytesReader(content), int64(len(content))); err != nil {
			return nil, fmt.Errorf("archive document: %w", err)
		}
	}
	chunkCount, err := s.retrieval.Ingest(ctx, id, text)
	if err != nil {
		return nil, err
	}
	now := time.Now().UnixMilli()
	doc := &model.Document{
		ID:          id,
		Name:        name,
		ContentHash: contentHash(content),
		ChunkCount:  chunkCount,
		Size:        int64(len(content)),
		Ctime:       now,
		Mtime:       now,
	}
	if s.docs != nil {
		if err := s.docs.Upsert(ctx, doc); err != nil {
			return nil, fmt.Errorf("save document metadata: %w", err)
		}
	}
	logutil.GetLogger(ctx).Info("document uploaded", zap.String("document_id", id),
		zap.String("name", name), zap.Int("chunk_count", chunkCount))
	return doc, nil
}

func (s *DocumentService) List(ctx context.Context) ([]model.Document, error) {
	if s.docs == nil {
		return nil, nil
	}
	return s.docs.List(ctx)
}

func (s *DocumentService) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: document id is empty", errors.ErrInvalid)
	}
	if s.docs != nil {
		if _, err := s.docs.Get(ctx, id); err != nil {
			return err
		}
	}
	removed, err := s.retrieval.DeleteDocument(ctx, id)
	if err != nil {
		return err
	}
	if s.docs != nil {
		if err := s.docs.Delete(ctx, id); err != nil {
			return err
		}
	}
	logutil.GetLogger(ctx).Info("document deleted", zap.String("document_id", id),
		zap.Int64("chunks_removed", removed))
	return nil
}

// Clear drops every indexed chunk and every metadata row.
func (s *DocumentService) Clear(ctx context.Context) error {
	if err := s.retrieval.Clear(ctx); err != nil {
		return err
	}
	if s.docs != nil {
		if err := s.docs.DeleteAll(ctx); err != nil {
			return err
		}
	}
	logutil.GetLogger(ctx).Info("corpus cleared")
	return nil
}

func (s *DocumentService) Status(ctx context.Context) *model.Status {
	st := &model.Status{StoreReachable: true}
	chunks, err := s.retrieval.ChunkCount(ctx)
	if err != nil {
		logutil.GetLogger(ctx).Error("chunk count failed", zap.Error(err))
		st.StoreReachable = false
		return st
	}
	st.ChunkCount = chunks
	if s.docs != nil {
		docs, err := s.docs.List(ctx)
		if err != nil {
			logutil.GetLogger(ctx).Error("list documents failed", zap.Error(err))
			st.StoreReachable = false
			return st
		}
		st.DocumentCount = int64(len(docs))
	}
	return st
}

func isMarkdownName(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".md" || ext == ".markdown"
}

// documentID derives a stable ID from the name so re-uploads land on the
// same vector records.
func documentID(name string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(name)))
	return hex.EncodeToString(sum[:8])
}

func contentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
