package chunker

import (
	"fmt"

	"github.com/medscribe/clinrag/internal/model"
	apperr "github.com/medscribe/clinrag/internal/pkg/errors"
)

// Split cuts text into windows of size bytes, each advancing by
// size-overlap. The last window may be shorter than size. Empty input
// produces no chunks. DocumentID is left for the caller to fill in.
func Split(text string, size, overlap int) ([]model.Chunk, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", apperr.ErrInvalid, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap must be in [0, size), got %d", apperr.ErrInvalid, overlap)
	}
	if len(text) == 0 {
		return nil, nil
	}
	step := size - overlap
	var chunks []model.Chunk
	for start := 0; start < len(text); start += step {
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, model.Chunk{
			Index: len(chunks),
			Text:  text[start:end],
			Start: start,
			End:   end,
		})
		if end == len(text) {
			break
		}
	}
	return chunks, nil
}
