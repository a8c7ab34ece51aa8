package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/medscribe/clinrag/internal/ai"
	"github.com/medscribe/clinrag/internal/pkg/errors"
	"github.com/medscribe/clinrag/internal/vectorstore"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const systemPrompt = "You are a clinical assistant. Use only the context provided to answer questions about healthcare."

const noContextNotice = "No relevant context was found in the indexed documents. " +
	"Tell the user you cannot answer from the available material."

type AskRequest struct {
	Question    string   `json:"question"`
	TopK        int      `json:"top_k"`
	MinScore    *float32 `json:"min_score"`
	Model       string   `json:"model"`
	Temperature *float32 `json:"temperature"`
	Stream      bool     `json:"stream"`
}

type AskResult struct {
	Question   string              `json:"question"`
	Answer     string              `json:"answer"`
	Model      string              `json:"model"`
	Chunks     []vectorstore.Match `json:"chunks"`
	ChunkCount int                 `json:"chunk_count"`
}

type AnswerOptions struct {
	DefaultModel  string
	MaxInputChars int
	GenTimeout    time.Duration
}

// AnswerService completes the pipeline: retrieve context for a question,
// assemble the prompt, and hand it to the generation provider.
type AnswerService struct {
	retrieval *RetrievalService
	gen       ai.IGenProvider
	opts      AnswerOptions
}

func NewAnswerService(retrieval *RetrievalService, gen ai.IGenProvider, opts AnswerOptions) *AnswerService {
	if opts.GenTimeout <= 0 {
		opts.GenTimeout = 60 * time.Second
	}
	if opts.MaxInputChars <= 0 {
		opts.MaxInputChars = 8000
	}
	return &AnswerService{retrieval: retrieval, gen: gen, opts: opts}
}

func (s *AnswerService) Ask(ctx context.Context, req *AskRequest) (*AskResult, error) {
	prompt, matches, modelName, temperature, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	gctx, cancel := context.WithTimeout(ctx, s.opts.GenTimeout)
	defer cancel()
	answer, err := s.gen.Generate(gctx, modelName, prompt, temperature)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	return &AskResult{
		Question:   req.Question,
		Answer:     answer,
		Model:      modelName,
		Chunks:     matches,
		ChunkCount: len(matches),
	}, nil
}

// AskStream runs the same pipeline but forwards generation increments to fn
// as they arrive. The retrieved matches come back so the caller can announce
// them before the first delta.
func (s *AnswerService) AskStream(ctx context.Context, req *AskRequest, fn ai.StreamFunc) ([]vectorstore.Match, error) {
	prompt, matches, modelName, temperature, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	gctx, cancel := context.WithTimeout(ctx, s.opts.GenTimeout)
	defer cancel()
	if err := s.gen.GenerateStream(gctx, modelName, prompt, temperature, fn); err != nil {
		return matches, err
	}
	return matches, nil
}

func (s *AnswerService) prepare(ctx context.Context, req *AskRequest) (string, []vectorstore.Match, string, float32, error) {
	if req == nil || strings.TrimSpace(req.Question) == "" {
		return "", nil, "", 0, fmt.Errorf("%w: question is empty", errors.ErrInvalid)
	}
	if len(req.Question) > s.opts.MaxInputChars {
		return "", nil, "", 0, fmt.Errorf("%w: question exceeds %d characters", errors.ErrInvalid, s.opts.MaxInputChars)
	}
	if req.Temperature != nil && (*req.Temperature < 0 || *req.Temperature > 2) {
		return "", nil, "", 0, fmt.Errorf("%w: temperature must be in [0, 2]", errors.ErrInvalid)
	}
	matches, err := s.retrieval.Retrieve(ctx, req.Question, req.TopK, req.MinScore)
	if err != nil {
		return "", nil, "", 0, err
	}
	modelName := req.Model
	if modelName == "" {
		modelName = s.opts.DefaultModel
	}
	var temperature float32
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	logutil.GetLogger(ctx).Debug("prompt assembled", zap.String("model", modelName),
		zap.Int("chunk_count", len(matches)))
	return buildPrompt(req.Question, matches), matches, modelName, temperature, nil
}

// buildPrompt renders the system instruction, the retrieved context blocks
// in score order, and the question into a single prompt.
func buildPrompt(question string, matches []vectorstore.Match) string {
	var sb strings.Builder
	sb.WriteString(systemPrompt)
	sb.WriteString("\n\nContext:\n")
	if len(matches) == 0 {
		sb.WriteString(noContextNotice)
		sb.WriteString("\n")
	}
	for _, m := range matches {
		sb.WriteString(fmt.Sprintf("[source: %s#%d]\n", m.DocumentID, m.ChunkIndex))
		sb.WriteString(m.Text)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Question:\n")
	sb.WriteString(question)
	return sb.String()
}
