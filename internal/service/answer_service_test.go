package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/medscribe/clinrag/internal/ai"
	"github.com/medscribe/clinrag/internal/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedGen struct {
	lastPrompt string
	lastModel  string
	lastTemp   float32
	answer     string
	deltas     []string
	err        error
}

func (g *scriptedGen) Name() string {
	return "scripted"
}

func (g *scriptedGen) Generate(ctx context.Context, model string, prompt string, temperature float32) (string, error) {
	g.lastPrompt, g.lastModel, g.lastTemp = prompt, model, temperature
	if g.err != nil {
		return "", g.err
	}
	return g.answer, nil
}

func (g *scriptedGen) GenerateStream(ctx context.Context, model string, prompt string, temperature float32, fn ai.StreamFunc) error {
	g.lastPrompt, g.lastModel, g.lastTemp = prompt, model, temperature
	if g.err != nil {
		return g.err
	}
	for _, delta := range g.deltas {
		if err := fn(delta); err != nil {
			return err
		}
	}
	return nil
}

var _ ai.IGenProvider = (*scriptedGen)(nil)

func newTestAnswer(t *testing.T, gen *scriptedGen) *AnswerService {
	t.Helper()
	retrieval, _ := newTestRetrieval(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := retrieval.Ingest(ctx, fmt.Sprintf("doc-%d", i), fmt.Sprintf("aspirin dosage note %d", i))
		require.NoError(t, err)
	}
	return NewAnswerService(retrieval, gen, AnswerOptions{
		DefaultModel:  "default-model",
		MaxInputChars: 200,
	})
}

func TestAskUsesTopKChunks(t *testing.T) {
	ctx := context.Background()
	gen := &scriptedGen{answer: "take with food"}
	svc := newTestAnswer(t, gen)

	res, err := svc.Ask(ctx, &AskRequest{Question: "aspirin dosage", TopK: 3})
	require.NoError(t, err)
	assert.Equal(t, "take with food", res.Answer)
	assert.Equal(t, 3, res.ChunkCount)
	assert.Equal(t, "default-model", res.Model)

	assert.True(t, strings.HasPrefix(gen.lastPrompt, systemPrompt))
	assert.Contains(t, gen.lastPrompt, "[source: doc-0#0]")
	assert.Contains(t, gen.lastPrompt, "Question:\naspirin dosage")
	assert.NotContains(t, gen.lastPrompt, noContextNotice)
}

func TestAskWithoutContext(t *testing.T) {
	ctx := context.Background()
	gen := &scriptedGen{answer: "cannot answer"}
	retrieval, _ := newTestRetrieval(t)
	svc := NewAnswerService(retrieval, gen, AnswerOptions{DefaultModel: "default-model"})

	res, err := svc.Ask(ctx, &AskRequest{Question: "aspirin dosage"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ChunkCount)
	assert.Contains(t, gen.lastPrompt, noContextNotice)
}

func TestAskOverrides(t *testing.T) {
	ctx := context.Background()
	gen := &scriptedGen{answer: "ok"}
	svc := newTestAnswer(t, gen)

	temp := float32(0.7)
	res, err := svc.Ask(ctx, &AskRequest{Question: "aspirin", Model: "fancy-model", Temperature: &temp})
	require.NoError(t, err)
	assert.Equal(t, "fancy-model", res.Model)
	assert.Equal(t, "fancy-model", gen.lastModel)
	assert.InDelta(t, 0.7, gen.lastTemp, 1e-6)
}

func TestAskInvalidRequest(t *testing.T) {
	ctx := context.Background()
	svc := newTestAnswer(t, &scriptedGen{})

	_, err := svc.Ask(ctx, &AskRequest{Question: "  "})
	assert.ErrorIs(t, err, errors.ErrInvalid)

	_, err = svc.Ask(ctx, &AskRequest{Question: strings.Repeat("q", 201)})
	assert.ErrorIs(t, err, errors.ErrInvalid)

	bad := float32(3)
	_, err = svc.Ask(ctx, &AskRequest{Question: "aspirin", Temperature: &bad})
	assert.ErrorIs(t, err, errors.ErrInvalid)
}

func TestAskGenerateFailure(t *testing.T) {
	ctx := context.Background()
	gen := &scriptedGen{err: fmt.Errorf("%w: upstream down", errors.ErrGenerateFailed)}
	svc := newTestAnswer(t, gen)

	_, err := svc.Ask(ctx, &AskRequest{Question: "aspirin"})
	assert.ErrorIs(t, err, errors.ErrGenerateFailed)
}

func TestAskStreamDeliversDeltas(t *testing.T) {
	ctx := context.Background()
	gen := &scriptedGen{deltas: []string{"take ", "with ", "food"}}
	svc := newTestAnswer(t, gen)

	var got []string
	matches, err := svc.AskStream(ctx, &AskRequest{Question: "aspirin", TopK: 2}, func(delta string) error {
		got = append(got, delta)
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, matches, 2)
	assert.Equal(t, []string{"take ", "with ", "food"}, got)
}

func TestAskStreamConsumerCancel(t *testing.T) {
	ctx := context.Background()
	gen := &scriptedGen{deltas: []string{"a", "b", "c"}}
	svc := newTestAnswer(t, gen)

	stop := fmt.Errorf("client went away")
	var got []string
	_, err := svc.AskStream(ctx, &AskRequest{Question: "aspirin"}, func(delta string) error {
		got = append(got, delta)
		if len(got) == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, []string{"a", "b"}, got)

	// the service stays usable after a cancelled stream
	res, askErr := svc.Ask(ctx, &AskRequest{Question: "aspirin"})
	require.NoError(t, askErr)
	assert.NotNil(t, res)
}
