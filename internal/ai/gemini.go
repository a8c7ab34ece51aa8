package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	apperr "github.com/medscribe/clinrag/internal/pkg/errors"
)

type geminiConfig struct {
	APIKey string `json:"api_key"`
}

type geminiProvider struct {
	apiKey string
}

func (p *geminiProvider) Name() string {
	return "gemini"
}

func (p *geminiProvider) client(ctx context.Context) (*genai.Client, error) {
	if p.apiKey == "" {
		return nil, apperr.ErrUnavailable
	}
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
}

func (p *geminiProvider) Generate(ctx context.Context, model string, prompt string, temperature float32) (string, error) {
	client, err := p.client(ctx)
	if err != nil {
		return "", err
	}
	resp, err := client.Models.GenerateContent(
		ctx,
		model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{Temperature: genai.Ptr(temperature)},
	)
	if err != nil {
		return "", fmt.Errorf("%w: gemini: %v", apperr.ErrGenerateFailed, err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

func (p *geminiProvider) GenerateStream(ctx context.Context, model string, prompt string, temperature float32, fn StreamFunc) error {
	client, err := p.client(ctx)
	if err != nil {
		return err
	}
	for resp, err := range client.Models.GenerateContentStream(
		ctx,
		model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{Temperature: genai.Ptr(temperature)},
	) {
		if err != nil {
			return fmt.Errorf("%w: gemini: %v", apperr.ErrGenerateFailed, err)
		}
		delta := resp.Text()
		if delta == "" {
			continue
		}
		if err := fn(delta); err != nil {
			return err
		}
	}
	return nil
}

type geminiEmbedProvider struct {
	apiKey string
}

func (p *geminiEmbedProvider) Name() string {
	return "gemini"
}

func (p *geminiEmbedProvider) Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error) {
	vecs, err := p.EmbedBatch(ctx, model, []string{text}, taskType)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (p *geminiEmbedProvider) EmbedBatch(ctx context.Context, model string, texts []string, taskType string) ([][]float32, error) {
	if p.apiKey == "" {
		return nil, apperr.ErrUnavailable
	}
	if len(texts) == 0 {
		return nil, nil
	}
	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("%w: empty text", apperr.ErrInvalid)
		}
		contents = append(contents, &genai.Content{Parts: []*genai.Part{{Text: text}}})
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: gemini: %v", apperr.ErrUnavailable, err)
	}
	var config *genai.EmbedContentConfig
	if taskType != "" {
		config = &genai.EmbedContentConfig{TaskType: taskType}
	}
	resp, err := client.Models.EmbedContent(ctx, model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini: %v", apperr.ErrUnavailable, err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: gemini returned %d embeddings for %d inputs", apperr.ErrUnavailable, len(resp.Embeddings), len(texts))
	}
	vecs := make([][]float32, 0, len(texts))
	for _, emb := range resp.Embeddings {
		vecs = append(vecs, emb.Values)
	}
	return vecs, nil
}

func createGeminiFactory(args interface{}) (IGenProvider, error) {
	cfg := &geminiConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	return &geminiProvider{apiKey: strings.TrimSpace(cfg.APIKey)}, nil
}

func createGeminiEmbedFactory(args interface{}) (IEmbedProvider, error) {
	cfg := &geminiConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	return &geminiEmbedProvider{apiKey: strings.TrimSpace(cfg.APIKey)}, nil
}

func init() {
	Register("gemini", createGeminiFactory)
	RegisterEmbed("gemini", createGeminiEmbedFactory)
}
