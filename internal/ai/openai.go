package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperr "github.com/medscribe/clinrag/internal/pkg/errors"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

type openAIConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
}

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIChatMsg `json:"messages"`
	Temperature *float32        `json:"temperature,omitempty"`
	Stream      bool            `json:"stream"`
}

type openAIChatMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type openAIStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

type openAIEmbedRequest struct {
	Model string      `json:"model"`
	Input interface{} `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

type openAIProvider struct {
	apiKey  string
	baseURL string
}

func (p *openAIProvider) Name() string {
	return "openai"
}

func (p *openAIProvider) post(ctx context.Context, path string, body interface{}) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	endpoint := strings.TrimRight(p.baseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return http.DefaultClient.Do(req)
}

func (p *openAIProvider) Generate(ctx context.Context, model string, prompt string, temperature float32) (string, error) {
	if p.apiKey == "" {
		return "", apperr.ErrUnavailable
	}
	resp, err := p.post(ctx, "/chat/completions", openAIChatRequest{
		Model:       model,
		Messages:    []openAIChatMsg{{Role: "user", Content: prompt}},
		Temperature: &temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: openai: %v", apperr.ErrGenerateFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: openai: %s: %s", apperr.ErrGenerateFailed, resp.Status, strings.TrimSpace(string(body)))
	}
	var out openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: openai: %v", apperr.ErrGenerateFailed, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: openai response has no choices", apperr.ErrGenerateFailed)
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

func (p *openAIProvider) GenerateStream(ctx context.Context, model string, prompt string, temperature float32, fn StreamFunc) error {
	if p.apiKey == "" {
		return apperr.ErrUnavailable
	}
	resp, err := p.post(ctx, "/chat/completions", openAIChatRequest{
		Model:       model,
		Messages:    []openAIChatMsg{{Role: "user", Content: prompt}},
		Temperature: &temperature,
		Stream:      true,
	})
	if err != nil {
		return fmt.Errorf("%w: openai: %v", apperr.ErrGenerateFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: openai: %s: %s", apperr.ErrGenerateFailed, resp.Status, strings.TrimSpace(string(body)))
	}
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			break
		}
		var chunk openAIStreamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return fmt.Errorf("%w: openai: %v", apperr.ErrGenerateFailed, err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		if err := fn(delta); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: openai: %v", apperr.ErrGenerateFailed, err)
	}
	return nil
}

type openAIEmbedProvider struct {
	apiKey  string
	baseURL string
}

func (p *openAIEmbedProvider) Name() string {
	return "openai"
}

func (p *openAIEmbedProvider) Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error) {
	vecs, err := p.EmbedBatch(ctx, model, []string{text}, taskType)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (p *openAIEmbedProvider) EmbedBatch(ctx context.Context, model string, texts []string, taskType string) ([][]float32, error) {
	_ = taskType // openai embeddings have no task type dimension
	if p.apiKey == "" {
		return nil, apperr.ErrUnavailable
	}
	if len(texts) == 0 {
		return nil, nil
	}
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("%w: empty text", apperr.ErrInvalid)
		}
	}
	data, err := json.Marshal(openAIEmbedRequest{Model: model, Input: texts})
	if err != nil {
		return nil, err
	}
	endpoint := strings.TrimRight(p.baseURL, "/") + "/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: openai: %v", apperr.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: openai: %s: %s", apperr.ErrUnavailable, resp.Status, strings.TrimSpace(string(body)))
	}
	var out openAIEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: openai: %v", apperr.ErrUnavailable, err)
	}
	if len(out.Data) != len(texts) {
		return nil, fmt.Errorf("%w: openai returned %d embeddings for %d inputs", apperr.ErrUnavailable, len(out.Data), len(texts))
	}
	// the API reports an index per item; place by index so batch order always
	// matches input order
	vecs := make([][]float32, len(texts))
	for _, item := range out.Data {
		if item.Index < 0 || item.Index >= len(vecs) {
			return nil, fmt.Errorf("%w: openai returned embedding index %d out of range", apperr.ErrUnavailable, item.Index)
		}
		vecs[item.Index] = item.Embedding
	}
	return vecs, nil
}

func createOpenAIFactory(args interface{}) (IGenProvider, error) {
	cfg := &openAIConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &openAIProvider{apiKey: strings.TrimSpace(cfg.APIKey), baseURL: baseURL}, nil
}

func createOpenAIEmbedFactory(args interface{}) (IEmbedProvider, error) {
	cfg := &openAIConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &openAIEmbedProvider{apiKey: strings.TrimSpace(cfg.APIKey), baseURL: baseURL}, nil
}

func init() {
	Register("openai", createOpenAIFactory)
	RegisterEmbed("openai", createOpenAIEmbedFactory)
}
