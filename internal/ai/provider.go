package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// StreamFunc receives one generation increment. Returning an error stops the
// stream; the provider releases its resources and hands that same error back
// to the caller.
type StreamFunc func(delta string) error

type IGenProvider interface {
	Name() string
	Generate(ctx context.Context, model string, prompt string, temperature float32) (string, error)
	GenerateStream(ctx context.Context, model string, prompt string, temperature float32, fn StreamFunc) error
}

type IEmbedProvider interface {
	Name() string
	Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error)
	EmbedBatch(ctx context.Context, model string, texts []string, taskType string) ([][]float32, error)
}

type IEmbedder interface {
	Embed(ctx context.Context, text string, taskType string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error)
	ModelName() string
}

type embedder struct {
	provider IEmbedProvider
	model    string
}

func NewEmbedder(p IEmbedProvider, model string) IEmbedder {
	return &embedder{provider: p, model: model}
}

func (e *embedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	return e.provider.Embed(ctx, e.model, text, taskType)
}

func (e *embedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	return e.provider.EmbedBatch(ctx, e.model, texts, taskType)
}

func (e *embedder) ModelName() string {
	return e.model
}

type GenFactory func(args interface{}) (IGenProvider, error)
type EmbedFactory func(args interface{}) (IEmbedProvider, error)

var (
	genRegistry   = map[string]GenFactory{}
	embedRegistry = map[string]EmbedFactory{}
)

func Register(name string, factory GenFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	genRegistry[key] = factory
}

func RegisterEmbed(name string, factory EmbedFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	embedRegistry[key] = factory
}

func NewProvider(name string, args interface{}) (IGenProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	factory := genRegistry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported ai provider: %s", name)
	}
	return factory(args)
}

func NewEmbedProvider(name string, args interface{}) (IEmbedProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai.embed_provider is required")
	}
	factory := embedRegistry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported embedding provider: %s", name)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("ai provider config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode ai provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode ai provider config: %w", err)
	}
	return nil
}
