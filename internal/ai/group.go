package ai

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// GenEntry is one generation backend in a failover chain. Model, when set,
// replaces the requested model for this entry (fallback providers usually
// serve a different model).
type GenEntry struct {
	Name     string
	Model    string
	Provider IGenProvider
}

type groupGenProvider struct {
	items []GenEntry
}

// NewGroupGenProvider tries each entry in order until one succeeds.
func NewGroupGenProvider(items []GenEntry) IGenProvider {
	if len(items) == 0 {
		return nil
	}
	return &groupGenProvider{items: items}
}

func (g *groupGenProvider) Name() string {
	return "group"
}

func (g *groupGenProvider) resolveModel(entry GenEntry, model string) string {
	if entry.Model != "" {
		return entry.Model
	}
	return model
}

func (g *groupGenProvider) Generate(ctx context.Context, model string, prompt string, temperature float32) (string, error) {
	var lastErr error
	for i, item := range g.items {
		if item.Provider == nil {
			continue
		}
		res, err := item.Provider.Generate(ctx, g.resolveModel(item, model), prompt, temperature)
		if err == nil {
			return res, nil
		}
		lastErr = err
		logutil.GetLogger(ctx).Warn("generation provider failed",
			zap.Int("index", i), zap.String("name", item.Name), zap.Error(err))
	}
	if lastErr == nil {
		return "", fmt.Errorf("generation provider not configured")
	}
	return "", lastErr
}

func (g *groupGenProvider) GenerateStream(ctx context.Context, model string, prompt string, temperature float32, fn StreamFunc) error {
	var lastErr error
	for i, item := range g.items {
		if item.Provider == nil {
			continue
		}
		delivered := false
		wrapped := func(delta string) error {
			delivered = true
			return fn(delta)
		}
		err := item.Provider.GenerateStream(ctx, g.resolveModel(item, model), prompt, temperature, wrapped)
		if err == nil {
			return nil
		}
		if delivered {
			// a partially streamed generation is not retry-safe
			return err
		}
		lastErr = err
		logutil.GetLogger(ctx).Warn("generation provider failed",
			zap.Int("index", i), zap.String("name", item.Name), zap.Error(err))
	}
	if lastErr == nil {
		return fmt.Errorf("generation provider not configured")
	}
	return lastErr
}
