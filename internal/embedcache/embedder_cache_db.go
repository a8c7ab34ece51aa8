package embedcache

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/medscribe/clinrag/internal/ai"
	"github.com/medscribe/clinrag/internal/model"
	"github.com/medscribe/clinrag/internal/repo"
)

// WrapDBCache puts the Postgres embedding cache behind an embedder. Cache
// write failures are logged and ignored; the embedding itself is still
// returned.
func WrapDBCache(e ai.IEmbedder, cacheRepo *repo.EmbeddingCacheRepo) ai.IEmbedder {
	if e == nil || cacheRepo == nil {
		return e
	}
	return &dbEmbedder{next: e, repo: cacheRepo}
}

type dbEmbedder struct {
	next ai.IEmbedder
	repo *repo.EmbeddingCacheRepo
}

func (d *dbEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	_, contentHash, modelName := buildCacheKey(d.next.ModelName(), taskType, text)
	values, ok, err := d.repo.Get(ctx, modelName, taskType, contentHash)
	if err == nil && ok {
		logutil.GetLogger(ctx).Debug("embedding cache hit (db)", zap.String("task_type", taskType))
		return values, nil
	}
	if err != nil {
		logutil.GetLogger(ctx).Warn("embedding cache lookup failed", zap.Error(err))
	}
	res, err := d.next.Embed(ctx, text, taskType)
	if err != nil {
		return nil, err
	}
	d.save(ctx, modelName, taskType, contentHash, res)
	return res, nil
}

func (d *dbEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int
	for i, text := range texts {
		_, contentHash, modelName := buildCacheKey(d.next.ModelName(), taskType, text)
		values, ok, err := d.repo.Get(ctx, modelName, taskType, contentHash)
		if err == nil && ok {
			out[i] = values
			continue
		}
		if err != nil {
			logutil.GetLogger(ctx).Warn("embedding cache lookup failed", zap.Error(err))
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}
	if len(missTexts) == 0 {
		return out, nil
	}
	vecs, err := d.next.EmbedBatch(ctx, missTexts, taskType)
	if err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
		_, contentHash, modelName := buildCacheKey(d.next.ModelName(), taskType, texts[i])
		d.save(ctx, modelName, taskType, contentHash, vecs[j])
	}
	return out, nil
}

func (d *dbEmbedder) ModelName() string {
	return d.next.ModelName()
}

func (d *dbEmbedder) save(ctx context.Context, modelName, taskType, contentHash string, values []float32) {
	err := d.repo.Save(ctx, &model.EmbeddingCache{
		ModelName:   modelName,
		TaskType:    taskType,
		ContentHash: contentHash,
		Embedding:   values,
		Ctime:       time.Now().Unix(),
	})
	if err != nil {
		logutil.GetLogger(ctx).Warn("failed to cache embedding", zap.Error(err))
	}
}
