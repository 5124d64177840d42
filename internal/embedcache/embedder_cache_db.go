package embedcache

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/tanyadoc/tanyadoc/internal/ai"
	"github.com/tanyadoc/tanyadoc/internal/model"
)

type CacheStore interface {
	Get(ctx context.Context, modelName, taskType, contentHash string) ([]float32, bool, error)
	Save(ctx context.Context, item *model.EmbeddingCache) error
}

// WrapDB puts the persistent embedding cache in front of an embedder.
// Store failures never fail the embed call; the cache degrades to a
// pass-through.
func WrapDB(e ai.IEmbedder, store CacheStore) ai.IEmbedder {
	if e == nil || store == nil {
		return e
	}
	return &dbEmbedder{next: e, store: store}
}

type dbEmbedder struct {
	next  ai.IEmbedder
	store CacheStore
}

func (d *dbEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	vecs, err := d.EmbedBatch(ctx, []string{text}, taskType)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (d *dbEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	logger := logutil.GetLogger(ctx)
	modelName := d.next.ModelName()

	vecs := make([][]float32, len(texts))
	hashes := make([]string, len(texts))
	var missTexts []string
	var missIdx []int
	for i, text := range texts {
		_, hash := buildCacheKey(modelName, taskType, text)
		hashes[i] = hash
		cached, ok, err := d.store.Get(ctx, modelName, taskType, hash)
		if err != nil {
			logger.Warn("embedding cache lookup failed", zap.Error(err))
			ok = false
		}
		if ok {
			vecs[i] = cloneEmbedding(cached)
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}
	if len(missTexts) == 0 {
		logger.Debug("embedding cache hit (db)", zap.Int("count", len(texts)))
		return vecs, nil
	}

	fresh, err := d.next.EmbedBatch(ctx, missTexts, taskType)
	if err != nil {
		return nil, err
	}
	now := time.Now().UnixMilli()
	for j, vec := range fresh {
		i := missIdx[j]
		vecs[i] = vec
		item := &model.EmbeddingCache{
			ModelName:   modelName,
			TaskType:    taskType,
			ContentHash: hashes[i],
			Embedding:   vec,
			Ctime:       now,
		}
		if err := d.store.Save(ctx, item); err != nil {
			logger.Warn("embedding cache save failed", zap.Error(err))
		}
	}
	return vecs, nil
}

func (d *dbEmbedder) ModelName() string {
	return d.next.ModelName()
}
