package embedcache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/tanyadoc/tanyadoc/internal/ai"
)

// WrapLRU puts an in-process expirable LRU in front of an embedder. Only
// single-text calls go through the cache; query embeddings are the repeat
// traffic, document batches are one-shot.
func WrapLRU(e ai.IEmbedder, size int, ttl time.Duration) ai.IEmbedder {
	if e == nil || size <= 0 || ttl <= 0 {
		return e
	}
	return &lruEmbedder{
		next:  e,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

type lruEmbedder struct {
	next  ai.IEmbedder
	cache *expirable.LRU[string, []float32]
}

func (l *lruEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	key, _ := buildCacheKey(l.next.ModelName(), taskType, text)
	if cached, ok := l.cache.Get(key); ok {
		logutil.GetLogger(ctx).Debug("embedding cache hit (lru)", zap.String("task_type", taskType))
		return cloneEmbedding(cached), nil
	}
	vec, err := l.next.Embed(ctx, text, taskType)
	if err != nil {
		return nil, err
	}
	l.cache.Add(key, cloneEmbedding(vec))
	return vec, nil
}

func (l *lruEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	return l.next.EmbedBatch(ctx, texts, taskType)
}

func (l *lruEmbedder) ModelName() string {
	return l.next.ModelName()
}
