package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/tanyadoc/tanyadoc/internal/repo"
)

// EmbedCacheCleanupJob drops persistent embedding-cache rows older than
// the retention window.
type EmbedCacheCleanupJob struct {
	cache    *repo.EmbeddingCacheRepo
	keepDays int
}

func NewEmbedCacheCleanupJob(cache *repo.EmbeddingCacheRepo, keepDays int) *EmbedCacheCleanupJob {
	return &EmbedCacheCleanupJob{cache: cache, keepDays: keepDays}
}

func (j *EmbedCacheCleanupJob) Name() string {
	return "embed_cache_cleanup"
}

func (j *EmbedCacheCleanupJob) Run(ctx context.Context) error {
	cutoff := time.Now().AddDate(0, 0, -j.keepDays).UnixMilli()
	removed, err := j.cache.DeleteBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("embedding cache cleaned", zap.Int64("removed", removed))
	return nil
}
