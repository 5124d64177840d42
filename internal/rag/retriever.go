package rag

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/tanyadoc/tanyadoc/internal/ai"
	"github.com/tanyadoc/tanyadoc/internal/model"
)

// SearchStore is the slice of the chunk repository retrieval needs.
type SearchStore interface {
	Nearest(ctx context.Context, userID string, query []float32, threshold float32, limit int, fileName string) ([]*model.ScoredChunk, error)
}

type Retriever struct {
	embedder  ai.IEmbedder
	store     SearchStore
	threshold float32
	topK      int
}

func NewRetriever(embedder ai.IEmbedder, store SearchStore, threshold float32, topK int) *Retriever {
	return &Retriever{
		embedder:  embedder,
		store:     store,
		threshold: threshold,
		topK:      topK,
	}
}

// Retrieve embeds the query and returns the user's nearest chunks above
// the similarity threshold, best first. An empty result means no grounded
// answer is possible, not a failure.
func (r *Retriever) Retrieve(ctx context.Context, userID, query, focusFile string) ([]*model.ScoredChunk, error) {
	vec, err := r.embedder.Embed(ctx, query, ai.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	results, err := r.store.Nearest(ctx, userID, vec, r.threshold, r.topK, focusFile)
	if err != nil {
		return nil, fmt.Errorf("nearest chunks: %w", err)
	}
	logutil.GetLogger(ctx).Debug("retrieval done",
		zap.String("user_id", userID),
		zap.String("focus", focusFile),
		zap.Int("matches", len(results)),
	)
	return results, nil
}
