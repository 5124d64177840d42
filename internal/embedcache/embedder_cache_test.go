package embedcache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tanyadoc/tanyadoc/internal/ai"
	"github.com/tanyadoc/tanyadoc/internal/model"
)

type countingEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text}, taskType)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	vecs := make([][]float32, len(texts))
	for i := range texts {
		vecs[i] = []float32{float32(len(texts[i])), float32(c.calls)}
	}
	return vecs, nil
}

func (c *countingEmbedder) ModelName() string {
	return "counting-embed"
}

type memCacheStore struct {
	mu    sync.Mutex
	items map[string]*model.EmbeddingCache
	fail  bool
	gets  int
	saves int
}

func newMemCacheStore() *memCacheStore {
	return &memCacheStore{items: make(map[string]*model.EmbeddingCache)}
}

func (m *memCacheStore) Get(ctx context.Context, modelName, taskType, contentHash string) ([]float32, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.fail {
		return nil, false, fmt.Errorf("cache store down")
	}
	item, ok := m.items[modelName+"|"+taskType+"|"+contentHash]
	if !ok {
		return nil, false, nil
	}
	return item.Embedding, true, nil
}

func (m *memCacheStore) Save(ctx context.Context, item *model.EmbeddingCache) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.fail {
		return fmt.Errorf("cache store down")
	}
	m.items[item.ModelName+"|"+item.TaskType+"|"+item.ContentHash] = item
	return nil
}

func TestLRUCacheHitSkipsInnerEmbedder(t *testing.T) {
	inner := &countingEmbedder{}
	cached := WrapLRU(inner, 16, time.Hour)

	first, err := cached.Embed(context.Background(), "teks", ai.TaskRetrievalQuery)
	require.NoError(t, err)
	second, err := cached.Embed(context.Background(), "teks", ai.TaskRetrievalQuery)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, inner.calls)
}

func TestLRUCacheKeyIncludesTaskType(t *testing.T) {
	inner := &countingEmbedder{}
	cached := WrapLRU(inner, 16, time.Hour)

	_, err := cached.Embed(context.Background(), "teks", ai.TaskRetrievalQuery)
	require.NoError(t, err)
	_, err = cached.Embed(context.Background(), "teks", ai.TaskRetrievalDocument)
	require.NoError(t, err)
	require.Equal(t, 2, inner.calls)
}

func TestLRUBatchBypassesCache(t *testing.T) {
	inner := &countingEmbedder{}
	cached := WrapLRU(inner, 16, time.Hour)

	_, err := cached.EmbedBatch(context.Background(), []string{"a", "b"}, ai.TaskRetrievalDocument)
	require.NoError(t, err)
	_, err = cached.EmbedBatch(context.Background(), []string{"a", "b"}, ai.TaskRetrievalDocument)
	require.NoError(t, err)
	require.Equal(t, 2, inner.calls)
}

func TestWrapLRUDisabledReturnsInner(t *testing.T) {
	inner := &countingEmbedder{}
	require.Equal(t, ai.IEmbedder(inner), WrapLRU(inner, 0, time.Hour))
	require.Equal(t, ai.IEmbedder(inner), WrapLRU(inner, 16, 0))
}

func TestDBCacheEmbedsOnlyMisses(t *testing.T) {
	inner := &countingEmbedder{}
	store := newMemCacheStore()
	cached := WrapDB(inner, store)

	first, err := cached.EmbedBatch(context.Background(), []string{"satu", "dua"}, ai.TaskRetrievalDocument)
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.Equal(t, 1, inner.calls)
	require.Equal(t, 2, store.saves)

	// second round: "dua" is cached, only "tiga" needs the backend
	second, err := cached.EmbedBatch(context.Background(), []string{"dua", "tiga"}, ai.TaskRetrievalDocument)
	require.NoError(t, err)
	require.Len(t, second, 2)
	require.Equal(t, first[1], second[0])
	require.Equal(t, 2, inner.calls)
}

func TestDBCacheFullHitSkipsBackend(t *testing.T) {
	inner := &countingEmbedder{}
	store := newMemCacheStore()
	cached := WrapDB(inner, store)

	_, err := cached.EmbedBatch(context.Background(), []string{"satu"}, ai.TaskRetrievalDocument)
	require.NoError(t, err)
	_, err = cached.EmbedBatch(context.Background(), []string{"satu"}, ai.TaskRetrievalDocument)
	require.NoError(t, err)
	require.Equal(t, 1, inner.calls)
}

func TestDBCacheStoreFailureDegradesToPassThrough(t *testing.T) {
	inner := &countingEmbedder{}
	store := newMemCacheStore()
	store.fail = true
	cached := WrapDB(inner, store)

	vecs, err := cached.EmbedBatch(context.Background(), []string{"satu", "dua"}, ai.TaskRetrievalDocument)
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	require.Equal(t, 1, inner.calls)
}
