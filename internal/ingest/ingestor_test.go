package ingest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tanyadoc/tanyadoc/internal/extract"
	"github.com/tanyadoc/tanyadoc/internal/model"
	errs "github.com/tanyadoc/tanyadoc/internal/pkg/errors"
	"github.com/tanyadoc/tanyadoc/internal/segment"
)

type fakeExtractor struct {
	units []model.ContentUnit
}

func (f *fakeExtractor) Extract(ctx context.Context, data []byte) ([]model.ContentUnit, error) {
	return f.units, nil
}

type fakeEmbedder struct {
	mu      sync.Mutex
	calls   int
	failOn  int // 1-based call number that fails, 0 = never
	batches [][]string
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	vecs, err := f.EmbedBatch(ctx, []string{text}, taskType)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failOn != 0 && f.calls == f.failOn {
		return nil, fmt.Errorf("embedding backend down")
	}
	f.batches = append(f.batches, append([]string(nil), texts...))
	vecs := make([][]float32, len(texts))
	for i := range texts {
		vecs[i] = []float32{float32(len(texts[i]))}
	}
	return vecs, nil
}

func (f *fakeEmbedder) ModelName() string {
	return "fake-embed"
}

type fakeStore struct {
	mu      sync.Mutex
	rows    []*model.Chunk
	deletes []string
}

func (f *fakeStore) InsertBatch(ctx context.Context, chunks []*model.Chunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, chunks...)
	return nil
}

func (f *fakeStore) DeleteFile(ctx context.Context, userID, fileName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, userID+"/"+fileName)
	kept := f.rows[:0]
	for _, row := range f.rows {
		if row.UserID == userID && row.FileName == fileName {
			continue
		}
		kept = append(kept, row)
	}
	f.rows = kept
	return nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

func newTestIngestor(units []model.ContentUnit, embedder *fakeEmbedder, store *fakeStore, batchSize int) *Ingestor {
	registry := extract.NewRegistry()
	registry.Register("txt", &fakeExtractor{units: units})
	ing := New(registry, segment.New(1500, 300), embedder, store, batchSize)
	ing.batchPause = 0
	return ing
}

func unitsOf(texts ...string) []model.ContentUnit {
	units := make([]model.ContentUnit, 0, len(texts))
	for i, text := range texts {
		units = append(units, model.ContentUnit{Text: text, Page: i + 1})
	}
	return units
}

func TestRunStoresAllChunksInOrder(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := &fakeStore{}
	ing := newTestIngestor(unitsOf("satu", "dua", "tiga", "empat", "lima"), embedder, store, 2)
	task := NewTask("doc.txt")

	var progress []int
	err := ing.Run(context.Background(), task, "u1", "doc.txt", []byte("raw"), func(done, total int) {
		progress = append(progress, done)
		require.Equal(t, 5, total)
	})
	require.NoError(t, err)
	require.True(t, task.Done())
	require.Equal(t, []int{2, 4, 5}, progress)

	require.Equal(t, 5, store.count())
	require.Equal(t, "satu", store.rows[0].Content)
	require.Equal(t, "lima", store.rows[4].Content)
	for _, row := range store.rows {
		require.Equal(t, "u1", row.UserID)
		require.Equal(t, "doc.txt", row.FileName)
		require.NotEmpty(t, row.Embedding)
		require.NotZero(t, row.Ctime)
	}
	// 5 chunks at batch size 2 means 3 embedding calls
	require.Equal(t, 3, embedder.calls)
}

func TestRunReplacesPreviousUpload(t *testing.T) {
	store := &fakeStore{rows: []*model.Chunk{
		{UserID: "u1", FileName: "doc.txt", Content: "stale"},
		{UserID: "u1", FileName: "other.txt", Content: "untouched"},
	}}
	ing := newTestIngestor(unitsOf("baru"), &fakeEmbedder{}, store, 10)

	err := ing.Run(context.Background(), NewTask("doc.txt"), "u1", "doc.txt", nil, nil)
	require.NoError(t, err)
	require.Equal(t, 2, store.count())
	for _, row := range store.rows {
		require.NotEqual(t, "stale", row.Content)
	}
}

func TestRunNoContent(t *testing.T) {
	ing := newTestIngestor(nil, &fakeEmbedder{}, &fakeStore{}, 10)
	task := NewTask("empty.txt")
	err := ing.Run(context.Background(), task, "u1", "empty.txt", nil, nil)
	require.ErrorIs(t, err, errs.ErrNoContent)
	require.True(t, task.Done())
}

func TestRunUnsupportedExtension(t *testing.T) {
	ing := newTestIngestor(unitsOf("isi"), &fakeEmbedder{}, &fakeStore{}, 10)
	err := ing.Run(context.Background(), NewTask("doc.exe"), "u1", "doc.exe", nil, nil)
	require.ErrorIs(t, err, errs.ErrNoContent)
}

func TestRunCancelRollsBackEverything(t *testing.T) {
	store := &fakeStore{}
	ing := newTestIngestor(unitsOf("satu", "dua", "tiga", "empat"), &fakeEmbedder{}, store, 1)
	task := NewTask("doc.txt")

	err := ing.Run(context.Background(), task, "u1", "doc.txt", nil, func(done, total int) {
		if done == 2 {
			task.Cancel()
		}
	})
	require.ErrorIs(t, err, errs.ErrCancelled)
	require.True(t, task.Done())
	require.Equal(t, 0, store.count(), "cancelled ingestion must leave no partial chunks")
}

func TestRunCancelledContextRollsBack(t *testing.T) {
	store := &fakeStore{}
	ing := newTestIngestor(unitsOf("satu", "dua", "tiga"), &fakeEmbedder{}, store, 1)

	ctx, cancel := context.WithCancel(context.Background())
	err := ing.Run(ctx, NewTask("doc.txt"), "u1", "doc.txt", nil, func(done, total int) {
		cancel()
	})
	require.ErrorIs(t, err, errs.ErrCancelled)
	require.Equal(t, 0, store.count())
}

func TestRunEmbedFailureKeepsEarlierBatches(t *testing.T) {
	store := &fakeStore{}
	embedder := &fakeEmbedder{failOn: 2}
	ing := newTestIngestor(unitsOf("satu", "dua", "tiga", "empat"), embedder, store, 2)
	task := NewTask("doc.txt")

	err := ing.Run(context.Background(), task, "u1", "doc.txt", nil, nil)
	require.Error(t, err)
	require.NotErrorIs(t, err, errs.ErrCancelled)
	require.True(t, task.Done())
	require.Equal(t, 2, store.count())
}
