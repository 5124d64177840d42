package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/tanyadoc/tanyadoc/internal/ai"
	"github.com/tanyadoc/tanyadoc/internal/extract"
	"github.com/tanyadoc/tanyadoc/internal/model"
	errs "github.com/tanyadoc/tanyadoc/internal/pkg/errors"
	"github.com/tanyadoc/tanyadoc/internal/segment"
)

// ChunkStore is the slice of the chunk repository the pipeline needs.
type ChunkStore interface {
	InsertBatch(ctx context.Context, chunks []*model.Chunk) error
	DeleteFile(ctx context.Context, userID, fileName string) error
}

// ProgressFunc reports cumulative progress after each persisted batch.
type ProgressFunc func(done, total int)

// Ingestor runs the extract → segment → embed → store pipeline for one
// uploaded document.
type Ingestor struct {
	extractors *extract.Registry
	segmenter  *segment.Segmenter
	embedder   ai.IEmbedder
	store      ChunkStore
	batchSize  int
	batchPause time.Duration
}

func New(extractors *extract.Registry, segmenter *segment.Segmenter, embedder ai.IEmbedder, store ChunkStore, batchSize int) *Ingestor {
	if batchSize <= 0 {
		batchSize = 128
	}
	return &Ingestor{
		extractors: extractors,
		segmenter:  segmenter,
		embedder:   embedder,
		store:      store,
		batchSize:  batchSize,
		batchPause: 100 * time.Millisecond,
	}
}

// Run ingests one document. Prior chunks for the same (user, file) are
// dropped first, so a re-upload always ends with exactly the latest chunk
// set. Cancellation is checked before each batch; on cancel every row
// already inserted for this file is deleted so no partial file stays
// retrievable. An embed or store failure aborts the task and leaves
// completed batches in place; the user must re-upload to guarantee
// completeness.
func (ing *Ingestor) Run(ctx context.Context, task *Task, userID, fileName string, data []byte, progress ProgressFunc) error {
	defer task.Finish()
	logger := logutil.GetLogger(ctx).With(
		zap.String("user_id", userID),
		zap.String("file_name", fileName),
	)

	if err := ing.store.DeleteFile(ctx, userID, fileName); err != nil {
		return fmt.Errorf("drop previous chunks: %w", err)
	}

	units, err := ing.extractors.Extract(ctx, fileName, data)
	if err != nil {
		return fmt.Errorf("extract content: %w", err)
	}
	chunks := ing.segmentUnits(units, userID, fileName)
	if len(chunks) == 0 {
		return errs.ErrNoContent
	}
	total := len(chunks)
	logger.Info("ingestion started", zap.Int("chunks", total), zap.Int("batch_size", ing.batchSize))

	for offset := 0; offset < total; offset += ing.batchSize {
		if task.Cancelled() || ctx.Err() != nil {
			return ing.rollback(ctx, logger, userID, fileName)
		}
		end := offset + ing.batchSize
		if end > total {
			end = total
		}
		batch := chunks[offset:end]
		if err := ing.embedAndStore(ctx, batch); err != nil {
			return err
		}
		if progress != nil {
			progress(end, total)
		}
		// Yield between batches so cancel and status commands get a turn.
		time.Sleep(ing.batchPause)
	}
	logger.Info("ingestion completed", zap.Int("chunks", total))
	return nil
}

func (ing *Ingestor) segmentUnits(units []model.ContentUnit, userID, fileName string) []*model.Chunk {
	var chunks []*model.Chunk
	for _, unit := range units {
		for _, piece := range ing.segmenter.Split(unit.Text) {
			chunks = append(chunks, &model.Chunk{
				UserID:     userID,
				FileName:   fileName,
				PageNumber: unit.Page,
				Content:    piece,
			})
		}
	}
	return chunks
}

func (ing *Ingestor) embedAndStore(ctx context.Context, batch []*model.Chunk) error {
	texts := make([]string, 0, len(batch))
	for _, c := range batch {
		texts = append(texts, c.Content)
	}
	vecs, err := ing.embedder.EmbedBatch(ctx, texts, ai.TaskRetrievalDocument)
	if err != nil {
		return fmt.Errorf("embed batch: %w", err)
	}
	now := time.Now().UnixMilli()
	for i, c := range batch {
		c.Embedding = vecs[i]
		c.Ctime = now
	}
	if err := ing.store.InsertBatch(ctx, batch); err != nil {
		return fmt.Errorf("store batch: %w", err)
	}
	return nil
}

// rollback restores the pre-ingestion state for the file. Deletion runs on
// a fresh context: the task context may already be dead and the rows must
// still go.
func (ing *Ingestor) rollback(ctx context.Context, logger *zap.Logger, userID, fileName string) error {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := ing.store.DeleteFile(cleanupCtx, userID, fileName); err != nil {
		logger.Error("rollback after cancel failed", zap.Error(err))
		return fmt.Errorf("rollback cancelled ingestion: %w", err)
	}
	logger.Info("ingestion cancelled, chunks rolled back")
	return errs.ErrCancelled
}
