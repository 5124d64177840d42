package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/didi/gendry/builder"
	"github.com/pgvector/pgvector-go"

	"github.com/tanyadoc/tanyadoc/internal/model"
	"github.com/tanyadoc/tanyadoc/internal/pkg/dbutil"
)

type ChunkRepo struct {
	db *sql.DB
}

func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// InsertBatch writes one ingestion batch as a single multi-row insert, so a
// batch is either fully visible or not at all.
func (r *ChunkRepo) InsertBatch(ctx context.Context, chunks []*model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	rows := make([]map[string]interface{}, 0, len(chunks))
	for _, c := range chunks {
		rows = append(rows, map[string]interface{}{
			"user_id":     c.UserID,
			"file_name":   c.FileName,
			"page_number": c.PageNumber,
			"content":     c.Content,
			"embedding":   pgvector.NewVector(c.Embedding),
			"ctime":       c.Ctime,
		})
	}
	sqlStr, args, err := builder.BuildInsert("chunks", rows)
	if err != nil {
		return fmt.Errorf("build chunk insert: %w", err)
	}
	_, err = r.db.ExecContext(ctx, dbutil.Rebind(sqlStr), args...)
	return err
}

func (r *ChunkRepo) DeleteFile(ctx context.Context, userID, fileName string) error {
	where := map[string]interface{}{
		"user_id":   userID,
		"file_name": fileName,
	}
	sqlStr, args, err := builder.BuildDelete("chunks", where)
	if err != nil {
		return fmt.Errorf("build chunk delete: %w", err)
	}
	_, err = r.db.ExecContext(ctx, dbutil.Rebind(sqlStr), args...)
	return err
}

const nearestQuery = `
	SELECT content, file_name, page_number, 1 - (embedding <=> $1) AS similarity
	FROM chunks
	WHERE user_id = $2 AND 1 - (embedding <=> $1) > $3
	ORDER BY embedding <=> $1
	LIMIT $4
`

const nearestByFileQuery = `
	SELECT content, file_name, page_number, 1 - (embedding <=> $1) AS similarity
	FROM chunks
	WHERE user_id = $2 AND file_name = $5 AND 1 - (embedding <=> $1) > $3
	ORDER BY embedding <=> $1
	LIMIT $4
`

// Nearest returns the user's chunks ranked by cosine similarity to the
// query vector, descending, above threshold, capped at limit. A non-empty
// fileName restricts the search to that file; an unknown name just yields
// nothing.
func (r *ChunkRepo) Nearest(ctx context.Context, userID string, query []float32, threshold float32, limit int, fileName string) ([]*model.ScoredChunk, error) {
	sqlStr := nearestQuery
	args := []interface{}{pgvector.NewVector(query), userID, threshold, limit}
	if fileName != "" {
		sqlStr = nearestByFileQuery
		args = append(args, fileName)
	}
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []*model.ScoredChunk
	for rows.Next() {
		var item model.ScoredChunk
		if err := rows.Scan(&item.Content, &item.FileName, &item.PageNumber, &item.Similarity); err != nil {
			return nil, err
		}
		results = append(results, &item)
	}
	return results, rows.Err()
}

func (r *ChunkRepo) ListFiles(ctx context.Context, userID string) ([]string, error) {
	const query = `SELECT DISTINCT file_name FROM chunks WHERE user_id = $1 ORDER BY file_name`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var files []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		files = append(files, name)
	}
	return files, rows.Err()
}

func (r *ChunkRepo) HasAny(ctx context.Context, userID string) (bool, error) {
	const query = `SELECT 1 FROM chunks WHERE user_id = $1 LIMIT 1`
	var one int
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *ChunkRepo) CountByUser(ctx context.Context, userID string) (int64, error) {
	const query = `SELECT COUNT(*) FROM chunks WHERE user_id = $1`
	var count int64
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&count)
	return count, err
}

func (r *ChunkRepo) CountFiles(ctx context.Context, userID string) (int64, error) {
	const query = `SELECT COUNT(DISTINCT file_name) FROM chunks WHERE user_id = $1`
	var count int64
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&count)
	return count, err
}

type GlobalStats struct {
	Chunks int64 `json:"chunks"`
	Users  int64 `json:"users"`
	Files  int64 `json:"files"`
}

func (r *ChunkRepo) Stats(ctx context.Context) (*GlobalStats, error) {
	const query = `
		SELECT COUNT(*), COUNT(DISTINCT user_id), COUNT(DISTINCT (user_id, file_name))
		FROM chunks
	`
	var stats GlobalStats
	if err := r.db.QueryRowContext(ctx, query).Scan(&stats.Chunks, &stats.Users, &stats.Files); err != nil {
		return nil, err
	}
	return &stats, nil
}
