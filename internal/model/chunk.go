package model

// Chunk is the atomic retrieval unit: a bounded slice of extracted document
// text owned by exactly one (user_id, file_name) pair. Rows are immutable;
// re-uploading a file replaces its whole chunk set.
type Chunk struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"user_id"`
	FileName   string    `json:"file_name"`
	PageNumber int       `json:"page_number"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"embedding"`
	Ctime      int64     `json:"ctime"`
}

// ScoredChunk is a chunk returned from a nearest-neighbor query together
// with its cosine similarity to the query embedding.
type ScoredChunk struct {
	FileName   string  `json:"file_name"`
	PageNumber int     `json:"page_number"`
	Content    string  `json:"content"`
	Similarity float32 `json:"similarity"`
}
