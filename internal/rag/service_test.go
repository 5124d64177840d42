package rag

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tanyadoc/tanyadoc/internal/model"
)

type fakeGen struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeGen) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type fakeQueryEmbedder struct {
	vec   []float32
	err   error
	texts []string
	tasks []string
}

func (f *fakeQueryEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	f.texts = append(f.texts, text)
	f.tasks = append(f.tasks, taskType)
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

func (f *fakeQueryEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i := range texts {
		vecs[i] = f.vec
	}
	return vecs, nil
}

func (f *fakeQueryEmbedder) ModelName() string {
	return "fake-embed"
}

type fakeSearchStore struct {
	results   []*model.ScoredChunk
	err       error
	userID    string
	query     []float32
	threshold float32
	limit     int
	fileName  string
	calls     int
}

func (f *fakeSearchStore) Nearest(ctx context.Context, userID string, query []float32, threshold float32, limit int, fileName string) ([]*model.ScoredChunk, error) {
	f.calls++
	f.userID = userID
	f.query = query
	f.threshold = threshold
	f.limit = limit
	f.fileName = fileName
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func scoredChunk(file string, page int, content string, sim float32) *model.ScoredChunk {
	return &model.ScoredChunk{FileName: file, PageNumber: page, Content: content, Similarity: sim}
}

func TestAskFullTurn(t *testing.T) {
	gen := &fakeGen{response: "Jelaskan tentang RAG"}
	store := &fakeSearchStore{results: []*model.ScoredChunk{
		scoredChunk("paper.pdf", 3, "RAG menggabungkan retrieval dan generasi.", 0.91),
	}}
	svc := NewService(
		NewRefiner(gen),
		NewRetriever(&fakeQueryEmbedder{vec: []float32{0.1, 0.2}}, store, 0.5, 5),
		NewAnswerer(gen),
	)

	var seenRefined string
	result, err := svc.Ask(context.Background(), "u1", "RAG", "", nil, func(refined string) {
		seenRefined = refined
	})
	require.NoError(t, err)
	require.Equal(t, "Jelaskan tentang RAG", result.RefinedQuestion)
	require.Equal(t, "Jelaskan tentang RAG", seenRefined)
	require.Len(t, result.Sources, 1)
	require.NotEmpty(t, result.Answer)
	require.Len(t, gen.prompts, 2, "one refine call and one answer call")
}

func TestAskEmptyRetrievalSkipsGeneration(t *testing.T) {
	gen := &fakeGen{response: "pertanyaan yang sudah jelas"}
	store := &fakeSearchStore{}
	svc := NewService(
		NewRefiner(gen),
		NewRetriever(&fakeQueryEmbedder{vec: []float32{0.3}}, store, 0.5, 5),
		NewAnswerer(gen),
	)

	result, err := svc.Ask(context.Background(), "u1", "pertanyaan", "", nil, nil)
	require.NoError(t, err)
	require.Empty(t, result.Sources)
	require.Empty(t, result.Answer)
	require.Len(t, gen.prompts, 1, "only the refine call may reach the model")
}

func TestAskRetrievalErrorPropagates(t *testing.T) {
	gen := &fakeGen{response: "q"}
	store := &fakeSearchStore{err: fmt.Errorf("db gone")}
	svc := NewService(
		NewRefiner(gen),
		NewRetriever(&fakeQueryEmbedder{vec: []float32{0.3}}, store, 0.5, 5),
		NewAnswerer(gen),
	)

	_, err := svc.Ask(context.Background(), "u1", "pertanyaan", "", nil, nil)
	require.Error(t, err)
}
