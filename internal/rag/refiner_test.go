package rag

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tanyadoc/tanyadoc/internal/model"
)

func TestRefineReturnsModelOutput(t *testing.T) {
	gen := &fakeGen{response: "  Jelaskan tentang RAG  "}
	r := NewRefiner(gen)
	got := r.Refine(context.Background(), "RAG", nil)
	require.Equal(t, "Jelaskan tentang RAG", got)
}

func TestRefineFallsBackOnError(t *testing.T) {
	gen := &fakeGen{err: fmt.Errorf("quota exceeded")}
	r := NewRefiner(gen)
	got := r.Refine(context.Background(), "apa itu indeks vektor?", nil)
	require.Equal(t, "apa itu indeks vektor?", got)
}

func TestRefineFallsBackOnEmptyOutput(t *testing.T) {
	gen := &fakeGen{response: "   "}
	r := NewRefiner(gen)
	got := r.Refine(context.Background(), "pertanyaan asli", nil)
	require.Equal(t, "pertanyaan asli", got)
}

func TestRefinePromptCarriesHistory(t *testing.T) {
	gen := &fakeGen{response: "ok"}
	r := NewRefiner(gen)
	history := []model.ConversationTurn{
		{Question: "apa itu RAG?", Answer: "RAG adalah retrieval augmented generation."},
		{Question: "contohnya?", Answer: "Misalnya chatbot dokumen."},
	}
	r.Refine(context.Background(), "lanjutkan", history)
	require.Len(t, gen.prompts, 1)
	require.Contains(t, gen.prompts[0], "User: apa itu RAG?")
	require.Contains(t, gen.prompts[0], "Bot: Misalnya chatbot dokumen.")
	require.Contains(t, gen.prompts[0], `Pertanyaan pengguna: "lanjutkan"`)
}
