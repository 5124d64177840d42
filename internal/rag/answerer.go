package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/tanyadoc/tanyadoc/internal/ai"
	"github.com/tanyadoc/tanyadoc/internal/model"
)

// BlockedResponse stands in for generations the model returned empty or
// that were safety-filtered; the turn still completes.
const BlockedResponse = "[RESPONS AI KOSONG / DI BLOKIR]"

type Answerer struct {
	gen ai.IGenerator
}

func NewAnswerer(gen ai.IGenerator) *Answerer {
	return &Answerer{gen: gen}
}

const answerTemplate = `Anda adalah asisten AI. Jawab pertanyaan pengguna hanya berdasarkan KONTEKS DARI DOKUMEN. Jawab dalam bahasa yang sama dengan pertanyaan pengguna. Jika informasi tidak ada, katakan Anda tidak dapat menemukannya.

--- KONTEKS DARI DOKUMEN ---
%s

--- RIWAYAT PERCAKAPAN ---
%s

--- PERTANYAAN PENGGUNA ---
%s

JAWABAN ANDA:`

// Answer synthesizes a grounded answer from the retrieved chunks. Each
// excerpt is labeled with its source file and page so the model can cite
// inside the answer and never strays beyond the supplied context.
func (a *Answerer) Answer(ctx context.Context, question string, chunks []*model.ScoredChunk, history []model.ConversationTurn) (string, error) {
	prompt := fmt.Sprintf(answerTemplate, excerptText(chunks), historyText(history), question)
	answer, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return BlockedResponse, nil
	}
	return answer, nil
}

func excerptText(chunks []*model.ScoredChunk) string {
	parts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		parts = append(parts, fmt.Sprintf("Kutipan dari file '%s' halaman %d:\n---\n%s\n---",
			chunk.FileName, chunk.PageNumber, chunk.Content))
	}
	return strings.Join(parts, "\n\n")
}
