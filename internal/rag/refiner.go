package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/tanyadoc/tanyadoc/internal/ai"
	"github.com/tanyadoc/tanyadoc/internal/model"
)

// Refiner rewrites a possibly terse or context-dependent question into a
// self-contained search query using the recent history. Best effort only:
// any failure falls back to the original question so a turn never dies on
// refinement.
type Refiner struct {
	gen ai.IGenerator
}

func NewRefiner(gen ai.IGenerator) *Refiner {
	return &Refiner{gen: gen}
}

const refineTemplate = `Riwayat percakapan:
%s

Pertanyaan pengguna: "%s"
Tugas Anda:
1. Analisis pertanyaan pengguna. Jika ambigu, tulis ulang menjadi versi yang lebih jelas.
2. Jika hanya satu atau dua kata, ubah menjadi pertanyaan lengkap. Contoh: 'RAG' -> 'Jelaskan tentang RAG'.
3. Jika sudah jelas, kembalikan apa adanya.
Hanya kembalikan teks pertanyaan final.`

func (r *Refiner) Refine(ctx context.Context, question string, history []model.ConversationTurn) string {
	prompt := fmt.Sprintf(refineTemplate, historyText(history), question)
	refined, err := r.gen.Generate(ctx, prompt)
	if err != nil {
		logutil.GetLogger(ctx).Warn("query refinement failed, using raw question", zap.Error(err))
		return question
	}
	refined = strings.TrimSpace(refined)
	if refined == "" {
		return question
	}
	return refined
}

func historyText(history []model.ConversationTurn) string {
	lines := make([]string, 0, len(history))
	for _, turn := range history {
		lines = append(lines, fmt.Sprintf("User: %s\nBot: %s", turn.Question, turn.Answer))
	}
	return strings.Join(lines, "\n")
}
