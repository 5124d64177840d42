package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tanyadoc/tanyadoc/internal/model"
)

const snippetRunes = 80

func escapeMarkdownV2(text string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, text)
}

// formatReply renders the answer plus one citation line per retrieved
// chunk: source file, page, similarity percentage and a truncated snippet.
// Everything user-derived is escaped for MarkdownV2.
func formatReply(answer string, sources []*model.ScoredChunk) string {
	var sb strings.Builder
	sb.WriteString(escapeMarkdownV2(answer))
	sb.WriteString("\n\n\\-\\-\\-\n*Sumber Informasi:*\n")
	for _, chunk := range sources {
		sb.WriteString(formatCitation(chunk))
	}
	return sb.String()
}

func formatCitation(chunk *model.ScoredChunk) string {
	return fmt.Sprintf("• `%s`, Hal\\. %d \\(*Kemiripan: %s%%*\\): \"_%s\\.\\.\\._\"\n",
		escapeMarkdownV2(chunk.FileName),
		chunk.PageNumber,
		escapeMarkdownV2(fmt.Sprintf("%.2f", chunk.Similarity*100)),
		escapeMarkdownV2(snippetOf(chunk.Content)),
	)
}

func snippetOf(content string) string {
	flat := strings.Join(strings.Fields(content), " ")
	runes := []rune(flat)
	if len(runes) > snippetRunes {
		runes = runes[:snippetRunes]
	}
	return string(runes)
}
