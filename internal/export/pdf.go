package export

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/tanyadoc/tanyadoc/internal/model"
)

// RenderHistory lays the bounded conversation history out as a PDF
// document. The core fonts are latin-1 only, so text goes through the
// unicode translator and unmappable runes degrade to replacements.
func RenderHistory(history []model.ConversationTurn) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, tr("Riwayat Percakapan Chatbot"), "", 1, "C", false, 0, "")
	pdf.Ln(10)

	for _, turn := range history {
		pdf.SetFont("Arial", "B", 12)
		pdf.MultiCell(0, 7, tr("Anda: "+turn.Question), "", "L", false)
		pdf.SetFont("Arial", "", 12)
		pdf.MultiCell(0, 7, tr("Bot: "+turn.Answer), "", "L", false)
		pdf.Ln(5)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render history pdf: %w", err)
	}
	return buf.Bytes(), nil
}
