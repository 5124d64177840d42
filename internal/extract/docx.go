package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	docx "github.com/fumiama/go-docx"

	"github.com/tanyadoc/tanyadoc/internal/model"
)

type DocxExtractor struct{}

func NewDocx() *DocxExtractor {
	return &DocxExtractor{}
}

func (e *DocxExtractor) Extract(ctx context.Context, data []byte) ([]model.ContentUnit, error) {
	_ = ctx
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}
	var paragraphs []string
	for _, item := range doc.Document.Body.Items {
		if p, ok := item.(*docx.Paragraph); ok {
			paragraphs = append(paragraphs, p.String())
		}
	}
	text := strings.Join(paragraphs, "\n")
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return []model.ContentUnit{{Text: text, Page: 1}}, nil
}
