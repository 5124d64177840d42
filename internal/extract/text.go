package extract

import (
	"context"
	"strings"

	"github.com/tanyadoc/tanyadoc/internal/model"
)

type TextExtractor struct{}

func NewText() *TextExtractor {
	return &TextExtractor{}
}

func (e *TextExtractor) Extract(ctx context.Context, data []byte) ([]model.ContentUnit, error) {
	_ = ctx
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return []model.ContentUnit{{Text: text, Page: 1}}, nil
}
