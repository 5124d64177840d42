package extract

import (
	"context"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/tanyadoc/tanyadoc/internal/model"
)

// MarkdownExtractor flattens a markdown document to plain text, one block
// per line group, so markup characters never pollute the embeddings.
type MarkdownExtractor struct{}

func NewMarkdown() *MarkdownExtractor {
	return &MarkdownExtractor{}
}

func (e *MarkdownExtractor) Extract(ctx context.Context, data []byte) ([]model.ContentUnit, error) {
	_ = ctx
	md := goldmark.New()
	reader := text.NewReader(data)
	doc := md.Parser().Parse(reader)

	var blocks []string
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		switch n := node.(type) {
		case *ast.FencedCodeBlock:
			var sb strings.Builder
			for i := 0; i < n.Lines().Len(); i++ {
				line := n.Lines().At(i)
				sb.Write(line.Value(data))
			}
			if code := strings.TrimSpace(sb.String()); code != "" {
				blocks = append(blocks, code)
			}
		default:
			if txt := blockText(node, data); txt != "" {
				blocks = append(blocks, txt)
			}
		}
	}
	joined := strings.Join(blocks, "\n\n")
	if strings.TrimSpace(joined) == "" {
		return nil, nil
	}
	return []model.ContentUnit{{Text: joined, Page: 1}}, nil
}

func blockText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if node.Kind() == ast.KindText {
			sb.Write(node.(*ast.Text).Segment.Value(source))
			if node.(*ast.Text).SoftLineBreak() || node.(*ast.Text).HardLineBreak() {
				sb.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
