package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

type geminiConfig struct {
	APIKey string `json:"api_key"`
}

type geminiProvider struct {
	apiKey string
}

func init() {
	Register("gemini", createGeminiProvider)
}

func createGeminiProvider(args interface{}) (IProvider, error) {
	cfg := &geminiConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	return &geminiProvider{apiKey: strings.TrimSpace(cfg.APIKey)}, nil
}

func (p *geminiProvider) Name() string {
	return "gemini"
}

func (p *geminiProvider) client(ctx context.Context) (*genai.Client, error) {
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
}

func (p *geminiProvider) Generate(ctx context.Context, model string, prompt string) (string, error) {
	client, err := p.client(ctx)
	if err != nil {
		return "", err
	}
	resp, err := client.Models.GenerateContent(
		ctx,
		model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		nil,
	)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func (p *geminiProvider) Describe(ctx context.Context, model string, prompt string, image []byte, mimeType string) (string, error) {
	client, err := p.client(ctx)
	if err != nil {
		return "", err
	}
	parts := []*genai.Part{
		{Text: prompt},
		{InlineData: &genai.Blob{MIMEType: mimeType, Data: image}},
	}
	resp, err := client.Models.GenerateContent(
		ctx,
		model,
		[]*genai.Content{{Parts: parts}},
		nil,
	)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func (p *geminiProvider) EmbedBatch(ctx context.Context, model string, texts []string, taskType string) ([][]float32, error) {
	client, err := p.client(ctx)
	if err != nil {
		return nil, err
	}
	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, &genai.Content{Parts: []*genai.Part{{Text: text}}})
	}
	var config *genai.EmbedContentConfig
	if taskType != "" {
		config = &genai.EmbedContentConfig{TaskType: taskType}
	}
	resp, err := client.Models.EmbedContent(ctx, model, contents, config)
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini returned %d embeddings for %d inputs", len(resp.Embeddings), len(texts))
	}
	vecs := make([][]float32, 0, len(resp.Embeddings))
	for _, emb := range resp.Embeddings {
		vecs = append(vecs, emb.Values)
	}
	return vecs, nil
}
