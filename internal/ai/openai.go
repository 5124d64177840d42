package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

type openAIConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
}

// openAIProvider talks to any OpenAI-compatible endpoint. Embedding task
// types are a Gemini concept and are ignored here.
type openAIProvider struct {
	apiKey  string
	baseURL string
}

func init() {
	Register("openai", createOpenAIProvider)
}

func createOpenAIProvider(args interface{}) (IProvider, error) {
	cfg := &openAIConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &openAIProvider{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: baseURL,
	}, nil
}

func (p *openAIProvider) Name() string {
	return "openai"
}

type openAIChatRequest struct {
	Model    string          `json:"model"`
	Messages []openAIChatMsg `json:"messages"`
	Stream   bool            `json:"stream"`
}

type openAIChatMsg struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type openAIContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type openAIEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (p *openAIProvider) Generate(ctx context.Context, model string, prompt string) (string, error) {
	return p.chat(ctx, model, []openAIChatMsg{{Role: "user", Content: prompt}})
}

func (p *openAIProvider) Describe(ctx context.Context, model string, prompt string, image []byte, mimeType string) (string, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))
	parts := []openAIContentPart{
		{Type: "text", Text: prompt},
		{Type: "image_url", ImageURL: &openAIImageURL{URL: dataURL}},
	}
	return p.chat(ctx, model, []openAIChatMsg{{Role: "user", Content: parts}})
}

func (p *openAIProvider) chat(ctx context.Context, model string, messages []openAIChatMsg) (string, error) {
	if p.apiKey == "" {
		return "", ErrUnavailable
	}
	reqBody := openAIChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   false,
	}
	var out openAIChatResponse
	if err := p.post(ctx, "/chat/completions", reqBody, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("openai response has no choices")
	}
	return out.Choices[0].Message.Content, nil
}

func (p *openAIProvider) EmbedBatch(ctx context.Context, model string, texts []string, taskType string) ([][]float32, error) {
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	_ = taskType
	var out openAIEmbedResponse
	if err := p.post(ctx, "/embeddings", openAIEmbedRequest{Model: model, Input: texts}, &out); err != nil {
		return nil, err
	}
	if len(out.Data) != len(texts) {
		return nil, fmt.Errorf("openai returned %d embeddings for %d inputs", len(out.Data), len(texts))
	}
	vecs := make([][]float32, 0, len(out.Data))
	for _, item := range out.Data {
		vecs = append(vecs, item.Embedding)
	}
	return vecs, nil
}

func (p *openAIProvider) post(ctx context.Context, path string, body interface{}, dst interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	endpoint := strings.TrimRight(p.baseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("openai request failed: %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}
