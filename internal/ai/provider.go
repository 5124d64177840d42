package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrUnavailable = errors.New("ai provider unavailable")

// Task types passed to embedding calls. Query and document embeddings live
// in different regions of the vector space, so mixing them up silently
// degrades retrieval.
const (
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
)

type IProvider interface {
	Name() string
	Generate(ctx context.Context, model string, prompt string) (string, error)
	Describe(ctx context.Context, model string, prompt string, image []byte, mimeType string) (string, error)
	EmbedBatch(ctx context.Context, model string, texts []string, taskType string) ([][]float32, error)
}

type IGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type IDescriber interface {
	Describe(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)
}

type IEmbedder interface {
	Embed(ctx context.Context, text string, taskType string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error)
	ModelName() string
}

type generator struct {
	provider IProvider
	model    string
	timeout  time.Duration
}

func NewGenerator(p IProvider, model string, timeout time.Duration) IGenerator {
	return &generator{provider: p, model: model, timeout: timeout}
}

func (g *generator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()
	text, err := g.provider.Generate(ctx, g.model, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

type describer struct {
	provider IProvider
	model    string
	timeout  time.Duration
}

func NewDescriber(p IProvider, model string, timeout time.Duration) IDescriber {
	return &describer{provider: p, model: model, timeout: timeout}
}

func (d *describer) Describe(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	ctx, cancel := withTimeout(ctx, d.timeout)
	defer cancel()
	text, err := d.provider.Describe(ctx, d.model, prompt, image, mimeType)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

type embedder struct {
	provider IProvider
	model    string
	timeout  time.Duration
}

func NewEmbedder(p IProvider, model string, timeout time.Duration) IEmbedder {
	return &embedder{provider: p, model: model, timeout: timeout}
}

func (e *embedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text}, taskType)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *embedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	ctx, cancel := withTimeout(ctx, e.timeout)
	defer cancel()
	vecs, err := e.provider.EmbedBatch(ctx, e.model, texts, taskType)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(vecs), len(texts))
	}
	return vecs, nil
}

func (e *embedder) ModelName() string {
	return e.model
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

type ProviderFactory func(args interface{}) (IProvider, error)

var registry = map[string]ProviderFactory{}

func Register(name string, factory ProviderFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func NewProvider(name string, args interface{}) (IProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported ai provider: %s", name)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("ai provider config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode ai provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode ai provider config: %w", err)
	}
	return nil
}
