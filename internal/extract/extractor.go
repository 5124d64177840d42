package extract

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/tanyadoc/tanyadoc/internal/model"
)

// Extractor turns a document's raw bytes into ordered (text, page) units.
// Non-paginated formats report every unit on page 1.
type Extractor interface {
	Extract(ctx context.Context, data []byte) ([]model.ContentUnit, error)
}

// Registry maps file extensions to extractors. An unsupported extension is
// not an error: Extract returns an empty unit sequence and the caller tells
// the user there was nothing to ingest.
type Registry struct {
	byExt map[string]Extractor
}

func NewRegistry() *Registry {
	return &Registry{byExt: make(map[string]Extractor)}
}

func (r *Registry) Register(ext string, e Extractor) {
	key := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	if key == "" || e == nil {
		return
	}
	r.byExt[key] = e
}

func (r *Registry) Supported(fileName string) bool {
	_, ok := r.lookup(fileName)
	return ok
}

func (r *Registry) Extract(ctx context.Context, fileName string, data []byte) ([]model.ContentUnit, error) {
	e, ok := r.lookup(fileName)
	if !ok {
		return nil, nil
	}
	units, err := e.Extract(ctx, data)
	if err != nil {
		return nil, err
	}
	filtered := units[:0]
	for _, u := range units {
		if strings.TrimSpace(u.Text) == "" {
			continue
		}
		if u.Page < 1 {
			u.Page = 1
		}
		filtered = append(filtered, u)
	}
	return filtered, nil
}

func (r *Registry) lookup(fileName string) (Extractor, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	e, ok := r.byExt[ext]
	return e, ok
}
