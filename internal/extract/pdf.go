package extract

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"strings"

	"github.com/unidoc/unipdf/v3/extractor"
	pdfmodel "github.com/unidoc/unipdf/v3/model"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/tanyadoc/tanyadoc/internal/ai"
	"github.com/tanyadoc/tanyadoc/internal/model"
)

const describeImagePrompt = "Jelaskan gambar ini secara detail:"

// PDFExtractor walks a PDF page by page, emitting the page text and a
// vision-model description for each embedded raster image. A failed
// description skips that single image; extraction continues.
type PDFExtractor struct {
	describer ai.IDescriber
}

func NewPDF(describer ai.IDescriber) *PDFExtractor {
	return &PDFExtractor{describer: describer}
}

func (e *PDFExtractor) Extract(ctx context.Context, data []byte) ([]model.ContentUnit, error) {
	logger := logutil.GetLogger(ctx)
	reader, err := pdfmodel.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	numPages, err := reader.GetNumPages()
	if err != nil {
		return nil, fmt.Errorf("count pdf pages: %w", err)
	}

	var units []model.ContentUnit
	for pageNum := 1; pageNum <= numPages; pageNum++ {
		page, err := reader.GetPage(pageNum)
		if err != nil {
			return nil, fmt.Errorf("read pdf page %d: %w", pageNum, err)
		}
		ex, err := extractor.New(page)
		if err != nil {
			return nil, fmt.Errorf("extract pdf page %d: %w", pageNum, err)
		}
		text, err := ex.ExtractText()
		if err != nil {
			logger.Warn("pdf page text extraction failed", zap.Int("page", pageNum), zap.Error(err))
		} else if strings.TrimSpace(text) != "" {
			units = append(units, model.ContentUnit{Text: text, Page: pageNum})
		}
		if e.describer == nil {
			continue
		}
		units = append(units, e.describePageImages(ctx, ex, pageNum)...)
	}
	return units, nil
}

func (e *PDFExtractor) describePageImages(ctx context.Context, ex *extractor.Extractor, pageNum int) []model.ContentUnit {
	logger := logutil.GetLogger(ctx).With(zap.Int("page", pageNum))
	pageImages, err := ex.ExtractPageImages(nil)
	if err != nil {
		logger.Warn("pdf image enumeration failed", zap.Error(err))
		return nil
	}
	var units []model.ContentUnit
	for idx, mark := range pageImages.Images {
		goImg, err := mark.Image.ToGoImage()
		if err != nil {
			logger.Warn("pdf image decode failed", zap.Int("image", idx), zap.Error(err))
			continue
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, goImg); err != nil {
			logger.Warn("pdf image encode failed", zap.Int("image", idx), zap.Error(err))
			continue
		}
		desc, err := e.describer.Describe(ctx, describeImagePrompt, buf.Bytes(), "image/png")
		if err != nil {
			logger.Warn("image description failed", zap.Int("image", idx), zap.Error(err))
			continue
		}
		if desc == "" {
			continue
		}
		units = append(units, model.ContentUnit{
			Text: fmt.Sprintf("[Deskripsi Gambar: %s]", desc),
			Page: pageNum,
		})
	}
	return units
}
