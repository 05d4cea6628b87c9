package service

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"

	"github.com/bastien98/dobby-backend-poc/internal/models"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// ExtractionService renders a receipt PDF into page images and hands them to
// the vision client. It implements ReceiptExtractor for the pipeline.
type ExtractionService struct {
	vision *VisionService
	logger *zap.Logger
}

func NewExtractionService(vision *VisionService, logger *zap.Logger) *ExtractionService {
	return &ExtractionService{
		vision: vision,
		logger: logger,
	}
}

func (s *ExtractionService) Extract(ctx context.Context, path string) (*models.ReceiptExtraction, error) {
	pages, err := renderPDFPages(path)
	if err != nil {
		return nil, fmt.Errorf("%w: render document: %v", ErrExtraction, err)
	}

	extraction, err := s.vision.AnalyzeReceipt(ctx, pages)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	s.logger.Info("document extracted",
		zap.String("file", path),
		zap.Int("pages", len(pages)),
	)
	return extraction, nil
}

// renderPDFPages rasterizes every page to a high-quality JPEG so text stays
// legible to the vision model.
func renderPDFPages(path string) ([][]byte, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	defer doc.Close()

	pages := make([][]byte, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		img, err := doc.Image(i)
		if err != nil {
			return nil, fmt.Errorf("render page %d: %w", i+1, err)
		}
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 100}); err != nil {
			return nil, fmt.Errorf("encode page %d: %w", i+1, err)
		}
		pages = append(pages, buf.Bytes())
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("document has no pages")
	}

	return pages, nil
}
