package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bastien98/dobby-backend-poc/internal/dto"
	"github.com/bastien98/dobby-backend-poc/internal/models"
	"github.com/bastien98/dobby-backend-poc/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReceiptStore is the record-store contract the pipeline and the breakdown
// builder depend on. *repository.ReceiptRepository is the production
// implementation.
type ReceiptStore interface {
	Create(ctx context.Context, receipt *models.Receipt) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Receipt, error)
	Update(ctx context.Context, receipt *models.Receipt) error
	ListAll(ctx context.Context) ([]*models.Receipt, error)
}

// BlobStore durably stores raw document bytes under a key.
type BlobStore interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
}

// ReceiptExtractor turns a document on disk into a structured extraction.
type ReceiptExtractor interface {
	Extract(ctx context.Context, path string) (*models.ReceiptExtraction, error)
}

type IngestService struct {
	store          ReceiptStore
	blobs          BlobStore
	extractor      ReceiptExtractor
	extractTimeout time.Duration
	logger         *zap.Logger

	// schedule runs the background extraction step; replaced in tests.
	schedule func(func())
}

func NewIngestService(
	store ReceiptStore,
	blobs BlobStore,
	extractor ReceiptExtractor,
	extractTimeout time.Duration,
	logger *zap.Logger,
) *IngestService {
	return &IngestService{
		store:          store,
		blobs:          blobs,
		extractor:      extractor,
		extractTimeout: extractTimeout,
		logger:         logger,
		schedule:       func(job func()) { go job() },
	}
}

// Submit creates the placeholder record, stores the raw bytes, schedules
// extraction and returns without waiting for it. The blob key is built from
// the filename verbatim, so a repeated filename overwrites the earlier blob.
func (s *IngestService) Submit(ctx context.Context, file io.ReadSeeker, filename string, size int64, contentType string) (*dto.UploadResponse, error) {
	key := "receipts/" + filename

	receipt := &models.Receipt{
		ID:      uuid.New(),
		BlobKey: key,
	}
	if err := s.store.Create(ctx, receipt); err != nil {
		return nil, fmt.Errorf("%w: create receipt: %v", ErrPersistence, err)
	}

	tempPath, err := s.spoolTemp(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpload, err)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		os.Remove(tempPath)
		return nil, fmt.Errorf("%w: rewind upload: %v", ErrUpload, err)
	}
	if err := s.blobs.Upload(ctx, key, file, size, contentType); err != nil {
		// The record is not rolled back: it keeps referencing a key that was
		// never written.
		os.Remove(tempPath)
		return nil, fmt.Errorf("%w: %v", ErrUpload, err)
	}

	s.schedule(func() { s.Process(tempPath, receipt.ID) })

	s.logger.Info("receipt submitted",
		zap.String("receipt_id", receipt.ID.String()),
		zap.String("s3_key", key),
	)

	return &dto.UploadResponse{
		Status: "success",
		UUID:   receipt.ID.String(),
		S3Key:  key,
	}, nil
}

// Process runs decoupled from the request cycle: extract, then fill the
// record's four extraction fields in one update. Failures are logged and
// swallowed, leaving the record permanently unprocessed; there is no retry.
// The temp file is removed on every path.
func (s *IngestService) Process(tempPath string, id uuid.UUID) {
	defer os.Remove(tempPath)

	ctx, cancel := context.WithTimeout(context.Background(), s.extractTimeout)
	defer cancel()

	extraction, err := s.extractor.Extract(ctx, tempPath)
	if err != nil {
		s.logger.Error("receipt extraction failed",
			zap.String("receipt_id", id.String()),
			zap.Error(err),
		)
		return
	}

	receipt, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrReceiptNotFound) {
			// Record gone since upload; nothing to fill.
			return
		}
		s.logger.Error("load receipt for update failed",
			zap.String("receipt_id", id.String()),
			zap.Error(err),
		)
		return
	}

	items := make([]models.LineItem, 0, len(extraction.LineItems))
	for _, item := range extraction.LineItems {
		items = append(items, models.LineItem{
			Name:     sanitizeUTF8(item.Name),
			Price:    item.Price,
			Category: models.NormalizeCategory(item.Category),
		})
	}

	storeName := extraction.StoreName
	totalPaid := extraction.TotalPaid
	timestamp := extraction.Timestamp
	receipt.StoreName = &storeName
	receipt.TotalPaid = &totalPaid
	receipt.Timestamp = &timestamp
	receipt.LineItems = items

	if err := s.store.Update(ctx, receipt); err != nil {
		s.logger.Error("receipt update failed",
			zap.String("receipt_id", id.String()),
			zap.Error(err),
		)
		return
	}

	s.logger.Info("receipt processed",
		zap.String("receipt_id", id.String()),
		zap.String("store", storeName),
		zap.Int("line_items", len(items)),
	)
}

// GetReceipt returns a single receipt by id.
func (s *IngestService) GetReceipt(ctx context.Context, id uuid.UUID) (*dto.ReceiptResponse, error) {
	receipt, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrReceiptNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: get receipt: %v", ErrPersistence, err)
	}
	return receiptResponse(receipt), nil
}

// ListReceipts returns all receipts, processed or not.
func (s *IngestService) ListReceipts(ctx context.Context) ([]*dto.ReceiptResponse, error) {
	receipts, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list receipts: %v", ErrPersistence, err)
	}
	responses := make([]*dto.ReceiptResponse, len(receipts))
	for i, receipt := range receipts {
		responses[i] = receiptResponse(receipt)
	}
	return responses, nil
}

func (s *IngestService) spoolTemp(file io.Reader) (string, error) {
	tmp, err := os.CreateTemp("", "dobby-receipt-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("spool upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return tmp.Name(), nil
}

func receiptResponse(receipt *models.Receipt) *dto.ReceiptResponse {
	resp := &dto.ReceiptResponse{
		ID:        receipt.ID.String(),
		StoreName: receipt.StoreName,
		TotalPaid: receipt.TotalPaid,
		Timestamp: receipt.Timestamp,
		S3Key:     receipt.BlobKey,
		CreatedAt: receipt.CreatedAt.Format(time.RFC3339),
	}
	for _, item := range receipt.LineItems {
		resp.LineItems = append(resp.LineItems, dto.LineItemResponse{
			Name:     item.Name,
			Price:    item.Price,
			Category: string(item.Category),
		})
	}
	return resp
}
