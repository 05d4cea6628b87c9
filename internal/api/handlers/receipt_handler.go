package handlers

import (
	"errors"

	"github.com/bastien98/dobby-backend-poc/internal/repository"
	"github.com/bastien98/dobby-backend-poc/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReceiptHandler struct {
	ingest    *service.IngestService
	breakdown *service.BreakdownService
	logger    *zap.Logger
}

func NewReceiptHandler(ingest *service.IngestService, breakdown *service.BreakdownService, logger *zap.Logger) *ReceiptHandler {
	return &ReceiptHandler{
		ingest:    ingest,
		breakdown: breakdown,
		logger:    logger,
	}
}

// UploadReceipt accepts one multipart document, stores it durably and returns
// the record id immediately; extraction happens after the response is sent.
func (h *ReceiptHandler) UploadReceipt(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"detail": "file is required",
		})
	}

	src, err := file.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"detail": "failed to open file",
		})
	}
	defer src.Close()

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/pdf"
	}

	resp, err := h.ingest.Submit(c.Context(), src, file.Filename, file.Size, contentType)
	if err != nil {
		h.logger.Error("receipt upload failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": err.Error(),
		})
	}

	return c.JSON(resp)
}

// GetBreakdown returns the per-store, per-period category spend summaries.
func (h *ReceiptHandler) GetBreakdown(c *fiber.Ctx) error {
	result, err := h.breakdown.Breakdown(c.Context())
	if err != nil {
		h.logger.Error("breakdown failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "failed to build breakdown",
		})
	}
	return c.JSON(result)
}

// GetReceipt returns a single receipt, processed or not.
func (h *ReceiptHandler) GetReceipt(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"detail": "invalid receipt id",
		})
	}

	receipt, err := h.ingest.GetReceipt(c.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrReceiptNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"detail": "receipt not found",
			})
		}
		h.logger.Error("get receipt failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "failed to load receipt",
		})
	}

	return c.JSON(receipt)
}

// ListReceipts returns every stored receipt.
func (h *ReceiptHandler) ListReceipts(c *fiber.Ctx) error {
	receipts, err := h.ingest.ListReceipts(c.Context())
	if err != nil {
		h.logger.Error("list receipts failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "failed to list receipts",
		})
	}
	return c.JSON(receipts)
}
