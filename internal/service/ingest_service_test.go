package service

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/bastien98/dobby-backend-poc/internal/dto"
	"github.com/bastien98/dobby-backend-poc/internal/models"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
)

// spoolCount counts the pipeline's temp files currently on disk, so specs can
// assert that every path cleans up after itself.
func spoolCount() int {
	matches, err := filepath.Glob(filepath.Join(os.TempDir(), "dobby-receipt-*"))
	Expect(err).NotTo(HaveOccurred())
	return len(matches)
}

var _ = Describe("IngestService", func() {
	var (
		store     *mockStore
		blobs     *mockBlobStore
		extractor *mockExtractor
		svc       *IngestService
		scheduled []func()
	)

	BeforeEach(func() {
		store = newMockStore()
		blobs = newMockBlobStore()
		extractor = &mockExtractor{}
		svc = NewIngestService(store, blobs, extractor, time.Second, zap.NewNop())
		scheduled = nil
		svc.schedule = func(job func()) {
			scheduled = append(scheduled, job)
		}
	})

	Describe("Submit", func() {
		var (
			content      []byte
			spoolsBefore int
			resp         *dto.UploadResponse
			err          error
		)

		BeforeEach(func() {
			content = []byte("%PDF-1.4 receipt bytes")
			spoolsBefore = spoolCount()
		})

		JustBeforeEach(func() {
			resp, err = svc.Submit(context.Background(), bytes.NewReader(content), "groceries.pdf", int64(len(content)), "application/pdf")
		})

		When("everything succeeds", func() {
			BeforeEach(func() {
				extractor.extraction = &models.ReceiptExtraction{
					StoreName: "ALDI",
					TotalPaid: 4.50,
					Timestamp: "2024-03-05 14:30",
				}
			})

			AfterEach(func() {
				// Drain the scheduled extraction so the spool file is removed.
				for _, job := range scheduled {
					job()
				}
				Expect(spoolCount()).To(Equal(spoolsBefore))
			})

			It("returns the record id and blob key immediately", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.Status).To(Equal("success"))
				Expect(resp.S3Key).To(Equal("receipts/groceries.pdf"))
				_, parseErr := uuid.Parse(resp.UUID)
				Expect(parseErr).NotTo(HaveOccurred())
			})

			It("creates a placeholder record with empty extraction fields", func() {
				id := uuid.MustParse(resp.UUID)
				receipt, ok := store.receipts[id]
				Expect(ok).To(BeTrue())
				Expect(receipt.BlobKey).To(Equal("receipts/groceries.pdf"))
				Expect(receipt.StoreName).To(BeNil())
				Expect(receipt.TotalPaid).To(BeNil())
				Expect(receipt.Timestamp).To(BeNil())
				Expect(receipt.LineItems).To(BeEmpty())
			})

			It("stores the raw bytes under the derived key", func() {
				Expect(blobs.objects).To(HaveKey("receipts/groceries.pdf"))
				Expect(blobs.objects["receipts/groceries.pdf"]).To(Equal(content))
			})

			It("schedules exactly one background extraction", func() {
				Expect(scheduled).To(HaveLen(1))
			})
		})

		When("the record cannot be created", func() {
			BeforeEach(func() {
				store.createErr = errors.New("connection refused")
			})

			It("fails with a persistence error before touching storage", func() {
				Expect(err).To(MatchError(ErrPersistence))
				Expect(resp).To(BeNil())
				Expect(blobs.objects).To(BeEmpty())
				Expect(scheduled).To(BeEmpty())
				Expect(spoolCount()).To(Equal(spoolsBefore))
			})
		})

		When("the blob upload fails", func() {
			BeforeEach(func() {
				blobs.uploadErr = errors.New("bucket unavailable")
			})

			It("fails with an upload error", func() {
				Expect(err).To(MatchError(ErrUpload))
				Expect(resp).To(BeNil())
			})

			It("keeps the placeholder record", func() {
				Expect(store.receipts).To(HaveLen(1))
			})

			It("schedules nothing and leaves no spool file behind", func() {
				Expect(scheduled).To(BeEmpty())
				Expect(spoolCount()).To(Equal(spoolsBefore))
			})
		})
	})

	Describe("Process", func() {
		var (
			receipt  *models.Receipt
			tempPath string
		)

		BeforeEach(func() {
			receipt = &models.Receipt{
				ID:      uuid.New(),
				BlobKey: "receipts/groceries.pdf",
			}
			Expect(store.Create(context.Background(), receipt)).To(Succeed())

			tmp, err := os.CreateTemp("", "dobby-receipt-*.pdf")
			Expect(err).NotTo(HaveOccurred())
			_, err = tmp.WriteString("%PDF-1.4 receipt bytes")
			Expect(err).NotTo(HaveOccurred())
			Expect(tmp.Close()).To(Succeed())
			tempPath = tmp.Name()
		})

		AfterEach(func() {
			os.Remove(tempPath)
		})

		When("extraction succeeds", func() {
			BeforeEach(func() {
				extractor.extraction = &models.ReceiptExtraction{
					StoreName: "ALDI",
					TotalPaid: 3.65,
					Timestamp: "2024-03-05 14:30",
					LineItems: []models.ExtractedLineItem{
						{Name: "Whole Milk 1L", Price: 1.15, Category: "Dairy & Eggs"},
						{Name: "Mystery Item", Price: 2.50, Category: "Not A Category"},
					},
				}
			})

			JustBeforeEach(func() {
				svc.Process(tempPath, receipt.ID)
			})

			It("fills the four extraction fields in one update", func() {
				Expect(store.updates).To(Equal(1))
				stored := store.receipts[receipt.ID]
				Expect(stored.StoreName).To(HaveValue(Equal("ALDI")))
				Expect(stored.TotalPaid).To(HaveValue(Equal(3.65)))
				Expect(stored.Timestamp).To(HaveValue(Equal("2024-03-05 14:30")))
				Expect(stored.LineItems).To(HaveLen(2))
			})

			It("keeps known categories and maps unknown ones to Unknown", func() {
				stored := store.receipts[receipt.ID]
				Expect(stored.LineItems[0].Category).To(Equal(models.CategoryDairyEggs))
				Expect(stored.LineItems[1].Category).To(Equal(models.CategoryUnknown))
			})

			It("removes the temp file", func() {
				_, statErr := os.Stat(tempPath)
				Expect(os.IsNotExist(statErr)).To(BeTrue())
			})
		})

		When("extraction fails", func() {
			BeforeEach(func() {
				extractor.err = errors.New("model returned garbage")
			})

			JustBeforeEach(func() {
				svc.Process(tempPath, receipt.ID)
			})

			It("leaves the record unprocessed and does not retry", func() {
				Expect(store.updates).To(BeZero())
				stored := store.receipts[receipt.ID]
				Expect(stored.StoreName).To(BeNil())
				Expect(stored.TotalPaid).To(BeNil())
			})

			It("still removes the temp file", func() {
				_, statErr := os.Stat(tempPath)
				Expect(os.IsNotExist(statErr)).To(BeTrue())
			})
		})

		When("the record disappeared before extraction finished", func() {
			BeforeEach(func() {
				extractor.extraction = &models.ReceiptExtraction{StoreName: "ALDI"}
			})

			JustBeforeEach(func() {
				svc.Process(tempPath, uuid.New())
			})

			It("skips the update silently and cleans up", func() {
				Expect(store.updates).To(BeZero())
				_, statErr := os.Stat(tempPath)
				Expect(os.IsNotExist(statErr)).To(BeTrue())
			})
		})

		When("the update fails", func() {
			BeforeEach(func() {
				extractor.extraction = &models.ReceiptExtraction{StoreName: "ALDI"}
				store.updateErr = errors.New("connection reset")
			})

			JustBeforeEach(func() {
				svc.Process(tempPath, receipt.ID)
			})

			It("swallows the failure and removes the temp file", func() {
				Expect(store.updates).To(BeZero())
				_, statErr := os.Stat(tempPath)
				Expect(os.IsNotExist(statErr)).To(BeTrue())
			})
		})
	})
})
