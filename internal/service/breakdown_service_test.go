package service

import (
	"context"
	"errors"

	"github.com/bastien98/dobby-backend-poc/internal/dto"
	"github.com/bastien98/dobby-backend-poc/internal/models"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
)

func processedReceipt(storeName, timestamp string, items ...models.LineItem) *models.Receipt {
	total := 0.0
	for _, item := range items {
		total += item.Price
	}
	return &models.Receipt{
		ID:        uuid.New(),
		StoreName: &storeName,
		TotalPaid: &total,
		Timestamp: &timestamp,
		LineItems: items,
		BlobKey:   "receipts/fixture.pdf",
	}
}

var _ = Describe("BreakdownService", func() {
	var (
		store  *mockStore
		svc    *BreakdownService
		result []dto.StoreBreakdown
		err    error
	)

	BeforeEach(func() {
		store = newMockStore()
		svc = NewBreakdownService(store, zap.NewNop())
	})

	seed := func(receipts ...*models.Receipt) {
		for _, receipt := range receipts {
			Expect(store.Create(context.Background(), receipt)).To(Succeed())
		}
	}

	JustBeforeEach(func() {
		result, err = svc.Breakdown(context.Background())
	})

	When("one store has receipts in one month", func() {
		BeforeEach(func() {
			seed(processedReceipt("ALDI", "2024-03-05 14:30",
				models.LineItem{Name: "Chocolate Bar", Price: 2.50, Category: models.CategorySnacksSweets},
				models.LineItem{Name: "Sparkling Water 6x1L", Price: 7.50, Category: models.CategoryDrinksWater},
			))
		})

		It("builds a single group with per-category spend and percentages", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(HaveLen(1))

			group := result[0]
			Expect(group.StoreName).To(Equal("ALDI"))
			Expect(group.Period).To(Equal("March 2024"))
			Expect(group.TotalStoreSpend).To(Equal(10.00))
			Expect(group.Categories).To(Equal([]dto.CategorySpend{
				{Name: "Drinks (Water)", Spent: 7.50, Percentage: 75},
				{Name: "Snacks & Sweets", Spent: 2.50, Percentage: 25},
			}))
		})
	})

	When("receipts span stores and months", func() {
		BeforeEach(func() {
			seed(
				processedReceipt("ALDI", "2024-03-05 14:30",
					models.LineItem{Name: "Bananas", Price: 1.89, Category: models.CategoryFreshProduce},
				),
				processedReceipt("COLLRUYT", "2024-03-18 09:12",
					models.LineItem{Name: "Tomatoes", Price: 2.29, Category: models.CategoryFreshProduce},
				),
				processedReceipt("ALDI", "2024-04-02 17:45",
					models.LineItem{Name: "Pasta", Price: 1.09, Category: models.CategoryPantry},
				),
				processedReceipt("ALDI", "2024-03-22 11:00",
					models.LineItem{Name: "Eggs", Price: 3.29, Category: models.CategoryDairyEggs},
				),
			)
		})

		It("keys groups by store and month in first-seen order", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(HaveLen(3))
			Expect(result[0].StoreName).To(Equal("ALDI"))
			Expect(result[0].Period).To(Equal("March 2024"))
			Expect(result[1].StoreName).To(Equal("COLLRUYT"))
			Expect(result[1].Period).To(Equal("March 2024"))
			Expect(result[2].StoreName).To(Equal("ALDI"))
			Expect(result[2].Period).To(Equal("April 2024"))
		})

		It("merges receipts that fall into the same group", func() {
			Expect(result[0].TotalStoreSpend).To(Equal(5.18))
			Expect(result[0].Categories).To(HaveLen(2))
		})
	})

	When("a timestamp does not parse", func() {
		BeforeEach(func() {
			seed(processedReceipt("ALDI", "03/05/2024",
				models.LineItem{Name: "Bananas", Price: 1.89, Category: models.CategoryFreshProduce},
			))
		})

		It("buckets the receipt under Unknown Period instead of dropping it", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(HaveLen(1))
			Expect(result[0].Period).To(Equal("Unknown Period"))
			Expect(result[0].TotalStoreSpend).To(Equal(1.89))
		})
	})

	When("receipts are still unprocessed", func() {
		BeforeEach(func() {
			seed(
				&models.Receipt{ID: uuid.New(), BlobKey: "receipts/pending.pdf"},
				processedReceipt("ALDI", "2024-03-05 14:30",
					models.LineItem{Name: "Bananas", Price: 1.89, Category: models.CategoryFreshProduce},
				),
			)
		})

		It("excludes them from the aggregation", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(HaveLen(1))
			Expect(result[0].StoreName).To(Equal("ALDI"))
		})
	})

	When("a group sums to zero", func() {
		BeforeEach(func() {
			seed(
				processedReceipt("COLLRUYT", "2024-03-18 09:12"),
				processedReceipt("ALDI", "2024-03-05 14:30",
					models.LineItem{Name: "Bananas", Price: 1.89, Category: models.CategoryFreshProduce},
				),
			)
		})

		It("drops the empty group", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(HaveLen(1))
			Expect(result[0].StoreName).To(Equal("ALDI"))
		})
	})

	When("three categories split the spend evenly", func() {
		BeforeEach(func() {
			seed(processedReceipt("ALDI", "2024-03-05 14:30",
				models.LineItem{Name: "Bananas", Price: 5.00, Category: models.CategoryFreshProduce},
				models.LineItem{Name: "Milk", Price: 5.00, Category: models.CategoryDairyEggs},
				models.LineItem{Name: "Bread", Price: 5.00, Category: models.CategoryBakery},
			))
		})

		It("rounds each percentage independently without forcing a 100 sum", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(HaveLen(1))
			for _, category := range result[0].Categories {
				Expect(category.Percentage).To(Equal(33))
			}
		})

		It("keeps tied categories in first-seen order", func() {
			names := make([]string, 0, 3)
			for _, category := range result[0].Categories {
				names = append(names, category.Name)
			}
			Expect(names).To(Equal([]string{"Fresh Produce", "Dairy & Eggs", "Bakery"}))
		})
	})

	When("line items carry an empty category", func() {
		BeforeEach(func() {
			seed(processedReceipt("ALDI", "2024-03-05 14:30",
				models.LineItem{Name: "Unlabeled", Price: 4.00},
				models.LineItem{Name: "Bananas", Price: 1.00, Category: models.CategoryFreshProduce},
			))
		})

		It("attributes the spend to Unknown", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result[0].Categories[0]).To(Equal(dto.CategorySpend{
				Name: "Unknown", Spent: 4.00, Percentage: 80,
			}))
		})
	})

	When("called twice over the same data", func() {
		BeforeEach(func() {
			seed(
				processedReceipt("ALDI", "2024-03-05 14:30",
					models.LineItem{Name: "Bananas", Price: 1.89, Category: models.CategoryFreshProduce},
					models.LineItem{Name: "Milk", Price: 1.15, Category: models.CategoryDairyEggs},
				),
				processedReceipt("COLLRUYT", "2024-03-18 09:12",
					models.LineItem{Name: "Shampoo", Price: 4.90, Category: models.CategoryPersonalCare},
				),
			)
		})

		It("returns identical results", func() {
			Expect(err).NotTo(HaveOccurred())
			again, err := svc.Breakdown(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(again).To(Equal(result))
		})
	})

	When("the store cannot list receipts", func() {
		BeforeEach(func() {
			store.listErr = errors.New("connection refused")
		})

		It("surfaces a persistence error", func() {
			Expect(err).To(MatchError(ErrPersistence))
			Expect(result).To(BeNil())
		})
	})
})
