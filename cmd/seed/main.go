// Command seed inserts a small set of already-processed receipts so the
// breakdown endpoint has data to aggregate in a fresh environment.
package main

import (
	"context"
	"log"

	"github.com/bastien98/dobby-backend-poc/internal/models"
	"github.com/bastien98/dobby-backend-poc/internal/repository"
	"github.com/bastien98/dobby-backend-poc/pkg/config"
	"github.com/bastien98/dobby-backend-poc/pkg/logger"
	"github.com/bastien98/dobby-backend-poc/pkg/postgres"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type seedReceipt struct {
	store     string
	totalPaid float64
	timestamp string
	blobKey   string
	items     []models.LineItem
}

var seedReceipts = []seedReceipt{
	{
		store:     "ALDI",
		totalPaid: 23.47,
		timestamp: "2024-03-05 14:30",
		blobKey:   "receipts/aldi-2024-03-05.pdf",
		items: []models.LineItem{
			{Name: "Bananas 1kg", Price: 1.89, Category: models.CategoryFreshProduce},
			{Name: "Whole Milk 1L", Price: 1.15, Category: models.CategoryDairyEggs},
			{Name: "Chocolate Bar", Price: 2.50, Category: models.CategorySnacksSweets},
			{Name: "Sparkling Water 6x1L", Price: 7.50, Category: models.CategoryDrinksWater},
			{Name: "Chicken Breast 500g", Price: 5.49, Category: models.CategoryMeatFish},
			{Name: "Dish Soap", Price: 1.99, Category: models.CategoryHousehold},
			{Name: "Sourdough Loaf", Price: 2.95, Category: models.CategoryBakery},
		},
	},
	{
		store:     "COLLRUYT",
		totalPaid: 18.12,
		timestamp: "2024-03-18 09:12",
		blobKey:   "receipts/collruyt-2024-03-18.pdf",
		items: []models.LineItem{
			{Name: "Tomatoes 500g", Price: 2.29, Category: models.CategoryFreshProduce},
			{Name: "Lasagna Ready Meal", Price: 4.99, Category: models.CategoryReadyMeals},
			{Name: "Cola 1.5L", Price: 2.15, Category: models.CategoryDrinksSoda},
			{Name: "Cat Food 4x100g", Price: 3.79, Category: models.CategoryPets},
			{Name: "Shampoo", Price: 4.90, Category: models.CategoryPersonalCare},
		},
	},
	{
		store:     "ALDI",
		totalPaid: 9.87,
		timestamp: "2024-04-02 17:45",
		blobKey:   "receipts/aldi-2024-04-02.pdf",
		items: []models.LineItem{
			{Name: "Eggs 12pc", Price: 3.29, Category: models.CategoryDairyEggs},
			{Name: "Pasta 500g", Price: 1.09, Category: models.CategoryPantry},
			{Name: "Red Wine", Price: 5.49, Category: models.CategoryAlcohol},
		},
	},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Logger.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLogger := logger.Get()

	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := postgres.EnsureSchema(ctx, db); err != nil {
		appLogger.Fatal("Failed to ensure schema", zap.Error(err))
	}

	receiptRepo := repository.NewReceiptRepository(db, appLogger)

	appLogger.Info("Seeding receipts...")

	for _, seed := range seedReceipts {
		receipt := &models.Receipt{
			ID:      uuid.New(),
			BlobKey: seed.blobKey,
		}
		if err := receiptRepo.Create(ctx, receipt); err != nil {
			appLogger.Fatal("Failed to create receipt", zap.String("s3_key", seed.blobKey), zap.Error(err))
		}

		store := seed.store
		total := seed.totalPaid
		timestamp := seed.timestamp
		receipt.StoreName = &store
		receipt.TotalPaid = &total
		receipt.Timestamp = &timestamp
		receipt.LineItems = seed.items

		if err := receiptRepo.Update(ctx, receipt); err != nil {
			appLogger.Fatal("Failed to fill receipt", zap.String("s3_key", seed.blobKey), zap.Error(err))
		}

		appLogger.Info("Seeded receipt",
			zap.String("receipt_id", receipt.ID.String()),
			zap.String("store", seed.store),
			zap.Int("line_items", len(seed.items)),
		)
	}

	appLogger.Info("Seeding complete", zap.Int("receipts", len(seedReceipts)))
}
