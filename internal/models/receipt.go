package models

import (
	"time"

	"github.com/google/uuid"
)

// TimestampLayout is the textual purchase timestamp format the extractor is
// instructed to return. The breakdown builder tolerates strings outside this
// layout by bucketing them under an "Unknown Period" group.
const TimestampLayout = "2006-01-02 15:04"

type StoreName string

const (
	StoreALDI     StoreName = "ALDI"
	StoreCOLLRUYT StoreName = "COLLRUYT"
)

var knownStores = map[StoreName]struct{}{
	StoreALDI:     {},
	StoreCOLLRUYT: {},
}

// KnownStore reports whether name belongs to the closed set of supported
// stores.
func KnownStore(name string) bool {
	_, ok := knownStores[StoreName(name)]
	return ok
}

type Category string

const (
	CategoryAlcohol      Category = "Alcohol"
	CategoryTobacco      Category = "Tobacco"
	CategoryFreshProduce Category = "Fresh Produce"
	CategoryMeatFish     Category = "Meat & Fish"
	CategoryDairyEggs    Category = "Dairy & Eggs"
	CategoryBakery       Category = "Bakery"
	CategoryPantry       Category = "Pantry"
	CategoryReadyMeals   Category = "Ready Meals"
	CategorySnacksSweets Category = "Snacks & Sweets"
	CategoryDrinksSoda   Category = "Drinks (Soft/Soda)"
	CategoryDrinksWater  Category = "Drinks (Water)"
	CategoryHousehold    Category = "Household"
	CategoryPersonalCare Category = "Personal Care"
	CategoryPets         Category = "Pets"
	CategoryUnknown      Category = "Unknown"
)

var knownCategories = map[Category]struct{}{
	CategoryAlcohol:      {},
	CategoryTobacco:      {},
	CategoryFreshProduce: {},
	CategoryMeatFish:     {},
	CategoryDairyEggs:    {},
	CategoryBakery:       {},
	CategoryPantry:       {},
	CategoryReadyMeals:   {},
	CategorySnacksSweets: {},
	CategoryDrinksSoda:   {},
	CategoryDrinksWater:  {},
	CategoryHousehold:    {},
	CategoryPersonalCare: {},
	CategoryPets:         {},
	CategoryUnknown:      {},
}

// NormalizeCategory maps an extractor-provided label onto the closed category
// set, falling back to Unknown for anything outside it.
func NormalizeCategory(raw string) Category {
	if _, ok := knownCategories[Category(raw)]; ok {
		return Category(raw)
	}
	return CategoryUnknown
}

type LineItem struct {
	Name     string   `json:"name"`
	Price    float64  `json:"price"`
	Category Category `json:"category"`
}

// Receipt is the persisted entity. BlobKey is the only field guaranteed at
// creation time; the four extraction fields stay nil until the background
// extraction step fills them all together. Line items are stored as a JSONB
// blob so the item shape can evolve without a migration.
type Receipt struct {
	ID        uuid.UUID  `db:"id"`
	StoreName *string    `db:"store_name"`
	TotalPaid *float64   `db:"total_paid"`
	Timestamp *string    `db:"purchase_timestamp"`
	LineItems []LineItem `db:"line_items"`
	BlobKey   string     `db:"s3_key"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
}

// Processed reports whether the extraction step has filled the receipt.
func (r *Receipt) Processed() bool {
	return r.StoreName != nil && r.Timestamp != nil
}
