package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/bastien98/dobby-backend-poc/internal/dto"
	"github.com/bastien98/dobby-backend-poc/internal/models"

	"go.uber.org/zap"
)

// unknownPeriod buckets receipts whose timestamp does not parse; they are
// grouped together rather than dropped.
const unknownPeriod = "Unknown Period"

// BreakdownService turns the flat receipt collection into per-store,
// per-period spend summaries with category percentages.
type BreakdownService struct {
	store  ReceiptStore
	logger *zap.Logger
}

func NewBreakdownService(store ReceiptStore, logger *zap.Logger) *BreakdownService {
	return &BreakdownService{
		store:  store,
		logger: logger,
	}
}

type groupKey struct {
	store  string
	period string
}

type spendGroup struct {
	total         float64
	categoryOrder []string
	categories    map[string]float64
}

// Breakdown scans every persisted receipt and aggregates line-item spend by
// (store, period) and category. Groups appear in first-seen order; category
// rows are sorted by spend descending with ties kept in first-seen order.
// Percentages are rounded half-up independently per category, so they may not
// sum to exactly 100. Spend amounts are rounded to two decimals only after
// percentages are computed from the full-precision sums.
func (s *BreakdownService) Breakdown(ctx context.Context) ([]dto.StoreBreakdown, error) {
	receipts, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list receipts: %v", ErrPersistence, err)
	}

	var order []groupKey
	groups := make(map[groupKey]*spendGroup)

	for _, receipt := range receipts {
		// Unprocessed (or failed) receipts contribute nothing.
		if receipt.StoreName == nil || receipt.Timestamp == nil {
			continue
		}

		period := unknownPeriod
		if ts, err := time.Parse(models.TimestampLayout, *receipt.Timestamp); err == nil {
			period = ts.Format("January 2006")
		}

		key := groupKey{store: *receipt.StoreName, period: period}
		group, ok := groups[key]
		if !ok {
			group = &spendGroup{categories: make(map[string]float64)}
			groups[key] = group
			order = append(order, key)
		}

		for _, item := range receipt.LineItems {
			category := string(item.Category)
			if category == "" {
				category = string(models.CategoryUnknown)
			}
			if _, seen := group.categories[category]; !seen {
				group.categoryOrder = append(group.categoryOrder, category)
			}
			group.categories[category] += item.Price
			group.total += item.Price
		}
	}

	result := make([]dto.StoreBreakdown, 0, len(order))
	for _, key := range order {
		group := groups[key]
		if group.total == 0 {
			continue
		}

		categories := make([]dto.CategorySpend, 0, len(group.categoryOrder))
		for _, name := range group.categoryOrder {
			spent := group.categories[name]
			categories = append(categories, dto.CategorySpend{
				Name:       name,
				Spent:      spent,
				Percentage: int(math.Round(spent / group.total * 100)),
			})
		}
		sort.SliceStable(categories, func(i, j int) bool {
			return categories[i].Spent > categories[j].Spent
		})
		for i := range categories {
			categories[i].Spent = round2(categories[i].Spent)
		}

		result = append(result, dto.StoreBreakdown{
			StoreName:       key.store,
			Period:          key.period,
			TotalStoreSpend: round2(group.total),
			Categories:      categories,
		})
	}

	return result, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
