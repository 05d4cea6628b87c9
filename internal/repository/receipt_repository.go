package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bastien98/dobby-backend-poc/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// ErrReceiptNotFound is returned by GetByID when no row matches the id.
var ErrReceiptNotFound = errors.New("receipt not found")

type ReceiptRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewReceiptRepository(db *pgxpool.Pool, logger *zap.Logger) *ReceiptRepository {
	return &ReceiptRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts the placeholder record written at upload time: id and blob
// key only, extraction columns left NULL.
func (r *ReceiptRepository) Create(ctx context.Context, receipt *models.Receipt) error {
	now := time.Now().UTC()
	receipt.CreatedAt = now
	receipt.UpdatedAt = now

	query := squirrel.Insert("receipts").
		Columns("id", "s3_key", "created_at", "updated_at").
		Values(receipt.ID, receipt.BlobKey, receipt.CreatedAt, receipt.UpdatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *ReceiptRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Receipt, error) {
	query := squirrel.Select("id", "store_name", "total_paid", "purchase_timestamp", "line_items", "s3_key", "created_at", "updated_at").
		From("receipts").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	receipt, err := scanReceipt(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReceiptNotFound
		}
		return nil, err
	}

	return receipt, nil
}

// Update writes the four extraction fields in a single statement so a filled
// receipt never becomes visible half-populated.
func (r *ReceiptRepository) Update(ctx context.Context, receipt *models.Receipt) error {
	items, err := json.Marshal(receipt.LineItems)
	if err != nil {
		return fmt.Errorf("marshal line items: %w", err)
	}

	query := squirrel.Update("receipts").
		Set("store_name", receipt.StoreName).
		Set("total_paid", receipt.TotalPaid).
		Set("purchase_timestamp", receipt.Timestamp).
		Set("line_items", items).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": receipt.ID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

// ListAll returns every receipt ordered by creation time, which keeps the
// breakdown's first-seen grouping order deterministic.
func (r *ReceiptRepository) ListAll(ctx context.Context) ([]*models.Receipt, error) {
	query := squirrel.Select("id", "store_name", "total_paid", "purchase_timestamp", "line_items", "s3_key", "created_at", "updated_at").
		From("receipts").
		OrderBy("created_at ASC").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var receipts []*models.Receipt
	for rows.Next() {
		receipt, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, receipt)
	}

	return receipts, rows.Err()
}

func scanReceipt(row pgx.Row) (*models.Receipt, error) {
	var (
		receipt models.Receipt
		items   []byte
	)
	if err := row.Scan(
		&receipt.ID, &receipt.StoreName, &receipt.TotalPaid, &receipt.Timestamp, &items, &receipt.BlobKey, &receipt.CreatedAt, &receipt.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &receipt.LineItems); err != nil {
			return nil, fmt.Errorf("unmarshal line items: %w", err)
		}
	}
	return &receipt, nil
}
