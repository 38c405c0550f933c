package repository

import (
	"context"

	"gorm.io/gorm"

	"ledger-reconciliation-backend/internal/models"
)

type BankTransactionRepository struct {
	db *gorm.DB
}

func NewBankTransactionRepository(db *gorm.DB) *BankTransactionRepository {
	return &BankTransactionRepository{db: db}
}

func (r *BankTransactionRepository) CreateBankTransactions(ctx context.Context, txns []models.BankTransaction) error {
	if len(txns) == 0 {
		return nil
	}
	ctx, span := tracer.Start(ctx, "CreateBankTransactions")
	defer span.End()

	err := r.db.WithContext(ctx).CreateInBatches(&txns, createBatchSize).Error
	return storeError("create bank transactions", err)
}

// ListBankTransactions returns every bank transaction of the scope.
func (r *BankTransactionRepository) ListBankTransactions(ctx context.Context, scope string) ([]models.BankTransaction, error) {
	ctx, span := tracer.Start(ctx, "ListBankTransactions")
	defer span.End()

	var txns []models.BankTransaction
	err := r.db.WithContext(ctx).
		Where("scope = ?", scope).
		Order("id ASC").
		Find(&txns).Error
	if err != nil {
		span.RecordError(err)
	}
	return txns, storeError("list bank transactions", err)
}

// PageBankTransactions is the cursor-paginated listing used by the API.
func (r *BankTransactionRepository) PageBankTransactions(ctx context.Context, scope, cursor string, limit int) ([]models.BankTransaction, string, bool, error) {
	ctx, span := tracer.Start(ctx, "PageBankTransactions")
	defer span.End()

	if limit <= 0 {
		limit = 1
	}

	var txns []models.BankTransaction
	query := r.db.WithContext(ctx).
		Where("scope = ?", scope).
		Order("id ASC").
		Limit(limit + 1)

	if cursor != "" {
		query = query.Where("id > ?", cursor)
	}

	if err := query.Find(&txns).Error; err != nil {
		return nil, "", false, storeError("page bank transactions", err)
	}

	hasMore := false
	var nextCursor string
	if len(txns) > limit {
		hasMore = true
		nextCursor = txns[limit-1].ID.String()
		txns = txns[:limit]
	}
	return txns, nextCursor, hasMore, nil
}
