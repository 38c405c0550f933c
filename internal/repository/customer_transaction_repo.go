package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"ledger-reconciliation-backend/internal/apperror"
	"ledger-reconciliation-backend/internal/models"
)

type CustomerTransactionRepository struct {
	db *gorm.DB
}

func NewCustomerTransactionRepository(db *gorm.DB) *CustomerTransactionRepository {
	return &CustomerTransactionRepository{db: db}
}

func orderedTaxRows(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}

// CreateCustomerTransactions inserts the transactions together with their tax
// rows.
func (r *CustomerTransactionRepository) CreateCustomerTransactions(ctx context.Context, txns []models.CustomerTransaction) error {
	if len(txns) == 0 {
		return nil
	}
	ctx, span := tracer.Start(ctx, "CreateCustomerTransactions")
	defer span.End()

	err := r.db.WithContext(ctx).CreateInBatches(&txns, createBatchSize).Error
	return storeError("create customer transactions", err)
}

// ListCustomerTransactions returns the scope's customer transactions with
// their tax rows. A non-nil matched filters on whether a match link is set.
func (r *CustomerTransactionRepository) ListCustomerTransactions(ctx context.Context, scope string, matched *bool) ([]models.CustomerTransaction, error) {
	ctx, span := tracer.Start(ctx, "ListCustomerTransactions")
	defer span.End()

	query := r.db.WithContext(ctx).
		Preload("TaxRows", orderedTaxRows).
		Where("scope = ?", scope)
	query = filterMatched(query, matched)

	var txns []models.CustomerTransaction
	err := query.Order("id ASC").Find(&txns).Error
	if err != nil {
		span.RecordError(err)
	}
	return txns, storeError("list customer transactions", err)
}

func (r *CustomerTransactionRepository) PageCustomerTransactions(ctx context.Context, scope, cursor string, limit int, matched *bool) ([]models.CustomerTransaction, string, bool, error) {
	ctx, span := tracer.Start(ctx, "PageCustomerTransactions")
	defer span.End()

	if limit <= 0 {
		limit = 1
	}

	query := r.db.WithContext(ctx).
		Preload("TaxRows", orderedTaxRows).
		Where("scope = ?", scope).
		Order("id ASC").
		Limit(limit + 1)
	query = filterMatched(query, matched)

	if cursor != "" {
		query = query.Where("id > ?", cursor)
	}

	var txns []models.CustomerTransaction
	if err := query.Find(&txns).Error; err != nil {
		return nil, "", false, storeError("page customer transactions", err)
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

func filterMatched(query *gorm.DB, matched *bool) *gorm.DB {
	switch {
	case matched == nil:
		return query
	case *matched:
		return query.Where("matched_bank_transaction IS NOT NULL")
	default:
		return query.Where("matched_bank_transaction IS NULL")
	}
}

// SetMatchedBankTransaction writes one match link and its audit row in a
// single transaction. It touches exactly one customer transaction, so
// concurrent calls for different ids never conflict.
func (r *CustomerTransactionRepository) SetMatchedBankTransaction(ctx context.Context, scope string, customerID, bankID uuid.UUID, performedBy, reason string) error {
	ctx, span := tracer.Start(ctx, "SetMatchedBankTransaction")
	defer span.End()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.CustomerTransaction
		if err := tx.Select("id", "matched_bank_transaction").
			Where("id = ? AND scope = ?", customerID, scope).
			Take(&current).Error; err != nil {
			return err
		}

		res := tx.Model(&models.CustomerTransaction{}).
			Where("id = ? AND scope = ?", customerID, scope).
			Update("matched_bank_transaction", bankID)
		if res.Error != nil {
			return res.Error
		}

		audit := newAudit(scope, models.AuditLink, res.RowsAffected, performedBy, reason)
		audit.CustomerTransactionID = &customerID
		audit.PreviousBankTransaction = current.MatchedBankTransaction
		audit.NewBankTransaction = &bankID
		return tx.Create(audit).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("customer transaction %s: %w", customerID, apperror.ErrNotFound)
	}
	if err != nil {
		span.RecordError(err)
		return storeError("set matched bank transaction", err)
	}
	return nil
}
