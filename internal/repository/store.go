package repository

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"gorm.io/gorm"

	"ledger-reconciliation-backend/internal/apperror"
	"ledger-reconciliation-backend/internal/models"
)

const createBatchSize = 500

var tracer = otel.Tracer("repository")

// Store is the transaction store adapter used by the reconciliation
// pipeline. Each embedded repository owns one table family.
type Store struct {
	*BankTransactionRepository
	*CustomerTransactionRepository
	*ComparisonRepository
	*RunRepository
	db          *gorm.DB
	concurrency int
}

func NewStore(db *gorm.DB, concurrency int) *Store {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Store{
		BankTransactionRepository:     NewBankTransactionRepository(db),
		CustomerTransactionRepository: NewCustomerTransactionRepository(db),
		ComparisonRepository:          NewComparisonRepository(db),
		RunRepository:                 NewRunRepository(db),
		db:                            db,
		concurrency:                   concurrency,
	}
}

// ConcurrencyLimit is the number of independent writes the store accepts at
// once.
func (s *Store) ConcurrencyLimit() int {
	return s.concurrency
}

type ResetResult struct {
	ComparisonsDeleted int64 `json:"comparisons_deleted"`
	LinksCleared       int64 `json:"links_cleared"`
}

// ResetScope deletes the scope's comparison rows and clears every match link
// in the scope inside a single transaction. Rows of other scopes are never
// touched.
func (s *Store) ResetScope(ctx context.Context, scope, performedBy, reason string) (ResetResult, error) {
	ctx, span := tracer.Start(ctx, "ResetScope")
	defer span.End()

	var result ResetResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = resetScope(tx, scope)
		if err != nil {
			return err
		}
		return tx.Create(newAudit(scope, models.AuditReset, result.ComparisonsDeleted+result.LinksCleared, performedBy, reason)).Error
	})
	if err != nil {
		span.RecordError(err)
		return ResetResult{}, storeError("reset scope", err)
	}
	return result, nil
}

func resetScope(tx *gorm.DB, scope string) (ResetResult, error) {
	del := tx.Where("scope = ?", scope).Delete(&models.ComparisonResult{})
	if del.Error != nil {
		return ResetResult{}, del.Error
	}
	upd := tx.Model(&models.CustomerTransaction{}).
		Where("scope = ? AND matched_bank_transaction IS NOT NULL", scope).
		Update("matched_bank_transaction", nil)
	if upd.Error != nil {
		return ResetResult{}, upd.Error
	}
	return ResetResult{ComparisonsDeleted: del.RowsAffected, LinksCleared: upd.RowsAffected}, nil
}

// ClearLedger removes one side of a scope's ledgers. Match state of the scope
// is reset in the same transaction since it would reference removed rows.
func (s *Store) ClearLedger(ctx context.Context, scope string, side models.LedgerSide, performedBy string) (int64, error) {
	if side != models.BankSide && side != models.CustomerSide {
		return 0, apperror.NewAPIError(apperror.ErrCodeInvalidInput, fmt.Sprintf("unknown ledger side %q", side), nil)
	}

	ctx, span := tracer.Start(ctx, "ClearLedger")
	defer span.End()

	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := resetScope(tx, scope); err != nil {
			return err
		}

		var res *gorm.DB
		if side == models.BankSide {
			res = tx.Where("scope = ?", scope).Delete(&models.BankTransaction{})
		} else {
			rows := tx.Where("customer_transaction_id IN (?)",
				tx.Model(&models.CustomerTransaction{}).Select("id").Where("scope = ?", scope),
			).Delete(&models.CustomerTaxRow{})
			if rows.Error != nil {
				return rows.Error
			}
			res = tx.Where("scope = ?", scope).Delete(&models.CustomerTransaction{})
		}
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected
		return tx.Create(newAudit(scope, models.AuditLedgerClear, removed, performedBy, string(side)+" ledger cleared")).Error
	})
	if err != nil {
		span.RecordError(err)
		return 0, storeError("clear ledger", err)
	}
	return removed, nil
}

func (s *Store) ListAudit(ctx context.Context, scope string) ([]models.MatchAuditLog, error) {
	ctx, span := tracer.Start(ctx, "ListAudit")
	defer span.End()

	var logs []models.MatchAuditLog
	err := s.db.WithContext(ctx).
		Where("scope = ?", scope).
		Order("created_at ASC").
		Find(&logs).Error
	return logs, storeError("list audit", err)
}

// storeError classifies a gorm error. A cancelled or expired context is the
// caller's doing and is passed through. Anything else other than a missing
// row or a duplicate key means the store could not serve the request.
func storeError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, apperror.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperror.NewAPIError(apperror.ErrCodeConflict, op+": duplicate record", err.Error())
	}
	var apiErr apperror.APIError
	if errors.As(err, &apiErr) {
		return err
	}
	return apperror.StoreUnavailable(op, err)
}
