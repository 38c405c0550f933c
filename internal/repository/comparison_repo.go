package repository

import (
	"context"

	"gorm.io/gorm"

	"ledger-reconciliation-backend/internal/models"
)

type ComparisonRepository struct {
	db *gorm.DB
}

func NewComparisonRepository(db *gorm.DB) *ComparisonRepository {
	return &ComparisonRepository{db: db}
}

// ReplaceComparisons swaps the scope's comparison rows for results in one
// transaction. Readers see either the old set or the new one.
func (r *ComparisonRepository) ReplaceComparisons(ctx context.Context, scope string, results []models.ComparisonResult) error {
	ctx, span := tracer.Start(ctx, "ReplaceComparisons")
	defer span.End()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("scope = ?", scope).Delete(&models.ComparisonResult{}).Error; err != nil {
			return err
		}
		if len(results) == 0 {
			return nil
		}
		return tx.CreateInBatches(&results, createBatchSize).Error
	})
	if err != nil {
		span.RecordError(err)
	}
	return storeError("replace comparisons", err)
}

// ListComparisons returns the scope's rows ordered by bank transaction. An
// empty status returns every row.
func (r *ComparisonRepository) ListComparisons(ctx context.Context, scope string, status models.ComparisonStatus) ([]models.ComparisonResult, error) {
	ctx, span := tracer.Start(ctx, "ListComparisons")
	defer span.End()

	query := r.db.WithContext(ctx).Where("scope = ?", scope)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var results []models.ComparisonResult
	err := query.Order("bank_transaction_id ASC").Find(&results).Error
	return results, storeError("list comparisons", err)
}

func (r *ComparisonRepository) CountComparisons(ctx context.Context, scope string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ComparisonResult{}).Where("scope = ?", scope).Count(&count).Error
	return count, storeError("count comparisons", err)
}
