package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"ledger-reconciliation-backend/internal/models"
)

type RunRepository struct {
	db *gorm.DB
}

func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

// CreateRun creates a new ReconciliationRun in processing state.
func (r *RunRepository) CreateRun(ctx context.Context, scope, performedBy string) (*models.ReconciliationRun, error) {
	run := &models.ReconciliationRun{
		ID:          uuid.New(),
		Scope:       scope,
		PerformedBy: performedBy,
		Status:      models.RunProcessing,
		StartedAt:   time.Now(),
	}
	err := r.db.WithContext(ctx).Create(run).Error
	if err != nil {
		return nil, storeError("create run", err)
	}
	return run, nil
}

// FinishRun persists the final state of run.
func (r *RunRepository) FinishRun(ctx context.Context, run *models.ReconciliationRun) error {
	now := time.Now()
	run.CompletedAt = &now
	return storeError("finish run", r.db.WithContext(ctx).Save(run).Error)
}

func (r *RunRepository) GetRun(ctx context.Context, id uuid.UUID) (*models.ReconciliationRun, error) {
	var run models.ReconciliationRun
	if err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		return nil, storeError("get run", err)
	}
	return &run, nil
}

func (r *RunRepository) ListRuns(ctx context.Context, scope string, limit int) ([]models.ReconciliationRun, error) {
	var runs []models.ReconciliationRun
	err := r.db.WithContext(ctx).
		Where("scope = ?", scope).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, storeError("list runs", err)
}

func newAudit(scope, action string, affected int64, performedBy, reason string) *models.MatchAuditLog {
	return &models.MatchAuditLog{
		ID:           uuid.New(),
		Scope:        scope,
		Action:       action,
		AffectedRows: affected,
		PerformedBy:  performedBy,
		Reason:       reason,
	}
}
