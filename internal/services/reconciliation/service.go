// Package reconciliation runs the full pipeline for one scope: reset, fetch,
// match, apply, compare and report.
package reconciliation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"ledger-reconciliation-backend/internal/apperror"
	"ledger-reconciliation-backend/internal/events"
	"ledger-reconciliation-backend/internal/lock"
	"ledger-reconciliation-backend/internal/models"
	"ledger-reconciliation-backend/internal/repository"
	"ledger-reconciliation-backend/internal/services/applier"
	"ledger-reconciliation-backend/internal/services/matching"
	"ledger-reconciliation-backend/internal/services/taxcompare"
)

// Store is the transaction store the service works against.
// *repository.Store implements it.
type Store interface {
	applier.LinkWriter

	ListBankTransactions(ctx context.Context, scope string) ([]models.BankTransaction, error)
	ListCustomerTransactions(ctx context.Context, scope string, matched *bool) ([]models.CustomerTransaction, error)
	PageBankTransactions(ctx context.Context, scope, cursor string, limit int) ([]models.BankTransaction, string, bool, error)
	PageCustomerTransactions(ctx context.Context, scope, cursor string, limit int, matched *bool) ([]models.CustomerTransaction, string, bool, error)
	CreateBankTransactions(ctx context.Context, txns []models.BankTransaction) error
	CreateCustomerTransactions(ctx context.Context, txns []models.CustomerTransaction) error
	ClearLedger(ctx context.Context, scope string, side models.LedgerSide, performedBy string) (int64, error)

	ReplaceComparisons(ctx context.Context, scope string, results []models.ComparisonResult) error
	ListComparisons(ctx context.Context, scope string, status models.ComparisonStatus) ([]models.ComparisonResult, error)
	ResetScope(ctx context.Context, scope, performedBy, reason string) (repository.ResetResult, error)
	ListAudit(ctx context.Context, scope string) ([]models.MatchAuditLog, error)

	CreateRun(ctx context.Context, scope, performedBy string) (*models.ReconciliationRun, error)
	FinishRun(ctx context.Context, run *models.ReconciliationRun) error
	GetRun(ctx context.Context, id uuid.UUID) (*models.ReconciliationRun, error)
	ListRuns(ctx context.Context, scope string, limit int) ([]models.ReconciliationRun, error)
}

type Options struct {
	Matching     matching.Config
	Apply        applier.Config
	TaxTolerance decimal.Decimal
	Locker       lock.ScopeLocker
	Publisher    events.Publisher
	Logger       logrus.FieldLogger
}

type ReconciliationService struct {
	store      Store
	matcher    *matching.Matcher
	applier    *applier.Applier
	comparator *taxcompare.Comparator
	locker     lock.ScopeLocker
	publisher  events.Publisher
	log        logrus.FieldLogger
}

func NewReconciliationService(store Store, opts Options) *ReconciliationService {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Locker == nil {
		opts.Locker = lock.NewLocalLocker()
	}
	if opts.Publisher == nil {
		opts.Publisher = events.NoopPublisher{}
	}
	log := opts.Logger.WithField("component", "reconciliation")

	return &ReconciliationService{
		store:      store,
		matcher:    matching.NewMatcher(opts.Matching),
		applier:    applier.NewApplier(store, opts.Apply, log),
		comparator: taxcompare.NewComparator(opts.TaxTolerance),
		locker:     opts.Locker,
		publisher:  opts.Publisher,
		log:        log,
	}
}

func (s *ReconciliationService) Store() Store {
	return s.store
}

// RunReconciliation recomputes the scope from scratch. Previous match links
// and comparison rows are discarded first, so running twice over unchanged
// ledgers gives the same report and the same stored state.
//
// When some match links fail to persist the full report is returned together
// with a *apperror.PartialApplyError. Links that did persist are kept.
func (s *ReconciliationService) RunReconciliation(ctx context.Context, scope, performedBy string) (models.ReconciliationReport, error) {
	if err := checkScope(scope); err != nil {
		return models.ReconciliationReport{}, err
	}

	release, err := s.locker.Acquire(ctx, scope)
	if err != nil {
		return models.ReconciliationReport{}, err
	}
	defer s.release(release, scope)

	log := s.log.WithFields(logrus.Fields{"scope": scope, "performed_by": performedBy})
	started := time.Now()

	run, err := s.store.CreateRun(ctx, scope, performedBy)
	if err != nil {
		return models.ReconciliationReport{}, err
	}
	log = log.WithField("run_id", run.ID)
	log.Info("reconciliation started")

	report, err := s.run(ctx, scope, performedBy)
	s.finish(ctx, run, report, err, log)

	if err != nil {
		var partial *apperror.PartialApplyError
		if !errors.As(err, &partial) {
			log.WithError(err).Error("reconciliation failed")
			return models.ReconciliationReport{}, err
		}
	}

	log.WithFields(logrus.Fields{
		"matched":            report.MatchedCount,
		"applied":            report.AppliedCount,
		"unmatched_bank":     report.UnmatchedBankCount,
		"unmatched_customer": report.UnmatchedCustomerCount,
		"failed_updates":     len(report.FailedUpdates),
		"input_errors":       len(report.InputErrors),
		"duration":           time.Since(started).String(),
	}).Info("reconciliation finished")

	return report, err
}

func (s *ReconciliationService) run(ctx context.Context, scope, performedBy string) (models.ReconciliationReport, error) {
	if _, err := s.store.ResetScope(ctx, scope, performedBy, "reconciliation run"); err != nil {
		return models.ReconciliationReport{}, err
	}

	bankTxns, err := s.store.ListBankTransactions(ctx, scope)
	if err != nil {
		return models.ReconciliationReport{}, err
	}
	customerTxns, err := s.store.ListCustomerTransactions(ctx, scope, nil)
	if err != nil {
		return models.ReconciliationReport{}, err
	}

	bankTxns, customerTxns, inputErrors := prepare(bankTxns, customerTxns)
	for _, ie := range inputErrors {
		s.log.WithFields(logrus.Fields{"scope": scope, "side": ie.Side, "record_id": ie.RecordID}).
			Warn("rejected transaction: " + ie.Reason)
	}

	matched := s.matcher.Match(bankTxns, customerTxns)
	applied := s.applier.Apply(ctx, scope, performedBy, matched.Pairs)

	results := s.comparator.ComparePairs(scope, applied.Applied)
	if err := s.store.ReplaceComparisons(ctx, scope, results); err != nil {
		return models.ReconciliationReport{}, err
	}

	report := models.ReconciliationReport{
		Scope:                  scope,
		MatchedCount:           len(matched.Pairs),
		AppliedCount:           applied.Succeeded,
		UnmatchedBankCount:     len(matched.UnmatchedBank),
		UnmatchedCustomerCount: len(matched.UnmatchedCustomer),
		UnmatchedBankIDs:       make([]uuid.UUID, 0, len(matched.UnmatchedBank)),
		UnmatchedCustomerIDs:   make([]uuid.UUID, 0, len(matched.UnmatchedCustomer)),
		ComparisonSummary:      taxcompare.Summarize(results),
		InputErrors:            inputErrors,
		FailedUpdates:          applied.Failed,
	}
	for _, tx := range matched.UnmatchedBank {
		report.UnmatchedBankIDs = append(report.UnmatchedBankIDs, tx.ID)
	}
	for _, tx := range matched.UnmatchedCustomer {
		report.UnmatchedCustomerIDs = append(report.UnmatchedCustomerIDs, tx.ID)
	}
	if report.InputErrors == nil {
		report.InputErrors = []models.RecordError{}
	}
	if report.FailedUpdates == nil {
		report.FailedUpdates = []models.FailedUpdate{}
	}

	if len(applied.Failed) > 0 {
		return report, &apperror.PartialApplyError{Failed: applied.Failed}
	}
	return report, nil
}

// finish records the outcome on the run row and announces it. Neither step
// can change the result of the run, so failures are only logged.
func (s *ReconciliationService) finish(ctx context.Context, run *models.ReconciliationRun, report models.ReconciliationReport, runErr error, log logrus.FieldLogger) {
	var partial *apperror.PartialApplyError
	switch {
	case runErr == nil:
		run.Status = models.RunCompleted
	case errors.As(runErr, &partial):
		run.Status = models.RunPartial
		run.Error = runErr.Error()
	default:
		run.Status = models.RunFailed
		run.Error = runErr.Error()
	}

	run.MatchedCount = report.MatchedCount
	run.AppliedCount = report.AppliedCount
	run.UnmatchedBankCount = report.UnmatchedBankCount
	run.UnmatchedCustomerCount = report.UnmatchedCustomerCount
	run.FailedUpdateCount = len(report.FailedUpdates)
	run.InputErrorCount = len(report.InputErrors)
	if run.Status != models.RunFailed {
		if summary, err := json.Marshal(report); err == nil {
			run.Summary = summary
		}
	}

	// The caller's context may be the one that was cancelled.
	ctx = context.WithoutCancel(ctx)
	if err := s.store.FinishRun(ctx, run); err != nil {
		log.WithError(err).Warn("failed to record reconciliation run")
	}

	if run.Status == models.RunFailed {
		return
	}
	if err := s.publisher.PublishReconciliationCompleted(ctx, events.NewReconciliationCompleted(*run, report)); err != nil {
		log.WithError(err).Warn("failed to publish reconciliation event")
	}
}

// ResetScope discards the scope's comparison rows and match links without
// touching the ledgers themselves.
func (s *ReconciliationService) ResetScope(ctx context.Context, scope, performedBy string) (repository.ResetResult, error) {
	if err := checkScope(scope); err != nil {
		return repository.ResetResult{}, err
	}

	release, err := s.locker.Acquire(ctx, scope)
	if err != nil {
		return repository.ResetResult{}, err
	}
	defer s.release(release, scope)

	result, err := s.store.ResetScope(ctx, scope, performedBy, "manual reset")
	if err != nil {
		return repository.ResetResult{}, err
	}
	s.log.WithFields(logrus.Fields{
		"scope":               scope,
		"performed_by":        performedBy,
		"comparisons_deleted": result.ComparisonsDeleted,
		"links_cleared":       result.LinksCleared,
	}).Info("scope reset")
	return result, nil
}

func (s *ReconciliationService) ListComparisons(ctx context.Context, scope string, status models.ComparisonStatus) ([]models.ComparisonResult, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}
	return s.store.ListComparisons(ctx, scope, status)
}

func (s *ReconciliationService) ListRuns(ctx context.Context, scope string, limit int) ([]models.ReconciliationRun, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.store.ListRuns(ctx, scope, limit)
}

func (s *ReconciliationService) GetRun(ctx context.Context, id uuid.UUID) (*models.ReconciliationRun, error) {
	return s.store.GetRun(ctx, id)
}

func (s *ReconciliationService) ListAudit(ctx context.Context, scope string) ([]models.MatchAuditLog, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}
	return s.store.ListAudit(ctx, scope)
}

func (s *ReconciliationService) release(release lock.Release, scope string) {
	if err := release(context.Background()); err != nil {
		s.log.WithField("scope", scope).WithError(err).Warn("failed to release scope lock")
	}
}

func checkScope(scope string) error {
	if err := models.ValidateScope(scope); err != nil {
		return fmt.Errorf("%w: %v", apperror.ErrInvalidScope, err)
	}
	return nil
}
