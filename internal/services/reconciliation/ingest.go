package reconciliation

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"ledger-reconciliation-backend/internal/models"
)

type IngestResult struct {
	BatchID  uuid.UUID            `json:"batch_id"`
	Accepted int                  `json:"accepted"`
	Rejected []models.RecordError `json:"rejected"`
}

// IngestBankTransactions stores a batch of bank statement lines for scope.
// Lines without an id get one. Invalid lines are rejected individually and
// the rest of the batch is stored.
func (s *ReconciliationService) IngestBankTransactions(ctx context.Context, scope string, txns []models.BankTransaction) (IngestResult, error) {
	if err := checkScope(scope); err != nil {
		return IngestResult{}, err
	}

	result := IngestResult{BatchID: uuid.New(), Rejected: []models.RecordError{}}
	seen := make(map[uuid.UUID]bool, len(txns))
	accepted := make([]models.BankTransaction, 0, len(txns))

	for _, tx := range txns {
		if tx.ID == uuid.Nil {
			tx.ID = uuid.New()
		}
		tx.Scope = scope
		tx.BatchID = result.BatchID

		if seen[tx.ID] {
			result.Rejected = append(result.Rejected, models.RecordError{Side: models.BankSide, RecordID: tx.ID, Reason: "duplicate transaction id"})
			continue
		}
		seen[tx.ID] = true

		if err := tx.Validate(); err != nil {
			result.Rejected = append(result.Rejected, models.RecordError{Side: models.BankSide, RecordID: tx.ID, Reason: err.Error()})
			continue
		}
		tx.DeriveAmount()
		accepted = append(accepted, tx)
	}

	if err := s.store.CreateBankTransactions(ctx, accepted); err != nil {
		return IngestResult{}, err
	}
	result.Accepted = len(accepted)
	sortRecordErrors(result.Rejected)

	s.log.WithFields(logrus.Fields{
		"scope":    scope,
		"batch_id": result.BatchID,
		"accepted": result.Accepted,
		"rejected": len(result.Rejected),
	}).Info("bank transactions ingested")
	return result, nil
}

// IngestCustomerTransactions stores a batch of customer ledger entries and
// their tax rows for scope.
func (s *ReconciliationService) IngestCustomerTransactions(ctx context.Context, scope string, txns []models.CustomerTransaction) (IngestResult, error) {
	if err := checkScope(scope); err != nil {
		return IngestResult{}, err
	}

	result := IngestResult{BatchID: uuid.New(), Rejected: []models.RecordError{}}
	seen := make(map[uuid.UUID]bool, len(txns))
	accepted := make([]models.CustomerTransaction, 0, len(txns))

	for _, tx := range txns {
		if tx.ID == uuid.Nil {
			tx.ID = uuid.New()
		}
		tx.Scope = scope
		tx.BatchID = result.BatchID
		// Links are only ever written by a reconciliation run.
		tx.MatchedBankTransaction = nil

		rows := make([]models.CustomerTaxRow, len(tx.TaxRows))
		for i, row := range tx.TaxRows {
			if row.ID == uuid.Nil {
				row.ID = uuid.New()
			}
			row.CustomerTransactionID = tx.ID
			rows[i] = row
		}
		tx.TaxRows = rows

		if seen[tx.ID] {
			result.Rejected = append(result.Rejected, models.RecordError{Side: models.CustomerSide, RecordID: tx.ID, Reason: "duplicate transaction id"})
			continue
		}
		seen[tx.ID] = true

		if err := tx.Validate(); err != nil {
			result.Rejected = append(result.Rejected, models.RecordError{Side: models.CustomerSide, RecordID: tx.ID, Reason: err.Error()})
			continue
		}
		tx.DeriveAmount()
		accepted = append(accepted, tx)
	}

	if err := s.store.CreateCustomerTransactions(ctx, accepted); err != nil {
		return IngestResult{}, err
	}
	result.Accepted = len(accepted)
	sortRecordErrors(result.Rejected)

	s.log.WithFields(logrus.Fields{
		"scope":    scope,
		"batch_id": result.BatchID,
		"accepted": result.Accepted,
		"rejected": len(result.Rejected),
	}).Info("customer transactions ingested")
	return result, nil
}

// ClearLedger deletes one side of the scope's ledgers. The scope's match
// state goes with it.
func (s *ReconciliationService) ClearLedger(ctx context.Context, scope string, side models.LedgerSide, performedBy string) (int64, error) {
	if err := checkScope(scope); err != nil {
		return 0, err
	}

	release, err := s.locker.Acquire(ctx, scope)
	if err != nil {
		return 0, err
	}
	defer s.release(release, scope)

	removed, err := s.store.ClearLedger(ctx, scope, side, performedBy)
	if err != nil {
		return 0, err
	}
	s.log.WithFields(logrus.Fields{"scope": scope, "side": side, "removed": removed}).Info("ledger cleared")
	return removed, nil
}

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

func clampPageSize(limit int) int {
	switch {
	case limit <= 0:
		return DefaultPageSize
	case limit > MaxPageSize:
		return MaxPageSize
	}
	return limit
}

// PageBankTransactions returns up to limit bank transactions after cursor.
// A limit outside 1..MaxPageSize is clamped.
func (s *ReconciliationService) PageBankTransactions(ctx context.Context, scope, cursor string, limit int) ([]models.BankTransaction, string, bool, error) {
	if err := checkScope(scope); err != nil {
		return nil, "", false, err
	}
	return s.store.PageBankTransactions(ctx, scope, cursor, clampPageSize(limit))
}

func (s *ReconciliationService) PageCustomerTransactions(ctx context.Context, scope, cursor string, limit int, matched *bool) ([]models.CustomerTransaction, string, bool, error) {
	if err := checkScope(scope); err != nil {
		return nil, "", false, err
	}
	return s.store.PageCustomerTransactions(ctx, scope, cursor, clampPageSize(limit), matched)
}
