package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ledger-reconciliation-backend/internal/apperror"
	"ledger-reconciliation-backend/internal/config"
	"ledger-reconciliation-backend/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, config.Migrate(db))
	return NewStore(db, 4)
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return NewStore(db, 4), mock
}

func bankTxn(scope, amount string, date time.Time) models.BankTransaction {
	tx := models.BankTransaction{
		ID:            uuid.New(),
		Scope:         scope,
		OperationDate: date,
		Credit:        decimal.NewNullDecimal(decimal.RequireFromString(amount)),
	}
	tx.DeriveAmount()
	return tx
}

func customerTxn(scope, amount string, taxes ...string) models.CustomerTransaction {
	tx := models.CustomerTransaction{
		ID:             uuid.New(),
		Scope:          scope,
		AccountingDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Debit:          decimal.NewNullDecimal(decimal.RequireFromString(amount)),
	}
	for _, amt := range taxes {
		tx.TaxRows = append(tx.TaxRows, models.CustomerTaxRow{
			ID:                    uuid.New(),
			CustomerTransactionID: tx.ID,
			TaxType:               "VAT",
			TaxAmount:             decimal.RequireFromString(amt),
		})
	}
	tx.DeriveAmount()
	return tx
}

func TestStore_CreateAndListScoped(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.CreateBankTransactions(ctx, []models.BankTransaction{
		bankTxn("a", "10", day), bankTxn("a", "20", day), bankTxn("b", "30", day),
	}))
	require.NoError(t, s.CreateCustomerTransactions(ctx, []models.CustomerTransaction{
		customerTxn("a", "10", "1", "0.5"), customerTxn("b", "30"),
	}))

	bank, err := s.ListBankTransactions(ctx, "a")
	require.NoError(t, err)
	require.Len(t, bank, 2)
	assert.Less(t, bank[0].ID.String(), bank[1].ID.String())

	customer, err := s.ListCustomerTransactions(ctx, "a", nil)
	require.NoError(t, err)
	require.Len(t, customer, 1)
	require.Len(t, customer[0].TaxRows, 2)
	total, ok := customer[0].TotalTax()
	assert.True(t, ok)
	assert.True(t, total.Equal(decimal.RequireFromString("1.5")))
}

func TestStore_SetMatchedBankTransaction(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c := customerTxn("a", "10")
	require.NoError(t, s.CreateCustomerTransactions(ctx, []models.CustomerTransaction{c}))
	bankID := uuid.New()

	require.NoError(t, s.SetMatchedBankTransaction(ctx, "a", c.ID, bankID, "alice", "matched by reference"))

	matched := true
	got, err := s.ListCustomerTransactions(ctx, "a", &matched)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, bankID, *got[0].MatchedBankTransaction)

	unmatched := false
	got, err = s.ListCustomerTransactions(ctx, "a", &unmatched)
	require.NoError(t, err)
	assert.Empty(t, got)

	err = s.SetMatchedBankTransaction(ctx, "other-scope", c.ID, bankID, "alice", "")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	err = s.SetMatchedBankTransaction(ctx, "a", uuid.New(), bankID, "alice", "")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestStore_SetMatchedBankTransactionAuditsLink(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c := customerTxn("a", "10")
	require.NoError(t, s.CreateCustomerTransactions(ctx, []models.CustomerTransaction{c}))
	first, second := uuid.New(), uuid.New()

	require.NoError(t, s.SetMatchedBankTransaction(ctx, "a", c.ID, first, "alice", "matched by reference"))
	require.NoError(t, s.SetMatchedBankTransaction(ctx, "a", c.ID, second, "bob", "matched by date"))

	logs, err := s.ListAudit(ctx, "a")
	require.NoError(t, err)
	require.Len(t, logs, 2)

	byPerformer := map[string]models.MatchAuditLog{}
	for _, l := range logs {
		assert.Equal(t, models.AuditLink, l.Action)
		assert.EqualValues(t, 1, l.AffectedRows)
		require.NotNil(t, l.CustomerTransactionID)
		assert.Equal(t, c.ID, *l.CustomerTransactionID)
		byPerformer[l.PerformedBy] = l
	}

	assert.Nil(t, byPerformer["alice"].PreviousBankTransaction)
	assert.Equal(t, first, *byPerformer["alice"].NewBankTransaction)
	assert.Equal(t, "matched by reference", byPerformer["alice"].Reason)

	require.NotNil(t, byPerformer["bob"].PreviousBankTransaction)
	assert.Equal(t, first, *byPerformer["bob"].PreviousBankTransaction)
	assert.Equal(t, second, *byPerformer["bob"].NewBankTransaction)

	// A failed link leaves no audit row behind.
	_ = s.SetMatchedBankTransaction(ctx, "a", uuid.New(), first, "carol", "")
	logs, err = s.ListAudit(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}

func TestStore_CancelledContextIsNotStoreUnavailable(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.ListBankTransactions(ctx, "a")

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, apperror.ErrStoreUnavailable)
	assert.Equal(t, apperror.ErrCodeCancelled, apperror.FromError(err).Code)
}

func TestStoreError_Classification(t *testing.T) {
	assert.NoError(t, storeError("op", nil))
	assert.ErrorIs(t, storeError("op", gorm.ErrRecordNotFound), apperror.ErrNotFound)
	assert.ErrorIs(t, storeError("op", context.DeadlineExceeded), context.DeadlineExceeded)
	assert.NotErrorIs(t, storeError("op", context.DeadlineExceeded), apperror.ErrStoreUnavailable)
	assert.ErrorIs(t, storeError("op", errors.New("connection refused")), apperror.ErrStoreUnavailable)
	assert.Equal(t, apperror.ErrCodeConflict, apperror.FromError(storeError("op", gorm.ErrDuplicatedKey)).Code)
}

func TestStore_ReplaceComparisons(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	row := func(scope string, status models.ComparisonStatus) models.ComparisonResult {
		bankID, customerID := uuid.New(), uuid.New()
		return models.ComparisonResult{
			ID:                    models.ComparisonID(scope, bankID, customerID),
			Scope:                 scope,
			BankTransactionID:     bankID,
			CustomerTransactionID: customerID,
			Status:                status,
			MatchMethod:           models.MatchByDate,
		}
	}

	require.NoError(t, s.ReplaceComparisons(ctx, "a", []models.ComparisonResult{row("a", models.StatusMatch), row("a", models.StatusMissing)}))
	require.NoError(t, s.ReplaceComparisons(ctx, "b", []models.ComparisonResult{row("b", models.StatusMatch)}))
	require.NoError(t, s.ReplaceComparisons(ctx, "a", []models.ComparisonResult{row("a", models.StatusMismatch)}))

	all, err := s.ListComparisons(ctx, "a", "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, models.StatusMismatch, all[0].Status)

	matches, err := s.ListComparisons(ctx, "b", models.StatusMatch)
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	require.NoError(t, s.ReplaceComparisons(ctx, "a", nil))
	count, err := s.CountComparisons(ctx, "a")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStore_PageBankTransactions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	var txns []models.BankTransaction
	for i := 0; i < 5; i++ {
		txns = append(txns, bankTxn("a", "1", day))
	}
	require.NoError(t, s.CreateBankTransactions(ctx, txns))

	page, next, more, err := s.PageBankTransactions(ctx, "a", "", 3)
	require.NoError(t, err)
	assert.Len(t, page, 3)
	assert.True(t, more)
	assert.Equal(t, page[2].ID.String(), next)

	page, next, more, err = s.PageBankTransactions(ctx, "a", next, 3)
	require.NoError(t, err)
	assert.Len(t, page, 2)
	assert.False(t, more)
	assert.Empty(t, next)

	page, _, more, err = s.PageBankTransactions(ctx, "a", "", 0)
	require.NoError(t, err)
	assert.Len(t, page, 1)
	assert.True(t, more)

	require.NoError(t, s.CreateCustomerTransactions(ctx, []models.CustomerTransaction{customerTxn("a", "1"), customerTxn("a", "2")}))
	customers, _, more, err := s.PageCustomerTransactions(ctx, "a", "", 0, nil)
	require.NoError(t, err)
	assert.Len(t, customers, 1)
	assert.True(t, more)
}

func TestStore_CreateDuplicateIsConflict(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	tx := bankTxn("a", "1", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, s.CreateBankTransactions(ctx, []models.BankTransaction{tx}))

	err := s.CreateBankTransactions(ctx, []models.BankTransaction{tx})
	assert.Equal(t, apperror.ErrCodeConflict, apperror.FromError(err).Code)
}

func TestStore_RunLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	run, err := s.CreateRun(ctx, "a", "alice")
	require.NoError(t, err)
	assert.Equal(t, models.RunProcessing, run.Status)

	run.Status = models.RunCompleted
	run.MatchedCount = 7
	require.NoError(t, s.FinishRun(ctx, run))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunCompleted, got.Status)
	assert.Equal(t, 7, got.MatchedCount)
	assert.NotNil(t, got.CompletedAt)

	runs, err := s.ListRuns(ctx, "a", 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	_, err = s.GetRun(ctx, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestStore_ResetScopeRollsBackOnFailure(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "comparison_results"`)).
		WithArgs("a").
		WillReturnResult(sqlmock.NewResult(0, 12))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "customer_transactions" SET "matched_bank_transaction"`)).
		WillReturnError(errors.New("connection reset by peer"))
	mock.ExpectRollback()

	_, err := s.ResetScope(context.Background(), "a", "alice", "test")

	assert.ErrorIs(t, err, apperror.ErrStoreUnavailable)
	assert.Contains(t, err.Error(), "connection reset by peer")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ResetScopeCommits(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "comparison_results"`)).
		WithArgs("a").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "customer_transactions" SET "matched_bank_transaction"`)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "match_audit_logs"`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	result, err := s.ResetScope(context.Background(), "a", "alice", "test")

	require.NoError(t, err)
	assert.Equal(t, ResetResult{ComparisonsDeleted: 2, LinksCleared: 2}, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SetMatchedBankTransactionUnavailable(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM "customer_transactions"`)).
		WillReturnError(errors.New("dial tcp: connection refused"))
	mock.ExpectRollback()

	err := s.SetMatchedBankTransaction(context.Background(), "a", uuid.New(), uuid.New(), "alice", "")

	assert.ErrorIs(t, err, apperror.ErrStoreUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ClearLedgerRejectsUnknownSide(t *testing.T) {
	s, mock := newMockStore(t)

	_, err := s.ClearLedger(context.Background(), "a", models.LedgerSide("both"), "alice")

	assert.Equal(t, apperror.ErrCodeInvalidInput, apperror.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ConcurrencyLimit(t *testing.T) {
	assert.Equal(t, 1, NewStore(nil, 0).ConcurrencyLimit())
	assert.Equal(t, 6, NewStore(nil, 6).ConcurrencyLimit())
}
