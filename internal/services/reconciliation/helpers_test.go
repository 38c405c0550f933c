package reconciliation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ledger-reconciliation-backend/internal/config"
	"ledger-reconciliation-backend/internal/events"
	"ledger-reconciliation-backend/internal/models"
	"ledger-reconciliation-backend/internal/repository"
	"ledger-reconciliation-backend/internal/services/applier"
)

const scope = "agency-1"

func newTestDB(t *testing.T) *gorm.DB {
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
	return db
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.ReconciliationCompletedEvent
	err    error
}

func (p *recordingPublisher) PublishReconciliationCompleted(_ context.Context, e events.ReconciliationCompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func newService(t *testing.T, store Store, publisher events.Publisher) *ReconciliationService {
	t.Helper()
	log, _ := test.NewNullLogger()
	return NewReconciliationService(store, Options{
		Apply:     applier.Config{MaxRetries: 1, InitialInterval: time.Millisecond},
		Publisher: publisher,
		Logger:    log,
	})
}

func newStore(t *testing.T) *repository.Store {
	return repository.NewStore(newTestDB(t), 4)
}

func id(n int) uuid.UUID {
	return uuid.MustParse(fmt.Sprintf("00000000-0000-0000-0000-%012d", n))
}

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func money(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func credit(n int, amount, ref string, date time.Time, reportedTax string) models.BankTransaction {
	tx := models.BankTransaction{
		ID:                id(n),
		OperationDate:     date,
		ValueDate:         &date,
		Credit:            money(amount),
		DocumentReference: ref,
	}
	if reportedTax != "" {
		tx.ReportedTax = money(reportedTax)
	}
	return tx
}

func debit(n int, amount string, date time.Time) models.BankTransaction {
	return models.BankTransaction{ID: id(n), OperationDate: date, Debit: money(amount)}
}

func receipt(n int, amount, ref string, date time.Time, taxes ...string) models.CustomerTransaction {
	tx := models.CustomerTransaction{
		ID:                     id(n),
		AccountNumber:          "512000",
		AccountingDate:         date,
		Debit:                  money(amount),
		ExternalDocumentNumber: ref,
	}
	for _, amount := range taxes {
		tx.TaxRows = append(tx.TaxRows, models.CustomerTaxRow{TaxType: "VAT", TaxAmount: decimal.RequireFromString(amount)})
	}
	return tx
}

// seedLedgers loads a scope where three pairs match, one of each comparison
// status, and each side keeps one unmatched entry.
// Bank ids are base+1..base+4 and customer ids base+101..base+104.
func seedLedgers(t *testing.T, svc *ReconciliationService, scope string, base int) {
	t.Helper()
	ctx := context.Background()

	bank := []models.BankTransaction{
		credit(base+1, "150.00", "INV-42", day(10), "15.00"),
		credit(base+2, "80", "", day(5), "14"),
		debit(base+3, "20", day(3)),
		credit(base+4, "999", "", day(1), ""),
	}
	refund := models.CustomerTransaction{ID: id(base + 104), AccountingDate: day(3), Credit: money("20")}
	customer := []models.CustomerTransaction{
		receipt(base+101, "150.00", "INV-42", day(9), "12.50", "2.50"),
		receipt(base+102, "80.00", "", day(6), "10", "5"),
		receipt(base+103, "150", "", day(10)),
		refund,
	}

	res, err := svc.IngestBankTransactions(ctx, scope, bank)
	require.NoError(t, err)
	require.Empty(t, res.Rejected)
	res, err = svc.IngestCustomerTransactions(ctx, scope, customer)
	require.NoError(t, err)
	require.Empty(t, res.Rejected)
}
