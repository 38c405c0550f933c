// Package applier persists the matcher's pairing as match links on the
// customer transactions.
package applier

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"ledger-reconciliation-backend/internal/apperror"
	"ledger-reconciliation-backend/internal/models"
	"ledger-reconciliation-backend/internal/services/matching"
)

// LinkWriter is the part of the transaction store the applier needs.
type LinkWriter interface {
	SetMatchedBankTransaction(ctx context.Context, scope string, customerID, bankID uuid.UUID, performedBy, reason string) error
	ConcurrencyLimit() int
}

type Config struct {
	MaxRetries      uint64
	InitialInterval time.Duration
}

func DefaultConfig() Config {
	return Config{MaxRetries: 3, InitialInterval: 100 * time.Millisecond}
}

type AppliedResult struct {
	Succeeded int
	Applied   []matching.Pair
	Failed    []models.FailedUpdate
}

type Applier struct {
	store  LinkWriter
	config Config
	log    logrus.FieldLogger
}

func NewApplier(store LinkWriter, config Config, log logrus.FieldLogger) *Applier {
	return &Applier{store: store, config: config, log: log}
}

// Apply writes one link per pair. Updates run concurrently up to the store's
// limit and are independent: a failed update is reported in Failed and never
// affects the others. Nothing is rolled back, including when ctx is
// cancelled part way; pairs not yet issued then fail with the context error.
// Each link is audited under performedBy.
func (a *Applier) Apply(ctx context.Context, scope, performedBy string, pairs []matching.Pair) AppliedResult {
	var (
		mu      sync.Mutex
		applied []matching.Pair
		failed  []models.FailedUpdate
		g       errgroup.Group
	)

	limit := a.store.ConcurrencyLimit()
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	for _, pair := range pairs {
		g.Go(func() error {
			err := a.applyOne(ctx, scope, performedBy, pair)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				a.log.WithFields(logrus.Fields{
					"customer_transaction": pair.Customer.ID,
					"bank_transaction":     pair.Bank.ID,
				}).WithError(err).Warn("match link update failed")
				failed = append(failed, models.FailedUpdate{
					CustomerTransactionID: pair.Customer.ID,
					BankTransactionID:     pair.Bank.ID,
					Error:                 err.Error(),
				})
				return nil
			}
			applied = append(applied, pair)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(applied, func(i, j int) bool {
		return bytes.Compare(applied[i].Bank.ID[:], applied[j].Bank.ID[:]) < 0
	})
	sort.Slice(failed, func(i, j int) bool {
		return bytes.Compare(failed[i].CustomerTransactionID[:], failed[j].CustomerTransactionID[:]) < 0
	})

	return AppliedResult{Succeeded: len(applied), Applied: applied, Failed: failed}
}

func (a *Applier) applyOne(ctx context.Context, scope, performedBy string, pair matching.Pair) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	policy := backoff.NewExponentialBackOff()
	if a.config.InitialInterval > 0 {
		policy.InitialInterval = a.config.InitialInterval
	}

	reason := "matched by " + string(pair.Method)
	op := func() error {
		err := a.store.SetMatchedBankTransaction(ctx, scope, pair.Customer.ID, pair.Bank.ID, performedBy, reason)
		if err != nil && !errors.Is(err, apperror.ErrStoreUnavailable) {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, a.config.MaxRetries), ctx))
}
