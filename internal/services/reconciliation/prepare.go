package reconciliation

import (
	"bytes"
	"sort"

	"github.com/google/uuid"

	"ledger-reconciliation-backend/internal/models"
)

// prepare validates the fetched ledgers and derives their signed amounts.
// Records that fail validation, and every copy of an id that appears more
// than once on a side, are left out of matching and reported instead.
func prepare(bankTxns []models.BankTransaction, customerTxns []models.CustomerTransaction) ([]models.BankTransaction, []models.CustomerTransaction, []models.RecordError) {
	var errs []models.RecordError

	bankCount := make(map[uuid.UUID]int, len(bankTxns))
	for _, tx := range bankTxns {
		bankCount[tx.ID]++
	}
	validBank := make([]models.BankTransaction, 0, len(bankTxns))
	for _, tx := range bankTxns {
		if bankCount[tx.ID] > 1 {
			errs = append(errs, models.RecordError{Side: models.BankSide, RecordID: tx.ID, Reason: "duplicate transaction id"})
			continue
		}
		if err := tx.Validate(); err != nil {
			errs = append(errs, models.RecordError{Side: models.BankSide, RecordID: tx.ID, Reason: err.Error()})
			continue
		}
		tx.DeriveAmount()
		validBank = append(validBank, tx)
	}

	customerCount := make(map[uuid.UUID]int, len(customerTxns))
	for _, tx := range customerTxns {
		customerCount[tx.ID]++
	}
	validCustomer := make([]models.CustomerTransaction, 0, len(customerTxns))
	for _, tx := range customerTxns {
		if customerCount[tx.ID] > 1 {
			errs = append(errs, models.RecordError{Side: models.CustomerSide, RecordID: tx.ID, Reason: "duplicate transaction id"})
			continue
		}
		if err := tx.Validate(); err != nil {
			errs = append(errs, models.RecordError{Side: models.CustomerSide, RecordID: tx.ID, Reason: err.Error()})
			continue
		}
		tx.DeriveAmount()
		validCustomer = append(validCustomer, tx)
	}

	sortRecordErrors(errs)
	return validBank, validCustomer, errs
}

func sortRecordErrors(errs []models.RecordError) {
	sort.SliceStable(errs, func(i, j int) bool {
		if errs[i].Side != errs[j].Side {
			return errs[i].Side < errs[j].Side
		}
		return bytes.Compare(errs[i].RecordID[:], errs[j].RecordID[:]) < 0
	})
}
