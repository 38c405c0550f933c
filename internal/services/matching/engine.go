// Package matching pairs bank transactions with customer transactions.
//
// Both ledgers are bucketed by exact signed amount. Inside a bucket, pairs
// whose bank document reference equals a customer document number are
// assigned first; what remains is paired by the distance between the bank
// value date and the customer accounting date. Every phase sorts its
// candidate edges by (date distance, bank id, customer id) and assigns them
// first-fit, so the outcome never depends on input order.
package matching

import (
	"bytes"
	"sort"
	"time"

	"github.com/google/uuid"

	"ledger-reconciliation-backend/internal/models"
)

type Config struct {
	// DateWindowDays drops date-based candidates further apart than this
	// many days. Zero disables the window. Reference matches ignore it.
	DateWindowDays int
}

func DefaultConfig() Config {
	return Config{}
}

type Pair struct {
	Bank     models.BankTransaction
	Customer models.CustomerTransaction
	Method   models.MatchMethod
}

type Result struct {
	Pairs             []Pair
	UnmatchedBank     []models.BankTransaction
	UnmatchedCustomer []models.CustomerTransaction
}

type Matcher struct {
	config Config
}

func NewMatcher(config Config) *Matcher {
	return &Matcher{config: config}
}

type bucket struct {
	bank     []int
	customer []int
}

type edge struct {
	bank     int
	customer int
	distance time.Duration
}

// Match computes the 1:1 assignment between the two ledgers. Empty inputs
// give an empty result.
func (m *Matcher) Match(bankTxns []models.BankTransaction, customerTxns []models.CustomerTransaction) Result {
	buckets := make(map[string]*bucket)
	for i, tx := range bankTxns {
		b := bucketFor(buckets, models.AmountKey(tx.Amount))
		b.bank = append(b.bank, i)
	}
	for i, tx := range customerTxns {
		b := bucketFor(buckets, models.AmountKey(tx.Amount))
		b.customer = append(b.customer, i)
	}

	usedBank := make([]bool, len(bankTxns))
	usedCustomer := make([]bool, len(customerTxns))
	var pairs []Pair

	assign := func(edges []edge, method models.MatchMethod) {
		sortEdges(edges, bankTxns, customerTxns)
		for _, e := range edges {
			if usedBank[e.bank] || usedCustomer[e.customer] {
				continue
			}
			usedBank[e.bank] = true
			usedCustomer[e.customer] = true
			pairs = append(pairs, Pair{Bank: bankTxns[e.bank], Customer: customerTxns[e.customer], Method: method})
		}
	}

	for _, b := range buckets {
		if len(b.bank) == 0 || len(b.customer) == 0 {
			continue
		}
		assign(m.referenceEdges(b, bankTxns, customerTxns), models.MatchByReference)
		assign(m.dateEdges(b, bankTxns, customerTxns, usedBank, usedCustomer), models.MatchByDate)
	}

	sort.Slice(pairs, func(i, j int) bool {
		return lessID(pairs[i].Bank.ID, pairs[j].Bank.ID)
	})

	result := Result{Pairs: pairs}
	for i, tx := range bankTxns {
		if !usedBank[i] {
			result.UnmatchedBank = append(result.UnmatchedBank, tx)
		}
	}
	for i, tx := range customerTxns {
		if !usedCustomer[i] {
			result.UnmatchedCustomer = append(result.UnmatchedCustomer, tx)
		}
	}
	sort.Slice(result.UnmatchedBank, func(i, j int) bool {
		return lessID(result.UnmatchedBank[i].ID, result.UnmatchedBank[j].ID)
	})
	sort.Slice(result.UnmatchedCustomer, func(i, j int) bool {
		return lessID(result.UnmatchedCustomer[i].ID, result.UnmatchedCustomer[j].ID)
	})
	return result
}

func bucketFor(buckets map[string]*bucket, key string) *bucket {
	b, ok := buckets[key]
	if !ok {
		b = &bucket{}
		buckets[key] = b
	}
	return b
}

func (m *Matcher) referenceEdges(b *bucket, bankTxns []models.BankTransaction, customerTxns []models.CustomerTransaction) []edge {
	var edges []edge
	for _, bi := range b.bank {
		ref := models.NormalizeReference(bankTxns[bi].DocumentReference)
		if ref == "" {
			continue
		}
		for _, ci := range b.customer {
			for _, candidate := range customerTxns[ci].References() {
				if candidate == ref {
					edges = append(edges, edge{bank: bi, customer: ci, distance: distance(bankTxns[bi], customerTxns[ci])})
					break
				}
			}
		}
	}
	return edges
}

func (m *Matcher) dateEdges(b *bucket, bankTxns []models.BankTransaction, customerTxns []models.CustomerTransaction, usedBank, usedCustomer []bool) []edge {
	window := time.Duration(m.config.DateWindowDays) * 24 * time.Hour
	var edges []edge
	for _, bi := range b.bank {
		if usedBank[bi] {
			continue
		}
		for _, ci := range b.customer {
			if usedCustomer[ci] {
				continue
			}
			d := distance(bankTxns[bi], customerTxns[ci])
			if window > 0 && d > window {
				continue
			}
			edges = append(edges, edge{bank: bi, customer: ci, distance: d})
		}
	}
	return edges
}

func sortEdges(edges []edge, bankTxns []models.BankTransaction, customerTxns []models.CustomerTransaction) {
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.distance != b.distance {
			return a.distance < b.distance
		}
		if ba, bb := bankTxns[a.bank].ID, bankTxns[b.bank].ID; ba != bb {
			return lessID(ba, bb)
		}
		return lessID(customerTxns[a.customer].ID, customerTxns[b.customer].ID)
	})
}

func distance(bank models.BankTransaction, customer models.CustomerTransaction) time.Duration {
	d := bank.MatchDate().Sub(customer.AccountingDate)
	if d < 0 {
		return -d
	}
	return d
}

func lessID(a, b uuid.UUID) bool {
	return bytes.Compare(a[:], b[:]) < 0
}
