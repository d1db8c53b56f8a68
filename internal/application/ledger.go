package application

import (
	"context"
	"time"
)

var transactionRecords = collection[Transaction]{
	name:   "transaction",
	get:    func(d *StoredData) []Transaction { return d.Transactions },
	set:    func(d *StoredData, v []Transaction) { d.Transactions = v },
	id:     func(t *Transaction) *string { return &t.ID },
	stamps: func(t *Transaction) (*time.Time, *time.Time) { return &t.CreatedAt, &t.UpdatedAt },
}

// LedgerSummary aggregates transactions over a date range.
type LedgerSummary struct {
	From       string                    `json:"from,omitempty"`
	To         string                    `json:"to,omitempty"`
	Income     float64                   `json:"income"`
	Expense    float64                   `json:"expense"`
	Balance    float64                   `json:"balance"`
	Count      int                       `json:"count"`
	ByCategory map[string]CategoryTotals `json:"byCategory"`
}

// CategoryTotals splits one category into income and expense.
type CategoryTotals struct {
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
}

// AddTransaction appends a ledger entry. An empty type is treated as income.
func (s *Store) AddTransaction(ctx context.Context, tx Transaction) Transaction {
	created, _ := createRecord(s, ctx, transactionRecords, tx, func(_ *StoredData, t *Transaction) error {
		if t.Type == "" {
			t.Type = TransactionIncome
		}
		return nil
	})
	return created
}

// UpdateTransaction merges patch into the transaction with id.
func (s *Store) UpdateTransaction(ctx context.Context, id string, patch func(*Transaction)) (Transaction, bool) {
	return updateRecord(s, ctx, transactionRecords, id, patch, nil)
}

// DeleteTransaction removes the transaction with id.
func (s *Store) DeleteTransaction(ctx context.Context, id string) bool {
	return deleteRecord(s, ctx, transactionRecords, id)
}

// Transaction returns the transaction with id.
func (s *Store) Transaction(id string) (Transaction, bool) {
	return findRecord(s, transactionRecords, id)
}

// Transactions returns the ledger in insertion order.
func (s *Store) Transactions() []Transaction {
	return listRecords(s, transactionRecords)
}

// LedgerSummary summarises the stored ledger between from and to.
func (s *Store) LedgerSummary(from, to string) LedgerSummary {
	return SummarizeLedger(s.Transactions(), from, to)
}

// SummarizeLedger totals transactions dated within [from, to]. Empty bounds
// are open. Dates compare lexically as "YYYY-MM-DD".
func SummarizeLedger(transactions []Transaction, from, to string) LedgerSummary {
	summary := LedgerSummary{
		From:       from,
		To:         to,
		ByCategory: make(map[string]CategoryTotals),
	}
	for _, tx := range transactions {
		if from != "" && tx.Date < from {
			continue
		}
		if to != "" && tx.Date > to {
			continue
		}
		totals := summary.ByCategory[tx.Category]
		switch tx.Type {
		case TransactionExpense:
			summary.Expense += tx.Amount
			totals.Expense += tx.Amount
		default:
			summary.Income += tx.Amount
			totals.Income += tx.Amount
		}
		summary.ByCategory[tx.Category] = totals
		summary.Count++
	}
	summary.Balance = summary.Income - summary.Expense
	return summary
}
