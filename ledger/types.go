// Package ledger implements the per-user transaction ledger: a nested
// year → month → transactions store plus derived per-category summaries,
// kept arithmetically consistent across insert, update and delete.
package ledger

import (
	"sort"
	"time"

	"github.com/warp/finance-engine/generic"
)

// Collection is the document collection ledgers are stored in.
const Collection = "transactions"

// =============================================================================
// TRANSACTION
// =============================================================================

type TransactionType string

const (
	Expense TransactionType = "expense"
	Income  TransactionType = "income"
)

func (t TransactionType) Valid() bool { return t == Expense || t == Income }

type Transaction struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Amount      generic.Money   `json:"amount"`
	Type        TransactionType `json:"type"`
	Date        time.Time       `json:"date"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	Version     int             `json:"version"`
}

// Bucket returns the (year, month) partition of the transaction.
func (tx Transaction) Bucket() generic.Bucket { return generic.BucketOf(tx.Date) }

// =============================================================================
// TRANSACTION INDEX - year → month → ordered transactions
// =============================================================================

// MonthTransactions maps a two-digit month to its transactions in
// insertion order.
type MonthTransactions map[string][]Transaction

// TransactionIndex maps a four-digit year to its months.
type TransactionIndex map[string]MonthTransactions

// bucket returns the transactions of b, nil if the bucket does not exist.
func (ix TransactionIndex) bucket(b generic.Bucket) []Transaction {
	months, ok := ix[b.Year]
	if !ok {
		return nil
	}
	return months[b.Month]
}

func (ix TransactionIndex) append(b generic.Bucket, tx Transaction) {
	months, ok := ix[b.Year]
	if !ok {
		months = make(MonthTransactions)
		ix[b.Year] = months
	}
	months[b.Month] = append(months[b.Month], tx)
}

// remove drops the record at position i of bucket b and prunes empty
// months and years.
func (ix TransactionIndex) remove(b generic.Bucket, i int) {
	months := ix[b.Year]
	txs := months[b.Month]
	txs = append(txs[:i:i], txs[i+1:]...)
	if len(txs) == 0 {
		delete(months, b.Month)
		if len(months) == 0 {
			delete(ix, b.Year)
		}
		return
	}
	months[b.Month] = txs
}

// indexOf locates id inside bucket b.
func (ix TransactionIndex) indexOf(b generic.Bucket, id string) (int, bool) {
	for i, tx := range ix.bucket(b) {
		if tx.ID == id {
			return i, true
		}
	}
	return -1, false
}

// contains reports whether id exists anywhere in the index.
func (ix TransactionIndex) contains(id string) bool {
	for _, months := range ix {
		for _, txs := range months {
			for _, tx := range txs {
				if tx.ID == id {
					return true
				}
			}
		}
	}
	return false
}

// Each visits every transaction, years and months in ascending order and
// insertion order within a month.
func (ix TransactionIndex) Each(fn func(b generic.Bucket, tx Transaction)) {
	for _, year := range sortedKeys(ix) {
		months := ix[year]
		for _, month := range sortedKeys(months) {
			for _, tx := range months[month] {
				fn(generic.Bucket{Year: year, Month: month}, tx)
			}
		}
	}
}

// =============================================================================
// CATEGORY SUMMARIES - year → category → month rollups
// =============================================================================

type MonthlySummary struct {
	MonthlySpend     generic.Money `json:"monthlySpend"`
	TransactionCount int           `json:"transactionCount"`
	LastUpdated      time.Time     `json:"lastUpdated"`
}

// CategorySummary accumulates amounts of both types. yearlySpend therefore
// mixes expense and income for a category.
type CategorySummary struct {
	YearlySpend      generic.Money              `json:"yearlySpend"`
	MonthlyBreakdown map[string]*MonthlySummary `json:"monthlyBreakdown"`
}

// YearSummaries maps a category name to its summary.
type YearSummaries map[string]*CategorySummary

// SummaryIndex maps a four-digit year to its category summaries.
type SummaryIndex map[string]YearSummaries

// ensure returns the (year, category, month) cell, creating any missing
// nodes with zero accumulators.
func (ix SummaryIndex) ensure(b generic.Bucket, category string) (*CategorySummary, *MonthlySummary) {
	cats, ok := ix[b.Year]
	if !ok {
		cats = make(YearSummaries)
		ix[b.Year] = cats
	}
	cs, ok := cats[category]
	if !ok {
		cs = &CategorySummary{YearlySpend: generic.Zero, MonthlyBreakdown: make(map[string]*MonthlySummary)}
		cats[category] = cs
	}
	ms, ok := cs.MonthlyBreakdown[b.Month]
	if !ok {
		ms = &MonthlySummary{MonthlySpend: generic.Zero}
		cs.MonthlyBreakdown[b.Month] = ms
	}
	return cs, ms
}

// lookup returns the existing cell, or nils if any node is missing.
func (ix SummaryIndex) lookup(b generic.Bucket, category string) (*CategorySummary, *MonthlySummary) {
	cs, ok := ix[b.Year][category]
	if !ok {
		return nil, nil
	}
	ms, ok := cs.MonthlyBreakdown[b.Month]
	if !ok {
		return cs, nil
	}
	return cs, ms
}

// prune removes the month cell once it holds no transactions, then any
// category and year left empty.
func (ix SummaryIndex) prune(b generic.Bucket, category string) {
	cats := ix[b.Year]
	cs, ok := cats[category]
	if !ok {
		return
	}
	if ms, ok := cs.MonthlyBreakdown[b.Month]; ok && ms.TransactionCount <= 0 {
		delete(cs.MonthlyBreakdown, b.Month)
	}
	if len(cs.MonthlyBreakdown) == 0 {
		delete(cats, category)
	}
	if len(cats) == 0 {
		delete(ix, b.Year)
	}
}

// =============================================================================
// LEDGER
// =============================================================================

// Ledger is the per-user aggregate. It is stored as a single document so
// that all invariant-bearing fields change together in one write.
type Ledger struct {
	UserID            generic.UserID   `json:"userId"`
	TotalSpend        generic.Money    `json:"totalSpend"`
	TotalIncome       generic.Money    `json:"totalIncome"`
	Transactions      TransactionIndex `json:"transactions"`
	CategorySummaries SummaryIndex     `json:"categorySummaries"`
}

// New returns an empty ledger for userID.
func New(userID generic.UserID) Ledger {
	return Ledger{
		UserID:            userID,
		TotalSpend:        generic.Zero,
		TotalIncome:       generic.Zero,
		Transactions:      make(TransactionIndex),
		CategorySummaries: make(SummaryIndex),
	}
}

// normalize replaces nil maps left by decoding an older or hand-written
// document.
func (l *Ledger) normalize() {
	if l.Transactions == nil {
		l.Transactions = make(TransactionIndex)
	}
	if l.CategorySummaries == nil {
		l.CategorySummaries = make(SummaryIndex)
	}
}

// Find locates a transaction by id anywhere in the ledger.
func (l Ledger) Find(id string) (Transaction, generic.Bucket, bool) {
	for year, months := range l.Transactions {
		for month, txs := range months {
			for _, tx := range txs {
				if tx.ID == id {
					return tx, generic.Bucket{Year: year, Month: month}, true
				}
			}
		}
	}
	return Transaction{}, generic.Bucket{}, false
}

// Count returns the number of transactions in the ledger.
func (l Ledger) Count() int {
	n := 0
	for _, months := range l.Transactions {
		for _, txs := range months {
			n += len(txs)
		}
	}
	return n
}

// Clone returns a deep copy of the ledger.
func (l Ledger) Clone() Ledger {
	out := Ledger{
		UserID:            l.UserID,
		TotalSpend:        l.TotalSpend,
		TotalIncome:       l.TotalIncome,
		Transactions:      make(TransactionIndex, len(l.Transactions)),
		CategorySummaries: make(SummaryIndex, len(l.CategorySummaries)),
	}
	for year, months := range l.Transactions {
		out.Transactions[year] = cloneMonths(months)
	}
	for year, cats := range l.CategorySummaries {
		out.CategorySummaries[year] = cloneYearSummaries(cats)
	}
	return out
}

func cloneMonths(months MonthTransactions) MonthTransactions {
	out := make(MonthTransactions, len(months))
	for month, txs := range months {
		out[month] = append([]Transaction(nil), txs...)
	}
	return out
}

func cloneYearSummaries(cats YearSummaries) YearSummaries {
	out := make(YearSummaries, len(cats))
	for name, cs := range cats {
		c := &CategorySummary{
			YearlySpend:      cs.YearlySpend,
			MonthlyBreakdown: make(map[string]*MonthlySummary, len(cs.MonthlyBreakdown)),
		}
		for month, ms := range cs.MonthlyBreakdown {
			m := *ms
			c.MonthlyBreakdown[month] = &m
		}
		out[name] = c
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
