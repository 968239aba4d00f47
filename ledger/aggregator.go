/*
aggregator.go - Invariant-preserving ledger mutations

PURPOSE:
  The Aggregator owns the arithmetic that keeps a Ledger consistent.
  Every mutation touches four places at once:
    1. the transaction bucket transactions[year][month]
    2. totalSpend or totalIncome (by type)
    3. categorySummaries[year][category].yearlySpend
    4. categorySummaries[year][category].monthlyBreakdown[month]

INVARIANTS (hold after every successful call):
  - totalSpend  = sum of amount over expense transactions
  - totalIncome = sum of amount over income transactions
  - yearlySpend = sum of amount over (year, category), any type
  - monthlySpend / transactionCount = sum / count over (year, category, month)
  - each transaction lives in exactly one bucket, given by its date
  - ids are unique across the whole ledger

UPDATE = REVERSE + REAPPLY:
  Update never patches counters field by field. It subtracts the stored
  record's whole contribution, then adds the new record's contribution.
  That stays correct when amount, type, category and date all change at
  once, including moves between buckets.

  Reversal is best effort: a summary node that has gone missing is skipped.
  Forward application always creates the nodes it needs.

PRUNING:
  Month cells whose transactionCount drops to zero are removed, as are
  categories, years and buckets left empty. Inserting and then deleting a
  transaction therefore restores the previous ledger exactly.

STORED RECORD WINS:
  Delete and Update locate the record through the caller's id and date,
  but reverse the amount, type and category of the stored record. The
  caller's copies of those fields are not trusted.

The Aggregator is pure: it mutates the Ledger it is given and performs
no I/O. Service wraps it with loading, conditional saving and retries.

SEE ALSO:
  - types.go: Ledger, TransactionIndex, SummaryIndex
  - service.go: Persistence and optimistic concurrency
*/
package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/warp/finance-engine/generic"
)

// =============================================================================
// INPUTS
// =============================================================================

// NewTransaction is the payload of an insert.
type NewTransaction struct {
	Title       string
	Category    string
	Description string
	Amount      float64
	Type        TransactionType
	Date        string
}

// TransactionUpdate is the payload of an update. Date locates the stored
// record; NewDate, when set, moves it.
type TransactionUpdate struct {
	ID          string
	Date        string
	NewDate     string
	Title       string
	Category    string
	Description string
	Amount      float64
	Type        TransactionType
}

// TransactionRef identifies a transaction to delete. Only ID and Date are
// used to locate it; Category, Amount and Type are informational.
type TransactionRef struct {
	ID       string
	Date     string
	Category string
	Amount   float64
	Type     TransactionType
}

// fields is the validated, typed form of the mutable transaction fields.
type fields struct {
	title       string
	category    string
	description string
	amount      generic.Money
	txType      TransactionType
}

func validateFields(title, category, description string, amount float64, txType TransactionType) (fields, error) {
	f := fields{
		title:       strings.TrimSpace(title),
		category:    strings.TrimSpace(category),
		description: strings.TrimSpace(description),
		txType:      TransactionType(strings.ToLower(strings.TrimSpace(string(txType)))),
	}
	if f.title == "" {
		return f, generic.NewValidationError("title", "is required")
	}
	if f.category == "" {
		return f, generic.NewValidationError("category", "is required")
	}
	if !f.txType.Valid() {
		return f, generic.NewValidationError("type", "must be %q or %q, got %q", Expense, Income, txType)
	}
	m, err := generic.ParsePositiveAmount("amount", amount)
	if err != nil {
		return f, err
	}
	f.amount = m
	return f, nil
}

// =============================================================================
// AGGREGATOR
// =============================================================================

type Aggregator struct {
	Now   func() time.Time
	NewID func() string
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		Now:   func() time.Time { return time.Now().UTC() },
		NewID: uuid.NewString,
	}
}

// Insert validates in, appends a new transaction and applies its
// contribution to totals and summaries.
func (a *Aggregator) Insert(l *Ledger, in NewTransaction) (Transaction, error) {
	f, err := validateFields(in.Title, in.Category, in.Description, in.Amount, in.Type)
	if err != nil {
		return Transaction{}, err
	}
	date, err := generic.ParseDate("date", in.Date)
	if err != nil {
		return Transaction{}, err
	}
	l.normalize()

	now := a.Now()
	tx := Transaction{
		ID:          a.uniqueID(l),
		Title:       f.title,
		Category:    f.category,
		Description: f.description,
		Amount:      f.amount,
		Type:        f.txType,
		Date:        date,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	l.Transactions.append(tx.Bucket(), tx)
	a.apply(l, tx, now)
	return tx, nil
}

// Delete removes the transaction identified by ref and reverses its
// contribution. It returns the removed record.
func (a *Aggregator) Delete(l *Ledger, ref TransactionRef) (Transaction, error) {
	id := strings.TrimSpace(ref.ID)
	if id == "" {
		return Transaction{}, generic.NewValidationError("id", "is required")
	}
	date, err := generic.ParseDate("date", ref.Date)
	if err != nil {
		return Transaction{}, err
	}
	l.normalize()

	b := generic.BucketOf(date)
	i, ok := l.Transactions.indexOf(b, id)
	if !ok {
		return Transaction{}, &generic.NotFoundError{Resource: "transaction", Key: id + " in " + b.String()}
	}

	old := l.Transactions.bucket(b)[i]
	l.Transactions.remove(b, i)
	a.reverse(l, old, a.Now())
	return old, nil
}

// Update replaces the transaction identified by in.ID (found in the bucket
// of in.Date) with the new field set. moved reports a bucket change.
func (a *Aggregator) Update(l *Ledger, in TransactionUpdate) (tx Transaction, moved bool, err error) {
	id := strings.TrimSpace(in.ID)
	if id == "" {
		return Transaction{}, false, generic.NewValidationError("id", "is required")
	}
	oldDate, err := generic.ParseDate("date", in.Date)
	if err != nil {
		return Transaction{}, false, err
	}
	f, err := validateFields(in.Title, in.Category, in.Description, in.Amount, in.Type)
	if err != nil {
		return Transaction{}, false, err
	}
	newDate := oldDate
	if strings.TrimSpace(in.NewDate) != "" {
		if newDate, err = generic.ParseDate("newDate", in.NewDate); err != nil {
			return Transaction{}, false, err
		}
	}
	l.normalize()

	oldBucket := generic.BucketOf(oldDate)
	i, ok := l.Transactions.indexOf(oldBucket, id)
	if !ok {
		return Transaction{}, false, &generic.NotFoundError{Resource: "transaction", Key: id + " in " + oldBucket.String()}
	}
	old := l.Transactions.bucket(oldBucket)[i]
	now := a.Now()

	// 1. Reverse the stored contribution.
	a.reverse(l, old, now)

	tx = old
	tx.Title = f.title
	tx.Category = f.category
	tx.Description = f.description
	tx.Amount = f.amount
	tx.Type = f.txType
	tx.Date = newDate
	tx.UpdatedAt = now
	tx.Version = old.Version + 1

	// 2-3. Move or replace in place.
	newBucket := tx.Bucket()
	moved = newBucket != oldBucket
	if moved {
		l.Transactions.remove(oldBucket, i)
		l.Transactions.append(newBucket, tx)
	} else {
		l.Transactions[oldBucket.Year][oldBucket.Month][i] = tx
	}

	// 4. Apply the new contribution.
	a.apply(l, tx, now)
	return tx, moved, nil
}

// =============================================================================
// CONTRIBUTIONS
// =============================================================================

func (a *Aggregator) apply(l *Ledger, tx Transaction, now time.Time) {
	switch tx.Type {
	case Expense:
		l.TotalSpend = l.TotalSpend.Add(tx.Amount)
	case Income:
		l.TotalIncome = l.TotalIncome.Add(tx.Amount)
	}

	cs, ms := l.CategorySummaries.ensure(tx.Bucket(), tx.Category)
	cs.YearlySpend = cs.YearlySpend.Add(tx.Amount)
	ms.MonthlySpend = ms.MonthlySpend.Add(tx.Amount)
	ms.TransactionCount++
	ms.LastUpdated = now
}

func (a *Aggregator) reverse(l *Ledger, tx Transaction, now time.Time) {
	switch tx.Type {
	case Expense:
		l.TotalSpend = l.TotalSpend.Sub(tx.Amount)
	case Income:
		l.TotalIncome = l.TotalIncome.Sub(tx.Amount)
	}

	b := tx.Bucket()
	cs, ms := l.CategorySummaries.lookup(b, tx.Category)
	if cs == nil {
		return
	}
	cs.YearlySpend = cs.YearlySpend.Sub(tx.Amount)
	if ms != nil {
		ms.MonthlySpend = ms.MonthlySpend.Sub(tx.Amount)
		ms.TransactionCount--
		ms.LastUpdated = now
	}
	l.CategorySummaries.prune(b, tx.Category)
}

func (a *Aggregator) uniqueID(l *Ledger) string {
	for {
		id := a.NewID()
		if !l.Transactions.contains(id) {
			return id
		}
	}
}
