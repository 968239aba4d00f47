package ledger

import (
	"strings"

	"github.com/warp/finance-engine/generic"
)

// Filter narrows a ledger read to one year or one (year, month).
// The zero Filter selects the whole ledger.
type Filter struct {
	Year  string
	Month string
}

// ParseFilter validates raw query values. A month without a year is
// rejected.
func ParseFilter(year, month string) (Filter, error) {
	year, month = strings.TrimSpace(year), strings.TrimSpace(month)
	if year == "" {
		if month != "" {
			return Filter{}, generic.NewValidationError("month", "requires year")
		}
		return Filter{}, nil
	}

	y, err := generic.ParseYear(year)
	if err != nil {
		return Filter{}, err
	}
	f := Filter{Year: y}
	if month != "" {
		if f.Month, err = generic.ParseMonth(month); err != nil {
			return Filter{}, err
		}
	}
	return f, nil
}

func (f Filter) IsZero() bool { return f.Year == "" }

// Slice returns a projection of l. Totals are always carried over; only
// the selected year (or year and month) of transactions and the selected
// year of category summaries are kept. The result shares nothing with l.
func Slice(l Ledger, f Filter) Ledger {
	if f.IsZero() {
		return l.Clone()
	}

	out := New(l.UserID)
	out.TotalSpend = l.TotalSpend
	out.TotalIncome = l.TotalIncome

	if months, ok := l.Transactions[f.Year]; ok {
		if f.Month == "" {
			out.Transactions[f.Year] = cloneMonths(months)
		} else if txs, ok := months[f.Month]; ok {
			out.Transactions[f.Year] = MonthTransactions{f.Month: append([]Transaction(nil), txs...)}
		}
	}
	if cats, ok := l.CategorySummaries[f.Year]; ok {
		out.CategorySummaries[f.Year] = cloneYearSummaries(cats)
	}
	return out
}
