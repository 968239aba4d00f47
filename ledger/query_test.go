package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/finance-engine/generic"
	"github.com/warp/finance-engine/ledger"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name      string
		year      string
		month     string
		want      ledger.Filter
		wantField string
	}{
		{name: "none", want: ledger.Filter{}},
		{name: "year", year: "2025", want: ledger.Filter{Year: "2025"}},
		{name: "year and month", year: "2025", month: "3", want: ledger.Filter{Year: "2025", Month: "03"}},
		{name: "padded month", year: "2025", month: "11", want: ledger.Filter{Year: "2025", Month: "11"}},
		{name: "month without year", month: "03", wantField: "month"},
		{name: "short year", year: "25", wantField: "year"},
		{name: "bad month", year: "2025", month: "13", wantField: "month"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ledger.ParseFilter(tt.year, tt.month)
			if tt.wantField != "" {
				var verr *generic.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tt.wantField, verr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSlice_DoesNotAliasSource(t *testing.T) {
	agg := newTestAggregator()
	l := ledger.New("user-1")
	_, err := agg.Insert(&l, expense("x", "Food", 1, "2025-02-01"))
	require.NoError(t, err)

	s := ledger.Slice(l, ledger.Filter{Year: "2025"})
	s.Transactions["2025"]["02"][0].Title = "changed"
	s.CategorySummaries["2025"]["Food"].MonthlyBreakdown["02"].TransactionCount = 99

	assert.Equal(t, "x", l.Transactions["2025"]["02"][0].Title)
	assert.Equal(t, 1, l.CategorySummaries["2025"]["Food"].MonthlyBreakdown["02"].TransactionCount)
}

func TestSlice_UnknownYearKeepsTotals(t *testing.T) {
	agg := newTestAggregator()
	l := ledger.New("user-1")
	_, err := agg.Insert(&l, expense("x", "Food", 8, "2025-02-01"))
	require.NoError(t, err)

	s := ledger.Slice(l, ledger.Filter{Year: "1999"})

	assertMoney(t, "8", s.TotalSpend)
	assert.Empty(t, s.Transactions)
	assert.Empty(t, s.CategorySummaries)
}
