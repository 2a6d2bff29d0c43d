package reports

import (
	"sort"

	"tally/internal/core"
)

// MonthlyTotals groups live transactions by calendar month and sums their net
// cash flow: income counts positive, expense negative, transfers zero (they
// move money between own accounts, not in or out). Results are sorted
// chronologically.
func MonthlyTotals(txs []core.Transaction) []core.MonthlyTotal {
	type key struct {
		year  int
		month int
	}
	totals := make(map[key]*core.MonthlyTotal)

	for _, t := range txs {
		if !t.IsLive() {
			continue
		}
		k := key{t.Date.Year(), int(t.Date.Month())}
		entry, ok := totals[k]
		if !ok {
			entry = &core.MonthlyTotal{Year: k.year, Month: k.month}
			totals[k] = entry
		}
		switch t.Type {
		case core.TypeIncome:
			entry.TotalCents += t.AmountCents
		case core.TypeExpense:
			entry.TotalCents -= t.AmountCents
		}
		entry.Count++
	}

	out := make([]core.MonthlyTotal, 0, len(totals))
	for _, entry := range totals {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out
}

// MonthlyTotalsByType groups live transactions by (year, month, type) and
// sums their raw amounts. Sorted chronologically, then income, expense,
// transfer within a month.
func MonthlyTotalsByType(txs []core.Transaction) []core.MonthlyTotal {
	type key struct {
		year  int
		month int
		typ   core.TransactionType
	}
	totals := make(map[key]*core.MonthlyTotal)

	for _, t := range txs {
		if !t.IsLive() {
			continue
		}
		k := key{t.Date.Year(), int(t.Date.Month()), t.Type}
		entry, ok := totals[k]
		if !ok {
			entry = &core.MonthlyTotal{Year: k.year, Month: k.month, Type: k.typ}
			totals[k] = entry
		}
		entry.TotalCents += t.AmountCents
		entry.Count++
	}

	rank := map[core.TransactionType]int{
		core.TypeIncome:   0,
		core.TypeExpense:  1,
		core.TypeTransfer: 2,
	}
	out := make([]core.MonthlyTotal, 0, len(totals))
	for _, entry := range totals {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		if out[i].Month != out[j].Month {
			return out[i].Month < out[j].Month
		}
		return rank[out[i].Type] < rank[out[j].Type]
	})
	return out
}
