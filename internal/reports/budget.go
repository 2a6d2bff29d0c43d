// Package reports computes read-only aggregates over the ledger's live
// transactions: budget spend-to-date and monthly trend groupings. Everything
// here is a pure function; soft-deleted transactions are filtered out by the
// same liveness predicate the balance invariant uses.
package reports

import (
	"math"
	"time"

	"tally/internal/core"
)

// BudgetReport sums spend against a budget: the absolute amounts of live
// expense transactions in the budget's category dated inside
// [StartDate, EndDate], where a missing EndDate means "up to now".
// Percentage is spent/amount*100 rounded to one decimal, 0 for a zero budget.
func BudgetReport(b core.Budget, txs []core.Transaction, now time.Time) core.BudgetReport {
	end := now
	if b.EndDate != nil {
		end = *b.EndDate
	}

	var spent int64
	for _, t := range txs {
		if !t.IsLive() || t.Type != core.TypeExpense {
			continue
		}
		if t.CategoryID == nil || *t.CategoryID != b.CategoryID {
			continue
		}
		if t.Date.Before(b.StartDate) || t.Date.After(end) {
			continue
		}
		amount := t.AmountCents
		if amount < 0 {
			amount = -amount
		}
		spent += amount
	}

	remaining := b.AmountCents - spent
	if remaining < 0 {
		remaining = 0
	}

	var percentage float64
	if b.AmountCents != 0 {
		percentage = math.Round(float64(spent)/float64(b.AmountCents)*1000) / 10
	}

	return core.BudgetReport{
		BudgetID:       b.ID,
		SpentCents:     spent,
		RemainingCents: remaining,
		Percentage:     percentage,
		IsOverBudget:   spent > b.AmountCents,
	}
}
