package core

// BudgetReport is the derived spend-to-date view of one budget.
type BudgetReport struct {
	BudgetID       int64
	SpentCents     int64
	RemainingCents int64
	Percentage     float64 // spent/amount*100, one decimal; 0 for a zero budget
	IsOverBudget   bool
}

// MonthlyTotal is the signed sum of live transactions for one calendar month,
// optionally split by transaction type.
type MonthlyTotal struct {
	Year       int
	Month      int // 1-12
	Type       TransactionType // empty when totals are not split by type
	TotalCents int64
	Count      int
}
