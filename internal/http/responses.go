package http

import (
	"time"

	"tally/internal/core"
)

type accountResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	Currency     string `json:"currency"`
	BalanceCents int64  `json:"balance_cents"`
	Balance      string `json:"balance"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

type transactionResponse struct {
	ID           int64  `json:"id"`
	AccountID    int64  `json:"account_id"`
	ToAccountID  *int64 `json:"to_account_id,omitempty"`
	AmountCents  int64  `json:"amount_cents"`
	Currency     string `json:"currency"`
	Date         string `json:"date"`
	Type         string `json:"type"`
	Status       string `json:"status"`
	CategoryID   *int64 `json:"category_id,omitempty"`
	Description  string `json:"description"`
	MerchantName string `json:"merchant_name,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

type budgetResponse struct {
	ID          int64   `json:"id"`
	CategoryID  int64   `json:"category_id"`
	AmountCents int64   `json:"amount_cents"`
	Period      string  `json:"period"`
	StartDate   string  `json:"start_date"`
	EndDate     *string `json:"end_date,omitempty"`
}

type budgetReportResponse struct {
	BudgetID       int64   `json:"budget_id"`
	SpentCents     int64   `json:"spent_cents"`
	RemainingCents int64   `json:"remaining_cents"`
	Percentage     float64 `json:"percentage"`
	IsOverBudget   bool    `json:"is_over_budget"`
}

type balanceResponse struct {
	AccountID int64  `json:"account_id"`
	Cents     int64  `json:"cents"`
	Currency  string `json:"currency"`
	Display   string `json:"display"`
}

type monthlyTotalResponse struct {
	Year       int    `json:"year"`
	Month      int    `json:"month"`
	Type       string `json:"type,omitempty"`
	TotalCents int64  `json:"total_cents"`
	Count      int    `json:"count"`
}

func toAccountResponse(a core.Account) accountResponse {
	return accountResponse{
		ID:           a.ID,
		Name:         a.Name,
		Type:         string(a.Type),
		Currency:     a.Currency,
		BalanceCents: a.BalanceCents,
		Balance:      a.Balance().String(),
		CreatedAt:    a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    a.UpdatedAt.Format(time.RFC3339),
	}
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:           t.ID,
		AccountID:    t.AccountID,
		ToAccountID:  t.ToAccountID,
		AmountCents:  t.AmountCents,
		Currency:     t.Currency,
		Date:         t.Date.Format("2006-01-02"),
		Type:         string(t.Type),
		Status:       string(t.Status),
		CategoryID:   t.CategoryID,
		Description:  t.Description,
		MerchantName: t.MerchantName,
		CreatedAt:    t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    t.UpdatedAt.Format(time.RFC3339),
	}
}

func toBudgetResponse(b core.Budget) budgetResponse {
	resp := budgetResponse{
		ID:          b.ID,
		CategoryID:  b.CategoryID,
		AmountCents: b.AmountCents,
		Period:      string(b.Period),
		StartDate:   b.StartDate.Format("2006-01-02"),
	}
	if b.EndDate != nil {
		s := b.EndDate.Format("2006-01-02")
		resp.EndDate = &s
	}
	return resp
}

func toMonthlyTotalResponses(totals []core.MonthlyTotal) []monthlyTotalResponse {
	out := make([]monthlyTotalResponse, len(totals))
	for i, mt := range totals {
		out[i] = monthlyTotalResponse{
			Year:       mt.Year,
			Month:      mt.Month,
			Type:       string(mt.Type),
			TotalCents: mt.TotalCents,
			Count:      mt.Count,
		}
	}
	return out
}
