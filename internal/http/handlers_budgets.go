package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"tally/internal/core"
	"tally/internal/reports"
)

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	b, err := req.toDomain()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.CreateBudget(r.Context(), &b); err != nil {
		writeError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "Budget created via API",
		"id", b.ID,
		"category_id", b.CategoryID,
		"amount_cents", b.AmountCents)
	writeJSON(w, http.StatusCreated, toBudgetResponse(b))
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.repo.ListBudgets(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]budgetResponse, len(budgets))
	for i, b := range budgets {
		out[i] = toBudgetResponse(b)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBudgetReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	b, err := s.repo.GetBudget(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	txs, err := s.repo.ListLiveExpensesByCategory(r.Context(), b.CategoryID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	report := reports.BudgetReport(b, txs, time.Now().UTC())
	writeJSON(w, http.StatusOK, budgetReportResponse{
		BudgetID:       report.BudgetID,
		SpentCents:     report.SpentCents,
		RemainingCents: report.RemainingCents,
		Percentage:     report.Percentage,
		IsOverBudget:   report.IsOverBudget,
	})
}

// handleMonthlyAnalytics aggregates a year of transactions. The default view
// nets income against expenses per month; split=type breaks totals out per
// transaction type instead.
func (s *Server) handleMonthlyAnalytics(w http.ResponseWriter, r *http.Request) {
	year := time.Now().Year()
	if v := r.URL.Query().Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 {
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "invalid year"})
			return
		}
		year = y
	}

	txs, err := s.repo.ListTransactionsByYear(r.Context(), year)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var totals []core.MonthlyTotal
	if r.URL.Query().Get("split") == "type" {
		totals = reports.MonthlyTotalsByType(txs)
	} else {
		totals = reports.MonthlyTotals(txs)
	}
	writeJSON(w, http.StatusOK, toMonthlyTotalResponses(totals))
}
