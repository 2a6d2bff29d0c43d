// Package http exposes the ledger over a JSON API. Authentication and
// request scoping happen upstream; handlers here parse, call the service
// layer, and map domain errors onto status codes.
package http

import (
	"net/http"
	"time"

	"tally/internal/log"
	"tally/internal/services"
	"tally/internal/storage"
)

type Server struct {
	*http.Server
	svc  *services.LedgerService
	repo *storage.SQLiteRepository
}

func NewServer(addr string, svc *services.LedgerService, repo *storage.SQLiteRepository, logger *log.Logger) *Server {
	s := &Server{svc: svc, repo: repo}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("POST /api/accounts", s.handleCreateAccount)
	mux.HandleFunc("GET /api/accounts", s.handleListAccounts)
	mux.HandleFunc("GET /api/accounts/{id}", s.handleGetAccount)
	mux.HandleFunc("DELETE /api/accounts/{id}", s.handleDeleteAccount)
	mux.HandleFunc("POST /api/accounts/{id}/reconcile", s.handleReconcileAccount)

	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("PATCH /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("POST /api/budgets", s.handleCreateBudget)
	mux.HandleFunc("GET /api/budgets", s.handleListBudgets)
	mux.HandleFunc("GET /api/budgets/{id}/report", s.handleBudgetReport)

	mux.HandleFunc("GET /api/analytics/monthly", s.handleMonthlyAnalytics)

	var handler http.Handler = mux
	if logger != nil {
		handler = log.Middleware(logger)(handler)
	}

	s.Server = &http.Server{
		Addr:           addr,
		Handler:        handler,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}
	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
