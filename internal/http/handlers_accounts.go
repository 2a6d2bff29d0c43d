package http

import (
	"log/slog"
	"net/http"

	"tally/internal/core"
)

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	acc := core.Account{
		Name:     req.Name,
		Type:     core.AccountType(req.Type),
		Currency: req.Currency,
	}
	if err := s.svc.CreateAccount(r.Context(), &acc, req.OpeningBalanceCents); err != nil {
		writeError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "Account created via API",
		"id", acc.ID,
		"name", acc.Name,
		"opening_balance_cents", req.OpeningBalanceCents)
	writeJSON(w, http.StatusCreated, toAccountResponse(acc))
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.repo.ListAccounts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]accountResponse, len(accounts))
	for i, a := range accounts {
		out[i] = toAccountResponse(a)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	acc, err := s.repo.GetAccount(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(acc))
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.svc.DeleteAccount(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleReconcileAccount recomputes the balance from live transactions and
// reports whether the cached value agrees. A drifted account answers 409 with
// both values, so the caller can decide what to trust.
func (s *Server) handleReconcileAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.svc.CheckBalance(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	balance, err := s.svc.ReconcileBalance(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{
		AccountID: id,
		Cents:     balance.Cents,
		Currency:  balance.Currency,
		Display:   balance.String(),
	})
}
