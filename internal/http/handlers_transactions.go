package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"tally/internal/core"
)

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	tx, err := req.toDomain()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.CreateTransaction(r.Context(), &tx); err != nil {
		writeError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "Transaction created via API",
		"id", tx.ID,
		"type", tx.Type,
		"amount_cents", tx.AmountCents,
		"account_id", tx.AccountID)
	writeJSON(w, http.StatusCreated, toTransactionResponse(tx))
}

// handleListTransactions returns live transactions for one calendar month,
// defaulting to the current one.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	year, month := now.Year(), int(now.Month())

	if v := r.URL.Query().Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 {
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "invalid year"})
			return
		}
		year = y
	}
	if v := r.URL.Query().Get("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "invalid month"})
			return
		}
		month = m
	}

	txs, err := s.repo.ListTransactionsByMonth(r.Context(), year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]transactionResponse, len(txs))
	for i, t := range txs {
		out[i] = toTransactionResponse(t)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var patch transactionPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}

	var date *time.Time
	if patch.Date != nil {
		d, err := parseDate(*patch.Date)
		if err != nil {
			writeError(w, r, err)
			return
		}
		date = &d
	}

	updated, err := s.svc.UpdateTransaction(r.Context(), id, func(tr core.Transaction) core.Transaction {
		return patch.applyTo(tr, date)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "Transaction updated via API",
		"id", id,
		"amount_cents", updated.AmountCents,
		"type", updated.Type)
	writeJSON(w, http.StatusOK, toTransactionResponse(updated))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.svc.DeleteTransaction(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "Transaction deleted via API", "id", id)
	w.WriteHeader(http.StatusNoContent)
}
