package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"tally/internal/core"
)

type accountRequest struct {
	Name                string `json:"name"`
	Type                string `json:"type"`
	Currency            string `json:"currency"`
	OpeningBalanceCents int64  `json:"opening_balance_cents"`
}

type transactionRequest struct {
	AccountID    int64  `json:"account_id"`
	ToAccountID  *int64 `json:"to_account_id,omitempty"`
	AmountCents  int64  `json:"amount_cents"`
	Currency     string `json:"currency"`
	Date         string `json:"date"`
	Type         string `json:"type"`
	Status       string `json:"status"`
	CategoryID   *int64 `json:"category_id,omitempty"`
	Description  string `json:"description"`
	MerchantName string `json:"merchant_name"`
}

// transactionPatch carries a partial edit; nil fields keep their current
// value. Changing the type away from transfer clears the destination.
type transactionPatch struct {
	AccountID    *int64  `json:"account_id,omitempty"`
	ToAccountID  *int64  `json:"to_account_id,omitempty"`
	AmountCents  *int64  `json:"amount_cents,omitempty"`
	Date         *string `json:"date,omitempty"`
	Type         *string `json:"type,omitempty"`
	Status       *string `json:"status,omitempty"`
	CategoryID   *int64  `json:"category_id,omitempty"`
	Description  *string `json:"description,omitempty"`
	MerchantName *string `json:"merchant_name,omitempty"`
}

type budgetRequest struct {
	CategoryID  int64   `json:"category_id"`
	AmountCents int64   `json:"amount_cents"`
	Period      string  `json:"period"`
	StartDate   string  `json:"start_date"`
	EndDate     *string `json:"end_date,omitempty"`
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", core.ErrValidation, err)
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: invalid id %q", core.ErrValidation, r.PathValue("id"))
	}
	return id, nil
}

// parseDate accepts a plain date or a full RFC 3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", core.ErrValidation, s)
	}
	return t, nil
}

func (req transactionRequest) toDomain() (core.Transaction, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	status := req.Status
	if status == "" {
		status = string(core.StatusPending)
	}
	return core.Transaction{
		AccountID:    req.AccountID,
		ToAccountID:  req.ToAccountID,
		AmountCents:  req.AmountCents,
		Currency:     req.Currency,
		Date:         date,
		Type:         core.TransactionType(req.Type),
		Status:       core.TransactionStatus(status),
		CategoryID:   req.CategoryID,
		Description:  req.Description,
		MerchantName: req.MerchantName,
	}, nil
}

// applyTo merges the patch into an existing transaction. The date must have
// parsed beforehand; apply runs inside the engine's unit of work and cannot
// fail there.
func (p transactionPatch) applyTo(tr core.Transaction, date *time.Time) core.Transaction {
	if p.AccountID != nil {
		tr.AccountID = *p.AccountID
	}
	if p.Type != nil {
		tr.Type = core.TransactionType(*p.Type)
		if tr.Type != core.TypeTransfer {
			tr.ToAccountID = nil
		}
	}
	if p.ToAccountID != nil {
		tr.ToAccountID = p.ToAccountID
	}
	if p.AmountCents != nil {
		tr.AmountCents = *p.AmountCents
	}
	if date != nil {
		tr.Date = *date
	}
	if p.Status != nil {
		tr.Status = core.TransactionStatus(*p.Status)
	}
	if p.CategoryID != nil {
		tr.CategoryID = p.CategoryID
	}
	if p.Description != nil {
		tr.Description = *p.Description
	}
	if p.MerchantName != nil {
		tr.MerchantName = *p.MerchantName
	}
	return tr
}

func (req budgetRequest) toDomain() (core.Budget, error) {
	start, err := parseDate(req.StartDate)
	if err != nil {
		return core.Budget{}, err
	}
	b := core.Budget{
		CategoryID:  req.CategoryID,
		AmountCents: req.AmountCents,
		Period:      core.BudgetPeriod(req.Period),
		StartDate:   start,
	}
	if req.EndDate != nil {
		end, err := parseDate(*req.EndDate)
		if err != nil {
			return core.Budget{}, err
		}
		b.EndDate = &end
	}
	return b, nil
}
