// Package ledger keeps account balances consistent with the live transaction
// set. Every mutating operation validates first, then persists the
// transaction row and its balance effect inside one storage transaction, so
// the invariant "cached balance == signed sum of live transactions" survives
// creates, edits, soft deletes, and two-account transfers.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"tally/internal/core"
	"tally/internal/storage"
)

type Engine struct {
	repo *storage.SQLiteRepository
}

func NewEngine(repo *storage.SQLiteRepository) *Engine {
	return &Engine{repo: repo}
}

// RecordCreate validates and persists a new transaction, applying its signed
// effect to the one or two affected account balances in the same unit of
// work. On any failure nothing is persisted. The transaction's ID and
// timestamps are filled in on success.
func (e *Engine) RecordCreate(ctx context.Context, tr *core.Transaction) error {
	if err := tr.Validate(); err != nil {
		return err
	}

	err := e.repo.WithTx(ctx, func(tx *storage.Tx) error {
		if err := validateAccounts(tx, *tr); err != nil {
			return err
		}
		if err := tx.InsertTransaction(tr); err != nil {
			return err
		}
		return applyDeltas(tx, effectDeltas(*tr, +1))
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Transaction recorded",
		"id", tr.ID,
		"type", tr.Type,
		"amount_cents", tr.AmountCents,
		"currency", tr.Currency,
		"account_id", tr.AccountID)
	return nil
}

// RecordUpdate edits a live transaction. The old row is loaded inside the
// unit of work, apply produces the new value from it, and the engine reverses
// the old effect and applies the new one. When the edit moves the transaction
// between accounts or flips a transfer this touches up to four balances, all
// in the same unit of work. Editing a transfer adjusts both legs
// symmetrically. The new values pass exactly the create-time validations.
func (e *Engine) RecordUpdate(ctx context.Context, id int64, apply func(core.Transaction) core.Transaction) (core.Transaction, error) {
	var updated core.Transaction

	err := e.repo.WithTx(ctx, func(tx *storage.Tx) error {
		old, err := tx.GetTransaction(id)
		if err != nil {
			return err
		}

		updated = apply(old)
		// Identity and audit fields are not editable.
		updated.ID = old.ID
		updated.CreatedAt = old.CreatedAt
		updated.DeletedAt = nil

		if err := updated.Validate(); err != nil {
			return err
		}
		if err := validateAccounts(tx, updated); err != nil {
			return err
		}
		if err := tx.UpdateTransaction(updated); err != nil {
			return err
		}

		// Reverse-then-apply as one merged delta set, so an account touched
		// by both old and new values gets a single net update.
		deltas := effectDeltas(old, -1)
		for id, d := range effectDeltas(updated, +1) {
			deltas[id] += d
		}
		return applyDeltas(tx, deltas)
	})
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction updated",
		"id", id,
		"type", updated.Type,
		"amount_cents", updated.AmountCents,
		"account_id", updated.AccountID)
	return updated, nil
}

// RecordSoftDelete reverses a live transaction's effect and stamps it
// deleted, atomically. The row is kept for audit; it stops counting toward
// balances, budgets, and analytics.
func (e *Engine) RecordSoftDelete(ctx context.Context, id int64) error {
	err := e.repo.WithTx(ctx, func(tx *storage.Tx) error {
		old, err := tx.GetTransaction(id)
		if err != nil {
			return err
		}
		if err := tx.SoftDeleteTransaction(id); err != nil {
			return err
		}
		return applyDeltas(tx, effectDeltas(old, -1))
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Transaction soft-deleted", "id", id)
	return nil
}

// ReconcileBalance recomputes an account's balance from scratch by summing
// the signed effects of its live transactions.
func (e *Engine) ReconcileBalance(ctx context.Context, accountID int64) (core.Money, error) {
	var balance core.Money
	err := e.repo.WithTx(ctx, func(tx *storage.Tx) error {
		acc, err := tx.GetAccount(accountID)
		if err != nil {
			return err
		}
		sum, err := tx.SumLiveEffects(accountID)
		if err != nil {
			return err
		}
		balance = core.NewMoney(sum, acc.Currency)
		return nil
	})
	if err != nil {
		return core.Money{}, err
	}
	return balance, nil
}

// CheckBalance compares the cached balance against the recomputed one and
// returns a *core.DriftError when they disagree. Drift is reported, never
// silently healed.
func (e *Engine) CheckBalance(ctx context.Context, accountID int64) error {
	return e.repo.WithTx(ctx, func(tx *storage.Tx) error {
		acc, err := tx.GetAccount(accountID)
		if err != nil {
			return err
		}
		sum, err := tx.SumLiveEffects(accountID)
		if err != nil {
			return err
		}
		if acc.BalanceCents != sum {
			return &core.DriftError{
				AccountID: accountID,
				Cached:    acc.Balance(),
				Computed:  core.NewMoney(sum, acc.Currency),
			}
		}
		return nil
	})
}

// validateAccounts checks that every referenced account exists, is live, and
// carries the transaction's currency. A transfer's destination must match the
// currency too; cross-currency transfers are out of scope.
func validateAccounts(tx *storage.Tx, tr core.Transaction) error {
	src, err := tx.GetAccount(tr.AccountID)
	if err != nil {
		return err
	}
	if src.Currency != tr.Currency {
		return fmt.Errorf("%w: transaction %s, account %d holds %s",
			core.ErrCurrencyMismatch, tr.Currency, src.ID, src.Currency)
	}

	if tr.Type == core.TypeTransfer {
		dst, err := tx.GetAccount(*tr.ToAccountID)
		if err != nil {
			return err
		}
		if dst.Currency != tr.Currency {
			return fmt.Errorf("%w: transaction %s, destination account %d holds %s",
				core.ErrCurrencyMismatch, tr.Currency, dst.ID, dst.Currency)
		}
	}
	return nil
}

// effectDeltas returns the balance delta per account for one transaction,
// multiplied by sign (+1 to apply, -1 to reverse).
func effectDeltas(tr core.Transaction, sign int64) map[int64]int64 {
	deltas := map[int64]int64{
		tr.AccountID: sign * tr.SignedEffect(tr.AccountID),
	}
	if tr.Type == core.TypeTransfer && tr.ToAccountID != nil {
		deltas[*tr.ToAccountID] += sign * tr.SignedEffect(*tr.ToAccountID)
	}
	return deltas
}

// applyDeltas updates balances in ascending account-id order. The fixed order
// keeps concurrent transfers over the same account pair from ever waiting on
// each other in opposite orders.
func applyDeltas(tx *storage.Tx, deltas map[int64]int64) error {
	ids := make([]int64, 0, len(deltas))
	for id := range deltas {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if deltas[id] == 0 {
			continue
		}
		if err := tx.ApplyBalanceDelta(id, deltas[id]); err != nil {
			return err
		}
	}
	return nil
}
