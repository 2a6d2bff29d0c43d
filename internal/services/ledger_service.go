// Package services orchestrates the ledger engine, storage, and the event
// bus. The write path is store-first: the database commit decides success,
// and event publication is best-effort on top of it.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/ledger"
	"tally/internal/storage"
)

// EventPublisher announces committed ledger mutations. *amqp.Client
// implements it; tests substitute a recorder.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error
}

// LedgerService is the write-side entry point: it validates and records
// mutations through the engine and announces them on the event bus.
type LedgerService struct {
	repo      *storage.SQLiteRepository
	engine    *ledger.Engine
	publisher EventPublisher
}

func NewLedgerService(repo *storage.SQLiteRepository, engine *ledger.Engine, publisher EventPublisher) *LedgerService {
	return &LedgerService{
		repo:      repo,
		engine:    engine,
		publisher: publisher,
	}
}

// CreateAccount persists a new account. A non-zero opening balance is
// recorded as an ordinary income transaction, so the balance invariant holds
// from the first moment: even the opening amount is the sum of live
// transactions.
func (s *LedgerService) CreateAccount(ctx context.Context, acc *core.Account, openingCents int64) error {
	if err := acc.Validate(); err != nil {
		return err
	}
	acc.BalanceCents = 0

	if err := s.repo.CreateAccount(ctx, acc); err != nil {
		return fmt.Errorf("create account: %w", err)
	}

	if openingCents != 0 {
		opening := core.Transaction{
			AccountID:   acc.ID,
			AmountCents: openingCents,
			Currency:    acc.Currency,
			Date:        acc.CreatedAt,
			Type:        core.TypeIncome,
			Status:      core.StatusCleared,
			Description: "Opening balance",
		}
		if err := s.CreateTransaction(ctx, &opening); err != nil {
			return fmt.Errorf("record opening balance: %w", err)
		}
		acc.BalanceCents = openingCents
	}

	return nil
}

// CreateTransaction records a new transaction and publishes a created event.
func (s *LedgerService) CreateTransaction(ctx context.Context, tr *core.Transaction) error {
	if err := s.engine.RecordCreate(ctx, tr); err != nil {
		return err
	}
	s.publish(ctx, amqp.NewLedgerEventMessage(amqp.OpCreated, tr.ID, affectedAccounts(*tr)))
	return nil
}

// UpdateTransaction edits a live transaction through the engine. The event
// carries the accounts of the new value; accounts an edit moved away from are
// still covered by the auditor's periodic sweep.
func (s *LedgerService) UpdateTransaction(ctx context.Context, id int64, apply func(core.Transaction) core.Transaction) (core.Transaction, error) {
	updated, err := s.engine.RecordUpdate(ctx, id, apply)
	if err != nil {
		return core.Transaction{}, err
	}
	s.publish(ctx, amqp.NewLedgerEventMessage(amqp.OpUpdated, updated.ID, affectedAccounts(updated)))
	return updated, nil
}

// DeleteTransaction soft-deletes a transaction and publishes a deleted event.
func (s *LedgerService) DeleteTransaction(ctx context.Context, id int64) error {
	old, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return err
	}
	if err := s.engine.RecordSoftDelete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, amqp.NewLedgerEventMessage(amqp.OpDeleted, id, affectedAccounts(old)))
	return nil
}

// DeleteAccount soft-deletes an account with no live transactions.
func (s *LedgerService) DeleteAccount(ctx context.Context, id int64) error {
	return s.repo.SoftDeleteAccount(ctx, id)
}

// ReconcileBalance recomputes an account's balance from its live
// transactions.
func (s *LedgerService) ReconcileBalance(ctx context.Context, accountID int64) (core.Money, error) {
	return s.engine.ReconcileBalance(ctx, accountID)
}

// CheckBalance verifies cached against recomputed balance; a *core.DriftError
// means the invariant is broken.
func (s *LedgerService) CheckBalance(ctx context.Context, accountID int64) error {
	return s.engine.CheckBalance(ctx, accountID)
}

// CreateBudget validates and persists a budget.
func (s *LedgerService) CreateBudget(ctx context.Context, b *core.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	return s.repo.CreateBudget(ctx, b)
}

// publish is best-effort: the mutation is already committed, so a publish
// failure is logged and never surfaced to the caller.
func (s *LedgerService) publish(ctx context.Context, msg *amqp.LedgerEventMessage) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "Event publisher not configured, skipping ledger event",
			"op", msg.Op, "transaction_id", msg.TransactionID)
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"error", err,
			"op", msg.Op,
			"transaction_id", msg.TransactionID)
	}
}

func affectedAccounts(tr core.Transaction) []int64 {
	ids := []int64{tr.AccountID}
	if tr.ToAccountID != nil {
		ids = append(ids, *tr.ToAccountID)
	}
	return ids
}

// Close releases the storage connection.
func (s *LedgerService) Close() error {
	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			return fmt.Errorf("close storage: %w", err)
		}
	}
	return nil
}
