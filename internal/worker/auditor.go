// Package worker runs the balance auditor: an out-of-band consumer that
// verifies the ledger invariant on accounts touched by recent mutations and
// periodically sweeps every account. Drift is reported, never auto-corrected.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/ledger"
	"tally/internal/storage"
)

// Auditor checks cached balances against recomputed ones.
type Auditor struct {
	storage     *storage.SQLiteRepository
	engine      *ledger.Engine
	concurrency int
}

func NewAuditor(storage *storage.SQLiteRepository, engine *ledger.Engine, concurrency int) *Auditor {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Auditor{
		storage:     storage,
		engine:      engine,
		concurrency: concurrency,
	}
}

// HandleLedgerEvent verifies every account a committed mutation touched.
// Storage errors are returned so the delivery gets requeued; drift is logged
// and acknowledged, since redelivery cannot fix a broken invariant.
func (a *Auditor) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	slog.InfoContext(ctx, "Auditing accounts for ledger event",
		"event_id", msg.EventID,
		"op", msg.Op,
		"transaction_id", msg.TransactionID,
		"account_ids", msg.AccountIDs)

	for _, accountID := range msg.AccountIDs {
		if err := a.checkAccount(ctx, accountID); err != nil {
			return err
		}
	}
	return nil
}

// SweepAll audits every live account, at most a.concurrency at a time.
// Returns the number of accounts found drifted.
func (a *Auditor) SweepAll(ctx context.Context) (int, error) {
	accounts, err := a.storage.ListAccounts(ctx)
	if err != nil {
		return 0, fmt.Errorf("list accounts: %w", err)
	}

	drifted := make(chan int64, len(accounts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for _, acc := range accounts {
		g.Go(func() error {
			err := a.engine.CheckBalance(ctx, acc.ID)
			var drift *core.DriftError
			if errors.As(err, &drift) {
				slog.ErrorContext(ctx, "Balance drift detected",
					"account_id", drift.AccountID,
					"cached", drift.Cached.String(),
					"computed", drift.Computed.String())
				drifted <- drift.AccountID
				return nil
			}
			if errors.Is(err, core.ErrAccountNotFound) {
				// Deleted between listing and checking; nothing to audit.
				return nil
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("sweep accounts: %w", err)
	}
	close(drifted)

	count := 0
	for range drifted {
		count++
	}

	slog.InfoContext(ctx, "Audit sweep finished",
		"accounts", len(accounts),
		"drifted", count)
	return count, nil
}

// Run consumes ledger events and sweeps all accounts every interval, until
// ctx is cancelled.
func (a *Auditor) Run(ctx context.Context, client *amqp.Client, interval time.Duration) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return client.ConsumeLedgerEvents(ctx, func(msg *amqp.LedgerEventMessage) error {
			return a.HandleLedgerEvent(ctx, msg)
		})
	})

	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if _, err := a.SweepAll(ctx); err != nil {
					slog.ErrorContext(ctx, "Audit sweep failed", "error", err)
				}
			}
		}
	})

	return g.Wait()
}

func (a *Auditor) checkAccount(ctx context.Context, accountID int64) error {
	err := a.engine.CheckBalance(ctx, accountID)

	var drift *core.DriftError
	if errors.As(err, &drift) {
		slog.ErrorContext(ctx, "Balance drift detected",
			"account_id", drift.AccountID,
			"cached", drift.Cached.String(),
			"computed", drift.Computed.String())
		return nil
	}
	if errors.Is(err, core.ErrAccountNotFound) {
		slog.WarnContext(ctx, "Audited account no longer exists", "account_id", accountID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("check account %d: %w", accountID, err)
	}
	return nil
}
