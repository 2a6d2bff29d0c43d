package worker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/ledger"
	"tally/internal/storage"
)

func newTestAuditor(t *testing.T) (*Auditor, *ledger.Engine, *storage.SQLiteRepository) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "tally.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	engine := ledger.NewEngine(repo)
	return NewAuditor(repo, engine, 4), engine, repo
}

func seedAccount(t *testing.T, repo *storage.SQLiteRepository, engine *ledger.Engine, cents int64) core.Account {
	t.Helper()
	ctx := context.Background()
	acc := core.Account{Name: "Main", Type: core.AccountChecking, Currency: "EUR"}
	require.NoError(t, repo.CreateAccount(ctx, &acc))

	if cents != 0 {
		tx := core.Transaction{
			AccountID:   acc.ID,
			AmountCents: cents,
			Currency:    "EUR",
			Date:        time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
			Type:        core.TypeIncome,
			Status:      core.StatusCleared,
			Description: "seed",
		}
		require.NoError(t, engine.RecordCreate(ctx, &tx))
	}
	return acc
}

func TestHandleLedgerEventCleanAccount(t *testing.T) {
	a, engine, repo := newTestAuditor(t)
	acc := seedAccount(t, repo, engine, 1000)

	msg := amqp.NewLedgerEventMessage(amqp.OpCreated, 1, []int64{acc.ID})
	assert.NoError(t, a.HandleLedgerEvent(context.Background(), msg))
}

func TestHandleLedgerEventDriftIsAcknowledged(t *testing.T) {
	a, engine, repo := newTestAuditor(t)
	ctx := context.Background()
	acc := seedAccount(t, repo, engine, 1000)

	require.NoError(t, repo.WithTx(ctx, func(tx *storage.Tx) error {
		return tx.ApplyBalanceDelta(acc.ID, 5)
	}))

	// Drift must not bounce the delivery back into the queue.
	msg := amqp.NewLedgerEventMessage(amqp.OpUpdated, 1, []int64{acc.ID})
	assert.NoError(t, a.HandleLedgerEvent(ctx, msg))
}

func TestHandleLedgerEventMissingAccount(t *testing.T) {
	a, _, _ := newTestAuditor(t)
	msg := amqp.NewLedgerEventMessage(amqp.OpDeleted, 1, []int64{999})
	assert.NoError(t, a.HandleLedgerEvent(context.Background(), msg))
}

func TestSweepAllCountsDrift(t *testing.T) {
	a, engine, repo := newTestAuditor(t)
	ctx := context.Background()

	clean := seedAccount(t, repo, engine, 1000)
	dirty := seedAccount(t, repo, engine, 2000)
	_ = clean

	require.NoError(t, repo.WithTx(ctx, func(tx *storage.Tx) error {
		return tx.ApplyBalanceDelta(dirty.ID, -50)
	}))

	drifted, err := a.SweepAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, drifted)
}

func TestSweepAllEmpty(t *testing.T) {
	a, _, _ := newTestAuditor(t)
	drifted, err := a.SweepAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, drifted)
}
