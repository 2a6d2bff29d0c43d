package ledger

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tally/internal/core"
	"tally/internal/storage"
)

func newTestEngine(t *testing.T) (*Engine, *storage.SQLiteRepository) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "tally.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return NewEngine(repo), repo
}

func newAccount(t *testing.T, repo *storage.SQLiteRepository, name, currency string) core.Account {
	t.Helper()
	acc := core.Account{Name: name, Type: core.AccountChecking, Currency: currency}
	require.NoError(t, repo.CreateAccount(context.Background(), &acc))
	return acc
}

func makeTx(accountID int64, typ core.TransactionType, cents int64, currency string) core.Transaction {
	return core.Transaction{
		AccountID:   accountID,
		AmountCents: cents,
		Currency:    currency,
		Date:        time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC),
		Type:        typ,
		Status:      core.StatusCleared,
		Description: "test entry",
	}
}

func makeTransfer(from, to int64, cents int64, currency string) core.Transaction {
	tr := makeTx(from, core.TypeTransfer, cents, currency)
	tr.ToAccountID = &to
	return tr
}

// balanceAndReconcile asserts the engine's core property: the cached balance
// always equals the recomputed one.
func balanceAndReconcile(t *testing.T, e *Engine, repo *storage.SQLiteRepository, accountID, want int64) {
	t.Helper()
	ctx := context.Background()

	acc, err := repo.GetAccount(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, want, acc.BalanceCents, "cached balance of account %d", accountID)

	recomputed, err := e.ReconcileBalance(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, want, recomputed.Cents, "recomputed balance of account %d", accountID)
	assert.Equal(t, acc.Currency, recomputed.Currency)

	assert.NoError(t, e.CheckBalance(ctx, accountID))
}

func TestRecordCreateIncomeAndExpense(t *testing.T) {
	e, repo := newTestEngine(t)
	ctx := context.Background()
	acc := newAccount(t, repo, "Main", "EUR")

	income := makeTx(acc.ID, core.TypeIncome, 5000, "EUR")
	require.NoError(t, e.RecordCreate(ctx, &income))
	assert.NotZero(t, income.ID)
	balanceAndReconcile(t, e, repo, acc.ID, 5000)

	expense := makeTx(acc.ID, core.TypeExpense, 3000, "EUR")
	require.NoError(t, e.RecordCreate(ctx, &expense))
	balanceAndReconcile(t, e, repo, acc.ID, 2000)
}

func TestRecordCreateRejections(t *testing.T) {
	e, repo := newTestEngine(t)
	ctx := context.Background()
	acc := newAccount(t, repo, "Main", "EUR")

	tests := []struct {
		name    string
		tx      core.Transaction
		wantErr error
	}{
		{"zero amount", makeTx(acc.ID, core.TypeIncome, 0, "EUR"), core.ErrInvalidAmount},
		{"self transfer", makeTransfer(acc.ID, acc.ID, 100, "EUR"), core.ErrSelfTransfer},
		{"currency mismatch", makeTx(acc.ID, core.TypeIncome, 100, "USD"), core.ErrCurrencyMismatch},
		{"missing account", makeTx(999, core.TypeIncome, 100, "EUR"), core.ErrAccountNotFound},
		{"missing transfer destination", makeTransfer(acc.ID, 999, 100, "EUR"), core.ErrAccountNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := tt.tx
			err := e.RecordCreate(ctx, &tx)
			assert.ErrorIs(t, err, tt.wantErr)
			// Rejections never leave partial state behind.
			balanceAndReconcile(t, e, repo, acc.ID, 0)
		})
	}
}

func TestRecordCreateCrossCurrencyTransfer(t *testing.T) {
	e, repo := newTestEngine(t)
	ctx := context.Background()
	eur := newAccount(t, repo, "Euros", "EUR")
	usd := newAccount(t, repo, "Dollars", "USD")

	tr := makeTransfer(eur.ID, usd.ID, 100, "EUR")
	assert.ErrorIs(t, e.RecordCreate(ctx, &tr), core.ErrCurrencyMismatch)
	balanceAndReconcile(t, e, repo, eur.ID, 0)
	balanceAndReconcile(t, e, repo, usd.ID, 0)
}

func TestTransferMovesBothBalancesAtomically(t *testing.T) {
	e, repo := newTestEngine(t)
	ctx := context.Background()
	a := newAccount(t, repo, "A", "EUR")
	b := newAccount(t, repo, "B", "EUR")

	seed := makeTx(a.ID, core.TypeIncome, 12000, "EUR")
	require.NoError(t, e.RecordCreate(ctx, &seed))

	tr := makeTransfer(a.ID, b.ID, 2000, "EUR")
	require.NoError(t, e.RecordCreate(ctx, &tr))

	balanceAndReconcile(t, e, repo, a.ID, 10000)
	balanceAndReconcile(t, e, repo, b.ID, 2000)
}

func TestRecordSoftDeleteReversesEffect(t *testing.T) {
	e, repo := newTestEngine(t)
	ctx := context.Background()
	acc := newAccount(t, repo, "Main", "EUR")

	income := makeTx(acc.ID, core.TypeIncome, 5000, "EUR")
	require.NoError(t, e.RecordCreate(ctx, &income))
	expense := makeTx(acc.ID, core.TypeExpense, 1200, "EUR")
	require.NoError(t, e.RecordCreate(ctx, &expense))
	balanceAndReconcile(t, e, repo, acc.ID, 3800)

	require.NoError(t, e.RecordSoftDelete(ctx, expense.ID))
	balanceAndReconcile(t, e, repo, acc.ID, 5000)

	// The row is gone from the live set but not from the database.
	_, err := repo.GetTransaction(ctx, expense.ID)
	assert.ErrorIs(t, err, core.ErrTransactionNotFound)

	// A second delete finds nothing live.
	assert.ErrorIs(t, e.RecordSoftDelete(ctx, expense.ID), core.ErrTransactionNotFound)
	balanceAndReconcile(t, e, repo, acc.ID, 5000)
}

func TestRecordUpdateAmountShiftsBalanceByDelta(t *testing.T) {
	e, repo := newTestEngine(t)
	ctx := context.Background()
	acc := newAccount(t, repo, "Main", "EUR")

	seed := makeTx(acc.ID, core.TypeIncome, 10000, "EUR")
	require.NoError(t, e.RecordCreate(ctx, &seed))
	expense := makeTx(acc.ID, core.TypeExpense, 3000, "EUR")
	require.NoError(t, e.RecordCreate(ctx, &expense))
	balanceAndReconcile(t, e, repo, acc.ID, 7000)

	// Expense X -> Y moves the balance by -(Y-X).
	updated, err := e.RecordUpdate(ctx, expense.ID, func(tr core.Transaction) core.Transaction {
		tr.AmountCents = 5000
		return tr
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5000), updated.AmountCents)
	balanceAndReconcile(t, e, repo, acc.ID, 5000)
}

func TestRecordUpdateTypeFlip(t *testing.T) {
	e, repo := newTestEngine(t)
	ctx := context.Background()
	acc := newAccount(t, repo, "Main", "EUR")

	tx := makeTx(acc.ID, core.TypeExpense, 2500, "EUR")
	require.NoError(t, e.RecordCreate(ctx, &tx))
	balanceAndReconcile(t, e, repo, acc.ID, -2500)

	_, err := e.RecordUpdate(ctx, tx.ID, func(tr core.Transaction) core.Transaction {
		tr.Type = core.TypeIncome
		return tr
	})
	require.NoError(t, err)
	balanceAndReconcile(t, e, repo, acc.ID, 2500)
}

func TestRecordUpdateTransferBothLegs(t *testing.T) {
	e, repo := newTestEngine(t)
	ctx := context.Background()
	a := newAccount(t, repo, "A", "EUR")
	b := newAccount(t, repo, "B", "EUR")
	c := newAccount(t, repo, "C", "EUR")

	seed := makeTx(a.ID, core.TypeIncome, 10000, "EUR")
	require.NoError(t, e.RecordCreate(ctx, &seed))

	tr := makeTransfer(a.ID, b.ID, 2000, "EUR")
	require.NoError(t, e.RecordCreate(ctx, &tr))
	balanceAndReconcile(t, e, repo, a.ID, 8000)
	balanceAndReconcile(t, e, repo, b.ID, 2000)

	// Change amount and destination in one edit: reverse both old legs,
	// apply both new ones.
	_, err := e.RecordUpdate(ctx, tr.ID, func(old core.Transaction) core.Transaction {
		old.AmountCents = 3500
		old.ToAccountID = &c.ID
		return old
	})
	require.NoError(t, err)
	balanceAndReconcile(t, e, repo, a.ID, 6500)
	balanceAndReconcile(t, e, repo, b.ID, 0)
	balanceAndReconcile(t, e, repo, c.ID, 3500)
}

func TestRecordUpdateRejectionLeavesStateUnchanged(t *testing.T) {
	e, repo := newTestEngine(t)
	ctx := context.Background()
	acc := newAccount(t, repo, "Main", "EUR")

	tx := makeTx(acc.ID, core.TypeIncome, 4000, "EUR")
	require.NoError(t, e.RecordCreate(ctx, &tx))

	_, err := e.RecordUpdate(ctx, tx.ID, func(tr core.Transaction) core.Transaction {
		tr.AmountCents = 0
		return tr
	})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
	balanceAndReconcile(t, e, repo, acc.ID, 4000)

	got, err := repo.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), got.AmountCents)

	_, err = e.RecordUpdate(ctx, 999, func(tr core.Transaction) core.Transaction { return tr })
	assert.ErrorIs(t, err, core.ErrTransactionNotFound)
}

func TestCheckBalanceReportsDrift(t *testing.T) {
	e, repo := newTestEngine(t)
	ctx := context.Background()
	acc := newAccount(t, repo, "Main", "EUR")

	tx := makeTx(acc.ID, core.TypeIncome, 1000, "EUR")
	require.NoError(t, e.RecordCreate(ctx, &tx))
	require.NoError(t, e.CheckBalance(ctx, acc.ID))

	// Corrupt the cached balance behind the engine's back.
	require.NoError(t, repo.WithTx(ctx, func(stx *storage.Tx) error {
		return stx.ApplyBalanceDelta(acc.ID, 7)
	}))

	err := e.CheckBalance(ctx, acc.ID)
	var drift *core.DriftError
	require.ErrorAs(t, err, &drift)
	assert.Equal(t, acc.ID, drift.AccountID)
	assert.Equal(t, int64(1007), drift.Cached.Cents)
	assert.Equal(t, int64(1000), drift.Computed.Cents)

	// CheckBalance reports, it does not heal.
	assert.Error(t, e.CheckBalance(ctx, acc.ID))
}

func TestReconcileBalanceUnknownAccount(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.ReconcileBalance(context.Background(), 42)
	assert.ErrorIs(t, err, core.ErrAccountNotFound)
}

// TestLedgerScenario walks the canonical end-to-end script: deposits,
// withdrawal, allocation, a transfer, and the transfer's deletion.
func TestLedgerScenario(t *testing.T) {
	e, repo := newTestEngine(t)
	ctx := context.Background()
	a := newAccount(t, repo, "A", "EUR")
	b := newAccount(t, repo, "B", "EUR")

	opening := makeTx(a.ID, core.TypeIncome, 10000, "EUR")
	opening.Description = "opening balance"
	require.NoError(t, e.RecordCreate(ctx, &opening))
	balanceAndReconcile(t, e, repo, a.ID, 10000)

	deposit := makeTx(a.ID, core.TypeIncome, 5000, "EUR")
	require.NoError(t, e.RecordCreate(ctx, &deposit))
	balanceAndReconcile(t, e, repo, a.ID, 15000)

	withdraw := makeTx(a.ID, core.TypeExpense, 3000, "EUR")
	require.NoError(t, e.RecordCreate(ctx, &withdraw))
	balanceAndReconcile(t, e, repo, a.ID, 12000)

	shares, err := core.NewMoney(100, "EUR").Allocate([]int64{1, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, []core.Money{
		core.NewMoney(34, "EUR"),
		core.NewMoney(33, "EUR"),
		core.NewMoney(33, "EUR"),
	}, shares)

	transfer := makeTransfer(a.ID, b.ID, 2000, "EUR")
	require.NoError(t, e.RecordCreate(ctx, &transfer))
	balanceAndReconcile(t, e, repo, a.ID, 10000)
	balanceAndReconcile(t, e, repo, b.ID, 2000)

	require.NoError(t, e.RecordSoftDelete(ctx, transfer.ID))
	balanceAndReconcile(t, e, repo, a.ID, 12000)
	balanceAndReconcile(t, e, repo, b.ID, 0)
}

func TestConcurrentWritesKeepInvariant(t *testing.T) {
	e, repo := newTestEngine(t)
	ctx := context.Background()
	acc := newAccount(t, repo, "Main", "EUR")

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx := makeTx(acc.ID, core.TypeIncome, 100, "EUR")
			errs <- e.RecordCreate(ctx, &tx)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	balanceAndReconcile(t, e, repo, acc.ID, writers*100)
}

func TestConcurrentOpposingTransfers(t *testing.T) {
	e, repo := newTestEngine(t)
	ctx := context.Background()
	a := newAccount(t, repo, "A", "EUR")
	b := newAccount(t, repo, "B", "EUR")

	for _, id := range []int64{a.ID, b.ID} {
		seed := makeTx(id, core.TypeIncome, 10000, "EUR")
		require.NoError(t, e.RecordCreate(ctx, &seed))
	}

	const rounds = 5
	var wg sync.WaitGroup
	errs := make(chan error, rounds*2)
	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			tr := makeTransfer(a.ID, b.ID, 100, "EUR")
			errs <- e.RecordCreate(ctx, &tr)
		}()
		go func() {
			defer wg.Done()
			tr := makeTransfer(b.ID, a.ID, 100, "EUR")
			errs <- e.RecordCreate(ctx, &tr)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// Opposite transfers of equal size cancel out; what matters is that no
	// pairing was ever half-applied.
	balanceAndReconcile(t, e, repo, a.ID, 10000)
	balanceAndReconcile(t, e, repo, b.ID, 10000)
}
