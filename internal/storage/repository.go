// Package storage persists accounts, transactions, and budgets in SQLite.
//
// The connection is opened with _txlock=immediate so every write transaction
// takes the database write lock up front; combined with WAL journaling this
// gives writers serialized, all-or-nothing units of work while readers see
// consistent snapshots.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"tally/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	dsn := "file:" + dbPath +
		"?_txlock=immediate" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// WithTx runs fn inside one SQLite transaction. The transaction commits only
// if fn returns nil; any error rolls back every change made through the Tx.
func (r *SQLiteRepository) WithTx(ctx context.Context, fn func(*Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&Tx{tx: tx, ctx: ctx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// CreateAccount persists a new account and fills in its ID and timestamps.
func (r *SQLiteRepository) CreateAccount(ctx context.Context, a *core.Account) error {
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (name, type, currency, balance_cents, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.Name, string(a.Type), a.Currency, a.BalanceCents, fmtTime(now), fmtTime(now))
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}

	a.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("account insert id: %w", err)
	}

	slog.InfoContext(ctx, "Account created",
		"id", a.ID,
		"name", a.Name,
		"type", a.Type,
		"currency", a.Currency)
	return nil
}

// GetAccount returns a live account, or core.ErrAccountNotFound when the id
// is absent or soft-deleted.
func (r *SQLiteRepository) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+accountCols+` FROM accounts
		WHERE id = ? AND deleted_at IS NULL`, id)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return core.Account{}, core.ErrAccountNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account %d: %w", id, err)
	}
	return a, nil
}

// ListAccounts returns all live accounts ordered by id.
func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+accountCols+` FROM accounts
		WHERE deleted_at IS NULL
		ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// SoftDeleteAccount stamps deleted_at on an account. Accounts still
// referenced by live transactions cannot be deleted; balances would become
// unreconcilable.
func (r *SQLiteRepository) SoftDeleteAccount(ctx context.Context, id int64) error {
	return r.WithTx(ctx, func(tx *Tx) error {
		var n int64
		err := tx.tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM transactions
			WHERE deleted_at IS NULL AND (account_id = ? OR to_account_id = ?)`, id, id).Scan(&n)
		if err != nil {
			return fmt.Errorf("count live transactions: %w", err)
		}
		if n > 0 {
			return core.ErrAccountInUse
		}

		res, err := tx.tx.ExecContext(ctx, `
			UPDATE accounts SET deleted_at = ?, updated_at = ?
			WHERE id = ? AND deleted_at IS NULL`,
			fmtTime(time.Now().UTC()), fmtTime(time.Now().UTC()), id)
		if err != nil {
			return fmt.Errorf("soft delete account: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("soft delete account rows: %w", err)
		}
		if affected == 0 {
			return core.ErrAccountNotFound
		}

		slog.InfoContext(ctx, "Account soft-deleted", "id", id)
		return nil
	})
}

// GetTransaction returns a live transaction, or core.ErrTransactionNotFound.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+txCols+` FROM transactions
		WHERE id = ? AND deleted_at IS NULL`, id)
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return core.Transaction{}, core.ErrTransactionNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return t, nil
}

// ListTransactionsByMonth returns live transactions dated in the given
// calendar month, oldest first.
func (r *SQLiteRepository) ListTransactionsByMonth(ctx context.Context, year, month int) ([]core.Transaction, error) {
	prefix := fmt.Sprintf("%04d-%02d", year, month)
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+txCols+` FROM transactions
		WHERE deleted_at IS NULL AND substr(date, 1, 7) = ?
		ORDER BY date ASC, id ASC`, prefix)
	if err != nil {
		return nil, fmt.Errorf("list transactions for %s: %w", prefix, err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// ListTransactionsByYear returns live transactions dated in the given year,
// oldest first. Year 0 returns everything.
func (r *SQLiteRepository) ListTransactionsByYear(ctx context.Context, year int) ([]core.Transaction, error) {
	query := `SELECT ` + txCols + ` FROM transactions WHERE deleted_at IS NULL`
	args := []any{}
	if year != 0 {
		query += ` AND substr(date, 1, 4) = ?`
		args = append(args, fmt.Sprintf("%04d", year))
	}
	query += ` ORDER BY date ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions for year %d: %w", year, err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// ListLiveTransactionsByAccount returns live transactions touching the
// account on either side.
func (r *SQLiteRepository) ListLiveTransactionsByAccount(ctx context.Context, accountID int64) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+txCols+` FROM transactions
		WHERE deleted_at IS NULL AND (account_id = ?1 OR to_account_id = ?1)
		ORDER BY date ASC, id ASC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list transactions for account %d: %w", accountID, err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// ListLiveExpensesByCategory returns live expense transactions in a category,
// the input to budget reports.
func (r *SQLiteRepository) ListLiveExpensesByCategory(ctx context.Context, categoryID int64) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+txCols+` FROM transactions
		WHERE deleted_at IS NULL AND type = 'expense' AND category_id = ?
		ORDER BY date ASC, id ASC`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list expenses for category %d: %w", categoryID, err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// CreateBudget persists a new budget and fills in its ID.
func (r *SQLiteRepository) CreateBudget(ctx context.Context, b *core.Budget) error {
	var end any
	if b.EndDate != nil {
		end = fmtTime(*b.EndDate)
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (category_id, amount_cents, period, start_date, end_date)
		VALUES (?, ?, ?, ?, ?)`,
		b.CategoryID, b.AmountCents, string(b.Period), fmtTime(b.StartDate), end)
	if err != nil {
		return fmt.Errorf("insert budget: %w", err)
	}

	b.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("budget insert id: %w", err)
	}

	slog.InfoContext(ctx, "Budget created",
		"id", b.ID,
		"category_id", b.CategoryID,
		"amount_cents", b.AmountCents,
		"period", b.Period)
	return nil
}

// GetBudget returns a budget by id, or core.ErrBudgetNotFound.
func (r *SQLiteRepository) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, category_id, amount_cents, period, start_date, end_date
		FROM budgets WHERE id = ?`, id)
	b, err := scanBudget(row)
	if err == sql.ErrNoRows {
		return core.Budget{}, core.ErrBudgetNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget %d: %w", id, err)
	}
	return b, nil
}

// ListBudgets returns all budgets ordered by id.
func (r *SQLiteRepository) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, category_id, amount_cents, period, start_date, end_date
		FROM budgets ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}
