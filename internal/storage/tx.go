package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tally/internal/core"
)

// Tx is one atomic unit of work. The ledger engine uses it to persist a
// transaction row and its balance deltas together: either everything commits
// or nothing does.
type Tx struct {
	tx  *sql.Tx
	ctx context.Context
}

// GetAccount returns a live account inside the transaction.
func (t *Tx) GetAccount(id int64) (core.Account, error) {
	row := t.tx.QueryRowContext(t.ctx, `
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

// GetTransaction returns a live transaction inside the transaction.
func (t *Tx) GetTransaction(id int64) (core.Transaction, error) {
	row := t.tx.QueryRowContext(t.ctx, `
		SELECT `+txCols+` FROM transactions
		WHERE id = ? AND deleted_at IS NULL`, id)
	tx, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return core.Transaction{}, core.ErrTransactionNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return tx, nil
}

// InsertTransaction persists a new transaction row and fills in its ID and
// timestamps.
func (t *Tx) InsertTransaction(tr *core.Transaction) error {
	now := time.Now().UTC()
	tr.CreatedAt = now
	tr.UpdatedAt = now

	res, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO transactions
			(account_id, to_account_id, amount_cents, currency, date, type,
			 status, category_id, description, merchant_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tr.AccountID, nullInt(tr.ToAccountID), tr.AmountCents, tr.Currency,
		fmtTime(tr.Date), string(tr.Type), string(tr.Status), nullInt(tr.CategoryID),
		tr.Description, tr.MerchantName, fmtTime(now), fmtTime(now))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	tr.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("transaction insert id: %w", err)
	}
	return nil
}

// UpdateTransaction rewrites every mutable field of a live transaction row.
func (t *Tx) UpdateTransaction(tr core.Transaction) error {
	res, err := t.tx.ExecContext(t.ctx, `
		UPDATE transactions SET
			account_id = ?, to_account_id = ?, amount_cents = ?, currency = ?,
			date = ?, type = ?, status = ?, category_id = ?, description = ?,
			merchant_name = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		tr.AccountID, nullInt(tr.ToAccountID), tr.AmountCents, tr.Currency,
		fmtTime(tr.Date), string(tr.Type), string(tr.Status), nullInt(tr.CategoryID),
		tr.Description, tr.MerchantName, fmtTime(time.Now().UTC()), tr.ID)
	if err != nil {
		return fmt.Errorf("update transaction %d: %w", tr.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update transaction rows: %w", err)
	}
	if affected == 0 {
		return core.ErrTransactionNotFound
	}
	return nil
}

// SoftDeleteTransaction stamps deleted_at on a live transaction row. The row
// stays behind for audit and export but stops contributing everywhere.
func (t *Tx) SoftDeleteTransaction(id int64) error {
	now := fmtTime(time.Now().UTC())
	res, err := t.tx.ExecContext(t.ctx, `
		UPDATE transactions SET deleted_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`, now, now, id)
	if err != nil {
		return fmt.Errorf("soft delete transaction %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("soft delete transaction rows: %w", err)
	}
	if affected == 0 {
		return core.ErrTransactionNotFound
	}
	return nil
}

// ApplyBalanceDelta shifts a live account's cached balance by delta minor
// units.
func (t *Tx) ApplyBalanceDelta(accountID, delta int64) error {
	res, err := t.tx.ExecContext(t.ctx, `
		UPDATE accounts SET balance_cents = balance_cents + ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		delta, fmtTime(time.Now().UTC()), accountID)
	if err != nil {
		return fmt.Errorf("apply balance delta to account %d: %w", accountID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("apply balance delta rows: %w", err)
	}
	if affected == 0 {
		return core.ErrAccountNotFound
	}
	return nil
}

// SumLiveEffects recomputes an account's balance from scratch: the signed sum
// of every live transaction touching it on either side.
func (t *Tx) SumLiveEffects(accountID int64) (int64, error) {
	var sum int64
	err := t.tx.QueryRowContext(t.ctx, `
		SELECT COALESCE(SUM(CASE
			WHEN type = 'income'   AND account_id = ?1    THEN amount_cents
			WHEN type = 'expense'  AND account_id = ?1    THEN -amount_cents
			WHEN type = 'transfer' AND account_id = ?1    THEN -amount_cents
			WHEN type = 'transfer' AND to_account_id = ?1 THEN amount_cents
			ELSE 0
		END), 0)
		FROM transactions
		WHERE deleted_at IS NULL AND (account_id = ?1 OR to_account_id = ?1)`,
		accountID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum live effects for account %d: %w", accountID, err)
	}
	return sum, nil
}

const accountCols = `id, name, type, currency, balance_cents, created_at, updated_at, deleted_at`

const txCols = `id, account_id, to_account_id, amount_cents, currency, date, type,
	status, category_id, description, merchant_name, created_at, updated_at, deleted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (core.Account, error) {
	var (
		a                   core.Account
		typ                 string
		created, updated    string
		deleted             sql.NullString
	)
	if err := row.Scan(&a.ID, &a.Name, &typ, &a.Currency, &a.BalanceCents,
		&created, &updated, &deleted); err != nil {
		return core.Account{}, err
	}
	a.Type = core.AccountType(typ)

	var err error
	if a.CreatedAt, err = parseTime(created); err != nil {
		return core.Account{}, err
	}
	if a.UpdatedAt, err = parseTime(updated); err != nil {
		return core.Account{}, err
	}
	if a.DeletedAt, err = parseNullTime(deleted); err != nil {
		return core.Account{}, err
	}
	return a, nil
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t                      core.Transaction
		toAccount, category    sql.NullInt64
		typ, status            string
		date, created, updated string
		deleted                sql.NullString
	)
	if err := row.Scan(&t.ID, &t.AccountID, &toAccount, &t.AmountCents, &t.Currency,
		&date, &typ, &status, &category, &t.Description, &t.MerchantName,
		&created, &updated, &deleted); err != nil {
		return core.Transaction{}, err
	}
	t.Type = core.TransactionType(typ)
	t.Status = core.TransactionStatus(status)
	if toAccount.Valid {
		v := toAccount.Int64
		t.ToAccountID = &v
	}
	if category.Valid {
		v := category.Int64
		t.CategoryID = &v
	}

	var err error
	if t.Date, err = parseTime(date); err != nil {
		return core.Transaction{}, err
	}
	if t.CreatedAt, err = parseTime(created); err != nil {
		return core.Transaction{}, err
	}
	if t.UpdatedAt, err = parseTime(updated); err != nil {
		return core.Transaction{}, err
	}
	if t.DeletedAt, err = parseNullTime(deleted); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func scanBudget(row rowScanner) (core.Budget, error) {
	var (
		b      core.Budget
		period string
		start  string
		end    sql.NullString
	)
	if err := row.Scan(&b.ID, &b.CategoryID, &b.AmountCents, &period, &start, &end); err != nil {
		return core.Budget{}, err
	}
	b.Period = core.BudgetPeriod(period)

	var err error
	if b.StartDate, err = parseTime(start); err != nil {
		return core.Budget{}, err
	}
	if b.EndDate, err = parseNullTime(end); err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

func collectTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func nullInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

// All timestamps are stored as RFC 3339 UTC strings; lexicographic order then
// matches chronological order, which the month/year prefix filters rely on.
func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
