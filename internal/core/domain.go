package core

import (
	"strings"
	"time"
)

type (
	AccountType       string
	TransactionType   string
	TransactionStatus string
	BudgetPeriod      string
)

const (
	AccountChecking   AccountType = "checking"
	AccountSavings    AccountType = "savings"
	AccountWallet     AccountType = "wallet"
	AccountInvestment AccountType = "investment"
	AccountCreditCard AccountType = "credit_card"
)

const (
	TypeIncome   TransactionType = "income"
	TypeExpense  TransactionType = "expense"
	TypeTransfer TransactionType = "transfer"
)

const (
	StatusPending    TransactionStatus = "pending"
	StatusCleared    TransactionStatus = "cleared"
	StatusReconciled TransactionStatus = "reconciled"
	StatusCancelled  TransactionStatus = "cancelled"
)

const (
	PeriodMonthly   BudgetPeriod = "monthly"
	PeriodQuarterly BudgetPeriod = "quarterly"
	PeriodYearly    BudgetPeriod = "yearly"
)

// Account holds a cached balance that is mutated exclusively by the ledger
// engine. Its invariant: BalanceCents equals the signed sum of the account's
// live transactions at all times.
type Account struct {
	ID           int64
	Name         string
	Type         AccountType
	Currency     string
	BalanceCents int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// Balance returns the cached balance as a Money in the account's currency.
func (a Account) Balance() Money {
	return Money{Cents: a.BalanceCents, Currency: a.Currency}
}

// IsLive reports whether the account has not been soft-deleted.
func (a Account) IsLive() bool { return a.DeletedAt == nil }

func (a Account) Validate() error {
	if len(strings.TrimSpace(a.Name)) == 0 {
		return ErrEmptyDescription
	}
	if len(a.Name) > 100 {
		return errInvalid("account name too long (max 100 characters)")
	}
	switch a.Type {
	case AccountChecking, AccountSavings, AccountWallet, AccountInvestment, AccountCreditCard:
	default:
		return errInvalid("unknown account type " + string(a.Type))
	}
	return Money{Currency: a.Currency}.Validate()
}

// Transaction is one ledger entry: an income, an expense, or a two-account
// transfer. Amounts are stored positive in minor units; the type decides the
// sign of the effect on each account.
type Transaction struct {
	ID           int64
	AccountID    int64
	ToAccountID  *int64 // set only for transfers
	AmountCents  int64  // never zero
	Currency     string
	Date         time.Time
	Type         TransactionType
	Status       TransactionStatus
	CategoryID   *int64
	Description  string
	MerchantName string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// IsLive reports whether the transaction has not been soft-deleted. Only live
// transactions contribute to balances, budgets, and analytics.
func (t Transaction) IsLive() bool { return t.DeletedAt == nil }

// Amount returns the transaction amount as a Money.
func (t Transaction) Amount() Money {
	return Money{Cents: t.AmountCents, Currency: t.Currency}
}

// SignedEffect is the balance delta this transaction contributes to the given
// account: income +amount, expense -amount, transfer -amount on the source and
// +amount on the destination. Zero for accounts the transaction doesn't touch.
func (t Transaction) SignedEffect(accountID int64) int64 {
	switch t.Type {
	case TypeIncome:
		if t.AccountID == accountID {
			return t.AmountCents
		}
	case TypeExpense:
		if t.AccountID == accountID {
			return -t.AmountCents
		}
	case TypeTransfer:
		if t.AccountID == accountID {
			return -t.AmountCents
		}
		if t.ToAccountID != nil && *t.ToAccountID == accountID {
			return t.AmountCents
		}
	}
	return 0
}

func (t Transaction) Validate() error {
	if t.AmountCents == 0 {
		return ErrInvalidAmount
	}
	if err := (Money{Currency: t.Currency}).Validate(); err != nil {
		return err
	}
	if t.Date.IsZero() {
		return errInvalid("date cannot be zero")
	}
	switch t.Type {
	case TypeIncome, TypeExpense:
		if t.ToAccountID != nil {
			return errInvalid("destination account is only valid for transfers")
		}
	case TypeTransfer:
		if t.ToAccountID == nil {
			return ErrMissingTransferAccount
		}
		if *t.ToAccountID == t.AccountID {
			return ErrSelfTransfer
		}
	default:
		return errInvalid("unknown transaction type " + string(t.Type))
	}
	switch t.Status {
	case StatusPending, StatusCleared, StatusReconciled, StatusCancelled:
	default:
		return errInvalid("unknown transaction status " + string(t.Status))
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errInvalid("description too long (max 200 characters)")
	}
	return nil
}

// Budget caps spending for one category over a recurring period. Spend is a
// derived, read-only quantity computed by the reports package.
type Budget struct {
	ID          int64
	CategoryID  int64
	AmountCents int64
	Period      BudgetPeriod
	StartDate   time.Time
	EndDate     *time.Time
}

func (b Budget) Validate() error {
	if b.AmountCents < 0 {
		return ErrInvalidAmount
	}
	switch b.Period {
	case PeriodMonthly, PeriodQuarterly, PeriodYearly:
	default:
		return errInvalid("unknown budget period " + string(b.Period))
	}
	if b.StartDate.IsZero() {
		return errInvalid("budget start date cannot be zero")
	}
	if b.EndDate != nil && b.EndDate.Before(b.StartDate) {
		return errInvalid("budget end date before start date")
	}
	return nil
}
