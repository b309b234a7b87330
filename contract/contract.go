package contract

import (
	"context"
	"database/sql"

	"github.com/hpmalinova/Money-Ledger/model"
	"github.com/shopspring/decimal"
)

// Tx is the handle a Gateway hands to a transactional scope. *sql.Tx satisfies it.
type Tx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type Gateway interface {
	// WithTransaction commits when fn returns nil and rolls back otherwise.
	WithTransaction(ctx context.Context, fn func(Tx) error) error
	// WithSnapshot runs fn in a read-only scope.
	WithSnapshot(ctx context.Context, fn func(Tx) error) error
	Ping(ctx context.Context) error
}

type Ledger interface {
	Accounts(ctx context.Context) ([]model.Account, error)
	Transfer(ctx context.Context, t *model.Transfer) error
	Record(ctx context.Context, e *model.Entry) error
	PayDebt(ctx context.Context, p *model.DebtPayment) (decimal.Decimal, error)
	ActiveDebts(ctx context.Context) ([]model.Debt, error)
	Categories(ctx context.Context) ([]model.Category, error)
	ExpensesByCategory(ctx context.Context, month, year int) ([]model.CategoryExpense, error)
	Ping(ctx context.Context) error
}
