// Package ledger keeps account balances, transfers and debt balances
// consistent. Every operation runs inside exactly one Gateway scope.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/hpmalinova/Money-Ledger/contract"
	"github.com/hpmalinova/Money-Ledger/model"
	"github.com/shopspring/decimal"
)

type Engine struct {
	gw  contract.Gateway
	now func() time.Time
}

func NewEngine(gw contract.Gateway) *Engine {
	return &Engine{gw: gw, now: time.Now}
}

// checkScale rejects amounts the store would round to cents.
func checkScale(amount decimal.Decimal) error {
	if !model.FitsMoneyScale(amount) {
		return fmt.Errorf("%w: amount %s has more than %d decimal places", contract.ErrValidation, amount, model.MoneyPlaces)
	}
	return nil
}

func (e *Engine) Ping(ctx context.Context) error {
	return e.gw.Ping(ctx)
}

func (e *Engine) Accounts(ctx context.Context) ([]model.Account, error) {
	statement := `SELECT c.id, c.nombre, c.tipo, c.saldo_inicial + COALESCE(SUM(t.monto), 0) AS saldo_actual
					FROM cuentas AS c
					LEFT JOIN transacciones AS t
						ON t.id_cuenta = c.id
					GROUP BY c.id, c.nombre, c.tipo, c.saldo_inicial
					ORDER BY saldo_actual DESC, c.id`

	accounts := []model.Account{}
	err := e.gw.WithSnapshot(ctx, func(tx contract.Tx) error {
		rows, err := tx.QueryContext(ctx, statement)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var account model.Account
			err := rows.Scan(&account.ID, &account.Name, &account.Type, &account.CurrentBalance)
			if err != nil {
				return err
			}
			accounts = append(accounts, account)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (e *Engine) Categories(ctx context.Context) ([]model.Category, error) {
	statement := `SELECT id, nombre_categoria FROM categorias ORDER BY nombre_categoria`

	categories := []model.Category{}
	err := e.gw.WithSnapshot(ctx, func(tx contract.Tx) error {
		rows, err := tx.QueryContext(ctx, statement)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var category model.Category
			if err := rows.Scan(&category.ID, &category.Name); err != nil {
				return err
			}
			categories = append(categories, category)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return categories, nil
}
