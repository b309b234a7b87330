package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hpmalinova/Money-Ledger/contract"
	"github.com/hpmalinova/Money-Ledger/logger"
	"github.com/hpmalinova/Money-Ledger/model"
	"github.com/shopspring/decimal"
)

const debtPaymentDescription = "Pago de deuda"

// PayDebt records the outflow and lowers the debt's remaining amount in
// one scope. The debt row stays locked from the read until commit, so
// concurrent payments against the same debt apply one after the other.
func (e *Engine) PayDebt(ctx context.Context, p *model.DebtPayment) (decimal.Decimal, error) {
	if !p.Amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: payment amount must be positive", contract.ErrValidation)
	}
	if err := checkScale(p.Amount); err != nil {
		return decimal.Zero, err
	}

	var before, after decimal.Decimal
	err := e.gw.WithTransaction(ctx, func(tx contract.Tx) error {
		statement := "SELECT monto_restante FROM deudas WHERE id = ? FOR UPDATE"
		err := tx.QueryRowContext(ctx, statement, p.DebtID).Scan(&before)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: debt %d", contract.ErrNotFound, p.DebtID)
		}
		if err != nil {
			return err
		}

		debtID := p.DebtID
		payment := model.Transaction{
			Date:        p.Date.OrToday(e.now()),
			Description: debtPaymentDescription,
			Amount:      p.Amount.Neg(),
			AccountID:   p.AccountID,
			DebtID:      &debtID,
			Kind:        model.KindDebtPayment,
		}
		if err := insertTransaction(ctx, tx, &payment); err != nil {
			return err
		}

		statement = "UPDATE deudas SET monto_restante = GREATEST(0, monto_restante - ?) WHERE id = ?"
		if _, err := tx.ExecContext(ctx, statement, p.Amount, p.DebtID); err != nil {
			return err
		}

		after = remainingAfter(before, p.Amount)
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	log := logger.FromContext(ctx)
	event := log.Info().
		Int("id_deuda", p.DebtID).
		Str("monto", p.Amount.String()).
		Str("monto_restante", after.String())
	if excess := p.Amount.Sub(before); excess.IsPositive() {
		event = event.Str("excedente", excess.String())
	}
	event.Msg("debt payment recorded")

	return after, nil
}

// remainingAfter floors the outstanding amount at zero. Overpayment is
// absorbed, never carried as credit.
func remainingAfter(remaining, paid decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, remaining.Sub(paid))
}

func (e *Engine) ActiveDebts(ctx context.Context) ([]model.Debt, error) {
	statement := `SELECT id, nombre, monto_total, monto_restante, fecha_inicio, id_cuenta_asociada
					FROM deudas
					WHERE monto_restante > 0
					ORDER BY monto_restante DESC, id`

	debts := []model.Debt{}
	err := e.gw.WithSnapshot(ctx, func(tx contract.Tx) error {
		rows, err := tx.QueryContext(ctx, statement)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				debt      model.Debt
				startDate time.Time
				accountID sql.NullInt64
			)
			err := rows.Scan(&debt.ID, &debt.Name, &debt.TotalAmount, &debt.RemainingAmount, &startDate, &accountID)
			if err != nil {
				return err
			}
			debt.StartDate = model.NewDate(startDate)
			if accountID.Valid {
				id := int(accountID.Int64)
				debt.AccountID = &id
			}
			debts = append(debts, debt)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return debts, nil
}
