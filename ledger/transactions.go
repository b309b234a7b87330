package ledger

import (
	"context"
	"fmt"

	"github.com/hpmalinova/Money-Ledger/contract"
	"github.com/hpmalinova/Money-Ledger/logger"
	"github.com/hpmalinova/Money-Ledger/model"
)

const (
	transferOutDescription = "Transferencia a cuenta %d"
	transferInDescription  = "Transferencia desde cuenta %d"
)

// Transfer writes both legs of a transfer pair or neither.
func (e *Engine) Transfer(ctx context.Context, t *model.Transfer) error {
	if t.SameAccount() {
		return fmt.Errorf("%w (account %d)", contract.ErrSameAccount, t.SourceAccountID)
	}
	if !t.Amount.IsPositive() {
		return fmt.Errorf("%w: transfer amount must be positive", contract.ErrValidation)
	}
	if err := checkScale(t.Amount); err != nil {
		return err
	}

	date := t.Date.OrToday(e.now())
	legs := transferLegs(t, date)

	err := e.gw.WithTransaction(ctx, func(tx contract.Tx) error {
		for i := range legs {
			if err := insertTransaction(ctx, tx, &legs[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log := logger.FromContext(ctx)
	log.Info().
		Int("id_cuenta_origen", t.SourceAccountID).
		Int("id_cuenta_destino", t.DestAccountID).
		Str("monto", t.Amount.String()).
		Msg("transfer recorded")
	return nil
}

// transferLegs splits a transfer into its outflow and inflow. The two
// amounts always sum to zero.
func transferLegs(t *model.Transfer, date model.Date) [2]model.Transaction {
	return [2]model.Transaction{
		{
			Date:        date,
			Description: fmt.Sprintf(transferOutDescription, t.DestAccountID),
			Amount:      t.Amount.Neg(),
			AccountID:   t.SourceAccountID,
			Kind:        model.KindTransfer,
		},
		{
			Date:        date,
			Description: fmt.Sprintf(transferInDescription, t.SourceAccountID),
			Amount:      t.Amount,
			AccountID:   t.DestAccountID,
			Kind:        model.KindTransfer,
		},
	}
}

// Record writes a single income or expense. The sign of the amount is kept as given.
func (e *Engine) Record(ctx context.Context, entry *model.Entry) error {
	if entry.Amount.IsZero() {
		return fmt.Errorf("%w: amount must not be zero", contract.ErrValidation)
	}
	if err := checkScale(entry.Amount); err != nil {
		return err
	}

	t := model.Transaction{
		Date:        entry.Date.OrToday(e.now()),
		Description: entry.Description,
		Amount:      entry.Amount,
		AccountID:   entry.AccountID,
		CategoryID:  entry.CategoryID,
		Kind:        model.KindRegular,
	}
	return e.gw.WithTransaction(ctx, func(tx contract.Tx) error {
		return insertTransaction(ctx, tx, &t)
	})
}

func insertTransaction(ctx context.Context, tx contract.Tx, t *model.Transaction) error {
	statement := "INSERT INTO transacciones(fecha, descripcion, monto, id_cuenta, id_categoria, id_deuda, es_transferencia) VALUES(?, ?, ?, ?, ?, ?, ?)"
	result, err := tx.ExecContext(ctx, statement,
		t.Date.Time, t.Description, t.Amount, t.AccountID, nullableID(t.CategoryID), nullableID(t.DebtID), t.IsTransfer())
	if err != nil {
		return err
	}

	numRows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if numRows != 1 {
		return fmt.Errorf("%w: inserting transaction affected %d rows", contract.ErrPersistence, numRows)
	}

	if id, err := result.LastInsertId(); err == nil {
		t.ID = int(id)
	}
	return nil
}

func nullableID(id *int) interface{} {
	if id == nil {
		return nil
	}
	return int64(*id)
}
