package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/hpmalinova/Money-Ledger/contract"
	"github.com/hpmalinova/Money-Ledger/model"
)

// ExpensesByCategory sums the outflows of one month per category.
// Uncategorized outflows are left out. A zero month or year selects the
// current month.
func (e *Engine) ExpensesByCategory(ctx context.Context, month, year int) ([]model.CategoryExpense, error) {
	from, to, err := monthRange(month, year, e.now())
	if err != nil {
		return nil, err
	}

	statement := `SELECT c.nombre_categoria, SUM(ABS(t.monto)) AS total
					FROM transacciones AS t
					INNER JOIN categorias AS c
						ON c.id = t.id_categoria
					WHERE t.monto < 0 AND t.fecha >= ? AND t.fecha < ?
					GROUP BY c.nombre_categoria
					ORDER BY total DESC, c.nombre_categoria`

	expenses := []model.CategoryExpense{}
	err = e.gw.WithSnapshot(ctx, func(tx contract.Tx) error {
		rows, err := tx.QueryContext(ctx, statement, from, to)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var expense model.CategoryExpense
			if err := rows.Scan(&expense.Category, &expense.Total); err != nil {
				return err
			}
			expenses = append(expenses, expense)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return expenses, nil
}

// monthRange returns [first day of month, first day of next month).
func monthRange(month, year int, now time.Time) (time.Time, time.Time, error) {
	if month == 0 || year == 0 {
		month, year = int(now.Month()), now.Year()
	}
	if month < 1 || month > 12 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: month %d out of range", contract.ErrValidation, month)
	}
	if year < 1 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: year %d out of range", contract.ErrValidation, year)
	}

	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0), nil
}
