package ledger

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/hpmalinova/Money-Ledger/contract"
	"github.com/hpmalinova/Money-Ledger/model"
	"github.com/hpmalinova/Money-Ledger/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)

const insertTransactionQuery = "INSERT INTO transacciones(fecha, descripcion, monto, id_cuenta, id_categoria, id_deuda, es_transferencia) VALUES(?, ?, ?, ?, ?, ?, ?)"

func newTestEngine(t *testing.T) (*Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	e := NewEngine(repository.NewGateway(db))
	e.now = func() time.Time { return fixedNow }
	return e, mock
}

// decimalArg matches a decimal argument regardless of its textual scale.
type decimalArg string

func (a decimalArg) Match(v driver.Value) bool {
	var got decimal.Decimal
	if err := got.Scan(v); err != nil {
		return false
	}
	return got.Equal(decimal.RequireFromString(string(a)))
}

type dayArg string

func (a dayArg) Match(v driver.Value) bool {
	got, ok := v.(time.Time)
	return ok && got.Format(model.DateLayout) == string(a)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestEngine_Accounts(t *testing.T) {
	query := regexp.QuoteMeta("SELECT c.id, c.nombre, c.tipo, c.saldo_inicial + COALESCE(SUM(t.monto), 0) AS saldo_actual")

	t.Run("have accounts", func(t *testing.T) {
		e, mock := newTestEngine(t)
		rows := sqlmock.NewRows([]string{"id", "nombre", "tipo", "saldo_actual"}).
			AddRow(2, "Ahorros", "savings", "1500.00").
			AddRow(1, "Nómina", "checking", "320.50").
			AddRow(3, "Efectivo", "cash", "0.00")

		mock.ExpectBegin()
		mock.ExpectQuery(query).WillReturnRows(rows)
		mock.ExpectCommit()

		accounts, err := e.Accounts(context.Background())
		require.NoError(t, err)
		require.Len(t, accounts, 3)
		assert.Equal(t, "Ahorros", accounts[0].Name)
		assert.True(t, dec("1500").Equal(accounts[0].CurrentBalance))
		assert.True(t, dec("320.5").Equal(accounts[1].CurrentBalance))
		assert.True(t, accounts[2].CurrentBalance.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	t.Run("no accounts", func(t *testing.T) {
		e, mock := newTestEngine(t)
		mock.ExpectBegin()
		mock.ExpectQuery(query).WillReturnRows(sqlmock.NewRows([]string{"id", "nombre", "tipo", "saldo_actual"}))
		mock.ExpectCommit()

		accounts, err := e.Accounts(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, accounts)
		assert.Empty(t, accounts)
	})
	t.Run("store failure", func(t *testing.T) {
		e, mock := newTestEngine(t)
		mock.ExpectBegin()
		mock.ExpectQuery(query).WillReturnError(errors.New("server has gone away"))
		mock.ExpectRollback()

		accounts, err := e.Accounts(context.Background())
		assert.Nil(t, accounts)
		assert.ErrorIs(t, err, contract.ErrPersistence)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEngine_Transfer(t *testing.T) {
	date, err := model.ParseDate("2024-03-01")
	require.NoError(t, err)

	t.Run("writes both legs", func(t *testing.T) {
		e, mock := newTestEngine(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(insertTransactionQuery)).
			WithArgs(dayArg("2024-03-01"), "Transferencia a cuenta 2", decimalArg("-100"), 1, nil, nil, true).
			WillReturnResult(sqlmock.NewResult(10, 1))
		mock.ExpectExec(regexp.QuoteMeta(insertTransactionQuery)).
			WithArgs(dayArg("2024-03-01"), "Transferencia desde cuenta 1", decimalArg("100"), 2, nil, nil, true).
			WillReturnResult(sqlmock.NewResult(11, 1))
		mock.ExpectCommit()

		err := e.Transfer(context.Background(), &model.Transfer{
			SourceAccountID: 1,
			DestAccountID:   2,
			Amount:          dec("100"),
			Date:            date,
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	t.Run("defaults to today", func(t *testing.T) {
		e, mock := newTestEngine(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(insertTransactionQuery)).
			WithArgs(dayArg("2024-03-15"), sqlmock.AnyArg(), decimalArg("-25.5"), 3, nil, nil, true).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(regexp.QuoteMeta(insertTransactionQuery)).
			WithArgs(dayArg("2024-03-15"), sqlmock.AnyArg(), decimalArg("25.5"), 4, nil, nil, true).
			WillReturnResult(sqlmock.NewResult(2, 1))
		mock.ExpectCommit()

		err := e.Transfer(context.Background(), &model.Transfer{SourceAccountID: 3, DestAccountID: 4, Amount: dec("25.50")})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	t.Run("same account never touches the store", func(t *testing.T) {
		for _, amount := range []string{"100", "0", "-5"} {
			e, mock := newTestEngine(t)

			err := e.Transfer(context.Background(), &model.Transfer{SourceAccountID: 7, DestAccountID: 7, Amount: dec(amount)})
			assert.ErrorIs(t, err, contract.ErrSameAccount)
			assert.ErrorIs(t, err, contract.ErrInvalidOperation)
			assert.NoError(t, mock.ExpectationsWereMet())
		}
	})
	t.Run("non positive amount", func(t *testing.T) {
		e, mock := newTestEngine(t)

		err := e.Transfer(context.Background(), &model.Transfer{SourceAccountID: 1, DestAccountID: 2, Amount: dec("-10")})
		assert.ErrorIs(t, err, contract.ErrValidation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	t.Run("fractions of a cent", func(t *testing.T) {
		e, mock := newTestEngine(t)

		err := e.Transfer(context.Background(), &model.Transfer{SourceAccountID: 1, DestAccountID: 2, Amount: dec("0.004")})
		assert.ErrorIs(t, err, contract.ErrValidation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	t.Run("failure on second leg rolls back the first", func(t *testing.T) {
		e, mock := newTestEngine(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(insertTransactionQuery)).WillReturnResult(sqlmock.NewResult(10, 1))
		mock.ExpectExec(regexp.QuoteMeta(insertTransactionQuery)).
			WillReturnError(&mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"})
		mock.ExpectRollback()

		err := e.Transfer(context.Background(), &model.Transfer{SourceAccountID: 1, DestAccountID: 99, Amount: dec("100")})
		assert.ErrorIs(t, err, contract.ErrReferentialViolation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransferLegs(t *testing.T) {
	day := model.NewDate(fixedNow)
	for _, amount := range []string{"100", "0.01", "123456.78"} {
		legs := transferLegs(&model.Transfer{SourceAccountID: 1, DestAccountID: 2, Amount: dec(amount)}, day)

		assert.True(t, legs[0].Amount.Add(legs[1].Amount).IsZero(), "legs of %s must net to zero", amount)
		assert.True(t, legs[0].Amount.IsNegative())
		assert.Equal(t, 1, legs[0].AccountID)
		assert.Equal(t, 2, legs[1].AccountID)
		assert.Contains(t, legs[0].Description, "2")
		assert.Contains(t, legs[1].Description, "1")
		assert.True(t, legs[0].IsTransfer())
		assert.True(t, legs[1].IsTransfer())
	}
}

func TestEngine_Record(t *testing.T) {
	date, err := model.ParseDate("2024-02-29")
	require.NoError(t, err)

	t.Run("expense with category", func(t *testing.T) {
		e, mock := newTestEngine(t)
		categoryID := 5
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(insertTransactionQuery)).
			WithArgs(dayArg("2024-02-29"), "Supermercado", decimalArg("-42.10"), 1, 5, nil, false).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		err := e.Record(context.Background(), &model.Entry{
			AccountID:   1,
			CategoryID:  &categoryID,
			Amount:      dec("-42.10"),
			Description: "Supermercado",
			Date:        date,
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	t.Run("income without category keeps its sign", func(t *testing.T) {
		e, mock := newTestEngine(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(insertTransactionQuery)).
			WithArgs(dayArg("2024-03-15"), "Nómina", decimalArg("2500"), 1, nil, nil, false).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		err := e.Record(context.Background(), &model.Entry{AccountID: 1, Amount: dec("2500"), Description: "Nómina"})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	t.Run("unknown account", func(t *testing.T) {
		e, mock := newTestEngine(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(insertTransactionQuery)).
			WillReturnError(&mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"})
		mock.ExpectRollback()

		err := e.Record(context.Background(), &model.Entry{AccountID: 404, Amount: dec("-1"), Description: "x"})
		assert.ErrorIs(t, err, contract.ErrReferentialViolation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	t.Run("zero amount", func(t *testing.T) {
		e, mock := newTestEngine(t)
		err := e.Record(context.Background(), &model.Entry{AccountID: 1, Amount: decimal.Zero, Description: "x"})
		assert.ErrorIs(t, err, contract.ErrValidation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	t.Run("amount that rounds to zero cents", func(t *testing.T) {
		e, mock := newTestEngine(t)
		err := e.Record(context.Background(), &model.Entry{AccountID: 1, Amount: dec("-0.004"), Description: "x"})
		assert.ErrorIs(t, err, contract.ErrValidation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	t.Run("insert affecting no rows", func(t *testing.T) {
		e, mock := newTestEngine(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(insertTransactionQuery)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := e.Record(context.Background(), &model.Entry{AccountID: 1, Amount: dec("-1"), Description: "x"})
		assert.ErrorIs(t, err, contract.ErrPersistence)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEngine_PayDebt(t *testing.T) {
	lockQuery := regexp.QuoteMeta("SELECT monto_restante FROM deudas WHERE id = ? FOR UPDATE")
	updateQuery := regexp.QuoteMeta("UPDATE deudas SET monto_restante = GREATEST(0, monto_restante - ?) WHERE id = ?")

	t.Run("partial payment", func(t *testing.T) {
		e, mock := newTestEngine(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(9).
			WillReturnRows(sqlmock.NewRows([]string{"monto_restante"}).AddRow("100.00"))
		mock.ExpectExec(regexp.QuoteMeta(insertTransactionQuery)).
			WithArgs(dayArg("2024-03-15"), "Pago de deuda", decimalArg("-30"), 1, nil, 9, false).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(updateQuery).WithArgs(decimalArg("30"), 9).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		remaining, err := e.PayDebt(context.Background(), &model.DebtPayment{AccountID: 1, DebtID: 9, Amount: dec("30")})
		require.NoError(t, err)
		assert.True(t, dec("70").Equal(remaining), "got %s", remaining)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	t.Run("overpayment is clamped to zero", func(t *testing.T) {
		e, mock := newTestEngine(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(9).
			WillReturnRows(sqlmock.NewRows([]string{"monto_restante"}).AddRow("50.00"))
		mock.ExpectExec(regexp.QuoteMeta(insertTransactionQuery)).
			WithArgs(sqlmock.AnyArg(), "Pago de deuda", decimalArg("-80"), 1, nil, 9, false).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(updateQuery).WithArgs(decimalArg("80"), 9).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		remaining, err := e.PayDebt(context.Background(), &model.DebtPayment{AccountID: 1, DebtID: 9, Amount: dec("80")})
		require.NoError(t, err)
		assert.True(t, remaining.IsZero(), "got %s", remaining)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	t.Run("unknown debt writes nothing", func(t *testing.T) {
		e, mock := newTestEngine(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(404).WillReturnRows(sqlmock.NewRows([]string{"monto_restante"}))
		mock.ExpectRollback()

		_, err := e.PayDebt(context.Background(), &model.DebtPayment{AccountID: 1, DebtID: 404, Amount: dec("10")})
		assert.ErrorIs(t, err, contract.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	t.Run("failed update rolls back the payment row", func(t *testing.T) {
		e, mock := newTestEngine(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(9).
			WillReturnRows(sqlmock.NewRows([]string{"monto_restante"}).AddRow("100.00"))
		mock.ExpectExec(regexp.QuoteMeta(insertTransactionQuery)).WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(updateQuery).WillReturnError(errors.New("lock wait timeout exceeded"))
		mock.ExpectRollback()

		_, err := e.PayDebt(context.Background(), &model.DebtPayment{AccountID: 1, DebtID: 9, Amount: dec("10")})
		assert.ErrorIs(t, err, contract.ErrPersistence)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	t.Run("non positive amount", func(t *testing.T) {
		e, mock := newTestEngine(t)
		_, err := e.PayDebt(context.Background(), &model.DebtPayment{AccountID: 1, DebtID: 9, Amount: dec("0")})
		assert.ErrorIs(t, err, contract.ErrValidation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	t.Run("fractions of a cent never touch the store", func(t *testing.T) {
		e, mock := newTestEngine(t)
		remaining, err := e.PayDebt(context.Background(), &model.DebtPayment{AccountID: 1, DebtID: 9, Amount: dec("0.004")})
		assert.ErrorIs(t, err, contract.ErrValidation)
		assert.True(t, remaining.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRemainingAfter(t *testing.T) {
	tests := []struct {
		name      string
		remaining string
		paid      string
		want      string
	}{
		{name: "partial", remaining: "100", paid: "30", want: "70"},
		{name: "exact", remaining: "50", paid: "50", want: "0"},
		{name: "overpayment", remaining: "50", paid: "80", want: "0"},
		{name: "already settled", remaining: "0", paid: "10", want: "0"},
		{name: "cents", remaining: "10.05", paid: "0.10", want: "9.95"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := remainingAfter(dec(tt.remaining), dec(tt.paid))
			assert.True(t, dec(tt.want).Equal(got), "got %s", got)
			assert.False(t, got.IsNegative())
		})
	}

	t.Run("payments applied in turn", func(t *testing.T) {
		remaining := dec("100")
		for _, paid := range []string{"30", "30"} {
			remaining = remainingAfter(remaining, dec(paid))
		}
		assert.True(t, dec("40").Equal(remaining), "got %s", remaining)
	})
}

func TestEngine_ActiveDebts(t *testing.T) {
	query := regexp.QuoteMeta("SELECT id, nombre, monto_total, monto_restante, fecha_inicio, id_cuenta_asociada")

	t.Run("have debts", func(t *testing.T) {
		e, mock := newTestEngine(t)
		start := time.Date(2023, time.November, 1, 0, 0, 0, 0, time.UTC)
		rows := sqlmock.NewRows([]string{"id", "nombre", "monto_total", "monto_restante", "fecha_inicio", "id_cuenta_asociada"}).
			AddRow(1, "Préstamo coche", "5000.00", "1200.00", start, 2).
			AddRow(2, "Tarjeta", "300.00", "45.00", start, nil)

		mock.ExpectBegin()
		mock.ExpectQuery(query + ".*WHERE monto_restante > 0").WillReturnRows(rows)
		mock.ExpectCommit()

		debts, err := e.ActiveDebts(context.Background())
		require.NoError(t, err)
		require.Len(t, debts, 2)
		assert.Equal(t, "Préstamo coche", debts[0].Name)
		assert.Equal(t, "2023-11-01", debts[0].StartDate.String())
		require.NotNil(t, debts[0].AccountID)
		assert.Equal(t, 2, *debts[0].AccountID)
		assert.Nil(t, debts[1].AccountID)
		for _, d := range debts {
			assert.True(t, d.Active())
		}
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	t.Run("no debts", func(t *testing.T) {
		e, mock := newTestEngine(t)
		mock.ExpectBegin()
		mock.ExpectQuery(query).WillReturnRows(sqlmock.NewRows([]string{"id", "nombre", "monto_total", "monto_restante", "fecha_inicio", "id_cuenta_asociada"}))
		mock.ExpectCommit()

		debts, err := e.ActiveDebts(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, debts)
		assert.Empty(t, debts)
	})
}

func TestEngine_ExpensesByCategory(t *testing.T) {
	query := regexp.QuoteMeta("SELECT c.nombre_categoria, SUM(ABS(t.monto)) AS total")

	t.Run("given month", func(t *testing.T) {
		e, mock := newTestEngine(t)
		rows := sqlmock.NewRows([]string{"nombre_categoria", "total"}).
			AddRow("Comida", "420.30").
			AddRow("Transporte", "80.00")

		mock.ExpectBegin()
		mock.ExpectQuery(query+".*INNER JOIN categorias.*WHERE t.monto < 0").
			WithArgs(dayArg("2024-03-01"), dayArg("2024-04-01")).
			WillReturnRows(rows)
		mock.ExpectCommit()

		expenses, err := e.ExpensesByCategory(context.Background(), 3, 2024)
		require.NoError(t, err)
		require.Len(t, expenses, 2)
		assert.Equal(t, "Comida", expenses[0].Category)
		assert.True(t, dec("420.3").Equal(expenses[0].Total))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	t.Run("missing month defaults to current", func(t *testing.T) {
		e, mock := newTestEngine(t)
		mock.ExpectBegin()
		mock.ExpectQuery(query).
			WithArgs(dayArg("2024-03-01"), dayArg("2024-04-01")).
			WillReturnRows(sqlmock.NewRows([]string{"nombre_categoria", "total"}))
		mock.ExpectCommit()

		expenses, err := e.ExpensesByCategory(context.Background(), 0, 2023)
		require.NoError(t, err)
		assert.Empty(t, expenses)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	t.Run("month out of range", func(t *testing.T) {
		e, mock := newTestEngine(t)
		_, err := e.ExpensesByCategory(context.Background(), 13, 2024)
		assert.ErrorIs(t, err, contract.ErrValidation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMonthRange(t *testing.T) {
	from, to, err := monthRange(12, 2024, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "2024-12-01", from.Format(model.DateLayout))
	assert.Equal(t, "2025-01-01", to.Format(model.DateLayout))

	from, to, err = monthRange(0, 0, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", from.Format(model.DateLayout))
	assert.Equal(t, "2024-04-01", to.Format(model.DateLayout))

	_, _, err = monthRange(0, -1, fixedNow)
	assert.NoError(t, err, "a missing month resets the year too")

	_, _, err = monthRange(5, -1, fixedNow)
	assert.ErrorIs(t, err, contract.ErrValidation)
}

func TestEngine_Categories(t *testing.T) {
	e, mock := newTestEngine(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, nombre_categoria FROM categorias")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "nombre_categoria"}).AddRow(1, "Comida").AddRow(2, "Ocio"))
	mock.ExpectCommit()

	categories, err := e.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.Category{{ID: 1, Name: "Comida"}, {ID: 2, Name: "Ocio"}}, categories)
	assert.NoError(t, mock.ExpectationsWereMet())
}
