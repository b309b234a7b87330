package model

import "github.com/shopspring/decimal"

func init() {
	// amounts travel as JSON numbers, not strings
	decimal.MarshalJSONWithoutQuotes = true
}

// MoneyPlaces is the scale of every amount column.
const MoneyPlaces = 2

// FitsMoneyScale reports whether d can be stored without rounding.
func FitsMoneyScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MoneyPlaces))
}

// Account is a row of cuentas with its balance folded from transacciones.
type Account struct {
	ID             int             `json:"id"`
	Name           string          `json:"nombre"`
	Type           string          `json:"tipo"`
	CurrentBalance decimal.Decimal `json:"saldo_actual"`
}
