package model

import "github.com/shopspring/decimal"

// Debt is a row of deudas. RemainingAmount is stored, not derived.
type Debt struct {
	ID              int             `json:"id"`
	Name            string          `json:"nombre"`
	TotalAmount     decimal.Decimal `json:"monto_total"`
	RemainingAmount decimal.Decimal `json:"monto_restante"`
	StartDate       Date            `json:"fecha_inicio"`
	AccountID       *int            `json:"id_cuenta_asociada"`
}

func (d Debt) Active() bool {
	return d.RemainingAmount.IsPositive()
}

// I've paid 30 of the "Car loan" from my checking account
type DebtPayment struct {
	AccountID int             `json:"id_cuenta" validate:"required,gt=0"`
	DebtID    int             `json:"id_deuda" validate:"required,gt=0"`
	Amount    decimal.Decimal `json:"monto" validate:"required,gt=0,cents"`
	Date      Date            `json:"fecha"`
}

type DebtPaymentResult struct {
	Message   string          `json:"mensaje"`
	Remaining decimal.Decimal `json:"monto_restante_actual"`
}
