package model

import "github.com/shopspring/decimal"

// TransactionKind tells apart the three ways a transaction is written.
// It is stored through es_transferencia and id_deuda.
type TransactionKind string

const (
	KindRegular     TransactionKind = "regular"
	KindTransfer    TransactionKind = "transfer"
	KindDebtPayment TransactionKind = "debt_payment"
)

// Transaction is a row of transacciones. Amount is signed:
// negative is an outflow, positive an inflow.
type Transaction struct {
	ID          int             `json:"id"`
	Date        Date            `json:"fecha"`
	Description string          `json:"descripcion"`
	Amount      decimal.Decimal `json:"monto"`
	AccountID   int             `json:"id_cuenta"`
	CategoryID  *int            `json:"id_categoria,omitempty"`
	DebtID      *int            `json:"id_deuda,omitempty"`
	Kind        TransactionKind `json:"-"`
}

func (t Transaction) IsTransfer() bool {
	return t.Kind == KindTransfer
}

// Money moves from SourceAccountID to DestAccountID; Amount is the magnitude.
type Transfer struct {
	SourceAccountID int             `json:"id_cuenta_origen" validate:"required,gt=0"`
	DestAccountID   int             `json:"id_cuenta_destino" validate:"required,gt=0"`
	Amount          decimal.Decimal `json:"monto" validate:"required,gt=0,cents"`
	Date            Date            `json:"fecha"`
}

func (t *Transfer) SameAccount() bool {
	return t.SourceAccountID == t.DestAccountID
}

// Entry is an income (positive Amount) or an expense (negative Amount).
type Entry struct {
	AccountID   int             `json:"id_cuenta" validate:"required,gt=0"`
	CategoryID  *int            `json:"id_categoria" validate:"omitempty,gt=0"`
	Amount      decimal.Decimal `json:"monto" validate:"required,cents"`
	Description string          `json:"descripcion" validate:"required,max=255"`
	Date        Date            `json:"fecha"`
}

type Message struct {
	Message string `json:"mensaje"`
}

type ErrorResponse struct {
	Error  string            `json:"error"`
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields,omitempty"`
}
