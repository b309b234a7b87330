package model

import "github.com/shopspring/decimal"

type Category struct {
	ID   int    `json:"id"`
	Name string `json:"nombre_categoria"`
}

// CategoryExpense is the spending total of one category over a month.
type CategoryExpense struct {
	Category string          `json:"categoria"`
	Total    decimal.Decimal `json:"total"`
}

// ExpensePeriod selects the month of the expense dashboard.
// Zero values mean "current month".
type ExpensePeriod struct {
	Month int `json:"mes" validate:"omitempty,min=1,max=12"`
	Year  int `json:"anio" validate:"omitempty,min=1900,max=9999"`
}
