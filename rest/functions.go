package rest

import (
	"fmt"
	"net/http"

	"github.com/hpmalinova/Money-Ledger/contract"
	"github.com/hpmalinova/Money-Ledger/model"
)

const (
	welcomeMessage     = "Bienvenido a la API de Finanzas Personales"
	transferMessage    = "Transferencia registrada con éxito"
	transactionMessage = "Transacción registrada con éxito"
	debtPaymentMessage = "Pago de deuda registrado con éxito"
)

func (a *App) home(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, model.Message{Message: welcomeMessage})
}

func (a *App) testDB(w http.ResponseWriter, r *http.Request) {
	if err := a.Ledger.Ping(r.Context()); err != nil {
		respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"mensaje": "Conexión a la base de datos exitosa",
	})
}

// Accounts //

func (a *App) getAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := a.Ledger.Accounts(r.Context())
	if err != nil {
		respondWithDomainError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, accounts)
}

// Categories //

func (a *App) getCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := a.Ledger.Categories(r.Context())
	if err != nil {
		respondWithDomainError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, categories)
}

// Transactions //

// I move 100 from checking (1) to savings (2)
// r.Body: {"id_cuenta_origen": 1, "id_cuenta_destino": 2, "monto": 100, "fecha": "2024-03-01"}
func (a *App) transfer(w http.ResponseWriter, r *http.Request) {
	t := &model.Transfer{}
	if !decode(w, r, t) {
		return
	}
	// same-account wins over any amount problem
	if t.SourceAccountID > 0 && t.SameAccount() {
		respondWithDomainError(w, r, fmt.Errorf("%w (account %d)", contract.ErrSameAccount, t.SourceAccountID))
		return
	}
	if !a.validate(w, t) {
		return
	}
	t.Date = t.Date.OrToday(a.Now())

	if err := a.Ledger.Transfer(r.Context(), t); err != nil {
		respondWithDomainError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, model.Message{Message: transferMessage})
}

// I spent 42.10 on FOOD (5) from checking (1)
// r.Body: {"id_cuenta": 1, "id_categoria": 5, "monto": -42.10, "descripcion": "Supermercado"}
func (a *App) recordTransaction(w http.ResponseWriter, r *http.Request) {
	e := &model.Entry{}
	if !a.decodeAndValidate(w, r, e) {
		return
	}
	e.Date = e.Date.OrToday(a.Now())

	if err := a.Ledger.Record(r.Context(), e); err != nil {
		respondWithDomainError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, model.Message{Message: transactionMessage})
}

// Debts //

// r.Body: {"id_cuenta": 1, "id_deuda": 3, "monto": 30}
func (a *App) payDebt(w http.ResponseWriter, r *http.Request) {
	p := &model.DebtPayment{}
	if !a.decodeAndValidate(w, r, p) {
		return
	}
	p.Date = p.Date.OrToday(a.Now())

	remaining, err := a.Ledger.PayDebt(r.Context(), p)
	if err != nil {
		respondWithDomainError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, model.DebtPaymentResult{
		Message:   debtPaymentMessage,
		Remaining: remaining,
	})
}

func (a *App) getActiveDebts(w http.ResponseWriter, r *http.Request) {
	debts, err := a.Ledger.ActiveDebts(r.Context())
	if err != nil {
		respondWithDomainError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, debts)
}

// Dashboard //

func (a *App) getExpensesByCategory(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	if !a.validate(w, period) {
		return
	}

	expenses, err := a.Ledger.ExpensesByCategory(r.Context(), period.Month, period.Year)
	if err != nil {
		respondWithDomainError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, expenses)
}
