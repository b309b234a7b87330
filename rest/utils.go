package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hpmalinova/Money-Ledger/contract"
	"github.com/hpmalinova/Money-Ledger/logger"
	"github.com/hpmalinova/Money-Ledger/model"
)

// Stable error classifications returned in the "error" field.
const (
	codeValidation       = "validation_error"
	codeInvalidOperation = "invalid_operation"
	codeNotFound         = "not_found"
	codePersistence      = "persistence_failure"
)

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, class, detail string) {
	respondWithJSON(w, code, model.ErrorResponse{Error: class, Detail: detail})
}

func respondWithValidationError(fields validator.ValidationErrorsTranslations, w http.ResponseWriter) {
	errs := make(map[string]string, len(fields))
	messages := make([]string, 0, len(fields))
	for namespace, msg := range fields {
		// "Transfer.monto" -> "monto"
		field := namespace[strings.IndexByte(namespace, '.')+1:]
		errs[field] = msg
		messages = append(messages, msg)
	}
	sort.Strings(messages)
	respondWithJSON(w, http.StatusUnprocessableEntity, model.ErrorResponse{
		Error:  codeValidation,
		Detail: strings.Join(messages, "; "),
		Fields: errs,
	})
}

// respondWithDomainError maps the ledger error taxonomy to status codes.
func respondWithDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, contract.ErrValidation):
		respondWithError(w, http.StatusUnprocessableEntity, codeValidation, err.Error())
	case errors.Is(err, contract.ErrInvalidOperation):
		respondWithError(w, http.StatusBadRequest, codeInvalidOperation, err.Error())
	case errors.Is(err, contract.ErrNotFound):
		respondWithError(w, http.StatusNotFound, codeNotFound, err.Error())
	default:
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("path", r.URL.Path).Msg("ledger operation failed")
		respondWithError(w, http.StatusInternalServerError, codePersistence, err.Error())
	}
}

// decodeAndValidate reads a JSON body into dst and runs the struct tags.
// It writes the error response itself and reports whether to continue.
func (a *App) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	return decode(w, r, dst) && a.validate(w, dst)
}

func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, codeValidation, "Invalid request payload: "+err.Error())
		return false
	}
	return true
}

func (a *App) validate(w http.ResponseWriter, v interface{}) bool {
	err := a.Validator.Struct(v)
	if err == nil {
		return true
	}

	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		// translate all error at once
		respondWithValidationError(errs.Translate(a.Translator), w)
		return false
	}
	respondWithError(w, http.StatusBadRequest, codeValidation, err.Error())
	return false
}

// parsePeriod reads ?mes=&anio=. Unless both are given the period is left
// empty, which the ledger reads as the current month.
func parsePeriod(r *http.Request) (*model.ExpensePeriod, error) {
	period := &model.ExpensePeriod{}

	var err error
	if v := r.FormValue("mes"); v != "" {
		if period.Month, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("invalid request mes parameter %q", v)
		}
	}
	if v := r.FormValue("anio"); v != "" {
		if period.Year, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("invalid request anio parameter %q", v)
		}
	}
	if period.Month == 0 || period.Year == 0 {
		return &model.ExpensePeriod{}, nil
	}
	return period, nil
}
