package rest

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"

	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/hpmalinova/Money-Ledger/config"
	"github.com/hpmalinova/Money-Ledger/contract"
	"github.com/hpmalinova/Money-Ledger/model"
)

type App struct {
	Router *mux.Router
	Ledger contract.Ledger

	Validator  *validator.Validate
	Translator ut.Translator

	Log            zerolog.Logger
	RequestTimeout time.Duration
	AllowedOrigins []string

	// Now is the server clock used for default dates.
	Now func() time.Time
}

func (a *App) Init(ledger contract.Ledger, cfg *config.Config, log zerolog.Logger) error {
	a.Ledger = ledger
	a.Log = log
	a.RequestTimeout = cfg.RequestTimeout
	a.AllowedOrigins = cfg.CORSAllowedOrigins
	if a.Now == nil {
		a.Now = time.Now
	}

	a.Validator = validator.New()
	a.Validator.RegisterTagNameFunc(jsonFieldName)
	a.Validator.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
	if err := a.Validator.RegisterValidation("cents", centsPrecision); err != nil {
		return err
	}

	eng := en.New()
	uni := ut.New(eng, eng)

	var found bool
	a.Translator, found = uni.GetTranslator("en")
	if !found {
		return errors.New("translator not found")
	}
	if err := en_translations.RegisterDefaultTranslations(a.Validator, a.Translator); err != nil {
		return err
	}
	if err := a.Validator.RegisterTranslation("cents", a.Translator, registerCents, translateCents); err != nil {
		return err
	}

	a.Router = mux.NewRouter()
	a.initializeRoutes()
	return nil
}

// Handler wraps the router with panic recovery and CORS.
func (a *App) Handler() http.Handler {
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{a.Log}),
		handlers.PrintRecoveryStack(true),
	)
	cors := handlers.CORS(
		handlers.AllowedOrigins(a.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "X-Request-ID"}),
		handlers.ExposedHeaders([]string{"X-Request-ID"}),
	)
	return cors(recovery(a.Router))
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (a *App) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      a.RequestTimeout + 5*time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Log.Info().Str("addr", addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.Log.Info().Msg("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *App) initializeRoutes() {
	a.Router.Use(a.requestContext)

	a.Router.HandleFunc("/", a.home).Methods(http.MethodGet)

	s := a.Router.PathPrefix("/api").Subrouter()
	s.HandleFunc("/test-db", a.testDB).Methods(http.MethodGet)
	s.HandleFunc("/cuentas", a.getAccounts).Methods(http.MethodGet)
	s.HandleFunc("/categorias", a.getCategories).Methods(http.MethodGet)
	s.HandleFunc("/transaccion", a.recordTransaction).Methods(http.MethodPost)
	s.HandleFunc("/transaccion/transferencia", a.transfer).Methods(http.MethodPost)
	s.HandleFunc("/deuda/pago", a.payDebt).Methods(http.MethodPost)
	s.HandleFunc("/deudas", a.getActiveDebts).Methods(http.MethodGet)
	s.HandleFunc("/dashboard/gastos_categoria", a.getExpensesByCategory).Methods(http.MethodGet)
}

// jsonFieldName makes validation errors name fields the way clients send them.
func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

func decimalValue(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		f, _ := d.Float64()
		return f
	}
	return nil
}

// centsPrecision rejects amounts with more decimal places than the store keeps.
// Decimals reach it as float64 through decimalValue.
func centsPrecision(fl validator.FieldLevel) bool {
	switch v := fl.Field().Interface().(type) {
	case float64:
		return model.FitsMoneyScale(decimal.NewFromFloat(v))
	case decimal.Decimal:
		return model.FitsMoneyScale(v)
	}
	return false
}

func registerCents(trans ut.Translator) error {
	return trans.Add("cents", "{0} must have at most {1} decimal places", true)
}

func translateCents(trans ut.Translator, fe validator.FieldError) string {
	msg, err := trans.T("cents", fe.Field(), strconv.Itoa(model.MoneyPlaces))
	if err != nil {
		return fe.Error()
	}
	return msg
}

type recoveryLogger struct {
	log zerolog.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.log.Error().Interface("panic", v).Msg("recovered from panic")
}
