package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hpmalinova/Money-Ledger/logger"
)

const requestIDHeader = "X-Request-ID"

// requestContext bounds every request by the configured timeout and gives
// it a request-scoped logger. The ledger sees the same context, so a
// client disconnect or timeout rolls the open scope back.
func (a *App) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		log := a.Log.With().Str("request_id", requestID).Logger()
		ctx := logger.WithContext(r.Context(), log)
		if a.RequestTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, a.RequestTimeout)
			defer cancel()
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
