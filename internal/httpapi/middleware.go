package httpapi

import (
	"net/http"
	"time"

	"github.com/erauner12/shopnow-proxy/internal/proxy"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// CorrelationHeader carries the request ID from the browser through to Salesforce
const CorrelationHeader = "X-Correlation-ID"

// CorrelationMiddleware reads X-Correlation-ID (or generates one) and adds it to context.
// This allows correlation of the inbound call with the upstream request and its logs.
func CorrelationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get(CorrelationHeader)
		if correlationID == "" {
			correlationID = uuid.New().String()
		}
		w.Header().Set(CorrelationHeader, correlationID)

		// Add to context for the proxy
		ctx := proxy.WithCorrelationID(r.Context(), correlationID)

		// Add to logger context for all logs in this request
		logger := log.With().Str("correlationId", correlationID).Logger()
		r = r.WithContext(logger.WithContext(ctx))

		next.ServeHTTP(w, r)
	})
}

// RequestLogger logs one line per request with status and duration
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		log.Ctx(r.Context()).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("request completed")
	})
}
