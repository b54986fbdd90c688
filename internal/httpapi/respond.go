package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// writeRaw relays an already-encoded JSON body unchanged
func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

// proxyError is the body for failures that happen on our side of the proxy
type proxyError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, errLabel string, err error) {
	log.Ctx(r.Context()).Error().Err(err).Int("status", status).Msg(errLabel)
	writeJSON(w, status, proxyError{Error: errLabel, Message: err.Error()})
}
