package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/erauner12/shopnow-proxy/internal/proxy"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// offlineHeader tells the browser it is looking at canned data
const offlineHeader = "X-Proxy-Mode"

// maxBodyBytes caps inbound request bodies
const maxBodyBytes = 1 << 20

type resolveReq struct {
	Action string `json:"action"`
}

// PendingDuplicates handles GET /duplicates/pending
// Forwards to /services/apexrest/duplicates/pending with the query string untouched
func (s *Server) PendingDuplicates(w http.ResponseWriter, r *http.Request) {
	s.forward(w, r, proxy.Request{
		Method:   http.MethodGet,
		Path:     "/pending",
		RawQuery: r.URL.RawQuery,
	})
}

// ResolveDuplicate handles POST /duplicates/{id}/resolve
// Body: {"action": "merge" | "ignore"}
func (s *Server) ResolveDuplicate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	logger := log.Ctx(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		logger.Warn().Err(err).Msg("failed to read resolve request body")
		writeJSON(w, http.StatusBadRequest, proxy.ResolveResult{Message: "could not read request body"})
		return
	}

	var req resolveReq
	if err := json.Unmarshal(body, &req); err != nil {
		logger.Warn().Err(err).Msg("invalid resolve request body")
		writeJSON(w, http.StatusBadRequest, proxy.ResolveResult{Message: "invalid json"})
		return
	}
	if req.Action != "merge" && req.Action != "ignore" {
		writeJSON(w, http.StatusBadRequest, proxy.ResolveResult{Message: `action must be "merge" or "ignore"`})
		return
	}

	logger.Info().Str("matchId", id).Str("action", req.Action).Msg("resolving duplicate")

	s.forward(w, r, proxy.Request{
		Method:   http.MethodPost,
		Path:     "/" + id + "/resolve",
		RawQuery: r.URL.RawQuery,
		Body:     body,
	})
}

func (s *Server) forward(w http.ResponseWriter, r *http.Request, req proxy.Request) {
	resp, err := s.Proxy.Forward(r.Context(), req)
	if err != nil {
		var invalid proxy.ErrInvalidBody
		if errors.As(err, &invalid) {
			writeError(w, r, http.StatusBadRequest, "Invalid request body", err)
			return
		}
		writeError(w, r, http.StatusInternalServerError, "Proxy request failed", err)
		return
	}

	if resp.Offline {
		w.Header().Set(offlineHeader, "offline")
	}
	writeRaw(w, resp.StatusCode, resp.Body)
}
