package httpapi

import (
	"net/http"
	"time"
)

type healthResp struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Health handles GET /health
// Independent of credential state: never touches the broker
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResp{
		Status:    "OK",
		Timestamp: s.Now().UTC().Format(time.RFC3339Nano),
	})
}
