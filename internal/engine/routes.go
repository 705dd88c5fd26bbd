package engine

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the analytics query endpoint on the given router.
func RegisterRoutes(r chi.Router, eng *Engine, defaultClientID string) {
	r.Post("/api/analytics/query", queryHandler(eng, defaultClientID))
}

func queryHandler(eng *Engine, defaultClientID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TurnRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
			return
		}
		if req.ClientID == "" {
			req.ClientID = defaultClientID
		}
		if req.ClientID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "client_id is required"})
			return
		}

		result, err := eng.RunTurn(r.Context(), req)
		if err != nil {
			var qe *QueryError
			if errors.As(err, &qe) {
				writeJSON(w, http.StatusBadGateway, map[string]any{
					"error":       qe.UserMessage(),
					"suggestions": qe.Suggestions(),
				})
				return
			}
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}

		status := http.StatusOK
		if !result.Valid {
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, result)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
