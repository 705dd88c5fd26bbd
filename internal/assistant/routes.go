package assistant

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/claimlens/claimlens/internal/conversation"
	"github.com/claimlens/claimlens/internal/engine"
	"github.com/claimlens/claimlens/internal/intent"
)

// RegisterRoutes mounts the natural-language ask endpoint. A nil parser
// (no completion provider configured) leaves the endpoint unregistered;
// structured queries via the engine routes still work.
func RegisterRoutes(r chi.Router, parser *Parser, eng *engine.Engine, conversations *conversation.Store, defaultClientID string) {
	if parser == nil {
		return
	}
	r.Post("/api/analytics/ask", askHandler(parser, eng, conversations, defaultClientID))
}

type askRequest struct {
	ThreadID string `json:"thread_id,omitempty"`
	ClientID string `json:"client_id,omitempty"`
	Message  string `json:"message"`
}

type askResponse struct {
	Intent      intent.QueryIntent `json:"intent"`
	Result      *engine.TurnResult `json:"result"`
	Suggestions []string           `json:"suggestions,omitempty"`
}

func askHandler(parser *Parser, eng *engine.Engine, conversations *conversation.Store, defaultClientID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req askRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
			return
		}
		if req.Message == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
			return
		}
		if req.ClientID == "" {
			req.ClientID = defaultClientID
		}

		var history []conversation.TurnRecord
		if req.ThreadID != "" {
			if c, found, err := conversations.Load(r.Context(), req.ThreadID); err == nil && found {
				history = c.History
			}
		}

		qi, err := parser.ParseIntent(r.Context(), req.Message, history)
		if err != nil {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "could not understand the question: " + err.Error()})
			return
		}

		result, err := eng.RunTurn(r.Context(), engine.TurnRequest{
			ThreadID: req.ThreadID,
			ClientID: req.ClientID,
			Message:  req.Message,
			Intent:   qi,
		})
		if err != nil {
			var qe *engine.QueryError
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

		resp := askResponse{Intent: qi, Result: result}
		if result.Valid && result.Chart != nil {
			if def, ok, _ := parser.catalog.Lookup(r.Context(), qi.Metric.Slug); ok {
				resp.Suggestions = FollowUps(def, qi)
			}
		}

		status := http.StatusOK
		if !result.Valid {
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
