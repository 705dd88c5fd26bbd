package anomaly

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the anomaly API endpoints on the given router.
func RegisterRoutes(r chi.Router, detector *Detector, store *Store, defaultClientID string) {
	r.Get("/api/anomalies", listHandler(store, defaultClientID))
	r.Post("/api/anomalies/detect", detectHandler(detector, defaultClientID))
}

func listHandler(store *Store, defaultClientID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := r.URL.Query().Get("client_id")
		if clientID == "" {
			clientID = defaultClientID
		}

		filter := ListFilter{Limit: 100}
		if v := r.URL.Query().Get("metric"); v != "" {
			filter.MetricSlug = v
		}
		if v := r.URL.Query().Get("severity"); v != "" {
			filter.Severity = Severity(v)
		}
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				filter.Limit = n
			}
		}

		events, err := store.List(r.Context(), clientID, filter)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if events == nil {
			events = []Event{}
		}
		writeJSON(w, http.StatusOK, events)
	}
}

type detectRequest struct {
	ClientID     string   `json:"client_id,omitempty"`
	MetricSlugs  []string `json:"metric_slugs,omitempty"`
	LookbackDays int      `json:"lookback_days,omitempty"`
	Threshold    float64  `json:"threshold,omitempty"`
}

func detectHandler(detector *Detector, defaultClientID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req detectRequest
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
				return
			}
		}
		if req.ClientID == "" {
			req.ClientID = defaultClientID
		}
		if req.ClientID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "client_id is required"})
			return
		}

		events, err := detector.Detect(r.Context(), req.ClientID, Options{
			MetricSlugs:  req.MetricSlugs,
			LookbackDays: req.LookbackDays,
			Threshold:    req.Threshold,
		})
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if events == nil {
			events = []Event{}
		}
		writeJSON(w, http.StatusOK, events)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
