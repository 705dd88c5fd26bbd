package catalog

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the metric catalog API endpoints on the given router.
func RegisterRoutes(r chi.Router, cached *Cached) {
	r.Get("/api/metrics", listHandler(cached))
	r.Get("/api/metrics/{slug}", getHandler(cached))
}

func listHandler(cached *Cached) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defs, err := cached.ListActive(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if defs == nil {
			defs = []MetricDefinition{}
		}
		writeJSON(w, http.StatusOK, defs)
	}
}

func getHandler(cached *Cached) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")

		def, ok, err := cached.Lookup(r.Context(), slug)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown metric"})
			return
		}
		writeJSON(w, http.StatusOK, def)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
