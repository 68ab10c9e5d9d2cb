// Package dashboard serves the web page and the latest telemetry snapshot.
package dashboard

import (
	"SDNGuard/internal/config"
	"SDNGuard/internal/telemetry"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gorilla/mux"
)

// NewRouter builds the dashboard routes.
func NewRouter(cfg config.DashboardConfig) *mux.Router {
	r := mux.NewRouter()
	r.Use(allowAnyOrigin)

	r.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		page := filepath.Join(cfg.StaticDir, "index.html")
		if _, err := os.Stat(page); err != nil {
			http.Error(w, "Error: index.html not found.", http.StatusNotFound)
			return
		}
		http.ServeFile(w, req, page)
	}).Methods(http.MethodGet)

	r.HandleFunc("/api/data", func(w http.ResponseWriter, req *http.Request) {
		// a missing or half-written file yields the empty snapshot
		snap := telemetry.LoadOrEmpty(cfg.DataFile)
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snap); err != nil {
			log.Printf("ERROR: failed to encode dashboard data: %v", err)
		}
	}).Methods(http.MethodGet)

	return r
}

func allowAnyOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		next.ServeHTTP(w, r)
	})
}
