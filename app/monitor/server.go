package monitor

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// SetupServer sets up the HTTP server.
func (a *App) SetupServer() {
	a.Server = &http.Server{Addr: a.Config.Addr, Handler: a.NewRouter()}
}

// NewRouter returns the health and status routes.
func (a *App) NewRouter() *mux.Router {
	r := mux.NewRouter()

	r.Handle("/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })).Methods("GET")
	r.Handle("/readyz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if a.Ready() {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	})).Methods("GET")
	r.HandleFunc("/status", a.HandleStatus).Methods("GET")

	return r
}

// HandleStatus returns the last cycle result.
func (a *App) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	last, ok := a.LastResult()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "pending"})
		return
	}
	writeJSON(w, http.StatusOK, last)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
