// Package server exposes the calculation engine over HTTP. The calculate
// endpoint returns the same CalculationResult shape the validator's
// remote client consumes, so one instance can act as the authoritative
// remote for another.
package server

import (
	"log/slog"
	"net/http"

	"github.com/mrdeadlift/relic-engine/internal/cache"
	"github.com/mrdeadlift/relic-engine/internal/engine"
	"github.com/mrdeadlift/relic-engine/internal/validator"
)

// Server wires the engine, cache and validator behind an http.Handler.
type Server struct {
	calc    *engine.Calculator
	catalog engine.Catalog
	memo    *cache.Cache
	val     *validator.Validator // nil when no remote is configured

	mux *http.ServeMux
}

// New builds the HTTP surface. val may be nil; validation endpoints then
// answer 503.
func New(calc *engine.Calculator, catalog engine.Catalog, memo *cache.Cache, val *validator.Validator) *Server {
	s := &Server{
		calc:    calc,
		catalog: catalog,
		memo:    memo,
		val:     val,
		mux:     http.NewServeMux(),
	}

	s.mux.HandleFunc("POST /api/calculate", s.handleCalculate)
	s.mux.HandleFunc("POST /api/calculate/validated", s.handleCalculateValidated)
	s.mux.HandleFunc("POST /api/validate", s.handleValidate)
	s.mux.HandleFunc("POST /api/validate/batch", s.handleValidateBatch)
	s.mux.HandleFunc("GET /api/relics", s.handleRelics)
	s.mux.HandleFunc("GET /api/stats", s.handleStats)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func logRequestError(r *http.Request, status int, err error) {
	slog.Debug("request rejected", "path", r.URL.Path, "status", status, "err", err)
}
