package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/mrdeadlift/relic-engine/internal/engine"
	"github.com/mrdeadlift/relic-engine/internal/model"
	"github.com/mrdeadlift/relic-engine/internal/validator"
)

// maxRequestBody caps request payloads; selections are tiny.
const maxRequestBody = 64 << 10

// calculateOptions is the per-request options object.
type calculateOptions struct {
	UseCache           *bool `json:"useCache,omitempty"`
	IncludeBreakdown   *bool `json:"includeBreakdown,omitempty"`
	IncludeTrace       *bool `json:"includeTrace,omitempty"`
	IncludePerformance *bool `json:"includePerformance,omitempty"`
	// TimeoutMs bounds the remote leg of the validated path. The plain
	// calculate path is synchronous in-process computation with no
	// suspend point, so the option has no effect there.
	TimeoutMs int `json:"timeout,omitempty"`
}

type calculateBody struct {
	validator.CalculateRequest
	Options *calculateOptions `json:"options,omitempty"`
}

func (b *calculateBody) engineOptions() engine.Options {
	opts := engine.DefaultOptions()
	if o := b.Options; o != nil {
		if o.UseCache != nil {
			opts.UseCache = *o.UseCache
		}
		if o.IncludeBreakdown != nil {
			opts.IncludeBreakdown = *o.IncludeBreakdown
		}
		if o.IncludeTrace != nil {
			opts.IncludeTrace = *o.IncludeTrace
		}
		if o.IncludePerformance != nil {
			opts.IncludePerformance = *o.IncludePerformance
		}
	}
	return opts
}

func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var body calculateBody
	if !decodeBody(w, r, &body) {
		return
	}

	result, err := s.calc.Calculate(body.RelicIDs, body.Context, body.engineOptions())
	if err != nil {
		writeCalcError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type validatedResponse struct {
	Result     *model.CalculationResult `json:"result"`
	Validation *model.ValidationResult  `json:"validation,omitempty"`
	Validated  bool                     `json:"validated"`
}

func (s *Server) handleCalculateValidated(w http.ResponseWriter, r *http.Request) {
	if s.val == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("no remote validation configured"))
		return
	}
	var body struct {
		calculateBody
		Force bool `json:"force,omitempty"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	ctx := r.Context()
	if body.Options != nil && body.Options.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(body.Options.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	result, vr, err := s.val.CalculateWithValidation(ctx, body.RelicIDs, body.Context, body.engineOptions(), body.Force)
	if err != nil {
		writeCalcError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, validatedResponse{
		Result:     result,
		Validation: vr,
		Validated:  vr != nil,
	})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	if s.val == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("no remote validation configured"))
		return
	}
	var body validator.CalculateRequest
	if !decodeBody(w, r, &body) {
		return
	}

	vr, err := s.val.Validate(r.Context(), body.RelicIDs, body.Context, nil)
	if err != nil {
		writeCalcError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vr)
}

type batchBody struct {
	Requests []validator.BatchRequest `json:"requests"`
}

type batchItemResponse struct {
	Index  int                     `json:"index"`
	Result *model.ValidationResult `json:"result,omitempty"`
	Error  string                  `json:"error,omitempty"`
}

func (s *Server) handleValidateBatch(w http.ResponseWriter, r *http.Request) {
	if s.val == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("no remote validation configured"))
		return
	}
	var body batchBody
	if !decodeBody(w, r, &body) {
		return
	}

	results := s.val.ValidateBatch(r.Context(), body.Requests)
	out := make([]batchItemResponse, len(results))
	for i, res := range results {
		out[i] = batchItemResponse{Index: res.Index, Result: res.Result}
		if res.Err != nil {
			out[i].Error = res.Err.Error()
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": out})
}

func (s *Server) handleRelics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.All())
}

type statsResponse struct {
	Validation *model.ValidationStats `json:"validation,omitempty"`
	CacheHits  uint64                 `json:"cacheHits"`
	CacheMiss  uint64                 `json:"cacheMisses"`
	CacheLen   int                    `json:"cacheEntries"`
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	resp := statsResponse{}
	if s.memo != nil {
		resp.CacheHits, resp.CacheMiss = s.memo.Stats()
		resp.CacheLen = s.memo.Len()
	}
	if s.val != nil {
		stats := s.val.Stats()
		resp.Validation = &stats
	}
	writeJSON(w, http.StatusOK, resp)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(dst); err != nil {
		logRequestError(r, http.StatusBadRequest, err)
		writeJSON(w, http.StatusBadRequest, errorBody("malformed request body"))
		return false
	}
	return true
}

func writeCalcError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrLimitExceeded):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrInvalidInput):
		status = http.StatusBadRequest
	}
	logRequestError(r, status, err)
	writeJSON(w, status, errorBody(err.Error()))
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
