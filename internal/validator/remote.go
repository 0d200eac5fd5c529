package validator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mrdeadlift/relic-engine/internal/model"
)

var (
	// ErrValidationTimeout marks a remote calculation that exceeded the
	// validation time budget. Recorded as a critical discrepancy, never
	// surfaced as a failure of the validate call itself.
	ErrValidationTimeout = errors.New("remote validation timed out")

	// ErrRemoteUnavailable marks a network or service failure on the
	// remote path. Triggers the fallback chain.
	ErrRemoteUnavailable = errors.New("remote calculation service unavailable")
)

// RemoteCalculator produces the authoritative calculation for an input.
type RemoteCalculator interface {
	Calculate(ctx context.Context, relicIDs []string, cctx *model.CalculationContext) (*model.CalculationResult, error)
}

// CalculateRequest is the wire shape shared by the remote client and the
// HTTP server, so both calculation paths stay structurally comparable.
type CalculateRequest struct {
	RelicIDs []string                  `json:"relicIds"`
	Context  *model.CalculationContext `json:"conditionalEffects"`
}

// HTTPRemote calls another calcserver instance over HTTP.
type HTTPRemote struct {
	baseURL string
	client  *http.Client
}

// NewHTTPRemote builds a remote client for baseURL. The per-call context
// bounds each request; timeout caps the underlying transport as a backstop.
func NewHTTPRemote(baseURL string, timeout time.Duration) *HTTPRemote {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPRemote{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Calculate posts the selection to the remote calculate endpoint.
func (r *HTTPRemote) Calculate(ctx context.Context, relicIDs []string, cctx *model.CalculationContext) (*model.CalculationResult, error) {
	body, err := json.Marshal(CalculateRequest{RelicIDs: relicIDs, Context: cctx})
	if err != nil {
		return nil, fmt.Errorf("encoding calculate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/api/calculate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building calculate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidationTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d", ErrRemoteUnavailable, resp.StatusCode)
	}

	var result model.CalculationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrRemoteUnavailable, err)
	}
	result.Metadata.Local = false
	return &result, nil
}
