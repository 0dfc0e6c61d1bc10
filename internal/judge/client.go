package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// ErrSandboxUnavailable wraps transport-level failures reaching the
// sandbox. Callers never retry automatically; candidate code may have
// side effects.
var ErrSandboxUnavailable = errors.New("code sandbox unavailable")

// ExecRequest is one sandbox invocation: source, declared language and
// the stdin fed to the program.
type ExecRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
	Stdin    string `json:"stdin"`
}

// ExecResponse is the sandbox's verdict for a single run.
type ExecResponse struct {
	Success         bool   `json:"success"`
	Output          string `json:"output"`
	Error           string `json:"error,omitempty"`
	ExecutionTimeMs int64  `json:"execution_time_ms,omitempty"`
}

// Client executes candidate code in an external sandbox.
type Client interface {
	Execute(ctx context.Context, req ExecRequest) (*ExecResponse, error)
}

// HTTPClient talks to the sandbox over its JSON HTTP API.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// NewHTTPClient builds a sandbox client. The timeout bounds every run so
// a hung sandbox can never stall a session.
func NewHTTPClient(baseURL string, timeout time.Duration, log zerolog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "judge_client").Logger(),
	}
}

func (c *HTTPClient) Execute(ctx context.Context, req ExecRequest) (*ExecResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode execution request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build execution request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.log.Error().Err(err).Msg("Sandbox request failed")
		return nil, fmt.Errorf("%w: %v", ErrSandboxUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Error().Int("status", resp.StatusCode).Msg("Sandbox returned non-OK status")
		return nil, fmt.Errorf("%w: status %d", ErrSandboxUnavailable, resp.StatusCode)
	}

	var out ExecResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode sandbox response: %w", err)
	}

	return &out, nil
}
