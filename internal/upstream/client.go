// Package upstream is the HTTP client for the external experiment
// translation service (the Python backend). That service interprets a
// natural-language prompt into hyperparameter sets, runs the training
// commands, and answers with a loosely structured JSON document; this
// client only moves bytes and classifies failures.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds the upstream call. The service calls a generative
// text API on our behalf, so responses routinely take tens of seconds.
const DefaultTimeout = 60 * time.Second

// ErrUnavailable means the upstream could not be reached at all: connection
// refused, DNS failure, or timeout. Surfaced to clients as 503.
type ErrUnavailable struct {
	Err error
}

func (e *ErrUnavailable) Error() string {
	return "upstream unavailable: " + e.Err.Error()
}

func (e *ErrUnavailable) Unwrap() error { return e.Err }

// StatusError means the upstream responded with a non-2xx status. Its code
// and body are relayed to the client verbatim.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.Code)
}

// Client talks to the translation service.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the service at baseURL. A non-positive timeout
// falls back to DefaultTimeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// RunExperiments forwards a prompt to POST {base}/run_experiments and
// returns the raw response body on success. The caller's context governs
// cancellation: if the client disconnects, the outbound request is aborted
// and nothing should be recorded.
func (c *Client) RunExperiments(ctx context.Context, prompt string) ([]byte, error) {
	payload, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/run_experiments", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("url", c.baseURL).Msg("Upstream call failed")
		return nil, &ErrUnavailable{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ErrUnavailable{Err: err}
	}

	log.Info().
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Upstream call finished")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
