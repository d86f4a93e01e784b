package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Harshitk-cp/clawguild/internal/domain"
	"github.com/Harshitk-cp/clawguild/internal/resilience"
	"golang.org/x/time/rate"
)

// statusError is a non-2xx answer from a provider API.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.code, e.body)
}

func hasStatus(err error, code int) bool {
	var se *statusError
	return errors.As(err, &se) && se.code == code
}

// apiClient is the JSON-over-HTTP transport shared by the REST adapters.
// Calls are paced by a token bucket and guarded by a circuit breaker that
// only trips on transport failures and 5xx answers.
type apiClient struct {
	name       string
	baseURL    string
	authHeader string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *resilience.Breaker
}

func newAPIClient(name, baseURL, authHeader string, opts Options) *apiClient {
	b := resilience.NewBreaker(opts.BreakerFailures, opts.BreakerTimeout)
	b.Counts = func(err error) bool {
		var se *statusError
		if errors.As(err, &se) {
			return se.code >= 500
		}
		return !errors.Is(err, context.Canceled)
	}
	return &apiClient{
		name:       name,
		baseURL:    baseURL,
		authHeader: authHeader,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		breaker:    b,
	}
}

// do sends in as JSON (when non-nil) and decodes the answer into out (when
// non-nil). Non-2xx answers wrap domain.ErrRemoteRejected, undecodable
// bodies wrap domain.ErrMalformedResponse.
func (c *apiClient) do(ctx context.Context, method, path string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s %s: %w", c.name, path, err)
	}

	var respBody []byte
	err := c.breaker.Execute(func() error {
		var reqBody io.Reader
		if in != nil {
			body, err := json.Marshal(in)
			if err != nil {
				return fmt.Errorf("marshal request: %w", err)
			}
			reqBody = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Authorization", c.authHeader)
		if in != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return &statusError{code: resp.StatusCode, body: string(respBody)}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %s %s %s: %w", domain.ErrRemoteRejected, c.name, method, path, err)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: %s %s %s: %w", domain.ErrMalformedResponse, c.name, method, path, err)
	}
	return nil
}
