package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"

	"hearth/internal/types"
)

// RetryPolicy configures the retry behavior for forecast fetches.
type RetryPolicy struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

// DefaultRetryPolicy returns sensible defaults for forecast service calls.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		MinWait:    500 * time.Millisecond,
		MaxWait:    10 * time.Second,
	}
}

// Client fetches full forecast payloads from a Dark Sky-style service.
// All outbound calls go through a circuit breaker and bounded retries with
// exponential backoff, so a flapping upstream cannot stall the hub's polling
// cycle indefinitely.
type Client struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	retry   RetryPolicy
	baseURL string
	apiKey  types.SecretString
	sleepFn func(time.Duration) // for testability; defaults to time.Sleep
}

// ClientOption is a functional option for configuring a Client.
type ClientOption func(*Client)

// WithSleepFunc overrides the sleep function used between retries.
// This is intended for testing to avoid real delays.
func WithSleepFunc(fn func(time.Duration)) ClientOption {
	return func(c *Client) {
		c.sleepFn = fn
	}
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p RetryPolicy) ClientOption {
	return func(c *Client) {
		c.retry = p
	}
}

// NewClient creates a forecast Client for the given service endpoint and
// credential.
func NewClient(httpClient *http.Client, baseURL string, apiKey types.SecretString, opts ...ClientOption) *Client {
	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "forecast",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	c := &Client{
		client:  httpClient,
		breaker: cb,
		retry:   DefaultRetryPolicy(),
		baseURL: baseURL,
		apiKey:  apiKey,
		sleepFn: time.Sleep,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Forecast fetches the full payload for the given coordinates and unit
// system. Connection errors, HTTP errors, timeouts, and invalid response
// bodies all surface as a *types.AppError wrapping the underlying cause.
func (c *Client) Forecast(ctx context.Context, lat, lon float64, units string) (*Snapshot, error) {
	url := fmt.Sprintf("%s/forecast/%s/%s,%s?units=%s",
		c.baseURL,
		c.apiKey.Unmask(),
		strconv.FormatFloat(lat, 'f', -1, 64),
		strconv.FormatFloat(lon, 'f', -1, 64),
		units,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "building forecast request", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamForecast,
			fmt.Sprintf("forecast service returned status %d", resp.StatusCode),
			nil,
		)
	}

	var snap Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamForecast, "invalid forecast response body", err)
	}

	return &snap, nil
}

// do executes the request with circuit breaking and retries on 429/5xx,
// respecting Retry-After headers. On success (2xx/3xx/4xx other than 429) it
// returns the response as-is; the caller closes the body.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	var lastResp *http.Response
	var lastErr error

	maxAttempts := 1 + c.retry.MaxRetries
	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err := c.breaker.Execute(func() (*http.Response, error) {
			r, doErr := c.client.Do(req)
			if doErr != nil {
				return nil, doErr
			}
			// Treat 429 and 5xx as errors so the breaker counts them.
			if r.StatusCode == http.StatusTooManyRequests || r.StatusCode >= 500 {
				return r, fmt.Errorf("upstream returned %d", r.StatusCode)
			}
			return r, nil
		})

		if err == nil {
			return resp, nil
		}

		lastErr = err
		if resp != nil {
			if attempt < maxAttempts-1 {
				resp.Body.Close()
			} else {
				lastResp = resp
			}
		}

		// An open circuit means the upstream is known-bad; do not retry.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			break
		}

		if req.Context().Err() != nil {
			return nil, types.NewAppError(types.ErrCodeUpstreamForecast, "forecast fetch canceled", req.Context().Err())
		}

		if attempt < maxAttempts-1 {
			c.sleepFn(c.computeBackoff(attempt, resp))
		}
	}

	if lastResp != nil {
		lastResp.Body.Close()
	}

	return nil, c.mapError(lastResp, lastErr)
}

// computeBackoff determines the wait before the next retry attempt. It
// respects the Retry-After header if present, otherwise uses exponential
// backoff with full jitter clamped to [MinWait, MaxWait].
func (c *Client) computeBackoff(attempt int, resp *http.Response) time.Duration {
	if resp != nil {
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
				wait := time.Duration(seconds) * time.Second
				if wait > c.retry.MaxWait {
					wait = c.retry.MaxWait
				}
				return wait
			}
		}
	}

	base := float64(c.retry.MinWait) * math.Pow(2, float64(attempt))
	if base > float64(c.retry.MaxWait) {
		base = float64(c.retry.MaxWait)
	}

	wait := time.Duration(rand.Float64() * base)
	if wait < c.retry.MinWait {
		wait = c.retry.MinWait
	}
	return wait
}

// mapError translates the final failure into a structured AppError.
func (c *Client) mapError(resp *http.Response, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return types.NewAppError(types.ErrCodeUpstreamForecast, "forecast circuit breaker open", err)
	}
	if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
		return types.NewAppError(types.ErrCodeUpstreamRateLimit, "forecast service rate limited the hub", err)
	}
	return types.NewAppError(types.ErrCodeUpstreamForecast, "forecast service unavailable", err)
}
