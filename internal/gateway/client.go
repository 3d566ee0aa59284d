package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/orderlink/server/internal/shared/config"
	"github.com/orderlink/server/internal/shared/metrics"
)

// Client talks to the payment provider's REST API. All calls carry the
// bearer key from configuration and run through a circuit breaker so a
// degraded provider does not pile up blocked checkouts.
type Client struct {
	baseURL string
	apiKey  string
	mode    Mode
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewClient creates a provider API client from configuration.
func NewClient(cfg *config.ProviderConfig, logger *zap.Logger, m *metrics.Metrics) *Client {
	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: cfg.KeepAlive,
	}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		TLSHandshakeTimeout: cfg.TLSHandshakeTimeout,
	}

	settings := gobreaker.Settings{
		Name:        "provider-api",
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// 4xx responses are caller errors, not provider outages
			_, ok := err.(*breakerPassthrough)
			return ok
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("provider breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		mode:    Mode(cfg.Mode),
		http: &http.Client{
			Transport: transport,
			Timeout:   cfg.ResponseTimeout,
		},
		breaker: gobreaker.NewCircuitBreaker[[]byte](settings),
		logger:  logger,
		metrics: m,
	}
}

// Mode returns the configured API mode.
func (c *Client) Mode() Mode { return c.mode }

// do performs one API call. A non-2xx response is decoded into an
// *APIError; transport failures are returned as-is. The breaker only
// counts transport and 5xx failures, a 4xx is the caller's problem.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	start := time.Now()
	operation := method + " " + path

	data, err := c.breaker.Execute(func() ([]byte, error) {
		return c.roundTrip(ctx, method, path, query, body)
	})

	status := "ok"
	if err != nil {
		if apiErr, ok := err.(*breakerPassthrough); ok {
			// 4xx travels through the breaker without tripping it
			err = apiErr.err
		}
		status = "error"
	}
	if c.metrics != nil {
		c.metrics.RecordProviderCall(operation, status, time.Since(start))
	}
	if err != nil {
		return err
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode provider response: %w", err)
	}
	return nil
}

// breakerPassthrough wraps a 4xx APIError so IsSuccessful can tell it
// apart from transport and 5xx failures.
type breakerPassthrough struct{ err error }

func (p *breakerPassthrough) Error() string { return p.err.Error() }

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode provider request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("build provider request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read provider response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, nil
	}

	apiErr := &APIError{Status: resp.StatusCode}
	if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Title == "" {
		apiErr.Title = http.StatusText(resp.StatusCode)
		if apiErr.Detail == "" {
			apiErr.Detail = string(data)
		}
	}
	apiErr.Status = resp.StatusCode

	c.logger.Warn("provider api error",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("detail", apiErr.Detail),
	)

	if resp.StatusCode >= 500 {
		return nil, apiErr
	}
	return nil, &breakerPassthrough{err: apiErr}
}
