// Package mercadopago is a small client for the Mercado Pago checkout API:
// preference creation and payment lookup.
package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/southsidewear/storefront/internal/domain"
	"github.com/southsidewear/storefront/pkg/circuitbreaker"
)

const DefaultBaseURL = "https://api.mercadopago.com"

var errMalformedBody = errors.New("malformed response body")

type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	breaker     *gobreaker.CircuitBreaker[*response]
	logger      *slog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default traced client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBreakerSettings overrides the circuit breaker configuration.
func WithBreakerSettings(s circuitbreaker.Settings) Option {
	return func(c *Client) {
		s.Name = "mercadopago"
		c.breaker = circuitbreaker.New[*response](s, c.logger)
	}
}

func NewClient(baseURL, accessToken string, logger *slog.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		httpClient:  &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		logger:      logger,
	}
	c.breaker = circuitbreaker.New[*response](circuitbreaker.Settings{Name: "mercadopago"}, logger)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type response struct {
	status int
	body   []byte
}

// CreatePreference registers pref and returns its id and init_point.
func (c *Client) CreatePreference(ctx context.Context, pref domain.Preference) (*domain.PreferenceResult, error) {
	payload, err := json.Marshal(pref)
	if err != nil {
		return nil, fmt.Errorf("encode preference: %w", err)
	}

	res, err := c.do(ctx, http.MethodPost, "/checkout/preferences", payload, uuid.NewString())
	if err != nil {
		return nil, err
	}

	var out domain.PreferenceResult
	if err := json.Unmarshal(res.body, &out); err != nil || out.InitPoint == "" {
		return nil, &ProviderError{StatusCode: res.status, Body: res.body, Err: errMalformedBody}
	}
	out.Raw = json.RawMessage(res.body)
	return &out, nil
}

// GetPayment fetches the authoritative payment record.
func (c *Client) GetPayment(ctx context.Context, id string) (*domain.PaymentDetails, error) {
	res, err := c.do(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(id), nil, "")
	if err != nil {
		return nil, err
	}

	var out domain.PaymentDetails
	if err := json.Unmarshal(res.body, &out); err != nil {
		return nil, &ProviderError{StatusCode: res.status, Body: res.body, Err: errMalformedBody}
	}
	return &out, nil
}

// do runs one request through the breaker. Only transport failures and 5xx
// answers count against the breaker; 4xx answers are the caller's problem.
func (c *Client) do(ctx context.Context, method, path string, payload []byte, idempotencyKey string) (*response, error) {
	res, err := c.breaker.Execute(func() (*response, error) {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return nil, &NetworkError{Err: err}
		}
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if idempotencyKey != "" {
			req.Header.Set("X-Idempotency-Key", idempotencyKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, &NetworkError{Err: err}
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &NetworkError{Err: err}
		}
		r := &response{status: resp.StatusCode, body: data}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, &ProviderError{StatusCode: resp.StatusCode, Body: data}
		}
		return r, nil
	})
	if err != nil {
		if circuitbreaker.IsOpen(err) {
			return nil, &NetworkError{Err: err}
		}
		c.logger.WarnContext(ctx, "mercadopago request failed", "method", method, "path", path, "error", err)
		return nil, err
	}

	if res.status < 200 || res.status >= 300 {
		c.logger.WarnContext(ctx, "mercadopago rejected request",
			"method", method,
			"path", path,
			"status", res.status,
			"body", string(res.body),
		)
		return nil, &ProviderError{StatusCode: res.status, Body: res.body}
	}
	return res, nil
}
