// Package gateway is the client for the remote order service: token
// creation and deletion, order submission and the menu fetch.
//
// Every call returns a Result instead of failing hard. The caller decides
// how to react to a not-found, a rejection or a transport failure; the
// session manager, for instance, treats a missing token on logout as
// already revoked.
//
// Usage:
//
//	gw, err := gateway.New("http://localhost:3000",
//		gateway.WithTimeout(5*time.Second),
//		gateway.WithBreaker(gobreaker.Settings{Name: "orders"}),
//	)
//	tok, res := gw.CreateToken(ctx, gateway.Credentials{Email: e, Password: p})
//	if !res.OK() {
//		return res.Err()
//	}
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bluescreen10/storefront"
	"github.com/bluescreen10/storefront/cart"
	"github.com/bluescreen10/storefront/menu"
	"github.com/bluescreen10/storefront/metrics"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Operation names used in results, logs and metrics.
const (
	OpCreateToken = "createToken"
	OpDeleteToken = "deleteToken"
	OpSubmitOrder = "submitOrder"
	OpFetchMenu   = "fetchMenu"
)

const maxMessageLen = 512

// Credentials are the login form values.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Client talks to the remote order service.
type Client struct {
	baseURL     *url.URL
	http        *http.Client
	tokenHeader string
	breaker     *gobreaker.CircuitBreaker[*http.Response]
	logger      zerolog.Logger
	metrics     *metrics.Metrics
	timeout     time.Duration
	tracing     bool
}

type config func(*Client)

// WithHTTPClient sets the underlying http client. (default a new client
// with a 10s timeout)
func WithHTTPClient(hc *http.Client) config {
	return config(func(c *Client) {
		c.http = hc
	})
}

// WithTimeout sets the per request timeout. (default 10s, or the timeout
// of the client given to WithHTTPClient)
func WithTimeout(d time.Duration) config {
	return config(func(c *Client) {
		c.timeout = d
	})
}

// WithTokenHeader sets the request header carrying the token id.
// (default "token")
func WithTokenHeader(name string) config {
	return config(func(c *Client) {
		c.tokenHeader = name
	})
}

// WithBreaker guards calls with a circuit breaker. Only network failures
// count against it; while it is open calls fail fast with a transport
// outcome. (default none)
func WithBreaker(st gobreaker.Settings) config {
	return config(func(c *Client) {
		if st.Name == "" {
			st.Name = "gateway"
		}
		c.breaker = gobreaker.NewCircuitBreaker[*http.Response](st)
	})
}

// WithTracing wraps the http transport with OpenTelemetry instrumentation
// when enabled is true. (default false)
func WithTracing(enabled bool) config {
	return config(func(c *Client) {
		c.tracing = enabled
	})
}

// WithLogger sets the logger. (default no-op)
func WithLogger(logger zerolog.Logger) config {
	return config(func(c *Client) {
		c.logger = logger
	})
}

// WithMetrics records call outcomes and latency. (default none)
func WithMetrics(m *metrics.Metrics) config {
	return config(func(c *Client) {
		c.metrics = m
	})
}

// New returns a Client for the service at baseURL.
func New(baseURL string, cfgs ...config) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: scheme and host required", baseURL)
	}

	c := &Client{
		baseURL:     u,
		http:        &http.Client{Timeout: 10 * time.Second},
		tokenHeader: "token",
		logger:      zerolog.Nop(),
	}

	for _, cfg := range cfgs {
		cfg(c)
	}

	if c.timeout > 0 || c.tracing {
		hc := *c.http
		if c.timeout > 0 {
			hc.Timeout = c.timeout
		}
		if c.tracing {
			base := hc.Transport
			if base == nil {
				base = http.DefaultTransport
			}
			hc.Transport = otelhttp.NewTransport(base)
		}
		c.http = &hc
	}

	return c, nil
}

type tokenResponse struct {
	Email   string `json:"email"`
	ID      string `json:"Id"`
	Expires int64  `json:"expires"`
}

// CreateToken exchanges credentials for an access token.
func (c *Client) CreateToken(ctx context.Context, creds Credentials) (storefront.AccessToken, Result) {
	var tr tokenResponse
	res := c.do(ctx, OpCreateToken, http.MethodPost, "/tokens", nil, "", creds, &tr)
	if !res.OK() {
		return storefront.AccessToken{}, res
	}

	tok := storefront.AccessToken{Email: tr.Email, ID: tr.ID}
	if !tok.Valid() {
		c.logger.Warn().Str("op", OpCreateToken).Msg("token response without email or id")
		return storefront.AccessToken{}, Result{
			Op:      OpCreateToken,
			Outcome: OutcomeTransport,
			Status:  res.Status,
			Message: "token response without email or id",
		}
	}
	return tok, res
}

// DeleteToken revokes the token tokenID owned by email.
func (c *Client) DeleteToken(ctx context.Context, email, tokenID string) Result {
	q := url.Values{"email": {email}}
	return c.do(ctx, OpDeleteToken, http.MethodDelete, "/tokens", q, tokenID, nil, nil)
}

type orderRequest struct {
	Email string     `json:"email"`
	Cart  cart.State `json:"cart"`
}

// SubmitOrder places an order for the items in st on behalf of email.
func (c *Client) SubmitOrder(ctx context.Context, email string, st cart.State, tokenID string) Result {
	body := orderRequest{Email: email, Cart: st}
	return c.do(ctx, OpSubmitOrder, http.MethodPost, "/orders", nil, tokenID, body, nil)
}

// FetchMenu retrieves the catalog.
func (c *Client) FetchMenu(ctx context.Context) (menu.Catalog, Result) {
	var cat menu.Catalog
	res := c.do(ctx, OpFetchMenu, http.MethodGet, "/menu", nil, "", nil, &cat)
	if !res.OK() {
		return menu.Catalog{}, res
	}
	return cat, res
}

// FetchCatalog adapts FetchMenu to menu.Fetcher.
func (c *Client) FetchCatalog(ctx context.Context) (menu.Catalog, error) {
	cat, res := c.FetchMenu(ctx)
	return cat, res.Err()
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, tokenID string, in, out any) Result {
	start := time.Now()

	req, err := c.newRequest(ctx, method, path, query, tokenID, in)
	if err != nil {
		return c.finish(op, start, Result{Op: op, Outcome: OutcomeTransport, Cause: err})
	}

	resp, err := c.roundTrip(req)
	if err != nil {
		return c.finish(op, start, Result{Op: op, Outcome: OutcomeTransport, Cause: err})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.finish(op, start, Result{Op: op, Outcome: OutcomeTransport, Status: resp.StatusCode, Cause: err})
	}

	res := Result{Op: op, Status: resp.StatusCode}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		res.Message = extractMessage(body)
		res.Outcome = classify(resp.StatusCode, res.Message)
		return c.finish(op, start, res)
	}

	res.Outcome = OutcomeOK
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			res.Outcome = OutcomeTransport
			res.Cause = fmt.Errorf("malformed response: %w", err)
		}
	}
	return c.finish(op, start, res)
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, tokenID string, in any) (*http.Request, error) {
	u := c.baseURL.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tokenID != "" {
		req.Header.Set(c.tokenHeader, tokenID)
	}
	return req, nil
}

// roundTrip sends req through the breaker when one is configured. A
// response of any status is a success for the breaker.
func (c *Client) roundTrip(req *http.Request) (*http.Response, error) {
	if c.breaker == nil {
		return c.http.Do(req)
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		return c.http.Do(req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("circuit breaker %s: %w", c.breaker.Name(), err)
	}
	return resp, err
}

func (c *Client) finish(op string, start time.Time, res Result) Result {
	c.metrics.ObserveCall(op, res.Outcome.String(), time.Since(start))

	if res.OK() {
		c.logger.Debug().Str("op", op).Int("status", res.Status).Dur("took", time.Since(start)).Msg("remote call")
		return res
	}

	ev := c.logger.Warn().Str("op", op).Stringer("outcome", res.Outcome).Int("status", res.Status)
	if res.Message != "" {
		ev = ev.Str("message", res.Message)
	}
	if res.Cause != nil {
		ev = ev.Err(res.Cause)
	}
	ev.Msg("remote call failed")
	return res
}

// extractMessage pulls the diagnostic out of an error body: the Error,
// error or message field of a JSON object, or the raw text.
func extractMessage(body []byte) string {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err == nil {
		for _, k := range []string{"Error", "error", "message"} {
			if s, ok := obj[k].(string); ok && s != "" {
				return truncate(s)
			}
		}
	}
	return truncate(strings.TrimSpace(string(body)))
}

// truncate cuts s to at most maxMessageLen bytes without splitting a rune.
func truncate(s string) string {
	if len(s) <= maxMessageLen {
		return s
	}
	n := maxMessageLen
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
