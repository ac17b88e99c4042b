// internal/common/backend/client.go
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cif-onboarding/internal/common/config"
	"cif-onboarding/internal/common/logger"
	"cif-onboarding/internal/common/metrics"
	"cif-onboarding/internal/models"
)

const (
	DefaultBaseURL = "http://localhost:8000/api/v1"
	DefaultTimeout = 30 * time.Second

	tracerName = "cif-onboarding/backend"
)

// Client talks to the onboarding REST API. A request answered 401 is
// replayed once after refreshing the access token.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenStore
	log        logger.Logger
	tracer     trace.Tracer

	// serialises refreshes so concurrent 401s spend the refresh token once
	refreshMu sync.Mutex
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTokenStore(store TokenStore) Option {
	return func(c *Client) { c.tokens = store }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) { c.tracer = tracer }
}

// NewClient builds a client from the backend section of the config.
func NewClient(cfg config.BackendConfig, log logger.Logger, opts ...Option) *Client {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := DefaultTimeout
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Millisecond
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		tokens:     NewMemoryTokenStore(),
		log:        log.WithFields(map[string]interface{}{"component": "backend"}),
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Tokens() TokenStore {
	return c.tokens
}

// request describes one call. route is the path template used for span
// names and metric labels.
type request struct {
	method string
	route  string
	path   string
	body   interface{}

	// anonymous requests carry no bearer and never trigger a refresh
	anonymous bool
}

type response struct {
	status int
	header http.Header
	body   []byte
}

// do sends req and, on a 401, refreshes the session and replays it once.
func (c *Client) do(ctx context.Context, req request) (*response, error) {
	resp, usedToken, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}

	if resp.status == http.StatusUnauthorized && !req.anonymous {
		refreshed, err := c.refresh(ctx, usedToken)
		if err != nil {
			return nil, err
		}
		if refreshed {
			resp, _, err = c.send(ctx, req)
			if err != nil {
				return nil, err
			}
		}
	}

	if resp.status < 200 || resp.status >= 300 {
		return resp, newAPIError(resp.status, resp.body)
	}
	return resp, nil
}

// doJSON runs req and decodes a JSON body into out when out is non-nil.
func (c *Client) doJSON(ctx context.Context, req request, out interface{}) error {
	resp, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", req.method, req.route, err)
	}
	return nil
}

// send performs a single round trip and returns the access token it used.
func (c *Client) send(ctx context.Context, req request) (*response, string, error) {
	ctx, span := c.tracer.Start(ctx, req.method+" "+req.route, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", req.method),
		attribute.String("http.route", req.route),
	)

	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			span.RecordError(err)
			return nil, "", fmt.Errorf("encode %s body: %w", req.route, err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, body)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var token string
	if !req.anonymous {
		pair, err := c.tokens.Load(ctx)
		if err != nil {
			c.log.Warn("failed to load backend tokens", map[string]interface{}{"error": err.Error()})
		}
		token = pair.AccessToken
		if token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		metrics.ObserveBackendRequest(req.method, req.route, 0, time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, token, fmt.Errorf("%s %s: %w", req.method, req.route, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	metrics.ObserveBackendRequest(req.method, req.route, httpResp.StatusCode, time.Since(start))
	span.SetAttributes(attribute.Int("http.status_code", httpResp.StatusCode))
	if err != nil {
		span.RecordError(err)
		return nil, token, fmt.Errorf("read %s response: %w", req.route, err)
	}
	if httpResp.StatusCode >= 400 {
		span.SetStatus(codes.Error, http.StatusText(httpResp.StatusCode))
	}

	c.log.Debug("backend request", map[string]interface{}{
		"method": req.method,
		"route":  req.route,
		"status": httpResp.StatusCode,
		"took":   time.Since(start).String(),
	})

	return &response{status: httpResp.StatusCode, header: httpResp.Header, body: data}, token, nil
}

// refresh exchanges the stored refresh token for a new pair. It reports
// false when there is no refresh token to spend. staleToken is the access
// token that was rejected; if the store already holds a different one,
// another request refreshed in the meantime.
func (c *Client) refresh(ctx context.Context, staleToken string) (bool, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	pair, err := c.tokens.Load(ctx)
	if err != nil {
		return false, err
	}
	if pair.AccessToken != "" && pair.AccessToken != staleToken {
		return true, nil
	}
	if pair.RefreshToken == "" {
		return false, nil
	}

	var tokens models.TokenResponse
	err = c.doJSON(ctx, request{
		method:    http.MethodPost,
		route:     "/auth/refresh",
		path:      "/auth/refresh",
		body:      models.RefreshRequest{RefreshToken: pair.RefreshToken},
		anonymous: true,
	}, &tokens)
	if err == nil && tokens.AccessToken == "" {
		err = fmt.Errorf("refresh response carries no access token")
	}
	if err != nil {
		metrics.BackendTokenRefresh.WithLabelValues("failure").Inc()
		c.log.Warn("token refresh failed, clearing session", map[string]interface{}{"error": err.Error()})
		if clearErr := c.tokens.Clear(ctx); clearErr != nil {
			c.log.Error("failed to clear backend tokens", map[string]interface{}{"error": clearErr.Error()})
		}
		return false, fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}

	next := TokenPair{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}
	if next.RefreshToken == "" {
		next.RefreshToken = pair.RefreshToken
	}
	if err := c.tokens.Save(ctx, next); err != nil {
		return false, err
	}

	metrics.BackendTokenRefresh.WithLabelValues("success").Inc()
	c.log.Info("backend token refreshed", nil)
	return true, nil
}
