// Package remote is the client side of the cart sync HTTP API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shophuyvan/shophuyvan-sub002/internal/application/cartclient"
	"github.com/shophuyvan/shophuyvan-sub002/internal/domain/cart"
	"go.uber.org/zap"
)

const (
	syncPath = "/cart/sync"

	defaultBaseURL    = "http://localhost:8080"
	defaultTimeout    = 15 * time.Second
	defaultMaxRetries = 2
	defaultBaseDelay  = 100 * time.Millisecond
	defaultMaxDelay   = 2 * time.Second
)

// HTTPError is a non-2xx response from the server
type HTTPError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("http %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether the request may succeed when repeated
func (e *HTTPError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// fetchResponse is the body of GET /cart/sync
type fetchResponse struct {
	OK        bool        `json:"ok"`
	Cart      []cart.Line `json:"cart"`
	UpdatedAt *time.Time  `json:"updated_at"`
	Source    cart.Origin `json:"source,omitempty"`
}

// pushBody is the body of POST /cart/sync
type pushBody struct {
	SessionID cart.SessionID `json:"session_id"`
	Cart      []cart.Line    `json:"cart"`
	Source    cart.Origin    `json:"source"`
}

type pushResponse struct {
	OK         bool      `json:"ok"`
	UpdatedAt  time.Time `json:"updated_at"`
	ItemsCount int       `json:"items_count"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Option configures an HTTPClient
type Option func(*HTTPClient)

// WithMaxRetries sets how many times a retryable request is repeated
func WithMaxRetries(n int) Option {
	return func(c *HTTPClient) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithBackoff sets the first retry delay and its cap
func WithBackoff(base, max time.Duration) Option {
	return func(c *HTTPClient) {
		c.baseDelay = base
		c.maxDelay = max
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *HTTPClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// HTTPClient implements cartclient.RemoteCart over the cart sync API
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	logger     *zap.Logger
}

var _ cartclient.RemoteCart = (*HTTPClient)(nil)

// NewHTTPClient creates a client for the server at baseURL.
// A nil httpClient gets a 15 second timeout.
func NewHTTPClient(baseURL string, httpClient *http.Client, opts ...Option) *HTTPClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	c := &HTTPClient{
		baseURL:    baseURL,
		httpClient: httpClient,
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
		maxDelay:   defaultMaxDelay,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("remote_cart")
	return c
}

// Fetch returns the server record or nil when there is none
func (c *HTTPClient) Fetch(ctx context.Context, sessionID cart.SessionID) (*cart.SyncRecord, error) {
	var resp fetchResponse
	if err := c.doJSON(ctx, http.MethodGet, sessionQuery(sessionID), nil, &resp, c.maxRetries); err != nil {
		return nil, err
	}
	if resp.UpdatedAt == nil {
		return nil, nil
	}
	return cart.NewSyncRecord(sessionID, resp.Cart, resp.Source, *resp.UpdatedAt), nil
}

// Push replaces the server record
func (c *HTTPClient) Push(ctx context.Context, req cartclient.PushRequest) (cartclient.PushResult, error) {
	retries := c.maxRetries
	if req.NoRetry {
		retries = 0
	}
	lines := req.Lines
	if lines == nil {
		lines = []cart.Line{}
	}

	var resp pushResponse
	body := pushBody{SessionID: req.SessionID, Cart: lines, Source: req.Origin}
	if err := c.doJSON(ctx, http.MethodPost, syncPath, body, &resp, retries); err != nil {
		return cartclient.PushResult{}, err
	}
	return cartclient.PushResult{UpdatedAt: resp.UpdatedAt.UTC(), ItemsCount: resp.ItemsCount}, nil
}

// Delete removes the server record
func (c *HTTPClient) Delete(ctx context.Context, sessionID cart.SessionID) error {
	return c.doJSON(ctx, http.MethodDelete, sessionQuery(sessionID), nil, nil, c.maxRetries)
}

func sessionQuery(sessionID cart.SessionID) string {
	q := url.Values{}
	q.Set("session_id", sessionID.String())
	return syncPath + "?" + q.Encode()
}

func (c *HTTPClient) doJSON(ctx context.Context, method, requestPath string, body, out any, maxRetries int) error {
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	for attempt := 0; ; attempt++ {
		var bodyReader io.Reader
		if bodyBytes != nil {
			bodyReader = bytes.NewReader(bodyBytes)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+requestPath, bodyReader)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Request-ID", uuid.NewString())
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if attempt < maxRetries && ctx.Err() == nil {
				c.logger.Debug("Retrying after transport error",
					zap.String("method", method),
					zap.Int("attempt", attempt+1),
					zap.Error(err),
				)
				if waitErr := waitWithContext(ctx, c.retryDelay(attempt+1, "")); waitErr != nil {
					return waitErr
				}
				continue
			}
			return err
		}
		payload, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return readErr
		}

		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			if out == nil || len(payload) == 0 {
				return nil
			}
			if err := json.Unmarshal(payload, out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
			return nil
		}

		httpErr := &HTTPError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var errBody errorResponse
		if json.Unmarshal(payload, &errBody) == nil && errBody.Error.Code != "" {
			httpErr.Code = errBody.Error.Code
			httpErr.Message = errBody.Error.Message
		}

		if httpErr.Temporary() && attempt < maxRetries {
			c.logger.Debug("Retrying after server error",
				zap.String("method", method),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
			)
			if waitErr := waitWithContext(ctx, c.retryDelay(attempt+1, resp.Header.Get("Retry-After"))); waitErr != nil {
				return waitErr
			}
			continue
		}
		return httpErr
	}
}

// retryDelay doubles from baseDelay per attempt up to maxDelay; a
// Retry-After header takes precedence but is capped the same way.
func (c *HTTPClient) retryDelay(attempt int, retryAfterHeader string) time.Duration {
	maxDelay := c.maxDelay
	if maxDelay <= 0 {
		maxDelay = defaultMaxDelay
	}
	if retryAfter := parseRetryAfter(retryAfterHeader); retryAfter > 0 {
		return min(retryAfter, maxDelay)
	}
	delay := c.baseDelay
	if delay <= 0 {
		delay = defaultBaseDelay
	}
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxDelay {
			return maxDelay
		}
	}
	return min(delay, maxDelay)
}

func parseRetryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	if ts, err := http.ParseTime(header); err == nil {
		if delta := time.Until(ts); delta > 0 {
			return delta
		}
	}
	return 0
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
