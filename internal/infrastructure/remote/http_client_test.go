package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shophuyvan/shophuyvan-sub002/internal/application/cartclient"
	"github.com/shophuyvan/shophuyvan-sub002/internal/domain/cart"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewHTTPClient(server.URL, server.Client(),
		WithBackoff(time.Millisecond, 5*time.Millisecond),
		WithLogger(zaptest.NewLogger(t)),
	)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestHTTPClient_Fetch(t *testing.T) {
	ctx := context.Background()

	t.Run("decodes record", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/cart/sync", r.URL.Path)
			assert.Equal(t, "sess_1", r.URL.Query().Get("session_id"))
			assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
			_, _ = w.Write([]byte(`{"ok":true,"cart":[{"key":"A","name":"A","price":100,"qty":2}],"updated_at":"2026-01-02T03:04:05.000Z","source":"mini"}`))
		})

		record, err := client.Fetch(ctx, "sess_1")
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, cart.SessionID("sess_1"), record.SessionID)
		assert.Equal(t, cart.OriginMini, record.Origin)
		assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), record.UpdatedAt)
		assert.Equal(t, map[string]int{"A": 2}, cart.QuantitiesByKey(record.Lines))
	})

	t.Run("null updated_at means no record", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"ok":true,"cart":[],"updated_at":null}`))
		})

		record, err := client.Fetch(ctx, "sess_1")
		require.NoError(t, err)
		assert.Nil(t, record)
	})

	t.Run("validation error is not retried", func(t *testing.T) {
		var calls atomic.Int32
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"ok":    false,
				"error": map[string]string{"code": "ERR_VALIDATION_REQUIRED", "message": "session_id is required"},
			})
		})

		_, err := client.Fetch(ctx, "")
		var httpErr *HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
		assert.Equal(t, "ERR_VALIDATION_REQUIRED", httpErr.Code)
		assert.Equal(t, "session_id is required", httpErr.Message)
		assert.False(t, httpErr.Temporary())
		assert.EqualValues(t, 1, calls.Load())
	})
}

func TestHTTPClient_Push(t *testing.T) {
	ctx := context.Background()

	t.Run("sends body and decodes result", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			var body map[string]json.RawMessage
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.JSONEq(t, `"sess_1"`, string(body["session_id"]))
			assert.JSONEq(t, `"mini"`, string(body["source"]))
			assert.JSONEq(t, `[]`, string(body["cart"]))
			_, _ = w.Write([]byte(`{"ok":true,"updated_at":"2026-01-02T03:04:05Z","items_count":0}`))
		})

		result, err := client.Push(ctx, cartclient.PushRequest{SessionID: "sess_1", Origin: cart.OriginMini})
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), result.UpdatedAt)
		assert.Zero(t, result.ItemsCount)
	})

	t.Run("retries server errors", func(t *testing.T) {
		var calls atomic.Int32
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte(`{"ok":true,"updated_at":"2026-01-02T03:04:05Z","items_count":1}`))
		})

		result, err := client.Push(ctx, cartclient.PushRequest{SessionID: "sess_1", Lines: []cart.Line{{Key: "A", Quantity: 1}}})
		require.NoError(t, err)
		assert.Equal(t, 1, result.ItemsCount)
		assert.EqualValues(t, 3, calls.Load())
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		var calls atomic.Int32
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
		})

		_, err := client.Push(ctx, cartclient.PushRequest{SessionID: "sess_1"})
		var httpErr *HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusTooManyRequests, httpErr.StatusCode)
		assert.EqualValues(t, 1+defaultMaxRetries, calls.Load())
	})

	t.Run("no retry makes one attempt", func(t *testing.T) {
		var calls atomic.Int32
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := client.Push(ctx, cartclient.PushRequest{SessionID: "sess_1", NoRetry: true})
		require.Error(t, err)
		assert.EqualValues(t, 1, calls.Load())
	})

	t.Run("context cancellation stops retries", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusServiceUnavailable)
		})
		client.maxDelay = time.Second

		cctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		_, err := client.Push(cctx, cartclient.PushRequest{SessionID: "sess_1"})
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	})
}

func TestHTTPClient_Delete(t *testing.T) {
	var method, session string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		session = r.URL.Query().Get("session_id")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	require.NoError(t, client.Delete(context.Background(), "sess 1"))
	assert.Equal(t, http.MethodDelete, method)
	assert.Equal(t, "sess 1", session)
}

func TestHTTPClient_RetryDelay(t *testing.T) {
	c := NewHTTPClient("", nil)

	assert.Equal(t, 100*time.Millisecond, c.retryDelay(1, ""))
	assert.Equal(t, 200*time.Millisecond, c.retryDelay(2, ""))
	assert.Equal(t, 2*time.Second, c.retryDelay(10, ""))
	assert.Equal(t, time.Second, c.retryDelay(1, "1"))
	assert.Equal(t, 2*time.Second, c.retryDelay(1, "120"))
	assert.Equal(t, "http://localhost:8080", c.baseURL)
}
