package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shophuyvan/shophuyvan-sub002/internal/interfaces/http/dto"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler_Check(t *testing.T) {
	tests := []struct {
		name   string
		ping   pingFunc
		status int
		ok     bool
	}{
		{"store up", func(context.Context) error { return nil }, http.StatusOK, true},
		{"store down", func(context.Context) error { return errors.New("dial tcp: refused") }, http.StatusServiceUnavailable, false},
		{"ping carries deadline", func(ctx context.Context) error {
			if _, ok := ctx.Deadline(); !ok {
				return errors.New("no deadline")
			}
			return nil
		}, http.StatusOK, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/health", NewHealthHandler(tt.ping, "memory").Check)

			w := do(t, r, http.MethodGet, "/health", "")

			assert.Equal(t, tt.status, w.Code)
			var resp dto.HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.ok, resp.OK)
			assert.Equal(t, "memory", resp.Backend)
			assert.NotEmpty(t, resp.Uptime)
		})
	}
}
