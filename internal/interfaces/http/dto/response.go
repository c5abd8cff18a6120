package dto

import (
	"encoding/json"
	"time"

	"github.com/shophuyvan/shophuyvan-sub002/internal/domain/cart"
)

// Response is the envelope shared by every endpoint
type Response struct {
	OK        bool       `json:"ok"`
	Error     *ErrorInfo `json:"error,omitempty"`
	RequestID string     `json:"request_id,omitempty"`
}

// ErrorInfo represents error details
type ErrorInfo struct {
	Code    string             `json:"code"`
	Message string             `json:"message"`
	Details []ValidationDetail `json:"details,omitempty"`
}

// ValidationDetail names one invalid field
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewErrorResponse creates an error envelope
func NewErrorResponse(code, message, requestID string) Response {
	return Response{
		OK:        false,
		Error:     &ErrorInfo{Code: code, Message: message},
		RequestID: requestID,
	}
}

// NewValidationErrorResponse creates a 400 envelope listing invalid fields
func NewValidationErrorResponse(code, message, requestID string, details []ValidationDetail) Response {
	resp := NewErrorResponse(code, message, requestID)
	resp.Error.Details = details
	return resp
}

// SessionQuery carries session_id on GET and DELETE
type SessionQuery struct {
	SessionID string `form:"session_id" binding:"required,max=128"`
}

// CartSyncRequest is the POST /cart/sync body.
// Cart stays raw so a non-array value can be rejected explicitly.
type CartSyncRequest struct {
	SessionID string          `json:"session_id" binding:"required,max=128"`
	Cart      json.RawMessage `json:"cart"`
	Source    string          `json:"source" binding:"max=32"`
}

// CartResponse is the GET /cart/sync body.
// UpdatedAt is null and Source omitted when the session has no record.
type CartResponse struct {
	OK        bool        `json:"ok"`
	Cart      []cart.Line `json:"cart"`
	UpdatedAt *time.Time  `json:"updated_at"`
	Source    cart.Origin `json:"source,omitempty"`
}

// CartSyncResponse is the POST /cart/sync body
type CartSyncResponse struct {
	OK         bool      `json:"ok"`
	UpdatedAt  time.Time `json:"updated_at"`
	ItemsCount int       `json:"items_count"`
}

// HealthResponse is the GET /health body
type HealthResponse struct {
	OK      bool   `json:"ok"`
	Status  string `json:"status"`
	Backend string `json:"backend,omitempty"`
	Uptime  string `json:"uptime"`
}
