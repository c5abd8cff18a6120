package handler

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/shophuyvan/shophuyvan-sub002/internal/application/cartsync"
	"github.com/shophuyvan/shophuyvan-sub002/internal/domain/cart"
	"github.com/shophuyvan/shophuyvan-sub002/internal/interfaces/http/dto"
)

// CartService is the application surface used by CartSyncHandler
type CartService interface {
	GetCart(ctx context.Context, sessionID string) (*cartsync.CartResult, error)
	SyncCart(ctx context.Context, cmd cartsync.SyncCommand) (*cartsync.SyncResult, error)
	ClearCart(ctx context.Context, sessionID string) error
}

// CartSyncHandler serves /cart/sync
type CartSyncHandler struct {
	BaseHandler
	service CartService
}

// NewCartSyncHandler creates a new CartSyncHandler
func NewCartSyncHandler(service CartService) *CartSyncHandler {
	return &CartSyncHandler{service: service}
}

// Get returns the stored cart, or an empty cart with a null updated_at
func (h *CartSyncHandler) Get(c *gin.Context) {
	var query dto.SessionQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.service.GetCart(c.Request.Context(), query.SessionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := dto.CartResponse{OK: true, Cart: result.Lines}
	if resp.Cart == nil {
		resp.Cart = []cart.Line{}
	}
	if result.Found {
		updatedAt := result.UpdatedAt
		resp.UpdatedAt = &updatedAt
		resp.Source = result.Origin
	}
	h.Success(c, resp)
}

// Sync replaces the stored cart with the posted lines
func (h *CartSyncHandler) Sync(c *gin.Context) {
	var req dto.CartSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	lines, err := decodeLines(req.Cart)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	result, err := h.service.SyncCart(c.Request.Context(), cartsync.SyncCommand{
		SessionID: req.SessionID,
		Lines:     lines,
		Origin:    req.Source,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.CartSyncResponse{
		OK:         true,
		UpdatedAt:  result.UpdatedAt,
		ItemsCount: result.ItemsCount,
	})
}

// Clear deletes the stored cart
func (h *CartSyncHandler) Clear(c *gin.Context) {
	var query dto.SessionQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindError(c, err)
		return
	}
	if err := h.service.ClearCart(c.Request.Context(), query.SessionID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.Response{OK: true})
}

// decodeLines accepts only a JSON array; null, objects and scalars are rejected
func decodeLines(raw json.RawMessage) ([]cart.Line, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, cart.ErrLinesNotArray
	}
	var lines []cart.Line
	if err := json.Unmarshal(trimmed, &lines); err != nil {
		return nil, cart.ErrLinesNotArray.WithMessage("cart contains an invalid line")
	}
	return lines, nil
}

var _ CartService = (*cartsync.Service)(nil)
