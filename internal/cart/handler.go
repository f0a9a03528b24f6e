package cart

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pharmia/backend/internal/models"
	"github.com/pharmia/backend/internal/webinars"
	"github.com/pharmia/backend/pkg/response"
)

// TokenHeader carries the opaque device token identifying a cart. The client
// generates it once and sends it on every cart call.
const TokenHeader = "X-Cart-Token"

// Handler handles cart HTTP endpoints.
type Handler struct {
	store       *Store
	webinarRepo *webinars.Repository
	logger      *zap.Logger
}

// NewHandler creates a cart handler.
func NewHandler(store *Store, webinarRepo *webinars.Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, webinarRepo: webinarRepo, logger: logger}
}

func cartToken(c *gin.Context) (string, bool) {
	token := c.GetHeader(TokenHeader)
	if token == "" {
		response.BadRequest(c, "missing "+TokenHeader+" header")
		return "", false
	}
	return token, true
}

// Get handles GET /cart.
func (h *Handler) Get(c *gin.Context) {
	token, ok := cartToken(c)
	if !ok {
		return
	}
	items, err := h.store.Get(c.Request.Context(), token)
	if err != nil {
		response.Internal(c, "failed to load cart")
		return
	}
	response.OK(c, items)
}

// AddItemRequest is the body for POST /cart/items.
type AddItemRequest struct {
	Type    string   `json:"type" binding:"required,oneof=WEBINAR PACK"`
	ID      string   `json:"id" binding:"required"`
	Title   string   `json:"title"`
	Group   string   `json:"group"`
	Slots   []string `json:"slots"`
	PriceHT float64  `json:"price_ht"`
	Credits int      `json:"credits"`
}

// AddItem handles POST /cart/items. Webinar lines are priced from the webinar
// record, never from the client; pack lines carry their own group and price.
func (h *Handler) AddItem(c *gin.Context) {
	token, ok := cartToken(c)
	if !ok {
		return
	}
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	item := models.CartItem{
		Type:    models.CartItemType(req.Type),
		ID:      req.ID,
		Title:   req.Title,
		PriceHT: req.PriceHT,
		Credits: req.Credits,
	}

	var webinar *models.Webinar
	switch item.Type {
	case models.CartItemWebinar:
		id, err := uuid.Parse(req.ID)
		if err != nil {
			response.BadRequest(c, "invalid webinar id")
			return
		}
		webinar, err = h.webinarRepo.GetByID(c.Request.Context(), id)
		if err != nil {
			response.NotFound(c, "webinar not found")
			return
		}
		slots, ok := models.ParseTimeSlots(req.Slots)
		if !ok {
			response.BadRequest(c, "slots must be a non-empty list of valid slots")
			return
		}
		item.Title = webinar.Title
		item.Group = webinar.Group
		item.PriceHT = webinar.Price
		item.Slots = slots
	case models.CartItemPack:
		group, ok := models.ParseGroup(req.Group)
		if !ok {
			response.BadRequest(c, "invalid group")
			return
		}
		if req.Credits < 1 {
			response.BadRequest(c, "credits must be at least 1")
			return
		}
		item.Group = group
	}

	items, err := h.store.AddItem(c.Request.Context(), token, item, webinar, time.Now())
	if err != nil {
		h.respondCartError(c, err)
		return
	}
	response.OK(c, items)
}

// RemoveItem handles DELETE /cart/items/:id.
func (h *Handler) RemoveItem(c *gin.Context) {
	token, ok := cartToken(c)
	if !ok {
		return
	}
	items, err := h.store.RemoveItem(c.Request.Context(), token, c.Param("id"))
	if err != nil {
		h.respondCartError(c, err)
		return
	}
	response.OK(c, items)
}

// UpdateSlotsRequest is the body for PUT /cart/items/:id/slots.
type UpdateSlotsRequest struct {
	Slots []string `json:"slots" binding:"required,min=1"`
}

// UpdateSlots handles PUT /cart/items/:id/slots.
func (h *Handler) UpdateSlots(c *gin.Context) {
	token, ok := cartToken(c)
	if !ok {
		return
	}
	var req UpdateSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	slots, okSlots := models.ParseTimeSlots(req.Slots)
	if !okSlots {
		response.BadRequest(c, "slots must be a non-empty list of valid slots")
		return
	}
	items, err := h.store.UpdateSlots(c.Request.Context(), token, c.Param("id"), slots)
	if err != nil {
		h.respondCartError(c, err)
		return
	}
	response.OK(c, items)
}

// Clear handles DELETE /cart.
func (h *Handler) Clear(c *gin.Context) {
	token, ok := cartToken(c)
	if !ok {
		return
	}
	if err := h.store.Clear(c.Request.Context(), token); err != nil {
		response.Internal(c, "failed to clear cart")
		return
	}
	response.NoContent(c)
}

// GetTotals handles GET /cart/totals.
func (h *Handler) GetTotals(c *gin.Context) {
	token, ok := cartToken(c)
	if !ok {
		return
	}
	items, err := h.store.Get(c.Request.Context(), token)
	if err != nil {
		response.Internal(c, "failed to load cart")
		return
	}
	response.OK(c, h.store.ComputeTotals(items))
}

func (h *Handler) respondCartError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrMixedGroups):
		response.Unprocessable(c, "your cart already contains items from another program; finish or clear it before mixing groups")
	case errors.Is(err, ErrExpiredWebinar):
		response.Unprocessable(c, "this webinar's registration window has closed")
	case errors.Is(err, ErrItemNotFound):
		response.NotFound(c, "item not in cart")
	default:
		h.logger.Error("cart operation failed", zap.Error(err))
		response.Internal(c, "cart operation failed")
	}
}
