package webinars

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/pharmia/backend/internal/auth"
	"github.com/pharmia/backend/internal/middleware"
	"github.com/pharmia/backend/internal/models"
	"github.com/pharmia/backend/pkg/queue"
	"github.com/pharmia/backend/pkg/response"
)

// Handler handles webinar and registration HTTP endpoints.
type Handler struct {
	repo   WebinarStore
	users  UserStore
	jwt    *auth.JWTService
	queue  *queue.Queue
	logger *zap.Logger
	loc    *time.Location
}

// NewHandler creates a webinar handler.
func NewHandler(repo WebinarStore, users UserStore, jwt *auth.JWTService, q *queue.Queue, logger *zap.Logger, loc *time.Location) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, users: users, jwt: jwt, queue: q, logger: logger, loc: loc}
}

// viewerFor builds the Viewer for the current request against one webinar.
func (h *Handler) viewerFor(c *gin.Context, webinarID uuid.UUID) Viewer {
	v := Viewer{IsAdmin: middleware.IsAdmin(c)}
	if userID, ok := middleware.CurrentUserID(c); ok {
		if own, err := h.repo.GetAttendee(c.Request.Context(), webinarID, userID); err == nil {
			v.Own = own
		}
	}
	return v
}

// List handles GET /webinars. Anonymous and pharmacist callers see published
// webinars only; admins see everything including attendee data.
func (h *Handler) List(c *gin.Context) {
	isAdmin := middleware.IsAdmin(c)
	list, err := h.repo.List(c.Request.Context(), !isAdmin)
	if err != nil {
		response.Internal(c, "failed to list webinars")
		return
	}

	var own map[uuid.UUID]models.Attendee
	if userID, ok := middleware.CurrentUserID(c); ok {
		own, err = h.repo.ListUserAttendees(c.Request.Context(), userID)
		if err != nil {
			response.Internal(c, "failed to list webinars")
			return
		}
	}

	now := time.Now()
	views := make([]View, 0, len(list))
	for _, w := range list {
		viewer := Viewer{IsAdmin: isAdmin}
		if a, ok := own[w.ID]; ok {
			viewer.Own = &a
		}
		var attendees []models.Attendee
		if isAdmin {
			attendees, err = h.repo.ListAttendees(c.Request.Context(), w.ID)
			if err != nil {
				response.Internal(c, "failed to list webinars")
				return
			}
		}
		views = append(views, BuildView(w, CalculatedStatus(w, now, h.loc), viewer, attendees))
	}
	response.OK(c, views)
}

// GetByID handles GET /webinars/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	w, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "webinar not found")
		return
	}
	isAdmin := middleware.IsAdmin(c)
	if w.PublicationStatus != models.PublicationPublished && !isAdmin {
		response.NotFound(c, "webinar not found")
		return
	}
	var attendees []models.Attendee
	if isAdmin {
		attendees, err = h.repo.ListAttendees(c.Request.Context(), id)
		if err != nil {
			response.Internal(c, "failed to load webinar")
			return
		}
	}
	view := BuildView(w, CalculatedStatus(w, time.Now(), h.loc), h.viewerFor(c, id), attendees)
	response.OK(c, view)
}

// ByIDsRequest is the body for POST /webinars/by-ids.
type ByIDsRequest struct {
	IDs []string `json:"ids" binding:"required,min=1"`
}

// ByIDs handles POST /webinars/by-ids: batch fetch for cart pricing display.
// Always anonymous-shaped, so nothing sensitive can ride along.
func (h *Handler) ByIDs(c *gin.Context) {
	var req ByIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, s := range req.IDs {
		id, err := uuid.Parse(s)
		if err != nil {
			response.BadRequest(c, "invalid webinar id: "+s)
			return
		}
		ids = append(ids, id)
	}
	list, err := h.repo.ListByIDs(c.Request.Context(), ids)
	if err != nil {
		response.Internal(c, "failed to fetch webinars")
		return
	}
	now := time.Now()
	views := make([]View, 0, len(list))
	for _, w := range list {
		views = append(views, BuildView(w, CalculatedStatus(w, now, h.loc), Viewer{}, nil))
	}
	response.OK(c, views)
}

// CreateRequest is the body for POST /webinars (admin).
type CreateRequest struct {
	Title             string            `json:"title" binding:"required"`
	Description       string            `json:"description"`
	Presenter         string            `json:"presenter"`
	Date              time.Time         `json:"date" binding:"required"`
	Group             string            `json:"group" binding:"required"`
	Price             float64           `json:"price" binding:"min=0"`
	MeetingLink       *string           `json:"meeting_link"`
	PublicationStatus string            `json:"publication_status"`
	Resources         []models.Resource `json:"resources"`
	LinkedContentIDs  []uuid.UUID       `json:"linked_content_ids"`
}

// Create handles POST /webinars (admin only).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	group, ok := models.ParseGroup(req.Group)
	if !ok {
		response.BadRequest(c, "invalid group")
		return
	}
	pub := models.PublicationDraft
	if req.PublicationStatus != "" {
		switch models.PublicationStatus(req.PublicationStatus) {
		case models.PublicationDraft, models.PublicationPublished:
			pub = models.PublicationStatus(req.PublicationStatus)
		default:
			response.BadRequest(c, "invalid publication_status")
			return
		}
	}
	w := &models.Webinar{
		Title:             req.Title,
		Description:       req.Description,
		Presenter:         req.Presenter,
		Date:              req.Date,
		Group:             group,
		Price:             req.Price,
		MeetingLink:       req.MeetingLink,
		PublicationStatus: pub,
		Resources:         req.Resources,
		LinkedContentIDs:  req.LinkedContentIDs,
	}
	if w.Resources == nil {
		w.Resources = []models.Resource{}
	}
	if err := h.repo.Create(c.Request.Context(), w); err != nil {
		h.logger.Error("create webinar failed", zap.Error(err))
		response.Internal(c, "failed to create webinar")
		return
	}
	response.Created(c, w)
}

// UpdateRequest is the body for PUT /webinars/:id (admin). Nil fields are left
// unchanged.
type UpdateRequest struct {
	Title             *string           `json:"title"`
	Description       *string           `json:"description"`
	Presenter         *string           `json:"presenter"`
	Date              *time.Time        `json:"date"`
	Group             *string           `json:"group"`
	Price             *float64          `json:"price"`
	MeetingLink       *string           `json:"meeting_link"`
	PublicationStatus *string           `json:"publication_status"`
	Resources         []models.Resource `json:"resources"`
	LinkedContentIDs  []uuid.UUID       `json:"linked_content_ids"`
}

// Update handles PUT /webinars/:id (admin only).
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	p := UpdateParams{
		Title:            req.Title,
		Description:      req.Description,
		Presenter:        req.Presenter,
		Date:             req.Date,
		Price:            req.Price,
		MeetingLink:      req.MeetingLink,
		Resources:        req.Resources,
		LinkedContentIDs: req.LinkedContentIDs,
	}
	if req.Group != nil {
		group, ok := models.ParseGroup(*req.Group)
		if !ok {
			response.BadRequest(c, "invalid group")
			return
		}
		p.Group = &group
	}
	if req.PublicationStatus != nil {
		pub := models.PublicationStatus(*req.PublicationStatus)
		if pub != models.PublicationDraft && pub != models.PublicationPublished {
			response.BadRequest(c, "invalid publication_status")
			return
		}
		p.PublicationStatus = &pub
	}
	if err := h.repo.Update(c.Request.Context(), id, p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "webinar not found")
			return
		}
		response.Internal(c, "failed to update webinar")
		return
	}
	updated, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load webinar")
		return
	}
	response.OK(c, updated)
}

// Delete handles DELETE /webinars/:id (admin only). Refuses while attendees
// exist unless ?force=1 confirms the intent.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	force := c.Query("force") == "1"
	if err := h.repo.Delete(c.Request.Context(), id, force); err != nil {
		switch {
		case errors.Is(err, ErrHasAttendees):
			response.Conflict(c, "webinar has attendees; pass force=1 to delete anyway")
		case errors.Is(err, pgx.ErrNoRows):
			response.NotFound(c, "webinar not found")
		default:
			response.Internal(c, "failed to delete webinar")
		}
		return
	}
	response.NoContent(c)
}
