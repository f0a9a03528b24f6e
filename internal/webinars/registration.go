package webinars

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/pharmia/backend/internal/auth"
	"github.com/pharmia/backend/internal/middleware"
	"github.com/pharmia/backend/internal/models"
	"github.com/pharmia/backend/pkg/queue"
	"github.com/pharmia/backend/pkg/response"
	"github.com/pharmia/backend/pkg/utils"
)

// RegisterRequest is the body for POST /webinars/:id/register.
type RegisterRequest struct {
	TimeSlots []string `json:"time_slots" binding:"required,min=1"`
	UseCredit bool     `json:"use_credit"`
}

// PublicRegisterRequest is the body for POST /webinars/:id/public-register.
type PublicRegisterRequest struct {
	FirstName string   `json:"first_name" binding:"required"`
	LastName  string   `json:"last_name" binding:"required"`
	Email     string   `json:"email" binding:"required,email"`
	Phone     string   `json:"phone"`
	TimeSlots []string `json:"time_slots" binding:"required,min=1"`
}

// SubmitPaymentRequest is the body for POST /webinars/:id/submit-payment.
type SubmitPaymentRequest struct {
	ProofURL string `json:"proof_url" binding:"required,url"`
}

// ProofRequest is the body for the admin proof override.
type ProofRequest struct {
	ProofURL string `json:"proof_url" binding:"required,url"`
}

// ManualAddRequest is the body for POST /webinars/:id/attendees (admin).
type ManualAddRequest struct {
	UserID    string   `json:"user_id" binding:"required,uuid"`
	TimeSlots []string `json:"time_slots" binding:"required,min=1"`
}

// UpdateSlotsRequest is the body for the slot replacement endpoint.
type UpdateSlotsRequest struct {
	TimeSlots []string `json:"time_slots" binding:"required,min=1"`
}

// register runs the shared registration flow for an existing user. It returns
// the inserted attendee or one of the package sentinels.
func (h *Handler) register(ctx context.Context, w *models.Webinar, user *models.User, slots []models.TimeSlot, useCredit bool) (*models.Attendee, error) {
	a := &models.Attendee{
		WebinarID: w.ID,
		UserID:    user.ID,
		Status:    models.AttendeePending,
		TimeSlots: slots,
	}

	switch {
	case w.IsFree():
		// A reachable phone number is the one profile requirement for free
		// seats; the client prompts profile completion on PHONE_REQUIRED.
		if user.PhoneNumber == "" {
			return nil, ErrPhoneRequired
		}
		a.Status = models.AttendeeConfirmed
		if err := h.repo.InsertAttendee(ctx, a); err != nil {
			return nil, err
		}
		h.enqueueConfirmation(w, user)
		return a, nil

	case useCredit:
		pool, ok := models.PoolForGroup(w.Group)
		if !ok {
			return nil, ErrCreditNotAllowed
		}
		a.Status = models.AttendeeConfirmed
		a.UsedCredit = true

		// Debit and insert commit together. The conditional decrement inside
		// the transaction is still what stops two concurrent requests from
		// both spending a balance of 1.
		tx, err := h.users.Begin(ctx)
		if err != nil {
			return nil, err
		}
		defer tx.Rollback(ctx)

		if err := h.users.DebitCredit(ctx, tx, user.ID, pool, 1); err != nil {
			return nil, err
		}
		if err := h.repo.InsertAttendeeTx(ctx, tx, a); err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
		h.enqueueConfirmation(w, user)
		return a, nil

	default:
		if err := h.repo.InsertAttendee(ctx, a); err != nil {
			return nil, err
		}
		return a, nil
	}
}

// enqueueConfirmation pushes a confirmation email job. Failures are logged and
// swallowed; email must never fail a registration.
func (h *Handler) enqueueConfirmation(w *models.Webinar, user *models.User) {
	if h.queue == nil {
		return
	}
	err := h.queue.EnqueueEmail(context.Background(), queue.EmailPayload{
		EmailType:      "registration_confirmed",
		WebinarID:      w.ID,
		RecipientEmail: user.Email,
		RecipientName:  user.FirstName + " " + user.LastName,
		WebinarTitle:   w.Title,
		WebinarDate:    w.Date,
	})
	if err != nil {
		h.logger.Warn("confirmation email enqueue failed",
			zap.Error(err), zap.String("webinar_id", w.ID.String()), zap.String("email", user.Email))
	}
}

func (h *Handler) respondRegisterError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrAlreadyRegistered):
		response.Conflict(c, "already registered for this webinar")
	case errors.Is(err, ErrPhoneRequired):
		response.BadRequestCode(c, "a phone number is required to register for free webinars", response.CodePhoneRequired)
	case errors.Is(err, ErrCreditNotAllowed):
		response.BadRequest(c, "credits cannot be used for this webinar group")
	case errors.Is(err, auth.ErrInsufficientCredit):
		response.PaymentRequired(c, "insufficient credit balance")
	default:
		h.logger.Error("registration failed", zap.Error(err))
		response.Internal(c, "failed to register")
	}
}

// Register handles POST /webinars/:id/register (authenticated).
func (h *Handler) Register(c *gin.Context) {
	webinarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	slots, ok := models.ParseTimeSlots(req.TimeSlots)
	if !ok {
		response.BadRequest(c, "time_slots must be a non-empty list of valid slots")
		return
	}

	w, err := h.repo.GetByID(c.Request.Context(), webinarID)
	if err != nil {
		response.NotFound(c, "webinar not found")
		return
	}
	// Drafts are invisible on the read surface; they take no registrations
	// either.
	if w.PublicationStatus != models.PublicationPublished && !middleware.IsAdmin(c) {
		response.NotFound(c, "webinar not found")
		return
	}
	userID := c.MustGet(auth.ContextUserID).(uuid.UUID)
	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		response.NotFound(c, "user not found")
		return
	}

	a, err := h.register(c.Request.Context(), w, user, slots, req.UseCredit)
	if err != nil {
		h.respondRegisterError(c, err)
		return
	}
	response.Created(c, a)
}

// PublicRegister handles POST /webinars/:id/public-register (anonymous).
//
// Free webinars: a brand-new email gets an account with an unusable password
// hash plus a full session token, so the browser is signed in with zero extra
// steps. An email that already has an account is refused with USER_EXISTS,
// since a guest registration must not attach to an existing identity without
// credential proof.
//
// Paid webinars: the user record is found or created the same way, but the
// caller only gets a short-lived guest token since payment confirmation is
// still pending.
func (h *Handler) PublicRegister(c *gin.Context) {
	webinarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	var req PublicRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	slots, ok := models.ParseTimeSlots(req.TimeSlots)
	if !ok {
		response.BadRequest(c, "time_slots must be a non-empty list of valid slots")
		return
	}

	ctx := c.Request.Context()
	w, err := h.repo.GetByID(ctx, webinarID)
	if err != nil {
		response.NotFound(c, "webinar not found")
		return
	}
	if w.PublicationStatus != models.PublicationPublished {
		response.NotFound(c, "webinar not found")
		return
	}

	// Only "no such user" may fall through to account creation. Any other
	// store error fails closed, or a transient outage would skip the
	// USER_EXISTS guard and misreport an existing email as available.
	existing, err := h.users.GetByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		h.logger.Error("user lookup failed", zap.Error(err))
		response.Internal(c, "failed to register")
		return
	}

	if w.IsFree() {
		if existing != nil {
			response.ConflictCode(c, "an account already exists for this email; please log in to register", response.CodeUserExists)
			return
		}
		if req.Phone == "" {
			response.BadRequestCode(c, "a phone number is required to register for free webinars", response.CodePhoneRequired)
			return
		}
		user, err := h.createPlaceholderUser(ctx, req)
		if err != nil {
			h.logger.Error("public signup failed", zap.Error(err))
			response.Internal(c, "failed to register")
			return
		}
		a, err := h.register(ctx, w, user, slots, false)
		if err != nil {
			h.respondRegisterError(c, err)
			return
		}
		token, err := h.jwt.Generate(user.ID, user.Email, user.Role)
		if err != nil {
			response.Internal(c, "failed to generate token")
			return
		}
		response.Created(c, gin.H{"token": token, "user": user.ToPublic(), "attendee": a})
		return
	}

	// Paid path: upsert the user, register as PENDING, hand back a guest token.
	user := existing
	if user == nil {
		user, err = h.createPlaceholderUser(ctx, req)
		if err != nil {
			h.logger.Error("public signup failed", zap.Error(err))
			response.Internal(c, "failed to register")
			return
		}
	}
	a, err := h.register(ctx, w, user, slots, false)
	if err != nil {
		h.respondRegisterError(c, err)
		return
	}
	guestToken, err := h.jwt.GenerateGuest(user.ID, user.Email)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.Created(c, gin.H{"guest_token": guestToken, "attendee": a})
}

func (h *Handler) createPlaceholderUser(ctx context.Context, req PublicRegisterRequest) (*models.User, error) {
	hash, err := utils.UnusablePasswordHash()
	if err != nil {
		return nil, err
	}
	return h.users.Create(ctx, auth.CreateUserParams{
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PhoneNumber:  req.Phone,
		Role:         models.RolePharmacist,
	})
}

// SubmitPayment handles POST /webinars/:id/submit-payment (authenticated,
// including guest tokens from paid public registration).
func (h *Handler) SubmitPayment(c *gin.Context) {
	webinarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	var req SubmitPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID := c.MustGet(auth.ContextUserID).(uuid.UUID)
	a, err := h.repo.GetAttendee(c.Request.Context(), webinarID, userID)
	if err != nil {
		response.NotFound(c, "no registration found for this webinar")
		return
	}
	// The transition table is the in-process guard; the matched-status UPDATE
	// below stays as the backstop against concurrent writers.
	if !models.CanTransition(a.Status, models.AttendeePaymentSubmitted) {
		response.Conflict(c, "registration is already confirmed")
		return
	}
	if err := h.repo.SubmitPaymentProof(c.Request.Context(), webinarID, userID, req.ProofURL); err != nil {
		if errors.Is(err, ErrAttendeeNotFound) {
			response.NotFound(c, "no registration found for this webinar")
			return
		}
		response.Internal(c, "failed to submit payment proof")
		return
	}
	response.OK(c, gin.H{"status": models.AttendeePaymentSubmitted})
}

// Confirm handles POST /webinars/:id/attendees/:userId/confirm (admin).
func (h *Handler) Confirm(c *gin.Context) {
	webinarID, userID, ok := attendeeParams(c)
	if !ok {
		return
	}
	if err := h.repo.ConfirmPayment(c.Request.Context(), webinarID, userID); err != nil {
		if errors.Is(err, ErrNotAwaitingConfirmation) {
			response.Conflict(c, "attendee is not awaiting confirmation")
			return
		}
		response.Internal(c, "failed to confirm payment")
		return
	}
	// Confirmation mail is best-effort, like every email here.
	if user, err := h.users.GetByID(c.Request.Context(), userID); err == nil {
		if w, err := h.repo.GetByID(c.Request.Context(), webinarID); err == nil {
			h.enqueueConfirmation(w, user)
		}
	}
	response.OK(c, gin.H{"status": models.AttendeeConfirmed})
}

// OverrideProof handles PUT /webinars/:id/attendees/:userId/payment-proof
// (admin): replaces the proof URL on an existing attendee regardless of status,
// to manually reconcile mismatched payment evidence.
func (h *Handler) OverrideProof(c *gin.Context) {
	webinarID, userID, ok := attendeeParams(c)
	if !ok {
		return
	}
	var req ProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.repo.OverrideProof(c.Request.Context(), webinarID, userID, req.ProofURL); err != nil {
		if errors.Is(err, ErrAttendeeNotFound) {
			response.NotFound(c, "attendee not found")
			return
		}
		response.Internal(c, "failed to update payment proof")
		return
	}
	response.OK(c, gin.H{"proof_url": req.ProofURL})
}

// ManualAdd handles POST /webinars/:id/attendees (admin): directly inserts a
// CONFIRMED attendee, bypassing payment (comp registration).
func (h *Handler) ManualAdd(c *gin.Context) {
	webinarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	var req ManualAddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		response.BadRequest(c, "invalid user_id")
		return
	}
	slots, ok := models.ParseTimeSlots(req.TimeSlots)
	if !ok {
		response.BadRequest(c, "time_slots must be a non-empty list of valid slots")
		return
	}
	if _, err := h.repo.GetByID(c.Request.Context(), webinarID); err != nil {
		response.NotFound(c, "webinar not found")
		return
	}
	if _, err := h.users.GetByID(c.Request.Context(), userID); err != nil {
		response.NotFound(c, "user not found")
		return
	}
	a := &models.Attendee{
		WebinarID: webinarID,
		UserID:    userID,
		Status:    models.AttendeeConfirmed,
		TimeSlots: slots,
	}
	if err := h.repo.InsertAttendee(c.Request.Context(), a); err != nil {
		if errors.Is(err, ErrAlreadyRegistered) {
			response.Conflict(c, "already registered for this webinar")
			return
		}
		response.Internal(c, "failed to add attendee")
		return
	}
	response.Created(c, a)
}

// Remove handles DELETE /webinars/:id/attendees/:userId (admin).
// Credits are not refunded on removal: product policy treats them as spent on
// booking regardless of outcome.
func (h *Handler) Remove(c *gin.Context) {
	webinarID, userID, ok := attendeeParams(c)
	if !ok {
		return
	}
	if err := h.repo.RemoveAttendee(c.Request.Context(), webinarID, userID); err != nil {
		if errors.Is(err, ErrAttendeeNotFound) {
			response.NotFound(c, "attendee not found")
			return
		}
		response.Internal(c, "failed to remove attendee")
		return
	}
	response.NoContent(c)
}

// UpdateSlots handles PUT /webinars/:id/attendees/:userId/slots.
// The actor must be the attendee or an admin.
func (h *Handler) UpdateSlots(c *gin.Context) {
	webinarID, userID, ok := attendeeParams(c)
	if !ok {
		return
	}
	actorID := c.MustGet(auth.ContextUserID).(uuid.UUID)
	if actorID != userID && !middleware.IsAdmin(c) {
		response.Forbidden(c, "cannot change another user's slots")
		return
	}
	var req UpdateSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	slots, ok := models.ParseTimeSlots(req.TimeSlots)
	if !ok {
		response.BadRequest(c, "time_slots must be a non-empty list of valid slots")
		return
	}
	if err := h.repo.UpdateSlots(c.Request.Context(), webinarID, userID, slots); err != nil {
		if errors.Is(err, ErrAttendeeNotFound) {
			response.NotFound(c, "attendee not found")
			return
		}
		response.Internal(c, "failed to update time slots")
		return
	}
	response.OK(c, gin.H{"time_slots": slots})
}

func attendeeParams(c *gin.Context) (webinarID, userID uuid.UUID, ok bool) {
	webinarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return uuid.Nil, uuid.Nil, false
	}
	userID, err = uuid.Parse(c.Param("userId"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return uuid.Nil, uuid.Nil, false
	}
	return webinarID, userID, true
}
