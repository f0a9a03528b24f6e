package webinars

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pharmia/backend/internal/auth"
	"github.com/pharmia/backend/internal/models"
)

// UserStore is the slice of the user repository the webinar handlers consume.
// *auth.Repository is the production implementation; tests substitute fakes,
// the same way the cart store swaps its Backend.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, p auth.CreateUserParams) (*models.User, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	DebitCredit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, pool models.CreditPool, amount int) error
}

// WebinarStore is the persistence surface the handlers consume. *Repository is
// the production implementation.
type WebinarStore interface {
	Create(ctx context.Context, w *models.Webinar) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Webinar, error)
	List(ctx context.Context, publishedOnly bool) ([]*models.Webinar, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Webinar, error)
	Update(ctx context.Context, id uuid.UUID, p UpdateParams) error
	Delete(ctx context.Context, id uuid.UUID, force bool) error

	GetAttendee(ctx context.Context, webinarID, userID uuid.UUID) (*models.Attendee, error)
	ListAttendees(ctx context.Context, webinarID uuid.UUID) ([]models.Attendee, error)
	ListUserAttendees(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]models.Attendee, error)
	InsertAttendee(ctx context.Context, a *models.Attendee) error
	InsertAttendeeTx(ctx context.Context, tx pgx.Tx, a *models.Attendee) error
	SubmitPaymentProof(ctx context.Context, webinarID, userID uuid.UUID, proofURL string) error
	ConfirmPayment(ctx context.Context, webinarID, userID uuid.UUID) error
	OverrideProof(ctx context.Context, webinarID, userID uuid.UUID, proofURL string) error
	RemoveAttendee(ctx context.Context, webinarID, userID uuid.UUID) error
	UpdateSlots(ctx context.Context, webinarID, userID uuid.UUID, slots []models.TimeSlot) error
}
