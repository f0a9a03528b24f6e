package webinars

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pharmia/backend/internal/models"
)

const webinarColumns = `id, title, description, presenter, date, webinar_group, price, meeting_link,
		publication_status, resources, linked_content_ids, created_at, updated_at`

// Repository handles webinar and attendee persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a webinar repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func scanWebinar(row pgx.Row) (*models.Webinar, error) {
	var w models.Webinar
	var group, pub string
	var resources []byte
	var linked []uuid.UUID
	err := row.Scan(&w.ID, &w.Title, &w.Description, &w.Presenter, &w.Date, &group, &w.Price, &w.MeetingLink,
		&pub, &resources, &linked, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	w.Group = models.WebinarGroup(group)
	w.PublicationStatus = models.PublicationStatus(pub)
	w.LinkedContentIDs = linked
	if len(resources) > 0 {
		if err := json.Unmarshal(resources, &w.Resources); err != nil {
			return nil, err
		}
	}
	if w.Resources == nil {
		w.Resources = []models.Resource{}
	}
	if w.LinkedContentIDs == nil {
		w.LinkedContentIDs = []uuid.UUID{}
	}
	return &w, nil
}

// Create inserts a new webinar.
func (r *Repository) Create(ctx context.Context, w *models.Webinar) error {
	resources, err := json.Marshal(w.Resources)
	if err != nil {
		return err
	}
	const q = `INSERT INTO webinars (title, description, presenter, date, webinar_group, price, meeting_link, publication_status, resources, linked_content_ids)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, w.Title, w.Description, w.Presenter, w.Date, string(w.Group), w.Price,
		w.MeetingLink, string(w.PublicationStatus), resources, w.LinkedContentIDs).
		Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
}

// GetByID returns a webinar by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Webinar, error) {
	return scanWebinar(r.pool.QueryRow(ctx, `SELECT `+webinarColumns+` FROM webinars WHERE id = $1`, id))
}

// List returns webinars newest first. When publishedOnly is set, drafts are
// excluded (non-admin callers).
func (r *Repository) List(ctx context.Context, publishedOnly bool) ([]*models.Webinar, error) {
	q := `SELECT ` + webinarColumns + ` FROM webinars`
	if publishedOnly {
		q += ` WHERE publication_status = 'PUBLISHED'`
	}
	q += ` ORDER BY date DESC`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Webinar
	for rows.Next() {
		w, err := scanWebinar(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, w)
	}
	return list, rows.Err()
}

// ListByIDs returns published webinars matching the given ids (cart pricing).
func (r *Repository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Webinar, error) {
	const q = `SELECT ` + webinarColumns + ` FROM webinars WHERE id = ANY($1) AND publication_status = 'PUBLISHED'`
	rows, err := r.pool.Query(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Webinar
	for rows.Next() {
		w, err := scanWebinar(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, w)
	}
	return list, rows.Err()
}

// UpdateParams holds the optional fields for a webinar update.
type UpdateParams struct {
	Title             *string
	Description       *string
	Presenter         *string
	Date              *time.Time
	Group             *models.WebinarGroup
	Price             *float64
	MeetingLink       *string
	PublicationStatus *models.PublicationStatus
	Resources         []models.Resource
	LinkedContentIDs  []uuid.UUID
}

// Update applies the non-nil fields of p to a webinar.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, p UpdateParams) error {
	var resources []byte
	if p.Resources != nil {
		var err error
		resources, err = json.Marshal(p.Resources)
		if err != nil {
			return err
		}
	}
	const q = `UPDATE webinars SET
		title = COALESCE($1, title),
		description = COALESCE($2, description),
		presenter = COALESCE($3, presenter),
		date = COALESCE($4, date),
		webinar_group = COALESCE($5, webinar_group),
		price = COALESCE($6, price),
		meeting_link = COALESCE($7, meeting_link),
		publication_status = COALESCE($8, publication_status),
		resources = COALESCE($9, resources),
		linked_content_ids = COALESCE($10, linked_content_ids),
		updated_at = NOW()
		WHERE id = $11`
	var group, pub *string
	if p.Group != nil {
		s := string(*p.Group)
		group = &s
	}
	if p.PublicationStatus != nil {
		s := string(*p.PublicationStatus)
		pub = &s
	}
	tag, err := r.pool.Exec(ctx, q, p.Title, p.Description, p.Presenter, p.Date, group, p.Price,
		p.MeetingLink, pub, resources, p.LinkedContentIDs, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Delete removes a webinar. Unless force is set, it refuses while attendees
// exist.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID, force bool) error {
	if !force {
		var n int
		if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM webinar_attendees WHERE webinar_id = $1`, id).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			return ErrHasAttendees
		}
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM webinars WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func slotsToStrings(slots []models.TimeSlot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = string(s)
	}
	return out
}

func stringsToSlots(in []string) []models.TimeSlot {
	out := make([]models.TimeSlot, len(in))
	for i, s := range in {
		out[i] = models.TimeSlot(s)
	}
	return out
}

func scanAttendee(row pgx.Row) (*models.Attendee, error) {
	var a models.Attendee
	var status string
	var slots []string
	err := row.Scan(&a.WebinarID, &a.UserID, &status, &slots, &a.ProofURL, &a.UsedCredit, &a.RegisteredAt)
	if err != nil {
		return nil, err
	}
	a.Status = models.AttendeeStatus(status)
	a.TimeSlots = stringsToSlots(slots)
	return &a, nil
}

const attendeeColumns = `webinar_id, user_id, status, time_slots, proof_url, used_credit, registered_at`

// GetAttendee returns the attendee row for a webinar/user pair, or
// ErrAttendeeNotFound.
func (r *Repository) GetAttendee(ctx context.Context, webinarID, userID uuid.UUID) (*models.Attendee, error) {
	a, err := scanAttendee(r.pool.QueryRow(ctx,
		`SELECT `+attendeeColumns+` FROM webinar_attendees WHERE webinar_id = $1 AND user_id = $2`, webinarID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAttendeeNotFound
	}
	return a, err
}

// ListAttendees returns all attendees of a webinar (admin view).
func (r *Repository) ListAttendees(ctx context.Context, webinarID uuid.UUID) ([]models.Attendee, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attendeeColumns+` FROM webinar_attendees WHERE webinar_id = $1 ORDER BY registered_at`, webinarID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Attendee
	for rows.Next() {
		a, err := scanAttendee(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}

// ListUserAttendees returns a user's attendee rows keyed by webinar id, for
// decorating list responses with the requester's own registration state.
func (r *Repository) ListUserAttendees(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]models.Attendee, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attendeeColumns+` FROM webinar_attendees WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uuid.UUID]models.Attendee)
	for rows.Next() {
		a, err := scanAttendee(rows)
		if err != nil {
			return nil, err
		}
		out[a.WebinarID] = *a
	}
	return out, rows.Err()
}

const insertAttendeeSQL = `INSERT INTO webinar_attendees (webinar_id, user_id, status, time_slots, used_credit)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING registered_at`

// InsertAttendee appends a new attendee. A duplicate webinar/user pair maps to
// ErrAlreadyRegistered via the primary key, never a second row.
func (r *Repository) InsertAttendee(ctx context.Context, a *models.Attendee) error {
	err := r.pool.QueryRow(ctx, insertAttendeeSQL,
		a.WebinarID, a.UserID, string(a.Status), slotsToStrings(a.TimeSlots), a.UsedCredit).
		Scan(&a.RegisteredAt)
	if isUniqueViolation(err) {
		return ErrAlreadyRegistered
	}
	return err
}

// InsertAttendeeTx is InsertAttendee inside an existing transaction, used to
// pair the insert with a credit debit so either both apply or neither does.
func (r *Repository) InsertAttendeeTx(ctx context.Context, tx pgx.Tx, a *models.Attendee) error {
	err := tx.QueryRow(ctx, insertAttendeeSQL,
		a.WebinarID, a.UserID, string(a.Status), slotsToStrings(a.TimeSlots), a.UsedCredit).
		Scan(&a.RegisteredAt)
	if isUniqueViolation(err) {
		return ErrAlreadyRegistered
	}
	return err
}

// SubmitPaymentProof records a payment proof URL and moves the attendee to
// PAYMENT_SUBMITTED. Only PENDING and PAYMENT_SUBMITTED rows match; a
// CONFIRMED attendee never regresses.
func (r *Repository) SubmitPaymentProof(ctx context.Context, webinarID, userID uuid.UUID, proofURL string) error {
	const q = `UPDATE webinar_attendees SET proof_url = $1, status = 'PAYMENT_SUBMITTED'
		WHERE webinar_id = $2 AND user_id = $3 AND status IN ('PENDING', 'PAYMENT_SUBMITTED')`
	tag, err := r.pool.Exec(ctx, q, proofURL, webinarID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAttendeeNotFound
	}
	return nil
}

// ConfirmPayment advances a PAYMENT_SUBMITTED attendee to CONFIRMED. The
// matched-status filter makes double confirmation and confirming a
// never-submitted registration both fail with zero rows.
func (r *Repository) ConfirmPayment(ctx context.Context, webinarID, userID uuid.UUID) error {
	const q = `UPDATE webinar_attendees SET status = 'CONFIRMED'
		WHERE webinar_id = $1 AND user_id = $2 AND status = 'PAYMENT_SUBMITTED'`
	tag, err := r.pool.Exec(ctx, q, webinarID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotAwaitingConfirmation
	}
	return nil
}

// OverrideProof replaces the proof URL regardless of status (admin
// reconciliation of mismatched payment evidence).
func (r *Repository) OverrideProof(ctx context.Context, webinarID, userID uuid.UUID, proofURL string) error {
	const q = `UPDATE webinar_attendees SET proof_url = $1 WHERE webinar_id = $2 AND user_id = $3`
	tag, err := r.pool.Exec(ctx, q, proofURL, webinarID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAttendeeNotFound
	}
	return nil
}

// RemoveAttendee hard-deletes an attendee row. Credit balances are left
// untouched: credits are spent on booking regardless of outcome.
func (r *Repository) RemoveAttendee(ctx context.Context, webinarID, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM webinar_attendees WHERE webinar_id = $1 AND user_id = $2`, webinarID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAttendeeNotFound
	}
	return nil
}

// UpdateSlots replaces the attendee's slot selection. Plain last-write-wins is
// fine here; slots carry no invariant beyond being non-empty.
func (r *Repository) UpdateSlots(ctx context.Context, webinarID, userID uuid.UUID, slots []models.TimeSlot) error {
	const q = `UPDATE webinar_attendees SET time_slots = $1 WHERE webinar_id = $2 AND user_id = $3`
	tag, err := r.pool.Exec(ctx, q, slotsToStrings(slots), webinarID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAttendeeNotFound
	}
	return nil
}
