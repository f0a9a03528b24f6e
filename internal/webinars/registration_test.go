package webinars

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pharmia/backend/internal/auth"
	"github.com/pharmia/backend/internal/models"
	"github.com/pharmia/backend/pkg/response"
)

type fakeUserStore struct {
	byEmail   map[string]*models.User
	byID      map[uuid.UUID]*models.User
	lookupErr error
	created   []*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		byEmail: make(map[string]*models.User),
		byID:    make(map[uuid.UUID]*models.User),
	}
}

func (f *fakeUserStore) add(u *models.User) *models.User {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	f.byEmail[strings.ToLower(u.Email)] = u
	f.byID[u.ID] = u
	return u
}

func (f *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	if u, ok := f.byEmail[strings.ToLower(email)]; ok {
		return u, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserStore) Create(_ context.Context, p auth.CreateUserParams) (*models.User, error) {
	u := f.add(&models.User{
		Email:       p.Email,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		PhoneNumber: p.PhoneNumber,
		Role:        p.Role,
	})
	f.created = append(f.created, u)
	return u, nil
}

func (f *fakeUserStore) Begin(context.Context) (pgx.Tx, error) {
	return nil, errors.New("transactions not supported in fake")
}

func (f *fakeUserStore) DebitCredit(context.Context, pgx.Tx, uuid.UUID, models.CreditPool, int) error {
	return errors.New("transactions not supported in fake")
}

type attendeeKey struct {
	webinar uuid.UUID
	user    uuid.UUID
}

type fakeWebinarStore struct {
	webinars  map[uuid.UUID]*models.Webinar
	attendees map[attendeeKey]*models.Attendee
}

func newFakeWebinarStore() *fakeWebinarStore {
	return &fakeWebinarStore{
		webinars:  make(map[uuid.UUID]*models.Webinar),
		attendees: make(map[attendeeKey]*models.Attendee),
	}
}

func (f *fakeWebinarStore) add(w *models.Webinar) *models.Webinar {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	f.webinars[w.ID] = w
	return w
}

func (f *fakeWebinarStore) Create(_ context.Context, w *models.Webinar) error {
	f.add(w)
	return nil
}

func (f *fakeWebinarStore) GetByID(_ context.Context, id uuid.UUID) (*models.Webinar, error) {
	if w, ok := f.webinars[id]; ok {
		return w, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeWebinarStore) List(context.Context, bool) ([]*models.Webinar, error) {
	return nil, nil
}

func (f *fakeWebinarStore) ListByIDs(context.Context, []uuid.UUID) ([]*models.Webinar, error) {
	return nil, nil
}

func (f *fakeWebinarStore) Update(context.Context, uuid.UUID, UpdateParams) error { return nil }

func (f *fakeWebinarStore) Delete(context.Context, uuid.UUID, bool) error { return nil }

func (f *fakeWebinarStore) GetAttendee(_ context.Context, webinarID, userID uuid.UUID) (*models.Attendee, error) {
	if a, ok := f.attendees[attendeeKey{webinarID, userID}]; ok {
		return a, nil
	}
	return nil, ErrAttendeeNotFound
}

func (f *fakeWebinarStore) ListAttendees(context.Context, uuid.UUID) ([]models.Attendee, error) {
	return nil, nil
}

func (f *fakeWebinarStore) ListUserAttendees(context.Context, uuid.UUID) (map[uuid.UUID]models.Attendee, error) {
	return nil, nil
}

func (f *fakeWebinarStore) InsertAttendee(_ context.Context, a *models.Attendee) error {
	key := attendeeKey{a.WebinarID, a.UserID}
	if _, ok := f.attendees[key]; ok {
		return ErrAlreadyRegistered
	}
	a.RegisteredAt = time.Now()
	f.attendees[key] = a
	return nil
}

func (f *fakeWebinarStore) InsertAttendeeTx(ctx context.Context, _ pgx.Tx, a *models.Attendee) error {
	return f.InsertAttendee(ctx, a)
}

func (f *fakeWebinarStore) SubmitPaymentProof(_ context.Context, webinarID, userID uuid.UUID, proofURL string) error {
	a, ok := f.attendees[attendeeKey{webinarID, userID}]
	if !ok || a.Status == models.AttendeeConfirmed {
		return ErrAttendeeNotFound
	}
	a.Status = models.AttendeePaymentSubmitted
	a.ProofURL = &proofURL
	return nil
}

func (f *fakeWebinarStore) ConfirmPayment(_ context.Context, webinarID, userID uuid.UUID) error {
	a, ok := f.attendees[attendeeKey{webinarID, userID}]
	if !ok || a.Status != models.AttendeePaymentSubmitted {
		return ErrNotAwaitingConfirmation
	}
	a.Status = models.AttendeeConfirmed
	return nil
}

func (f *fakeWebinarStore) OverrideProof(context.Context, uuid.UUID, uuid.UUID, string) error {
	return nil
}

func (f *fakeWebinarStore) RemoveAttendee(context.Context, uuid.UUID, uuid.UUID) error { return nil }

func (f *fakeWebinarStore) UpdateSlots(context.Context, uuid.UUID, uuid.UUID, []models.TimeSlot) error {
	return nil
}

type registrationFixture struct {
	handler *Handler
	users   *fakeUserStore
	store   *fakeWebinarStore
	jwt     *auth.JWTService
	router  *gin.Engine
}

// actAs injects the authenticated user the way the JWT middleware would.
func actAs(userID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(auth.ContextUserID, userID)
	}
}

func newRegistrationFixture(t *testing.T) *registrationFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	users := newFakeUserStore()
	store := newFakeWebinarStore()
	svc := auth.NewJWTService("test-secret", 24, time.Hour)
	h := NewHandler(store, users, svc, nil, zap.NewNop(), time.UTC)

	r := gin.New()
	r.POST("/webinars/:id/public-register", h.PublicRegister)
	r.POST("/webinars/:id/attendees/:userId/confirm", h.Confirm)
	return &registrationFixture{handler: h, users: users, store: store, jwt: svc, router: r}
}

func (fx *registrationFixture) post(t *testing.T, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) (response.Body, map[string]json.RawMessage) {
	t.Helper()
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
		Code    string          `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	data := make(map[string]json.RawMessage)
	if len(env.Data) > 0 {
		_ = json.Unmarshal(env.Data, &data)
	}
	return response.Body{Success: env.Success, Error: env.Error, Code: env.Code}, data
}

func publishedFreeWebinar(fx *registrationFixture) *models.Webinar {
	return fx.store.add(&models.Webinar{
		Title:             "Conseil officinal",
		Date:              time.Now().Add(7 * 24 * time.Hour),
		Group:             models.GroupCropTunis,
		Price:             0,
		PublicationStatus: models.PublicationPublished,
	})
}

func TestPublicRegisterFreeNewEmail(t *testing.T) {
	fx := newRegistrationFixture(t)
	w := publishedFreeWebinar(fx)

	rec := fx.post(t, "/webinars/"+w.ID.String()+"/public-register", gin.H{
		"first_name": "Amel",
		"last_name":  "Ben Salah",
		"email":      "amel@example.com",
		"phone":      "+21620123456",
		"time_slots": []string{"EVENING"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	env, data := decodeEnvelope(t, rec)
	require.True(t, env.Success)

	var token string
	require.NoError(t, json.Unmarshal(data["token"], &token))
	claims, err := fx.jwt.Validate(token)
	require.NoError(t, err)
	require.Equal(t, auth.ScopeSession, claims.Scope)

	var a models.Attendee
	require.NoError(t, json.Unmarshal(data["attendee"], &a))
	require.Equal(t, models.AttendeeConfirmed, a.Status)
	require.Len(t, fx.users.created, 1)
}

func TestPublicRegisterFreeExistingEmail(t *testing.T) {
	fx := newRegistrationFixture(t)
	w := publishedFreeWebinar(fx)
	fx.users.add(&models.User{Email: "amel@example.com", Role: models.RolePharmacist})

	rec := fx.post(t, "/webinars/"+w.ID.String()+"/public-register", gin.H{
		"first_name": "Amel",
		"last_name":  "Ben Salah",
		"email":      "Amel@Example.com",
		"phone":      "+21620123456",
		"time_slots": []string{"EVENING"},
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	env, _ := decodeEnvelope(t, rec)
	require.Equal(t, response.CodeUserExists, env.Code)
	require.Empty(t, fx.users.created)
}

func TestPublicRegisterFreeWithoutPhone(t *testing.T) {
	fx := newRegistrationFixture(t)
	w := publishedFreeWebinar(fx)

	rec := fx.post(t, "/webinars/"+w.ID.String()+"/public-register", gin.H{
		"first_name": "Amel",
		"last_name":  "Ben Salah",
		"email":      "amel@example.com",
		"time_slots": []string{"EVENING"},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env, _ := decodeEnvelope(t, rec)
	require.Equal(t, response.CodePhoneRequired, env.Code)
}

func TestPublicRegisterLookupFailureFailsClosed(t *testing.T) {
	fx := newRegistrationFixture(t)
	w := publishedFreeWebinar(fx)
	fx.users.lookupErr = errors.New("connection refused")

	rec := fx.post(t, "/webinars/"+w.ID.String()+"/public-register", gin.H{
		"first_name": "Amel",
		"last_name":  "Ben Salah",
		"email":      "amel@example.com",
		"phone":      "+21620123456",
		"time_slots": []string{"EVENING"},
	})
	// A transient store error must not be read as "email available".
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Empty(t, fx.users.created)
}

func TestPublicRegisterDraftWebinarHidden(t *testing.T) {
	fx := newRegistrationFixture(t)
	w := fx.store.add(&models.Webinar{
		Title:             "Brouillon",
		Date:              time.Now().Add(7 * 24 * time.Hour),
		Group:             models.GroupCropTunis,
		PublicationStatus: models.PublicationDraft,
	})

	rec := fx.post(t, "/webinars/"+w.ID.String()+"/public-register", gin.H{
		"first_name": "Amel",
		"last_name":  "Ben Salah",
		"email":      "amel@example.com",
		"phone":      "+21620123456",
		"time_slots": []string{"EVENING"},
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPublicRegisterPaidIssuesGuestToken(t *testing.T) {
	fx := newRegistrationFixture(t)
	w := fx.store.add(&models.Webinar{
		Title:             "Master class",
		Date:              time.Now().Add(7 * 24 * time.Hour),
		Group:             models.GroupMasterClass,
		Price:             390,
		PublicationStatus: models.PublicationPublished,
	})
	// The email belongs to an admin account; the guest token must not inherit
	// that role.
	fx.users.add(&models.User{Email: "admin@example.com", Role: models.RoleAdmin})

	rec := fx.post(t, "/webinars/"+w.ID.String()+"/public-register", gin.H{
		"first_name": "Sami",
		"last_name":  "Trabelsi",
		"email":      "admin@example.com",
		"time_slots": []string{"MORNING"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	_, data := decodeEnvelope(t, rec)
	var token string
	require.NoError(t, json.Unmarshal(data["guest_token"], &token))
	claims, err := fx.jwt.Validate(token)
	require.NoError(t, err)
	require.Equal(t, auth.ScopeGuest, claims.Scope)
	require.Equal(t, models.RolePharmacist, claims.Role)

	var a models.Attendee
	require.NoError(t, json.Unmarshal(data["attendee"], &a))
	require.Equal(t, models.AttendeePending, a.Status)
}

func TestRegisterDraftWebinarHidden(t *testing.T) {
	fx := newRegistrationFixture(t)
	user := fx.users.add(&models.User{Email: "amel@example.com", PhoneNumber: "+21620123456", Role: models.RolePharmacist})
	w := fx.store.add(&models.Webinar{
		Title:             "Brouillon",
		Date:              time.Now().Add(7 * 24 * time.Hour),
		Group:             models.GroupCropTunis,
		PublicationStatus: models.PublicationDraft,
	})
	fx.router.POST("/webinars/:id/register", actAs(user.ID), fx.handler.Register)

	rec := fx.post(t, "/webinars/"+w.ID.String()+"/register", gin.H{
		"time_slots": []string{"EVENING"},
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConfirmPendingAttendeeConflicts(t *testing.T) {
	fx := newRegistrationFixture(t)
	w := publishedFreeWebinar(fx)
	user := fx.users.add(&models.User{Email: "amel@example.com", Role: models.RolePharmacist})
	fx.store.attendees[attendeeKey{w.ID, user.ID}] = &models.Attendee{
		WebinarID: w.ID,
		UserID:    user.ID,
		Status:    models.AttendeePending,
		TimeSlots: []models.TimeSlot{models.SlotEvening},
	}

	rec := fx.post(t, "/webinars/"+w.ID.String()+"/attendees/"+user.ID.String()+"/confirm", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestSubmitPaymentConfirmedConflicts(t *testing.T) {
	fx := newRegistrationFixture(t)
	w := publishedFreeWebinar(fx)
	user := fx.users.add(&models.User{Email: "amel@example.com", Role: models.RolePharmacist})
	fx.store.attendees[attendeeKey{w.ID, user.ID}] = &models.Attendee{
		WebinarID: w.ID,
		UserID:    user.ID,
		Status:    models.AttendeeConfirmed,
		TimeSlots: []models.TimeSlot{models.SlotEvening},
	}
	fx.router.POST("/webinars/:id/submit-payment", actAs(user.ID), fx.handler.SubmitPayment)

	rec := fx.post(t, "/webinars/"+w.ID.String()+"/submit-payment", gin.H{
		"proof_url": "https://files.example.com/proof.pdf",
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	fx.store.attendees[attendeeKey{w.ID, user.ID}].Status = models.AttendeePending
	rec = fx.post(t, "/webinars/"+w.ID.String()+"/submit-payment", gin.H{
		"proof_url": "https://files.example.com/proof.pdf",
	})
	require.Equal(t, http.StatusOK, rec.Code)
}
