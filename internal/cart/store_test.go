package cart

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pharmia/backend/config"
	"github.com/pharmia/backend/internal/models"
)

// memBackend is an in-memory Backend for tests.
type memBackend struct {
	data map[string][]byte
}

func newMemBackend() *memBackend {
	return &memBackend{data: make(map[string][]byte)}
}

func (m *memBackend) Load(_ context.Context, token string) ([]byte, error) {
	return m.data[token], nil
}

func (m *memBackend) Save(_ context.Context, token string, data []byte) error {
	m.data[token] = data
	return nil
}

func (m *memBackend) Delete(_ context.Context, token string) error {
	delete(m.data, token)
	return nil
}

var testBilling = config.BillingConfig{
	VATPercent:       19,
	StampDuty:        1,
	MasterClassPrice: 390,
}

func newTestStore() (*Store, *memBackend) {
	b := newMemBackend()
	return NewStore(b, testBilling, time.UTC, nil), b
}

func webinarItem(id string, group models.WebinarGroup) models.CartItem {
	return models.CartItem{
		Type:    models.CartItemWebinar,
		ID:      id,
		Title:   "Webinaire " + id,
		Group:   group,
		Slots:   []models.TimeSlot{models.SlotEvening},
		PriceHT: 100,
	}
}

func TestAddItem_RejectsMixedGroups(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	_, err := s.AddItem(ctx, "tok", webinarItem("a", models.GroupCropTunis), nil, time.Now())
	require.NoError(t, err)

	_, err = s.AddItem(ctx, "tok", webinarItem("b", models.GroupPharmia), nil, time.Now())
	require.ErrorIs(t, err, ErrMixedGroups)

	// The rejected add must not have touched the cart.
	items, err := s.Get(ctx, "tok")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "a", items[0].ID)
}

func TestAddItem_UpsertsByID(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	first := webinarItem("a", models.GroupCropTunis)
	_, err := s.AddItem(ctx, "tok", first, nil, time.Now())
	require.NoError(t, err)

	updated := first
	updated.Slots = []models.TimeSlot{models.SlotMorning, models.SlotAfternoon}
	updated.PriceHT = 120

	items, err := s.AddItem(ctx, "tok", updated, nil, time.Now())
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, updated.Slots, items[0].Slots)
	require.Equal(t, 120.0, items[0].PriceHT)
}

func TestAddItem_RejectsExpiredWebinar(t *testing.T) {
	s, _ := newTestStore()
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	ended := &models.Webinar{
		Group: models.GroupCropTunis,
		Date:  time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC),
	}

	_, err := s.AddItem(context.Background(), "tok", webinarItem("a", models.GroupCropTunis), ended, now)
	require.ErrorIs(t, err, ErrExpiredWebinar)
}

func TestRemoveItem(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	_, err := s.AddItem(ctx, "tok", webinarItem("a", models.GroupCropTunis), nil, time.Now())
	require.NoError(t, err)
	_, err = s.AddItem(ctx, "tok", webinarItem("b", models.GroupCropTunis), nil, time.Now())
	require.NoError(t, err)

	items, err := s.RemoveItem(ctx, "tok", "a")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "b", items[0].ID)

	_, err = s.RemoveItem(ctx, "tok", "missing")
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestUpdateSlots(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	_, err := s.AddItem(ctx, "tok", webinarItem("a", models.GroupCropTunis), nil, time.Now())
	require.NoError(t, err)

	items, err := s.UpdateSlots(ctx, "tok", "a", []models.TimeSlot{models.SlotMorning})
	require.NoError(t, err)
	require.Equal(t, []models.TimeSlot{models.SlotMorning}, items[0].Slots)

	_, err = s.UpdateSlots(ctx, "tok", "missing", []models.TimeSlot{models.SlotMorning})
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestGet_MigratesLegacyItems(t *testing.T) {
	s, b := newTestStore()
	ctx := context.Background()

	// Items persisted before the Type discriminator existed.
	b.data["tok"] = []byte(`[
		{"id":"w1","title":"Old webinar","price_ht":80},
		{"id":"p1","title":"Old pack","pack_id":"pack-5","group":"MASTER_CLASS"}
	]`)

	items, err := s.Get(ctx, "tok")
	require.NoError(t, err)
	require.Len(t, items, 2)

	require.Equal(t, models.CartItemWebinar, items[0].Type)
	require.Equal(t, models.GroupCropTunis, items[0].Group)

	require.Equal(t, models.CartItemPack, items[1].Type)
	require.Equal(t, models.GroupMasterClass, items[1].Group)
}

func TestGet_DiscardsCorruptPayload(t *testing.T) {
	s, b := newTestStore()
	b.data["tok"] = []byte(`{not json`)

	items, err := s.Get(context.Background(), "tok")
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestClear(t *testing.T) {
	s, b := newTestStore()
	ctx := context.Background()

	_, err := s.AddItem(ctx, "tok", webinarItem("a", models.GroupCropTunis), nil, time.Now())
	require.NoError(t, err)

	require.NoError(t, s.Clear(ctx, "tok"))
	require.Empty(t, b.data)

	items, err := s.Get(ctx, "tok")
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestComputeTotals_Standard(t *testing.T) {
	s, _ := newTestStore()

	items := []models.CartItem{
		webinarItem("a", models.GroupCropTunis),
		webinarItem("b", models.GroupCropTunis),
	}
	items[1].PriceHT = 150

	tot := s.ComputeTotals(items)
	require.InDelta(t, 250.0, tot.TotalHT, 1e-9)
	require.InDelta(t, 47.5, tot.VAT, 1e-9)
	require.InDelta(t, 1.0, tot.StampDuty, 1e-9)
	require.InDelta(t, 298.5, tot.TotalTTC, 1e-9)
}

func TestComputeTotals_MasterClassFlatPrice(t *testing.T) {
	s, _ := newTestStore()

	items := []models.CartItem{
		webinarItem("a", models.GroupMasterClass),
		webinarItem("b", models.GroupMasterClass),
	}

	tot := s.ComputeTotals(items)
	require.InDelta(t, 780.0, tot.TotalTTC, 1e-9)
	require.Zero(t, tot.VAT)
	require.Zero(t, tot.StampDuty)
}

func TestComputeTotals_EmptyCart(t *testing.T) {
	s, _ := newTestStore()
	require.Equal(t, Totals{}, s.ComputeTotals(nil))
}
