package cart

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/pharmia/backend/config"
	"github.com/pharmia/backend/internal/models"
	"github.com/pharmia/backend/internal/webinars"
)

var (
	// ErrMixedGroups means an item's group differs from the group already in
	// the cart. CROP_TUNIS, PHARMIA and MASTER_CLASS bill through different
	// channels and cannot share an order.
	ErrMixedGroups = errors.New("cannot mix webinar groups in one cart")
	// ErrExpiredWebinar means the webinar's validity window has elapsed.
	ErrExpiredWebinar = errors.New("webinar registration window has closed")
	// ErrItemNotFound means no cart line matches the given id.
	ErrItemNotFound = errors.New("item not in cart")
)

// Backend persists serialized carts by device token. The redis implementation
// is the production one; tests swap in an in-memory map.
type Backend interface {
	Load(ctx context.Context, token string) ([]byte, error) // nil, nil when absent
	Save(ctx context.Context, token string, data []byte) error
	Delete(ctx context.Context, token string) error
}

// Store owns cart state: hydrate on read, persist on every mutation, migrate
// legacy item shapes on load. Invalid operations never partially apply.
type Store struct {
	backend Backend
	billing config.BillingConfig
	loc     *time.Location
	logger  *zap.Logger
}

// NewStore creates a cart store.
func NewStore(backend Backend, billing config.BillingConfig, loc *time.Location, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{backend: backend, billing: billing, loc: loc, logger: logger}
}

// Get hydrates the cart for a token. Items written by the previous schema
// (no Type discriminator) are backfilled on read: a pack-identifier present
// means PACK, otherwise WEBINAR, with the group defaulted when missing.
func (s *Store) Get(ctx context.Context, token string) ([]models.CartItem, error) {
	data, err := s.backend.Load(ctx, token)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return []models.CartItem{}, nil
	}
	var items []models.CartItem
	if err := json.Unmarshal(data, &items); err != nil {
		// A corrupt cart is not worth failing a page load over.
		s.logger.Warn("discarding unreadable cart", zap.Error(err))
		return []models.CartItem{}, nil
	}
	return MigrateLegacy(items), nil
}

// MigrateLegacy backfills the Type discriminator and group on items persisted
// by the previous cart schema.
func MigrateLegacy(items []models.CartItem) []models.CartItem {
	out := make([]models.CartItem, len(items))
	for i, it := range items {
		if it.Type == "" {
			if it.PackID != "" {
				it.Type = models.CartItemPack
			} else {
				it.Type = models.CartItemWebinar
			}
		}
		if it.Group == "" {
			it.Group = models.GroupCropTunis
		}
		out[i] = it
	}
	return out
}

func (s *Store) save(ctx context.Context, token string, items []models.CartItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return s.backend.Save(ctx, token, data)
}

// AddItem inserts or replaces a cart line. The whole cart shares one group;
// an item of a different group is rejected and the cart left untouched. An
// item with the same id replaces the existing line's slots and price rather
// than duplicating. Webinar items whose validity window has elapsed are
// refused; the webinar argument carries the schedule and is nil for packs.
func (s *Store) AddItem(ctx context.Context, token string, item models.CartItem, webinar *models.Webinar, now time.Time) ([]models.CartItem, error) {
	if item.Type == models.CartItemWebinar && webinar != nil && webinars.Expired(webinar, now, s.loc) {
		return nil, ErrExpiredWebinar
	}

	items, err := s.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	for _, existing := range items {
		if existing.Group != item.Group {
			return nil, ErrMixedGroups
		}
	}

	replaced := false
	for i, existing := range items {
		if existing.ID == item.ID {
			items[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		items = append(items, item)
	}

	if err := s.save(ctx, token, items); err != nil {
		return nil, err
	}
	return items, nil
}

// RemoveItem drops a cart line by id.
func (s *Store) RemoveItem(ctx context.Context, token, id string) ([]models.CartItem, error) {
	items, err := s.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	kept := items[:0]
	found := false
	for _, it := range items {
		if it.ID == id {
			found = true
			continue
		}
		kept = append(kept, it)
	}
	if !found {
		return nil, ErrItemNotFound
	}
	if err := s.save(ctx, token, kept); err != nil {
		return nil, err
	}
	return kept, nil
}

// UpdateSlots replaces the slot selection on an existing webinar cart line.
func (s *Store) UpdateSlots(ctx context.Context, token, id string, slots []models.TimeSlot) ([]models.CartItem, error) {
	items, err := s.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	found := false
	for i := range items {
		if items[i].ID == id {
			items[i].Slots = slots
			found = true
			break
		}
	}
	if !found {
		return nil, ErrItemNotFound
	}
	if err := s.save(ctx, token, items); err != nil {
		return nil, err
	}
	return items, nil
}

// Clear destroys the cart.
func (s *Store) Clear(ctx context.Context, token string) error {
	return s.backend.Delete(ctx, token)
}

// Totals is the cart price breakdown.
type Totals struct {
	TotalHT   float64 `json:"total_ht"`
	VAT       float64 `json:"vat"`
	StampDuty float64 `json:"stamp_duty"`
	TotalTTC  float64 `json:"total_ttc"`
}

// ComputeTotals prices a cart. MASTER_CLASS seats sell at a flat all-inclusive
// price; every other group is HT plus VAT plus a fixed stamp duty on the
// order. Which formula applies follows from the cart's single group.
func (s *Store) ComputeTotals(items []models.CartItem) Totals {
	var t Totals
	if len(items) == 0 {
		return t
	}
	if items[0].Group == models.GroupMasterClass {
		for range items {
			t.TotalTTC += s.billing.MasterClassPrice
		}
		t.TotalHT = t.TotalTTC
		return t
	}
	for _, it := range items {
		t.TotalHT += it.PriceHT
	}
	t.VAT = t.TotalHT * s.billing.VATPercent / 100
	t.StampDuty = s.billing.StampDuty
	t.TotalTTC = t.TotalHT + t.VAT + t.StampDuty
	return t
}
