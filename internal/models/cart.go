package models

// CartItemType discriminates webinar seats from credit packs.
type CartItemType string

const (
	CartItemWebinar CartItemType = "WEBINAR"
	CartItemPack    CartItemType = "PACK"
)

// CartItem is one pending purchase intent in a device's cart.
//
// PackID is kept for carts written by the previous schema, where items had no
// Type discriminator: on read, an item with a PackID is backfilled as a PACK
// and everything else as a WEBINAR.
type CartItem struct {
	Type    CartItemType `json:"type"`
	ID      string       `json:"id"`
	Title   string       `json:"title"`
	Group   WebinarGroup `json:"group"`
	Slots   []TimeSlot   `json:"slots,omitempty"`
	PriceHT float64      `json:"price_ht"`
	Credits int          `json:"credits,omitempty"`
	PackID  string       `json:"pack_id,omitempty"`
}
