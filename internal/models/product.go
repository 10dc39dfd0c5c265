package models

import "time"

// ProductImage is a single product picture.
type ProductImage struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

// Product represents a regalia product in the store.
type Product struct {
	ID               string         `json:"id" validate:"omitempty,uuid"`
	Name             string         `json:"name" validate:"required,min=2,max=200"`
	Slug             string         `json:"slug" validate:"required,max=200"`
	Description      string         `json:"description"`
	ShortDescription string         `json:"short_description" validate:"max=500"`
	Price            float64        `json:"price" validate:"gte=0"`
	CompareAtPrice   *float64       `json:"compare_at_price,omitempty" validate:"omitempty,gte=0"`
	StockQuantity    int            `json:"stock_quantity" validate:"gte=0"`
	AllowBackorders  bool           `json:"allow_backorders"`
	IsActive         bool           `json:"is_active"`
	Featured         bool           `json:"featured"`
	CategoryIDs      []string       `json:"category_ids" validate:"dive,uuid"`
	RiteIDs          []string       `json:"rite_ids" validate:"dive,uuid"`
	ObedienceIDs     []string       `json:"obedience_ids" validate:"dive,uuid"`
	DegreeOrderIDs   []string       `json:"degree_order_ids" validate:"dive,uuid"`
	Sizes            []string       `json:"sizes"`
	Colors           []string       `json:"colors"`
	Materials        []string       `json:"materials"`
	Tags             []string       `json:"tags"`
	LogeTypes        []string       `json:"loge_types"` // Derived from DegreeOrderIDs on write
	Images           []ProductImage `json:"images"`
	PromoStartDate   *time.Time     `json:"promo_start_date,omitempty"`
	PromoEndDate     *time.Time     `json:"promo_end_date,omitempty"`
	ReviewCount      int            `json:"review_count"`
	AverageRating    float64        `json:"average_rating"`

	// Internal-only fields, never exposed on the storefront.
	CostPrice  *float64 `json:"-"`
	AdminNotes string   `json:"-"`
	LegacyID   string   `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OnSale reports whether the product carries a strike-through discount.
func (p *Product) OnSale() bool {
	return p.CompareAtPrice != nil && *p.CompareAtPrice > p.Price
}

// Purchasable reports whether the product can be ordered right now.
func (p *Product) Purchasable() bool {
	return p.StockQuantity > 0 || p.AllowBackorders
}
