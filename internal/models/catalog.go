package models

import "time"

// ProjectedProduct is the public storefront shape of a product.
type ProjectedProduct struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Slug             string         `json:"slug"`
	ShortDescription string         `json:"short_description"`
	Price            float64        `json:"price"`
	CompareAtPrice   *float64       `json:"compare_at_price"`
	Images           []ProductImage `json:"images"`
	StockQuantity    int            `json:"stock_quantity"`
	AllowBackorders  bool           `json:"allow_backorders"`
	Featured         bool           `json:"featured"`
	CreatedAt        time.Time      `json:"created_at"`
	Categories       []string       `json:"categories"`
	Rites            []string       `json:"rites"`
	Obediences       []string       `json:"obediences"`
	Degrees          []string       `json:"degrees"`
	IsOnSale         bool           `json:"is_on_sale"`
}

// Pagination describes the page window of a listing.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// PriceRange is the min and max price across matching products.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// DefaultPriceRange is reported when no product matches.
var DefaultPriceRange = PriceRange{Min: 0, Max: 1000}

// FacetValue is one facet option and how many matching products carry it.
type FacetValue struct {
	Value string `json:"value"`
	Name  string `json:"name,omitempty"`
	Count int64  `json:"count"`
}

// FacetBundle is the raw aggregation a product repository returns.
// PriceRange is nil when nothing matched.
type FacetBundle struct {
	PriceRange *PriceRange
	Sizes      []FacetValue
	Colors     []FacetValue
	Materials  []FacetValue
	References map[ReferenceKind][]FacetValue
}

// Facets is the sidebar payload of a listing.
type Facets struct {
	PriceRange PriceRange   `json:"priceRange"`
	Sizes      []FacetValue `json:"sizes"`
	Colors     []FacetValue `json:"colors"`
	Materials  []FacetValue `json:"materials"`
	Categories []FacetValue `json:"categories"`
	Rites      []FacetValue `json:"rites"`
	Obediences []FacetValue `json:"obediences"`
	Degrees    []FacetValue `json:"degrees"`
}

// SearchResult is one page of a filtered listing.
type SearchResult struct {
	Products   []ProjectedProduct `json:"products"`
	Pagination Pagination         `json:"pagination"`
	Facets     *Facets            `json:"facets,omitempty"`
}

// CategoryPage is the catalog page payload: the category header plus its listing.
type CategoryPage struct {
	Category *Reference `json:"category"`
	SearchResult
}
