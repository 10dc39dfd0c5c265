package models

import (
	"strconv"
	"strings"
)

// SortKey is the closed set of listing orders.
type SortKey string

const (
	SortNewest     SortKey = "-created_at"
	SortOldest     SortKey = "created_at"
	SortPriceAsc   SortKey = "price"
	SortPriceDesc  SortKey = "-price"
	SortNameAsc    SortKey = "name"
	SortNameDesc   SortKey = "-name"
	SortFeatured   SortKey = "featured"
	SortPopular    SortKey = "popular"
	DefaultSortKey         = SortNewest
)

// Pagination defaults and ceiling.
const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// FilterDescriptor is the normalized, read-only form of a listing request.
// Nil pointers mean the filter is absent.
type FilterDescriptor struct {
	Category       *string
	Rite           *string
	Obedience      *string
	Degree         *string
	LogeType       *string
	Search         *string
	MinPrice       *float64
	MaxPrice       *float64
	Size           *string
	Color          *string
	Material       *string
	Featured       bool
	ShowPromotions bool
	ShowNew        bool
	InStockOnly    bool
	Page           int
	Limit          int
	SortBy         SortKey
}

// Skip is the number of matching products before the requested page.
func (d FilterDescriptor) Skip() int {
	return (d.Page - 1) * d.Limit
}

// WithCategory returns a copy of d filtered on the given category.
func (d FilterDescriptor) WithCategory(category string) FilterDescriptor {
	d.Category = &category
	return d
}

// CacheKey renders d canonically: equal descriptors give equal keys.
func (d FilterDescriptor) CacheKey() string {
	var b strings.Builder
	str := func(name string, v *string) {
		if v != nil {
			b.WriteString(name)
			b.WriteByte('=')
			b.WriteString(strconv.Quote(*v))
			b.WriteByte('&')
		}
	}
	num := func(name string, v *float64) {
		if v != nil {
			b.WriteString(name)
			b.WriteByte('=')
			b.WriteString(strconv.FormatFloat(*v, 'g', -1, 64))
			b.WriteByte('&')
		}
	}
	flag := func(name string, v bool) {
		if v {
			b.WriteString(name)
			b.WriteString("=true&")
		}
	}

	str("category", d.Category)
	str("rite", d.Rite)
	str("obedience", d.Obedience)
	str("degree", d.Degree)
	str("logeType", d.LogeType)
	str("search", d.Search)
	num("minPrice", d.MinPrice)
	num("maxPrice", d.MaxPrice)
	str("size", d.Size)
	str("color", d.Color)
	str("material", d.Material)
	flag("featured", d.Featured)
	flag("showPromotions", d.ShowPromotions)
	flag("showNew", d.ShowNew)
	flag("inStockOnly", d.InStockOnly)
	b.WriteString("page=" + strconv.Itoa(d.Page))
	b.WriteString("&limit=" + strconv.Itoa(d.Limit))
	b.WriteString("&sortBy=" + string(d.SortBy))
	return b.String()
}
