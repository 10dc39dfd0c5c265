// Package filters turns raw storefront query parameters into a FilterDescriptor.
package filters

import (
	"math"
	"strconv"
	"strings"

	"regalia/internal/models"
)

// Query parameter names.
const (
	ParamCategory       = "category"
	ParamRite           = "rite"
	ParamObedience      = "obedience"
	ParamDegree         = "degree"
	ParamDegreeOrder    = "degreeOrder"
	ParamLogeType       = "logeType"
	ParamSearch         = "search"
	ParamMinPrice       = "minPrice"
	ParamMaxPrice       = "maxPrice"
	ParamFeatured       = "featured"
	ParamShowPromotions = "showPromotions"
	ParamShowNew        = "showNew"
	ParamInStockOnly    = "inStockOnly"
	ParamSize           = "size"
	ParamColor          = "color"
	ParamMaterial       = "material"
	ParamPage           = "page"
	ParamLimit          = "limit"
	ParamSortBy         = "sortBy"
)

var sortAliases = map[string]models.SortKey{
	"-created_at": models.SortNewest,
	"created_at":  models.SortOldest,
	"price":       models.SortPriceAsc,
	"price_asc":   models.SortPriceAsc,
	"-price":      models.SortPriceDesc,
	"price_desc":  models.SortPriceDesc,
	"name":        models.SortNameAsc,
	"-name":       models.SortNameDesc,
	"featured":    models.SortFeatured,
	"popular":     models.SortPopular,
}

// Normalize builds a FilterDescriptor from raw parameters. It never fails:
// anything it cannot make sense of is treated as absent or defaulted.
func Normalize(params map[string]string) models.FilterDescriptor {
	return models.FilterDescriptor{
		Category:       optional(params, ParamCategory),
		Rite:           optional(params, ParamRite),
		Obedience:      optional(params, ParamObedience),
		Degree:         firstOptional(params, ParamDegree, ParamDegreeOrder),
		LogeType:       optional(params, ParamLogeType),
		Search:         optional(params, ParamSearch),
		MinPrice:       optionalFloat(params, ParamMinPrice),
		MaxPrice:       optionalFloat(params, ParamMaxPrice),
		Size:           optional(params, ParamSize),
		Color:          optional(params, ParamColor),
		Material:       optional(params, ParamMaterial),
		Featured:       flag(params, ParamFeatured),
		ShowPromotions: flag(params, ParamShowPromotions),
		ShowNew:        flag(params, ParamShowNew),
		InStockOnly:    flag(params, ParamInStockOnly),
		Page:           parsePage(params[ParamPage]),
		Limit:          parseLimit(params[ParamLimit]),
		SortBy:         ParseSortKey(params[ParamSortBy]),
	}
}

// ParseSortKey maps a sortBy value to its key, falling back to the default.
func ParseSortKey(raw string) models.SortKey {
	if key, ok := sortAliases[strings.TrimSpace(raw)]; ok {
		return key
	}
	return models.DefaultSortKey
}

func optional(params map[string]string, name string) *string {
	v := strings.TrimSpace(params[name])
	if v == "" {
		return nil
	}
	return &v
}

func firstOptional(params map[string]string, names ...string) *string {
	for _, name := range names {
		if v := optional(params, name); v != nil {
			return v
		}
	}
	return nil
}

func optionalFloat(params map[string]string, name string) *float64 {
	v := optional(params, name)
	if v == nil {
		return nil
	}
	f, err := strconv.ParseFloat(*v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func flag(params map[string]string, name string) bool {
	return params[name] == "true"
}

func parsePage(raw string) int {
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || page < 1 {
		return models.DefaultPage
	}
	return page
}

func parseLimit(raw string) int {
	limit, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || limit < 1 {
		return models.DefaultLimit
	}
	if limit > models.MaxLimit {
		return models.MaxLimit
	}
	return limit
}
