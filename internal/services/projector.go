package services

import (
	"slices"

	"regalia/internal/models"
)

// MaxProjectedImages is how many images a listing card carries.
const MaxProjectedImages = 2

// ReferenceNames maps each reference kind to id -> display name.
type ReferenceNames map[models.ReferenceKind]map[string]string

func (n ReferenceNames) resolve(kind models.ReferenceKind, ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := n[kind][id]; ok {
			out = append(out, name)
		}
	}
	return out
}

// ProjectProduct returns the public view of p. Relations are reported by
// name; ids without a known name are left out.
func ProjectProduct(p *models.Product, names ReferenceNames) models.ProjectedProduct {
	images := p.Images
	if len(images) > MaxProjectedImages {
		images = images[:MaxProjectedImages]
	}
	if images == nil {
		images = []models.ProductImage{}
	}

	return models.ProjectedProduct{
		ID:               p.ID,
		Name:             p.Name,
		Slug:             p.Slug,
		ShortDescription: p.ShortDescription,
		Price:            p.Price,
		CompareAtPrice:   p.CompareAtPrice,
		Images:           slices.Clone(images),
		StockQuantity:    p.StockQuantity,
		AllowBackorders:  p.AllowBackorders,
		Featured:         p.Featured,
		CreatedAt:        p.CreatedAt,
		Categories:       names.resolve(models.KindCategory, p.CategoryIDs),
		Rites:            names.resolve(models.KindRite, p.RiteIDs),
		Obediences:       names.resolve(models.KindObedience, p.ObedienceIDs),
		Degrees:          names.resolve(models.KindDegreeOrder, p.DegreeOrderIDs),
		IsOnSale:         p.OnSale(),
	}
}

// Paginate computes the page window metadata for total matches.
func Paginate(page, limit int, total int64) models.Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return models.Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// BuildFacets turns a repository bundle into the sidebar payload.
func BuildFacets(bundle *models.FacetBundle, names ReferenceNames) *models.Facets {
	facets := &models.Facets{
		PriceRange: models.DefaultPriceRange,
		Sizes:      nonNil(nil),
		Colors:     nonNil(nil),
		Materials:  nonNil(nil),
		Categories: nonNil(nil),
		Rites:      nonNil(nil),
		Obediences: nonNil(nil),
		Degrees:    nonNil(nil),
	}
	if bundle == nil || bundle.PriceRange == nil {
		return facets
	}

	facets.PriceRange = *bundle.PriceRange
	facets.Sizes = nonNil(bundle.Sizes)
	facets.Colors = nonNil(bundle.Colors)
	facets.Materials = nonNil(bundle.Materials)
	facets.Categories = named(bundle.References[models.KindCategory], names[models.KindCategory])
	facets.Rites = named(bundle.References[models.KindRite], names[models.KindRite])
	facets.Obediences = named(bundle.References[models.KindObedience], names[models.KindObedience])
	facets.Degrees = named(bundle.References[models.KindDegreeOrder], names[models.KindDegreeOrder])
	return facets
}

func named(values []models.FacetValue, names map[string]string) []models.FacetValue {
	out := make([]models.FacetValue, 0, len(values))
	for _, v := range values {
		v.Name = names[v.Value]
		out = append(out, v)
	}
	return out
}

func nonNil(values []models.FacetValue) []models.FacetValue {
	if values == nil {
		return []models.FacetValue{}
	}
	return values
}
