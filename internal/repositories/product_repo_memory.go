package repositories

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"regalia/internal/models"
	"regalia/internal/query"

	"github.com/google/uuid"
)

// MemoryProductRepository is an in-memory implementation of ProductRepository.
type MemoryProductRepository struct {
	products map[string]models.Product
	mu       sync.RWMutex
}

// NewMemoryProductRepository creates a new instance of MemoryProductRepository.
func NewMemoryProductRepository() *MemoryProductRepository {
	return &MemoryProductRepository{
		products: make(map[string]models.Product),
	}
}

// Count returns the number of products matching pred.
func (r *MemoryProductRepository) Count(ctx context.Context, pred query.Predicate) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, p := range r.products {
		if query.Matches(pred, &p) {
			n++
		}
	}
	return n, nil
}

// Find returns one window of the products matching pred.
func (r *MemoryProductRepository) Find(ctx context.Context, pred query.Predicate, spec []query.SortField, skip, limit int) ([]models.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	matches := r.matching(pred)
	sort.SliceStable(matches, func(i, j int) bool {
		return query.Less(spec, &matches[i], &matches[j])
	})

	if skip >= len(matches) {
		return []models.Product{}, nil
	}
	matches = matches[skip:]
	if limit > 0 && limit < len(matches) {
		matches = matches[:limit]
	}
	return matches, nil
}

// AggregateFacets counts facet values across the products matching pred.
func (r *MemoryProductRepository) AggregateFacets(ctx context.Context, pred query.Predicate) (*models.FacetBundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	matches := r.matching(pred)

	bundle := &models.FacetBundle{References: make(map[models.ReferenceKind][]models.FacetValue)}
	if len(matches) == 0 {
		return bundle, nil
	}

	priceRange := models.PriceRange{Min: matches[0].Price, Max: matches[0].Price}
	sizes, colors, materials := counter{}, counter{}, counter{}
	refs := map[models.ReferenceKind]counter{}
	for _, kind := range models.ReferenceKinds {
		refs[kind] = counter{}
	}

	for _, p := range matches {
		priceRange.Min = min(priceRange.Min, p.Price)
		priceRange.Max = max(priceRange.Max, p.Price)
		sizes.add(p.Sizes)
		colors.add(p.Colors)
		materials.add(p.Materials)
		refs[models.KindCategory].add(p.CategoryIDs)
		refs[models.KindRite].add(p.RiteIDs)
		refs[models.KindObedience].add(p.ObedienceIDs)
		refs[models.KindDegreeOrder].add(p.DegreeOrderIDs)
	}

	bundle.PriceRange = &priceRange
	bundle.Sizes = sizes.values()
	bundle.Colors = colors.values()
	bundle.Materials = materials.values()
	for kind, c := range refs {
		bundle.References[kind] = c.values()
	}
	return bundle, nil
}

// Save inserts or replaces a product.
func (r *MemoryProductRepository) Save(ctx context.Context, product *models.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	for id, existing := range r.products {
		if id != product.ID && existing.Slug == product.Slug {
			return fmt.Errorf("product slug %q already used by %s", product.Slug, id)
		}
	}
	r.products[product.ID] = cloneProduct(*product)
	return nil
}

func (r *MemoryProductRepository) matching(pred query.Predicate) []models.Product {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Product, 0)
	for _, p := range r.products {
		if query.Matches(pred, &p) {
			out = append(out, cloneProduct(p))
		}
	}
	return out
}

func cloneProduct(p models.Product) models.Product {
	p.CategoryIDs = slices.Clone(p.CategoryIDs)
	p.RiteIDs = slices.Clone(p.RiteIDs)
	p.ObedienceIDs = slices.Clone(p.ObedienceIDs)
	p.DegreeOrderIDs = slices.Clone(p.DegreeOrderIDs)
	p.Sizes = slices.Clone(p.Sizes)
	p.Colors = slices.Clone(p.Colors)
	p.Materials = slices.Clone(p.Materials)
	p.Tags = slices.Clone(p.Tags)
	p.LogeTypes = slices.Clone(p.LogeTypes)
	p.Images = slices.Clone(p.Images)
	return p
}

// counter counts how many products carry each value. A product listing the
// same value twice counts once.
type counter map[string]int64

func (c counter) add(values []string) {
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		c[v]++
	}
}

func (c counter) values() []models.FacetValue {
	out := make([]models.FacetValue, 0, len(c))
	for v, n := range c {
		out = append(out, models.FacetValue{Value: v, Count: n})
	}
	sortFacetValues(out)
	return out
}

// sortFacetValues orders by count descending, then value ascending.
func sortFacetValues(values []models.FacetValue) {
	sort.Slice(values, func(i, j int) bool {
		if values[i].Count != values[j].Count {
			return values[i].Count > values[j].Count
		}
		return values[i].Value < values[j].Value
	})
}
