package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"regalia/internal/cache"
	"regalia/internal/models"
	"regalia/internal/query"
	"regalia/internal/repositories"
	"regalia/pkg/rabbitmq"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrResultsUnavailable is returned when listing data could not be loaded.
// It wraps the underlying cause.
var ErrResultsUnavailable = errors.New("could not load results")

// SearchOptions selects the optional parts of a listing.
type SearchOptions struct {
	IncludeFacets bool
}

// CatalogService answers storefront listing requests.
type CatalogService struct {
	products   repositories.ProductRepository
	references repositories.ReferenceRepository
	builder    *query.Builder
	cache      cache.Store
}

// NewCatalogService creates a new CatalogService. A nil store disables caching.
func NewCatalogService(products repositories.ProductRepository, references repositories.ReferenceRepository, builder *query.Builder, store cache.Store) *CatalogService {
	if store == nil {
		store = cache.Nop{}
	}
	return &CatalogService{
		products:   products,
		references: references,
		builder:    builder,
		cache:      store,
	}
}

// Search returns one page of the products matching d, with facets when requested.
func (s *CatalogService) Search(ctx context.Context, d models.FilterDescriptor, opts SearchOptions) (*models.SearchResult, error) {
	const op = "CatalogService.Search"

	key := cache.Key("search", d.CacheKey(), strconv.FormatBool(opts.IncludeFacets))
	gen, fillable := s.generation(ctx, op)
	var result models.SearchResult
	if s.cached(ctx, op, key, &result) {
		return &result, nil
	}

	pred, err := s.builder.Build(ctx, d)
	if err != nil {
		return nil, unavailable(op, err)
	}

	var (
		total  int64
		page   []models.Product
		bundle *models.FacetBundle
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		total, err = s.products.Count(gctx, pred)
		return err
	})
	g.Go(func() error {
		var err error
		page, err = s.products.Find(gctx, pred, query.SortFor(d.SortBy), d.Skip(), d.Limit)
		return err
	})
	if opts.IncludeFacets {
		g.Go(func() error {
			var err error
			bundle, err = s.products.AggregateFacets(gctx, pred)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, unavailable(op, err)
	}

	names, err := s.resolveNames(ctx, page, bundle)
	if err != nil {
		return nil, unavailable(op, err)
	}

	result = models.SearchResult{
		Products:   make([]models.ProjectedProduct, 0, len(page)),
		Pagination: Paginate(d.Page, d.Limit, total),
	}
	for i := range page {
		result.Products = append(result.Products, ProjectProduct(&page[i], names))
	}
	if opts.IncludeFacets {
		result.Facets = BuildFacets(bundle, names)
	}

	if fillable {
		s.fill(ctx, op, gen, key, &result)
	}
	return &result, nil
}

// Facets returns only the sidebar facets for d.
func (s *CatalogService) Facets(ctx context.Context, d models.FilterDescriptor) (*models.Facets, error) {
	const op = "CatalogService.Facets"

	key := cache.Key("facets", d.CacheKey())
	gen, fillable := s.generation(ctx, op)
	var facets models.Facets
	if s.cached(ctx, op, key, &facets) {
		return &facets, nil
	}

	pred, err := s.builder.Build(ctx, d)
	if err != nil {
		return nil, unavailable(op, err)
	}
	bundle, err := s.products.AggregateFacets(ctx, pred)
	if err != nil {
		return nil, unavailable(op, err)
	}
	names, err := s.resolveNames(ctx, nil, bundle)
	if err != nil {
		return nil, unavailable(op, err)
	}

	out := BuildFacets(bundle, names)
	if fillable {
		s.fill(ctx, op, gen, key, out)
	}
	return out, nil
}

// CategoryPage returns the header of the category given by slug or id
// together with its filtered listing and facets. An unknown or inactive
// category gives a nil header and an empty listing.
func (s *CatalogService) CategoryPage(ctx context.Context, category string, d models.FilterDescriptor) (*models.CategoryPage, error) {
	const op = "CatalogService.CategoryPage"

	header, err := s.categoryHeader(ctx, category)
	if err != nil {
		return nil, unavailable(op, err)
	}

	if header == nil {
		return &models.CategoryPage{SearchResult: models.SearchResult{
			Products:   []models.ProjectedProduct{},
			Pagination: Paginate(d.Page, d.Limit, 0),
			Facets:     BuildFacets(nil, nil),
		}}, nil
	}

	listing, err := s.Search(ctx, d.WithCategory(header.ID), SearchOptions{IncludeFacets: true})
	if err != nil {
		return nil, err
	}
	return &models.CategoryPage{Category: header, SearchResult: *listing}, nil
}

// HandleCatalogEvent drops cached listings after the catalog changed.
func (s *CatalogService) HandleCatalogEvent(ctx context.Context, event rabbitmq.CatalogEvent) error {
	const op = "CatalogService.HandleCatalogEvent"

	if err := s.cache.Invalidate(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	slog.Debug("listing cache invalidated", "op", op, "type", event.Type, "product_id", event.ProductID)
	return nil
}

func (s *CatalogService) categoryHeader(ctx context.Context, category string) (*models.Reference, error) {
	var (
		ref *models.Reference
		err error
	)
	if id, perr := uuid.Parse(category); perr == nil {
		ref, err = s.references.FindActiveByID(ctx, models.KindCategory, id.String())
	} else {
		ref, err = s.references.FindBySlug(ctx, models.KindCategory, category)
	}
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !ref.IsActive {
		return nil, nil
	}
	return ref, nil
}

// resolveNames loads display names for every reference id on the page and
// in the facets.
func (s *CatalogService) resolveNames(ctx context.Context, page []models.Product, bundle *models.FacetBundle) (ReferenceNames, error) {
	wanted := make(map[models.ReferenceKind][]string, len(models.ReferenceKinds))
	add := func(kind models.ReferenceKind, ids []string) {
		wanted[kind] = append(wanted[kind], ids...)
	}
	for i := range page {
		add(models.KindCategory, page[i].CategoryIDs)
		add(models.KindRite, page[i].RiteIDs)
		add(models.KindObedience, page[i].ObedienceIDs)
		add(models.KindDegreeOrder, page[i].DegreeOrderIDs)
	}
	if bundle != nil {
		for kind, values := range bundle.References {
			for _, v := range values {
				add(kind, []string{v.Value})
			}
		}
	}

	names := make(ReferenceNames, len(models.ReferenceKinds))
	results := make([]map[string]string, len(models.ReferenceKinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range models.ReferenceKinds {
		i, kind := i, kind
		ids := uniqueStrings(wanted[kind])
		if len(ids) == 0 {
			continue
		}
		g.Go(func() error {
			m, err := s.references.NamesByIDs(gctx, kind, ids)
			if err != nil {
				return err
			}
			results[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i, kind := range models.ReferenceKinds {
		names[kind] = results[i]
	}
	return names, nil
}

// generation reads the cache generation before a result is computed. A
// failed read means the result must not be cached.
func (s *CatalogService) generation(ctx context.Context, op string) (uint64, bool) {
	gen, err := s.cache.Generation(ctx)
	if err != nil {
		slog.Warn("cache generation read failed", "op", op, "err", err)
		return 0, false
	}
	return gen, true
}

// cached decodes the entry under key into dst. Cache failures count as misses.
func (s *CatalogService) cached(ctx context.Context, op, key string, dst any) bool {
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("cache read failed", "op", op, "err", err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		slog.Warn("discarding unreadable cache entry", "op", op, "err", err)
		return false
	}
	return true
}

func (s *CatalogService) fill(ctx context.Context, op string, gen uint64, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		slog.Warn("failed to encode cache entry", "op", op, "err", err)
		return
	}
	if err := s.cache.Set(ctx, gen, key, raw); err != nil {
		slog.Warn("cache write failed", "op", op, "err", err)
	}
}

func unavailable(op string, err error) error {
	slog.Error("listing query failed", "op", op, "err", err)
	return fmt.Errorf("%s: %w: %w", op, ErrResultsUnavailable, err)
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
