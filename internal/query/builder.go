package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"regalia/internal/models"

	"github.com/google/uuid"
)

// NewWindow is how far back "new" products go.
const NewWindow = 30 * 24 * time.Hour

// ReferenceCatalog is the read-only reference lookup the builder depends on.
type ReferenceCatalog interface {
	FindBySlug(ctx context.Context, kind models.ReferenceKind, slug string) (*models.Reference, error)
	FindActiveByLogeType(ctx context.Context, logeType string) ([]models.DegreeOrder, error)
}

// Builder translates a FilterDescriptor into a product predicate.
type Builder struct {
	catalog          ReferenceCatalog
	clock            func() time.Time
	logeTypeFastPath bool
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock overrides the time source used for the promotion and "new" windows.
func WithClock(clock func() time.Time) Option {
	return func(b *Builder) { b.clock = clock }
}

// WithLogeTypeFastPath makes loge type filters without a degree use the
// denormalized loge_types field instead of resolving degree orders.
func WithLogeTypeFastPath(enabled bool) Option {
	return func(b *Builder) { b.logeTypeFastPath = enabled }
}

// NewBuilder creates a Builder reading reference data from catalog.
func NewBuilder(catalog ReferenceCatalog, opts ...Option) *Builder {
	b := &Builder{
		catalog: catalog,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build returns the predicate for d. Malformed filter values never fail the
// build; only reference lookup failures do.
func (b *Builder) Build(ctx context.Context, d models.FilterDescriptor) (Predicate, error) {
	now := b.clock().UTC()
	clauses := []Predicate{BoolEquals{Field: FieldIsActive, Value: true}}

	if d.Category != nil {
		clause, err := b.categoryClause(ctx, *d.Category)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, clause)
	}
	if id, ok := identity(d.Rite); ok {
		clauses = append(clauses, AnyIn{Field: FieldRiteIDs, Values: []string{id}})
	}
	if id, ok := identity(d.Obedience); ok {
		clauses = append(clauses, AnyIn{Field: FieldObedienceIDs, Values: []string{id}})
	}

	degreeClause, err := b.degreeClause(ctx, d.Degree, d.LogeType)
	if err != nil {
		return nil, err
	}
	if degreeClause != nil {
		clauses = append(clauses, degreeClause)
	}

	if d.MinPrice != nil {
		clauses = append(clauses, NumberCompare{Field: FieldPrice, Op: OpGte, Value: *d.MinPrice})
	}
	if d.MaxPrice != nil {
		clauses = append(clauses, NumberCompare{Field: FieldPrice, Op: OpLte, Value: *d.MaxPrice})
	}
	if d.Featured {
		clauses = append(clauses, BoolEquals{Field: FieldFeatured, Value: true})
	}
	if d.ShowPromotions {
		clauses = append(clauses, PromotionActive(now))
	}
	if d.ShowNew {
		clauses = append(clauses, TimeCompare{Field: FieldCreatedAt, Op: OpGte, Value: now.Add(-NewWindow)})
	}
	if d.InStockOnly {
		clauses = append(clauses, InStock())
	}
	if d.Size != nil {
		clauses = append(clauses, AnyIn{Field: FieldSizes, Values: []string{*d.Size}})
	}
	if d.Color != nil {
		clauses = append(clauses, ContainsFold{Field: FieldColors, Text: *d.Color})
	}
	if d.Material != nil {
		clauses = append(clauses, ContainsFold{Field: FieldMaterials, Text: *d.Material})
	}
	if d.Search != nil {
		clauses = append(clauses, TextSearch(*d.Search))
	}

	return All(clauses...), nil
}

// PromotionActive matches products discounted below their reference price
// whose promotion window, if any, contains now.
func PromotionActive(now time.Time) Predicate {
	return All(
		FieldCompare{Left: FieldCompareAtPrice, Op: OpGt, Right: FieldPrice},
		Any(IsNull{Field: FieldPromoStartDate}, TimeCompare{Field: FieldPromoStartDate, Op: OpLte, Value: now}),
		Any(IsNull{Field: FieldPromoEndDate}, TimeCompare{Field: FieldPromoEndDate, Op: OpGte, Value: now}),
	)
}

// InStock matches products that can be ordered now.
func InStock() Predicate {
	return Any(
		NumberCompare{Field: FieldStockQuantity, Op: OpGt, Value: 0},
		BoolEquals{Field: FieldAllowBackorders, Value: true},
	)
}

// TextSearch matches text anywhere in the searchable product fields.
func TextSearch(text string) Predicate {
	return Any(
		ContainsFold{Field: FieldName, Text: text},
		ContainsFold{Field: FieldDescription, Text: text},
		ContainsFold{Field: FieldShortDescription, Text: text},
		ContainsFold{Field: FieldTags, Text: text},
		ContainsFold{Field: FieldMaterials, Text: text},
		ContainsFold{Field: FieldColors, Text: text},
	)
}

func (b *Builder) categoryClause(ctx context.Context, raw string) (Predicate, error) {
	if id, ok := identity(&raw); ok {
		return AnyIn{Field: FieldCategoryIDs, Values: []string{id}}, nil
	}
	category, err := b.catalog.FindBySlug(ctx, models.KindCategory, raw)
	if errors.Is(err, models.ErrNotFound) {
		return Never{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve category %q: %w", raw, err)
	}
	// Inactive categories match nothing.
	if !category.IsActive {
		return Never{}, nil
	}
	return AnyIn{Field: FieldCategoryIDs, Values: []string{category.ID}}, nil
}

// degreeClause combines the degree and loge type filters. It returns nil
// when neither applies.
func (b *Builder) degreeClause(ctx context.Context, degree, logeType *string) (Predicate, error) {
	degreeID, hasDegree := identity(degree)
	if logeType == nil {
		if !hasDegree {
			return nil, nil
		}
		return AnyIn{Field: FieldDegreeOrderIDs, Values: []string{degreeID}}, nil
	}

	if b.logeTypeFastPath && !hasDegree {
		return AnyIn{Field: FieldLogeTypes, Values: []string{*logeType}}, nil
	}

	orders, err := b.catalog.FindActiveByLogeType(ctx, *logeType)
	if err != nil {
		return nil, fmt.Errorf("resolve loge type %q: %w", *logeType, err)
	}
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		if hasDegree && o.ID != degreeID {
			continue
		}
		ids = append(ids, o.ID)
	}
	if len(ids) == 0 {
		return Never{}, nil
	}
	return AnyIn{Field: FieldDegreeOrderIDs, Values: ids}, nil
}

// identity returns the value of raw when it is a well-formed identity.
func identity(raw *string) (string, bool) {
	if raw == nil {
		return "", false
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return "", false
	}
	return id.String(), true
}
