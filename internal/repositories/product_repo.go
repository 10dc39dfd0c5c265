package repositories

import (
	"context"

	"regalia/internal/models"
	"regalia/internal/query"
)

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	Count(ctx context.Context, pred query.Predicate) (int64, error)
	// Find returns the products matching pred in sort order. A limit of zero
	// or less returns every match after skip.
	Find(ctx context.Context, pred query.Predicate, sort []query.SortField, skip, limit int) ([]models.Product, error)
	AggregateFacets(ctx context.Context, pred query.Predicate) (*models.FacetBundle, error)
	Save(ctx context.Context, product *models.Product) error
}

// ReferenceRepository defines the interface for reference catalog access.
type ReferenceRepository interface {
	FindActiveByID(ctx context.Context, kind models.ReferenceKind, id string) (*models.Reference, error)
	FindBySlug(ctx context.Context, kind models.ReferenceKind, slug string) (*models.Reference, error)
	FindActiveByLogeType(ctx context.Context, logeType string) ([]models.DegreeOrder, error)
	NamesByIDs(ctx context.Context, kind models.ReferenceKind, ids []string) (map[string]string, error)
	ListDegreeOrders(ctx context.Context) ([]models.DegreeOrder, error)
	SaveReference(ctx context.Context, kind models.ReferenceKind, ref *models.Reference) error
	SaveDegreeOrder(ctx context.Context, order *models.DegreeOrder) error
}
