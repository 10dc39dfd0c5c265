package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"regalia/internal/models"
	"regalia/internal/query"
	"regalia/internal/repositories"
	"regalia/pkg/rabbitmq"

	"github.com/go-playground/validator/v10"
)

// EventPublisher announces catalog changes.
type EventPublisher interface {
	PublishCatalogEvent(ctx context.Context, event rabbitmq.CatalogEvent) error
}

// EventPublisherFunc adapts a function to EventPublisher.
type EventPublisherFunc func(ctx context.Context, event rabbitmq.CatalogEvent) error

func (f EventPublisherFunc) PublishCatalogEvent(ctx context.Context, event rabbitmq.CatalogEvent) error {
	return f(ctx, event)
}

// ProductIndexer is the catalog write path. It keeps the denormalized
// loge types of every product in step with the degree orders.
type ProductIndexer struct {
	products   repositories.ProductRepository
	references repositories.ReferenceRepository
	publisher  EventPublisher
	validate   *validator.Validate
	now        func() time.Time
}

// NewProductIndexer creates a new ProductIndexer. A nil publisher disables events.
func NewProductIndexer(products repositories.ProductRepository, references repositories.ReferenceRepository, publisher EventPublisher) *ProductIndexer {
	return &ProductIndexer{
		products:   products,
		references: references,
		publisher:  publisher,
		validate:   validator.New(),
		now:        time.Now,
	}
}

// SaveProduct validates p, derives its loge types and stores it.
func (s *ProductIndexer) SaveProduct(ctx context.Context, p *models.Product) error {
	if err := s.validate.StructCtx(ctx, p); err != nil {
		return fmt.Errorf("invalid product %q: %w", p.Slug, err)
	}

	orders, err := s.degreeOrders(ctx)
	if err != nil {
		return err
	}
	p.LogeTypes = logeTypesOf(p.DegreeOrderIDs, orders)

	now := s.now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	if err := s.products.Save(ctx, p); err != nil {
		return fmt.Errorf("failed to save product %q: %w", p.Slug, err)
	}
	s.publish(ctx, rabbitmq.EventProductSaved, p.ID)
	return nil
}

// SaveReference validates and stores a category, rite or obedience.
func (s *ProductIndexer) SaveReference(ctx context.Context, kind models.ReferenceKind, ref *models.Reference) error {
	if err := s.validate.StructCtx(ctx, ref); err != nil {
		return fmt.Errorf("invalid %s %q: %w", kind, ref.Slug, err)
	}
	if err := s.references.SaveReference(ctx, kind, ref); err != nil {
		return err
	}
	s.publish(ctx, rabbitmq.EventCatalogReindexed, "")
	return nil
}

// SaveDegreeOrder stores a degree order and reindexes the products' loge types.
func (s *ProductIndexer) SaveDegreeOrder(ctx context.Context, order *models.DegreeOrder) error {
	if err := s.validate.StructCtx(ctx, order); err != nil {
		return fmt.Errorf("invalid degree order %q: %w", order.Name, err)
	}
	if err := s.references.SaveDegreeOrder(ctx, order); err != nil {
		return err
	}
	_, err := s.ReindexLogeTypes(ctx)
	return err
}

// ReindexLogeTypes recomputes the loge types of every product and returns
// how many products changed.
func (s *ProductIndexer) ReindexLogeTypes(ctx context.Context) (int, error) {
	const op = "ProductIndexer.ReindexLogeTypes"

	orders, err := s.degreeOrders(ctx)
	if err != nil {
		return 0, err
	}
	all, err := s.products.Find(ctx, query.And{}, query.SortFor(models.SortOldest), 0, 0)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to load products: %w", op, err)
	}

	changed := 0
	for i := range all {
		p := &all[i]
		logeTypes := logeTypesOf(p.DegreeOrderIDs, orders)
		if slices.Equal(logeTypes, p.LogeTypes) {
			continue
		}
		p.LogeTypes = logeTypes
		p.UpdatedAt = s.now().UTC()
		if err := s.products.Save(ctx, p); err != nil {
			return changed, fmt.Errorf("%s: failed to save product %s: %w", op, p.ID, err)
		}
		changed++
	}

	slog.Info("loge types reindexed", "op", op, "products", len(all), "changed", changed)
	s.publish(ctx, rabbitmq.EventCatalogReindexed, "")
	return changed, nil
}

func (s *ProductIndexer) degreeOrders(ctx context.Context) (map[string]models.DegreeOrder, error) {
	list, err := s.references.ListDegreeOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load degree orders: %w", err)
	}
	orders := make(map[string]models.DegreeOrder, len(list))
	for _, o := range list {
		orders[o.ID] = o
	}
	return orders, nil
}

// logeTypesOf returns the sorted loge types of the active degree orders in ids.
func logeTypesOf(ids []string, orders map[string]models.DegreeOrder) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		o, ok := orders[id]
		if !ok || !o.IsActive || slices.Contains(out, o.LogeType) {
			continue
		}
		out = append(out, o.LogeType)
	}
	slices.Sort(out)
	return out
}

func (s *ProductIndexer) publish(ctx context.Context, eventType, productID string) {
	const op = "ProductIndexer.publish"

	if s.publisher == nil {
		return
	}
	event := rabbitmq.CatalogEvent{Type: eventType, ProductID: productID, OccurredAt: s.now().UTC()}
	if err := s.publisher.PublishCatalogEvent(ctx, event); err != nil {
		slog.Warn("failed to publish catalog event", "op", op, "type", eventType, "err", err)
	}
}
