package services_test

import (
	"context"
	"errors"
	"testing"

	"regalia/internal/models"
	"regalia/internal/query"
	"regalia/internal/repositories"
	"regalia/internal/services"
	"regalia/pkg/rabbitmq"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockEventPublisher is a mock implementation of services.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishCatalogEvent(ctx context.Context, event rabbitmq.CatalogEvent) error {
	args := m.Called(event.Type, event.ProductID)
	return args.Error(0)
}

func newIndexer(t *testing.T, publisher services.EventPublisher) (*services.ProductIndexer, *repositories.MemoryProductRepository, *repositories.MemoryReferenceRepository) {
	t.Helper()
	products := repositories.NewMemoryProductRepository()
	references := repositories.NewMemoryReferenceRepository()
	return services.NewProductIndexer(products, references, publisher), products, references
}

func allProducts(t *testing.T, repo repositories.ProductRepository) []models.Product {
	t.Helper()
	out, err := repo.Find(context.Background(), query.And{}, query.SortFor(models.SortOldest), 0, 0)
	require.NoError(t, err)
	return out
}

func TestProductIndexer_SaveProductDerivesLogeTypes(t *testing.T) {
	ctx := context.Background()
	publisher := new(MockEventPublisher)
	indexer, products, references := newIndexer(t, publisher)

	orders := []*models.DegreeOrder{
		{Name: "Maître", Level: 3, LogeType: models.LogeSymbolique, IsActive: true},
		{Name: "Apprenti", Level: 1, LogeType: models.LogeSymbolique, IsActive: true},
		{Name: "Rose-Croix", Level: 18, LogeType: models.LogeHautsGrades, IsActive: true},
		{Name: "Kadosh", Level: 30, LogeType: models.LogeHautsGrades, IsActive: false},
	}
	for _, o := range orders {
		require.NoError(t, references.SaveDegreeOrder(ctx, o))
	}

	publisher.On("PublishCatalogEvent", rabbitmq.EventProductSaved, mock.Anything).Return(nil).Once()

	p := &models.Product{
		Name:           "Bijou",
		Slug:           "bijou",
		IsActive:       true,
		DegreeOrderIDs: []string{orders[2].ID, orders[0].ID, orders[1].ID},
	}
	require.NoError(t, indexer.SaveProduct(ctx, p))

	assert.Equal(t, []string{models.LogeHautsGrades, models.LogeSymbolique}, p.LogeTypes)
	assert.False(t, p.CreatedAt.IsZero())
	assert.Equal(t, p.CreatedAt, p.UpdatedAt)
	require.Len(t, allProducts(t, products), 1)
	publisher.AssertExpectations(t)

	kadoshOnly := &models.Product{Name: "Cordon", Slug: "cordon", DegreeOrderIDs: []string{orders[3].ID}}
	publisher.On("PublishCatalogEvent", rabbitmq.EventProductSaved, mock.Anything).Return(nil).Once()
	require.NoError(t, indexer.SaveProduct(ctx, kadoshOnly))
	assert.Empty(t, kadoshOnly.LogeTypes)
}

func TestProductIndexer_RejectsInvalidProduct(t *testing.T) {
	publisher := new(MockEventPublisher)
	indexer, products, _ := newIndexer(t, publisher)

	err := indexer.SaveProduct(context.Background(), &models.Product{Name: "", Slug: "x", Price: -1})
	assert.Error(t, err)

	err = indexer.SaveProduct(context.Background(), &models.Product{Name: "Gants", Slug: "gants", CategoryIDs: []string{"not-a-uuid"}})
	assert.Error(t, err)

	assert.Empty(t, allProducts(t, products))
	publisher.AssertNotCalled(t, "PublishCatalogEvent", mock.Anything, mock.Anything)
}

func TestProductIndexer_PublishFailureDoesNotFailSave(t *testing.T) {
	publisher := new(MockEventPublisher)
	indexer, products, _ := newIndexer(t, publisher)
	publisher.On("PublishCatalogEvent", rabbitmq.EventProductSaved, mock.Anything).Return(errors.New("broker down")).Once()

	require.NoError(t, indexer.SaveProduct(context.Background(), &models.Product{Name: "Gants", Slug: "gants"}))
	assert.Len(t, allProducts(t, products), 1)
	publisher.AssertExpectations(t)
}

func TestProductIndexer_ReindexAfterDegreeOrderChange(t *testing.T) {
	ctx := context.Background()
	indexer, products, _ := newIndexer(t, nil)

	rosecroix := &models.DegreeOrder{Name: "Rose-Croix", Level: 18, LogeType: models.LogeHautsGrades, IsActive: true}
	require.NoError(t, indexer.SaveDegreeOrder(ctx, rosecroix))
	require.NoError(t, indexer.SaveProduct(ctx, &models.Product{Name: "Sautoir", Slug: "sautoir", DegreeOrderIDs: []string{rosecroix.ID}}))
	require.NoError(t, indexer.SaveProduct(ctx, &models.Product{Name: "Gants", Slug: "gants"}))

	rosecroix.IsActive = false
	require.NoError(t, indexer.SaveDegreeOrder(ctx, rosecroix))

	for _, p := range allProducts(t, products) {
		assert.Empty(t, p.LogeTypes, p.Name)
	}

	changed, err := indexer.ReindexLogeTypes(ctx)
	require.NoError(t, err)
	assert.Zero(t, changed)
}

func TestProductIndexer_ReindexPublishesEvent(t *testing.T) {
	publisher := new(MockEventPublisher)
	indexer, _, _ := newIndexer(t, publisher)
	publisher.On("PublishCatalogEvent", rabbitmq.EventCatalogReindexed, "").Return(nil).Once()

	changed, err := indexer.ReindexLogeTypes(context.Background())
	require.NoError(t, err)
	assert.Zero(t, changed)
	publisher.AssertExpectations(t)
}

func TestProductIndexer_SaveReferenceValidates(t *testing.T) {
	indexer, _, references := newIndexer(t, services.EventPublisherFunc(func(context.Context, rabbitmq.CatalogEvent) error { return nil }))

	err := indexer.SaveReference(context.Background(), models.KindRite, &models.Reference{Slug: "reaa"})
	assert.Error(t, err)

	ref := &models.Reference{Name: "REAA", Slug: "reaa", IsActive: true}
	require.NoError(t, indexer.SaveReference(context.Background(), models.KindRite, ref))
	found, err := references.FindBySlug(context.Background(), models.KindRite, "reaa")
	require.NoError(t, err)
	assert.Equal(t, ref.ID, found.ID)

	err = indexer.SaveDegreeOrder(context.Background(), &models.DegreeOrder{Name: "Inconnu", LogeType: "Loge Bleue"})
	assert.Error(t, err)
}
