package handlers_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"

	"regalia/internal/handlers"
	"regalia/internal/middleware"
	"regalia/internal/models"
	"regalia/internal/query"
	"regalia/internal/repositories"
	"regalia/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupApp sets up a Fiber app for testing with in-memory SQLite and the demo catalog.
func setupApp(t *testing.T) *fiber.App {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err, "failed to connect to in-memory database")
	require.NoError(t, repositories.Migrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	productRepo := repositories.NewGORMProductRepository(db)
	referenceRepo := repositories.NewGORMReferenceRepository(db)

	indexer := services.NewProductIndexer(productRepo, referenceRepo, nil)
	require.NoError(t, services.SeedDemoCatalog(context.Background(), indexer))

	catalog := services.NewCatalogService(productRepo, referenceRepo, query.NewBuilder(referenceRepo), nil)
	return newApp(handlers.NewProductHandler(catalog))
}

func newApp(h *handlers.ProductHandler) *fiber.App {
	app := fiber.New()
	app.Use(middleware.RequestLogger(io.Discard))
	h.RegisterRoutes(app.Group("/api/v1"))
	return app
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}

func get(t *testing.T, app *fiber.App, path string, params url.Values, dst any) int {
	t.Helper()
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	if dst != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
	}
	return resp.StatusCode
}

func productNames(result models.SearchResult) []string {
	out := make([]string, 0, len(result.Products))
	for _, p := range result.Products {
		out = append(out, p.Name)
	}
	return out
}

func TestListProducts(t *testing.T) {
	app := setupApp(t)

	var result models.SearchResult
	status := get(t, app, "/api/v1/products", nil, &result)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, result.Products, 6)
	assert.Equal(t, models.Pagination{Page: 1, Limit: 20, Total: 6, TotalPages: 1}, result.Pagination)
	assert.Nil(t, result.Facets)

	var withFacets models.SearchResult
	get(t, app, "/api/v1/products", url.Values{"includeFacets": {"true"}}, &withFacets)
	require.NotNil(t, withFacets.Facets)
	assert.Equal(t, models.PriceRange{Min: 12, Max: 189}, withFacets.Facets.PriceRange)
	assert.NotEmpty(t, withFacets.Facets.Categories[0].Name)
}

func TestListProducts_Filters(t *testing.T) {
	app := setupApp(t)

	tests := []struct {
		name   string
		params url.Values
		want   []string
	}{
		{"price window", url.Values{"minPrice": {"100"}, "maxPrice": {"150"}, "sortBy": {"price"}}, []string{"Cordon de Kadosh", "Sautoir Rose-Croix"}},
		{"category slug", url.Values{"category": {"gants"}}, []string{"Gants blancs en coton"}},
		{"unknown category", url.Values{"category": {"epees"}}, []string{}},
		{"loge type", url.Values{"logeType": {models.LogeHautsGrades}, "sortBy": {"-price"}}, []string{"Sautoir Rose-Croix", "Cordon de Kadosh", "Bijou d'équerre et compas"}},
		{"search", url.Values{"search": {"BRODÉ"}}, []string{"Tablier de Maître REAA"}},
		{"color substring", url.Values{"color": {"oug"}, "sortBy": {"name"}}, []string{"Sautoir Rose-Croix", "Tablier de Maître REAA"}},
		{"size exact", url.Values{"size": {"XL"}}, []string{"Gants blancs en coton"}},
		{"promotions", url.Values{"showPromotions": {"true"}}, []string{"Tablier de Maître REAA"}},
		{"in stock and featured", url.Values{"inStockOnly": {"true"}, "featured": {"true"}}, []string{"Tablier de Maître REAA"}},
		{"malformed values ignored", url.Values{"rite": {"not-an-id"}, "minPrice": {"abc"}, "page": {"-4"}, "limit": {"500"}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var result models.SearchResult
			status := get(t, app, "/api/v1/products", tt.params, &result)
			assert.Equal(t, http.StatusOK, status)
			if tt.want == nil {
				assert.Len(t, result.Products, 6)
				assert.Equal(t, 1, result.Pagination.Page)
				assert.Equal(t, 100, result.Pagination.Limit)
				return
			}
			assert.Equal(t, tt.want, productNames(result))
		})
	}
}

func TestListProductsV2_IncludesFacets(t *testing.T) {
	app := setupApp(t)

	var result models.SearchResult
	status := get(t, app, "/api/v1/products-v2", url.Values{"category": {"cordons"}}, &result)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, result.Products, 2)
	require.NotNil(t, result.Facets)
	assert.Equal(t, []models.FacetValue{{Value: "Moire", Count: 2}}, result.Facets.Materials)
}

func TestGetFilters(t *testing.T) {
	app := setupApp(t)

	var facets models.Facets
	status := get(t, app, "/api/v1/products/filters", url.Values{"category": {"nope"}}, &facets)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, models.DefaultPriceRange, facets.PriceRange)
	assert.NotNil(t, facets.Sizes)
	assert.Empty(t, facets.Sizes)

	var all models.Facets
	get(t, app, "/api/v1/products/filters", nil, &all)
	assert.Equal(t, models.FacetValue{Value: "Blanc", Count: 3}, all.Colors[0])
}

func TestCatalogPage(t *testing.T) {
	app := setupApp(t)

	var page models.CategoryPage
	status := get(t, app, "/api/v1/catalog/tabliers", url.Values{"sortBy": {"price"}}, &page)
	assert.Equal(t, http.StatusOK, status)
	require.NotNil(t, page.Category)
	assert.Equal(t, "Tabliers", page.Category.Name)
	assert.Equal(t, []string{"Tablier d'Apprenti", "Tablier de Maître REAA"}, productNames(page.SearchResult))
	require.NotNil(t, page.Facets)

	var missing models.CategoryPage
	status = get(t, app, "/api/v1/catalog/epees", nil, &missing)
	assert.Equal(t, http.StatusOK, status)
	assert.Nil(t, missing.Category)
	assert.Empty(t, missing.Products)
}

// MockCatalog is a mock implementation of handlers.Catalog
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) Search(ctx context.Context, d models.FilterDescriptor, opts services.SearchOptions) (*models.SearchResult, error) {
	args := m.Called(d, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SearchResult), args.Error(1)
}

func (m *MockCatalog) Facets(ctx context.Context, d models.FilterDescriptor) (*models.Facets, error) {
	args := m.Called(d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Facets), args.Error(1)
}

func (m *MockCatalog) CategoryPage(ctx context.Context, category string, d models.FilterDescriptor) (*models.CategoryPage, error) {
	args := m.Called(category, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CategoryPage), args.Error(1)
}

func TestInfrastructureFailure(t *testing.T) {
	catalog := new(MockCatalog)
	failure := fmt.Errorf("count: %w", services.ErrResultsUnavailable)
	catalog.On("Search", mock.Anything, mock.Anything).Return(nil, failure)
	catalog.On("Facets", mock.Anything).Return(nil, failure)
	catalog.On("CategoryPage", "tabliers", mock.Anything).Return(nil, failure)
	app := newApp(handlers.NewProductHandler(catalog))

	for _, path := range []string{"/api/v1/products", "/api/v1/products-v2", "/api/v1/products/filters", "/api/v1/catalog/tabliers"} {
		t.Run(path, func(t *testing.T) {
			var body map[string]any
			status := get(t, app, path, nil, &body)
			assert.Equal(t, http.StatusInternalServerError, status)
			assert.Equal(t, map[string]any{"message": "Could not load results"}, body)
		})
	}
}

func TestListProducts_PassesIncludeFacets(t *testing.T) {
	catalog := new(MockCatalog)
	catalog.On("Search", mock.Anything, services.SearchOptions{IncludeFacets: true}).
		Return(&models.SearchResult{Products: []models.ProjectedProduct{}}, nil).Once()
	catalog.On("Search", mock.Anything, services.SearchOptions{IncludeFacets: false}).
		Return(&models.SearchResult{Products: []models.ProjectedProduct{}}, nil).Once()
	app := newApp(handlers.NewProductHandler(catalog))

	assert.Equal(t, http.StatusOK, get(t, app, "/api/v1/products", url.Values{"includeFacets": {"true"}}, nil))
	assert.Equal(t, http.StatusOK, get(t, app, "/api/v1/products", url.Values{"includeFacets": {"yes"}}, nil))
	catalog.AssertExpectations(t)
}
