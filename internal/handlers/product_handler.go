package handlers

import (
	"context"
	"log/slog"

	"regalia/internal/filters"
	"regalia/internal/models"
	"regalia/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ParamIncludeFacets asks the listing endpoint for the sidebar facets.
const ParamIncludeFacets = "includeFacets"

// Catalog is the listing service the handlers read from.
type Catalog interface {
	Search(ctx context.Context, d models.FilterDescriptor, opts services.SearchOptions) (*models.SearchResult, error)
	Facets(ctx context.Context, d models.FilterDescriptor) (*models.Facets, error)
	CategoryPage(ctx context.Context, category string, d models.FilterDescriptor) (*models.CategoryPage, error)
}

// ProductHandler handles HTTP requests for the storefront listings.
type ProductHandler struct {
	catalog Catalog
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(catalog Catalog) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
	}
}

// RegisterRoutes registers the listing routes with the Fiber app.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/products", h.HandleListProducts)
	router.Get("/products/filters", h.HandleGetFilters)
	router.Get("/products-v2", h.HandleListProductsV2)
	router.Get("/catalog/:category", h.HandleCatalogPage)
}

// HandleListProducts returns one page of filtered products. Facets are
// included only when includeFacets=true.
func (h *ProductHandler) HandleListProducts(c *fiber.Ctx) error {
	opts := services.SearchOptions{IncludeFacets: c.Query(ParamIncludeFacets) == "true"}
	result, err := h.catalog.Search(c.UserContext(), filters.Normalize(c.Queries()), opts)
	if err != nil {
		return unavailable(c, err)
	}
	return c.JSON(result)
}

// HandleListProductsV2 serves the sidebar listing variant, which always
// carries facets.
func (h *ProductHandler) HandleListProductsV2(c *fiber.Ctx) error {
	result, err := h.catalog.Search(c.UserContext(), filters.Normalize(c.Queries()), services.SearchOptions{IncludeFacets: true})
	if err != nil {
		return unavailable(c, err)
	}
	return c.JSON(result)
}

// HandleGetFilters returns the facets of the filtered listing.
func (h *ProductHandler) HandleGetFilters(c *fiber.Ctx) error {
	facets, err := h.catalog.Facets(c.UserContext(), filters.Normalize(c.Queries()))
	if err != nil {
		return unavailable(c, err)
	}
	return c.JSON(facets)
}

// HandleCatalogPage returns the category header with its listing and facets.
func (h *ProductHandler) HandleCatalogPage(c *fiber.Ctx) error {
	page, err := h.catalog.CategoryPage(c.UserContext(), c.Params("category"), filters.Normalize(c.Queries()))
	if err != nil {
		return unavailable(c, err)
	}
	return c.JSON(page)
}

func unavailable(c *fiber.Ctx, err error) error {
	slog.Error("listing request failed", "op", "ProductHandler", "path", c.Path(), "err", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "Could not load results",
	})
}
