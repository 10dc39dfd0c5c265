package query_test

import (
	"sort"
	"testing"
	"time"

	"regalia/internal/models"
	"regalia/internal/query"

	"github.com/stretchr/testify/assert"
)

func price(v float64) *float64 { return &v }

func TestMatches_StockAndSearchDoNotRelaxEachOther(t *testing.T) {
	pred := query.All(
		query.BoolEquals{Field: query.FieldIsActive, Value: true},
		query.InStock(),
		query.TextSearch("tablier"),
	)

	outOfStockMatch := &models.Product{Name: "Tablier de Maître", IsActive: true, StockQuantity: 0}
	inStockNoMatch := &models.Product{Name: "Cordon", IsActive: true, StockQuantity: 4}
	backorderMatch := &models.Product{Name: "Sautoir", Tags: []string{"TABLIER"}, IsActive: true, AllowBackorders: true}
	inStockMatch := &models.Product{Name: "Grand tablier", IsActive: true, StockQuantity: 2}

	assert.False(t, query.Matches(pred, outOfStockMatch))
	assert.False(t, query.Matches(pred, inStockNoMatch))
	assert.True(t, query.Matches(pred, backorderMatch))
	assert.True(t, query.Matches(pred, inStockMatch))
}

func TestMatches_Promotions(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pred := query.All(query.BoolEquals{Field: query.FieldIsActive, Value: true}, query.PromotionActive(now))

	a := &models.Product{Price: 100, CompareAtPrice: price(150), IsActive: true}
	b := &models.Product{Price: 50, IsActive: true}
	c := &models.Product{Price: 80, CompareAtPrice: price(120), IsActive: false}
	notCheaper := &models.Product{Price: 80, CompareAtPrice: price(80), IsActive: true}

	before, after := now.Add(-time.Hour), now.Add(time.Hour)
	running := &models.Product{Price: 10, CompareAtPrice: price(20), IsActive: true, PromoStartDate: &before, PromoEndDate: &after}
	expired := &models.Product{Price: 10, CompareAtPrice: price(20), IsActive: true, PromoEndDate: &before}
	upcoming := &models.Product{Price: 10, CompareAtPrice: price(20), IsActive: true, PromoStartDate: &after}

	assert.True(t, query.Matches(pred, a))
	assert.False(t, query.Matches(pred, b))
	assert.False(t, query.Matches(pred, c))
	assert.False(t, query.Matches(pred, notCheaper))
	assert.True(t, query.Matches(pred, running))
	assert.False(t, query.Matches(pred, expired))
	assert.False(t, query.Matches(pred, upcoming))
}

func TestMatches_InvertedPriceRange(t *testing.T) {
	pred := query.All(
		query.NumberCompare{Field: query.FieldPrice, Op: query.OpGte, Value: 200},
		query.NumberCompare{Field: query.FieldPrice, Op: query.OpLte, Value: 100},
	)
	for _, p := range []float64{50, 100, 150, 200, 250} {
		assert.False(t, query.Matches(pred, &models.Product{Price: p, IsActive: true}))
	}
}

func TestMatches_ColorIsCaseInsensitiveSubstring(t *testing.T) {
	pred := query.ContainsFold{Field: query.FieldColors, Text: "bleu"}

	assert.True(t, query.Matches(pred, &models.Product{Colors: []string{"Rouge", "Bleu marine"}}))
	assert.False(t, query.Matches(pred, &models.Product{Colors: []string{"Rouge"}}))
}

func TestMatches_SizeIsExact(t *testing.T) {
	pred := query.AnyIn{Field: query.FieldSizes, Values: []string{"M"}}

	assert.True(t, query.Matches(pred, &models.Product{Sizes: []string{"S", "M"}}))
	assert.False(t, query.Matches(pred, &models.Product{Sizes: []string{"XM"}}))
}

func TestMatches_NeverAndEmptyGroups(t *testing.T) {
	p := &models.Product{IsActive: true}

	assert.False(t, query.Matches(query.Never{}, p))
	assert.True(t, query.Matches(query.And{}, p))
	assert.False(t, query.Matches(query.Or{}, p))
	assert.Equal(t, query.Never{}, query.All(query.BoolEquals{Field: query.FieldIsActive, Value: true}, query.Never{}))
}

func TestLess_PriceThenID(t *testing.T) {
	products := []*models.Product{
		{ID: "c", Price: 30},
		{ID: "b", Price: 10},
		{ID: "a", Price: 30},
		{ID: "d", Price: 20},
	}
	spec := query.SortFor(models.SortPriceAsc)
	sort.SliceStable(products, func(i, j int) bool { return query.Less(spec, products[i], products[j]) })

	var ids []string
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"b", "d", "a", "c"}, ids)
}

func TestLess_FeaturedFirst(t *testing.T) {
	older := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(24 * time.Hour)
	spec := query.SortFor(models.SortFeatured)

	featuredOld := &models.Product{ID: "1", Featured: true, CreatedAt: older}
	plainNew := &models.Product{ID: "2", CreatedAt: newer}
	featuredNew := &models.Product{ID: "3", Featured: true, CreatedAt: newer}

	assert.True(t, query.Less(spec, featuredOld, plainNew))
	assert.True(t, query.Less(spec, featuredNew, featuredOld))
	assert.False(t, query.Less(spec, plainNew, featuredNew))
}
