package repositories

import (
	"context"
	"fmt"
	"time"

	"regalia/internal/models"
	"regalia/internal/query"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type productRecord struct {
	ID               string `gorm:"primaryKey;type:varchar(36)"`
	Name             string `gorm:"type:varchar(200);not null"`
	Slug             string `gorm:"type:varchar(200);uniqueIndex;not null"`
	Description      string
	ShortDescription string  `gorm:"type:varchar(500)"`
	Price            float64 `gorm:"not null;index"`
	CompareAtPrice   *float64
	StockQuantity    int  `gorm:"not null;default:0"`
	AllowBackorders  bool `gorm:"not null;default:false"`
	IsActive         bool `gorm:"not null;default:false;index"`
	Featured         bool `gorm:"not null;default:false"`
	PromoStartDate   *time.Time
	PromoEndDate     *time.Time
	ReviewCount      int
	AverageRating    float64
	CostPrice        *float64
	AdminNotes       string
	LegacyID         string `gorm:"type:varchar(64)"`
	Images           datatypes.JSONSlice[models.ProductImage]
	CreatedAt        time.Time `gorm:"index"`
	UpdatedAt        time.Time

	Relations  []productRelationRecord  `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Attributes []productAttributeRecord `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
}

func (productRecord) TableName() string { return "products" }

type productRelationRecord struct {
	ID        uint   `gorm:"primaryKey"`
	ProductID string `gorm:"type:varchar(36);not null;index"`
	Kind      string `gorm:"type:varchar(20);not null;index:idx_product_relations_lookup"`
	RefID     string `gorm:"type:varchar(36);not null;index:idx_product_relations_lookup"`
	Position  int
}

func (productRelationRecord) TableName() string { return "product_relations" }

type productAttributeRecord struct {
	ID        uint   `gorm:"primaryKey"`
	ProductID string `gorm:"type:varchar(36);not null;index"`
	Kind      string `gorm:"type:varchar(20);not null;index:idx_product_attributes_lookup"`
	Value     string `gorm:"type:varchar(200);not null;index:idx_product_attributes_lookup"`
	Position  int
}

func (productAttributeRecord) TableName() string { return "product_attributes" }

type priceRow struct {
	MinPrice *float64
	MaxPrice *float64
}

type facetRow struct {
	Value      string
	MatchCount int64
}

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// Count returns the number of products matching pred.
func (r *GORMProductRepository) Count(ctx context.Context, pred query.Predicate) (int64, error) {
	where, args, err := compilePredicate(pred)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := r.db.WithContext(ctx).Model(&productRecord{}).Where(where, args...).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}

// Find returns one window of the products matching pred.
func (r *GORMProductRepository) Find(ctx context.Context, pred query.Predicate, spec []query.SortField, skip, limit int) ([]models.Product, error) {
	where, args, err := compilePredicate(pred)
	if err != nil {
		return nil, err
	}

	tx := r.db.WithContext(ctx).Model(&productRecord{}).Where(where, args...)
	for _, s := range spec {
		col, ok := sortColumns[s.Field]
		if !ok {
			return nil, fmt.Errorf("cannot sort on %s", s.Field)
		}
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Table: "products", Name: col}, Desc: s.Desc})
	}
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if skip > 0 {
		tx = tx.Offset(skip)
	}

	var records []productRecord
	err = tx.
		Preload("Relations", byPosition).
		Preload("Attributes", byPosition).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}

	products := make([]models.Product, 0, len(records))
	for i := range records {
		products = append(products, records[i].toModel())
	}
	return products, nil
}

// AggregateFacets counts facet values across the products matching pred.
func (r *GORMProductRepository) AggregateFacets(ctx context.Context, pred query.Predicate) (*models.FacetBundle, error) {
	where, args, err := compilePredicate(pred)
	if err != nil {
		return nil, err
	}
	db := r.db.WithContext(ctx)
	bundle := &models.FacetBundle{References: make(map[models.ReferenceKind][]models.FacetValue)}

	var prices priceRow
	err = db.Model(&productRecord{}).
		Select("MIN(products.price) AS min_price, MAX(products.price) AS max_price").
		Where(where, args...).
		Scan(&prices).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate price range: %w", err)
	}
	if prices.MinPrice != nil && prices.MaxPrice != nil {
		bundle.PriceRange = &models.PriceRange{Min: *prices.MinPrice, Max: *prices.MaxPrice}
	}

	attributeFacets := []struct {
		kind string
		dst  *[]models.FacetValue
	}{
		{"size", &bundle.Sizes},
		{"color", &bundle.Colors},
		{"material", &bundle.Materials},
	}
	for _, f := range attributeFacets {
		values, err := r.countValues(db, "product_attributes", "value", f.kind, where, args)
		if err != nil {
			return nil, err
		}
		*f.dst = values
	}

	for _, kind := range models.ReferenceKinds {
		values, err := r.countValues(db, "product_relations", "ref_id", string(kind), where, args)
		if err != nil {
			return nil, err
		}
		bundle.References[kind] = values
	}
	return bundle, nil
}

// countValues unwinds one set field of the matching products and counts
// distinct products per value.
func (r *GORMProductRepository) countValues(db *gorm.DB, table, valueColumn, kind, where string, args []any) ([]models.FacetValue, error) {
	var rows []facetRow
	err := db.Table(table+" AS f").
		Select("f."+valueColumn+" AS value, COUNT(DISTINCT f.product_id) AS match_count").
		Joins("JOIN products ON products.id = f.product_id").
		Where("f.kind = ?", kind).
		Where(where, args...).
		Group("f." + valueColumn).
		Order("match_count DESC, value ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate %s facet: %w", kind, err)
	}

	values := make([]models.FacetValue, 0, len(rows))
	for _, row := range rows {
		values = append(values, models.FacetValue{Value: row.Value, Count: row.MatchCount})
	}
	return values, nil
}

// Save inserts or replaces a product together with its relation and attribute rows.
func (r *GORMProductRepository) Save(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	record := newProductRecord(product)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", record.ID).Delete(&productRelationRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", record.ID).Delete(&productAttributeRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id = ?", record.ID).Delete(&productRecord{}).Error; err != nil {
			return err
		}
		return tx.Create(record).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save product %s: %w", product.ID, err)
	}
	product.CreatedAt = record.CreatedAt
	product.UpdatedAt = record.UpdatedAt
	return nil
}

var sortColumns = map[query.Field]string{
	query.FieldID:            "id",
	query.FieldCreatedAt:     "created_at",
	query.FieldPrice:         "price",
	query.FieldName:          "name",
	query.FieldFeatured:      "featured",
	query.FieldReviewCount:   "review_count",
	query.FieldAverageRating: "average_rating",
}

func byPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func newProductRecord(p *models.Product) *productRecord {
	rec := &productRecord{
		ID:               p.ID,
		Name:             p.Name,
		Slug:             p.Slug,
		Description:      p.Description,
		ShortDescription: p.ShortDescription,
		Price:            p.Price,
		CompareAtPrice:   p.CompareAtPrice,
		StockQuantity:    p.StockQuantity,
		AllowBackorders:  p.AllowBackorders,
		IsActive:         p.IsActive,
		Featured:         p.Featured,
		PromoStartDate:   utcPtr(p.PromoStartDate),
		PromoEndDate:     utcPtr(p.PromoEndDate),
		ReviewCount:      p.ReviewCount,
		AverageRating:    p.AverageRating,
		CostPrice:        p.CostPrice,
		AdminNotes:       p.AdminNotes,
		LegacyID:         p.LegacyID,
		Images:           datatypes.NewJSONSlice(p.Images),
		CreatedAt:        p.CreatedAt.UTC(),
		UpdatedAt:        p.UpdatedAt.UTC(),
	}

	addRelations := func(kind models.ReferenceKind, ids []string) {
		for i, id := range dedupe(ids) {
			rec.Relations = append(rec.Relations, productRelationRecord{ProductID: p.ID, Kind: string(kind), RefID: id, Position: i})
		}
	}
	addRelations(models.KindCategory, p.CategoryIDs)
	addRelations(models.KindRite, p.RiteIDs)
	addRelations(models.KindObedience, p.ObedienceIDs)
	addRelations(models.KindDegreeOrder, p.DegreeOrderIDs)

	addAttributes := func(kind string, values []string) {
		for i, v := range dedupe(values) {
			rec.Attributes = append(rec.Attributes, productAttributeRecord{ProductID: p.ID, Kind: kind, Value: v, Position: i})
		}
	}
	addAttributes("size", p.Sizes)
	addAttributes("color", p.Colors)
	addAttributes("material", p.Materials)
	addAttributes("tag", p.Tags)
	addAttributes("loge_type", p.LogeTypes)
	return rec
}

func (rec *productRecord) toModel() models.Product {
	p := models.Product{
		ID:               rec.ID,
		Name:             rec.Name,
		Slug:             rec.Slug,
		Description:      rec.Description,
		ShortDescription: rec.ShortDescription,
		Price:            rec.Price,
		CompareAtPrice:   rec.CompareAtPrice,
		StockQuantity:    rec.StockQuantity,
		AllowBackorders:  rec.AllowBackorders,
		IsActive:         rec.IsActive,
		Featured:         rec.Featured,
		PromoStartDate:   rec.PromoStartDate,
		PromoEndDate:     rec.PromoEndDate,
		ReviewCount:      rec.ReviewCount,
		AverageRating:    rec.AverageRating,
		CostPrice:        rec.CostPrice,
		AdminNotes:       rec.AdminNotes,
		LegacyID:         rec.LegacyID,
		Images:           []models.ProductImage(rec.Images),
		CreatedAt:        rec.CreatedAt,
		UpdatedAt:        rec.UpdatedAt,
	}
	for _, rel := range rec.Relations {
		switch models.ReferenceKind(rel.Kind) {
		case models.KindCategory:
			p.CategoryIDs = append(p.CategoryIDs, rel.RefID)
		case models.KindRite:
			p.RiteIDs = append(p.RiteIDs, rel.RefID)
		case models.KindObedience:
			p.ObedienceIDs = append(p.ObedienceIDs, rel.RefID)
		case models.KindDegreeOrder:
			p.DegreeOrderIDs = append(p.DegreeOrderIDs, rel.RefID)
		}
	}
	for _, attr := range rec.Attributes {
		switch attr.Kind {
		case "size":
			p.Sizes = append(p.Sizes, attr.Value)
		case "color":
			p.Colors = append(p.Colors, attr.Value)
		case "material":
			p.Materials = append(p.Materials, attr.Value)
		case "tag":
			p.Tags = append(p.Tags, attr.Value)
		case "loge_type":
			p.LogeTypes = append(p.LogeTypes, attr.Value)
		}
	}
	return p
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
