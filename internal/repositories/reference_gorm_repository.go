package repositories

import (
	"context"
	"errors"
	"fmt"

	"regalia/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReferenceColumns struct {
	ID       string `gorm:"primaryKey;type:varchar(36)"`
	Name     string `gorm:"type:varchar(200);not null"`
	Slug     string `gorm:"type:varchar(200);not null"`
	Code     string `gorm:"type:varchar(50)"`
	IsActive bool   `gorm:"not null"`
	Order    int    `gorm:"column:display_order"`
}

type categoryRecord struct {
	ReferenceColumns `gorm:"embedded"`
}

func (categoryRecord) TableName() string { return "categories" }

type riteRecord struct {
	ReferenceColumns `gorm:"embedded"`
}

func (riteRecord) TableName() string { return "rites" }

type obedienceRecord struct {
	ReferenceColumns `gorm:"embedded"`
}

func (obedienceRecord) TableName() string { return "obediences" }

type degreeOrderRecord struct {
	ID       string `gorm:"primaryKey;type:varchar(36)"`
	Name     string `gorm:"type:varchar(200);not null"`
	Level    int    `gorm:"not null"`
	LogeType string `gorm:"type:varchar(20);not null;index"`
	IsActive bool   `gorm:"not null"`
}

func (degreeOrderRecord) TableName() string { return "degree_orders" }

// Migrate creates or updates every catalog table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&categoryRecord{},
		&riteRecord{},
		&obedienceRecord{},
		&degreeOrderRecord{},
		&productRecord{},
		&productRelationRecord{},
		&productAttributeRecord{},
	)
}

// GORMReferenceRepository is a GORM implementation of ReferenceRepository.
type GORMReferenceRepository struct {
	db *gorm.DB
}

// NewGORMReferenceRepository creates a new instance of GORMReferenceRepository.
func NewGORMReferenceRepository(db *gorm.DB) *GORMReferenceRepository {
	return &GORMReferenceRepository{
		db: db,
	}
}

func referenceTable(kind models.ReferenceKind) (string, error) {
	switch kind {
	case models.KindCategory:
		return categoryRecord{}.TableName(), nil
	case models.KindRite:
		return riteRecord{}.TableName(), nil
	case models.KindObedience:
		return obedienceRecord{}.TableName(), nil
	case models.KindDegreeOrder:
		return degreeOrderRecord{}.TableName(), nil
	}
	return "", fmt.Errorf("unsupported reference kind %q", kind)
}

// FindActiveByID returns an active reference by id.
func (r *GORMReferenceRepository) FindActiveByID(ctx context.Context, kind models.ReferenceKind, id string) (*models.Reference, error) {
	return r.findOne(ctx, kind, "id = ? AND is_active = ?", id, true)
}

// FindBySlug returns a reference by slug.
func (r *GORMReferenceRepository) FindBySlug(ctx context.Context, kind models.ReferenceKind, slug string) (*models.Reference, error) {
	return r.findOne(ctx, kind, "slug = ?", slug)
}

func (r *GORMReferenceRepository) findOne(ctx context.Context, kind models.ReferenceKind, cond string, args ...any) (*models.Reference, error) {
	if kind == models.KindDegreeOrder {
		return nil, fmt.Errorf("unsupported reference kind %q", kind)
	}
	table, err := referenceTable(kind)
	if err != nil {
		return nil, err
	}

	var row ReferenceColumns
	err = r.db.WithContext(ctx).Table(table).Where(cond, args...).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s %v: %w", kind, args[0], models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", kind, err)
	}
	ref := row.toModel()
	return &ref, nil
}

// FindActiveByLogeType returns the active degree orders of a loge type, by level.
func (r *GORMReferenceRepository) FindActiveByLogeType(ctx context.Context, logeType string) ([]models.DegreeOrder, error) {
	var rows []degreeOrderRecord
	err := r.db.WithContext(ctx).
		Where("loge_type = ? AND is_active = ?", logeType, true).
		Order("level ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load degree orders for %s: %w", logeType, err)
	}
	return toDegreeOrders(rows), nil
}

// NamesByIDs maps ids to display names. Unknown ids are left out.
func (r *GORMReferenceRepository) NamesByIDs(ctx context.Context, kind models.ReferenceKind, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	table, err := referenceTable(kind)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		ID   string
		Name string
	}
	err = r.db.WithContext(ctx).Table(table).Select("id, name").Where("id IN ?", ids).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load %s names: %w", kind, err)
	}
	for _, row := range rows {
		names[row.ID] = row.Name
	}
	return names, nil
}

// ListDegreeOrders returns every degree order, by level.
func (r *GORMReferenceRepository) ListDegreeOrders(ctx context.Context) ([]models.DegreeOrder, error) {
	var rows []degreeOrderRecord
	if err := r.db.WithContext(ctx).Order("level ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list degree orders: %w", err)
	}
	return toDegreeOrders(rows), nil
}

// SaveReference inserts or replaces a category, rite or obedience.
func (r *GORMReferenceRepository) SaveReference(ctx context.Context, kind models.ReferenceKind, ref *models.Reference) error {
	if ref.ID == "" {
		ref.ID = uuid.New().String()
	}
	cols := ReferenceColumns{
		ID:       ref.ID,
		Name:     ref.Name,
		Slug:     ref.Slug,
		Code:     ref.Code,
		IsActive: ref.IsActive,
		Order:    ref.Order,
	}

	var record any
	switch kind {
	case models.KindCategory:
		record = &categoryRecord{cols}
	case models.KindRite:
		record = &riteRecord{cols}
	case models.KindObedience:
		record = &obedienceRecord{cols}
	default:
		return fmt.Errorf("unsupported reference kind %q", kind)
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(record).Error
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", kind, err)
	}
	return nil
}

// SaveDegreeOrder inserts or replaces a degree order.
func (r *GORMReferenceRepository) SaveDegreeOrder(ctx context.Context, order *models.DegreeOrder) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	record := &degreeOrderRecord{
		ID:       order.ID,
		Name:     order.Name,
		Level:    order.Level,
		LogeType: order.LogeType,
		IsActive: order.IsActive,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(record).Error
	if err != nil {
		return fmt.Errorf("failed to save degree order: %w", err)
	}
	return nil
}

func (c ReferenceColumns) toModel() models.Reference {
	return models.Reference{
		ID:       c.ID,
		Name:     c.Name,
		Slug:     c.Slug,
		Code:     c.Code,
		IsActive: c.IsActive,
		Order:    c.Order,
	}
}

func toDegreeOrders(rows []degreeOrderRecord) []models.DegreeOrder {
	out := make([]models.DegreeOrder, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.DegreeOrder{
			ID:       row.ID,
			Name:     row.Name,
			Level:    row.Level,
			LogeType: row.LogeType,
			IsActive: row.IsActive,
		})
	}
	return out
}
