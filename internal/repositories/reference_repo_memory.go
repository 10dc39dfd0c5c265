package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"regalia/internal/models"

	"github.com/google/uuid"
)

// MemoryReferenceRepository is an in-memory implementation of ReferenceRepository.
type MemoryReferenceRepository struct {
	refs    map[models.ReferenceKind]map[string]models.Reference
	degrees map[string]models.DegreeOrder
	mu      sync.RWMutex
}

// NewMemoryReferenceRepository creates a new instance of MemoryReferenceRepository.
func NewMemoryReferenceRepository() *MemoryReferenceRepository {
	return &MemoryReferenceRepository{
		refs: map[models.ReferenceKind]map[string]models.Reference{
			models.KindCategory:  {},
			models.KindRite:      {},
			models.KindObedience: {},
		},
		degrees: make(map[string]models.DegreeOrder),
	}
}

// FindActiveByID returns an active reference by id.
func (r *MemoryReferenceRepository) FindActiveByID(ctx context.Context, kind models.ReferenceKind, id string) (*models.Reference, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	refs, ok := r.refs[kind]
	if !ok {
		return nil, fmt.Errorf("unsupported reference kind %q", kind)
	}
	ref, ok := refs[id]
	if !ok || !ref.IsActive {
		return nil, fmt.Errorf("%s %s: %w", kind, id, models.ErrNotFound)
	}
	return &ref, nil
}

// FindBySlug returns a reference by slug.
func (r *MemoryReferenceRepository) FindBySlug(ctx context.Context, kind models.ReferenceKind, slug string) (*models.Reference, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	refs, ok := r.refs[kind]
	if !ok {
		return nil, fmt.Errorf("unsupported reference kind %q", kind)
	}
	for _, ref := range refs {
		if ref.Slug == slug {
			return &ref, nil
		}
	}
	return nil, fmt.Errorf("%s slug %q: %w", kind, slug, models.ErrNotFound)
}

// FindActiveByLogeType returns the active degree orders of a loge type, by level.
func (r *MemoryReferenceRepository) FindActiveByLogeType(ctx context.Context, logeType string) ([]models.DegreeOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.DegreeOrder, 0)
	for _, d := range r.degrees {
		if d.IsActive && d.LogeType == logeType {
			out = append(out, d)
		}
	}
	sortDegreeOrders(out)
	return out, nil
}

// NamesByIDs maps ids to display names. Unknown ids are left out.
func (r *MemoryReferenceRepository) NamesByIDs(ctx context.Context, kind models.ReferenceKind, ids []string) (map[string]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make(map[string]string, len(ids))
	for _, id := range ids {
		if kind == models.KindDegreeOrder {
			if d, ok := r.degrees[id]; ok {
				names[id] = d.Name
			}
			continue
		}
		if ref, ok := r.refs[kind][id]; ok {
			names[id] = ref.Name
		}
	}
	return names, nil
}

// ListDegreeOrders returns every degree order, by level.
func (r *MemoryReferenceRepository) ListDegreeOrders(ctx context.Context) ([]models.DegreeOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.DegreeOrder, 0, len(r.degrees))
	for _, d := range r.degrees {
		out = append(out, d)
	}
	sortDegreeOrders(out)
	return out, nil
}

// SaveReference inserts or replaces a category, rite or obedience.
func (r *MemoryReferenceRepository) SaveReference(ctx context.Context, kind models.ReferenceKind, ref *models.Reference) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	refs, ok := r.refs[kind]
	if !ok {
		return fmt.Errorf("unsupported reference kind %q", kind)
	}
	if ref.ID == "" {
		ref.ID = uuid.New().String()
	}
	refs[ref.ID] = *ref
	return nil
}

// SaveDegreeOrder inserts or replaces a degree order.
func (r *MemoryReferenceRepository) SaveDegreeOrder(ctx context.Context, order *models.DegreeOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	r.degrees[order.ID] = *order
	return nil
}

func sortDegreeOrders(orders []models.DegreeOrder) {
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].Level != orders[j].Level {
			return orders[i].Level < orders[j].Level
		}
		return orders[i].ID < orders[j].ID
	})
}
