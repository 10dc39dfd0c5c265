package query

import "regalia/internal/models"

// SortField orders results on one field.
type SortField struct {
	Field Field
	Desc  bool
}

var tieBreaker = SortField{Field: FieldID}

var sortSpecs = map[models.SortKey][]SortField{
	models.SortNewest:    {{Field: FieldCreatedAt, Desc: true}},
	models.SortOldest:    {{Field: FieldCreatedAt}},
	models.SortPriceAsc:  {{Field: FieldPrice}},
	models.SortPriceDesc: {{Field: FieldPrice, Desc: true}},
	models.SortNameAsc:   {{Field: FieldName}},
	models.SortNameDesc:  {{Field: FieldName, Desc: true}},
	models.SortFeatured:  {{Field: FieldFeatured, Desc: true}, {Field: FieldCreatedAt, Desc: true}},
	models.SortPopular:   {{Field: FieldReviewCount, Desc: true}, {Field: FieldAverageRating, Desc: true}},
}

// SortFor returns the ordering for key. Unknown keys get the default order.
// The product id is always appended so page windows never overlap.
func SortFor(key models.SortKey) []SortField {
	spec, ok := sortSpecs[key]
	if !ok {
		spec = sortSpecs[models.DefaultSortKey]
	}
	out := make([]SortField, 0, len(spec)+1)
	out = append(out, spec...)
	return append(out, tieBreaker)
}
