package query

import (
	"strings"
	"time"

	"regalia/internal/models"
)

// Matches evaluates pred against p. Comparisons involving a missing value
// are false, as they are in SQL.
func Matches(pred Predicate, p *models.Product) bool {
	switch pr := pred.(type) {
	case And:
		for _, c := range pr.Clauses {
			if !Matches(c, p) {
				return false
			}
		}
		return true
	case Or:
		for _, c := range pr.Clauses {
			if Matches(c, p) {
				return true
			}
		}
		return false
	case BoolEquals:
		return boolValue(p, pr.Field) == pr.Value
	case NumberCompare:
		v, ok := numberValue(p, pr.Field)
		return ok && compareNumbers(v, pr.Op, pr.Value)
	case TimeCompare:
		v, ok := timeValue(p, pr.Field)
		return ok && compareTimes(v, pr.Op, pr.Value)
	case FieldCompare:
		l, lok := numberValue(p, pr.Left)
		r, rok := numberValue(p, pr.Right)
		return lok && rok && compareNumbers(l, pr.Op, r)
	case IsNull:
		return isNull(p, pr.Field)
	case AnyIn:
		for _, have := range setValue(p, pr.Field) {
			for _, want := range pr.Values {
				if have == want {
					return true
				}
			}
		}
		return false
	case ContainsFold:
		needle := strings.ToLower(pr.Text)
		if IsSetField(pr.Field) {
			for _, v := range setValue(p, pr.Field) {
				if strings.Contains(strings.ToLower(v), needle) {
					return true
				}
			}
			return false
		}
		return strings.Contains(strings.ToLower(textValue(p, pr.Field)), needle)
	case Never:
		return false
	}
	return false
}

// Less reports whether a sorts before b under spec.
func Less(spec []SortField, a, b *models.Product) bool {
	for _, s := range spec {
		c := compareField(s.Field, a, b)
		if c == 0 {
			continue
		}
		if s.Desc {
			return c > 0
		}
		return c < 0
	}
	return false
}

func compareField(f Field, a, b *models.Product) int {
	switch f {
	case FieldID, FieldName:
		return strings.Compare(textValue(a, f), textValue(b, f))
	case FieldCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case FieldFeatured:
		return compareBools(a.Featured, b.Featured)
	}
	av, _ := numberValue(a, f)
	bv, _ := numberValue(b, f)
	switch {
	case av < bv:
		return -1
	case av > bv:
		return 1
	}
	return 0
}

func compareBools(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return 1
	}
	return -1
}

func compareNumbers(v float64, op Op, target float64) bool {
	switch op {
	case OpGt:
		return v > target
	case OpGte:
		return v >= target
	case OpLt:
		return v < target
	case OpLte:
		return v <= target
	}
	return false
}

func compareTimes(v time.Time, op Op, target time.Time) bool {
	switch op {
	case OpGt:
		return v.After(target)
	case OpGte:
		return !v.Before(target)
	case OpLt:
		return v.Before(target)
	case OpLte:
		return !v.After(target)
	}
	return false
}

func boolValue(p *models.Product, f Field) bool {
	switch f {
	case FieldIsActive:
		return p.IsActive
	case FieldFeatured:
		return p.Featured
	case FieldAllowBackorders:
		return p.AllowBackorders
	}
	return false
}

func numberValue(p *models.Product, f Field) (float64, bool) {
	switch f {
	case FieldPrice:
		return p.Price, true
	case FieldCompareAtPrice:
		if p.CompareAtPrice == nil {
			return 0, false
		}
		return *p.CompareAtPrice, true
	case FieldStockQuantity:
		return float64(p.StockQuantity), true
	case FieldReviewCount:
		return float64(p.ReviewCount), true
	case FieldAverageRating:
		return p.AverageRating, true
	}
	return 0, false
}

func timeValue(p *models.Product, f Field) (time.Time, bool) {
	switch f {
	case FieldCreatedAt:
		return p.CreatedAt, true
	case FieldPromoStartDate:
		if p.PromoStartDate == nil {
			return time.Time{}, false
		}
		return *p.PromoStartDate, true
	case FieldPromoEndDate:
		if p.PromoEndDate == nil {
			return time.Time{}, false
		}
		return *p.PromoEndDate, true
	}
	return time.Time{}, false
}

func isNull(p *models.Product, f Field) bool {
	switch f {
	case FieldCompareAtPrice:
		return p.CompareAtPrice == nil
	case FieldPromoStartDate:
		return p.PromoStartDate == nil
	case FieldPromoEndDate:
		return p.PromoEndDate == nil
	}
	return false
}

func textValue(p *models.Product, f Field) string {
	switch f {
	case FieldID:
		return p.ID
	case FieldName:
		return p.Name
	case FieldDescription:
		return p.Description
	case FieldShortDescription:
		return p.ShortDescription
	}
	return ""
}

func setValue(p *models.Product, f Field) []string {
	switch f {
	case FieldCategoryIDs:
		return p.CategoryIDs
	case FieldRiteIDs:
		return p.RiteIDs
	case FieldObedienceIDs:
		return p.ObedienceIDs
	case FieldDegreeOrderIDs:
		return p.DegreeOrderIDs
	case FieldSizes:
		return p.Sizes
	case FieldColors:
		return p.Colors
	case FieldMaterials:
		return p.Materials
	case FieldTags:
		return p.Tags
	case FieldLogeTypes:
		return p.LogeTypes
	}
	return nil
}
