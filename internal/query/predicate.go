// Package query builds storage-neutral predicates over the product collection.
//
// A Predicate is an immutable expression tree. Repositories either translate
// it to SQL (gorm) or evaluate it directly (in-memory, see Matches).
package query

import "time"

// Field names a product attribute a predicate or sort can refer to.
type Field string

const (
	FieldID               Field = "id"
	FieldIsActive         Field = "is_active"
	FieldFeatured         Field = "featured"
	FieldAllowBackorders  Field = "allow_backorders"
	FieldPrice            Field = "price"
	FieldCompareAtPrice   Field = "compare_at_price"
	FieldStockQuantity    Field = "stock_quantity"
	FieldReviewCount      Field = "review_count"
	FieldAverageRating    Field = "average_rating"
	FieldCreatedAt        Field = "created_at"
	FieldPromoStartDate   Field = "promo_start_date"
	FieldPromoEndDate     Field = "promo_end_date"
	FieldName             Field = "name"
	FieldDescription      Field = "description"
	FieldShortDescription Field = "short_description"

	// Set-valued fields.
	FieldCategoryIDs    Field = "category_ids"
	FieldRiteIDs        Field = "rite_ids"
	FieldObedienceIDs   Field = "obedience_ids"
	FieldDegreeOrderIDs Field = "degree_order_ids"
	FieldSizes          Field = "sizes"
	FieldColors         Field = "colors"
	FieldMaterials      Field = "materials"
	FieldTags           Field = "tags"
	FieldLogeTypes      Field = "loge_types"
)

// Op is a comparison operator.
type Op string

const (
	OpGt  Op = ">"
	OpGte Op = ">="
	OpLt  Op = "<"
	OpLte Op = "<="
)

// Predicate is a condition over a single product.
type Predicate interface {
	predicate()
}

type (
	// And matches when every clause matches. An empty And matches everything.
	And struct{ Clauses []Predicate }

	// Or matches when at least one clause matches. An empty Or matches nothing.
	Or struct{ Clauses []Predicate }

	// BoolEquals compares a boolean field.
	BoolEquals struct {
		Field Field
		Value bool
	}

	// NumberCompare compares a numeric field with a constant.
	NumberCompare struct {
		Field Field
		Op    Op
		Value float64
	}

	// TimeCompare compares a timestamp field with a constant.
	TimeCompare struct {
		Field Field
		Op    Op
		Value time.Time
	}

	// FieldCompare compares two numeric fields of the same product.
	FieldCompare struct {
		Left  Field
		Op    Op
		Right Field
	}

	// IsNull matches when an optional field is absent.
	IsNull struct{ Field Field }

	// AnyIn matches when a set field shares at least one value with Values.
	AnyIn struct {
		Field  Field
		Values []string
	}

	// ContainsFold is a case-insensitive substring match on a text field,
	// or on any element of a set field.
	ContainsFold struct {
		Field Field
		Text  string
	}

	// Never matches no product.
	Never struct{}
)

func (And) predicate()           {}
func (Or) predicate()            {}
func (BoolEquals) predicate()    {}
func (NumberCompare) predicate() {}
func (TimeCompare) predicate()   {}
func (FieldCompare) predicate()  {}
func (IsNull) predicate()        {}
func (AnyIn) predicate()         {}
func (ContainsFold) predicate()  {}
func (Never) predicate()         {}

// All combines clauses with AND. A Never clause short-circuits the whole conjunction.
func All(clauses ...Predicate) Predicate {
	for _, c := range clauses {
		if _, ok := c.(Never); ok {
			return Never{}
		}
	}
	return And{Clauses: clauses}
}

// Any combines clauses with OR.
func Any(clauses ...Predicate) Predicate {
	return Or{Clauses: clauses}
}

// IsSetField reports whether f holds a set of values rather than a scalar.
func IsSetField(f Field) bool {
	switch f {
	case FieldCategoryIDs, FieldRiteIDs, FieldObedienceIDs, FieldDegreeOrderIDs,
		FieldSizes, FieldColors, FieldMaterials, FieldTags, FieldLogeTypes:
		return true
	}
	return false
}
