package repositories

import (
	"fmt"
	"strings"

	"regalia/internal/query"
)

// Columns of the products table, qualified so they stay unambiguous inside joins.
var productColumns = map[query.Field]string{
	query.FieldID:               "products.id",
	query.FieldIsActive:         "products.is_active",
	query.FieldFeatured:         "products.featured",
	query.FieldAllowBackorders:  "products.allow_backorders",
	query.FieldPrice:            "products.price",
	query.FieldCompareAtPrice:   "products.compare_at_price",
	query.FieldStockQuantity:    "products.stock_quantity",
	query.FieldReviewCount:      "products.review_count",
	query.FieldAverageRating:    "products.average_rating",
	query.FieldCreatedAt:        "products.created_at",
	query.FieldPromoStartDate:   "products.promo_start_date",
	query.FieldPromoEndDate:     "products.promo_end_date",
	query.FieldName:             "products.name",
	query.FieldDescription:      "products.description",
	query.FieldShortDescription: "products.short_description",
}

// Set fields stored as rows of product_relations, keyed by kind.
var relationKinds = map[query.Field]string{
	query.FieldCategoryIDs:    "category",
	query.FieldRiteIDs:        "rite",
	query.FieldObedienceIDs:   "obedience",
	query.FieldDegreeOrderIDs: "degree_order",
}

// Set fields stored as rows of product_attributes, keyed by kind.
var attributeKinds = map[query.Field]string{
	query.FieldSizes:     "size",
	query.FieldColors:    "color",
	query.FieldMaterials: "material",
	query.FieldTags:      "tag",
	query.FieldLogeTypes: "loge_type",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// compilePredicate renders pred as a SQL condition over the products table
// with positional ? placeholders.
func compilePredicate(pred query.Predicate) (string, []any, error) {
	c := &sqlCompiler{}
	sql, err := c.compile(pred)
	if err != nil {
		return "", nil, err
	}
	return sql, c.args, nil
}

type sqlCompiler struct {
	args []any
}

func (c *sqlCompiler) compile(pred query.Predicate) (string, error) {
	switch p := pred.(type) {
	case query.And:
		return c.join(p.Clauses, " AND ", "1 = 1")
	case query.Or:
		return c.join(p.Clauses, " OR ", "1 = 0")
	case query.BoolEquals:
		col, err := column(p.Field)
		if err != nil {
			return "", err
		}
		c.args = append(c.args, p.Value)
		return col + " = ?", nil
	case query.NumberCompare:
		col, err := column(p.Field)
		if err != nil {
			return "", err
		}
		c.args = append(c.args, p.Value)
		return fmt.Sprintf("%s %s ?", col, p.Op), nil
	case query.TimeCompare:
		col, err := column(p.Field)
		if err != nil {
			return "", err
		}
		c.args = append(c.args, p.Value.UTC())
		return fmt.Sprintf("%s %s ?", col, p.Op), nil
	case query.FieldCompare:
		left, err := column(p.Left)
		if err != nil {
			return "", err
		}
		right, err := column(p.Right)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s %s", left, p.Op, right), nil
	case query.IsNull:
		col, err := column(p.Field)
		if err != nil {
			return "", err
		}
		return col + " IS NULL", nil
	case query.AnyIn:
		if len(p.Values) == 0 {
			return "1 = 0", nil
		}
		return c.exists(p.Field, "IN ?", p.Values)
	case query.ContainsFold:
		pattern := "%" + likeEscaper.Replace(strings.ToLower(p.Text)) + "%"
		if query.IsSetField(p.Field) {
			if _, ok := attributeKinds[p.Field]; !ok {
				return "", fmt.Errorf("substring match not supported on %s", p.Field)
			}
			return c.exists(p.Field, `LIKE ? ESCAPE '\'`, pattern)
		}
		col, err := column(p.Field)
		if err != nil {
			return "", err
		}
		c.args = append(c.args, pattern)
		return "LOWER(" + col + `) LIKE ? ESCAPE '\'`, nil
	case query.Never:
		return "1 = 0", nil
	}
	return "", fmt.Errorf("unsupported predicate %T", pred)
}

func (c *sqlCompiler) join(clauses []query.Predicate, sep, empty string) (string, error) {
	if len(clauses) == 0 {
		return empty, nil
	}
	parts := make([]string, 0, len(clauses))
	for _, clause := range clauses {
		sql, err := c.compile(clause)
		if err != nil {
			return "", err
		}
		parts = append(parts, sql)
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

// exists renders a correlated subquery over the row table backing a set field.
func (c *sqlCompiler) exists(field query.Field, cond string, arg any) (string, error) {
	if kind, ok := relationKinds[field]; ok {
		c.args = append(c.args, kind, arg)
		return "EXISTS (SELECT 1 FROM product_relations rel WHERE rel.product_id = products.id AND rel.kind = ? AND rel.ref_id " + cond + ")", nil
	}
	if kind, ok := attributeKinds[field]; ok {
		c.args = append(c.args, kind, arg)
		value := "attr.value"
		if strings.HasPrefix(cond, "LIKE") {
			value = "LOWER(attr.value)"
		}
		return "EXISTS (SELECT 1 FROM product_attributes attr WHERE attr.product_id = products.id AND attr.kind = ? AND " + value + " " + cond + ")", nil
	}
	return "", fmt.Errorf("%s is not a set field", field)
}

func column(f query.Field) (string, error) {
	col, ok := productColumns[f]
	if !ok {
		return "", fmt.Errorf("unknown product field %s", f)
	}
	return col, nil
}
