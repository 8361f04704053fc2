// Package catalog_repo provides PostgreSQL implementations for the product
// and warehouse catalogs.
package catalog_repo

import (
	"fmt"

	"github.com/Masterminds/squirrel"

	"stockforge/internal/domain/filter"
)

// applyFilters translates a filter spec into squirrel predicates. Columns
// are whitelisted; an unknown field is an error, not an injection vector.
func applyFilters(q squirrel.SelectBuilder, spec filter.Spec, validCols map[string]bool) (squirrel.SelectBuilder, error) {
	for _, item := range spec.Items {
		if !validCols[item.Field] {
			return q, fmt.Errorf("invalid filter column: %s", item.Field)
		}

		switch item.Operator {
		case filter.Equal:
			q = q.Where(squirrel.Eq{item.Field: item.Value})
		case filter.NotEqual:
			q = q.Where(squirrel.NotEq{item.Field: item.Value})
		case filter.Less:
			q = q.Where(squirrel.Lt{item.Field: item.Value})
		case filter.Greater:
			q = q.Where(squirrel.Gt{item.Field: item.Value})
		case filter.LessOrEqual:
			q = q.Where(squirrel.LtOrEq{item.Field: item.Value})
		case filter.GreaterOrEqual:
			q = q.Where(squirrel.GtOrEq{item.Field: item.Value})
		case filter.InList:
			q = q.Where(squirrel.Eq{item.Field: item.Value})
		case filter.NotInList:
			q = q.Where(squirrel.NotEq{item.Field: item.Value})
		case filter.IsNull:
			q = q.Where(squirrel.Eq{item.Field: nil})
		case filter.IsNotNull:
			q = q.Where(squirrel.NotEq{item.Field: nil})
		case filter.Contains:
			val := fmt.Sprintf("%%%v%%", item.Value)
			q = q.Where(squirrel.ILike{item.Field: val})
		default:
			return q, fmt.Errorf("unsupported filter operator: %s", item.Operator)
		}
	}

	if spec.OrderBy != "" {
		if !validCols[spec.OrderBy] {
			return q, fmt.Errorf("invalid order column: %s", spec.OrderBy)
		}
		dir := "DESC"
		if spec.Ascending {
			dir = "ASC"
		}
		q = q.OrderBy(spec.OrderBy + " " + dir)
	}
	if spec.Limit > 0 {
		q = q.Limit(uint64(spec.Limit))
	}
	if spec.Offset > 0 {
		q = q.Offset(uint64(spec.Offset))
	}

	return q, nil
}

func columnSet(cols []string) map[string]bool {
	set := make(map[string]bool, len(cols))
	for _, c := range cols {
		set[c] = true
	}
	return set
}
