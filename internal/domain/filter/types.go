// Package filter defines the specification object used to compose repository
// queries. Repositories translate Items into squirrel predicates exactly
// once; SQL is never assembled by string concatenation.
package filter

// ComparisonType defines the supported comparison operators.
type ComparisonType string

const (
	Equal          ComparisonType = "eq"
	NotEqual       ComparisonType = "neq"
	Less           ComparisonType = "lt"
	Greater        ComparisonType = "gt"
	LessOrEqual    ComparisonType = "lte"
	GreaterOrEqual ComparisonType = "gte"
	InList         ComparisonType = "in"
	NotInList      ComparisonType = "nin"
	Contains       ComparisonType = "contains"

	IsNull    ComparisonType = "null"
	IsNotNull ComparisonType = "not_null"
)

// Item represents a single selection criterion.
type Item struct {
	Field    string         `json:"field"`    // column name (snake_case)
	Operator ComparisonType `json:"operator"` // comparison kind
	Value    any            `json:"value"`    // scalar or list of values
}

// Spec is an ordered set of criteria combined with AND.
type Spec struct {
	Items []Item `json:"items"`

	// Sorting
	OrderBy   string `json:"orderBy,omitempty"`
	Ascending bool   `json:"ascending,omitempty"`

	// Pagination
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Where appends a criterion and returns the spec for chaining.
func (s *Spec) Where(field string, op ComparisonType, value any) *Spec {
	s.Items = append(s.Items, Item{Field: field, Operator: op, Value: value})
	return s
}
