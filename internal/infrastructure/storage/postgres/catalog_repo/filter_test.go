package catalog_repo

import (
	"testing"

	"github.com/Masterminds/squirrel"

	"stockforge/internal/domain/filter"
)

func testSelect() squirrel.SelectBuilder {
	return squirrel.StatementBuilder.
		PlaceholderFormat(squirrel.Dollar).
		Select("id", "col1").
		From("test_table")
}

func TestApplyFilters_Operators(t *testing.T) {
	validCols := columnSet([]string{"id", "col1"})

	tests := []struct {
		name     string
		item     filter.Item
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "Equal",
			item:     filter.Item{Field: "col1", Operator: filter.Equal, Value: 10},
			wantSQL:  "SELECT id, col1 FROM test_table WHERE col1 = $1",
			wantArgs: []any{10},
		},
		{
			name:     "Greater",
			item:     filter.Item{Field: "col1", Operator: filter.Greater, Value: 10},
			wantSQL:  "SELECT id, col1 FROM test_table WHERE col1 > $1",
			wantArgs: []any{10},
		},
		{
			name:     "Less",
			item:     filter.Item{Field: "col1", Operator: filter.Less, Value: 5},
			wantSQL:  "SELECT id, col1 FROM test_table WHERE col1 < $1",
			wantArgs: []any{5},
		},
		{
			name:     "Contains",
			item:     filter.Item{Field: "col1", Operator: filter.Contains, Value: "bolt"},
			wantSQL:  "SELECT id, col1 FROM test_table WHERE col1 ILIKE $1",
			wantArgs: []any{"%bolt%"},
		},
		{
			name:     "IsNull",
			item:     filter.Item{Field: "col1", Operator: filter.IsNull},
			wantSQL:  "SELECT id, col1 FROM test_table WHERE col1 IS NULL",
			wantArgs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := filter.Spec{Items: []filter.Item{tt.item}}

			q, err := applyFilters(testSelect(), spec, validCols)
			if err != nil {
				t.Fatalf("applyFilters failed: %v", err)
			}

			sql, args, err := q.ToSql()
			if err != nil {
				t.Fatalf("ToSql failed: %v", err)
			}

			if sql != tt.wantSQL {
				t.Errorf("SQL mismatch\nwant: %s\ngot:  %s", tt.wantSQL, sql)
			}
			if len(args) != len(tt.wantArgs) {
				t.Fatalf("Args count mismatch\nwant: %d\ngot:  %d", len(tt.wantArgs), len(args))
			}
			if len(args) > 0 && args[0] != tt.wantArgs[0] {
				t.Errorf("Args mismatch\nwant: %v\ngot:  %v", tt.wantArgs[0], args[0])
			}
		})
	}
}

func TestApplyFilters_RejectsUnknownColumn(t *testing.T) {
	validCols := columnSet([]string{"id", "col1"})

	var spec filter.Spec
	spec.Where("nope; DROP TABLE test_table", filter.Equal, 1)

	if _, err := applyFilters(testSelect(), spec, validCols); err == nil {
		t.Fatal("expected error for unknown filter column")
	}

	spec = filter.Spec{OrderBy: "nope"}
	if _, err := applyFilters(testSelect(), spec, validCols); err == nil {
		t.Fatal("expected error for unknown order column")
	}
}

func TestApplyFilters_OrderAndPagination(t *testing.T) {
	validCols := columnSet([]string{"id", "col1"})

	spec := filter.Spec{OrderBy: "col1", Ascending: true, Limit: 20, Offset: 40}

	q, err := applyFilters(testSelect(), spec, validCols)
	if err != nil {
		t.Fatalf("applyFilters failed: %v", err)
	}

	sql, _, err := q.ToSql()
	if err != nil {
		t.Fatalf("ToSql failed: %v", err)
	}

	want := "SELECT id, col1 FROM test_table ORDER BY col1 ASC LIMIT 20 OFFSET 40"
	if sql != want {
		t.Errorf("SQL mismatch\nwant: %s\ngot:  %s", want, sql)
	}
}
