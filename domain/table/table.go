// Package table defines the in-memory tabular model shared by the whole
// pipeline: an ordered set of named, typed columns with a uniform row count.
package table

import (
	"fmt"
)

// ColumnType is the semantic type inferred for a column.
type ColumnType string

const (
	// TypeNumeric covers integer and float columns.
	TypeNumeric ColumnType = "numeric"
	// TypeDatetime covers columns coerced to timestamps.
	TypeDatetime ColumnType = "datetime"
	// TypeCategorical covers low-cardinality string columns.
	TypeCategorical ColumnType = "categorical"
	// TypeText covers high-cardinality string columns. Text columns behave
	// like categorical ones everywhere except filter rendering.
	TypeText ColumnType = "text"
)

// Column is a named, typed slice of cells.
type Column struct {
	Name   string
	Type   ColumnType
	Values []Value
}

// Table is an ordered set of columns with equal row counts and unique names.
type Table struct {
	columns []Column
	byName  map[string]int
}

// New builds a table from columns, validating the structural invariants.
func New(columns ...Column) (*Table, error) {
	t := &Table{byName: make(map[string]int, len(columns))}
	for _, col := range columns {
		if err := t.AppendColumn(col); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// AppendColumn adds a column, enforcing unique names and a uniform row count.
func (t *Table) AppendColumn(col Column) error {
	if col.Name == "" {
		return fmt.Errorf("column name must not be empty")
	}
	if _, exists := t.byName[col.Name]; exists {
		return fmt.Errorf("duplicate column name %q", col.Name)
	}
	if len(t.columns) > 0 && len(col.Values) != t.NumRows() {
		return fmt.Errorf("column %q has %d rows, table has %d", col.Name, len(col.Values), t.NumRows())
	}
	t.byName[col.Name] = len(t.columns)
	t.columns = append(t.columns, col)
	return nil
}

// NumRows returns the row count shared by all columns.
func (t *Table) NumRows() int {
	if len(t.columns) == 0 {
		return 0
	}
	return len(t.columns[0].Values)
}

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int {
	return len(t.columns)
}

// Columns returns the columns in order.
func (t *Table) Columns() []Column {
	return t.columns
}

// ColumnNames returns the names in column order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the column with the given name.
func (t *Table) Column(name string) (Column, bool) {
	idx, ok := t.byName[name]
	if !ok {
		return Column{}, false
	}
	return t.columns[idx], true
}

// HasColumn reports whether a column with the given name exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.byName[name]
	return ok
}

// SetColumn replaces an existing column's type and values in place.
func (t *Table) SetColumn(name string, typ ColumnType, values []Value) error {
	idx, ok := t.byName[name]
	if !ok {
		return fmt.Errorf("unknown column %q", name)
	}
	if len(values) != t.NumRows() {
		return fmt.Errorf("column %q replacement has %d rows, table has %d", name, len(values), t.NumRows())
	}
	t.columns[idx].Type = typ
	t.columns[idx].Values = values
	return nil
}

// ColumnsOfType returns the names of all columns with the given type, in order.
func (t *Table) ColumnsOfType(types ...ColumnType) []string {
	var names []string
	for _, c := range t.columns {
		for _, typ := range types {
			if c.Type == typ {
				names = append(names, c.Name)
				break
			}
		}
	}
	return names
}

// SelectRows builds a new table containing only the rows at the given
// indices, preserving column order and types.
func (t *Table) SelectRows(indices []int) *Table {
	out := &Table{byName: make(map[string]int, len(t.columns))}
	for _, col := range t.columns {
		values := make([]Value, 0, len(indices))
		for _, idx := range indices {
			values = append(values, col.Values[idx])
		}
		out.byName[col.Name] = len(out.columns)
		out.columns = append(out.columns, Column{Name: col.Name, Type: col.Type, Values: values})
	}
	return out
}

// Clone performs a deep copy of the table.
func (t *Table) Clone() *Table {
	out := &Table{byName: make(map[string]int, len(t.columns))}
	for _, col := range t.columns {
		values := make([]Value, len(col.Values))
		copy(values, col.Values)
		out.byName[col.Name] = len(out.columns)
		out.columns = append(out.columns, Column{Name: col.Name, Type: col.Type, Values: values})
	}
	return out
}

// Floats returns the non-missing numeric values of a column in row order.
func (t *Table) Floats(name string) ([]float64, error) {
	col, ok := t.Column(name)
	if !ok {
		return nil, fmt.Errorf("unknown column %q", name)
	}
	if col.Type != TypeNumeric {
		return nil, fmt.Errorf("column %q is %s, not numeric", name, col.Type)
	}
	out := make([]float64, 0, len(col.Values))
	for _, v := range col.Values {
		if v.Missing {
			continue
		}
		out = append(out, v.Num)
	}
	return out, nil
}

// DistinctCount returns the number of distinct non-missing values in a column.
func (t *Table) DistinctCount(name string) int {
	col, ok := t.Column(name)
	if !ok {
		return 0
	}
	seen := make(map[string]struct{})
	for _, v := range col.Values {
		if v.Missing {
			continue
		}
		seen[v.String()] = struct{}{}
	}
	return len(seen)
}

// DistinctValues returns the distinct non-missing rendered values of a
// column in first-seen order.
func (t *Table) DistinctValues(name string) []string {
	col, ok := t.Column(name)
	if !ok {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, v := range col.Values {
		if v.Missing {
			continue
		}
		s := v.String()
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// MissingCount returns the number of missing cells in a column.
func (t *Table) MissingCount(name string) int {
	col, ok := t.Column(name)
	if !ok {
		return 0
	}
	count := 0
	for _, v := range col.Values {
		if v.Missing {
			count++
		}
	}
	return count
}
