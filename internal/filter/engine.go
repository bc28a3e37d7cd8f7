// Package filter derives per-column filter domains from a cleaned table and
// applies user-chosen constraints to produce a filtered view. Filtering
// always starts from the unfiltered cleaned table, so there is no destructive
// compounding and "reset" is implicit.
package filter

import (
	"time"

	"datastory/domain/table"
)

// categoricalFilterLimit caps how many distinct values a categorical column
// may have before its filter is suppressed entirely.
const categoricalFilterLimit = 50

// Domain describes the selectable range or value set of one column.
type Domain struct {
	Column string   `json:"column"`
	Type   string   `json:"type"`
	Min    float64  `json:"min,omitempty"`
	Max    float64  `json:"max,omitempty"`
	Start  string   `json:"start,omitempty"`
	End    string   `json:"end,omitempty"`
	Values []string `json:"values,omitempty"`
}

// Spec is one active constraint on a column. Exactly one of the three
// constraint shapes is used, matching the column's type.
type Spec struct {
	Column string `json:"column"`

	// Numeric range, inclusive on both ends.
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`

	// Datetime range, inclusive. An incomplete range (only one endpoint)
	// leaves the column unfiltered.
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`

	// Permitted categorical values.
	Values []string `json:"values,omitempty"`
}

// Result reports the outcome of applying a filter set.
type Result struct {
	Table            *table.Table `json:"-"`
	OriginalRowCount int          `json:"original_row_count"`
	FilteredRowCount int          `json:"filtered_row_count"`
	RemovedRowCount  int          `json:"removed_row_count"`
}

// Engine derives domains and applies filters.
type Engine struct{}

// NewEngine creates a filter engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Domains returns the filterable domain of every eligible column, in column
// order. Text columns and categorical columns at or above the cardinality
// limit are not exposed.
func (e *Engine) Domains(t *table.Table) []Domain {
	var domains []Domain
	for _, col := range t.Columns() {
		switch col.Type {
		case table.TypeDatetime:
			min, max, ok := datetimeBounds(col.Values)
			if !ok {
				continue
			}
			domains = append(domains, Domain{
				Column: col.Name,
				Type:   string(table.TypeDatetime),
				Start:  min.Format("2006-01-02"),
				End:    max.Format("2006-01-02"),
			})
		case table.TypeNumeric:
			min, max, ok := numericBounds(col.Values)
			if !ok {
				continue
			}
			domains = append(domains, Domain{
				Column: col.Name,
				Type:   string(table.TypeNumeric),
				Min:    min,
				Max:    max,
			})
		case table.TypeCategorical:
			values := t.DistinctValues(col.Name)
			if len(values) >= categoricalFilterLimit {
				continue
			}
			domains = append(domains, Domain{
				Column: col.Name,
				Type:   string(table.TypeCategorical),
				Values: values,
			})
		}
	}
	return domains
}

// Apply returns the subset of rows passing every active filter, along with
// row accounting. Unknown columns and constraint shapes that do not match
// the column type impose no constraint.
func (e *Engine) Apply(t *table.Table, specs []Spec) Result {
	active := make([]rowPredicate, 0, len(specs))
	for _, spec := range specs {
		if pred := compile(t, spec); pred != nil {
			active = append(active, pred)
		}
	}

	total := t.NumRows()
	indices := make([]int, 0, total)
	for row := 0; row < total; row++ {
		pass := true
		for _, pred := range active {
			if !pred(row) {
				pass = false
				break
			}
		}
		if pass {
			indices = append(indices, row)
		}
	}

	filtered := t.SelectRows(indices)
	return Result{
		Table:            filtered,
		OriginalRowCount: total,
		FilteredRowCount: len(indices),
		RemovedRowCount:  total - len(indices),
	}
}

type rowPredicate func(row int) bool

// compile turns a spec into a row predicate, or nil when the spec imposes no
// constraint (unknown column, incomplete date range, shape mismatch).
func compile(t *table.Table, spec Spec) rowPredicate {
	col, ok := t.Column(spec.Column)
	if !ok {
		return nil
	}
	switch col.Type {
	case table.TypeNumeric:
		if spec.Min == nil && spec.Max == nil {
			return nil
		}
		return func(row int) bool {
			v := col.Values[row]
			if v.Missing {
				return false
			}
			if spec.Min != nil && v.Num < *spec.Min {
				return false
			}
			if spec.Max != nil && v.Num > *spec.Max {
				return false
			}
			return true
		}
	case table.TypeDatetime:
		// Both endpoints are required before the filter engages.
		if spec.Start == nil || spec.End == nil {
			return nil
		}
		start, end := *spec.Start, *spec.End
		return func(row int) bool {
			v := col.Values[row]
			if v.Missing {
				return false
			}
			return !v.Time.Before(start) && !v.Time.After(end)
		}
	case table.TypeCategorical:
		if spec.Values == nil {
			return nil
		}
		allowed := make(map[string]struct{}, len(spec.Values))
		for _, val := range spec.Values {
			allowed[val] = struct{}{}
		}
		return func(row int) bool {
			v := col.Values[row]
			if v.Missing {
				return false
			}
			_, ok := allowed[v.String()]
			return ok
		}
	}
	return nil
}

func numericBounds(values []table.Value) (min, max float64, ok bool) {
	for _, v := range values {
		if v.Missing {
			continue
		}
		if !ok {
			min, max, ok = v.Num, v.Num, true
			continue
		}
		if v.Num < min {
			min = v.Num
		}
		if v.Num > max {
			max = v.Num
		}
	}
	return min, max, ok
}

func datetimeBounds(values []table.Value) (min, max time.Time, ok bool) {
	for _, v := range values {
		if v.Missing {
			continue
		}
		if !ok {
			min, max, ok = v.Time, v.Time, true
			continue
		}
		if v.Time.Before(min) {
			min = v.Time
		}
		if v.Time.After(max) {
			max = v.Time
		}
	}
	return min, max, ok
}
