// Package cleaning turns a raw parsed table into an analysis-ready one:
// datetime coercion, semantic typing, missing-value imputation and outlier
// clipping. Failures are column-local; a bad column never aborts the rest.
package cleaning

import (
	"log"
	"sort"
	"strings"
	"time"

	"datastory/domain/table"

	"github.com/montanaflynn/stats"
)

// categoricalCardinalityLimit separates categorical columns from free text.
// Columns at or above this many distinct values are typed as text and are
// not offered as filters.
const categoricalCardinalityLimit = 50

// dateLayouts are tried in order when coercing date-named columns.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"01/02/2006",
	"02.01.2006",
	"2006/01/02",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// Cleaner applies the cleaning pipeline.
type Cleaner struct{}

// NewCleaner creates a cleaner.
func NewCleaner() *Cleaner {
	return &Cleaner{}
}

// Clean runs the full pipeline on a copy of the raw table and returns the
// analysis-ready result. The input table is not modified.
func (c *Cleaner) Clean(raw *table.Table) *table.Table {
	cleaned := raw.Clone()

	c.coerceDatetimes(cleaned)
	c.classifyColumns(cleaned)
	c.imputeMissing(cleaned)
	c.winsorize(cleaned)

	return cleaned
}

// coerceDatetimes attempts to parse every column whose name contains "date"
// as timestamps. The conversion is all-or-nothing per column: one unparsable
// cell leaves the column unchanged, with no error surfaced.
func (c *Cleaner) coerceDatetimes(t *table.Table) {
	for _, col := range t.Columns() {
		if !strings.Contains(strings.ToLower(col.Name), "date") {
			continue
		}
		if col.Type == table.TypeNumeric {
			continue
		}
		converted, ok := parseDatetimeColumn(col.Values)
		if !ok {
			continue
		}
		if err := t.SetColumn(col.Name, table.TypeDatetime, converted); err != nil {
			log.Printf("[Cleaner] datetime coercion of %q not applied: %v", col.Name, err)
		}
	}
}

func parseDatetimeColumn(values []table.Value) ([]table.Value, bool) {
	out := make([]table.Value, len(values))
	sawAny := false
	for i, v := range values {
		if v.Missing {
			out[i] = table.NewMissingValue()
			continue
		}
		if v.Kind == table.KindTime {
			out[i] = v
			sawAny = true
			continue
		}
		ts, ok := parseDatetime(v.String())
		if !ok {
			return nil, false
		}
		out[i] = table.NewTimeValue(ts)
		sawAny = true
	}
	return out, sawAny
}

func parseDatetime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// classifyColumns partitions the remaining columns into numeric and
// categorical/text. String columns at or above the cardinality limit are
// typed as text so the filter engine skips them.
func (c *Cleaner) classifyColumns(t *table.Table) {
	for _, col := range t.Columns() {
		switch col.Type {
		case table.TypeDatetime, table.TypeNumeric:
			continue
		}
		typ := table.TypeCategorical
		if t.DistinctCount(col.Name) >= categoricalCardinalityLimit {
			typ = table.TypeText
		}
		if err := t.SetColumn(col.Name, typ, col.Values); err != nil {
			log.Printf("[Cleaner] classify %q failed: %v", col.Name, err)
		}
	}
}

// imputeMissing fills numeric gaps with the column median and categorical
// gaps with the column mode, falling back to "Unknown" when a categorical
// column has no observed values at all. Datetime columns are left alone.
func (c *Cleaner) imputeMissing(t *table.Table) {
	for _, col := range t.Columns() {
		if t.MissingCount(col.Name) == 0 {
			continue
		}
		switch col.Type {
		case table.TypeNumeric:
			c.imputeNumeric(t, col)
		case table.TypeCategorical, table.TypeText:
			c.imputeCategorical(t, col)
		}
	}
}

func (c *Cleaner) imputeNumeric(t *table.Table, col table.Column) {
	observed, err := t.Floats(col.Name)
	if err != nil || len(observed) == 0 {
		return
	}
	median, err := stats.Median(observed)
	if err != nil {
		log.Printf("[Cleaner] median of %q failed, column left as-is: %v", col.Name, err)
		return
	}
	filled := make([]table.Value, len(col.Values))
	for i, v := range col.Values {
		if v.Missing {
			filled[i] = table.NewNumberValue(median)
		} else {
			filled[i] = v
		}
	}
	t.SetColumn(col.Name, col.Type, filled)
}

func (c *Cleaner) imputeCategorical(t *table.Table, col table.Column) {
	mode := categoricalMode(col.Values)
	if mode == "" {
		mode = "Unknown"
	}
	filled := make([]table.Value, len(col.Values))
	for i, v := range col.Values {
		if v.Missing {
			filled[i] = table.NewStringValue(mode)
		} else {
			filled[i] = v
		}
	}
	t.SetColumn(col.Name, col.Type, filled)
}

// categoricalMode returns the most frequent non-missing value, breaking ties
// by lexicographic order. Empty string means no observed values.
func categoricalMode(values []table.Value) string {
	counts := make(map[string]int)
	for _, v := range values {
		if v.Missing {
			continue
		}
		counts[v.String()]++
	}
	if len(counts) == 0 {
		return ""
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	best := keys[0]
	for _, k := range keys[1:] {
		if counts[k] > counts[best] {
			best = k
		}
	}
	return best
}

// winsorize clips each numeric column to its [p1, p99] band. Columns whose
// names look date-like are skipped, and a column where the percentile
// computation fails is left unmodified.
func (c *Cleaner) winsorize(t *table.Table) {
	for _, col := range t.Columns() {
		if col.Type != table.TypeNumeric {
			continue
		}
		lower := strings.ToLower(col.Name)
		if strings.Contains(lower, "date") || strings.Contains(lower, "time") || strings.Contains(lower, "year") {
			continue
		}
		observed, err := t.Floats(col.Name)
		if err != nil || len(observed) == 0 {
			continue
		}
		p1, ok1 := Quantile(observed, 0.01)
		p99, ok99 := Quantile(observed, 0.99)
		if !ok1 || !ok99 {
			log.Printf("[Cleaner] percentiles of %q unavailable, skipping clip", col.Name)
			continue
		}
		clipped := make([]table.Value, len(col.Values))
		for i, v := range col.Values {
			if v.Missing {
				clipped[i] = v
				continue
			}
			n := v.Num
			if n < p1 {
				n = p1
			}
			if n > p99 {
				n = p99
			}
			clipped[i] = table.NewNumberValue(n)
		}
		t.SetColumn(col.Name, col.Type, clipped)
	}
}

// Quantile computes the p-quantile (0..1) with linear interpolation between
// the two nearest order statistics, matching the convention the rest of the
// pipeline assumes for quartiles and percentile bands.
func Quantile(data []float64, p float64) (float64, bool) {
	if len(data) == 0 || p < 0 || p > 1 {
		return 0, false
	}
	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	pos := p * float64(len(sorted)-1)
	lowerIdx := int(pos)
	upperIdx := lowerIdx
	if float64(lowerIdx) < pos {
		upperIdx = lowerIdx + 1
	}
	if upperIdx >= len(sorted) {
		upperIdx = len(sorted) - 1
	}
	fraction := pos - float64(lowerIdx)
	return sorted[lowerIdx] + fraction*(sorted[upperIdx]-sorted[lowerIdx]), true
}
