package cleaning

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datastory/domain/table"
)

func numbers(vals ...float64) []table.Value {
	out := make([]table.Value, len(vals))
	for i, v := range vals {
		out[i] = table.NewNumberValue(v)
	}
	return out
}

func strs(vals ...string) []table.Value {
	out := make([]table.Value, len(vals))
	for i, v := range vals {
		out[i] = table.NewStringValue(v)
	}
	return out
}

func buildTable(t *testing.T, cols ...table.Column) *table.Table {
	t.Helper()
	tbl, err := table.New(cols...)
	require.NoError(t, err)
	return tbl
}

func TestClean_DatetimeCoercion(t *testing.T) {
	tbl := buildTable(t,
		table.Column{Name: "order_date", Type: table.TypeText, Values: strs("2024-01-01", "2024-01-02", "2024-01-03")},
		table.Column{Name: "region", Type: table.TypeText, Values: strs("north", "south", "north")},
	)

	cleaned := NewCleaner().Clean(tbl)

	col, ok := cleaned.Column("order_date")
	require.True(t, ok)
	assert.Equal(t, table.TypeDatetime, col.Type)
	assert.Equal(t, "2024-01-01", col.Values[0].String())

	region, _ := cleaned.Column("region")
	assert.Equal(t, table.TypeCategorical, region.Type)
}

func TestClean_DatetimeCoercionIsAllOrNothing(t *testing.T) {
	tbl := buildTable(t,
		table.Column{Name: "ship_date", Type: table.TypeText, Values: strs("2024-01-01", "not a date", "2024-01-03")},
	)

	cleaned := NewCleaner().Clean(tbl)

	col, _ := cleaned.Column("ship_date")
	assert.NotEqual(t, table.TypeDatetime, col.Type, "one bad cell must leave the column unconverted")
	assert.Equal(t, "not a date", col.Values[1].String())
}

func TestClean_NumericNamedDateIsNotCoerced(t *testing.T) {
	tbl := buildTable(t,
		table.Column{Name: "date_code", Type: table.TypeNumeric, Values: numbers(20240101, 20240102, 20240103)},
	)

	cleaned := NewCleaner().Clean(tbl)
	col, _ := cleaned.Column("date_code")
	assert.Equal(t, table.TypeNumeric, col.Type)
}

func TestClean_ImputationCompleteness(t *testing.T) {
	amounts := numbers(10, 20, 30, 40)
	amounts = append(amounts, table.NewMissingValue())
	cities := strs("oslo", "oslo", "bergen")
	cities = append(cities, table.NewMissingValue(), table.NewMissingValue())

	tbl := buildTable(t,
		table.Column{Name: "amount", Type: table.TypeNumeric, Values: amounts},
		table.Column{Name: "city", Type: table.TypeText, Values: cities},
	)

	cleaned := NewCleaner().Clean(tbl)

	for _, name := range cleaned.ColumnNames() {
		assert.Zero(t, cleaned.MissingCount(name), "column %s still has gaps", name)
	}

	amount, _ := cleaned.Column("amount")
	assert.Equal(t, 25.0, amount.Values[4].Num, "numeric gaps take the median")

	city, _ := cleaned.Column("city")
	assert.Equal(t, "oslo", city.Values[3].Str, "categorical gaps take the mode")
}

func TestClean_CategoricalModeBreaksTiesLexicographically(t *testing.T) {
	vals := strs("b", "a", "b", "a")
	vals = append(vals, table.NewMissingValue())
	tbl := buildTable(t,
		table.Column{Name: "grade", Type: table.TypeText, Values: vals},
	)

	cleaned := NewCleaner().Clean(tbl)
	col, _ := cleaned.Column("grade")
	assert.Equal(t, "a", col.Values[4].Str)
}

func TestClean_AllMissingCategoricalBecomesUnknown(t *testing.T) {
	vals := []table.Value{table.NewMissingValue(), table.NewMissingValue()}
	tbl := buildTable(t,
		table.Column{Name: "notes", Type: table.TypeText, Values: vals},
	)

	cleaned := NewCleaner().Clean(tbl)
	col, _ := cleaned.Column("notes")
	assert.Equal(t, "Unknown", col.Values[0].Str)
	assert.Equal(t, "Unknown", col.Values[1].Str)
}

func TestClean_WinsorizationClipsOutlier(t *testing.T) {
	vals := make([]float64, 0, 99)
	for i := 1; i <= 98; i++ {
		vals = append(vals, float64(i))
	}
	vals = append(vals, 10000)

	tbl := buildTable(t,
		table.Column{Name: "revenue", Type: table.TypeNumeric, Values: numbers(vals...)},
	)

	meanBefore := mean(vals)
	cleaned := NewCleaner().Clean(tbl)
	after, err := cleaned.Floats("revenue")
	require.NoError(t, err)

	p1, _ := Quantile(vals, 0.01)
	p99, _ := Quantile(vals, 0.99)
	for _, v := range after {
		assert.GreaterOrEqual(t, v, p1)
		assert.LessOrEqual(t, v, p99)
	}
	assert.Less(t, mean(after), meanBefore, "clipping the outlier must pull the mean down")
	assert.Less(t, mean(after), 100.0)
}

func TestClean_WinsorizationSkipsDateLikeNumericColumns(t *testing.T) {
	tbl := buildTable(t,
		table.Column{Name: "year", Type: table.TypeNumeric, Values: numbers(1990, 2000, 2010, 2020, 2030)},
	)

	cleaned := NewCleaner().Clean(tbl)
	after, err := cleaned.Floats("year")
	require.NoError(t, err)
	assert.Equal(t, []float64{1990, 2000, 2010, 2020, 2030}, after)
}

func TestClean_Idempotence(t *testing.T) {
	// Edge values are repeated so the 1st/99th percentiles coincide with
	// the observed min/max and clipping is a no-op on the second pass.
	vals := make([]float64, 0, 100)
	for i := 0; i < 40; i++ {
		vals = append(vals, 10)
	}
	for i := 0; i < 20; i++ {
		vals = append(vals, 20)
	}
	for i := 0; i < 40; i++ {
		vals = append(vals, 30)
	}

	tbl := buildTable(t,
		table.Column{Name: "score", Type: table.TypeNumeric, Values: numbers(vals...)},
	)

	cleaner := NewCleaner()
	once := cleaner.Clean(tbl)
	twice := cleaner.Clean(once)

	a, _ := once.Floats("score")
	b, _ := twice.Floats("score")
	assert.Equal(t, a, b)
}

func TestClean_HighCardinalityColumnBecomesText(t *testing.T) {
	vals := make([]table.Value, 60)
	for i := range vals {
		vals[i] = table.NewStringValue(fmt.Sprintf("sku-%d", i))
	}
	tbl := buildTable(t,
		table.Column{Name: "sku", Type: table.TypeText, Values: vals},
	)

	cleaned := NewCleaner().Clean(tbl)
	col, _ := cleaned.Column("sku")
	assert.Equal(t, table.TypeText, col.Type)
}

func TestQuantile(t *testing.T) {
	data := []float64{1, 2, 3, 4}

	tests := []struct {
		p    float64
		want float64
	}{
		{0, 1},
		{0.25, 1.75},
		{0.5, 2.5},
		{0.75, 3.25},
		{1, 4},
	}
	for _, tt := range tests {
		got, ok := Quantile(data, tt.p)
		require.True(t, ok)
		assert.InDelta(t, tt.want, got, 1e-9, "p=%v", tt.p)
	}

	_, ok := Quantile(nil, 0.5)
	assert.False(t, ok)
	_, ok = Quantile(data, 1.5)
	assert.False(t, ok)
}

func mean(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	if len(vals) == 0 {
		return math.NaN()
	}
	return sum / float64(len(vals))
}
