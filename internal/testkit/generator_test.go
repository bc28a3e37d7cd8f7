package testkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datastory/domain/table"
)

func TestGenerator_ShapeAndTypes(t *testing.T) {
	cfg := DefaultConfig()
	tbl, err := NewGenerator(cfg).Table()
	require.NoError(t, err)

	assert.Equal(t, cfg.Days*len(cfg.Regions), tbl.NumRows())
	assert.Equal(t, []string{"order_date", "region", "product", "sales", "units"}, tbl.ColumnNames())

	date, _ := tbl.Column("order_date")
	assert.Equal(t, table.TypeDatetime, date.Type)
	assert.Equal(t, cfg.Days, tbl.DistinctCount("order_date"))
	assert.Equal(t, len(cfg.Regions), tbl.DistinctCount("region"))
}

func TestGenerator_SeedDeterminism(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Days = 14

	a, err := NewGenerator(cfg).Table()
	require.NoError(t, err)
	b, err := NewGenerator(cfg).Table()
	require.NoError(t, err)

	af, err := a.Floats("sales")
	require.NoError(t, err)
	bf, err := b.Floats("sales")
	require.NoError(t, err)
	assert.Equal(t, af, bf)

	cfg.Seed = 7
	c, err := NewGenerator(cfg).Table()
	require.NoError(t, err)
	cf, err := c.Floats("sales")
	require.NoError(t, err)
	assert.NotEqual(t, af, cf)
}

func TestGenerator_TrendIsVisible(t *testing.T) {
	cfg := DefaultConfig()
	tbl, err := NewGenerator(cfg).Table()
	require.NoError(t, err)

	ys, err := tbl.Floats("sales")
	require.NoError(t, err)
	require.NotEmpty(t, ys)

	half := len(ys) / 2
	firstHalf, secondHalf := mean(ys[:half]), mean(ys[half:])
	assert.Greater(t, secondHalf, firstHalf)
}

func mean(xs []float64) float64 {
	total := 0.0
	for _, x := range xs {
		total += x
	}
	return total / float64(len(xs))
}
