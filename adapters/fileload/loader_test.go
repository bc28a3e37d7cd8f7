package fileload

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datastory/domain/table"
	"datastory/internal/cleaning"
)

func TestLoad_CSVTypeInference(t *testing.T) {
	csv := "city,sales,note\noslo,1200,ok\nbergen,\"3,400\",\ntromso,980,late\n"

	tbl, err := NewLoader().Load("sales.csv", strings.NewReader(csv))
	require.NoError(t, err)

	require.Equal(t, 3, tbl.NumColumns())
	assert.Equal(t, 3, tbl.NumRows())

	city, ok := tbl.Column("city")
	require.True(t, ok)
	assert.Equal(t, table.TypeText, city.Type)

	sales, ok := tbl.Column("sales")
	require.True(t, ok)
	assert.Equal(t, table.TypeNumeric, sales.Type)
	floats, err := tbl.Floats("sales")
	require.NoError(t, err)
	assert.Equal(t, []float64{1200, 3400, 980}, floats)

	note, ok := tbl.Column("note")
	require.True(t, ok)
	assert.Equal(t, table.TypeText, note.Type)
	assert.Equal(t, 1, tbl.MissingCount("note"))
}

func TestLoad_EmptyCellsBecomeMissing(t *testing.T) {
	csv := "a,b\n1,\n,2\n"

	tbl, err := NewLoader().Load("gaps.csv", strings.NewReader(csv))
	require.NoError(t, err)

	a, _ := tbl.Column("a")
	require.Len(t, a.Values, 2)
	assert.Equal(t, table.TypeNumeric, a.Type)
	assert.False(t, a.Values[0].Missing)
	assert.True(t, a.Values[1].Missing)
}

func TestLoad_NATokensBecomeMissing(t *testing.T) {
	csv := "city,sales\noslo,100\nbergen,NaN\ntromso,200\n"

	tbl, err := NewLoader().Load("sales.csv", strings.NewReader(csv))
	require.NoError(t, err)

	sales, ok := tbl.Column("sales")
	require.True(t, ok)
	assert.Equal(t, table.TypeNumeric, sales.Type)
	assert.Equal(t, 1, tbl.MissingCount("sales"))

	floats, err := tbl.Floats("sales")
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 200}, floats)
}

func TestLoad_NATokenVariants(t *testing.T) {
	csv := "v\nNA\nnull\nN/A\nNone\n7\n"

	tbl, err := NewLoader().Load("na.csv", strings.NewReader(csv))
	require.NoError(t, err)

	v, _ := tbl.Column("v")
	assert.Equal(t, table.TypeNumeric, v.Type)
	assert.Equal(t, 4, tbl.MissingCount("v"))
}

func TestLoad_NaNDoesNotPoisonCleaning(t *testing.T) {
	csv := "city,sales\noslo,100\nbergen,NaN\ntromso,200\n"

	raw, err := NewLoader().Load("sales.csv", strings.NewReader(csv))
	require.NoError(t, err)
	cleaned := cleaning.NewCleaner().Clean(raw)

	floats, err := cleaned.Floats("sales")
	require.NoError(t, err)
	require.Len(t, floats, 3)
	for _, f := range floats {
		assert.False(t, math.IsNaN(f))
	}

	// The gap imputes to the median of [100 200], then clipping lands on
	// the [p1, p99] band of [100 150 200].
	assert.InDelta(t, 101, floats[0], 1e-9)
	assert.InDelta(t, 150, floats[1], 1e-9)
	assert.InDelta(t, 199, floats[2], 1e-9)
}

func TestLoad_InfStaysTextual(t *testing.T) {
	csv := "v\n1\nInf\n3\n"

	tbl, err := NewLoader().Load("inf.csv", strings.NewReader(csv))
	require.NoError(t, err)

	v, _ := tbl.Column("v")
	assert.Equal(t, table.TypeText, v.Type)
}

func TestLoad_DuplicateHeadersSuffixed(t *testing.T) {
	csv := "a,a,b,a\n1,2,3,4\n"

	tbl, err := NewLoader().Load("dup.csv", strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "a.1", "b", "a.2"}, tbl.ColumnNames())
	floats, err := tbl.Floats("a.1")
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, floats)
}

func TestLoad_BlankHeaderGetsPlaceholderName(t *testing.T) {
	csv := "a,,c\n1,2,3\n"

	tbl, err := NewLoader().Load("headers.csv", strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "column_2", "c"}, tbl.ColumnNames())
}

func TestLoad_RaggedRowsPadWithMissing(t *testing.T) {
	csv := "a,b,c\n1,2,3\n4,5\n"

	tbl, err := NewLoader().Load("ragged.csv", strings.NewReader(csv))
	require.NoError(t, err)

	c, _ := tbl.Column("c")
	require.Len(t, c.Values, 2)
	assert.True(t, c.Values[1].Missing)
}

func TestLoad_HeaderOnlyFails(t *testing.T) {
	_, err := NewLoader().Load("empty.csv", strings.NewReader("a,b\n"))
	assert.Error(t, err)
}

func TestLoad_GarbageXLSXFails(t *testing.T) {
	_, err := NewLoader().Load("junk.xlsx", strings.NewReader("not a workbook"))
	assert.Error(t, err)
}

func TestExportCSV_RoundTrip(t *testing.T) {
	src := "city,sales\noslo,1200\nbergen,\ntromso,980\n"
	loader := NewLoader()

	tbl, err := loader.Load("sales.csv", strings.NewReader(src))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, tbl))
	assert.Equal(t, "city,sales\noslo,1200\nbergen,\ntromso,980\n", buf.String())

	// Reloading the export yields the same shape and values.
	again, err := loader.Load("sales.csv", bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, tbl.ColumnNames(), again.ColumnNames())
	assert.Equal(t, tbl.NumRows(), again.NumRows())

	first, err := tbl.Floats("sales")
	require.NoError(t, err)
	second, err := again.Floats("sales")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
