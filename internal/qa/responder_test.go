package qa

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datastory/domain/chart"
	"datastory/domain/table"
)

func qaTable(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.New(
		table.Column{Name: "region", Type: table.TypeCategorical, Values: []table.Value{
			table.NewStringValue("north"), table.NewStringValue("south"),
			table.NewStringValue("east"), table.NewStringValue("west"),
		}},
		table.Column{Name: "sales", Type: table.TypeNumeric, Values: []table.Value{
			table.NewNumberValue(100), table.NewNumberValue(200),
			table.NewNumberValue(300), table.NewNumberValue(400),
		}},
	)
	require.NoError(t, err)
	return tbl
}

func barSpec() chart.Spec {
	return chart.Spec{Kind: chart.KindBar, X: "region", Y: "sales"}
}

func TestAnswer_AverageQuestionHitsCentralTendency(t *testing.T) {
	out := NewResponder().Answer(qaTable(t), barSpec(), "what's the average?")

	// "what" also matches the general-insight keywords, but central
	// tendency has priority.
	assert.Contains(t, out, "The average (mean) is 250.00")
	assert.Contains(t, out, "The middle value (median) is 250.00")
	assert.Contains(t, out, "The most common value is 100.00")
	assert.Contains(t, out, "68%")
}

func TestAnswer_ExtremesQuestion(t *testing.T) {
	out := NewResponder().Answer(qaTable(t), barSpec(), "Which region is the highest?")

	assert.Contains(t, out, "400.00")
	assert.Contains(t, out, "west")
	assert.Contains(t, out, "100.00")
	assert.Contains(t, out, "north")
	assert.Contains(t, out, "60.0% above the average")
	assert.Contains(t, out, "60.0% below the average")
}

func TestAnswer_CompareQuestion(t *testing.T) {
	out := NewResponder().Answer(qaTable(t), barSpec(), "compare the regions")

	assert.Contains(t, out, "Top performers:")
	assert.Contains(t, out, "Lower performers:")
	assert.Contains(t, out, "west: 400.00 (40.0% of total)")
	assert.Contains(t, out, "The average across all categories is 250.00.")
}

func TestAnswer_CompareWithoutYGivesGuidance(t *testing.T) {
	spec := chart.Spec{Kind: chart.KindHistogram, X: "sales"}
	out := NewResponder().Answer(qaTable(t), spec, "compare values")
	assert.Equal(t, "I can only compare values when there's both an X and Y axis in the chart.", out)
}

func TestAnswer_TrendOnLineChart(t *testing.T) {
	days := []table.Value{
		table.NewTimeValue(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		table.NewTimeValue(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)),
		table.NewTimeValue(time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)),
	}
	tbl, err := table.New(
		table.Column{Name: "day", Type: table.TypeDatetime, Values: days},
		table.Column{Name: "sales", Type: table.TypeNumeric, Values: []table.Value{
			table.NewNumberValue(100), table.NewNumberValue(105), table.NewNumberValue(110),
		}},
	)
	require.NoError(t, err)

	out := NewResponder().Answer(tbl, chart.Spec{Kind: chart.KindLine, X: "day", Y: "sales"}, "what's the trend?")

	assert.Contains(t, out, "increased")
	assert.Contains(t, out, "10.0%")
	assert.Contains(t, out, "low volatility")
}

func TestAnswer_TrendOnBarChartFallsBackToGeneral(t *testing.T) {
	out := NewResponder().Answer(qaTable(t), barSpec(), "any patterns here?")
	assert.Contains(t, out, "Let me explain what I see in this chart")
}

func TestAnswer_DistributionQuestion(t *testing.T) {
	out := NewResponder().Answer(qaTable(t), barSpec(), "how is the spread?")

	assert.Contains(t, out, "25% of values fall below 175.00")
	assert.Contains(t, out, "The middle value (median) is 250.00")
	assert.Contains(t, out, "75% of values fall below 325.00")
	assert.Contains(t, out, "moderately spread")
}

func TestAnswer_DefaultIsGeneralInsight(t *testing.T) {
	out := NewResponder().Answer(qaTable(t), barSpec(), "hmm")

	assert.Contains(t, out, "4 different regions")
	assert.Contains(t, out, "The total sales is 1,000.00")
	assert.Contains(t, out, "Would you like me to:")
}

func TestAnswer_GeneralWithoutY(t *testing.T) {
	spec := chart.Spec{Kind: chart.KindHistogram, X: "region"}
	out := NewResponder().Answer(qaTable(t), spec, "describe this")

	assert.Contains(t, out, "distribution of region")
	assert.Contains(t, out, "4 total data points")
	assert.Contains(t, out, "4 unique values")
}

func TestAnswer_NeverPanics(t *testing.T) {
	empty, err := table.New()
	require.NoError(t, err)

	out := NewResponder().Answer(empty, chart.Spec{Kind: chart.KindBar, X: "a", Y: "b"}, "average?")
	assert.NotEmpty(t, out)
}
