// Package insight turns a table plus a validated chart spec into a short
// natural-language narrative. Each chart kind pairs a statistics computation
// with a pure formatting step, so either half can be tested on its own.
package insight

import (
	"fmt"
	"log"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"datastory/domain/chart"
	"datastory/domain/table"
)

var prn = message.NewPrinter(language.English)

// apologyNarrative is returned whenever narrative generation fails for any
// reason. The caller never sees the underlying error.
const apologyNarrative = `### ⚠️ Chart Analysis

The system encountered a challenge generating detailed insights for this visualization.

**Possible reasons:**
- Complex data relationships
- Missing values in key fields
- Unexpected data structure

You can still examine the chart visually and check the detailed statistics section for more information.`

// Generator renders chart narratives.
type Generator struct{}

// NewGenerator creates a narrative generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Narrative produces the markdown narrative for a chart. It never returns an
// error: any failure degrades to a fixed fallback string.
func (g *Generator) Narrative(t *table.Table, spec chart.Spec) (out string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Insight] recovered while narrating %s chart: %v", spec.Kind, r)
			out = apologyNarrative
		}
	}()

	switch spec.Kind {
	case chart.KindBar:
		return g.barNarrative(t, spec)
	case chart.KindLine:
		return g.lineNarrative(t, spec)
	case chart.KindArea:
		s := g.lineNarrative(t, spec)
		s = strings.ReplaceAll(s, "Line Chart", "Area Chart")
		return strings.ReplaceAll(s, "📈", "📊")
	case chart.KindScatter:
		return g.scatterNarrative(t, spec)
	case chart.KindBubble:
		s := g.scatterNarrative(t, spec)
		s = strings.ReplaceAll(s, "Scatter Plot", "Bubble Plot")
		s = strings.ReplaceAll(s, "🔍", "⭕")
		return s + "\n\n*Note: The size of each bubble represents a third dimension in your data.*"
	case chart.KindHistogram:
		return g.histogramNarrative(t, spec)
	case chart.KindPie:
		return g.pieNarrative(t, spec)
	case chart.KindBox:
		return g.boxNarrative(t, spec)
	case chart.KindViolin:
		s := g.boxNarrative(t, spec)
		s = strings.ReplaceAll(s, "Box Plot", "Violin Plot")
		s = strings.ReplaceAll(s, "📦", "🎻")
		return s + "\n\n*Note: The violin shape shows the probability density of the data at different values.*"
	case chart.KindHeatmap:
		return heatmapNarrative(spec)
	default:
		return genericNarrative(t, spec)
	}
}

func (g *Generator) barNarrative(t *table.Table, spec chart.Spec) string {
	s, err := ComputeBarStats(t, spec)
	if err != nil {
		return fmt.Sprintf("This bar chart compares %s and %s.", spec.X, spec.Y)
	}
	return renderBar(spec, s)
}

func renderBar(spec chart.Spec, s BarStats) string {
	return fmt.Sprintf(`### 📊 Bar Chart Analysis: %s by %s

This visualization shows how %s varies across different %s categories.

**Key Findings:**
- **Highest Value:** %s stands out with %s
- **Lowest Value:** %s shows %s
- **Average Value:** %s across all %d categories
- **Range:** The difference between highest and lowest is %s

*Tip: Look for patterns in how the bars are distributed - are they evenly spread or clustered?*`,
		spec.Y, spec.X, spec.Y, spec.X,
		s.MaxCategory, fnum(s.MaxValue),
		s.MinCategory, fnum(s.MinValue),
		fnum(s.Average), s.Count,
		fnum(s.MaxValue-s.MinValue))
}

func (g *Generator) lineNarrative(t *table.Table, spec chart.Spec) string {
	s, err := ComputeLineStats(t, spec)
	if err != nil {
		return fmt.Sprintf("This line chart shows %s over %s.", spec.Y, spec.X)
	}
	return renderLine(spec, s)
}

func renderLine(spec chart.Spec, s LineStats) string {
	return fmt.Sprintf(`### 📈 Line Chart Trend Analysis: %s over Time

This visualization tracks how %s has changed from %s to %s.

**Key Insights:**
- **Overall Trend:** %s shows a %s trend (%+.1f%%)
- **Starting Value:** %s
- **Ending Value:** %s
- **Peak:** %s on %s
- **Lowest Point:** %s on %s

*Tip: Look for patterns like seasonality, sudden spikes or drops, and long-term trends.*`,
		spec.Y, spec.Y, s.AxisStart, s.AxisEnd,
		spec.Y, s.Trend, s.PercentChange,
		fnum(s.FirstValue), fnum(s.LastValue),
		fnum(s.PeakValue), s.PeakAt,
		fnum(s.TroughValue), s.TroughAt)
}

func (g *Generator) scatterNarrative(t *table.Table, spec chart.Spec) string {
	s, err := ComputeScatterStats(t, spec)
	if err != nil {
		return fmt.Sprintf("This scatter plot compares %s and %s.", spec.X, spec.Y)
	}
	return renderScatter(spec, s)
}

func renderScatter(spec chart.Spec, s ScatterStats) string {
	var interpretation string
	switch {
	case s.Strength == "strong":
		verb := "increase"
		if s.Direction == "negative" {
			verb = "decrease"
		}
		interpretation = fmt.Sprintf("As %s increases, %s tends to %s substantially.", spec.X, spec.Y, verb)
	case s.Strength == "moderate":
		verb := "increase"
		if s.Direction == "negative" {
			verb = "decrease"
		}
		interpretation = fmt.Sprintf("As %s increases, %s tends to %s somewhat.", spec.X, spec.Y, verb)
	default:
		interpretation = fmt.Sprintf("There doesn't appear to be a clear pattern between %s and %s.", spec.X, spec.Y)
	}

	return fmt.Sprintf(`### 🔍 Scatter Plot Relationship Analysis

This visualization explores the relationship between %s and %s across %d data points.

**What the Data Shows:**
- **Correlation Strength:** %s (%.2f)
- **Direction:** %s relationship
- **Interpretation:** %s

*Tip: Look for clusters, outliers, and whether points follow a pattern or are randomly scattered.*`,
		spec.X, spec.Y, s.Count,
		capitalize(s.Strength), s.Correlation,
		capitalize(s.Direction), interpretation)
}

func (g *Generator) histogramNarrative(t *table.Table, spec chart.Spec) string {
	s, err := ComputeHistogramStats(t, spec.X)
	if err != nil {
		return fmt.Sprintf("This histogram shows the distribution of %s.", spec.X)
	}
	return renderHistogram(spec, s)
}

func renderHistogram(spec chart.Spec, s HistogramStats) string {
	return fmt.Sprintf(`### 📊 Histogram Distribution Analysis: %s

This visualization shows how %s values are distributed across your dataset.

**Distribution Insights:**
- **Central Tendency:** Average = %s, Median = %s
- **Spread:** Standard deviation = %s
- **Range:** From %s to %s
- **Shape:** The distribution appears to be %s

*Tip: Compare the mean and median values - a large difference often indicates skewed data with outliers.*`,
		spec.X, spec.X,
		fnum(s.Mean), fnum(s.Median),
		fnum(s.StdDev),
		fnum(s.Min), fnum(s.Max),
		s.Shape)
}

func (g *Generator) pieNarrative(t *table.Table, spec chart.Spec) string {
	s, err := ComputePieStats(t, spec)
	if err != nil {
		return fmt.Sprintf("This pie chart shows %s by %s.", spec.Y, spec.X)
	}
	return renderPie(spec, s)
}

func renderPie(spec chart.Spec, s PieStats) string {
	return fmt.Sprintf(`### 🥧 Pie Chart Composition Analysis

This visualization breaks down %s across different %s categories.

**Composition Highlights:**
- **Total Value:** %s
- **Dominant Category:** %s represents %.1f%% of the total
- **Smallest Category:** %s accounts for only %.1f%%
- **Concentration:** The top %d categories make up %.1f%% of the total
- **Diversity:** Data spread across %d distinct categories

*Tip: Focus on the largest segments first, and consider grouping very small segments for clearer insights.*`,
		spec.Y, spec.X,
		fnum(s.Total),
		s.MaxCategory, s.MaxPercent,
		s.MinCategory, s.MinPercent,
		s.TopCount, s.TopShare,
		s.CategoryCount)
}

func (g *Generator) boxNarrative(t *table.Table, spec chart.Spec) string {
	s, err := ComputeBoxStats(t, spec.Y)
	if err != nil {
		return fmt.Sprintf("This box plot shows the distribution of %s.", spec.Y)
	}
	return renderBox(spec, s)
}

func renderBox(spec chart.Spec, s BoxStats) string {
	return fmt.Sprintf(`### 📦 Box Plot Distribution Analysis

This visualization shows the statistical distribution of %s values.

**Distribution Breakdown:**
- **Middle Value (Median):** %s
- **Middle 50%% Range:** From %s (25th percentile) to %s (75th percentile)
- **Spread Assessment:** The data is %s with an interquartile range of %s
- **Range Without Outliers:** From %s to %s
- **Potential Outliers:** %d data points fall outside the expected range

*Tip: Look at the box size (middle 50%% of data) and position of the median line to understand data concentration and skew.*`,
		spec.Y,
		fnum(s.Median),
		fnum(s.Q1), fnum(s.Q3),
		s.Spread, fnum(s.IQR),
		fnum(s.LowerWhisker), fnum(s.UpperWhisker),
		s.OutlierCount)
}

func heatmapNarrative(spec chart.Spec) string {
	return fmt.Sprintf(`### 🔥 Heatmap Pattern Analysis

This visualization shows the relationship intensity between %s and %s.

**What to Look For:**
- **Dark Areas:** Represent higher values or stronger relationships
- **Light Areas:** Represent lower values or weaker relationships
- **Patterns:** Look for clusters, gradients, or symmetry that might indicate underlying structure
- **Outliers:** Isolated cells with notably different colors from their neighbors

*Tip: Heatmaps are excellent for spotting patterns that might not be obvious in other chart types.*`,
		spec.X, spec.Y)
}

func genericNarrative(t *table.Table, spec chart.Spec) string {
	axis := "frequency"
	variables := spec.X
	if spec.HasY() {
		axis = spec.Y
		variables = fmt.Sprintf("%s and %s", spec.X, spec.Y)
	}
	title := capitalize(string(spec.Kind))
	return fmt.Sprintf(`### 📊 Chart Analysis: %s

This visualization compares %s and %s.

**Quick Data Overview:**
- **Data Points:** %d
- **Variables:** %s
- **Chart Type:** %s

*Note: Explore the detailed statistics section below for more insights.*`,
		title, spec.X, axis, t.NumRows(), variables, title)
}

// fnum formats a float with thousands grouping and two decimals.
func fnum(v float64) string {
	return prn.Sprintf("%.2f", v)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
