// Package qa answers free-text questions about a chart. Questions are
// classified by keyword match against an ordered rule list; the first rule
// whose predicate fires owns the answer.
package qa

import (
	"fmt"
	"log"
	"math"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"datastory/domain/chart"
	"datastory/domain/table"
	"datastory/internal/cleaning"
	"datastory/internal/insight"
)

const apologyAnswer = "I apologize, but I couldn't analyze that aspect of the chart. Please try asking in a different way."

// Responder answers questions in the context of a table and chart spec.
type Responder struct {
	rules []rule
}

type rule struct {
	keywords []string
	handle   func(*Responder, *table.Table, chart.Spec) string
}

// NewResponder creates a responder with the standard rule order: trends,
// comparisons, extremes, distribution, central tendency, general insights.
func NewResponder() *Responder {
	r := &Responder{}
	r.rules = []rule{
		{[]string{"trend", "pattern", "change"}, (*Responder).analyzeTrends},
		{[]string{"compare", "difference", "versus", "vs"}, (*Responder).compareValues},
		{[]string{"highest", "lowest", "maximum", "minimum", "peak", "top", "bottom"}, (*Responder).findExtremes},
		{[]string{"distribution", "spread", "range", "variation"}, (*Responder).analyzeDistribution},
		{[]string{"average", "mean", "median", "typical"}, (*Responder).centralTendency},
		{[]string{"insight", "tell", "what", "explain", "describe"}, (*Responder).generalInsights},
	}
	return r
}

// Answer classifies the question and produces a prose reply. It never
// returns an error: internal failures degrade to a canned apology.
func (r *Responder) Answer(t *table.Table, spec chart.Spec, question string) (out string) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[QA] recovered while answering %q: %v", question, rec)
			out = apologyAnswer
		}
	}()

	q := strings.ToLower(strings.TrimSpace(question))
	for _, rule := range r.rules {
		if containsAny(q, rule.keywords) {
			return rule.handle(r, t, spec)
		}
	}
	return r.generalInsights(t, spec)
}

func containsAny(q string, words []string) bool {
	for _, w := range words {
		if strings.Contains(q, w) {
			return true
		}
	}
	return false
}

func (r *Responder) analyzeTrends(t *table.Table, spec chart.Spec) string {
	if spec.Kind != chart.KindLine && spec.Kind != chart.KindArea {
		return r.generalInsights(t, spec)
	}
	ys, err := t.Floats(spec.Y)
	if err != nil || len(ys) == 0 {
		return r.generalInsights(t, spec)
	}

	first, last := ys[0], ys[len(ys)-1]
	if first == 0 {
		return apologyAnswer
	}
	change := ((last - first) / first) * 100

	mean, _ := stats.Mean(ys)
	sd, _ := stats.StandardDeviationSample(ys)
	if mean == 0 {
		return apologyAnswer
	}
	volatility := (sd / mean) * 100

	direction := "increased"
	if change <= 0 {
		direction = "decreased"
	}

	level, character, advice := "low", "relatively stable behavior", "The pattern appears fairly predictable and manageable."
	switch {
	case volatility > 25:
		level, character = "high", "significant fluctuations"
		advice = "You might want to investigate the factors causing the large swings in values."
	case volatility > 10:
		level, character = "moderate", "some variation"
		advice = "There is a moderate level of variability that might need monitoring."
	}

	return fmt.Sprintf(`Looking at the trend over time, I notice that %s has %s by approximately %.1f%% from %s to %s.

The data shows %s volatility (%.1f%% relative to the mean), which suggests %s over this period.

%s`,
		spec.Y, direction, math.Abs(change), fnum(first), fnum(last),
		level, volatility, character, advice)
}

func (r *Responder) compareValues(t *table.Table, spec chart.Spec) string {
	if !spec.HasY() {
		return "I can only compare values when there's both an X and Y axis in the chart."
	}
	groups, err := groupMeans(t, spec.X, spec.Y)
	if err != nil || len(groups) == 0 {
		return apologyAnswer
	}

	ys, err := t.Floats(spec.Y)
	if err != nil {
		return apologyAnswer
	}
	total := 0.0
	for _, v := range ys {
		total += v
	}
	if total == 0 {
		return apologyAnswer
	}

	sort.SliceStable(groups, func(i, j int) bool { return groups[i].mean > groups[j].mean })
	top := groups[:min(3, len(groups))]

	bottom := make([]groupStat, len(groups))
	copy(bottom, groups)
	sort.SliceStable(bottom, func(i, j int) bool { return bottom[i].mean < bottom[j].mean })
	bottom = bottom[:min(3, len(bottom))]

	var b strings.Builder
	b.WriteString("Let me break down the comparison for you:\n\nTop performers:\n")
	for _, g := range top {
		share := g.mean * float64(g.count) / total * 100
		fmt.Fprintf(&b, "• %s: %s (%.1f%% of total)\n", g.label, fnum(g.mean), share)
	}
	b.WriteString("\nLower performers:\n")
	for _, g := range bottom {
		share := g.mean * float64(g.count) / total * 100
		fmt.Fprintf(&b, "• %s: %s (%.1f%% of total)\n", g.label, fnum(g.mean), share)
	}

	avg, _ := stats.Mean(ys)
	fmt.Fprintf(&b, "\nThe average across all categories is %s.", fnum(avg))
	return b.String()
}

func (r *Responder) findExtremes(t *table.Table, spec chart.Spec) string {
	if !spec.HasY() {
		return "I can only analyze extreme values when there's both an X and Y axis in the chart."
	}
	ys, err := t.Floats(spec.Y)
	if err != nil || len(ys) == 0 {
		return apologyAnswer
	}
	xCol, ok := t.Column(spec.X)
	if !ok {
		return apologyAnswer
	}

	maxVal, _ := stats.Max(ys)
	minVal, _ := stats.Min(ys)
	avg, _ := stats.Mean(ys)
	if avg == 0 {
		return apologyAnswer
	}

	maxDiff := (maxVal - avg) / avg * 100
	minDiff := (avg - minVal) / avg * 100

	verdict := "There is a moderate spread between the highest and lowest values."
	switch {
	case maxDiff+minDiff > 100:
		verdict = "The difference between the highest and lowest points is quite significant."
	case maxDiff+minDiff < 50:
		verdict = "The values are relatively consistent across the dataset."
	}

	return fmt.Sprintf(`Let me point out the notable extremes in the data:

Highest Point:
• %s: %s
• %s: %s
• This is %.1f%% above the average

Lowest Point:
• %s: %s
• %s: %s
• This is %.1f%% below the average

%s`,
		spec.Y, fnum(maxVal), spec.X, labelFor(t, xCol, spec.Y, maxVal), maxDiff,
		spec.Y, fnum(minVal), spec.X, labelFor(t, xCol, spec.Y, minVal), minDiff,
		verdict)
}

func (r *Responder) analyzeDistribution(t *table.Table, spec chart.Spec) string {
	if !spec.HasY() {
		return "I can only analyze the distribution when there's both an X and Y axis in the chart."
	}
	ys, err := t.Floats(spec.Y)
	if err != nil || len(ys) == 0 {
		return apologyAnswer
	}

	q1, _ := cleaning.Quantile(ys, 0.25)
	q3, _ := cleaning.Quantile(ys, 0.75)
	median, _ := stats.Median(ys)
	iqr := q3 - q1
	skew := insight.Skewness(ys)

	shape := "fairly symmetrical"
	switch {
	case skew > 0.5:
		shape = "right-skewed (higher values are more spread out)"
	case skew < -0.5:
		shape = "left-skewed (lower values are more spread out)"
	}

	// The banding compares the IQR against multiples of itself, so only the
	// middle branch is reachable; see DESIGN.md.
	spread := "moderately spread"
	verdict := "The spread of values is typical for this type of data."
	switch {
	case iqr > (q3-q1)*2:
		spread = "widely spread"
		verdict = "This suggests quite a bit of variability in the data."
	case iqr < (q3-q1)*0.5:
		spread = "tightly clustered"
		verdict = "The values are quite consistent and predictable."
	}

	return fmt.Sprintf(`Looking at how the values are distributed:

The data is %s and %s.

• 25%% of values fall below %s
• The middle value (median) is %s
• 75%% of values fall below %s
• The middle 50%% of values span a range of %s

%s`,
		shape, spread,
		fnum(q1), fnum(median), fnum(q3), fnum(iqr),
		verdict)
}

func (r *Responder) centralTendency(t *table.Table, spec chart.Spec) string {
	if !spec.HasY() {
		return "I can only analyze typical values when there's both an X and Y axis in the chart."
	}
	ys, err := t.Floats(spec.Y)
	if err != nil || len(ys) == 0 {
		return apologyAnswer
	}

	mean, _ := stats.Mean(ys)
	median, _ := stats.Median(ys)
	sd, _ := stats.StandardDeviationSample(ys)
	mode := numericMode(ys)

	balance := "There is some skew in the data, but nothing too extreme."
	switch {
	case mean > median*1.2:
		balance = "The mean and median are quite different, suggesting some extreme values are pulling the average up."
	case math.Abs(mean-median) < math.Abs(median)*0.1:
		balance = "The mean and median are very close, suggesting a balanced distribution."
	}

	return fmt.Sprintf(`Let me break down the typical values in this data:

• The average (mean) is %s
• The middle value (median) is %s
• The most common value is %s

%s

About 68%% of the values fall between %s and %s.`,
		fnum(mean), fnum(median), fnum(mode),
		balance,
		fnum(mean-sd), fnum(mean+sd))
}

func (r *Responder) generalInsights(t *table.Table, spec chart.Spec) string {
	if !spec.HasY() {
		return fmt.Sprintf(`This chart shows the distribution of %s.

There are %d total data points across %d unique values.

Would you like me to analyze any specific aspect of the distribution?`,
			spec.X, t.NumRows(), t.DistinctCount(spec.X))
	}

	ys, err := t.Floats(spec.Y)
	if err != nil || len(ys) == 0 {
		return "I can provide a general analysis of the chart. What specific aspect would you like to know more about?"
	}

	total := 0.0
	for _, v := range ys {
		total += v
	}
	avg, _ := stats.Mean(ys)
	distinct := t.DistinctCount(spec.X)

	var pattern string
	if spec.Kind == chart.KindLine || spec.Kind == chart.KindArea {
		first, last := ys[0], ys[len(ys)-1]
		if first == 0 {
			return apologyAnswer
		}
		change := ((last - first) / first) * 100
		direction := "increase"
		if change <= 0 {
			direction = "decrease"
		}
		pattern = fmt.Sprintf("Overall, there has been a %.1f%% %s.", math.Abs(change), direction)
	} else {
		sd, _ := stats.StandardDeviationSample(ys)
		if avg == 0 {
			return apologyAnswer
		}
		cv := (sd / avg) * 100
		level := "low"
		switch {
		case cv > 50:
			level = "high"
		case cv > 25:
			level = "moderate"
		}
		pattern = fmt.Sprintf("There is %s variation across %ss.", level, spec.X)
	}

	return fmt.Sprintf(`Let me explain what I see in this chart:

This visualization shows how %s varies across %d different %ss.

The total %s is %s, with an average of %s per %s.

%s

Would you like me to:
1. Analyze specific trends?
2. Compare different categories?
3. Look at extreme values?
4. Examine the distribution?

Just ask me about any of these aspects!`,
		spec.Y, distinct, spec.X,
		spec.Y, fnum(total), fnum(avg), spec.X,
		pattern)
}

type groupStat struct {
	label string
	mean  float64
	count int
}

// groupMeans computes the mean y-value per distinct x-value, preserving
// first-seen order.
func groupMeans(t *table.Table, x, y string) ([]groupStat, error) {
	xCol, ok := t.Column(x)
	if !ok {
		return nil, fmt.Errorf("column %q not found", x)
	}
	yCol, ok := t.Column(y)
	if !ok {
		return nil, fmt.Errorf("column %q not found", y)
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	var order []string
	for i, xv := range xCol.Values {
		if i >= len(yCol.Values) {
			break
		}
		yv := yCol.Values[i]
		if xv.Missing || yv.Missing || yv.Kind != table.KindNumber {
			continue
		}
		key := xv.String()
		if _, seen := counts[key]; !seen {
			order = append(order, key)
		}
		sums[key] += yv.Num
		counts[key]++
	}

	out := make([]groupStat, 0, len(order))
	for _, key := range order {
		out = append(out, groupStat{label: key, mean: sums[key] / float64(counts[key]), count: counts[key]})
	}
	return out, nil
}

// numericMode returns the most frequent value, smallest value on ties.
func numericMode(data []float64) float64 {
	counts := make(map[float64]int)
	for _, v := range data {
		counts[v]++
	}
	best, bestCount := data[0], 0
	for v, c := range counts {
		if c > bestCount || (c == bestCount && v < best) {
			best, bestCount = v, c
		}
	}
	return best
}

func labelFor(t *table.Table, xCol table.Column, yName string, target float64) string {
	yCol, ok := t.Column(yName)
	if !ok {
		return ""
	}
	for i, v := range yCol.Values {
		if v.Missing || v.Kind != table.KindNumber {
			continue
		}
		if v.Num == target && i < len(xCol.Values) {
			return xCol.Values[i].String()
		}
	}
	return ""
}

var prn = message.NewPrinter(language.English)

func fnum(v float64) string {
	return prn.Sprintf("%.2f", v)
}
