package insight

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"datastory/domain/chart"
	"datastory/domain/table"
	"datastory/internal/cleaning"
)

// BarStats summarizes a category/value chart.
type BarStats struct {
	MaxCategory string
	MaxValue    float64
	MinCategory string
	MinValue    float64
	Average     float64
	Count       int
}

// LineStats summarizes a series over an ordered axis.
type LineStats struct {
	FirstValue    float64
	LastValue     float64
	PercentChange float64
	Trend         string
	PeakValue     float64
	PeakAt        string
	TroughValue   float64
	TroughAt      string
	AxisStart     string
	AxisEnd       string
}

// ScatterStats summarizes the relationship between two numeric columns.
type ScatterStats struct {
	Correlation float64
	Strength    string
	Direction   string
	Count       int
}

// HistogramStats summarizes a single numeric column's distribution.
type HistogramStats struct {
	Mean   float64
	Median float64
	StdDev float64
	Min    float64
	Max    float64
	Shape  string
}

// PieStats summarizes the composition of a value column across categories.
type PieStats struct {
	Total          float64
	MaxCategory    string
	MaxPercent     float64
	MinCategory    string
	MinPercent     float64
	TopCount       int
	TopShare       float64
	CategoryCount  int
}

// BoxStats summarizes quartiles and whiskers for a numeric column.
type BoxStats struct {
	Median       float64
	Q1           float64
	Q3           float64
	IQR          float64
	LowerWhisker float64
	UpperWhisker float64
	OutlierCount int
	Spread       string
}

// ComputeBarStats derives max/min categories and the average value.
func ComputeBarStats(t *table.Table, spec chart.Spec) (BarStats, error) {
	ys, err := t.Floats(spec.Y)
	if err != nil {
		return BarStats{}, err
	}
	if len(ys) == 0 {
		return BarStats{}, fmt.Errorf("column %q has no values", spec.Y)
	}
	xCol, ok := t.Column(spec.X)
	if !ok {
		return BarStats{}, fmt.Errorf("column %q not found", spec.X)
	}

	maxVal, _ := stats.Max(ys)
	minVal, _ := stats.Min(ys)
	avg, _ := stats.Mean(ys)

	return BarStats{
		MaxCategory: labelAt(xCol, spec.Y, t, maxVal),
		MaxValue:    maxVal,
		MinCategory: labelAt(xCol, spec.Y, t, minVal),
		MinValue:    minVal,
		Average:     avg,
		Count:       t.NumRows(),
	}, nil
}

// ComputeLineStats derives first-vs-last change, trend label, peak and trough.
func ComputeLineStats(t *table.Table, spec chart.Spec) (LineStats, error) {
	ys, err := t.Floats(spec.Y)
	if err != nil {
		return LineStats{}, err
	}
	if len(ys) == 0 {
		return LineStats{}, fmt.Errorf("column %q has no values", spec.Y)
	}
	xCol, ok := t.Column(spec.X)
	if !ok {
		return LineStats{}, fmt.Errorf("column %q not found", spec.X)
	}

	first, last := ys[0], ys[len(ys)-1]
	if first == 0 {
		return LineStats{}, fmt.Errorf("first value of %q is zero", spec.Y)
	}
	change := ((last - first) / first) * 100

	trend := "relatively stable"
	switch {
	case change > 5:
		trend = "upward"
	case change < -5:
		trend = "downward"
	}

	maxVal, _ := stats.Max(ys)
	minVal, _ := stats.Min(ys)
	start, end := axisExtent(xCol)

	return LineStats{
		FirstValue:    first,
		LastValue:     last,
		PercentChange: change,
		Trend:         trend,
		PeakValue:     maxVal,
		PeakAt:        labelAt(xCol, spec.Y, t, maxVal),
		TroughValue:   minVal,
		TroughAt:      labelAt(xCol, spec.Y, t, minVal),
		AxisStart:     start,
		AxisEnd:       end,
	}, nil
}

// ComputeScatterStats derives the Pearson correlation and its qualitative labels.
func ComputeScatterStats(t *table.Table, spec chart.Spec) (ScatterStats, error) {
	xs, err := t.Floats(spec.X)
	if err != nil {
		return ScatterStats{}, err
	}
	ys, err := t.Floats(spec.Y)
	if err != nil {
		return ScatterStats{}, err
	}
	if len(xs) < 2 || len(xs) != len(ys) {
		return ScatterStats{}, fmt.Errorf("columns %q and %q are not comparable", spec.X, spec.Y)
	}

	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) {
		return ScatterStats{}, fmt.Errorf("correlation undefined for %q and %q", spec.X, spec.Y)
	}

	strength := "strong"
	switch {
	case math.Abs(r) < 0.3:
		strength = "weak"
	case math.Abs(r) < 0.7:
		strength = "moderate"
	}
	direction := "positive"
	if r <= 0 {
		direction = "negative"
	}

	return ScatterStats{Correlation: r, Strength: strength, Direction: direction, Count: len(xs)}, nil
}

// ComputeHistogramStats derives central tendency, spread and shape.
func ComputeHistogramStats(t *table.Table, column string) (HistogramStats, error) {
	xs, err := t.Floats(column)
	if err != nil {
		return HistogramStats{}, err
	}
	if len(xs) == 0 {
		return HistogramStats{}, fmt.Errorf("column %q has no values", column)
	}

	mean, _ := stats.Mean(xs)
	median, _ := stats.Median(xs)
	sd, _ := stats.StandardDeviationSample(xs)
	minVal, _ := stats.Min(xs)
	maxVal, _ := stats.Max(xs)

	return HistogramStats{
		Mean:   mean,
		Median: median,
		StdDev: sd,
		Min:    minVal,
		Max:    maxVal,
		Shape:  shapeLabel(Skewness(xs)),
	}, nil
}

// ComputePieStats derives totals, dominant/smallest slices and concentration
// across the top fifth of categories.
func ComputePieStats(t *table.Table, spec chart.Spec) (PieStats, error) {
	ys, err := t.Floats(spec.Y)
	if err != nil {
		return PieStats{}, err
	}
	if len(ys) == 0 {
		return PieStats{}, fmt.Errorf("column %q has no values", spec.Y)
	}
	xCol, ok := t.Column(spec.X)
	if !ok {
		return PieStats{}, fmt.Errorf("column %q not found", spec.X)
	}

	total := 0.0
	for _, v := range ys {
		total += v
	}
	if total == 0 {
		return PieStats{}, fmt.Errorf("column %q sums to zero", spec.Y)
	}

	maxVal, _ := stats.Max(ys)
	minVal, _ := stats.Min(ys)

	sorted := append([]float64(nil), ys...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	topN := int(math.Ceil(float64(len(ys)) * 0.2))
	if topN < 1 {
		topN = 1
	}
	topSum := 0.0
	for _, v := range sorted[:topN] {
		topSum += v
	}

	return PieStats{
		Total:         total,
		MaxCategory:   labelAt(xCol, spec.Y, t, maxVal),
		MaxPercent:    maxVal / total * 100,
		MinCategory:   labelAt(xCol, spec.Y, t, minVal),
		MinPercent:    minVal / total * 100,
		TopCount:      topN,
		TopShare:      topSum / total * 100,
		CategoryCount: len(ys),
	}, nil
}

// ComputeBoxStats derives quartiles, Tukey whiskers and the outlier count.
func ComputeBoxStats(t *table.Table, column string) (BoxStats, error) {
	ys, err := t.Floats(column)
	if err != nil {
		return BoxStats{}, err
	}
	if len(ys) == 0 {
		return BoxStats{}, fmt.Errorf("column %q has no values", column)
	}

	median, _ := stats.Median(ys)
	q1, _ := cleaning.Quantile(ys, 0.25)
	q3, _ := cleaning.Quantile(ys, 0.75)
	iqr := q3 - q1
	minVal, _ := stats.Min(ys)
	maxVal, _ := stats.Max(ys)

	lower := math.Max(minVal, q1-1.5*iqr)
	upper := math.Min(maxVal, q3+1.5*iqr)

	outliers := 0
	for _, v := range ys {
		if v < lower || v > upper {
			outliers++
		}
	}

	return BoxStats{
		Median:       median,
		Q1:           q1,
		Q3:           q3,
		IQR:          iqr,
		LowerWhisker: lower,
		UpperWhisker: upper,
		OutlierCount: outliers,
		Spread:       spreadLabel(iqr, q1, q3),
	}, nil
}

// Skewness computes the adjusted Fisher-Pearson skewness coefficient.
func Skewness(data []float64) float64 {
	if len(data) < 3 {
		return 0
	}
	mean, _ := stats.Mean(data)
	sd, _ := stats.StandardDeviation(data)
	if sd == 0 {
		return 0
	}

	n := float64(len(data))
	sumCubed := 0.0
	for _, x := range data {
		d := (x - mean) / sd
		sumCubed += d * d * d
	}

	skew := sumCubed / n
	skew *= math.Sqrt(n*(n-1)) / (n - 2)
	return skew
}

func shapeLabel(skew float64) string {
	switch {
	case skew > 0.5:
		return "right-skewed (higher values are spread out)"
	case skew < -0.5:
		return "left-skewed (lower values are spread out)"
	default:
		return "approximately normally distributed"
	}
}

// spreadLabel compares the IQR against multiples of itself, so only the
// middle branch is reachable; see DESIGN.md before changing the thresholds.
func spreadLabel(iqr, q1, q3 float64) string {
	switch {
	case iqr < (q3-q1)*0.5:
		return "tightly clustered"
	case iqr > (q3-q1)*2:
		return "widely spread"
	default:
		return "moderately spread"
	}
}

// labelAt returns the rendered x-value of the first row whose y-value equals
// target.
func labelAt(xCol table.Column, yName string, t *table.Table, target float64) string {
	yCol, ok := t.Column(yName)
	if !ok {
		return ""
	}
	for i, v := range yCol.Values {
		if v.Missing || v.Kind != table.KindNumber {
			continue
		}
		if v.Num == target {
			if i < len(xCol.Values) {
				return xCol.Values[i].String()
			}
			return ""
		}
	}
	return ""
}

// axisExtent returns the rendered smallest and largest values of a column.
func axisExtent(col table.Column) (string, string) {
	var minV, maxV *table.Value
	for i := range col.Values {
		v := &col.Values[i]
		if v.Missing {
			continue
		}
		if minV == nil || valueLess(*v, *minV) {
			minV = v
		}
		if maxV == nil || valueLess(*maxV, *v) {
			maxV = v
		}
	}
	if minV == nil {
		return "", ""
	}
	return minV.String(), maxV.String()
}

func valueLess(a, b table.Value) bool {
	if a.Kind != b.Kind {
		return a.String() < b.String()
	}
	switch a.Kind {
	case table.KindNumber:
		return a.Num < b.Num
	case table.KindTime:
		return a.Time.Before(b.Time)
	default:
		return a.Str < b.Str
	}
}
