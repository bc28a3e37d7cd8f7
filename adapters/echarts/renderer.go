// Package echarts renders validated chart specs as self-contained ECharts
// HTML figures.
package echarts

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"datastory/domain/chart"
	"datastory/domain/table"
	"datastory/internal/cleaning"
	"datastory/internal/errors"
	"datastory/ports"
)

// Renderer implements the Renderer port on top of go-echarts.
type Renderer struct{}

// NewRenderer creates an ECharts renderer.
func NewRenderer() ports.Renderer {
	return &Renderer{}
}

// Render writes the figure HTML for a validated spec. Unknown kinds fall
// back to a bar rendering rather than failing the request.
func (r *Renderer) Render(w io.Writer, t *table.Table, spec chart.Spec) error {
	switch spec.Kind {
	case chart.KindLine, chart.KindArea:
		return renderLine(w, t, spec)
	case chart.KindScatter, chart.KindBubble:
		return renderScatter(w, t, spec)
	case chart.KindHistogram:
		return renderHistogram(w, t, spec)
	case chart.KindPie:
		return renderPie(w, t, spec)
	case chart.KindBox, chart.KindViolin:
		return renderBox(w, t, spec)
	case chart.KindHeatmap:
		return renderHeatmap(w, t, spec)
	default:
		return renderBar(w, t, spec)
	}
}

func renderBar(w io.Writer, t *table.Table, spec chart.Spec) error {
	labels, values, err := labelValuePairs(t, spec)
	if err != nil {
		return err
	}

	data := make([]opts.BarData, len(values))
	for i, v := range values {
		data[i] = opts.BarData{Value: v}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: chartTitle(spec)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels).AddSeries(seriesName(spec), data)
	return bar.Render(w)
}

func renderLine(w io.Writer, t *table.Table, spec chart.Spec) error {
	labels, values, err := labelValuePairs(t, spec)
	if err != nil {
		return err
	}

	data := make([]opts.LineData, len(values))
	for i, v := range values {
		data[i] = opts.LineData{Value: v}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: chartTitle(spec)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	series := line.SetXAxis(labels).AddSeries(seriesName(spec), data)
	if spec.Kind == chart.KindArea {
		series.SetSeriesOptions(charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: 0.35}))
	}
	return line.Render(w)
}

// renderScatter plots numeric X on a value axis; categorical and datetime X
// columns become a category axis, the same axis treatment renderBar uses.
func renderScatter(w io.Writer, t *table.Table, spec chart.Spec) error {
	xCol, ok := t.Column(spec.X)
	if !ok {
		return errors.ChartSpecError(fmt.Sprintf("column %q not found", spec.X))
	}
	ys, err := t.Floats(spec.Y)
	if err != nil {
		return errors.ChartSpecError(err.Error())
	}

	var sizes []float64
	if spec.Kind == chart.KindBubble && spec.Size != "" {
		sizes, err = t.Floats(spec.Size)
		if err != nil {
			return errors.ChartSpecError(err.Error())
		}
	}

	scatter := charts.NewScatter()

	if xCol.Type == table.TypeNumeric {
		xs, err := t.Floats(spec.X)
		if err != nil {
			return errors.ChartSpecError(err.Error())
		}
		n := len(xs)
		if len(ys) < n {
			n = len(ys)
		}
		data := make([]opts.ScatterData, 0, n)
		for i := 0; i < n; i++ {
			d := opts.ScatterData{Value: []interface{}{xs[i], ys[i]}}
			if sizes != nil && i < len(sizes) {
				d.SymbolSize = bubbleSize(sizes[i], sizes)
			}
			data = append(data, d)
		}
		scatter.SetGlobalOptions(
			charts.WithTitleOpts(opts.Title{Title: chartTitle(spec)}),
			charts.WithXAxisOpts(opts.XAxis{Name: spec.X, Type: "value"}),
			charts.WithYAxisOpts(opts.YAxis{Name: spec.Y, Type: "value"}),
		)
		scatter.AddSeries(seriesName(spec), data)
		return scatter.Render(w)
	}

	labels, values, err := labelledPoints(t, xCol, spec.Y)
	if err != nil {
		return err
	}
	data := make([]opts.ScatterData, len(values))
	for i, v := range values {
		data[i] = opts.ScatterData{Value: v}
		if sizes != nil && i < len(sizes) {
			data[i].SymbolSize = bubbleSize(sizes[i], sizes)
		}
	}
	scatter.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: chartTitle(spec)}),
		charts.WithYAxisOpts(opts.YAxis{Name: spec.Y, Type: "value"}),
	)
	scatter.SetXAxis(labels).AddSeries(seriesName(spec), data)
	return scatter.Render(w)
}

// labelledPoints pairs each non-missing row's x label with its numeric y.
func labelledPoints(t *table.Table, xCol table.Column, yName string) ([]string, []float64, error) {
	yCol, ok := t.Column(yName)
	if !ok {
		return nil, nil, errors.ChartSpecError(fmt.Sprintf("column %q not found", yName))
	}
	var labels []string
	var values []float64
	for i, xv := range xCol.Values {
		if i >= len(yCol.Values) {
			break
		}
		yv := yCol.Values[i]
		if xv.Missing || yv.Missing || yv.Kind != table.KindNumber {
			continue
		}
		labels = append(labels, xv.String())
		values = append(values, yv.Num)
	}
	return labels, values, nil
}

func renderHistogram(w io.Writer, t *table.Table, spec chart.Spec) error {
	xs, err := t.Floats(spec.X)
	if err != nil {
		return errors.ChartSpecError(err.Error())
	}
	if len(xs) == 0 {
		return errors.ChartSpecError(fmt.Sprintf("column %q has no numeric values", spec.X))
	}

	labels, counts := histogramBins(xs)
	data := make([]opts.BarData, len(counts))
	for i, c := range counts {
		data[i] = opts.BarData{Value: c}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("Distribution of %s", spec.X)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels).AddSeries("count", data)
	return bar.Render(w)
}

func renderPie(w io.Writer, t *table.Table, spec chart.Spec) error {
	labels, values, err := labelValuePairs(t, spec)
	if err != nil {
		return err
	}

	data := make([]opts.PieData, len(values))
	for i, v := range values {
		data[i] = opts.PieData{Name: labels[i], Value: v}
	}

	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: chartTitle(spec)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	pie.AddSeries(seriesName(spec), data)
	return pie.Render(w)
}

func renderBox(w io.Writer, t *table.Table, spec chart.Spec) error {
	groups, labels, err := groupedFloats(t, spec)
	if err != nil {
		return err
	}

	data := make([]opts.BoxPlotData, 0, len(groups))
	for _, g := range groups {
		data = append(data, opts.BoxPlotData{Value: fiveNumber(g)})
	}

	box := charts.NewBoxPlot()
	box.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: chartTitle(spec)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	box.SetXAxis(labels).AddSeries(spec.Y, data)
	return box.Render(w)
}

func renderHeatmap(w io.Writer, t *table.Table, spec chart.Spec) error {
	xCol, ok := t.Column(spec.X)
	if !ok {
		return errors.ChartSpecError(fmt.Sprintf("column %q not found", spec.X))
	}
	yCol, ok := t.Column(spec.Y)
	if !ok {
		return errors.ChartSpecError(fmt.Sprintf("column %q not found", spec.Y))
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
	if len(order) == 0 {
		return errors.ChartSpecError(fmt.Sprintf("no numeric values to aggregate in %q", spec.Y))
	}

	minMean, maxMean := math.Inf(1), math.Inf(-1)
	data := make([]opts.HeatMapData, 0, len(order))
	for i, key := range order {
		mean := sums[key] / float64(counts[key])
		if mean < minMean {
			minMean = mean
		}
		if mean > maxMean {
			maxMean = mean
		}
		data = append(data, opts.HeatMapData{Value: [3]interface{}{i, 0, mean}})
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("Mean %s by %s", spec.Y, spec.X)}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: []string{fmt.Sprintf("mean %s", spec.Y)}}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Min:        float32(minMean),
			Max:        float32(maxMean),
			Calculable: opts.Bool(true),
		}),
	)
	hm.SetXAxis(order).AddSeries(spec.Y, data)
	return hm.Render(w)
}

// labelValuePairs extracts aligned x labels and y values. With no y column,
// values are per-category counts.
func labelValuePairs(t *table.Table, spec chart.Spec) ([]string, []float64, error) {
	xCol, ok := t.Column(spec.X)
	if !ok {
		return nil, nil, errors.ChartSpecError(fmt.Sprintf("column %q not found", spec.X))
	}

	if !spec.HasY() {
		counts := make(map[string]float64)
		var order []string
		for _, v := range xCol.Values {
			if v.Missing {
				continue
			}
			key := v.String()
			if _, seen := counts[key]; !seen {
				order = append(order, key)
			}
			counts[key]++
		}
		values := make([]float64, len(order))
		for i, key := range order {
			values[i] = counts[key]
		}
		return order, values, nil
	}

	yCol, ok := t.Column(spec.Y)
	if !ok {
		return nil, nil, errors.ChartSpecError(fmt.Sprintf("column %q not found", spec.Y))
	}

	var labels []string
	var values []float64
	for i, xv := range xCol.Values {
		if i >= len(yCol.Values) {
			break
		}
		yv := yCol.Values[i]
		if xv.Missing || yv.Missing || yv.Kind != table.KindNumber {
			continue
		}
		labels = append(labels, xv.String())
		values = append(values, yv.Num)
	}
	return labels, values, nil
}

// groupedFloats splits y values by x category, falling back to a single
// group when grouping adds nothing.
func groupedFloats(t *table.Table, spec chart.Spec) ([][]float64, []string, error) {
	ys, err := t.Floats(spec.Y)
	if err != nil {
		return nil, nil, errors.ChartSpecError(err.Error())
	}
	if len(ys) == 0 {
		return nil, nil, errors.ChartSpecError(fmt.Sprintf("column %q has no numeric values", spec.Y))
	}

	xCol, ok := t.Column(spec.X)
	if !ok || spec.X == spec.Y {
		return [][]float64{ys}, []string{spec.Y}, nil
	}

	byKey := make(map[string][]float64)
	var order []string
	yCol, _ := t.Column(spec.Y)
	for i, xv := range xCol.Values {
		if i >= len(yCol.Values) {
			break
		}
		yv := yCol.Values[i]
		if xv.Missing || yv.Missing || yv.Kind != table.KindNumber {
			continue
		}
		key := xv.String()
		if _, seen := byKey[key]; !seen {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], yv.Num)
	}

	groups := make([][]float64, len(order))
	for i, key := range order {
		groups[i] = byKey[key]
	}
	return groups, order, nil
}

// fiveNumber returns [min, Q1, median, Q3, max] for one boxplot group.
func fiveNumber(data []float64) []float64 {
	minVal, maxVal := data[0], data[0]
	for _, v := range data {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	q1, _ := cleaning.Quantile(data, 0.25)
	med, _ := cleaning.Quantile(data, 0.5)
	q3, _ := cleaning.Quantile(data, 0.75)
	return []float64{minVal, q1, med, q3, maxVal}
}

// histogramBins buckets values by the Sturges rule.
func histogramBins(data []float64) ([]string, []int) {
	minVal, maxVal := data[0], data[0]
	for _, v := range data {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}

	binCount := int(math.Ceil(math.Log2(float64(len(data))))) + 1
	if binCount < 1 || minVal == maxVal {
		binCount = 1
	}
	width := (maxVal - minVal) / float64(binCount)

	counts := make([]int, binCount)
	for _, v := range data {
		idx := binCount - 1
		if width > 0 {
			idx = int((v - minVal) / width)
			if idx >= binCount {
				idx = binCount - 1
			}
		}
		counts[idx]++
	}

	labels := make([]string, binCount)
	for i := range labels {
		lo := minVal + float64(i)*width
		labels[i] = fmt.Sprintf("%.4g-%.4g", lo, lo+width)
	}
	return labels, counts
}

func bubbleSize(v float64, all []float64) int {
	maxVal := all[0]
	for _, x := range all {
		if x > maxVal {
			maxVal = x
		}
	}
	if maxVal <= 0 {
		return 10
	}
	size := int(math.Round(v / maxVal * 40))
	if size < 5 {
		size = 5
	}
	return size
}

func chartTitle(spec chart.Spec) string {
	if spec.HasY() {
		return fmt.Sprintf("%s by %s", spec.Y, spec.X)
	}
	return spec.X
}

func seriesName(spec chart.Spec) string {
	if spec.HasY() {
		return spec.Y
	}
	return "count"
}
