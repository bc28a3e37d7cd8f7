package insight

import (
	"fmt"
	"strings"

	"github.com/montanaflynn/stats"

	"datastory/domain/table"
	"datastory/internal/cleaning"
)

// DatasetSummary renders a markdown overview of a table: record counts,
// missing-value totals and per-column descriptive statistics for every
// numeric column.
func DatasetSummary(t *table.Table) string {
	var b strings.Builder

	b.WriteString("## 📊 Dataset Statistical Summary\n\n")
	b.WriteString("### Dataset Overview\n\n")
	prn.Fprintf(&b, "- **Records:** %d rows\n", t.NumRows())
	prn.Fprintf(&b, "- **Fields:** %d columns\n", t.NumColumns())

	missingByColumn := make(map[string]int)
	totalMissing := 0
	for _, name := range t.ColumnNames() {
		if n := t.MissingCount(name); n > 0 {
			missingByColumn[name] = n
			totalMissing += n
		}
	}
	if totalMissing > 0 {
		prn.Fprintf(&b, "- **Fields with Missing Values:** %d columns\n", len(missingByColumn))
		prn.Fprintf(&b, "- **Total Missing Values:** %d entries\n", totalMissing)
	} else {
		b.WriteString("- **Missing Values:** None detected\n")
	}

	b.WriteString("\n### 📈 Numerical Variables\n")
	for _, name := range t.ColumnsOfType(table.TypeNumeric) {
		data, err := t.Floats(name)
		if err != nil || len(data) == 0 {
			continue
		}
		mean, _ := stats.Mean(data)
		median, _ := stats.Median(data)
		sd, _ := stats.StandardDeviationSample(data)
		minVal, _ := stats.Min(data)
		maxVal, _ := stats.Max(data)
		q1, _ := cleaning.Quantile(data, 0.25)
		q3, _ := cleaning.Quantile(data, 0.75)

		fmt.Fprintf(&b, "\n#### %s\n\n", name)
		fmt.Fprintf(&b, "- **Central Tendency:** Mean = %.2f, Median = %.2f\n", mean, median)
		fmt.Fprintf(&b, "- **Variability:** Std Dev = %.2f, Range = %.2f\n", sd, maxVal-minVal)
		fmt.Fprintf(&b, "- **Range:** Min = %.2f, Max = %.2f\n", minVal, maxVal)
		fmt.Fprintf(&b, "- **Quartiles:** Q1 = %.2f, Q3 = %.2f\n", q1, q3)
	}

	if totalMissing > 0 {
		b.WriteString("\n### ⚠️ Missing Value Details\n\n")
		for _, name := range t.ColumnNames() {
			count, ok := missingByColumn[name]
			if !ok {
				continue
			}
			percent := float64(count) / float64(t.NumRows()) * 100
			prn.Fprintf(&b, "- **%s:** %d missing values (%.1f%%)\n", name, count, percent)
		}
	}

	return b.String()
}
