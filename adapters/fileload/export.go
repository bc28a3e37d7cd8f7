package fileload

import (
	"encoding/csv"
	"fmt"
	"io"

	"datastory/domain/table"
)

// ExportCSV writes the table as CSV: header row first, one record per data
// row, no index column. Missing values export as empty cells.
func ExportCSV(w io.Writer, t *table.Table) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(t.ColumnNames()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	cols := t.Columns()
	for row := 0; row < t.NumRows(); row++ {
		record := make([]string, len(cols))
		for i, col := range cols {
			record[i] = col.Values[row].String()
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
