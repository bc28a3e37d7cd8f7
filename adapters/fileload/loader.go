// Package fileload reads uploaded CSV and XLSX files into raw tables and
// writes filtered tables back out as CSV.
package fileload

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"datastory/domain/table"
	"datastory/internal/errors"
)

// Loader parses uploaded tabular files.
type Loader struct{}

// NewLoader creates a file loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses the upload into a raw table, choosing the parser by file
// extension. Anything that is not .xlsx is treated as CSV.
func (l *Loader) Load(filename string, r io.Reader) (*table.Table, error) {
	start := time.Now()

	var rows [][]string
	var err error
	if strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		rows, err = readXLSX(r)
	} else {
		rows, err = readCSV(r)
	}
	if err != nil {
		return nil, errors.LoadError(fmt.Sprintf("failed to read %s", filename), err)
	}

	t, err := rowsToTable(rows)
	if err != nil {
		return nil, errors.LoadError(fmt.Sprintf("failed to parse %s", filename), err)
	}

	log.Printf("[Loader] %s parsed in %.2fms (%d columns, %d rows)",
		filename, float64(time.Since(start).Nanoseconds())/1e6, t.NumColumns(), t.NumRows())
	return t, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return rows, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

// rowsToTable builds a raw table from header + data rows. Columns where
// every non-empty cell parses as a number become numeric; everything else
// stays textual. Empty cells become missing values.
func rowsToTable(rows [][]string) (*table.Table, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("file must have at least a header row and one data row")
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		headers[i] = name
	}
	headers = dedupeHeaders(headers)

	t, err := table.New()
	if err != nil {
		return nil, err
	}

	for col, name := range headers {
		values := make([]table.Value, 0, len(rows)-1)
		numeric := true
		sawValue := false
		for i := 1; i < len(rows); i++ {
			cell := ""
			if col < len(rows[i]) {
				cell = strings.TrimSpace(rows[i][col])
			}
			if cell == "" || isNAToken(cell) {
				values = append(values, table.NewMissingValue())
				continue
			}
			sawValue = true
			values = append(values, table.NewStringValue(cell))
			if f, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", ""), 64); err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
				numeric = false
			}
		}

		colType := table.TypeText
		if numeric && sawValue {
			colType = table.TypeNumeric
			for i, v := range values {
				if v.Missing {
					continue
				}
				f, _ := strconv.ParseFloat(strings.ReplaceAll(v.Str, ",", ""), 64)
				values[i] = table.NewNumberValue(f)
			}
		}

		if err := t.AppendColumn(table.Column{Name: name, Type: colType, Values: values}); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// naTokens are cell values read as missing, matching what pandas-produced
// files contain for blanks.
var naTokens = map[string]bool{
	"nan": true, "na": true, "n/a": true, "null": true, "none": true,
}

func isNAToken(cell string) bool {
	return naTokens[strings.ToLower(cell)]
}

// dedupeHeaders suffixes repeated header names (a, a.1, a.2) so column names
// stay unique without failing the load.
func dedupeHeaders(headers []string) []string {
	seen := make(map[string]bool, len(headers))
	out := make([]string, len(headers))
	for i, name := range headers {
		candidate := name
		for n := 1; seen[candidate]; n++ {
			candidate = fmt.Sprintf("%s.%d", name, n)
		}
		seen[candidate] = true
		out[i] = candidate
	}
	return out
}
