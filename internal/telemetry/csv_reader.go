package telemetry

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// CSVLog is a parsed telemetry CSV, column-oriented for plotting (e.g.
// feeding an asciigraph trace of RPM or fuel pulse width over time).
type CSVLog struct {
	Columns []string             // column names, in header order
	Data    map[string][]float64 // column -> values; non-numeric columns (Mode) are omitted
	Count   int
}

// ReadCSVLog reads a CSV file written by CSVWriter and returns its
// numeric columns as float slices keyed by header name.
func ReadCSVLog(filename string) (*CSVLog, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open CSV: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("CSV has no data rows")
	}

	header := records[0]
	data := make(map[string][]float64, len(header))
	numeric := make([]bool, len(header))

	// Probe the first data row to decide which columns are numeric; Mode
	// ("CRANKING" etc.) and the boolean columns are intentionally excluded.
	for i, v := range records[1] {
		if _, err := strconv.ParseFloat(v, 64); err == nil {
			numeric[i] = true
			data[header[i]] = make([]float64, 0, len(records)-1)
		}
	}

	rowCount := 0
	for _, row := range records[1:] {
		for i, col := range header {
			if i >= len(numeric) || !numeric[i] || i >= len(row) {
				continue
			}
			val, err := strconv.ParseFloat(row[i], 64)
			if err != nil {
				val = 0
			}
			data[col] = append(data[col], val)
		}
		rowCount++
	}

	columns := make([]string, 0, len(data))
	for i, h := range header {
		if numeric[i] {
			columns = append(columns, h)
		}
	}

	return &CSVLog{Columns: columns, Data: data, Count: rowCount}, nil
}
