package telemetry

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"github.com/kbuckham/gx35ecu/internal/engine"
)

// csvHeader is fixed: every Sample field gets its own column. Unlike the
// teacher's sensor-index-driven header (which varied per logging
// session), an ECU sample has a known, constant shape.
var csvHeader = []string{
	"TimeUS", "RPM", "MAP_kPa", "IAT_K", "VE", "SA_deg",
	"FuelPulseWidth_us", "CrankAngle_deg", "Mode", "RevLimit", "Killswitch",
}

// CSVWriter writes a stream of engine samples to a CSV file, one row per
// sample, flushing after every write for crash safety.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
	count  int
}

// NewCSVWriter creates filename and writes the header row immediately.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create CSV file %s: %w", filename, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("write CSV header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// WriteSample appends one row. Pass this directly to Recorder.WrapErr to
// hang it off Recorder.OnSample.
func (cw *CSVWriter) WriteSample(s engine.Sample) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	row := []string{
		fmt.Sprintf("%d", s.TimeUS),
		fmt.Sprintf("%.2f", s.RPM),
		fmt.Sprintf("%.2f", s.MAP),
		fmt.Sprintf("%.2f", s.IAT),
		fmt.Sprintf("%.4f", s.VE),
		fmt.Sprintf("%.2f", s.SA),
		fmt.Sprintf("%.2f", s.FuelPulseWidthUS),
		fmt.Sprintf("%.2f", s.CrankAngle),
		s.Mode.String(),
		fmt.Sprintf("%t", s.RevLimit),
		fmt.Sprintf("%t", s.Killswitch),
	}

	if err := cw.writer.Write(row); err != nil {
		return fmt.Errorf("write CSV row: %w", err)
	}
	cw.count++

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("CSV flush: %w", err)
	}
	return nil
}

// Count returns the number of samples written so far.
func (cw *CSVWriter) Count() int {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return cw.count
}

// Close flushes and closes the underlying file.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		cw.file.Close()
		return fmt.Errorf("CSV flush: %w", err)
	}
	return cw.file.Close()
}
