package benchmark

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// CSVHeader is the fixed column order of the output table.
var CSVHeader = []string{
	"program",
	"workers",
	"n",
	"time_min",
	"time_median",
	"time_mean",
	"result",
}

// RowSink receives rows as the sweep produces them.
type RowSink interface {
	WriteRow(Row) error
}

// FailureRecorder is implemented by sinks that also want to know about
// invocations that produced no row.
type FailureRecorder interface {
	RecordFailure(Failure)
}

// MultiSink fans every row out to several sinks in order.
type MultiSink []RowSink

// WriteRow implements RowSink. All sinks are attempted; errors are joined.
func (m MultiSink) WriteRow(row Row) error {
	var errs []error
	for _, s := range m {
		if err := s.WriteRow(row); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordFailure implements FailureRecorder for the sinks that support it.
func (m MultiSink) RecordFailure(f Failure) {
	for _, s := range m {
		if fr, ok := s.(FailureRecorder); ok {
			fr.RecordFailure(f)
		}
	}
}

// Collector keeps rows in memory.
type Collector struct {
	Rows []Row
}

// WriteRow implements RowSink.
func (c *Collector) WriteRow(row Row) error {
	c.Rows = append(c.Rows, row)
	return nil
}

// CSVWriter writes rows in the fixed table schema, flushing after every
// row so partial sweeps leave a readable file.
type CSVWriter struct {
	w      *csv.Writer
	closer io.Closer
}

// NewCSVWriter writes the header to w and returns the sink.
func NewCSVWriter(w io.Writer) (*CSVWriter, error) {
	cw := &CSVWriter{w: csv.NewWriter(w)}
	if err := cw.w.Write(CSVHeader); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	cw.w.Flush()
	if err := cw.w.Error(); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	return cw, nil
}

// CreateCSV creates (or truncates) the file at path, including missing
// parent directories, and returns a CSVWriter on it. Close it when done.
func CreateCSV(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}

	cw, err := NewCSVWriter(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	cw.closer = f
	return cw, nil
}

// WriteRow implements RowSink.
func (c *CSVWriter) WriteRow(row Row) error {
	if err := c.w.Write(csvRecord(row)); err != nil {
		return fmt.Errorf("failed to write CSV row: %w", err)
	}
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV row: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file, if CreateCSV opened it.
func (c *CSVWriter) Close() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return err
	}
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

// csvRecord formats a row. An absent result is an empty field.
func csvRecord(row Row) []string {
	result := ""
	if row.Result != nil {
		result = formatFloat(*row.Result)
	}
	return []string{
		row.Program,
		strconv.Itoa(row.Workers),
		strconv.FormatInt(row.N, 10),
		formatFloat(row.TimeMin),
		formatFloat(row.TimeMedian),
		formatFloat(row.TimeMean),
		result,
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
