package sheetwriter

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"
)

// CSVSink writes rows as CSV records. Styles are ignored, except that
// time values are rendered in RFC 3339.
type CSVSink struct {
	w    *csv.Writer
	rows int
}

// NewCSVSink creates a CSVSink writing to w.
func NewCSVSink(w io.Writer) *CSVSink {
	return &CSVSink{w: csv.NewWriter(w)}
}

func (s *CSVSink) WriteHeader(ctx context.Context, labels []interface{}, rowStyle *Style, colStyles []*Style) error {
	return s.write(labels)
}

func (s *CSVSink) WriteRow(ctx context.Context, values []interface{}, rowStyle *Style, cellStyles []*Style) error {
	return s.write(values)
}

// RowsWritten returns the number of records written so far.
func (s *CSVSink) RowsWritten() int {
	return s.rows
}

// Flush writes any buffered data and reports the first write error.
func (s *CSVSink) Flush() error {
	s.w.Flush()
	return s.w.Error()
}

func (s *CSVSink) write(values []interface{}) error {
	record := make([]string, len(values))
	for i, v := range values {
		record[i] = formatCSVValue(v)
	}
	if err := s.w.Write(record); err != nil {
		return err
	}
	s.rows++
	return nil
}

func formatCSVValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case time.Time:
		return val.Format(time.RFC3339)
	case []byte:
		return string(val)
	}
	return fmt.Sprintf("%v", v)
}
