package sheetwriter

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

var (
	ErrSheetExists    = errors.New("sheet already exists")
	ErrWorkbookClosed = errors.New("workbook is closed")
)

const defaultSheetName = "Sheet1"

// Workbook is a streaming xlsx document. Sheets are appended row by row and
// the file is written to the output on Close.
type Workbook struct {
	file       *excelize.File
	writer     io.Writer
	sheets     map[string]*Sheet
	order      []string
	styleCache map[string]int
	closed     bool
}

// NewWorkbook creates a new Workbook writing to w on Close.
func NewWorkbook(w io.Writer) *Workbook {
	return &Workbook{
		file:       excelize.NewFile(),
		writer:     w,
		sheets:     make(map[string]*Sheet),
		styleCache: make(map[string]int),
	}
}

// Sheet is a single worksheet of a Workbook. It implements Sink.
type Sheet struct {
	workbook   *Workbook
	stream     *excelize.StreamWriter
	name       string
	currentRow int
}

// AddSheet adds a new sheet.
func (b *Workbook) AddSheet(name string) (*Sheet, error) {
	if b.closed {
		return nil, ErrWorkbookClosed
	}
	if _, ok := b.sheets[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrSheetExists, name)
	}

	index, err := b.file.GetSheetIndex(name)
	if err != nil {
		return nil, err
	}
	if index == -1 {
		if _, err := b.file.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	sw, err := b.file.NewStreamWriter(name)
	if err != nil {
		return nil, fmt.Errorf("create stream writer for sheet %s: %w", name, err)
	}

	sheet := &Sheet{
		workbook:   b,
		stream:     sw,
		name:       name,
		currentRow: 1,
	}
	b.sheets[name] = sheet
	b.order = append(b.order, name)
	return sheet, nil
}

// Sheet returns a previously added sheet, or nil.
func (b *Workbook) Sheet(name string) *Sheet {
	return b.sheets[name]
}

// SheetNames returns the added sheets in creation order.
func (b *Workbook) SheetNames() []string {
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

// Close flushes every sheet and writes the file to the output writer.
func (b *Workbook) Close() error {
	if b.closed {
		return ErrWorkbookClosed
	}
	b.closed = true
	defer b.file.Close()

	for _, name := range b.order {
		if err := b.sheets[name].stream.Flush(); err != nil {
			return fmt.Errorf("flush sheet %s: %w", name, err)
		}
	}

	// Remove default Sheet1 if it wasn't used
	if _, ok := b.sheets[defaultSheetName]; !ok && len(b.order) > 0 {
		if err := b.file.DeleteSheet(defaultSheetName); err != nil {
			return err
		}
		if idx, err := b.file.GetSheetIndex(b.order[0]); err == nil && idx >= 0 {
			b.file.SetActiveSheet(idx)
		}
	}

	return b.file.Write(b.writer)
}

// Discard releases the workbook without writing anything to the output.
func (b *Workbook) Discard() error {
	if b.closed {
		return ErrWorkbookClosed
	}
	b.closed = true
	return b.file.Close()
}

func (b *Workbook) styleID(s *Style) (int, error) {
	if s.IsZero() {
		return 0, nil
	}
	key := s.key()
	if id, ok := b.styleCache[key]; ok {
		return id, nil
	}
	id, err := b.file.NewStyle(s.toExcelize())
	if err != nil {
		return 0, fmt.Errorf("create style: %w", err)
	}
	b.styleCache[key] = id
	return id, nil
}

// Name returns the sheet name.
func (s *Sheet) Name() string {
	return s.name
}

// RowsWritten returns the number of rows appended so far.
func (s *Sheet) RowsWritten() int {
	return s.currentRow - 1
}

// WriteHeader writes a header row. Without a row style the header is bold
// and centered.
func (s *Sheet) WriteHeader(ctx context.Context, labels []interface{}, rowStyle *Style, colStyles []*Style) error {
	if rowStyle == nil {
		rowStyle = DefaultHeaderStyle()
	}
	return s.appendRow(labels, rowStyle, colStyles)
}

// WriteRow writes a data row. Each cell gets the row style with its own cell
// style merged on top.
func (s *Sheet) WriteRow(ctx context.Context, values []interface{}, rowStyle *Style, cellStyles []*Style) error {
	return s.appendRow(values, rowStyle, cellStyles)
}

func (s *Sheet) appendRow(values []interface{}, rowStyle *Style, cellStyles []*Style) error {
	if s.workbook.closed {
		return ErrWorkbookClosed
	}

	// Column widths can only be set before the first row is streamed
	if s.currentRow == 1 {
		for i, cs := range cellStyles {
			if cs != nil && cs.Width > 0 {
				if err := s.stream.SetColWidth(i+1, i+1, cs.Width); err != nil {
					return err
				}
			}
		}
	}

	row := make([]interface{}, len(values))
	for i, val := range values {
		var cs *Style
		if i < len(cellStyles) {
			cs = cellStyles[i]
		}
		sid, err := s.workbook.styleID(Merge(rowStyle, cs))
		if err != nil {
			return err
		}
		row[i] = excelize.Cell{Value: val, StyleID: sid}
	}

	var opts []excelize.RowOpts
	if !rowStyle.IsZero() {
		sid, err := s.workbook.styleID(rowStyle)
		if err != nil {
			return err
		}
		opts = append(opts, excelize.RowOpts{StyleID: sid})
	}

	cell, _ := excelize.CoordinatesToCellName(1, s.currentRow)
	if err := s.stream.SetRow(cell, row, opts...); err != nil {
		return err
	}
	s.currentRow++
	return nil
}
