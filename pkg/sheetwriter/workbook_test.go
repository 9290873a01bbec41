package sheetwriter

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type Product struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
}

func TestWorkbookExport(t *testing.T) {
	ctx := context.Background()
	buf := new(bytes.Buffer)
	wb := NewWorkbook(buf)

	sheet, err := wb.AddSheet("Products")
	require.NoError(t, err)

	w := New(sheet).
		WithHeadings(HeadingsFromPairs("name", "Product", "price", "Price", "category", "Category"), nil, []*Style{{Width: 30}}).
		FormatAttributes(map[string]string{"price": "0.00"})

	data := []Product{
		{"Laptop", 1200.5, "electronics"},
		{"Mouse", 25, "electronics"},
	}
	require.NoError(t, w.WriteData(ctx, data, nil, nil))
	assert.Equal(t, 3, sheet.RowsWritten())
	require.NoError(t, wb.Close())

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Products"}, f.GetSheetList())

	rows, err := f.GetRows("Products")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Product", "Price", "Category"}, rows[0])
	assert.Equal(t, "Laptop", rows[1][0])
	assert.Equal(t, "1200.50", rows[1][1])
	assert.Equal(t, "25.00", rows[2][1])

	width, err := f.GetColWidth("Products", "A")
	require.NoError(t, err)
	assert.Equal(t, 30.0, width)

	headerStyleID, err := f.GetCellStyle("Products", "A1")
	require.NoError(t, err)
	dataStyleID, err := f.GetCellStyle("Products", "B2")
	require.NoError(t, err)
	assert.NotZero(t, headerStyleID)
	assert.NotZero(t, dataStyleID)
	assert.NotEqual(t, headerStyleID, dataStyleID)
}

func TestWorkbookMultipleSheets(t *testing.T) {
	ctx := context.Background()
	buf := new(bytes.Buffer)
	wb := NewWorkbook(buf)

	first, err := wb.AddSheet("First")
	require.NoError(t, err)
	second, err := wb.AddSheet("Second")
	require.NoError(t, err)

	_, err = wb.AddSheet("First")
	assert.True(t, errors.Is(err, ErrSheetExists))

	require.NoError(t, New(first).WriteData(ctx, [][]interface{}{{"a", 1}}, nil, nil))
	require.NoError(t, New(second).WriteData(ctx, [][]interface{}{{"b", 2}, {"c", 3}}, nil, nil))
	assert.Equal(t, []string{"First", "Second"}, wb.SheetNames())
	require.NoError(t, wb.Close())
	assert.ErrorIs(t, wb.Close(), ErrWorkbookClosed)

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"First", "Second"}, f.GetSheetList())
	rows, err := f.GetRows("Second")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"b", "2"}, {"c", "3"}}, rows)
}

func TestWorkbookRowStyle(t *testing.T) {
	ctx := context.Background()
	buf := new(bytes.Buffer)
	wb := NewWorkbook(buf)
	sheet, err := wb.AddSheet("Sheet1")
	require.NoError(t, err)

	fill := &Style{Fill: &FillStyle{Color: "#FFFF00"}}
	require.NoError(t, New(sheet).WriteRow(ctx, RecordOf("a", "x", "b", "y"), fill, nil))
	require.NoError(t, wb.Close())

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	first, err := f.GetCellStyle("Sheet1", "A1")
	require.NoError(t, err)
	second, err := f.GetCellStyle("Sheet1", "B1")
	require.NoError(t, err)
	assert.NotZero(t, first)
	assert.Equal(t, first, second)
}

func TestWorkbookWriteAfterClose(t *testing.T) {
	wb := NewWorkbook(new(bytes.Buffer))
	sheet, err := wb.AddSheet("Data")
	require.NoError(t, err)
	require.NoError(t, wb.Close())

	err = sheet.WriteRow(context.Background(), []interface{}{1}, nil, nil)
	assert.ErrorIs(t, err, ErrWorkbookClosed)
	_, err = wb.AddSheet("Other")
	assert.ErrorIs(t, err, ErrWorkbookClosed)
}

func TestWorkbookDiscard(t *testing.T) {
	buf := new(bytes.Buffer)
	wb := NewWorkbook(buf)
	_, err := wb.AddSheet("Bad:Name")
	require.Error(t, err)

	require.NoError(t, wb.Discard())
	assert.Zero(t, buf.Len())
	assert.ErrorIs(t, wb.Close(), ErrWorkbookClosed)
	assert.ErrorIs(t, wb.Discard(), ErrWorkbookClosed)
}

func TestCSVSink(t *testing.T) {
	ctx := context.Background()
	buf := new(bytes.Buffer)
	sink := NewCSVSink(buf)

	w := New(sink).WithHeadings(HeadingsFromPairs("id", "ID", "name", "Name", "note", "Note"), nil, nil)
	data := []map[string]interface{}{
		{"id": 1, "name": "A, Inc.", "note": "x"},
		{"id": 2, "name": "B"},
	}
	require.NoError(t, w.WriteData(ctx, data, nil, nil))
	require.NoError(t, sink.Flush())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{
		"ID,Name,Note",
		`1,"A, Inc.",x`,
		"2,B,",
	}, lines)
	assert.Equal(t, 3, sink.RowsWritten())
}
