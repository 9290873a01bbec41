package sheetwriter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRow struct {
	header     bool
	values     []interface{}
	rowStyle   *Style
	cellStyles []*Style
}

type recordingSink struct {
	rows []recordedRow
	err  error
}

func (s *recordingSink) WriteHeader(ctx context.Context, labels []interface{}, rowStyle *Style, colStyles []*Style) error {
	if s.err != nil {
		return s.err
	}
	s.rows = append(s.rows, recordedRow{header: true, values: labels, rowStyle: rowStyle, cellStyles: colStyles})
	return nil
}

func (s *recordingSink) WriteRow(ctx context.Context, values []interface{}, rowStyle *Style, cellStyles []*Style) error {
	if s.err != nil {
		return s.err
	}
	s.rows = append(s.rows, recordedRow{values: values, rowStyle: rowStyle, cellStyles: cellStyles})
	return nil
}

func (s *recordingSink) values() [][]interface{} {
	out := make([][]interface{}, len(s.rows))
	for i, r := range s.rows {
		out[i] = r.values
	}
	return out
}

type User struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func TestWriteDataWithHeadings(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	w := New(sink).WithHeadings(HeadingsFromPairs("id", "ID", "name", "Name"), nil, nil)

	err := w.WriteData(ctx, []map[string]interface{}{
		{"id": 1, "name": "A"},
		{"id": 2, "name": "B"},
	}, nil, nil)
	require.NoError(t, err)

	require.Len(t, sink.rows, 3)
	assert.True(t, sink.rows[0].header)
	assert.Equal(t, []interface{}{"ID", "Name"}, sink.rows[0].values)
	assert.Equal(t, []interface{}{1, "A"}, sink.rows[1].values)
	assert.Equal(t, []interface{}{2, "B"}, sink.rows[2].values)
	assert.Equal(t, 3, w.Rows())
}

func TestWriteDataEmptySource(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	w := New(sink).WithHeadings(HeadingsFromLabels("id"), nil, nil)

	require.NoError(t, w.WriteData(ctx, []interface{}{}, nil, nil))
	require.NoError(t, w.WriteData(ctx, nil, nil, nil))

	assert.Empty(t, sink.rows)
	assert.Equal(t, 0, w.Rows())
}

func TestWriteDataHeaderless(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	w := New(sink)

	rows := []*Record{
		RecordOf("b", 2, "a", 1),
		RecordOf("z", "last", "y", "first", "x", nil),
	}
	require.NoError(t, w.WriteData(ctx, rows, nil, nil))

	assert.Equal(t, [][]interface{}{
		{2, 1},
		{"last", "first", nil},
	}, sink.values())
}

func TestHeaderKeysFixColumnOrder(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	w := New(sink).WithHeadings(HeadingsFromPairs("id", "ID", "name", "Name", "email", "Email"), nil, nil)

	data := []*Record{
		RecordOf("name", "A", "id", 1),
		RecordOf("email", "b@example.com", "id", 2),
	}
	require.NoError(t, w.WriteData(ctx, data, nil, nil))

	require.Len(t, sink.rows, 3)
	for _, row := range sink.rows[1:] {
		assert.Len(t, row.values, 3)
	}
	assert.Equal(t, []interface{}{1, "A", nil}, sink.rows[1].values)
	assert.Equal(t, []interface{}{2, nil, "b@example.com"}, sink.rows[2].values)
}

func TestHeadingsInferredFromFirstRecord(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	w := New(sink, WithLabelFunc(strings.ToUpper)).WithHeadings(nil, nil, nil)

	data := []User{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}}
	require.NoError(t, w.WriteData(ctx, data, nil, nil))

	assert.Equal(t, []string{"id", "name"}, w.HeaderKeys())
	assert.Equal(t, [][]interface{}{
		{"ID", "NAME"},
		{1, "A"},
		{2, "B"},
	}, sink.values())
}

func TestDuplicateHeadingKeysDropped(t *testing.T) {
	w := New(&recordingSink{}).WithHeadings([]Heading{
		{Key: "id", Label: "ID"},
		{Label: "name"},
		{Key: "id", Label: "Again"},
	}, nil, nil)

	assert.Equal(t, []string{"id", "name"}, w.HeaderKeys())
}

func TestFormatAttributes(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	w := New(sink).FormatAttributes(map[string]string{"price": "0.00"})

	require.NoError(t, w.WriteRow(ctx, RecordOf("name", "Laptop", "price", 1200.5), nil, nil))

	require.Len(t, sink.rows, 1)
	styles := sink.rows[0].cellStyles
	require.Len(t, styles, 2)
	assert.Nil(t, styles[0])
	require.NotNil(t, styles[1])
	assert.Equal(t, "0.00", styles[1].Format)
}

func TestFormatAttributesMerge(t *testing.T) {
	w := New(&recordingSink{}).
		FormatAttributes(map[string]string{"price": "0.00", "date": "yyyy-mm-dd"}).
		FormatAttributes(map[string]string{"price": "#,##0.00", "qty": "0"})

	assert.Equal(t, map[string]string{
		"price": "#,##0.00",
		"date":  "yyyy-mm-dd",
		"qty":   "0",
	}, w.AttributeFormats())
}

func TestFormatAttributesKeepCellStyles(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	bold := &Style{Font: &FontStyle{Bold: true}}
	w := New(sink).
		WithHeadings(HeadingsFromLabels("name", "price"), nil, nil).
		FormatAttributes(map[string]string{"price": "0.00"})

	data := []map[string]interface{}{{"name": "Mouse", "price": 25.0}}
	require.NoError(t, w.WriteData(ctx, data, nil, []*Style{bold, bold}))

	require.Len(t, sink.rows, 2)
	styles := sink.rows[1].cellStyles
	assert.Same(t, bold, styles[0])
	assert.Equal(t, "0.00", styles[1].Format)
	assert.True(t, styles[1].Font.Bold)
	assert.Empty(t, bold.Format)
}

func TestFormatAttributesSkipMissingKeys(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	w := New(sink).
		WithHeadings(HeadingsFromLabels("name", "price"), nil, nil).
		FormatAttributes(map[string]string{"price": "0.00"})

	data := []*Record{
		RecordOf("name", "Mouse", "price", 25.0),
		RecordOf("name", "Gift card"),
	}
	require.NoError(t, w.WriteData(ctx, data, nil, nil))

	require.Len(t, sink.rows, 3)
	assert.Equal(t, "0.00", sink.rows[1].cellStyles[1].Format)
	assert.Equal(t, []interface{}{"Gift card", nil}, sink.rows[2].values)
	assert.Nil(t, sink.rows[2].cellStyles[1])
}

func TestMappingLeavesHeaderUntouched(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	w := New(sink).
		WithHeadings(HeadingsFromPairs("id", "ID", "name", "Name"), nil, nil).
		Mapping(func(record interface{}) interface{} {
			r := NormalizeRecord(record)
			name, _ := r.Get("name")
			return r.Set("name", strings.ToUpper(name.(string)))
		})

	data := []map[string]interface{}{
		{"id": 1, "name": "alice"},
		{"id": 2, "name": "bob"},
	}
	require.NoError(t, w.WriteData(ctx, data, nil, nil))

	assert.Equal(t, [][]interface{}{
		{"ID", "Name"},
		{1, "ALICE"},
		{2, "BOB"},
	}, sink.values())
}

func TestMappingReplacedAndCleared(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	w := New(sink).
		Mapping(func(interface{}) interface{} { return RecordOf("v", "first") }).
		Mapping(func(interface{}) interface{} { return RecordOf("v", "second") })

	require.NoError(t, w.WriteData(ctx, []int{1}, nil, nil))
	w.Mapping(nil)
	require.NoError(t, w.WriteData(ctx, []int{7}, nil, nil))

	assert.Equal(t, [][]interface{}{{"second"}, {7}}, sink.values())
}

func TestWriteRowBeforeHeaderIsVerbatim(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	w := New(sink).WithHeadings(HeadingsFromLabels("a", "b"), nil, nil)

	require.NoError(t, w.WriteRow(ctx, RecordOf("b", 2, "a", 1), nil, nil))
	require.NoError(t, w.WriteRow(ctx, RecordOf("b", 4, "a", 3), nil, nil))

	assert.Equal(t, [][]interface{}{{2, 1}, {3, 4}}, sink.values())
}

func TestWriteDataProducerIsLazy(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	w := New(sink).WithHeadings(nil, nil, nil)

	calls := 0
	producer := ProducerFunc(func() (DataProvider, error) {
		calls++
		n := 0
		return NewIteratorDataProvider(func() (interface{}, bool, error) {
			n++
			if n > 3 {
				return nil, false, nil
			}
			return RecordOf("n", n), true, nil
		}, nil), nil
	})

	assert.Equal(t, 0, calls)
	require.NoError(t, w.WriteData(ctx, producer, nil, nil))
	assert.Equal(t, 1, calls)
	assert.Equal(t, [][]interface{}{{"n"}, {1}, {2}, {3}}, sink.values())
}

func TestWriteDataChannel(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	w := New(sink)

	ch := make(chan interface{}, 2)
	ch <- []interface{}{"a", 1}
	ch <- []interface{}{"b", 2}
	close(ch)

	require.NoError(t, w.WriteData(ctx, ch, nil, nil))
	assert.Equal(t, [][]interface{}{{"a", 1}, {"b", 2}}, sink.values())
}

func TestWriteDataUnsupportedSource(t *testing.T) {
	w := New(&recordingSink{})
	err := w.WriteData(context.Background(), 42, nil, nil)
	assert.True(t, errors.Is(err, ErrUnsupportedSource))
}

func TestWriteDataPropagatesSinkError(t *testing.T) {
	boom := errors.New("invalid style")
	w := New(&recordingSink{err: boom})
	err := w.WriteData(context.Background(), []int{1}, nil, nil)
	assert.ErrorIs(t, err, boom)
}

func TestWriteDataProviderErrorAndClose(t *testing.T) {
	boom := errors.New("cursor failed")
	closed := false
	n := 0
	p := NewIteratorDataProvider(func() (interface{}, bool, error) {
		n++
		if n == 2 {
			return nil, false, boom
		}
		return RecordOf("n", n), true, nil
	}, func() error {
		closed = true
		return nil
	})

	sink := &recordingSink{}
	err := New(sink).WriteData(context.Background(), p, nil, nil)
	assert.ErrorIs(t, err, boom)
	assert.True(t, closed)
	assert.Len(t, sink.rows, 1)
}

func TestWriteDataCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sink := &recordingSink{}
	err := New(sink).WriteData(ctx, []int{1, 2}, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sink.rows)
}

func TestExportModelClearsHeadings(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	w := New(sink).WithHeadings(nil, nil, nil)

	model := CursorModelFunc(func(ctx context.Context) (DataProvider, error) {
		return NewSliceDataProvider([]User{{ID: 1, Name: "A"}})
	})
	require.NoError(t, w.ExportModel(ctx, model, nil, nil))
	assert.Nil(t, w.HeaderKeys())

	w.Reset()
	require.NoError(t, w.ExportModel(ctx, model, nil, nil))

	assert.Equal(t, [][]interface{}{
		{"id", "name"},
		{1, "A"},
		{1, "A"},
	}, sink.values())
}

func TestExportModelCursorError(t *testing.T) {
	boom := errors.New("connection refused")
	w := New(&recordingSink{}).WithHeadings(nil, nil, nil)
	err := w.ExportModel(context.Background(), CursorModelFunc(func(ctx context.Context) (DataProvider, error) {
		return nil, boom
	}), nil, nil)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, w.HeaderKeys())
}

func TestResetStartsNewSession(t *testing.T) {
	w := New(&recordingSink{}, WithSessionID("fixed"))
	assert.Equal(t, "fixed", w.SessionID())
	require.NoError(t, w.WriteRow(context.Background(), []int{1}, nil, nil))
	assert.Equal(t, 1, w.Rows())

	w.Reset()
	assert.Equal(t, 0, w.Rows())
	assert.NotEqual(t, "fixed", w.SessionID())
}

func TestWriteDataSliceFunc(t *testing.T) {
	sink := &recordingSink{}
	w := New(sink)
	src := func() []interface{} { return []interface{}{RecordOf("a", 1), RecordOf("a", 2)} }
	require.NoError(t, w.WriteData(context.Background(), src, nil, nil))
	assert.Equal(t, [][]interface{}{{1}, {2}}, sink.values())
}
