package sheetwriter

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrUnsupportedSource is returned by WriteData for sources it cannot iterate.
var ErrUnsupportedSource = errors.New("unsupported data source")

// MappingFunc transforms a raw record before it is normalized into a row.
type MappingFunc func(record interface{}) interface{}

// Session is the state of one export run.
type Session struct {
	ID string
	// Rows counts every row written in the run, header included.
	Rows int
}

func newSession() *Session {
	return &Session{ID: uuid.New().String()}
}

// Option configures a SheetWriter.
type Option func(*SheetWriter)

// WithLabelFunc sets the transform applied to keys when header labels are
// inferred from the first record.
func WithLabelFunc(fn func(key string) string) Option {
	return func(w *SheetWriter) {
		w.labelFunc = fn
	}
}

// WithSessionID overrides the generated id of the first session.
func WithSessionID(id string) Option {
	return func(w *SheetWriter) {
		if id != "" {
			w.session.ID = id
		}
	}
}

// SheetWriter streams records into a Sink. It normalizes every record, keeps
// the column order of the header once one is known, applies per-attribute
// number formats and an optional mapping hook.
//
// A SheetWriter is not safe for concurrent use.
type SheetWriter struct {
	sink      Sink
	headings  *headingSpec
	formats   map[string]string
	mapping   MappingFunc
	labelFunc func(string) string
	session   *Session
}

// New creates a SheetWriter writing to sink.
func New(sink Sink, opts ...Option) *SheetWriter {
	w := &SheetWriter{
		sink:    sink,
		formats: make(map[string]string),
		session: newSession(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WithHeadings enables the header row. With no headings, keys and labels are
// taken from the first record of the next export.
func (w *SheetWriter) WithHeadings(headings []Heading, rowStyle *Style, colStyles []*Style) *SheetWriter {
	spec, dropped := newHeadingSpec(headings, rowStyle, colStyles)
	if len(dropped) > 0 {
		log.Warn().
			Str("session", w.session.ID).
			Strs("keys", dropped).
			Msg("duplicate heading keys ignored")
	}
	w.headings = spec
	return w
}

// ClearHeadings disables the header row.
func (w *SheetWriter) ClearHeadings() *SheetWriter {
	w.headings = nil
	return w
}

// HeaderKeys returns the header keys known so far, nil when headings are off.
func (w *SheetWriter) HeaderKeys() []string {
	if w.headings == nil {
		return nil
	}
	out := make([]string, len(w.headings.keys))
	copy(out, w.headings.keys)
	return out
}

// FormatAttributes merges number formats by field key. Later calls override
// keys they share with earlier ones; other keys are kept.
func (w *SheetWriter) FormatAttributes(formats map[string]string) *SheetWriter {
	for k, v := range formats {
		w.formats[k] = v
	}
	return w
}

// AttributeFormats returns a copy of the configured formats.
func (w *SheetWriter) AttributeFormats() map[string]string {
	out := make(map[string]string, len(w.formats))
	for k, v := range w.formats {
		out[k] = v
	}
	return out
}

// Mapping installs fn as the record mapping hook. nil removes it.
func (w *SheetWriter) Mapping(fn MappingFunc) *SheetWriter {
	w.mapping = fn
	return w
}

// Reset starts a new session. Headings, formats and mapping are kept.
func (w *SheetWriter) Reset() *SheetWriter {
	w.session = newSession()
	return w
}

// Rows returns the number of rows written in the current session.
func (w *SheetWriter) Rows() int {
	return w.session.Rows
}

// SessionID returns the id of the current session.
func (w *SheetWriter) SessionID() string {
	return w.session.ID
}

// WriteRow writes one row. values may be anything NormalizeRecord accepts.
//
// Once header keys exist and a row has been written in the session, values
// are reordered into header key order with nil for missing keys. Otherwise
// they are written in their own order.
func (w *SheetWriter) WriteRow(ctx context.Context, values interface{}, rowStyle *Style, cellStyles []*Style) error {
	rec := NormalizeRecord(values)

	var keys []string
	var row []interface{}
	if w.session.Rows > 0 && w.headings != nil && len(w.headings.keys) > 0 {
		keys = w.headings.keys
		row = make([]interface{}, len(keys))
		for i, k := range keys {
			if v, ok := rec.Get(k); ok {
				row[i] = v
			}
		}
	} else {
		keys = rec.Keys()
		row = rec.Values()
	}

	if len(w.formats) > 0 {
		cellStyles = w.applyFormats(rec, keys, cellStyles)
	}

	if err := w.sink.WriteRow(ctx, row, rowStyle, cellStyles); err != nil {
		return fmt.Errorf("write row %d: %w", w.session.Rows+1, err)
	}
	w.session.Rows++
	return nil
}

// applyFormats returns a copy of cellStyles with the attribute format set on
// every position whose key has one and is present in rec. Columns a row
// lacks keep their plain style.
func (w *SheetWriter) applyFormats(rec *Record, keys []string, cellStyles []*Style) []*Style {
	size := len(cellStyles)
	if len(keys) > size {
		size = len(keys)
	}
	out := make([]*Style, size)
	copy(out, cellStyles)
	for n, key := range keys {
		if !rec.Has(key) {
			continue
		}
		if format, ok := w.formats[key]; ok {
			out[n] = out[n].WithFormat(format)
		}
	}
	return out
}

// WriteData writes every record of source.
//
// Accepted sources: slices and arrays, DataProvider, receive channels of
// interface{}, ProducerFunc (or a plain func() (DataProvider, error)),
// func() []interface{} and func() interface{} returning any of the former.
// Producers are called once and iterated lazily; providers opened here are
// closed when iteration ends. When headings are enabled, the header row is
// written before the first record of the session.
func (w *SheetWriter) WriteData(ctx context.Context, source interface{}, rowStyle *Style, colStyles []*Style) error {
	provider, err := w.open(source)
	if err != nil {
		return err
	}
	if provider == nil {
		return nil
	}
	defer provider.Close()

	logger := zerolog.Ctx(ctx).With().Str("session", w.session.ID).Logger()
	written := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		record, ok, err := provider.Next()
		if err != nil {
			return fmt.Errorf("read record %d: %w", written+1, err)
		}
		if !ok {
			break
		}

		if w.session.Rows == 0 && w.headings != nil {
			if err := w.writeHeader(ctx, record); err != nil {
				return err
			}
		}
		if w.mapping != nil {
			record = w.mapping(record)
		}
		if err := w.WriteRow(ctx, record, rowStyle, colStyles); err != nil {
			return err
		}
		written++
	}

	logger.Debug().Int("records", written).Int("rows", w.session.Rows).Msg("data written")
	return nil
}

// ExportModel writes every record of the model's cursor, then clears the
// headings so the next export starts without a header.
func (w *SheetWriter) ExportModel(ctx context.Context, model CursorModel, rowStyle *Style, colStyles []*Style) error {
	defer w.ClearHeadings()
	return w.WriteData(ctx, ProducerFunc(func() (DataProvider, error) {
		return model.Cursor(ctx)
	}), rowStyle, colStyles)
}

func (w *SheetWriter) writeHeader(ctx context.Context, first interface{}) error {
	w.headings.resolve(NormalizeRecord(first), w.labelFunc)
	if err := w.sink.WriteHeader(ctx, w.headings.labelValues(), w.headings.rowStyle, w.headings.colStyles); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	w.session.Rows++
	return nil
}

// open turns a source into a provider. A nil provider and nil error means
// there is nothing to write.
func (w *SheetWriter) open(source interface{}) (DataProvider, error) {
	switch src := source.(type) {
	case nil:
		return nil, nil
	case DataProvider:
		return src, nil
	case ProducerFunc:
		return callProducer(src)
	case func() (DataProvider, error):
		return callProducer(src)
	case func() interface{}:
		return w.open(src())
	case func() []interface{}:
		return NewSliceDataProvider(src())
	case <-chan interface{}:
		return NewChannelDataProvider(src), nil
	case chan interface{}:
		return NewChannelDataProvider(src), nil
	}

	v := reflect.ValueOf(source)
	if v.Kind() == reflect.Ptr && !v.IsNil() {
		v = v.Elem()
	}
	if v.Kind() == reflect.Slice || v.Kind() == reflect.Array {
		return NewSliceDataProvider(v.Interface())
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedSource, source)
}

func callProducer(fn func() (DataProvider, error)) (DataProvider, error) {
	p, err := fn()
	if err != nil {
		return nil, fmt.Errorf("open data source: %w", err)
	}
	return p, nil
}
