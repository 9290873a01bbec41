package sheetwriter

import (
	"context"
	"fmt"
	"reflect"
)

// DataProvider is a forward-only, single pass sequence of records.
type DataProvider interface {
	// Next returns the next record. ok is false once the sequence is exhausted.
	Next() (record interface{}, ok bool, err error)

	// Close releases any resources held by the provider
	Close() error
}

// ProducerFunc lazily creates a DataProvider. It is called once, when the
// export starts iterating, so cursors are only opened when they are consumed.
type ProducerFunc func() (DataProvider, error)

// CursorModel is a queryable model that can open a lazy cursor over its records.
type CursorModel interface {
	Cursor(ctx context.Context) (DataProvider, error)
}

// CursorModelFunc adapts a function to CursorModel.
type CursorModelFunc func(ctx context.Context) (DataProvider, error)

func (f CursorModelFunc) Cursor(ctx context.Context) (DataProvider, error) { return f(ctx) }

// SliceDataProvider implements DataProvider for in-memory slices and arrays
type SliceDataProvider struct {
	data       reflect.Value
	rowCount   int
	currentRow int
}

// NewSliceDataProvider creates a DataProvider for slice data
func NewSliceDataProvider(data interface{}) (*SliceDataProvider, error) {
	if data == nil {
		return nil, fmt.Errorf("data cannot be nil")
	}

	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, fmt.Errorf("data must be a slice, got %s", v.Kind())
	}

	return &SliceDataProvider{
		data:     v,
		rowCount: v.Len(),
	}, nil
}

func (p *SliceDataProvider) Next() (interface{}, bool, error) {
	if p.currentRow >= p.rowCount {
		return nil, false, nil
	}
	item := p.data.Index(p.currentRow).Interface()
	p.currentRow++
	return item, true, nil
}

// Len returns the total number of rows.
func (p *SliceDataProvider) Len() int {
	return p.rowCount
}

func (p *SliceDataProvider) Close() error {
	p.currentRow = p.rowCount
	return nil
}

// ChannelDataProvider implements DataProvider for streaming data.
// The sequence ends when the channel is closed.
type ChannelDataProvider struct {
	dataChan <-chan interface{}
	closed   bool
}

// NewChannelDataProvider creates a DataProvider for channel data
func NewChannelDataProvider(dataChan <-chan interface{}) *ChannelDataProvider {
	return &ChannelDataProvider{dataChan: dataChan}
}

func (p *ChannelDataProvider) Next() (interface{}, bool, error) {
	if p.closed {
		return nil, false, nil
	}
	item, ok := <-p.dataChan
	if !ok {
		p.closed = true
		return nil, false, nil
	}
	return item, true, nil
}

func (p *ChannelDataProvider) Close() error {
	p.closed = true
	return nil
}

// IteratorDataProvider implements DataProvider for custom iteration logic
type IteratorDataProvider struct {
	iterator func() (interface{}, bool, error)
	closer   func() error
	done     bool
}

// NewIteratorDataProvider creates a DataProvider for custom iterator functions.
// closer may be nil.
func NewIteratorDataProvider(iterator func() (interface{}, bool, error), closer func() error) *IteratorDataProvider {
	return &IteratorDataProvider{
		iterator: iterator,
		closer:   closer,
	}
}

func (p *IteratorDataProvider) Next() (interface{}, bool, error) {
	if p.done {
		return nil, false, nil
	}
	item, ok, err := p.iterator()
	if err != nil || !ok {
		p.done = true
		return nil, false, err
	}
	return item, true, nil
}

func (p *IteratorDataProvider) Close() error {
	p.done = true
	if p.closer == nil {
		return nil
	}
	closer := p.closer
	p.closer = nil
	return closer()
}
