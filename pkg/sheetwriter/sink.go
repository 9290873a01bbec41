package sheetwriter

import "context"

// Sink is the row/header writer a SheetWriter drives. Implementations append
// to an in-progress document and are not expected to be safe for concurrent use.
type Sink interface {
	// WriteHeader appends a header row.
	WriteHeader(ctx context.Context, labels []interface{}, rowStyle *Style, colStyles []*Style) error
	// WriteRow appends a data row. cellStyles is positional and may be shorter
	// than values or contain nil entries.
	WriteRow(ctx context.Context, values []interface{}, rowStyle *Style, cellStyles []*Style) error
}
