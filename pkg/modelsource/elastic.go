package modelsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/olivere/elastic/v7"

	"github.com/locvowork/sheetwriter/pkg/sheetwriter"
)

const (
	defaultPageSize  = 500
	defaultKeepAlive = "5m"
	// IDField is the record key holding the document id.
	IDField = "_id"
)

// ElasticModel exports the documents matching a query using the scroll API.
// Each hit becomes a Record: the document id first, then the _source fields
// sorted by name.
type ElasticModel struct {
	Client    *elastic.Client
	Index     string
	Query     elastic.Query
	SortField string
	PageSize  int
	KeepAlive string
}

// NewElasticModel creates an ElasticModel over every document of index.
func NewElasticModel(client *elastic.Client, index string) *ElasticModel {
	return &ElasticModel{Client: client, Index: index}
}

// Cursor opens a scroll. No request is sent until the first record is read.
func (m *ElasticModel) Cursor(ctx context.Context) (sheetwriter.DataProvider, error) {
	if m.Client == nil {
		return nil, fmt.Errorf("elastic model: client is nil")
	}
	size := m.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	keepAlive := m.KeepAlive
	if keepAlive == "" {
		keepAlive = defaultKeepAlive
	}

	svc := m.Client.Scroll(m.Index).Size(size).KeepAlive(keepAlive)
	if m.Query != nil {
		svc = svc.Query(m.Query)
	}
	if m.SortField != "" {
		svc = svc.Sort(m.SortField, true)
	}

	sc := &scrollCursor{ctx: ctx, svc: svc}
	return sheetwriter.NewIteratorDataProvider(sc.next, sc.close), nil
}

type scrollCursor struct {
	ctx     context.Context
	svc     *elastic.ScrollService
	page    []*elastic.SearchHit
	started bool
	done    bool
}

func (c *scrollCursor) next() (interface{}, bool, error) {
	for len(c.page) == 0 {
		if c.done {
			return nil, false, nil
		}
		res, err := c.svc.Do(c.ctx)
		c.started = true
		if errors.Is(err, io.EOF) {
			c.done = true
			return nil, false, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("scroll: %w", err)
		}
		if res.Hits == nil || len(res.Hits.Hits) == 0 {
			c.done = true
			return nil, false, nil
		}
		c.page = res.Hits.Hits
	}

	hit := c.page[0]
	c.page = c.page[1:]
	return hitRecord(hit), true, nil
}

func (c *scrollCursor) close() error {
	if !c.started {
		return nil
	}
	return c.svc.Clear(context.Background())
}

func hitRecord(hit *elastic.SearchHit) *sheetwriter.Record {
	rec := sheetwriter.NewRecord().Set(IDField, hit.Id)
	if len(hit.Source) == 0 {
		return rec
	}
	var source map[string]interface{}
	if err := json.Unmarshal(hit.Source, &source); err != nil {
		// unparseable documents are exported with their id only
		return rec
	}
	fields := sheetwriter.NormalizeRecord(source)
	for _, k := range fields.Keys() {
		v, _ := fields.Get(k)
		rec.Set(k, v)
	}
	return rec
}
