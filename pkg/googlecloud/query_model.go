package googlecloud

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/datastore"
	"google.golang.org/api/iterator"

	"github.com/locvowork/sheetwriter/pkg/sheetwriter"
)

// KeyField is the record key holding the entity key.
const KeyField = "__key__"

// QueryModel exports the entities returned by a datastore query.
type QueryModel struct {
	client *Client
	query  *datastore.Query
}

// QueryModel returns a model over query. Nothing is fetched until the
// cursor is read.
func (c *Client) QueryModel(query *datastore.Query) *QueryModel {
	return &QueryModel{client: c, query: query}
}

// KindModel returns a model over every entity of kind, ordered by order
// when it is not empty. A positive limit caps the number of entities.
func (c *Client) KindModel(kind, order string, limit int) *QueryModel {
	q := datastore.NewQuery(kind)
	if order != "" {
		q = q.Order(order)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	return c.QueryModel(q)
}

// Cursor runs the query.
func (m *QueryModel) Cursor(ctx context.Context) (sheetwriter.DataProvider, error) {
	if m.client == nil || m.client.ds == nil {
		return nil, fmt.Errorf("datastore model: client is nil")
	}
	if m.query == nil {
		return nil, fmt.Errorf("datastore model: query is nil")
	}
	it := m.client.ds.Run(ctx, m.query)
	return sheetwriter.NewIteratorDataProvider(func() (interface{}, bool, error) {
		var props datastore.PropertyList
		key, err := it.Next(&props)
		if errors.Is(err, iterator.Done) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("datastore query: %w", err)
		}
		return entityRecord(key, props), true, nil
	}, nil), nil
}

// entityRecord flattens an entity into a record: the key first, then the
// properties in load order. Repeated properties collapse into a slice.
func entityRecord(key *datastore.Key, props datastore.PropertyList) *sheetwriter.Record {
	rec := sheetwriter.NewRecord()
	if key != nil {
		rec.Set(KeyField, keyValue(key))
	}
	for _, p := range props {
		v := propertyValue(p.Value)
		if prev, ok := rec.Get(p.Name); ok && p.Name != KeyField {
			if list, isList := prev.([]interface{}); isList {
				rec.Set(p.Name, append(list, v))
			} else {
				rec.Set(p.Name, []interface{}{prev, v})
			}
			continue
		}
		rec.Set(p.Name, v)
	}
	return rec
}

func keyValue(key *datastore.Key) interface{} {
	if key.Name != "" {
		return key.Name
	}
	return key.ID
}

func propertyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case *datastore.Key:
		if val == nil {
			return nil
		}
		return keyValue(val)
	case *datastore.Entity:
		if val == nil {
			return nil
		}
		return entityRecord(val.Key, val.Properties).ToMap()
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = propertyValue(item)
		}
		return out
	default:
		return v
	}
}
