package sheetwriter

// PromoteMap returns a MappingFunc that replaces the nested map held under
// each of keys with its entries, sorted by key, at the position of the map.
// Promoted entries never overwrite existing top-level keys.
//
// Inferred headers are taken from records before mapping, so promoted
// columns only show up when the headings name them explicitly.
func PromoteMap(keys ...string) MappingFunc {
	return func(record interface{}) interface{} {
		rec := NormalizeRecord(record)
		for _, key := range keys {
			rec = promote(rec, key)
		}
		return rec
	}
}

func promote(rec *Record, key string) *Record {
	nested, ok := rec.Get(key)
	if !ok {
		return rec
	}
	m, ok := nested.(map[string]interface{})
	if !ok {
		return rec
	}
	inner := NormalizeRecord(m)

	out := NewRecord()
	for _, k := range rec.Keys() {
		if k != key {
			v, _ := rec.Get(k)
			out.Set(k, v)
			continue
		}
		for _, ik := range inner.Keys() {
			if rec.Has(ik) {
				continue
			}
			v, _ := inner.Get(ik)
			out.Set(ik, v)
		}
	}
	return out
}
