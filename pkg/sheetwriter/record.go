package sheetwriter

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
	"unsafe"
)

// Record is an ordered key/value mapping. It is the canonical form every
// source record is normalized to before it is written as a row.
type Record struct {
	keys   []string
	values map[string]interface{}
}

// NewRecord creates an empty Record.
func NewRecord() *Record {
	return &Record{values: make(map[string]interface{})}
}

// RecordOf builds a Record from alternating key/value arguments.
// A trailing key without a value is stored as nil.
func RecordOf(kv ...interface{}) *Record {
	r := NewRecord()
	for i := 0; i < len(kv); i += 2 {
		key := toKey(kv[i])
		var val interface{}
		if i+1 < len(kv) {
			val = kv[i+1]
		}
		r.Set(key, val)
	}
	return r
}

// Set stores a value. New keys are appended, existing keys keep their position.
func (r *Record) Set(key string, value interface{}) *Record {
	if r.values == nil {
		r.values = make(map[string]interface{})
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
	return r
}

// Get returns the value stored for key.
func (r *Record) Get(key string) (interface{}, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r.values[key]
	return v, ok
}

// Has reports whether key is present.
func (r *Record) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// Keys returns the keys in insertion order.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Values returns the values in key order.
func (r *Record) Values() []interface{} {
	if r == nil {
		return nil
	}
	out := make([]interface{}, len(r.keys))
	for i, k := range r.keys {
		out[i] = r.values[k]
	}
	return out
}

// Len returns the number of fields.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Clone returns a shallow copy.
func (r *Record) Clone() *Record {
	c := NewRecord()
	if r == nil {
		return c
	}
	for _, k := range r.keys {
		c.Set(k, r.values[k])
	}
	return c
}

// ToMap returns the fields as a plain map. Order is lost.
func (r *Record) ToMap() map[string]interface{} {
	out := make(map[string]interface{}, r.Len())
	if r == nil {
		return out
	}
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// Mapper is implemented by records that know how to turn themselves into a map.
type Mapper interface {
	ToMap() map[string]interface{}
}

// OrderedMapper is implemented by records that produce an ordered Record.
type OrderedMapper interface {
	ToRecord() *Record
}

var timeType = reflect.TypeOf(time.Time{})

// maxDepth bounds nesting. Values below it are dropped.
const maxDepth = 100

// NormalizeRecord converts an arbitrary value into a Record.
//
// Supported shapes, in dispatch order: nil, *Record, OrderedMapper, Mapper,
// maps with string-like keys (sorted by key), structs (exported fields in
// declaration order, json tag names honored, embedded structs promoted),
// slices/arrays (positional keys) and scalars (single key "0"). It never
// fails; anything it cannot make sense of ends up as an empty or partial
// Record. Reference cycles are cut: a pointer, map or slice met again while
// walking its own contents becomes nil.
func NormalizeRecord(record interface{}) *Record {
	rv := reflect.ValueOf(record)
	if rv.Kind() == reflect.Ptr && rv.IsNil() {
		return NewRecord()
	}

	switch v := record.(type) {
	case nil:
		return NewRecord()
	case *Record:
		return v.Clone()
	case Record:
		return v.Clone()
	case OrderedMapper:
		return v.ToRecord().Clone()
	case Mapper:
		return recordFromMap(v.ToMap())
	case map[string]interface{}:
		return recordFromMap(v)
	}

	n := &normalizer{seen: make(map[visit]struct{})}
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return NewRecord()
		}
		if rv.Kind() == reflect.Ptr {
			n.seen[visit{rv.Pointer(), rv.Type()}] = struct{}{}
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() {
			return NewRecord()
		}
		n.seen[visit{rv.Pointer(), rv.Type()}] = struct{}{}
		return n.mapRecord(rv)
	case reflect.Struct:
		if rv.Type() == timeType {
			return NewRecord().Set("0", rv.Interface())
		}
		return n.structRecord(rv)
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return NewRecord().Set("0", string(rv.Bytes()))
		}
		if rv.Kind() == reflect.Slice && rv.Len() > 0 {
			n.seen[visit{rv.Pointer(), rv.Type()}] = struct{}{}
		}
		r := NewRecord()
		for i := 0; i < rv.Len(); i++ {
			r.Set(strconv.Itoa(i), n.coerce(rv.Index(i)))
		}
		return r
	default:
		return NewRecord().Set("0", rv.Interface())
	}
}

func recordFromMap(m map[string]interface{}) *Record {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	r := NewRecord()
	for _, k := range keys {
		r.Set(k, m[k])
	}
	return r
}

// visit identifies a reference on the current walk path. The type is part
// of the key because a struct and its first field share an address.
type visit struct {
	ptr uintptr
	typ reflect.Type
}

// normalizer walks one record. seen holds the references on the current
// path only, so shared but acyclic values are rendered every time.
type normalizer struct {
	seen  map[visit]struct{}
	depth int
}

// enter marks a reference as being walked. It reports false on a cycle.
func (n *normalizer) enter(v reflect.Value) (visit, bool) {
	key := visit{v.Pointer(), v.Type()}
	if _, ok := n.seen[key]; ok {
		return key, false
	}
	n.seen[key] = struct{}{}
	return key, true
}

func (n *normalizer) mapRecord(rv reflect.Value) *Record {
	r := NewRecord()
	if rv.IsNil() {
		return r
	}
	type entry struct {
		key string
		val reflect.Value
	}
	entries := make([]entry, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		entries = append(entries, entry{key: toKey(iter.Key().Interface()), val: iter.Value()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })
	for _, e := range entries {
		r.Set(e.key, n.coerce(e.val))
	}
	return r
}

func (n *normalizer) structRecord(rv reflect.Value) *Record {
	rv = addressable(rv)
	r := NewRecord()
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fv := rv.Field(i)
		if embedded, ok := n.embedded(field, fv); ok {
			if embedded != nil {
				for _, k := range embedded.keys {
					if !r.Has(k) {
						r.Set(k, embedded.values[k])
					}
				}
			}
			continue
		}
		// Skip unexported
		if field.PkgPath != "" {
			continue
		}
		name, omitEmpty, skip := jsonFieldName(field)
		if skip {
			continue
		}
		if omitEmpty && fv.IsZero() {
			continue
		}
		r.Set(name, n.coerce(fv))
	}
	return r
}

// embedded promotes the fields of an untagged embedded struct, or of the
// struct an embedded pointer refers to, the way encoding/json does. It
// reports false for fields that are not promoted. A nil pointer or a cycle
// promotes nothing.
func (n *normalizer) embedded(field reflect.StructField, fv reflect.Value) (*Record, bool) {
	if !field.Anonymous || field.Tag.Get("json") != "" {
		return nil, false
	}
	ft := field.Type
	if ft.Kind() == reflect.Ptr {
		ft = ft.Elem()
	}
	if ft.Kind() != reflect.Struct || ft == timeType {
		return nil, false
	}
	if n.depth >= maxDepth {
		return nil, true
	}
	n.depth++
	defer func() { n.depth-- }()

	if fv.Kind() == reflect.Ptr {
		if fv.IsNil() {
			return nil, true
		}
		key, ok := n.enter(fv)
		if !ok {
			return nil, true
		}
		defer delete(n.seen, key)
		fv = fv.Elem()
	}
	fv = readable(fv)
	if !fv.IsValid() {
		return nil, true
	}
	return n.structRecord(fv), true
}

func jsonFieldName(field reflect.StructField) (name string, omitEmpty bool, skip bool) {
	tag, ok := field.Tag.Lookup("json")
	if !ok {
		return field.Name, false, false
	}
	if tag == "-" {
		return "", false, true
	}
	parts := strings.Split(tag, ",")
	name = parts[0]
	if name == "" {
		name = field.Name
	}
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitEmpty = true
		}
	}
	return name, omitEmpty, false
}

// coerce turns nested values into plain maps and slices so a normalized
// record holds only scalars, map[string]interface{} and []interface{}.
func (n *normalizer) coerce(v reflect.Value) interface{} {
	if n.depth >= maxDepth {
		return nil
	}
	n.depth++
	defer func() { n.depth-- }()

	for v.Kind() == reflect.Interface || v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		if v.Kind() == reflect.Ptr {
			key, ok := n.enter(v)
			if !ok {
				return nil
			}
			defer delete(n.seen, key)
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil
	}
	v = readable(v)
	if !v.IsValid() {
		return nil
	}

	switch v.Kind() {
	case reflect.Struct:
		if v.Type() == timeType {
			return v.Interface()
		}
		return n.structRecord(v).ToMap()
	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		key, ok := n.enter(v)
		if !ok {
			return nil
		}
		defer delete(n.seen, key)
		return n.mapRecord(v).ToMap()
	case reflect.Slice:
		if v.IsNil() {
			return nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return string(v.Bytes())
		}
		if v.Len() > 0 {
			key, ok := n.enter(v)
			if !ok {
				return nil
			}
			defer delete(n.seen, key)
		}
		return n.list(v)
	case reflect.Array:
		return n.list(v)
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return nil
	}
	return v.Interface()
}

func (n *normalizer) list(v reflect.Value) []interface{} {
	out := make([]interface{}, v.Len())
	for i := 0; i < v.Len(); i++ {
		out[i] = n.coerce(v.Index(i))
	}
	return out
}

// readable returns v in a form whose exported parts can be read. Values
// reached through unexported embedded fields are read-only to reflect; they
// are reopened at their address. The zero Value means v cannot be read.
func readable(v reflect.Value) reflect.Value {
	if v.CanInterface() {
		return v
	}
	if v.CanAddr() {
		return reflect.NewAt(v.Type(), unsafe.Pointer(v.UnsafeAddr())).Elem()
	}
	return reflect.Value{}
}

// addressable returns an addressable copy of a struct value that is not
// addressable already, so that unexported embedded fields can be reopened.
func addressable(v reflect.Value) reflect.Value {
	if v.CanAddr() || !v.CanInterface() {
		return v
	}
	c := reflect.New(v.Type()).Elem()
	c.Set(v)
	return c
}

func toKey(k interface{}) string {
	switch v := k.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	rv := reflect.ValueOf(k)
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	}
	return fmt.Sprint(k)
}
