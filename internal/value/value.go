// Package value models the schema-less result fields returned by the
// hunting backend. A field is a string, a number, a list of strings, or
// absent; different rows from the same query may expose different field
// sets, so rows are sparse, ordered field collections rather than structs.
package value

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind discriminates the closed Value variant.
type Kind int

const (
	Absent Kind = iota
	String
	Number
	List
)

// Value is one backend result field.
type Value struct {
	kind Kind
	str  string
	num  float64
	list []string
}

// Str returns a string Value.
func Str(s string) Value { return Value{kind: String, str: s} }

// Num returns a numeric Value.
func Num(f float64) Value { return Value{kind: Number, num: f} }

// Strings returns a list-of-strings Value.
func Strings(ss ...string) Value { return Value{kind: List, list: ss} }

// None returns the absent Value.
func None() Value { return Value{} }

// Kind reports the variant of v.
func (v Value) Kind() Kind { return v.kind }

// Text flattens v into a single cell string: lists join with ", ",
// numbers render without a trailing fraction, absent renders empty.
func (v Value) Text() string {
	switch v.kind {
	case String:
		return v.str
	case Number:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case List:
		return strings.Join(v.list, ", ")
	default:
		return ""
	}
}

// Row is a sparse field collection that remembers field insertion order.
// Field order matters: the normalizer builds its column union in
// first-seen order, which must be reproducible for identical input.
type Row struct {
	names []string
	vals  map[string]Value
}

// NewRow returns an empty Row.
func NewRow() *Row {
	return &Row{vals: make(map[string]Value)}
}

// Set stores a field. The first Set of a name fixes its position;
// later Sets overwrite the value in place.
func (r *Row) Set(name string, v Value) *Row {
	if _, ok := r.vals[name]; !ok {
		r.names = append(r.names, name)
	}
	r.vals[name] = v
	return r
}

// Get returns the value for name and whether the field is present.
func (r *Row) Get(name string) (Value, bool) {
	if r == nil {
		return None(), false
	}
	v, ok := r.vals[name]
	return v, ok
}

// Fields returns the field names in insertion order.
func (r *Row) Fields() []string {
	if r == nil {
		return nil
	}
	return r.names
}

// Len returns the number of fields.
func (r *Row) Len() int {
	if r == nil {
		return 0
	}
	return len(r.names)
}

// FromAny converts a JSON-decoded interface value into a Value.
// Unknown shapes stringify via fmt so no backend field is ever dropped.
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return None()
	case string:
		return Str(t)
	case float64:
		return Num(t)
	case int:
		return Num(float64(t))
	case int64:
		return Num(float64(t))
	case bool:
		return Str(strconv.FormatBool(t))
	case []any:
		elems := make([]string, len(t))
		for i, e := range t {
			elems[i] = FromAny(e).Text()
		}
		return Strings(elems...)
	case []string:
		return Strings(t...)
	default:
		return Str(fmt.Sprint(t))
	}
}

// RowFromMap converts a JSON-decoded object into a Row. Go maps carry no
// order, so fields are inserted in sorted-name order to stay
// deterministic. Backends that know the real column order (e.g. from a
// schema header) should build rows with Set directly instead.
func RowFromMap(obj map[string]any) *Row {
	names := make([]string, 0, len(obj))
	for k := range obj {
		names = append(names, k)
	}
	sort.Strings(names)

	row := NewRow()
	for _, k := range names {
		row.Set(k, FromAny(obj[k]))
	}
	return row
}
