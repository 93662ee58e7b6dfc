// Package document implements the untyped structured value stored in
// repository records: an insertion-ordered mapping, a sequence, or a scalar.
// Mapping key order is preserved so YAML round-trips produce stable diffs.
package document

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Kind discriminates the variants of a Document.
type Kind int

const (
	Null Kind = iota
	Mapping
	Sequence
	String
	Int
	Float
	Bool
	Bytes
	Time
)

// Document is a tagged-variant tree value. The zero value is the null scalar.
type Document struct {
	kind Kind
	str  string
	i    int64
	f    float64
	b    bool
	data []byte
	t    time.Time
	seq  []*Document
	keys []string
	vals map[string]*Document
}

// NewNull returns the null scalar.
func NewNull() *Document { return &Document{kind: Null} }

// NewMapping returns an empty insertion-ordered mapping.
func NewMapping() *Document {
	return &Document{kind: Mapping, vals: make(map[string]*Document)}
}

// NewSequence returns a sequence holding the given items.
func NewSequence(items ...*Document) *Document {
	return &Document{kind: Sequence, seq: items}
}

// NewString returns a string scalar.
func NewString(s string) *Document { return &Document{kind: String, str: s} }

// NewInt returns an integer scalar.
func NewInt(v int64) *Document { return &Document{kind: Int, i: v} }

// NewFloat returns a float scalar.
func NewFloat(v float64) *Document { return &Document{kind: Float, f: v} }

// NewBool returns a boolean scalar.
func NewBool(v bool) *Document { return &Document{kind: Bool, b: v} }

// NewBytes returns a binary scalar.
func NewBytes(v []byte) *Document { return &Document{kind: Bytes, data: v} }

// NewTime returns a timestamp scalar.
func NewTime(v time.Time) *Document { return &Document{kind: Time, t: v} }

// Kind returns the variant tag of the document.
func (d *Document) Kind() Kind { return d.kind }

// IsMapping reports whether the document is a mapping.
func (d *Document) IsMapping() bool { return d.kind == Mapping }

// Len returns the number of entries in a mapping or items in a sequence,
// and zero for scalars.
func (d *Document) Len() int {
	switch d.kind {
	case Mapping:
		return len(d.keys)
	case Sequence:
		return len(d.seq)
	default:
		return 0
	}
}

// Set stores a mapping entry. Keys keep the position of their first insertion.
func (d *Document) Set(key string, v *Document) {
	if d.vals == nil {
		d.vals = make(map[string]*Document)
	}
	if _, ok := d.vals[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.vals[key] = v
}

// Get returns the mapping entry for key.
func (d *Document) Get(key string) (*Document, bool) {
	v, ok := d.vals[key]
	return v, ok
}

// Delete removes a mapping entry if present.
func (d *Document) Delete(key string) {
	if _, ok := d.vals[key]; !ok {
		return
	}
	delete(d.vals, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the mapping keys in insertion order.
func (d *Document) Keys() []string {
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// Append adds items to a sequence.
func (d *Document) Append(items ...*Document) {
	d.seq = append(d.seq, items...)
}

// Items returns the sequence items in order.
func (d *Document) Items() []*Document {
	out := make([]*Document, len(d.seq))
	copy(out, d.seq)
	return out
}

// Scalar accessors return the variant's zero value when the kind differs.

func (d *Document) StringValue() string  { return d.str }
func (d *Document) IntValue() int64      { return d.i }
func (d *Document) FloatValue() float64  { return d.f }
func (d *Document) BoolValue() bool      { return d.b }
func (d *Document) BytesValue() []byte   { return d.data }
func (d *Document) TimeValue() time.Time { return d.t }

// Equal reports semantic equality. Mapping comparison is order-insensitive:
// property-list dictionaries carry no key order, so two documents that differ
// only in insertion order represent the same record.
func (d *Document) Equal(other *Document) bool {
	if d == nil || other == nil {
		return d == other
	}
	if d.kind != other.kind {
		return false
	}
	switch d.kind {
	case Null:
		return true
	case Mapping:
		if len(d.keys) != len(other.keys) {
			return false
		}
		for k, v := range d.vals {
			ov, ok := other.vals[k]
			if !ok || !v.Equal(ov) {
				return false
			}
		}
		return true
	case Sequence:
		if len(d.seq) != len(other.seq) {
			return false
		}
		for i, v := range d.seq {
			if !v.Equal(other.seq[i]) {
				return false
			}
		}
		return true
	case String:
		return d.str == other.str
	case Int:
		return d.i == other.i
	case Float:
		return d.f == other.f || (math.IsNaN(d.f) && math.IsNaN(other.f))
	case Bool:
		return d.b == other.b
	case Bytes:
		return bytes.Equal(d.data, other.data)
	case Time:
		return d.t.Equal(other.t)
	}
	return false
}

// FromNative converts a decoded native value (what a property-list decoder
// produces: maps, slices, strings, numbers, bools, []byte, time.Time) into a
// Document. Mapping order is whatever Go map iteration yields.
func FromNative(v interface{}) (*Document, error) {
	switch t := v.(type) {
	case nil:
		return NewNull(), nil
	case bool:
		return NewBool(t), nil
	case string:
		return NewString(t), nil
	case int:
		return NewInt(int64(t)), nil
	case int8:
		return NewInt(int64(t)), nil
	case int16:
		return NewInt(int64(t)), nil
	case int32:
		return NewInt(int64(t)), nil
	case int64:
		return NewInt(t), nil
	case uint:
		return NewInt(int64(t)), nil
	case uint8:
		return NewInt(int64(t)), nil
	case uint16:
		return NewInt(int64(t)), nil
	case uint32:
		return NewInt(int64(t)), nil
	case uint64:
		return NewInt(int64(t)), nil
	case float32:
		return NewFloat(float64(t)), nil
	case float64:
		return NewFloat(t), nil
	case []byte:
		return NewBytes(t), nil
	case time.Time:
		return NewTime(t), nil
	case []interface{}:
		seq := NewSequence()
		for _, item := range t {
			child, err := FromNative(item)
			if err != nil {
				return nil, err
			}
			seq.Append(child)
		}
		return seq, nil
	case map[string]interface{}:
		m := NewMapping()
		for k, item := range t {
			child, err := FromNative(item)
			if err != nil {
				return nil, err
			}
			m.Set(k, child)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("document: unsupported native type %T", v)
	}
}

// ToNative converts the document into plain Go values suitable for a
// property-list encoder. Mapping order is not carried across.
func (d *Document) ToNative() interface{} {
	switch d.kind {
	case Mapping:
		out := make(map[string]interface{}, len(d.keys))
		for _, k := range d.keys {
			out[k] = d.vals[k].ToNative()
		}
		return out
	case Sequence:
		out := make([]interface{}, len(d.seq))
		for i, v := range d.seq {
			out[i] = v.ToNative()
		}
		return out
	case String:
		return d.str
	case Int:
		return d.i
	case Float:
		return d.f
	case Bool:
		return d.b
	case Bytes:
		return d.data
	case Time:
		return d.t
	default:
		return nil
	}
}

// MarshalJSON renders the document with mapping keys in insertion order.
// Binary scalars become base64 strings, timestamps RFC 3339 strings.
func (d *Document) MarshalJSON() ([]byte, error) {
	switch d.kind {
	case Mapping:
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range d.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			vb, err := d.vals[k].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(vb)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	case Sequence:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, v := range d.seq {
			if i > 0 {
				buf.WriteByte(',')
			}
			vb, err := v.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(vb)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case String:
		return json.Marshal(d.str)
	case Int:
		return []byte(strconv.FormatInt(d.i, 10)), nil
	case Float:
		return json.Marshal(d.f)
	case Bool:
		return []byte(strconv.FormatBool(d.b)), nil
	case Bytes:
		return json.Marshal(base64.StdEncoding.EncodeToString(d.data))
	case Time:
		return json.Marshal(d.t)
	default:
		return []byte("null"), nil
	}
}
