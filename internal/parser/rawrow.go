package parser

import (
	"bytes"
	"encoding/json"
	"strings"
)

type Field struct {
	Key   string
	Value string
}

// RawRow is the original source fields of one statement record, in the order
// they appeared. It is kept for audit only; nothing downstream of the parser
// interprets it. The zero value is ready to use.
type RawRow struct {
	fields []Field
}

// Set adds a field, or overwrites the value if the key already exists while
// keeping its original position.
func (r *RawRow) Set(key, value string) {
	for i := range r.fields {
		if r.fields[i].Key == key {
			r.fields[i].Value = value
			return
		}
	}
	r.fields = append(r.fields, Field{Key: key, Value: value})
}

func (r RawRow) Get(key string) (string, bool) {
	for _, f := range r.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// GetFold is Get with case-insensitive key comparison.
func (r RawRow) GetFold(key string) (string, bool) {
	for _, f := range r.fields {
		if strings.EqualFold(f.Key, key) {
			return f.Value, true
		}
	}
	return "", false
}

// HasFold reports whether a key exists, ignoring case.
func (r RawRow) HasFold(key string) bool {
	_, ok := r.GetFold(key)
	return ok
}

func (r RawRow) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

func (r RawRow) Len() int { return len(r.fields) }

// MarshalJSON writes the row as a JSON object with keys in insertion order.
func (r RawRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
