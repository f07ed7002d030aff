// Package reply models the untrusted reply a gateway hands back and reduces it
// to a single display string.
package reply

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

var ErrInvalidJSON = errors.New("reply is not valid json")

// Value is a raw gateway reply. The zero Value is Null.
type Value struct {
	kind   Kind
	text   string
	flag   bool
	fields map[string]Value
	items  []Value
}

func Null() Value {
	return Value{}
}

func String(s string) Value {
	return Value{kind: KindString, text: s}
}

// Number holds a JSON number literal as written, e.g. "42" or "1.5e3".
func Number(literal string) Value {
	return Value{kind: KindNumber, text: literal}
}

func Bool(b bool) Value {
	return Value{kind: KindBool, flag: b}
}

func Object(fields map[string]Value) Value {
	if fields == nil {
		fields = map[string]Value{}
	}
	return Value{kind: KindObject, fields: fields}
}

func Array(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindArray, items: items}
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// Field returns the named field of an object. Non-objects have no fields.
func (v Value) Field(name string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	f, ok := v.fields[name]
	return f, ok
}

// Path walks nested object fields.
func (v Value) Path(names ...string) (Value, bool) {
	cur := v
	for _, name := range names {
		next, ok := cur.Field(name)
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return cur, true
}

func (v Value) Items() []Value {
	if v.kind != KindArray {
		return nil
	}
	return v.items
}

// Truthy mirrors the loose truthiness gateways rely on: null, "", false and 0 are falsy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindString:
		return v.text != ""
	case KindBool:
		return v.flag
	case KindNumber:
		f, err := strconv.ParseFloat(v.text, 64)
		return err != nil || f != 0
	}
	return true
}

func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.text
	case KindNumber:
		return json.Number(v.text)
	case KindBool:
		return v.flag
	case KindObject:
		m := make(map[string]any, len(v.fields))
		for k, f := range v.fields {
			m[k] = f.Interface()
		}
		return m
	case KindArray:
		s := make([]any, len(v.items))
		for i, item := range v.items {
			s[i] = item.Interface()
		}
		return s
	}
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	return encode(v.Interface())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := FromJSON(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// FromJSON parses a complete JSON document. Trailing data is rejected.
func FromJSON(data []byte) (Value, error) {
	if !json.Valid(data) {
		return Value{}, ErrInvalidJSON
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Value{}, fmt.Errorf("decode reply: %w", err)
	}
	return FromAny(raw)
}

// FromAny converts decoded JSON or an arbitrary Go value. Values outside the
// JSON data model go through a marshal round trip.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return Number(t.String()), nil
	case float64:
		return Number(strconv.FormatFloat(t, 'f', -1, 64)), nil
	case int:
		return Number(strconv.Itoa(t)), nil
	case int64:
		return Number(strconv.FormatInt(t, 10)), nil
	case map[string]any:
		fields := make(map[string]Value, len(t))
		for k, raw := range t {
			f, err := FromAny(raw)
			if err != nil {
				return Value{}, err
			}
			fields[k] = f
		}
		return Object(fields), nil
	case []any:
		items := make([]Value, len(t))
		for i, raw := range t {
			item, err := FromAny(raw)
			if err != nil {
				return Value{}, err
			}
			items[i] = item
		}
		return Array(items...), nil
	case json.RawMessage:
		return FromJSON(t)
	}

	data, err := json.Marshal(x)
	if err != nil {
		return Value{}, fmt.Errorf("marshal reply: %w", err)
	}
	return FromJSON(data)
}

func encode(x any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(x); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
