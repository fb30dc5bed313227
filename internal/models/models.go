// Package models holds the decoded form of a JSON document.
//
// Value is a tagged union over the six JSON kinds. Unlike the
// map[string]interface{} that encoding/json produces, object members keep the
// order they had in the source text, which the tree view and the persisted
// configuration both depend on.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mcncl/treedit/internal/errors"
)

// Kind is the runtime shape of a JSON value.
type Kind string

const (
	KindNull    Kind = "null"
	KindBoolean Kind = "boolean"
	KindNumber  Kind = "number"
	KindString  Kind = "string"
	KindObject  Kind = "object"
	KindArray   Kind = "array"
)

// ParseKind returns the Kind named by s.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindNull, KindBoolean, KindNumber, KindString, KindObject, KindArray:
		return k, nil
	}
	return "", fmt.Errorf("unknown kind %q", s)
}

// IsContainer reports whether values of this kind have children.
func (k Kind) IsContainer() bool {
	return k == KindObject || k == KindArray
}

// IsScalar reports whether values of this kind are leaves. Null counts as a
// scalar.
func (k Kind) IsScalar() bool {
	return !k.IsContainer()
}

// Member is one key/value pair of an object.
type Member struct {
	Key   string
	Value Value
}

// Value is an immutable JSON value. The zero Value is null.
type Value struct {
	kind    Kind
	boolean bool
	text    string // number literal or string contents
	elems   []Value
	members []Member
}

// Null returns the JSON null value.
func Null() Value { return Value{kind: KindNull} }

// Bool returns a JSON boolean.
func Bool(b bool) Value { return Value{kind: KindBoolean, boolean: b} }

// Number returns a JSON number. The literal is kept as written so that
// "1.0" and "1e3" survive a round trip unchanged.
func Number(n json.Number) Value { return Value{kind: KindNumber, text: string(n)} }

// String returns a JSON string.
func String(s string) Value { return Value{kind: KindString, text: s} }

// Array returns a JSON array holding elems. A nil elems is an empty array.
func Array(elems ...Value) Value {
	if elems == nil {
		elems = []Value{}
	}
	return Value{kind: KindArray, elems: elems}
}

// Object returns a JSON object with members in the given order.
func Object(members ...Member) Value {
	if members == nil {
		members = []Member{}
	}
	return Value{kind: KindObject, members: members}
}

// Kind returns the kind of v.
func (v Value) Kind() Kind {
	if v.kind == "" {
		return KindNull
	}
	return v.kind
}

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.Kind() == KindNull }

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) {
	return v.boolean, v.kind == KindBoolean
}

// AsNumber returns the number literal held by v.
func (v Value) AsNumber() (json.Number, bool) {
	return json.Number(v.text), v.kind == KindNumber
}

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) {
	return v.text, v.kind == KindString
}

// Elements returns the elements of an array, or nil for any other kind.
func (v Value) Elements() []Value { return v.elems }

// Members returns the members of an object, or nil for any other kind.
func (v Value) Members() []Member { return v.members }

// Len returns the number of children of a container, or 0.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.elems)
	case KindObject:
		return len(v.members)
	}
	return 0
}

// Text returns the editable text form of a scalar: strings unquoted, numbers
// as their literal, booleans as true/false and null as "null". Containers
// return their compact JSON encoding.
func (v Value) Text() string {
	switch v.Kind() {
	case KindNull:
		return "null"
	case KindBoolean:
		if v.boolean {
			return "true"
		}
		return "false"
	case KindNumber, KindString:
		return v.text
	}
	data, err := v.MarshalJSON()
	if err != nil {
		return ""
	}
	return string(data)
}

// String implements fmt.Stringer with the JSON encoding of v.
func (v Value) String() string {
	data, err := v.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<invalid %s>", v.Kind())
	}
	return string(data)
}

// Equal reports whether v and other are the same JSON value. Numbers compare
// by literal, object members by position.
func (v Value) Equal(other Value) bool {
	if v.Kind() != other.Kind() {
		return false
	}
	switch v.Kind() {
	case KindNull:
		return true
	case KindBoolean:
		return v.boolean == other.boolean
	case KindNumber, KindString:
		return v.text == other.text
	case KindArray:
		if len(v.elems) != len(other.elems) {
			return false
		}
		for i := range v.elems {
			if !v.elems[i].Equal(other.elems[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.members) != len(other.members) {
			return false
		}
		for i := range v.members {
			if v.members[i].Key != other.members[i].Key || !v.members[i].Value.Equal(other.members[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}

// MarshalJSON implements json.Marshaler, writing object members in order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.Kind() {
	case KindNull:
		buf.WriteString("null")
	case KindBoolean:
		buf.WriteString(v.Text())
	case KindNumber:
		if !json.Valid([]byte(v.text)) {
			return fmt.Errorf("invalid number literal %q", v.text)
		}
		buf.WriteString(v.text)
	case KindString:
		data, err := json.Marshal(v.text)
		if err != nil {
			return err
		}
		buf.Write(data)
	case KindArray:
		buf.WriteByte('[')
		for i, elem := range v.elems {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := elem.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, m := range v.members {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(m.Key)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := m.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unknown kind %q", v.kind)
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler, preserving member order.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	val, err := ReadValue(dec)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

// ReadValue decodes the next complete JSON value from dec using its token
// stream. The decoder should have UseNumber set; float64 tokens are accepted
// but lose their original literal.
//
// When an object repeats a key the last value wins and stays at the position
// of the first occurrence, matching what encoding/json does for maps.
func ReadValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	return readFrom(dec, tok)
}

func readFrom(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return Number(t), nil
	case float64:
		return Number(json.Number(fmt.Sprint(t))), nil
	case string:
		return String(t), nil
	case json.Delim:
		switch t {
		case '[':
			elems := []Value{}
			for dec.More() {
				elem, err := ReadValue(dec)
				if err != nil {
					return Value{}, err
				}
				elems = append(elems, elem)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Array(elems...), nil
		case '{':
			members := []Member{}
			seen := make(map[string]int)
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("object key is %T, not string", keyTok)
				}
				val, err := ReadValue(dec)
				if err != nil {
					return Value{}, err
				}
				if i, dup := seen[key]; dup {
					members[i].Value = val
					continue
				}
				seen[key] = len(members)
				members = append(members, Member{Key: key, Value: val})
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Object(members...), nil
		}
	}
	return Value{}, fmt.Errorf("unexpected JSON token %v", tok)
}

// Document is a parsed input file.
type Document struct {
	Root        Value
	RootIsArray bool // True if the root of the JSON is an array vs an object
}

// ParseScalar converts editor text into a value of the given scalar kind.
// Strings are taken verbatim. Numbers must be valid JSON number literals.
// Booleans accept true/false in any case as well as 1/0. Null accepts only
// "null" or empty text.
func ParseScalar(kind Kind, text string) (Value, error) {
	switch kind {
	case KindString:
		return String(text), nil
	case KindNumber:
		lit := strings.TrimSpace(text)
		if !isNumberLiteral(lit) {
			return Value{}, fmt.Errorf("%w: %q is not a number", errors.ErrInvalidScalar, text)
		}
		return Number(json.Number(lit)), nil
	case KindBoolean:
		switch strings.ToLower(strings.TrimSpace(text)) {
		case "true", "1":
			return Bool(true), nil
		case "false", "0":
			return Bool(false), nil
		}
		return Value{}, fmt.Errorf("%w: %q is not a boolean", errors.ErrInvalidScalar, text)
	case KindNull:
		if t := strings.TrimSpace(text); t == "" || t == "null" {
			return Null(), nil
		}
		return Value{}, fmt.Errorf("%w: %q is not null", errors.ErrInvalidScalar, text)
	}
	return Value{}, fmt.Errorf("%w: kind %q is not a scalar", errors.ErrNotScalar, kind)
}

// isNumberLiteral checks s against the JSON number grammar.
func isNumberLiteral(s string) bool {
	if s == "" {
		return false
	}
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return false
	}
	n, ok := raw.(json.Number)
	if !ok || n.String() != s {
		return false
	}
	return !dec.More()
}
