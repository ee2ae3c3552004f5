package jsondoc

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

type kind int

const (
	kindNull kind = iota
	kindBool
	kindNumber
	kindString
	kindArray
	kindObject
)

// value is a decoded JSON node that keeps object key order.
type value struct {
	kind kind

	keys   []string
	fields []*value
	items  []*value

	str     string
	num     json.Number
	boolean bool
}

func (v *value) primitive() bool {
	return v.kind != kindArray && v.kind != kindObject
}

// String renders a primitive as text. Null renders as "".
func (v *value) String() string {
	switch v.kind {
	case kindString:
		return v.str
	case kindNumber:
		return v.num.String()
	case kindBool:
		if v.boolean {
			return "true"
		}
		return "false"
	}
	return ""
}

// decode reads exactly one JSON document.
func decode(r io.Reader) (*value, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after top-level value")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (*value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			v := &value{kind: kindObject}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is %T, want string", keyTok)
				}
				field, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				v.keys = append(v.keys, key)
				v.fields = append(v.fields, field)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return v, nil
		case '[':
			v := &value{kind: kindArray}
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				v.items = append(v.items, item)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return v, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %q", t)
	case string:
		return &value{kind: kindString, str: t}, nil
	case json.Number:
		return &value{kind: kindNumber, num: t}, nil
	case bool:
		return &value{kind: kindBool, boolean: t}, nil
	case nil:
		return &value{kind: kindNull}, nil
	}
	return nil, fmt.Errorf("unexpected token %T", tok)
}

// leaf is a flattened (pointer, value) pair.
type leaf struct {
	path  string
	value *value
}

// flatten walks the tree in document order. Objects recurse by key; arrays
// of primitives join into one string leaf; other arrays recurse by index.
func flatten(root *value, base string, out []leaf) []leaf {
	switch root.kind {
	case kindObject:
		for i, k := range root.keys {
			out = flatten(root.fields[i], base+"/"+k, out)
		}
		return out
	case kindArray:
		if len(root.items) == 0 {
			return out
		}
		if allPrimitive(root.items) {
			parts := make([]string, len(root.items))
			for i, it := range root.items {
				parts[i] = it.String()
			}
			return append(out, leaf{path: orRoot(base), value: &value{kind: kindString, str: strings.Join(parts, ", ")}})
		}
		for i, it := range root.items {
			out = flatten(it, fmt.Sprintf("%s/%d", base, i), out)
		}
		return out
	}
	return append(out, leaf{path: orRoot(base), value: root})
}

func allPrimitive(items []*value) bool {
	for _, it := range items {
		if !it.primitive() {
			return false
		}
	}
	return true
}

func orRoot(p string) string {
	if p == "" {
		return "/"
	}
	return p
}
