package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// PropertySchema is an ordered property name -> datatype mapping.
type PropertySchema struct {
	keys  []string
	types map[string]string
}

func NewPropertySchema(pairs ...string) PropertySchema {
	var s PropertySchema
	for i := 0; i+1 < len(pairs); i += 2 {
		s.Set(pairs[i], pairs[i+1])
	}
	return s
}

func (s PropertySchema) Len() int { return len(s.keys) }

func (s PropertySchema) Keys() []string {
	return append([]string(nil), s.keys...)
}

func (s PropertySchema) Type(name string) (string, bool) {
	t, ok := s.types[name]
	return t, ok
}

func (s PropertySchema) Has(name string) bool {
	_, ok := s.types[name]
	return ok
}

// Set adds name at the end of the schema, or replaces its datatype in place.
func (s *PropertySchema) Set(name, datatype string) {
	if s.types == nil {
		s.types = make(map[string]string)
	}
	if _, ok := s.types[name]; !ok {
		s.keys = append(s.keys, name)
	}
	s.types[name] = datatype
}

func (s PropertySchema) Clone() PropertySchema {
	out := PropertySchema{keys: append([]string(nil), s.keys...)}
	if s.types != nil {
		out.types = make(map[string]string, len(s.types))
		for k, v := range s.types {
			out.types[k] = v
		}
	}
	return out
}

func (s PropertySchema) Equal(o PropertySchema) bool {
	if len(s.keys) != len(o.keys) {
		return false
	}
	for i, k := range s.keys {
		if o.keys[i] != k || o.types[k] != s.types[k] {
			return false
		}
	}
	return true
}

// Superset reports whether every key of o is present in s with the same datatype.
func (s PropertySchema) Superset(o PropertySchema) bool {
	for _, k := range o.keys {
		if t, ok := s.types[k]; !ok || t != o.types[k] {
			return false
		}
	}
	return true
}

func (s PropertySchema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range s.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(s.types[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts an object of name -> datatype. Keys are taken in
// sorted order since JSON objects carry no order. Non-string datatypes keep
// their JSON text.
func (s *PropertySchema) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("property schema must be an object: %w", err)
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	*s = PropertySchema{}
	for _, k := range keys {
		var t string
		if err := json.Unmarshal(raw[k], &t); err != nil {
			t = string(bytes.TrimSpace(raw[k]))
		}
		s.Set(k, t)
	}
	return nil
}
