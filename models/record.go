package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record is one row of an agent's tabular output. Field order is kept as
// it arrived so tables and chart payloads render columns the way the agent
// listed them.
type Record struct {
	keys   []string
	values map[string]any
}

func NewRecord() Record {
	return Record{values: make(map[string]any)}
}

// Set adds or overwrites a field, appending the key on first use.
func (r *Record) Set(key string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

func (r Record) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

func (r Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

func (r Record) Len() int {
	return len(r.keys)
}

func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, fmt.Errorf("marshal field %s: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("record must be a JSON object, got %v", tok)
	}

	rec := NewRecord()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected record key %v", tok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("decode field %s: %w", key, err)
		}
		rec.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = rec
	return nil
}

// Columns returns the union of record keys in first-seen order.
func Columns(records []Record) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, rec := range records {
		for _, k := range rec.keys {
			if seen[k] {
				continue
			}
			seen[k] = true
			cols = append(cols, k)
		}
	}
	return cols
}
