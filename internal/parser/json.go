package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/KaramelBytes/tablescope/internal/table"
)

var errJSONShape = errors.New("expected an array of records or an object of columns")

type jsonDecoder struct{}

func (jsonDecoder) Extensions() []string { return []string{".json"} }

// Decode accepts [{"a":1,"b":"x"},...] or {"a":[1,...],"b":["x",...]}.
// Record keys keep first-seen order.
func (jsonDecoder) Decode(data []byte, opt Options) (*table.Table, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errJSONShape
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	switch data[0] {
	case '[':
		var records []map[string]any
		if err := dec.Decode(&records); err != nil {
			return nil, fmt.Errorf("decode records: %w", err)
		}
		return fromJSONRecords(data, records, opt)
	case '{':
		var columns map[string][]any
		if err := dec.Decode(&columns); err != nil {
			return nil, fmt.Errorf("decode columns: %w", err)
		}
		names, err := objectKeys(data)
		if err != nil {
			return nil, err
		}
		cols := make([]*table.Column, 0, len(names))
		for _, n := range names {
			vals := columns[n]
			if opt.MaxRows > 0 && len(vals) > opt.MaxRows {
				vals = vals[:opt.MaxRows]
			}
			cols = append(cols, table.NewColumn(n, jsonValues(vals)))
		}
		return table.New(cols...)
	}
	return nil, errJSONShape
}

func fromJSONRecords(data []byte, records []map[string]any, opt Options) (*table.Table, error) {
	if opt.MaxRows > 0 && len(records) > opt.MaxRows {
		records = records[:opt.MaxRows]
	}
	names, err := recordKeys(data)
	if err != nil {
		return nil, err
	}
	cols := make([]*table.Column, len(names))
	for j, n := range names {
		vals := make([]any, len(records))
		for i, rec := range records {
			vals[i] = rec[n]
		}
		cols[j] = table.NewColumn(n, jsonValues(vals))
	}
	return table.New(cols...)
}

// jsonValues converts json.Number to int64 when exact, else float64.
// Nested arrays and objects are kept as their JSON text.
func jsonValues(in []any) []any {
	out := make([]any, len(in))
	for i, v := range in {
		switch x := v.(type) {
		case json.Number:
			if n, err := x.Int64(); err == nil {
				out[i] = n
			} else if f, err := x.Float64(); err == nil {
				out[i] = f
			} else {
				out[i] = x.String()
			}
		case map[string]any, []any:
			b, _ := json.Marshal(x)
			out[i] = string(b)
		default:
			out[i] = x
		}
	}
	return out
}

// objectKeys returns the top-level keys of a JSON object in document order.
func objectKeys(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errJSONShape
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		keys = append(keys, key)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// recordKeys returns the union of record keys in first-seen order.
func recordKeys(data []byte) ([]string, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var keys []string
	for _, r := range raw {
		ks, err := objectKeys(r)
		if err != nil {
			return nil, fmt.Errorf("record is not an object: %w", err)
		}
		for _, k := range ks {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	if len(keys) == 0 && len(raw) > 0 {
		return nil, errJSONShape
	}
	return keys, nil
}
