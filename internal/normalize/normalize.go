// Package normalize turns the store's loosely shaped list responses into a
// plain ordered sequence of records.
package normalize

import (
	"bytes"
	"encoding/json"
)

var (
	WishlistFields = []string{"items", "games", "data"}
	CartFields     = []string{"items", "cartItems", "data"}
)

// Normalizer accepts either a bare JSON array or an object that wraps the
// array under one of Fields, checked in order. Anything else yields an empty
// sequence: missing data is not an error at this layer.
type Normalizer struct {
	Fields []string
}

func New(fields ...string) Normalizer {
	return Normalizer{Fields: append([]string(nil), fields...)}
}

func (n Normalizer) Normalize(raw []byte) []json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return []json.RawMessage{}
	}

	switch raw[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return []json.RawMessage{}
		}
		return nonNil(items)
	case '{':
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return []json.RawMessage{}
		}
		for _, field := range n.Fields {
			v, ok := envelope[field]
			if !ok {
				continue
			}
			v = bytes.TrimSpace(v)
			if len(v) == 0 || v[0] != '[' {
				continue
			}
			var items []json.RawMessage
			if err := json.Unmarshal(v, &items); err != nil {
				continue
			}
			return nonNil(items)
		}
	}
	return []json.RawMessage{}
}

// Decode normalizes raw and decodes each record into T. Records that fail to
// decode are skipped and reported through skipped.
func Decode[T any](n Normalizer, raw []byte) (out []T, skipped int) {
	records := n.Normalize(raw)
	out = make([]T, 0, len(records))
	for _, rec := range records {
		var v T
		if err := json.Unmarshal(rec, &v); err != nil {
			skipped++
			continue
		}
		out = append(out, v)
	}
	return out, skipped
}

func nonNil(items []json.RawMessage) []json.RawMessage {
	if items == nil {
		return []json.RawMessage{}
	}
	return items
}
