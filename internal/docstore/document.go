package docstore

import (
	"encoding/json"
	"fmt"
	"time"
)

// Document is a schemaless record. Backends normalize values on read so that
// timestamps surface as time.Time or RFC 3339 strings and numbers as int64 or
// float64; the accessors below absorb the remaining variance.
type Document map[string]any

// FromStruct converts a tagged struct into a Document via its JSON encoding.
func FromStruct(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

// Decode fills a tagged struct from the document via its JSON encoding.
func (d Document) Decode(out any) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

// Clone returns a shallow copy of the document.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	cp := make(Document, len(d))
	for k, v := range d {
		cp[k] = v
	}
	return cp
}

// Merge overlays the provided fields onto the document, replacing existing
// top-level keys.
func (d Document) Merge(fields Document) {
	for k, v := range fields {
		d[k] = v
	}
}

// String returns the string value for key; ok is false when the key is
// absent or not a string.
func (d Document) String(key string) (string, bool) {
	v, ok := d[key].(string)
	return v, ok
}

// Int returns the integer value for key tolerant of the numeric types the
// backends produce; ok is false when the key is absent or not numeric.
func (d Document) Int(key string) (int, bool) {
	switch v := d[key].(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n), true
		}
	}
	return 0, false
}

// Float returns the float value for key, or 0 when absent.
func (d Document) Float(key string) float64 {
	switch v := d[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
	}
	return 0
}

// Time returns the timestamp value for key. It accepts time.Time values and
// RFC 3339 strings; ok is false when the key is absent or unparsable.
func (d Document) Time(key string) (time.Time, bool) {
	switch v := d[key].(type) {
	case time.Time:
		return v, true
	case *time.Time:
		if v != nil {
			return *v, true
		}
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
