package cobindex

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/tulibraries/cobindex/marc"
)

// Names of the fields every document carries.
const (
	FieldID         = "id"
	FieldUpdateDate = "record_update_date"
)

// Document is an output document: field names mapped to ordered lists of
// values. Field order follows first insertion and is kept when the document
// is encoded.
type Document struct {
	names  []string
	values map[string][]string

	source *marc.Record
}

// NewDocument returns an empty Document.
func NewDocument() *Document {
	return &Document{values: make(map[string][]string)}
}

// Add appends vals to field. Adding no values leaves the document unchanged.
func (d *Document) Add(field string, vals ...string) {
	if len(vals) == 0 {
		return
	}
	if _, ok := d.values[field]; !ok {
		d.names = append(d.names, field)
	}
	d.values[field] = append(d.values[field], vals...)
}

// Set replaces the values of field. A nil or empty vals removes the field.
func (d *Document) Set(field string, vals []string) {
	if len(vals) == 0 {
		d.Delete(field)
		return
	}
	if _, ok := d.values[field]; !ok {
		d.names = append(d.names, field)
	}
	d.values[field] = vals
}

// Delete removes field.
func (d *Document) Delete(field string) {
	if _, ok := d.values[field]; !ok {
		return
	}
	delete(d.values, field)
	for i, n := range d.names {
		if n == field {
			d.names = append(d.names[:i], d.names[i+1:]...)
			break
		}
	}
}

// Get returns the values of field.
func (d *Document) Get(field string) []string {
	return d.values[field]
}

// First returns the first value of field, or "".
func (d *Document) First(field string) string {
	if vals := d.values[field]; len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// Has reports whether field holds at least one value.
func (d *Document) Has(field string) bool {
	return len(d.values[field]) > 0
}

// Fields returns the field names in insertion order.
func (d *Document) Fields() []string {
	out := make([]string, len(d.names))
	copy(out, d.names)
	return out
}

// SetSource records the catalog record the document was built from. It is
// not encoded.
func (d *Document) SetSource(rec *marc.Record) { d.source = rec }

// Source returns the record given to SetSource, or nil.
func (d *Document) Source() *marc.Record { return d.source }

// ID returns the first id value.
func (d *Document) ID() string { return d.First(FieldID) }

// UpdateDate returns the first record_update_date value.
func (d *Document) UpdateDate() string { return d.First(FieldUpdateDate) }

// MarshalJSON encodes the document as a JSON object whose members appear in
// field order, each holding an array of values.
func (d *Document) MarshalJSON() ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte('{')
	for i, name := range d.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, errors.Wrapf(err, "encoding field name %s", name)
		}
		buf.Write(key)
		buf.WriteByte(':')
		vals, err := json.Marshal(d.values[name])
		if err != nil {
			return nil, errors.Wrapf(err, "encoding field %s", name)
		}
		buf.Write(vals)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object of string or string array members. Member
// order is kept.
func (d *Document) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return errors.Wrap(err, "reading document start")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.Errorf("expected object, got %v", tok)
	}
	*d = *NewDocument()
	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return errors.Wrap(err, "reading field name")
		}
		name, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return errors.Wrapf(err, "reading field %s", name)
		}
		var vals []string
		if err := json.Unmarshal(raw, &vals); err != nil {
			var val string
			if err2 := json.Unmarshal(raw, &val); err2 != nil {
				return errors.Wrapf(err, "decoding field %s", name)
			}
			vals = []string{val}
		}
		d.Set(name, vals)
	}
	_, err = dec.Token()
	return errors.Wrap(err, "reading document end")
}
