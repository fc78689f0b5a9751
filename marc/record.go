// Package marc holds the bibliographic record model used by the indexer, a
// streaming MARCXML decoder, and the field specification matcher which the
// extraction rules use to select values from a record.
package marc

import "strings"

// Synthetic tags carried by catalog exports alongside the MARC fields.
const (
	TagHolding        = "HLD"
	TagHoldingSummary = "HLD866"
	TagItem           = "ITM"
	TagPortfolio      = "PRT"
	TagAdmin          = "ADM"
	TagBoundWith      = "ADF"
	TagAlternate      = "880"
)

// Subfield is a single coded value inside a data field. Codes are usually one
// character, but synthetic fields use longer codes such as "created".
type Subfield struct {
	Code  string
	Value string
}

// Field is either a control field (Value set, no subfields) or a data field
// with two indicators and an ordered list of subfields.
type Field struct {
	Tag       string
	Ind1      string
	Ind2      string
	Value     string
	Subfields []Subfield
}

// IsControlTag reports whether tag addresses a control field (001-009).
func IsControlTag(tag string) bool {
	return len(tag) == 3 && tag < "010" && tag[0] == '0' && tag[1] == '0'
}

// IsControl reports whether f is a control field.
func (f *Field) IsControl() bool { return IsControlTag(f.Tag) }

// Subfield returns the first value for code, or "" when the code is absent.
func (f *Field) Subfield(code string) string {
	for _, sf := range f.Subfields {
		if sf.Code == code {
			return sf.Value
		}
	}
	return ""
}

// HasSubfield reports whether at least one subfield with code exists.
func (f *Field) HasSubfield(code string) bool {
	for _, sf := range f.Subfields {
		if sf.Code == code {
			return true
		}
	}
	return false
}

// SubfieldValues returns every value for code in physical order.
func (f *Field) SubfieldValues(code string) []string {
	var vals []string
	for _, sf := range f.Subfields {
		if sf.Code == code {
			vals = append(vals, sf.Value)
		}
	}
	return vals
}

// ByteRange returns the inclusive byte range [start, end] of a control field
// value, clipped to the value's length.
func (f *Field) ByteRange(start, end int) string {
	return byteRange(f.Value, start, end)
}

// LinkedTag returns the tag an 880 field is paired with, taken from the first
// three characters of subfield 6.
func (f *Field) LinkedTag() string {
	six := f.Subfield("6")
	if len(six) < 3 {
		return ""
	}
	return six[:3]
}

// Record is an ordered list of fields plus the leader.
type Record struct {
	Leader string
	Fields []*Field
}

// FieldsByTag returns the fields whose tag is one of tags, in record order.
func (r *Record) FieldsByTag(tags ...string) []*Field {
	var out []*Field
	for _, f := range r.Fields {
		for _, t := range tags {
			if f.Tag == t {
				out = append(out, f)
				break
			}
		}
	}
	return out
}

// FirstField returns the first field with tag, or nil.
func (r *Record) FirstField(tag string) *Field {
	for _, f := range r.Fields {
		if f.Tag == tag {
			return f
		}
	}
	return nil
}

// HasField reports whether the record carries at least one field with tag.
func (r *Record) HasField(tag string) bool {
	return r.FirstField(tag) != nil
}

// ControlValue returns the value of the first control field with tag.
func (r *Record) ControlValue(tag string) string {
	if f := r.FirstField(tag); f != nil {
		return f.Value
	}
	return ""
}

// ID returns the record control number from 001.
func (r *Record) ID() string {
	return strings.TrimSpace(r.ControlValue("001"))
}

// LeaderByte returns the leader character at pos, or 0 when the leader is
// too short.
func (r *Record) LeaderByte(pos int) byte {
	if pos < 0 || pos >= len(r.Leader) {
		return 0
	}
	return r.Leader[pos]
}

// ControlByte returns the character at pos in the first control field with
// tag, or 0 when the field is absent or too short.
func (r *Record) ControlByte(tag string, pos int) byte {
	v := r.ControlValue(tag)
	if pos < 0 || pos >= len(v) {
		return 0
	}
	return v[pos]
}

func byteRange(s string, start, end int) string {
	if start < 0 || start >= len(s) {
		return ""
	}
	if end >= len(s) {
		end = len(s) - 1
	}
	if end < start {
		return ""
	}
	return s[start : end+1]
}
