package marc

import (
	"strings"
)

// AlternateScript controls how linked 880 fields take part in extraction.
type AlternateScript int

const (
	// AlternateInclude selects both the original field and its 880 pair.
	AlternateInclude AlternateScript = iota
	// AlternateExclude ignores 880 fields.
	AlternateExclude
	// AlternateOnly selects only 880 fields.
	AlternateOnly
)

// Extractor applies a parsed specification to records. An Extractor is
// immutable after construction and safe for concurrent use.
type Extractor struct {
	specs     []Spec
	byTag     map[string][]Spec
	alternate AlternateScript
	separator string
	join      bool
	first     bool
	trim      bool
	physical  bool
}

// ExtractorOption is a functional option for NewExtractor.
type ExtractorOption func(e *Extractor)

// OptSeparator joins the values selected from one field with sep.
func OptSeparator(sep string) ExtractorOption {
	return func(e *Extractor) {
		e.separator = sep
		e.join = true
	}
}

// OptNoSeparator emits each selected subfield value separately.
func OptNoSeparator() ExtractorOption {
	return func(e *Extractor) {
		e.join = false
	}
}

// OptFirst keeps only the first extracted value.
func OptFirst() ExtractorOption {
	return func(e *Extractor) { e.first = true }
}

// OptTrimPunctuation applies TrimPunctuation to each extracted value.
func OptTrimPunctuation() ExtractorOption {
	return func(e *Extractor) { e.trim = true }
}

// OptAlternateScript sets how 880 fields are treated.
func OptAlternateScript(a AlternateScript) ExtractorOption {
	return func(e *Extractor) { e.alternate = a }
}

// OptPhysicalOrder collects subfields in the order they appear in the field
// rather than the order of codes in the specification.
func OptPhysicalOrder() ExtractorOption {
	return func(e *Extractor) { e.physical = true }
}

// NewExtractor parses spec and returns an Extractor. Values from one field
// are joined with a single space unless another separator option is given.
func NewExtractor(spec string, opts ...ExtractorOption) (*Extractor, error) {
	specs, err := ParseSpecs(spec)
	if err != nil {
		return nil, err
	}
	e := &Extractor{
		specs:     specs,
		byTag:     make(map[string][]Spec),
		separator: " ",
		join:      true,
	}
	for _, s := range specs {
		e.byTag[s.Tag] = append(e.byTag[s.Tag], s)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// MustExtractor is like NewExtractor but panics on a malformed spec. It is
// meant for package level rule tables whose specs are constants.
func MustExtractor(spec string, opts ...ExtractorOption) *Extractor {
	e, err := NewExtractor(spec, opts...)
	if err != nil {
		panic(err)
	}
	return e
}

// Specs returns the parsed specifications in declaration order.
func (e *Extractor) Specs() []Spec { return e.specs }

// Match is one (field, spec) pair selected by an Extractor.
type Match struct {
	Field *Field
	Spec  Spec
}

// Matches returns every field/spec pair selected from rec, in field order and
// then in spec order for fields matched by more than one spec.
func (e *Extractor) Matches(rec *Record) []Match {
	var out []Match
	for _, f := range rec.Fields {
		tag := f.Tag
		if tag == TagAlternate {
			if e.alternate == AlternateExclude {
				continue
			}
			tag = f.LinkedTag()
		} else if e.alternate == AlternateOnly {
			continue
		}
		for _, s := range e.byTag[tag] {
			if f.IsControl() || s.MatchesIndicators(f) {
				out = append(out, Match{Field: f, Spec: s})
			}
		}
	}
	return out
}

// Subfields returns the raw values selected from m.Field by m.Spec.
func (e *Extractor) Subfields(m Match) []string {
	f, s := m.Field, m.Spec
	if f.IsControl() {
		if s.HasByteRange() {
			v := f.ByteRange(s.Start, s.End)
			if v == "" {
				return nil
			}
			return []string{v}
		}
		if f.Value == "" {
			return nil
		}
		return []string{f.Value}
	}
	var vals []string
	if e.physical || len(s.Codes) == 0 {
		for _, sf := range f.Subfields {
			if s.IncludesCode(sf.Code) {
				vals = append(vals, sf.Value)
			}
		}
		return vals
	}
	for _, code := range s.Codes {
		for _, sf := range f.Subfields {
			if sf.Code == code {
				vals = append(vals, sf.Value)
			}
		}
	}
	return vals
}

// Collect applies the separator and punctuation options to the values of m.
func (e *Extractor) Collect(m Match) []string {
	vals := e.Subfields(m)
	if len(vals) == 0 {
		return nil
	}
	if e.join && m.Spec.Joinable() && !m.Field.IsControl() {
		vals = []string{strings.Join(vals, e.separator)}
	}
	if e.trim {
		for i, v := range vals {
			vals[i] = TrimPunctuation(v)
		}
	}
	return vals
}

// CollectFirst returns the first collected value of m, or "" when m selects
// nothing.
func (e *Extractor) CollectFirst(m Match) string {
	vals := e.Collect(m)
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

// Extract returns all collected values from rec.
func (e *Extractor) Extract(rec *Record) []string {
	var out []string
	for _, m := range e.Matches(rec) {
		out = append(out, e.Collect(m)...)
		if e.first && len(out) > 0 {
			return out[:1]
		}
	}
	return out
}
