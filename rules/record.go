package rules

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/tulibraries/cobindex"
	"github.com/tulibraries/cobindex/format"
	"github.com/tulibraries/cobindex/marc"
	"github.com/tulibraries/cobindex/normalize"
	"github.com/tulibraries/cobindex/translation"
)

const boundWithHostTitle = "host bibliographic record for boundwith item barcode"

// boundWithHost skips the placeholder records that only exist to carry
// bound-with items.
var boundWithHost = cobindex.RuleFunc(func(rec *marc.Record, ctx *cobindex.Context) ([]string, error) {
	for _, f := range rec.FieldsByTag("245") {
		if strings.Contains(strings.ToLower(f.Subfield("a")), boundWithHostTitle) {
			ctx.Skip("Skipping Boundwith host record")
			break
		}
	}
	return nil, nil
})

func rawXML(rec *marc.Record, _ *cobindex.Context) ([]string, error) {
	x, err := rec.XML()
	if err != nil {
		return nil, errors.Wrap(err, "encoding record")
	}
	return []string{x}, nil
}

// allValues returns the subfield values of every field from 100 to 899, one
// string per field.
func allValues(rec *marc.Record, _ *cobindex.Context) ([]string, error) {
	var out []string
	for _, f := range rec.Fields {
		if f.Tag < "100" || f.Tag > "899" || f.IsControl() {
			continue
		}
		vals := make([]string, 0, len(f.Subfields))
		for _, sf := range f.Subfields {
			vals = append(vals, sf.Value)
		}
		if v := strings.Join(vals, " "); v != "" {
			out = append(out, v)
		}
	}
	return out, nil
}

// language translates 008 and 041 language codes. Subfields sometimes hold
// several codes run together, so values that aren't three characters long
// are split into three character chunks; 041$a only contributes its first
// code.
func (s *ruleSet) language(spec string) cobindex.Rule {
	e := s.ext(spec, noSep)
	languages := s.reg.Map(translation.Languages)
	return cobindex.RuleFunc(func(rec *marc.Record, _ *cobindex.Context) ([]string, error) {
		var codes []string
		for _, m := range e.Matches(rec) {
			for _, v := range e.Subfields(m) {
				if m.Spec.Tag == "041" && len(m.Spec.Codes) == 1 && m.Spec.Codes[0] == "a" {
					v = prefix(v, 3)
				}
				if len([]rune(v)) == 3 {
					codes = append(codes, v)
					continue
				}
				codes = append(codes, runeChunks(v, 3)...)
			}
		}
		var out []string
		for _, c := range normalize.Unique(codes) {
			if l, ok := languages.Get(c); ok {
				out = append(out, l)
			}
		}
		return out, nil
	})
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}

func runeChunks(s string, n int) []string {
	r := []rune(s)
	var out []string
	for len(r) > 0 {
		k := n
		if len(r) < k {
			k = len(r)
		}
		out = append(out, string(r[:k]))
		r = r[k:]
	}
	return out
}

func (s *ruleSet) formats(rec *marc.Record, _ *cobindex.Context) ([]string, error) {
	return format.Normalize(s.classifier.Formats(rec)), nil
}
