package rules

import (
	"regexp"

	"github.com/tulibraries/cobindex"
	"github.com/tulibraries/cobindex/marc"
	"github.com/tulibraries/cobindex/normalize"
	"github.com/tulibraries/cobindex/translation"
)

var (
	whitespace     = regexp.MustCompile(`\s+`)
	leadingLetters = regexp.MustCompile(`^\p{L}*`)
)

func (s *ruleSet) registerCallNumbers(b *cobindex.Builder) {
	b.Field("lc_call_number_display", cobindex.RuleFunc(s.lcCallNumberDisplay))
	b.Field("lc_outer_facet", cobindex.RuleFunc(s.lcOuterFacet))
	b.Field("lc_inner_facet", cobindex.RuleFunc(s.lcInnerFacet))
}

var callNumberSources = []*marc.Extractor{
	marc.MustExtractor("090ab", noAlt),
	marc.MustExtractor("050ab", noAlt),
}

// callNumber returns the shortest non-empty LC call number from the first
// of 090 and 050 present. Repeated subfields count once.
func callNumber(rec *marc.Record) (string, bool) {
	for _, e := range callNumberSources {
		matches := e.Matches(rec)
		if len(matches) == 0 {
			continue
		}
		best := ""
		for _, m := range matches {
			cn := e.CollectFirst(marc.Match{Field: firstOfEachCode(m.Field), Spec: m.Spec})
			if cn == "" {
				continue
			}
			if best == "" || len(cn) < len(best) {
				best = cn
			}
		}
		return best, best != ""
	}
	return "", false
}

// firstOfEachCode returns a copy of f keeping only the first subfield of
// each code.
func firstOfEachCode(f *marc.Field) *marc.Field {
	out := *f
	out.Subfields = nil
	seen := make(map[string]struct{})
	for _, sf := range f.Subfields {
		if _, ok := seen[sf.Code]; ok {
			continue
		}
		seen[sf.Code] = struct{}{}
		out.Subfields = append(out.Subfields, sf)
	}
	return &out
}

func (s *ruleSet) lcCallNumberDisplay(rec *marc.Record, _ *cobindex.Context) ([]string, error) {
	if cn, ok := callNumber(rec); ok {
		return []string{cn}, nil
	}
	return nil, nil
}

// lcClass returns the compacted call number and its class letters.
func lcClass(rec *marc.Record) (cn, letters string, ok bool) {
	cn, ok = callNumber(rec)
	if !ok {
		return "", "", false
	}
	cn = whitespace.ReplaceAllString(cn, "")
	return cn, leadingLetters.FindString(cn), true
}

// lcOuterFacet is the broad class named by the first letter, given only
// for call numbers whose full class is known.
func (s *ruleSet) lcOuterFacet(rec *marc.Record, _ *cobindex.Context) ([]string, error) {
	cn, letters, ok := lcClass(rec)
	if !ok {
		return nil, nil
	}
	classes := s.reg.Map(translation.CallNumbers)
	if !classes.Has(letters) {
		return nil, nil
	}
	if v, ok := classes.Get(prefix(cn, 1)); ok {
		return []string{v}, nil
	}
	return nil, nil
}

func (s *ruleSet) lcInnerFacet(rec *marc.Record, _ *cobindex.Context) ([]string, error) {
	_, letters, ok := lcClass(rec)
	if !ok {
		return nil, nil
	}
	if v, ok := s.reg.Lookup(translation.CallNumbers, letters); ok {
		return []string{v}, nil
	}
	return nil, nil
}

func (s *ruleSet) lcCallNumberSort(rec *marc.Record, ctx *cobindex.Context) ([]string, error) {
	cn, ok := callNumber(rec)
	if !ok {
		return nil, nil
	}
	cn = whitespace.ReplaceAllString(cn, "")
	key, err := normalize.LCSortKey(cn)
	if err != nil {
		ctx.Log.Printf("no sort key for call no: %s: %v", cn, err)
		return nil, nil
	}
	return []string{key}, nil
}
