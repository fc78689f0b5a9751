package subject

import (
	"regexp"
	"sort"
	"strings"

	"github.com/tulibraries/cobindex/marc"
	"github.com/tulibraries/cobindex/normalize"
	"github.com/tulibraries/cobindex/translation"
)

// Extractor builds remediated subject headings from a set of field specs.
type Extractor struct {
	ext        *marc.Extractor
	separators map[string]struct{}
	rem        *Remediator
	deprecated bool
}

// Option configures an Extractor.
type Option func(e *Extractor)

// OptDeprecated makes the Extractor emit the deprecated form of each
// remediated heading alongside the preferred one.
func OptDeprecated() Option {
	return func(e *Extractor) { e.deprecated = true }
}

// NewExtractor returns an Extractor for fields. A new heading segment starts
// at every subfield whose code is in separatorCodes, unless it is the first
// subfield taken from the field.
func NewExtractor(fields string, separatorCodes []string, rem *Remediator, opts ...Option) (*Extractor, error) {
	ext, err := marc.NewExtractor(fields, marc.OptPhysicalOrder())
	if err != nil {
		return nil, err
	}
	e := &Extractor{
		ext:        ext,
		separators: make(map[string]struct{}, len(separatorCodes)),
		rem:        rem,
	}
	for _, c := range separatorCodes {
		e.separators[c] = struct{}{}
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Extract returns the deduplicated headings for rec. Fields are visited in
// tag order, keeping record order between fields with the same tag.
func (e *Extractor) Extract(rec *marc.Record) []string {
	matches := e.ext.Matches(rec)
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Spec.Tag < matches[j].Spec.Tag
	})
	var out []string
	for _, m := range matches {
		heading := e.heading(m)
		if heading == "" {
			continue
		}
		out = append(out, e.rem.Remediate(heading))
	}
	if e.deprecated {
		for _, v := range out {
			if d, ok := e.rem.Deprecated(v); ok {
				out = append(out, d)
			}
		}
	}
	return normalize.Unique(out)
}

func (e *Extractor) heading(m marc.Match) string {
	var segments []string
	var cur []string
	flush := func() {
		if len(cur) == 0 {
			return
		}
		if s := marc.TrimPunctuation(strings.Join(cur, " ")); s != "" {
			segments = append(segments, s)
		}
		cur = nil
	}
	taken := 0
	for _, sf := range m.Field.Subfields {
		if !m.Spec.IncludesCode(sf.Code) {
			continue
		}
		if _, ok := e.separators[sf.Code]; ok && taken > 0 {
			flush()
		}
		cur = append(cur, sf.Value)
		taken++
	}
	flush()
	return strings.Join(segments, Separator)
}

// GeoExtractor builds the region facet from geographic area codes, 651/691
// place names and $z subdivisions.
type GeoExtractor struct {
	codes     *marc.Extractor
	places    *marc.Extractor
	divisions *marc.Extractor
	areas     translation.Map
	rem       *Remediator
}

// Default field selections for GeoExtractor.
const (
	GeoPlaceFields    = "651a:691a"
	GeoDivisionFields = "600:610:611:630:648:650:654:655:656:690:651:691"
)

var (
	trailingHyphens = regexp.MustCompile(`-+$`)
	firstPeriod     = regexp.MustCompile(`\. *`)
	endPeriod       = regexp.MustCompile(`\. *$`)
)

// NewGeoExtractor returns a GeoExtractor using areas to translate 043 codes.
func NewGeoExtractor(placeFields, divisionFields string, areas translation.Map, rem *Remediator) (*GeoExtractor, error) {
	g := &GeoExtractor{areas: areas, rem: rem}
	var err error
	if g.codes, err = marc.NewExtractor("043a", marc.OptNoSeparator()); err != nil {
		return nil, err
	}
	if g.places, err = marc.NewExtractor(placeFields, marc.OptNoSeparator()); err != nil {
		return nil, err
	}
	if g.divisions, err = marc.NewExtractor(divisionFields); err != nil {
		return nil, err
	}
	return g, nil
}

// Extract returns the deduplicated region values for rec.
func (g *GeoExtractor) Extract(rec *marc.Record) []string {
	var out []string
	for _, code := range g.codes.Extract(rec) {
		if v, ok := g.areas.Get(trailingHyphens.ReplaceAllString(code, "")); ok {
			out = append(out, v)
		}
	}
	for _, place := range g.places.Extract(rec) {
		out = append(out, replaceFirst(firstPeriod, place, ""))
	}
	for _, m := range g.divisions.Matches(rec) {
		zs := m.Field.SubfieldValues("z")
		for i, z := range zs {
			zs[i] = endPeriod.ReplaceAllString(z, "")
		}
		if len(zs) == 2 {
			out = append(out, zs[1]+" ("+zs[0]+")", zs[0])
			continue
		}
		out = append(out, zs...)
	}
	for i, v := range out {
		out[i] = g.rem.ReplaceWithin(parenthesize(v))
	}
	return normalize.Unique(out)
}

// parenthesize rewrites a "Place -- Subdivision" heading as
// "Place (Subdivision)".
func parenthesize(s string) string {
	parts := strings.SplitN(s, "--", 2)
	if len(parts) != 2 {
		return s
	}
	x, y := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if x == "" || y == "" {
		return s
	}
	return x + " (" + y + ")"
}

func replaceFirst(re *regexp.Regexp, s, with string) string {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + with + s[loc[1]:]
}
