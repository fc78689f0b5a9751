// Package subject assembles subject headings from 6xx fields and replaces
// deprecated vocabulary with the preferred terms, keeping the deprecated
// forms available for search.
package subject

import (
	"regexp"
	"sort"
	"strings"

	"github.com/tulibraries/cobindex/translation"
)

// Separator joins the segments of a subject heading.
const Separator = " — "

// Remediator maps deprecated headings to their preferred form. It is
// immutable after construction.
type Remediator struct {
	preferred  map[string]string // lower cased deprecated term -> preferred
	deprecated map[string]string // preferred -> deprecated
	within     []replacement     // longest deprecated term first
}

type replacement struct {
	re   *regexp.Regexp
	with string
}

// NewRemediator builds a Remediator from a deprecated to preferred table.
// When several deprecated terms share a preferred term, the alphabetically
// first deprecated term is the one reported by Deprecated.
func NewRemediator(table translation.Map) *Remediator {
	r := &Remediator{
		preferred:  make(map[string]string, len(table)),
		deprecated: make(map[string]string, len(table)),
	}
	keys := table.Keys()
	for _, k := range keys {
		v := table[k]
		r.preferred[strings.ToLower(k)] = v
		if _, ok := r.deprecated[v]; !ok {
			r.deprecated[v] = k
		}
	}
	sort.SliceStable(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
	for _, k := range keys {
		r.within = append(r.within, replacement{
			re:   regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(k) + `\b`),
			with: table[k],
		})
	}
	return r
}

// Term returns the preferred form of a single heading segment. A trailing
// period is ignored for the lookup. Unknown segments are returned unchanged.
func (r *Remediator) Term(s string) string {
	key := strings.ToLower(s)
	if v, ok := r.preferred[key]; ok {
		return v
	}
	if v, ok := r.preferred[strings.TrimSuffix(key, ".")]; ok {
		return v
	}
	return s
}

// Remediate splits heading on Separator, remediates each trimmed segment and
// joins them again.
func (r *Remediator) Remediate(heading string) string {
	parts := strings.Split(heading, Separator)
	for i, p := range parts {
		parts[i] = r.Term(strings.TrimSpace(p))
	}
	return strings.Join(parts, Separator)
}

// Deprecated returns the deprecated heading that remediates to value.
func (r *Remediator) Deprecated(value string) (string, bool) {
	v, ok := r.deprecated[value]
	return v, ok
}

// ReplaceWithin replaces any deprecated term occurring inside s, ignoring
// case. Geographic headings often embed a place name in a longer string.
func (r *Remediator) ReplaceWithin(s string) string {
	for _, rep := range r.within {
		s = rep.re.ReplaceAllLiteralString(s, rep.with)
	}
	return s
}
