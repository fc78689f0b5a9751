package rules

import (
	"strings"

	"github.com/tulibraries/cobindex"
	"github.com/tulibraries/cobindex/marc"
	"github.com/tulibraries/cobindex/normalize"
)

const (
	creatorSpec        = "100abcqd:100ejlmnoprtu:110abdc:110elmnopt:111andcj:111elopt"
	contributorSpec    = "700i:700abcqd:700ejlmnoprtu:710i:710abdc:710elmnopt:711i:711andcj:711elopt"
	contributorVernSpc = "700abcqd:700ejlmnoprtu:710abdc:710elmnopt:711andcj:711elopt"
)

func (s *ruleSet) registerNames(b *cobindex.Builder) {
	corp := deleteIf(s.corporate)

	b.Field("creator_txt", s.marc("245c:100abcdejlmnopqrtu:110abcdelmnopt:111acdejlnopt:700abcdejqu:710abcde:711acdej", with(trim), corp, flank))
	b.Field("creator_authority_record_id_ms", s.marc("1000:1100:1110", nil))
	b.Field("creator_real_world_object_uri_ms", s.marc("1001:1101:1111", nil))
	b.Field("creator_facet", s.marc("100abcdq:110abcd:111ancdj:700abcdq:710abcd:711ancdj", with(trim), corp))
	b.Field("creator_display", pipe(s.namesWithRoles(creatorSpec, noAlt), corp))
	b.Field("contributor_display", pipe(s.contributors(), deleteIfName(s.corporate)))
	b.Field("contributor_authority_record_id_ms", s.subfieldLimit("7000:7100:7110", "t", false))
	b.Field("contributor_real_world_object_uri_ms", s.subfieldLimit("7001:7101:7111", "t", false))
	b.Field("creator_vern_display", pipe(s.namesWithRoles(creatorSpec, altOnly), corp))
	b.Field("contributor_vern_display", pipe(s.namesWithRoles(contributorVernSpc, altOnly), corp))
	b.Field("author_sort", s.marc("100abcdejlmnopqrtu:110abcdelmnopt:111acdejlnopt", with(trim, first), corp))
}

// namesWithRoles pairs each name with the relator terms that follow it in
// spec and renders them as "name|role".
func (s *ruleSet) namesWithRoles(spec string, alt marc.ExtractorOption) cobindex.Rule {
	e := s.ext(spec, alt)
	return cobindex.RuleFunc(func(rec *marc.Record, _ *cobindex.Context) ([]string, error) {
		var out []string
		for _, g := range groups(firstPerMatch(e, rec), 2) {
			var parts []string
			if g[0] != "" {
				parts = append(parts, normalize.TrimName(g[0]))
			}
			if len(g) > 1 && g[1] != "" {
				parts = append(parts, normalize.TrimRole(g[1]))
			}
			if len(parts) > 0 {
				out = append(out, strings.Join(parts, "|"))
			}
		}
		return out, nil
	})
}

// contributors renders added entries as {relation, name, role} objects.
func (s *ruleSet) contributors() cobindex.Rule {
	e := s.ext(contributorSpec, noAlt)
	return cobindex.RuleFunc(func(rec *marc.Record, _ *cobindex.Context) ([]string, error) {
		var out []string
		for _, g := range groups(firstPerMatch(e, rec), 3) {
			o := newObject().set("relation", g[0])
			if len(g) > 1 && g[1] != "" {
				o.set("name", normalize.TrimName(g[1]))
			}
			if len(g) > 2 && g[2] != "" {
				o.set("role", normalize.TrimRole(g[2]))
			}
			if !o.empty() {
				out = append(out, o.String())
			}
		}
		return out, nil
	})
}
