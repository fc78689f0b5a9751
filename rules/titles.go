package rules

import (
	"strings"

	"github.com/tulibraries/cobindex"
	"github.com/tulibraries/cobindex/marc"
)

const (
	titleStatementSpec = "245abcfgknps"
	titleSubtitleSpec  = "245abfgknps"
	titleAnySpec       = "245abcdefghijklmnopqrstuvwxyz"
	uniformTitleSpec   = "130adfklmnoprs:240adfklmnoprs"
)

func (s *ruleSet) registerTitles(b *cobindex.Builder) {
	statement := s.titleStatement()
	subtitle := s.titleAndSubtitle()

	b.Field("title_statement_display", statement)
	b.Field("title_with_subtitle_display", subtitle)
	b.Field("responsibility_display", s.marc("245c", nil))
	b.Field("title_truncated_display", pipe(statement, truncate(300)))
	b.Field("title_with_subtitle_truncated_display", pipe(subtitle, truncate(300)))
	b.Field("responsibility_truncated_display", s.marc("245c", nil, truncate(300)))
	b.Field("title_statement_vern_display", s.marc(titleStatementSpec, with(altOnly)))
	b.Field("title_with_subtitle_vern_display", s.marc(titleSubtitleSpec, with(altOnly)))
	b.Field("responsibility_vern_display", s.marc("245c", with(altOnly)))
	b.Field("title_uniform_display", s.uniformTitle())
	b.Field("title_uniform_vern_display", s.marc(uniformTitleSpec, with(altOnly)))
	b.Field("title_addl_display", s.additionalTitle())
	b.Field("title_addl_vern_display", s.marc(titleAddlVern, with(altOnly)))
	b.Field("title_txt", s.marc("245a", nil, flank))
	b.Field("subtitle_txt", s.marc("245b", nil, flank))
	b.Field("title_statement_txt", s.marc(titleSubtitleSpec, nil, flank))
	b.Field("title_uniform_txt", s.marc(uniformTitleSpec+":730abcdefgklmnopqrst", nil, flank))
	b.Field("title_uniform_authority_record_id_ms", s.marc("1300:2400:7300", nil))
	b.Field("work_access_point", s.workAccessPoint())
	b.Field("title_addl_txt", s.marc("210ab:222ab:242abnp:243abcdefgklmnopqrs:246abcdefgnp:247abcdefgnp:740anp", nil))
	b.Field("title_added_entry_txt", s.marc("700gklmnoprst:710fgklmnopqrst:711fgklnpst", nil, flank))
	b.Field("title_added_entry_authority_id_ms", s.subfieldLimit("7000:7100:7110", "t", true))
	b.Field("title_added_entry_real_world_object_uri_ms", s.subfieldLimit("7001:7101:7111", "t", true))
	b.Field("title_sort", s.marc(titleStatementSpec, with(noAlt, first)))
}

// titles collects the first non-blank value of each field matched by e,
// passing it through fix. When nothing is found every 245 subfield is
// tried before giving up.
func (s *ruleSet) titles(spec string, fix func(f *marc.Field, title string) string) cobindex.Rule {
	e := s.ext(spec, noAlt)
	fallback := s.ext(titleAnySpec, noAlt)
	return cobindex.RuleFunc(func(rec *marc.Record, ctx *cobindex.Context) ([]string, error) {
		var out []string
		for _, m := range e.Matches(rec) {
			if t := fix(m.Field, e.CollectFirst(m)); strings.TrimSpace(t) != "" {
				out = append(out, t)
			}
		}
		if len(out) > 0 {
			return out, nil
		}
		ctx.Log.Printf("Error: No title found for %s", rec.ID())
		for _, m := range fallback.Matches(rec) {
			if t := fallback.CollectFirst(m); strings.TrimSpace(t) != "" {
				out = append(out, t)
			}
		}
		return out, nil
	})
}

// titleStatement renders 245 with the statement of responsibility. When a
// medium ($h) is present the responsibility is set off with a slash.
func (s *ruleSet) titleStatement() cobindex.Rule {
	return s.titles(titleStatementSpec, func(f *marc.Field, title string) string {
		c := f.Subfield("c")
		if title == "" || strings.TrimSpace(f.Subfield("h")) == "" || strings.TrimSpace(c) == "" {
			return title
		}
		title = strings.Replace(title, " "+c, " / "+c, -1)
		return strings.Replace(title, "/ /", "/", -1)
	})
}

// titleAndSubtitle renders 245 without the responsibility, dropping the
// slash that introduced it.
func (s *ruleSet) titleAndSubtitle() cobindex.Rule {
	return s.titles(titleSubtitleSpec, func(f *marc.Field, title string) string {
		if strings.TrimSpace(f.Subfield("c")) == "" {
			return title
		}
		return strings.TrimRight(strings.TrimSuffix(title, "/"), " \t\n\r\f\v")
	})
}

// firstPerMatch returns the first collected value of every match, keeping
// "" for matches that select nothing so that values can be grouped by
// position.
func firstPerMatch(e *marc.Extractor, rec *marc.Record) []string {
	matches := e.Matches(rec)
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = e.CollectFirst(m)
	}
	return out
}

// groups splits vals into consecutive groups of n. The last group may be
// short.
func groups(vals []string, n int) [][]string {
	var out [][]string
	for len(vals) > 0 {
		k := n
		if len(vals) < k {
			k = len(vals)
		}
		out = append(out, vals[:k])
		vals = vals[k:]
	}
	return out
}

// uniformTitle pairs 130/240 values: a pair becomes {relation, title}, a
// lone value {title}.
func (s *ruleSet) uniformTitle() cobindex.Rule {
	e := s.ext(uniformTitleSpec, noAlt)
	return cobindex.RuleFunc(func(rec *marc.Record, _ *cobindex.Context) ([]string, error) {
		var out []string
		for _, g := range groups(firstPerMatch(e, rec), 2) {
			o := newObject()
			if len(g) == 2 {
				o.set("relation", g[0]).set("title", g[1])
			} else {
				o.set("title", g[0])
			}
			if !o.empty() {
				out = append(out, o.String())
			}
		}
		return out, nil
	})
}

// additionalTitle emits {title} objects for variant titles. A 246$i or
// 730$i relationship phrase is attached to the title that follows it.
func (s *ruleSet) additionalTitle() cobindex.Rule {
	e := s.ext("210ab:246i:246abfgnp:247abcdefgnp:730i:730al:740anp", noAlt)
	return cobindex.RuleFunc(func(rec *marc.Record, _ *cobindex.Context) ([]string, error) {
		var out []string
		var relation string
		for _, m := range e.Matches(rec) {
			v := strings.TrimSpace(e.CollectFirst(m))
			isRelation := (m.Spec.Tag == "246" || m.Spec.Tag == "730") && len(m.Spec.Codes) == 1 && m.Spec.Codes[0] == "i"
			switch {
			case isRelation && v != "":
				relation = e.CollectFirst(m)
			case isRelation:
			case relation != "" && v != "":
				out = append(out, newObject().set("relation", relation).set("title", e.CollectFirst(m)).String())
				relation = ""
			case v != "":
				out = append(out, newObject().set("title", e.CollectFirst(m)).String())
			}
		}
		return out, nil
	})
}

// workAccessPoint identifies the work: the uniform title, or the main entry
// with its uniform or title proper. Records with only a title get nothing.
func (s *ruleSet) workAccessPoint() cobindex.Rule {
	specs := []struct {
		when func(rec *marc.Record) bool
		ext  *marc.Extractor
	}{
		{func(r *marc.Record) bool { return r.HasField("130") }, s.ext("130adfklmnoprs")},
		{func(r *marc.Record) bool { return r.HasField("240") && r.HasField("100") }, s.ext("100abdcdq:240adfklmnoprs")},
		{func(r *marc.Record) bool { return r.HasField("240") && r.HasField("110") }, s.ext("110abcd:240adfklmnoprs")},
		{func(r *marc.Record) bool { return r.HasField("100") }, s.ext("100abcdq:245aknp")},
		{func(r *marc.Record) bool { return r.HasField("110") }, s.ext("110abcd:245aknp")},
	}
	return cobindex.RuleFunc(func(rec *marc.Record, _ *cobindex.Context) ([]string, error) {
		for _, sp := range specs {
			if !sp.when(rec) {
				continue
			}
			if v := strings.Join(sp.ext.Extract(rec), " . "); v != "" {
				return []string{v}, nil
			}
			return nil, nil
		}
		return nil, nil
	})
}

// subfieldLimit extracts spec from the fields that have (want true) or
// lack (want false) a subfield coded code.
func (s *ruleSet) subfieldLimit(spec, code string, want bool) cobindex.Rule {
	e := s.ext(spec)
	return cobindex.RuleFunc(func(rec *marc.Record, _ *cobindex.Context) ([]string, error) {
		var out []string
		for _, m := range e.Matches(rec) {
			if m.Field.HasSubfield(code) == want {
				out = append(out, e.Collect(m)...)
			}
		}
		return out, nil
	})
}
