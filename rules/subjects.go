package rules

import (
	"regexp"
	"strings"

	"github.com/tulibraries/cobindex"
	"github.com/tulibraries/cobindex/marc"
	"github.com/tulibraries/cobindex/normalize"
	"github.com/tulibraries/cobindex/subject"
	"github.com/tulibraries/cobindex/translation"
)

const genreFacetSpec = "600v:610v:611v:630v:648v:650v:651v:655av"

var (
	subjectSeparators = []string{"v", "x", "y", "z"}
	genreTrailing     = regexp.MustCompile(`[^\p{L}\p{N})]*$`)
)

func (s *ruleSet) registerSubjects(b *cobindex.Builder) {
	b.Field("subject_facet", s.subjects(subjectFields, subjectSeparators, s.rem))
	b.Field("subject_display", s.subjects(subjectFields, subjectSeparators, s.rem))
	b.Field("subject_topic_facet", s.subjects(topicFields, []string{"x"}, s.rem))
	b.Field("subject_search_facet", s.subjects(topicFields, subjectSeparators, s.rem, subject.OptDeprecated()))
	b.Field("subject_era_facet", s.marc("648a:650y:651y:654y:655y:690y:647y", with(trim)))
	b.Field("subject_region_facet", s.regions())
	b.Field("subject_authority_record_id_ms", s.marc("6000:6100:6110:6300:6470:6480:6500:6510:6540:6560:6570", nil))
	b.Field("genre_facet", s.genres())
	// Genre headings are shown as catalogued.
	b.Field("genre_ms", s.subjects("655abcvxyz", subjectSeparators, subject.NewRemediator(nil)))
	b.Field("genre_authority_record_id_ms", s.marc("6550", nil))
	b.Field("subject_txt", s.marc(withCodes("600:610:611:630", aToU)+":647acdg:650abcde:653a:654abcde", nil, flank))
	b.Field("subject_addl_txt", s.marc("600vwxyz:610vwxyz:611vwxyz:630vwxyz:647vwxyz:648avwxyz:650vwxyz:651aegvwxyz:654vwxyz:656akvxyz:657avxyz:690abcdegvwxyz", nil, flank))
}

func (s *ruleSet) subjects(fields string, seps []string, rem *subject.Remediator, opts ...subject.Option) cobindex.Rule {
	e, err := subject.NewExtractor(fields, seps, rem, opts...)
	if err != nil {
		s.fail(err)
		return nothing
	}
	return cobindex.RuleFunc(func(rec *marc.Record, _ *cobindex.Context) ([]string, error) {
		return e.Extract(rec), nil
	})
}

func (s *ruleSet) regions() cobindex.Rule {
	g, err := subject.NewGeoExtractor(subject.GeoPlaceFields, subject.GeoDivisionFields, s.reg.Map(translation.Geographic), s.rem)
	if err != nil {
		s.fail(err)
		return nothing
	}
	return cobindex.RuleFunc(func(rec *marc.Record, _ *cobindex.Context) ([]string, error) {
		return g.Extract(rec), nil
	})
}

// genres takes the first form subdivision of each subject field, leaving
// out generic forms such as "Biography" that say nothing useful on their
// own.
func (s *ruleSet) genres() cobindex.Rule {
	e := s.ext(genreFacetSpec)
	stop := stopWords(s.reg.List(translation.GenreStopWords))
	return cobindex.RuleFunc(func(rec *marc.Record, _ *cobindex.Context) ([]string, error) {
		var out []string
		for _, m := range e.Matches(rec) {
			v := e.CollectFirst(m)
			if v == "" || (stop != nil && stop.MatchString(v)) {
				continue
			}
			if v = genreTrailing.ReplaceAllString(v, ""); v != "" {
				out = append(out, v)
			}
		}
		return normalize.Unique(out), nil
	})
}

// stopWords compiles words into a case insensitive alternation. No words
// gives nil.
func stopWords(words []string) *regexp.Regexp {
	var quoted []string
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			quoted = append(quoted, regexp.QuoteMeta(w))
		}
	}
	if len(quoted) == 0 {
		return nil
	}
	return regexp.MustCompile(`(?i)` + strings.Join(quoted, "|"))
}
