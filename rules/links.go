package rules

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/tulibraries/cobindex"
	"github.com/tulibraries/cobindex/marc"
)

const (
	notAvailable = "Not Available"
	archiveIt    = "archive-it.org/collections/"
	linkFallback = "Link to Resource"
)

var (
	notFullText      = regexp.MustCompile(`(?i)book review|publisher description|sample text|View cover art|Image|cover image|table of contents`)
	findingAidHost   = regexp.MustCompile(`https?://scrcarchivesspace\.temple\.edu`)
	libraryHost      = regexp.MustCompile(`https?://library\.temple\.edu`)
	findingAidPath   = regexp.MustCompile(`scrc|finding-aids|finding_aids`)
	coveragePatterns = []*regexp.Regexp{
		regexp.MustCompile(`Available from \d{2}/\d{2}/(\d{4}) until \d{2}/\d{2}/(\d{4})?`),
		regexp.MustCompile(`Available from \d{2}/\d{2}/(\d{4}).?`),
		regexp.MustCompile(`Available from (\d{4}) until (\d{4})?`),
		regexp.MustCompile(`Available from (\d{4})?`),
	}
)

func (s *ruleSet) registerLinks(b *cobindex.Builder) {
	b.Field("url_more_links_display", cobindex.RuleFunc(moreLinks))
	b.Field("electronic_resource_display", cobindex.RuleFunc(electronicResources))
	b.Field("url_finding_aid_display", cobindex.RuleFunc(findingAids))
}

// linkLabel is the text shown for an 856 link.
func linkLabel(f *marc.Field) string {
	var parts []string
	for _, c := range []string{"z", "3"} {
		if f.HasSubfield(c) {
			parts = append(parts, f.Subfield(c))
		}
	}
	if label := strings.Join(parts, " "); label != "" {
		return label
	}
	if y := f.Subfield("y"); y != "" {
		return y
	}
	return linkFallback
}

// isFullText reports whether an 856 links to the resource itself rather
// than to something about it.
func isFullText(f *marc.Field) bool {
	u := f.Subfield("u")
	if u == "" || strings.Contains(u, archiveIt) {
		return false
	}
	return !notFullText.MatchString(strings.TrimSpace(f.Subfield("z") + " " + f.Subfield("3")))
}

func isFindingAid(u string) bool {
	return findingAidHost.MatchString(u) || (libraryHost.MatchString(u) && findingAidPath.MatchString(u))
}

// electronicResources lists the record's portfolios. Records without any
// fall back to their full text 856 links.
func electronicResources(rec *marc.Record, _ *cobindex.Context) ([]string, error) {
	var objs []*object
	for _, f := range rec.FieldsByTag(marc.TagPortfolio) {
		o := newObject().
			set("portfolio_id", f.Subfield("a")).
			set("collection_id", f.Subfield("i")).
			set("service_id", f.Subfield("j")).
			set("title", f.Subfield("c")).
			set("coverage_statement", f.Subfield("g")).
			set("public_note", f.Subfield("f")).
			set("authentication_note", f.Subfield("k")).
			set("availability", f.Subfield("9"))
		if !o.empty() {
			objs = append(objs, o)
		}
	}
	if len(objs) == 0 {
		for _, f := range rec.FieldsByTag("856") {
			u, label := f.Subfield("u"), linkLabel(f)
			if f.Ind2 == "2" || u == "" || strings.Contains(u, archiveIt) || notFullText.MatchString(label) {
				continue
			}
			objs = append(objs, newObject().set("title", label).set("url", u))
		}
	}
	sortByCoverage(objs)
	out := make([]string, len(objs))
	for i, o := range objs {
		out[i] = o.String()
	}
	return out, nil
}

// coverage returns the years covered by a portfolio's coverage statement.
// Open ranges end at 9999.
func coverage(statement string) (start, end int) {
	start, end = 1, 9999
	for _, re := range coveragePatterns {
		m := re.FindStringSubmatch(statement)
		if m == nil {
			continue
		}
		if y, err := strconv.Atoi(m[1]); err == nil {
			start = y
		}
		if len(m) > 2 {
			if y, err := strconv.Atoi(m[2]); err == nil {
				end = y
			}
		}
		break
	}
	return start, end
}

// sortByCoverage puts current and longer running resources first, then
// orders by title. A range ending in year 0 or covering a single year sorts
// after every other range.
func sortByCoverage(objs []*object) {
	type key struct {
		end, span float64
		title     string
	}
	keys := make(map[*object]key, len(objs))
	for _, o := range objs {
		start, end := coverage(o.get("coverage_statement"))
		keys[o] = key{end: inverse(end), span: inverse(end - start), title: o.get("title")}
	}
	sort.SliceStable(objs, func(i, j int) bool {
		a, b := keys[objs[i]], keys[objs[j]]
		if a.end != b.end {
			return a.end < b.end
		}
		if a.span != b.span {
			return a.span < b.span
		}
		return a.title < b.title
	})
}

// inverse is 1/n, with +Inf for zero.
func inverse(n int) float64 {
	if n == 0 {
		return math.Inf(1)
	}
	return 1 / float64(n)
}

// moreLinks lists the 856 links that aren't the resource itself. Records
// with portfolios show none.
func moreLinks(rec *marc.Record, _ *cobindex.Context) ([]string, error) {
	if rec.HasField(marc.TagPortfolio) {
		return nil, nil
	}
	var out []string
	for _, f := range rec.FieldsByTag("856") {
		u := f.Subfield("u")
		if u == "" || isFindingAid(u) {
			continue
		}
		label := linkLabel(f)
		if f.Ind2 == "2" || notFullText.MatchString(label) || strings.Contains(u, archiveIt) {
			out = append(out, newObject().set("title", label).set("url", u).String())
		}
	}
	return out, nil
}

func findingAids(rec *marc.Record, _ *cobindex.Context) ([]string, error) {
	var out []string
	for _, f := range rec.FieldsByTag("856") {
		u := f.Subfield("u")
		if f.Ind1 == "4" && f.Ind2 == "2" && u != "" && isFindingAid(u) {
			out = append(out, newObject().set("title", linkLabel(f)).set("url", u).String())
		}
	}
	return out, nil
}
