package rules

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tulibraries/cobindex"
	"github.com/tulibraries/cobindex/marc"
	"github.com/tulibraries/cobindex/normalize"
)

func (s *ruleSet) registerPublication(b *cobindex.Builder) {
	// RDA records put the imprint in 264 with second indicator 1.
	b.Field("imprint_display", s.marc("260abcefg3:264|*1|abc3", with(noAlt)))
	b.Field("imprint_prod_display", s.marc("264|*0|abc3", with(noAlt)))
	b.Field("imprint_dist_display", s.marc("264|*2|abc3", with(noAlt)))
	b.Field("imprint_man_display", s.marc("264|*3|abc3", with(noAlt)))
	b.Field("imprint_vern_display", s.marc("260abcefg3:264|*1|abc3", with(altOnly)))
	b.Field("imprint_date_display", s.marc("260c:264|*1|c", with(trim)))
	b.Field("imprint_prod_date_display", s.marc("264|*0|c", with(trim)))
	b.Field("imprint_dist_date_display", s.marc("264|*2|c", with(trim)))
	b.Field("imprint_man_date_display", s.marc("260g:264|*3|c", with(trim)))
	b.Field("edition_display", s.marc("250a:254a", with(trim, noAlt)))
	b.Field("pub_date", cobindex.RuleFunc(pubDate))
	b.Field("date_copyright_display", cobindex.RuleFunc(copyright))
	b.Field("pub_location_txt", s.marc("260a:264a", with(trim), flank))
	b.Field("publisher_txt", s.marc("260b:264b", with(trim), flank))
	b.Field("pub_date_sort", cobindex.RuleFunc(s.publicationDate))
	b.Field("pub_date_tdt", cobindex.RuleFunc(pubDatetime))
}

// dateAdded reads 997$a as a YYYYMMDD number, right padding short dates
// with zeros.
func dateAdded(rec *marc.Record, _ *cobindex.Context) ([]string, error) {
	var out []string
	for _, f := range rec.FieldsByTag("997") {
		if !f.HasSubfield("a") {
			continue
		}
		a := f.Subfield("a")
		if n := len(a); n < 8 {
			a += strings.Repeat("0", 8-n)
		}
		out = append(out, strconv.Itoa(leadingInt(a[:8])))
	}
	return out, nil
}

// leadingInt parses the digits at the start of s, ignoring the rest. A
// string with no leading digits is 0.
func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, _ := strconv.Atoi(s[:end])
	return n
}

// pubDate is Date 1 of each 008.
func pubDate(rec *marc.Record, _ *cobindex.Context) ([]string, error) {
	var out []string
	for _, f := range rec.FieldsByTag("008") {
		if d := f.ByteRange(7, 10); d != "" {
			out = append(out, d)
		}
	}
	return out, nil
}

// pubDatetime is January 1 of the first year in 260$c or a non-copyright
// 264$c.
func pubDatetime(rec *marc.Record, _ *cobindex.Context) ([]string, error) {
	var years []string
	for _, f := range rec.FieldsByTag("260") {
		if y := normalize.FourDigitYear(f.Subfield("c")); y != "" {
			years = append(years, y)
		}
	}
	for _, f := range rec.FieldsByTag("264") {
		if y := normalize.FourDigitYear(f.Subfield("c")); y != "" && f.Ind2 != "4" {
			years = append(years, y)
		}
	}
	if len(years) == 0 {
		return nil, nil
	}
	y := leadingInt(years[0])
	return []string{time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC).Format("2006-01-02T15:04:05Z")}, nil
}

func copyright(rec *marc.Record, _ *cobindex.Context) ([]string, error) {
	var out []string
	for _, f := range rec.FieldsByTag("264") {
		if f.Ind2 == "4" {
			if y := normalize.FourDigitYear(f.Subfield("c")); y != "" {
				out = append(out, y)
			}
		}
	}
	return out, nil
}

const (
	estimateTolerance = 15
	minPubYear        = 500
)

// publicationDate estimates a single sortable year from the 008 dates,
// falling back to 260$c. Questionable date ranges and dates with unknown
// digits resolve to their midpoint when the range is narrow enough. Years
// outside 500 to six years from now are dropped.
func (s *ruleSet) publicationDate(rec *marc.Record, _ *cobindex.Context) ([]string, error) {
	found := 0
	if f := rec.FirstField("008"); f != nil && len(f.Value) >= 11 {
		dateType := f.Value[6]
		date1 := f.Value[7:11]
		date2 := ""
		if len(f.Value) > 15 {
			date2 = f.Value[11:15]
		}
		if dateType == 'q' {
			d1 := leadingInt(strings.Replace(date1, "u", "0", 1))
			d2 := leadingInt(strings.Replace(date2, "u", "9", 1))
			if d2 > d1 && d2-d1 <= estimateTolerance {
				found = (d1 + d2) / 2
			}
		}
		if found == 0 && dateType != 'n' && dateType != 'q' {
			ds := date1
			if dateType == 'r' && leadingInt(date2) != 0 {
				ds = date2
			}
			unknown := strings.Count(ds, "u")
			date := leadingInt(strings.Replace(ds, "u", "0", -1))
			if unknown > 0 && date != 0 {
				delta := 1
				for i := 0; i < unknown; i++ {
					delta *= 10
				}
				if delta <= estimateTolerance {
					found = date + delta/2
				}
			} else if date != 0 {
				found = date
			}
		}
	}
	if found == 0 {
		for _, f := range rec.FieldsByTag("260") {
			if f.HasSubfield("c") {
				found = leadingInt(normalize.FourDigitYear(f.Subfield("c")))
				break
			}
		}
	}
	if found == 0 || found < minPubYear || found > s.cfg.Now().Year()+6 {
		return nil, nil
	}
	return []string{strconv.Itoa(found)}, nil
}

// updateDate is the latest change recorded anywhere in the record's
// administrative, portfolio, holding or item data. A result equal to the
// harvest start means the change that brought the record in carried no
// date, so the current time is used instead.
func (s *ruleSet) updateDate(rec *marc.Record, ctx *cobindex.Context) ([]string, error) {
	now := normalize.FormatTime(s.cfg.Now())
	if s.cfg.DisableUpdateDateCheck {
		return []string{now}, nil
	}

	harvest := ""
	var candidates []time.Time
	if s.cfg.HarvestFrom != "" {
		if t, err := normalize.ParseTime(s.cfg.HarvestFrom); err == nil {
			harvest = normalize.FormatTime(t)
			candidates = append(candidates, t)
		}
	}
	add := func(tag string, codes ...string) {
		for _, f := range rec.FieldsByTag(tag) {
			for _, c := range codes {
				if !f.HasSubfield(c) {
					continue
				}
				t, err := normalize.ParseTime(f.Subfield(c))
				if err != nil {
					ctx.Log.Printf("record %s: ignoring %s$%s: %v", rec.ID(), tag, c, err)
					continue
				}
				candidates = append(candidates, t)
			}
		}
	}
	add(marc.TagAdmin, "a", "b")
	add(marc.TagPortfolio, "created", "updated")
	add(marc.TagHolding, "created", "updated")
	add(marc.TagItem, "q", "updated")

	if len(candidates) == 0 {
		return nil, nil
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Before(candidates[j]) })
	latest := normalize.FormatTime(candidates[len(candidates)-1])
	if latest == harvest {
		ctx.Log.Printf("Suspected record with un-dated deleted fields: latest_date less than %s, setting date to Time.now: %s", harvest, rec.ID())
		latest = now
	}
	return []string{latest}, nil
}
