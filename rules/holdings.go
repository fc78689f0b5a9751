package rules

import (
	"regexp"
	"strings"

	"github.com/tulibraries/cobindex"
	"github.com/tulibraries/cobindex/marc"
	"github.com/tulibraries/cobindex/normalize"
	"github.com/tulibraries/cobindex/translation"
)

// Availability facet values.
const (
	availableOnline  = "Online"
	availableETAS    = "ETAS"
	availableLibrary = "At the Library"
	availableRequest = "Request Rapid Access"
)

var (
	// Item process types that mean the item can't be found or used.
	unavailableStatus = set("LOST_LOAN", "LOST_LOAN_AND_PAID", "MISSING", "TECHNICAL", "UNASSIGNED")
	hiddenStatus      = set("EMPTY", "LOST_LOAN", "LOST_LOAN_AND_PAID", "MISSING", "TECHNICAL", "UNASSIGNED")
	hiddenLibraries   = set("RES_SHARE", "KIOSK")
	// Holdings in these locations are placeholders.
	placeholderLocations = set("UNASSIGNED", "intref", "techserv")
	// Collections of these libraries are pushed down in relevance.
	inverseBoostLibraries = set("PRESSER", "CLAEDTECH")

	bookseller = regexp.MustCompile(`(?i)Bookseller`)
)

func set(vals ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		out[v] = struct{}{}
	}
	return out
}

func in(s map[string]struct{}, v string) bool {
	_, ok := s[v]
	return ok
}

func (s *ruleSet) registerLocations(b *cobindex.Builder) {
	b.Field("call_number_display", s.marc("HLDhi", nil))
	b.Field("call_number_txt", s.marc("HLDhi", nil, flank))
	b.Field("call_number_alt_display", s.marc("ITMjk", nil))
	b.Field("call_number_alt_txt", s.marc("ITMjk", nil, flank))
	b.Field("library_facet", cobindex.RuleFunc(s.libraries))
	b.Field("location_facet", cobindex.RuleFunc(s.locations))
}

func (s *ruleSet) registerAvailability(b *cobindex.Builder) {
	b.Field("availability_facet", cobindex.RuleFunc(availability))
	b.Field("location_display", s.marc("HLDbc", nil))
	b.Field("holdings_display", s.marc("HLD8", nil))
	b.Field("suppress_items_b", cobindex.RuleFunc(s.suppressItems))
	b.Field("items_json_display", cobindex.RuleFunc(items))
}

type shelf struct {
	library, location string
}

// shelves returns the library and location of every visible item, both
// translated to display labels where a label exists.
func (s *ruleSet) shelves(rec *marc.Record) []shelf {
	var out []shelf
	for _, f := range rec.FieldsByTag(marc.TagItem) {
		lib, loc, status := f.Subfield("f"), f.Subfield("g"), f.Subfield("u")
		if lib == "ASRS" {
			loc = "ASRS"
		}
		if in(hiddenLibraries, lib) || in(hiddenStatus, status) || loc == "" || loc == "UNASSIGNED" {
			continue
		}
		sh := shelf{library: lib, location: loc}
		if v, ok := s.reg.Lookup(translation.Libraries, lib); ok {
			sh.library = v
		}
		if v, ok := s.reg.Location(lib, loc); ok {
			sh.location = v
		}
		out = append(out, sh)
	}
	return out
}

func (s *ruleSet) libraries(rec *marc.Record, _ *cobindex.Context) ([]string, error) {
	var out []string
	for _, sh := range s.shelves(rec) {
		out = append(out, sh.library)
	}
	return normalize.Unique(out), nil
}

func (s *ruleSet) locations(rec *marc.Record, _ *cobindex.Context) ([]string, error) {
	var out []string
	for _, sh := range s.shelves(rec) {
		out = append(out, sh.library+" - "+sh.location)
	}
	return normalize.Unique(out), nil
}

// availability reads hathi_trust_bib_key_display, so it must run after it.
func availability(rec *marc.Record, ctx *cobindex.Context) ([]string, error) {
	var out []string
	for _, h := range ctx.Doc.Get("hathi_trust_bib_key_display") {
		if strings.Contains(h, "allow") {
			out = append(out, availableOnline)
		} else {
			out = append(out, availableETAS)
		}
	}
	for _, f := range rec.FieldsByTag(marc.TagPortfolio) {
		if f.Subfield("9") != notAvailable {
			out = append(out, availableOnline)
		}
	}
	if !contains(out, availableOnline) {
		for _, f := range rec.FieldsByTag("856") {
			if f.Ind1 == "4" && f.Ind2 != "2" && isFullText(f) {
				out = append(out, availableOnline)
				break
			}
		}
	}
	if rec.HasField(marc.TagHolding) || rec.HasField(marc.TagBoundWith) {
		out = append(out, availableLibrary)
	}
	if purchaseOrder(rec) {
		out = append(out, availableRequest, availableOnline)
	}
	return normalize.Unique(out), nil
}

func contains(vals []string, v string) bool {
	for _, x := range vals {
		if x == v {
			return true
		}
	}
	return false
}

// suppressItems flags records with nothing a patron could get at. A full
// reindex leaves such records out altogether.
func (s *ruleSet) suppressItems(rec *marc.Record, ctx *cobindex.Context) ([]string, error) {
	if !suppressed(rec) {
		return nil, nil
	}
	if s.cfg.FullReindex {
		ctx.Skip("Skipping record with suppressed items")
		return nil, nil
	}
	return []string{"true"}, nil
}

func suppressed(rec *marc.Record) bool {
	holdings := rec.FieldsByTag(marc.TagHolding)
	portfolios := rec.FieldsByTag(marc.TagPortfolio)

	online := false
	for _, f := range rec.FieldsByTag("856") {
		if f.HasSubfield("u") && f.Ind2 != "2" {
			online = true
			break
		}
	}
	if len(holdings) == 0 && len(portfolios) == 0 && !online && !purchaseOrder(rec) {
		return true
	}

	if its := rec.FieldsByTag(marc.TagItem); len(its) > 0 {
		all := true
		for _, f := range its {
			if !in(unavailableStatus, f.Subfield("u")) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}

	if len(holdings) == 1 {
		h := holdings[0]
		if h.Subfield("b") == "EMPTY" || in(placeholderLocations, h.Subfield("c")) {
			return true
		}
	}

	if len(portfolios) > 0 {
		for _, f := range portfolios {
			if f.Subfield("9") != notAvailable {
				return false
			}
		}
		return true
	}
	return false
}

// items renders holdings without items and then every item as JSON
// objects.
func items(rec *marc.Record, _ *cobindex.Context) ([]string, error) {
	summaries := make(map[string]string)
	for _, f := range rec.FieldsByTag(marc.TagHoldingSummary) {
		if id := f.Subfield("8"); id != "" {
			if _, ok := summaries[id]; !ok {
				summaries[id] = f.Subfield("a")
			}
		}
	}
	itemHoldings := make(map[string]struct{})
	for _, f := range rec.FieldsByTag(marc.TagItem) {
		itemHoldings[f.Subfield("r")] = struct{}{}
	}

	var out []string
	for _, f := range rec.FieldsByTag(marc.TagHolding) {
		id := f.Subfield("8")
		if in(itemHoldings, id) {
			continue
		}
		o := newObject().
			set("holding_id", id).
			set("current_library", f.Subfield("b")).
			set("current_location", f.Subfield("c")).
			set("call_number", f.Subfield("h")+f.Subfield("i")).
			set("summary", summaries[id])
		if !o.empty() {
			out = append(out, o.String())
		}
	}
	for _, f := range rec.FieldsByTag(marc.TagItem) {
		o := newObject().
			set("item_pid", f.Subfield("8")).
			set("item_policy", f.Subfield("a")).
			set("description", f.Subfield("c")).
			set("permanent_library", f.Subfield("d")).
			set("permanent_location", f.Subfield("e")).
			set("current_library", f.Subfield("f")).
			set("current_location", f.Subfield("g")).
			set("call_number_type", f.Subfield("h")).
			set("call_number", f.Subfield("i")).
			set("alt_call_number_type", f.Subfield("j")).
			set("alt_call_number", f.Subfield("k")).
			set("temp_call_number_type", f.Subfield("l")).
			set("temp_call_number", f.Subfield("m")).
			set("public_note", f.Subfield("o")).
			set("due_back_date", f.Subfield("p")).
			set("holding_id", f.Subfield("r")).
			set("material_type", f.Subfield("t")).
			set("summary", summaries[f.Subfield("r")]).
			set("process_type", f.Subfield("u"))
		if !o.empty() {
			out = append(out, o.String())
		}
	}
	return out, nil
}

// libraryBoost boosts records held anywhere outside the inverse boosted
// libraries.
func libraryBoost(rec *marc.Record, _ *cobindex.Context) ([]string, error) {
	var out []string
	for _, f := range rec.FieldsByTag(marc.TagHolding) {
		if !in(inverseBoostLibraries, f.Subfield("b")) {
			return []string{"boost"}, nil
		}
		out = append(out, "no_boost")
	}
	return out, nil
}

func (s *ruleSet) boostLabels(rec *marc.Record, _ *cobindex.Context) ([]string, error) {
	var out []string
	var libs []string
	for _, f := range rec.FieldsByTag(marc.TagHolding) {
		libs = append(libs, f.SubfieldValues("b")...)
	}
	if len(libs) > 0 {
		all := true
		for _, l := range libs {
			if !in(inverseBoostLibraries, l) {
				all = false
				break
			}
		}
		if all {
			out = append(out, "inverse_boost_libraries")
		}
	}
	for _, g := range genreFacetExtractor.Extract(rec) {
		if bookseller.MatchString(g) {
			out = append(out, "inverse_boost_bookseller")
			break
		}
	}
	return out, nil
}

var genreFacetExtractor = marc.MustExtractor(genreFacetSpec)

// purchaseOrder reports whether the record is a print on demand title that
// can be bought when requested.
func purchaseOrder(rec *marc.Record) bool {
	for _, f := range rec.FieldsByTag("902") {
		for _, a := range f.SubfieldValues("a") {
			if strings.Contains(a, "EBC-POD") {
				return true
			}
		}
	}
	return false
}

func purchaseOrderRule(rec *marc.Record, _ *cobindex.Context) ([]string, error) {
	if purchaseOrder(rec) {
		return []string{"true"}, nil
	}
	return []string{"false"}, nil
}

var nonWord = regexp.MustCompile(`\W`)

// donors names the donors of gifts recorded in 541.
func donors(rec *marc.Record, _ *cobindex.Context) ([]string, error) {
	var out []string
	for _, f := range rec.FieldsByTag("541") {
		if f.Ind1 != "1" || nonWord.ReplaceAllString(f.Subfield("c"), "") != "Gift" {
			continue
		}
		if a := strings.TrimSpace(strings.TrimSuffix(f.Subfield("a"), ";")); a != "" {
			out = append(out, a)
		}
	}
	return out, nil
}
