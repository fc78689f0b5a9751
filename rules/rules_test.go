package rules

import (
	"strings"
	"testing"
	"time"

	"github.com/tulibraries/cobindex"
	"github.com/tulibraries/cobindex/hathi"
	"github.com/tulibraries/cobindex/marc"
	"github.com/tulibraries/cobindex/test"
)

const (
	bookLeader = "01035cam a2200289 a 4500"
	fixedField = "870122s1966    nyua     b    000 0 eng d"
)

var fixedNow = time.Date(2023, time.January, 2, 3, 4, 5, 0, time.UTC)

func control(tag, value string) *marc.Field {
	return &marc.Field{Tag: tag, Value: value}
}

// data builds a data field from code, value pairs.
func data(tag, ind1, ind2 string, pairs ...string) *marc.Field {
	f := &marc.Field{Tag: tag, Ind1: ind1, Ind2: ind2}
	for i := 0; i+1 < len(pairs); i += 2 {
		f.Subfields = append(f.Subfields, marc.Subfield{Code: pairs[i], Value: pairs[i+1]})
	}
	return f
}

func newRecord(fields ...*marc.Field) *marc.Record {
	base := []*marc.Field{
		control("001", "991000000019503811"),
		control("008", fixedField),
		data("245", "1", "0", "a", "Profiles in courage /", "c", "John F. Kennedy."),
	}
	return &marc.Record{Leader: bookLeader, Fields: append(base, fields...)}
}

type fakeHathi map[string]hathi.Entry

func (h fakeHathi) Lookup(oclc string) (hathi.Entry, bool, error) {
	e, ok := h[oclc]
	return e, ok, nil
}

func index(t *testing.T, cfg Config, rec *marc.Record) *cobindex.Context {
	t.Helper()
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return fixedNow }
	}
	ix, err := New(cfg)
	test.ErrNil(t, err, "New")
	ctx, err := ix.Index(rec)
	test.ErrNil(t, err, "Index")
	return ctx
}

func TestOnlineLink(t *testing.T) {
	rec := newRecord(data("856", "4", "0", "u", "http://example.com/book", "z", "Full text"))
	doc := index(t, Config{}, rec).Doc
	test.MustBe(t, []string{"Online"}, doc.Get("availability_facet"))
	test.MustBe(t, []string{`{"title":"Full text","url":"http://example.com/book"}`}, doc.Get("electronic_resource_display"))
	test.MustBe(t, []string(nil), doc.Get("url_more_links_display"))
	test.MustBe(t, []string(nil), doc.Get("suppress_items_b"))
}

func TestMoreLinks(t *testing.T) {
	rec := newRecord(
		data("856", "4", "2", "u", "http://example.com/about?a=1&b=2"),
		data("856", "4", "1", "u", "http://example.com/toc", "3", "Table of contents"),
		data("856", "4", "2", "u", "https://scrcarchivesspace.temple.edu/repositories/3", "z", "Finding aid"),
	)
	doc := index(t, Config{}, rec).Doc
	test.MustBe(t, []string{
		`{"title":"Link to Resource","url":"http://example.com/about?a=1&b=2"}`,
		`{"title":"Table of contents","url":"http://example.com/toc"}`,
	}, doc.Get("url_more_links_display"))
	test.MustBe(t, []string{`{"title":"Finding aid","url":"https://scrcarchivesspace.temple.edu/repositories/3"}`}, doc.Get("url_finding_aid_display"))
	test.MustBe(t, []string(nil), doc.Get("electronic_resource_display"))
}

func TestSuppressNothingHeld(t *testing.T) {
	ctx := index(t, Config{}, newRecord())
	test.MustBe(t, []string{"true"}, ctx.Doc.Get("suppress_items_b"))

	ctx = index(t, Config{FullReindex: true}, newRecord())
	_, skipped := ctx.Skipped()
	test.MustBe(t, true, skipped, "full reindex skips suppressed records")
}

func TestSuppressItems(t *testing.T) {
	tests := []struct {
		name   string
		fields []*marc.Field
		exp    bool
	}{
		{name: "held", fields: []*marc.Field{data("HLD", " ", " ", "8", "221", "b", "MAIN", "c", "stacks")}},
		{name: "empty holding", fields: []*marc.Field{data("HLD", " ", " ", "8", "221", "b", "EMPTY", "c", "stacks")}, exp: true},
		{name: "placeholder location", fields: []*marc.Field{data("HLD", " ", " ", "8", "221", "b", "MAIN", "c", "techserv")}, exp: true},
		{name: "missing items", fields: []*marc.Field{
			data("HLD", " ", " ", "8", "221", "b", "MAIN", "c", "stacks"),
			data("ITM", " ", " ", "u", "MISSING"),
			data("ITM", " ", " ", "u", "LOST_LOAN"),
		}, exp: true},
		{name: "one item on shelf", fields: []*marc.Field{
			data("HLD", " ", " ", "8", "221", "b", "MAIN", "c", "stacks"),
			data("ITM", " ", " ", "u", "MISSING"),
			data("ITM", " ", " ", "f", "MAIN"),
		}},
		{name: "unavailable portfolio", fields: []*marc.Field{data("PRT", " ", " ", "a", "53", "9", "Not Available")}, exp: true},
		{name: "purchase on demand", fields: []*marc.Field{data("902", " ", " ", "a", "EBC-POD")}},
	}
	for _, tst := range tests {
		t.Run(tst.name, func(t *testing.T) {
			test.MustBe(t, tst.exp, suppressed(newRecord(tst.fields...)))
		})
	}
}

func TestTruncatedTitle(t *testing.T) {
	rec := newRecord()
	rec.Fields[2] = data("245", "1", "0", "a", strings.Repeat("a", 400))
	doc := index(t, Config{}, rec).Doc
	test.MustBe(t, 304, len(doc.First("title_truncated_display")))
	test.MustBe(t, 400, len(doc.First("title_statement_display")))
}

func TestISBN(t *testing.T) {
	doc := index(t, Config{}, newRecord(data("020", " ", " ", "a", "0870648380"))).Doc
	test.MustBe(t, []string{"9780870648380", "0870648380"}, doc.Get("isbn_display"))
}

func TestBoundWithHost(t *testing.T) {
	rec := newRecord()
	rec.Fields[2] = data("245", "1", "0", "a", "Host bibliographic record for boundwith item barcode 39074015")
	ctx := index(t, Config{}, rec)
	reason, skipped := ctx.Skipped()
	test.MustBe(t, true, skipped)
	test.MustBe(t, "Skipping Boundwith host record", reason)
	test.MustBe(t, false, ctx.Doc.Has("id"))
}

func TestFormat(t *testing.T) {
	doc := index(t, Config{}, newRecord()).Doc
	test.MustBe(t, []string{"Book"}, doc.Get("format"))

	doc = index(t, Config{}, newRecord(data("502", " ", " ", "a", "Thesis (Ph. D.)--Temple University, 1999."))).Doc
	test.MustBe(t, []string{"Dissertation/Thesis"}, doc.Get("format"))
}

func TestSubjectRemediation(t *testing.T) {
	rec := newRecord(
		data("650", " ", "0", "a", "Illegal aliens", "z", "United States."),
		data("650", " ", "0", "a", "Illegal aliens."),
	)
	doc := index(t, Config{}, rec).Doc
	test.MustBe(t, []string{"Undocumented immigrants — United States", "Undocumented immigrants"}, doc.Get("subject_facet"))
	test.MustBe(t, []string{"Undocumented immigrants", "Illegal aliens"}, doc.Get("subject_search_facet"))

	// The search facet only takes topical subfields.
	rec = newRecord(data("650", " ", "0", "a", "Illegal aliens", "x", "Southern States", "v", "Pictorial works."))
	doc = index(t, Config{}, rec).Doc
	test.MustBe(t, []string{"Undocumented immigrants — Southern States — Pictorial works"}, doc.Get("subject_facet"))
	test.MustBe(t, []string{"Undocumented immigrants — Southern States"}, doc.Get("subject_search_facet"))
}

func TestGenreFacet(t *testing.T) {
	rec := newRecord(
		data("650", " ", "0", "a", "Cooking", "v", "Early works to 1800."),
		data("655", " ", "7", "a", "Electronic books."),
		data("650", " ", "0", "a", "Cooking", "v", "Early works to 1800"),
	)
	doc := index(t, Config{}, rec).Doc
	test.MustBe(t, []string{"Early works to 1800"}, doc.Get("genre_facet"))
}

func TestNames(t *testing.T) {
	rec := newRecord(
		data("100", "1", " ", "a", "Restak, Richard M.,", "e", "author."),
		data("700", "1", " ", "i", "Container of (work):", "a", "Smith, Jane,", "e", "editor."),
		data("700", "1", " ", "a", "Jones, Ann."),
	)
	doc := index(t, Config{}, rec).Doc
	test.MustBe(t, []string{"Restak, Richard M.|author"}, doc.Get("creator_display"))
	test.MustBe(t, []string{
		`{"relation":"Container of (work):","name":"Smith, Jane","role":"editor"}`,
		`{"name":"Jones, Ann"}`,
	}, doc.Get("contributor_display"))
}

func TestElectronicResourceOrder(t *testing.T) {
	prt := func(id, title, coverage string) *marc.Field {
		if coverage == "" {
			return data("PRT", " ", " ", "a", id, "c", title)
		}
		return data("PRT", " ", " ", "a", id, "c", title, "g", coverage)
	}
	tests := []struct {
		name string
		rec  *marc.Record
		exp  []string
	}{
		{
			name: "open range first",
			rec: newRecord(
				prt("1", "B", "Available from 1990 until 2000."),
				prt("2", "A", "Available from 2001."),
				prt("3", "C", ""),
			),
			exp: []string{"C", "A", "B"},
		},
		{
			name: "single year range",
			rec: newRecord(
				prt("1", "B", "Available from 1990 until 2000."),
				prt("2", "A", "Available from 2010 until 2010."),
				prt("3", "C", ""),
			),
			exp: []string{"C", "A", "B"},
		},
		{
			name: "single year after wider range with the same end",
			rec: newRecord(
				prt("1", "A", "Available from 2000 until 2000."),
				prt("2", "B", "Available from 1990 until 2000."),
			),
			exp: []string{"B", "A"},
		},
		{
			name: "same coverage by title",
			rec: newRecord(
				prt("1", "B", "Available from 01/01/1995 until 12/31/2005."),
				prt("2", "A", "Available from 1995 until 2005."),
			),
			exp: []string{"A", "B"},
		},
	}
	for _, tst := range tests {
		t.Run(tst.name, func(t *testing.T) {
			doc := index(t, Config{}, tst.rec).Doc
			var titles []string
			for _, v := range doc.Get("electronic_resource_display") {
				for _, tt := range []string{"A", "B", "C"} {
					if strings.Contains(v, `"title":"`+tt+`"`) {
						titles = append(titles, tt)
					}
				}
			}
			test.MustBe(t, tst.exp, titles)
			test.MustBe(t, []string{"Online"}, doc.Get("availability_facet"))
		})
	}
}

func TestUpdateDate(t *testing.T) {
	adm := func(a, b string) *marc.Field { return data("ADM", " ", " ", "a", a, "b", b) }
	tests := []struct {
		name string
		cfg  Config
		rec  *marc.Record
		exp  string
	}{
		{
			name: "latest admin date",
			rec:  newRecord(adm("2019-05-05 10:00:00 UTC", "2021-06-06 11:00:00 UTC")),
			exp:  "2021-06-06 11:00:00 UTC",
		},
		{
			name: "newer item",
			rec: newRecord(
				adm("2019-05-05 10:00:00 UTC", "2021-06-06 11:00:00 UTC"),
				data("ITM", " ", " ", "q", "2022-01-01 00:00:00 UTC"),
			),
			exp: "2022-01-01 00:00:00 UTC",
		},
		{
			name: "harvest start is not trusted",
			cfg:  Config{HarvestFrom: "2020-01-01T00:00:00Z"},
			rec:  newRecord(adm("2019-05-05 10:00:00 UTC", "2019-06-06 11:00:00 UTC")),
			exp:  "2023-01-02 03:04:05 UTC",
		},
		{
			name: "check disabled",
			cfg:  Config{DisableUpdateDateCheck: true},
			rec:  newRecord(adm("2019-05-05 10:00:00 UTC", "2021-06-06 11:00:00 UTC")),
			exp:  "2023-01-02 03:04:05 UTC",
		},
		{
			name: "no dates",
			rec:  newRecord(),
			exp:  DefaultUpdateDate,
		},
		{
			name: "unparseable date ignored",
			rec:  newRecord(adm("yesterday", "2021-06-06 11:00:00 UTC")),
			exp:  "2021-06-06 11:00:00 UTC",
		},
	}
	for _, tst := range tests {
		t.Run(tst.name, func(t *testing.T) {
			doc := index(t, tst.cfg, tst.rec).Doc
			test.MustBe(t, tst.exp, doc.UpdateDate())
		})
	}
}

func TestLanguage(t *testing.T) {
	rec := newRecord(data("041", "1", " ", "a", "engfre", "d", "frespa"))
	doc := index(t, Config{}, rec).Doc
	test.MustBe(t, []string{"English", "French", "Spanish"}, doc.Get("language_facet"))
}

func TestCallNumbers(t *testing.T) {
	rec := newRecord(
		data("050", " ", "4", "a", "QA76", "b", ".X1"),
		data("090", " ", " ", "a", "PS3545", "b", ".I345 Z5 1995"),
	)
	doc := index(t, Config{}, rec).Doc
	test.MustBe(t, []string{"PS3545 .I345 Z5 1995"}, doc.Get("lc_call_number_display"))
	test.MustBe(t, []string{"P - Language and Literature"}, doc.Get("lc_outer_facet"))
	test.MustBe(t, []string{"PS - American literature"}, doc.Get("lc_inner_facet"))
	test.MustBe(t, []string{"ps 3545 i345z51995"}, doc.Get("lc_call_number_sort"))
}

func TestLocations(t *testing.T) {
	rec := newRecord(
		data("HLD", " ", " ", "8", "221", "b", "MAIN", "c", "stacks", "h", "PS3545", "i", ".I345"),
		data("ITM", " ", " ", "8", "231", "f", "MAIN", "g", "stacks", "r", "221"),
		data("ITM", " ", " ", "8", "232", "f", "ASRS", "g", "stacks", "r", "221"),
		data("ITM", " ", " ", "8", "233", "f", "MAIN", "g", "reference", "u", "MISSING", "r", "221"),
		data("HLD", " ", " ", "8", "222", "b", "PRESSER", "c", "scores", "h", "M1", "i", ".B4"),
		data("HLD866", " ", " ", "8", "222", "a", "v.1-10"),
	)
	doc := index(t, Config{}, rec).Doc
	test.MustBe(t, []string{"Charles Library"}, doc.Get("library_facet"))
	test.MustBe(t, []string{"Charles Library - Stacks", "Charles Library - BookBot"}, doc.Get("location_facet"))
	test.MustBe(t, []string{"At the Library"}, doc.Get("availability_facet"))
	test.MustBe(t, []string{"boost"}, doc.Get("library_based_boost_txt"))

	items := doc.Get("items_json_display")
	test.MustBe(t, 4, len(items))
	test.MustBe(t, `{"holding_id":"222","current_library":"PRESSER","current_location":"scores","call_number":"M1.B4","summary":"v.1-10"}`, items[0])
	test.MustBe(t, `{"item_pid":"231","current_library":"MAIN","current_location":"stacks","holding_id":"221"}`, items[1])
}

func TestInverseBoost(t *testing.T) {
	rec := newRecord(
		data("HLD", " ", " ", "b", "PRESSER"),
		data("655", " ", "7", "a", "Booksellers' catalogs."),
	)
	doc := index(t, Config{}, rec).Doc
	test.MustBe(t, []string{"no_boost"}, doc.Get("library_based_boost_txt"))
	test.MustBe(t, []string{"inverse_boost_libraries", "inverse_boost_bookseller"}, doc.Get("boost_txt"))
}

func TestHathiAndOCLC(t *testing.T) {
	rec := newRecord(
		data("035", " ", " ", "a", "(OCoLC)00012345"),
		data("035", " ", " ", "a", "(OCoLC)999", "9", "ExL"),
		data("035", " ", " ", "a", "(PU)123"),
		// Only the first $a is read.
		data("035", " ", " ", "a", "(PU)55", "a", "(OCoLC)888"),
	)
	cfg := Config{Hathi: fakeHathi{"12345": {BibKey: "000001", Access: "deny"}}}
	doc := index(t, cfg, rec).Doc
	test.MustBe(t, []string{"12345"}, doc.Get("oclc_number_display"))
	test.MustBe(t, []string{`{"bib_key":"000001","access":"deny"}`}, doc.Get("hathi_trust_bib_key_display"))
	test.MustBe(t, []string{"ETAS"}, doc.Get("availability_facet"))
}

func TestPurchaseOrder(t *testing.T) {
	doc := index(t, Config{}, newRecord(data("902", " ", " ", "a", "EBC-POD"))).Doc
	test.MustBe(t, []string{"true"}, doc.Get("purchase_order"))
	test.MustBe(t, []string{"Request Rapid Access", "Online"}, doc.Get("availability_facet"))

	doc = index(t, Config{}, newRecord()).Doc
	test.MustBe(t, []string{"false"}, doc.Get("purchase_order"))
}

func TestDonors(t *testing.T) {
	rec := newRecord(
		data("541", "1", " ", "a", "Jane Smith;", "c", "Gift;"),
		data("541", "0", " ", "a", "Private donor", "c", "Gift"),
		data("541", "1", " ", "a", "Dealer", "c", "Purchase"),
	)
	doc := index(t, Config{}, rec).Doc
	test.MustBe(t, []string{"Jane Smith"}, doc.Get("donor_info_ms"))
}

func TestDefaults(t *testing.T) {
	doc := index(t, Config{}, newRecord()).Doc
	test.MustBe(t, "991000000019503811", doc.ID())
	test.MustBe(t, []string{DefaultCreationDate}, doc.Get("record_creation_date"))
	test.MustBe(t, []string{"Profiles in courage / John F. Kennedy."}, doc.Get("title_statement_display"))
	test.MustBe(t, []string{"Profiles in courage"}, doc.Get("title_with_subtitle_display"))
}

func TestBadSpec(t *testing.T) {
	s := &ruleSet{}
	if e := s.ext("24"); e != nil {
		t.Fatalf("expected no extractor for a malformed spec")
	}
	s.ext("245|1|a")
	if s.err == nil {
		t.Fatal("expected spec error")
	}
	_, err := cobindex.NewBuilder().Fail(s.err).Build()
	if err == nil {
		t.Fatal("expected build to fail")
	}
}

func TestTitleStatement(t *testing.T) {
	tests := []struct {
		name      string
		field     *marc.Field
		statement string
		subtitle  string
	}{
		{
			name:      "no medium",
			field:     data("245", "1", "0", "a", "Profiles in courage /", "c", "John F. Kennedy."),
			statement: "Profiles in courage / John F. Kennedy.",
			subtitle:  "Profiles in courage",
		},
		{
			name:      "medium before responsibility",
			field:     data("245", "1", "0", "a", "Hamlet", "h", "[videorecording] /", "c", "directed by Laurence Olivier."),
			statement: "Hamlet / directed by Laurence Olivier.",
			subtitle:  "Hamlet",
		},
		{
			name:      "slash already in title",
			field:     data("245", "1", "0", "a", "Hamlet /", "h", "[videorecording]", "c", "directed by Laurence Olivier."),
			statement: "Hamlet / directed by Laurence Olivier.",
			subtitle:  "Hamlet",
		},
		{
			name:      "medium without responsibility",
			field:     data("245", "1", "0", "a", "Hamlet", "h", "[videorecording]"),
			statement: "Hamlet",
			subtitle:  "Hamlet",
		},
		{
			name:      "subtitle",
			field:     data("245", "1", "0", "a", "Hamlet :", "b", "a tragedy /", "c", "William Shakespeare."),
			statement: "Hamlet : a tragedy / William Shakespeare.",
			subtitle:  "Hamlet : a tragedy",
		},
	}
	for _, tst := range tests {
		t.Run(tst.name, func(t *testing.T) {
			rec := newRecord()
			rec.Fields[2] = tst.field
			doc := index(t, Config{}, rec).Doc
			test.MustBe(t, []string{tst.statement}, doc.Get("title_statement_display"))
			test.MustBe(t, []string{tst.subtitle}, doc.Get("title_with_subtitle_display"))
		})
	}
}

func TestAdditionalTitle(t *testing.T) {
	rec := newRecord(
		data("210", "0", " ", "a", "Haml. trag."),
		data("246", "1", "3", "i", "Title on container:", "a", "Hamlet tragedy"),
		data("246", "3", "0", "a", "Tragedy of Hamlet"),
		data("730", "0", " ", "i", "Based on (work):", "a", "Gesta Danorum.", "l", "Latin"),
		data("740", "0", " ", "a", "Ophelia"),
	)
	doc := index(t, Config{}, rec).Doc
	test.MustBe(t, []string{
		`{"title":"Haml. trag."}`,
		`{"relation":"Title on container:","title":"Hamlet tragedy"}`,
		`{"title":"Tragedy of Hamlet"}`,
		`{"relation":"Based on (work):","title":"Gesta Danorum. Latin"}`,
		`{"title":"Ophelia"}`,
	}, doc.Get("title_addl_display"))
}

func TestUniformTitle(t *testing.T) {
	tests := []struct {
		name   string
		fields []*marc.Field
		exp    []string
	}{
		{
			name:   "single",
			fields: []*marc.Field{data("240", "1", "0", "a", "Hamlet")},
			exp:    []string{`{"title":"Hamlet"}`},
		},
		{
			name: "pairs",
			fields: []*marc.Field{
				data("130", "0", " ", "a", "Bible."),
				data("240", "1", "0", "a", "Hamlet"),
				data("240", "1", "0", "a", "Macbeth"),
			},
			exp: []string{`{"relation":"Bible.","title":"Hamlet"}`, `{"title":"Macbeth"}`},
		},
		{
			name: "none",
		},
	}
	for _, tst := range tests {
		t.Run(tst.name, func(t *testing.T) {
			doc := index(t, Config{}, newRecord(tst.fields...)).Doc
			test.MustBe(t, tst.exp, doc.Get("title_uniform_display"))
		})
	}
}

func TestWorkAccessPoint(t *testing.T) {
	tests := []struct {
		name   string
		fields []*marc.Field
		exp    []string
	}{
		{
			name: "uniform title main entry",
			fields: []*marc.Field{
				data("100", "1", " ", "a", "Shakespeare, William,"),
				data("130", "0", " ", "a", "Beowulf."),
			},
			exp: []string{"Beowulf."},
		},
		{
			name: "author and uniform title",
			fields: []*marc.Field{
				data("100", "1", " ", "a", "Shakespeare, William,", "d", "1564-1616."),
				data("240", "1", "0", "a", "Hamlet"),
			},
			exp: []string{"Shakespeare, William, 1564-1616. . Hamlet"},
		},
		{
			name: "corporate author and uniform title",
			fields: []*marc.Field{
				data("110", "2", " ", "a", "Royal Society"),
				data("240", "1", "0", "a", "Transactions"),
			},
			exp: []string{"Royal Society . Transactions"},
		},
		{
			name:   "author and title proper",
			fields: []*marc.Field{data("100", "1", " ", "a", "Kennedy, John F.")},
			exp:    []string{"Kennedy, John F. . Profiles in courage /"},
		},
		{
			name: "title only",
		},
	}
	for _, tst := range tests {
		t.Run(tst.name, func(t *testing.T) {
			// Main entries come before the title statement.
			rec := newRecord()
			title := rec.Fields[2]
			rec.Fields = append(append(rec.Fields[:2:2], tst.fields...), title)
			doc := index(t, Config{}, rec).Doc
			test.MustBe(t, tst.exp, doc.Get("work_access_point"))
		})
	}
}

func TestFindingAids(t *testing.T) {
	tests := []struct {
		name  string
		field *marc.Field
		exp   []string
	}{
		{
			name:  "archivesspace",
			field: data("856", "4", "2", "u", "https://scrcarchivesspace.temple.edu/repositories/3/resources/1", "z", "Finding aid"),
			exp:   []string{`{"title":"Finding aid","url":"https://scrcarchivesspace.temple.edu/repositories/3/resources/1"}`},
		},
		{
			name:  "library site",
			field: data("856", "4", "2", "u", "https://library.temple.edu/finding_aids/ward"),
			exp:   []string{`{"title":"Link to Resource","url":"https://library.temple.edu/finding_aids/ward"}`},
		},
		{
			name:  "resource itself",
			field: data("856", "4", "0", "u", "https://scrcarchivesspace.temple.edu/repositories/3/resources/1"),
		},
		{
			name:  "other library page",
			field: data("856", "4", "2", "u", "https://library.temple.edu/about"),
		},
	}
	for _, tst := range tests {
		t.Run(tst.name, func(t *testing.T) {
			doc := index(t, Config{}, newRecord(tst.field)).Doc
			test.MustBe(t, tst.exp, doc.Get("url_finding_aid_display"))
			for _, v := range doc.Get("url_more_links_display") {
				if tst.exp != nil && strings.Contains(v, "finding") {
					t.Errorf("finding aid also listed as a link: %s", v)
				}
			}
		})
	}
}

func TestPubDateSort(t *testing.T) {
	fixed := func(dateType, date1, date2 string) *marc.Field {
		return control("008", "870122"+dateType+date1+date2+" nyua     b    000 0 eng d")
	}
	tests := []struct {
		name    string
		fixed   *marc.Field
		imprint *marc.Field
		exp     []string
	}{
		{name: "single date", fixed: fixed("s", "1966", "    "), exp: []string{"1966"}},
		{name: "reprint uses original date", fixed: fixed("r", "1990", "1966"), exp: []string{"1966"}},
		{name: "reprint without original date", fixed: fixed("r", "1990", "    "), exp: []string{"1990"}},
		{name: "unknown year in decade", fixed: fixed("s", "196u", "    "), exp: []string{"1965"}},
		{name: "unknown decade", fixed: fixed("s", "19uu", "    ")},
		{name: "questionable range", fixed: fixed("q", "1960", "1970"), exp: []string{"1965"}},
		{
			name:    "wide questionable range",
			fixed:   fixed("q", "1900", "1950"),
			imprint: data("260", " ", " ", "a", "New York :", "c", "c1923."),
			exp:     []string{"1923"},
		},
		{
			name:    "no dates",
			fixed:   fixed("n", "uuuu", "uuuu"),
			imprint: data("260", " ", " ", "c", "[1899?]"),
			exp:     []string{"1899"},
		},
		{name: "too early", fixed: fixed("s", "0400", "    ")},
		{name: "too far ahead", fixed: fixed("s", "2035", "    ")},
		{name: "within six years", fixed: fixed("s", "2029", "    "), exp: []string{"2029"}},
	}
	for _, tst := range tests {
		t.Run(tst.name, func(t *testing.T) {
			rec := newRecord()
			rec.Fields[1] = tst.fixed
			if tst.imprint != nil {
				rec.Fields = append(rec.Fields, tst.imprint)
			}
			doc := index(t, Config{}, rec).Doc
			test.MustBe(t, tst.exp, doc.Get("pub_date_sort"))
		})
	}
}
