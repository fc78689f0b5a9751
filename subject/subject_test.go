package subject

import (
	"reflect"
	"testing"

	"github.com/tulibraries/cobindex/marc"
	"github.com/tulibraries/cobindex/translation"
)

const (
	displayFields = "600abcdefghklmnopqrstuvxyz:610abcdefghklmnoprstuvxyz:611acdefghjklnpqstuvxyz:630adefghklmnoprstvxyz:647acdgvxyz:648axvyz:650abcdegvxyz:651aegvxyz:653a:654abcevyz:656akvxyz:657avxyz:690abcdegvxyz"
	topicFields   = "600abcdq:610ab:611a:630a:650ax:653a:654ab:647acdg"
)

func remediator(t *testing.T) *Remediator {
	t.Helper()
	reg, err := translation.Default()
	if err != nil {
		t.Fatalf("loading translations: %v", err)
	}
	return NewRemediator(reg.Map(translation.SubjectRemediation))
}

func record(t *testing.T, fields string) *marc.Record {
	t.Helper()
	rec, err := marc.ParseString(`<record xmlns="http://www.loc.gov/MARC21/slim">` + fields + `</record>`)
	if err != nil {
		t.Fatalf("parsing record: %v", err)
	}
	return rec
}

func TestExtractor(t *testing.T) {
	rem := remediator(t)
	tests := []struct {
		name   string
		fields string
		seps   []string
		opts   []Option
		xml    string
		exp    []string
	}{
		{
			name:   "display with subdivisions",
			fields: displayFields,
			seps:   []string{"v", "x", "y", "z"},
			xml: `<datafield tag="650" ind1=" " ind2="0"><subfield code="a">Illegal aliens</subfield><subfield code="z">United States</subfield><subfield code="v">Pictorial works.</subfield></datafield>
<datafield tag="650" ind1=" " ind2="0"><subfield code="a">Illegal aliens.</subfield><subfield code="x">Southern States </subfield></datafield>`,
			exp: []string{"Undocumented immigrants — United States — Pictorial works", "Undocumented immigrants — Southern States"},
		},
		{
			name:   "geographic heading with period",
			fields: displayFields,
			seps:   []string{"v", "x", "y", "z"},
			xml:    `<datafield tag="651" ind1=" " ind2="0"><subfield code="a">America, Gulf of.</subfield></datafield>`,
			exp:    []string{"Mexico, Gulf of"},
		},
		{
			name:   "untranslated heading is trimmed",
			fields: displayFields,
			seps:   []string{"v", "x", "y", "z"},
			xml:    `<datafield tag="650" ind1=" " ind2="0"><subfield code="a">Test subject.</subfield><subfield code="z">United States</subfield></datafield>`,
			exp:    []string{"Test subject — United States"},
		},
		{
			name:   "capital letters",
			fields: displayFields,
			seps:   []string{"v", "x", "y", "z"},
			xml:    `<datafield tag="653" ind1=" " ind2=" "><subfield code="a">ILLEGAL ALIENS</subfield></datafield>`,
			exp:    []string{"Undocumented immigrants"},
		},
		{
			name:   "sorted by tag",
			fields: displayFields,
			seps:   []string{"v", "x", "y", "z"},
			xml: `<datafield tag="651" ind1=" " ind2="0"><subfield code="a">United States</subfield><subfield code="x">Civilization</subfield><subfield code="y">1945-</subfield></datafield>
<datafield tag="600" ind1="1" ind2="0"><subfield code="a">Kennedy, John F.</subfield><subfield code="q">(John Fitzgerald)</subfield><subfield code="d">1917-1963</subfield><subfield code="v">Pictorial works.</subfield></datafield>`,
			exp: []string{"Kennedy, John F. (John Fitzgerald) 1917-1963 — Pictorial works", "United States — Civilization — 1945-"},
		},
		{
			name:   "topic facet",
			fields: topicFields,
			seps:   []string{"x"},
			xml: `<datafield tag="650" ind1=" " ind2="0"><subfield code="a">Illegal aliens</subfield><subfield code="z">United States</subfield><subfield code="v">Pictorial works.</subfield></datafield>
<datafield tag="650" ind1=" " ind2="0"><subfield code="a">Alien property.</subfield><subfield code="z">United States</subfield></datafield>
<datafield tag="650" ind1=" " ind2="0"><subfield code="a">Presidents' spouses</subfield><subfield code="z">United States</subfield></datafield>
<datafield tag="650" ind1=" " ind2="0"><subfield code="a">Illegal aliens</subfield></datafield>`,
			exp: []string{"Undocumented immigrants", "Noncitizen property", "Presidents' spouses"},
		},
		{
			name:   "topic facet with x",
			fields: topicFields,
			seps:   []string{"x"},
			xml:    `<datafield tag="650" ind1=" " ind2="0"><subfield code="a">Illegal aliens</subfield><subfield code="x">Southern States</subfield><subfield code="v">Pictorial works.</subfield></datafield>`,
			exp:    []string{"Undocumented immigrants — Southern States"},
		},
		{
			name:   "authority link ignored",
			fields: topicFields,
			seps:   []string{"x"},
			xml:    `<datafield tag="650" ind1=" " ind2="0"><subfield code="a">Mountaineering</subfield><subfield code="0">https://id.loc.gov/authorities/subjects/sh85087816</subfield><subfield code="z">Alaska</subfield></datafield>`,
			exp:    []string{"Mountaineering"},
		},
		{
			name:   "no allowed subfields",
			fields: topicFields,
			seps:   []string{"x"},
			xml:    `<datafield tag="650" ind1=" " ind2="0"><subfield code="z">Alaska</subfield></datafield>`,
			exp:    nil,
		},
		{
			name:   "deprecated search terms",
			fields: topicFields,
			seps:   []string{"v", "x", "y", "z"},
			opts:   []Option{OptDeprecated()},
			xml: `<datafield tag="650" ind1=" " ind2="0"><subfield code="a">Illegal aliens</subfield><subfield code="x">Southern States</subfield></datafield>
<datafield tag="650" ind1=" " ind2="0"><subfield code="a">Illegal aliens</subfield></datafield>`,
			exp: []string{"Undocumented immigrants — Southern States", "Undocumented immigrants", "Illegal aliens"},
		},
	}
	for _, tst := range tests {
		t.Run(tst.name, func(t *testing.T) {
			e, err := NewExtractor(tst.fields, tst.seps, rem, tst.opts...)
			if err != nil {
				t.Fatalf("getting extractor: %v", err)
			}
			got := e.Extract(record(t, tst.xml))
			if !reflect.DeepEqual(got, tst.exp) {
				t.Fatalf("got %q, expected %q", got, tst.exp)
			}
		})
	}
}

func TestGeoExtractor(t *testing.T) {
	rem := remediator(t)
	reg, _ := translation.Default()
	g, err := NewGeoExtractor(GeoPlaceFields, GeoDivisionFields, reg.Map(translation.Geographic), rem)
	if err != nil {
		t.Fatalf("getting geo extractor: %v", err)
	}
	tests := []struct {
		name string
		xml  string
		exp  []string
	}{
		{
			name: "deprecated place inside subdivision",
			xml:  `<datafield tag="650" ind1=" " ind2="0"><subfield code="a">Water</subfield><subfield code="z">America, Gulf of, Watershed.</subfield></datafield>`,
			exp:  []string{"Mexico, Gulf of, Watershed"},
		},
		{
			name: "unrelated place untouched",
			xml:  `<datafield tag="651" ind1=" " ind2="0"><subfield code="a">Mount McKinley (Alaska)</subfield></datafield>`,
			exp:  []string{"Mount McKinley (Alaska)"},
		},
		{
			name: "area code and place",
			xml: `<datafield tag="043" ind1=" " ind2=" "><subfield code="a">n-us-ak</subfield></datafield>
<datafield tag="651" ind1=" " ind2="0"><subfield code="a">Alaska.</subfield></datafield>`,
			exp: []string{"Alaska"},
		},
		{
			name: "two subdivisions",
			xml:  `<datafield tag="650" ind1=" " ind2="0"><subfield code="a">Geology</subfield><subfield code="z">Pennsylvania</subfield><subfield code="z">Philadelphia.</subfield></datafield>`,
			exp:  []string{"Philadelphia (Pennsylvania)", "Pennsylvania"},
		},
		{
			name: "double hyphen heading",
			xml:  `<datafield tag="691" ind1=" " ind2=" "><subfield code="a">Philadelphia -- Germantown</subfield></datafield>`,
			exp:  []string{"Philadelphia (Germantown)"},
		},
		{
			name: "trailing hyphen code",
			xml:  `<datafield tag="043" ind1=" " ind2=" "><subfield code="a">n-us---</subfield></datafield>`,
			exp:  []string{"United States"},
		},
	}
	for _, tst := range tests {
		t.Run(tst.name, func(t *testing.T) {
			got := g.Extract(record(t, tst.xml))
			if !reflect.DeepEqual(got, tst.exp) {
				t.Fatalf("got %q, expected %q", got, tst.exp)
			}
		})
	}
}

func TestRemediator(t *testing.T) {
	rem := remediator(t)
	if got := rem.Term("Aliens."); got != "Noncitizens" {
		t.Fatalf("Term: %q", got)
	}
	if got := rem.Term("Pets"); got != "Pets" {
		t.Fatalf("Term changed unknown value: %q", got)
	}
	if d, ok := rem.Deprecated("Denali, Mount"); !ok || d != "McKinley, Mount" {
		t.Fatalf("Deprecated: %q %v", d, ok)
	}
	if got := rem.Remediate("Illegal aliens — Pennsylvania"); got != "Undocumented immigrants — Pennsylvania" {
		t.Fatalf("Remediate: %q", got)
	}
}
