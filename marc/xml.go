package marc

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/unicode/norm"
)

// Namespace is the MARCXML slim namespace.
const Namespace = "http://www.loc.gov/MARC21/slim"

type marcSubField struct {
	Code  string `xml:"code,attr"`
	Value string `xml:",chardata"`
}

type marcControlField struct {
	Tag   string `xml:"tag,attr"`
	Value string `xml:",chardata"`
}

type marcDataField struct {
	Tag       string         `xml:"tag,attr"`
	Ind1      string         `xml:"ind1,attr"`
	Ind2      string         `xml:"ind2,attr"`
	SubFields []marcSubField `xml:"subfield"`
}

type marcRecord struct {
	XMLName       xml.Name           `xml:"record"`
	Leader        string             `xml:"leader"`
	ControlFields []marcControlField `xml:"controlfield"`
	DataFields    []marcDataField    `xml:"datafield"`
}

// outRecord mirrors marcRecord but always encodes with the slim namespace.
type outRecord struct {
	XMLName       xml.Name           `xml:"http://www.loc.gov/MARC21/slim record"`
	Leader        string             `xml:"leader,omitempty"`
	ControlFields []marcControlField `xml:"controlfield"`
	DataFields    []marcDataField    `xml:"datafield"`
}

// Decoder reads MARCXML records one at a time from a collection or from a
// stream of bare record elements, such as the metadata sections of an OAI-PMH
// response.
type Decoder struct {
	d *xml.Decoder
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{d: xml.NewDecoder(r)}
}

// Decode returns the next record, or io.EOF once the input is exhausted.
func (d *Decoder) Decode() (*Record, error) {
	for {
		tok, err := d.d.Token()
		if err == io.EOF {
			return nil, io.EOF
		} else if err != nil {
			return nil, errors.Wrap(err, "reading marcxml token")
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "record" {
			continue
		}
		// OAI-PMH wraps each MARC record in its own record element.
		if se.Name.Space != "" && se.Name.Space != Namespace {
			continue
		}
		mr := marcRecord{}
		if err := d.d.DecodeElement(&mr, &se); err != nil {
			return nil, errors.Wrap(err, "decoding marcxml record")
		}
		return mr.record(), nil
	}
}

// DecodeAll reads every record from r.
func DecodeAll(r io.Reader) ([]*Record, error) {
	dec := NewDecoder(r)
	var recs []*Record
	for {
		rec, err := dec.Decode()
		if err == io.EOF {
			return recs, nil
		} else if err != nil {
			return recs, err
		}
		recs = append(recs, rec)
	}
}

// ParseString decodes the first record in s.
func ParseString(s string) (*Record, error) {
	rec, err := NewDecoder(strings.NewReader(s)).Decode()
	if err == io.EOF {
		return nil, errors.New("no record found")
	}
	return rec, err
}

func (mr marcRecord) record() *Record {
	rec := &Record{
		Leader: mr.Leader,
		Fields: make([]*Field, 0, len(mr.ControlFields)+len(mr.DataFields)),
	}
	for _, cf := range mr.ControlFields {
		rec.Fields = append(rec.Fields, &Field{Tag: cf.Tag, Value: cf.Value})
	}
	for _, df := range mr.DataFields {
		f := &Field{
			Tag:       df.Tag,
			Ind1:      indicator(df.Ind1),
			Ind2:      indicator(df.Ind2),
			Subfields: make([]Subfield, 0, len(df.SubFields)),
		}
		for _, sf := range df.SubFields {
			f.Subfields = append(f.Subfields, Subfield{Code: sf.Code, Value: norm.NFC.String(sf.Value)})
		}
		rec.Fields = append(rec.Fields, f)
	}
	return rec
}

func indicator(s string) string {
	if s == "" {
		return " "
	}
	return s[:1]
}

// XML encodes the record as a namespaced MARCXML record element.
func (r *Record) XML() (string, error) {
	out := outRecord{Leader: r.Leader}
	for _, f := range r.Fields {
		if f.IsControl() {
			out.ControlFields = append(out.ControlFields, marcControlField{Tag: f.Tag, Value: f.Value})
			continue
		}
		df := marcDataField{Tag: f.Tag, Ind1: f.Ind1, Ind2: f.Ind2}
		for _, sf := range f.Subfields {
			df.SubFields = append(df.SubFields, marcSubField{Code: sf.Code, Value: sf.Value})
		}
		out.DataFields = append(out.DataFields, df)
	}
	bs, err := xml.Marshal(out)
	if err != nil {
		return "", errors.Wrap(err, "encoding marcxml")
	}
	return string(bs), nil
}
