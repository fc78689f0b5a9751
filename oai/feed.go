// Package oai reads OAI-PMH ListRecords responses and applies their
// deletions to the index, either by removing the documents or by marking
// their items suppressed.
package oai

import (
	"encoding/xml"
	"io"
	"regexp"

	"github.com/pkg/errors"
)

// Namespace is the OAI-PMH 2.0 namespace.
const Namespace = "http://www.openarchives.org/OAI/2.0/"

// StatusDeleted is the header status of a withdrawn record.
const StatusDeleted = "deleted"

// Header is the OAI header of one record.
type Header struct {
	Status     string   `xml:"status,attr"`
	Identifier string   `xml:"identifier"`
	Datestamp  string   `xml:"datestamp"`
	SetSpecs   []string `xml:"setSpec"`
}

// Record is one OAI record. Only the header is decoded.
type Record struct {
	Header *Header `xml:"header"`
}

var idPattern = regexp.MustCompile(`[0-9]{8,}$`)

// ID returns the trailing run of at least eight digits of the header
// identifier, or "" if there is none.
func (r *Record) ID() string {
	return idPattern.FindString(r.Header.Identifier)
}

// Deleted reports whether the record was withdrawn.
func (r *Record) Deleted() bool {
	return r.Header.Status == StatusDeleted
}

// Decoder streams the record elements of an OAI-PMH document.
type Decoder struct {
	d *xml.Decoder
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{d: xml.NewDecoder(r)}
}

// Decode returns the next record, or io.EOF when the document is done.
func (d *Decoder) Decode() (*Record, error) {
	for {
		tok, err := d.d.Token()
		if err == io.EOF {
			return nil, io.EOF
		} else if err != nil {
			return nil, errors.Wrap(err, "reading token")
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "record" || (se.Name.Space != Namespace && se.Name.Space != "") {
			continue
		}
		rec := &Record{}
		if err := d.d.DecodeElement(rec, &se); err != nil {
			return nil, errors.Wrap(err, "decoding record")
		}
		if rec.Header == nil {
			return nil, errors.New("record has no header")
		}
		return rec, nil
	}
}
