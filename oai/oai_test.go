package oai

import (
	"context"
	"encoding/json"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/tulibraries/cobindex"
)

const feed = `<?xml version="1.0" encoding="UTF-8"?>
<OAI-PMH xmlns="http://www.openarchives.org/OAI/2.0/">
  <responseDate>2020-03-03T04:16:09Z</responseDate>
  <request verb="ListRecords" metadataPrefix="marc21" set="blacklight">https://example.org/oai</request>
  <ListRecords>
    <record>
      <header status="deleted">
        <identifier>oai:alma.01TULI_INST:991025803889703811</identifier>
        <datestamp>2020-03-03T03:54:35Z</datestamp>
        <setSpec>blacklight</setSpec>
        <setSpec>rapid_print_journals</setSpec>
      </header>
    </record>
    <record>
      <header>
        <identifier>oai:alma.01TULI_INST:991022366369703811</identifier>
        <datestamp>2020-03-03T03:55:00Z</datestamp>
      </header>
      <metadata>
        <record xmlns="http://www.loc.gov/MARC21/slim">
          <controlfield tag="001">991022366369703811</controlfield>
        </record>
      </metadata>
    </record>
    <record>
      <header status="deleted">
        <identifier>oai:alma.01TULI_INST:991000000009703811</identifier>
        <datestamp>2020-03-04T00:00:00Z</datestamp>
      </header>
    </record>
    <record>
      <header status="deleted">
        <identifier>oai:alma.01TULI_INST:123</identifier>
        <datestamp>2020-03-04T00:00:00Z</datestamp>
      </header>
    </record>
  </ListRecords>
</OAI-PMH>`

type memSink struct {
	docs    []*cobindex.Document
	deletes [][]string
	closed  int
	err     error
}

func (m *memSink) Write(docs []*cobindex.Document) error {
	if m.err != nil {
		return m.err
	}
	m.docs = append(m.docs, docs...)
	return nil
}

func (m *memSink) DeleteBatch(ids []string) error {
	if m.err != nil {
		return m.err
	}
	m.deletes = append(m.deletes, ids)
	return nil
}

func (m *memSink) Close() error {
	m.closed++
	return nil
}

func TestDecoder(t *testing.T) {
	dec := NewDecoder(strings.NewReader(feed))
	rec, err := dec.Decode()
	if err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if rec.ID() != "991025803889703811" {
		t.Errorf("unexpected id %q", rec.ID())
	}
	if !rec.Deleted() || rec.Header.Datestamp != "2020-03-03T03:54:35Z" {
		t.Errorf("unexpected header %+v", rec.Header)
	}
	if !reflect.DeepEqual(rec.Header.SetSpecs, []string{"blacklight", "rapid_print_journals"}) {
		t.Errorf("unexpected sets %v", rec.Header.SetSpecs)
	}

	n := 1
	for {
		rec, err = dec.Decode()
		if err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("decoding: %v", err)
		}
		n++
	}
	if n != 4 {
		t.Fatalf("expected 4 records, got %d", n)
	}
}

func TestDecoderNoHeader(t *testing.T) {
	dec := NewDecoder(strings.NewReader(`<OAI-PMH xmlns="http://www.openarchives.org/OAI/2.0/"><record/></OAI-PMH>`))
	if _, err := dec.Decode(); err == nil || !strings.Contains(err.Error(), "no header") {
		t.Fatalf("expected header error, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	sink := &memSink{}
	p := NewProcessor(Delete, sink)
	stats, err := p.Run(context.Background(), cobindex.NewReaderSource("feed.xml", strings.NewReader(feed)))
	if err != nil {
		t.Fatalf("running: %v", err)
	}
	exp := [][]string{{"991000000009703811", "991025803889703811"}}
	if !reflect.DeepEqual(sink.deletes, exp) {
		t.Errorf("unexpected deletes %v", sink.deletes)
	}
	if len(sink.docs) != 0 {
		t.Errorf("delete mode should write no documents")
	}
	if stats != (cobindex.Stats{Read: 4, Skipped: 4, Written: 2}) {
		t.Errorf("unexpected stats %+v", stats)
	}
	if sink.closed != 1 {
		t.Errorf("sink closed %d times", sink.closed)
	}
}

func TestDeleteNothing(t *testing.T) {
	sink := &memSink{}
	_, err := NewProcessor(Delete, sink).Run(context.Background(), cobindex.NewReaderSource("empty", strings.NewReader(`<OAI-PMH/>`)))
	if err != nil {
		t.Fatalf("running: %v", err)
	}
	if sink.deletes != nil {
		t.Errorf("no delete request expected, got %v", sink.deletes)
	}
}

func TestSuppress(t *testing.T) {
	sink := &memSink{}
	p := NewProcessor(Suppress, sink, OptProcessorBatchSize(1))
	stats, err := p.Run(context.Background(), cobindex.NewReaderSource("feed.xml", strings.NewReader(feed)))
	if err != nil {
		t.Fatalf("running: %v", err)
	}
	var got []string
	for _, d := range sink.docs {
		bs, err := json.Marshal(d)
		if err != nil {
			t.Fatalf("marshaling: %v", err)
		}
		got = append(got, string(bs))
	}
	exp := []string{
		`{"id":["991025803889703811"],"record_update_date":["2020-03-03T03:54:35Z"],"suppress_items_b":["true"]}`,
		`{"id":["991000000009703811"],"record_update_date":["2020-03-04T00:00:00Z"],"suppress_items_b":["true"]}`,
	}
	if !reflect.DeepEqual(got, exp) {
		t.Errorf("unexpected documents:\n%v", strings.Join(got, "\n"))
	}
	if stats != (cobindex.Stats{Read: 4, Skipped: 2, Written: 2}) {
		t.Errorf("unexpected stats %+v", stats)
	}
	if sink.deletes != nil {
		t.Errorf("suppress mode should not delete")
	}
}

func TestSinkError(t *testing.T) {
	sink := &memSink{err: errors.New("solr down")}
	_, err := NewProcessor(Delete, sink).Run(context.Background(), cobindex.NewReaderSource("feed.xml", strings.NewReader(feed)))
	if err == nil || errors.Cause(err).Error() != "solr down" {
		t.Fatalf("expected sink error, got %v", err)
	}
	if sink.closed != 1 {
		t.Errorf("sink should be closed on error")
	}
}
