package solr

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/tulibraries/cobindex"
	"github.com/tulibraries/cobindex/normalize"
)

// MaxSkippedRecordsExceeded is returned once more records than the client's
// MaxSkipped budget have failed to send.
type MaxSkippedRecordsExceeded struct {
	Max   int64
	Msg   string
	cause error
}

func (e *MaxSkippedRecordsExceeded) Error() string {
	return fmt.Sprintf("Exceeded maximum number of skipped records (%d): aborting: %s", e.Max, e.Msg)
}

// Cause returns the failure that exhausted the budget.
func (e *MaxSkippedRecordsExceeded) Cause() error { return e.cause }

// Write sends a batch of documents. It satisfies cobindex.Writer.
func (c *Client) Write(docs []*cobindex.Document) error {
	return c.SendBatch(docs)
}

// Close commits when CommitOnClose is set.
func (c *Client) Close() error {
	if !c.CommitOnClose {
		return nil
	}
	return c.Commit()
}

// SendBatch posts docs in one update request. When OptimizeBatch is set,
// documents Solr already holds at the same or a later record_update_date are
// dropped first. If Solr rejects the batch each document is retried on its
// own.
func (c *Client) SendBatch(docs []*cobindex.Document) error {
	if c.OptimizeBatch {
		docs = c.newerThanStored(docs)
	}
	if len(docs) == 0 {
		return nil
	}
	body, err := json.Marshal(docs)
	if err != nil {
		return errors.Wrap(err, "marshaling batch")
	}
	r := c.do(http.MethodPost, c.updateURL, body)
	if r.err == nil && r.status == http.StatusOK {
		return nil
	}
	c.log.Printf("WARN: Error in Solr batch add. Will retry documents individually at performance penalty: %s", r)
	for _, d := range docs {
		if err := c.SendSingle(d); err != nil {
			return err
		}
	}
	return nil
}

// SendSingle posts one document. A version conflict is logged and
// ignored. Any other failure is logged and counted against MaxSkipped; the
// returned error is non-nil only once that budget is exceeded.
func (c *Client) SendSingle(doc *cobindex.Document) error {
	body, err := json.Marshal([]*cobindex.Document{doc})
	if err != nil {
		return errors.Wrapf(err, "marshaling record %s", doc.ID())
	}
	r := c.do(http.MethodPost, c.updateURL, body)
	switch {
	case r.err == nil && r.status == http.StatusOK:
		return nil
	case r.err == nil && r.status == http.StatusConflict:
		c.log.Printf("WARN: Could not add record %s due to version conflict", doc.ID())
		return nil
	}

	var cause error
	if r.err != nil {
		cause = r.err
	} else {
		cause = errors.Errorf("Solr error response: %s", r)
	}
	msg := fmt.Sprintf("Could not add record %s: %v", doc.ID(), cause)
	c.log.Printf("ERROR: %s", msg)
	c.log.Debugf("%s", c.sourceText(doc, body))

	n := atomic.AddInt64(&c.skipped, 1)
	if c.MaxSkipped >= 0 && n > c.MaxSkipped {
		return &MaxSkippedRecordsExceeded{Max: c.MaxSkipped, Msg: msg, cause: cause}
	}
	return nil
}

// sourceText is the MARCXML of the record doc was built from, or the start
// of the encoded document when there is none.
func (c *Client) sourceText(doc *cobindex.Document, body []byte) string {
	if rec := doc.Source(); rec != nil {
		x, err := rec.XML()
		if err == nil {
			return x
		}
		c.log.Debugf("encoding source of %s: %v", doc.ID(), err)
	}
	return normalize.Truncate(string(body), 1000)
}

// newerThanStored keeps the documents that should be sent: those Solr
// doesn't hold, those with an unparseable date on either side, and those
// strictly newer than the stored copy. If the stored dates can't be read
// every document is kept.
func (c *Client) newerThanStored(docs []*cobindex.Document) []*cobindex.Document {
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		if id := d.ID(); id != "" {
			ids = append(ids, id)
		}
	}
	stored, err := c.SelectLatest(ids)
	if err != nil {
		c.log.Printf("WARN: sending whole batch, could not read stored update dates: %v", err)
		return docs
	}

	keep := docs[:0:0]
	for _, d := range docs {
		prev, ok := stored[d.ID()]
		if !ok {
			keep = append(keep, d)
			continue
		}
		next, err := normalize.ParseTime(d.UpdateDate())
		if err != nil {
			keep = append(keep, d)
			continue
		}
		old, err := normalize.ParseTime(prev)
		if err != nil || next.After(old) {
			keep = append(keep, d)
			continue
		}
		c.log.Printf("INFO: Skipping record %s: stored record_update_date %s is not older than %s", d.ID(), prev, d.UpdateDate())
	}
	return keep
}

// decodeStored reads select response docs; record_update_date may be a
// single value or a list.
func decodeStored(raw []map[string]interface{}) ([]Stored, error) {
	var docs []Stored
	cfg := &mapstructure.DecoderConfig{
		Result:           &docs,
		TagName:          "json",
		ZeroFields:       true,
		WeaklyTypedInput: true,
	}
	dec, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "creating decoder")
	}
	if err := dec.Decode(raw); err != nil {
		return nil, errors.Wrap(err, "decoding stored records")
	}
	return docs, nil
}
