// Package solr sends indexed documents to a Solr core over its JSON update
// API.
package solr

import (
	"bytes"
	"encoding/json"
	"io"
	"io/ioutil"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pilosa/pilosa/logger"
	"github.com/pkg/errors"
	"github.com/tulibraries/cobindex/normalize"
)

const (
	// DefaultDeleteSliceSize is the number of ids removed by one
	// delete-by-query request.
	DefaultDeleteSliceSize = 100

	defaultConnTimeout = 5 * time.Second
	defaultReadTimeout = 60 * time.Second
)

// Client talks to a single Solr core. It is safe for concurrent use.
type Client struct {
	url       string
	updateURL string
	selectURL string

	user     string
	password string

	connTimeout time.Duration
	readTimeout time.Duration
	http        *http.Client

	// MaxSkipped is the number of records which may fail before sends
	// start returning MaxSkippedRecordsExceeded. Negative is unlimited.
	MaxSkipped int64
	// OptimizeBatch drops documents which Solr already holds at the same or
	// a newer record_update_date before a batch is sent.
	OptimizeBatch bool
	// CommitOnClose issues a commit when the writer is closed.
	CommitOnClose bool
	// DeleteSliceSize bounds the number of ids per delete request.
	DeleteSliceSize int

	skipped int64
	log     logger.Logger
}

// ClientOption configures a Client.
type ClientOption func(c *Client) error

// OptBasicAuth sets the credentials sent with every request. Credentials
// are only used when both user and password are non-empty.
func OptBasicAuth(user, password string) ClientOption {
	return func(c *Client) error {
		c.user, c.password = user, password
		return nil
	}
}

// OptMaxSkipped sets the failed-record budget. Negative is unlimited.
func OptMaxSkipped(n int64) ClientOption {
	return func(c *Client) error {
		c.MaxSkipped = n
		return nil
	}
}

// OptOptimizeBatch turns the stored-date comparison on or off.
func OptOptimizeBatch(b bool) ClientOption {
	return func(c *Client) error {
		c.OptimizeBatch = b
		return nil
	}
}

// OptCommitOnClose makes Close issue a commit.
func OptCommitOnClose(b bool) ClientOption {
	return func(c *Client) error {
		c.CommitOnClose = b
		return nil
	}
}

// OptTimeouts sets the dial and whole-request timeouts.
func OptTimeouts(conn, read time.Duration) ClientOption {
	return func(c *Client) error {
		if conn <= 0 || read <= 0 {
			return errors.Errorf("timeouts must be positive, got %v and %v", conn, read)
		}
		c.connTimeout, c.readTimeout = conn, read
		return nil
	}
}

// OptHTTPClient replaces the tuned client built by NewClient.
func OptHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) error {
		c.http = hc
		return nil
	}
}

// OptLogger sets the logger.
func OptLogger(log logger.Logger) ClientOption {
	return func(c *Client) error {
		c.log = log
		return nil
	}
}

// NewClient returns a Client for the core at solrURL, for example
// http://localhost:8983/solr/blacklight-core.
func NewClient(solrURL string, opts ...ClientOption) (*Client, error) {
	if solrURL == "" {
		return nil, errors.New("no solr url configured")
	}
	if _, err := url.Parse(solrURL); err != nil {
		return nil, errors.Wrap(err, "parsing solr url")
	}
	base := strings.TrimRight(solrURL, "/")
	c := &Client{
		url:             base,
		updateURL:       base + "/update/json",
		selectURL:       base + "/select",
		connTimeout:     defaultConnTimeout,
		readTimeout:     defaultReadTimeout,
		MaxSkipped:      -1,
		DeleteSliceSize: DefaultDeleteSliceSize,
		log:             logger.NopLogger,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.Wrap(err, "applying option")
		}
	}
	if c.http == nil {
		c.http = &http.Client{
			Timeout: c.readTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   c.connTimeout,
					KeepAlive: 60 * time.Second,
				}).DialContext,
				MaxIdleConns:        100, // one solr host, so these match
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return c, nil
}

// URL returns the core URL.
func (c *Client) URL() string { return c.url }

// Skipped returns the number of records that failed to send.
func (c *Client) Skipped() int64 { return atomic.LoadInt64(&c.skipped) }

// response is the outcome of a Solr request. err is set for transport
// failures; otherwise status and body hold what Solr returned.
type response struct {
	status int
	body   []byte
	err    error
}

func (r response) String() string {
	if r.err != nil {
		return r.err.Error()
	}
	return strconv.Itoa(r.status) + ": " + string(r.body)
}

func (c *Client) do(method, u string, body []byte) response {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, u, rd)
	if err != nil {
		return response{err: errors.Wrap(err, "creating request")}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.user != "" && c.password != "" {
		req.SetBasicAuth(c.user, c.password)
	}

	start := time.Now()
	res, err := c.http.Do(req)
	elapsedMS := int64(time.Since(start) / time.Millisecond)
	if err != nil {
		msg := err.Error()
		if strings.Contains(msg, "Timeout") {
			msg = u + " timed out"
		} else if strings.Contains(msg, "connection refused") {
			msg = u + " refused connection"
		}
		c.log.Printf("ERROR: Failed response from %s %s - %s. Elapsed Time: %d (ms)", method, u, msg, elapsedMS)
		return response{err: errors.Wrapf(err, "%s %s", method, u)}
	}
	defer res.Body.Close()
	bs, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return response{status: res.StatusCode, err: errors.Wrap(err, "reading response body")}
	}
	c.log.Debugf("Solr response from %s %s: %d. Elapsed Time: %d (ms)", method, u, res.StatusCode, elapsedMS)
	return response{status: res.StatusCode, body: bs}
}

// Commit asks Solr to commit pending updates.
func (c *Client) Commit() error {
	c.log.Printf("sending commit to %s", c.url)
	r := c.do(http.MethodGet, c.updateURL+"?commit=true", nil)
	if r.err != nil {
		return errors.Wrap(r.err, "committing")
	}
	if r.status != http.StatusOK {
		return errors.Errorf("committing: Solr error response: %s", r)
	}
	return nil
}

// DeleteBatch removes the documents with the given ids, DeleteSliceSize ids
// per delete-by-query request.
func (c *Client) DeleteBatch(ids []string) error {
	size := c.DeleteSliceSize
	if size < 1 {
		size = DefaultDeleteSliceSize
	}
	for _, slice := range normalize.Chunk(ids, size) {
		q := idQuery(slice)
		body, err := json.Marshal(map[string]interface{}{
			"delete": map[string]string{"query": q},
		})
		if err != nil {
			return errors.Wrap(err, "marshaling delete")
		}
		c.log.Printf("deleting %d records: %s", len(slice), q)
		r := c.do(http.MethodPost, c.updateURL, body)
		if r.err != nil {
			return errors.Wrap(r.err, "deleting")
		}
		if r.status != http.StatusOK {
			return errors.Errorf("deleting %s: Solr error response: %s", q, r)
		}
	}
	return nil
}

// idQuery renders id:(a OR b OR c).
func idQuery(ids []string) string {
	return "id:(" + strings.Join(ids, " OR ") + ")"
}

// Stored is the indexed state of a document: its id and the
// record_update_date Solr holds for it.
type Stored struct {
	ID         string   `json:"id"`
	UpdateDate []string `json:"record_update_date"`
}

type selectResponse struct {
	ResponseHeader struct {
		Status int `json:"status"`
		QTime  int `json:"QTime"`
	} `json:"responseHeader"`
	Response struct {
		NumFound int                      `json:"numFound"`
		Docs     []map[string]interface{} `json:"docs"`
	} `json:"response"`
	Error struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	} `json:"error"`
}

// SelectLatest returns the stored record_update_date of each id Solr
// already holds. Ids Solr doesn't know are absent from the result.
func (c *Client) SelectLatest(ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	params := url.Values{}
	params.Set("q", "*:*")
	params.Set("fq", idQuery(ids))
	params.Set("fl", "id,record_update_date")
	params.Set("rows", strconv.Itoa(len(ids)))
	params.Set("wt", "json")

	r := c.do(http.MethodGet, c.selectURL+"?"+params.Encode(), nil)
	if r.err != nil {
		return nil, errors.Wrap(r.err, "selecting stored records")
	}
	if r.status != http.StatusOK {
		return nil, errors.Errorf("selecting stored records: Solr error response: %s", r)
	}
	var res selectResponse
	if err := json.Unmarshal(r.body, &res); err != nil {
		return nil, errors.Wrap(err, "decoding select response")
	}
	if res.ResponseHeader.Status != 0 {
		return nil, errors.Errorf("selecting stored records: %d - %s", res.Error.Code, res.Error.Msg)
	}

	docs, err := decodeStored(res.Response.Docs)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		if d.ID == "" || len(d.UpdateDate) == 0 {
			continue
		}
		out[d.ID] = d.UpdateDate[0]
	}
	return out, nil
}
