package cobindex

import (
	"io"
	"io/ioutil"
	"sync"

	"github.com/pkg/errors"
	"github.com/tulibraries/cobindex/marc"
)

// NamedReadCloser is one payload handed out by a RawSource, such as a file,
// an S3 object or a Kafka message.
type NamedReadCloser interface {
	io.ReadCloser
	Name() string
	Meta() map[string]interface{}
}

// RawSource hands out payloads one at a time and returns io.EOF when there
// are no more. Implementations must be safe for concurrent use.
type RawSource interface {
	NextReader() (NamedReadCloser, error)
}

// Source is the interface for getting decoded records one at a time.
// Implementations must be safe for concurrent use.
type Source interface {
	Record() (*marc.Record, error)
}

// XMLSource is a Source decoding MARCXML collections from a RawSource.
type XMLSource struct {
	raw     RawSource
	records chan record

	done      chan struct{}
	closeOnce sync.Once
}

type record struct {
	rec *marc.Record
	err error
}

// NewXMLSource starts decoding raw in the background. bufSize records are
// buffered ahead of calls to Record. Close stops the decoding early.
func NewXMLSource(raw RawSource, bufSize int) *XMLSource {
	if bufSize < 1 {
		bufSize = 1
	}
	s := &XMLSource{
		raw:     raw,
		records: make(chan record, bufSize),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// send reports false once the source is closed.
func (s *XMLSource) send(r record) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.records <- r:
		return true
	case <-s.done:
		return false
	}
}

func (s *XMLSource) run() {
	defer close(s.records)
	reader, err := s.raw.NextReader()
	for ; err == nil; reader, err = s.raw.NextReader() {
		dec := marc.NewDecoder(reader)
		open := true
		for open {
			rec, derr := dec.Decode()
			if derr == io.EOF {
				break
			}
			if derr != nil {
				open = s.send(record{err: errors.Wrapf(derr, "decoding %s", reader.Name())})
				break
			}
			open = s.send(record{rec: rec})
		}
		cerr := reader.Close()
		if !open {
			return
		}
		if cerr != nil && !s.send(record{err: errors.Wrapf(cerr, "closing %s", reader.Name())}) {
			return
		}
		select {
		case <-s.done:
			return
		default:
		}
	}
	if err != io.EOF {
		s.send(record{err: errors.Wrap(err, "getting next reader")})
	}
}

// Record returns the next decoded record, or io.EOF once every payload has
// been read or the source is closed.
func (s *XMLSource) Record() (*marc.Record, error) {
	r, ok := <-s.records
	if !ok {
		return nil, io.EOF
	}
	return r.rec, r.err
}

// Close stops the background decoding. Records already buffered may still
// be returned by Record.
func (s *XMLSource) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

// ReaderSource is a RawSource over a single reader, such as standard input.
type ReaderSource struct {
	once sync.Once
	name string
	r    io.Reader
}

// NewReaderSource returns a RawSource handing out r once under name.
func NewReaderSource(name string, r io.Reader) *ReaderSource {
	return &ReaderSource{name: name, r: r}
}

// NextReader implements RawSource.
func (s *ReaderSource) NextReader() (NamedReadCloser, error) {
	var out NamedReadCloser
	s.once.Do(func() {
		rc, ok := s.r.(io.ReadCloser)
		if !ok {
			rc = ioutil.NopCloser(s.r)
		}
		out = &namedReader{ReadCloser: rc, name: s.name}
	})
	if out == nil {
		return nil, io.EOF
	}
	return out, nil
}

type namedReader struct {
	io.ReadCloser
	name string
}

func (n *namedReader) Name() string                 { return n.name }
func (n *namedReader) Meta() map[string]interface{} { return nil }

// SliceSource is a Source over records already in memory.
type SliceSource struct {
	mu   sync.Mutex
	recs []*marc.Record
}

// NewSliceSource returns a Source handing out recs in order.
func NewSliceSource(recs ...*marc.Record) *SliceSource {
	return &SliceSource{recs: recs}
}

// Record implements Source.
func (s *SliceSource) Record() (*marc.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.recs) == 0 {
		return nil, io.EOF
	}
	rec := s.recs[0]
	s.recs = s.recs[1:]
	return rec, nil
}
