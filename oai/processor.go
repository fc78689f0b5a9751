package oai

import (
	"context"
	"io"
	"sort"
	"time"

	"github.com/pilosa/pilosa/logger"
	"github.com/pkg/errors"
	"github.com/tulibraries/cobindex"
)

// Mode selects what happens to withdrawn records.
type Mode int

const (
	// Delete removes withdrawn records from the index.
	Delete Mode = iota
	// Suppress marks the items of withdrawn records as suppressed.
	Suppress
)

func (m Mode) String() string {
	if m == Suppress {
		return "suppress"
	}
	return "delete"
}

// FieldSuppressItems flags a document whose items are hidden.
const FieldSuppressItems = "suppress_items_b"

// Sink is where a Processor sends its changes. *solr.Client is one.
type Sink interface {
	cobindex.Writer
	DeleteBatch(ids []string) error
}

// Processor applies OAI deletions to a Sink.
type Processor struct {
	BatchSize int

	mode Mode
	sink Sink
	log  logger.Logger

	stats cobindex.Stats
}

// ProcessorOption configures a Processor.
type ProcessorOption func(p *Processor)

// OptProcessorLogger sets the logger.
func OptProcessorLogger(log logger.Logger) ProcessorOption {
	return func(p *Processor) {
		p.log = log
	}
}

// OptProcessorBatchSize sets how many suppress documents are written at
// once.
func OptProcessorBatchSize(n int) ProcessorOption {
	return func(p *Processor) {
		p.BatchSize = n
	}
}

// NewProcessor returns a Processor in the given mode.
func NewProcessor(mode Mode, sink Sink, opts ...ProcessorOption) *Processor {
	p := &Processor{
		BatchSize: 100,
		mode:      mode,
		sink:      sink,
		log:       logger.NopLogger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run reads every payload of raw. In Delete mode the ids of all withdrawn
// records are collected and removed once input is exhausted. In Suppress
// mode each withdrawn record becomes a document flagging its items
// suppressed. Other records are skipped. The sink is closed in every case.
func (p *Processor) Run(ctx context.Context, raw cobindex.RawSource) (stats cobindex.Stats, err error) {
	start := time.Now()
	defer func() {
		cerr := p.sink.Close()
		if err == nil && cerr != nil {
			err = errors.Wrap(cerr, "closing sink")
		}
		stats = p.stats
		p.log.Printf("%s finished in %s: read %d, skipped %d, written %d", p.mode, time.Since(start), stats.Read, stats.Skipped, stats.Written)
	}()

	deletes := make(map[string]struct{})
	var batch []*cobindex.Document
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.sink.Write(batch); err != nil {
			return errors.Wrap(err, "writing batch")
		}
		p.stats.Written += uint64(len(batch))
		batch = nil
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return p.stats, ctx.Err()
		default:
		}
		r, err := raw.NextReader()
		if err == io.EOF {
			break
		} else if err != nil {
			return p.stats, errors.Wrap(err, "getting next reader")
		}
		err = p.process(r, deletes, func(d *cobindex.Document) error {
			batch = append(batch, d)
			if len(batch) >= p.BatchSize {
				return flush()
			}
			return nil
		})
		r.Close()
		if err != nil {
			return p.stats, errors.Wrapf(err, "processing %s", r.Name())
		}
	}
	if err := flush(); err != nil {
		return p.stats, err
	}

	if p.mode == Delete && len(deletes) > 0 {
		ids := make([]string, 0, len(deletes))
		for id := range deletes {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		if err := p.sink.DeleteBatch(ids); err != nil {
			return p.stats, errors.Wrap(err, "deleting records")
		}
		p.stats.Written = uint64(len(ids))
	}
	return p.stats, nil
}

func (p *Processor) process(r io.Reader, deletes map[string]struct{}, emit func(*cobindex.Document) error) error {
	dec := NewDecoder(r)
	for {
		rec, err := dec.Decode()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
		p.stats.Read++

		id := rec.ID()
		if id == "" {
			p.log.Printf("ERROR: Failed to get id for record: %s", rec.Header.Identifier)
			p.stats.Skipped++
			continue
		}
		if !rec.Deleted() {
			p.stats.Skipped++
			continue
		}

		switch p.mode {
		case Delete:
			p.log.Printf("INFO: Adding record id:%s to record delete batching process.", id)
			deletes[id] = struct{}{}
			p.stats.Skipped++
		case Suppress:
			d := cobindex.NewDocument()
			d.Add(cobindex.FieldID, id)
			d.Add(cobindex.FieldUpdateDate, rec.Header.Datestamp)
			d.Add(FieldSuppressItems, "true")
			if err := emit(d); err != nil {
				return err
			}
		}
	}
}
