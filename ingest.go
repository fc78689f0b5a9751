package cobindex

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/pilosa/pilosa/logger"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Writer receives batches of documents. Implementations must be safe for
// concurrent use. Close is called once after the last batch.
type Writer interface {
	Write(docs []*Document) error
	Close() error
}

// Stats counts what happened during an ingest run.
type Stats struct {
	Read    uint64
	Skipped uint64
	Written uint64
}

// Ingester reads records from a Source, indexes them and writes the
// resulting documents in batches.
type Ingester struct {
	Concurrency int
	BatchSize   int

	src     Source
	indexer *Indexer
	writer  Writer
	log     logger.Logger

	read    uint64
	skipped uint64
	written uint64
}

// IngestOption configures an Ingester.
type IngestOption func(n *Ingester)

// OptIngestConcurrency sets the number of workers.
func OptIngestConcurrency(c int) IngestOption {
	return func(n *Ingester) {
		n.Concurrency = c
	}
}

// OptIngestBatchSize sets the number of documents each worker collects
// before writing.
func OptIngestBatchSize(size int) IngestOption {
	return func(n *Ingester) {
		n.BatchSize = size
	}
}

// OptIngestLogger sets the logger.
func OptIngestLogger(log logger.Logger) IngestOption {
	return func(n *Ingester) {
		n.log = log
	}
}

// NewIngester returns an Ingester with one worker and a batch size of 100.
func NewIngester(src Source, indexer *Indexer, writer Writer, opts ...IngestOption) *Ingester {
	n := &Ingester{
		Concurrency: 1,
		BatchSize:   100,
		src:         src,
		indexer:     indexer,
		writer:      writer,
		log:         logger.NopLogger,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Run processes records until the source is exhausted, a worker fails or
// ctx is cancelled. The writer is closed in every case; a close error is
// returned only when the run itself succeeded.
func (n *Ingester) Run(ctx context.Context) (err error) {
	start := time.Now()
	defer func() {
		if c, ok := n.src.(io.Closer); ok {
			if cerr := c.Close(); cerr != nil {
				n.log.Printf("closing source: %v", cerr)
			}
		}
		cerr := n.writer.Close()
		if err == nil && cerr != nil {
			err = errors.Wrap(cerr, "closing writer")
		}
		s := n.Stats()
		n.log.Printf("ingest finished in %s: read %d, skipped %d, written %d", time.Since(start), s.Read, s.Skipped, s.Written)
	}()

	workers := n.Concurrency
	if workers < 1 {
		workers = 1
	}
	eg, ctx := errgroup.WithContext(ctx)
	for c := 0; c < workers; c++ {
		c := c
		eg.Go(func() error {
			return n.runWorker(ctx, c)
		})
	}
	return eg.Wait()
}

func (n *Ingester) runWorker(ctx context.Context, c int) error {
	n.log.Debugf("start ingest worker %d", c)
	size := n.BatchSize
	if size < 1 {
		size = 1
	}
	batch := make([]*Document, 0, size)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := n.writer.Write(batch); err != nil {
			return errors.Wrap(err, "writing batch")
		}
		atomic.AddUint64(&n.written, uint64(len(batch)))
		batch = make([]*Document, 0, size)
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		rec, err := n.src.Record()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, "reading record")
		}
		atomic.AddUint64(&n.read, 1)
		ictx, err := n.indexer.Index(rec)
		if err != nil {
			return errors.Wrap(err, "indexing")
		}
		if reason, skipped := ictx.Skipped(); skipped {
			atomic.AddUint64(&n.skipped, 1)
			n.log.Debugf("skipping record %s: %s", rec.ID(), reason)
			continue
		}
		batch = append(batch, ictx.Doc)
		if len(batch) >= size {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

// Stats returns the counters so far.
func (n *Ingester) Stats() Stats {
	return Stats{
		Read:    atomic.LoadUint64(&n.read),
		Skipped: atomic.LoadUint64(&n.skipped),
		Written: atomic.LoadUint64(&n.written),
	}
}
