// Package ingest holds the configuration shared by every indexing command
// and runs a raw source through the rules into Solr.
package ingest

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/pilosa/pilosa/logger"
	"github.com/pkg/errors"
	"github.com/tulibraries/cobindex"
	"github.com/tulibraries/cobindex/boltdb"
	"github.com/tulibraries/cobindex/hathi"
	"github.com/tulibraries/cobindex/normalize"
	"github.com/tulibraries/cobindex/oai"
	"github.com/tulibraries/cobindex/rules"
	"github.com/tulibraries/cobindex/solr"
	"github.com/tulibraries/cobindex/translation"
)

// Main holds all config for general ingest.
type Main struct {
	SolrURL         string `flag:"solr-url" help:"Solr core URL, e.g. http://localhost:8983/solr/blacklight-core." short:""`
	SolrUser        string `help:"Solr basic auth user." short:""`
	SolrPassword    string `help:"Solr basic auth password." short:""`
	SolrConnTimeout int    `help:"Seconds to wait for a connection to Solr." short:""`
	SolrReadTimeout int    `help:"Seconds to wait for a Solr response." short:""`
	MaxSkipped      int    `help:"Abort after this many documents are rejected by Solr. -1 means never." short:""`
	OptimizeBatch   bool   `help:"Leave out documents whose stored copy is as new or newer." short:""`
	Commit          bool   `help:"Commit to Solr when done." short:""`

	BatchSize   int `help:"Number of documents sent to Solr per update request." short:""`
	Concurrency int `help:"Number of indexing workers." short:""`

	FullReindex            bool   `help:"Leave records with suppressed items out instead of flagging them." short:""`
	HarvestFrom            string `help:"Start of the OAI harvest being indexed. Empty reads it from the state db." short:""`
	DisableUpdateDateCheck bool   `help:"Stamp every record with the current time." short:""`

	HathiDir       string `flag:"hathi-dir" help:"Directory of the HathiTrust overlap index. Empty disables lookups." short:""`
	HathiCacheSize int    `help:"Number of HathiTrust lookups to cache." short:""`
	TranslationDir string `help:"Directory of translation maps overriding the built in ones." short:""`

	StateDB string `flag:"state-db" help:"Bolt file recording harvest checkpoints. Empty disables them." short:""`
	Feed    string `help:"Name the harvest checkpoint is kept under." short:""`

	LogPath string `help:"Log file to write to. Empty means stderr." short:""`
	Verbose bool   `help:"Enable verbose logging." short:""`

	log     logger.Logger
	closers []io.Closer
}

// NewMain returns a Main with defaults.
func NewMain() *Main {
	return &Main{
		SolrConnTimeout: 10,
		SolrReadTimeout: 60,
		MaxSkipped:      -1,
		OptimizeBatch:   true,
		BatchSize:       100,
		Concurrency:     1,
		HathiCacheSize:  10000,
		Feed:            "alma",
	}
}

// Log returns the logger set up by the last run.
func (m *Main) Log() logger.Logger {
	if m.log == nil {
		return logger.NopLogger
	}
	return m.log
}

func (m *Main) validate() error {
	if m.SolrURL == "" {
		return errors.New("no solr url given")
	}
	if m.BatchSize < 1 {
		return errors.Errorf("batch size must be positive, got %d", m.BatchSize)
	}
	if m.Concurrency < 1 {
		return errors.Errorf("concurrency must be positive, got %d", m.Concurrency)
	}
	if m.HarvestFrom != "" {
		if _, err := normalize.ParseTime(m.HarvestFrom); err != nil {
			return errors.Wrap(err, "parsing harvest from")
		}
	}
	return nil
}

func (m *Main) setup() (err error) {
	if err := m.validate(); err != nil {
		return errors.Wrap(err, "validating configuration")
	}

	// setup logging
	logOut := io.Writer(os.Stderr)
	if m.LogPath != "" {
		f, err := os.OpenFile(m.LogPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return errors.Wrap(err, "opening log file")
		}
		m.closers = append(m.closers, f)
		logOut = f
	}

	if m.Verbose {
		m.log = logger.NewVerboseLogger(logOut)
	} else {
		m.log = logger.NewStandardLogger(logOut)
	}
	return nil
}

func (m *Main) teardown() {
	for i := len(m.closers) - 1; i >= 0; i-- {
		if err := m.closers[i].Close(); err != nil {
			m.Log().Printf("closing: %v", err)
		}
	}
	m.closers = nil
}

func (m *Main) client() (*solr.Client, error) {
	return solr.NewClient(m.SolrURL,
		solr.OptBasicAuth(m.SolrUser, m.SolrPassword),
		solr.OptTimeouts(time.Duration(m.SolrConnTimeout)*time.Second, time.Duration(m.SolrReadTimeout)*time.Second),
		solr.OptMaxSkipped(int64(m.MaxSkipped)),
		solr.OptOptimizeBatch(m.OptimizeBatch),
		solr.OptCommitOnClose(m.Commit),
		solr.OptLogger(m.log),
	)
}

func (m *Main) indexer(harvestFrom string) (*cobindex.Indexer, error) {
	cfg := rules.Config{
		FullReindex:            m.FullReindex,
		HarvestFrom:            harvestFrom,
		DisableUpdateDateCheck: m.DisableUpdateDateCheck,
		Log:                    m.log,
	}
	if m.TranslationDir != "" {
		reg, err := translation.Load(os.DirFS(m.TranslationDir))
		if err != nil {
			return nil, errors.Wrap(err, "loading translations")
		}
		cfg.Registry = reg
	}
	if m.HathiDir != "" {
		store, err := hathi.Open(m.HathiDir, hathi.OptStoreCacheSize(m.HathiCacheSize))
		if err != nil {
			return nil, errors.Wrap(err, "opening hathi index")
		}
		m.closers = append(m.closers, store)
		if built, err := store.Built(); err != nil {
			return nil, errors.Wrap(err, "checking hathi index")
		} else if !built {
			m.log.Printf("hathi index in %s is empty, run build-hathi", m.HathiDir)
		}
		cfg.Hathi = store
	}
	return rules.New(cfg)
}

// checkpoints opens the state db, if one is configured.
func (m *Main) checkpoints() (*boltdb.Checkpoints, error) {
	if m.StateDB == "" {
		return nil, nil
	}
	cp, err := boltdb.Open(m.StateDB)
	if err != nil {
		return nil, errors.Wrap(err, "opening state db")
	}
	m.closers = append(m.closers, cp)
	return cp, nil
}

// Run indexes every record of raw into Solr. When HarvestFrom isn't set the
// last checkpoint of Feed is used, and a successful run records a new one.
func (m *Main) Run(ctx context.Context, raw cobindex.RawSource) (stats cobindex.Stats, err error) {
	if err := m.setup(); err != nil {
		return stats, errors.Wrap(err, "setting up")
	}
	defer m.teardown()
	started := time.Now()

	cp, err := m.checkpoints()
	if err != nil {
		return stats, err
	}
	from := m.HarvestFrom
	if from == "" && cp != nil {
		last, ok, err := cp.Last(m.Feed)
		if err != nil {
			return stats, err
		}
		if ok {
			from = last
			m.log.Printf("harvest of %s starting from %s", m.Feed, from)
		}
	}

	ix, err := m.indexer(from)
	if err != nil {
		return stats, errors.Wrap(err, "building indexer")
	}
	client, err := m.client()
	if err != nil {
		return stats, errors.Wrap(err, "creating solr client")
	}

	in := cobindex.NewIngester(cobindex.NewXMLSource(raw, m.BatchSize*m.Concurrency), ix, client,
		cobindex.OptIngestConcurrency(m.Concurrency),
		cobindex.OptIngestBatchSize(m.BatchSize),
		cobindex.OptIngestLogger(m.log),
	)
	err = in.Run(ctx)
	stats = in.Stats()
	if err != nil {
		return stats, errors.Wrap(err, "running ingester")
	}
	if n := client.Skipped(); n > 0 {
		m.log.Printf("solr rejected %d documents", n)
	}

	if cp != nil {
		err = cp.Record(m.Feed, boltdb.Run{
			From:    from,
			Started: started,
			Read:    stats.Read,
			Skipped: stats.Skipped,
			Written: stats.Written,
		})
		if err != nil {
			return stats, errors.Wrap(err, "recording checkpoint")
		}
	}
	return stats, nil
}

// Delete applies the OAI deletions in raw, either removing withdrawn
// records or flagging their items suppressed.
func (m *Main) Delete(ctx context.Context, raw cobindex.RawSource, suppress bool) (cobindex.Stats, error) {
	if err := m.setup(); err != nil {
		return cobindex.Stats{}, errors.Wrap(err, "setting up")
	}
	defer m.teardown()

	client, err := m.client()
	if err != nil {
		return cobindex.Stats{}, errors.Wrap(err, "creating solr client")
	}
	mode := oai.Delete
	if suppress {
		mode = oai.Suppress
	}
	p := oai.NewProcessor(mode, client,
		oai.OptProcessorLogger(m.log),
		oai.OptProcessorBatchSize(m.BatchSize),
	)
	return p.Run(ctx, raw)
}

// CommitOnly sends a commit to Solr.
func (m *Main) CommitOnly() error {
	if err := m.setup(); err != nil {
		return errors.Wrap(err, "setting up")
	}
	defer m.teardown()

	client, err := m.client()
	if err != nil {
		return errors.Wrap(err, "creating solr client")
	}
	return client.Commit()
}
