package hathi

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/pilosa/pilosa/logger"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// Builder indexes overlap report files into a Store directory.
type Builder struct {
	Dir       string
	CSVDir    string
	Force     bool
	BatchSize int
	Log       logger.Logger
}

// NewBuilder returns a Builder writing the index for the files in csvDir
// into dir.
func NewBuilder(dir, csvDir string) *Builder {
	return &Builder{
		Dir:       dir,
		CSVDir:    csvDir,
		BatchSize: 10000,
		Log:       logger.NopLogger,
	}
}

// Build indexes every trailing_<digit>.csv file. Each line holds
// access,bib key,OCLC number; the first line for an OCLC number wins. An
// index that is already complete is left alone unless Force is set. The
// build holds an exclusive lock on the directory so concurrent builds and
// readers wait for it.
func (b *Builder) Build() (n int, err error) {
	if err := os.MkdirAll(b.Dir, 0700); err != nil {
		return 0, errors.Wrap(err, "making directory")
	}
	lock := flock.New(filepath.Join(b.Dir, lockName))
	if err := lock.Lock(); err != nil {
		return 0, errors.Wrap(err, "acquiring exclusive lock")
	}
	defer func() {
		if uerr := lock.Unlock(); uerr != nil && err == nil {
			err = errors.Wrap(uerr, "releasing lock")
		}
	}()

	files, err := filepath.Glob(filepath.Join(b.CSVDir, "trailing_*.csv"))
	if err != nil {
		return 0, errors.Wrap(err, "listing overlap files")
	}
	if len(files) == 0 {
		return 0, errors.Errorf("no trailing_*.csv files in %s", b.CSVDir)
	}
	sort.Strings(files)

	if b.Force {
		if err := os.RemoveAll(dbPath(b.Dir)); err != nil {
			return 0, errors.Wrap(err, "removing old index")
		}
	}
	db, err := leveldb.OpenFile(dbPath(b.Dir), &opt.Options{})
	if err != nil {
		return 0, errors.Wrapf(err, "opening leveldb at %v", dbPath(b.Dir))
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "closing leveldb")
		}
	}()
	if built, err := db.Has([]byte(builtKey), nil); err != nil {
		return 0, errors.Wrap(err, "reading build marker")
	} else if built {
		b.Log.Printf("overlap index in %s is already built", b.Dir)
		return 0, nil
	}

	start := time.Now()
	seen := make(map[string]struct{})
	for _, name := range files {
		c, err := b.indexFile(db, name, seen)
		if err != nil {
			return n, errors.Wrapf(err, "indexing %s", name)
		}
		b.Log.Printf("indexed %d overlap entries from %s", c, filepath.Base(name))
		n += c
	}
	if err := db.Put([]byte(builtKey), []byte(time.Now().UTC().Format(time.RFC3339)), &opt.WriteOptions{Sync: true}); err != nil {
		return n, errors.Wrap(err, "writing build marker")
	}
	b.Log.Printf("built overlap index with %d entries in %s", n, time.Since(start))
	return n, nil
}

func (b *Builder) indexFile(db *leveldb.DB, name string, seen map[string]struct{}) (int, error) {
	f, err := os.Open(name)
	if err != nil {
		return 0, errors.Wrap(err, "opening file")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.ReuseRecord = true

	size := b.BatchSize
	if size < 1 {
		size = 1
	}
	batch := new(leveldb.Batch)
	n := 0
	for {
		line, err := r.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return n, errors.Wrap(err, "reading csv")
		}
		if len(line) < 3 {
			continue
		}
		access, bibKey, oclc := strings.TrimSpace(line[0]), strings.TrimSpace(line[1]), strings.TrimSpace(line[2])
		if access == "" || bibKey == "" || oclc == "" {
			continue
		}
		if _, ok := seen[oclc]; ok {
			continue
		}
		seen[oclc] = struct{}{}
		batch.Put([]byte(keyPrefix+oclc), []byte(Entry{BibKey: bibKey, Access: access}.JSON()))
		n++
		if batch.Len() >= size {
			if err := db.Write(batch, &opt.WriteOptions{}); err != nil {
				return n, errors.Wrap(err, "writing batch")
			}
			batch.Reset()
		}
	}
	if batch.Len() > 0 {
		if err := db.Write(batch, &opt.WriteOptions{}); err != nil {
			return n, errors.Wrap(err, "writing batch")
		}
	}
	return n, nil
}
