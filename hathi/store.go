// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

// Package hathi answers HathiTrust overlap lookups by OCLC number. The
// overlap report is indexed once into a leveldb database; lookups go through
// an in-memory LRU cache.
package hathi

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

const (
	keyPrefix = "oclc:"
	builtKey  = "meta:built"
	lockName  = ".hathi.lock"
)

// DefaultCacheSize is the number of lookups kept in memory.
const DefaultCacheSize = 10000

// Entry is one line of the overlap report.
type Entry struct {
	BibKey string `json:"bib_key"`
	Access string `json:"access"`
}

// JSON returns the entry as the JSON object stored in the index.
func (e Entry) JSON() string {
	bs, _ := json.Marshal(e)
	return string(bs)
}

// Lookuper finds the overlap entry for an OCLC number.
type Lookuper interface {
	Lookup(oclc string) (Entry, bool, error)
}

// Nop is a Lookuper that never finds anything. It is used when no overlap
// index is configured.
type Nop struct{}

// Lookup implements Lookuper.
func (Nop) Lookup(string) (Entry, bool, error) { return Entry{}, false, nil }

type cached struct {
	entry Entry
	found bool
}

// Store is a Lookuper backed by leveldb. It is safe for concurrent use.
type Store struct {
	dirname string
	db      *leveldb.DB
	lock    *flock.Flock
	cache   *lru.Cache[string, cached]
}

type errorList []error

func (errs errorList) Error() string {
	errstrings := make([]string, len(errs))
	for i, err := range errs {
		errstrings[i] = err.Error()
	}
	return strings.Join(errstrings, "; ")
}

// StoreOption configures a Store.
type StoreOption func(s *Store) error

// OptStoreCacheSize sets the LRU cache size.
func OptStoreCacheSize(size int) StoreOption {
	return func(s *Store) (err error) {
		s.cache, err = lru.New[string, cached](size)
		return errors.Wrap(err, "creating cache")
	}
}

// Open opens the index in dirname. A shared lock is held until Close so that
// a concurrent Build waits for readers to finish.
func Open(dirname string, opts ...StoreOption) (*Store, error) {
	if err := os.MkdirAll(dirname, 0700); err != nil {
		return nil, errors.Wrap(err, "making directory")
	}
	s := &Store{
		dirname: dirname,
		lock:    flock.New(filepath.Join(dirname, lockName)),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.cache == nil {
		if err := OptStoreCacheSize(DefaultCacheSize)(s); err != nil {
			return nil, err
		}
	}
	if err := s.lock.RLock(); err != nil {
		return nil, errors.Wrap(err, "acquiring shared lock")
	}
	var err error
	s.db, err = leveldb.OpenFile(dbPath(dirname), &opt.Options{})
	if err != nil {
		s.lock.Unlock()
		return nil, errors.Wrapf(err, "opening leveldb at %v", dbPath(dirname))
	}
	return s, nil
}

// Built reports whether a complete index has been written.
func (s *Store) Built() (bool, error) {
	ok, err := s.db.Has([]byte(builtKey), nil)
	return ok, errors.Wrap(err, "reading build marker")
}

// Lookup returns the overlap entry for oclc.
func (s *Store) Lookup(oclc string) (Entry, bool, error) {
	if c, ok := s.cache.Get(oclc); ok {
		return c.entry, c.found, nil
	}
	data, err := s.db.Get([]byte(keyPrefix+oclc), &opt.ReadOptions{})
	if err == leveldb.ErrNotFound {
		s.cache.Add(oclc, cached{})
		return Entry{}, false, nil
	} else if err != nil {
		return Entry{}, false, errors.Wrapf(err, "reading overlap for %s", oclc)
	}
	e := Entry{}
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, false, errors.Wrapf(err, "decoding overlap for %s", oclc)
	}
	s.cache.Add(oclc, cached{entry: e, found: true})
	return e, true, nil
}

// Close closes the database and releases the lock.
func (s *Store) Close() error {
	errs := make(errorList, 0)
	if err := s.db.Close(); err != nil {
		errs = append(errs, errors.Wrap(err, "closing leveldb"))
	}
	if err := s.lock.Unlock(); err != nil {
		errs = append(errs, errors.Wrap(err, "releasing lock"))
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func dbPath(dirname string) string {
	return filepath.Join(dirname, "overlap")
}
