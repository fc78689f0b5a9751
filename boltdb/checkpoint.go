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

// Package boltdb keeps harvest checkpoints in a bolt database so that an
// ingest run can pick up where the last successful harvest left off.
package boltdb

import (
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"
)

var (
	lastBucket = []byte("last")
	runsBucket = []byte("runs")
)

// Run is one recorded ingest run for a feed.
type Run struct {
	From    string    `json:"from"`
	Started time.Time `json:"started"`
	Read    uint64    `json:"read"`
	Skipped uint64    `json:"skipped"`
	Written uint64    `json:"written"`
}

// Checkpoints stores, per feed name, the start of the last successful
// harvest and a history of runs.
type Checkpoints struct {
	Db *bolt.DB
}

// Open opens or creates the checkpoint database at filename.
func Open(filename string) (*Checkpoints, error) {
	db, err := bolt.Open(filename, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening db file '%v'", filename)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(lastBucket); err != nil {
			return errors.Wrap(err, "creating last bucket")
		}
		if _, err := tx.CreateBucketIfNotExists(runsBucket); err != nil {
			return errors.Wrap(err, "creating runs bucket")
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ensuring bucket existence")
	}
	return &Checkpoints{Db: db}, nil
}

// Close syncs and closes the underlying boltdb.
func (c *Checkpoints) Close() error {
	err := c.Db.Sync()
	if err != nil {
		return errors.Wrap(err, "syncing db")
	}
	return c.Db.Close()
}

// Last returns the harvest timestamp stored for feed.
func (c *Checkpoints) Last(feed string) (from string, ok bool, err error) {
	err = c.Db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(lastBucket).Get([]byte(feed)); v != nil {
			from, ok = string(v), true
		}
		return nil
	})
	return from, ok, errors.Wrap(err, "reading checkpoint")
}

// Record stores run as the latest successful run of feed. The next run
// harvests from run.Started.
func (c *Checkpoints) Record(feed string, run Run) error {
	bs, err := json.Marshal(run)
	if err != nil {
		return errors.Wrap(err, "encoding run")
	}
	err = c.Db.Update(func(tx *bolt.Tx) error {
		err := tx.Bucket(lastBucket).Put([]byte(feed), []byte(run.Started.UTC().Format(time.RFC3339)))
		if err != nil {
			return errors.Wrap(err, "putting into last bucket")
		}
		rb, err := tx.Bucket(runsBucket).CreateBucketIfNotExists([]byte(feed))
		if err != nil {
			return errors.Wrap(err, "adding "+feed+" to runs bucket")
		}
		seq, err := rb.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return errors.Wrap(rb.Put(key, bs), "putting into runs bucket")
	})
	return errors.Wrap(err, "recording run")
}

// Runs returns up to n of the most recent runs of feed, newest first.
func (c *Checkpoints) Runs(feed string, n int) ([]Run, error) {
	var runs []Run
	err := c.Db.View(func(tx *bolt.Tx) error {
		rb := tx.Bucket(runsBucket).Bucket([]byte(feed))
		if rb == nil {
			return nil
		}
		cur := rb.Cursor()
		for k, v := cur.Last(); k != nil && len(runs) < n; k, v = cur.Prev() {
			var r Run
			if err := json.Unmarshal(v, &r); err != nil {
				return errors.Wrapf(err, "decoding run %d", binary.BigEndian.Uint64(k))
			}
			runs = append(runs, r)
		}
		return nil
	})
	return runs, err
}
