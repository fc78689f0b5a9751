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

package kafka

import (
	"io"
	"io/ioutil"
	"sync"
	"testing"

	"github.com/Shopify/sarama"
	"github.com/tulibraries/cobindex"
)

type fakeMarker struct {
	mu     sync.Mutex
	marked []int64
}

func (f *fakeMarker) MarkOffset(msg *sarama.ConsumerMessage, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, msg.Offset)
}

const collection = `<collection xmlns="http://www.loc.gov/MARC21/slim">
<record><leader>00000cam a2200000 a 4500</leader><controlfield tag="001">991000000019503811</controlfield></record>
<record><leader>00000cam a2200000 a 4500</leader><controlfield tag="001">991000000029503811</controlfield></record>
</collection>`

func testSource(maxMsgs int, msgs ...*sarama.ConsumerMessage) (*Source, *fakeMarker) {
	ch := make(chan *sarama.ConsumerMessage, len(msgs))
	for _, m := range msgs {
		ch <- m
	}
	close(ch)
	marker := &fakeMarker{}
	src := NewSource()
	src.MaxMsgs = maxMsgs
	src.messages = ch
	src.marker = marker
	return src, marker
}

func TestNextReader(t *testing.T) {
	src, marker := testSource(0,
		&sarama.ConsumerMessage{Topic: "marc", Partition: 2, Offset: 7, Key: []byte("k"), Value: []byte("first")},
	)
	r, err := src.NextReader()
	if err != nil {
		t.Fatalf("getting reader: %v", err)
	}
	if r.Name() != "marc/2/7" {
		t.Fatalf("unexpected name: %s", r.Name())
	}
	if r.Meta()["key"] != "k" {
		t.Fatalf("unexpected meta: %v", r.Meta())
	}
	body, err := ioutil.ReadAll(r)
	if err != nil || string(body) != "first" {
		t.Fatalf("unexpected body %q, err %v", body, err)
	}
	if len(marker.marked) != 0 {
		t.Fatal("offset marked before close")
	}
	r.Close()
	r.Close()
	if len(marker.marked) != 1 || marker.marked[0] != 7 {
		t.Fatalf("unexpected marked offsets: %v", marker.marked)
	}

	if _, err := src.NextReader(); err == nil || err == io.EOF {
		t.Fatalf("expected closed channel error, got %v", err)
	}
}

func TestMaxMsgs(t *testing.T) {
	src, marker := testSource(2,
		&sarama.ConsumerMessage{Offset: 1, Value: []byte(collection)},
		&sarama.ConsumerMessage{Offset: 2, Value: []byte(collection)},
		&sarama.ConsumerMessage{Offset: 3, Value: []byte(collection)},
	)
	xs := cobindex.NewXMLSource(src, 1)
	n := 0
	for _, err := xs.Record(); err != io.EOF; _, err = xs.Record() {
		if err != nil {
			t.Fatalf("reading record: %v", err)
		}
		n++
	}
	if n != 4 {
		t.Fatalf("expected 4 records from 2 messages, got %d", n)
	}
	marker.mu.Lock()
	defer marker.mu.Unlock()
	if len(marker.marked) != 2 {
		t.Fatalf("unexpected marked offsets: %v", marker.marked)
	}
}
