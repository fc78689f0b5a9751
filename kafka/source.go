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

// Package kafka reads MARCXML collections from Kafka topics. Each message
// value is one collection.
package kafka

import (
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"sync"

	"github.com/Shopify/sarama"
	cluster "github.com/bsm/sarama-cluster"
	"github.com/pilosa/pilosa/logger"
	"github.com/pkg/errors"
	"github.com/tulibraries/cobindex"
)

// offsetMarker is the part of the consumer a message needs once it has been
// processed.
type offsetMarker interface {
	MarkOffset(msg *sarama.ConsumerMessage, metadata string)
}

// Source implements cobindex.RawSource using kafka as a data source. Offsets
// are marked when the reader for a message is closed, so a message whose
// records failed to index is read again by the next consumer in the group.
type Source struct {
	Hosts   []string
	Topics  []string
	Group   string
	MaxMsgs int
	Log     logger.Logger

	mu      sync.Mutex
	numMsgs int

	consumer *cluster.Consumer
	marker   offsetMarker
	messages <-chan *sarama.ConsumerMessage
}

// NewSource gets a new Source
func NewSource() *Source {
	return &Source{
		Hosts:  []string{"localhost:9092"},
		Topics: []string{"marc"},
		Group:  "cobindex",
		Log:    logger.NopLogger,
	}
}

type msgReader struct {
	io.Reader
	msg    *sarama.ConsumerMessage
	marker offsetMarker
	once   sync.Once
}

func (m *msgReader) Name() string {
	return fmt.Sprintf("%s/%d/%d", m.msg.Topic, m.msg.Partition, m.msg.Offset)
}

func (m *msgReader) Meta() map[string]interface{} {
	return map[string]interface{}{
		"topic":     m.msg.Topic,
		"partition": m.msg.Partition,
		"offset":    m.msg.Offset,
		"key":       string(m.msg.Key),
	}
}

// Close marks the message as processed.
func (m *msgReader) Close() error {
	m.once.Do(func() { m.marker.MarkOffset(m.msg, "") })
	return nil
}

// NextReader returns the value of the next kafka message. It blocks until a
// message arrives and returns io.EOF once MaxMsgs messages have been read.
func (s *Source) NextReader() (cobindex.NamedReadCloser, error) {
	if s.MaxMsgs > 0 {
		s.mu.Lock()
		s.numMsgs++
		n := s.numMsgs
		s.mu.Unlock()
		if n > s.MaxMsgs {
			return nil, io.EOF
		}
	}
	msg, ok := <-s.messages
	if !ok {
		return nil, errors.New("messages channel closed")
	}
	return &msgReader{Reader: bytes.NewReader(msg.Value), msg: msg, marker: s.marker}, nil
}

// Open initializes the kafka source.
func (s *Source) Open() error {
	// init (custom) config, enable errors and notifications
	sarama.Logger = log.New(ioutil.Discard, "", 0)
	config := cluster.NewConfig()
	config.Config.Version = sarama.V0_10_0_0
	config.Consumer.Return.Errors = true
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Group.Return.Notifications = true

	var err error
	s.consumer, err = cluster.NewConsumer(s.Hosts, s.Group, s.Topics, config)
	if err != nil {
		return errors.Wrap(err, "getting new consumer")
	}
	s.marker = s.consumer
	s.messages = s.consumer.Messages()

	// consume errors
	go func() {
		for err := range s.consumer.Errors() {
			s.Log.Printf("ERROR: kafka consumer: %s", err.Error())
		}
	}()

	// consume notifications
	go func() {
		for ntf := range s.consumer.Notifications() {
			s.Log.Debugf("Rebalanced: %+v", ntf)
		}
	}()
	return nil
}

// Close commits marked offsets and closes the underlying kafka consumer.
func (s *Source) Close() error {
	if s.consumer == nil {
		return nil
	}
	if err := s.consumer.CommitOffsets(); err != nil {
		s.Log.Printf("WARN: committing offsets: %v", err)
	}
	err := s.consumer.Close()
	return errors.Wrap(err, "closing kafka consumer")
}
