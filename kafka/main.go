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
	"github.com/pilosa/pilosa/logger"
	"github.com/pkg/errors"
)

// Main holds the Kafka settings of the ingest-kafka command.
type Main struct {
	Hosts   []string `help:"Comma separated list of Kafka hosts and ports" short:""`
	Topics  []string `help:"Comma separated list of Kafka topics" short:""`
	Group   string   `help:"Kafka group" short:""`
	MaxMsgs int      `help:"Number of messages to consume before stopping. 0 runs until interrupted." short:""`
}

// NewMain returns a new Main.
func NewMain() *Main {
	return &Main{
		Hosts:  []string{"localhost:9092"},
		Topics: []string{"marc"},
		Group:  "cobindex",
	}
}

// Source opens a consumer for the configured topics.
func (m *Main) Source(log logger.Logger) (*Source, error) {
	src := NewSource()
	src.Hosts = m.Hosts
	src.Topics = m.Topics
	src.Group = m.Group
	src.MaxMsgs = m.MaxMsgs
	if log != nil {
		src.Log = log
	}
	if err := src.Open(); err != nil {
		return nil, errors.Wrap(err, "opening kafka source")
	}
	return src, nil
}
