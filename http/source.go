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

// Package http receives MARCXML collections pushed over HTTP.
package http

import (
	"bytes"
	"io"
	"io/ioutil"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pilosa/pilosa/logger"
	"github.com/pkg/errors"
	"github.com/tulibraries/cobindex"
)

// PushSource implements cobindex.RawSource by listening for HTTP POST
// requests. Each request body is one payload.
type PushSource struct {
	addr     string
	listener net.Listener
	server   *http.Server
	log      logger.Logger
	maxBody  int64

	mu       sync.RWMutex
	closed   bool
	payloads chan *payload
	reqs     uint64
}

// PushSourceOption is a functional option type for PushSource.
type PushSourceOption func(p *PushSource)

// OptPushAddr causes the PushSource to bind to the given address.
func OptPushAddr(addr string) PushSourceOption {
	return func(p *PushSource) {
		p.addr = addr
	}
}

// OptPushListener causes the PushSource to use the given listener. It will
// infer the address from the listener.
func OptPushListener(l net.Listener) PushSourceOption {
	return func(p *PushSource) {
		p.listener = l
		p.addr = l.Addr().String()
	}
}

// OptPushBuffer sets how many payloads may wait to be read before POST
// requests block.
func OptPushBuffer(n int) PushSourceOption {
	return func(p *PushSource) {
		if n > -1 {
			p.payloads = make(chan *payload, n)
		}
	}
}

// OptPushMaxBody limits the size of a request body in bytes.
func OptPushMaxBody(n int64) PushSourceOption {
	return func(p *PushSource) {
		p.maxBody = n
	}
}

// OptPushLogger sets the logger. Nil keeps the default.
func OptPushLogger(log logger.Logger) PushSourceOption {
	return func(p *PushSource) {
		if log != nil {
			p.log = log
		}
	}
}

// NewPushSource creates a PushSource and starts serving.
func NewPushSource(opts ...PushSourceOption) (*PushSource, error) {
	p := &PushSource{
		payloads: make(chan *payload, 3),
		maxBody:  64 << 20,
		log:      logger.NopLogger,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.listener == nil {
		var err error
		p.listener, err = net.Listen("tcp", p.addr)
		if err != nil {
			return nil, errors.Wrap(err, "listening")
		}
	}
	if tl, ok := p.listener.(*net.TCPListener); ok {
		p.listener = tcpKeepAliveListener{tl}
	}

	p.server = &http.Server{
		Addr:    p.addr,
		Handler: p,
	}
	go func() {
		err := p.server.Serve(p.listener)
		if err != nil && err != http.ErrServerClosed {
			p.log.Printf("serving: %v", err)
			p.Close()
		}
	}()
	return p, nil
}

// Addr gets the address that the PushSource is listening on.
func (p *PushSource) Addr() string {
	if p.listener != nil {
		return p.listener.Addr().String()
	}
	return p.addr
}

type payload struct {
	*bytes.Reader
	name string
	meta map[string]interface{}
}

func (p *payload) Name() string                 { return p.name }
func (p *payload) Meta() map[string]interface{} { return p.meta }
func (p *payload) Close() error                 { return nil }

// NextReader implements cobindex.RawSource. It returns io.EOF once the
// source is closed and every accepted payload has been read.
func (p *PushSource) NextReader() (cobindex.NamedReadCloser, error) {
	pl, ok := <-p.payloads
	if !ok {
		return nil, io.EOF
	}
	return pl, nil
}

// ServeHTTP implements http.Handler for PushSource.
func (p *PushSource) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "unsupported method: "+r.Method, http.StatusMethodNotAllowed)
		return
	}
	bs, err := ioutil.ReadAll(http.MaxBytesReader(w, r.Body, p.maxBody))
	if err != nil {
		err = errors.Wrap(err, "reading body")
		p.log.Printf("%v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(bytes.TrimSpace(bs)) == 0 {
		http.Error(w, "empty body", http.StatusBadRequest)
		return
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		http.Error(w, "source closed", http.StatusServiceUnavailable)
		return
	}
	n := atomic.AddUint64(&p.reqs, 1)
	p.payloads <- &payload{
		Reader: bytes.NewReader(bs),
		name:   r.URL.Path + "#" + strconv.FormatUint(n, 10),
		meta:   map[string]interface{}{"remote": r.RemoteAddr, "received": time.Now().UTC()},
	}
	w.WriteHeader(http.StatusAccepted)
}

// Close stops accepting payloads. Payloads already accepted are still
// handed out by NextReader.
func (p *PushSource) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.payloads)
	p.mu.Unlock()
	return errors.Wrap(p.server.Close(), "closing server")
}

// tcpKeepAliveListener is copied from net/http

type tcpKeepAliveListener struct {
	*net.TCPListener
}

func (ln tcpKeepAliveListener) Accept() (c net.Conn, err error) {
	tc, err := ln.AcceptTCP()
	if err != nil {
		return
	}
	tc.SetKeepAlive(true)
	tc.SetKeepAlivePeriod(3 * time.Minute)
	return tc, nil
}
