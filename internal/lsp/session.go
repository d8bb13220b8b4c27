package lsp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// pendingRequest is a client request that has not been answered yet.
type pendingRequest struct {
	method string
	start  time.Time
	cancel context.CancelFunc
}

// session tracks requests in both directions: client requests being served
// (cancellable by id) and server requests waiting for the client's answer.
type session struct {
	mu       sync.Mutex
	incoming map[string]*pendingRequest
	outgoing map[int64]chan *rpcMessage
	closed   bool

	nextID atomic.Int64
}

func newSession() *session {
	return &session{
		incoming: make(map[string]*pendingRequest),
		outgoing: make(map[int64]chan *rpcMessage),
	}
}

// idKey normalises a raw JSON-RPC id. The number 7 and the string "7" are
// different ids.
func idKey(id json.RawMessage) string {
	return string(bytes.TrimSpace(id))
}

// begin registers a client request and returns its context. A request id
// that is still pending is rejected.
func (s *session) begin(parent context.Context, id json.RawMessage, method string) (context.Context, error) {
	key := idKey(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.incoming[key]; dup {
		return nil, fmt.Errorf("duplicate request id %s", key)
	}
	ctx, cancel := context.WithCancel(parent)
	s.incoming[key] = &pendingRequest{method: method, start: time.Now(), cancel: cancel}
	return ctx, nil
}

// finish removes a request once its handler returned. It reports false when
// the request was cancelled meanwhile, in which case no response is sent.
func (s *session) finish(id json.RawMessage) (*pendingRequest, bool) {
	s.mu.Lock()
	p, ok := s.incoming[idKey(id)]
	delete(s.incoming, idKey(id))
	s.mu.Unlock()
	if ok {
		p.cancel()
	}
	return p, ok
}

// cancelRequest handles $/cancelRequest. Unknown ids are ignored.
func (s *session) cancelRequest(id json.RawMessage) (string, bool) {
	s.mu.Lock()
	p, ok := s.incoming[idKey(id)]
	delete(s.incoming, idKey(id))
	s.mu.Unlock()
	if !ok {
		return "", false
	}
	p.cancel()
	return p.method, true
}

func (s *session) pendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.incoming)
}

// register allocates an id for a server-to-client request.
func (s *session) register() (int64, <-chan *rpcMessage, error) {
	id := s.nextID.Add(1)
	ch := make(chan *rpcMessage, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, nil, ErrClosed
	}
	s.outgoing[id] = ch
	return id, ch, nil
}

func (s *session) unregister(id int64) {
	s.mu.Lock()
	delete(s.outgoing, id)
	s.mu.Unlock()
}

// deliver hands a client response to the waiting caller. It reports false
// for responses nobody waits for.
func (s *session) deliver(msg *rpcMessage) bool {
	id, err := strconv.ParseInt(idKey(msg.ID), 10, 64)
	if err != nil {
		return false
	}
	s.mu.Lock()
	ch, ok := s.outgoing[id]
	delete(s.outgoing, id)
	s.mu.Unlock()
	if !ok {
		return false
	}
	ch <- msg
	return true
}

// close cancels every pending client request and fails waiting calls.
func (s *session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for key, p := range s.incoming {
		p.cancel()
		delete(s.incoming, key)
	}
	for id, ch := range s.outgoing {
		close(ch)
		delete(s.outgoing, id)
	}
}
