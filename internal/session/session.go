// Package session multiplexes many in-flight request/reply pairs over
// one framed duplex byte stream, matching replies to requests by
// correlation id.
package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/issac1998/go-kafka/internal/errors"
	"github.com/issac1998/go-kafka/internal/logging"
	"github.com/issac1998/go-kafka/internal/protocol"
	"github.com/issac1998/go-kafka/internal/wire"
)

// FrameSink writes one outbound frame payload.
type FrameSink func(payload []byte) error

// FrameSource reads one inbound frame payload, blocking until a frame
// arrives or the stream fails.
type FrameSource func() ([]byte, error)

type pendingRequest struct {
	apiKey int16
	done   chan result
}

type result struct {
	resp any
	err  error
}

// Session owns the correlation-id space of one framed stream. Writes
// are serialized; replies arrive in arbitrary order and are matched
// strictly by correlation id.
type Session struct {
	clientID string
	sink     FrameSink
	source   FrameSource
	logger   *logging.Logger

	correlation atomic.Uint32

	pendingMu sync.Mutex
	pending   map[int32]*pendingRequest

	writeMu sync.Mutex

	closed   atomic.Bool
	closeErr atomic.Value
	done     chan struct{}
}

// New starts a session over the given frame sink and source and spawns
// its receiver goroutine.
func New(clientID string, sink FrameSink, source FrameSource, logger *logging.Logger) *Session {
	s := &Session{
		clientID: clientID,
		sink:     sink,
		source:   source,
		logger:   logger.WithComponent("session"),
		pending:  make(map[int32]*pendingRequest),
		done:     make(chan struct{}),
	}
	go s.receiveLoop()
	return s
}

// Send encodes req, registers a pending completion keyed by a freshly
// allocated correlation id, writes the frame and blocks until the
// matching reply arrives, ctx is cancelled, or the session fails.
// Ackless requests skip registration and return a synthesized empty
// response as soon as the write completes.
func (s *Session) Send(ctx context.Context, req protocol.Request) (any, error) {
	if s.closed.Load() {
		return nil, s.closedError()
	}

	body, err := req.Encode()
	if err != nil {
		return nil, errors.NewTypedError(errors.DecodeError,
			fmt.Sprintf("failed to encode %s request", protocol.APIKeyName(req.APIKey())), err)
	}

	correlationID := int32(s.correlation.Add(1))
	payload := wire.EncodeRequest(wire.RequestHeader{
		APIKey:        req.APIKey(),
		APIVersion:    protocol.APIVersion,
		CorrelationID: correlationID,
		ClientID:      s.clientID,
	}, body)

	if protocol.IsAckless(req) {
		if err := s.write(payload); err != nil {
			return nil, err
		}
		return synthesizedResponse(req), nil
	}

	p := &pendingRequest{
		apiKey: req.APIKey(),
		done:   make(chan result, 1),
	}
	s.pendingMu.Lock()
	if s.closed.Load() {
		s.pendingMu.Unlock()
		return nil, s.closedError()
	}
	s.pending[correlationID] = p
	s.pendingMu.Unlock()

	if err := s.write(payload); err != nil {
		s.removePending(correlationID)
		return nil, err
	}

	select {
	case r := <-p.done:
		return r.resp, r.err
	case <-ctx.Done():
		// A late reply with no pending entry is dropped silently.
		s.removePending(correlationID)
		return nil, ctx.Err()
	}
}

// PendingCount reports the number of outstanding requests.
func (s *Session) PendingCount() int {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	return len(s.pending)
}

// Close tears the session down, failing every pending request.
func (s *Session) Close() {
	s.fail(errors.NewTypedError(errors.SessionClosedError, errors.SessionClosedMsg, nil))
}

// Done is closed when the session has terminated.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) write(payload []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed.Load() {
		return s.closedError()
	}
	return s.sink(payload)
}

func (s *Session) receiveLoop() {
	for {
		payload, err := s.source()
		if err != nil {
			s.fail(errors.NewTypedError(errors.SessionClosedError, errors.SessionClosedMsg, err))
			return
		}

		correlationID, body, err := wire.DecodeResponseHeader(payload)
		if err != nil {
			s.fail(errors.NewTypedError(errors.DecodeError, errors.CorruptStreamMsg, err))
			return
		}

		p, ok := s.takePending(correlationID)
		if !ok {
			// Late reply after cancellation, dropped.
			s.logger.Debug("Dropping reply with no pending entry", "correlation_id", correlationID)
			continue
		}

		resp, err := protocol.DecodeResponse(p.apiKey, body)
		if err != nil {
			decodeErr := errors.NewTypedError(errors.DecodeError, errors.CorruptStreamMsg, err)
			p.done <- result{err: decodeErr}
			s.fail(decodeErr)
			return
		}
		p.done <- result{resp: resp}
	}
}

// fail transitions the session to its terminal state exactly once and
// completes every pending request with the given error.
func (s *Session) fail(err error) {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.closeErr.Store(err)

	s.pendingMu.Lock()
	pending := s.pending
	s.pending = make(map[int32]*pendingRequest)
	s.pendingMu.Unlock()

	for _, p := range pending {
		p.done <- result{err: err}
	}
	close(s.done)

	if len(pending) > 0 {
		s.logger.Warn("Session terminated with pending requests", "pending", len(pending), "error", err)
	}
}

func (s *Session) closedError() error {
	if err, ok := s.closeErr.Load().(error); ok {
		return err
	}
	return errors.NewTypedError(errors.SessionClosedError, errors.SessionClosedMsg, nil)
}

func (s *Session) takePending(correlationID int32) (*pendingRequest, bool) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	p, ok := s.pending[correlationID]
	if ok {
		delete(s.pending, correlationID)
	}
	return p, ok
}

func (s *Session) removePending(correlationID int32) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	delete(s.pending, correlationID)
}

// synthesizedResponse is the default reply for requests the broker
// never answers.
func synthesizedResponse(req protocol.Request) any {
	switch req.(type) {
	case *protocol.ProduceRequest:
		return &protocol.ProduceResponse{}
	default:
		return nil
	}
}
