package client

import (
	"context"
	"net"
	"time"

	"github.com/issac1998/go-kafka/internal/errors"
	"github.com/issac1998/go-kafka/internal/logging"
	"github.com/issac1998/go-kafka/internal/protocol"
	"github.com/issac1998/go-kafka/internal/resource"
	"github.com/issac1998/go-kafka/internal/session"
	"github.com/issac1998/go-kafka/internal/wire"
)

// brokerConn couples one TCP connection with the session multiplexing
// it. A session's correlation-id space lives and dies with its socket,
// so the pair is created and recreated as a unit.
type brokerConn struct {
	conn    net.Conn
	session *session.Session
}

func (bc *brokerConn) close() {
	bc.session.Close()
	bc.conn.Close()
}

// dialBroker opens a framed session to one endpoint.
func dialBroker(ctx context.Context, endpoint Endpoint, clientID string, dialTimeout time.Duration, logger *logging.Logger) (*brokerConn, error) {
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", endpoint.Addr())
	if err != nil {
		return nil, errors.NewTypedError(errors.TransportError, errors.ConnectionFailedMsg, err)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		tcp.SetNoDelay(true)
	}
	sink := func(payload []byte) error {
		return wire.WriteFrame(conn, payload)
	}
	source := func() ([]byte, error) {
		return wire.ReadFrame(conn)
	}
	logger.SessionEvent("connected", endpoint.Addr(), nil)
	return &brokerConn{
		conn:    conn,
		session: session.New(clientID, sink, source, logger),
	}, nil
}

// Channel is the per-broker request pipe: a recoverable (connection,
// session) pair plus the retry loop that re-dials on transport
// failures and replays the failed request on the successor.
type Channel struct {
	endpoint Endpoint
	res      *resource.Resource[*brokerConn]
	send     func(ctx context.Context, req protocol.Request) (any, error)
	logger   *logging.Logger
}

func newChannel(endpoint Endpoint, clientID string, dialTimeout time.Duration, logger *logging.Logger) *Channel {
	ch := &Channel{
		endpoint: endpoint,
		logger:   logger.WithBroker(endpoint.Addr()),
	}
	creator := func(ctx context.Context) (*brokerConn, error) {
		return dialBroker(ctx, endpoint, clientID, dialTimeout, ch.logger)
	}
	ch.init(creator)
	return ch
}

// newBootstrapChannel builds the cluster-scoped channel. Its creator
// walks the bootstrap endpoints in order and settles on the first one
// that answers. Every recreation starts again from the head of the
// list, so losing the current bootstrap broker moves the channel to the
// first server on the list that still answers.
func newBootstrapChannel(endpoints []Endpoint, clientID string, dialTimeout time.Duration, logger *logging.Logger) *Channel {
	ch := &Channel{
		endpoint: endpoints[0],
		logger:   logger.WithComponent("bootstrap"),
	}
	creator := func(ctx context.Context) (*brokerConn, error) {
		var lastErr error
		for _, endpoint := range endpoints {
			bc, err := dialBroker(ctx, endpoint, clientID, dialTimeout, ch.logger)
			if err == nil {
				ch.endpoint = endpoint
				return bc, nil
			}
			ch.logger.Warn("Bootstrap server unavailable", "broker", endpoint.Addr(), "error", err)
			lastErr = err
		}
		return nil, errors.NewTypedError(errors.UnreachableError, errors.BootstrapExhaustedMsg, lastErr)
	}
	ch.init(creator)
	return ch
}

func (ch *Channel) init(creator resource.Creator[*brokerConn]) {
	handler := func(bc *brokerConn, err error) resource.Decision {
		if errors.ShouldRecreateConnection(err) {
			if bc != nil {
				bc.close()
			}
			ch.logger.RecoveryEvent(ch.endpoint.Addr(), "recreate", err)
			return resource.Recreate
		}
		return resource.Escalate
	}
	ch.res = resource.New(creator, handler, resource.WithLogger[*brokerConn](ch.logger))
	ch.send = resource.Inject(ch.res, func(ctx context.Context, bc *brokerConn, req protocol.Request) (any, error) {
		return bc.session.Send(ctx, req)
	})
}

// Send dispatches one request on this broker's session, transparently
// re-dialing and retrying when the transport fails underneath it.
func (ch *Channel) Send(ctx context.Context, req protocol.Request) (any, error) {
	return ch.send(ctx, req)
}

// connect forces the connection to exist without sending anything.
func (ch *Channel) connect(ctx context.Context) error {
	_, err := ch.res.Current(ctx)
	return err
}

// Endpoint reports the broker address this channel targets.
func (ch *Channel) Endpoint() Endpoint {
	return ch.endpoint
}

// Close tears down the current connection if one exists. It does not
// trigger creation.
func (ch *Channel) Close() {
	if bc, ok := ch.res.Peek(); ok {
		bc.close()
	}
}
