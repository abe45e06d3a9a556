// Package client implements a Kafka wire-protocol client: per-broker
// multiplexed sessions behind recoverable connections, reactive
// routing tables fed by cluster metadata, and a router that splits
// partition requests across leaders and merges the replies.
package client

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/issac1998/go-kafka/internal/discovery"
	"github.com/issac1998/go-kafka/internal/errors"
	"github.com/issac1998/go-kafka/internal/logging"
	"github.com/issac1998/go-kafka/internal/protocol"
)

const (
	defaultPort        = 9092
	defaultDialTimeout = 5 * time.Second
)

// Config carries client construction parameters.
type Config struct {
	// BootstrapServers are "host:port" (or bare "host") addresses
	// tried in order when opening the bootstrap channel. Ignored when
	// Discovery is set.
	BootstrapServers []string

	// ClientID identifies this client to brokers. A random id is
	// generated when empty.
	ClientID string

	// DialTimeout bounds each connection attempt.
	DialTimeout time.Duration

	// Discovery, when set, resolves the bootstrap list from a
	// registry instead of BootstrapServers.
	Discovery *discovery.Config

	// Logging configures the client's logger. Zero value logs to
	// console at info level.
	Logging logging.Config
}

// Client is the top-level handle over one Kafka cluster.
type Client struct {
	clientID    string
	dialTimeout time.Duration
	logger      *logging.Logger

	tables     *routingTables
	bootstrap  *Channel
	router     *router
	classifier *classifier

	closeOnce sync.Once
}

// Connect builds a client and opens its bootstrap channel, trying each
// bootstrap server in order. It fails when every server is unreachable,
// or when the server list cannot be resolved.
func Connect(ctx context.Context, config Config) (*Client, error) {
	if config.ClientID == "" {
		config.ClientID = "go-kafka-" + uuid.New().String()
	}
	if config.DialTimeout == 0 {
		config.DialTimeout = defaultDialTimeout
	}
	if config.Logging.Level == "" {
		config.Logging = logging.Config{
			Level:         logging.LevelInfo,
			Format:        logging.FormatText,
			EnableConsole: true,
		}
	}
	logger, err := logging.New(config.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %v", err)
	}

	endpoints, err := resolveBootstrap(ctx, config)
	if err != nil {
		return nil, err
	}

	c := &Client{
		clientID:    config.ClientID,
		dialTimeout: config.DialTimeout,
		logger:      logger.WithComponent("client"),
		tables:      newRoutingTables(),
	}
	c.bootstrap = newBootstrapChannel(endpoints, c.clientID, c.dialTimeout, logger)
	c.classifier = newClassifier(func(ctx context.Context) error {
		return c.RefreshMetadata(ctx)
	}, logger)
	c.router = newRouter(c.tables, c.bootstrap, c.classifier.Observe, logger)

	if err := c.bootstrap.connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// resolveBootstrap turns the configured server list, or the discovery
// registry, into dialable endpoints.
func resolveBootstrap(ctx context.Context, config Config) ([]Endpoint, error) {
	if config.Discovery != nil {
		source, err := discovery.New(config.Discovery)
		if err != nil {
			return nil, fmt.Errorf("failed to build discovery source: %v", err)
		}
		defer source.Close()
		brokers, err := source.DiscoverBrokers(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to discover brokers: %v", err)
		}
		endpoints := make([]Endpoint, 0, len(brokers))
		for _, b := range brokers {
			endpoints = append(endpoints, Endpoint{Host: b.Address, Port: b.Port})
		}
		if len(endpoints) == 0 {
			return nil, errors.NewTypedError(errors.UnreachableError, errors.BootstrapExhaustedMsg, nil)
		}
		return endpoints, nil
	}

	if len(config.BootstrapServers) == 0 {
		return nil, errors.NewTypedError(errors.UnreachableError, errors.BootstrapExhaustedMsg, nil)
	}
	endpoints := make([]Endpoint, 0, len(config.BootstrapServers))
	for _, server := range config.BootstrapServers {
		endpoint, err := parseEndpoint(server)
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, endpoint)
	}
	return endpoints, nil
}

func parseEndpoint(server string) (Endpoint, error) {
	host, portStr, err := net.SplitHostPort(server)
	if err != nil {
		return Endpoint{Host: server, Port: defaultPort}, nil
	}
	port, err := strconv.ParseInt(portStr, 10, 32)
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid bootstrap server %q: %v", server, err)
	}
	return Endpoint{Host: host, Port: int32(port)}, nil
}

// Send routes one request to the broker(s) that own its target and
// returns the reply. Most callers use the typed wrappers instead.
func (c *Client) Send(ctx context.Context, req protocol.Request) (any, error) {
	return c.router.Route(ctx, req)
}

// Close tears down the bootstrap channel, every broker channel and the
// logger. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.bootstrap.Close()
		for _, ch := range c.tables.channels() {
			ch.Close()
		}
		c.logger.Close()
	})
}
