// Package discovery resolves the bootstrap broker list from a backing
// registry. The client only needs addresses to dial first; everything
// else it learns from Metadata responses.
package discovery

import (
	"context"
	"fmt"
	"time"
)

// BrokerInfo is one advertised broker entry.
type BrokerInfo struct {
	ID       string    `json:"id"`
	Address  string    `json:"address"`
	Port     int32     `json:"port"`
	Status   string    `json:"status"`
	LastSeen time.Time `json:"last_seen"`
}

// Addr renders the advertised dial address.
func (b *BrokerInfo) Addr() string {
	return fmt.Sprintf("%s:%d", b.Address, b.Port)
}

// Source lists the brokers currently advertised in a registry.
type Source interface {
	// DiscoverBrokers returns every advertised broker.
	DiscoverBrokers(ctx context.Context) ([]*BrokerInfo, error)

	// Close releases the registry connection.
	Close() error
}

// Config selects and parameterizes a discovery backend.
type Config struct {
	Type      string        `json:"type" yaml:"type"`
	Endpoints []string      `json:"endpoints" yaml:"endpoints"`
	Username  string        `json:"username" yaml:"username"`
	Password  string        `json:"password" yaml:"password"`
	Timeout   time.Duration `json:"timeout" yaml:"timeout"`
	Prefix    string        `json:"prefix" yaml:"prefix"`
}

// New builds a Source from config. An empty or "memory" type yields an
// in-memory source, mainly for tests.
func New(config *Config) (Source, error) {
	if config == nil {
		return NewMemorySource(), nil
	}
	switch config.Type {
	case "etcd":
		return NewEtcdSource(config)
	case "memory", "":
		return NewMemorySource(), nil
	default:
		return nil, fmt.Errorf("unknown discovery type %q", config.Type)
	}
}
