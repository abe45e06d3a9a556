package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

const defaultBrokerPrefix = "/brokers/"

// EtcdSource reads advertised brokers from an etcd registry. Brokers
// publish themselves as JSON values under a shared key prefix.
type EtcdSource struct {
	client *clientv3.Client
	prefix string
}

// NewEtcdSource connects to the etcd cluster named in config.
func NewEtcdSource(config *Config) (*EtcdSource, error) {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   config.Endpoints,
		Username:    config.Username,
		Password:    config.Password,
		DialTimeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %v", err)
	}
	prefix := config.Prefix
	if prefix == "" {
		prefix = defaultBrokerPrefix
	}
	return &EtcdSource{client: client, prefix: prefix}, nil
}

// DiscoverBrokers lists every broker registered under the prefix.
func (es *EtcdSource) DiscoverBrokers(ctx context.Context) ([]*BrokerInfo, error) {
	resp, err := es.client.Get(ctx, es.prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to list brokers: %v", err)
	}

	brokers := make([]*BrokerInfo, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var broker BrokerInfo
		if err := json.Unmarshal(kv.Value, &broker); err != nil {
			return nil, fmt.Errorf("failed to parse broker entry %s: %v", kv.Key, err)
		}
		brokers = append(brokers, &broker)
	}
	return brokers, nil
}

// Close releases the etcd connection.
func (es *EtcdSource) Close() error {
	return es.client.Close()
}
