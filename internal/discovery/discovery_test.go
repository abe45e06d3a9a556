package discovery

import (
	"context"
	"testing"
)

func TestMemorySourceRegisterAndDiscover(t *testing.T) {
	ms := NewMemorySource()
	ms.Register(&BrokerInfo{ID: "b1", Address: "host-a", Port: 9092})
	ms.Register(&BrokerInfo{ID: "b2", Address: "host-b", Port: 9093})

	brokers, err := ms.DiscoverBrokers(context.Background())
	if err != nil {
		t.Fatalf("DiscoverBrokers: %v", err)
	}
	if len(brokers) != 2 {
		t.Fatalf("got %d brokers, want 2", len(brokers))
	}

	addrs := map[string]bool{}
	for _, b := range brokers {
		addrs[b.Addr()] = true
	}
	if !addrs["host-a:9092"] || !addrs["host-b:9093"] {
		t.Errorf("unexpected addresses: %v", addrs)
	}
}

func TestMemorySourceReRegisterReplaces(t *testing.T) {
	ms := NewMemorySource()
	ms.Register(&BrokerInfo{ID: "b1", Address: "old", Port: 1})
	ms.Register(&BrokerInfo{ID: "b1", Address: "new", Port: 2})

	brokers, err := ms.DiscoverBrokers(context.Background())
	if err != nil {
		t.Fatalf("DiscoverBrokers: %v", err)
	}
	if len(brokers) != 1 {
		t.Fatalf("got %d brokers, want 1", len(brokers))
	}
	if brokers[0].Addr() != "new:2" {
		t.Errorf("got %s, want new:2", brokers[0].Addr())
	}
}

func TestNewSelectsBackend(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{"nil config", nil, false},
		{"memory", &Config{Type: "memory"}, false},
		{"empty type", &Config{}, false},
		{"unknown", &Config{Type: "zookeeper"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source, err := New(tt.config)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			source.Close()
		})
	}
}
