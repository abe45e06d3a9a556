package client

import (
	"bytes"
	"context"
	"encoding/binary"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/issac1998/go-kafka/internal/errors"
	"github.com/issac1998/go-kafka/internal/logging"
	"github.com/issac1998/go-kafka/internal/protocol"
	"github.com/issac1998/go-kafka/internal/wire"
)

// fakeBroker speaks just enough of the wire protocol to stand in for a
// broker: framed requests in, framed replies out, keyed handlers per
// api key. Requests with no handler are swallowed, which doubles as
// the ackless-produce behavior.
type fakeBroker struct {
	t  *testing.T
	ln net.Listener

	mu       sync.Mutex
	counts   map[int16]int
	handlers map[int16]func(body []byte) []byte
}

func newFakeBroker(t *testing.T) *fakeBroker {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	fb := &fakeBroker{
		t:        t,
		ln:       ln,
		counts:   make(map[int16]int),
		handlers: make(map[int16]func([]byte) []byte),
	}
	t.Cleanup(func() { ln.Close() })
	go fb.serve()
	return fb
}

func (fb *fakeBroker) serve() {
	for {
		conn, err := fb.ln.Accept()
		if err != nil {
			return
		}
		go fb.serveConn(conn)
	}
}

func (fb *fakeBroker) serveConn(conn net.Conn) {
	defer conn.Close()
	for {
		payload, err := wire.ReadFrame(conn)
		if err != nil {
			return
		}
		header, body, err := wire.DecodeRequestHeader(payload)
		if err != nil {
			return
		}
		fb.mu.Lock()
		fb.counts[header.APIKey]++
		handler := fb.handlers[header.APIKey]
		fb.mu.Unlock()
		if handler == nil {
			continue
		}
		respBody := handler(body)
		if respBody == nil {
			continue
		}
		if err := wire.WriteFrame(conn, wire.EncodeResponse(header.CorrelationID, respBody)); err != nil {
			return
		}
	}
}

func (fb *fakeBroker) handle(apiKey int16, fn func(body []byte) []byte) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.handlers[apiKey] = fn
}

func (fb *fakeBroker) count(apiKey int16) int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.counts[apiKey]
}

func (fb *fakeBroker) port() int32 {
	return int32(fb.ln.Addr().(*net.TCPAddr).Port)
}

func (fb *fakeBroker) addr() string {
	return fb.ln.Addr().String()
}

// parseFetchBody extracts the topic/partition pairs of an encoded
// fetch request.
func parseFetchBody(t *testing.T, body []byte) []TopicPartition {
	t.Helper()
	r := bytes.NewReader(body)
	var replicaID, maxWait, minBytes, topicCount int32
	for _, v := range []*int32{&replicaID, &maxWait, &minBytes, &topicCount} {
		if err := binary.Read(r, binary.BigEndian, v); err != nil {
			t.Fatalf("parse fetch: %v", err)
		}
	}
	var out []TopicPartition
	for i := int32(0); i < topicCount; i++ {
		var nameLen int16
		if err := binary.Read(r, binary.BigEndian, &nameLen); err != nil {
			t.Fatalf("parse fetch: %v", err)
		}
		name := make([]byte, nameLen)
		if _, err := r.Read(name); err != nil {
			t.Fatalf("parse fetch: %v", err)
		}
		var partitionCount int32
		if err := binary.Read(r, binary.BigEndian, &partitionCount); err != nil {
			t.Fatalf("parse fetch: %v", err)
		}
		for j := int32(0); j < partitionCount; j++ {
			var partition int32
			var offset int64
			var maxBytes int32
			if err := binary.Read(r, binary.BigEndian, &partition); err != nil {
				t.Fatalf("parse fetch: %v", err)
			}
			if err := binary.Read(r, binary.BigEndian, &offset); err != nil {
				t.Fatalf("parse fetch: %v", err)
			}
			if err := binary.Read(r, binary.BigEndian, &maxBytes); err != nil {
				t.Fatalf("parse fetch: %v", err)
			}
			out = append(out, TopicPartition{Topic: string(name), Partition: partition})
		}
	}
	return out
}

func fetchEcho(t *testing.T, watermark int64) func(body []byte) []byte {
	return func(body []byte) []byte {
		partitions := parseFetchBody(t, body)
		resp := &protocol.FetchResponse{}
		for _, tp := range partitions {
			i := -1
			for j := range resp.Topics {
				if resp.Topics[j].Name == tp.Topic {
					i = j
					break
				}
			}
			if i < 0 {
				resp.Topics = append(resp.Topics, protocol.FetchTopicResponse{Name: tp.Topic})
				i = len(resp.Topics) - 1
			}
			resp.Topics[i].Partitions = append(resp.Topics[i].Partitions, protocol.FetchPartitionResponse{
				Partition:     tp.Partition,
				HighWatermark: watermark,
			})
		}
		return protocol.EncodeFetchResponse(resp)
	}
}

// twoBrokerCluster wires two fakes into one cluster: topic "events"
// with partition 0 led by broker a and partition 1 led by broker b.
func twoBrokerCluster(t *testing.T) (*fakeBroker, *fakeBroker) {
	a := newFakeBroker(t)
	b := newFakeBroker(t)
	metadata := func([]byte) []byte {
		return protocol.EncodeMetadataResponse(&protocol.MetadataResponse{
			Brokers: []protocol.Broker{
				{NodeID: 1, Host: "127.0.0.1", Port: a.port()},
				{NodeID: 2, Host: "127.0.0.1", Port: b.port()},
			},
			Topics: []protocol.TopicMetadata{{
				Name: "events",
				Partitions: []protocol.PartitionMetadata{
					{Partition: 0, Leader: 1, Replicas: []int32{1}, ISR: []int32{1}},
					{Partition: 1, Leader: 2, Replicas: []int32{2}, ISR: []int32{2}},
				},
			}},
		})
	}
	a.handle(protocol.MetadataAPIKey, metadata)
	b.handle(protocol.MetadataAPIKey, metadata)
	return a, b
}

func testConfig(servers ...string) Config {
	return Config{
		BootstrapServers: servers,
		ClientID:         "test-client",
		DialTimeout:      time.Second,
		Logging: logging.Config{
			Level:         logging.LevelError,
			Format:        logging.FormatText,
			EnableConsole: true,
		},
	}
}

func deadAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func TestConnectFallsBackAcrossBootstrapServers(t *testing.T) {
	a, _ := twoBrokerCluster(t)

	c, err := Connect(context.Background(), testConfig(deadAddr(t), a.addr()))
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	resp, err := c.Metadata(context.Background(), "events")
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if len(resp.Brokers) != 2 {
		t.Errorf("got %d brokers, want 2", len(resp.Brokers))
	}
}

func TestConnectFailsWhenAllServersUnreachable(t *testing.T) {
	_, err := Connect(context.Background(), testConfig(deadAddr(t), deadAddr(t)))
	if err == nil {
		t.Fatal("expected connect failure")
	}
	if errors.GetErrorType(err) != errors.UnreachableError {
		t.Errorf("expected unreachable error, got %v", err)
	}
}

func TestFetchSplitsAcrossLeadersAndMerges(t *testing.T) {
	a, b := twoBrokerCluster(t)
	a.handle(protocol.FetchAPIKey, fetchEcho(t, 100))
	b.handle(protocol.FetchAPIKey, fetchEcho(t, 200))

	c, err := Connect(context.Background(), testConfig(a.addr()))
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	resp, err := c.Fetch(context.Background(), &protocol.FetchRequest{
		ReplicaID:   -1,
		MaxWaitTime: 100,
		MinBytes:    1,
		Topics: []protocol.FetchTopic{{
			Name: "events",
			Partitions: []protocol.FetchPartition{
				{Partition: 0, FetchOffset: 0, MaxBytes: 1024},
				{Partition: 1, FetchOffset: 0, MaxBytes: 1024},
			},
		}},
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if got := a.count(protocol.FetchAPIKey); got != 1 {
		t.Errorf("broker a served %d fetches, want 1", got)
	}
	if got := b.count(protocol.FetchAPIKey); got != 1 {
		t.Errorf("broker b served %d fetches, want 1", got)
	}

	watermarks := map[int32]int64{}
	for _, topic := range resp.Topics {
		if topic.Name != "events" {
			t.Errorf("unexpected topic %q in merged response", topic.Name)
		}
		for _, p := range topic.Partitions {
			watermarks[p.Partition] = p.HighWatermark
		}
	}
	if watermarks[0] != 100 || watermarks[1] != 200 {
		t.Errorf("merged response lost shards: %v", watermarks)
	}
}

func TestAcklessProduceReturnsWithoutReply(t *testing.T) {
	a, _ := twoBrokerCluster(t)
	// No produce handler registered: the fake never answers, like a
	// broker honoring acks=0.

	c, err := Connect(context.Background(), testConfig(a.addr()))
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	resp, err := c.Produce(context.Background(), &protocol.ProduceRequest{
		RequiredAcks: 0,
		Timeout:      1000,
		Topics: []protocol.ProduceTopic{{
			Name:       "events",
			Partitions: []protocol.ProducePartition{{Partition: 0, RecordSet: []byte("payload")}},
		}},
	})
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}
	if resp == nil {
		t.Fatal("expected synthesized response")
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if a.count(protocol.ProduceAPIKey) == 1 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("broker never received the produce request")
}

func TestGroupRequestsFollowCoordinator(t *testing.T) {
	a, b := twoBrokerCluster(t)
	a.handle(protocol.GroupCoordinatorAPIKey, func([]byte) []byte {
		return protocol.EncodeGroupCoordinatorResponse(&protocol.GroupCoordinatorResponse{
			CoordinatorID:   2,
			CoordinatorHost: "127.0.0.1",
			CoordinatorPort: b.port(),
		})
	})
	b.handle(protocol.HeartbeatAPIKey, func([]byte) []byte {
		return []byte{0x00, 0x00} // no error
	})

	c, err := Connect(context.Background(), testConfig(a.addr()))
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	resp, err := c.Heartbeat(context.Background(), &protocol.HeartbeatRequest{
		GroupID:      "workers",
		GenerationID: 1,
		MemberID:     "m1",
	})
	if err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
	if resp.ErrorCode != protocol.ErrNoError {
		t.Errorf("heartbeat error code %d", resp.ErrorCode)
	}

	if got := a.count(protocol.HeartbeatAPIKey); got != 0 {
		t.Errorf("bootstrap broker served %d heartbeats, want 0", got)
	}
	if got := b.count(protocol.HeartbeatAPIKey); got != 1 {
		t.Errorf("coordinator served %d heartbeats, want 1", got)
	}
	if got := a.count(protocol.GroupCoordinatorAPIKey); got != 1 {
		t.Errorf("coordinator lookups: got %d, want 1", got)
	}

	// A second group request reuses the cached coordinator route.
	if _, err := c.Heartbeat(context.Background(), &protocol.HeartbeatRequest{
		GroupID: "workers", GenerationID: 1, MemberID: "m1",
	}); err != nil {
		t.Fatalf("second Heartbeat: %v", err)
	}
	if got := a.count(protocol.GroupCoordinatorAPIKey); got != 1 {
		t.Errorf("coordinator re-resolved: got %d lookups, want 1", got)
	}
}

func TestStaleLeaderSchedulesMetadataRefresh(t *testing.T) {
	a, _ := twoBrokerCluster(t)
	a.handle(protocol.FetchAPIKey, func(body []byte) []byte {
		return protocol.EncodeFetchResponse(&protocol.FetchResponse{
			Topics: []protocol.FetchTopicResponse{{
				Name: "events",
				Partitions: []protocol.FetchPartitionResponse{{
					Partition: 0,
					ErrorCode: protocol.ErrNotLeaderForPartition,
				}},
			}},
		})
	})

	c, err := Connect(context.Background(), testConfig(a.addr()))
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	resp, err := c.Fetch(context.Background(), &protocol.FetchRequest{
		ReplicaID:   -1,
		MaxWaitTime: 100,
		MinBytes:    1,
		Topics: []protocol.FetchTopic{{
			Name:       "events",
			Partitions: []protocol.FetchPartition{{Partition: 0, MaxBytes: 1024}},
		}},
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	// The error stays visible to the caller.
	if code := resp.Topics[0].Partitions[0].ErrorCode; code != protocol.ErrNotLeaderForPartition {
		t.Errorf("error code rewritten to %d", code)
	}

	// The first Metadata request came from route priming; the stale
	// leader must trigger at least one more.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if a.count(protocol.MetadataAPIKey) >= 2 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no metadata refresh observed, count=%d", a.count(protocol.MetadataAPIKey))
}

func TestSendRejectsUnroutableTopic(t *testing.T) {
	a, _ := twoBrokerCluster(t)
	c, err := Connect(context.Background(), testConfig(a.addr()))
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	if err := c.RefreshMetadata(context.Background(), "events"); err != nil {
		t.Fatalf("RefreshMetadata: %v", err)
	}

	_, err = c.Send(context.Background(), &protocol.FetchRequest{
		ReplicaID: -1,
		Topics: []protocol.FetchTopic{{
			Name:       "no-such-topic",
			Partitions: []protocol.FetchPartition{{Partition: 0, MaxBytes: 1}},
		}},
	})
	if !errors.IsMissingRoute(err) {
		t.Fatalf("expected missing-route error, got %v", err)
	}
}

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		in   string
		want Endpoint
	}{
		{"localhost:9092", Endpoint{Host: "localhost", Port: 9092}},
		{"10.0.0.1:1234", Endpoint{Host: "10.0.0.1", Port: 1234}},
		{"plainhost", Endpoint{Host: "plainhost", Port: 9092}},
	}
	for _, tt := range tests {
		got, err := parseEndpoint(tt.in)
		if err != nil {
			t.Errorf("parseEndpoint(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseEndpoint(%q): got %+v, want %+v", tt.in, got, tt.want)
		}
	}
}
