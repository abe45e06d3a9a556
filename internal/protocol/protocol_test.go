package protocol

import (
	"reflect"
	"testing"
)

func TestMetadataResponseRoundTrip(t *testing.T) {
	want := &MetadataResponse{
		Brokers: []Broker{
			{NodeID: 1, Host: "broker-a", Port: 9092},
			{NodeID: 2, Host: "broker-b", Port: 9093},
		},
		Topics: []TopicMetadata{
			{
				Name: "events",
				Partitions: []PartitionMetadata{
					{Partition: 0, Leader: 1, Replicas: []int32{1, 2}, ISR: []int32{1}},
					{Partition: 1, Leader: 2, Replicas: []int32{2, 1}, ISR: []int32{2, 1}},
				},
			},
		},
	}

	resp, err := DecodeResponse(MetadataAPIKey, EncodeMetadataResponse(want))
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if !reflect.DeepEqual(resp, want) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", resp, want)
	}
}

func TestFetchResponseRoundTrip(t *testing.T) {
	want := &FetchResponse{
		Topics: []FetchTopicResponse{
			{
				Name: "events",
				Partitions: []FetchPartitionResponse{
					{Partition: 0, HighWatermark: 100, RecordSet: []byte("records")},
					{Partition: 1, ErrorCode: ErrNotLeaderForPartition},
				},
			},
		},
	}

	resp, err := DecodeResponse(FetchAPIKey, EncodeFetchResponse(want))
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if !reflect.DeepEqual(resp, want) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", resp, want)
	}
}

func TestDecodeResponseRejectsUnknownKey(t *testing.T) {
	if _, err := DecodeResponse(999, nil); err == nil {
		t.Fatal("expected error for unknown api key")
	}
}

func TestDecodeResponseTruncatedBody(t *testing.T) {
	body := EncodeMetadataResponse(&MetadataResponse{
		Brokers: []Broker{{NodeID: 1, Host: "x", Port: 1}},
	})
	if _, err := DecodeResponse(MetadataAPIKey, body[:len(body)-2]); err == nil {
		t.Fatal("expected error for truncated body")
	}
}

func TestProduceAckless(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want bool
	}{
		{"acks 0", &ProduceRequest{RequiredAcks: 0}, true},
		{"acks 1", &ProduceRequest{RequiredAcks: 1}, false},
		{"acks all", &ProduceRequest{RequiredAcks: -1}, false},
		{"non-produce", &MetadataRequest{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAckless(tt.req); got != tt.want {
				t.Errorf("IsAckless: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGroupRequestsExposeGroup(t *testing.T) {
	tests := []struct {
		name string
		req  GroupRequest
	}{
		{"join", &JoinGroupRequest{GroupID: "g1"}},
		{"sync", &SyncGroupRequest{GroupID: "g1"}},
		{"heartbeat", &HeartbeatRequest{GroupID: "g1"}},
		{"leave", &LeaveGroupRequest{GroupID: "g1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.req.Group(); got != "g1" {
				t.Errorf("Group: got %q, want %q", got, "g1")
			}
		})
	}
}

func TestGroupCoordinatorResponseRoundTrip(t *testing.T) {
	want := &GroupCoordinatorResponse{
		CoordinatorID:   3,
		CoordinatorHost: "coordinator",
		CoordinatorPort: 9094,
	}
	resp, err := DecodeResponse(GroupCoordinatorAPIKey, EncodeGroupCoordinatorResponse(want))
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if !reflect.DeepEqual(resp, want) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", resp, want)
	}
}

func TestRequestEncodings(t *testing.T) {
	// Every request kind must encode without error; bodies are
	// consumed by brokers, so only structural sanity is checked here.
	reqs := []Request{
		&MetadataRequest{Topics: []string{"a", "b"}},
		&FetchRequest{ReplicaID: -1, Topics: []FetchTopic{{Name: "t", Partitions: []FetchPartition{{Partition: 0, FetchOffset: 5, MaxBytes: 1024}}}}},
		&ProduceRequest{RequiredAcks: 1, Timeout: 1000, Topics: []ProduceTopic{{Name: "t", Partitions: []ProducePartition{{Partition: 0, RecordSet: []byte("r")}}}}},
		&ListOffsetsRequest{ReplicaID: -1, Topics: []ListOffsetsTopic{{Name: "t", Partitions: []ListOffsetsPartition{{Partition: 0, Time: -1, MaxNumOffset: 1}}}}},
		&OffsetCommitRequest{ConsumerGroup: "g", Topics: []OffsetCommitTopic{{Name: "t", Partitions: []OffsetCommitPartition{{Partition: 0, Offset: 10}}}}},
		&OffsetFetchRequest{ConsumerGroup: "g", Topics: []OffsetFetchTopic{{Name: "t", Partitions: []int32{0}}}},
		&GroupCoordinatorRequest{GroupID: "g"},
		&JoinGroupRequest{GroupID: "g", SessionTimeout: 30000, ProtocolType: "consumer", Protocols: []GroupProtocol{{Name: "range", Metadata: []byte("m")}}},
		&SyncGroupRequest{GroupID: "g", GenerationID: 1, MemberID: "m", Assignments: []GroupAssignment{{MemberID: "m", Assignment: []byte("a")}}},
		&HeartbeatRequest{GroupID: "g", GenerationID: 1, MemberID: "m"},
		&LeaveGroupRequest{GroupID: "g", MemberID: "m"},
		&ListGroupsRequest{},
		&DescribeGroupsRequest{Groups: []string{"g"}},
		&APIVersionsRequest{},
	}
	for _, req := range reqs {
		if _, err := req.Encode(); err != nil {
			t.Errorf("%s: Encode failed: %v", APIKeyName(req.APIKey()), err)
		}
	}
}
