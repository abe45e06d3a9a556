package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// MetadataRequest asks the cluster for broker and partition-leader
// information. An empty topic list requests metadata for all topics.
type MetadataRequest struct {
	Topics []string
}

func (r *MetadataRequest) APIKey() int16 { return MetadataAPIKey }

func (r *MetadataRequest) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	writeStringArray(buf, r.Topics)
	return buf.Bytes(), nil
}

// Broker is one broker entry of a metadata response.
type Broker struct {
	NodeID int32
	Host   string
	Port   int32
}

// PartitionMetadata describes one partition's leader and replicas.
type PartitionMetadata struct {
	ErrorCode int16
	Partition int32
	Leader    int32
	Replicas  []int32
	ISR       []int32
}

// TopicMetadata describes one topic's partitions.
type TopicMetadata struct {
	ErrorCode  int16
	Name       string
	Partitions []PartitionMetadata
}

// MetadataResponse carries the cluster view used to populate the
// routing tables.
type MetadataResponse struct {
	Brokers []Broker
	Topics  []TopicMetadata
}

func decodeMetadataResponse(r io.Reader) (*MetadataResponse, error) {
	resp := &MetadataResponse{}

	brokerCount, err := readArrayLen(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read broker count: %v", err)
	}
	for i := int32(0); i < brokerCount; i++ {
		var b Broker
		if err := binary.Read(r, binary.BigEndian, &b.NodeID); err != nil {
			return nil, fmt.Errorf("failed to read broker node id: %v", err)
		}
		if b.Host, err = readString(r); err != nil {
			return nil, fmt.Errorf("failed to read broker host: %v", err)
		}
		if err := binary.Read(r, binary.BigEndian, &b.Port); err != nil {
			return nil, fmt.Errorf("failed to read broker port: %v", err)
		}
		resp.Brokers = append(resp.Brokers, b)
	}

	topicCount, err := readArrayLen(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read topic count: %v", err)
	}
	for i := int32(0); i < topicCount; i++ {
		var t TopicMetadata
		if err := binary.Read(r, binary.BigEndian, &t.ErrorCode); err != nil {
			return nil, fmt.Errorf("failed to read topic error code: %v", err)
		}
		if t.Name, err = readString(r); err != nil {
			return nil, fmt.Errorf("failed to read topic name: %v", err)
		}
		partitionCount, err := readArrayLen(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read partition count: %v", err)
		}
		for j := int32(0); j < partitionCount; j++ {
			var p PartitionMetadata
			if err := binary.Read(r, binary.BigEndian, &p.ErrorCode); err != nil {
				return nil, fmt.Errorf("failed to read partition error code: %v", err)
			}
			if err := binary.Read(r, binary.BigEndian, &p.Partition); err != nil {
				return nil, fmt.Errorf("failed to read partition id: %v", err)
			}
			if err := binary.Read(r, binary.BigEndian, &p.Leader); err != nil {
				return nil, fmt.Errorf("failed to read partition leader: %v", err)
			}
			if p.Replicas, err = readInt32Array(r); err != nil {
				return nil, fmt.Errorf("failed to read replicas: %v", err)
			}
			if p.ISR, err = readInt32Array(r); err != nil {
				return nil, fmt.Errorf("failed to read isr: %v", err)
			}
			t.Partitions = append(t.Partitions, p)
		}
		resp.Topics = append(resp.Topics, t)
	}

	return resp, nil
}

// EncodeMetadataResponse is the inverse codec, used by loopback broker
// fakes in tests.
func EncodeMetadataResponse(resp *MetadataResponse) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, int32(len(resp.Brokers)))
	for _, b := range resp.Brokers {
		binary.Write(buf, binary.BigEndian, b.NodeID)
		writeString(buf, b.Host)
		binary.Write(buf, binary.BigEndian, b.Port)
	}
	binary.Write(buf, binary.BigEndian, int32(len(resp.Topics)))
	for _, t := range resp.Topics {
		binary.Write(buf, binary.BigEndian, t.ErrorCode)
		writeString(buf, t.Name)
		binary.Write(buf, binary.BigEndian, int32(len(t.Partitions)))
		for _, p := range t.Partitions {
			binary.Write(buf, binary.BigEndian, p.ErrorCode)
			binary.Write(buf, binary.BigEndian, p.Partition)
			binary.Write(buf, binary.BigEndian, p.Leader)
			writeInt32Array(buf, p.Replicas)
			writeInt32Array(buf, p.ISR)
		}
	}
	return buf.Bytes()
}
