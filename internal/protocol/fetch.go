package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// FetchPartition is one (partition, offset, maxBytes) tuple of a fetch.
type FetchPartition struct {
	Partition   int32
	FetchOffset int64
	MaxBytes    int32
}

// FetchTopic groups fetch partitions under one topic.
type FetchTopic struct {
	Name       string
	Partitions []FetchPartition
}

// FetchRequest reads record data from partition leaders. The router
// splits one FetchRequest into per-leader shards preserving ReplicaID,
// MaxWaitTime and MinBytes.
type FetchRequest struct {
	ReplicaID   int32
	MaxWaitTime int32
	MinBytes    int32
	Topics      []FetchTopic
}

func (r *FetchRequest) APIKey() int16 { return FetchAPIKey }

func (r *FetchRequest) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, r.ReplicaID)
	binary.Write(buf, binary.BigEndian, r.MaxWaitTime)
	binary.Write(buf, binary.BigEndian, r.MinBytes)
	binary.Write(buf, binary.BigEndian, int32(len(r.Topics)))
	for _, t := range r.Topics {
		writeString(buf, t.Name)
		binary.Write(buf, binary.BigEndian, int32(len(t.Partitions)))
		for _, p := range t.Partitions {
			binary.Write(buf, binary.BigEndian, p.Partition)
			binary.Write(buf, binary.BigEndian, p.FetchOffset)
			binary.Write(buf, binary.BigEndian, p.MaxBytes)
		}
	}
	return buf.Bytes(), nil
}

// FetchPartitionResponse carries the record set for one partition. The
// record set is opaque at this layer; the compression package unwraps
// payloads above it.
type FetchPartitionResponse struct {
	Partition     int32
	ErrorCode     int16
	HighWatermark int64
	RecordSet     []byte
}

// FetchTopicResponse groups partition responses under one topic.
type FetchTopicResponse struct {
	Name       string
	Partitions []FetchPartitionResponse
}

// FetchResponse is the merged reply for one fetch.
type FetchResponse struct {
	Topics []FetchTopicResponse
}

func decodeFetchResponse(r io.Reader) (*FetchResponse, error) {
	resp := &FetchResponse{}
	topicCount, err := readArrayLen(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read topic count: %v", err)
	}
	for i := int32(0); i < topicCount; i++ {
		var t FetchTopicResponse
		if t.Name, err = readString(r); err != nil {
			return nil, fmt.Errorf("failed to read topic name: %v", err)
		}
		partitionCount, err := readArrayLen(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read partition count: %v", err)
		}
		for j := int32(0); j < partitionCount; j++ {
			var p FetchPartitionResponse
			if err := binary.Read(r, binary.BigEndian, &p.Partition); err != nil {
				return nil, fmt.Errorf("failed to read partition id: %v", err)
			}
			if err := binary.Read(r, binary.BigEndian, &p.ErrorCode); err != nil {
				return nil, fmt.Errorf("failed to read error code: %v", err)
			}
			if err := binary.Read(r, binary.BigEndian, &p.HighWatermark); err != nil {
				return nil, fmt.Errorf("failed to read high watermark: %v", err)
			}
			if p.RecordSet, err = readBytes(r); err != nil {
				return nil, fmt.Errorf("failed to read record set: %v", err)
			}
			t.Partitions = append(t.Partitions, p)
		}
		resp.Topics = append(resp.Topics, t)
	}
	return resp, nil
}

// EncodeFetchResponse is the inverse codec, used by loopback broker
// fakes in tests.
func EncodeFetchResponse(resp *FetchResponse) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, int32(len(resp.Topics)))
	for _, t := range resp.Topics {
		writeString(buf, t.Name)
		binary.Write(buf, binary.BigEndian, int32(len(t.Partitions)))
		for _, p := range t.Partitions {
			binary.Write(buf, binary.BigEndian, p.Partition)
			binary.Write(buf, binary.BigEndian, p.ErrorCode)
			binary.Write(buf, binary.BigEndian, p.HighWatermark)
			writeBytes(buf, p.RecordSet)
		}
	}
	return buf.Bytes()
}
