package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// ProducePartition carries the record set destined for one partition.
type ProducePartition struct {
	Partition int32
	RecordSet []byte
}

// ProduceTopic groups produce partitions under one topic.
type ProduceTopic struct {
	Name       string
	Partitions []ProducePartition
}

// ProduceRequest appends record sets to partition leaders. With
// RequiredAcks = 0 the broker sends no reply and the session
// synthesizes an empty response on write completion.
type ProduceRequest struct {
	RequiredAcks int16
	Timeout      int32
	Topics       []ProduceTopic
}

func (r *ProduceRequest) APIKey() int16 { return ProduceAPIKey }

func (r *ProduceRequest) Ackless() bool { return r.RequiredAcks == 0 }

func (r *ProduceRequest) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, r.RequiredAcks)
	binary.Write(buf, binary.BigEndian, r.Timeout)
	binary.Write(buf, binary.BigEndian, int32(len(r.Topics)))
	for _, t := range r.Topics {
		writeString(buf, t.Name)
		binary.Write(buf, binary.BigEndian, int32(len(t.Partitions)))
		for _, p := range t.Partitions {
			binary.Write(buf, binary.BigEndian, p.Partition)
			writeBytes(buf, p.RecordSet)
		}
	}
	return buf.Bytes(), nil
}

// ProducePartitionResponse is the broker's answer for one partition.
type ProducePartitionResponse struct {
	Partition  int32
	ErrorCode  int16
	BaseOffset int64
}

// ProduceTopicResponse groups partition responses under one topic.
type ProduceTopicResponse struct {
	Name       string
	Partitions []ProducePartitionResponse
}

// ProduceResponse is the merged reply for one produce.
type ProduceResponse struct {
	Topics []ProduceTopicResponse
}

func decodeProduceResponse(r io.Reader) (*ProduceResponse, error) {
	resp := &ProduceResponse{}
	topicCount, err := readArrayLen(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read topic count: %v", err)
	}
	for i := int32(0); i < topicCount; i++ {
		var t ProduceTopicResponse
		if t.Name, err = readString(r); err != nil {
			return nil, fmt.Errorf("failed to read topic name: %v", err)
		}
		partitionCount, err := readArrayLen(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read partition count: %v", err)
		}
		for j := int32(0); j < partitionCount; j++ {
			var p ProducePartitionResponse
			if err := binary.Read(r, binary.BigEndian, &p.Partition); err != nil {
				return nil, fmt.Errorf("failed to read partition id: %v", err)
			}
			if err := binary.Read(r, binary.BigEndian, &p.ErrorCode); err != nil {
				return nil, fmt.Errorf("failed to read error code: %v", err)
			}
			if err := binary.Read(r, binary.BigEndian, &p.BaseOffset); err != nil {
				return nil, fmt.Errorf("failed to read base offset: %v", err)
			}
			t.Partitions = append(t.Partitions, p)
		}
		resp.Topics = append(resp.Topics, t)
	}
	return resp, nil
}

// EncodeProduceResponse is the inverse codec, used by loopback broker
// fakes in tests.
func EncodeProduceResponse(resp *ProduceResponse) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, int32(len(resp.Topics)))
	for _, t := range resp.Topics {
		writeString(buf, t.Name)
		binary.Write(buf, binary.BigEndian, int32(len(t.Partitions)))
		for _, p := range t.Partitions {
			binary.Write(buf, binary.BigEndian, p.Partition)
			binary.Write(buf, binary.BigEndian, p.ErrorCode)
			binary.Write(buf, binary.BigEndian, p.BaseOffset)
		}
	}
	return buf.Bytes()
}
