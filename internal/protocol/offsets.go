package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// ListOffsetsPartition asks for offsets around Time for one partition.
type ListOffsetsPartition struct {
	Partition    int32
	Time         int64
	MaxNumOffset int32
}

// ListOffsetsTopic groups offset queries under one topic.
type ListOffsetsTopic struct {
	Name       string
	Partitions []ListOffsetsPartition
}

// ListOffsetsRequest queries log offsets from partition leaders. The
// router splits it by leader like Fetch and Produce.
type ListOffsetsRequest struct {
	ReplicaID int32
	Topics    []ListOffsetsTopic
}

func (r *ListOffsetsRequest) APIKey() int16 { return ListOffsetsAPIKey }

func (r *ListOffsetsRequest) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, r.ReplicaID)
	binary.Write(buf, binary.BigEndian, int32(len(r.Topics)))
	for _, t := range r.Topics {
		writeString(buf, t.Name)
		binary.Write(buf, binary.BigEndian, int32(len(t.Partitions)))
		for _, p := range t.Partitions {
			binary.Write(buf, binary.BigEndian, p.Partition)
			binary.Write(buf, binary.BigEndian, p.Time)
			binary.Write(buf, binary.BigEndian, p.MaxNumOffset)
		}
	}
	return buf.Bytes(), nil
}

// ListOffsetsPartitionResponse carries the offsets for one partition.
type ListOffsetsPartitionResponse struct {
	Partition int32
	ErrorCode int16
	Offsets   []int64
}

// ListOffsetsTopicResponse groups partition responses under one topic.
type ListOffsetsTopicResponse struct {
	Name       string
	Partitions []ListOffsetsPartitionResponse
}

// ListOffsetsResponse is the merged reply for one offsets query.
type ListOffsetsResponse struct {
	Topics []ListOffsetsTopicResponse
}

func decodeListOffsetsResponse(r io.Reader) (*ListOffsetsResponse, error) {
	resp := &ListOffsetsResponse{}
	topicCount, err := readArrayLen(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read topic count: %v", err)
	}
	for i := int32(0); i < topicCount; i++ {
		var t ListOffsetsTopicResponse
		if t.Name, err = readString(r); err != nil {
			return nil, fmt.Errorf("failed to read topic name: %v", err)
		}
		partitionCount, err := readArrayLen(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read partition count: %v", err)
		}
		for j := int32(0); j < partitionCount; j++ {
			var p ListOffsetsPartitionResponse
			if err := binary.Read(r, binary.BigEndian, &p.Partition); err != nil {
				return nil, fmt.Errorf("failed to read partition id: %v", err)
			}
			if err := binary.Read(r, binary.BigEndian, &p.ErrorCode); err != nil {
				return nil, fmt.Errorf("failed to read error code: %v", err)
			}
			if p.Offsets, err = readInt64Array(r); err != nil {
				return nil, fmt.Errorf("failed to read offsets: %v", err)
			}
			t.Partitions = append(t.Partitions, p)
		}
		resp.Topics = append(resp.Topics, t)
	}
	return resp, nil
}

// EncodeListOffsetsResponse is the inverse codec for loopback fakes.
func EncodeListOffsetsResponse(resp *ListOffsetsResponse) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, int32(len(resp.Topics)))
	for _, t := range resp.Topics {
		writeString(buf, t.Name)
		binary.Write(buf, binary.BigEndian, int32(len(t.Partitions)))
		for _, p := range t.Partitions {
			binary.Write(buf, binary.BigEndian, p.Partition)
			binary.Write(buf, binary.BigEndian, p.ErrorCode)
			binary.Write(buf, binary.BigEndian, int32(len(p.Offsets)))
			for _, o := range p.Offsets {
				binary.Write(buf, binary.BigEndian, o)
			}
		}
	}
	return buf.Bytes()
}

// OffsetCommitPartition records one committed offset.
type OffsetCommitPartition struct {
	Partition int32
	Offset    int64
	Metadata  string
}

// OffsetCommitTopic groups commits under one topic.
type OffsetCommitTopic struct {
	Name       string
	Partitions []OffsetCommitPartition
}

// OffsetCommitRequest commits consumed offsets to the group
// coordinator. Routed by ConsumerGroup.
type OffsetCommitRequest struct {
	ConsumerGroup string
	Topics        []OffsetCommitTopic
}

func (r *OffsetCommitRequest) APIKey() int16 { return OffsetCommitAPIKey }

func (r *OffsetCommitRequest) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	writeString(buf, r.ConsumerGroup)
	binary.Write(buf, binary.BigEndian, int32(len(r.Topics)))
	for _, t := range r.Topics {
		writeString(buf, t.Name)
		binary.Write(buf, binary.BigEndian, int32(len(t.Partitions)))
		for _, p := range t.Partitions {
			binary.Write(buf, binary.BigEndian, p.Partition)
			binary.Write(buf, binary.BigEndian, p.Offset)
			writeString(buf, p.Metadata)
		}
	}
	return buf.Bytes(), nil
}

// OffsetCommitPartitionResponse is the commit outcome for one partition.
type OffsetCommitPartitionResponse struct {
	Partition int32
	ErrorCode int16
}

// OffsetCommitTopicResponse groups commit outcomes under one topic.
type OffsetCommitTopicResponse struct {
	Name       string
	Partitions []OffsetCommitPartitionResponse
}

// OffsetCommitResponse is the coordinator's reply to a commit.
type OffsetCommitResponse struct {
	Topics []OffsetCommitTopicResponse
}

func decodeOffsetCommitResponse(r io.Reader) (*OffsetCommitResponse, error) {
	resp := &OffsetCommitResponse{}
	topicCount, err := readArrayLen(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read topic count: %v", err)
	}
	for i := int32(0); i < topicCount; i++ {
		var t OffsetCommitTopicResponse
		if t.Name, err = readString(r); err != nil {
			return nil, fmt.Errorf("failed to read topic name: %v", err)
		}
		partitionCount, err := readArrayLen(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read partition count: %v", err)
		}
		for j := int32(0); j < partitionCount; j++ {
			var p OffsetCommitPartitionResponse
			if err := binary.Read(r, binary.BigEndian, &p.Partition); err != nil {
				return nil, fmt.Errorf("failed to read partition id: %v", err)
			}
			if err := binary.Read(r, binary.BigEndian, &p.ErrorCode); err != nil {
				return nil, fmt.Errorf("failed to read error code: %v", err)
			}
			t.Partitions = append(t.Partitions, p)
		}
		resp.Topics = append(resp.Topics, t)
	}
	return resp, nil
}

// OffsetFetchTopic names the partitions whose committed offsets are
// requested.
type OffsetFetchTopic struct {
	Name       string
	Partitions []int32
}

// OffsetFetchRequest reads committed offsets from the group
// coordinator. Routed by ConsumerGroup.
type OffsetFetchRequest struct {
	ConsumerGroup string
	Topics        []OffsetFetchTopic
}

func (r *OffsetFetchRequest) APIKey() int16 { return OffsetFetchAPIKey }

func (r *OffsetFetchRequest) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	writeString(buf, r.ConsumerGroup)
	binary.Write(buf, binary.BigEndian, int32(len(r.Topics)))
	for _, t := range r.Topics {
		writeString(buf, t.Name)
		writeInt32Array(buf, t.Partitions)
	}
	return buf.Bytes(), nil
}

// OffsetFetchPartitionResponse is one committed offset.
type OffsetFetchPartitionResponse struct {
	Partition int32
	Offset    int64
	Metadata  string
	ErrorCode int16
}

// OffsetFetchTopicResponse groups fetched offsets under one topic.
type OffsetFetchTopicResponse struct {
	Name       string
	Partitions []OffsetFetchPartitionResponse
}

// OffsetFetchResponse is the coordinator's reply to an offset fetch.
type OffsetFetchResponse struct {
	Topics []OffsetFetchTopicResponse
}

func decodeOffsetFetchResponse(r io.Reader) (*OffsetFetchResponse, error) {
	resp := &OffsetFetchResponse{}
	topicCount, err := readArrayLen(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read topic count: %v", err)
	}
	for i := int32(0); i < topicCount; i++ {
		var t OffsetFetchTopicResponse
		if t.Name, err = readString(r); err != nil {
			return nil, fmt.Errorf("failed to read topic name: %v", err)
		}
		partitionCount, err := readArrayLen(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read partition count: %v", err)
		}
		for j := int32(0); j < partitionCount; j++ {
			var p OffsetFetchPartitionResponse
			if err := binary.Read(r, binary.BigEndian, &p.Partition); err != nil {
				return nil, fmt.Errorf("failed to read partition id: %v", err)
			}
			if err := binary.Read(r, binary.BigEndian, &p.Offset); err != nil {
				return nil, fmt.Errorf("failed to read offset: %v", err)
			}
			if p.Metadata, err = readString(r); err != nil {
				return nil, fmt.Errorf("failed to read metadata: %v", err)
			}
			if err := binary.Read(r, binary.BigEndian, &p.ErrorCode); err != nil {
				return nil, fmt.Errorf("failed to read error code: %v", err)
			}
			t.Partitions = append(t.Partitions, p)
		}
		resp.Topics = append(resp.Topics, t)
	}
	return resp, nil
}
