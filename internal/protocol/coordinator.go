package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// GroupCoordinatorRequest locates the broker coordinating a consumer
// group. Always sent on the bootstrap channel.
type GroupCoordinatorRequest struct {
	GroupID string
}

func (r *GroupCoordinatorRequest) APIKey() int16 { return GroupCoordinatorAPIKey }

func (r *GroupCoordinatorRequest) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	writeString(buf, r.GroupID)
	return buf.Bytes(), nil
}

// GroupCoordinatorResponse names the coordinator's endpoint.
type GroupCoordinatorResponse struct {
	ErrorCode       int16
	CoordinatorID   int32
	CoordinatorHost string
	CoordinatorPort int32
}

func decodeGroupCoordinatorResponse(r io.Reader) (*GroupCoordinatorResponse, error) {
	resp := &GroupCoordinatorResponse{}
	if err := binary.Read(r, binary.BigEndian, &resp.ErrorCode); err != nil {
		return nil, fmt.Errorf("failed to read error code: %v", err)
	}
	if err := binary.Read(r, binary.BigEndian, &resp.CoordinatorID); err != nil {
		return nil, fmt.Errorf("failed to read coordinator id: %v", err)
	}
	var err error
	if resp.CoordinatorHost, err = readString(r); err != nil {
		return nil, fmt.Errorf("failed to read coordinator host: %v", err)
	}
	if err := binary.Read(r, binary.BigEndian, &resp.CoordinatorPort); err != nil {
		return nil, fmt.Errorf("failed to read coordinator port: %v", err)
	}
	return resp, nil
}

// EncodeGroupCoordinatorResponse is the inverse codec for loopback
// fakes.
func EncodeGroupCoordinatorResponse(resp *GroupCoordinatorResponse) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, resp.ErrorCode)
	binary.Write(buf, binary.BigEndian, resp.CoordinatorID)
	writeString(buf, resp.CoordinatorHost)
	binary.Write(buf, binary.BigEndian, resp.CoordinatorPort)
	return buf.Bytes()
}

// APIVersionsRequest probes which api versions the broker supports.
type APIVersionsRequest struct{}

func (r *APIVersionsRequest) APIKey() int16 { return APIVersionsAPIKey }

func (r *APIVersionsRequest) Encode() ([]byte, error) { return nil, nil }

// APIVersionRange is the supported version window for one api key.
type APIVersionRange struct {
	APIKey     int16
	MinVersion int16
	MaxVersion int16
}

// APIVersionsResponse lists the broker's supported api versions.
type APIVersionsResponse struct {
	ErrorCode int16
	APIKeys   []APIVersionRange
}

func decodeAPIVersionsResponse(r io.Reader) (*APIVersionsResponse, error) {
	resp := &APIVersionsResponse{}
	if err := binary.Read(r, binary.BigEndian, &resp.ErrorCode); err != nil {
		return nil, fmt.Errorf("failed to read error code: %v", err)
	}
	n, err := readArrayLen(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read api key count: %v", err)
	}
	for i := int32(0); i < n; i++ {
		var v APIVersionRange
		if err := binary.Read(r, binary.BigEndian, &v.APIKey); err != nil {
			return nil, fmt.Errorf("failed to read api key: %v", err)
		}
		if err := binary.Read(r, binary.BigEndian, &v.MinVersion); err != nil {
			return nil, fmt.Errorf("failed to read min version: %v", err)
		}
		if err := binary.Read(r, binary.BigEndian, &v.MaxVersion); err != nil {
			return nil, fmt.Errorf("failed to read max version: %v", err)
		}
		resp.APIKeys = append(resp.APIKeys, v)
	}
	return resp, nil
}
