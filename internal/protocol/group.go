package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// GroupRequest is implemented by requests routed to a consumer group's
// coordinator channel.
type GroupRequest interface {
	Request
	Group() string
}

// GroupProtocol is one (name, metadata) pair offered during a join.
type GroupProtocol struct {
	Name     string
	Metadata []byte
}

// JoinGroupRequest enters a consumer group.
type JoinGroupRequest struct {
	GroupID        string
	SessionTimeout int32
	MemberID       string
	ProtocolType   string
	Protocols      []GroupProtocol
}

func (r *JoinGroupRequest) APIKey() int16 { return JoinGroupAPIKey }

func (r *JoinGroupRequest) Group() string { return r.GroupID }

func (r *JoinGroupRequest) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	writeString(buf, r.GroupID)
	binary.Write(buf, binary.BigEndian, r.SessionTimeout)
	writeString(buf, r.MemberID)
	writeString(buf, r.ProtocolType)
	binary.Write(buf, binary.BigEndian, int32(len(r.Protocols)))
	for _, p := range r.Protocols {
		writeString(buf, p.Name)
		writeBytes(buf, p.Metadata)
	}
	return buf.Bytes(), nil
}

// GroupMember is one member entry in a join response.
type GroupMember struct {
	MemberID string
	Metadata []byte
}

// JoinGroupResponse reports the member's assignment role.
type JoinGroupResponse struct {
	ErrorCode     int16
	GenerationID  int32
	GroupProtocol string
	LeaderID      string
	MemberID      string
	Members       []GroupMember
}

func decodeJoinGroupResponse(r io.Reader) (*JoinGroupResponse, error) {
	resp := &JoinGroupResponse{}
	var err error
	if err = binary.Read(r, binary.BigEndian, &resp.ErrorCode); err != nil {
		return nil, fmt.Errorf("failed to read error code: %v", err)
	}
	if err = binary.Read(r, binary.BigEndian, &resp.GenerationID); err != nil {
		return nil, fmt.Errorf("failed to read generation id: %v", err)
	}
	if resp.GroupProtocol, err = readString(r); err != nil {
		return nil, fmt.Errorf("failed to read group protocol: %v", err)
	}
	if resp.LeaderID, err = readString(r); err != nil {
		return nil, fmt.Errorf("failed to read leader id: %v", err)
	}
	if resp.MemberID, err = readString(r); err != nil {
		return nil, fmt.Errorf("failed to read member id: %v", err)
	}
	n, err := readArrayLen(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read member count: %v", err)
	}
	for i := int32(0); i < n; i++ {
		var m GroupMember
		if m.MemberID, err = readString(r); err != nil {
			return nil, fmt.Errorf("failed to read member id: %v", err)
		}
		if m.Metadata, err = readBytes(r); err != nil {
			return nil, fmt.Errorf("failed to read member metadata: %v", err)
		}
		resp.Members = append(resp.Members, m)
	}
	return resp, nil
}

// GroupAssignment is one member's partition assignment.
type GroupAssignment struct {
	MemberID   string
	Assignment []byte
}

// SyncGroupRequest distributes partition assignments after a join.
type SyncGroupRequest struct {
	GroupID      string
	GenerationID int32
	MemberID     string
	Assignments  []GroupAssignment
}

func (r *SyncGroupRequest) APIKey() int16 { return SyncGroupAPIKey }

func (r *SyncGroupRequest) Group() string { return r.GroupID }

func (r *SyncGroupRequest) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	writeString(buf, r.GroupID)
	binary.Write(buf, binary.BigEndian, r.GenerationID)
	writeString(buf, r.MemberID)
	binary.Write(buf, binary.BigEndian, int32(len(r.Assignments)))
	for _, a := range r.Assignments {
		writeString(buf, a.MemberID)
		writeBytes(buf, a.Assignment)
	}
	return buf.Bytes(), nil
}

// SyncGroupResponse carries this member's assignment.
type SyncGroupResponse struct {
	ErrorCode  int16
	Assignment []byte
}

func decodeSyncGroupResponse(r io.Reader) (*SyncGroupResponse, error) {
	resp := &SyncGroupResponse{}
	var err error
	if err = binary.Read(r, binary.BigEndian, &resp.ErrorCode); err != nil {
		return nil, fmt.Errorf("failed to read error code: %v", err)
	}
	if resp.Assignment, err = readBytes(r); err != nil {
		return nil, fmt.Errorf("failed to read assignment: %v", err)
	}
	return resp, nil
}

// HeartbeatRequest keeps a group membership alive.
type HeartbeatRequest struct {
	GroupID      string
	GenerationID int32
	MemberID     string
}

func (r *HeartbeatRequest) APIKey() int16 { return HeartbeatAPIKey }

func (r *HeartbeatRequest) Group() string { return r.GroupID }

func (r *HeartbeatRequest) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	writeString(buf, r.GroupID)
	binary.Write(buf, binary.BigEndian, r.GenerationID)
	writeString(buf, r.MemberID)
	return buf.Bytes(), nil
}

// HeartbeatResponse acknowledges a heartbeat.
type HeartbeatResponse struct {
	ErrorCode int16
}

func decodeHeartbeatResponse(r io.Reader) (*HeartbeatResponse, error) {
	resp := &HeartbeatResponse{}
	if err := binary.Read(r, binary.BigEndian, &resp.ErrorCode); err != nil {
		return nil, fmt.Errorf("failed to read error code: %v", err)
	}
	return resp, nil
}

// LeaveGroupRequest exits a consumer group.
type LeaveGroupRequest struct {
	GroupID  string
	MemberID string
}

func (r *LeaveGroupRequest) APIKey() int16 { return LeaveGroupAPIKey }

func (r *LeaveGroupRequest) Group() string { return r.GroupID }

func (r *LeaveGroupRequest) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	writeString(buf, r.GroupID)
	writeString(buf, r.MemberID)
	return buf.Bytes(), nil
}

// LeaveGroupResponse acknowledges a leave.
type LeaveGroupResponse struct {
	ErrorCode int16
}

func decodeLeaveGroupResponse(r io.Reader) (*LeaveGroupResponse, error) {
	resp := &LeaveGroupResponse{}
	if err := binary.Read(r, binary.BigEndian, &resp.ErrorCode); err != nil {
		return nil, fmt.Errorf("failed to read error code: %v", err)
	}
	return resp, nil
}

// ListGroupsRequest enumerates the groups known to a broker. Routed to
// the bootstrap channel.
type ListGroupsRequest struct{}

func (r *ListGroupsRequest) APIKey() int16 { return ListGroupsAPIKey }

func (r *ListGroupsRequest) Encode() ([]byte, error) { return nil, nil }

// ListedGroup is one group entry of a ListGroups response.
type ListedGroup struct {
	GroupID      string
	ProtocolType string
}

// ListGroupsResponse enumerates known groups.
type ListGroupsResponse struct {
	ErrorCode int16
	Groups    []ListedGroup
}

func decodeListGroupsResponse(r io.Reader) (*ListGroupsResponse, error) {
	resp := &ListGroupsResponse{}
	var err error
	if err = binary.Read(r, binary.BigEndian, &resp.ErrorCode); err != nil {
		return nil, fmt.Errorf("failed to read error code: %v", err)
	}
	n, err := readArrayLen(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read group count: %v", err)
	}
	for i := int32(0); i < n; i++ {
		var g ListedGroup
		if g.GroupID, err = readString(r); err != nil {
			return nil, fmt.Errorf("failed to read group id: %v", err)
		}
		if g.ProtocolType, err = readString(r); err != nil {
			return nil, fmt.Errorf("failed to read protocol type: %v", err)
		}
		resp.Groups = append(resp.Groups, g)
	}
	return resp, nil
}

// DescribeGroupsRequest inspects group state. Routed to the bootstrap
// channel.
type DescribeGroupsRequest struct {
	Groups []string
}

func (r *DescribeGroupsRequest) APIKey() int16 { return DescribeGroupsAPIKey }

func (r *DescribeGroupsRequest) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	writeStringArray(buf, r.Groups)
	return buf.Bytes(), nil
}

// DescribedMember is one member of a described group.
type DescribedMember struct {
	MemberID   string
	ClientID   string
	ClientHost string
	Metadata   []byte
	Assignment []byte
}

// DescribedGroup is one group entry of a DescribeGroups response.
type DescribedGroup struct {
	ErrorCode    int16
	GroupID      string
	State        string
	ProtocolType string
	Protocol     string
	Members      []DescribedMember
}

// DescribeGroupsResponse reports the state of the requested groups.
type DescribeGroupsResponse struct {
	Groups []DescribedGroup
}

func decodeDescribeGroupsResponse(r io.Reader) (*DescribeGroupsResponse, error) {
	resp := &DescribeGroupsResponse{}
	n, err := readArrayLen(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read group count: %v", err)
	}
	for i := int32(0); i < n; i++ {
		var g DescribedGroup
		if err := binary.Read(r, binary.BigEndian, &g.ErrorCode); err != nil {
			return nil, fmt.Errorf("failed to read error code: %v", err)
		}
		if g.GroupID, err = readString(r); err != nil {
			return nil, fmt.Errorf("failed to read group id: %v", err)
		}
		if g.State, err = readString(r); err != nil {
			return nil, fmt.Errorf("failed to read state: %v", err)
		}
		if g.ProtocolType, err = readString(r); err != nil {
			return nil, fmt.Errorf("failed to read protocol type: %v", err)
		}
		if g.Protocol, err = readString(r); err != nil {
			return nil, fmt.Errorf("failed to read protocol: %v", err)
		}
		memberCount, err := readArrayLen(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read member count: %v", err)
		}
		for j := int32(0); j < memberCount; j++ {
			var m DescribedMember
			if m.MemberID, err = readString(r); err != nil {
				return nil, fmt.Errorf("failed to read member id: %v", err)
			}
			if m.ClientID, err = readString(r); err != nil {
				return nil, fmt.Errorf("failed to read client id: %v", err)
			}
			if m.ClientHost, err = readString(r); err != nil {
				return nil, fmt.Errorf("failed to read client host: %v", err)
			}
			if m.Metadata, err = readBytes(r); err != nil {
				return nil, fmt.Errorf("failed to read member metadata: %v", err)
			}
			if m.Assignment, err = readBytes(r); err != nil {
				return nil, fmt.Errorf("failed to read member assignment: %v", err)
			}
			g.Members = append(g.Members, m)
		}
		resp.Groups = append(resp.Groups, g)
	}
	return resp, nil
}
