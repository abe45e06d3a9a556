// Package protocol implements api version 0 body codecs for the Kafka
// request types routed by this client. Request bodies encode to raw
// bytes; response bodies decode from the payload remaining after the
// correlation id prefix. Headers and framing live in internal/wire.
package protocol

import (
	"bytes"
	"fmt"
)

// Request is one typed Kafka request body.
type Request interface {
	APIKey() int16
	Encode() ([]byte, error)
}

// AcklessRequest is implemented by requests that expect no reply from
// the broker. The session synthesizes a default response on write
// completion instead of registering a pending entry.
type AcklessRequest interface {
	Request
	Ackless() bool
}

// IsAckless reports whether req expects no broker reply.
func IsAckless(req Request) bool {
	if a, ok := req.(AcklessRequest); ok {
		return a.Ackless()
	}
	return false
}

// DecodeResponse decodes a response body according to the api key of
// the request it answers. The wire carries no discriminator; the caller
// remembers the api key alongside the pending entry.
func DecodeResponse(apiKey int16, body []byte) (any, error) {
	r := bytes.NewReader(body)
	switch apiKey {
	case ProduceAPIKey:
		return decodeProduceResponse(r)
	case FetchAPIKey:
		return decodeFetchResponse(r)
	case ListOffsetsAPIKey:
		return decodeListOffsetsResponse(r)
	case MetadataAPIKey:
		return decodeMetadataResponse(r)
	case OffsetCommitAPIKey:
		return decodeOffsetCommitResponse(r)
	case OffsetFetchAPIKey:
		return decodeOffsetFetchResponse(r)
	case GroupCoordinatorAPIKey:
		return decodeGroupCoordinatorResponse(r)
	case JoinGroupAPIKey:
		return decodeJoinGroupResponse(r)
	case HeartbeatAPIKey:
		return decodeHeartbeatResponse(r)
	case LeaveGroupAPIKey:
		return decodeLeaveGroupResponse(r)
	case SyncGroupAPIKey:
		return decodeSyncGroupResponse(r)
	case DescribeGroupsAPIKey:
		return decodeDescribeGroupsResponse(r)
	case ListGroupsAPIKey:
		return decodeListGroupsResponse(r)
	case APIVersionsAPIKey:
		return decodeAPIVersionsResponse(r)
	default:
		return nil, fmt.Errorf("no decoder for api key %d", apiKey)
	}
}
