// Package wire implements the Kafka framing layer: length-prefixed frames
// over a byte stream, plus the fixed request/response header codec.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/issac1998/go-kafka/internal/errors"
)

// Frame wire format: 4-byte big-endian unsigned length N followed by
// exactly N payload bytes. The prefix is excluded from the payload.
const LengthPrefixSize = 4

// WriteFrame emits the length prefix followed by payload as one
// contiguous write. A zero-length payload is a valid empty frame.
func WriteFrame(w io.Writer, payload []byte) error {
	buf := make([]byte, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[LengthPrefixSize:], payload)
	if _, err := w.Write(buf); err != nil {
		return errors.NewTypedError(errors.TransportError, "failed to write frame", err)
	}
	return nil
}

// Frame returns the framed form of payload without writing it.
func Frame(payload []byte) []byte {
	buf := make([]byte, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[LengthPrefixSize:], payload)
	return buf
}

// ReadFrame reads one complete frame payload from r. A stream that ends
// cleanly between frames returns io.EOF; a stream that ends mid-frame
// returns a DecodeError wrapping io.ErrUnexpectedEOF.
func ReadFrame(r io.Reader) ([]byte, error) {
	prefix := make([]byte, LengthPrefixSize)
	if _, err := io.ReadFull(r, prefix); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errors.NewTypedError(errors.DecodeError, errors.UnexpectedEofMsg, err)
	}
	length := binary.BigEndian.Uint32(prefix)
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, errors.NewTypedError(errors.DecodeError, errors.UnexpectedEofMsg, err)
	}
	return payload, nil
}

// RequestHeader is the fixed prelude of every outgoing payload:
// int16 apiKey, int16 apiVersion, int32 correlationId, nullable_string clientId.
type RequestHeader struct {
	APIKey        int16
	APIVersion    int16
	CorrelationID int32
	ClientID      string
}

// EncodeRequest builds one request payload: header followed by body.
// Size is computed first so the buffer is allocated exactly once.
func EncodeRequest(h RequestHeader, body []byte) []byte {
	size := 2 + 2 + 4 + 2 + len(h.ClientID) + len(body)
	buf := bytes.NewBuffer(make([]byte, 0, size))
	binary.Write(buf, binary.BigEndian, h.APIKey)
	binary.Write(buf, binary.BigEndian, h.APIVersion)
	binary.Write(buf, binary.BigEndian, h.CorrelationID)
	writeNullableString(buf, h.ClientID)
	buf.Write(body)
	return buf.Bytes()
}

// DecodeRequestHeader is the inverse of EncodeRequest, used by
// loopback fakes standing in for brokers.
func DecodeRequestHeader(payload []byte) (RequestHeader, []byte, error) {
	var h RequestHeader
	if len(payload) < 10 {
		return h, nil, errors.NewTypedError(errors.DecodeError,
			fmt.Sprintf("request payload too short: %d bytes", len(payload)), nil)
	}
	h.APIKey = int16(binary.BigEndian.Uint16(payload[0:2]))
	h.APIVersion = int16(binary.BigEndian.Uint16(payload[2:4]))
	h.CorrelationID = int32(binary.BigEndian.Uint32(payload[4:8]))
	rest := payload[8:]
	n := int16(binary.BigEndian.Uint16(rest[:2]))
	rest = rest[2:]
	if n > 0 {
		if int(n) > len(rest) {
			return h, nil, errors.NewTypedError(errors.DecodeError, errors.UnexpectedEofMsg, nil)
		}
		h.ClientID = string(rest[:n])
		rest = rest[n:]
	}
	return h, rest, nil
}

// EncodeResponse builds one response payload: correlation id followed
// by body. The inverse of DecodeResponseHeader, for loopback fakes.
func EncodeResponse(correlationID int32, body []byte) []byte {
	buf := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(buf, uint32(correlationID))
	copy(buf[4:], body)
	return buf
}

// DecodeResponseHeader splits an incoming payload into its correlation id
// and the remaining body bytes.
func DecodeResponseHeader(payload []byte) (int32, []byte, error) {
	if len(payload) < 4 {
		return 0, nil, errors.NewTypedError(errors.DecodeError,
			fmt.Sprintf("response payload too short: %d bytes", len(payload)), nil)
	}
	correlationID := int32(binary.BigEndian.Uint32(payload[:4]))
	return correlationID, payload[4:], nil
}

// writeNullableString encodes a Kafka nullable_string: int16 length
// prefix, -1 for null.
func writeNullableString(buf *bytes.Buffer, s string) {
	if s == "" {
		binary.Write(buf, binary.BigEndian, int16(-1))
		return
	}
	binary.Write(buf, binary.BigEndian, int16(len(s)))
	buf.WriteString(s)
}
