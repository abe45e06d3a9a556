package wire

import (
	"bytes"
	"io"
	"reflect"
	"testing"

	"github.com/issac1998/go-kafka/internal/errors"
)

func TestFrameRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{"empty frame", []byte{}},
		{"small payload", []byte("hello")},
		{"binary payload", []byte{0x00, 0xff, 0x10, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteFrame(&buf, tt.payload); err != nil {
				t.Fatalf("WriteFrame: %v", err)
			}
			got, err := ReadFrame(&buf)
			if err != nil {
				t.Fatalf("ReadFrame: %v", err)
			}
			if !bytes.Equal(got, tt.payload) {
				t.Errorf("payload mismatch: got %v, want %v", got, tt.payload)
			}
		})
	}
}

func TestReadFrameSequence(t *testing.T) {
	var buf bytes.Buffer
	payloads := [][]byte{[]byte("first"), []byte("second"), {}}
	for _, p := range payloads {
		if err := WriteFrame(&buf, p); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
	}

	for i, want := range payloads {
		got, err := ReadFrame(&buf)
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("frame %d: got %v, want %v", i, got, want)
		}
	}

	if _, err := ReadFrame(&buf); err != io.EOF {
		t.Errorf("expected io.EOF after last frame, got %v", err)
	}
}

func TestReadFrameTruncated(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"partial prefix", []byte{0x00, 0x00}},
		{"missing payload", Frame([]byte("hello"))[:7]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadFrame(bytes.NewReader(tt.data))
			if err == nil {
				t.Fatal("expected error for truncated stream")
			}
			if err == io.EOF {
				t.Fatal("mid-frame truncation must not look like clean EOF")
			}
			if !errors.IsDecodeError(err) {
				t.Errorf("expected decode error, got %v", err)
			}
		})
	}
}

func TestRequestHeaderRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		header RequestHeader
		body   []byte
	}{
		{
			name:   "with client id",
			header: RequestHeader{APIKey: 3, APIVersion: 0, CorrelationID: 42, ClientID: "tester"},
			body:   []byte{0x00, 0x01},
		},
		{
			name:   "null client id",
			header: RequestHeader{APIKey: 0, APIVersion: 0, CorrelationID: 7},
			body:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := EncodeRequest(tt.header, tt.body)
			header, body, err := DecodeRequestHeader(payload)
			if err != nil {
				t.Fatalf("DecodeRequestHeader: %v", err)
			}
			if !reflect.DeepEqual(header, tt.header) {
				t.Errorf("header mismatch: got %+v, want %+v", header, tt.header)
			}
			if !bytes.Equal(body, tt.body) && len(body) != 0 {
				t.Errorf("body mismatch: got %v, want %v", body, tt.body)
			}
		})
	}
}

func TestResponseHeaderRoundTrip(t *testing.T) {
	payload := EncodeResponse(99, []byte("body"))
	correlationID, body, err := DecodeResponseHeader(payload)
	if err != nil {
		t.Fatalf("DecodeResponseHeader: %v", err)
	}
	if correlationID != 99 {
		t.Errorf("correlation id: got %d, want 99", correlationID)
	}
	if string(body) != "body" {
		t.Errorf("body: got %q, want %q", body, "body")
	}
}

func TestDecodeResponseHeaderTooShort(t *testing.T) {
	if _, _, err := DecodeResponseHeader([]byte{0x00, 0x01}); err == nil {
		t.Fatal("expected error for short payload")
	}
}
