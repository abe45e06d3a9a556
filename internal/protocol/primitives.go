package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Primitive field codecs shared by every request/response type. All
// integers are big-endian per the Kafka wire format.

func writeString(buf *bytes.Buffer, s string) {
	binary.Write(buf, binary.BigEndian, int16(len(s)))
	buf.WriteString(s)
}

func readString(r io.Reader) (string, error) {
	var length int16
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return "", fmt.Errorf("failed to read string length: %v", err)
	}
	if length < 0 {
		return "", nil
	}
	b := make([]byte, length)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("failed to read string body: %v", err)
	}
	return string(b), nil
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	if b == nil {
		binary.Write(buf, binary.BigEndian, int32(-1))
		return
	}
	binary.Write(buf, binary.BigEndian, int32(len(b)))
	buf.Write(b)
}

func readBytes(r io.Reader) ([]byte, error) {
	var length int32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, fmt.Errorf("failed to read bytes length: %v", err)
	}
	if length < 0 {
		return nil, nil
	}
	b := make([]byte, length)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("failed to read bytes body: %v", err)
	}
	return b, nil
}

func writeInt32Array(buf *bytes.Buffer, vals []int32) {
	binary.Write(buf, binary.BigEndian, int32(len(vals)))
	for _, v := range vals {
		binary.Write(buf, binary.BigEndian, v)
	}
}

func readInt32Array(r io.Reader) ([]int32, error) {
	var n int32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, fmt.Errorf("failed to read array length: %v", err)
	}
	if n < 0 {
		return nil, nil
	}
	vals := make([]int32, 0, n)
	for i := int32(0); i < n; i++ {
		var v int32
		if err := binary.Read(r, binary.BigEndian, &v); err != nil {
			return nil, fmt.Errorf("failed to read array element: %v", err)
		}
		vals = append(vals, v)
	}
	return vals, nil
}

func readInt64Array(r io.Reader) ([]int64, error) {
	var n int32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, fmt.Errorf("failed to read array length: %v", err)
	}
	if n < 0 {
		return nil, nil
	}
	vals := make([]int64, 0, n)
	for i := int32(0); i < n; i++ {
		var v int64
		if err := binary.Read(r, binary.BigEndian, &v); err != nil {
			return nil, fmt.Errorf("failed to read array element: %v", err)
		}
		vals = append(vals, v)
	}
	return vals, nil
}

func writeStringArray(buf *bytes.Buffer, vals []string) {
	binary.Write(buf, binary.BigEndian, int32(len(vals)))
	for _, v := range vals {
		writeString(buf, v)
	}
}

func readArrayLen(r io.Reader) (int32, error) {
	var n int32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return 0, fmt.Errorf("failed to read array length: %v", err)
	}
	return n, nil
}
