// Package compression frames record sets with a self-describing codec
// header so consumers can decompress payloads without out-of-band
// coordination. The header is one codec byte plus the uncompressed
// length.
package compression

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
)

// Type identifies a record-set codec.
type Type int8

const (
	None Type = iota
	Gzip
	Snappy
	Zstd
)

// String returns the codec's wire name.
func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case Gzip:
		return "gzip"
	case Snappy:
		return "snappy"
	case Zstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// Parse maps a codec name to its Type.
func Parse(name string) (Type, error) {
	switch name {
	case "none", "":
		return None, nil
	case "gzip":
		return Gzip, nil
	case "snappy":
		return Snappy, nil
	case "zstd":
		return Zstd, nil
	default:
		return None, fmt.Errorf("unknown codec %q", name)
	}
}

// Codec compresses and decompresses record-set payloads.
type Codec interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
	Type() Type
}

type noneCodec struct{}

func (noneCodec) Compress(data []byte) ([]byte, error)   { return data, nil }
func (noneCodec) Decompress(data []byte) ([]byte, error) { return data, nil }
func (noneCodec) Type() Type                             { return None }

type gzipCodec struct{}

func (gzipCodec) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := gzip.NewWriter(&buf)
	if _, err := writer.Write(data); err != nil {
		return nil, fmt.Errorf("gzip compress failed: %v", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("gzip writer close failed: %v", err)
	}
	return buf.Bytes(), nil
}

func (gzipCodec) Decompress(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip reader create failed: %v", err)
	}
	defer reader.Close()
	result, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("gzip decompress failed: %v", err)
	}
	return result, nil
}

func (gzipCodec) Type() Type { return Gzip }

type snappyCodec struct{}

func (snappyCodec) Compress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

func (snappyCodec) Decompress(data []byte) ([]byte, error) {
	result, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("snappy decompress failed: %v", err)
	}
	return result, nil
}

func (snappyCodec) Type() Type { return Snappy }

type zstdCodec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newZstdCodec() (*zstdCodec, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder failed: %v", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder failed: %v", err)
	}
	return &zstdCodec{encoder: encoder, decoder: decoder}, nil
}

func (z *zstdCodec) Compress(data []byte) ([]byte, error) {
	return z.encoder.EncodeAll(data, nil), nil
}

func (z *zstdCodec) Decompress(data []byte) ([]byte, error) {
	result, err := z.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress failed: %v", err)
	}
	return result, nil
}

func (z *zstdCodec) Type() Type { return Zstd }

// For returns the codec implementing t.
func For(t Type) (Codec, error) {
	switch t {
	case None:
		return noneCodec{}, nil
	case Gzip:
		return gzipCodec{}, nil
	case Snappy:
		return snappyCodec{}, nil
	case Zstd:
		return newZstdCodec()
	default:
		return nil, fmt.Errorf("unsupported codec: %d", t)
	}
}

const headerSize = 5

// Pack compresses payload with t and prepends the codec header.
func Pack(payload []byte, t Type) ([]byte, error) {
	codec, err := For(t)
	if err != nil {
		return nil, err
	}
	compressed, err := codec.Compress(payload)
	if err != nil {
		return nil, err
	}

	result := make([]byte, headerSize+len(compressed))
	result[0] = byte(t)
	originalLen := uint32(len(payload))
	result[1] = byte(originalLen >> 24)
	result[2] = byte(originalLen >> 16)
	result[3] = byte(originalLen >> 8)
	result[4] = byte(originalLen)
	copy(result[headerSize:], compressed)
	return result, nil
}

// Unpack reads the codec header and returns the decompressed payload.
func Unpack(data []byte) ([]byte, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("invalid packed payload: too short")
	}
	t := Type(data[0])
	originalLen := uint32(data[1])<<24 | uint32(data[2])<<16 | uint32(data[3])<<8 | uint32(data[4])

	codec, err := For(t)
	if err != nil {
		return nil, err
	}
	decompressed, err := codec.Decompress(data[headerSize:])
	if err != nil {
		return nil, err
	}
	if uint32(len(decompressed)) != originalLen {
		return nil, fmt.Errorf("decompressed length mismatch: expected %d, got %d",
			originalLen, len(decompressed))
	}
	return decompressed, nil
}
