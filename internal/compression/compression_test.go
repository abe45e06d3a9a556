package compression

import (
	"bytes"
	"testing"
)

func TestPackUnpackRoundTrip(t *testing.T) {
	payload := []byte("a record set payload that compresses reasonably well well well")

	for _, codec := range []Type{None, Gzip, Snappy, Zstd} {
		t.Run(codec.String(), func(t *testing.T) {
			packed, err := Pack(payload, codec)
			if err != nil {
				t.Fatalf("Pack: %v", err)
			}
			got, err := Unpack(packed)
			if err != nil {
				t.Fatalf("Unpack: %v", err)
			}
			if !bytes.Equal(got, payload) {
				t.Errorf("round trip mismatch for %s", codec)
			}
		})
	}
}

func TestUnpackRejectsCorruptHeader(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"too short", []byte{0x01}},
		{"unknown codec", append([]byte{0x7f, 0, 0, 0, 0}, []byte("x")...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Unpack(tt.data); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestUnpackDetectsLengthMismatch(t *testing.T) {
	packed, err := Pack([]byte("payload"), None)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	// Corrupt the recorded original length.
	packed[4] ^= 0xff
	if _, err := Unpack(packed); err == nil {
		t.Fatal("expected length mismatch error")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		want    Type
		wantErr bool
	}{
		{"none", None, false},
		{"", None, false},
		{"gzip", Gzip, false},
		{"snappy", Snappy, false},
		{"zstd", Zstd, false},
		{"lz77", None, true},
	}
	for _, tt := range tests {
		got, err := Parse(tt.name)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Parse(%q): expected error", tt.name)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q): %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("Parse(%q): got %v, want %v", tt.name, got, tt.want)
		}
	}
}
