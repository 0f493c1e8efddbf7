package savesystem

import "github.com/golang/snappy"

// SectionCodec compresses section payloads. The codec is a configuration
// choice on the manager: save and load must agree, and the RLE default
// preserves the historical on-disk format.
type SectionCodec interface {
	Name() string
	Encode(src []byte) []byte
	Decode(src []byte, uncompressedSize int) ([]byte, error)
}

// RLECodec is the trivial byte+run-length codec: output is (byte, run)
// pairs with runs capped at 255.
type RLECodec struct{}

// Name identifies the codec.
func (RLECodec) Name() string { return "rle" }

// Encode emits (byte, run) pairs.
func (RLECodec) Encode(src []byte) []byte {
	out := make([]byte, 0, len(src))
	for p := 0; p < len(src); {
		b := src[p]
		run := 1
		for p+run < len(src) && src[p+run] == b && run < 255 {
			run++
		}
		out = append(out, b, byte(run))
		p += run
	}
	return out
}

// Decode expands (byte, run) pairs up to uncompressedSize; short or odd
// input yields however much decoded cleanly, mirroring the tolerant
// historical reader.
func (RLECodec) Decode(src []byte, uncompressedSize int) ([]byte, error) {
	out := make([]byte, 0, uncompressedSize)
	for ci := 0; ci+1 < len(src) && len(out) < uncompressedSize; ci += 2 {
		b := src[ci]
		run := int(src[ci+1])
		for r := 0; r < run && len(out) < uncompressedSize; r++ {
			out = append(out, b)
		}
	}
	return out, nil
}

// SnappyCodec is the alternate codec proving the SectionCodec seam.
type SnappyCodec struct{}

// Name identifies the codec.
func (SnappyCodec) Name() string { return "snappy" }

// Encode snappy-compresses the payload.
func (SnappyCodec) Encode(src []byte) []byte { return snappy.Encode(nil, src) }

// Decode snappy-decompresses the payload.
func (SnappyCodec) Decode(src []byte, uncompressedSize int) ([]byte, error) {
	out, err := snappy.Decode(nil, src)
	if err != nil {
		return nil, err
	}
	if len(out) > uncompressedSize {
		out = out[:uncompressedSize]
	}
	return out, nil
}
