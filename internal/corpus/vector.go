package corpus

import (
	"encoding/binary"
	"fmt"
	"math"
)

// encodeVector serializes a float32 vector as a little-endian byte blob.
// A nil vector encodes as an empty blob.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

// decodeVector deserializes a little-endian float32 blob, rejecting blobs
// whose length is not a multiple of four bytes.
func decodeVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("corpus: vector blob length %d is not a multiple of 4", len(blob))
	}
	if len(blob) == 0 {
		return nil, nil
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:]))
	}
	return vec, nil
}
