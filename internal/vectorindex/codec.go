package vectorindex

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
)

// EncodeVector packs v as little-endian float32 bytes.
func EncodeVector(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector unpacks bytes written by EncodeVector.
func DecodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(data))
	}
	if len(data) == 0 {
		return nil, nil
	}
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return v, nil
}

// EncodeMetadata serialises chunk metadata as a JSON object.
func EncodeMetadata(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshalling metadata: %w", err)
	}
	return string(b), nil
}

// DecodeMetadata parses metadata written by EncodeMetadata. The result is
// never nil.
func DecodeMetadata(s string) (map[string]any, error) {
	m := map[string]any{}
	if s == "" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("unmarshalling metadata: %w", err)
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

// CanonicalMetadata round-trips m through its stored form, so records held
// in memory after a build compare equal to records loaded from a store.
func CanonicalMetadata(m map[string]any) (map[string]any, error) {
	s, err := EncodeMetadata(m)
	if err != nil {
		return nil, err
	}
	return DecodeMetadata(s)
}
