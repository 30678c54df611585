package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
)

// Vectors are stored as packed little-endian float32, the layout SingleStore's
// JSON_ARRAY_PACK produces.

func packVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func unpackVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid vector blob length %d", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

// jsonVector renders v as the JSON array literal JSON_ARRAY_PACK expects.
func jsonVector(v []float32) (string, error) {
	if v == nil {
		v = []float32{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode vector: %w", err)
	}
	return string(b), nil
}

func parseJSONVector(s string) ([]float32, error) {
	var v []float32
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("failed to parse vector: %w", err)
	}
	return v, nil
}
