package store

import (
	"encoding/binary"
	"math"
)

// encodeVector packs a []float32 into the little-endian binary blob
// format sqlite-vec's vec0 module accepts for FLOAT[N] columns.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector is the inverse of encodeVector.
func decodeVector(raw []byte) []float32 {
	n := len(raw) / 4
	if n == 0 {
		return nil
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out
}
