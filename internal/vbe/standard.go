package vbe

import (
	"encoding/binary"

	"medindex/internal/ierr"
)

// Standard serializes each integer as a fixed-width 4-byte unsigned
// value. It exists so the segment writer/reader can be exercised
// against a non-compressed baseline without branching on format.
type Standard struct{}

func (Standard) Tag() string { return "std" }

func (Standard) EncodeSeq(values []uint64) []byte {
	out := make([]byte, len(values)*4)
	for i, v := range values {
		if v > 0xffffffff {
			ierr.Fail("Standard.EncodeSeq: value %d overflows 32 bits", v)
		}
		binary.BigEndian.PutUint32(out[i*4:], uint32(v))
	}
	return out
}

func (Standard) DecodeSeq(data []byte) ([]uint64, error) {
	if len(data)%4 != 0 {
		return nil, ierr.NewDecodeError("standard: length not a multiple of 4", nil)
	}
	out := make([]uint64, len(data)/4)
	for i := range out {
		out[i] = uint64(binary.BigEndian.Uint32(data[i*4:]))
	}
	return out, nil
}

func (s Standard) EncodeGaps(values []uint64) []byte {
	gaps := make([]uint64, len(values))
	var prev uint64
	for i, v := range values {
		if i == 0 {
			gaps[i] = v
		} else {
			if v <= prev {
				ierr.Fail("EncodeGaps: sequence not strictly ascending at index %d (%d <= %d)", i, v, prev)
			}
			gaps[i] = v - prev
		}
		prev = v
	}
	return s.EncodeSeq(gaps)
}

func (s Standard) DecodeGaps(data []byte) ([]uint64, error) {
	gaps, err := s.DecodeSeq(data)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, len(gaps))
	var running uint64
	for i, g := range gaps {
		if i == 0 {
			running = g
		} else {
			sum := running + g
			if sum < running {
				return nil, ierr.NewDecodeError("standard: gap decode overflow", nil)
			}
			running = sum
		}
		out[i] = running
	}
	return out, nil
}
