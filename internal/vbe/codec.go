// Package vbe implements the variable-byte and fixed-width integer
// codecs used by the postings segment format, plus the gap-coding
// helpers that turn a strictly ascending doc-id run into successive
// differences before encoding.
package vbe

// Codec encodes and decodes non-negative integer sequences for a
// postings segment. Segment writers and readers are parameterized by
// a Codec and never hardcode byte widths, so VBE and Standard are
// interchangeable behind this interface.
type Codec interface {
	// Tag identifies the codec for the sidecar's codec compatibility
	// check ("vbe" or "std").
	Tag() string

	// EncodeSeq serializes values as-is (used for raw term
	// frequencies, which are not gap-coded).
	EncodeSeq(values []uint64) []byte

	// DecodeSeq is the inverse of EncodeSeq.
	DecodeSeq(data []byte) ([]uint64, error)

	// EncodeGaps gap-codes a strictly ascending sequence: it emits
	// values[0], values[1]-values[0], values[2]-values[1], ... Passing
	// a non-ascending sequence is a programmer error.
	EncodeGaps(values []uint64) []byte

	// DecodeGaps is the inverse of EncodeGaps: it reconstructs the
	// original ascending sequence via a running sum.
	DecodeGaps(data []byte) ([]uint64, error)
}

// ByTag resolves a persisted codec tag back to a Codec instance. Used
// when opening a segment whose sidecar recorded which codec wrote it.
func ByTag(tag string) (Codec, bool) {
	switch tag {
	case "vbe":
		return VBE{}, true
	case "std":
		return Standard{}, true
	default:
		return nil, false
	}
}
