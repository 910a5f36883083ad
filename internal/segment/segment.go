// Package segment implements the on-disk postings segment: a
// postings file of length-prefixed, codec-encoded per-term blocks
// written in ascending term-id order, plus a sidecar dictionary that
// gives O(1) random access by term id and a sequential term-ordered
// iterator for the external merger.
//
// The binary framing (magic, version, length-prefixed records) is
// adapted from the teacher's index segment format, generalized to
// hold codec-encoded postings instead of raw positions.
package segment

const (
	indexMagic   = "MIDX"
	indexVersion = uint16(1)

	sidecarMagic   = "MSID"
	sidecarVersion = uint16(1)

	indexExt   = ".index"
	sidecarExt = ".dict"
)

// dictEntry is a term dictionary entry: sufficient for O(1) random
// access to a term's postings block in the postings file.
type dictEntry struct {
	offset   int64
	df       int
	blockLen int64
}
