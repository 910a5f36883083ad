package segment

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"sort"

	"medindex/internal/ierr"
	"medindex/internal/vbe"
)

// Writer appends a term's postings in strictly ascending term-id
// order to a new segment. Out-of-order appends, non-ascending
// doc-ids, and tf < 1 are programmer errors and panic immediately
// rather than produce a corrupt index.
type Writer struct {
	basePath string
	codec    vbe.Codec
	analyzer string

	f      *os.File
	w      *bufio.Writer
	offset int64

	lastTermID int64 // -1 until the first Append
	dict       []termOffset
	docLength  map[uint32]uint64
	closed     bool
}

type termOffset struct {
	termID uint32
	entry  dictEntry
}

// NewWriter creates a new segment writer. basePath is extended with
// ".index" and ".dict" for the postings file and sidecar
// respectively. analyzerID is persisted in the sidecar so readers can
// refuse to query with a mismatched analyzer.
func NewWriter(basePath string, codec vbe.Codec, analyzerID string) (*Writer, error) {
	f, err := os.Create(basePath + indexExt)
	if err != nil {
		return nil, ierr.NewIoError("segment writer: create", err)
	}
	w := &Writer{
		basePath:   basePath,
		codec:      codec,
		analyzer:   analyzerID,
		f:          f,
		w:          bufio.NewWriter(f),
		lastTermID: -1,
		docLength:  make(map[uint32]uint64),
	}
	if _, err := w.w.WriteString(indexMagic); err != nil {
		return nil, ierr.NewIoError("segment writer: write magic", err)
	}
	if err := binary.Write(w.w, binary.BigEndian, indexVersion); err != nil {
		return nil, ierr.NewIoError("segment writer: write version", err)
	}
	w.offset = int64(len(indexMagic)) + 2
	return w, nil
}

// Append writes one term's postings block. docIDs must be strictly
// ascending and non-empty; tfs must have the same length with every
// value >= 1; term ids across calls must be strictly ascending.
// Violating any of these is a programmer error (fail fast).
func (w *Writer) Append(termID uint32, docIDs []uint32, tfs []uint32) error {
	if w.lastTermID >= 0 && int64(termID) <= w.lastTermID {
		ierr.Fail("segment.Writer.Append: term id %d not greater than previous %d", termID, w.lastTermID)
	}
	if len(docIDs) == 0 {
		ierr.Fail("segment.Writer.Append: empty postings list for term %d", termID)
	}
	if len(docIDs) != len(tfs) {
		ierr.Fail("segment.Writer.Append: doc_ids/tfs length mismatch for term %d (%d vs %d)", termID, len(docIDs), len(tfs))
	}
	var prev uint32
	for i, d := range docIDs {
		if i > 0 && d <= prev {
			ierr.Fail("segment.Writer.Append: doc ids not strictly ascending for term %d at index %d", termID, i)
		}
		if tfs[i] < 1 {
			ierr.Fail("segment.Writer.Append: tf < 1 for term %d doc %d", termID, d)
		}
		prev = d
	}

	docU64 := make([]uint64, len(docIDs))
	tfU64 := make([]uint64, len(tfs))
	for i := range docIDs {
		docU64[i] = uint64(docIDs[i])
		tfU64[i] = uint64(tfs[i])
	}

	docBytes := w.codec.EncodeGaps(docU64)
	tfBytes := w.codec.EncodeSeq(tfU64)

	start := w.offset
	n, err := w.writeBlock(docBytes, tfBytes)
	if err != nil {
		return err
	}

	w.dict = append(w.dict, termOffset{termID: termID, entry: dictEntry{
		offset:   start,
		df:       len(docIDs),
		blockLen: n,
	}})
	w.lastTermID = int64(termID)

	for i, d := range docIDs {
		w.docLength[d] += uint64(tfs[i])
	}
	return nil
}

func (w *Writer) writeBlock(docBytes, tfBytes []byte) (int64, error) {
	var written int64
	if err := binary.Write(w.w, binary.BigEndian, uint32(len(docBytes))); err != nil {
		return 0, ierr.NewIoError("segment writer: write doc block length", err)
	}
	written += 4
	if _, err := w.w.Write(docBytes); err != nil {
		return 0, ierr.NewIoError("segment writer: write doc block", err)
	}
	written += int64(len(docBytes))
	if err := binary.Write(w.w, binary.BigEndian, uint32(len(tfBytes))); err != nil {
		return 0, ierr.NewIoError("segment writer: write tf block length", err)
	}
	written += 4
	if _, err := w.w.Write(tfBytes); err != nil {
		return 0, ierr.NewIoError("segment writer: write tf block", err)
	}
	written += int64(len(tfBytes))
	w.offset += written
	return written, nil
}

// Close flushes the postings file and writes the sidecar (term
// dictionary, doc-length table, avg_doc_length, codec tag, analyzer
// identity). Calls after the first are no-ops that return nil. It
// must be called on every exit path to avoid an unreadable segment.
func (w *Writer) Close() (err error) {
	if w.closed {
		return nil
	}
	w.closed = true

	defer func() {
		if cerr := w.f.Close(); err == nil && cerr != nil {
			err = ierr.NewIoError("segment writer: close postings file", cerr)
		}
	}()

	if err = w.w.Flush(); err != nil {
		return ierr.NewIoError("segment writer: flush", err)
	}
	if err = w.f.Sync(); err != nil {
		return ierr.NewIoError("segment writer: sync", err)
	}

	if err = w.writeSidecar(); err != nil {
		return err
	}
	return nil
}

func (w *Writer) writeSidecar() error {
	sf, err := os.Create(w.basePath + sidecarExt)
	if err != nil {
		return ierr.NewIoError("segment writer: create sidecar", err)
	}
	defer sf.Close()

	sw := bufio.NewWriter(sf)

	var avgDocLength float64
	if len(w.docLength) > 0 {
		var sum uint64
		for _, l := range w.docLength {
			sum += l
		}
		avgDocLength = float64(sum) / float64(len(w.docLength))
	}

	if _, err := sw.WriteString(sidecarMagic); err != nil {
		return ierr.NewIoError("segment writer: sidecar magic", err)
	}
	if err := binary.Write(sw, binary.BigEndian, sidecarVersion); err != nil {
		return ierr.NewIoError("segment writer: sidecar version", err)
	}
	if err := writeString(sw, w.codec.Tag()); err != nil {
		return err
	}
	if err := writeString(sw, w.analyzer); err != nil {
		return err
	}
	if err := binary.Write(sw, binary.BigEndian, uint32(len(w.docLength))); err != nil {
		return ierr.NewIoError("segment writer: sidecar numDocs", err)
	}
	if err := binary.Write(sw, binary.BigEndian, avgDocLength); err != nil {
		return ierr.NewIoError("segment writer: sidecar avgDocLength", err)
	}
	if err := binary.Write(sw, binary.BigEndian, uint32(len(w.dict))); err != nil {
		return ierr.NewIoError("segment writer: sidecar termCount", err)
	}
	for _, to := range w.dict {
		if err := binary.Write(sw, binary.BigEndian, to.termID); err != nil {
			return ierr.NewIoError("segment writer: sidecar term id", err)
		}
		if err := binary.Write(sw, binary.BigEndian, to.entry.offset); err != nil {
			return ierr.NewIoError("segment writer: sidecar offset", err)
		}
		if err := binary.Write(sw, binary.BigEndian, uint32(to.entry.df)); err != nil {
			return ierr.NewIoError("segment writer: sidecar df", err)
		}
		if err := binary.Write(sw, binary.BigEndian, to.entry.blockLen); err != nil {
			return ierr.NewIoError("segment writer: sidecar blockLen", err)
		}
	}

	docIDs := make([]uint32, 0, len(w.docLength))
	for d := range w.docLength {
		docIDs = append(docIDs, d)
	}
	sort.Slice(docIDs, func(i, j int) bool { return docIDs[i] < docIDs[j] })
	for _, d := range docIDs {
		if err := binary.Write(sw, binary.BigEndian, d); err != nil {
			return ierr.NewIoError("segment writer: sidecar doc id", err)
		}
		if err := binary.Write(sw, binary.BigEndian, w.docLength[d]); err != nil {
			return ierr.NewIoError("segment writer: sidecar doc length", err)
		}
	}

	if err := sw.Flush(); err != nil {
		return ierr.NewIoError("segment writer: flush sidecar", err)
	}
	return sf.Sync()
}

func writeString(w *bufio.Writer, s string) error {
	b := []byte(s)
	if err := binary.Write(w, binary.BigEndian, uint16(len(b))); err != nil {
		return ierr.NewIoError(fmt.Sprintf("write string length %q", s), err)
	}
	if _, err := w.Write(b); err != nil {
		return ierr.NewIoError(fmt.Sprintf("write string %q", s), err)
	}
	return nil
}
