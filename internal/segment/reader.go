package segment

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"

	"medindex/internal/ierr"
	"medindex/internal/vbe"
)

// Reader opens a segment read-only. It is safe to share across
// concurrent scorers: all state is loaded at Open and never mutated.
type Reader struct {
	f     *os.File
	codec vbe.Codec

	analyzer     string
	dict         map[uint32]dictEntry
	sortedTerms  []uint32
	docLength    map[uint32]uint64
	avgDocLength float64
}

// Open loads a segment's sidecar (term dictionary, doc-length table,
// avg_doc_length, codec tag, analyzer identity) and keeps the
// postings file open for random access by GetPostings.
func Open(basePath string) (*Reader, error) {
	sidecar, err := readSidecar(basePath + sidecarExt)
	if err != nil {
		return nil, err
	}
	codec, ok := vbe.ByTag(sidecar.codecTag)
	if !ok {
		return nil, ierr.NewDecodeError(fmt.Sprintf("segment: unknown codec tag %q", sidecar.codecTag), nil)
	}

	f, err := os.Open(basePath + indexExt)
	if err != nil {
		return nil, ierr.NewIoError("segment reader: open postings file", err)
	}
	if err := checkIndexHeader(f); err != nil {
		f.Close()
		return nil, err
	}

	sortedTerms := make([]uint32, 0, len(sidecar.dict))
	for t := range sidecar.dict {
		sortedTerms = append(sortedTerms, t)
	}
	sort.Slice(sortedTerms, func(i, j int) bool { return sortedTerms[i] < sortedTerms[j] })

	return &Reader{
		f:            f,
		codec:        codec,
		analyzer:     sidecar.analyzer,
		dict:         sidecar.dict,
		sortedTerms:  sortedTerms,
		docLength:    sidecar.docLength,
		avgDocLength: sidecar.avgDocLength,
	}, nil
}

// AnalyzerID returns the analyzer identity recorded when this segment
// was written. Callers must refuse to query with a different analyzer.
func (r *Reader) AnalyzerID() string { return r.analyzer }

// DF returns a term's document frequency and whether it is present.
func (r *Reader) DF(termID uint32) (int, bool) {
	e, ok := r.dict[termID]
	if !ok {
		return 0, false
	}
	return e.df, true
}

// DocLength returns a document's token-count length and whether it is
// known to this segment.
func (r *Reader) DocLength(docID uint32) (uint64, bool) {
	l, ok := r.docLength[docID]
	return l, ok
}

// AvgDocLength returns the mean document length across this segment.
func (r *Reader) AvgDocLength() float64 { return r.avgDocLength }

// NumDocs returns the number of distinct documents recorded in this
// segment's doc-length table.
func (r *Reader) NumDocs() int { return len(r.docLength) }

// GetPostings returns the (doc-ids, term-frequencies) for termID, or
// ierr.ErrMissing if the term is absent from this segment.
func (r *Reader) GetPostings(termID uint32) ([]uint32, []uint32, error) {
	entry, ok := r.dict[termID]
	if !ok {
		return nil, nil, ierr.ErrMissing
	}

	block := make([]byte, entry.blockLen)
	if _, err := r.f.ReadAt(block, entry.offset); err != nil {
		return nil, nil, ierr.NewIoError("segment reader: read postings block", err)
	}

	docBytes, tfBytes, err := splitBlock(block)
	if err != nil {
		return nil, nil, err
	}

	docsU64, err := r.codec.DecodeGaps(docBytes)
	if err != nil {
		return nil, nil, err
	}
	tfsU64, err := r.codec.DecodeSeq(tfBytes)
	if err != nil {
		return nil, nil, err
	}
	if len(docsU64) != entry.df || len(tfsU64) != entry.df {
		return nil, nil, ierr.NewDecodeError(fmt.Sprintf("segment: term %d decoded %d/%d postings, want df=%d", termID, len(docsU64), len(tfsU64), entry.df), nil)
	}

	docIDs := make([]uint32, len(docsU64))
	tfs := make([]uint32, len(tfsU64))
	for i := range docsU64 {
		docIDs[i] = uint32(docsU64[i])
		tfs[i] = uint32(tfsU64[i])
	}
	return docIDs, tfs, nil
}

func checkIndexHeader(f *os.File) error {
	header := make([]byte, len(indexMagic)+2)
	if _, err := io.ReadFull(f, header); err != nil {
		return ierr.NewDecodeError("segment: truncated postings file header", err)
	}
	if string(header[:len(indexMagic)]) != indexMagic {
		return ierr.NewDecodeError(fmt.Sprintf("segment: bad postings magic %q", header[:len(indexMagic)]), nil)
	}
	v := binary.BigEndian.Uint16(header[len(indexMagic):])
	if v != indexVersion {
		return ierr.NewDecodeError(fmt.Sprintf("segment: unsupported postings version %d", v), nil)
	}
	return nil
}

func splitBlock(block []byte) (docBytes, tfBytes []byte, err error) {
	if len(block) < 4 {
		return nil, nil, ierr.NewDecodeError("segment: truncated postings block", nil)
	}
	docLen := int(binary.BigEndian.Uint32(block[0:4]))
	if 4+docLen+4 > len(block) {
		return nil, nil, ierr.NewDecodeError("segment: doc block length overruns postings block", nil)
	}
	docBytes = block[4 : 4+docLen]
	rest := block[4+docLen:]
	tfLen := int(binary.BigEndian.Uint32(rest[0:4]))
	if 4+tfLen != len(rest) {
		return nil, nil, ierr.NewDecodeError("segment: tf block length mismatch", nil)
	}
	tfBytes = rest[4 : 4+tfLen]
	return docBytes, tfBytes, nil
}

// Close releases the segment's open file handle.
func (r *Reader) Close() error {
	if err := r.f.Close(); err != nil {
		return ierr.NewIoError("segment reader: close", err)
	}
	return nil
}

// Iterator returns a sequential iterator over this segment's terms in
// ascending term-id order, used by the external merger.
func (r *Reader) Iterator() *Iterator {
	return &Iterator{r: r}
}

// Iterator walks a segment's terms in ascending term-id order,
// decoding each postings block on demand.
type Iterator struct {
	r   *Reader
	pos int
}

// Next returns the next (term-id, doc-ids, tfs) triple, or ok=false
// once the iterator is exhausted.
func (it *Iterator) Next() (termID uint32, docIDs []uint32, tfs []uint32, ok bool, err error) {
	if it.pos >= len(it.r.sortedTerms) {
		return 0, nil, nil, false, nil
	}
	termID = it.r.sortedTerms[it.pos]
	it.pos++
	docIDs, tfs, err = it.r.GetPostings(termID)
	if err != nil {
		return 0, nil, nil, false, err
	}
	return termID, docIDs, tfs, true, nil
}

type sidecarData struct {
	codecTag     string
	analyzer     string
	dict         map[uint32]dictEntry
	docLength    map[uint32]uint64
	avgDocLength float64
}

func readSidecar(path string) (*sidecarData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ierr.NewIoError("segment reader: open sidecar", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	magicBuf := make([]byte, len(sidecarMagic))
	if _, err := io.ReadFull(r, magicBuf); err != nil {
		return nil, ierr.NewDecodeError("segment sidecar: truncated magic", err)
	}
	if string(magicBuf) != sidecarMagic {
		return nil, ierr.NewDecodeError(fmt.Sprintf("segment sidecar: bad magic %q", magicBuf), nil)
	}
	var v uint16
	if err := binary.Read(r, binary.BigEndian, &v); err != nil {
		return nil, ierr.NewDecodeError("segment sidecar: truncated version", err)
	}
	if v != sidecarVersion {
		return nil, ierr.NewDecodeError(fmt.Sprintf("segment sidecar: unsupported version %d", v), nil)
	}

	codecTag, err := readString(r)
	if err != nil {
		return nil, err
	}
	analyzer, err := readString(r)
	if err != nil {
		return nil, err
	}

	var numDocs uint32
	if err := binary.Read(r, binary.BigEndian, &numDocs); err != nil {
		return nil, ierr.NewDecodeError("segment sidecar: truncated numDocs", err)
	}
	var avgDocLength float64
	if err := binary.Read(r, binary.BigEndian, &avgDocLength); err != nil {
		return nil, ierr.NewDecodeError("segment sidecar: truncated avgDocLength", err)
	}

	var termCount uint32
	if err := binary.Read(r, binary.BigEndian, &termCount); err != nil {
		return nil, ierr.NewDecodeError("segment sidecar: truncated termCount", err)
	}
	dict := make(map[uint32]dictEntry, termCount)
	for i := uint32(0); i < termCount; i++ {
		var termID uint32
		var offset int64
		var df uint32
		var blockLen int64
		if err := binary.Read(r, binary.BigEndian, &termID); err != nil {
			return nil, ierr.NewDecodeError("segment sidecar: truncated term id", err)
		}
		if err := binary.Read(r, binary.BigEndian, &offset); err != nil {
			return nil, ierr.NewDecodeError("segment sidecar: truncated offset", err)
		}
		if err := binary.Read(r, binary.BigEndian, &df); err != nil {
			return nil, ierr.NewDecodeError("segment sidecar: truncated df", err)
		}
		if err := binary.Read(r, binary.BigEndian, &blockLen); err != nil {
			return nil, ierr.NewDecodeError("segment sidecar: truncated blockLen", err)
		}
		dict[termID] = dictEntry{offset: offset, df: int(df), blockLen: blockLen}
	}

	docLength := make(map[uint32]uint64, numDocs)
	for i := uint32(0); i < numDocs; i++ {
		var docID uint32
		var length uint64
		if err := binary.Read(r, binary.BigEndian, &docID); err != nil {
			return nil, ierr.NewDecodeError("segment sidecar: truncated doc id", err)
		}
		if err := binary.Read(r, binary.BigEndian, &length); err != nil {
			return nil, ierr.NewDecodeError("segment sidecar: truncated doc length", err)
		}
		docLength[docID] = length
	}

	return &sidecarData{
		codecTag:     codecTag,
		analyzer:     analyzer,
		dict:         dict,
		docLength:    docLength,
		avgDocLength: avgDocLength,
	}, nil
}

func readString(r *bufio.Reader) (string, error) {
	var l uint16
	if err := binary.Read(r, binary.BigEndian, &l); err != nil {
		return "", ierr.NewDecodeError("segment sidecar: truncated string length", err)
	}
	buf := make([]byte, l)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", ierr.NewDecodeError("segment sidecar: truncated string", err)
	}
	return string(buf), nil
}
