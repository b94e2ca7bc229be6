package resorank

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/blevesearch/vellum"
)

// FSTIndex is a memory-efficient read-only index: terms live in an FST
// mapping to offsets into a binary postings buffer.
type FSTIndex struct {
	fst      *vellum.FST
	postings []byte
}

// BuildFSTIndex converts a map-based token index into an FSTIndex.
func BuildFSTIndex(tokenIndex map[string]map[string]TokenMetadata) (*FSTIndex, error) {
	// 1. Collect and sort terms (vellum requires sorted insertion)
	terms := make([]string, 0, len(tokenIndex))
	for term := range tokenIndex {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	// 2. Prepare FST builder and postings buffer
	var fstBuf bytes.Buffer
	builder, err := vellum.New(&fstBuf, nil)
	if err != nil {
		return nil, err
	}

	var postingsBuf bytes.Buffer

	// 3. Iterate terms
	for _, term := range terms {
		docs := tokenIndex[term]

		// Offset is current position
		offset := uint64(postingsBuf.Len())

		if err := encodePostings(&postingsBuf, docs); err != nil {
			return nil, fmt.Errorf("failed to encode postings for term %s: %w", term, err)
		}

		if err := builder.Insert([]byte(term), offset); err != nil {
			return nil, fmt.Errorf("failed to insert term %s into FST: %w", term, err)
		}
	}

	// 4. Finish
	if err := builder.Close(); err != nil {
		return nil, err
	}

	fst, err := vellum.Load(fstBuf.Bytes())
	if err != nil {
		return nil, err
	}

	return &FSTIndex{
		fst:      fst,
		postings: postingsBuf.Bytes(),
	}, nil
}

// Len returns the number of terms in the FST.
func (fi *FSTIndex) Len() int {
	return fi.fst.Len()
}

// Get returns the postings map for a term.
func (fi *FSTIndex) Get(term string) (map[string]TokenMetadata, bool) {
	offset, exists, err := fi.fst.Get([]byte(term))
	if err != nil || !exists {
		return nil, false
	}

	buf := bytes.NewReader(fi.postings[offset:])
	docs, err := decodePostings(buf)
	if err != nil {
		return nil, false
	}
	return docs, true
}

// Postings implements FrozenPostings for string-keyed scorers.
func (fi *FSTIndex) Postings(term string) (map[string]TokenMetadata, bool) {
	return fi.Get(term)
}

// Close releases resources
func (fi *FSTIndex) Close() error {
	return fi.fst.Close()
}

// Compact freezes a string-keyed scorer's live token index into an
// FSTIndex and clears the mutable maps. Subsequent IndexDocument calls
// write to the fresh mutable index layered above the snapshot; term
// lookups merge both layers, live postings winning per docID. A scorer
// compacts once: rebuilding over an existing snapshot would silently
// drop its postings, so a second call is rejected.
func Compact(s *Scorer[string]) error {
	if s.Frozen != nil {
		return fmt.Errorf("scorer already holds a frozen snapshot")
	}
	fi, err := BuildFSTIndex(s.TokenIndex)
	if err != nil {
		return err
	}
	s.Frozen = fi
	s.TokenIndex = make(map[string]map[string]TokenMetadata)
	return nil
}

// --- Binary Encoding ---

func encodePostings(w io.Writer, docs map[string]TokenMetadata) error {
	// Write doc count
	if err := writeUvarint(w, uint64(len(docs))); err != nil {
		return err
	}

	for docID, meta := range docs {
		// DocID
		if err := writeString(w, docID); err != nil {
			return err
		}
		// SegmentMask (fixed 4 bytes)
		if err := binary.Write(w, binary.LittleEndian, meta.SegmentMask); err != nil {
			return err
		}
		// CorpusDocFreq
		if err := writeUvarint(w, uint64(meta.CorpusDocFreq)); err != nil {
			return err
		}
		// FieldOccurrences
		if err := writeUvarint(w, uint64(len(meta.FieldOccurrences))); err != nil {
			return err
		}
		for fieldName, occ := range meta.FieldOccurrences {
			if err := writeString(w, fieldName); err != nil {
				return err
			}
			if err := writeUvarint(w, uint64(occ.TF)); err != nil {
				return err
			}
			if err := writeUvarint(w, uint64(occ.FieldLength)); err != nil {
				return err
			}
		}
	}
	return nil
}

func decodePostings(r *bytes.Reader) (map[string]TokenMetadata, error) {
	docCount, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	}

	docs := make(map[string]TokenMetadata, docCount)
	for i := uint64(0); i < docCount; i++ {
		docID, err := readString(r)
		if err != nil {
			return nil, err
		}

		var mask uint32
		if err := binary.Read(r, binary.LittleEndian, &mask); err != nil {
			return nil, err
		}

		corpusFreq, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, err
		}

		fieldCount, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, err
		}

		fields := make(map[string]FieldOccurrence, fieldCount)
		for j := uint64(0); j < fieldCount; j++ {
			fieldName, err := readString(r)
			if err != nil {
				return nil, err
			}
			tf, err := binary.ReadUvarint(r)
			if err != nil {
				return nil, err
			}
			fl, err := binary.ReadUvarint(r)
			if err != nil {
				return nil, err
			}
			fields[fieldName] = FieldOccurrence{TF: int(tf), FieldLength: int(fl)}
		}

		docs[docID] = TokenMetadata{
			SegmentMask:      mask,
			CorpusDocFreq:    int(corpusFreq),
			FieldOccurrences: fields,
		}
	}
	return docs, nil
}

// --- Helpers ---

func writeUvarint(w io.Writer, v uint64) error {
	buf := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(buf, v)
	_, err := w.Write(buf[:n])
	return err
}

func writeString(w io.Writer, s string) error {
	if err := writeUvarint(w, uint64(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

func readString(r *bytes.Reader) (string, error) {
	length, err := binary.ReadUvarint(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
