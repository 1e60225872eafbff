package dictionary

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"
	"unsafe"

	"github.com/edsrzf/mmap-go"

	"github.com/nori-go/nori/dictionary/trie"
)

const (
	artifactMagic   = "NOR1"
	artifactVersion = 1
)

// header is the fixed-size preamble of a compiled dictionary artifact. Every
// field is a binary.Write/Read-compatible fixed-width type so the header can
// be read straight off the memory-mapped file with no intermediate copy.
type header struct {
	Magic             [4]byte
	Version           uint8
	NormalizationForm uint8

	TrieBaseOffset  uint64
	TrieBaseCount   uint64
	TrieCheckOffset uint64
	TrieCheckCount  uint64
	TrieValueOffset uint64
	TrieValueCount  uint64

	ComplexDataOffset uint64
	ComplexDataLength uint64
}

// complexData bundles every section of the dictionary other than the trie
// arrays (including the connection-cost matrix and the code-point table)
// into one gob-encoded, gzip-compressed block, following the teacher's
// ComplexData convention; only the trie arrays are memory-mapped sections.
type complexData struct {
	MorphemeLists     []MorphemeList
	UserMorphemeLists []MorphemeList
	ConnectionCost    ConnectionCost
	InvokeMap         [characterClassCount]InvokeRule
	CodeToCategory    []codePointCategory
	UnknownTokens     UnknownTokens

	LeftIDNNG                 int
	RightIDNNG                int
	RightIDNNGWithJongsung    int
	RightIDNNGWithoutJongsung int
}

// bytesToSlice reinterprets b as a []T without copying, mirroring the
// teacher's zero-copy cast used when reading flat sections off a
// memory-mapped region. b must be a slice the caller is certain stays
// alive and unmodified for as long as the returned slice is used.
func bytesToSlice[T any](b []byte) []T {
	var zero T
	size := int(unsafe.Sizeof(zero))
	if size == 0 || len(b) == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&b[0])), len(b)/size)
}

func sectionInt32(m []byte, offset, count uint64) []int32 {
	if count == 0 {
		return nil
	}
	end := offset + count*4
	return bytesToSlice[int32](m[offset:end])
}

// Save compiles d into the binary artifact format at path.
func Save(path string, d *Dictionary) error {
	base, check, value := d.Trie.Arrays()

	var complexBuf bytes.Buffer
	gz := gzip.NewWriter(&complexBuf)
	cd := complexData{
		MorphemeLists:             d.MorphemeLists,
		UserMorphemeLists:         d.UserMorphemeLists,
		ConnectionCost:            *d.ConnectionCost,
		InvokeMap:                 d.CharacterClass.InvokeMap,
		CodeToCategory:            d.CharacterClass.Entries(),
		UnknownTokens:             d.UnknownTokens,
		LeftIDNNG:                 d.LeftIDNNG,
		RightIDNNG:                d.RightIDNNG,
		RightIDNNGWithJongsung:    d.RightIDNNGWithJongsung,
		RightIDNNGWithoutJongsung: d.RightIDNNGWithoutJongsung,
	}
	if err := gob.NewEncoder(gz).Encode(&cd); err != nil {
		return fmt.Errorf("dictionary: encode complex data: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("dictionary: compress complex data: %w", err)
	}

	h := header{
		Magic:             [4]byte{'N', 'O', 'R', '1'},
		Version:           artifactVersion,
		NormalizationForm: uint8(d.NormalizationForm),
	}
	offset := uint64(binary.Size(h))
	h.TrieBaseOffset, h.TrieBaseCount = offset, uint64(len(base))
	offset += uint64(len(base)) * 4
	h.TrieCheckOffset, h.TrieCheckCount = offset, uint64(len(check))
	offset += uint64(len(check)) * 4
	h.TrieValueOffset, h.TrieValueCount = offset, uint64(len(value))
	offset += uint64(len(value)) * 4
	h.ComplexDataOffset, h.ComplexDataLength = offset, uint64(complexBuf.Len())

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return fmt.Errorf("dictionary: write header: %w", err)
	}
	for _, section := range [][]int32{base, check, value} {
		if len(section) == 0 {
			continue
		}
		if err := binary.Write(w, binary.LittleEndian, section); err != nil {
			return fmt.Errorf("dictionary: write trie section: %w", err)
		}
	}
	if _, err := w.Write(complexBuf.Bytes()); err != nil {
		return fmt.Errorf("dictionary: write complex data: %w", err)
	}
	return w.Flush()
}

// loadArtifact memory-maps path and reconstructs a Dictionary over it. The
// returned Dictionary's trie arrays alias the mapped region directly; the
// mapping is intentionally never unmapped; it lives for the process
// lifetime, matching the teacher's LoadMorphAnalyzer behavior.
func loadArtifact(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, NewNotFoundError(path, err)
	}
	defer f.Close()

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap: %v", ErrFormat, err)
	}

	var h header
	if err := binary.Read(bytes.NewReader(m), binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrFormat, err)
	}
	if string(h.Magic[:]) != artifactMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrFormat, h.Magic[:])
	}
	if h.Version != artifactVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrFormat, h.Version)
	}

	base := sectionInt32(m, h.TrieBaseOffset, h.TrieBaseCount)
	check := sectionInt32(m, h.TrieCheckOffset, h.TrieCheckCount)
	value := sectionInt32(m, h.TrieValueOffset, h.TrieValueCount)

	if h.ComplexDataOffset+h.ComplexDataLength > uint64(len(m)) {
		return nil, fmt.Errorf("%w: complex data section out of bounds", ErrFormat)
	}
	cd, err := readComplexData(m[h.ComplexDataOffset : h.ComplexDataOffset+h.ComplexDataLength])
	if err != nil {
		return nil, err
	}

	d := &Dictionary{
		Trie:              trie.FromArrays(base, check, value),
		MorphemeLists:     cd.MorphemeLists,
		UserMorphemeLists: cd.UserMorphemeLists,
		ConnectionCost:    &cd.ConnectionCost,
		CharacterClass: &CharacterClassTable{
			InvokeMap: cd.InvokeMap,
		},
		UnknownTokens:     cd.UnknownTokens,
		NormalizationForm: int(h.NormalizationForm),

		LeftIDNNG:                 cd.LeftIDNNG,
		RightIDNNG:                cd.RightIDNNG,
		RightIDNNGWithJongsung:    cd.RightIDNNGWithJongsung,
		RightIDNNGWithoutJongsung: cd.RightIDNNGWithoutJongsung,
	}
	d.CharacterClass.SetEntries(cd.CodeToCategory)

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func readComplexData(b []byte) (*complexData, error) {
	gz, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%w: complex data: %v", ErrFormat, err)
	}
	defer gz.Close()

	var cd complexData
	if err := gob.NewDecoder(gz).Decode(&cd); err != nil {
		return nil, fmt.Errorf("%w: complex data: %v", ErrFormat, err)
	}
	return &cd, nil
}
