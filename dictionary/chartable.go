package dictionary

import (
	"fmt"
	"sort"
	"strings"
)

// CharacterClass classifies a code point for unknown-token segmentation.
type CharacterClass int

const (
	DEFAULT CharacterClass = iota
	SPACE
	HANGUL
	HANJA
	HANJANUMERIC
	HIRAGANA
	KATAKANA
	KANJI
	NUMERIC
	ALPHA
	GREEK
	CYRILLIC
	SYMBOL
	EMOJI
	// NGRAM is a synthetic category reserved for the builder's calibration
	// entry (spec.md §4.3 step 6); it never appears in char.def and has no
	// code points mapped to it.
	NGRAM

	characterClassCount
)

// CharacterClassCount is the number of defined categories, exported so
// callers outside the package can enumerate CharacterClass(0)..CharacterClassCount-1.
const CharacterClassCount = characterClassCount

var characterClassNames = [characterClassCount]string{
	DEFAULT: "DEFAULT", SPACE: "SPACE", HANGUL: "HANGUL", HANJA: "HANJA",
	HANJANUMERIC: "HANJANUMERIC", HIRAGANA: "HIRAGANA", KATAKANA: "KATAKANA",
	KANJI: "KANJI", NUMERIC: "NUMERIC", ALPHA: "ALPHA", GREEK: "GREEK",
	CYRILLIC: "CYRILLIC", SYMBOL: "SYMBOL", EMOJI: "EMOJI", NGRAM: "NGRAM",
}

func (c CharacterClass) String() string {
	if c >= 0 && int(c) < len(characterClassNames) {
		return characterClassNames[c]
	}
	return "DEFAULT"
}

// ParseCharacterClass resolves a char.def/unk.def category token.
func ParseCharacterClass(s string) (CharacterClass, bool) {
	upper := strings.ToUpper(s)
	for i, name := range characterClassNames {
		if name == upper {
			return CharacterClass(i), true
		}
	}
	return 0, false
}

// InvokeRule is the per-category unknown-token policy: whether to always
// try the unknown rule even when the trie matched (Invoke), whether to
// extend the match across adjacent same-category characters (Group), and
// the default run length (Length) used when Group is false.
type InvokeRule struct {
	Invoke bool
	Group  bool
	Length int
}

// codePointCategory is one entry of the sorted code-to-category table.
type codePointCategory struct {
	CodePoint int32
	Class     CharacterClass
}

// CharacterClassTable maps code points to categories and categories to
// their invoke/group/length rule.
type CharacterClassTable struct {
	InvokeMap      [characterClassCount]InvokeRule
	codeToCategory []codePointCategory // sorted by CodePoint, binary searched
}

// NewCharacterClassTable returns an empty table ready for builder population.
func NewCharacterClassTable() *CharacterClassTable {
	return &CharacterClassTable{}
}

// SetRange assigns class to every code point in [from, to] inclusive. Used
// while parsing char.def's "0xHEX..0xHEX CATEGORY" lines; ranges may be
// added out of order, Finalize sorts them.
func (t *CharacterClassTable) SetRange(from, to int32, class CharacterClass) {
	for cp := from; cp <= to; cp++ {
		t.codeToCategory = append(t.codeToCategory, codePointCategory{cp, class})
	}
}

// Finalize sorts the code-to-category table for binary search and merges
// duplicate code points (last write wins, matching a plain map assignment).
func (t *CharacterClassTable) Finalize() {
	sort.Slice(t.codeToCategory, func(i, j int) bool {
		return t.codeToCategory[i].CodePoint < t.codeToCategory[j].CodePoint
	})
	out := t.codeToCategory[:0]
	for i, entry := range t.codeToCategory {
		if i > 0 && entry.CodePoint == out[len(out)-1].CodePoint {
			out[len(out)-1] = entry
			continue
		}
		out = append(out, entry)
	}
	t.codeToCategory = out
}

// ClassOf returns the category recorded for r, or HANGUL if r has no entry
// (matching the original's fallback in Dictionary::getCharClass — Korean
// text dominates the expected input, so an unmapped code point defaults to
// Hangul rather than DEFAULT).
func (t *CharacterClassTable) ClassOf(r rune) CharacterClass {
	cp := int32(r)
	n := len(t.codeToCategory)
	i := sort.Search(n, func(i int) bool { return t.codeToCategory[i].CodePoint >= cp })
	if i < n && t.codeToCategory[i].CodePoint == cp {
		return t.codeToCategory[i].Class
	}
	return HANGUL
}

// Entries returns the sorted (codepoint, category) pairs, for codec
// serialization.
func (t *CharacterClassTable) Entries() []codePointCategory {
	return t.codeToCategory
}

// SetEntries replaces the code-to-category table with pre-sorted entries,
// used by the codec when loading from a serialized section.
func (t *CharacterClassTable) SetEntries(entries []codePointCategory) {
	t.codeToCategory = entries
}

func (c CharacterClass) GoString() string {
	return fmt.Sprintf("CharacterClass(%s)", c.String())
}
