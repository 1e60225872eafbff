// Package tokenizer implements the Viterbi lattice segmentation pass: given
// a compiled dictionary.Dictionary and an input string, it finds the
// minimum-cost path through the word lattice and returns the resulting
// sequence of tokens, recursively expanding compound, inflected, and
// pre-analyzed morphemes into their sub-tokens. See spec.md §5.
package tokenizer

import (
	"unicode/utf8"

	"github.com/nori-go/nori/dictionary"
	"github.com/nori-go/nori/dictionary/trie"
	"github.com/nori-go/nori/unicodeutil"
)

// maxPrefixMatches bounds how many common-prefix matches are pulled from a
// trie at any one position; mecab-ko-dic surfaces rarely share more than a
// handful of common prefixes at a single starting point.
const maxPrefixMatches = 64

// Token is one segment of a Tokenize result. LeftID, RightID, and WordCost
// report the owning morpheme's connection ids and cost even for a
// decomposed compound sub-token, which has no cost of its own.
type Token struct {
	Surface  string
	POSTag   dictionary.POSTag
	POSType  dictionary.POSType
	Offset   int // byte offset into the normalized input
	Length   int // byte length
	LeftID   uint16
	RightID  uint16
	WordCost int32
}

// Tokenizer performs lattice segmentation against a fixed Dictionary. A
// Tokenizer is safe for concurrent use: Tokenize allocates a fresh Lattice
// per call and touches no shared mutable state.
type Tokenizer struct {
	dict *dictionary.Dictionary

	// DecompoundCompounds, when true (the default), expands compound,
	// inflected, and pre-analyzed morphemes into their declared sub-token
	// expression instead of returning them as one opaque span.
	DecompoundCompounds bool
}

// New returns a Tokenizer backed by dict.
func New(dict *dictionary.Dictionary) *Tokenizer {
	return &Tokenizer{dict: dict, DecompoundCompounds: true}
}

// Tokenize normalizes text per the dictionary's build-time normalization
// form, builds a lattice over every candidate segmentation, and returns the
// tokens along the minimum-cost path.
func (t *Tokenizer) Tokenize(text string) ([]Token, error) {
	normalized := unicodeutil.Normalize(text, unicodeutil.Form(t.dict.NormalizationForm))
	if normalized == "" {
		return nil, nil
	}

	lat := newLattice(t.dict, len(normalized))

	for pos := 0; pos < len(normalized); {
		r, size := unicodeutil.NextRune(normalized, pos)

		// Pre-built and user dictionary matches are searched at every
		// position regardless of whitespace (spec.md §4.4 steps 2-3); only
		// the unknown-token walk skips a position that starts whitespace
		// (step 4).
		found := false
		found = t.findPreBuiltTokens(lat, normalized, pos) || found
		found = t.findUserDictionaryTokens(lat, normalized, pos) || found

		if !unicodeutil.IsSpace(r) {
			class := t.dict.CharacterClass.ClassOf(r)
			rule := t.dict.CharacterClass.InvokeMap[class]
			if !found || rule.Invoke {
				t.findUnknownTokens(lat, normalized, pos, class, rule)
			}
		}

		pos += size
	}

	path := lat.finish(normalized)
	return t.expandPath(path, normalized), nil
}

// spacePenaltyTags is the clitic/ending POS tag family that should not
// float across a run of whitespace (spec.md §4.4 step 7).
var spacePenaltyTags = map[dictionary.POSTag]bool{
	dictionary.E:   true,
	dictionary.J:   true,
	dictionary.VCP: true,
	dictionary.XSA: true,
	dictionary.XSN: true,
	dictionary.XSV: true,
}

// getSpacePenalty returns the extra cost a candidate node incurs for
// starting after whitespace: 3000 if it has at least one leading space and
// its own first POS tag is in spacePenaltyTags, 0 otherwise. This mirrors
// the original's getSpacePenalty(morpheme, numSpaces), which keys off the
// candidate's own morpheme, not its predecessor.
func getSpacePenalty(cand node) int64 {
	if cand.leadingSpaces == 0 {
		return 0
	}
	if spacePenaltyTags[firstTag(cand.morpheme.POSTags)] {
		return spacePenalty
	}
	return 0
}

// leadingSpaceCount returns the byte length of the run of consecutive
// whitespace code points in text immediately preceding byte offset pos.
func leadingSpaceCount(text string, pos int) int {
	count := 0
	for pos > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:pos])
		if !unicodeutil.IsSpace(r) {
			break
		}
		count += size
		pos -= size
	}
	return count
}

// findPreBuiltTokens adds every pre-built-dictionary match starting at pos
// as a lattice candidate, once per POS-tag variant of every matching
// surface. Returns whether at least one candidate was added.
func (t *Tokenizer) findPreBuiltTokens(lat *Lattice, text string, pos int) bool {
	return t.findTrieTokens(lat, t.dict.Trie, t.dict.MorphemeLists, text, pos)
}

// findUserDictionaryTokens adds every user-dictionary match starting at
// pos, mirroring findPreBuiltTokens. A nil UserTrie (no user dictionary
// loaded) is a no-op.
func (t *Tokenizer) findUserDictionaryTokens(lat *Lattice, text string, pos int) bool {
	if t.dict.UserTrie == nil {
		return false
	}
	return t.findTrieTokens(lat, t.dict.UserTrie, t.dict.UserMorphemeLists, text, pos)
}

func (t *Tokenizer) findTrieTokens(lat *Lattice, tr *trie.Trie, lists []dictionary.MorphemeList, text string, pos int) bool {
	var buf [maxPrefixMatches]trie.Match
	n := tr.CommonPrefixSearch([]byte(text[pos:]), buf[:])
	if n == 0 {
		return false
	}
	limit := n
	if limit > len(buf) {
		limit = len(buf)
	}
	leading := leadingSpaceCount(text, pos)
	for _, match := range buf[:limit] {
		list := lists[match.Value]
		for _, m := range list.Morphemes {
			lat.relax(node{
				start: pos, length: match.Length, leadingSpaces: leading,
				leftID: m.LeftID, rightID: m.RightID,
				wordCost: m.WordCost, morpheme: m,
			})
		}
	}
	return true
}

// findUnknownTokens fabricates a node for a run of unmatched input starting
// at pos, in category class. If rule.Group is set, the run extends across
// the following runes that pass groupingUnknownCharacters' script,
// whitespace, punctuation and digit checks; otherwise it is exactly rule.Length runes long (or one rune, if
// rule.Length is zero), clipped to the input.
func (t *Tokenizer) findUnknownTokens(lat *Lattice, text string, pos int, class dictionary.CharacterClass, rule dictionary.InvokeRule) {
	m, ok := t.dict.UnknownTokens[class]
	if !ok {
		return
	}

	var length int
	if rule.Group {
		length = groupingUnknownCharacters(text, pos)
	} else {
		length = fixedRunLength(text, pos, rule.Length)
	}
	if length == 0 {
		return
	}

	lat.relax(node{
		start: pos, length: length, leadingSpaces: leadingSpaceCount(text, pos),
		leftID: m.LeftID, rightID: m.RightID,
		wordCost: m.WordCost, morpheme: m,
	})
}

// groupingUnknownCharacters returns the byte length of the longest run
// starting at pos whose code points all share the first code point's
// script (or either is Common/Inherited), are non-whitespace, and match
// its punctuation-ness and digit-ness (spec.md §4.4 step 5). U+318D
// (Hangul Letter Araea) is always treated as punctuation.
func groupingUnknownCharacters(text string, pos int) int {
	first, firstSize := unicodeutil.NextRune(text, pos)
	firstScript := unicodeutil.Script(first)
	firstCommon := unicodeutil.IsCommonOrInherited(firstScript)
	firstPunct := unicodeutil.IsPunctuation(first)
	firstDigit := unicodeutil.IsDigit(first)

	end := pos + firstSize
	for end < len(text) {
		r, size := unicodeutil.NextRune(text, end)
		script := unicodeutil.Script(r)
		sameScript := (script == firstScript || firstCommon || unicodeutil.IsCommonOrInherited(script)) && !unicodeutil.IsSpace(r)
		if !sameScript || firstPunct != unicodeutil.IsPunctuation(r) || firstDigit != unicodeutil.IsDigit(r) {
			break
		}
		end += size
	}
	return end - pos
}

// fixedRunLength returns the byte length of up to n runes starting at pos
// (at least one rune, even if n is zero), clipped to the input.
func fixedRunLength(text string, pos, n int) int {
	if n <= 0 {
		n = 1
	}
	end := pos
	for i := 0; i < n && end < len(text); i++ {
		_, size := unicodeutil.NextRune(text, end)
		end += size
	}
	return end - pos
}

// expandPath converts the backtraced lattice path into output tokens,
// expanding any compound/inflected/pre-analyzed morpheme into its
// declared sub-tokens when DecompoundCompounds is set.
func (t *Tokenizer) expandPath(path []node, text string) []Token {
	tokens := make([]Token, 0, len(path))
	for _, n := range path {
		if n.length == 0 {
			continue // a zero-length unknown candidate was relaxed away
		}
		if !t.DecompoundCompounds || n.morpheme.POSType == dictionary.MorphemeType || len(n.morpheme.Expression) == 0 {
			tokens = append(tokens, Token{
				Surface:  text[n.start : n.start+n.length],
				POSTag:   firstTag(n.morpheme.POSTags),
				POSType:  n.morpheme.POSType,
				Offset:   n.start,
				Length:   n.length,
				LeftID:   n.leftID,
				RightID:  n.rightID,
				WordCost: n.wordCost,
			})
			continue
		}
		cursor := n.start
		for _, e := range n.morpheme.Expression {
			length := len(e.Surface)
			tokens = append(tokens, Token{
				Surface:  e.Surface,
				POSTag:   e.POSTag,
				POSType:  dictionary.MorphemeType,
				Offset:   cursor,
				Length:   length,
				LeftID:   n.leftID,
				RightID:  n.rightID,
				WordCost: n.wordCost,
			})
			cursor += length
		}
	}
	return tokens
}

func firstTag(tags []dictionary.POSTag) dictionary.POSTag {
	if len(tags) == 0 {
		return dictionary.UNKNOWN
	}
	return tags[0]
}
