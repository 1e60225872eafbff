package dictionary

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/nori-go/nori/dictionary/trie"
	"github.com/nori-go/nori/unicodeutil"
)

// userDictionaryWordCost is the fixed cost assigned to every user entry:
// deeply negative so the Viterbi search always prefers a user-supplied
// segmentation over one the pre-built dictionary or the unknown-token
// heuristic would otherwise produce. Every user entry is treated as a plain
// noun, calibrated against base's own LeftIDNNG/RightIDNNGWithJongsung/
// RightIDNNGWithoutJongsung (scanned by the builder from that dictionary's
// left-id.def/right-id.def, spec.md §4.3 step 9), with the right id chosen
// by whether its surface's last character carries a Hangul trailing
// consonant.
const userDictionaryWordCost = -100000

// UserDictionaryEntry is one parsed line of a user dictionary file: a
// surface form and, for a compound entry, its fixed decomposition into
// sub-tokens.
type UserDictionaryEntry struct {
	Surface    string
	POSTag     POSTag
	Expression []ExpressionToken
}

// parseUserDictionaryFile reads a user dictionary: one entry per line,
// fields separated by whitespace, blank lines and lines starting with '#'
// ignored. The first field is the surface form; an optional second field is
// a POS tag (default NNG); any remaining fields are "subsurface/POSTAG"
// decomposition tokens for a compound entry.
func parseUserDictionaryFile(path string) ([]UserDictionaryEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, NewNotFoundError(path, err)
	}
	defer f.Close()

	var entries []UserDictionaryEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		entry := UserDictionaryEntry{Surface: fields[0], POSTag: NNG}
		if len(fields) > 1 {
			if tag, ok := ParsePOSTag(fields[1]); ok {
				entry.POSTag = tag
			}
		}
		for _, field := range fields[2:] {
			parts := strings.SplitN(field, "/", 2)
			tag := NNG
			if len(parts) == 2 {
				if t, ok := ParsePOSTag(parts[1]); ok {
					tag = t
				}
			}
			entry.Expression = append(entry.Expression, ExpressionToken{Surface: parts[0], POSTag: tag})
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("dictionary: read user dictionary %s: %w", path, err)
	}
	return entries, nil
}

// buildUserDictionary builds the second trie and morpheme table contributed
// by a user dictionary's entries, calibrated against base's connection cost
// matrix bounds and sorted bytewise ascending, stable with respect to input
// order for duplicate surfaces (so repeated surfaces accumulate into one
// MorphemeList rather than colliding in the trie).
func buildUserDictionary(entries []UserDictionaryEntry, base *Dictionary) (*trie.Trie, []MorphemeList, error) {
	if base.ConnectionCost != nil {
		if base.LeftIDNNG >= base.ConnectionCost.BackwardSize || base.RightIDNNGWithJongsung >= base.ConnectionCost.ForwardSize {
			return nil, nil, NewCompileError("user dictionary", 0, "NNG calibration ids exceed connection cost matrix bounds")
		}
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Surface < entries[j].Surface })

	keys := make([][]byte, 0, len(entries))
	values := make([]int32, 0, len(entries))
	lists := make([]MorphemeList, 0, len(entries))

	var prevSurface string
	for _, e := range entries {
		rightID := uint16(base.RightIDNNGWithoutJongsung)
		if unicodeutil.HasJongsungAtLast(e.Surface) {
			rightID = uint16(base.RightIDNNGWithJongsung)
		}
		posType := MorphemeType
		if len(e.Expression) > 0 {
			posType = CompoundType
		}
		m := Morpheme{
			LeftID:     uint16(base.LeftIDNNG),
			RightID:    rightID,
			WordCost:   userDictionaryWordCost,
			POSType:    posType,
			POSTags:    []POSTag{e.POSTag},
			Expression: e.Expression,
		}

		if e.Surface == prevSurface && len(lists) > 0 {
			lists[len(lists)-1].Morphemes = append(lists[len(lists)-1].Morphemes, m)
			continue
		}
		keys = append(keys, []byte(e.Surface))
		values = append(values, int32(len(lists)))
		lists = append(lists, MorphemeList{Morphemes: []Morpheme{m}})
		prevSurface = e.Surface
	}

	t, err := trie.Build(keys, values)
	if err != nil {
		return nil, nil, fmt.Errorf("dictionary: build user dictionary trie: %w", err)
	}
	return t, lists, nil
}
