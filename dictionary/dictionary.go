package dictionary

import (
	"fmt"
	"os"

	"github.com/nori-go/nori/dictionary/trie"
)

// DictPathEnv overrides the default dictionary search path when set.
const DictPathEnv = "NORI_DICT_PATH"

// BOSEOSID is the left/right context id shared by the sentence-boundary
// sentinel morphemes, matching mecab-ko-dic's convention that id 0 is
// reserved for BOS/EOS.
const BOSEOSID = 0

// Dictionary is the fully loaded, query-ready morphological dictionary: the
// double-array trie over pre-built surface forms, the morpheme table it
// indexes into, the connection-cost matrix, the character-class table and
// its unknown-token templates, and (optionally) a second trie and morpheme
// table contributed by a user dictionary.
type Dictionary struct {
	Trie          *trie.Trie
	MorphemeLists []MorphemeList

	UserTrie          *trie.Trie
	UserMorphemeLists []MorphemeList

	ConnectionCost *ConnectionCost
	CharacterClass *CharacterClassTable
	UnknownTokens  UnknownTokens

	// NormalizationForm records which Unicode normalization was applied to
	// every surface form at build time; Tokenizer must apply the same form
	// to input before searching the trie.
	NormalizationForm int

	// LeftIDNNG, RightIDNNG, RightIDNNGWithJongsung, and
	// RightIDNNGWithoutJongsung are the connection ids a user dictionary
	// entry is calibrated against, scanned by the builder from this
	// dictionary's own left-id.def/right-id.def (spec.md §4.3 step 9) —
	// they are per-dictionary, not fixed constants, since a different
	// mecab-ko-dic build can assign these rows different ids.
	LeftIDNNG                 int
	RightIDNNG                int
	RightIDNNGWithJongsung    int
	RightIDNNGWithoutJongsung int
}

// BOS returns the sentence-start sentinel morpheme.
func (d *Dictionary) BOS() Morpheme {
	return Morpheme{LeftID: BOSEOSID, RightID: BOSEOSID, WordCost: 0, POSType: MorphemeType}
}

// EOS returns the sentence-end sentinel morpheme.
func (d *Dictionary) EOS() Morpheme {
	return Morpheme{LeftID: BOSEOSID, RightID: BOSEOSID, WordCost: 0, POSType: MorphemeType}
}

// LoadDictionary opens the compiled dictionary artifact at path, or, if path
// is empty, at the location named by NORI_DICT_PATH, or "dictionary.nori" in
// the working directory. The returned Dictionary's trie arrays are backed by
// a memory-mapped file region kept open for the process lifetime; the
// morpheme lists and other tables are decoded copies. Callers are not
// expected to Close it.
func LoadDictionary(path string) (*Dictionary, error) {
	if path == "" {
		if env := os.Getenv(DictPathEnv); env != "" {
			path = env
		} else {
			path = "dictionary.nori"
		}
	}
	if _, err := os.Stat(path); err != nil {
		return nil, NewNotFoundError(path, err)
	}
	return loadArtifact(path)
}

// LoadUserDictionary parses and attaches a user dictionary file to d,
// building its own trie calibrated against d's NNG connection ids. An empty
// file returns ErrEmptyUserDictionary and leaves d unchanged.
func (d *Dictionary) LoadUserDictionary(path string) error {
	entries, err := parseUserDictionaryFile(path)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return ErrEmptyUserDictionary
	}

	userTrie, lists, err := buildUserDictionary(entries, d)
	if err != nil {
		return err
	}
	d.UserTrie = userTrie
	d.UserMorphemeLists = lists
	return nil
}

// Validate checks the structural invariants a loaded or built Dictionary
// must satisfy: every trie value must index a real MorphemeList, every
// connection id referenced by a Morpheme must be within the cost matrix's
// bounds, and the unknown-token map must cover every category the character
// table can produce.
func (d *Dictionary) Validate() error {
	if d.Trie == nil || d.ConnectionCost == nil || d.CharacterClass == nil {
		return NewCompileError("dictionary", 0, "incomplete dictionary: missing trie, connection cost, or character table")
	}
	for _, tl := range []struct {
		t     *trie.Trie
		lists []MorphemeList
	}{{d.Trie, d.MorphemeLists}, {d.UserTrie, d.UserMorphemeLists}} {
		if tl.t == nil {
			continue
		}
		_, _, values := tl.t.Arrays()
		for _, v := range values {
			if v >= 0 && int(v) >= len(tl.lists) {
				return fmt.Errorf("%w: trie value %d outside morpheme table of %d lists", ErrCorrupt, v, len(tl.lists))
			}
		}
	}
	for _, list := range d.MorphemeLists {
		for _, m := range list.Morphemes {
			if int(m.RightID) >= d.ConnectionCost.ForwardSize || int(m.LeftID) >= d.ConnectionCost.BackwardSize {
				return NewCompileError("dictionary", 0, "morpheme connection id out of range: left=%d right=%d", m.LeftID, m.RightID)
			}
		}
	}
	for class := CharacterClass(0); class < characterClassCount; class++ {
		if class == NGRAM {
			continue
		}
		if _, ok := d.UnknownTokens[class]; !ok {
			return NewCompileError("dictionary", 0, "unknown-token table missing entry for category %s", class)
		}
	}
	return nil
}

// NewNotFoundError wraps err as ErrNotFound with the path that was missing.
func NewNotFoundError(path string, cause error) error {
	return &notFoundError{path: path, cause: cause}
}

type notFoundError struct {
	path  string
	cause error
}

func (e *notFoundError) Error() string {
	return "dictionary: not found: " + e.path + ": " + e.cause.Error()
}

func (e *notFoundError) Unwrap() []error { return []error{ErrNotFound, e.cause} }
