package tokenizer

import (
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/nori-go/nori/dictionary"
	"github.com/nori-go/nori/dictionary/trie"
)

// buildTestDictionary assembles a small, self-contained Dictionary directly
// (bypassing the builder/file-format layer) so lattice behavior can be
// tested in isolation.
func buildTestDictionary(t *testing.T) *dictionary.Dictionary {
	t.Helper()

	type entry struct {
		surface string
		m       dictionary.Morpheme
	}
	entries := []entry{
		{"나무", dictionary.Morpheme{LeftID: 1, RightID: 1, WordCost: 100, POSType: dictionary.MorphemeType, POSTags: []dictionary.POSTag{dictionary.NNG}}},
		{"를", dictionary.Morpheme{LeftID: 2, RightID: 2, WordCost: 50, POSType: dictionary.MorphemeType, POSTags: []dictionary.POSTag{dictionary.J}}},
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].surface < entries[j].surface })

	keys := make([][]byte, len(entries))
	values := make([]int32, len(entries))
	lists := make([]dictionary.MorphemeList, len(entries))
	for i, e := range entries {
		keys[i] = []byte(e.surface)
		values[i] = int32(i)
		lists[i] = dictionary.MorphemeList{Morphemes: []dictionary.Morpheme{e.m}}
	}
	tr, err := trie.Build(keys, values)
	if err != nil {
		t.Fatalf("trie.Build: %v", err)
	}

	cost := dictionary.NewConnectionCost(8, 8)

	table := dictionary.NewCharacterClassTable()
	table.SetRange(0xAC00, 0xD7A3, dictionary.HANGUL)
	table.SetRange(0x0020, 0x0020, dictionary.SPACE)
	table.Finalize()
	table.InvokeMap[dictionary.HANGUL] = dictionary.InvokeRule{Invoke: false, Group: false, Length: 1}

	// A SPACE unknown-token template is still carried for Validate's
	// full-category-coverage invariant, matching a real char.def/unk.def
	// pair, even though the tokenizer's main loop never fabricates a node
	// for a whitespace position (spec.md §4.4 step 4).
	unknown := dictionary.NewUnknownTokens()
	for class := dictionary.CharacterClass(0); class < dictionary.CharacterClassCount; class++ {
		if _, ok := unknown[class]; ok {
			continue
		}
		unknown[class] = dictionary.Morpheme{LeftID: 3, RightID: 3, WordCost: 800, POSType: dictionary.MorphemeType, POSTags: []dictionary.POSTag{dictionary.SY}}
	}
	unknown[dictionary.HANGUL] = dictionary.Morpheme{LeftID: 3, RightID: 3, WordCost: 800, POSType: dictionary.MorphemeType, POSTags: []dictionary.POSTag{dictionary.NNG}}

	return &dictionary.Dictionary{
		Trie:           tr,
		MorphemeLists:  lists,
		ConnectionCost: cost,
		CharacterClass: table,
		UnknownTokens:  unknown,
	}
}

func TestTokenizeExactSurfaces(t *testing.T) {
	tok := New(buildTestDictionary(t))
	tokens, err := tok.Tokenize("나무를")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if len(tokens) != 2 {
		t.Fatalf("got %d tokens, want 2: %+v", len(tokens), tokens)
	}
	if tokens[0].Surface != "나무" || tokens[0].POSTag != dictionary.NNG {
		t.Errorf("tokens[0] = %+v, want 나무/NNG", tokens[0])
	}
	if tokens[1].Surface != "를" || tokens[1].POSTag != dictionary.J {
		t.Errorf("tokens[1] = %+v, want 를/J", tokens[1])
	}
}

func TestTokenizeUnknownFallback(t *testing.T) {
	tok := New(buildTestDictionary(t))
	tokens, err := tok.Tokenize("가다")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if len(tokens) != 2 {
		t.Fatalf("got %d tokens, want 2: %+v", len(tokens), tokens)
	}
	if tokens[0].Surface != "가" || tokens[1].Surface != "다" {
		t.Fatalf("tokens = %+v, want [가 다]", tokens)
	}
	for _, tk := range tokens {
		if tk.POSTag != dictionary.NNG {
			t.Errorf("unknown fallback token POSTag = %v, want NNG", tk.POSTag)
		}
	}
}

// TestTokenizeOffsetsTileInputExceptWhitespace verifies tokens never
// overlap, always match the surface they claim, and leave gaps only where
// whitespace bytes were skipped (spec.md §4.4: whitespace is absorbed into
// the following node's leading-space count, never emitted as its own
// token).
func TestTokenizeOffsetsTileInputExceptWhitespace(t *testing.T) {
	tok := New(buildTestDictionary(t))
	text := "나무를 가다"
	tokens, err := tok.Tokenize(text)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}

	cursor := 0
	for i, tk := range tokens {
		if tk.Offset < cursor {
			t.Fatalf("token %d offset = %d, overlaps previous end %d: %+v", i, tk.Offset, cursor, tokens)
		}
		for _, b := range []byte(text[cursor:tk.Offset]) {
			if b != ' ' {
				t.Fatalf("gap before token %d contains non-space byte %q: %+v", i, b, tokens)
			}
		}
		if tk.Length != len(tk.Surface) {
			t.Errorf("token %d length = %d, want len(Surface) = %d", i, tk.Length, len(tk.Surface))
		}
		if text[tk.Offset:tk.Offset+tk.Length] != tk.Surface {
			t.Errorf("token %d surface %q does not match input slice %q", i, tk.Surface, text[tk.Offset:tk.Offset+tk.Length])
		}
		cursor = tk.Offset + tk.Length
	}
	for _, b := range []byte(text[cursor:]) {
		if b != ' ' {
			t.Fatalf("trailing gap contains non-space byte %q: %+v", b, tokens)
		}
	}
}

// TestTokenizeNeverEmitsSpaceToken confirms whitespace never surfaces as
// its own Token, per spec.md §4.4 step 4 (the unknown-token walk explicitly
// skips any position that starts whitespace).
func TestTokenizeNeverEmitsSpaceToken(t *testing.T) {
	tok := New(buildTestDictionary(t))
	tokens, err := tok.Tokenize("나무를 가다")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	for _, tk := range tokens {
		if strings.TrimSpace(tk.Surface) == "" {
			t.Fatalf("found whitespace-only token: %+v", tk)
		}
	}
}

func TestTokenizeDeterministic(t *testing.T) {
	tok := New(buildTestDictionary(t))
	text := "나무를 가다"
	a, err := tok.Tokenize(text)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	b, err := tok.Tokenize(text)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("Tokenize is not deterministic: %+v vs %+v", a, b)
	}
}

func TestTokenizeEmptyString(t *testing.T) {
	tok := New(buildTestDictionary(t))
	tokens, err := tok.Tokenize("")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if tokens != nil {
		t.Fatalf("Tokenize(\"\") = %+v, want nil", tokens)
	}
}

func TestTokenizeAllMatchesSequentialTokenize(t *testing.T) {
	tok := New(buildTestDictionary(t))
	texts := []string{"나무를", "가다", "나무를 가다", "를"}

	results := tok.TokenizeAll(texts)
	if len(results) != len(texts) {
		t.Fatalf("got %d results, want %d", len(results), len(texts))
	}
	for i, text := range texts {
		want, err := tok.Tokenize(text)
		if err != nil {
			t.Fatalf("Tokenize(%q): %v", text, err)
		}
		if results[i].Err != nil {
			t.Fatalf("TokenizeAll result %d error: %v", i, results[i].Err)
		}
		if !reflect.DeepEqual(results[i].Tokens, want) {
			t.Errorf("TokenizeAll result %d = %+v, want %+v", i, results[i].Tokens, want)
		}
	}
}
