package dictionary

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nori-go/nori/dictionary/trie"
)

func smallDictionary(t *testing.T) *Dictionary {
	t.Helper()
	keys := [][]byte{[]byte("가"), []byte("나무")}
	values := []int32{0, 1}
	tr, err := trie.Build(keys, values)
	if err != nil {
		t.Fatalf("trie.Build: %v", err)
	}

	cost := NewConnectionCost(4, 4)
	table := NewCharacterClassTable()
	table.SetRange(0xAC00, 0xD7A3, HANGUL)
	table.Finalize()

	return &Dictionary{
		Trie: tr,
		MorphemeLists: []MorphemeList{
			{Morphemes: []Morpheme{{LeftID: 0, RightID: 0, WordCost: 100, POSType: MorphemeType, POSTags: []POSTag{NNG}}}},
			{Morphemes: []Morpheme{{LeftID: 1, RightID: 1, WordCost: 200, POSType: MorphemeType, POSTags: []POSTag{NNG}}}},
		},
		ConnectionCost: cost,
		CharacterClass: table,
		UnknownTokens:  NewUnknownTokens(),

		// Small, fixture-local stand-ins for the ids the builder would
		// otherwise scan from left-id.def/right-id.def, sized to fit within
		// this fixture's own 4x4 connection cost matrix.
		LeftIDNNG:                 2,
		RightIDNNG:                2,
		RightIDNNGWithJongsung:    2,
		RightIDNNGWithoutJongsung: 3,
	}
}

func fillAllCategories(d *Dictionary) {
	for class := CharacterClass(0); class < characterClassCount; class++ {
		if _, ok := d.UnknownTokens[class]; !ok {
			d.UnknownTokens[class] = Morpheme{POSType: MorphemeType, POSTags: []POSTag{SY}}
		}
	}
}

func TestValidatePassesForWellFormedDictionary(t *testing.T) {
	d := smallDictionary(t)
	fillAllCategories(d)
	if err := d.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateCatchesOutOfRangeConnectionID(t *testing.T) {
	d := smallDictionary(t)
	fillAllCategories(d)
	d.MorphemeLists[0].Morphemes[0].LeftID = 9999
	if err := d.Validate(); err == nil {
		t.Fatal("expected Validate to reject an out-of-range connection id")
	}
}

func TestValidateCatchesMissingUnknownTokenCategory(t *testing.T) {
	d := smallDictionary(t)
	// Deliberately leave categories unfilled.
	if err := d.Validate(); err == nil {
		t.Fatal("expected Validate to reject missing unknown-token categories")
	}
}

func TestLoadDictionaryMissingFile(t *testing.T) {
	_, err := LoadDictionary(filepath.Join(t.TempDir(), "missing.nori"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("LoadDictionary error = %v, want ErrNotFound", err)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	d := smallDictionary(t)
	fillAllCategories(d)
	d.NormalizationForm = int(1)

	path := filepath.Join(t.TempDir(), "dictionary.nori")
	if err := Save(path, d); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadDictionary(path)
	if err != nil {
		t.Fatalf("LoadDictionary: %v", err)
	}

	v, ok := loaded.Trie.ExactMatch([]byte("나무"))
	if !ok || v != 1 {
		t.Fatalf("loaded.Trie.ExactMatch(나무) = (%d, %v), want (1, true)", v, ok)
	}
	if got := loaded.MorphemeLists[v].Morphemes[0].WordCost; got != 200 {
		t.Fatalf("loaded word cost = %d, want 200", got)
	}
	if loaded.ConnectionCost.Cost(0, 0) != 0 {
		t.Fatalf("loaded connection cost = %d, want 0", loaded.ConnectionCost.Cost(0, 0))
	}
	if loaded.CharacterClass.ClassOf('가') != HANGUL || len(loaded.CharacterClass.Entries()) != len(d.CharacterClass.Entries()) {
		t.Fatal("loaded character class table lost its HANGUL range")
	}
	if loaded.NormalizationForm != 1 {
		t.Fatalf("loaded NormalizationForm = %d, want 1", loaded.NormalizationForm)
	}
}

func TestUserDictionaryLoadAndOverride(t *testing.T) {
	d := smallDictionary(t)
	fillAllCategories(d)

	path := filepath.Join(t.TempDir(), "userdict.txt")
	writeFile(t, path, "# comment\n\n은하수 NNP\n세종대왕 NNP 세종/NNP 대왕/NNG\n")

	if err := d.LoadUserDictionary(path); err != nil {
		t.Fatalf("LoadUserDictionary: %v", err)
	}
	if d.UserTrie == nil {
		t.Fatal("expected UserTrie to be populated")
	}

	v, ok := d.UserTrie.ExactMatch([]byte("은하수"))
	if !ok {
		t.Fatal("expected 은하수 to be found in user trie")
	}
	m := d.UserMorphemeLists[v].Morphemes[0]
	if m.WordCost != userDictionaryWordCost {
		t.Fatalf("WordCost = %d, want %d", m.WordCost, userDictionaryWordCost)
	}
	if int(m.LeftID) != d.LeftIDNNG {
		t.Fatalf("LeftID = %d, want %d", m.LeftID, d.LeftIDNNG)
	}

	v2, ok := d.UserTrie.ExactMatch([]byte("세종대왕"))
	if !ok {
		t.Fatal("expected 세종대왕 to be found in user trie")
	}
	compound := d.UserMorphemeLists[v2].Morphemes[0]
	if compound.POSType != CompoundType || len(compound.Expression) != 2 {
		t.Fatalf("세종대왕 morpheme = %+v, want a 2-token compound", compound)
	}
}

func TestUserDictionaryEmptyFile(t *testing.T) {
	d := smallDictionary(t)
	fillAllCategories(d)

	path := filepath.Join(t.TempDir(), "empty.txt")
	writeFile(t, path, "# only a comment\n\n")

	err := d.LoadUserDictionary(path)
	if !errors.Is(err, ErrEmptyUserDictionary) {
		t.Fatalf("LoadUserDictionary error = %v, want ErrEmptyUserDictionary", err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
