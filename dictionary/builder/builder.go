// Package builder compiles a mecab-ko-dic-format dictionary source
// directory (CSV morpheme files, matrix.def, char.def, unk.def) into a
// dictionary.Dictionary ready to be saved as a binary artifact.
package builder

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/nori-go/nori/dictionary"
	"github.com/nori-go/nori/dictionary/trie"
	"github.com/nori-go/nori/unicodeutil"
)

// DictionaryBuilder compiles a source directory into a Dictionary.
type DictionaryBuilder struct {
	SourceDir         string
	NormalizationForm unicodeutil.Form
}

// New returns a builder reading CSV and .def files from sourceDir, applying
// form to every surface before indexing.
func New(sourceDir string, form unicodeutil.Form) *DictionaryBuilder {
	return &DictionaryBuilder{SourceDir: sourceDir, NormalizationForm: form}
}

// Build reads every source file and assembles a complete Dictionary.
func (b *DictionaryBuilder) Build() (*dictionary.Dictionary, error) {
	connCost, err := b.buildConnectionCost()
	if err != nil {
		return nil, err
	}
	charTable, err := b.buildCharacterClassTable()
	if err != nil {
		return nil, err
	}
	unknown, err := b.buildUnknownTokenInfos()
	if err != nil {
		return nil, err
	}
	trieValue, lists, err := b.buildTokenInfos()
	if err != nil {
		return nil, err
	}
	leftRight, err := b.findLeftRightIDs()
	if err != nil {
		return nil, err
	}

	d := &dictionary.Dictionary{
		Trie:              trieValue,
		MorphemeLists:     lists,
		ConnectionCost:    connCost,
		CharacterClass:    charTable,
		UnknownTokens:     unknown,
		NormalizationForm: int(b.NormalizationForm),

		LeftIDNNG:                 leftRight.leftIDNNG,
		RightIDNNG:                leftRight.rightIDNNG,
		RightIDNNGWithJongsung:    leftRight.rightIDNNGWithJongsung,
		RightIDNNGWithoutJongsung: leftRight.rightIDNNGWithoutJongsung,
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Save compiles the source directory and writes the resulting artifact to
// outPath in one step.
func (b *DictionaryBuilder) Save(outPath string) error {
	d, err := b.Build()
	if err != nil {
		return err
	}
	return dictionary.Save(outPath, d)
}

func (b *DictionaryBuilder) path(name string) string {
	return filepath.Join(b.SourceDir, name)
}

// buildConnectionCost parses matrix.def: a header line "forwardSize
// backwardSize" followed by "forwardID backwardID cost" rows.
func (b *DictionaryBuilder) buildConnectionCost() (*dictionary.ConnectionCost, error) {
	path := b.path("matrix.def")
	f, err := os.Open(path)
	if err != nil {
		return nil, dictionary.NewNotFoundError(path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	var cost *dictionary.ConnectionCost
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if cost == nil {
			if len(fields) != 2 {
				return nil, dictionary.NewCompileError("matrix.def", lineNo, "expected 'forwardSize backwardSize' header")
			}
			fwd, err1 := strconv.Atoi(fields[0])
			bwd, err2 := strconv.Atoi(fields[1])
			if err1 != nil || err2 != nil {
				return nil, dictionary.NewCompileError("matrix.def", lineNo, "malformed header %q", line)
			}
			cost = dictionary.NewConnectionCost(fwd, bwd)
			continue
		}
		if len(fields) != 3 {
			return nil, dictionary.NewCompileError("matrix.def", lineNo, "expected 'forwardID backwardID cost', got %q", line)
		}
		fwd, err1 := strconv.Atoi(fields[0])
		bwd, err2 := strconv.Atoi(fields[1])
		c, err3 := strconv.Atoi(fields[2])
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, dictionary.NewCompileError("matrix.def", lineNo, "malformed row %q", line)
		}
		cost.Set(fwd, bwd, int32(c))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("builder: read matrix.def: %w", err)
	}
	if cost == nil {
		return nil, dictionary.NewCompileError("matrix.def", 0, "empty file")
	}
	return cost, nil
}

// buildCharacterClassTable parses char.def: lines of the form
// "CATEGORY INVOKE GROUP LENGTH" defining the invoke/group/length policy per
// category, and lines of the form "0xHEX[..0xHEX] CATEGORY [# comment]"
// assigning a code-point range to a category. Comment lines beginning with
// '#' and blank lines are skipped.
func (b *DictionaryBuilder) buildCharacterClassTable() (*dictionary.CharacterClassTable, error) {
	path := b.path("char.def")
	f, err := os.Open(path)
	if err != nil {
		return nil, dictionary.NewNotFoundError(path, err)
	}
	defer f.Close()

	table := dictionary.NewCharacterClassTable()
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)

		if strings.HasPrefix(fields[0], "0x") || strings.HasPrefix(fields[0], "0X") {
			if len(fields) < 2 {
				return nil, dictionary.NewCompileError("char.def", lineNo, "range line missing category: %q", line)
			}
			from, to, err := parseCodeRange(fields[0])
			if err != nil {
				return nil, dictionary.NewCompileError("char.def", lineNo, "%v", err)
			}
			class, ok := dictionary.ParseCharacterClass(fields[1])
			if !ok {
				return nil, dictionary.NewCompileError("char.def", lineNo, "unknown category %q", fields[1])
			}
			table.SetRange(from, to, class)
			continue
		}

		if len(fields) != 4 {
			return nil, dictionary.NewCompileError("char.def", lineNo, "expected 'CATEGORY INVOKE GROUP LENGTH', got %q", line)
		}
		class, ok := dictionary.ParseCharacterClass(fields[0])
		if !ok {
			return nil, dictionary.NewCompileError("char.def", lineNo, "unknown category %q", fields[0])
		}
		invoke, err1 := strconv.Atoi(fields[1])
		group, err2 := strconv.Atoi(fields[2])
		length, err3 := strconv.Atoi(fields[3])
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, dictionary.NewCompileError("char.def", lineNo, "malformed invoke rule %q", line)
		}
		table.InvokeMap[class] = dictionary.InvokeRule{Invoke: invoke != 0, Group: group != 0, Length: length}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("builder: read char.def: %w", err)
	}
	table.Finalize()
	return table, nil
}

func parseCodeRange(field string) (from, to int32, err error) {
	parts := strings.SplitN(field, "..", 2)
	lo, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimPrefix(parts[0], "0x"), "0X"), 16, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed code point %q", parts[0])
	}
	if len(parts) == 1 {
		return int32(lo), int32(lo), nil
	}
	hi, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimPrefix(parts[1], "0x"), "0X"), 16, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed code point %q", parts[1])
	}
	return int32(lo), int32(hi), nil
}

// leftRightIDs holds the NNG calibration ids a user dictionary's entries are
// built against, scanned from left-id.def/right-id.def.
type leftRightIDs struct {
	leftIDNNG                 int
	rightIDNNG                int
	rightIDNNGWithJongsung    int
	rightIDNNGWithoutJongsung int
}

// findLeftRightIDs scans left-id.def and right-id.def, each a sequence of
// "<id> <pattern>" rows, for the NNG calibration rows a user dictionary
// entry is built against (spec.md §4.3 step 9): left-id.def's first row
// matching "NNG,*,*,*,*,*,*,*", and right-id.def's rows matching
// "NNG,*,*,*,*,*,*,*", "NNG,*,T,*,*,*,*,*" (with Jongsung), and
// "NNG,*,F,*,*,*,*,*" (without Jongsung).
func (b *DictionaryBuilder) findLeftRightIDs() (leftRightIDs, error) {
	var ids leftRightIDs

	leftID, err := b.scanIDLegend("left-id.def", map[string]*int{
		"NNG,*,*,*,*,*,*,*": &ids.leftIDNNG,
	})
	if err != nil {
		return leftRightIDs{}, err
	}
	if !leftID["NNG,*,*,*,*,*,*,*"] {
		return leftRightIDs{}, dictionary.NewCompileError("left-id.def", 0, "no row matches NNG,*,*,*,*,*,*,*")
	}

	rightWant := map[string]*int{
		"NNG,*,*,*,*,*,*,*": &ids.rightIDNNG,
		"NNG,*,T,*,*,*,*,*": &ids.rightIDNNGWithJongsung,
		"NNG,*,F,*,*,*,*,*": &ids.rightIDNNGWithoutJongsung,
	}
	found, err := b.scanIDLegend("right-id.def", rightWant)
	if err != nil {
		return leftRightIDs{}, err
	}
	for pattern := range rightWant {
		if !found[pattern] {
			return leftRightIDs{}, dictionary.NewCompileError("right-id.def", 0, "no row matches %s", pattern)
		}
	}
	return ids, nil
}

// scanIDLegend reads name, a file of "<id> <pattern>" rows (one id/pattern
// pair per line, matching left-id.def/right-id.def's format), and for every
// pattern present in want, stores the first matching row's id into the
// corresponding pointer. It returns which patterns in want were actually
// found at least once.
func (b *DictionaryBuilder) scanIDLegend(name string, want map[string]*int) (map[string]bool, error) {
	path := b.path(name)
	f, err := os.Open(path)
	if err != nil {
		return nil, dictionary.NewNotFoundError(path, err)
	}
	defer f.Close()

	found := make(map[string]bool, len(want))
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, dictionary.NewCompileError(name, lineNo, "expected '<id> <pattern>', got %q", line)
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, dictionary.NewCompileError(name, lineNo, "malformed id %q", fields[0])
		}
		if ptr, ok := want[fields[1]]; ok && !found[fields[1]] {
			*ptr = id
			found[fields[1]] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("builder: read %s: %w", name, err)
	}
	return found, nil
}

// buildUnknownTokenInfos parses unk.def: CSV rows of at least 11 fields
// whose first field is a category name rather than a surface form (the
// trailing expression field may be omitted), seeded with the synthetic
// NGRAM calibration entry.
func (b *DictionaryBuilder) buildUnknownTokenInfos() (dictionary.UnknownTokens, error) {
	path := b.path("unk.def")
	f, err := os.Open(path)
	if err != nil {
		return nil, dictionary.NewNotFoundError(path, err)
	}
	defer f.Close()

	unknown := dictionary.NewUnknownTokens()
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := parseCSVLine(line)
		if len(fields) < 11 {
			return nil, dictionary.NewCompileError("unk.def", lineNo, "expected at least 11 fields, got %d", len(fields))
		}
		class, ok := dictionary.ParseCharacterClass(fields[0])
		if !ok {
			return nil, dictionary.NewCompileError("unk.def", lineNo, "unknown category %q", fields[0])
		}
		m, err := morphemeFromFields(fields[1:])
		if err != nil {
			return nil, dictionary.NewCompileError("unk.def", lineNo, "%v", err)
		}
		unknown[class] = m
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("builder: read unk.def: %w", err)
	}
	for class := dictionary.CharacterClass(0); class < dictionary.CharacterClassCount; class++ {
		if _, ok := unknown[class]; !ok {
			unknown[class] = dictionary.Morpheme{POSType: dictionary.MorphemeType, POSTags: []dictionary.POSTag{dictionary.SY}}
		}
	}
	return unknown, nil
}

// buildTokenInfos reads every *.csv file under the source directory, each
// row a 12-field mecab-ko-dic morpheme entry, grouping rows sharing a
// surface into one MorphemeList and building the pre-built trie over the
// sorted, normalized surface set.
func (b *DictionaryBuilder) buildTokenInfos() (*trie.Trie, []dictionary.MorphemeList, error) {
	matches, err := filepath.Glob(filepath.Join(b.SourceDir, "*.csv"))
	if err != nil {
		return nil, nil, fmt.Errorf("builder: glob csv files: %w", err)
	}
	sort.Strings(matches)

	type entry struct {
		surface string
		m       dictionary.Morpheme
	}
	var entries []entry

	for _, path := range matches {
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, dictionary.NewNotFoundError(path, err)
		}
		scanner := bufio.NewScanner(f)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			line := strings.TrimRight(scanner.Text(), "\r\n")
			if strings.TrimSpace(line) == "" {
				continue
			}
			line = unicodeutil.Normalize(line, b.NormalizationForm)
			fields := parseCSVLine(line)
			if len(fields) != 12 {
				f.Close()
				return nil, nil, dictionary.NewCompileError(filepath.Base(path), lineNo, "expected 12 fields, got %d", len(fields))
			}
			m, err := morphemeFromFields(fields[1:])
			if err != nil {
				f.Close()
				return nil, nil, dictionary.NewCompileError(filepath.Base(path), lineNo, "%v", err)
			}
			entries = append(entries, entry{surface: fields[0], m: m})
		}
		err = scanner.Err()
		f.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("builder: read %s: %w", path, err)
		}
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].surface < entries[j].surface })

	keys := make([][]byte, 0, len(entries))
	values := make([]int32, 0, len(entries))
	lists := make([]dictionary.MorphemeList, 0, len(entries))
	var prev string
	for _, e := range entries {
		if e.surface == prev && len(lists) > 0 {
			lists[len(lists)-1].Morphemes = append(lists[len(lists)-1].Morphemes, e.m)
			continue
		}
		keys = append(keys, []byte(e.surface))
		values = append(values, int32(len(lists)))
		lists = append(lists, dictionary.MorphemeList{Morphemes: []dictionary.Morpheme{e.m}})
		prev = e.surface
	}

	t, err := trie.Build(keys, values)
	if err != nil {
		return nil, nil, fmt.Errorf("builder: build trie: %w", err)
	}
	if len(keys) > 0 {
		sample := len(keys) / 2
		if v, ok := t.ExactMatch(keys[sample]); !ok || v != values[sample] {
			return nil, nil, fmt.Errorf("%w: trie exact-match check failed for %q", dictionary.ErrFormat, keys[sample])
		}
	}
	return t, lists, nil
}

// morphemeFromFields decodes the attribute fields that follow a surface
// form in both the morpheme CSVs and unk.def: left_id, right_id, word_cost,
// pos_tag, semantic_class, has_jongsung, reading, pos_type, start_pos,
// end_pos, and an optional eleventh field, expression.
func morphemeFromFields(fields []string) (dictionary.Morpheme, error) {
	if len(fields) < 10 {
		return dictionary.Morpheme{}, fmt.Errorf("expected 10 attribute fields, got %d", len(fields))
	}
	left, err := strconv.Atoi(fields[0])
	if err != nil {
		return dictionary.Morpheme{}, fmt.Errorf("malformed left_id %q", fields[0])
	}
	right, err := strconv.Atoi(fields[1])
	if err != nil {
		return dictionary.Morpheme{}, fmt.Errorf("malformed right_id %q", fields[1])
	}
	cost, err := strconv.Atoi(fields[2])
	if err != nil {
		return dictionary.Morpheme{}, fmt.Errorf("malformed word_cost %q", fields[2])
	}

	posTags, err := parsePOSTagField(fields[3])
	if err != nil {
		return dictionary.Morpheme{}, err
	}

	posType, ok := dictionary.ParsePOSType(fields[7])
	if !ok {
		return dictionary.Morpheme{}, fmt.Errorf("unknown pos_type %q", fields[7])
	}

	var expression []dictionary.ExpressionToken
	if len(fields) > 10 && fields[10] != "*" && fields[10] != "" {
		expression, err = parseExpressionField(fields[10])
		if err != nil {
			return dictionary.Morpheme{}, err
		}
	}

	return dictionary.Morpheme{
		LeftID:     uint16(left),
		RightID:    uint16(right),
		WordCost:   int32(cost),
		POSType:    posType,
		POSTags:    posTags,
		Expression: expression,
	}, nil
}

// parsePOSTagField splits a possibly-compound pos_tag field ("NNG+JKS") into
// individual tags.
func parsePOSTagField(field string) ([]dictionary.POSTag, error) {
	parts := strings.Split(field, "+")
	tags := make([]dictionary.POSTag, 0, len(parts))
	for _, p := range parts {
		tag, ok := dictionary.ParsePOSTag(p)
		if !ok {
			return nil, fmt.Errorf("unknown pos_tag %q", p)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// parseExpressionField parses a compound/inflect/preanalysis expression
// field: '+'-separated "surface/POSTAG" sub-tokens.
func parseExpressionField(field string) ([]dictionary.ExpressionToken, error) {
	parts := strings.Split(field, "+")
	tokens := make([]dictionary.ExpressionToken, 0, len(parts))
	for _, p := range parts {
		sub := strings.SplitN(p, "/", 2)
		tag := dictionary.NNG
		if len(sub) == 2 {
			t, ok := dictionary.ParsePOSTag(sub[1])
			if !ok {
				return nil, fmt.Errorf("unknown expression pos_tag %q", sub[1])
			}
			tag = t
		}
		tokens = append(tokens, dictionary.ExpressionToken{Surface: sub[0], POSTag: tag})
	}
	return tokens, nil
}

// parseCSVLine splits a mecab-ko-dic CSV row on commas, honoring
// double-quoted fields that may themselves contain commas (the format is
// not RFC 4180: quotes don't escape by doubling, they simply toggle
// comma-significance).
func parseCSVLine(line string) []string {
	var fields []string
	var cur strings.Builder
	inQuotes := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			inQuotes = !inQuotes
		case c == ',' && !inQuotes:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	fields = append(fields, cur.String())
	return fields
}
