package tokenizer

import "github.com/nori-go/nori/dictionary"

// spacePenalty is added to a candidate node's cost when it has at least
// one leading space and its first POS tag belongs to the clitic/ending
// family that should not float across a run of whitespace (spec.md §4.4
// step 7, getSpacePenalty).
const spacePenalty = 3000

// node is one candidate lattice entry: a morpheme (or unknown-token
// fabrication) occupying a byte range of the input, plus the running
// Viterbi state once the lattice has been relaxed. Per spec.md §9's
// redesign, the lattice is an arena of nodes addressed by integer index —
// parent is an index into the same Lattice.nodes slice, not a pointer.
//
// leadingSpaces is the byte length of the whitespace immediately preceding
// start; whitespace itself never gets its own node (spec.md §4.4 step 4),
// so a candidate's parent is looked up at start-leadingSpaces rather than
// at start.
type node struct {
	start, length int
	leadingSpaces int
	leftID        uint16
	rightID       uint16
	wordCost      int32
	morpheme      dictionary.Morpheme

	pathCost int64
	parent   int // -1 for the BOS node
}

// Lattice is the arena-of-nodes word graph built by Tokenizer.Tokenize, one
// per call. It is never shared across goroutines.
type Lattice struct {
	dict  *dictionary.Dictionary
	nodes []node
	endAt map[int][]int // byte offset -> indices of nodes ending there

	bos, eos int
}

func newLattice(dict *dictionary.Dictionary, textLen int) *Lattice {
	l := &Lattice{dict: dict, endAt: make(map[int][]int)}
	bos := dictionary.BOSEOSID
	l.bos = l.addNode(node{
		start: 0, length: 0,
		leftID: uint16(bos), rightID: uint16(bos),
		pathCost: 0, parent: -1,
	})
	l.endAt[0] = append(l.endAt[0], l.bos)
	return l
}

// addNode appends n to the arena and returns its index. n.pathCost and
// n.parent are expected to already be set by the caller via relax.
func (l *Lattice) addNode(n node) int {
	l.nodes = append(l.nodes, n)
	return len(l.nodes) - 1
}

// relax computes the cheapest path ending at a freshly-proposed candidate
// node, by minimizing over every node already known to end exactly at
// cand.start-cand.leadingSpaces (spec.md §4.4 step 6). It appends the
// resolved node to the arena, records it as ending at start+length, and
// returns its index.
func (l *Lattice) relax(cand node) int {
	parentEnd := cand.start - cand.leadingSpaces
	best := int64(1) << 62
	bestParent := -1

	for _, predIdx := range l.endAt[parentEnd] {
		pred := l.nodes[predIdx]
		cost := pred.pathCost + int64(l.dict.ConnectionCost.Cost(int(pred.rightID), int(cand.leftID)))
		if cost < best {
			best = cost
			bestParent = predIdx
		}
	}

	cand.pathCost = best + int64(cand.wordCost) + getSpacePenalty(cand)
	cand.parent = bestParent
	idx := l.addNode(cand)
	end := cand.start + cand.length
	l.endAt[end] = append(l.endAt[end], idx)
	return idx
}

// finish adds the EOS sentinel at the end of text and returns the
// backtraced path of content nodes (BOS/EOS excluded), in left-to-right
// order. EOS's parent is selected from the last non-empty nodes_by_end_pos
// before any trailing whitespace (spec.md §4.4 step 8).
func (l *Lattice) finish(text string) []node {
	textLen := len(text)
	eosCand := node{
		start: textLen, length: 0,
		leadingSpaces: leadingSpaceCount(text, textLen),
		leftID:        uint16(dictionary.BOSEOSID), rightID: uint16(dictionary.BOSEOSID),
		wordCost: 0,
	}
	l.eos = l.relax(eosCand)

	var path []node
	for idx := l.nodes[l.eos].parent; idx != l.bos && idx >= 0; idx = l.nodes[idx].parent {
		path = append(path, l.nodes[idx])
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
