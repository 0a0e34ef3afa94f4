package diff

import (
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Segment is a run of characters inside a changed line
type Segment struct {
	Op   Op
	Text string
}

// Pair links a removed line to the added line that replaced it, as indexes
// into the script.
type Pair struct {
	Del int
	Add int
}

// ChangePairs matches deletions with additions inside each block of
// consecutive changes, in order. Surplus lines of either kind stay unpaired.
func ChangePairs(lines []Line) []Pair {
	var pairs []Pair
	for i := 0; i < len(lines); {
		if lines[i].Op == OpSame {
			i++
			continue
		}
		var dels, adds []int
		for ; i < len(lines) && lines[i].Op != OpSame; i++ {
			if lines[i].Op == OpDel {
				dels = append(dels, i)
			} else {
				adds = append(adds, i)
			}
		}
		for k := 0; k < len(dels) && k < len(adds); k++ {
			pairs = append(pairs, Pair{Del: dels[k], Add: adds[k]})
		}
	}
	return pairs
}

// wordDiff runs diff-match-patch over a line pair and converts the result.
func wordDiff(dmp *diffmatchpatch.DiffMatchPatch, oldLine, newLine string) []Segment {
	diffs := dmp.DiffMain(oldLine, newLine, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	segs := make([]Segment, 0, len(diffs))
	for _, d := range diffs {
		var op Op
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			op = OpAdd
		case diffmatchpatch.DiffDelete:
			op = OpDel
		default:
			op = OpSame
		}
		segs = append(segs, Segment{Op: op, Text: d.Text})
	}
	return segs
}

// WordDiff computes intra-line differences between a removed line and its
// replacement using the default engine.
func WordDiff(oldLine, newLine string) []Segment {
	return DefaultEngine.WordDiff(oldLine, newLine)
}
