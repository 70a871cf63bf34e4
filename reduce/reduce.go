// Package reduce walks two sides' hash statistics and determines which
// hashes are out of balance: present in one side more times than the
// other. A multiset diff, not a set diff - a hash occurring 3 times on
// the left and 1 time on the right yields an excess of 2 on the left,
// not a boolean "present only on the left".
//
// The in-memory path (Memory) walks fingerprint.Result count maps
// directly. The partitioned path (Partition) walks a single pair of
// already-hash-sorted partition files, the same linear merge shape
// compactindexsized uses to binary-search a sorted entry table,
// generalized here to a full sequential scan since every entry in a
// partition is relevant (unlike a point lookup).
package reduce

import (
	"sort"

	"github.com/bcomp/bcomp/fingerprint"
	"github.com/bcomp/bcomp/linehash"
	"github.com/bcomp/bcomp/record"
)

// Side identifies which input file a line came from.
type Side int

const (
	// Left is the first file passed to the comparison.
	Left Side = iota
	// Right is the second file passed to the comparison.
	Right
)

// Excess is one hash's unbalanced occurrence count: it occurred
// |Count| more times on Side than on the other side. Offset is the
// representative occurrence used to look the line back up for
// retrieval and reporting.
type Excess struct {
	Hash   linehash.Hash
	Offset uint64
	Side   Side
	Count  uint64
}

// Memory reduces two in-memory fingerprint results into the set of
// unbalanced hashes, applying ignoreOccurrences: when set, a hash
// present on both sides - any count on each - is treated as fully
// cancelled regardless of the count difference; it is not a
// repetition threshold.
func Memory(left, right *fingerprint.Result, ignoreOccurrences bool) []Excess {
	seen := make(map[linehash.Hash]struct{}, len(left.Counts)+len(right.Counts))
	var out []Excess

	for h := range left.Counts {
		seen[h] = struct{}{}
	}
	for h := range right.Counts {
		seen[h] = struct{}{}
	}

	for h := range seen {
		lc := left.Counts[h]
		rc := right.Counts[h]
		if e, ok := balance(h, lc, rc, left.Offsets[h], right.Offsets[h], ignoreOccurrences); ok {
			out = append(out, e)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Hash < out[j].Hash })
	return out
}

func balance(h linehash.Hash, lc, rc uint64, lOff, rOff uint64, ignore bool) (Excess, bool) {
	if lc == rc {
		return Excess{}, false
	}
	if ignore && lc > 0 && rc > 0 {
		return Excess{}, false
	}
	var diff uint64
	var side Side
	var off uint64
	if lc > rc {
		diff, side, off = lc-rc, Left, lOff
	} else {
		diff, side, off = rc-lc, Right, rOff
	}
	return Excess{Hash: h, Offset: off, Side: side, Count: diff}, true
}

// Partition reduces one hash-sorted pair of partition record lists
// (one per side, already sorted by record.Encode/partition.Writer's
// on-disk order) into unbalanced hashes, by walking both lists in
// lockstep the way a merge-join walks two sorted streams. The earliest
// offset on the winning side is kept per hash, matching Memory's
// representative-offset policy.
func Partition(left, right []record.HashOffset, ignoreOccurrences bool) []Excess {
	var out []Excess
	i, j := 0, 0
	for i < len(left) || j < len(right) {
		var h linehash.Hash
		switch {
		case i >= len(left):
			h = right[j].Hash
		case j >= len(right):
			h = left[i].Hash
		case left[i].Hash <= right[j].Hash:
			h = left[i].Hash
		default:
			h = right[j].Hash
		}

		lStart := i
		for i < len(left) && left[i].Hash == h {
			i++
		}
		rStart := j
		for j < len(right) && right[j].Hash == h {
			j++
		}

		lc := uint64(i - lStart)
		rc := uint64(j - rStart)
		lOff := minOffset(left[lStart:i])
		rOff := minOffset(right[rStart:j])
		if e, ok := balance(h, lc, rc, lOff, rOff, ignoreOccurrences); ok {
			out = append(out, e)
		}
	}
	return out
}

func minOffset(recs []record.HashOffset) uint64 {
	if len(recs) == 0 {
		return 0
	}
	min := recs[0].Offset
	for _, r := range recs[1:] {
		if r.Offset < min {
			min = r.Offset
		}
	}
	return min
}
