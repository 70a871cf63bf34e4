// Package sortmerge implements the sort-merge comparison mode: each
// side's (hash, offset) records are globally sorted by (hash, offset)
// ascending, then the two sorted streams are merged once, linearly, to
// find hashes whose run-length differs between the sides.
//
// The in-memory sort loads one side's records fully into RAM and
// calls sort.Slice before reducing - a single global sort across one
// file's records rather than a partitioned, shard-at-a-time sort.
package sortmerge

import (
	"sort"

	"github.com/bcomp/bcomp/linehash"
	"github.com/bcomp/bcomp/record"
)

// Sort orders recs by (hash, offset) ascending in place, the order
// Merge requires of both its inputs.
func Sort(recs []record.HashOffset) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Hash != recs[j].Hash {
			return recs[i].Hash < recs[j].Hash
		}
		return recs[i].Offset < recs[j].Offset
	})
}

// Side identifies which sorted stream an excess run came from.
type Side int

const (
	Left Side = iota
	Right
)

// Excess is one hash's unbalanced run between the two sorted streams.
type Excess struct {
	Hash   linehash.Hash
	Offset uint64
	Side   Side
	Count  uint64
}

// Merge walks two (hash, offset)-sorted streams once and emits an
// Excess for every hash whose run length differs between them.
//
// The offset recorded for a run is the *first* offset encountered in
// that run. Because both inputs are sorted by (hash, offset), that is
// also the run's minimum offset. Merge takes no ignore_occurrences
// parameter: runs of different lengths always produce an Excess.
func Merge(left, right []record.HashOffset) []Excess {
	var out []Excess
	i, j := 0, 0
	for i < len(left) || j < len(right) {
		switch {
		case i >= len(left):
			out = append(out, runExcess(right, &j, Right))
		case j >= len(right):
			out = append(out, runExcess(left, &i, Left))
		case left[i].Hash < right[j].Hash:
			out = append(out, runExcess(left, &i, Left))
		case right[j].Hash < left[i].Hash:
			out = append(out, runExcess(right, &j, Right))
		default:
			h := left[i].Hash
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
			if lc == rc {
				continue
			}
			if lc > rc {
				out = append(out, Excess{Hash: h, Offset: left[lStart].Offset, Side: Left, Count: lc - rc})
			} else {
				out = append(out, Excess{Hash: h, Offset: right[rStart].Offset, Side: Right, Count: rc - lc})
			}
		}
	}
	return out
}

// runExcess advances idx past a single-side run of equal hashes and
// returns it wholesale as an excess entry (the other side has none of
// this hash, so the whole run is unmatched).
func runExcess(recs []record.HashOffset, idx *int, side Side) Excess {
	h := recs[*idx].Hash
	first := *idx
	for *idx < len(recs) && recs[*idx].Hash == h {
		*idx++
	}
	return Excess{Hash: h, Offset: recs[first].Offset, Side: side, Count: uint64(*idx - first)}
}
