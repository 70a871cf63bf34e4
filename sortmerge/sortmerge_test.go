package sortmerge

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bcomp/bcomp/record"
)

func TestSortOrdersByHashThenOffset(t *testing.T) {
	recs := []record.HashOffset{
		{Hash: 5, Offset: 10},
		{Hash: 2, Offset: 1},
		{Hash: 2, Offset: 0},
	}
	Sort(recs)
	require.Equal(t, []record.HashOffset{
		{Hash: 2, Offset: 0},
		{Hash: 2, Offset: 1},
		{Hash: 5, Offset: 10},
	}, recs)
}

func TestMergeProducesExcessForUnbalancedRuns(t *testing.T) {
	left := []record.HashOffset{{Hash: 1, Offset: 0}, {Hash: 1, Offset: 4}, {Hash: 2, Offset: 8}}
	right := []record.HashOffset{{Hash: 1, Offset: 0}, {Hash: 3, Offset: 12}}
	Sort(left)
	Sort(right)

	excess := Merge(left, right)
	byHash := map[uint64]Excess{}
	for _, e := range excess {
		byHash[uint64(e.Hash)] = e
	}
	require.Equal(t, uint64(1), byHash[1].Count)
	require.Equal(t, Left, byHash[1].Side)
	require.Equal(t, uint64(0), byHash[1].Offset) // first offset in the (offset-sorted) run
	require.Equal(t, Left, byHash[2].Side)
	require.Equal(t, Right, byHash[3].Side)
}

func TestMergeEqualRunsProduceNoOutput(t *testing.T) {
	left := []record.HashOffset{{Hash: 1, Offset: 0}, {Hash: 1, Offset: 4}}
	right := []record.HashOffset{{Hash: 1, Offset: 8}, {Hash: 1, Offset: 12}}
	require.Empty(t, Merge(left, right))
}
