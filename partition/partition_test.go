package partition

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bcomp/bcomp/linehash"
	"github.com/bcomp/bcomp/record"
)

func TestWriteBuildLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, 4)
	require.NoError(t, err)

	recs := []record.HashOffset{
		{Hash: linehash.Hash(10), Offset: 0},
		{Hash: linehash.Hash(10), Offset: 4},
		{Hash: linehash.Hash(11), Offset: 8},
		{Hash: linehash.Hash(4), Offset: 12},
	}
	for _, r := range recs {
		require.NoError(t, w.Push(r))
	}
	require.NoError(t, w.Build())

	var all []record.HashOffset
	for i := 0; i < w.Count(); i++ {
		got, err := Load(dir, i)
		require.NoError(t, err)
		require.True(t, VerifySorted(got))
		all = append(all, got...)
	}
	require.ElementsMatch(t, recs, all)
}

func TestLoadMissingPartitionIsEmpty(t *testing.T) {
	dir := t.TempDir()
	got, err := Load(dir, 0)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestPartitionIDIsStable(t *testing.T) {
	h := linehash.Hash(123456)
	require.Equal(t, PartitionID(h, 256), PartitionID(h, 256))
}

func TestLoadToleratesTruncatedTrailingRecord(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, 1)
	require.NoError(t, err)

	recs := []record.HashOffset{
		{Hash: linehash.Hash(1), Offset: 0},
		{Hash: linehash.Hash(2), Offset: 4},
	}
	for _, r := range recs {
		require.NoError(t, w.Push(r))
	}
	require.NoError(t, w.Build())

	path := Path(dir, 0)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "partition-0000.dat"), append(data, 0x01, 0x02, 0x03), 0o644))

	got, err := Load(dir, 0)
	require.NoError(t, err)
	require.ElementsMatch(t, recs, got)
}
