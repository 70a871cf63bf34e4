package fingerprint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bcomp/bcomp/linehash"
	"github.com/bcomp/bcomp/linescan"
)

func TestMemoryCountsAndOffsets(t *testing.T) {
	data := []byte("foo\nbar\nfoo\nbaz\n")
	positions, err := linescan.Scan(context.Background(), data, 1)
	require.NoError(t, err)
	lines := linescan.Lines(data, positions)

	res, err := Memory(context.Background(), data, lines, 3)
	require.NoError(t, err)

	fooHash := linehash.Sum([]byte("foo"))
	barHash := linehash.Sum([]byte("bar"))
	bazHash := linehash.Sum([]byte("baz"))

	require.Equal(t, uint64(2), res.Counts[fooHash])
	require.Equal(t, uint64(1), res.Counts[barHash])
	require.Equal(t, uint64(1), res.Counts[bazHash])
	require.Equal(t, uint64(0), res.Offsets[fooHash]) // earliest occurrence wins
}

func TestMemorySkipsEmptyLines(t *testing.T) {
	data := []byte("\na\n\n")
	positions, err := linescan.Scan(context.Background(), data, 1)
	require.NoError(t, err)
	lines := linescan.Lines(data, positions)

	res, err := Memory(context.Background(), data, lines, 2)
	require.NoError(t, err)
	require.Len(t, res.Counts, 1)
}

func TestMemoryEmptyFile(t *testing.T) {
	res, err := Memory(context.Background(), nil, nil, 4)
	require.NoError(t, err)
	require.Empty(t, res.Counts)
	require.Empty(t, res.Offsets)
}
