package lineindex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bcomp/bcomp/linescan"
)

func TestCursorLineNumber(t *testing.T) {
	positions := linescan.Positions{3, 7, 13}
	c := NewCursor(positions)

	require.Equal(t, uint64(1), c.LineNumber(0))
	require.Equal(t, uint64(2), c.LineNumber(4))
	require.Equal(t, uint64(4), c.LineNumber(14))
}

func TestIndexLineNumberMatchesCursor(t *testing.T) {
	positions := linescan.Positions{3, 7, 13, 20}
	path := filepath.Join(t.TempDir(), "newlines.bin")
	require.NoError(t, WriteFile(path, positions))

	idx, err := OpenIndex(path)
	require.NoError(t, err)
	defer idx.Close()

	cursor := NewCursor(positions)
	for _, offset := range []uint64{0, 4, 8, 14, 21} {
		require.Equal(t, cursor.LineNumber(offset), idx.LineNumber(offset))
	}
}

func TestOpenIndexRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.bin")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o644))

	_, err := OpenIndex(path)
	require.ErrorIs(t, err, ErrCorruptNewlineIndex)
}
