package linescan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScanFindsAllNewlines(t *testing.T) {
	data := []byte("a\nbb\nccc\n")
	positions, err := Scan(context.Background(), data, 2)
	require.NoError(t, err)
	require.Equal(t, Positions{1, 4, 8}, positions)
}

func TestScanEmptyInput(t *testing.T) {
	positions, err := Scan(context.Background(), nil, 4)
	require.NoError(t, err)
	require.Nil(t, positions)
}

func TestScanMoreWorkersThanChunks(t *testing.T) {
	// More workers than chunks: Scan clamps the worker count to the
	// number of chunks (one for this small input), and the result is
	// the same as a single-worker scan.
	data := []byte("one\ntwo\nthree\nfour\n")
	positions, err := Scan(context.Background(), data, 8)
	require.NoError(t, err)
	require.Equal(t, Positions{3, 7, 13, 18}, positions)
}

func TestLinesNoTrailingNewline(t *testing.T) {
	data := []byte("a\nbb\nccc")
	positions, err := Scan(context.Background(), data, 1)
	require.NoError(t, err)
	lines := Lines(data, positions)
	require.Len(t, lines, 3)
	require.False(t, lines[2].Empty())
	require.Equal(t, "ccc", string(data[lines[2].FingerprintStart:lines[2].FingerprintEnd]))
}

func TestLinesStripsCRLF(t *testing.T) {
	data := []byte("a\r\nbb\r\n")
	positions, err := Scan(context.Background(), data, 1)
	require.NoError(t, err)
	lines := Lines(data, positions)
	require.Len(t, lines, 2)
	require.Equal(t, "a", string(data[lines[0].FingerprintStart:lines[0].FingerprintEnd]))
	require.Equal(t, "bb", string(data[lines[1].FingerprintStart:lines[1].FingerprintEnd]))
}

func TestLinesTailCRIsNotStripped(t *testing.T) {
	// A trailing '\r' with no following '\n' is not a CRLF terminator
	// and must be kept as part of the final line's text.
	data := []byte("a\nbb\r")
	positions, err := Scan(context.Background(), data, 1)
	require.NoError(t, err)
	lines := Lines(data, positions)
	require.Len(t, lines, 2)
	require.Equal(t, "bb\r", string(data[lines[1].FingerprintStart:lines[1].FingerprintEnd]))
}

func TestEmptyLineIsMarkedEmpty(t *testing.T) {
	data := []byte("\n\na\n")
	positions, err := Scan(context.Background(), data, 1)
	require.NoError(t, err)
	lines := Lines(data, positions)
	require.Len(t, lines, 3)
	require.True(t, lines[0].Empty())
	require.True(t, lines[1].Empty())
	require.False(t, lines[2].Empty())
}
