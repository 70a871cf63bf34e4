package linescan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenMappedReadsContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello\nworld\n"), 0o644))

	mf, err := OpenMapped(path)
	require.NoError(t, err)
	defer mf.Close()

	require.Equal(t, "hello\nworld\n", string(mf.Bytes()))
	require.Equal(t, 12, mf.Len())
}

func TestOpenMappedEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	mf, err := OpenMapped(path)
	require.NoError(t, err)
	defer mf.Close()

	require.Equal(t, 0, mf.Len())
}

func TestOpenMappedMissingFile(t *testing.T) {
	_, err := OpenMapped(filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, err)
}
