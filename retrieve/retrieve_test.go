package retrieve

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLineBasic(t *testing.T) {
	data := []byte("foo\nbar\nbaz")
	text, err := Line(data, 4, 1)
	require.NoError(t, err)
	require.Equal(t, "bar", text)
}

func TestLineFinalLineNoNewline(t *testing.T) {
	data := []byte("foo\nbar")
	text, err := Line(data, 4, 1)
	require.NoError(t, err)
	require.Equal(t, "bar", text)
}

func TestLineStripsTrailingCR(t *testing.T) {
	data := []byte("foo\r\nbar\r\n")
	text, err := Line(data, 0, 1)
	require.NoError(t, err)
	require.Equal(t, "foo", text)
}

func TestLineFormatsExcessSuffix(t *testing.T) {
	data := []byte("dup\n")
	text, err := Line(data, 0, 3)
	require.NoError(t, err)
	require.Equal(t, "dup\n(x3)", text)
}

func TestLineDecodesInvalidUTF8Lossy(t *testing.T) {
	data := []byte{0xff, 0xfe, '\n'}
	text, err := Line(data, 0, 1)
	require.NoError(t, err)
	require.Equal(t, "��", text)
}

func TestLineOffsetBeyondFileErrors(t *testing.T) {
	_, err := Line([]byte("abc"), 10, 1)
	require.Error(t, err)
}
