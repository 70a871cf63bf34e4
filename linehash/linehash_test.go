package linehash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSumIsDeterministic(t *testing.T) {
	a := Sum([]byte("hello world"))
	b := Sum([]byte("hello world"))
	require.Equal(t, a, b)
}

func TestSumDistinguishesDistinctLines(t *testing.T) {
	require.NotEqual(t, Sum([]byte("line one")), Sum([]byte("line two")))
}

func TestDigestMatchesSum(t *testing.T) {
	d := New()
	require.Equal(t, Sum([]byte("abc")), d.Sum([]byte("abc")))
	// Reused digest must not carry state across calls.
	require.Equal(t, Sum([]byte("xyz")), d.Sum([]byte("xyz")))
}
