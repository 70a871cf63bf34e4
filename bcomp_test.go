package bcomp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// runToCompletion drains StartComparison's channel and returns the
// UniqueLineEvents observed, failing the test if a ComparisonFailedEvent
// arrives or ComparisonFinishedEvent is missing.
func runToCompletion(t *testing.T, cfg Config) []UniqueLineEvent {
	t.Helper()
	var lines []UniqueLineEvent
	finished := false
	for ev := range StartComparison(context.Background(), cfg) {
		switch e := ev.(type) {
		case UniqueLineEvent:
			lines = append(lines, e)
		case ComparisonFinishedEvent:
			finished = true
		case ComparisonFailedEvent:
			t.Fatalf("comparison failed: %v", e.Err)
		}
	}
	require.True(t, finished, "comparison_finished was not emitted")
	return lines
}

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func baseConfigs(t *testing.T, a, b string) []Config {
	t.Helper()
	pathA := writeTemp(t, a)
	pathB := writeTemp(t, b)
	return []Config{
		{FileA: pathA, FileB: pathB},
		{FileA: pathA, FileB: pathB, UseExternalSort: true},
		{FileA: pathA, FileB: pathB, UseExternalSort: true, SortMerge: true},
	}
}

func TestScenarioIdenticalFiles(t *testing.T) {
	for _, cfg := range baseConfigs(t, "apple\nbanana\ncherry\n", "apple\nbanana\ncherry\n") {
		require.Empty(t, runToCompletion(t, cfg))
	}
}

func TestScenarioPureInsertion(t *testing.T) {
	for _, cfg := range baseConfigs(t, "a\nb\nc\n", "a\nb\nc\nd\n") {
		lines := runToCompletion(t, cfg)
		require.Len(t, lines, 1)
		require.Equal(t, FileB, lines[0].File)
		require.Equal(t, "d", lines[0].Text)
		require.Equal(t, uint64(4), lines[0].LineNumber)
	}
}

func TestScenarioDuplicatesWithExcess(t *testing.T) {
	for _, cfg := range baseConfigs(t, "x\nx\nx\ny\n", "x\ny\n") {
		lines := runToCompletion(t, cfg)
		require.Len(t, lines, 1)
		require.Equal(t, FileA, lines[0].File)
		require.Equal(t, "x\n(x2)", lines[0].Text)
		require.Equal(t, uint64(1), lines[0].LineNumber)
	}
}

func TestScenarioCRLFIsStrippedBeforeFingerprinting(t *testing.T) {
	for _, cfg := range baseConfigs(t, "hello\r\nworld\r\n", "hello\nworld\n") {
		require.Empty(t, runToCompletion(t, cfg))
	}
}

func TestScenarioTrailingLineWithoutNewline(t *testing.T) {
	for _, cfg := range baseConfigs(t, "a\nb", "a\n") {
		lines := runToCompletion(t, cfg)
		require.Len(t, lines, 1)
		require.Equal(t, FileA, lines[0].File)
		require.Equal(t, "b", lines[0].Text)
		require.Equal(t, uint64(2), lines[0].LineNumber)
	}
}

func TestScenarioEmptyLinesAreIgnored(t *testing.T) {
	for _, cfg := range baseConfigs(t, "a\n\n\nb\n", "a\nb\n") {
		require.Empty(t, runToCompletion(t, cfg))
	}
}

func TestScenarioIgnoreLineNumber(t *testing.T) {
	pathA := writeTemp(t, "a\nb\nc\n")
	pathB := writeTemp(t, "a\nb\nc\nd\n")
	cfg := Config{FileA: pathA, FileB: pathB, IgnoreLineNumber: true}

	lines := runToCompletion(t, cfg)
	require.Len(t, lines, 1)
	require.Equal(t, FileB, lines[0].File)
	require.Equal(t, uint64(0), lines[0].LineNumber)
	require.Equal(t, "d", lines[0].Text)
}

func TestUseSingleThreadProducesSameResultAsConcurrent(t *testing.T) {
	pathA := writeTemp(t, "a\nb\nc\n")
	pathB := writeTemp(t, "a\nb\nc\nd\n")

	concurrent := runToCompletion(t, Config{FileA: pathA, FileB: pathB})
	sequential := runToCompletion(t, Config{FileA: pathA, FileB: pathB, UseSingleThread: true})

	require.Equal(t, concurrent, sequential)
	require.Len(t, sequential, 1)
	require.Equal(t, FileB, sequential[0].File)
	require.Equal(t, "d", sequential[0].Text)
}

func TestIgnoreOccurrencesCancelsHashesOnBothSides(t *testing.T) {
	pathA := writeTemp(t, "x\nx\nx\ny\n")
	pathB := writeTemp(t, "x\ny\n")
	cfg := Config{FileA: pathA, FileB: pathB, IgnoreOccurrences: true}

	require.Empty(t, runToCompletion(t, cfg))
}

func TestSymmetryUnderSwap(t *testing.T) {
	pathA := writeTemp(t, "a\nb\nc\n")
	pathB := writeTemp(t, "a\nb\nc\nd\n")

	forward := runToCompletion(t, Config{FileA: pathA, FileB: pathB})
	backward := runToCompletion(t, Config{FileA: pathB, FileB: pathA})

	require.Len(t, forward, 1)
	require.Len(t, backward, 1)
	require.Equal(t, FileB, forward[0].File)
	require.Equal(t, FileA, backward[0].File)
	require.Equal(t, forward[0].Text, backward[0].Text)
	require.Equal(t, forward[0].LineNumber, backward[0].LineNumber)
}

func TestInvalidConfigFailsFast(t *testing.T) {
	cfg := Config{FileA: "", FileB: ""}
	var failed bool
	for ev := range StartComparison(context.Background(), cfg) {
		if _, ok := ev.(ComparisonFailedEvent); ok {
			failed = true
		}
	}
	require.True(t, failed)
}

func TestInvalidPrimaryKeyRegexFailsFast(t *testing.T) {
	pathA := writeTemp(t, "a\n")
	pathB := writeTemp(t, "a\n")
	cfg := Config{FileA: pathA, FileB: pathB, PrimaryKeyRegex: "("}

	var failed bool
	for ev := range StartComparison(context.Background(), cfg) {
		if _, ok := ev.(ComparisonFailedEvent); ok {
			failed = true
		}
	}
	require.True(t, failed)
}

func TestCleanupRemovesTempDirOnSuccess(t *testing.T) {
	pathA := writeTemp(t, "a\nb\n")
	pathB := writeTemp(t, "a\nb\nc\n")
	tempBase := t.TempDir()
	cfg := Config{FileA: pathA, FileB: pathB, UseExternalSort: true, TempDir: tempBase}

	runToCompletion(t, cfg)

	entries, err := os.ReadDir(tempBase)
	require.NoError(t, err)
	require.Empty(t, entries)
}
