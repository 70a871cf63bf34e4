// Package linescan discovers line boundaries in a memory-mapped file.
//
// The map is split into fixed-size chunks (ChunkSize, 16 MiB by
// default) and each chunk is searched independently for '\n' using
// bytes.IndexByte, the standard library's vectorized byte-search
// primitive (assembly-optimized per architecture; no corpus example
// reaches for a third-party SIMD scanner for arbitrary byte search, so
// the standard library is the idiomatic choice here). Chunks are
// farmed out to a bounded worker-goroutine pool fed by a buffered job
// channel, generalized from "one job per shard" to "one job per
// chunk".
package linescan

import (
	"bytes"
	"context"
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// ChunkSize is the default size of a scan unit.
const ChunkSize = 16 * 1024 * 1024

// Positions is the ordered (strictly increasing) set of '\n' byte
// offsets within a mapped file.
type Positions []uint64

// Scan returns the sorted positions of every '\n' byte in data.
//
// Because chunks are assigned positions in file order and each
// in-chunk scan is itself ordered, concatenating per-chunk results in
// chunk-index order yields a globally sorted slice without an
// explicit sort step. workers <= 0 defaults to GOMAXPROCS.
func Scan(ctx context.Context, data []byte, workers int) (Positions, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	numChunks := (len(data) + ChunkSize - 1) / ChunkSize
	if workers > numChunks {
		workers = numChunks
	}
	results := make([][]uint64, numChunks)

	jobs := make(chan int, numChunks)
	for i := 0; i < numChunks; i++ {
		jobs <- i
	}
	close(jobs)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for chunkIdx := range jobs {
				if err := gctx.Err(); err != nil {
					return err
				}
				start := chunkIdx * ChunkSize
				end := start + ChunkSize
				if end > len(data) {
					end = len(data)
				}
				results[chunkIdx] = scanChunk(data[start:end], uint64(start))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("linescan: scan failed: %w", err)
	}

	total := 0
	for _, r := range results {
		total += len(r)
	}
	out := make(Positions, 0, total)
	for _, r := range results {
		out = append(out, r...)
	}

	// Concatenation in chunk order is already sorted; this unstable
	// sort is a safety net only and is a no-op on correctly ordered
	// input.
	if !sort.SliceIsSorted(out, func(i, j int) bool { return out[i] < out[j] }) {
		sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	}
	return out, nil
}

func scanChunk(chunk []byte, base uint64) []uint64 {
	var positions []uint64
	off := 0
	for {
		idx := bytes.IndexByte(chunk[off:], '\n')
		if idx < 0 {
			break
		}
		positions = append(positions, base+uint64(off+idx))
		off += idx + 1
	}
	return positions
}

// Line describes one logical line's extent within a file.
//
// Offset is always the first byte after the preceding newline (or 0
// for the first line), used for reporting and for every downstream
// offset-keyed structure. FingerprintStart/End bound the bytes that
// are actually hashed: identical to [Offset, newline) except a
// trailing '\r' is excluded.
type Line struct {
	Offset           uint64
	FingerprintStart uint64
	FingerprintEnd   uint64
}

// Empty reports whether the line has zero fingerprinted bytes (after
// '\r'-stripping), in which case it is skipped during fingerprinting
// but still counted for line-number accounting.
func (l Line) Empty() bool { return l.FingerprintEnd <= l.FingerprintStart }

// Lines reconstructs the logical lines of a file from its newline
// positions, total size, and raw bytes (needed to detect a trailing
// '\r' before each '\n'). The final line (after the last '\n', if
// non-empty) is included as a tail line.
func Lines(data []byte, positions Positions) []Line {
	size := uint64(len(data))
	lines := make([]Line, 0, len(positions)+1)
	var start uint64
	for _, nl := range positions {
		lines = append(lines, newLine(data, start, nl, true))
		start = nl + 1
	}
	if start < size {
		lines = append(lines, newLine(data, start, size, false))
	}
	return lines
}

// newLine builds a Line for the byte range [start, end). hasTrailingNL
// indicates end is the position of a real '\n' (so a '\r' immediately
// before it is a CRLF terminator to strip); the file-tail line has no
// following '\n' and is never '\r'-stripped.
func newLine(data []byte, start, end uint64, hasTrailingNL bool) Line {
	fpEnd := end
	if hasTrailingNL && fpEnd > start && data[fpEnd-1] == '\r' {
		fpEnd--
	}
	return Line{Offset: start, FingerprintStart: start, FingerprintEnd: fpEnd}
}
