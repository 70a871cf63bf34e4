// Package fingerprint builds per-file hash statistics: how many times
// each line hash occurs (the count map) and where one representative
// occurrence of that hash starts (the offset index).
//
// Memory is the in-memory variant: a parallel fold-reduce pipeline
// that folds lines into per-goroutine shard buffers and reduces them,
// adapted from "N files on disk" to "N thread-local maps merged in
// memory".
package fingerprint

import (
	"context"
	"runtime"

	"github.com/bcomp/bcomp/linehash"
	"github.com/bcomp/bcomp/linescan"
)

// Result is the output of the fingerprint phase for one file: per-hash
// occurrence counts and, for each hash, the offset of its earliest
// occurrence in the file.
type Result struct {
	Counts  map[linehash.Hash]uint64
	Offsets map[linehash.Hash]uint64
}

// Memory computes Result by folding each goroutine's lines into a
// private map pair, then reducing all pairs by summing counts and
// keeping the minimum offset per hash - the earliest occurrence,
// required for deterministic output independent of scheduling order.
func Memory(ctx context.Context, data []byte, lines []linescan.Line, workers int) (*Result, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if len(lines) == 0 {
		return &Result{Counts: map[linehash.Hash]uint64{}, Offsets: map[linehash.Hash]uint64{}}, nil
	}
	if workers > len(lines) {
		workers = len(lines)
	}

	chunks := splitLines(lines, workers)
	partials := make([]*Result, len(chunks))

	type job struct {
		idx  int
		part []linescan.Line
	}
	jobs := make(chan job, len(chunks))
	for i, c := range chunks {
		jobs <- job{idx: i, part: c}
	}
	close(jobs)

	done := make(chan error, workers)
	for w := 0; w < workers; w++ {
		go func() {
			h := linehash.New()
			for j := range jobs {
				select {
				case <-ctx.Done():
					done <- ctx.Err()
					return
				default:
				}
				partials[j.idx] = foldLocal(data, j.part, h)
			}
			done <- nil
		}()
	}
	for w := 0; w < workers; w++ {
		if err := <-done; err != nil {
			return nil, err
		}
	}

	return reduce(partials), nil
}

func splitLines(lines []linescan.Line, n int) [][]linescan.Line {
	out := make([][]linescan.Line, 0, n)
	chunkSize := (len(lines) + n - 1) / n
	for i := 0; i < len(lines); i += chunkSize {
		end := i + chunkSize
		if end > len(lines) {
			end = len(lines)
		}
		out = append(out, lines[i:end])
	}
	return out
}

func foldLocal(data []byte, lines []linescan.Line, h *linehash.Digest) *Result {
	r := &Result{
		Counts:  make(map[linehash.Hash]uint64),
		Offsets: make(map[linehash.Hash]uint64),
	}
	for _, ln := range lines {
		if ln.Empty() {
			continue
		}
		hash := h.Sum(data[ln.FingerprintStart:ln.FingerprintEnd])
		r.Counts[hash]++
		if off, ok := r.Offsets[hash]; !ok || ln.Offset < off {
			r.Offsets[hash] = ln.Offset
		}
	}
	return r
}

func reduce(partials []*Result) *Result {
	out := &Result{
		Counts:  make(map[linehash.Hash]uint64),
		Offsets: make(map[linehash.Hash]uint64),
	}
	for _, p := range partials {
		if p == nil {
			continue
		}
		for h, c := range p.Counts {
			out.Counts[h] += c
		}
		for h, off := range p.Offsets {
			cur, ok := out.Offsets[h]
			if !ok || off < cur {
				out.Offsets[h] = off
			}
		}
	}
	return out
}
