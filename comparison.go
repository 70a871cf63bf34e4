// Package bcomp computes a multiset line difference between two text
// files: for each side, the lines that occur more often there than on
// the other, with an optional line number. See Config and
// StartComparison.
//
// The engine never verifies byte-equality on a hash match; xxHash64
// collisions are an accepted, documented trade of correctness for
// throughput at the scale this package targets (see package
// linehash).
package bcomp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/bcomp/bcomp/continuity"
	"github.com/bcomp/bcomp/fingerprint"
	"github.com/bcomp/bcomp/linehash"
	"github.com/bcomp/bcomp/lineindex"
	"github.com/bcomp/bcomp/linescan"
	"github.com/bcomp/bcomp/partition"
	"github.com/bcomp/bcomp/record"
	"github.com/bcomp/bcomp/reduce"
	"github.com/bcomp/bcomp/retrieve"
	"github.com/bcomp/bcomp/sortmerge"
)

// state is the orchestrator's position in its state machine:
// CREATED -> FINGERPRINTING -> REDUCING -> RETRIEVING -> FINISHED,
// with FAILED reachable from any state.
type state int

const (
	stateCreated state = iota
	stateFingerprinting
	stateReducing
	stateRetrieving
	stateFinished
	stateFailed
)

// StartComparison begins a comparison and returns immediately. Events
// are delivered on the returned channel, which is closed after a
// ComparisonFinishedEvent or ComparisonFailedEvent - callers range
// over it until close rather than waiting on a separate completion
// signal.
func StartComparison(ctx context.Context, cfg Config) <-chan Event {
	ch := make(chan Event, 64)
	go func() {
		defer close(ch)
		if err := cfg.validate(); err != nil {
			send(ctx, ch, ComparisonFailedEvent{Err: err})
			return
		}
		if err := runComparison(ctx, cfg, ch); err != nil {
			send(ctx, ch, ComparisonFailedEvent{Err: err})
			return
		}
		send(ctx, ch, ComparisonFinishedEvent{})
	}()
	return ch
}

// send delivers an event unless the context has already been
// canceled, so a sender never blocks on an abandoned channel; workers
// that send in a loop (retrieveAll) check the context after each send
// and terminate promptly once it is canceled.
func send(ctx context.Context, ch chan<- Event, ev Event) {
	select {
	case ch <- ev:
	case <-ctx.Done():
	}
}

// fileState holds one side's mapped file and derived scan results for
// the lifetime of one comparison.
type fileState struct {
	id        FileID
	path      string
	mf        *linescan.MappedFile
	positions linescan.Positions
	lines     []linescan.Line
}

func runComparison(ctx context.Context, cfg Config, ch chan<- Event) error {
	st := stateCreated
	defer func() {
		if st != stateFinished {
			st = stateFailed
		}
	}()

	base := cfg.TempDir
	if base == "" {
		base = os.TempDir()
	}
	tempDir := filepath.Join(base, "bcomp_"+uuid.New().String())
	if cfg.UseExternalSort {
		if err := os.MkdirAll(tempDir, 0o755); err != nil {
			return fmt.Errorf("bcomp: create temp dir: %w", err)
		}
	}
	defer func() {
		if cfg.UseExternalSort {
			if err := os.RemoveAll(tempDir); err != nil {
				klog.Warningf("bcomp: cleanup of %s failed: %v", tempDir, err)
			}
		}
	}()

	workers := runtime.GOMAXPROCS(0)
	if cfg.UseSingleThread {
		workers = 1
	}

	st = stateFingerprinting
	fpStart := time.Now()

	a, b, err := openAndScan(ctx, cfg, ch, workers, cfg.UseSingleThread)
	if err != nil {
		return err
	}
	defer a.mf.Close()
	defer b.mf.Close()

	var excessA, excessB []retrievalEntry
	switch {
	case !cfg.UseExternalSort:
		excessA, excessB, err = reduceMemory(ctx, a, b, workers, cfg.IgnoreOccurrences, cfg.UseSingleThread)
	case cfg.SortMerge:
		excessA, excessB, err = reduceSortMerge(ctx, a, b, tempDir, cfg.UseSingleThread)
	default:
		excessA, excessB, err = reducePartitioned(ctx, a, b, workers, tempDir, cfg)
	}
	if err != nil {
		return err
	}
	send(ctx, ch, StepCompletedEvent{Step: "fingerprint", Duration: time.Since(fpStart)})

	st = stateReducing
	reduceStart := time.Now()
	send(ctx, ch, StepCompletedEvent{Step: "reduce", Duration: time.Since(reduceStart)})

	st = stateRetrieving
	retrieveStart := time.Now()
	rg, rctx := errgroup.WithContext(ctx)
	rg.Go(func() error { return retrieveAll(rctx, ch, a, excessA, cfg.IgnoreLineNumber) })
	rg.Go(func() error { return retrieveAll(rctx, ch, b, excessB, cfg.IgnoreLineNumber) })
	if err := rg.Wait(); err != nil {
		return err
	}
	send(ctx, ch, StepCompletedEvent{Step: "retrieve", Duration: time.Since(retrieveStart)})

	st = stateFinished
	return nil
}

// retrievalEntry is a side-agnostic (offset, count) pair ready for
// line retrieval; the side is implicit in which slice it lives in.
type retrievalEntry struct {
	Offset uint64
	Count  uint64
}

// openAndScan opens and scans both files. When singleThread is set the
// two files are processed one after the other instead of concurrently;
// otherwise both scans run as two fanned-out errgroup workers.
func openAndScan(ctx context.Context, cfg Config, ch chan<- Event, workers int, singleThread bool) (*fileState, *fileState, error) {
	scanA := func(ctx context.Context) (*fileState, error) {
		fs, err := openAndScanOne(ctx, cfg.FileA, FileA, workers)
		if err != nil {
			return nil, err
		}
		send(ctx, ch, ProgressEvent{Percentage: 100, File: FileA, Text: "scanned"})
		return fs, nil
	}
	scanB := func(ctx context.Context) (*fileState, error) {
		fs, err := openAndScanOne(ctx, cfg.FileB, FileB, workers)
		if err != nil {
			return nil, err
		}
		send(ctx, ch, ProgressEvent{Percentage: 100, File: FileB, Text: "scanned"})
		return fs, nil
	}

	if singleThread {
		a, err := scanA(ctx)
		if err != nil {
			return nil, nil, err
		}
		b, err := scanB(ctx)
		if err != nil {
			a.mf.Close()
			return nil, nil, err
		}
		return a, b, nil
	}

	var a, b *fileState
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fs, err := scanA(gctx)
		if err != nil {
			return err
		}
		a = fs
		return nil
	})
	g.Go(func() error {
		fs, err := scanB(gctx)
		if err != nil {
			return err
		}
		b = fs
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func openAndScanOne(ctx context.Context, path string, id FileID, workers int) (*fileState, error) {
	mf, err := linescan.OpenMapped(path)
	if err != nil {
		return nil, fmt.Errorf("bcomp: open %s: %w", path, err)
	}
	klog.V(2).Infof("scanning %s (%s)", path, humanize.Bytes(uint64(mf.Len())))
	positions, err := linescan.Scan(ctx, mf.Bytes(), workers)
	if err != nil {
		mf.Close()
		return nil, fmt.Errorf("bcomp: scan %s: %w", path, err)
	}
	lines := linescan.Lines(mf.Bytes(), positions)
	return &fileState{id: id, path: path, mf: mf, positions: positions, lines: lines}, nil
}

// reduceMemory fingerprints both sides and reduces them into excess
// entries. When singleThread is set the two sides are fingerprinted
// one after the other instead of concurrently.
func reduceMemory(ctx context.Context, a, b *fileState, workers int, ignoreOccurrences bool, singleThread bool) ([]retrievalEntry, []retrievalEntry, error) {
	var resA, resB *fingerprint.Result
	var errA, errB error

	if singleThread {
		resA, errA = fingerprint.Memory(ctx, a.mf.Bytes(), a.lines, workers)
		if errA != nil {
			return nil, nil, errA
		}
		resB, errB = fingerprint.Memory(ctx, b.mf.Bytes(), b.lines, workers)
		if errB != nil {
			return nil, nil, errB
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			resA, errA = fingerprint.Memory(gctx, a.mf.Bytes(), a.lines, workers)
			return errA
		})
		g.Go(func() error {
			resB, errB = fingerprint.Memory(gctx, b.mf.Bytes(), b.lines, workers)
			return errB
		})
		if err := g.Wait(); err != nil {
			return nil, nil, multierr.Combine(errA, errB)
		}
	}

	excess := reduce.Memory(resA, resB, ignoreOccurrences)
	return splitExcess(excess)
}

func splitExcess(excess []reduce.Excess) ([]retrievalEntry, []retrievalEntry, error) {
	var a, b []retrievalEntry
	for _, e := range excess {
		entry := retrievalEntry{Offset: e.Offset, Count: e.Count}
		if e.Side == reduce.Left {
			a = append(a, entry)
		} else {
			b = append(b, entry)
		}
	}
	return a, b, nil
}

// collectRecords folds every non-empty line of a file into its
// (hash, offset) records, in file order, for the sort-merge mode which
// needs the full multiset rather than a reduced count map.
func collectRecords(data []byte, lines []linescan.Line) []record.HashOffset {
	out := make([]record.HashOffset, 0, len(lines))
	h := linehash.New()
	for _, ln := range lines {
		if ln.Empty() {
			continue
		}
		out = append(out, record.HashOffset{
			Hash:   h.Sum(data[ln.FingerprintStart:ln.FingerprintEnd]),
			Offset: ln.Offset,
		})
	}
	return out
}

func reducePartitioned(ctx context.Context, a, b *fileState, workers int, tempDir string, cfg Config) ([]retrievalEntry, []retrievalEntry, error) {
	count := cfg.Partitions
	if count <= 0 {
		count = partition.DefaultCount
	}
	dirA := filepath.Join(tempDir, "a")
	dirB := filepath.Join(tempDir, "b")

	if err := continuity.New().
		Thenf("partition side a", func() error { return writePartitions(dirA, count, a.mf.Bytes(), a.lines) }).
		Thenf("partition side b", func() error { return writePartitions(dirB, count, b.mf.Bytes(), b.lines) }).
		Err(); err != nil {
		return nil, nil, err
	}

	if !cfg.IgnoreLineNumber {
		if err := lineindex.WriteFile(filepath.Join(dirA, "newline_positions.bin"), a.positions); err != nil {
			return nil, nil, err
		}
		if err := lineindex.WriteFile(filepath.Join(dirB, "newline_positions.bin"), b.positions); err != nil {
			return nil, nil, err
		}
	}

	var mu sync.Mutex
	var outA, outB []retrievalEntry
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, workers)
	for i := 0; i < count; i++ {
		i := i
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()

			recsA, err := partition.Load(dirA, i)
			if err != nil {
				return err
			}
			recsB, err := partition.Load(dirB, i)
			if err != nil {
				return err
			}
			excess := reduce.Partition(recsA, recsB, cfg.IgnoreOccurrences)
			ea, eb, _ := splitExcess(excess)

			mu.Lock()
			outA = append(outA, ea...)
			outB = append(outB, eb...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return outA, outB, nil
}

func writePartitions(dir string, count int, data []byte, lines []linescan.Line) error {
	w, err := partition.NewWriter(dir, count)
	if err != nil {
		return err
	}
	h := linehash.New()
	for _, ln := range lines {
		if ln.Empty() {
			continue
		}
		ho := record.HashOffset{Hash: h.Sum(data[ln.FingerprintStart:ln.FingerprintEnd]), Offset: ln.Offset}
		if err := w.Push(ho); err != nil {
			return err
		}
	}
	return w.Build()
}

// reduceSortMerge fingerprints and sorts both sides, then merges them.
// When singleThread is set the two sides are processed one after the
// other instead of concurrently.
func reduceSortMerge(ctx context.Context, a, b *fileState, tempDir string, singleThread bool) ([]retrievalEntry, []retrievalEntry, error) {
	var recsA, recsB []record.HashOffset
	g, _ := errgroup.WithContext(ctx)
	if singleThread {
		g.SetLimit(1)
	}
	g.Go(func() error {
		recsA = collectRecords(a.mf.Bytes(), a.lines)
		sortmerge.Sort(recsA)
		return nil
	})
	g.Go(func() error {
		recsB = collectRecords(b.mf.Bytes(), b.lines)
		sortmerge.Sort(recsB)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	// Persisted as part of this mode's temporary on-disk contract,
	// even though the merge below reads straight from the in-memory
	// slices already produced above.
	if err := writeSortedFile(filepath.Join(tempDir, "sorted_a.bin"), recsA); err != nil {
		return nil, nil, err
	}
	if err := writeSortedFile(filepath.Join(tempDir, "sorted_b.bin"), recsB); err != nil {
		return nil, nil, err
	}

	excess := sortmerge.Merge(recsA, recsB)
	var outA, outB []retrievalEntry
	for _, e := range excess {
		entry := retrievalEntry{Offset: e.Offset, Count: e.Count}
		if e.Side == sortmerge.Left {
			outA = append(outA, entry)
		} else {
			outB = append(outB, entry)
		}
	}
	return outA, outB, nil
}

func writeSortedFile(path string, recs []record.HashOffset) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("bcomp: create %s: %w", path, err)
	}
	defer f.Close()
	for _, r := range recs {
		if err := record.Write(f, r); err != nil {
			return fmt.Errorf("bcomp: write %s: %w", path, err)
		}
	}
	return nil
}

func retrieveAll(ctx context.Context, ch chan<- Event, fs *fileState, entries []retrievalEntry, ignoreLineNumber bool) error {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Offset < entries[j].Offset })
	var cursor *lineindex.Cursor
	if !ignoreLineNumber {
		cursor = lineindex.NewCursor(fs.positions)
	}
	data := fs.mf.Bytes()
	for _, e := range entries {
		text, err := retrieve.Line(data, e.Offset, e.Count)
		if err != nil {
			return fmt.Errorf("bcomp: retrieve line in %s: %w", fs.path, err)
		}
		var lineNo uint64
		if cursor != nil {
			lineNo = cursor.LineNumber(e.Offset)
		}
		send(ctx, ch, UniqueLineEvent{File: fs.id, LineNumber: lineNo, Text: text})
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}
