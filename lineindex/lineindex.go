// Package lineindex resolves a byte offset into a 1-based line number,
// by one of two strategies:
//
//   - Cursor: a sequential scan with a running (last_offset,
//     last_line_no) position, for excess entries visited in ascending
//     offset order.
//   - Index: a memory-mapped, persisted array of newline positions,
//     binary-searched per lookup, for callers needing random-order
//     resolution.
//
// Both are adapted from bucketteer's on-disk sealed structure:
// bucketteer persists a sorted []uint64 per bucket and binary-searches
// it for set membership; Index persists one global sorted []uint64 of
// newline offsets and binary-searches it for a count-of-elements-below
// query instead of a membership query.
package lineindex

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"sort"

	"github.com/bcomp/bcomp/linescan"
)

// Cursor resolves offsets to line numbers via one forward pass over
// the '\n' positions, amortizing the scan across many lookups as long
// as callers present offsets in ascending order.
type Cursor struct {
	positions linescan.Positions
	pIdx      int
	lastLine  uint64
}

// NewCursor creates a Cursor over a file's newline positions.
func NewCursor(positions linescan.Positions) *Cursor {
	return &Cursor{positions: positions}
}

// LineNumber returns the 1-based line number of offset, which must be
// >= the offset passed to the previous call.
func (c *Cursor) LineNumber(offset uint64) uint64 {
	for c.pIdx < len(c.positions) && c.positions[c.pIdx] < offset {
		c.pIdx++
		c.lastLine++
	}
	return c.lastLine + 1
}

// WriteFile persists positions as a packed, native-endian usize array
// with no header: byte length must be a multiple of 8, and any reader
// must validate that before trusting the contents.
func WriteFile(path string, positions linescan.Positions) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("lineindex: create %q: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriterSize(f, 1<<20)
	var buf [8]byte
	for _, p := range positions {
		binary.NativeEndian.PutUint64(buf[:], p)
		if _, err := w.Write(buf[:]); err != nil {
			return fmt.Errorf("lineindex: write position: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("lineindex: flush: %w", err)
	}
	return f.Sync()
}

// ErrCorruptNewlineIndex is returned by OpenIndex when a persisted
// newline-index file's size is not a multiple of 8 bytes.
var ErrCorruptNewlineIndex = fmt.Errorf("lineindex: newline index size is not a multiple of 8")

// Index is a memory-mapped, binary-searchable newline-position array.
type Index struct {
	mf        *linescan.MappedFile
	positions []byte
	count     int
}

// OpenIndex maps a file written by WriteFile.
func OpenIndex(path string) (*Index, error) {
	mf, err := linescan.OpenMapped(path)
	if err != nil {
		return nil, fmt.Errorf("lineindex: open %q: %w", path, err)
	}
	data := mf.Bytes()
	if len(data)%8 != 0 {
		mf.Close()
		return nil, fmt.Errorf("lineindex: %q: %w", path, ErrCorruptNewlineIndex)
	}
	return &Index{mf: mf, positions: data, count: len(data) / 8}, nil
}

// Close unmaps the index file.
func (idx *Index) Close() error { return idx.mf.Close() }

func (idx *Index) at(i int) uint64 {
	return binary.NativeEndian.Uint64(idx.positions[i*8 : i*8+8])
}

// LineNumber returns the 1-based line number of offset: the count of
// newlines strictly before offset, plus one.
func (idx *Index) LineNumber(offset uint64) uint64 {
	n := sort.Search(idx.count, func(i int) bool { return idx.at(i) >= offset })
	return uint64(n) + 1
}
