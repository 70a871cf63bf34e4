package linescan

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// MappedFile is a read-only memory-mapped view of a file, shared by
// reference across goroutines for the duration of a comparison. The
// underlying file must not be modified while mapped; the engine does
// not defend against that and treats it as undefined behavior.
type MappedFile struct {
	f    *os.File
	data []byte
}

// OpenMapped opens path and maps it read-only. An empty file maps to a
// zero-length MappedFile rather than an error, since an empty input is
// a valid (if degenerate) comparison side.
func OpenMapped(path string) (*MappedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("linescan: open %q: %w", path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("linescan: stat %q: %w", path, err)
	}
	size := fi.Size()
	if size == 0 {
		return &MappedFile{f: f}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("linescan: mmap %q: %w", path, err)
	}
	// MADV_SEQUENTIAL: the line scanner reads each chunk once,
	// front-to-back; the line retriever later does scattered
	// re-reads but those are cheap relative to the initial scan.
	_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)

	return &MappedFile{f: f, data: data}, nil
}

// Bytes returns the mapped file's contents. The slice is only valid
// until Close is called.
func (m *MappedFile) Bytes() []byte { return m.data }

// Len returns the file size in bytes.
func (m *MappedFile) Len() int { return len(m.data) }

// Close unmaps and closes the underlying file.
func (m *MappedFile) Close() error {
	var mmapErr error
	if m.data != nil {
		mmapErr = unix.Munmap(m.data)
		m.data = nil
	}
	closeErr := m.f.Close()
	if mmapErr != nil {
		return fmt.Errorf("linescan: munmap: %w", mmapErr)
	}
	if closeErr != nil {
		return fmt.Errorf("linescan: close: %w", closeErr)
	}
	return nil
}
