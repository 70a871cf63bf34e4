// Package record defines the fixed-width on-disk encoding of a single
// (hash, offset) pair, the unit exchanged between the fingerprint phase
// and the partitioned / sort-merge reducers.
//
// The encoding mirrors compactindexsized's fixed-stride entry format
// (BucketDescriptor.marshalEntry/unmarshalEntry), simplified to a
// constant 8+8 byte pair since this engine does not need a variable
// offset width: every partition and sorted file is interpreted
// identically, regardless of the owning file's size.
package record

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/bcomp/bcomp/linehash"
)

// Size is the on-disk size of a single record, in bytes.
const Size = 16

// HashOffset is a single line's fingerprint paired with the byte offset
// of that line's first byte in its source file.
type HashOffset struct {
	Hash   linehash.Hash
	Offset uint64
}

// Encode writes ho into buf, which must be at least Size bytes long.
func Encode(buf []byte, ho HashOffset) {
	binary.LittleEndian.PutUint64(buf[0:8], uint64(ho.Hash))
	binary.LittleEndian.PutUint64(buf[8:16], ho.Offset)
}

// Decode reads a HashOffset from buf, which must be at least Size bytes long.
func Decode(buf []byte) HashOffset {
	return HashOffset{
		Hash:   linehash.Hash(binary.LittleEndian.Uint64(buf[0:8])),
		Offset: binary.LittleEndian.Uint64(buf[8:16]),
	}
}

// ReadAll decodes every complete record from r. A short trailing read
// (fewer than Size bytes left) is treated as end-of-stream rather than
// an error, per the engine's decode-error policy: a truncated record at
// the tail of a partition file is logged by the caller and ignored, it
// does not abort the comparison.
func ReadAll(r io.Reader) ([]HashOffset, error) {
	var out []HashOffset
	buf := make([]byte, Size)
	for {
		n, err := io.ReadFull(r, buf)
		if err == io.EOF {
			return out, nil
		}
		if err == io.ErrUnexpectedEOF {
			// Partial frame at EOF: truncated record, stop here.
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("record: read failed after %d bytes: %w", n, err)
		}
		out = append(out, Decode(buf))
	}
}

// Write encodes ho and writes it to w.
func Write(w io.Writer, ho HashOffset) error {
	var buf [Size]byte
	Encode(buf[:], ho)
	_, err := w.Write(buf[:])
	return err
}
