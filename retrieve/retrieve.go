// Package retrieve turns an excess entry's (offset, count) back into
// displayable line text: locate the terminating '\n', strip a
// trailing '\r', decode as UTF-8 for display (replacing invalid
// sequences), and annotate repeated lines with an "(xN)" suffix.
//
// Scratch buffers are pooled with bytebufferpool for the many
// short-lived byte buffers this produces on a hot read path.
package retrieve

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/valyala/bytebufferpool"
)

var pool bytebufferpool.Pool

// Line extracts the text of the line starting at offset within data.
// excess is the multiset difference count for this line (always >=
// 1); when it exceeds 1, the returned text carries a "(xN)" suffix on
// its own trailing line.
func Line(data []byte, offset uint64, excess uint64) (string, error) {
	if offset > uint64(len(data)) {
		return "", fmt.Errorf("retrieve: offset %d beyond file length %d", offset, len(data))
	}
	start := int(offset)

	nl := bytes.IndexByte(data[start:], '\n')
	end := len(data)
	if nl >= 0 {
		end = start + nl
	}
	if end > start && data[end-1] == '\r' && nl >= 0 {
		end--
	}

	buf := pool.Get()
	defer pool.Put(buf)

	decodeUTF8Lossy(buf, data[start:end])
	text := buf.String()

	if excess > 1 {
		return fmt.Sprintf("%s\n(x%d)", text, excess), nil
	}
	return text, nil
}

// decodeUTF8Lossy appends b to dst, decoded as UTF-8 and with every
// invalid byte replaced by its own Unicode replacement character
// (unlike strings.ToValidUTF8, which collapses a run of invalid bytes
// into one), without extra work for the common all-valid case.
func decodeUTF8Lossy(dst *bytebufferpool.ByteBuffer, b []byte) {
	if utf8.Valid(b) {
		dst.Write(b)
		return
	}
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size <= 1 {
			dst.WriteRune(utf8.RuneError)
			b = b[1:]
			continue
		}
		dst.Write(b[:size])
		b = b[size:]
	}
}
