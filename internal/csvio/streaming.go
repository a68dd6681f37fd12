package csvio

// streaming.go cleans the byte stream before it reaches the CSV parser:
//
//   - SkipBOM drops a leading UTF-8 byte order mark (0xEF 0xBB 0xBF) that
//     Excel and other Windows tools prepend to exported files
//   - UTF8Sanitizer replaces invalid UTF-8 bytes with '?' so a stray
//     Latin-1 character in one row does not abort the whole file
//
// Both work on a bufio.Reader, so memory stays at one buffer regardless of
// file size.

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SkipBOM returns a buffered reader positioned after the BOM, if any.
func SkipBOM(r io.Reader) *bufio.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// UTF8Sanitizer is an io.Reader that replaces every byte that does not
// start a valid UTF-8 sequence with '?'. The replacement is one byte wide,
// so output never grows past the input.
type UTF8Sanitizer struct {
	src *bufio.Reader
}

// NewUTF8Sanitizer wraps r.
func NewUTF8Sanitizer(r io.Reader) *UTF8Sanitizer {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &UTF8Sanitizer{src: br}
}

// Read implements io.Reader.
func (s *UTF8Sanitizer) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		// Fast path for ASCII, which is nearly all contact data.
		b, err := s.src.ReadByte()
		if err != nil {
			if n > 0 && err == io.EOF {
				return n, nil
			}
			return n, err
		}
		if b < utf8.RuneSelf {
			p[n] = b
			n++
			continue
		}
		_ = s.src.UnreadByte()

		if len(p)-n < utf8.UTFMax {
			// Not enough room for a full rune; hand back what we have.
			if n > 0 {
				return n, nil
			}
		}

		r, size, err := s.src.ReadRune()
		if err != nil {
			return n, err
		}
		if r == utf8.RuneError && size == 1 {
			p[n] = '?'
			n++
			continue
		}
		if len(p)-n < size {
			// Caller buffer smaller than one rune; degrade rather than stall.
			p[n] = '?'
			n++
			continue
		}
		n += utf8.EncodeRune(p[n:], r)
	}
	return n, nil
}

// Clean applies BOM skipping and UTF-8 sanitization in that order.
func Clean(r io.Reader) io.Reader {
	return NewUTF8Sanitizer(SkipBOM(r))
}
