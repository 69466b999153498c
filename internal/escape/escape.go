// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

// Package escape converts between plain text and the escaped contents of a
// JSON string literal. Neither direction adds or removes the enclosing
// quotation marks.
package escape

import (
	"errors"
	"unicode/utf8"

	"go4.org/mem"
)

var hexDigit = []byte("0123456789abcdef")

// Quote encodes src with the escapes required to embed it in a JSON string.
// Quotation marks, backslashes, and control characters are escaped; the
// replacement rune and the line and paragraph separators are written as
// Unicode escapes; all other text is copied through.
func Quote(src mem.RO) []byte {
	out := make([]byte, 0, src.Len())
	for src.Len() > 0 {
		r, n := mem.DecodeRune(src)
		src = src.SliceFrom(n)

		switch {
		case r == '"' || r == '\\':
			out = append(out, '\\', byte(r))
		case r < ' ':
			switch r {
			case '\b':
				out = append(out, '\\', 'b')
			case '\f':
				out = append(out, '\\', 'f')
			case '\n':
				out = append(out, '\\', 'n')
			case '\r':
				out = append(out, '\\', 'r')
			case '\t':
				out = append(out, '\\', 't')
			default:
				out = appendUnicode(out, r)
			}
		case r < utf8.RuneSelf:
			out = append(out, byte(r))
		case r == utf8.RuneError, r == '\u2028', r == '\u2029':
			out = appendUnicode(out, r)
		default:
			out = utf8.AppendRune(out, r)
		}
	}
	return out
}

// Unquote decodes the contents of a JSON string literal, with the enclosing
// quotation marks already removed. Escape sequences are replaced by their
// unescaped equivalents. Invalid escapes decode to the Unicode replacement
// rune; an escape cut off by the end of the input is an error.
func Unquote(src mem.RO) ([]byte, error) {
	out := make([]byte, 0, src.Len())
	for src.Len() > 0 {
		i := mem.IndexByte(src, '\\')
		if i < 0 {
			return mem.Append(out, src), nil
		}
		out = mem.Append(out, src.SliceTo(i))
		src = src.SliceFrom(i + 1)
		if src.Len() == 0 {
			return nil, errors.New("incomplete escape sequence")
		}

		r, n := mem.DecodeRune(src)
		if n == 0 {
			n = 1
		}
		src = src.SliceFrom(n)
		switch r {
		case '"', '\\', '/':
			out = append(out, byte(r))
		case 'b':
			out = append(out, '\b')
		case 'f':
			out = append(out, '\f')
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case 'u':
			if src.Len() < 4 {
				return nil, errors.New("incomplete Unicode escape")
			}
			v, ok := parseHex4(src.SliceTo(4))
			if !ok {
				v = utf8.RuneError
			}
			out = utf8.AppendRune(out, v)
			src = src.SliceFrom(4)
		default:
			out = utf8.AppendRune(out, utf8.RuneError)
		}
	}
	return out, nil
}

// appendUnicode appends the six-byte \uXXXX escape for r, which must be in
// the basic multilingual plane.
func appendUnicode(out []byte, r rune) []byte {
	return append(out, '\\', 'u',
		hexDigit[(r>>12)&15], hexDigit[(r>>8)&15], hexDigit[(r>>4)&15], hexDigit[r&15])
}

// parseHex4 decodes exactly four hexadecimal digits.
func parseHex4(data mem.RO) (rune, bool) {
	var v rune
	for i := 0; i < 4; i++ {
		b := data.At(i)
		v <<= 4
		switch {
		case b >= '0' && b <= '9':
			v += rune(b - '0')
		case b >= 'a' && b <= 'f':
			v += rune(b-'a') + 10
		case b >= 'A' && b <= 'F':
			v += rune(b-'A') + 10
		default:
			return 0, false
		}
	}
	return v, true
}
