// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package jwire

import (
	"errors"
	"strings"

	"github.com/creachadair/jwire/internal/escape"

	"go4.org/mem"
)

// Quote encodes src as a JSON string value: the contents are escaped and
// enclosing double quotation marks are added. Pair it with [Writer.RawField]
// or [Writer.RawElem] to emit text the producer does not control, since the
// plain string methods of [Writer] write their argument verbatim.
func Quote(src string) string {
	return `"` + string(escape.Quote(mem.S(src))) + `"`
}

// Unquote decodes a JSON string value such as a span reported by
// [Scanner.Value]. The enclosing double quotation marks are removed and
// escape sequences are replaced with their unescaped equivalents.
//
// Invalid escapes are replaced by the Unicode replacement rune. Unquote
// reports an error for an incomplete escape sequence or missing quotation
// marks.
func Unquote(src string) ([]byte, error) {
	if len(src) < 2 || !strings.HasPrefix(src, `"`) || !strings.HasSuffix(src, `"`) {
		return nil, errors.New("missing quotations")
	}
	return escape.Unquote(mem.S(src[1 : len(src)-1]))
}
