// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package jwire

import (
	"errors"
	"fmt"
)

// Sentinel errors reported by the writer and scanner. Errors returned by the
// methods of this package wrap one of these values, so callers can classify
// failures with errors.Is without parsing message text.
var (
	// ErrInvalidParam means a required argument was missing or degenerate,
	// such as a nil sink, an empty working buffer, or an empty member key.
	ErrInvalidParam = errors.New("invalid parameter")

	// ErrInvalidState means the requested operation is not legal for the
	// current phase, depth, or finalization state of the engine.
	ErrInvalidState = errors.New("invalid state")

	// ErrMaxDepth means opening another collection would exceed the
	// configured nesting bound.
	ErrMaxDepth = errors.New("maximum nesting depth exceeded")

	// ErrBufferFull means appended input does not fit in the fixed receive
	// buffer. The buffer contents are unchanged.
	ErrBufferFull = errors.New("buffer full")

	// ErrKeyTooLong means an object key exceeded the scanner's fixed key
	// storage. The scanner state is reset, as for a syntax error.
	ErrKeyTooLong = errors.New("key too long")
)

// SyntaxError is the concrete type of errors reported by the scanner for
// input bytes that are not valid in the current phase. Offset is the byte
// position of the offending character, relative to the start of the
// unconsumed receive buffer at the time of the call.
type SyntaxError struct {
	Offset  int
	Message string
}

// Error satisfies the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("at offset %d: %s", e.Offset, e.Message)
}
