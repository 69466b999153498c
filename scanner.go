// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package jwire

import "fmt"

// DefaultKeySize is the key storage capacity of a new Scanner, in bytes.
// Use [Scanner.SetKeySize] to raise or lower the bound.
const DefaultKeySize = 64

// Result is the outcome of a call to [Scanner.Next].
type Result byte

// Constants defining the valid Result values.
const (
	Invalid Result = iota // zero value, reported only alongside an error

	Found // a complete key/value pair is available
	More  // the buffer was exhausted before a pair was complete
	Done  // the closing brace of the object was consumed
)

var resultStr = [...]string{
	Invalid: "invalid",
	Found:   "pair found",
	More:    "more input needed",
	Done:    "object complete",
}

func (r Result) String() string {
	v := int(r)
	if v >= len(resultStr) {
		return resultStr[Invalid]
	}
	return resultStr[v]
}

// phase identifies the position of the scan within a key/value pair.
type phase byte

const (
	seekKey   phase = iota // before the opening quote of a key
	inKey                  // inside the quotes of a key
	seekColon              // between a key and its colon
	seekValue              // between a colon and the first byte of a value
	inValue                // inside a value, tracking its end
)

// A Scanner incrementally extracts top-level "key":value pairs from a JSON
// object received piecemeal, for example from a socket. The caller appends
// raw bytes to the scanner's fixed receive buffer with [Scanner.Append] and
// calls [Scanner.Next] until it reports a result. Values are reported as
// opaque byte spans: the scanner locates their boundaries, correctly skipping
// nested objects, arrays, and quoted or escaped string content, but does not
// decode their interiors. Hand a span to a separate decoder if its structure
// is needed (see [Unquote] for string values).
//
// After a Found result, read the pair with [Scanner.Key] and [Scanner.Value],
// then call [Scanner.Consume] to discard it and compact the buffer before
// scanning for the next pair.
//
// A Scanner is not safe for concurrent use.
type Scanner struct {
	buf []byte // borrowed receive buffer, fixed size
	n   int    // count of valid bytes in buf

	key  []byte // fixed key storage
	klen int

	phase    phase
	braces   int  // unclosed '{' within the current value
	brackets int  // unclosed '[' within the current value
	quoted   bool // inside a string literal
	escaped  bool // the next byte is escaped
	vstart   int  // offset of the current value in buf
	vlen     int  // length of the current value, 0 until found
	delim    byte // the byte that terminated the found value
	opened   bool // a leading '{' was seen in the current scan pass
	done     bool // the object's closing '}' was consumed with the last pair
}

// NewScanner constructs a Scanner over the given receive buffer. The buffer
// is borrowed, not copied: its length fixes the scanner's capacity, and the
// caller must not touch it except through the scanner's own methods.
// NewScanner reports ErrInvalidParam if buf is empty.
func NewScanner(buf []byte) (*Scanner, error) {
	if len(buf) == 0 {
		return nil, fmt.Errorf("%w: empty buffer", ErrInvalidParam)
	}
	return &Scanner{buf: buf, key: make([]byte, DefaultKeySize)}, nil
}

// SetKeySize changes the key storage capacity to n bytes. It reports
// ErrInvalidParam if n < 1, and ErrInvalidState if the scanner has buffered
// input or a pending result; resize before feeding it or after Reset.
func (s *Scanner) SetKeySize(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: key size %d", ErrInvalidParam, n)
	}
	if s.n > 0 || s.done {
		return fmt.Errorf("%w: input is buffered", ErrInvalidState)
	}
	s.key = make([]byte, n)
	return nil
}

// Append copies data onto the end of the receive buffer. It reports
// ErrBufferFull, without copying anything, if the data does not fit in the
// remaining capacity.
func (s *Scanner) Append(data []byte) error {
	if s.n+len(data) > len(s.buf) {
		return fmt.Errorf("%w: %d bytes do not fit in %d free",
			ErrBufferFull, len(data), len(s.buf)-s.n)
	}
	copy(s.buf[s.n:], data)
	s.n += len(data)
	return nil
}

// Buffered reports the number of unconsumed bytes in the receive buffer.
func (s *Scanner) Buffered() int { return s.n }

// Free reports the remaining capacity of the receive buffer.
func (s *Scanner) Free() int { return len(s.buf) - s.n }

// Blank reports whether the unconsumed buffer is entirely whitespace.
// Callers can use it after a More result to decide whether further input is
// strictly required.
func (s *Scanner) Blank() bool {
	for _, c := range s.buf[:s.n] {
		if !isSpace(c) {
			return false
		}
	}
	return true
}

// Next scans the buffered input for the next complete key/value pair at the
// top nesting level.
//
// On Found, the pair can be read with Key and Value until Consume discards
// it. On More, the buffer was exhausted mid-pair; append further input and
// call Next again, which rescans from the start of the unconsumed buffer.
// On Done, the closing brace of the object has been consumed; any trailing
// bytes are left in the buffer (see Blank).
//
// Invalid input reports a *SyntaxError, and a key longer than the key
// storage reports ErrKeyTooLong. In both cases the scanner has been fully
// reset and the buffered input discarded; recovery beyond that is not
// attempted.
func (s *Scanner) Next() (Result, error) {
	if s.done {
		s.done = false
		return Done, nil
	}
	s.resetPair()

	for i := 0; i < s.n; i++ {
		c := s.buf[i]

		// Escape handling is global to the scan: a backslash inside a string
		// causes the following byte to be skipped by every phase, so an
		// escaped quote cannot toggle the string state.
		if s.escaped {
			s.escaped = false
			continue
		}
		if c == '\\' && s.quoted {
			s.escaped = true
			continue
		}

		switch s.phase {
		case seekKey:
			switch {
			case c == '"':
				s.phase = inKey
			case c == '}':
				s.shift(i + 1)
				return Done, nil
			case c == '{' && !s.opened:
				s.opened = true
			case isSpace(c):
			default:
				return Invalid, s.failf(i, "unexpected %q while seeking key", c)
			}

		case inKey:
			switch {
			case c == '"':
				s.phase = seekColon
			case s.klen < len(s.key):
				s.key[s.klen] = c
				s.klen++
			default:
				err := fmt.Errorf("%w: key %q exceeds %d bytes",
					ErrKeyTooLong, s.key[:s.klen], len(s.key))
				s.Reset()
				return Invalid, err
			}

		case seekColon:
			switch {
			case c == ':':
				s.phase = seekValue
			case isSpace(c):
			default:
				return Invalid, s.failf(i, "unexpected %q after key, seeking colon", c)
			}

		case seekValue:
			if isSpace(c) {
				continue
			}
			s.phase = inValue
			s.vstart = i
			switch c {
			case '"':
				s.quoted = true
			case '{':
				s.braces = 1
			case '[':
				s.brackets = 1
			}

		case inValue:
			if c == '"' {
				s.quoted = !s.quoted
			}
			if s.quoted {
				continue
			}
			if s.braces == 0 && s.brackets == 0 && (c == ',' || c == '}') {
				s.vlen = i - s.vstart
				s.delim = c
				return Found, nil
			}
			switch c {
			case '{':
				s.braces++
			case '}':
				s.braces--
			case '[':
				s.brackets++
			case ']':
				s.brackets--
			}
		}
	}
	return More, nil
}

// Key returns the key of the most recently found pair. The returned slice
// aliases the scanner's key storage and is only valid until the next call to
// Next or Reset.
func (s *Scanner) Key() []byte { return s.key[:s.klen] }

// Value returns the raw, undecoded value span of the most recently found
// pair. Whitespace between the value and its delimiter is not part of the
// value and is excluded. The returned slice aliases the receive buffer and
// is only valid until the next call to Consume, Append, or Reset.
func (s *Scanner) Value() []byte {
	v := s.buf[s.vstart : s.vstart+s.vlen]
	for len(v) > 0 && isSpace(v[len(v)-1]) {
		v = v[:len(v)-1]
	}
	return v
}

// CopyValue returns a copy of the value span that remains valid after the
// pair is consumed.
func (s *Scanner) CopyValue() []byte { return append([]byte(nil), s.Value()...) }

// Consume discards the most recently found pair and its trailing delimiter,
// compacting the receive buffer, so that the next call to Next scans for the
// following pair. If the delimiter was the object's closing brace, the next
// call to Next reports Done. Consume does nothing if no pair is pending.
func (s *Scanner) Consume() {
	if s.vlen == 0 {
		return
	}
	end := s.delim == '}'
	s.shift(s.vstart + s.vlen + 1)
	s.done = end
}

// Reset restores the scanner to its initial state, discarding all buffered
// input. It is the recovery path after a scan error.
func (s *Scanner) Reset() {
	s.resetPair()
	s.n = 0
	s.done = false
}

// resetPair clears the per-pass tracking fields without touching the buffer
// or the pending Done result. Every scan pass restarts from the head of the
// unconsumed buffer, so a leading '{' that was skipped on an earlier pass is
// skipped again rather than remembered.
func (s *Scanner) resetPair() {
	s.phase = seekKey
	s.klen = 0
	s.braces = 0
	s.brackets = 0
	s.quoted = false
	s.escaped = false
	s.vstart = 0
	s.vlen = 0
	s.delim = 0
	s.opened = false
}

// shift discards the first n buffered bytes and clears the per-pair state.
func (s *Scanner) shift(n int) {
	if n < s.n {
		copy(s.buf, s.buf[n:s.n])
		s.n -= n
	} else {
		s.n = 0
	}
	s.resetPair()
}

func (s *Scanner) failf(off int, msg string, args ...any) error {
	err := &SyntaxError{Offset: off, Message: fmt.Sprintf(msg, args...)}
	s.Reset()
	return err
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
