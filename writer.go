// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package jwire

import (
	"fmt"
	"io"
	"strconv"
)

// DefaultMaxDepth is the nesting bound applied to a new Writer. Each level of
// depth costs a constant small amount of state; use [Writer.SetMaxDepth] to
// raise or lower the bound before beginning a document.
const DefaultMaxDepth = 8

// A Writer incrementally serializes a nested JSON document into a fixed
// caller-provided buffer, draining the buffer through a sink whenever it
// fills or the document is finalized. Memory use is bounded by the buffer
// size regardless of the size of the document: the writer never allocates
// after construction and never rewrites bytes it has already emitted.
//
// Begin a document with [Writer.BeginObject] or [Writer.BeginArray], add
// members with the field and element methods, and call [Writer.End] to close
// all open collections and flush the remainder. Field methods apply when the
// innermost open collection is an object; element methods apply when it is an
// array. Calling one when the other applies reports [ErrInvalidState].
//
// Output is compact JSON. String values are written verbatim between
// quotation marks; the caller is responsible for escaping untrusted text
// (see [Quote]). Floating-point values are rendered in fixed-point notation
// with six fractional digits.
//
// A Writer is not safe for concurrent use.
type Writer struct {
	sink io.Writer
	buf  []byte // borrowed from the caller, fixed size
	used int    // count of buffered bytes, 0 ≤ used ≤ len(buf)

	// Nesting is tracked in two parallel fixed stacks indexed by depth:
	// closers records the pending closing token for each open collection, and
	// comma records whether the next member at that level needs a leading
	// separator. Popping a level restores the parent's separator state with
	// no rescanning of emitted output.
	closers []byte
	comma   []bool
	depth   int
	max     int

	final bool // root collection closed and flushed
}

// NewWriter constructs a Writer that drains buf through sink. The buffer is
// borrowed, not copied; the caller must not touch it while the writer is in
// use. NewWriter reports ErrInvalidParam if sink is nil or buf is empty.
//
// The sink must accept all the bytes it is given: a flush succeeds only if
// Write returns the full length with a nil error. On any other outcome the
// unaccepted bytes are retained so the flush can be retried.
func NewWriter(sink io.Writer, buf []byte) (*Writer, error) {
	w := new(Writer)
	if err := w.Reset(sink, buf); err != nil {
		return nil, err
	}
	return w, nil
}

// Reset re-initializes w to drain buf through sink, discarding any state from
// a previous document. It reports ErrInvalidParam under the same conditions
// as NewWriter.
func (w *Writer) Reset(sink io.Writer, buf []byte) error {
	if sink == nil {
		return fmt.Errorf("%w: nil sink", ErrInvalidParam)
	} else if len(buf) == 0 {
		return fmt.Errorf("%w: empty buffer", ErrInvalidParam)
	}
	if w.max == 0 {
		w.max = DefaultMaxDepth
	}
	w.sink = sink
	w.buf = buf
	w.used = 0
	w.depth = 0
	w.final = false
	if w.closers == nil {
		w.closers = make([]byte, w.max+1)
		w.comma = make([]bool, w.max+1)
	}
	clear(w.closers)
	clear(w.comma)
	return nil
}

// SetMaxDepth changes the nesting bound to n. It reports ErrInvalidParam if
// n < 1, and ErrInvalidState if a document is in progress.
func (w *Writer) SetMaxDepth(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: depth bound %d", ErrInvalidParam, n)
	}
	if w.depth != 0 {
		return fmt.Errorf("%w: document in progress", ErrInvalidState)
	}
	w.max = n
	w.closers = make([]byte, n+1)
	w.comma = make([]bool, n+1)
	return nil
}

// Depth reports the number of currently open collections.
func (w *Writer) Depth() int { return w.depth }

// BeginObject starts a document whose root is an object, writing the opening
// brace. It reports ErrInvalidState if a document is already in progress.
// A finalized writer may begin a fresh document without a Reset.
func (w *Writer) BeginObject() error { return w.begin('{', '}') }

// BeginArray starts a document whose root is an array, writing the opening
// bracket. It reports ErrInvalidState if a document is already in progress.
// A finalized writer may begin a fresh document without a Reset.
func (w *Writer) BeginArray() error { return w.begin('[', ']') }

func (w *Writer) begin(open, close byte) error {
	if w.depth != 0 {
		return fmt.Errorf("%w: document in progress", ErrInvalidState)
	}
	w.final = false
	w.used = 0
	clear(w.comma)
	if err := w.writeByte(open); err != nil {
		return err
	}
	w.push(close)
	return nil
}

// StringField adds "key":"value" to the current object. The value is written
// verbatim between quotes and is not escaped.
func (w *Writer) StringField(key, value string) error {
	if err := w.field(key); err != nil {
		return err
	}
	return w.quoted(value)
}

// IntField adds "key":value to the current object with value rendered in
// base 10.
func (w *Writer) IntField(key string, value int64) error {
	if err := w.field(key); err != nil {
		return err
	}
	return w.writeInt(value)
}

// FloatField adds "key":value to the current object with value rendered in
// fixed-point notation with six fractional digits.
func (w *Writer) FloatField(key string, value float64) error {
	if err := w.field(key); err != nil {
		return err
	}
	return w.writeFloat(value)
}

// NumberField adds "key":value to the current object. It is equivalent to
// FloatField and exists for callers that treat all numbers uniformly.
func (w *Writer) NumberField(key string, value float64) error {
	return w.FloatField(key, value)
}

// BoolField adds "key":true or "key":false to the current object.
func (w *Writer) BoolField(key string, value bool) error {
	if err := w.field(key); err != nil {
		return err
	}
	return w.writeBool(value)
}

// NullField adds "key":null to the current object.
func (w *Writer) NullField(key string) error {
	if err := w.field(key); err != nil {
		return err
	}
	return w.writeString("null")
}

// RawField adds "key":raw to the current object, writing raw verbatim with
// no escaping or validation. The caller is responsible for ensuring raw is a
// well-formed JSON value.
func (w *Writer) RawField(key string, raw []byte) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: empty raw value", ErrInvalidParam)
	}
	if err := w.field(key); err != nil {
		return err
	}
	return w.write(raw)
}

// IntsField adds "key":[...] to the current object with each value rendered
// in base 10. It is equivalent to BeginArrayField, IntElem for each value,
// and Close, but does not consume a level of nesting.
func (w *Writer) IntsField(key string, values []int64) error {
	if err := w.field(key); err != nil {
		return err
	}
	if err := w.writeByte('['); err != nil {
		return err
	}
	for i, v := range values {
		if i > 0 {
			if err := w.writeByte(','); err != nil {
				return err
			}
		}
		if err := w.writeInt(v); err != nil {
			return err
		}
	}
	return w.writeByte(']')
}

// FloatsField adds "key":[...] to the current object with each value rendered
// in fixed-point notation with six fractional digits. It is equivalent to
// BeginArrayField, FloatElem for each value, and Close, but does not consume
// a level of nesting.
func (w *Writer) FloatsField(key string, values []float64) error {
	if err := w.field(key); err != nil {
		return err
	}
	if err := w.writeByte('['); err != nil {
		return err
	}
	for i, v := range values {
		if i > 0 {
			if err := w.writeByte(','); err != nil {
				return err
			}
		}
		if err := w.writeFloat(v); err != nil {
			return err
		}
	}
	return w.writeByte(']')
}

// BeginObjectField opens a nested object under key in the current object.
// Subsequent field methods target the new object until it is closed.
func (w *Writer) BeginObjectField(key string) error { return w.pushField(key, '{', '}') }

// BeginArrayField opens a nested array under key in the current object.
// Subsequent element methods target the new array until it is closed.
func (w *Writer) BeginArrayField(key string) error { return w.pushField(key, '[', ']') }

// StringElem appends "value" to the current array. The value is written
// verbatim between quotes and is not escaped.
func (w *Writer) StringElem(value string) error {
	if err := w.elem(); err != nil {
		return err
	}
	return w.quoted(value)
}

// IntElem appends value to the current array in base 10.
func (w *Writer) IntElem(value int64) error {
	if err := w.elem(); err != nil {
		return err
	}
	return w.writeInt(value)
}

// FloatElem appends value to the current array in fixed-point notation with
// six fractional digits.
func (w *Writer) FloatElem(value float64) error {
	if err := w.elem(); err != nil {
		return err
	}
	return w.writeFloat(value)
}

// BoolElem appends true or false to the current array.
func (w *Writer) BoolElem(value bool) error {
	if err := w.elem(); err != nil {
		return err
	}
	return w.writeBool(value)
}

// NullElem appends null to the current array.
func (w *Writer) NullElem() error {
	if err := w.elem(); err != nil {
		return err
	}
	return w.writeString("null")
}

// RawElem appends raw to the current array verbatim, with no escaping or
// validation.
func (w *Writer) RawElem(raw []byte) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: empty raw value", ErrInvalidParam)
	}
	if err := w.elem(); err != nil {
		return err
	}
	return w.write(raw)
}

// BeginObjectElem opens a nested object as the next element of the current
// array.
func (w *Writer) BeginObjectElem() error { return w.pushElem('{', '}') }

// BeginArrayElem opens a nested array as the next element of the current
// array.
func (w *Writer) BeginArrayElem() error { return w.pushElem('[', ']') }

// Close closes the innermost open collection, writing its closing token.
// Closing the root collection finalizes the document and flushes the buffer.
// If writing the closing token fails, the collection is left open so that a
// retry is possible. Close reports ErrInvalidState if no collection is open.
func (w *Writer) Close() error {
	if w.final || w.depth == 0 {
		return fmt.Errorf("%w: no open collection", ErrInvalidState)
	}
	w.depth--
	if err := w.writeByte(w.closers[w.depth]); err != nil {
		w.depth++ // the closer was not emitted; leave the collection open
		return err
	}
	if w.depth == 0 {
		w.final = true
		return w.Flush()
	}
	w.comma[w.depth] = true
	return nil
}

// End closes every open collection and flushes the remaining buffered bytes.
// Once the document is finalized, End degrades to a plain Flush, so calling
// it again produces no further output and no error.
func (w *Writer) End() error {
	if w.final {
		return w.Flush()
	}
	for w.depth > 0 {
		if err := w.Close(); err != nil {
			return err
		}
	}
	return nil
}

// Flush sends the buffered bytes to the sink. It is a no-op when nothing is
// buffered. If the sink fails or reports a short write, the unaccepted bytes
// are retained so the caller can retry the flush.
func (w *Writer) Flush() error {
	if w.used == 0 {
		return nil
	}
	n, err := w.sink.Write(w.buf[:w.used])
	if n < 0 {
		n = 0
	}
	if n > 0 && n < w.used {
		copy(w.buf, w.buf[n:w.used])
	}
	w.used -= n
	if err == nil && w.used > 0 {
		err = io.ErrShortWrite
	}
	if err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// field validates an object-member write and emits "key": with a leading
// separator when the current level already has a member.
func (w *Writer) field(key string) error {
	if err := w.inObject(); err != nil {
		return err
	}
	return w.writeKey(key)
}

// elem validates an array-element write and emits a leading separator when
// the current level already has an element.
func (w *Writer) elem() error {
	if err := w.inArray(); err != nil {
		return err
	}
	return w.sep()
}

func (w *Writer) pushField(key string, open, close byte) error {
	if err := w.inObject(); err != nil {
		return err
	}
	if w.depth == w.max {
		return fmt.Errorf("%w: depth %d", ErrMaxDepth, w.max)
	}
	if err := w.writeKey(key); err != nil {
		return err
	}
	if err := w.writeByte(open); err != nil {
		return err
	}
	w.push(close)
	return nil
}

func (w *Writer) pushElem(open, close byte) error {
	if err := w.inArray(); err != nil {
		return err
	}
	if w.depth == w.max {
		return fmt.Errorf("%w: depth %d", ErrMaxDepth, w.max)
	}
	if err := w.sep(); err != nil {
		return err
	}
	if err := w.writeByte(open); err != nil {
		return err
	}
	w.push(close)
	return nil
}

// push records a newly opened collection. The caller has already written the
// opening token.
func (w *Writer) push(close byte) {
	w.closers[w.depth] = close
	w.depth++
	w.comma[w.depth] = false
}

// inObject reports whether the innermost open collection accepts object
// members.
func (w *Writer) inObject() error {
	if w.final {
		return fmt.Errorf("%w: writer is finalized", ErrInvalidState)
	}
	if w.depth == 0 || w.closers[w.depth-1] != '}' {
		return fmt.Errorf("%w: current collection is not an object", ErrInvalidState)
	}
	return nil
}

// inArray reports whether the innermost open collection accepts array
// elements.
func (w *Writer) inArray() error {
	if w.final {
		return fmt.Errorf("%w: writer is finalized", ErrInvalidState)
	}
	if w.depth == 0 || w.closers[w.depth-1] != ']' {
		return fmt.Errorf("%w: current collection is not an array", ErrInvalidState)
	}
	return nil
}

// sep emits a comma if the current level already has a member, and marks the
// level as populated either way.
func (w *Writer) sep() error {
	if w.comma[w.depth] {
		if err := w.writeByte(','); err != nil {
			return err
		}
	}
	w.comma[w.depth] = true
	return nil
}

// writeKey emits "key": with a leading separator when needed. An empty key
// is rejected before any bytes are written.
func (w *Writer) writeKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidParam)
	}
	if err := w.sep(); err != nil {
		return err
	}
	if err := w.writeByte('"'); err != nil {
		return err
	}
	if err := w.writeString(key); err != nil {
		return err
	}
	return w.writeString(`":`)
}

func (w *Writer) quoted(s string) error {
	if err := w.writeByte('"'); err != nil {
		return err
	}
	if err := w.writeString(s); err != nil {
		return err
	}
	return w.writeByte('"')
}

func (w *Writer) writeInt(v int64) error {
	var tmp [20]byte
	return w.write(strconv.AppendInt(tmp[:0], v, 10))
}

func (w *Writer) writeFloat(v float64) error {
	var tmp [32]byte
	return w.write(strconv.AppendFloat(tmp[:0], v, 'f', 6, 64))
}

func (w *Writer) writeBool(v bool) error {
	if v {
		return w.writeString("true")
	}
	return w.writeString("false")
}

// write appends data to the buffer, flushing through the sink each time the
// buffer saturates. A single call may invoke the sink multiple times.
func (w *Writer) write(data []byte) error {
	for len(data) > 0 {
		if w.used == len(w.buf) {
			if err := w.Flush(); err != nil {
				return err
			}
		}
		n := copy(w.buf[w.used:], data)
		w.used += n
		data = data[n:]
	}
	return nil
}

func (w *Writer) writeString(s string) error {
	for len(s) > 0 {
		if w.used == len(w.buf) {
			if err := w.Flush(); err != nil {
				return err
			}
		}
		n := copy(w.buf[w.used:], s)
		w.used += n
		s = s[n:]
	}
	return nil
}

func (w *Writer) writeByte(c byte) error {
	if w.used == len(w.buf) {
		if err := w.Flush(); err != nil {
			return err
		}
	}
	w.buf[w.used] = c
	w.used++
	return nil
}
