// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package jwire_test

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/creachadair/jwire"
	"github.com/google/go-cmp/cmp"
	"github.com/tailscale/hujson"

	gjson "github.com/goccy/go-json"
)

// writeTestDoc drives w through a fixed sequence exercising every member
// kind at several depths. The emitted document must not depend on the size
// of the writer's buffer.
func writeTestDoc(w *jwire.Writer) error {
	steps := []func() error{
		w.BeginObject,
		func() error { return w.StringField("device", "sensor-7") },
		func() error { return w.IntField("uptime", 3600) },
		func() error { return w.FloatField("temp", 23.45) },
		func() error { return w.BoolField("ok", true) },
		func() error { return w.NullField("alias") },
		func() error { return w.RawField("extra", []byte(`{"a":[1,2]}`)) },
		func() error { return w.IntsField("ts", []int64{1000, 2000, 3000}) },
		func() error { return w.FloatsField("temps", []float64{23.1, 23.2}) },
		func() error { return w.BeginObjectField("meta") },
		func() error { return w.StringField("version", "1.0") },
		func() error { return w.IntField("build", 42) },
		w.Close,
		func() error { return w.BeginArrayField("readings") },
		func() error { return w.FloatElem(23.1) },
		func() error { return w.IntElem(-7) },
		func() error { return w.BoolElem(false) },
		w.NullElem,
		func() error { return w.StringElem("x,y") },
		func() error { return w.RawElem([]byte(`[true,null]`)) },
		w.BeginObjectElem,
		func() error { return w.StringField("k", "v") },
		w.Close,
		w.BeginArrayElem,
		func() error { return w.IntElem(1) },
		w.Close,
		w.Close,
		w.End,
	}
	for i, step := range steps {
		if err := step(); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	return nil
}

const testDocWant = `{"device":"sensor-7","uptime":3600,"temp":23.450000,` +
	`"ok":true,"alias":null,"extra":{"a":[1,2]},"ts":[1000,2000,3000],` +
	`"temps":[23.100000,23.200000],"meta":{"version":"1.0","build":42},` +
	`"readings":[23.100000,-7,false,null,"x,y",[true,null],{"k":"v"},[1]]}`

func TestWriter(t *testing.T) {
	var out bytes.Buffer
	w, err := jwire.NewWriter(&out, make([]byte, 64))
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.BeginObject(); err != nil {
		t.Fatalf("BeginObject: %v", err)
	}
	if err := w.StringField("status", "ok"); err != nil {
		t.Fatalf("StringField: %v", err)
	}
	if err := w.IntField("count", 3); err != nil {
		t.Fatalf("IntField: %v", err)
	}
	if err := w.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	const want = `{"status":"ok","count":3}`
	if got := out.String(); got != want {
		t.Errorf("Output: got %#q, want %#q", got, want)
	}
}

func TestWriter_bufferSizes(t *testing.T) {
	// The concatenation of sink-delivered chunks must be identical for every
	// buffer size, from smaller than any single member up to bigger than the
	// whole document.
	for _, size := range []int{1, 2, 3, 5, 8, 13, 21, 64, 100, 512} {
		var out bytes.Buffer
		w, err := jwire.NewWriter(&out, make([]byte, size))
		if err != nil {
			t.Fatalf("NewWriter(size=%d): %v", size, err)
		}
		if err := writeTestDoc(w); err != nil {
			t.Fatalf("writeTestDoc(size=%d): %v", size, err)
		}
		if got := out.String(); got != testDocWant {
			t.Errorf("Output(size=%d): got %#q, want %#q", size, got, testDocWant)
		}
	}
}

func TestWriter_validOutput(t *testing.T) {
	var out bytes.Buffer
	w, err := jwire.NewWriter(&out, make([]byte, 32))
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := writeTestDoc(w); err != nil {
		t.Fatalf("writeTestDoc: %v", err)
	}

	if _, err := hujson.Parse(out.Bytes()); err != nil {
		t.Errorf("Output is not valid JSON: %v", err)
	}

	var got map[string]any
	if err := gjson.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("Unmarshal output: %v", err)
	}
	want := map[string]any{
		"device": "sensor-7",
		"uptime": 3600.0,
		"temp":   23.45,
		"ok":     true,
		"alias":  nil,
		"extra":  map[string]any{"a": []any{1.0, 2.0}},
		"ts":     []any{1000.0, 2000.0, 3000.0},
		"temps":  []any{23.1, 23.2},
		"meta":   map[string]any{"version": "1.0", "build": 42.0},
		"readings": []any{
			23.1, -7.0, false, nil, "x,y",
			[]any{true, nil},
			map[string]any{"k": "v"},
			[]any{1.0},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Decoded output: (-want, +got)\n%s", diff)
	}
}

func TestWriter_separators(t *testing.T) {
	// Opening and closing nested collections must restore the parent's
	// separator state: no spurious comma before the first sibling, exactly
	// one before each subsequent sibling at any depth.
	tests := []struct {
		name  string
		steps func(w *jwire.Writer) error
		want  string
	}{
		{"nested then sibling", func(w *jwire.Writer) error {
			w.BeginObject()
			w.BeginObjectField("a")
			w.BeginObjectField("b")
			w.Close()
			w.Close()
			w.IntField("c", 1)
			return w.End()
		}, `{"a":{"b":{}},"c":1}`},

		{"empty array siblings", func(w *jwire.Writer) error {
			w.BeginArray()
			w.BeginArrayElem()
			w.Close()
			w.IntElem(1)
			w.IntElem(2)
			return w.End()
		}, `[[],1,2]`},

		{"sibling collections", func(w *jwire.Writer) error {
			w.BeginObject()
			w.BeginArrayField("a")
			w.IntElem(1)
			w.Close()
			w.BeginArrayField("b")
			w.Close()
			return w.End()
		}, `{"a":[1],"b":[]}`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var out bytes.Buffer
			w, err := jwire.NewWriter(&out, make([]byte, 128))
			if err != nil {
				t.Fatalf("NewWriter: %v", err)
			}
			if err := test.steps(w); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
			if got := out.String(); got != test.want {
				t.Errorf("Output: got %#q, want %#q", got, test.want)
			}
		})
	}
}

func TestWriter_maxDepth(t *testing.T) {
	var out bytes.Buffer
	w, err := jwire.NewWriter(&out, make([]byte, 256))
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.BeginObject(); err != nil {
		t.Fatalf("BeginObject: %v", err)
	}
	for i := 1; i < jwire.DefaultMaxDepth; i++ {
		if err := w.BeginObjectField(fmt.Sprintf("d%d", i)); err != nil {
			t.Fatalf("BeginObjectField(depth %d): %v", i+1, err)
		}
	}
	if got, want := w.Depth(), jwire.DefaultMaxDepth; got != want {
		t.Fatalf("Depth: got %d, want %d", got, want)
	}

	// One more open must fail and leave the current depth writable.
	if err := w.BeginObjectField("over"); !errors.Is(err, jwire.ErrMaxDepth) {
		t.Errorf("BeginObjectField(over): got %v, want ErrMaxDepth", err)
	}
	if err := w.IntField("n", 1); err != nil {
		t.Errorf("IntField after depth failure: %v", err)
	}
	if err := w.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	if _, err := hujson.Parse(out.Bytes()); err != nil {
		t.Errorf("Output is not valid JSON: %v\n%s", err, out.String())
	}
}

func TestWriter_setMaxDepth(t *testing.T) {
	var out bytes.Buffer
	w, err := jwire.NewWriter(&out, make([]byte, 64))
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.SetMaxDepth(2); err != nil {
		t.Fatalf("SetMaxDepth: %v", err)
	}
	w.BeginArray()
	if err := w.BeginArrayElem(); err != nil {
		t.Fatalf("BeginArrayElem: %v", err)
	}
	if err := w.BeginArrayElem(); !errors.Is(err, jwire.ErrMaxDepth) {
		t.Errorf("BeginArrayElem at bound: got %v, want ErrMaxDepth", err)
	}
	if err := w.SetMaxDepth(4); !errors.Is(err, jwire.ErrInvalidState) {
		t.Errorf("SetMaxDepth mid-document: got %v, want ErrInvalidState", err)
	}
	if err := w.SetMaxDepth(0); !errors.Is(err, jwire.ErrInvalidParam) {
		t.Errorf("SetMaxDepth(0): got %v, want ErrInvalidParam", err)
	}
	if err := w.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
}

func TestWriter_endIdempotent(t *testing.T) {
	var out bytes.Buffer
	w, err := jwire.NewWriter(&out, make([]byte, 64))
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	w.BeginObject()
	w.IntField("a", 1)
	if err := w.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	n := out.Len()
	if err := w.End(); err != nil {
		t.Errorf("Second End: %v", err)
	}
	if out.Len() != n {
		t.Errorf("Second End added output: got %#q", out.String()[n:])
	}
}

func TestWriter_stateErrors(t *testing.T) {
	tests := []struct {
		name string
		run  func(w *jwire.Writer) error
		want error
	}{
		{"element in object", func(w *jwire.Writer) error {
			w.BeginObject()
			return w.IntElem(1)
		}, jwire.ErrInvalidState},

		{"field in array", func(w *jwire.Writer) error {
			w.BeginArray()
			return w.IntField("a", 1)
		}, jwire.ErrInvalidState},

		{"field after finalize", func(w *jwire.Writer) error {
			w.BeginObject()
			w.End()
			return w.StringField("a", "b")
		}, jwire.ErrInvalidState},

		{"close with nothing open", func(w *jwire.Writer) error {
			return w.Close()
		}, jwire.ErrInvalidState},

		{"begin mid-document", func(w *jwire.Writer) error {
			w.BeginObject()
			return w.BeginArray()
		}, jwire.ErrInvalidState},

		{"empty key", func(w *jwire.Writer) error {
			w.BeginObject()
			return w.IntField("", 1)
		}, jwire.ErrInvalidParam},

		{"empty raw value", func(w *jwire.Writer) error {
			w.BeginObject()
			return w.RawField("a", nil)
		}, jwire.ErrInvalidParam},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			w, err := jwire.NewWriter(io.Discard, make([]byte, 64))
			if err != nil {
				t.Fatalf("NewWriter: %v", err)
			}
			if err := test.run(w); !errors.Is(err, test.want) {
				t.Errorf("Got error %v, want %v", err, test.want)
			}
		})
	}
}

func TestWriter_paramErrors(t *testing.T) {
	if _, err := jwire.NewWriter(nil, make([]byte, 8)); !errors.Is(err, jwire.ErrInvalidParam) {
		t.Errorf("NewWriter(nil sink): got %v, want ErrInvalidParam", err)
	}
	if _, err := jwire.NewWriter(io.Discard, nil); !errors.Is(err, jwire.ErrInvalidParam) {
		t.Errorf("NewWriter(empty buffer): got %v, want ErrInvalidParam", err)
	}
}

var errSink = errors.New("sink rejected write")

// flakySink fails every write while fail is set, accepting nothing.
type flakySink struct {
	fail bool
	out  bytes.Buffer
}

func (f *flakySink) Write(p []byte) (int, error) {
	if f.fail {
		return 0, errSink
	}
	return f.out.Write(p)
}

func TestWriter_sinkFailure(t *testing.T) {
	sink := &flakySink{fail: true}
	w, err := jwire.NewWriter(sink, make([]byte, 64))
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	w.BeginObject()
	w.StringField("status", "ok")
	w.IntField("count", 3)

	// The final flush fails; the buffered bytes must be retained so that a
	// retried flush delivers the complete document.
	if err := w.End(); !errors.Is(err, errSink) {
		t.Fatalf("End with failing sink: got %v, want %v", err, errSink)
	}
	sink.fail = false
	if err := w.End(); err != nil {
		t.Fatalf("Retried End: %v", err)
	}
	const want = `{"status":"ok","count":3}`
	if got := sink.out.String(); got != want {
		t.Errorf("Output after retry: got %#q, want %#q", got, want)
	}
}

func TestWriter_closeRollback(t *testing.T) {
	// A one-byte buffer forces a flush for every byte, so a failing sink
	// makes the closing token unwritable. Close must leave the collection
	// open so the caller can retry.
	sink := &flakySink{}
	w, err := jwire.NewWriter(sink, make([]byte, 1))
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.BeginObject(); err != nil {
		t.Fatalf("BeginObject: %v", err)
	}
	sink.fail = true
	if err := w.Close(); !errors.Is(err, errSink) {
		t.Fatalf("Close with failing sink: got %v, want %v", err, errSink)
	}
	if got := w.Depth(); got != 1 {
		t.Errorf("Depth after failed Close: got %d, want 1", got)
	}
	sink.fail = false
	if err := w.Close(); err != nil {
		t.Fatalf("Retried Close: %v", err)
	}
	if got := sink.out.String(); got != "{}" {
		t.Errorf("Output: got %#q, want %#q", got, "{}")
	}
}

// dribbleSink accepts at most one byte per write, reporting no error, to
// exercise short-write handling.
type dribbleSink struct{ out bytes.Buffer }

func (d *dribbleSink) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	d.out.WriteByte(p[0])
	return 1, nil
}

func TestWriter_shortWrite(t *testing.T) {
	sink := new(dribbleSink)
	w, err := jwire.NewWriter(sink, make([]byte, 8))
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	w.BeginObject()
	w.StringField("a", "b")
	err = w.End()
	for errors.Is(err, io.ErrShortWrite) {
		err = w.End()
	}
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	const want = `{"a":"b"}`
	if got := sink.out.String(); got != want {
		t.Errorf("Output: got %#q, want %#q", got, want)
	}
}

func TestWriter_reuse(t *testing.T) {
	var out bytes.Buffer
	w, err := jwire.NewWriter(&out, make([]byte, 64))
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	w.BeginObject()
	w.IntField("a", 1)
	if err := w.End(); err != nil {
		t.Fatalf("End: %v", err)
	}

	// A finalized writer may begin a fresh document.
	if err := w.BeginArray(); err != nil {
		t.Fatalf("BeginArray after finalize: %v", err)
	}
	w.IntElem(2)
	if err := w.End(); err != nil {
		t.Fatalf("Second End: %v", err)
	}
	if got, want := out.String(), `{"a":1}[2]`; got != want {
		t.Errorf("Output: got %#q, want %#q", got, want)
	}
}
