// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

// Package jwire implements bounded-memory, incremental JSON encoding and
// decoding over fixed caller-owned buffers. It is intended for embedded and
// networked programs that must produce or consume JSON documents of
// unbounded logical size from a small, fixed memory region: neither engine
// allocates after construction, and both stream their work through buffers
// the caller provides.
//
// # Writing
//
// The Writer type serializes a nested document incrementally into a fixed
// buffer, draining completed chunks through an io.Writer sink whenever the
// buffer fills or the document is finalized:
//
//	buf := make([]byte, 512)
//	w, err := jwire.NewWriter(conn, buf)
//	...
//	w.BeginObject()
//	w.StringField("status", "ok")
//	w.IntField("count", 3)
//	w.End()
//
// The calls above deliver exactly {"status":"ok","count":3} to the sink, in
// as many chunks as the buffer size dictates. Nesting is opened with the
// BeginObjectField, BeginArrayField, BeginObjectElem, and BeginArrayElem
// methods and closed with Close; End closes everything still open and
// flushes the remainder.
//
// # Scanning
//
// The Scanner type extracts one top-level "key":value pair at a time from an
// append-only receive buffer, without materializing a parse tree. Values are
// located but not decoded: a found pair yields the key and an opaque byte
// span covering the raw value, which the application may hand to a nested
// decoder of its choosing.
//
//	sbuf := make([]byte, 1024)
//	s, err := jwire.NewScanner(sbuf)
//	...
//	s.Append(chunk) // e.g. from a socket read
//	for {
//	    r, err := s.Next()
//	    if err != nil {
//	        ...           // invalid input; scanner has been reset
//	    }
//	    if r == jwire.More {
//	        break         // append more input and try again
//	    } else if r == jwire.Done {
//	        ...           // the object's closing brace was consumed
//	    }
//	    handle(s.Key(), s.Value())
//	    s.Consume()
//	}
//
// The two engines are independent: neither calls the other, and an
// application is free to use either one alone.
//
// # Memory model
//
// Both engines are single-owner and synchronous. All mutable state lives in
// the Writer or Scanner value, the working buffers are borrowed from the
// caller, and no operation suspends internally; the only call out of the
// core is the writer's sink invocation. Neither type is safe for concurrent
// use.
package jwire
