/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package hdr

import (
	"io"
	"sort"
	"strings"
)

// Add adds the key, value pair to the header.
// It appends to any existing values associated with key.
func (h Header) Add(key, value string) {
	key = CanonicalHeaderKey(key)
	h[key] = append(h[key], value)
}

// Set sets the header entries associated with key to
// the single element value. It replaces any existing
// values associated with key.
func (h Header) Set(key, value string) {
	h[CanonicalHeaderKey(key)] = []string{value}
}

// Get gets the first value associated with the given key.
// It is case insensitive; CanonicalHeaderKey is used
// to canonicalize the provided key.
// If there are no values associated with the key, Get returns "".
// To access multiple values of a key, or to use non-canonical keys,
// access the map directly.
func (h Header) Get(key string) string {
	if h == nil {
		return ""
	}
	v := h[CanonicalHeaderKey(key)]
	if len(v) == 0 {
		return ""
	}
	return v[0]
}

// get is like Get, but key must already be in CanonicalHeaderKey form.
func (h Header) get(key string) string {
	if v := h[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// Has reports whether the header has any value for key.
func (h Header) Has(key string) bool {
	_, ok := h[CanonicalHeaderKey(key)]
	return ok
}

// Del deletes the values associated with key.
func (h Header) Del(key string) {
	delete(h, CanonicalHeaderKey(key))
}

// Write writes a header in wire format.
func (h Header) Write(w io.Writer) error {
	return h.WriteSubset(w, nil)
}

// Clone returns a copy of the Header.
func (h Header) Clone() Header {
	if h == nil {
		return nil
	}
	h2 := make(Header, len(h))
	for k, vv := range h {
		vv2 := make([]string, len(vv))
		copy(vv2, vv)
		h2[k] = vv2
	}
	return h2
}

// CopyFromHeader copies every value from src into h, preserving
// whatever h already has (it appends, it does not replace).
func (h Header) CopyFromHeader(src Header) {
	for k, vv := range src {
		key := CanonicalHeaderKey(k)
		for _, v := range vv {
			h[key] = append(h[key], v)
		}
	}
}

// sortedKeyValues returns h's keys sorted in the returned kvs
// slice. The headerSorter used to sort is also returned, for possible
// return to headerSorterPool.
func (h Header) sortedKeyValues(exclude map[string]bool) (kvs []keyValues, hs *headerSorter) {
	hs = headerSorterPool.Get().(*headerSorter)
	if cap(hs.kvs) < len(h) {
		hs.kvs = make([]keyValues, 0, len(h))
	}
	kvs = hs.kvs[:0]
	for k, vv := range h {
		if !exclude[k] {
			kvs = append(kvs, keyValues{k, vv})
		}
	}
	hs.kvs = kvs
	sort.Sort(hs)
	return kvs, hs
}

// WriteSubset writes a header in wire format. If exclude is not nil,
// keys where exclude[key] == true are not written.
//
// Unlike the textbook newline-to-space collapse, a value containing an
// embedded newline is written as a genuine RFC 7230 §3.2.4 folded
// continuation: the first line carries up to the first '\n', and every
// following non-empty line is written on its own wire line prefixed with
// a single tab. Empty inner lines are dropped rather than emitted as a
// bare "\r\n\t\r\n", which no reader expects and which several
// intermediaries mishandle.
func (h Header) WriteSubset(w io.Writer, exclude map[string]bool) error {
	ws, ok := w.(writeStringer)
	if !ok {
		ws = stringWriter{w}
	}
	kvs, sorter := h.sortedKeyValues(exclude)
	for _, kv := range kvs {
		for _, v := range kv.values {
			if err := writeHeaderLine(ws, kv.key, v); err != nil {
				headerSorterPool.Put(sorter)
				return err
			}
		}
	}
	headerSorterPool.Put(sorter)
	return nil
}

func writeHeaderLine(ws writeStringer, key, value string) error {
	lines := strings.Split(value, "\n")
	first := true
	for _, line := range lines {
		line = TrimString(strings.TrimSuffix(line, "\r"))
		if !first {
			if line == "" {
				continue
			}
			if _, err := ws.WriteString("\r\n\t"); err != nil {
				return err
			}
			if _, err := ws.WriteString(line); err != nil {
				return err
			}
			continue
		}
		for _, s := range []string{key, ": ", line} {
			if _, err := ws.WriteString(s); err != nil {
				return err
			}
		}
		first = false
	}
	_, err := ws.WriteString("\r\n")
	return err
}
