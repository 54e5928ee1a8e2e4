/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package hdr

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestHeaderWrite(t *testing.T) {
	var buf bytes.Buffer

	var headerWriteTests = []struct {
		h        Header
		exclude  map[string]bool
		expected string
	}{
		{Header{}, nil, ""},
		{
			Header{
				ContentType:   {"text/html; charset=UTF-8"},
				ContentLength: {"0"},
			},
			nil,
			"Content-Length: 0\r\nContent-Type: text/html; charset=UTF-8\r\n",
		},
		{
			Header{
				ContentLength: {"0", "1", "2"},
			},
			nil,
			"Content-Length: 0\r\nContent-Length: 1\r\nContent-Length: 2\r\n",
		},
		{
			Header{
				Expires:         {"-1"},
				ContentLength:   {"0"},
				ContentEncoding: {"gzip"},
			},
			map[string]bool{ContentLength: true},
			"Content-Encoding: gzip\r\nExpires: -1\r\n",
		},
		{
			Header{
				"Nil":          nil,
				"Empty":        {},
				"Blank":        {""},
				"Double-Blank": {"", ""},
			},
			nil,
			"Blank: \r\nDouble-Blank: \r\nDouble-Blank: \r\n",
		},
	}

	for i, test := range headerWriteTests {
		if err := test.h.WriteSubset(&buf, test.exclude); err != nil {
			t.Fatalf("#%d: %v", i, err)
		}
		if buf.String() != test.expected {
			t.Errorf("#%d:\n got: %q\nwant: %q", i, buf.String(), test.expected)
		}
		buf.Reset()
	}
}

func TestHeaderWriteFoldsMultilineValues(t *testing.T) {
	var buf bytes.Buffer
	h := Header{"X-Multi": {"first\nsecond\n\nthird"}}
	if err := h.WriteSubset(&buf, nil); err != nil {
		t.Fatal(err)
	}
	want := "X-Multi: first\r\n\tsecond\r\n\tthird\r\n"
	if buf.String() != want {
		t.Errorf("got: %q\nwant: %q", buf.String(), want)
	}
}

func TestParseTime(t *testing.T) {
	var parseTimeTests = []struct {
		value string
		err   bool
	}{
		{"", true},
		{"invalid", true},
		{"1994-11-06T08:49:37Z00:00", true},
		{"Sun, 06 Nov 1994 08:49:37 GMT", false},
		{"Sunday, 06-Nov-94 08:49:37 GMT", false},
		{"Sun Nov  6 08:49:37 1994", false},
	}

	expect := time.Date(1994, 11, 6, 8, 49, 37, 0, time.UTC)
	for i, test := range parseTimeTests {
		d, err := ParseTime(test.value)
		if err != nil {
			if !test.err {
				t.Errorf("#%d: got err: %v", i, err)
			}
			continue
		}
		if test.err {
			t.Errorf("#%d: should have errored", i)
			continue
		}
		if !expect.Equal(d) {
			t.Errorf("#%d: got: %v want: %v", i, d, expect)
		}
	}
}

func TestCanonicalHeaderKey(t *testing.T) {
	cases := map[string]string{
		"accept-encoding": "Accept-Encoding",
		"HOST":            "Host",
		"content-type":    "Content-Type",
		"x-request-id":    "X-Request-Id",
	}
	for in, want := range cases {
		if got := CanonicalHeaderKey(in); got != want {
			t.Errorf("CanonicalHeaderKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestReadHeaderFoldsContinuations(t *testing.T) {
	raw := "Host: example.com\r\n" +
		"X-Long: first\r\n" +
		" second\r\n" +
		"\tthird\r\n" +
		"\r\n"
	r := NewHeaderReader(bufio.NewReader(strings.NewReader(raw)))
	h, err := r.ReadHeader()
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if got := h.Get("Host"); got != "example.com" {
		t.Errorf("Host = %q", got)
	}
	if got := h.Get("X-Long"); got != "first second third" {
		t.Errorf("X-Long = %q", got)
	}
}
