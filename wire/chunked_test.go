/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package wire

import (
	"bufio"
	"bytes"
	"io"
	"io/ioutil"
	"strings"
	"testing"
)

func TestChunkedReader(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0\r\n\r\n", ""},
		{"5\r\nhello\r\n0\r\n\r\n", "hello"},
		{"3\r\nfoo\r\n3\r\nbar\r\n0\r\n\r\n", "foobar"},
		{"3;ext=val\r\nfoo\r\n0\r\n\r\n", "foo"},
		{"A\r\n0123456789\r\n0\r\n\r\n", "0123456789"},
	}
	for i, tt := range tests {
		cr := NewChunkedReader(bufio.NewReader(strings.NewReader(tt.in)))
		got, err := ioutil.ReadAll(cr)
		if err != nil {
			t.Errorf("#%d: unexpected error: %v", i, err)
			continue
		}
		if string(got) != tt.want {
			t.Errorf("#%d: got %q, want %q", i, got, tt.want)
		}
	}
}

func TestChunkedReaderWithTrailer(t *testing.T) {
	in := "4\r\nabcd\r\n0\r\nX-Trailer: value\r\n\r\n"
	cr := NewChunkedReader(bufio.NewReader(strings.NewReader(in)))
	got, err := ioutil.ReadAll(cr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "abcd" {
		t.Errorf("got %q, want %q", got, "abcd")
	}
}

func TestChunkedWriterRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	cw := NewChunkedWriter(&buf)
	if _, err := cw.Write([]byte("hello ")); err != nil {
		t.Fatal(err)
	}
	if _, err := cw.Write([]byte("world")); err != nil {
		t.Fatal(err)
	}
	if err := cw.Close(); err != nil {
		t.Fatal(err)
	}

	cr := NewChunkedReader(bufio.NewReader(&buf))
	got, err := ioutil.ReadAll(cr)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello world" {
		t.Errorf("got %q, want %q", got, "hello world")
	}
}

func TestChunkedReaderTruncatedIsError(t *testing.T) {
	cr := NewChunkedReader(bufio.NewReader(strings.NewReader("5\r\nhel")))
	_, err := ioutil.ReadAll(cr)
	if err != io.ErrUnexpectedEOF {
		t.Errorf("got %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestHasToken(t *testing.T) {
	tests := []struct {
		header, token string
		want          bool
	}{
		{"", "", false},
		{"", "foo", false},
		{"foo", "foo", true},
		{"foo,bar", "foo", true},
		{"bar,foo", "foo", true},
		{"bar, foo, baz", "foo", true},
		{"FOO", "foo", true},
		{"foobar", "foo", false},
	}
	for _, tt := range tests {
		if got := HasToken(tt.header, tt.token); got != tt.want {
			t.Errorf("HasToken(%q, %q) = %v, want %v", tt.header, tt.token, got, tt.want)
		}
	}
}

func TestParseRequestLine(t *testing.T) {
	method, uri, proto, ok := ParseRequestLine("GET /foo HTTP/1.1")
	if !ok || method != "GET" || uri != "/foo" || proto != "HTTP/1.1" {
		t.Fatalf("got %q %q %q %v", method, uri, proto, ok)
	}
	if _, _, _, ok := ParseRequestLine("GET"); ok {
		t.Fatalf("expected malformed line to fail")
	}
}

func TestParseHTTPVersion(t *testing.T) {
	major, minor, ok := ParseHTTPVersion("HTTP/1.1")
	if !ok || major != 1 || minor != 1 {
		t.Fatalf("got %d.%d %v", major, minor, ok)
	}
	if _, _, ok := ParseHTTPVersion("bogus"); ok {
		t.Fatalf("expected bogus version to fail")
	}
}
