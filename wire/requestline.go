/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package wire

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseRequestLine parses "GET /foo HTTP/1.1" into its three
// space-delimited parts, splitting at the first two single spaces;
// everything after the second space is returned as proto. It returns
// ok=false when the line has fewer than two spaces (HTTP/0.9's bare
// "GET /foo" is handled separately by the caller, which falls back to
// HTTP/0.9 after ParseRequestLine reports ok=false).
func ParseRequestLine(line string) (method, requestURI, proto string, ok bool) {
	s1 := strings.IndexByte(line, ' ')
	if s1 < 0 {
		return "", "", "", false
	}
	s2 := strings.IndexByte(line[s1+1:], ' ')
	if s2 < 0 {
		return "", "", "", false
	}
	s2 += s1 + 1
	return line[:s1], line[s1+1 : s2], line[s2+1:], true
}

// ParseHTTPVersion parses an HTTP version string per RFC 7230 §2.6,
// "HTTP/X.Y", returning the major and minor version numbers.
func ParseHTTPVersion(vers string) (major, minor int, ok bool) {
	const Big = 1000000 // safety limit, arbitrary
	switch vers {
	case "HTTP/1.1":
		return 1, 1, true
	case "HTTP/1.0":
		return 1, 0, true
	}
	if !strings.HasPrefix(vers, "HTTP/") {
		return 0, 0, false
	}
	dot := strings.IndexByte(vers, '.')
	if dot < 0 {
		return 0, 0, false
	}
	major, err := strconv.Atoi(vers[5:dot])
	if err != nil || major < 0 || major > Big {
		return 0, 0, false
	}
	minor, err = strconv.Atoi(vers[dot+1:])
	if err != nil || minor < 0 || minor > Big {
		return 0, 0, false
	}
	return major, minor, true
}

// ValidMethod reports whether method is a syntactically valid
// request method token (RFC 7230 §3.1.1: "token").
func ValidMethod(method string) bool {
	if len(method) == 0 {
		return false
	}
	for i := 0; i < len(method); i++ {
		if !isTokenByte(method[i]) {
			return false
		}
	}
	return true
}

func isTokenByte(b byte) bool {
	switch {
	case b >= '0' && b <= '9', b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z':
		return true
	}
	switch b {
	case '!', '#', '$', '%', '&', '\'', '*', '+', '-', '.', '^', '_', '`', '|', '~':
		return true
	}
	return false
}

// WriteRequestLine writes "METHOD requestURI HTTP/major.minor\r\n".
func WriteRequestLine(w io.Writer, method, requestURI string, major, minor int) error {
	_, err := fmt.Fprintf(w, "%s %s HTTP/%d.%d\r\n", method, requestURI, major, minor)
	return err
}

// WriteStatusLine writes "HTTP/1.1 code reason\r\n". Per the
// framing rules, the server always answers with HTTP/1.1 in the
// status line regardless of the request's declared version, since a
// conforming HTTP/1.1 server is also a conforming response to an
// HTTP/1.0 client.
func WriteStatusLine(w io.Writer, code int, reason string) error {
	_, err := fmt.Fprintf(w, "HTTP/1.1 %d %s\r\n", code, reason)
	return err
}
