/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package wire implements the HTTP/1.x line grammar and framing
// decisions the connection engine needs: request-line/status-line
// parsing and writing, Connection/Transfer-Encoding token matching, and
// the chunked transfer-coding codec (RFC 7230 §4.1).
package wire

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/clasp-developers/toot/hdr"
)

const (
	DoChunked  = "chunked"
	DoIdentity = "identity"
	DoClose    = "close"
	DoKeepAlive = "keep-alive"
)

// NoResponseBodyExpected reports whether a response to requestMethod
// never carries a body, regardless of status or headers (RFC 7230
// §3.3.3 #1).
func NoResponseBodyExpected(requestMethod string) bool {
	return requestMethod == "HEAD"
}

// BodyAllowedForStatus reports whether a given response status code
// permits a body. See RFC 2616, section 4.4.
func BodyAllowedForStatus(status int) bool {
	switch {
	case status >= 100 && status <= 199:
		return false
	case status == 204:
		return false
	case status == 304:
		return false
	}
	return true
}

// Chunked reports whether te names chunked as its outermost coding.
func Chunked(te []string) bool { return len(te) > 0 && te[0] == DoChunked }

// FixLength determines the expected body length, per RFC 2616 §4.4 and
// the RFC 7230 §3.3.2 request-smuggling hardening around duplicate
// Content-Length headers. A return of -1 means "unknown" (chunked, or
// read-until-close).
func FixLength(isResponse bool, status int, requestMethod string, header hdr.Header, te []string) (int64, error) {
	isRequest := !isResponse
	contentLens := header[hdr.ContentLength]

	if len(contentLens) > 1 {
		first := strings.TrimSpace(contentLens[0])
		for _, ct := range contentLens[1:] {
			if first != strings.TrimSpace(ct) {
				return 0, fmt.Errorf("wire: message cannot contain multiple Content-Length headers; got %q", contentLens)
			}
		}
		header.Del(hdr.ContentLength)
		header.Add(hdr.ContentLength, first)
		contentLens = header[hdr.ContentLength]
	}

	if NoResponseBodyExpected(requestMethod) {
		if isRequest && len(contentLens) > 0 && !(len(contentLens) == 1 && contentLens[0] == "0") {
			return 0, fmt.Errorf("wire: method cannot contain a Content-Length; got %q", contentLens)
		}
		return 0, nil
	}
	if status/100 == 1 {
		return 0, nil
	}
	switch status {
	case 204, 304:
		return 0, nil
	}

	if Chunked(te) {
		return -1, nil
	}

	var cl string
	if len(contentLens) == 1 {
		cl = strings.TrimSpace(contentLens[0])
	}
	if cl != "" {
		n, err := ParseContentLength(cl)
		if err != nil {
			return -1, err
		}
		return n, nil
	}
	header.Del(hdr.ContentLength)

	if isRequest {
		return 0, nil
	}
	return -1, nil
}

// ParseContentLength trims whitespace from cl and returns -1 if no
// value is set, or the value if it's >= 0.
func ParseContentLength(cl string) (int64, error) {
	cl = strings.TrimSpace(cl)
	if cl == "" {
		return -1, nil
	}
	n, err := strconv.ParseInt(cl, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("wire: bad Content-Length %q", cl)
	}
	return n, nil
}

// ShouldClose determines whether the connection should be closed after
// this message, per the HTTP/1.0 vs HTTP/1.1 Connection-header
// semantics. If removeCloseHeader is true and the connection is being
// kept alive, a lingering "close" token is stripped from the header.
func ShouldClose(major, minor int, header hdr.Header, removeCloseHeader bool) bool {
	if major < 1 {
		return true
	}

	conv := header[hdr.Connection]
	hasClose := HeadersValuesContainToken(conv, DoClose)
	if major == 1 && minor == 0 {
		return hasClose || !HeadersValuesContainToken(conv, DoKeepAlive)
	}

	if hasClose && removeCloseHeader {
		header.Del(hdr.Connection)
	}
	return hasClose
}

// HasToken reports whether header, a comma-separated list of tokens,
// contains token, matched ASCII case-insensitively.
func HasToken(header, token string) bool {
	if len(token) == 0 {
		return false
	}
	return headerValueContainsToken(header, token)
}

// HeadersValuesContainToken reports whether any string in values
// contains the provided token, ASCII case-insensitively.
func HeadersValuesContainToken(values []string, token string) bool {
	for _, v := range values {
		if headerValueContainsToken(v, token) {
			return true
		}
	}
	return false
}

func headerValueContainsToken(v string, token string) bool {
	v = trimOWS(v)
	if v == "" {
		return false
	}
	if comma := strings.IndexByte(v, ','); comma != -1 {
		return tokenEqual(trimOWS(v[:comma]), token) || headerValueContainsToken(v[comma+1:], token)
	}
	return tokenEqual(v, token)
}

func isOWS(b byte) bool { return b == ' ' || b == '\t' }

func trimOWS(x string) string {
	for len(x) > 0 && isOWS(x[0]) {
		x = x[1:]
	}
	for len(x) > 0 && isOWS(x[len(x)-1]) {
		x = x[:len(x)-1]
	}
	return x
}

func tokenEqual(t1, t2 string) bool {
	if len(t1) != len(t2) {
		return false
	}
	for i, b := range t1 {
		if b >= utf8.RuneSelf {
			return false
		}
		if lowerASCII(byte(b)) != lowerASCII(t2[i]) {
			return false
		}
	}
	return true
}

func lowerASCII(b byte) byte {
	if 'A' <= b && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}
