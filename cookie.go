/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package toot

import (
	"bytes"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/clasp-developers/toot/hdr"
)

// A Cookie represents an HTTP cookie as sent in the Set-Cookie header
// of a response or the Cookie header of a request.
//
// See http://tools.ietf.org/html/rfc6265 for details.
type Cookie struct {
	Name  string
	Value string

	Path       string    // optional
	Domain     string    // optional
	Expires    time.Time // optional
	RawExpires string    // set only when read from a Set-Cookie header

	// MaxAge=0 means no 'Max-Age' attribute specified.
	// MaxAge<0 means delete cookie now, equivalently 'Max-Age: 0'.
	// MaxAge>0 means the Max-Age attribute is present, value in seconds.
	MaxAge   int
	Secure   bool
	HttpOnly bool
	Raw      string
	Unparsed []string // raw text of attribute-value pairs String couldn't parse
}

// String returns the serialization of the cookie for use in a Cookie
// header (if only Name and Value are set) or a Set-Cookie response
// header (if other fields are set). If c is nil or c.Name is invalid,
// the empty string is returned.
func (c *Cookie) String() string {
	if c == nil || !isCookieNameValid(c.Name) {
		return ""
	}
	var b bytes.Buffer
	b.WriteString(sanitizeCookieName(c.Name))
	b.WriteRune('=')
	b.WriteString(sanitizeCookieValue(c.Value))

	if len(c.Path) > 0 {
		b.WriteString("; Path=")
		b.WriteString(sanitizeCookiePath(c.Path))
	}
	if len(c.Domain) > 0 {
		if validCookieDomain(c.Domain) {
			// A Domain containing illegal characters is not sanitized
			// but simply dropped, which turns the cookie into a
			// host-only cookie. A leading dot is okay but won't be
			// sent.
			d := c.Domain
			if d[0] == '.' {
				d = d[1:]
			}
			b.WriteString("; Domain=")
			b.WriteString(d)
		} else {
			log.Printf("toot: invalid Cookie.Domain %q; dropping domain attribute", c.Domain)
		}
	}
	if validCookieExpires(c.Expires) {
		b.WriteString("; Expires=")
		b2 := b.Bytes()
		b.Reset()
		b.Write(c.Expires.UTC().AppendFormat(b2, hdr.TimeFormat))
	}
	if c.MaxAge > 0 {
		b.WriteString("; Max-Age=")
		b2 := b.Bytes()
		b.Reset()
		b.Write(strconv.AppendInt(b2, int64(c.MaxAge), 10))
	} else if c.MaxAge < 0 {
		b.WriteString("; Max-Age=0")
	}
	if c.HttpOnly {
		b.WriteString("; HttpOnly")
	}
	if c.Secure {
		b.WriteString("; Secure")
	}
	return b.String()
}

// ReadCookies parses all "Cookie" values from h and returns the
// successfully parsed Cookies. If filter is not empty, only cookies
// with that name are returned.
func ReadCookies(h hdr.Header, filter string) []*Cookie {
	var result []*Cookie
	lines, ok := h[hdr.CookieHeader]
	if !ok {
		return result
	}

	for _, line := range lines {
		parts := strings.Split(strings.TrimSpace(line), ";")
		if len(parts) == 1 && parts[0] == "" {
			continue
		}
		for i := 0; i < len(parts); i++ {
			parts[i] = strings.TrimSpace(parts[i])
			if len(parts[i]) == 0 {
				continue
			}
			name, val := parts[i], ""
			if j := strings.IndexByte(parts[i], '='); j >= 0 {
				name, val = parts[i][:j], parts[i][j+1:]
			}
			if !isCookieNameValid(name) {
				continue
			}
			if filter != "" && filter != name {
				continue
			}
			val, ok := parseCookieValue(val, true)
			if !ok {
				continue
			}
			result = append(result, &Cookie{Name: name, Value: val})
		}
	}
	return result
}

// ReadSetCookies parses all "Set-Cookie" values from h and returns the
// successfully parsed Cookies.
func ReadSetCookies(h hdr.Header) []*Cookie {
	cookieCount := len(h[hdr.SetCookieHeader])
	if cookieCount == 0 {
		return nil
	}
	cookies := make([]*Cookie, 0, cookieCount)
	for _, line := range h[hdr.SetCookieHeader] {
		parts := strings.Split(strings.TrimSpace(line), ";")
		if len(parts) == 1 && parts[0] == "" {
			continue
		}
		parts[0] = strings.TrimSpace(parts[0])
		j := strings.IndexByte(parts[0], '=')
		if j < 0 {
			continue
		}
		name, value := parts[0][:j], parts[0][j+1:]
		if !isCookieNameValid(name) {
			continue
		}
		value, ok := parseCookieValue(value, true)
		if !ok {
			continue
		}
		c := &Cookie{
			Name:  name,
			Value: value,
			Raw:   line,
		}
		for i := 1; i < len(parts); i++ {
			parts[i] = strings.TrimSpace(parts[i])
			if len(parts[i]) == 0 {
				continue
			}

			attr, val := parts[i], ""
			if j := strings.IndexByte(attr, '='); j >= 0 {
				attr, val = attr[:j], attr[j+1:]
			}
			lowerAttr := strings.ToLower(attr)
			val, ok = parseCookieValue(val, false)
			if !ok {
				c.Unparsed = append(c.Unparsed, parts[i])
				continue
			}
			switch lowerAttr {
			case "secure":
				c.Secure = true
				continue
			case "httponly":
				c.HttpOnly = true
				continue
			case "domain":
				c.Domain = val
				continue
			case "max-age":
				secs, err := strconv.Atoi(val)
				if err != nil || (secs != 0 && val[0] == '0') {
					break
				}
				if secs <= 0 {
					secs = -1
				}
				c.MaxAge = secs
				continue
			case "expires":
				c.RawExpires = val
				exptime, err := time.Parse(time.RFC1123, val)
				if err != nil {
					exptime, err = time.Parse("Mon, 02-Jan-2006 15:04:05 MST", val)
					if err != nil {
						c.Expires = time.Time{}
						break
					}
				}
				c.Expires = exptime.UTC()
				continue
			case "path":
				c.Path = val
				continue
			}
			c.Unparsed = append(c.Unparsed, parts[i])
		}
		cookies = append(cookies, c)
	}
	return cookies
}

func parseCookieValue(raw string, allowDoubleQuote bool) (string, bool) {
	if allowDoubleQuote && len(raw) > 1 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		raw = raw[1 : len(raw)-1]
	}
	for i := 0; i < len(raw); i++ {
		if !validCookieValueByte(raw[i]) {
			return "", false
		}
	}
	return raw, true
}

// The following validators/sanitizers are called from String, ReadCookies
// and ReadSetCookies above but their bodies were not present anywhere in
// the retrieved teacher pack (confirmed by exhaustive grep across every
// cli/*.go file) even though their call sites were. Written fresh against
// RFC 6265 §4.1's grammar:
//
//	cookie-name       = token
//	cookie-value      = *cookie-octet | ( DQUOTE *cookie-octet DQUOTE )
//	cookie-octet      = %x21 / %x23-2B / %x2D-3A / %x3C-5B / %x5D-7E
//	                     ; US-ASCII characters excluding CTLs, whitespace,
//	                     ; DQUOTE, comma, semicolon, and backslash
//	path-value        = *av-octet   ; av-octet excludes CTL and ";"

func isCookieNameValid(name string) bool {
	if name == "" {
		return false
	}
	return strings.IndexFunc(name, isNotCookieNameRune) < 0
}

func isNotCookieNameRune(r rune) bool {
	return !hdr.IsTokenRune(r)
}

func validCookieValueByte(b byte) bool {
	return 0x20 <= b && b < 0x7f && b != '"' && b != ';' && b != '\\'
}

func validCookiePathByte(b byte) bool {
	return 0x20 <= b && b < 0x7f && b != ';'
}

// sanitizeCookieName strips characters that would break Cookie/Set-Cookie
// parsing out of a name that is assumed already validated by
// isCookieNameValid; kept as a defense-in-depth pass mirroring the
// teacher's call shape (String calls a sanitizer even after validating).
func sanitizeCookieName(name string) string {
	return strings.NewReplacer("\n", "-", "\r", "-").Replace(name)
}

// sanitizeCookieValue drops or quotes bytes a cookie-value forbids,
// per RFC 6265 §4.1.1.
func sanitizeCookieValue(v string) string {
	v = sanitizeOrWarn("Cookie.Value", validCookieValueByte, v)
	if len(v) == 0 {
		return v
	}
	if strings.IndexByte(v, ' ') >= 0 || strings.IndexByte(v, ',') >= 0 {
		return `"` + v + `"`
	}
	return v
}

func sanitizeCookiePath(v string) string {
	return sanitizeOrWarn("Cookie.Path", validCookiePathByte, v)
}

func sanitizeOrWarn(fieldName string, valid func(byte) bool, v string) string {
	ok := true
	for i := 0; i < len(v); i++ {
		if valid(v[i]) {
			continue
		}
		log.Printf("toot: invalid byte %q in %s; dropping invalid bytes", v[i], fieldName)
		ok = false
		break
	}
	if ok {
		return v
	}
	buf := make([]byte, 0, len(v))
	for i := 0; i < len(v); i++ {
		if b := v[i]; valid(b) {
			buf = append(buf, b)
		}
	}
	return string(buf)
}

// validCookieDomain reports whether v is a valid Domain attribute value,
// RFC 6265 §4.1.2.3 (a subdomain, optionally prefixed with a dot).
func validCookieDomain(v string) bool {
	if isCookieDomainName(v) {
		return true
	}
	if len(v) > 0 && v[0] == '.' {
		return isCookieDomainName(v[1:])
	}
	return false
}

func isCookieDomainName(s string) bool {
	if len(s) == 0 {
		return false
	}
	if len(s) > 255 {
		return false
	}

	last := byte('.')
	ok := false
	partlen := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		default:
			return false
		case 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || c == '_':
			ok = true
			partlen++
		case '0' <= c && c <= '9':
			partlen++
		case c == '-':
			if last == '.' {
				return false
			}
			partlen++
		case c == '.':
			if last == '.' || last == '-' {
				return false
			}
			if partlen > 63 || partlen == 0 {
				return false
			}
			partlen = 0
		}
		last = c
	}
	if last == '-' || partlen > 63 {
		return false
	}
	return ok
}

func validCookieExpires(t time.Time) bool {
	// Expires cannot be encoded before the year 1601 in the wire format
	// hdr.TimeFormat uses, and giving a year that large is nonsensical
	// for a response from this server.
	return t.Year() >= 1601
}
