/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package toot

import (
	"testing"
	"time"

	"github.com/clasp-developers/toot/hdr"
)

func TestCookieString(t *testing.T) {
	tests := []struct {
		cookie *Cookie
		want   string
	}{
		{&Cookie{Name: "session", Value: "abc123"}, "session=abc123"},
		{&Cookie{Name: "session", Value: "abc123", Path: "/foo"}, "session=abc123; Path=/foo"},
		{&Cookie{Name: "session", Value: "abc123", HttpOnly: true, Secure: true}, "session=abc123; HttpOnly; Secure"},
		{&Cookie{Name: "session", Value: "abc123", MaxAge: -1}, "session=abc123; Max-Age=0"},
		{&Cookie{Name: "session", Value: "abc123", MaxAge: 3600}, "session=abc123; Max-Age=3600"},
		{&Cookie{Name: "", Value: "abc123"}, ""},
	}
	for i, tt := range tests {
		if got := tt.cookie.String(); got != tt.want {
			t.Errorf("#%d: got %q, want %q", i, got, tt.want)
		}
	}
}

func TestCookieStringQuotesValueWithComma(t *testing.T) {
	c := &Cookie{Name: "session", Value: "a,b"}
	if got, want := c.String(), `session="a,b"`; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestReadCookies(t *testing.T) {
	h := make(hdr.Header)
	h.Add(hdr.CookieHeader, "a=1; b=2")
	h.Add(hdr.CookieHeader, "c=3")

	cookies := ReadCookies(h, "")
	if len(cookies) != 3 {
		t.Fatalf("got %d cookies, want 3", len(cookies))
	}
	want := map[string]string{"a": "1", "b": "2", "c": "3"}
	for _, c := range cookies {
		if want[c.Name] != c.Value {
			t.Errorf("cookie %s = %q, want %q", c.Name, c.Value, want[c.Name])
		}
	}
}

func TestReadCookiesFilter(t *testing.T) {
	h := make(hdr.Header)
	h.Add(hdr.CookieHeader, "a=1; b=2")

	cookies := ReadCookies(h, "b")
	if len(cookies) != 1 || cookies[0].Name != "b" {
		t.Fatalf("got %v, want a single cookie named b", cookies)
	}
}

func TestReadSetCookies(t *testing.T) {
	h := make(hdr.Header)
	h.Add(hdr.SetCookieHeader, "session=abc; Path=/; HttpOnly; Secure; Max-Age=3600")

	cookies := ReadSetCookies(h)
	if len(cookies) != 1 {
		t.Fatalf("got %d cookies, want 1", len(cookies))
	}
	c := cookies[0]
	if c.Name != "session" || c.Value != "abc" {
		t.Errorf("got name/value %q/%q, want session/abc", c.Name, c.Value)
	}
	if c.Path != "/" || !c.HttpOnly || !c.Secure || c.MaxAge != 3600 {
		t.Errorf("got %+v, attributes not parsed as expected", c)
	}
}

func TestReadSetCookiesExpires(t *testing.T) {
	h := make(hdr.Header)
	h.Add(hdr.SetCookieHeader, "session=abc; Expires=Wed, 21 Oct 2045 07:28:00 GMT")

	cookies := ReadSetCookies(h)
	if len(cookies) != 1 {
		t.Fatalf("got %d cookies, want 1", len(cookies))
	}
	if cookies[0].Expires.Year() != 2045 {
		t.Errorf("Expires year = %d, want 2045", cookies[0].Expires.Year())
	}
}

func TestValidCookieDomain(t *testing.T) {
	tests := []struct {
		domain string
		want   bool
	}{
		{"example.com", true},
		{".example.com", true},
		{"sub.example.com", true},
		{"", false},
		{"-bad.com", false},
		{"bad-.com", false},
	}
	for _, tt := range tests {
		if got := validCookieDomain(tt.domain); got != tt.want {
			t.Errorf("validCookieDomain(%q) = %v, want %v", tt.domain, got, tt.want)
		}
	}
}

func TestValidCookieExpires(t *testing.T) {
	if validCookieExpires(time.Time{}) {
		t.Error("zero time should not be a valid Expires value")
	}
	if !validCookieExpires(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Error("a normal future date should be valid")
	}
}
