/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package url

import (
	"strings"
	"testing"
)

func TestParseQuery(t *testing.T) {
	v, err := ParseQuery("a=1&b=2&a=3&c")
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}
	if got := v["a"]; len(got) != 2 || got[0] != "1" || got[1] != "3" {
		t.Errorf("v[a] = %v, want [1 3]", got)
	}
	if got := v["b"]; len(got) != 1 || got[0] != "2" {
		t.Errorf("v[b] = %v, want [2]", got)
	}
	if got := v["c"]; len(got) != 1 || got[0] != "" {
		t.Errorf("v[c] = %v, want ['']", got)
	}
}

func TestParseRequestURI(t *testing.T) {
	u, err := ParseRequestURI("/foo/bar?a=1")
	if err != nil {
		t.Fatalf("ParseRequestURI: %v", err)
	}
	if u.Path != "/foo/bar" || u.RawQuery != "a=1" {
		t.Errorf("got Path=%q RawQuery=%q", u.Path, u.RawQuery)
	}

	if _, err := ParseRequestURI("not a uri"); err == nil {
		t.Error("expected an error for a URI containing a raw space")
	}
}

func TestParsePostForm(t *testing.T) {
	v, err := ParsePostForm("application/x-www-form-urlencoded", strings.NewReader("name=gopher&lang=go"))
	if err != nil {
		t.Fatalf("ParsePostForm: %v", err)
	}
	if got := v["name"]; len(got) != 1 || got[0] != "gopher" {
		t.Errorf("v[name] = %v, want [gopher]", got)
	}
	if got := v["lang"]; len(got) != 1 || got[0] != "go" {
		t.Errorf("v[lang] = %v, want [go]", got)
	}
}

func TestParsePostFormNilBody(t *testing.T) {
	if _, err := ParsePostForm("application/x-www-form-urlencoded", nil); err == nil {
		t.Error("expected an error for a nil body")
	}
}

func TestValidHostHeader(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"example.com", true},
		{"example.com:8080", true},
		{"*", true},
		{"[::1]:8080", true},
		{"exa mple.com", false},
		{"exa\tmple.com", false},
	}
	for _, tt := range tests {
		if got := ValidHostHeader(tt.host); got != tt.want {
			t.Errorf("ValidHostHeader(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}
}

func TestQueryEscapeUnescapeRoundTrip(t *testing.T) {
	s := "hello world & friends/?"
	escaped := QueryEscape(s)
	got, err := QueryUnescape(escaped)
	if err != nil {
		t.Fatalf("QueryUnescape: %v", err)
	}
	if got != s {
		t.Errorf("round trip got %q, want %q", got, s)
	}
}
