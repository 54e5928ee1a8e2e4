package tootlog

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/clasp-developers/toot"
	"github.com/clasp-developers/toot/hdr"
	"github.com/clasp-developers/toot/url"
)

func newObservedLogger() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.InfoLevel)
	l, _ := New(zap.New(core))
	return l, logs
}

func testRequest(t *testing.T) *toot.Request {
	t.Helper()
	u, err := url.ParseRequestURI("/widgets/1")
	if err != nil {
		t.Fatalf("ParseRequestURI: %v", err)
	}
	req := &toot.Request{
		Method:     "GET",
		URL:        u,
		Header:     make(hdr.Header),
		RemoteAddr: "127.0.0.1",
	}
	return req
}

func TestLogAccessWithoutRequestID(t *testing.T) {
	l, logs := newObservedLogger()
	req := testRequest(t)

	l.LogAccess(req, 200, 42, 0)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["status"] != int64(200) {
		t.Errorf("status field = %v, want 200", fields["status"])
	}
	if _, ok := fields["trace_id"]; ok {
		t.Errorf("trace_id should be absent without an X-Request-Id header")
	}
}

func TestLogAccessWithRequestID(t *testing.T) {
	l, logs := newObservedLogger()
	req := testRequest(t)
	req.Header.Set(RequestIDHeader, "4bf92f3577b34da6a3ce929d0e0e4736")

	l.LogAccess(req, 200, 0, 0)

	fields := logs.All()[0].ContextMap()
	if fields["trace_id"] == nil || fields["trace_id"] == "" {
		t.Errorf("expected a trace_id field to be populated")
	}
	if fields["span_id"] == nil || fields["span_id"] == "" {
		t.Errorf("expected a span_id field to be populated")
	}
}

func TestLogAccessWithMalformedRequestID(t *testing.T) {
	l, logs := newObservedLogger()
	req := testRequest(t)
	req.Header.Set(RequestIDHeader, "not-hex!!")

	l.LogAccess(req, 200, 0, 0)

	fields := logs.All()[0].ContextMap()
	if _, ok := fields["trace_id"]; ok {
		t.Errorf("trace_id should be absent for a malformed X-Request-Id")
	}
}
