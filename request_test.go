package toot

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/clasp-developers/toot/hdr"
	"github.com/clasp-developers/toot/url"
)

func newTestRequest(t *testing.T) (*Request, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() { _ = server.Close(); _ = client.Close() })

	a := New(WithName("testsrv"))
	stream := newContentStream(server)
	req := newRequest(a, stream)
	req.Method = "GET"
	req.Header = make(hdr.Header)
	req.ProtoMajor, req.ProtoMinor = 1, 1
	u, err := url.ParseRequestURI("/foo?a=1&a=2&b=hello")
	if err != nil {
		t.Fatalf("ParseRequestURI: %v", err)
	}
	req.URL = u
	return req, client
}

func TestRequestQueryParsesAndCaches(t *testing.T) {
	req, _ := newTestRequest(t)

	q := req.Query()
	if got := q["a"]; len(got) != 2 || got[0] != "1" || got[1] != "2" {
		t.Fatalf("Query()[a] = %v, want [1 2]", got)
	}
	if got := req.QueryGet("b"); got != "hello" {
		t.Fatalf("QueryGet(b) = %q, want hello", got)
	}
	if got := req.QueryGet("missing"); got != "" {
		t.Fatalf("QueryGet(missing) = %q, want empty", got)
	}

	if !req.queryParsed {
		t.Fatalf("queryParsed should be true after first Query() call")
	}
	// second call must return the same cached values
	if got := req.Query()["b"]; len(got) != 1 || got[0] != "hello" {
		t.Fatalf("second Query()[b] = %v, want [hello]", got)
	}
}

func TestRequestBodyAccessConflict(t *testing.T) {
	req, _ := newTestRequest(t)
	req.Header.Set(hdr.ContentLength, "0")

	if _, err := req.BodyStream(); err != nil {
		t.Fatalf("BodyStream: %v", err)
	}
	if _, err := req.BodyOctets(); err != ErrBodyAccessConflict {
		t.Fatalf("BodyOctets after BodyStream: got %v, want ErrBodyAccessConflict", err)
	}
	// repeating the committed mode is fine
	if _, err := req.BodyStream(); err != nil {
		t.Fatalf("BodyStream again: %v", err)
	}
}

func TestRequestSetHeaderNoopAfterHeadersSent(t *testing.T) {
	req, client := newTestRequest(t)
	defer client.Close()

	done := make(chan struct{})
	go func() {
		_, _ = bufio.NewReader(client).ReadString('\n')
		close(done)
	}()

	if err := req.SendHeaders(); err != nil {
		t.Fatalf("SendHeaders: %v", err)
	}
	if err := req.stream.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	req.SetHeader("X-Extra", "late")
	if req.responseHeader.Get("X-Extra") != "" {
		t.Fatalf("SetHeader after HeadersSent should be a no-op")
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out reading status line")
	}
}

func TestFinalizeResponseHeadersContentLength(t *testing.T) {
	req, _ := newTestRequest(t)
	req.SetContentLength(5)
	req.ContentType = "text/plain"

	req.finalizeResponseHeaders()

	if got := req.responseHeader.Get(hdr.ContentLength); got != "5" {
		t.Errorf("Content-Length = %q, want 5", got)
	}
	if got := req.responseHeader.Get(hdr.ContentType); got != "text/plain; charset=utf-8" {
		t.Errorf("Content-Type = %q, want text/plain; charset=utf-8", got)
	}
	if req.responseHeader.Get(hdr.TransferEncoding) != "" {
		t.Errorf("Transfer-Encoding should not be set when length is known")
	}
}

func TestFinalizeResponseHeadersChunkedWhenLengthUnknown(t *testing.T) {
	req, _ := newTestRequest(t)

	req.finalizeResponseHeaders()

	if got := req.responseHeader.Get(hdr.TransferEncoding); got != "chunked" {
		t.Errorf("Transfer-Encoding = %q, want chunked", got)
	}
	if req.responseHeader.Get(hdr.ContentLength) != "" {
		t.Errorf("Content-Length should not be set alongside chunked framing")
	}
}

func TestApplyKeepAlivePolicyHTTP11ClosesOnClientRequest(t *testing.T) {
	req, _ := newTestRequest(t)
	req.Header.Set(hdr.Connection, "close")
	req.SetContentLength(0)

	req.finalizeResponseHeaders()

	if !req.CloseStream {
		t.Errorf("CloseStream = false, want true when client sent Connection: close")
	}
	if got := req.responseHeader.Get(hdr.Connection); got != "close" {
		t.Errorf("Connection header = %q, want close", got)
	}
}

func TestApplyKeepAlivePolicyHTTP10RequiresExplicitKeepAlive(t *testing.T) {
	req, _ := newTestRequest(t)
	req.ProtoMajor, req.ProtoMinor = 1, 0
	req.SetContentLength(0)

	req.finalizeResponseHeaders()
	if !req.CloseStream {
		t.Errorf("HTTP/1.0 without Connection: keep-alive should close")
	}

	req2, _ := newTestRequest(t)
	req2.ProtoMajor, req2.ProtoMinor = 1, 0
	req2.Header.Set(hdr.Connection, "keep-alive")
	req2.SetContentLength(0)

	req2.finalizeResponseHeaders()
	if req2.CloseStream {
		t.Errorf("HTTP/1.0 with Connection: keep-alive should stay open")
	}
}

func TestIsTextContentType(t *testing.T) {
	cases := map[string]bool{
		"text/html":       true,
		"text/plain":      true,
		"application/json": false,
		"":                false,
	}
	for ct, want := range cases {
		if got := isTextContentType(ct); got != want {
			t.Errorf("isTextContentType(%q) = %v, want %v", ct, got, want)
		}
	}
}
