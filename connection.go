package toot

import (
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/clasp-developers/toot/hdr"
	"github.com/clasp-developers/toot/url"
	"github.com/clasp-developers/toot/wire"
)

// processConnection runs one connection's request loop: parse a
// request, run it through the handler, write the reply, and repeat
// until the connection closes or the Request asks to close the
// stream. Called by whichever Taskmaster strategy accepted conn (TLS
// wrapping, if configured, already happened in the accept loop).
func (a *Acceptor) processConnection(conn net.Conn) {
	stream := newContentStream(conn)
	defer stream.Close()

	for {
		if a.isShuttingDown() {
			return
		}

		req, err := a.parseRequest(stream, conn)
		if err != nil {
			if err == io.EOF {
				return
			}
			if err == errBadRequestLine {
				a.writeBadRequestAndClose(stream)
				return
			}
			a.messageLogger().LogError("toot: parsing request: %v", err)
			return
		}
		if req == nil {
			// Clean EOF before any byte of a new request arrived.
			return
		}

		if wire.Chunked(req.Header[hdr.TransferEncoding]) {
			stream.enableInputChunking()
		}

		a.enterInFlight()
		start := time.Now()
		a.processRequest(req)
		duration := time.Since(start)
		a.leaveInFlight()

		bytesWritten := req.bytesWritten
		a.accessLog().LogAccess(req, req.StatusCode, bytesWritten, duration)
		if a.metrics != nil {
			a.metrics.ObserveRequest(req.Method, req.URL.Path, req.StatusCode, duration)
		}

		_ = stream.Flush()
		_ = stream.disableOutputChunking()
		stream.disableInputChunking()

		req.deleteTempFiles()

		if req.CloseStream {
			return
		}
	}
}

var errBadRequestLine = fmt.Errorf("toot: malformed request line")

// parseRequest reads and parses one request line plus headers from
// stream, per the WireCodec rules: printable-ASCII request line,
// at-most-three whitespace tokens, HTTP/0.9 fallback when the
// protocol token is absent, obsolete-line-folded headers, and the
// Expect: 100-continue courtesy response. Returns (nil, io.EOF) on a
// clean EOF before any byte of a new request, or on an empty request
// line (the signal to exit the connection loop without error).
func (a *Acceptor) parseRequest(stream *contentStream, conn net.Conn) (*Request, error) {
	line, err := stream.br.ReadString('\n')
	if err != nil {
		if len(line) == 0 {
			return nil, io.EOF
		}
		return nil, err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return nil, io.EOF
	}
	if !isPrintableASCII(line) {
		return nil, errBadRequestLine
	}

	method, requestURI, proto, ok := wire.ParseRequestLine(line)
	if !ok {
		// Only method+URI present: HTTP/0.9 fallback with no headers.
		parts := strings.Fields(line)
		if len(parts) != 2 {
			return nil, errBadRequestLine
		}
		method, requestURI, proto = parts[0], parts[1], "HTTP/0.9"
	}
	if !wire.ValidMethod(method) {
		return nil, errBadRequestLine
	}

	major, minor, ok := wire.ParseHTTPVersion(proto)
	if !ok {
		return nil, errBadRequestLine
	}

	var header hdr.Header
	if proto == "HTTP/0.9" {
		header = make(hdr.Header)
	} else {
		header, err = hdr.NewHeaderReader(stream.br).ReadHeader()
		if err != nil {
			return nil, err
		}
		if !validHeader(header) {
			return nil, errBadRequestLine
		}
	}

	parsedURL, err := url.ParseRequestURI(requestURI)
	if err != nil {
		return nil, errBadRequestLine
	}

	if !validHostHeader(header, major, minor) {
		return nil, errBadRequestLine
	}

	req := newRequest(a, stream)
	req.Method = method
	req.RequestURI = requestURI
	req.URL = parsedURL
	req.Proto = proto
	req.ProtoMajor = major
	req.ProtoMinor = minor
	req.Header = header
	req.RemoteAddr = conn.RemoteAddr().String()
	if host, port, splitErr := net.SplitHostPort(req.RemoteAddr); splitErr == nil {
		req.RemoteAddr = host
		req.RemotePort = port
	}

	if wire.HeadersValuesContainToken(header[hdr.Expect], "100-continue") {
		if err := wire.WriteStatusLine(stream.bw, StatusContinue, ReasonPhrase(StatusContinue)); err != nil {
			return nil, err
		}
		if _, err := stream.bw.WriteString("\r\n"); err != nil {
			return nil, err
		}
		if err := stream.bw.Flush(); err != nil {
			return nil, err
		}
	}

	return req, nil
}

// validHeader reports whether every header field name and value in
// header is well formed, per RFC 7230 §3.2, checked with httpguts (via
// hdr.ValidHeaderFieldName/ValidHeaderFieldValue) rather than a
// hand-rolled table.
func validHeader(header hdr.Header) bool {
	for name, values := range header {
		if !hdr.ValidHeaderFieldName(name) {
			return false
		}
		for _, v := range values {
			if !hdr.ValidHeaderFieldValue(v) {
				return false
			}
		}
	}
	return true
}

// validHostHeader enforces RFC 7230 §5.4: HTTP/1.1 requests must carry
// exactly one Host header, and its value must be a valid host[:port].
// HTTP/1.0 requests may omit Host entirely, but a Host header that is
// present must still be well formed.
func validHostHeader(header hdr.Header, major, minor int) bool {
	hosts := header[hdr.Host]
	if len(hosts) == 0 {
		return !(major == 1 && minor == 1)
	}
	if len(hosts) > 1 {
		return false
	}
	return url.ValidHostHeader(hosts[0])
}

func isPrintableASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			return false
		}
	}
	return true
}

func (a *Acceptor) writeBadRequestAndClose(stream *contentStream) {
	_ = wire.WriteStatusLine(stream.bw, StatusBadRequest, ReasonPhrase(StatusBadRequest))
	_, _ = stream.bw.WriteString("Connection: close\r\n\r\n")
	_ = stream.bw.Flush()
}

// processRequest runs req through the Acceptor's handler and writes
// the reply, per the two nested error-trapping scopes: an inner scope
// around the handler call (an unhandled error or panic becomes a 500,
// or forces close if headers were already sent) and an outer scope
// around the whole response write (a write failure tries one error
// report, then gives up silently).
func (a *Acceptor) processRequest(req *Request) {
	result, err, backtrace := a.invokeHandler(req)

	if err != nil {
		req.StatusCode = StatusInternalServerError
		a.logHandlerError(err)
		if req.HeadersSent {
			// Framing already committed to the wire; an error page
			// appended now would corrupt it. Force close and stop.
			req.CloseStream = true
		} else {
			body := a.errorGenerator.GenerateErrorPage(req, err, backtrace)
			a.writeFinalBody(req, body)
		}
		req.drainBody()
		return
	}

	switch v := result.(type) {
	case Handled:
		if v.bodySet {
			a.writeFinalBody(req, v.Body)
		} else if !req.HeadersSent {
			if sendErr := req.SendHeaders(); sendErr != nil {
				a.logHandlerError(sendErr)
			}
		}
	case NotHandled:
		req.StatusCode = StatusNotFound
		body := a.errorGenerator.GenerateErrorPage(req, nil, nil)
		a.writeFinalBody(req, body)
	case Aborted:
		req.StatusCode = v.Status
		if v.bodySet {
			a.writeFinalBody(req, v.Body)
		} else if !req.HeadersSent {
			if sendErr := req.SendHeaders(); sendErr != nil {
				a.logHandlerError(sendErr)
			}
		}
	}

	req.drainBody()
}

// invokeHandler runs the configured handler inside the inner
// error-trapping scope, also catching AbortRequestHandler's panic
// sentinel and turning it into an Aborted result, and any other panic
// into an error the same as a returned error would be.
func (a *Acceptor) invokeHandler(req *Request) (result Result, err error, backtrace []uintptr) {
	defer func() {
		if rec := recover(); rec != nil {
			if sig, ok := rec.(abortSignal); ok {
				result = sig.result
				return
			}
			if a.LogBacktraces || a.ShowBacktraces {
				backtrace = captureBacktrace()
			}
			if e, ok := rec.(error); ok {
				err = e
			} else {
				err = fmt.Errorf("toot: handler panic: %v", rec)
			}
		}
	}()
	return a.handler.Handle(req), nil, nil
}

func (a *Acceptor) logHandlerError(err error) {
	if !a.LogErrors {
		return
	}
	a.messageLogger().LogError("toot: %v", err)
}

// writeFinalBody sends headers (if not already sent) with the body's
// encoded length known, then writes the body unless the request
// method is HEAD.
func (a *Acceptor) writeFinalBody(req *Request, body string) {
	if !req.HeadersSent {
		req.SetContentLength(int64(len(body)))
	}
	if _, err := req.WriteString(body); err != nil {
		a.logHandlerError(err)
	}
}

// finalizeResponseHeaders applies the framing decisions SendHeaders
// commits to the wire: Date/Content-Type/Server always; Content-Length
// when the body length is known; Transfer-Encoding: chunked when it
// is not and the request is HTTP/1.1; and the keep-alive policy.
func (r *Request) finalizeResponseHeaders() {
	r.responseHeader.Set(hdr.Date, time.Now().UTC().Format(hdr.TimeFormat))
	r.responseHeader.Set(hdr.ServerHeader, r.acceptor.Name)

	ct := r.ContentType
	if ct == "" {
		ct = "text/html"
	}
	if isTextContentType(ct) {
		charset := r.Charset
		if charset == "" {
			charset = "utf-8"
		}
		ct = ct + "; charset=" + charset
	}
	r.responseHeader.Set(hdr.ContentType, ct)

	lengthKnown := wire.NoResponseBodyExpected(r.Method) || r.StatusCode == StatusNotModified || r.contentLengthOK

	if lengthKnown {
		length := r.contentLength
		if !r.contentLengthOK {
			length = 0
		}
		r.responseHeader.Set(hdr.ContentLength, strconv.FormatInt(length, 10))
	} else if r.ProtoMajor == 1 && r.ProtoMinor == 1 {
		r.responseHeader.Set(hdr.TransferEncoding, wire.DoChunked)
	}

	for _, c := range r.responseCookies {
		r.responseHeader.Add(hdr.SetCookieHeader, c.String())
	}

	r.applyKeepAlivePolicy(lengthKnown)
}

// applyKeepAlivePolicy implements §4.5's connection-policy table:
// HTTP/1.1 keeps the connection alive unless the client said close;
// HTTP/1.0 requires the client to explicitly ask for keep-alive.
func (r *Request) applyKeepAlivePolicy(lengthKnown bool) {
	chunked := wire.HasToken(r.responseHeader.Get(hdr.TransferEncoding), wire.DoChunked)
	clientWantsKeepAlive := r.connectionHasToken(wire.DoKeepAlive)
	clientWantsClose := r.connectionHasToken(wire.DoClose)

	canKeepAlive := r.acceptor.PersistentConnections && (chunked || lengthKnown)

	var policyAllows bool
	if r.ProtoMajor == 1 && r.ProtoMinor == 1 {
		policyAllows = !clientWantsClose
	} else {
		policyAllows = clientWantsKeepAlive
	}

	if canKeepAlive && policyAllows {
		r.CloseStream = false
		if r.ProtoMajor == 1 && r.ProtoMinor == 0 {
			r.responseHeader.Set(hdr.Connection, wire.DoKeepAlive)
		} else if clientWantsKeepAlive {
			r.responseHeader.Set(hdr.Connection, wire.DoKeepAlive)
		}
		if r.acceptor.ReadTimeout > 0 {
			r.responseHeader.Set(hdr.KeepAlive, fmt.Sprintf("timeout=%d", int(r.acceptor.ReadTimeout/time.Second)))
		}
		return
	}

	r.CloseStream = true
	r.responseHeader.Set(hdr.Connection, wire.DoClose)
}
