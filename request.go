package toot

import (
	"fmt"
	"io"
	"io/ioutil"
	"strings"

	"github.com/clasp-developers/toot/hdr"
	"github.com/clasp-developers/toot/multipart"
	"github.com/clasp-developers/toot/url"
	"github.com/clasp-developers/toot/wire"
)

// bodyAccessMode is the body-access mode a Request has committed to.
// Exactly one may be realized per request; see PostParameters,
// BodyStream, and BodyOctets.
type bodyAccessMode int

const (
	bodyAccessNone bodyAccessMode = iota
	bodyAccessPostParameters
	bodyAccessStream
	bodyAccessOctets
)

// ErrBodyAccessConflict is the fatal request-programming error raised
// when a handler asks for a second, different body-access mode on the
// same Request.
var ErrBodyAccessConflict = fmt.Errorf("toot: request body already accessed in a different mode")

// Request is the one object a Handler receives and responds through:
// it carries the incoming request, exposes the three body-access
// modes, and accumulates the outgoing response until SendHeaders
// materializes it onto the wire.
type Request struct {
	// Incoming: set once by the connection engine, read-only
	// afterward.
	RemoteAddr string
	RemotePort string
	Method     string
	RequestURI string
	URL        *url.URL
	ProtoMajor int
	ProtoMinor int
	Proto      string
	Header     hdr.Header

	queryParams url.Values
	queryParsed bool

	incomingCookies       []*Cookie
	incomingCookiesParsed bool

	// Body access
	bodyMode   bodyAccessMode
	postParams url.Values
	postFiles  *multipart.Form
	bodyStream io.Reader
	bodyOctets []byte

	// Outgoing
	StatusCode      int
	ContentType     string
	Charset         string
	contentLength   int64
	contentLengthOK bool

	responseHeader  hdr.Header
	responseCookies []*Cookie

	HeadersSent  bool
	CloseStream  bool
	bytesWritten int64

	tempFiles []string

	// Internal
	acceptor *Acceptor
	stream   *contentStream
	rawBody  io.Reader // body reader bounded per FixLength, before mode selection
}

func newRequest(acceptor *Acceptor, stream *contentStream) *Request {
	return &Request{
		StatusCode:     StatusOK,
		responseHeader: make(hdr.Header),
		CloseStream:    true,
		acceptor:       acceptor,
		stream:         stream,
	}
}

// Query returns the request's parsed GET parameters, parsing
// URL.RawQuery on first use and caching the result.
func (r *Request) Query() url.Values {
	if !r.queryParsed {
		r.queryParams, _ = url.ParseQuery(r.URL.RawQuery)
		if r.queryParams == nil {
			r.queryParams = url.Values{}
		}
		r.queryParsed = true
	}
	return r.queryParams
}

// QueryGet returns the first value of key in the parsed GET
// parameters, or "" if absent. url.Values has no Get method of its
// own (it is a bare map[string][]string), so this is the request-level
// convenience instead.
func (r *Request) QueryGet(key string) string {
	vv := r.Query()[key]
	if len(vv) == 0 {
		return ""
	}
	return vv[0]
}

// Cookies returns the cookies parsed from the incoming Cookie
// header(s), parsing on first use and caching the result.
func (r *Request) Cookies() []*Cookie {
	if !r.incomingCookiesParsed {
		r.incomingCookies = ReadCookies(r.Header, "")
		r.incomingCookiesParsed = true
	}
	return r.incomingCookies
}

// Cookie returns the first incoming cookie named name, or nil.
func (r *Request) Cookie(name string) *Cookie {
	for _, c := range r.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// requireBodyMode enforces the body-access precondition: the first
// call to any of PostParameters/BodyStream/BodyOctets commits the
// request to that mode; any later call asking for a different mode is
// a fatal request-programming error per the body-access contract.
func (r *Request) requireBodyMode(mode bodyAccessMode) error {
	if r.bodyMode == bodyAccessNone {
		r.bodyMode = mode
		return nil
	}
	if r.bodyMode != mode {
		return ErrBodyAccessConflict
	}
	return nil
}

// rawBodyReader lazily builds the framing-correct reader for the raw
// request body: the chunked decoder when Transfer-Encoding: chunked
// is in effect, else a reader bounded to Content-Length, else nil
// when neither framing signal is present (no body to read).
func (r *Request) rawBodyReader() io.Reader {
	if r.rawBody != nil {
		return r.rawBody
	}
	if wire.Chunked(r.Header[hdr.TransferEncoding]) {
		r.rawBody = r.stream.bodyReader()
		return r.rawBody
	}
	// FixLength also hardens against RFC 7230 §3.3.2's duplicate
	// Content-Length attack: it collapses identical repeats and
	// rejects conflicting ones before we trust the value as a frame
	// boundary.
	cl, err := wire.FixLength(false, 0, r.Method, r.Header, nil)
	if err != nil || cl <= 0 {
		return nil
	}
	r.rawBody = io.LimitReader(r.stream.br, cl)
	return r.rawBody
}

// PostParameters parses the request body as form data (either
// application/x-www-form-urlencoded or multipart/form-data, chosen by
// Content-Type) and returns the decoded values. For a multipart body
// the returned Values hold only the non-file fields: file uploads are
// not included in them, and no accessor on Request returns them; their
// temp files are scheduled for deletion at request end.
//
// If neither Content-Length nor chunked input is in effect, this
// returns nil and logs a warning, per the body-access contract.
func (r *Request) PostParameters() (url.Values, error) {
	if err := r.requireBodyMode(bodyAccessPostParameters); err != nil {
		return nil, err
	}
	if r.postParams != nil || r.postFiles != nil {
		return r.postParams, nil
	}

	body := r.rawBodyReader()
	if body == nil {
		r.warn("toot: request has no body-length signal; post_parameters returning nil")
		return nil, nil
	}

	ct := r.Header.Get(hdr.ContentType)
	mediaType, params, _ := multipart.MIMEParseMediaType(ct)

	switch mediaType {
	case "multipart/form-data":
		boundary := params["boundary"]
		if boundary == "" {
			return nil, fmt.Errorf("toot: multipart/form-data missing boundary parameter")
		}
		form, err := multipart.NewReader(body, boundary).ReadForm(maxMultipartMemory)
		if err != nil {
			return nil, err
		}
		r.postFiles = form
		r.postParams = url.Values(form.Value)
		for _, fhs := range form.File {
			for _, fh := range fhs {
				if fh.TempFile() != "" {
					r.tempFiles = append(r.tempFiles, fh.TempFile())
				}
			}
		}
		return r.postParams, nil
	default:
		values, err := url.ParsePostForm(ct, body)
		if err != nil {
			return nil, err
		}
		r.postParams = values
		return values, nil
	}
}

// maxMultipartMemory bounds how much of a multipart/form-data body
// ReadForm keeps resident before spilling file parts to temp files.
const maxMultipartMemory = 32 << 20 // 32 MB

// BodyStream commits the request to streaming body access and returns
// a reader bounded the same way PostParameters would read the body:
// Content-Length bytes, or the chunked stream through its terminating
// chunk. Returns nil if neither framing signal is present.
func (r *Request) BodyStream() (io.Reader, error) {
	if err := r.requireBodyMode(bodyAccessStream); err != nil {
		return nil, err
	}
	if r.bodyStream != nil {
		return r.bodyStream, nil
	}
	body := r.rawBodyReader()
	if body == nil {
		r.warn("toot: request has no body-length signal; body_stream returning nil")
		return nil, nil
	}
	r.bodyStream = body
	return body, nil
}

// BodyOctets commits the request to fully-buffered body access and
// returns the whole body read into memory, with the same framing
// rules as BodyStream.
func (r *Request) BodyOctets() ([]byte, error) {
	if err := r.requireBodyMode(bodyAccessOctets); err != nil {
		return nil, err
	}
	if r.bodyOctets != nil {
		return r.bodyOctets, nil
	}
	body := r.rawBodyReader()
	if body == nil {
		r.warn("toot: request has no body-length signal; body_octets returning nil")
		return nil, nil
	}
	data, err := ioutil.ReadAll(body)
	if err != nil {
		return nil, err
	}
	r.bodyOctets = data
	return data, nil
}

// drainBody reads and discards any unread bytes remaining in the
// request body, so a persistent connection's next request starts at a
// correct frame boundary regardless of whether the handler consumed
// the body at all.
func (r *Request) drainBody() {
	body := r.rawBodyReader()
	if body == nil {
		return
	}
	_, _ = io.Copy(ioutil.Discard, body)
}

// SetHeader sets a response header, replacing any prior value with
// the same name. No-op once HeadersSent is true, per the
// once-materialized invariant.
func (r *Request) SetHeader(name, value string) {
	if r.HeadersSent {
		return
	}
	r.responseHeader.Set(name, value)
}

// AddHeader appends an additional value for a response header.
func (r *Request) AddHeader(name, value string) {
	if r.HeadersSent {
		return
	}
	r.responseHeader.Add(name, value)
}

// SetContentLength declares the response's length in advance. When
// unset, the connection engine falls back to chunked (HTTP/1.1) or a
// closed, length-unknown response (HTTP/1.0), per finalizeResponseHeaders.
func (r *Request) SetContentLength(n int64) {
	r.contentLength = n
	r.contentLengthOK = true
}

// SetCookie schedules c to be emitted as a Set-Cookie response header
// when headers are sent.
func (r *Request) SetCookie(c *Cookie) {
	if r.HeadersSent {
		return
	}
	r.responseCookies = append(r.responseCookies, c)
}

// SendHeaders materializes the response's status line and headers
// onto the wire, applying finalizeResponseHeaders' framing decisions.
// A second call is a no-op. After this returns, Write sends body
// bytes directly (through chunked framing if that was selected).
func (r *Request) SendHeaders() error {
	if r.HeadersSent {
		return nil
	}
	r.finalizeResponseHeaders()

	if err := wire.WriteStatusLine(r.stream.bw, r.StatusCode, ReasonPhrase(r.StatusCode)); err != nil {
		return err
	}
	if err := r.responseHeader.Write(r.stream.bw); err != nil {
		return err
	}
	if _, err := r.stream.bw.WriteString("\r\n"); err != nil {
		return err
	}

	r.HeadersSent = true

	if wire.HasToken(r.responseHeader.Get(hdr.TransferEncoding), wire.DoChunked) {
		r.stream.enableOutputChunking()
	}
	return nil
}

// Write sends body bytes, calling SendHeaders first if they have not
// already been sent (matching a handler that writes directly without
// an explicit SendHeaders call). Writes are a no-op for HEAD requests
// once headers are sent, since the body is never put on the wire for
// HEAD regardless of what a handler writes.
func (r *Request) Write(p []byte) (int, error) {
	if !r.HeadersSent {
		if err := r.SendHeaders(); err != nil {
			return 0, err
		}
	}
	if wire.NoResponseBodyExpected(r.Method) {
		return len(p), nil
	}
	n, err := r.stream.Write(p)
	r.bytesWritten += int64(n)
	return n, err
}

// WriteString is a convenience wrapper around Write.
func (r *Request) WriteString(s string) (int, error) {
	return r.Write([]byte(s))
}

func (r *Request) warn(format string, args ...interface{}) {
	if !r.acceptor.LogWarnings {
		return
	}
	r.acceptor.messageLogger().LogWarning(format, args...)
}

// deleteTempFiles removes every temp file this request created for a
// multipart upload, swallowing deletion errors per the resource
// release rule in the concurrency model.
func (r *Request) deleteTempFiles() {
	for _, path := range r.tempFiles {
		_ = removeFile(path)
	}
	if r.postFiles != nil {
		_ = r.postFiles.RemoveAll()
	}
}

// connectionHasToken reports whether name is present in the request's
// Connection header, ASCII case-insensitively.
func (r *Request) connectionHasToken(name string) bool {
	return wire.HeadersValuesContainToken(r.Header[hdr.Connection], name)
}

// isTextContentType reports whether ct names a text/* media type, used
// to decide whether a "; charset=" parameter is appended.
func isTextContentType(ct string) bool {
	return strings.HasPrefix(ct, "text/")
}
