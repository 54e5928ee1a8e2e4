package toot

import (
	"bufio"
	"fmt"
	"io"
	"net"

	"github.com/clasp-developers/toot/wire"
)

// contentStream is the byte-level stream a connection reads requests
// from and writes responses to: the raw (or TLS-wrapped) socket,
// buffered, with independently toggleable chunked input/output
// framing layered on top. Enabling outputChunking routes every Write
// through a wire.ChunkedWriter; enabling inputChunking routes Read
// through a wire.ChunkedReader. Both default off, matching a
// non-chunked HTTP/1.0 exchange.
type contentStream struct {
	conn net.Conn
	br   *bufio.Reader
	bw   *bufio.Writer

	chunkedReader *wire.ChunkedReader
	chunkedWriter *wire.ChunkedWriter
}

func newContentStream(conn net.Conn) *contentStream {
	return &contentStream{
		conn: conn,
		br:   bufio.NewReader(conn),
		bw:   bufio.NewWriter(conn),
	}
}

// enableInputChunking wraps future reads in a chunked decoder. Called
// by the connection engine before the request body is read, when
// Transfer-Encoding: chunked was declared.
func (s *contentStream) enableInputChunking() {
	s.chunkedReader = wire.NewChunkedReader(s.br)
}

// disableInputChunking discards the chunked reader. It does not check
// whether unread chunked data remains; the connection engine calls it
// after processRequest has drained the body.
func (s *contentStream) disableInputChunking() {
	s.chunkedReader = nil
}

// bodyReader returns the reader the connection engine should hand off
// as the raw request body: either the chunked decoder, or (when not
// chunked) the buffered reader itself, which the caller bounds to
// Content-Length, since contentStream has no notion of a fixed-length
// body on its own.
func (s *contentStream) bodyReader() io.Reader {
	if s.chunkedReader != nil {
		return s.chunkedReader
	}
	return s.br
}

// enableOutputChunking routes subsequent Write calls through a
// wire.ChunkedWriter. Called once response headers declaring
// Transfer-Encoding: chunked have been written.
func (s *contentStream) enableOutputChunking() {
	s.chunkedWriter = wire.NewChunkedWriter(s.bw)
}

// disableOutputChunking flushes the terminating zero-size chunk and
// stops chunked framing. Safe to call even if output chunking was
// never enabled.
func (s *contentStream) disableOutputChunking() error {
	if s.chunkedWriter == nil {
		return nil
	}
	err := s.chunkedWriter.Close()
	s.chunkedWriter = nil
	if err == nil {
		err = s.bw.Flush()
	}
	return err
}

func (s *contentStream) Write(p []byte) (int, error) {
	if s.chunkedWriter != nil {
		return s.chunkedWriter.Write(p)
	}
	return s.bw.Write(p)
}

func (s *contentStream) WriteString(str string) (int, error) {
	return s.Write([]byte(str))
}

func (s *contentStream) Flush() error {
	return s.bw.Flush()
}

// Close flushes and closes the underlying connection, ignoring any
// error from either step beyond returning it, per the "best-effort
// close, errors swallowed by the caller" resource-release rule.
func (s *contentStream) Close() error {
	_ = s.bw.Flush()
	return s.conn.Close()
}

func fmtDrainError(n int64, err error) error {
	return fmt.Errorf("toot: draining request body: read %d bytes: %w", n, err)
}
