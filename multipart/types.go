/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package multipart implements the reading half of MIME multipart
// message bodies, as used by multipart/form-data POST uploads. There
// is no writer side: this core never generates multipart bodies of
// its own, only parses the ones a client sends.
package multipart

import (
	"bufio"
	"errors"
	"io"

	. "github.com/clasp-developers/toot/hdr"
)

type (
	// Form is a parsed multipart form. Its File parts are stored
	// either in memory or on disk, and are accessible via the
	// *FileHeader's Open method. Its Value parts are stored as
	// strings. Both are keyed by field name.
	Form struct {
		Value map[string][]string
		File  map[string][]*FileHeader
	}

	// A FileHeader describes a file part of a multipart request.
	FileHeader struct {
		Filename string
		Header   Header
		Size     int64

		content []byte
		tmpfile string
	}

	// File is an interface to access the file part of a multipart
	// message. Its contents may be either stored in memory or on disk.
	// If stored on disk, the File's underlying concrete type will be
	// an *os.File.
	File interface {
		io.Reader
		io.ReaderAt
		io.Seeker
		io.Closer
	}

	sectionReadCloser struct {
		*io.SectionReader
	}

	// A Part represents a single part in a multipart body.
	Part struct {
		// Header holds the part's headers, canonicalized the same
		// way Request/Response headers are (e.g. "foo-bar" becomes
		// "Foo-Bar").
		Header Header

		mr *Reader

		disposition       string
		dispositionParams map[string]string

		// r reads the part's raw bytes directly from mr; no
		// Content-Transfer-Encoding is decoded.
		r io.Reader

		n       int   // known data bytes waiting in mr.bufReader
		total   int64 // total data bytes read already
		err     error // error to return when n == 0
		readErr error // read error observed from mr.bufReader
	}

	// stickyErrorReader never calls Read on its underlying Reader
	// once an error has been seen, since io.Reader makes no promise
	// about return values after an error and this package does
	// multiple reads past one.
	stickyErrorReader struct {
		r   io.Reader
		err error
	}

	// partReader implements io.Reader by reading raw bytes directly
	// from the wrapped *Part, without any Transfer-Encoding decoding.
	partReader struct {
		p *Part
	}

	// Reader is an iterator over parts in a MIME multipart body.
	// Reader's underlying parser consumes its input as needed.
	// Seeking isn't supported.
	Reader struct {
		bufReader *bufio.Reader

		currentPart *Part
		partsRead   int

		newLine          []byte // "\r\n" or "\n" (set after seeing first boundary line)
		nlDashBoundary   []byte // newLine + "--boundary"
		dashBoundaryDash []byte // "--boundary--"
		dashBoundary     []byte // "--boundary"
	}
)

var (
	emptyParams = make(map[string]string)

	// ErrMessageTooLarge is returned by ReadForm if the message form
	// data is too large to be processed.
	ErrMessageTooLarge = errors.New("multipart: message too large")
)

const (
	// peekBufferSize must be at least 76 for this package to work
	// correctly: \r\n--separator_of_len_70- would otherwise fill the
	// buffer and it wouldn't be safe to consume a single byte from it.
	peekBufferSize = 4096
)
