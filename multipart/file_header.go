package multipart

import (
	"bytes"
	"io"
	"os"
)

// Open opens and returns the FileHeader's associated File.
func (fh *FileHeader) Open() (File, error) {
	if b := fh.content; b != nil {
		r := io.NewSectionReader(bytes.NewReader(b), 0, int64(len(b)))
		return sectionReadCloser{r}, nil
	}
	return os.Open(fh.tmpfile)
}

// TempFile returns the path of the temp file backing fh, or "" if fh
// was small enough to be kept in memory instead of spilled to disk.
func (fh *FileHeader) TempFile() string {
	return fh.tmpfile
}

// Close satisfies the File interface's io.Closer for the in-memory
// case, where there's nothing to release. Referenced by Open's
// in-memory path but not present in the retrieved pack; written fresh
// as a no-op, matching the stdlib multipart package's own treatment
// of section-backed file parts.
func (sectionReadCloser) Close() error { return nil }
