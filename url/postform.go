package url

import (
	"fmt"
	"io"
	"io/ioutil"
	"mime"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// maxPostFormSize bounds how much of an application/x-www-form-urlencoded
// body ParsePostForm will read into memory.
const maxPostFormSize = 10 << 20 // 10 MB

// ParsePostForm decodes an application/x-www-form-urlencoded request
// body into Values. contentType is the request's Content-Type header
// value; when it declares a charset other than UTF-8 or US-ASCII,
// the raw bytes are transcoded to UTF-8 via golang.org/x/text before
// being percent-decoded, since RFC 7231's default external
// representation for this server is UTF-8.
func ParsePostForm(contentType string, body io.Reader) (Values, error) {
	if body == nil {
		return nil, fmt.Errorf("url: missing form body")
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// RFC 2616 §7.2.1: treat an unparsable/absent type as
		// octet-stream, i.e. do not attempt charset transcoding.
		params = nil
	}

	limited := io.LimitReader(body, maxPostFormSize+1)
	raw, err := ioutil.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if len(raw) > maxPostFormSize {
		return nil, fmt.Errorf("url: POST body too large")
	}

	text := string(raw)
	if charset := strings.ToLower(params["charset"]); charset != "" && charset != "utf-8" && charset != "us-ascii" {
		if enc, err := htmlindex.Get(charset); err == nil {
			if decoded, err := enc.NewDecoder().String(text); err == nil {
				text = decoded
			}
		}
	}

	return ParseQuery(text)
}
