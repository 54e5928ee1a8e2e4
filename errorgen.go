package toot

import "strings"

// htmlReplacer escapes the handful of characters that matter when
// interpolating arbitrary text (error messages, backtraces) into the
// default error page's HTML body.
var htmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&#34;",
	"'", "&#39;",
)

// ErrorGenerator renders the body of an error response. err is non-nil
// only when the triggering failure was an unhandled handler error;
// backtrace is non-nil only then and only when log-backtraces or
// show-backtraces is enabled. Whether either is shown is up to the
// generator (the default one checks its show-errors/show-backtraces
// flags).
type ErrorGenerator interface {
	GenerateErrorPage(req *Request, err error, backtrace []uintptr) string
}

// defaultErrorGenerator is the minimal HTML page used when an
// Acceptor isn't configured with its own ErrorGenerator.
type defaultErrorGenerator struct {
	showErrors     bool
	showBacktraces bool
}

func (g defaultErrorGenerator) GenerateErrorPage(req *Request, err error, backtrace []uintptr) string {
	status := req.StatusCode
	reason := ReasonPhrase(status)

	var b strings.Builder
	b.WriteString("<html><head><title>")
	b.WriteString(itoa(status))
	b.WriteByte(' ')
	b.WriteString(reason)
	b.WriteString("</title></head><body><h1>")
	b.WriteString(itoa(status))
	b.WriteByte(' ')
	b.WriteString(reason)
	b.WriteString("</h1>")

	if g.showErrors && err != nil {
		b.WriteString("<pre>")
		b.WriteString(htmlReplacer.Replace(err.Error()))
		b.WriteString("</pre>")
	}
	if g.showBacktraces && len(backtrace) > 0 {
		frames := formatBacktrace(backtrace)
		b.WriteString("<pre>")
		b.WriteString(htmlReplacer.Replace(frames))
		b.WriteString("</pre>")
	}

	b.WriteString("</body></html>")
	return b.String()
}
