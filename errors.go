package toot

import (
	"runtime"
	"strconv"
	"strings"
)

// captureBacktrace records the caller's call stack, skipping this
// function and its immediate caller, for later formatting by
// formatBacktrace. Only called when log-backtraces or
// show-backtraces-in-error-page is enabled, per the error handling
// design's "captured only when warranted" rule.
func captureBacktrace() []uintptr {
	pc := make([]uintptr, 32)
	n := runtime.Callers(3, pc)
	return pc[:n]
}

// formatBacktrace renders pc as one "func - package/file.go:line" line
// per frame, package/module-prefix stripped, the same shape
// nabbar-golib's errors/trace.go formats its own frames in, since no
// third-party stack-trace formatter in the pack does anything this
// core's error pages need beyond that. A general-purpose stack-trace
// library (e.g. pkg/errors) would pull in an entire error-wrapping
// convention this core doesn't otherwise use; runtime.Callers plus
// this formatting is the smaller, already-grounded surface.
func formatBacktrace(pc []uintptr) string {
	frames := runtime.CallersFrames(pc)
	var b strings.Builder
	for {
		frame, more := frames.Next()
		if frame.Function != "" {
			b.WriteString(trimModulePrefix(frame.Function))
			b.WriteString(" - ")
		}
		b.WriteString(trimModulePrefix(frame.File))
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(frame.Line))
		b.WriteByte('\n')
		if !more {
			break
		}
	}
	return b.String()
}

// trimModulePrefix strips everything up to and including the last
// "github.com/clasp-developers/toot/" or "/mod/" style vendor segment,
// leaving a package-relative path.
func trimModulePrefix(s string) string {
	if i := strings.LastIndex(s, modulePath+"/"); i >= 0 {
		return s[i+len(modulePath)+1:]
	}
	if i := strings.LastIndex(s, "@"); i >= 0 {
		if j := strings.Index(s[i:], "/"); j >= 0 {
			return s[i+j+1:]
		}
	}
	return s
}

const modulePath = "github.com/clasp-developers/toot"
