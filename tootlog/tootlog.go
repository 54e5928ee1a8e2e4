// Package tootlog is an AccessLogger/MessageLogger pair, installed with
// toot.WithLogger (the Acceptor's own default logger is not this one):
// one
// structured zap entry per completed request, with a zipkin-style
// trace/span id attached when the client supplied a correlation id on
// the X-Request-Id header, the same adapter shape
// cloudfoundry-gorouter's logger package uses to attach zipkin trace
// info to a lager-facing zap logger, adapted here to toot's own
// Request/AccessLogger contract instead of lager.
package tootlog

import (
	"strings"
	"time"

	"github.com/openzipkin/zipkin-go/idgenerator"
	"github.com/openzipkin/zipkin-go/model"
	"go.uber.org/zap"

	"github.com/clasp-developers/toot"
)

// RequestIDHeader is the header this package inspects for an incoming
// correlation id, hex-encoded as a zipkin trace id.
const RequestIDHeader = "X-Request-Id"

// Logger wraps a *zap.Logger to satisfy both toot.AccessLogger and
// toot.MessageLogger.
type Logger struct {
	z *zap.Logger
}

// New wraps z. Pass nil to build a production zap.Logger with
// default settings.
func New(z *zap.Logger) (*Logger, error) {
	if z == nil {
		built, err := zap.NewProduction()
		if err != nil {
			return nil, err
		}
		z = built
	}
	return &Logger{z: z}, nil
}

// LogAccess emits one structured "request" entry per completed
// request: method, path, status, bytes written, duration, and a
// trace/span id pair when the request carried one.
func (l *Logger) LogAccess(req *toot.Request, status int, bytesWritten int64, duration time.Duration) {
	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", status),
		zap.Int64("bytes", bytesWritten),
		zap.Duration("duration", duration),
		zap.String("remote_addr", req.RemoteAddr),
	}
	if traceID, spanID, ok := traceInfo(req); ok {
		fields = append(fields, zap.String("trace_id", traceID), zap.String("span_id", spanID))
	}
	l.z.Info("request", fields...)
}

// LogError logs an operational error at zap's error level.
func (l *Logger) LogError(format string, args ...interface{}) {
	l.z.Sugar().Errorf(format, args...)
}

// LogWarning logs an operational warning at zap's warn level.
func (l *Logger) LogWarning(format string, args ...interface{}) {
	l.z.Sugar().Warnf(format, args...)
}

// traceInfo derives a zipkin trace id from the request's X-Request-Id
// header (hex-decoded) and a fresh random span id under it, mirroring
// LagerAdapter.WithTraceInfo's header-to-trace-id derivation.
func traceInfo(req *toot.Request) (traceID, spanID string, ok bool) {
	raw := req.Header.Get(RequestIDHeader)
	if raw == "" {
		return "", "", false
	}
	hex := strings.ReplaceAll(raw, "-", "")
	tid, err := model.TraceIDFromHex(hex)
	if err != nil {
		return "", "", false
	}
	sid := idgenerator.NewRandom128().SpanID(tid)
	return tid.String(), sid.String(), true
}
