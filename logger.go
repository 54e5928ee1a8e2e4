package toot

import (
	"time"

	"go.uber.org/zap"
)

// AccessLogger records one line per completed request. When New is
// called without WithLogger, the Acceptor installs a plain zap-backed
// implementation; github.com/clasp-developers/toot/tootlog is a richer
// adapter over the same zap core (zipkin trace/span id correlation
// from the X-Request-Id header) that operators can opt into via
// WithLogger, or replace with any implementation entirely.
type AccessLogger interface {
	LogAccess(req *Request, status int, bytesWritten int64, duration time.Duration)
}

// MessageLogger records operational errors and warnings raised by the
// connection engine itself (not by handler application logic).
type MessageLogger interface {
	LogError(format string, args ...interface{})
	LogWarning(format string, args ...interface{})
}

// MetricsSink receives counters/timings for an optional metrics
// backend (the default Acceptor configuration leaves this nil, which
// every call site treats as "don't record").
type MetricsSink interface {
	ObserveRequest(method, path string, status int, duration time.Duration)
	SetServerUp(up bool)
}

// discardLogger is used only when zap.NewProduction fails while
// building the default logger; it satisfies both logger interfaces as
// a pure no-op, so the Acceptor never has to nil-check before logging.
type discardLogger struct{}

func (discardLogger) LogAccess(*Request, int, int64, time.Duration) {}
func (discardLogger) LogError(string, ...interface{})                {}
func (discardLogger) LogWarning(string, ...interface{})               {}

// zapLogger is the Acceptor's built-in AccessLogger/MessageLogger,
// used when New is called without WithLogger. It lives in this
// package (rather than reusing tootlog.Logger) because tootlog imports
// this package to implement these same interfaces against *Request;
// importing tootlog back from here would be a cyclic import.
type zapLogger struct {
	z *zap.Logger
}

func newDefaultLogger() (*zapLogger, error) {
	z, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return &zapLogger{z: z}, nil
}

func (l *zapLogger) LogAccess(req *Request, status int, bytesWritten int64, duration time.Duration) {
	l.z.Info("request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", status),
		zap.Int64("bytes", bytesWritten),
		zap.Duration("duration", duration),
		zap.String("remote_addr", req.RemoteAddr),
	)
}

func (l *zapLogger) LogError(format string, args ...interface{}) {
	l.z.Sugar().Errorf(format, args...)
}

func (l *zapLogger) LogWarning(format string, args ...interface{}) {
	l.z.Sugar().Warnf(format, args...)
}
