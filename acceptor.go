package toot

import (
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/clasp-developers/toot/toottls"
)

// NewConnectionWaitTime bounds how long the accept loop blocks waiting
// for a new connection before re-checking the shutdown flag.
const NewConnectionWaitTime = 50 * time.Millisecond

// DefaultListenBacklog is the value New stores in Acceptor's
// ListenBacklog field. Start does not pass it to the listening socket.
const DefaultListenBacklog = 50

// Acceptor is the process-wide server instance: it owns a listen
// socket and the policy (handler, taskmaster, loggers, TLS config)
// applied to every connection accepted on it.
type Acceptor struct {
	Port                  int
	Address               string
	Name                  string
	PersistentConnections bool
	ReadTimeout           time.Duration
	WriteTimeout          time.Duration
	ListenBacklog         int

	// Logging/error-page toggles, process-wide tunables per the
	// external interfaces surface. LogErrors/LogWarnings default true;
	// LogBacktraces/ShowErrors/ShowBacktraces default false, since a
	// production deployment should not leak internals to clients.
	LogErrors        bool
	LogWarnings      bool
	LogBacktraces    bool
	ShowErrors       bool
	ShowBacktraces   bool

	tlsConfig      *TLSConfig
	tlsWrapper     toottls.Wrapper
	builtTLSConfig *tls.Config
	validator      *validator.Validate

	handler        Handler
	errorGenerator ErrorGenerator
	accessLogger   AccessLogger
	msgLogger      MessageLogger
	metrics        MetricsSink
	taskmaster     Taskmaster

	shutdownMu   sync.Mutex
	shutdownCond *sync.Cond
	shuttingDown bool
	inFlight     int

	listener net.Listener
}

// Option configures an Acceptor at construction time.
type Option func(*Acceptor)

// WithPort sets the listen port (default 80).
func WithPort(port int) Option { return func(a *Acceptor) { a.Port = port } }

// WithAddress sets the bind address (default: wildcard).
func WithAddress(addr string) Option { return func(a *Acceptor) { a.Address = addr } }

// WithName sets the display name reported in the Server response
// header (default "toot", with no version number).
func WithName(name string) Option { return func(a *Acceptor) { a.Name = name } }

// WithPersistentConnections toggles keep-alive support (default true).
func WithPersistentConnections(enabled bool) Option {
	return func(a *Acceptor) { a.PersistentConnections = enabled }
}

// WithReadTimeout sets the per-connection read deadline applied after
// each accept.
func WithReadTimeout(d time.Duration) Option { return func(a *Acceptor) { a.ReadTimeout = d } }

// WithWriteTimeout sets the per-connection write deadline applied
// after each accept.
func WithWriteTimeout(d time.Duration) Option { return func(a *Acceptor) { a.WriteTimeout = d } }

// WithListenBacklog sets the ListenBacklog field (default 50). Start
// opens the socket with net.Listen, which takes no backlog argument,
// so the value is stored but does not reach the listening socket.
func WithListenBacklog(n int) Option { return func(a *Acceptor) { a.ListenBacklog = n } }

// WithTLSConfig enables TLS using cfg's certificate/key pair.
func WithTLSConfig(cfg TLSConfig) Option {
	return func(a *Acceptor) { a.tlsConfig = &cfg }
}

// WithHandler sets the required top-level request handler.
func WithHandler(h Handler) Option { return func(a *Acceptor) { a.handler = h } }

// WithErrorGenerator overrides the default minimal-HTML error page
// generator.
func WithErrorGenerator(g ErrorGenerator) Option {
	return func(a *Acceptor) { a.errorGenerator = g }
}

// WithLogger installs logger for whichever of AccessLogger/
// MessageLogger it implements (it may implement both).
func WithLogger(logger interface{}) Option {
	return func(a *Acceptor) {
		if al, ok := logger.(AccessLogger); ok {
			a.accessLogger = al
		}
		if ml, ok := logger.(MessageLogger); ok {
			a.msgLogger = ml
		}
	}
}

// WithMetricsSink installs an optional metrics backend; when left
// unset, the engine records nothing.
func WithMetricsSink(sink MetricsSink) Option {
	return func(a *Acceptor) { a.metrics = sink }
}

// WithValidator installs the go-playground/validator instance
// toottls uses to check a TLSConfig before loading it from disk. When
// left unset, toottls.NewWrapper (called by New) builds one with
// validator.New() defaults.
func WithValidator(v *validator.Validate) Option {
	return func(a *Acceptor) { a.validator = v }
}

// WithTaskmaster overrides the default thread-per-connection
// taskmaster.
func WithTaskmaster(tm Taskmaster) Option { return func(a *Acceptor) { a.taskmaster = tm } }

// New builds an inert Acceptor from opts. Call Start to begin
// listening.
func New(opts ...Option) *Acceptor {
	a := &Acceptor{
		Port:                  80,
		PersistentConnections: true,
		ListenBacklog:         DefaultListenBacklog,
		LogErrors:             true,
		LogWarnings:           true,
		taskmaster:            &ThreadPerConnection{},
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.Name == "" {
		a.Name = "toot"
	}
	if a.errorGenerator == nil {
		a.errorGenerator = defaultErrorGenerator{
			showErrors:     a.ShowErrors,
			showBacktraces: a.ShowBacktraces,
		}
	}
	if a.accessLogger == nil || a.msgLogger == nil {
		if dl, err := newDefaultLogger(); err == nil {
			if a.accessLogger == nil {
				a.accessLogger = dl
			}
			if a.msgLogger == nil {
				a.msgLogger = dl
			}
		}
	}
	a.tlsWrapper = toottls.NewWrapper(a.validator)
	a.shutdownCond = sync.NewCond(&a.shutdownMu)
	return a
}

func (a *Acceptor) messageLogger() MessageLogger {
	if a.msgLogger != nil {
		return a.msgLogger
	}
	return discardLogger{}
}

func (a *Acceptor) accessLog() AccessLogger {
	if a.accessLogger != nil {
		return a.accessLogger
	}
	return discardLogger{}
}

// Start binds the listen socket and hands the Acceptor to its
// Taskmaster's ExecuteAcceptor. Fails if already listening.
func (a *Acceptor) Start() (*Acceptor, error) {
	a.shutdownMu.Lock()
	if a.listener != nil {
		a.shutdownMu.Unlock()
		return nil, fmt.Errorf("toot: acceptor already started")
	}
	addr := fmt.Sprintf("%s:%d", a.Address, a.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		a.shutdownMu.Unlock()
		return nil, err
	}

	if a.tlsConfig != nil {
		built, err := a.tlsWrapper.Build(toottls.Config{
			CertFile:    a.tlsConfig.CertFile,
			KeyFile:     a.tlsConfig.KeyFile,
			KeyPassword: a.tlsConfig.KeyPassword,
		})
		if err != nil {
			a.shutdownMu.Unlock()
			_ = ln.Close()
			return nil, err
		}
		a.builtTLSConfig = built
	}

	a.listener = ln
	a.shuttingDown = false
	a.shutdownMu.Unlock()

	if a.metrics != nil {
		a.metrics.SetServerUp(true)
	}

	a.taskmaster.ExecuteAcceptor(a)
	return a, nil
}

// Stop sets the shutdown flag and tells the Taskmaster to stop
// scheduling new work. If soft, it blocks until the in-flight count
// reaches zero (looping on the shutdown condition variable to
// tolerate spurious wakeups) before closing the listen socket.
// Idempotent after the first successful call.
func (a *Acceptor) Stop(soft bool) error {
	a.shutdownMu.Lock()
	a.shuttingDown = true
	a.shutdownMu.Unlock()

	a.taskmaster.Shutdown(a)

	if soft {
		a.shutdownMu.Lock()
		for a.inFlight > 0 {
			a.shutdownCond.Wait()
		}
		a.shutdownMu.Unlock()
	}

	a.shutdownMu.Lock()
	ln := a.listener
	a.listener = nil
	a.shutdownMu.Unlock()

	if a.metrics != nil {
		a.metrics.SetServerUp(false)
	}

	if ln == nil {
		return nil
	}
	return ln.Close()
}

// Addr returns the listener's bound address, or nil if Start has not
// been called (or Stop already closed the listener). Useful for
// picking up the actual port after starting with WithPort(0).
func (a *Acceptor) Addr() net.Addr {
	a.shutdownMu.Lock()
	defer a.shutdownMu.Unlock()
	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

func (a *Acceptor) isShuttingDown() bool {
	a.shutdownMu.Lock()
	defer a.shutdownMu.Unlock()
	return a.shuttingDown
}

func (a *Acceptor) enterInFlight() {
	a.shutdownMu.Lock()
	a.inFlight++
	a.shutdownMu.Unlock()
}

func (a *Acceptor) leaveInFlight() {
	a.shutdownMu.Lock()
	a.inFlight--
	if a.shuttingDown && a.inFlight == 0 {
		a.shutdownCond.Broadcast()
	}
	a.shutdownMu.Unlock()
}

// acceptLoop is the Acceptor's accept loop, run by whichever goroutine
// the Taskmaster's ExecuteAcceptor chooses. It polls the listener every
// NewConnectionWaitTime for shutdown, accepts one connection at a time,
// sets read/write deadlines, and hands it to
// taskmaster.HandleIncomingConnection.
func (a *Acceptor) acceptLoop() {
	for {
		if a.isShuttingDown() {
			return
		}

		a.shutdownMu.Lock()
		ln := a.listener
		a.shutdownMu.Unlock()
		if ln == nil {
			return
		}

		if tc, ok := ln.(*net.TCPListener); ok {
			_ = tc.SetDeadline(time.Now().Add(NewConnectionWaitTime))
		}

		conn, err := ln.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if a.isShuttingDown() {
				return
			}
			a.messageLogger().LogError("toot: accept error: %v", err)
			continue
		}

		if a.ReadTimeout != 0 {
			_ = conn.SetReadDeadline(time.Now().Add(a.ReadTimeout))
		}
		if a.WriteTimeout != 0 {
			_ = conn.SetWriteDeadline(time.Now().Add(a.WriteTimeout))
		}

		if a.builtTLSConfig != nil {
			conn = tls.Server(conn, a.builtTLSConfig)
		}

		a.taskmaster.HandleIncomingConnection(a, conn)
	}
}
