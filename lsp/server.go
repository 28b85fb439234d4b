// Copyright © 2024 The ELPS authors

// Package lsp implements a Language Server Protocol server for Kotlin
// sources. It publishes lint diagnostics and provides hover with statically
// resolved values, go-to-definition, document symbols, folding ranges and a
// quick fix suppressing a diagnostic.
package lsp

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tliron/glsp"
	glspserver "github.com/tliron/glsp/server"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/luthersystems/kvet/lint"
	"github.com/luthersystems/kvet/symbol"
)

const serverName = "kvet-lsp"

// Version is reported to clients in the initialize result.
var Version = "0.1.0"

// Server is the kvet language server.
type Server struct {
	handler  protocol.Handler
	glspSrv  *glspserver.Server
	docs     *DocumentStore
	rootURI  string
	rootPath string

	// Linter instance shared across diagnostics runs.
	linter *lint.Linter
	lib    *symbol.Library
	log    logrus.FieldLogger

	// Debouncer for didChange notifications.
	debounceMu sync.Mutex
	debounce   map[string]*time.Timer
	delay      time.Duration

	// Context for sending notifications (captured from latest request).
	notifyMu sync.Mutex
	notify   glsp.NotifyFunc

	// exitFn is called on the LSP exit notification. Defaults to os.Exit.
	// Overridable for testing.
	exitFn func(int)
}

// Option configures the LSP server.
type Option func(*Server)

// WithLinter replaces the default linter. When the linter has no Library
// the embedded default library is installed.
func WithLinter(l *lint.Linter) Option {
	return func(s *Server) { s.linter = l }
}

// WithLogger sets the logger receiving server events.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Server) { s.log = log }
}

// WithDebounce sets how long didChange waits for further edits before
// linting.
func WithDebounce(d time.Duration) Option {
	return func(s *Server) { s.delay = d }
}

// New creates a new kvet LSP server.
func New(opts ...Option) *Server {
	s := &Server{
		docs:     NewDocumentStore(),
		debounce: make(map[string]*time.Timer),
		delay:    debounceDelay,
		exitFn:   os.Exit,
	}
	for _, o := range opts {
		o(s)
	}
	if s.linter == nil {
		s.linter = &lint.Linter{Analyzers: lint.DefaultAnalyzers()}
	}
	if s.linter.Library == nil {
		s.linter.Library = symbol.DefaultLibrary()
	}
	s.lib = s.linter.Library
	if s.log == nil {
		log := logrus.New()
		log.SetOutput(io.Discard)
		s.log = log
	}

	s.handler = protocol.Handler{
		Initialize: s.initialize,
		Shutdown:   s.shutdown,
		Exit:       s.exit,
		SetTrace:   s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidSave:   s.textDocumentDidSave,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentHover:          s.textDocumentHover,
		TextDocumentDefinition:     s.textDocumentDefinition,
		TextDocumentDocumentSymbol: s.textDocumentDocumentSymbol,
		TextDocumentFoldingRange:   s.textDocumentFoldingRange,
		TextDocumentCodeAction:     s.textDocumentCodeAction,
	}

	s.glspSrv = glspserver.NewServer(&s.handler, serverName, false)
	return s
}

// RunStdio starts the server using stdio transport.
func (s *Server) RunStdio() error {
	s.log.Info("serving on stdio")
	return s.glspSrv.RunStdio()
}

// RunTCP starts the server listening on the given address.
func (s *Server) RunTCP(addr string) error {
	s.log.WithField("addr", addr).Info("serving on tcp")
	return s.glspSrv.RunTCP(addr)
}

// initialize handles the LSP initialize request.
func (s *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	s.captureNotify(ctx)

	if params.RootURI != nil {
		s.rootURI = *params.RootURI
		s.rootPath = uriToPath(s.rootURI)
	} else if params.RootPath != nil {
		s.rootPath = *params.RootPath
		s.rootURI = pathToURI(s.rootPath)
	}
	s.log.WithField("root", s.rootPath).Debug("initialize")

	capabilities := s.handler.CreateServerCapabilities()

	// Override text document sync to full.
	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
		Save:      &protocol.SaveOptions{IncludeText: boolPtr(false)},
	}

	version := Version
	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    serverName,
			Version: &version,
		},
	}, nil
}

// shutdown handles the LSP shutdown request.
func (s *Server) shutdown(ctx *glsp.Context) error {
	// Cancel any pending debounce timers.
	s.debounceMu.Lock()
	for _, t := range s.debounce {
		t.Stop()
	}
	s.debounce = make(map[string]*time.Timer)
	s.debounceMu.Unlock()

	return nil
}

// exit handles the LSP exit notification by terminating the process.
// We always exit with 0 since shutdown is handled gracefully.
func (s *Server) exit(_ *glsp.Context) error {
	s.exitFn(0)
	return nil
}

// setTrace handles the $/setTrace notification (required by some clients).
func (s *Server) setTrace(_ *glsp.Context, _ *protocol.SetTraceParams) error {
	return nil
}

// captureNotify saves the notify function from a glsp context so that
// asynchronous work (debounced diagnostics) can publish later.
func (s *Server) captureNotify(ctx *glsp.Context) {
	s.notifyMu.Lock()
	s.notify = ctx.Notify
	s.notifyMu.Unlock()
}

// sendNotification sends a notification to the client.
func (s *Server) sendNotification(method string, params any) {
	s.notifyMu.Lock()
	fn := s.notify
	s.notifyMu.Unlock()
	if fn != nil {
		fn(method, params)
	}
}

func boolPtr(b bool) *bool {
	return &b
}
