// Package lsp serves a project over the Language Server Protocol. Open
// files are edited incrementally, saved files update the project graph,
// and parse and compile problems are published as diagnostics.
package lsp

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"github.com/dhamidi/jide/compile"
	"github.com/dhamidi/jide/config"
	"github.com/dhamidi/jide/java/document"
	"github.com/dhamidi/jide/project"
)

var log = commonlog.GetLogger("jide.lsp")

const lsName = "jide"

// Commands understood by workspace/executeCommand.
const (
	// CommandCompile compiles every invalid target, or the target named by
	// the first argument.
	CommandCompile = "jide.compile"
	// CommandAbort aborts the job whose ID is the first argument.
	CommandAbort = "jide.abort"
)

type Server struct {
	version string
	handler protocol.Handler
	server  *server.Server

	// Set during initialize.
	notify    glsp.NotifyFunc
	cfg       *config.Config
	project   *project.Project
	scheduler *compile.Scheduler

	mu       sync.Mutex
	docs     map[string]*document.Document
	compiled map[string][]compile.Diagnostic
}

func NewServer(version string) *Server {
	s := &Server{
		version:  version,
		docs:     make(map[string]*document.Document),
		compiled: make(map[string][]compile.Diagnostic),
	}

	s.handler = protocol.Handler{
		Initialize:                 s.initialize,
		Initialized:                s.initialized,
		Shutdown:                   s.shutdown,
		SetTrace:                   s.setTrace,
		TextDocumentDidOpen:        s.textDocumentDidOpen,
		TextDocumentDidChange:      s.textDocumentDidChange,
		TextDocumentDidClose:       s.textDocumentDidClose,
		TextDocumentDidSave:        s.textDocumentDidSave,
		TextDocumentDocumentSymbol: s.textDocumentDocumentSymbol,
		WorkspaceExecuteCommand:    s.workspaceExecuteCommand,
	}
	s.server = server.NewServer(&s.handler, lsName, false)
	return s
}

func (s *Server) RunStdio() error {
	return s.server.RunStdio()
}

func (s *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	rootDir := "."
	if params.RootPath != nil && *params.RootPath != "" {
		rootDir = *params.RootPath
	} else if params.RootURI != nil && *params.RootURI != "" {
		if path, err := uriToPath(*params.RootURI); err == nil {
			rootDir = path
		}
	}

	cfg, err := config.LoadDir(rootDir)
	if err != nil {
		return nil, err
	}
	p, err := project.New(rootDir, cfg.ProjectOptions(rootDir))
	if err != nil {
		return nil, err
	}
	s.notify = ctx.Notify
	s.cfg = cfg
	s.project = p
	s.scheduler = compile.NewScheduler(p, cfg.NewCompiler(), cfg.SchedulerConfig(p, s))

	capabilities := s.handler.CreateServerCapabilities()
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    syncKindPtr(protocol.TextDocumentSyncKindIncremental),
		Save: &protocol.SaveOptions{
			IncludeText: boolPtr(true),
		},
	}
	capabilities.ExecuteCommandProvider = &protocol.ExecuteCommandOptions{
		Commands: []string{CommandCompile, CommandAbort},
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &s.version,
		},
	}, nil
}

func (s *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	n, err := s.project.Discover(context.Background())
	if err != nil {
		log.Errorf("discover %s: %s", s.project.RootDir, err)
		s.ProjectMessage(err.Error())
		return nil
	}
	log.Infof("%s: %d targets", s.project.RootDir, n)
	if s.cfg.Watch.AutoCompile {
		go s.autoCompile()
	}
	return nil
}

func (s *Server) shutdown(ctx *glsp.Context) error {
	if s.scheduler != nil {
		s.scheduler.Close()
	}
	return nil
}

func (s *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (s *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[path] = document.New(path, []byte(params.TextDocument.Text), s.project.Resolver())
	s.publishLocked(path)
	return nil
}

func (s *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[path]
	if !ok {
		return nil
	}
	for _, change := range params.ContentChanges {
		if err := applyChange(doc, change); err != nil {
			log.Warningf("%s: %s; resyncing is up to the client", path, err)
			return nil
		}
	}
	s.publishLocked(path)
	return nil
}

// applyChange turns one content change into a document edit.
func applyChange(doc *document.Document, change any) error {
	switch c := change.(type) {
	case protocol.TextDocumentContentChangeEvent:
		if c.Range == nil {
			doc.SetText([]byte(c.Text))
			return nil
		}
		text := []byte(doc.Text())
		start := offsetOf(text, doc.Lines(), c.Range.Start)
		end := offsetOf(text, doc.Lines(), c.Range.End)
		if end < start {
			return fmt.Errorf("inverted range %v", *c.Range)
		}
		return doc.Replace(start, end-start, c.Text)
	case protocol.TextDocumentContentChangeEventWhole:
		doc.SetText([]byte(c.Text))
		return nil
	}
	return fmt.Errorf("unsupported content change %T", change)
}

func (s *Server) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, path)
	return nil
}

// textDocumentDidSave feeds the saved text to the project, invalidating
// the file's target and everything that depends on it.
func (s *Server) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil
	}

	s.mu.Lock()
	var text []byte
	if doc, ok := s.docs[path]; ok {
		if params.Text != nil && *params.Text != doc.Text() {
			doc.SetText([]byte(*params.Text))
			s.publishLocked(path)
		}
		text = []byte(doc.Text())
	} else if params.Text != nil {
		text = []byte(*params.Text)
	}
	s.mu.Unlock()

	var target *project.ClassTarget
	if text != nil {
		target, err = s.project.ApplySource(path, text)
	} else {
		target, err = s.project.Add(path)
	}
	if err != nil {
		log.Errorf("%s: %s", path, err)
		s.ProjectMessage(err.Error())
		return nil
	}
	if target != nil {
		invalidated, err := s.project.Modified(target.Name)
		if err != nil {
			return nil
		}
		log.Debugf("%s: invalidated %v", target.Name, invalidated)
	}
	if s.cfg.Watch.AutoCompile {
		go s.autoCompile()
	}
	return nil
}

func (s *Server) autoCompile() {
	if _, err := s.scheduler.AutoCompile(context.Background()); err != nil {
		log.Warningf("auto compile: %s", err)
	}
}

func (s *Server) textDocumentDocumentSymbol(ctx *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[path]
	if !ok {
		return nil, nil
	}
	return documentSymbols([]byte(doc.Text()), doc.Lines(), doc.ParseTree()), nil
}

func (s *Server) workspaceExecuteCommand(ctx *glsp.Context, params *protocol.ExecuteCommandParams) (any, error) {
	switch params.Command {
	case CommandCompile:
		var jobs []*compile.Job
		var err error
		if name, ok := stringArg(params.Arguments); ok {
			jobs, err = s.scheduler.CompileTarget(context.Background(), name)
		} else {
			jobs, err = s.scheduler.CompileAll(context.Background())
		}
		if err != nil {
			return nil, err
		}
		ids := make([]string, len(jobs))
		for i, job := range jobs {
			ids[i] = job.ID
		}
		return ids, nil
	case CommandAbort:
		id, ok := stringArg(params.Arguments)
		if !ok {
			return nil, fmt.Errorf("%s needs a job ID", CommandAbort)
		}
		return nil, s.scheduler.Abort(id)
	}
	return nil, fmt.Errorf("unknown command %q", params.Command)
}

func stringArg(args []any) (string, bool) {
	if len(args) == 0 {
		return "", false
	}
	s, ok := args[0].(string)
	return s, ok && s != ""
}

// publishLocked sends the parse diagnostics of an open file together with
// the compile diagnostics of the last job that compiled it.
func (s *Server) publishLocked(path string) {
	if s.notify == nil {
		return
	}
	diagnostics := []protocol.Diagnostic{}
	if doc, open := s.docs[path]; open {
		text := []byte(doc.Text())
		diagnostics = append(diagnostics, parseDiagnostics(text, doc.Lines(), doc.ParseTree())...)
		for _, d := range s.compiled[path] {
			diagnostics = append(diagnostics, compileDiagnostic(text, doc.Lines(), d))
		}
	} else {
		for _, d := range s.compiled[path] {
			diagnostics = append(diagnostics, compileDiagnostic(nil, nil, d))
		}
	}
	s.notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         pathToURI(path),
		Diagnostics: diagnostics,
	})
}

func (s *Server) showMessage(typ protocol.MessageType, msg string) {
	if s.notify == nil {
		return
	}
	s.notify(protocol.ServerWindowShowMessage, protocol.ShowMessageParams{Type: typ, Message: msg})
}

// JobStarted forgets what earlier jobs reported for the job's files.
func (s *Server) JobStarted(job *compile.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, path := range job.Files {
		delete(s.compiled, path)
	}
}

func (s *Server) Diagnostic(target string, d compile.Diagnostic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.compiled[d.File] = append(s.compiled[d.File], d)
}

func (s *Server) JobFinished(job *compile.Job, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	files := append([]string(nil), job.Files...)
	sort.Strings(files)
	for _, path := range files {
		s.publishLocked(path)
	}
	log.Infof("job %s: %s", job.ID, job.Status())
}

func (s *Server) SchedulingFailure(target string, err error) {
	s.showMessage(protocol.MessageTypeWarning, fmt.Sprintf("cannot compile %s: %s", target, err))
}

func (s *Server) ProjectMessage(msg string) {
	s.showMessage(protocol.MessageTypeInfo, msg)
}

func boolPtr(b bool) *bool {
	return &b
}

func syncKindPtr(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &k
}
