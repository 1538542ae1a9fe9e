package server

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/luiggi/compiler"
	"github.com/chazu/luiggi/stdlib"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "luiggi-lsp"

// LspServer provides editor features for Luiggi documents.
type LspServer struct {
	natives map[string]string // native name → signature

	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a language server that knows the standard natives and
// any added by extend.
func NewLSP(extend ...func(*stdlib.Registry)) *LspServer {
	r := stdlib.New(io.Discard)
	for _, fn := range extend {
		fn(r)
	}

	s := &LspServer{
		natives: r.Signatures(),
		docs:    make(map[string]string),
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	commonlog.NewInfoMessage(0, "Luiggi LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{}
	capabilities.HoverProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.mu.Lock()
			s.docs[string(uri)] = whole.Text
			s.mu.Unlock()

			s.publishDiagnostics(ctx, uri, whole.Text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	prefix := extractPrefix(text, params.Position)
	if prefix == "" {
		return nil, nil
	}
	return s.complete(text, prefix), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}
	return s.hover(text, word), nil
}

func (s *LspServer) document(uri protocol.DocumentUri) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.docs[string(uri)]
	return text, ok
}

// --- Document analysis ---

func (s *LspServer) complete(text, prefix string) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	add := func(label string, kind protocol.CompletionItemKind, detail string) {
		if !strings.HasPrefix(label, prefix) {
			return
		}
		labelCopy, detailCopy := label, detail
		items = append(items, protocol.CompletionItem{
			Label:      label,
			Kind:       &kind,
			Detail:     &detailCopy,
			InsertText: &labelCopy,
		})
	}

	keywords := compiler.Keywords()
	sort.Strings(keywords)
	for _, kw := range keywords {
		add(kw, protocol.CompletionItemKindKeyword, "keyword")
	}

	for _, name := range sortedKeys(s.natives) {
		add(name, protocol.CompletionItemKindFunction, s.natives[name])
	}

	funcs := declaredFunctions(text)
	for _, name := range sortedKeys(funcs) {
		if _, native := s.natives[name]; native {
			continue
		}
		add(name, protocol.CompletionItemKindFunction, "func "+funcs[name])
	}

	// Limit results
	const maxItems = 100
	if len(items) > maxItems {
		items = items[:maxItems]
	}

	return items
}

func (s *LspServer) hover(text, word string) *protocol.Hover {
	var b strings.Builder
	if sig, ok := declaredFunctions(text)[word]; ok {
		fmt.Fprintf(&b, "```\nfunc %s\n```\n\nDeclared in this document.", sig)
	} else if sig, ok := s.natives[word]; ok {
		fmt.Fprintf(&b, "```\n%s\n```\n\nNative function.", sig)
	} else {
		return nil
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
	}
}

// declaredFunctions finds "func name(params)" headers by line, so it still
// works while the document does not compile. Maps name → signature.
func declaredFunctions(text string) map[string]string {
	out := make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		rest, ok := strings.CutPrefix(line, "func ")
		if !ok {
			continue
		}
		rest = strings.TrimSpace(rest)
		open := strings.IndexByte(rest, '(')
		if open <= 0 {
			continue
		}
		name := strings.TrimSpace(rest[:open])
		params, err := compiler.ParseSignature(rest[open:])
		if err != nil || !isIdentifier(name) {
			continue
		}
		out[name] = name + "(" + strings.Join(params, ", ") + ")"
	}
	return out
}

// --- Diagnostics ---

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: s.diagnostics(text),
	})
}

// diagnostics compiles text and reports the first error, spanning the
// offending line.
func (s *LspServer) diagnostics(text string) []protocol.Diagnostic {
	c := compiler.New()
	for _, name := range sortedKeys(s.natives) {
		if err := c.ImportNative(name, s.natives[name], nil); err != nil {
			log.Errorf("import native %s: %v", name, err)
		}
	}

	_, err := c.CompileSource(text)
	if err == nil {
		return []protocol.Diagnostic{}
	}

	d := diagnose(err)[0]
	line := 0
	if d.Line > 0 {
		line = d.Line - 1
	}
	lines := strings.Split(text, "\n")
	width := 0
	if line < len(lines) {
		width = len(lines[line])
	}

	severity := protocol.DiagnosticSeverityError
	source := lspName
	message := d.Message
	if d.Kind != "" {
		message = d.Kind + ": " + message
	}
	return []protocol.Diagnostic{{
		Range: protocol.Range{
			Start: protocol.Position{Line: protocol.UInteger(line), Character: 0},
			End:   protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(width)},
		},
		Severity: &severity,
		Source:   &source,
		Message:  message,
	}}
}

// --- Text extraction helpers ---

func isIdentChar(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}

func isIdentifier(s string) bool {
	if s == "" || unicode.IsDigit(rune(s[0])) {
		return false
	}
	for _, ch := range s {
		if !isIdentChar(ch) {
			return false
		}
	}
	return true
}

// extractPrefix returns the word fragment before the cursor for completion.
func extractPrefix(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	// Walk backwards from cursor to find the start of the identifier
	start := col
	for start > 0 && isIdentChar(rune(line[start-1])) {
		start--
	}

	return line[start:col]
}

// extractWord returns the full identifier under the cursor.
func extractWord(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	start := col
	for start > 0 && isIdentChar(rune(line[start-1])) {
		start--
	}
	end := col
	for end < len(line) && isIdentChar(rune(line[end])) {
		end++
	}

	return line[start:end]
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func boolPtr(b bool) *bool {
	return &b
}
