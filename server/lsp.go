package server

import (
	"fmt"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/sgm/compiler"
)

const lspName = "sgm-lsp"

var lspLog = commonlog.GetLogger("sgm.lsp")

// LspServer provides editor diagnostics, completion and hover for sgm
// source files. The front end is cheap, so every request re-analyzes the
// whole document.
type LspServer struct {
	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new LSP server.
func NewLSP() *LspServer {
	s := &LspServer{
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
	commonlog.NewInfoMessage(0, "sgm LSP initializing")

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

func (s *LspServer) document(uri protocol.DocumentUri) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.docs[string(uri)]
	return text, ok
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
	return complete(text, prefix), nil
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
	return hover(text, word), nil
}

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	diagnostics := diagnose(text)
	lspLog.Debugf("%s: %d diagnostics", uri, len(diagnostics))
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// --- Analysis-backed logic ---

// diagnose reports the first front-end error of text. Tokens carry no
// positions, so the diagnostic spans the whole document.
func diagnose(text string) []protocol.Diagnostic {
	a := compiler.Analyze(text)
	if a.Err == nil {
		return []protocol.Diagnostic{}
	}
	severity := protocol.DiagnosticSeverityError
	source := lspName
	return []protocol.Diagnostic{{
		Range:    documentRange(text),
		Severity: &severity,
		Source:   &source,
		Message:  a.Err.Error(),
	}}
}

// documentRange spans text from its first to its last character.
func documentRange(text string) protocol.Range {
	lines := strings.Split(text, "\n")
	last := lines[len(lines)-1]
	return protocol.Range{
		Start: protocol.Position{Line: 0, Character: 0},
		End: protocol.Position{
			Line:      protocol.UInteger(len(lines) - 1),
			Character: protocol.UInteger(utf8.RuneCountInString(last)),
		},
	}
}

// complete offers reserved words and the document's declared variables
// starting with prefix.
func complete(text, prefix string) []protocol.CompletionItem {
	var items []protocol.CompletionItem

	for _, word := range compiler.Keywords() {
		if !strings.HasPrefix(word, prefix) {
			continue
		}
		kind := protocol.CompletionItemKindKeyword
		detail := keywordDetail(word)
		label := word
		items = append(items, protocol.CompletionItem{
			Label:      label,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &label,
		})
	}

	for _, v := range declaredVariables(text) {
		if !strings.HasPrefix(v.name, prefix) {
			continue
		}
		kind := protocol.CompletionItemKindVariable
		detail := v.typ.String()
		label := v.name
		items = append(items, protocol.CompletionItem{
			Label:      label,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &label,
		})
	}

	// Limit results
	const maxItems = 100
	if len(items) > maxItems {
		items = items[:maxItems]
	}
	return items
}

type declared struct {
	name string
	typ  compiler.DataType
}

// declaredVariables lists every "TYPE name" pair in text in order of first
// appearance. It works from tokens alone so completion keeps working while
// the document does not parse.
func declaredVariables(text string) []declared {
	a := compiler.Analyze(text)
	seen := make(map[string]bool)
	var out []declared
	for i := 0; i+1 < len(a.Tokens); i++ {
		if a.Tokens[i].Type != compiler.TokenDataType || a.Tokens[i+1].Type != compiler.TokenIdentifier {
			continue
		}
		name := a.Tokens[i+1].Name
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, declared{name: name, typ: a.Tokens[i].DataType})
	}
	return out
}

// keywordHelp describes each token class a reserved word can produce.
var keywordHelp = map[compiler.TokenType]string{
	compiler.TokenPrint: "`print(expr);` writes the value of expr on its own line",
	compiler.TokenIf:    "`if (cond) { ... }` runs the block once when cond is truthy",
	compiler.TokenWhile: "`while (cond) { ... }` repeats the block while cond is truthy",
	compiler.TokenBool:  "boolean literal",
}

func keywordDetail(word string) string {
	tok := compiler.LookupKeyword(word)
	if tok.Type == compiler.TokenDataType {
		return "type " + tok.DataType.String()
	}
	if tok.Type == compiler.TokenBool {
		return "boolean literal"
	}
	return "keyword"
}

// hover describes the keyword or variable word.
func hover(text, word string) *protocol.Hover {
	var b strings.Builder
	tok := compiler.LookupKeyword(word)
	switch tok.Type {
	case compiler.TokenDataType:
		fmt.Fprintf(&b, "**%s**\n\ndeclares a variable of type `%s`", word, tok.DataType)
	case compiler.TokenIdentifier:
		var typ compiler.DataType
		found := false
		for _, v := range declaredVariables(text) {
			if v.name == word {
				typ, found = v.typ, true
				break
			}
		}
		if !found {
			return nil
		}
		fmt.Fprintf(&b, "**%s** `%s`\n\nvariable", word, typ)
	default:
		help, ok := keywordHelp[tok.Type]
		if !ok {
			return nil
		}
		fmt.Fprintf(&b, "**%s**\n\n%s", word, help)
		if canonical := tok.Type.String(); tok.Type != compiler.TokenBool && canonical != word {
			fmt.Fprintf(&b, "\n\nalias of `%s`", canonical)
		}
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
	}
}

// --- Text extraction helpers ---

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
	for start > 0 && isWordChar(rune(line[start-1])) {
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
	for start > 0 && isWordChar(rune(line[start-1])) {
		start--
	}
	end := col
	for end < len(line) && isWordChar(rune(line[end])) {
		end++
	}
	return line[start:end]
}

func isWordChar(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}

func boolPtr(b bool) *bool {
	return &b
}
