package jsparse

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
)

const (
	nodeCallExpression  = "call_expression"
	nodeImportStatement = "import_statement"
	nodeIdentifier      = "identifier"
	nodeString          = "string"
	nodeStringFragment  = "string_fragment"
	nodeEscapeSequence  = "escape_sequence"
	nodeComment         = "comment"
	nodeError           = "ERROR"

	fieldFunction  = "function"
	fieldArguments = "arguments"
	fieldSource    = "source"

	requireIdent = "require"
)

var (
	// ErrFileTooLarge is returned for sources above the configured size limit
	ErrFileTooLarge = errors.New("file too large")
	// ErrInvalidContent is returned for sources that are not valid UTF-8
	ErrInvalidContent = errors.New("invalid content: not valid UTF-8")
)

// SyntaxError reports that the source contained syntax the parser had to
// recover from. It accompanies whatever references could still be found.
type SyntaxError struct {
	Position Position
	// Recovered is the number of references extracted despite the error
	Recovered int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %s (%d references recovered)", e.Position, e.Recovered)
}

// Options configures an Extractor
type Options struct {
	// MaxFileSize is the largest source accepted, in bytes
	MaxFileSize int
}

// DefaultOptions returns the default extractor options
func DefaultOptions() Options {
	return Options{
		MaxFileSize: 10 * 1024 * 1024,
	}
}

// Extractor finds module references in JavaScript sources.
// It holds no per-file state and is safe for concurrent use; every call
// builds its own tree-sitter parser.
type Extractor struct {
	options Options
}

// NewExtractor creates an extractor
func NewExtractor(opts Options) *Extractor {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultOptions().MaxFileSize
	}
	return &Extractor{options: opts}
}

// Extract parses src and returns its references in source order.
//
// When the source has syntax errors the references found in the recovered
// tree are returned together with a *SyntaxError, so callers can log the
// problem and still use the partial result.
func (e *Extractor) Extract(ctx context.Context, src []byte) ([]Reference, error) {
	if len(src) > e.options.MaxFileSize {
		return nil, ErrFileTooLarge
	}
	if !utf8.Valid(src) {
		return nil, ErrInvalidContent
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(javascript.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	refs, errPos := collect(root, src)

	if root.HasError() {
		return refs, &SyntaxError{Position: errPos, Recovered: len(refs)}
	}
	return refs, nil
}

// collect walks the tree depth-first in source order. It also returns the
// position of the first error or missing node it meets.
func collect(root *sitter.Node, src []byte) ([]Reference, Position) {
	var (
		refs     []Reference
		errPos   Position
		foundErr bool
	)

	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == nil {
			continue
		}

		if !foundErr && (n.Type() == nodeError || n.IsMissing()) {
			errPos = position(n)
			foundErr = true
		}

		switch n.Type() {
		case nodeCallExpression:
			if ref, ok := requireCall(n, src); ok {
				refs = append(refs, ref)
			}
		case nodeImportStatement:
			if ref, ok := importDeclaration(n, src); ok {
				refs = append(refs, ref)
			}
		}

		// Push children in reverse so the leftmost is visited first.
		for i := int(n.ChildCount()) - 1; i >= 0; i-- {
			stack = append(stack, n.Child(i))
		}
	}
	return refs, errPos
}

func requireCall(n *sitter.Node, src []byte) (Reference, bool) {
	callee := n.ChildByFieldName(fieldFunction)
	if callee == nil || callee.Type() != nodeIdentifier || callee.Content(src) != requireIdent {
		return nil, false
	}

	args := n.ChildByFieldName(fieldArguments)
	if args == nil {
		return nil, false
	}

	var only *sitter.Node
	for i := 0; i < int(args.NamedChildCount()); i++ {
		arg := args.NamedChild(i)
		if arg.Type() == nodeComment {
			continue
		}
		if only != nil {
			return nil, false
		}
		only = arg
	}
	if only == nil || only.Type() != nodeString {
		return nil, false
	}

	return CallReference{Module: stringValue(only, src), Position: position(n)}, true
}

func importDeclaration(n *sitter.Node, src []byte) (Reference, bool) {
	source := n.ChildByFieldName(fieldSource)
	if source == nil || source.Type() != nodeString {
		return nil, false
	}
	return ImportReference{Module: stringValue(source, src), Position: position(n)}, true
}

// stringValue returns the decoded contents of a string literal node
func stringValue(n *sitter.Node, src []byte) string {
	var b strings.Builder
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case nodeStringFragment:
			b.WriteString(child.Content(src))
		case nodeEscapeSequence:
			b.WriteString(unescape(child.Content(src)))
		}
	}
	return b.String()
}

func unescape(seq string) string {
	switch seq {
	case `\'`:
		return "'"
	case `\"`:
		return `"`
	}
	if s, err := strconv.Unquote(`"` + seq + `"`); err == nil {
		return s
	}
	return strings.TrimPrefix(seq, `\`)
}

func position(n *sitter.Node) Position {
	p := n.StartPoint()
	return Position{Line: int(p.Row) + 1, Column: int(p.Column) + 1}
}
