package jsparse

import "fmt"

// Position is a 1-based line/column location in a source file
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Reference is a module reference site found in a source file. It is a
// closed union: the only implementations are CallReference and
// ImportReference.
type Reference interface {
	// Specifier returns the module string exactly as written
	Specifier() string
	// Pos returns where the reference appears
	Pos() Position

	reference()
}

// CallReference is a require("x") call with a single string literal argument
type CallReference struct {
	Module   string
	Position Position
}

func (r CallReference) Specifier() string { return r.Module }
func (r CallReference) Pos() Position     { return r.Position }
func (CallReference) reference()          {}

// ImportReference is the source of a static import declaration
type ImportReference struct {
	Module   string
	Position Position
}

func (r ImportReference) Specifier() string { return r.Module }
func (r ImportReference) Pos() Position     { return r.Position }
func (ImportReference) reference()          {}

// Kind names the reference variant, used for logging and metrics
func Kind(ref Reference) string {
	switch ref.(type) {
	case CallReference:
		return "require"
	case ImportReference:
		return "import"
	default:
		return "unknown"
	}
}
