package instrument

import (
	"fmt"
	"go/token"
)

// InstrumentationError is a positioned failure to instrument a file,
// formatted like a compiler diagnostic:
//
//	main.go:3:5: identifier "affected" already declared in file
//
//	Suggestion: Rename the conflicting identifier or import
type InstrumentationError struct {
	File    string
	Line    int
	Column  int
	Message string

	// Suggestion is an optional fix, printed after the message.
	Suggestion string
}

func (e *InstrumentationError) Error() string {
	msg := fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
	if e.Suggestion == "" {
		return msg
	}
	return msg + "\n\nSuggestion: " + e.Suggestion
}

// errorAt builds an InstrumentationError at pos.
func errorAt(fset *token.FileSet, pos token.Pos, msg, suggestion string) *InstrumentationError {
	p := fset.Position(pos)
	return &InstrumentationError{
		File:       p.Filename,
		Line:       p.Line,
		Column:     p.Column,
		Message:    msg,
		Suggestion: suggestion,
	}
}
