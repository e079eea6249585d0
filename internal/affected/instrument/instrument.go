// Package instrument implements AST-level instrumentation that routes every
// function entry of a Go source file through the affected runtime.
//
// The tracer can only observe calls that pass through the host runtime's
// dispatch point. This package plants that dispatch point: it parses a
// source file, declares one compiled-unit value for the file, and inserts an
// affected.Enter call as the first statement of every function body.
//
// Algorithm:
//  1. Parse Go source file using go/parser
//  2. Skip generated and already instrumented files
//  3. Inject the runtime import (or reuse an existing one)
//  4. Walk the AST to find function declarations and literals with bodies
//  5. Insert affected.Enter(<unit>) at the start of each body
//  6. Declare the unit value and generate code using go/printer
//
// Example Transformation:
//
//	// INPUT (original code):
//	package app
//
//	func Greet() string {
//		return "hi"
//	}
//
//	// OUTPUT (instrumented code):
//	package app
//
//	import affected "github.com/kolkov/goaffected/affected"
//
//	func Greet() string {
//		affected.Enter(affectedUnit_3f9c0a1b2c3d4e5f)
//		return "hi"
//	}
//
//	var affectedUnit_3f9c0a1b2c3d4e5f = affected.NewCode("/abs/app/greet.go", "app")
//
// Thread Safety: This package is NOT thread-safe per file. Different files
// may be instrumented concurrently.
package instrument

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/parser"
	"go/printer"
	"go/token"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	// RuntimePackageImportPath is the import path of the public runtime API
	// injected into instrumented files.
	RuntimePackageImportPath = "github.com/kolkov/goaffected/affected"

	// RuntimePackageAlias is the local package name used in instrumented code:
	// affected.Enter(), affected.NewCode().
	RuntimePackageAlias = "affected"

	// UnitVarPrefix starts the name of the per-file unit variable. Its
	// presence marks a file as already instrumented.
	UnitVarPrefix = "affectedUnit_"

	// SkipDirective in a function's doc comment leaves that function (and
	// the function literals inside it) uninstrumented.
	SkipDirective = "//affected:skip"
)

// InstrumentResult is one instrumented file.
//
//nolint:revive // stutters, matches InstrumentFile
type InstrumentResult struct {
	Code  string // rendered source
	Unit  string // absolute slash path recorded by the unit value
	Stats InstrumentStats
}

// UnitVarName returns the unit variable name for a source path.
//
// The name is derived from the xxHash64 of the path, so files of the same
// package never collide.
func UnitVarName(path string) string {
	return fmt.Sprintf("%s%016x", UnitVarPrefix, xxhash.Sum64String(path))
}

// InstrumentFile rewrites one Go source file for footprint tracing.
//
// src follows go/parser: nil reads filename, otherwise []byte, string or
// io.Reader. filename is made absolute and becomes the unit filename, so
// pass the path the file has when its package is compiled.
//
// Generated and already instrumented files come back rendered but
// unchanged, flagged in Stats. A file that cannot take the runtime import
// fails with *InstrumentationError.
//
//nolint:revive // stutters, matches the package's public naming
func InstrumentFile(filename string, src interface{}) (*InstrumentResult, error) {
	// Step 1: Parse source file into AST, keeping comments for output
	// and skip directives.
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("failed to parse file %s: %w", filename, err)
	}

	unit, err := filepath.Abs(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", filename, err)
	}
	unit = filepath.ToSlash(unit)

	// Step 2: Leave generated and already instrumented files alone.
	var stats InstrumentStats
	switch {
	case ast.IsGenerated(file):
		stats.Generated = true
	case isInstrumented(file):
		stats.AlreadyInstrumented = true
	}
	if stats.Generated || stats.AlreadyInstrumented {
		code, err := render(fset, file)
		if err != nil {
			return nil, err
		}
		return &InstrumentResult{Code: code, Unit: unit, Stats: stats}, nil
	}

	// Step 3: Inject the runtime import.
	alias, err := injectImports(fset, file)
	if err != nil {
		return nil, err
	}

	// Step 4-5: Walk the AST and insert entry calls.
	unitVar := UnitVarName(unit)
	visitor := instrumentAST(file, alias, unitVar)
	stats = visitor.GetStats()

	// Step 6: Declare the unit value and generate code.
	declareUnit(file, alias, unitVar, unit)

	code, err := render(fset, file)
	if err != nil {
		return nil, err
	}
	return &InstrumentResult{Code: code, Unit: unit, Stats: stats}, nil
}

// instrumentAST walks the AST and inserts entry calls.
//
// Two passes, as modifying function bodies while ast.Walk iterates them
// would shift the statements being visited:
//
//	Pass 1: Record every function body to instrument
//	Pass 2: Prepend affected.Enter(<unit>) to each recorded body
func instrumentAST(file *ast.File, alias, unitVar string) *instrumentVisitor {
	visitor := newInstrumentVisitor(alias, unitVar)
	ast.Walk(visitor, file)
	visitor.ApplyInstrumentation()
	return visitor
}

// isInstrumented reports whether file already declares a unit variable.
func isInstrumented(file *ast.File) bool {
	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.VAR {
			continue
		}
		for _, spec := range gen.Specs {
			vs, ok := spec.(*ast.ValueSpec)
			if !ok {
				continue
			}
			for _, name := range vs.Names {
				if strings.HasPrefix(name.Name, UnitVarPrefix) {
					return true
				}
			}
		}
	}
	return false
}

// declareUnit appends:
//
//	var <unitVar> = <alias>.NewCode("<unit>", "<package>")
func declareUnit(file *ast.File, alias, unitVar, unit string) {
	call := &ast.CallExpr{
		Fun: &ast.SelectorExpr{
			X:   ast.NewIdent(alias),
			Sel: ast.NewIdent("NewCode"),
		},
		Args: []ast.Expr{
			&ast.BasicLit{Kind: token.STRING, Value: fmt.Sprintf("%q", unit)},
			&ast.BasicLit{Kind: token.STRING, Value: fmt.Sprintf("%q", file.Name.Name)},
		},
	}
	decl := &ast.GenDecl{
		Tok: token.VAR,
		Specs: []ast.Spec{&ast.ValueSpec{
			Names:  []*ast.Ident{ast.NewIdent(unitVar)},
			Values: []ast.Expr{call},
		}},
	}
	file.Decls = append(file.Decls, decl)
}

// render prints file with the settings gofmt uses.
func render(fset *token.FileSet, file *ast.File) (string, error) {
	var buf bytes.Buffer
	cfg := &printer.Config{
		Mode:     printer.UseSpaces | printer.TabIndent,
		Tabwidth: 8,
	}
	if err := cfg.Fprint(&buf, fset, file); err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return buf.String(), nil
}
