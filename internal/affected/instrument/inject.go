package instrument

import (
	"go/ast"
	"go/token"
	"path"
	"strconv"
)

// injectImports makes the runtime package available in file and returns
// the local name to call it by.
//
// An existing import is reused under its own name; blank and dot imports
// of it are rejected. A new import is named RuntimePackageAlias and fails
// if a top-level declaration or another import already uses that name.
// It joins the first import declaration, which becomes grouped when it
// would otherwise hold two specs.
//
// The AST is modified in place.
func injectImports(fset *token.FileSet, file *ast.File) (string, error) {
	// Step 1: Reuse an existing import of the runtime package.
	for _, imp := range file.Imports {
		p, err := strconv.Unquote(imp.Path.Value)
		if err != nil || p != RuntimePackageImportPath {
			continue
		}
		if imp.Name == nil {
			return RuntimePackageAlias, nil
		}
		if imp.Name.Name == "_" || imp.Name.Name == "." {
			return "", errorAt(fset, imp.Pos(),
				"runtime package imported as "+imp.Name.Name,
				"Import "+RuntimePackageImportPath+" with a regular name or remove the import")
		}
		return imp.Name.Name, nil
	}

	// Step 2: The alias must not shadow anything the file already names.
	if pos, ok := nameTaken(file, RuntimePackageAlias); ok {
		return "", errorAt(fset, pos,
			"identifier "+strconv.Quote(RuntimePackageAlias)+" already declared in file",
			"Rename the conflicting identifier or import, or mark the file's functions "+SkipDirective)
	}

	// Step 3: Find or create the import declaration block.
	var importDecl *ast.GenDecl
	for _, decl := range file.Decls {
		genDecl, ok := decl.(*ast.GenDecl)
		if ok && genDecl.Tok == token.IMPORT {
			importDecl = genDecl
			break
		}
	}
	if importDecl == nil {
		importDecl = &ast.GenDecl{Tok: token.IMPORT}
		// Insert at the beginning of declarations (after package).
		file.Decls = append([]ast.Decl{importDecl}, file.Decls...)
	}

	// Step 4: Add the runtime import.
	spec := &ast.ImportSpec{
		Name: ast.NewIdent(RuntimePackageAlias),
		Path: &ast.BasicLit{
			Kind:  token.STRING,
			Value: strconv.Quote(RuntimePackageImportPath),
		},
	}
	importDecl.Specs = append(importDecl.Specs, spec)

	// Step 5: More than one spec needs grouped syntax: import (...)
	if importDecl.Lparen == 0 && len(importDecl.Specs) > 1 {
		importDecl.Lparen = 1
	}

	// Step 6: Keep file.Imports consistent with the declarations.
	file.Imports = append(file.Imports, spec)

	return RuntimePackageAlias, nil
}

// nameTaken reports where name is already bound at file scope: by an
// import's local name or by a top-level declaration.
func nameTaken(file *ast.File, name string) (token.Pos, bool) {
	for _, imp := range file.Imports {
		local := ""
		if imp.Name != nil {
			local = imp.Name.Name
		} else if p, err := strconv.Unquote(imp.Path.Value); err == nil {
			local = path.Base(p)
		}
		if local == name {
			return imp.Pos(), true
		}
	}

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Recv == nil && d.Name.Name == name {
				return d.Name.Pos(), true
			}
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				switch s := spec.(type) {
				case *ast.ValueSpec:
					for _, id := range s.Names {
						if id.Name == name {
							return id.Pos(), true
						}
					}
				case *ast.TypeSpec:
					if s.Name.Name == name {
						return s.Name.Pos(), true
					}
				}
			}
		}
	}
	return token.NoPos, false
}
