/*
Copyright 2025 Jordi Gil.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package language

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
	"strings"

	apperrors "github.com/flowforge/pipeline-core/internal/errors"
)

// goScanner extracts imports, calls, and type declarations (standing in
// for "classes") from Go source using the standard library's own
// parser, since Go is this rewrite's native language and has a real
// AST available, unlike Python or JS/TS here.
type goScanner struct{}

func NewGo() Scanner { return goScanner{} }

func (goScanner) Extensions() []string { return []string{".go"} }

func (goScanner) Scan(path string, content []byte) (FileRecord, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, content, parser.ParseComments)
	if err != nil {
		return FileRecord{}, apperrors.Wrapf(err, apperrors.ErrorTypeValidation, "parse go file %s", path)
	}

	rec := FileRecord{Path: path}

	for _, imp := range file.Imports {
		module, _ := strconv.Unquote(imp.Path.Value)
		alias := ""
		kind := ImportAbsolute
		if imp.Name != nil {
			alias = imp.Name.Name
			if alias == "_" {
				kind = ImportSideEffect
			}
		}
		if alias == "" {
			parts := strings.Split(module, "/")
			alias = parts[len(parts)-1]
		}
		rec.Imports = append(rec.Imports, ImportRecord{Module: module, Alias: alias, Kind: kind})
	}

	ast.Inspect(file, func(n ast.Node) bool {
		switch decl := n.(type) {
		case *ast.TypeSpec:
			if _, ok := decl.Type.(*ast.StructType); ok {
				rec.Classes = append(rec.Classes, ClassRecord{Name: decl.Name.Name, Parents: embeddedFields(decl.Type)})
			}
		case *ast.CallExpr:
			if call, ok := callRecordFor(decl); ok {
				rec.Calls = append(rec.Calls, call)
			}
		}
		return true
	})

	return rec, nil
}

func embeddedFields(t ast.Expr) []string {
	st, ok := t.(*ast.StructType)
	if !ok || st.Fields == nil {
		return nil
	}
	var parents []string
	for _, f := range st.Fields.List {
		if len(f.Names) != 0 {
			continue // not an embedded field
		}
		if ident, ok := f.Type.(*ast.Ident); ok {
			parents = append(parents, ident.Name)
		}
		if sel, ok := f.Type.(*ast.SelectorExpr); ok {
			parents = append(parents, sel.Sel.Name)
		}
	}
	return parents
}

func callRecordFor(call *ast.CallExpr) (CallRecord, bool) {
	switch fn := call.Fun.(type) {
	case *ast.Ident:
		return CallRecord{Name: fn.Name, Kind: CallFunction}, true
	case *ast.SelectorExpr:
		recv := ""
		if ident, ok := fn.X.(*ast.Ident); ok {
			recv = ident.Name
		}
		return CallRecord{Name: fn.Sel.Name, Kind: CallMethod, Object: recv}, true
	default:
		return CallRecord{}, false
	}
}
