// Package analyzer extracts the code graph from Go source files: symbol
// nodes, member/call/import relations, source ranges, comments, and
// diagnostics for files that fail to parse.
package analyzer

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"strings"
	"unicode"

	"codegraph/internal/storage"
)

// Range is a 1-based, end-inclusive textual range.
type Range struct {
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// Symbol is a named declaration found in a file.
type Symbol struct {
	Name   string // canonical serialized name, e.g. "pkg.Type.Method"
	Parent string // enclosing symbol: the package for types and variables, the type for fields and methods, "" for the package and plain functions
	Kind   storage.NodeType
	Access storage.AccessType
	Range  Range
}

// Reference is a relation from one serialized name to another.
type Reference struct {
	From  string
	To    string
	Kind  storage.EdgeType
	Range Range
}

// Local is a function-local identifier.
type Local struct {
	Name  string
	Range Range
}

// Diagnostic is a parse problem recorded against the file.
type Diagnostic struct {
	Message string
	Fatal   bool
	Line    int
	Column  int
}

// Result holds everything extracted from one file.
type Result struct {
	PackageName string
	Symbols     []Symbol
	References  []Reference
	Locals      []Local
	Comments    []Range
	Diagnostics []Diagnostic
}

// Analyzer parses Go source files and extracts graph entities.
type Analyzer struct {
	fset *token.FileSet
}

// New creates an Analyzer with a fresh file set.
func New() *Analyzer {
	return &Analyzer{fset: token.NewFileSet()}
}

// AnalyzeFile parses src and extracts the file's slice of the code graph.
// Syntax errors are recorded as diagnostics; a partial AST is still mined.
func (a *Analyzer) AnalyzeFile(path string, src []byte) *Result {
	result := &Result{}

	file, err := parser.ParseFile(a.fset, path, src, parser.ParseComments)
	if err != nil {
		line, col := 1, 1
		if list, ok := err.(scanner.ErrorList); ok && len(list) > 0 {
			line, col = list[0].Pos.Line, list[0].Pos.Column
		}
		result.Diagnostics = append(result.Diagnostics, Diagnostic{
			Message: fmt.Sprintf("syntax error: %v", err),
			Fatal:   true,
			Line:    line,
			Column:  col,
		})
	}
	if file == nil {
		return result
	}

	if file.Name != nil {
		result.PackageName = file.Name.Name
		result.Symbols = append(result.Symbols, Symbol{
			Name:   file.Name.Name,
			Kind:   storage.NodeTypePackage,
			Access: storage.AccessPublic,
			Range:  a.rangeOf(file.Name),
		})
	}

	for _, group := range file.Comments {
		result.Comments = append(result.Comments, a.rangeOf(group))
	}

	for _, imp := range file.Imports {
		importPath := strings.Trim(imp.Path.Value, `"`)
		result.References = append(result.References, Reference{
			From:  result.PackageName,
			To:    importPath,
			Kind:  storage.EdgeTypeImport,
			Range: a.rangeOf(imp),
		})
	}

	v := &visitor{analyzer: a, result: result}
	ast.Inspect(file, v.visit)
	return result
}

// visitor walks declarations and collects symbols and references.
type visitor struct {
	analyzer *Analyzer
	result   *Result
}

func (v *visitor) visit(node ast.Node) bool {
	switch n := node.(type) {
	case *ast.FuncDecl:
		v.extractFunc(n)
		return false
	case *ast.GenDecl:
		if n.Tok == token.TYPE {
			for _, spec := range n.Specs {
				if ts, ok := spec.(*ast.TypeSpec); ok {
					v.extractType(ts)
				}
			}
		}
		if n.Tok == token.VAR {
			v.extractVars(n)
		}
	}
	return true
}

func (v *visitor) extractFunc(decl *ast.FuncDecl) {
	pkg := v.result.PackageName
	name := pkg + "." + decl.Name.Name
	kind := storage.NodeTypeFunction
	parent := ""

	if decl.Recv != nil && len(decl.Recv.List) > 0 {
		if recv := receiverTypeName(decl.Recv.List[0].Type); recv != "" {
			parent = pkg + "." + recv
			name = parent + "." + decl.Name.Name
			kind = storage.NodeTypeMethod
		}
	}

	v.result.Symbols = append(v.result.Symbols, Symbol{
		Name:   name,
		Parent: parent,
		Kind:   kind,
		Access: accessOf(decl.Name.Name),
		Range:  v.analyzer.rangeOf(decl.Name),
	})

	if decl.Type.Params != nil {
		for _, field := range decl.Type.Params.List {
			for _, ident := range field.Names {
				if ident.Name == "_" {
					continue
				}
				v.result.Locals = append(v.result.Locals, Local{
					Name:  name + "<" + ident.Name + ">",
					Range: v.analyzer.rangeOf(ident),
				})
			}
		}
	}

	if decl.Body != nil {
		v.extractCalls(name, decl.Body)
	}
}

func (v *visitor) extractCalls(caller string, body *ast.BlockStmt) {
	ast.Inspect(body, func(node ast.Node) bool {
		call, ok := node.(*ast.CallExpr)
		if !ok {
			return true
		}
		callee := calleeName(call.Fun)
		if callee == "" {
			return true
		}
		v.result.References = append(v.result.References, Reference{
			From:  caller,
			To:    callee,
			Kind:  storage.EdgeTypeCall,
			Range: v.analyzer.rangeOf(call.Fun),
		})
		return true
	})
}

func (v *visitor) extractType(spec *ast.TypeSpec) {
	pkg := v.result.PackageName
	name := pkg + "." + spec.Name.Name

	kind := storage.NodeTypeTypedef
	switch t := spec.Type.(type) {
	case *ast.StructType:
		kind = storage.NodeTypeStruct
		v.extractFields(name, t)
	case *ast.InterfaceType:
		kind = storage.NodeTypeInterface
	}

	v.result.Symbols = append(v.result.Symbols, Symbol{
		Name:   name,
		Parent: pkg,
		Kind:   kind,
		Access: accessOf(spec.Name.Name),
		Range:  v.analyzer.rangeOf(spec.Name),
	})
}

func (v *visitor) extractFields(parent string, structType *ast.StructType) {
	if structType.Fields == nil {
		return
	}
	for _, field := range structType.Fields.List {
		for _, ident := range field.Names {
			v.result.Symbols = append(v.result.Symbols, Symbol{
				Name:   parent + "." + ident.Name,
				Parent: parent,
				Kind:   storage.NodeTypeField,
				Access: accessOf(ident.Name),
				Range:  v.analyzer.rangeOf(ident),
			})
		}
	}
}

func (v *visitor) extractVars(decl *ast.GenDecl) {
	pkg := v.result.PackageName
	for _, spec := range decl.Specs {
		vs, ok := spec.(*ast.ValueSpec)
		if !ok {
			continue
		}
		for _, ident := range vs.Names {
			if ident.Name == "_" {
				continue
			}
			v.result.Symbols = append(v.result.Symbols, Symbol{
				Name:   pkg + "." + ident.Name,
				Parent: pkg,
				Kind:   storage.NodeTypeGlobalVariable,
				Access: accessOf(ident.Name),
				Range:  v.analyzer.rangeOf(ident),
			})
		}
	}
}

// rangeOf converts a node span into a 1-based, end-inclusive range.
func (a *Analyzer) rangeOf(node ast.Node) Range {
	start := a.fset.Position(node.Pos())
	end := a.fset.Position(node.End())

	endLine, endCol := end.Line, end.Column-1
	if endCol < 1 {
		endLine = start.Line
		endCol = start.Column
	}
	return Range{
		StartLine: start.Line,
		StartCol:  start.Column,
		EndLine:   endLine,
		EndCol:    endCol,
	}
}

func receiverTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return receiverTypeName(t.X)
	case *ast.IndexExpr:
		return receiverTypeName(t.X)
	case *ast.IndexListExpr:
		return receiverTypeName(t.X)
	}
	return ""
}

func calleeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.SelectorExpr:
		if base := calleeName(t.X); base != "" {
			return base + "." + t.Sel.Name
		}
		return t.Sel.Name
	}
	return ""
}

func accessOf(name string) storage.AccessType {
	if name == "" {
		return storage.AccessNone
	}
	if unicode.IsUpper(rune(name[0])) {
		return storage.AccessPublic
	}
	return storage.AccessPrivate
}
