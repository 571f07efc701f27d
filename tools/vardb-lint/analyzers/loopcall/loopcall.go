// Package loopcall detects graph transactions opened inside loops.
package loopcall

import (
	"go/ast"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

// Analyzer reports Update and View calls made once per loop iteration.
var Analyzer = &analysis.Analyzer{
	Name:     "loopcall",
	Doc:      "detects graph transactions opened inside loops",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

// txMethods open a transaction on ports.GraphDB.
var txMethods = map[string]bool{
	"Update": true,
	"View":   true,
}

func run(pass *analysis.Pass) (interface{}, error) {
	insp := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	nodeFilter := []ast.Node{
		(*ast.RangeStmt)(nil),
		(*ast.ForStmt)(nil),
	}

	insp.Preorder(nodeFilter, func(n ast.Node) {
		var body *ast.BlockStmt
		switch stmt := n.(type) {
		case *ast.RangeStmt:
			body = stmt.Body
		case *ast.ForStmt:
			body = stmt.Body
		}
		if body == nil {
			return
		}

		ast.Inspect(body, func(n ast.Node) bool {
			// A closure passed to Update runs inside one transaction.
			if _, ok := n.(*ast.FuncLit); ok {
				return false
			}
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}
			sel, ok := call.Fun.(*ast.SelectorExpr)
			if !ok || !txMethods[sel.Sel.Name] || !takesCallback(call) {
				return true
			}
			pass.Reportf(call.Pos(),
				"%s called inside loop: move the loop into a single transaction",
				sel.Sel.Name)
			return true
		})
	})

	return nil, nil
}

// takesCallback matches the (ctx, func(tx) error) shape of GraphDB calls.
func takesCallback(call *ast.CallExpr) bool {
	if len(call.Args) != 2 {
		return false
	}
	_, isLit := call.Args[1].(*ast.FuncLit)
	_, isIdent := call.Args[1].(*ast.Ident)
	return isLit || isIdent
}
