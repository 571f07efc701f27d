// Package wallclock flags direct wall-clock reads in domain packages.
package wallclock

import (
	"go/ast"
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

// Analyzer reports calls to time.Now inside packages with a "domain" path
// element. Audit dates must come from a package-level clock variable such
// as `var timeNow = time.Now`.
var Analyzer = &analysis.Analyzer{
	Name:     "wallclock",
	Doc:      "flags time.Now calls in domain packages; use a package-level clock variable",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

func run(pass *analysis.Pass) (interface{}, error) {
	if !isDomainPackage(pass.Pkg.Path()) {
		return nil, nil
	}
	insp := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	insp.Preorder([]ast.Node{(*ast.CallExpr)(nil)}, func(n ast.Node) {
		call := n.(*ast.CallExpr)
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok {
			return
		}
		fn, ok := pass.TypesInfo.Uses[sel.Sel].(*types.Func)
		if !ok || fn.Pkg() == nil || fn.Pkg().Path() != "time" || fn.Name() != "Now" {
			return
		}
		if strings.HasSuffix(pass.Fset.Position(call.Pos()).Filename, "_test.go") {
			return
		}
		pass.Reportf(call.Pos(), "time.Now called directly in domain package: use the package clock variable")
	})

	return nil, nil
}

func isDomainPackage(path string) bool {
	for _, elem := range strings.Split(path, "/") {
		if elem == "domain" {
			return true
		}
	}
	return false
}
