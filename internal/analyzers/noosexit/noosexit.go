// Package noosexit reports os.Exit calls that bypass the run() exit code
// convention of the commands.
package noosexit

import (
	"go/ast"
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
	"golang.org/x/tools/go/types/typeutil"
)

// Analyzer allows os.Exit only as the exit code forwarder of main.main,
// i.e. os.Exit(run(...)). Test files and generated code are skipped.
var Analyzer = &analysis.Analyzer{
	Name:     "noosexit",
	Doc:      "forbid os.Exit outside of os.Exit(run(...)) in main.main",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

func run(pass *analysis.Pass) (any, error) {
	insp := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	skip := make(map[*ast.File]bool)
	for _, f := range pass.Files {
		name := pass.Fset.Position(f.Pos()).Filename
		if strings.HasSuffix(name, "_test.go") || ast.IsGenerated(f) {
			skip[f] = true
		}
	}

	filter := []ast.Node{(*ast.File)(nil), (*ast.FuncDecl)(nil), (*ast.CallExpr)(nil)}
	var mainFunc *ast.FuncDecl
	insp.Nodes(filter, func(n ast.Node, push bool) bool {
		switch n := n.(type) {
		case *ast.File:
			return push && !skip[n]
		case *ast.FuncDecl:
			if isMainFunc(pass, n) {
				if push {
					mainFunc = n
				} else {
					mainFunc = nil
				}
			}
			return true
		case *ast.CallExpr:
			if !push || !isOSExit(pass, n) {
				return true
			}
			if mainFunc == nil {
				pass.Reportf(n.Pos(), "os.Exit outside main; return an error or exit code instead")
				return true
			}
			if !forwardsRunCode(mainFunc, n) {
				pass.Reportf(n.Pos(), "os.Exit in main must only forward run(): os.Exit(run(...))")
			}
		}
		return true
	})
	return nil, nil
}

func isMainFunc(pass *analysis.Pass, fd *ast.FuncDecl) bool {
	return pass.Pkg.Name() == "main" && fd.Recv == nil && fd.Name.Name == "main"
}

func isOSExit(pass *analysis.Pass, call *ast.CallExpr) bool {
	fn, ok := typeutil.Callee(pass.TypesInfo, call).(*types.Func)
	if !ok || fn.Pkg() == nil {
		return false
	}
	return fn.Pkg().Path() == "os" && fn.Name() == "Exit"
}

// forwardsRunCode reports whether call is a top level statement of main
// whose only argument is a call to run.
func forwardsRunCode(main *ast.FuncDecl, call *ast.CallExpr) bool {
	if main.Body == nil || len(call.Args) != 1 {
		return false
	}
	inner, ok := call.Args[0].(*ast.CallExpr)
	if !ok {
		return false
	}
	if id, ok := inner.Fun.(*ast.Ident); !ok || id.Name != "run" {
		return false
	}
	for _, stmt := range main.Body.List {
		if es, ok := stmt.(*ast.ExprStmt); ok && es.X == call {
			return true
		}
	}
	return false
}
