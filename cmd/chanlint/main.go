// Command chanlint is a go vet-style static checker for users of
// github.com/ahorn/go-channel/rendezvous. It flags the one Select misuse
// documented as unsupported rather than detected at runtime: a single
// Select descriptor built with both a receive case and a send case on the
// lexically same channel variable.
//
// Run it the way go vet runs a vettool:
//
//	go run github.com/ahorn/go-channel/cmd/chanlint ./...
package main

import (
	"go/ast"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/analysis/singlechecker"
	"golang.org/x/tools/go/ast/inspector"
)

const rendezvousPkgPath = "github.com/ahorn/go-channel/rendezvous"

var recvBuilders = map[string]bool{
	"RecvOnly": true,
	"Recv":     true,
	"RecvFunc": true,
}

var sendBuilders = map[string]bool{
	"SendOnly": true,
	"Send":     true,
}

// Analyzer detects Select descriptors whose cases reference both
// directions of what is, textually, the same channel variable.
var Analyzer = &analysis.Analyzer{
	Name:     "chanlint",
	Doc:      "reports rendezvous.Select descriptors that mix a send case and a recv case on the same channel variable",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

func main() {
	singlechecker.Main(Analyzer)
}

// caseRef records one case-builder call: which Select variable it feeds,
// which direction it is, and the base identifier of the channel it names.
type caseRef struct {
	selectVar string
	recv      bool
	chanName  string
	call      *ast.CallExpr
}

func run(pass *analysis.Pass) (interface{}, error) {
	insp := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	insp.Preorder([]ast.Node{(*ast.FuncDecl)(nil)}, func(n ast.Node) {
		fn := n.(*ast.FuncDecl)
		if fn.Body == nil {
			return
		}
		checkFunc(pass, fn.Body)
	})

	return nil, nil
}

func checkFunc(pass *analysis.Pass, body *ast.BlockStmt) {
	var refs []caseRef

	ast.Inspect(body, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		ref, ok := classifyCall(pass, call)
		if ok {
			refs = append(refs, ref)
		}
		return true
	})

	byVar := make(map[string][]caseRef)
	for _, r := range refs {
		byVar[r.selectVar] = append(byVar[r.selectVar], r)
	}

	for _, group := range byVar {
		reportConflicts(pass, group)
	}
}

// classifyCall reports whether call is a rendezvous case-builder call of
// the form Builder(selectExpr, chanExpr, ...) and, if so, extracts the
// Select variable name, the case's direction, and the base identifier of
// the channel expression (stripping a trailing .AsSender()/.AsReceiver()).
func classifyCall(pass *analysis.Pass, call *ast.CallExpr) (caseRef, bool) {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	var name string
	if ok {
		name = sel.Sel.Name
	} else if ident, ok := call.Fun.(*ast.Ident); ok {
		name = ident.Name
	} else {
		return caseRef{}, false
	}

	recv, send := recvBuilders[name], sendBuilders[name]
	if !recv && !send {
		return caseRef{}, false
	}
	if !fromRendezvousPackage(pass, call.Fun) {
		return caseRef{}, false
	}
	if len(call.Args) < 2 {
		return caseRef{}, false
	}

	selectVar, ok := baseIdentName(call.Args[0])
	if !ok {
		return caseRef{}, false
	}
	chanName, ok := baseIdentName(call.Args[1])
	if !ok {
		return caseRef{}, false
	}

	return caseRef{selectVar: selectVar, recv: recv, chanName: chanName, call: call}, true
}

// fromRendezvousPackage reports whether fun resolves to an identifier
// declared in the rendezvous package, when type information is available.
// When it is not (e.g. the package under test failed to type-check), the
// name-based match in classifyCall is used on its own as a best effort.
func fromRendezvousPackage(pass *analysis.Pass, fun ast.Expr) bool {
	var ident *ast.Ident
	switch f := fun.(type) {
	case *ast.Ident:
		ident = f
	case *ast.SelectorExpr:
		ident = f.Sel
	default:
		return false
	}

	obj := pass.TypesInfo.Uses[ident]
	if obj == nil {
		return true // no type info; fall back to the name-based match
	}
	pkg := obj.Pkg()
	if pkg == nil {
		return true
	}
	return pkg.Path() == rendezvousPkgPath
}

// baseIdentName strips any trailing method-call/selector chain (such as
// .AsSender() or .AsReceiver()) and returns the root identifier's name.
func baseIdentName(expr ast.Expr) (string, bool) {
	for {
		switch e := expr.(type) {
		case *ast.Ident:
			return e.Name, true
		case *ast.CallExpr:
			expr = e.Fun
		case *ast.SelectorExpr:
			expr = e.X
		case *ast.ParenExpr:
			expr = e.X
		default:
			return "", false
		}
	}
}

func reportConflicts(pass *analysis.Pass, group []caseRef) {
	recvChans := make(map[string]*ast.CallExpr)
	sendChans := make(map[string]*ast.CallExpr)
	for _, r := range group {
		if r.recv {
			recvChans[r.chanName] = r.call
		} else {
			sendChans[r.chanName] = r.call
		}
	}

	for name, sendCall := range sendChans {
		if recvCall, ok := recvChans[name]; ok {
			pass.Reportf(sendCall.Pos(),
				"select descriptor mixes a send case and a recv case on channel %q (recv case at %s); this is unsupported, see rendezvous.Select",
				name, pass.Fset.Position(recvCall.Pos()))
		}
	}
}
