// Package sandbox validates and executes untrusted code under module,
// builtin, time and output restrictions. The guest language is Starlark,
// the Python dialect built for embedding: imports take the
// load("module", "name") form, everything else reads as Python.
package sandbox

import (
	"fmt"

	"go.starlark.net/syntax"
)

// ViolationKind classifies why a piece of code was rejected.
type ViolationKind string

const (
	ViolationSyntax  ViolationKind = "syntax"
	ViolationImport  ViolationKind = "import"
	ViolationBuiltin ViolationKind = "builtin"
	ViolationDynamic ViolationKind = "dynamic"
)

// Violation is one reason a code unit is unsafe to run.
type Violation struct {
	Kind    ViolationKind `json:"kind"`
	Message string        `json:"message"`
	Line    int32         `json:"line,omitempty"`
}

func (v Violation) String() string {
	if v.Line > 0 {
		return fmt.Sprintf("line %d: %s", v.Line, v.Message)
	}
	return v.Message
}

// deniedNames can never be referenced, whatever the builtin allow-list says.
// They cover process, filesystem, network and introspection escape hatches.
var deniedNames = map[string]ViolationKind{
	"open":       ViolationBuiltin,
	"file":       ViolationBuiltin,
	"input":      ViolationBuiltin,
	"breakpoint": ViolationBuiltin,
	"os":         ViolationBuiltin,
	"sys":        ViolationBuiltin,
	"subprocess": ViolationBuiltin,
	"socket":     ViolationBuiltin,
	"importlib":  ViolationBuiltin,
	"ctypes":     ViolationBuiltin,
	"eval":       ViolationDynamic,
	"exec":       ViolationDynamic,
	"execfile":   ViolationDynamic,
	"compile":    ViolationDynamic,
	"__import__": ViolationDynamic,
	"getattr":    ViolationDynamic,
	"setattr":    ViolationDynamic,
	"delattr":    ViolationDynamic,
	"hasattr":    ViolationDynamic,
	"dir":        ViolationDynamic,
	"globals":    ViolationDynamic,
	"locals":     ViolationDynamic,
	"vars":       ViolationDynamic,
}

// Validate parses code and reports every safety violation found: loads of
// modules outside allowedModules, references to names outside
// allowedBuiltins, denylisted names regardless of the allow-list, and
// dynamic-execution constructs. Binding lookups are scope-aware: a name
// bound inside a function excuses references within that function only,
// never at module level. Validate fails closed: unparseable code yields a
// single syntax violation. It is pure and deterministic, so calling it
// twice on the same inputs yields identical lists.
func Validate(code string, allowedModules, allowedBuiltins []string) []Violation {
	f, err := syntax.Parse("sandbox.star", code, 0)
	if err != nil {
		v := Violation{Kind: ViolationSyntax, Message: fmt.Sprintf("syntax error: %v", err)}
		if e, ok := err.(syntax.Error); ok {
			v.Line = e.Pos.Line
			v.Message = fmt.Sprintf("syntax error: %s", e.Msg)
		}
		return []Violation{v}
	}

	c := &checker{
		allowedModules:  toSet(allowedModules),
		allowedBuiltins: toSet(allowedBuiltins),
	}
	module := newScope(nil)
	c.collectStmts(f.Stmts, module)
	c.checkStmts(f.Stmts, module)
	return c.violations
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

// scope is one lexical binding level; lookups walk outward to the module.
type scope struct {
	parent *scope
	names  map[string]bool
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, names: make(map[string]bool)}
}

func (s *scope) bind(name string) { s.names[name] = true }

func (s *scope) bound(name string) bool {
	for sc := s; sc != nil; sc = sc.parent {
		if sc.names[name] {
			return true
		}
	}
	return false
}

type checker struct {
	allowedModules  map[string]bool
	allowedBuiltins map[string]bool
	violations      []Violation
}

// collectStmts records the names stmts bind in sc. Nested function bodies
// bind in their own scope, created when the function is checked.
func (c *checker) collectStmts(stmts []syntax.Stmt, sc *scope) {
	for _, st := range stmts {
		switch s := st.(type) {
		case *syntax.DefStmt:
			sc.bind(s.Name.Name)
		case *syntax.AssignStmt:
			c.bindTargets(s.LHS, sc)
		case *syntax.ForStmt:
			c.bindTargets(s.Vars, sc)
			c.collectStmts(s.Body, sc)
		case *syntax.WhileStmt:
			c.collectStmts(s.Body, sc)
		case *syntax.IfStmt:
			c.collectStmts(s.True, sc)
			c.collectStmts(s.False, sc)
		case *syntax.LoadStmt:
			for _, id := range s.To {
				sc.bind(id.Name)
			}
		}
	}
}

func (c *checker) bindTargets(e syntax.Expr, sc *scope) {
	switch t := e.(type) {
	case *syntax.Ident:
		sc.bind(t.Name)
	case *syntax.TupleExpr:
		for _, el := range t.List {
			c.bindTargets(el, sc)
		}
	case *syntax.ListExpr:
		for _, el := range t.List {
			c.bindTargets(el, sc)
		}
	case *syntax.ParenExpr:
		c.bindTargets(t.X, sc)
	}
	// Index and dot targets mutate existing values; they bind nothing.
}

// bindParams binds parameter names into the function scope. Default value
// expressions are evaluated where the function is defined, so they are
// checked against the enclosing scope.
func (c *checker) bindParams(params []syntax.Expr, inner, outer *scope) {
	for _, p := range params {
		switch t := p.(type) {
		case *syntax.Ident:
			inner.bind(t.Name)
		case *syntax.BinaryExpr: // name=default
			if id, ok := t.X.(*syntax.Ident); ok {
				inner.bind(id.Name)
			}
			c.checkExpr(t.Y, outer)
		case *syntax.UnaryExpr: // *args / **kwargs
			if id, ok := t.X.(*syntax.Ident); ok {
				inner.bind(id.Name)
			}
		}
	}
}

func (c *checker) checkStmts(stmts []syntax.Stmt, sc *scope) {
	for _, st := range stmts {
		c.checkStmt(st, sc)
	}
}

func (c *checker) checkStmt(st syntax.Stmt, sc *scope) {
	switch s := st.(type) {
	case *syntax.DefStmt:
		body := newScope(sc)
		c.bindParams(s.Params, body, sc)
		c.collectStmts(s.Body, body)
		c.checkStmts(s.Body, body)
	case *syntax.AssignStmt:
		c.checkExpr(s.LHS, sc)
		c.checkExpr(s.RHS, sc)
	case *syntax.ExprStmt:
		c.checkExpr(s.X, sc)
	case *syntax.IfStmt:
		c.checkExpr(s.Cond, sc)
		c.checkStmts(s.True, sc)
		c.checkStmts(s.False, sc)
	case *syntax.ForStmt:
		c.checkExpr(s.X, sc)
		c.checkStmts(s.Body, sc)
	case *syntax.WhileStmt:
		c.checkExpr(s.Cond, sc)
		c.checkStmts(s.Body, sc)
	case *syntax.ReturnStmt:
		if s.Result != nil {
			c.checkExpr(s.Result, sc)
		}
	case *syntax.LoadStmt:
		if mod, ok := s.Module.Value.(string); ok && !c.allowedModules[mod] {
			c.record(ViolationImport, s, fmt.Sprintf("load of module %q is not allowed", mod))
		}
	}
}

func (c *checker) checkExpr(e syntax.Expr, sc *scope) {
	switch x := e.(type) {
	case *syntax.Ident:
		c.checkIdent(x, sc)
	case *syntax.DotExpr:
		c.checkExpr(x.X, sc)
		// Attribute names are not value references, but dunder attributes
		// can reach internals.
		if len(x.Name.Name) > 2 && x.Name.Name[:2] == "__" {
			c.record(ViolationDynamic, x, fmt.Sprintf("access to attribute %q is not allowed", x.Name.Name))
		}
	case *syntax.CallExpr:
		c.checkExpr(x.Fn, sc)
		for _, arg := range x.Args {
			// Keyword argument names are labels, not references.
			if kw, ok := arg.(*syntax.BinaryExpr); ok && kw.Op == syntax.EQ {
				c.checkExpr(kw.Y, sc)
				continue
			}
			c.checkExpr(arg, sc)
		}
	case *syntax.LambdaExpr:
		body := newScope(sc)
		c.bindParams(x.Params, body, sc)
		c.checkExpr(x.Body, body)
	case *syntax.Comprehension:
		inner := newScope(sc)
		for _, cl := range x.Clauses {
			if fc, ok := cl.(*syntax.ForClause); ok {
				c.bindTargets(fc.Vars, inner)
			}
		}
		for _, cl := range x.Clauses {
			switch cl := cl.(type) {
			case *syntax.ForClause:
				c.checkExpr(cl.X, inner)
			case *syntax.IfClause:
				c.checkExpr(cl.Cond, inner)
			}
		}
		c.checkExpr(x.Body, inner)
	case *syntax.DictEntry:
		c.checkExpr(x.Key, sc)
		c.checkExpr(x.Value, sc)
	case *syntax.BinaryExpr:
		c.checkExpr(x.X, sc)
		c.checkExpr(x.Y, sc)
	case *syntax.UnaryExpr:
		if x.X != nil {
			c.checkExpr(x.X, sc)
		}
	case *syntax.ParenExpr:
		c.checkExpr(x.X, sc)
	case *syntax.IndexExpr:
		c.checkExpr(x.X, sc)
		c.checkExpr(x.Y, sc)
	case *syntax.SliceExpr:
		c.checkExpr(x.X, sc)
		for _, part := range []syntax.Expr{x.Lo, x.Hi, x.Step} {
			if part != nil {
				c.checkExpr(part, sc)
			}
		}
	case *syntax.CondExpr:
		c.checkExpr(x.Cond, sc)
		c.checkExpr(x.True, sc)
		c.checkExpr(x.False, sc)
	case *syntax.ListExpr:
		for _, el := range x.List {
			c.checkExpr(el, sc)
		}
	case *syntax.TupleExpr:
		for _, el := range x.List {
			c.checkExpr(el, sc)
		}
	case *syntax.DictExpr:
		for _, entry := range x.List {
			c.checkExpr(entry, sc)
		}
	}
	// Literals carry no names.
}

func (c *checker) checkIdent(id *syntax.Ident, sc *scope) {
	if kind, denied := deniedNames[id.Name]; denied {
		c.record(kind, id, fmt.Sprintf("reference to %q is not allowed", id.Name))
		return
	}
	if sc.bound(id.Name) || c.allowedBuiltins[id.Name] {
		return
	}
	c.record(ViolationBuiltin, id, fmt.Sprintf("reference to builtin %q is not allowed", id.Name))
}

func (c *checker) record(kind ViolationKind, n syntax.Node, msg string) {
	start, _ := n.Span()
	c.violations = append(c.violations, Violation{Kind: kind, Message: msg, Line: start.Line})
}
