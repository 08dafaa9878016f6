package interp

import (
	"errors"
	"fmt"
	"strings"
	"syscall"

	"github.com/templelinux/temple/hc"
)

// Run executes the program: top-level statements in insertion order,
// then Main (or main) if the top level never called it.
func (v *Vm) Run() error {
	v.mainCalled = false

	if _, err := v.execBlockUnscoped(v.program.TopLevel); err != nil {
		return runErrToHost(err)
	}
	if v.mainCalled {
		return nil
	}

	fn := v.program.Functions["Main"]
	if fn == nil {
		fn = v.program.Functions["main"]
	}
	if fn != nil && fn.Body != nil {
		if _, err := v.execBlock(fn.Body); err != nil {
			return runErrToHost(err)
		}
	}
	return nil
}

// runErrToHost maps broken-pipe diagnostics onto syscall.EPIPE so the
// CLI can exit cleanly when the shell goes away. Throwable signals that
// unwound all the way out surface as plain errors.
func runErrToHost(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrThrown) {
		return fmt.Errorf("uncaught throw")
	}
	if errors.Is(err, syscall.EPIPE) || containsBrokenPipe(err) {
		return fmt.Errorf("%w: %v", syscall.EPIPE, err)
	}
	return err
}

func containsBrokenPipe(err error) bool {
	s := err.Error()
	return strings.Contains(s, "Broken pipe") || strings.Contains(s, "broken pipe")
}

// ExecSnippet compiles and runs a source fragment inside the current
// VM, used by the registry built-ins.
func (v *Vm) ExecSnippet(file, src string) error {
	prog, err := hc.CompileSource(file, []byte(src), v.macros)
	if err != nil {
		return err
	}
	fl, err := v.execBlockUnscoped(prog.TopLevel)
	if err != nil {
		return err
	}
	switch fl.kind {
	case flowNone, flowReturn:
		return nil
	case flowBreak:
		return fmt.Errorf("break used outside of a loop/switch")
	case flowContinue:
		return fmt.Errorf("continue used outside of a loop")
	case flowGoto:
		return fmt.Errorf("unknown label: %s", fl.label)
	}
	return nil
}

// execStmtsWithGoto runs a statement list, pre-scanning for labels so
// goto to an in-scope label resolves by index.
func (v *Vm) execStmtsWithGoto(stmts []hc.Stmt) (flow, error) {
	var labels map[string]int
	for i, st := range stmts {
		if l, ok := st.(*hc.LabelStmt); ok {
			if labels == nil {
				labels = map[string]int{}
			}
			labels[l.Name] = i
		}
	}

	ip := 0
	for ip < len(stmts) {
		fl, err := v.execStmt(stmts[ip])
		if err != nil {
			if errors.Is(err, ErrThrown) {
				return flow{}, err
			}
			return flow{}, fmt.Errorf("%w\nwhile executing %s", err, stmtSummary(stmts[ip]))
		}
		switch fl.kind {
		case flowNone:
			ip++
		case flowGoto:
			if target, ok := labels[fl.label]; ok {
				ip = target + 1
			} else {
				// Bubble up to an enclosing block that has the label.
				return fl, nil
			}
		default:
			return fl, nil
		}
	}
	return flowNormal, nil
}

func stmtSummary(st hc.Stmt) string {
	switch s := st.(type) {
	case *hc.EmptyStmt:
		return "empty stmt"
	case *hc.PrintStmt:
		return "print stmt"
	case *hc.LabelStmt:
		return "label: " + s.Name
	case *hc.GotoStmt:
		return "goto: " + s.Name
	case *hc.VarDeclStmt:
		names := ""
		for i, d := range s.Decls {
			if i > 0 {
				names += ", "
			}
			names += d.Name
		}
		return "var decl: " + names
	case *hc.AssignStmt:
		return "assignment stmt"
	case *hc.ExprStmt:
		return "expr stmt"
	case *hc.BlockStmt:
		return "block stmt"
	case *hc.TryCatchStmt:
		return "try/catch stmt"
	case *hc.ThrowStmt:
		return "throw stmt"
	case *hc.BreakStmt:
		return "break stmt"
	case *hc.ContinueStmt:
		return "continue stmt"
	case *hc.IfStmt:
		return "if stmt"
	case *hc.WhileStmt:
		return "while stmt"
	case *hc.DoWhileStmt:
		return "do/while stmt"
	case *hc.ForStmt:
		return "for stmt"
	case *hc.SwitchStmt:
		return "switch stmt"
	case *hc.ReturnStmt:
		return "return stmt"
	}
	return "stmt"
}

// execBlockUnscoped runs statements in the current scope (top level,
// executed snippets).
func (v *Vm) execBlockUnscoped(stmts []hc.Stmt) (flow, error) {
	return v.execStmtsWithGoto(stmts)
}

// execBlock runs statements inside a fresh scope, popped on every exit
// path.
func (v *Vm) execBlock(stmts []hc.Stmt) (flow, error) {
	v.env.Push()
	defer v.env.Pop()
	return v.execStmtsWithGoto(stmts)
}

func (v *Vm) execStmt(st hc.Stmt) (flow, error) {
	switch s := st.(type) {
	case *hc.EmptyStmt:
		return flowNormal, nil
	case *hc.PrintStmt:
		return flowNormal, v.execPrint(s.Parts)
	case *hc.LabelStmt:
		return flowNormal, nil
	case *hc.GotoStmt:
		return flow{kind: flowGoto, label: s.Name}, nil
	case *hc.BreakStmt:
		return flow{kind: flowBreak}, nil
	case *hc.ContinueStmt:
		return flow{kind: flowContinue}, nil
	case *hc.VarDeclStmt:
		for i := range s.Decls {
			if err := v.execVarDecl(&s.Decls[i]); err != nil {
				return flow{}, err
			}
		}
		return flowNormal, nil
	case *hc.AssignStmt:
		return flowNormal, v.execAssign(s.Op, s.Lhs, s.Rhs)
	case *hc.ExprStmt:
		// A bare function name is a call in HolyC.
		if name, ok := s.X.(*hc.VarExpr); ok {
			if v.program.Functions[name.Name] != nil || isBuiltin(name.Name) {
				_, err := v.call(name.Name, nil)
				return flowNormal, err
			}
		}
		_, err := v.evalExpr(s.X)
		return flowNormal, err
	case *hc.BlockStmt:
		return v.execBlock(s.Body)
	case *hc.TryCatchStmt:
		fl, err := v.execBlock(s.Try)
		if err != nil {
			if errors.Is(err, ErrThrown) {
				return v.execBlock(s.Catch)
			}
			return flow{}, err
		}
		return fl, nil
	case *hc.ThrowStmt:
		return flow{}, ErrThrown
	case *hc.IfStmt:
		cond, err := v.evalExpr(s.Cond)
		if err != nil {
			return flow{}, err
		}
		if cond.Truthy() {
			return v.execBlock(s.Then)
		}
		if s.Else != nil {
			return v.execBlock(s.Else)
		}
		return flowNormal, nil
	case *hc.WhileStmt:
		for {
			cond, err := v.evalExpr(s.Cond)
			if err != nil {
				return flow{}, err
			}
			if !cond.Truthy() {
				return flowNormal, nil
			}
			fl, err := v.execBlock(s.Body)
			if err != nil {
				return flow{}, err
			}
			switch fl.kind {
			case flowNone, flowContinue:
			case flowBreak:
				return flowNormal, nil
			default:
				return fl, nil
			}
		}
	case *hc.DoWhileStmt:
		for {
			fl, err := v.execBlock(s.Body)
			if err != nil {
				return flow{}, err
			}
			switch fl.kind {
			case flowNone, flowContinue:
			case flowBreak:
				return flowNormal, nil
			default:
				return fl, nil
			}
			cond, err := v.evalExpr(s.Cond)
			if err != nil {
				return flow{}, err
			}
			if !cond.Truthy() {
				return flowNormal, nil
			}
		}
	case *hc.ForStmt:
		return v.execFor(s)
	case *hc.SwitchStmt:
		return v.execSwitch(s)
	case *hc.ReturnStmt:
		val := VoidV()
		if s.X != nil {
			var err error
			val, err = v.evalExpr(s.X)
			if err != nil {
				return flow{}, err
			}
		}
		return flow{kind: flowReturn, val: val}, nil
	}
	return flow{}, fmt.Errorf("internal: unknown statement %T", st)
}

func (v *Vm) execVarDecl(d *hc.Decl) error {
	val, err := v.evalDeclValue(d)
	if err != nil {
		return err
	}
	var ty VarType
	if d.Pointer && len(d.ArrayLens) == 0 {
		eb := hc.TypeSizeBytes(d.Ty, false)
		if eb < 1 {
			eb = 1
		}
		ty.PtrElemBytes = eb
	}
	if !d.Pointer && len(d.ArrayLens) == 0 {
		if d.Ty == "F32" || d.Ty == "F64" {
			ty.Scalar = ScalarFloat
		} else {
			ty.Scalar = ScalarInt
		}
	}
	v.env.DefineTyped(d.Name, ty, val)
	return nil
}

func (v *Vm) execFor(s *hc.ForStmt) (flow, error) {
	v.env.Push()
	defer v.env.Pop()

	if s.Init != nil {
		fl, err := v.execStmt(s.Init)
		if err != nil {
			return flow{}, err
		}
		switch fl.kind {
		case flowNone:
		case flowBreak:
			return flow{}, fmt.Errorf("break is not allowed in for-loop initializer")
		case flowContinue:
			return flow{}, fmt.Errorf("continue is not allowed in for-loop initializer")
		default:
			return fl, nil
		}
	}

	for {
		if s.Cond != nil {
			cond, err := v.evalExpr(s.Cond)
			if err != nil {
				return flow{}, err
			}
			if !cond.Truthy() {
				return flowNormal, nil
			}
		}

		fl, err := v.execBlock(s.Body)
		if err != nil {
			return flow{}, err
		}
		switch fl.kind {
		case flowNone, flowContinue:
		case flowBreak:
			return flowNormal, nil
		default:
			return fl, nil
		}

		if s.Post != nil {
			if _, err := v.evalExpr(s.Post); err != nil {
				return flow{}, err
			}
		}
	}
}

func (v *Vm) execSwitch(s *hc.SwitchStmt) (flow, error) {
	val, err := v.evalExpr(s.X)
	if err != nil {
		return flow{}, err
	}
	n, err := val.AsI64()
	if err != nil {
		return flow{}, err
	}

	var arm *hc.SwitchArm
	for i := range s.Arms {
		if s.Arms[i].ArmContains(n) {
			arm = &s.Arms[i]
			break
		}
	}
	if arm == nil {
		return flowNormal, nil
	}

	fl, err := v.execSwitchArm(n, arm)
	if err != nil {
		return flow{}, err
	}
	if fl.kind == flowBreak {
		return flowNormal, nil
	}
	return fl, nil
}

func (v *Vm) execSwitchArm(n int64, arm *hc.SwitchArm) (flow, error) {
	if arm.Group == nil {
		return v.execBlock(arm.Body)
	}

	fl, err := v.execBlock(arm.Group.Prefix)
	if err != nil {
		return flow{}, err
	}
	if fl.kind != flowNone {
		return fl, nil
	}

	for i := range arm.Group.Arms {
		inner := &arm.Group.Arms[i]
		if !inner.ArmContains(n) {
			continue
		}
		fl, err := v.execSwitchArm(n, inner)
		if err != nil {
			return flow{}, err
		}
		switch fl.kind {
		case flowNone, flowBreak:
		default:
			return fl, nil
		}
		break
	}

	return v.execBlock(arm.Group.Suffix)
}
