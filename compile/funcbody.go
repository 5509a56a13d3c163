package compile

import (
	"github.com/magoolation/intmud/ast"
	"github.com/magoolation/intmud/internal/norm"
)

// funcCompiler lowers one function body (or one lazily-evaluated constant
// expression) to bytecode against a single Emitter. It holds the local-slot
// table for that one body; the enclosing compiler is shared read-only state
// (field/const/func tables of the class under compilation and its bases).
//
// Receiver access follows one rule throughout: implicit `this` goes through
// the fast compile-time-resolved field index (OpLoadField/OpStoreField);
// anything else, an explicit receiver expression, or a class reference,
// static or dynamic, goes through the *Dynamic family, which always reads
// the field/member name off the stack rather than as an operand. A literal
// member name compiles to a pushed string constant; a genuinely computed
// name (dynamicName) compiles to the same stack shape. The VM does not need
// to tell the two apart.
type funcCompiler struct {
	*compiler
	em     *Emitter
	locals map[string]int
	order  []string
}

func (fc *funcCompiler) newLocal(name string) int {
	slot := len(fc.order)
	fc.locals[name] = slot
	fc.order = append(fc.order, name)
	return slot
}

func (fc *funcCompiler) intern(s string) int {
	idx, err := fc.pool.Intern(s)
	if err != nil {
		// string pool overflow is only possible with a pathologically large
		// unit; surfaced as a compile error at the call site via panic/recover
		// would be out of keeping with this package's error style, so the
		// handful of callers that can fail thread the error through normally.
		panic(err)
	}
	return idx
}

// block lowers a statement list in its own local-name scope: names declared
// here stop existing at the end of the block, but the slot itself is never
// reused. A name still visible from this or an enclosing scope cannot be
// declared again, so inner names never shadow outer locals.
func (fc *funcCompiler) block(stmts []ast.Stmt) error {
	saved := make(map[string]int, len(fc.locals))
	for k, v := range fc.locals {
		saved[k] = v
	}
	defer func() { fc.locals = saved }()

	for _, s := range stmts {
		if err := fc.stmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (fc *funcCompiler) stmt(s ast.Stmt) error {
	switch n := s.(type) {
	case *ast.VarDecl:
		canon := string(norm.Canon(n.Name))
		if _, exists := fc.locals[canon]; exists {
			return newErr(fc.unit.ClassName, n.Pos, "local %s redeclared while still in scope", n.Name)
		}
		if n.Init != nil {
			if err := fc.expr(n.Init); err != nil {
				return err
			}
		} else {
			fc.em.PushNull()
		}
		slot := fc.newLocal(canon)
		fc.em.StoreLocal(slot)
		fc.em.Pop()
		return nil

	case *ast.ExpressionStmt:
		if err := fc.expr(n.Expr); err != nil {
			return err
		}
		fc.em.Pop()
		return nil

	case *ast.Return:
		if n.Expr == nil {
			fc.em.Return()
			return nil
		}
		if err := fc.expr(n.Expr); err != nil {
			return err
		}
		fc.em.ReturnValue()
		return nil

	case *ast.Break:
		if !fc.em.InLoop() {
			return newErr(fc.unit.ClassName, n.Pos, "break outside a loop")
		}
		fc.em.Break()
		return nil

	case *ast.Continue:
		if !fc.em.InLoop() {
			return newErr(fc.unit.ClassName, n.Pos, "continue outside a loop")
		}
		fc.em.Continue()
		return nil

	case *ast.Terminate:
		fc.em.Terminate()
		return nil

	case *ast.If:
		return fc.ifStmt(n)

	case *ast.While:
		return fc.whileStmt(n)

	case *ast.For:
		return fc.forStmt(n)

	case *ast.ForEach:
		return fc.forEachStmt(n)

	case *ast.Switch:
		return fc.switchStmt(n)

	default:
		return newErr(fc.unit.ClassName, s.Position(), "unsupported statement %T", s)
	}
}

func (fc *funcCompiler) ifStmt(n *ast.If) error {
	end := fc.em.NewLabel()

	if err := fc.expr(n.Cond); err != nil {
		return err
	}
	next := fc.em.NewLabel()
	fc.em.JumpIfFalse(next)
	if err := fc.block(n.Then); err != nil {
		return err
	}
	fc.em.Jump(end)
	fc.em.BindLabel(next)

	for _, ei := range n.ElseIfs {
		if err := fc.expr(ei.Cond); err != nil {
			return err
		}
		next = fc.em.NewLabel()
		fc.em.JumpIfFalse(next)
		if err := fc.block(ei.Body); err != nil {
			return err
		}
		fc.em.Jump(end)
		fc.em.BindLabel(next)
	}

	if n.Else != nil {
		if err := fc.block(n.Else); err != nil {
			return err
		}
	}
	fc.em.BindLabel(end)
	return nil
}

func (fc *funcCompiler) whileStmt(n *ast.While) error {
	start := fc.em.NewLabel()
	end := fc.em.NewLabel()

	fc.em.BindLabel(start)
	if err := fc.expr(n.Cond); err != nil {
		return err
	}
	fc.em.JumpIfFalse(end)

	fc.em.PushLoop(start, end)
	if err := fc.block(n.Body); err != nil {
		return err
	}
	fc.em.PopLoop()

	fc.em.Jump(start)
	fc.em.BindLabel(end)
	return nil
}

func (fc *funcCompiler) forStmt(n *ast.For) error {
	saved := make(map[string]int, len(fc.locals))
	for k, v := range fc.locals {
		saved[k] = v
	}
	defer func() { fc.locals = saved }()

	if n.Init != nil {
		if err := fc.stmt(n.Init); err != nil {
			return err
		}
	}

	start := fc.em.NewLabel()
	stepLbl := fc.em.NewLabel()
	end := fc.em.NewLabel()

	fc.em.BindLabel(start)
	if n.Cond != nil {
		if err := fc.expr(n.Cond); err != nil {
			return err
		}
		fc.em.JumpIfFalse(end)
	}

	fc.em.PushLoop(stepLbl, end)
	if err := fc.block(n.Body); err != nil {
		return err
	}
	fc.em.PopLoop()

	fc.em.BindLabel(stepLbl)
	if n.Step != nil {
		if err := fc.stmt(n.Step); err != nil {
			return err
		}
	}
	fc.em.Jump(start)
	fc.em.BindLabel(end)
	return nil
}

// forEachStmt lowers `paracada v em iter ... fim` against a hidden cursor
// local plus the @has-next/@next/@advance builtin trio, mirroring how Index
// access lowers to @index: iteration has no dedicated opcode, only a
// receiver and synthetic call-method names. The cursor value itself never
// mutates in place (it is an ordinary value.Value copy on the VM stack), so
// each loop iteration explicitly stores the @advance result back into
// iterSlot rather than expecting @next to move the cursor as a side effect.
func (fc *funcCompiler) forEachStmt(n *ast.ForEach) error {
	saved := make(map[string]int, len(fc.locals))
	for k, v := range fc.locals {
		saved[k] = v
	}
	defer func() { fc.locals = saved }()

	iterSlot := fc.newLocal("@foreach-iter")
	if err := fc.expr(n.Iter); err != nil {
		return err
	}
	fc.em.CallMethod(fc.intern("@iterator"), 0)
	fc.em.StoreLocal(iterSlot)
	fc.em.Pop()

	varSlot := fc.newLocal(string(norm.Canon(n.Var)))

	start := fc.em.NewLabel()
	advance := fc.em.NewLabel()
	end := fc.em.NewLabel()
	fc.em.BindLabel(start)

	fc.em.LoadLocal(iterSlot)
	fc.em.CallMethod(fc.intern("@has-next"), 0)
	fc.em.JumpIfFalse(end)

	fc.em.LoadLocal(iterSlot)
	fc.em.CallMethod(fc.intern("@next"), 0)
	fc.em.StoreLocal(varSlot)
	fc.em.Pop()

	// continue jumps here, not to start, so it still advances the cursor
	// before re-checking @has-next (the same role For's step clause plays).
	fc.em.PushLoop(advance, end)
	if err := fc.block(n.Body); err != nil {
		return err
	}
	fc.em.PopLoop()

	fc.em.BindLabel(advance)
	fc.em.LoadLocal(iterSlot)
	fc.em.CallMethod(fc.intern("@advance"), 0)
	fc.em.StoreLocal(iterSlot)
	fc.em.Pop()
	fc.em.Jump(start)
	fc.em.BindLabel(end)
	return nil
}

func (fc *funcCompiler) switchStmt(n *ast.Switch) error {
	saved := make(map[string]int, len(fc.locals))
	for k, v := range fc.locals {
		saved[k] = v
	}
	defer func() { fc.locals = saved }()

	subjSlot := fc.newLocal("@switch-subject")
	if err := fc.expr(n.Expr); err != nil {
		return err
	}
	fc.em.StoreLocal(subjSlot)
	fc.em.Pop()

	end := fc.em.NewLabel()
	for _, c := range n.Cases {
		nextCase := fc.em.NewLabel()
		matched := fc.em.NewLabel()
		for _, v := range c.Values {
			fc.em.LoadLocal(subjSlot)
			if err := fc.expr(v); err != nil {
				return err
			}
			fc.em.Eq()
			fc.em.JumpIfTrue(matched)
		}
		fc.em.Jump(nextCase)
		fc.em.BindLabel(matched)
		if err := fc.block(c.Body); err != nil {
			return err
		}
		fc.em.Jump(end)
		fc.em.BindLabel(nextCase)
	}
	if n.Default != nil {
		if err := fc.block(n.Default); err != nil {
			return err
		}
	}
	fc.em.BindLabel(end)
	return nil
}

// expr lowers an expression, leaving exactly one value on the operand
// stack.
func (fc *funcCompiler) expr(e ast.Expr) error {
	switch n := e.(type) {
	case *ast.Lit:
		return fc.lit(n)

	case *ast.ArgRef:
		if n.N < 0 {
			fc.em.LoadArgCount()
		} else {
			fc.em.LoadArg(n.N)
		}
		return nil

	case *ast.Ident:
		return fc.ident(n)

	case *ast.Global:
		fc.em.LoadGlobal(fc.intern(string(norm.Canon(n.Name))))
		return nil

	case *ast.DynamicName:
		fc.em.LoadThis()
		if err := fc.pushDynamicName(n); err != nil {
			return err
		}
		fc.em.LoadFieldDynamic()
		return nil

	case *ast.Member:
		return fc.memberRead(n)

	case *ast.ClassRef:
		return fc.classRefRead(n)

	case *ast.Call:
		return fc.call(n)

	case *ast.Index:
		if err := fc.expr(n.Seq); err != nil {
			return err
		}
		if err := fc.expr(n.Index); err != nil {
			return err
		}
		fc.em.CallMethod(fc.intern("@index"), 1)
		return nil

	case *ast.Unary:
		return fc.unary(n)

	case *ast.Binary:
		return fc.binary(n)

	case *ast.Ternary:
		return fc.ternary(n)

	case *ast.Assign:
		return fc.assign(n)

	default:
		return newErr(fc.unit.ClassName, e.Position(), "unsupported expression %T", e)
	}
}

func (fc *funcCompiler) lit(n *ast.Lit) error {
	switch n.Kind {
	case ast.LitNull:
		fc.em.PushNull()
	case ast.LitInt:
		fc.em.PushInt(n.Int)
	case ast.LitReal:
		fc.em.PushDouble(n.Real)
	case ast.LitText:
		fc.em.PushString(fc.intern(n.Text))
	}
	return nil
}

func (fc *funcCompiler) ident(n *ast.Ident) error {
	canon := string(norm.Canon(n.Name))
	if slot, ok := fc.locals[canon]; ok {
		fc.em.LoadLocal(slot)
		return nil
	}
	if fld, ok := fc.unit.Field(canon); ok {
		fc.em.LoadField(fc.fieldOperand(fld))
		return nil
	}
	// Not a local, not a field: treat as a zero-argument call, resolved
	// against `this`'s class chain and, failing that, the builtin
	// registry. A bare identifier that is neither a local nor a field
	// resolves as a zero-arg call.
	fc.em.Call(fc.intern(canon), 0)
	return nil
}

// fieldOperand is the unit-local field-table index OpLoadField/OpStoreField
// use for implicit-this access. Fields declared on a base class are present
// in c.unit.Fields too (buildFieldTable folds the whole linearized chain in),
// so a single flat index always works regardless of which class in the
// chain declared the field.
func (fc *funcCompiler) fieldOperand(f FieldInfo) int {
	return fc.unit.FieldIdx[f.Name]
}

func (fc *funcCompiler) pushDynamicName(n *ast.DynamicName) error {
	fc.em.PushString(fc.intern(n.Prefix))
	if err := fc.expr(n.Index); err != nil {
		return err
	}
	fc.em.Add() // text + coerced-to-text value concatenates (value.go's text-coercion display rule)
	fc.em.PushString(fc.intern(n.Suffix))
	fc.em.Add()
	return nil
}

func (fc *funcCompiler) memberRead(n *ast.Member) error {
	if n.Recv == nil {
		if fld, ok := fc.unit.Field(string(norm.Canon(n.Name))); ok {
			fc.em.LoadField(fc.fieldOperand(fld))
			return nil
		}
		// a bare `this`-implicit member that isn't a known field is a
		// zero-arg method call on this.
		fc.em.Call(fc.intern(string(norm.Canon(n.Name))), 0)
		return nil
	}
	if err := fc.expr(n.Recv); err != nil {
		return err
	}
	fc.em.PushString(fc.intern(string(norm.Canon(n.Name))))
	fc.em.LoadFieldDynamic()
	return nil
}

func (fc *funcCompiler) classRefRead(n *ast.ClassRef) error {
	if err := fc.loadClassValue(n); err != nil {
		return err
	}
	if n.Member == "" {
		return nil
	}
	fc.em.PushString(fc.intern(string(norm.Canon(n.Member))))
	fc.em.LoadFieldDynamic()
	return nil
}

func (fc *funcCompiler) loadClassValue(n *ast.ClassRef) error {
	if n.Dynamic != nil {
		if err := fc.expr(n.Dynamic); err != nil {
			return err
		}
		fc.em.LoadClassDynamic()
		return nil
	}
	fc.em.LoadClass(fc.intern(string(norm.Canon(n.Class))))
	return nil
}

func (fc *funcCompiler) call(n *ast.Call) error {
	canon := string(norm.Canon(n.Name))
	if n.Recv == nil {
		for _, a := range n.Args {
			if err := fc.expr(a); err != nil {
				return err
			}
		}
		fc.em.Call(fc.intern(canon), len(n.Args))
		return nil
	}
	if err := fc.expr(n.Recv); err != nil {
		return err
	}
	for _, a := range n.Args {
		if err := fc.expr(a); err != nil {
			return err
		}
	}
	fc.em.CallMethod(fc.intern(canon), len(n.Args))
	return nil
}

func (fc *funcCompiler) unary(n *ast.Unary) error {
	if err := fc.expr(n.X); err != nil {
		return err
	}
	switch n.Op {
	case ast.UnNeg:
		fc.em.Neg()
	case ast.UnNot:
		fc.em.PushFalse()
		fc.em.Eq()
	case ast.UnBitNot:
		fc.em.BitNot()
	}
	return nil
}

func (fc *funcCompiler) binary(n *ast.Binary) error {
	switch n.Op {
	case ast.BLogicalAnd:
		return fc.shortCircuit(n, false)
	case ast.BLogicalOr:
		return fc.shortCircuit(n, true)
	case ast.BNullCoalesce:
		return fc.nullCoalesce(n)
	}

	if err := fc.expr(n.X); err != nil {
		return err
	}
	if err := fc.expr(n.Y); err != nil {
		return err
	}
	switch n.Op {
	case ast.BAdd:
		fc.em.Add()
	case ast.BSub:
		fc.em.Sub()
	case ast.BMul:
		fc.em.Mul()
	case ast.BDiv:
		fc.em.Div()
	case ast.BMod:
		fc.em.Mod()
	case ast.BAnd:
		fc.em.BitAnd()
	case ast.BOr:
		fc.em.BitOr()
	case ast.BXor:
		fc.em.BitXor()
	case ast.BShl:
		fc.em.Shl()
	case ast.BShr:
		fc.em.Shr()
	case ast.BEq:
		fc.em.Eq()
	case ast.BNe:
		fc.em.Ne()
	case ast.BLt:
		fc.em.Lt()
	case ast.BLe:
		fc.em.Le()
	case ast.BGt:
		fc.em.Gt()
	case ast.BGe:
		fc.em.Ge()
	case ast.BEqType:
		fc.em.EqType()
	case ast.BNeType:
		fc.em.NeType()
	default:
		return newErr(fc.unit.ClassName, n.Pos, "unsupported binary operator")
	}
	return nil
}

// shortCircuit lowers `&&`/`||` without ever evaluating Y when X alone
// decides the result.
func (fc *funcCompiler) shortCircuit(n *ast.Binary, isOr bool) error {
	if err := fc.expr(n.X); err != nil {
		return err
	}
	fc.em.Dup()
	short := fc.em.NewLabel()
	end := fc.em.NewLabel()
	if isOr {
		fc.em.JumpIfTrue(short)
	} else {
		fc.em.JumpIfFalse(short)
	}
	fc.em.Pop()
	if err := fc.expr(n.Y); err != nil {
		return err
	}
	fc.em.Jump(end)
	fc.em.BindLabel(short)
	fc.em.BindLabel(end)
	return nil
}

// nullCoalesce lowers `x ?? y`: y only evaluates when x is null.
func (fc *funcCompiler) nullCoalesce(n *ast.Binary) error {
	if err := fc.expr(n.X); err != nil {
		return err
	}
	fc.em.Dup()
	fc.em.PushNull()
	fc.em.EqType()
	isNull := fc.em.NewLabel()
	end := fc.em.NewLabel()
	fc.em.JumpIfTrue(isNull)
	fc.em.Jump(end)
	fc.em.BindLabel(isNull)
	fc.em.Pop()
	if err := fc.expr(n.Y); err != nil {
		return err
	}
	fc.em.BindLabel(end)
	return nil
}

func (fc *funcCompiler) ternary(n *ast.Ternary) error {
	if err := fc.expr(n.Cond); err != nil {
		return err
	}
	elseLbl := fc.em.NewLabel()
	end := fc.em.NewLabel()
	fc.em.JumpIfFalse(elseLbl)
	if err := fc.expr(n.Then); err != nil {
		return err
	}
	fc.em.Jump(end)
	fc.em.BindLabel(elseLbl)
	if err := fc.expr(n.Else); err != nil {
		return err
	}
	fc.em.BindLabel(end)
	return nil
}

// assign lowers an assignment expression. The assigned value is left on the
// stack as the expression's own result, so `a = b = 1` and `tela.msg(a = 1)`
// both work.
func (fc *funcCompiler) assign(n *ast.Assign) error {
	if n.Op == ast.AssignSet {
		if err := fc.expr(n.Value); err != nil {
			return err
		}
	} else {
		if err := fc.expr(n.Target); err != nil {
			return err
		}
		if err := fc.expr(n.Value); err != nil {
			return err
		}
		switch n.Op {
		case ast.AssignAdd:
			fc.em.Add()
		case ast.AssignSub:
			fc.em.Sub()
		case ast.AssignMul:
			fc.em.Mul()
		case ast.AssignDiv:
			fc.em.Div()
		case ast.AssignMod:
			fc.em.Mod()
		case ast.AssignAnd:
			fc.em.BitAnd()
		case ast.AssignOr:
			fc.em.BitOr()
		case ast.AssignXor:
			fc.em.BitXor()
		case ast.AssignShl:
			fc.em.Shl()
		case ast.AssignShr:
			fc.em.Shr()
		}
	}
	return fc.store(n.Target)
}

// store pops the value currently on top of the stack and writes it to
// target, then pushes it back so the assignment reads as its own result.
func (fc *funcCompiler) store(target ast.Expr) error {
	switch t := target.(type) {
	case *ast.Ident:
		canon := string(norm.Canon(t.Name))
		if slot, ok := fc.locals[canon]; ok {
			fc.em.Dup()
			fc.em.StoreLocal(slot)
			fc.em.Pop()
			return nil
		}
		if fld, ok := fc.unit.Field(canon); ok {
			fc.em.Dup()
			fc.em.StoreField(fc.fieldOperand(fld))
			fc.em.Pop()
			return nil
		}
		return newErr(fc.unit.ClassName, t.Pos, "assignment to unknown identifier %s", t.Name)

	case *ast.Global:
		fc.em.Dup()
		fc.em.StoreGlobal(fc.intern(string(norm.Canon(t.Name))))
		fc.em.Pop()
		return nil

	case *ast.Member:
		if t.Recv == nil {
			if fld, ok := fc.unit.Field(string(norm.Canon(t.Name))); ok {
				fc.em.Dup()
				fc.em.StoreField(fc.fieldOperand(fld))
				fc.em.Pop()
				return nil
			}
			return newErr(fc.unit.ClassName, t.Pos, "assignment to unknown field %s", t.Name)
		}
		// stack: value. Builds it out to [value, receiver, name], the
		// shape finishDynamicStore expects.
		if err := fc.expr(t.Recv); err != nil {
			return err
		}
		fc.em.PushString(fc.intern(string(norm.Canon(t.Name))))
		return fc.finishDynamicStore()

	case *ast.ClassRef:
		if err := fc.loadClassValue(t); err != nil {
			return err
		}
		fc.em.PushString(fc.intern(string(norm.Canon(t.Member))))
		return fc.finishDynamicStore()

	case *ast.Index:
		if err := fc.expr(t.Seq); err != nil {
			return err
		}
		if err := fc.expr(t.Index); err != nil {
			return err
		}
		return fc.finishIndexStore()

	case *ast.DynamicName:
		fc.em.LoadThis()
		if err := fc.pushDynamicName(t); err != nil {
			return err
		}
		return fc.finishDynamicStore()

	default:
		return newErr(fc.unit.ClassName, target.Position(), "non-addressable assignment target %T", target)
	}
}

// finishDynamicStore expects the stack, from bottom to top, to already hold
// [..., value, receiver, name] (value was computed first by assign, then
// store pushed receiver and name above it) and rewrites it in place to the
// [receiver, name, value] order OpStoreFieldDynamic expects, leaving one
// copy of value on top afterwards as the expression result. Emitter has no
// stack-rotate primitive, so this is done with a local slot rather than a
// sequence of swaps.
func (fc *funcCompiler) finishDynamicStore() error {
	tmp := fc.newLocal("@store-tmp-name")
	fc.em.StoreLocal(tmp) // copy name into tmp (store-local does not pop)
	recvTmp := fc.newLocal("@store-tmp-recv")
	fc.em.Pop() // stack: value, receiver
	fc.em.StoreLocal(recvTmp)
	fc.em.Pop() // stack: value
	valTmp := fc.newLocal("@store-tmp-val")
	fc.em.Dup()
	fc.em.StoreLocal(valTmp)
	fc.em.Pop() // stack: value (expression result so far)

	fc.em.LoadLocal(recvTmp)
	fc.em.LoadLocal(tmp)
	fc.em.LoadLocal(valTmp)
	fc.em.StoreFieldDynamic()
	return nil
}

func (fc *funcCompiler) finishIndexStore() error {
	// stack: value, seq, index (value pushed by assign before store ran)
	idxTmp := fc.newLocal("@store-tmp-idx")
	fc.em.StoreLocal(idxTmp)
	fc.em.Pop()
	seqTmp := fc.newLocal("@store-tmp-seq")
	fc.em.StoreLocal(seqTmp)
	fc.em.Pop()
	valTmp := fc.newLocal("@store-tmp-val")
	fc.em.Dup()
	fc.em.StoreLocal(valTmp)
	fc.em.Pop()

	fc.em.LoadLocal(seqTmp)
	fc.em.LoadLocal(idxTmp)
	fc.em.LoadLocal(valTmp)
	fc.em.CallMethod(fc.intern("@index-set"), 2)
	fc.em.Pop() // discard @index-set's own return value; valTmp is already the expression result
	return nil
}
