package runtime

import (
	"fmt"
	"math"

	"github.com/dolthub/swiss"
	"github.com/mna/lit/lang/bytecode"
)

const (
	stackSize = 256
	maxFrames = 64
)

// VM is a single, non-reentrant interpreter instance. One VM runs one
// program unit at a time; it is not safe for concurrent use.
type VM struct {
	Mem     *Manager
	Globals *swiss.Map[string, bytecode.Value]

	stack    [stackSize]bytecode.Value
	stackTop int

	frames []Frame

	openUpvalues *Upvalue // head, ordered by descending stack slot

	InitString *String

	ClassClass, ObjectClass    *Class
	BoolClass, IntClass        *Class
	DoubleClass, CharClass     *Class
	StringClass, FunctionClass *Class

	abort bool

	// DebugGC and TraceExec are debug toggles, wired to the LIT_DEBUG_GC
	// and LIT_TRACE_EXEC environment variables in cmd/lit.
	DebugGC   bool
	TraceExec bool
}

// New creates a VM with a fresh runtime memory manager and the standard
// class hierarchy installed.
func New() *VM {
	vm := &VM{
		Mem:     NewManager(ManagerVM),
		Globals: swiss.NewMap[string, bytecode.Value](32),
	}
	vm.Mem.Collect = func() { vm.collectGarbage() }
	vm.InitString = vm.Mem.InternString("init")
	return vm
}

func (vm *VM) push(v bytecode.Value) {
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() bytecode.Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) bytecode.Value {
	return vm.stack[vm.stackTop-1-distance]
}

func (vm *VM) frame() *Frame { return &vm.frames[len(vm.frames)-1] }

func (vm *VM) reg(base, idx int) bytecode.Value       { return vm.stack[base+idx] }
func (vm *VM) setReg(base, idx int, v bytecode.Value) { vm.stack[base+idx] = v }

// Execute wraps fn in a closure, pushes the initial frame, and runs the
// dispatch loop to completion. A failed run unwinds every frame and resets
// the stack so the VM (globals included) stays usable for the next unit.
func (vm *VM) Execute(fn *Function) (bytecode.Value, error) {
	vm.abort = false
	closure := vm.Mem.newClosure(fn)
	vm.push(bytecode.Object(closure))
	base := vm.stackTop - 1
	vm.stackTop = base + fn.NumRegisters
	vm.frames = append(vm.frames, Frame{Closure: closure, Base: base})
	v, err := vm.run()
	if err != nil {
		vm.frames = vm.frames[:0]
		vm.stackTop = 0
		vm.openUpvalues = nil
	}
	return v, err
}

// run drives the dispatch loop from an empty call stack.
func (vm *VM) run() (bytecode.Value, error) {
	return vm.runFrom(0)
}

// runFrom drives the dispatch loop until the frame stack unwinds back down
// to stopDepth. A native call that re-enters the interpreter (a lazy static
// initializer, a callback invoked from a native method) pushes its own
// frame and calls runFrom(len(vm.frames)-1) so OpExit/OpReturn hand control
// back to the native caller instead of treating the VM run as finished.
func (vm *VM) runFrom(stopDepth int) (bytecode.Value, error) {
	for {
		f := vm.frame()
		chunk := f.chunk()

		if vm.TraceExec {
			disassembleInstruction(chunk, f.IP)
		}

		op := bytecode.Opcode(chunk.Code[f.IP])
		f.IP++

		switch op {
		case bytecode.OpNop:

		case bytecode.OpExit:
			vm.closeUpvalues(f.Base)
			vm.stackTop = f.Base
			vm.frames = vm.frames[:len(vm.frames)-1]
			if len(vm.frames) == stopDepth {
				return bytecode.Nil, nil
			}

		case bytecode.OpReturn:
			r := vm.readByte(f)
			result := vm.reg(f.Base, r)
			if f.IsConstruct {
				result = f.ConstructResult
			}
			returnDst := f.ReturnDst
			vm.closeUpvalues(f.Base)
			vm.stackTop = f.Base
			vm.frames = vm.frames[:len(vm.frames)-1]
			if len(vm.frames) == stopDepth {
				return result, nil
			}
			caller := vm.frame()
			vm.setReg(caller.Base, returnDst, result)

		case bytecode.OpConstant:
			dst := vm.readByte(f)
			idx := vm.readByte(f)
			vm.setReg(f.Base, dst, chunk.Constants[idx])

		case bytecode.OpConstantLong:
			dst := vm.readByte(f)
			idx := vm.readUint16(f)
			vm.setReg(f.Base, dst, chunk.Constants[idx])

		case bytecode.OpTrue:
			vm.setReg(f.Base, vm.readByte(f), bytecode.True)
		case bytecode.OpFalse:
			vm.setReg(f.Base, vm.readByte(f), bytecode.False)
		case bytecode.OpNil:
			vm.setReg(f.Base, vm.readByte(f), bytecode.Nil)

		case bytecode.OpAdd, bytecode.OpSubtract, bytecode.OpMultiply, bytecode.OpDivide,
			bytecode.OpModulo, bytecode.OpPower, bytecode.OpRoot:
			if err := vm.binaryArith(f, op); err != nil {
				return bytecode.Nil, err
			}

		case bytecode.OpEqual, bytecode.OpNotEqual, bytecode.OpLess, bytecode.OpGreater,
			bytecode.OpLessEqual, bytecode.OpGreaterEqual:
			if err := vm.binaryCompare(f, op); err != nil {
				return bytecode.Nil, err
			}

		case bytecode.OpNot:
			dst, a := vm.readByte(f), vm.readByte(f)
			vm.setReg(f.Base, dst, bytecode.Bool(vm.reg(f.Base, a).IsFalsey()))

		case bytecode.OpNegate:
			dst, a := vm.readByte(f), vm.readByte(f)
			v := vm.reg(f.Base, a)
			if !v.IsNumber() {
				return bytecode.Nil, vm.runtimeError("Operand must be a number")
			}
			vm.setReg(f.Base, dst, bytecode.Number(-v.AsNumber()))

		case bytecode.OpDefineGlobal:
			name := vm.constString(chunk, vm.readByte(f))
			r := vm.readByte(f)
			vm.Globals.Put(name, vm.reg(f.Base, r))

		case bytecode.OpGetGlobal:
			dst := vm.readByte(f)
			name := vm.constString(chunk, vm.readByte(f))
			v, ok := vm.Globals.Get(name)
			if !ok {
				return bytecode.Nil, vm.runtimeError("Undefined variable '%s'", name)
			}
			vm.setReg(f.Base, dst, v)

		case bytecode.OpSetGlobal:
			name := vm.constString(chunk, vm.readByte(f))
			r := vm.readByte(f)
			if _, ok := vm.Globals.Get(name); !ok {
				return bytecode.Nil, vm.runtimeError("Undefined variable '%s'", name)
			}
			vm.Globals.Put(name, vm.reg(f.Base, r))

		case bytecode.OpGetLocal:
			dst, slot := vm.readByte(f), vm.readByte(f)
			vm.setReg(f.Base, dst, vm.reg(f.Base, slot))

		case bytecode.OpSetLocal:
			slot, r := vm.readByte(f), vm.readByte(f)
			vm.setReg(f.Base, slot, vm.reg(f.Base, r))

		case bytecode.OpGetUpvalue:
			dst, idx := vm.readByte(f), vm.readByte(f)
			vm.setReg(f.Base, dst, f.Closure.Upvalues[idx].Get())

		case bytecode.OpSetUpvalue:
			idx, r := vm.readByte(f), vm.readByte(f)
			f.Closure.Upvalues[idx].Set(vm.reg(f.Base, r))

		case bytecode.OpCloseUpvalue:
			slot := vm.readByte(f)
			vm.closeUpvalues(f.Base + slot)

		case bytecode.OpJump:
			off := vm.readUint16(f)
			f.IP += int(off)

		case bytecode.OpJumpIfFalse:
			r := vm.readByte(f)
			off := vm.readUint16(f)
			if vm.reg(f.Base, r).IsFalsey() {
				f.IP += int(off)
			}

		case bytecode.OpLoop:
			off := vm.readUint16(f)
			f.IP -= int(off)

		case bytecode.OpDefineFunction:
			dst := vm.readByte(f)
			idx := vm.readByte(f)
			vm.makeClosure(f, dst, chunk.Constants[idx])

		case bytecode.OpDefineFunctionLong:
			dst := vm.readByte(f)
			idx := vm.readUint16(f)
			vm.makeClosure(f, dst, chunk.Constants[idx])

		case bytecode.OpClosure:
			dst := vm.readByte(f)
			idx := vm.readByte(f)
			vm.makeClosure(f, dst, chunk.Constants[idx])

		case bytecode.OpCall:
			calleeReg := vm.readByte(f)
			argc := vm.readByte(f)
			if err := vm.call(calleeReg, argc); err != nil {
				return bytecode.Nil, err
			}

		case bytecode.OpInvoke:
			recvReg := vm.readByte(f)
			name := vm.constString(chunk, vm.readByte(f))
			argc := vm.readByte(f)
			if err := vm.invoke(recvReg, name, argc); err != nil {
				return bytecode.Nil, err
			}

		case bytecode.OpClass:
			dst := vm.readByte(f)
			name := vm.constString(chunk, vm.readByte(f))
			cls := vm.Mem.newClass(vm.Mem.InternString(name), vm.ObjectClass)
			vm.setReg(f.Base, dst, bytecode.Object(cls))

		case bytecode.OpSubclass:
			dst := vm.readByte(f)
			name := vm.constString(chunk, vm.readByte(f))
			superReg := vm.readByte(f)
			superVal := vm.reg(f.Base, superReg)
			if !superVal.IsObject() || superVal.AsObject().Kind() != bytecode.ObjClass {
				return bytecode.Nil, vm.runtimeError("Superclass must be a class")
			}
			super := superVal.AsObject().(*Class)
			if super.Final {
				return bytecode.Nil, vm.runtimeError("Can't inherit final class %s", super.Name.Chars)
			}
			cls := vm.Mem.newClass(vm.Mem.InternString(name), super)
			vm.setReg(f.Base, dst, bytecode.Object(cls))

		case bytecode.OpDefineMethod:
			classReg := vm.readByte(f)
			name := vm.constString(chunk, vm.readByte(f))
			methodReg := vm.readByte(f)
			flags := vm.readByte(f)
			cls := vm.reg(f.Base, classReg).AsObject().(*Class)
			cls.Methods.Put(name, Method{
				Value:      vm.reg(f.Base, methodReg),
				Overridden: flags&bytecode.MethodFlagOverridden != 0,
			})

		case bytecode.OpDefineStaticMethod:
			classReg := vm.readByte(f)
			name := vm.constString(chunk, vm.readByte(f))
			methodReg := vm.readByte(f)
			cls := vm.reg(f.Base, classReg).AsObject().(*Class)
			cls.StaticMethods.Put(name, Method{Value: vm.reg(f.Base, methodReg), IsStatic: true})

		case bytecode.OpDefineField:
			classReg := vm.readByte(f)
			name := vm.constString(chunk, vm.readByte(f))
			valReg := vm.readByte(f)
			cls := vm.reg(f.Base, classReg).AsObject().(*Class)
			cls.Fields.Put(name, vm.reg(f.Base, valReg))

		case bytecode.OpDefineStaticField:
			classReg := vm.readByte(f)
			name := vm.constString(chunk, vm.readByte(f))
			valReg := vm.readByte(f)
			cls := vm.reg(f.Base, classReg).AsObject().(*Class)
			cls.StaticFields.Put(name, vm.reg(f.Base, valReg))

		case bytecode.OpGetField:
			dst := vm.readByte(f)
			objReg := vm.readByte(f)
			name := vm.constString(chunk, vm.readByte(f))
			v, err := vm.getField(vm.reg(f.Base, objReg), name)
			if err != nil {
				return bytecode.Nil, err
			}
			vm.setReg(f.Base, dst, v)

		case bytecode.OpSetField:
			objReg := vm.readByte(f)
			name := vm.constString(chunk, vm.readByte(f))
			valReg := vm.readByte(f)
			if err := vm.setField(vm.reg(f.Base, objReg), name, vm.reg(f.Base, valReg)); err != nil {
				return bytecode.Nil, err
			}

		case bytecode.OpSuper:
			dst := vm.readByte(f)
			objReg := vm.readByte(f)
			name := vm.constString(chunk, vm.readByte(f))
			v, err := vm.superMethod(vm.reg(f.Base, objReg), name)
			if err != nil {
				return bytecode.Nil, err
			}
			vm.setReg(f.Base, dst, v)

		case bytecode.OpStaticInit:
			classReg := vm.readByte(f)
			funcReg := vm.readByte(f)
			cls := vm.reg(f.Base, classReg).AsObject().(*Class)
			cls.StaticInit = vm.reg(f.Base, funcReg).AsObject().(*Closure)

		case bytecode.OpIs:
			dst := vm.readByte(f)
			objReg := vm.readByte(f)
			classReg := vm.readByte(f)
			v := vm.reg(f.Base, objReg)
			cv := vm.reg(f.Base, classReg)
			if !cv.IsObject() {
				return bytecode.Nil, vm.runtimeError("Right operand of 'is' must be a class")
			}
			target, ok := cv.AsObject().(*Class)
			if !ok {
				return bytecode.Nil, vm.runtimeError("Right operand of 'is' must be a class")
			}
			vm.setReg(f.Base, dst, bytecode.Bool(valueIsInstanceOf(vm, v, target)))

		case bytecode.OpPop:
			vm.readByte(f)

		default:
			return bytecode.Nil, vm.runtimeError("Unknown opcode %d", op)
		}

		if vm.abort {
			return bytecode.Nil, fmt.Errorf("aborted")
		}
	}
}

func (vm *VM) readByte(f *Frame) int {
	b := f.chunk().Code[f.IP]
	f.IP++
	return int(b)
}

func (vm *VM) readUint16(f *Frame) uint16 {
	hi := f.chunk().Code[f.IP]
	lo := f.chunk().Code[f.IP+1]
	f.IP += 2
	return uint16(hi)<<8 | uint16(lo)
}

func (vm *VM) constString(c *bytecode.Chunk, idx int) string {
	v := c.Constants[idx]
	return v.AsObject().(*String).Chars
}

func (vm *VM) binaryArith(f *Frame, op bytecode.Opcode) error {
	dst, a, b := vm.readByte(f), vm.readByte(f), vm.readByte(f)
	av, bv := vm.reg(f.Base, a), vm.reg(f.Base, b)

	if op == bytecode.OpAdd && (!av.IsNumber() || !bv.IsNumber()) {
		vm.setReg(f.Base, dst, bytecode.Object(vm.Mem.InternString(vm.toDisplayString(av)+vm.toDisplayString(bv))))
		return nil
	}

	if !av.IsNumber() || !bv.IsNumber() {
		return vm.runtimeError("Operands must be numbers")
	}
	x, y := av.AsNumber(), bv.AsNumber()
	var r float64
	switch op {
	case bytecode.OpAdd:
		r = x + y
	case bytecode.OpSubtract:
		r = x - y
	case bytecode.OpMultiply:
		r = x * y
	case bytecode.OpDivide:
		r = x / y
	case bytecode.OpModulo:
		r = math.Mod(x, y)
	case bytecode.OpPower:
		r = math.Pow(x, y)
	case bytecode.OpRoot:
		r = math.Pow(x, 1/y)
	}
	vm.setReg(f.Base, dst, bytecode.Number(r))
	return nil
}

func (vm *VM) binaryCompare(f *Frame, op bytecode.Opcode) error {
	dst, a, b := vm.readByte(f), vm.readByte(f), vm.readByte(f)
	av, bv := vm.reg(f.Base, a), vm.reg(f.Base, b)

	if op == bytecode.OpEqual {
		vm.setReg(f.Base, dst, bytecode.Bool(bytecode.Equal(av, bv)))
		return nil
	}
	if op == bytecode.OpNotEqual {
		vm.setReg(f.Base, dst, bytecode.Bool(!bytecode.Equal(av, bv)))
		return nil
	}
	if !av.IsNumber() || !bv.IsNumber() {
		return vm.runtimeError("Operands must be numbers")
	}
	x, y := av.AsNumber(), bv.AsNumber()
	var r bool
	switch op {
	case bytecode.OpLess:
		r = x < y
	case bytecode.OpGreater:
		r = x > y
	case bytecode.OpLessEqual:
		r = x <= y
	case bytecode.OpGreaterEqual:
		r = x >= y
	}
	vm.setReg(f.Base, dst, bytecode.Bool(r))
	return nil
}

// toDisplayString implements the value-to-string conversion used by string
// concatenation via ADD.
func (vm *VM) toDisplayString(v bytecode.Value) string {
	switch {
	case v.IsNil():
		return "nil"
	case v.IsBool():
		if v.AsBool() {
			return "true"
		}
		return "false"
	case v.IsChar():
		return string(rune(v.AsChar()))
	case v.IsNumber():
		return formatNumber(v.AsNumber())
	case v.IsObject():
		switch o := v.AsObject().(type) {
		case *String:
			return o.Chars
		case *Function:
			return o.String()
		case *Closure:
			return o.Fn.String()
		case *Class:
			return o.Name.Chars
		case *Instance:
			return o.Class.Name.Chars + " instance"
		default:
			return "<object>"
		}
	}
	return ""
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) && !math.IsInf(f, 0) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
