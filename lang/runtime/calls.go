package runtime

import (
	"unsafe"

	"github.com/mna/lit/lang/bytecode"
)

// call implements the CALL opcode: the callee lives in register calleeReg
// of the current frame, with argc arguments in the following registers.
func (vm *VM) call(calleeReg, argc int) error {
	f := vm.frame()
	base := f.Base + calleeReg
	callee := vm.stack[base]

	if !callee.IsObject() {
		return vm.runtimeError("Can only call functions and classes")
	}

	switch obj := callee.AsObject().(type) {
	case *Closure:
		return vm.callClosure(obj, base, argc, calleeReg, false, bytecode.Nil)

	case *Native:
		args := vm.stack[base+1 : base+1+argc]
		result, err := obj.Fn(vm, args)
		if err != nil {
			return vm.runtimeError("%s", err.Error())
		}
		vm.setReg(f.Base, calleeReg, result)
		return nil

	case *BoundMethod:
		vm.stack[base] = obj.Receiver
		switch m := obj.Method.AsObject().(type) {
		case *Closure:
			return vm.callClosure(m, base, argc, calleeReg, false, bytecode.Nil)
		case *NativeMethod:
			args := vm.stack[base+1 : base+1+argc]
			result, err := m.Fn(vm, obj.Receiver, args)
			if err != nil {
				return vm.runtimeError("%s", err.Error())
			}
			vm.setReg(f.Base, calleeReg, result)
			return nil
		}
		return vm.runtimeError("Cannot call this value")

	case *Class:
		if obj.Static || obj.Abstract {
			return vm.runtimeError("Cannot instantiate a static or abstract class")
		}
		inst := vm.Mem.newInstance(obj)
		instVal := bytecode.Object(inst)
		vm.stack[base] = instVal
		if init, _, ok := obj.FindMethod("init"); ok {
			if cl, isClosure := init.Value.AsObject().(*Closure); isClosure {
				return vm.callClosure(cl, base, argc, calleeReg, true, instVal)
			}
		}
		vm.setReg(f.Base, calleeReg, instVal)
		return nil

	default:
		return vm.runtimeError("Can only call functions and classes")
	}
}

// invoke implements INVOKE: direct method lookup on the receiver's class,
// skipping the bound-method allocation. Class receivers dispatch to the
// static tables (running the lazy static initializer first, same as
// GET_FIELD would), and an instance field holding a callable shadows the
// method table, preserving GET_FIELD's fields-before-methods order.
func (vm *VM) invoke(recvReg int, name string, argc int) error {
	f := vm.frame()
	base := f.Base + recvReg
	recv := vm.stack[base]

	if recv.IsObject() {
		switch o := recv.AsObject().(type) {
		case *Class:
			return vm.invokeOnClass(o, name, base, argc, recvReg)
		case *Instance:
			if v, ok := o.Fields.Get(name); ok {
				vm.stack[base] = v
				return vm.call(recvReg, argc)
			}
		}
	}

	cls := vm.classOf(recv)
	if cls == nil {
		return vm.runtimeError("Undefined method '%s'", name)
	}
	method, _, ok := cls.FindMethod(name)
	if !ok {
		return vm.runtimeError("Undefined method '%s'", name)
	}
	return vm.invokeMethod(method, recv, base, argc, recvReg, name)
}

func (vm *VM) invokeOnClass(cls *Class, name string, base, argc, recvReg int) error {
	if cls.StaticInit != nil && !cls.StaticInitialized {
		cls.StaticInitialized = true
		if err := vm.runStaticInitClosure(cls.StaticInit); err != nil {
			return err
		}
	}
	recv := vm.stack[base]
	if v, ok := cls.StaticFields.Get(name); ok {
		vm.stack[base] = v
		return vm.call(recvReg, argc)
	}
	if m, ok := cls.StaticMethods.Get(name); ok {
		return vm.invokeMethod(m, recv, base, argc, recvReg, name)
	}
	if vm.ClassClass != nil {
		if m, _, ok := vm.ClassClass.FindMethod(name); ok {
			return vm.invokeMethod(m, recv, base, argc, recvReg, name)
		}
	}
	return vm.runtimeError("Undefined method '%s'", name)
}

func (vm *VM) invokeMethod(m Method, recv bytecode.Value, base, argc, recvReg int, name string) error {
	f := vm.frame()
	switch fn := m.Value.AsObject().(type) {
	case *Closure:
		return vm.callClosure(fn, base, argc, recvReg, false, bytecode.Nil)
	case *NativeMethod:
		args := vm.stack[base+1 : base+1+argc]
		result, err := fn.Fn(vm, recv, args)
		if err != nil {
			return vm.runtimeError("%s", err.Error())
		}
		vm.setReg(f.Base, recvReg, result)
		return nil
	}
	return vm.runtimeError("Undefined method '%s'", name)
}

func (vm *VM) callClosure(cl *Closure, base, argc, calleeReg int, isConstruct bool, constructResult bytecode.Value) error {
	if argc != cl.Fn.Arity {
		return vm.runtimeError("Expected %d arguments but got %d", cl.Fn.Arity, argc)
	}
	if len(vm.frames) >= maxFrames || base+cl.Fn.NumRegisters > stackSize {
		return vm.runtimeError("Stack overflow")
	}
	vm.stackTop = base + cl.Fn.NumRegisters
	vm.frames = append(vm.frames, Frame{
		Closure: cl, Base: base, ReturnDst: calleeReg,
		IsConstruct: isConstruct, ConstructResult: constructResult,
	})
	return nil
}

// runStaticInitClosure pushes a frame for a zero-arity static initializer
// closure and drives it to completion before returning control to the
// caller, re-entering the dispatch loop rather than starting a fresh one
// (first static access, not class declaration, triggers this).
func (vm *VM) runStaticInitClosure(cl *Closure) error {
	if len(vm.frames) >= maxFrames {
		return vm.runtimeError("Stack overflow")
	}
	vm.push(bytecode.Object(cl))
	base := vm.stackTop - 1
	if base+cl.Fn.NumRegisters > stackSize {
		return vm.runtimeError("Stack overflow")
	}
	vm.stackTop = base + cl.Fn.NumRegisters
	stopDepth := len(vm.frames)
	vm.frames = append(vm.frames, Frame{Closure: cl, Base: base})
	_, err := vm.runFrom(stopDepth)
	return err
}

// makeClosure builds a Closure object from a Function constant, capturing
// upvalues as described by the (isLocal, index) byte pairs immediately
// following the opcode's fixed operands. The closure is stored in dst
// before any upvalue is captured: capturing may allocate (and so collect),
// and the destination register is what keeps the half-built closure rooted.
func (vm *VM) makeClosure(f *Frame, dst int, constant bytecode.Value) {
	fn := constant.AsObject().(*Function)
	cl := vm.Mem.newClosure(fn)
	vm.setReg(f.Base, dst, bytecode.Object(cl))
	for i := 0; i < fn.UpvalueCount; i++ {
		isLocal := vm.readByte(f)
		index := vm.readByte(f)
		if isLocal != 0 {
			cl.Upvalues[i] = vm.captureUpvalue(f.Base + index)
		} else {
			cl.Upvalues[i] = f.Closure.Upvalues[index]
		}
	}
}

// captureUpvalue returns the open upvalue for the given absolute stack
// slot, reusing an existing one if already open, and otherwise inserting a
// new one into the open list ordered by descending slot address.
func (vm *VM) captureUpvalue(slot int) *Upvalue {
	var prev *Upvalue
	cur := vm.openUpvalues
	for cur != nil && vm.upvalueSlot(cur) > slot {
		prev = cur
		cur = cur.NextOpen
	}
	if cur != nil && vm.upvalueSlot(cur) == slot {
		return cur
	}
	created := vm.Mem.newUpvalue(&vm.stack[slot])
	created.NextOpen = cur
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.NextOpen = created
	}
	return created
}

// upvalueSlot recovers the absolute stack index an open upvalue points at,
// by comparing addresses within the VM's own contiguous stack array.
func (vm *VM) upvalueSlot(u *Upvalue) int {
	base := uintptr(unsafe.Pointer(&vm.stack[0]))
	loc := uintptr(unsafe.Pointer(u.Location))
	return int((loc - base) / unsafe.Sizeof(vm.stack[0]))
}

// closeUpvalues closes every open upvalue at or above the given absolute
// stack slot, copying the stack cell into the upvalue's own storage and
// unlinking it from the open list; closing proceeds until the head is
// below the slot.
func (vm *VM) closeUpvalues(slot int) {
	for vm.openUpvalues != nil && vm.upvalueSlot(vm.openUpvalues) >= slot {
		u := vm.openUpvalues
		u.Closed = *u.Location
		u.IsClosed = true
		u.Location = &u.Closed
		vm.openUpvalues = u.NextOpen
		u.NextOpen = nil
	}
}
