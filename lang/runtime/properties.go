package runtime

import "github.com/mna/lit/lang/bytecode"

// classOf returns the standard-library class backing a non-instance,
// non-class value's method dispatch: numbers look up Int or Double
// depending on whether they hold a whole number, strings look up String,
// classes themselves look up Class, and so on.
func (vm *VM) classOf(v bytecode.Value) *Class {
	switch {
	case v.IsNil():
		return nil
	case v.IsBool():
		return vm.BoolClass
	case v.IsChar():
		return vm.CharClass
	case v.IsNumber():
		f := v.AsNumber()
		if f == float64(int64(f)) {
			return vm.IntClass
		}
		return vm.DoubleClass
	case v.IsObject():
		switch o := v.AsObject().(type) {
		case *Instance:
			return o.Class
		case *Class:
			return vm.ClassClass
		case *String:
			return vm.StringClass
		case *Closure, *Function, *Native, *BoundMethod:
			return vm.FunctionClass
		}
	}
	return nil
}

func (vm *VM) bindMethod(recv bytecode.Value, m Method) bytecode.Value {
	switch m.Value.AsObject().(type) {
	case *NativeMethod, *Closure:
		return bytecode.Object(vm.Mem.newBoundMethod(recv, m.Value))
	default:
		return m.Value
	}
}

// getField implements GET_FIELD: instance fields take priority over
// methods; class values consult static fields then static methods then
// the metaclass Class's own methods; every other value dispatches to its
// standard-library class's instance methods.
func (vm *VM) getField(recv bytecode.Value, name string) (bytecode.Value, error) {
	if recv.IsObject() {
		switch o := recv.AsObject().(type) {
		case *Instance:
			if v, ok := o.Fields.Get(name); ok {
				return v, nil
			}
			if m, _, ok := o.Class.FindMethod(name); ok {
				return vm.bindMethod(recv, m), nil
			}
			return bytecode.Nil, vm.runtimeError("Undefined field '%s'", name)

		case *Class:
			if o.StaticInit != nil && !o.StaticInitialized {
				o.StaticInitialized = true
				if err := vm.runStaticInitClosure(o.StaticInit); err != nil {
					return bytecode.Nil, err
				}
			}
			if v, ok := o.StaticFields.Get(name); ok {
				return v, nil
			}
			if m, ok := o.StaticMethods.Get(name); ok {
				return vm.bindMethod(recv, m), nil
			}
			if vm.ClassClass != nil {
				if m, _, ok := vm.ClassClass.FindMethod(name); ok {
					return vm.bindMethod(recv, m), nil
				}
			}
			return bytecode.Nil, vm.runtimeError("Undefined static field '%s'", name)
		}
	}

	cls := vm.classOf(recv)
	if cls == nil {
		return bytecode.Nil, vm.runtimeError("Cannot read field '%s' of nil", name)
	}
	if m, _, ok := cls.FindMethod(name); ok {
		return vm.bindMethod(recv, m), nil
	}
	return bytecode.Nil, vm.runtimeError("Undefined method '%s'", name)
}

// setField implements SET_FIELD.
func (vm *VM) setField(recv bytecode.Value, name string, value bytecode.Value) error {
	if recv.IsObject() {
		switch o := recv.AsObject().(type) {
		case *Instance:
			o.Fields.Put(name, value)
			return nil
		case *Class:
			o.StaticFields.Put(name, value)
			return nil
		}
	}
	return vm.runtimeError("Cannot set field '%s'", name)
}

// superMethod implements SUPER name: looks up name starting at the
// instance's class's superclass, returning it bound to the instance.
func (vm *VM) superMethod(recv bytecode.Value, name string) (bytecode.Value, error) {
	inst, ok := recv.AsObject().(*Instance)
	if !ok || inst.Class.Super == nil {
		return bytecode.Nil, vm.runtimeError("Can't use 'super' outside of a method with a base class")
	}
	m, _, ok := inst.Class.Super.FindMethod(name)
	if !ok {
		return bytecode.Nil, vm.runtimeError("Undefined method '%s'", name)
	}
	return vm.bindMethod(recv, m), nil
}

// valueIsInstanceOf implements the IS operator: walk the value's class
// chain looking for target.
func valueIsInstanceOf(vm *VM, v bytecode.Value, target *Class) bool {
	cls := vm.classOf(v)
	for c := cls; c != nil; c = c.Super {
		if c == target {
			return true
		}
	}
	return false
}
