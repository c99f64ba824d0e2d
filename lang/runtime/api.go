package runtime

import "github.com/mna/lit/lang/bytecode"

// The functions in this file are the surface the standard-library glue
// package uses to register native classes and globals; nothing in the
// dispatch loop itself depends on them.

// DefineGlobal installs a global binding, as DEFINE_GLOBAL would at
// runtime. Used to install native top-level functions like print/time.
func (vm *VM) DefineGlobal(name string, v bytecode.Value) {
	vm.Globals.Put(name, v)
}

// NewString interns s and boxes it as a Value.
func (vm *VM) NewString(s string) bytecode.Value {
	return bytecode.Object(vm.Mem.InternString(s))
}

// NewNativeFunction boxes a host function as a callable global Value.
func (vm *VM) NewNativeFunction(name string, arity int, fn NativeFn) bytecode.Value {
	n := vm.Mem.newNative(vm.Mem.InternString(name), arity, fn)
	return bytecode.Object(n)
}

// NewClass creates (and interns the name of) a native class with the
// given superclass, which may be nil only for Object itself.
func (vm *VM) NewClass(name string, super *Class) *Class {
	return vm.Mem.newClass(vm.Mem.InternString(name), super)
}

// AddMethod installs a native instance method on cls.
func (vm *VM) AddMethod(cls *Class, name string, fn NativeMethodFn) {
	nm := vm.Mem.newNativeMethod(vm.Mem.InternString(name), false, fn)
	cls.Methods.Put(name, Method{Value: bytecode.Object(nm)})
}

// AddStaticMethod installs a native static method on cls.
func (vm *VM) AddStaticMethod(cls *Class, name string, fn NativeMethodFn) {
	nm := vm.Mem.newNativeMethod(vm.Mem.InternString(name), true, fn)
	cls.StaticMethods.Put(name, Method{Value: bytecode.Object(nm), IsStatic: true})
}

// Global exposes read access to the globals table for the CLI's
// tokenize/parse/resolve debug surfaces and for tests.
func (vm *VM) Global(name string) (bytecode.Value, bool) { return vm.Globals.Get(name) }

// ToDisplayString exposes the value-to-string conversion ADD uses for
// string concatenation, so native methods like print and
// toString can share it instead of reimplementing value formatting.
func (vm *VM) ToDisplayString(v bytecode.Value) string { return vm.toDisplayString(v) }
