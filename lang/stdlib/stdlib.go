// Package stdlib is the native class/function registry: a declarative
// list of classes (each with its instance/static methods) and top-level
// functions, installed in two passes — Predeclared() feeds the resolver
// so type-checking sees every builtin's signature, and Define() binds the
// actual native trampolines into a freshly created VM, in a fixed
// registration order (Object first, everything else extending it) run
// once per VM.
package stdlib

import (
	"fmt"
	"time"

	"github.com/mna/lit/lang/bytecode"
	"github.com/mna/lit/lang/resolver"
	"github.com/mna/lit/lang/runtime"
)

// Predeclared returns the resolve-time signature of every global this
// package installs: the native classes (as "Class<Name>" metaclass values)
// and the native top-level functions (as canonical "Function<...>" types).
// The CLI's resolve step must seed the resolver with this list before
// walking a program: the "declare at the resolver, then define in the VM"
// half of the two-pass registration.
func Predeclared() []resolver.Predeclared {
	return []resolver.Predeclared{
		{Name: "Class", Type: "Class<Class>"},
		{Name: "Object", Type: "Class<Object>"},
		{Name: "Bool", Type: "Class<Bool>"},
		{Name: "Int", Type: "Class<Int>"},
		{Name: "Double", Type: "Class<Double>"},
		{Name: "Char", Type: "Class<Char>"},
		{Name: "String", Type: "Class<String>"},
		{Name: "Function", Type: "Class<Function>"},
		{Name: "time", Type: "Function<double>"},
		{Name: "print", Type: "Function<any, void>"},
	}
}

// Define installs the standard class hierarchy and global functions into
// vm. It must run once, right after runtime.New, before any user chunk is
// executed (the VM's own class-handle fields — ClassClass, ObjectClass,
// etc. — stay nil, and every value's classOf dispatch breaks, until this
// has run).
func Define(vm *runtime.VM) {
	// Object has no superclass; every other native class extends it
	// (Class, Object, Bool, Int, Double extends Int, Char, String,
	// Function). Each handle is stored
	// on the VM as soon as the class exists: the handles are GC roots, and
	// a stress-mode collection between two allocations here must not sweep
	// a class that is still only held by a local.
	object := vm.NewClass("Object", nil)
	vm.ObjectClass = object
	class := vm.NewClass("Class", object)
	vm.ClassClass = class
	boolCls := vm.NewClass("Bool", object)
	vm.BoolClass = boolCls
	intCls := vm.NewClass("Int", object)
	vm.IntClass = intCls
	doubleCls := vm.NewClass("Double", intCls)
	vm.DoubleClass = doubleCls
	charCls := vm.NewClass("Char", object)
	vm.CharClass = charCls
	stringCls := vm.NewClass("String", object)
	vm.StringClass = stringCls
	functionCls := vm.NewClass("Function", object)
	vm.FunctionClass = functionCls

	defineObject(vm, object)
	defineClass(vm, class)
	defineBool(vm, boolCls)
	defineNumber(vm, intCls, "Int")
	defineNumber(vm, doubleCls, "Double")
	defineChar(vm, charCls)
	defineString(vm, stringCls)
	defineFunction(vm, functionCls)

	for _, c := range []*runtime.Class{object, class, boolCls, intCls, doubleCls, charCls, stringCls, functionCls} {
		vm.DefineGlobal(c.Name.Chars, bytecode.Object(c))
	}

	vm.DefineGlobal("time", vm.NewNativeFunction("time", 0, nativeTime))
	vm.DefineGlobal("print", vm.NewNativeFunction("print", 1, nativePrint))
}

func nativeTime(vm *runtime.VM, args []bytecode.Value) (bytecode.Value, error) {
	return bytecode.Number(float64(time.Now().UnixNano()) / 1e9), nil
}

func nativePrint(vm *runtime.VM, args []bytecode.Value) (bytecode.Value, error) {
	fmt.Println(vm.ToDisplayString(args[0]))
	return bytecode.Nil, nil
}

// defineObject gives every instance a toString() and equals() fallback;
// every other native class inherits these unless it overrides them.
func defineObject(vm *runtime.VM, object *runtime.Class) {
	vm.AddMethod(object, "toString", func(vm *runtime.VM, recv bytecode.Value, args []bytecode.Value) (bytecode.Value, error) {
		return vm.NewString(vm.ToDisplayString(recv)), nil
	})
	vm.AddMethod(object, "equals", func(vm *runtime.VM, recv bytecode.Value, args []bytecode.Value) (bytecode.Value, error) {
		return bytecode.Bool(bytecode.Equal(recv, args[0])), nil
	})
}

// defineClass gives the metaclass a name() accessor, reached by class
// values through getField's classOf dispatch.
func defineClass(vm *runtime.VM, class *runtime.Class) {
	vm.AddMethod(class, "name", func(vm *runtime.VM, recv bytecode.Value, args []bytecode.Value) (bytecode.Value, error) {
		c, ok := recv.AsObject().(*runtime.Class)
		if !ok {
			return bytecode.Nil, fmt.Errorf("name: receiver is not a class")
		}
		return vm.NewString(c.Name.Chars), nil
	})
}

func defineBool(vm *runtime.VM, boolCls *runtime.Class) {
	vm.AddMethod(boolCls, "toString", func(vm *runtime.VM, recv bytecode.Value, args []bytecode.Value) (bytecode.Value, error) {
		if recv.AsBool() {
			return vm.NewString("true"), nil
		}
		return vm.NewString("false"), nil
	})
}

// defineNumber installs the arithmetic helper surface shared by Int and
// Double (Double extends Int; both get the same method set).
func defineNumber(vm *runtime.VM, cls *runtime.Class, name string) {
	vm.AddMethod(cls, "toString", func(vm *runtime.VM, recv bytecode.Value, args []bytecode.Value) (bytecode.Value, error) {
		return vm.NewString(vm.ToDisplayString(recv)), nil
	})
	vm.AddMethod(cls, "abs", func(vm *runtime.VM, recv bytecode.Value, args []bytecode.Value) (bytecode.Value, error) {
		f := recv.AsNumber()
		if f < 0 {
			f = -f
		}
		return bytecode.Number(f), nil
	})
}

func defineChar(vm *runtime.VM, charCls *runtime.Class) {
	vm.AddMethod(charCls, "toString", func(vm *runtime.VM, recv bytecode.Value, args []bytecode.Value) (bytecode.Value, error) {
		return vm.NewString(string(rune(recv.AsChar()))), nil
	})
}

// defineString installs String's indexing/length surface plus
// toLowerCase. Strings are immutable and interned, so the void-returning
// toLowerCase interns the lowercased bytes without mutating the receiver;
// it deliberately has no return value.
func defineString(vm *runtime.VM, stringCls *runtime.Class) {
	vm.AddMethod(stringCls, "length", func(vm *runtime.VM, recv bytecode.Value, args []bytecode.Value) (bytecode.Value, error) {
		s, ok := recv.AsObject().(*runtime.String)
		if !ok {
			return bytecode.Nil, fmt.Errorf("length: receiver is not a string")
		}
		return bytecode.Number(float64(len(s.Chars))), nil
	})
	vm.AddMethod(stringCls, "charAt", func(vm *runtime.VM, recv bytecode.Value, args []bytecode.Value) (bytecode.Value, error) {
		s := recv.AsObject().(*runtime.String)
		idx := int(args[0].AsNumber())
		if idx < 0 || idx >= len(s.Chars) {
			return bytecode.Nil, fmt.Errorf("charAt: index out of range")
		}
		return bytecode.Char(s.Chars[idx]), nil
	})
	vm.AddMethod(stringCls, "toLowerCase", func(vm *runtime.VM, recv bytecode.Value, args []bytecode.Value) (bytecode.Value, error) {
		s := recv.AsObject().(*runtime.String)
		lower := make([]byte, len(s.Chars))
		for i := 0; i < len(s.Chars); i++ {
			c := s.Chars[i]
			if c >= 'A' && c <= 'Z' {
				c += 'a' - 'A'
			}
			lower[i] = c
		}
		vm.NewString(string(lower))
		return bytecode.Nil, nil
	})
}

func defineFunction(vm *runtime.VM, functionCls *runtime.Class) {
	vm.AddMethod(functionCls, "toString", func(vm *runtime.VM, recv bytecode.Value, args []bytecode.Value) (bytecode.Value, error) {
		return vm.NewString(vm.ToDisplayString(recv)), nil
	})
}
