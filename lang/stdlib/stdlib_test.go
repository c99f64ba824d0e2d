package stdlib_test

import (
	"testing"

	"github.com/mna/lit/lang/compile"
	"github.com/mna/lit/lang/runtime"
	"github.com/mna/lit/lang/stdlib"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, src string) *runtime.VM {
	t.Helper()
	res, err := compile.Compile("test", []byte(src), stdlib.Predeclared())
	require.NoError(t, err, "source:\n%s", src)

	vm := runtime.New()
	stdlib.Define(vm)
	res.Mem.TransferTo(vm.Mem)

	_, err = vm.Execute(res.Func)
	require.NoError(t, err, "source:\n%s", src)
	return vm
}

func TestStdlibGlobalClassesAreDefined(t *testing.T) {
	vm := run(t, `
		var a = Object;
		var b = Class;
		var c = Bool;
		var d = Int;
		var e = Double;
		var f = Char;
		var g = String;
		var h = Function;
	`)
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		v, ok := vm.Global(name)
		require.True(t, ok, name)
		require.True(t, v.IsObject(), name)
		_, isClass := v.AsObject().(*runtime.Class)
		require.True(t, isClass, name)
	}
}

func TestStdlibIntAbs(t *testing.T) {
	vm := run(t, `
		var n = -5;
		var a = n.abs();
	`)
	a, ok := vm.Global("a")
	require.True(t, ok)
	require.Equal(t, float64(5), a.AsNumber())
}

func TestStdlibStringLengthAndCharAt(t *testing.T) {
	vm := run(t, `
		var s = "Hello";
		var n = s.length();
		var c = s.charAt(1);
	`)
	n, ok := vm.Global("n")
	require.True(t, ok)
	require.Equal(t, float64(5), n.AsNumber())

	c, ok := vm.Global("c")
	require.True(t, ok)
	require.True(t, c.IsChar())
	require.Equal(t, byte('e'), c.AsChar())
}

func TestStdlibStringCharAtOutOfRangeErrors(t *testing.T) {
	res, err := compile.Compile("test", []byte(`
		var s = "hi";
		s.charAt(10);
	`), stdlib.Predeclared())
	require.NoError(t, err)

	vm := runtime.New()
	stdlib.Define(vm)
	res.Mem.TransferTo(vm.Mem)

	_, err = vm.Execute(res.Func)
	require.Error(t, err)
	require.ErrorContains(t, err, "index out of range")
}

func TestStdlibBoolToString(t *testing.T) {
	vm := run(t, `
		var a = true.toString();
		var b = false.toString();
	`)
	a, ok := vm.Global("a")
	require.True(t, ok)
	str, ok := a.AsObject().(*runtime.String)
	require.True(t, ok)
	require.Equal(t, "true", str.Chars)

	b, ok := vm.Global("b")
	require.True(t, ok)
	str, ok = b.AsObject().(*runtime.String)
	require.True(t, ok)
	require.Equal(t, "false", str.Chars)
}

func TestStdlibObjectEqualsFallback(t *testing.T) {
	vm := run(t, `
		var a = (1).equals(1);
		var b = (1).equals(2);
	`)
	a, ok := vm.Global("a")
	require.True(t, ok)
	require.True(t, a.AsBool())

	b, ok := vm.Global("b")
	require.True(t, ok)
	require.False(t, b.AsBool())
}

func TestStdlibTimeReturnsNumber(t *testing.T) {
	vm := run(t, `var t = time();`)
	tv, ok := vm.Global("t")
	require.True(t, ok)
	require.True(t, tv.IsNumber())
}

func TestStdlibPrintDoesNotError(t *testing.T) {
	run(t, `print("hello");`)
}

func TestStdlibClassNameAccessor(t *testing.T) {
	vm := run(t, `
		class Widget { }
		var n = Widget.name();
	`)
	n, ok := vm.Global("n")
	require.True(t, ok)
	str, ok := n.AsObject().(*runtime.String)
	require.True(t, ok)
	require.Equal(t, "Widget", str.Chars)
}
