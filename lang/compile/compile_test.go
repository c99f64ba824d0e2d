package compile_test

import (
	"testing"

	"github.com/mna/lit/lang/bytecode"
	"github.com/mna/lit/lang/compile"
	"github.com/mna/lit/lang/runtime"
	"github.com/mna/lit/lang/stdlib"
	"github.com/stretchr/testify/require"
)

// run compiles src with the standard library predeclared and wired in, then
// drives it to completion, mirroring internal/maincmd.Run's pipeline:
// Compile -> stdlib.Define -> Mem.TransferTo -> Execute.
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

func global(t *testing.T, vm *runtime.VM, name string) bytecode.Value {
	t.Helper()
	v, ok := vm.Global(name)
	require.True(t, ok, "global %s not defined", name)
	return v
}

func TestCompileArithmetic(t *testing.T) {
	vm := run(t, `var x = 1 + 2 * 3;`)
	v := global(t, vm, "x")
	require.True(t, v.IsNumber())
	require.Equal(t, float64(7), v.AsNumber())
}

func TestCompileOperatorPrecedenceAndPower(t *testing.T) {
	vm := run(t, `var x = 2 + 3 ^ 2;`)
	v := global(t, vm, "x")
	require.Equal(t, float64(11), v.AsNumber())
}

func TestCompileStringConcatMixedTypes(t *testing.T) {
	vm := run(t, `var s = "a" + "b" + 1;`)
	v := global(t, vm, "s")
	require.True(t, v.IsObject())
	str, ok := v.AsObject().(*runtime.String)
	require.True(t, ok)
	require.Equal(t, "ab1", str.Chars)
}

func TestCompileClosureCounter(t *testing.T) {
	vm := run(t, `
		fun makeCounter() {
			var n = 0;
			fun next() {
				n = n + 1;
				return n;
			}
			return next;
		}
		var counter = makeCounter();
		var a = counter();
		var b = counter();
	`)
	a := global(t, vm, "a")
	b := global(t, vm, "b")
	require.Equal(t, float64(1), a.AsNumber())
	require.Equal(t, float64(2), b.AsNumber())
}

func TestCompileClassInstantiationAndMethodCall(t *testing.T) {
	vm := run(t, `
		class Point {
			Int x;
			Int y;
			init(px Int, py Int) {
				this.x = px;
				this.y = py;
			}
			sum() > Int { return this.x + this.y; }
		}
		var p = Point(3, 4);
		var s = p.sum();
	`)
	s := global(t, vm, "s")
	require.Equal(t, float64(7), s.AsNumber())
}

func TestCompileInheritanceOverrideDispatch(t *testing.T) {
	vm := run(t, `
		class Animal {
			speak() > String { return "..."; }
		}
		class Dog < Animal {
			override speak() > String { return "Woof"; }
		}
		var a = Dog();
		var said = a.speak();
	`)
	said := global(t, vm, "said")
	str, ok := said.AsObject().(*runtime.String)
	require.True(t, ok)
	require.Equal(t, "Woof", str.Chars)

	// the override bit travels through DEFINE_METHOD into the runtime
	// class: set on Dog's own entry, unset on Animal's
	dog, ok := global(t, vm, "Dog").AsObject().(*runtime.Class)
	require.True(t, ok)
	m, ok := dog.Methods.Get("speak")
	require.True(t, ok)
	require.True(t, m.Overridden)

	animal, ok := global(t, vm, "Animal").AsObject().(*runtime.Class)
	require.True(t, ok)
	m, ok = animal.Methods.Get("speak")
	require.True(t, ok)
	require.False(t, m.Overridden)
}

func TestCompileSuperCallReachesBaseImplementation(t *testing.T) {
	vm := run(t, `
		class Animal {
			speak() > String { return "..."; }
		}
		class Dog < Animal {
			override speak() > String { return super.speak() + "!"; }
		}
		var said = Dog().speak();
	`)
	said := global(t, vm, "said")
	str, ok := said.AsObject().(*runtime.String)
	require.True(t, ok)
	require.Equal(t, "...!", str.Chars)
}

func TestCompileWhileLoopAndBreak(t *testing.T) {
	vm := run(t, `
		var i = 0;
		var total = 0;
		while (true) {
			if (i >= 5) { break; }
			total = total + i;
			i = i + 1;
		}
	`)
	total := global(t, vm, "total")
	require.Equal(t, float64(10), total.AsNumber())
}

func TestCompileForLoopDesugaredAccumulates(t *testing.T) {
	vm := run(t, `
		var total = 0;
		for (var i = 0; i < 4; i += 1) {
			total += i;
		}
	`)
	total := global(t, vm, "total")
	require.Equal(t, float64(6), total.AsNumber())
}

func TestCompileShortCircuitAndOr(t *testing.T) {
	vm := run(t, `
		var calls = 0;
		fun sideEffect() {
			calls = calls + 1;
			return true;
		}
		var a = false and sideEffect();
		var b = true or sideEffect();
	`)
	calls := global(t, vm, "calls")
	require.Equal(t, float64(0), calls.AsNumber())
}

func TestCompileRuntimeErrorOnUndefinedMethod(t *testing.T) {
	res, err := compile.Compile("test", []byte(`
		class Animal { }
		Animal().speak();
	`), stdlib.Predeclared())
	require.NoError(t, err)

	vm := runtime.New()
	stdlib.Define(vm)
	res.Mem.TransferTo(vm.Mem)

	_, err = vm.Execute(res.Func)
	require.Error(t, err)
	require.ErrorContains(t, err, "Undefined method")
}

func TestCompileOverrideWithColonReturnTypeSyntax(t *testing.T) {
	vm := run(t, `
		class A { public foo(): Int => 1 }
		class B < A { public override foo(): Int => 2 }
		var b = B();
		var r = b.foo();
	`)
	r := global(t, vm, "r")
	require.Equal(t, float64(2), r.AsNumber())
}

func TestCompileClosureOverReturnedLocal(t *testing.T) {
	vm := run(t, `
		fun outer() > Function {
			var c = 1;
			return fun() > Int { return c; };
		}
		var r = outer()();
	`)
	r := global(t, vm, "r")
	require.Equal(t, float64(1), r.AsNumber())
}

// Two evaluations of the same concatenation must intern to the identical
// string object, so the boxed values compare equal bit for bit.
func TestCompileStringConcatInternsIdentically(t *testing.T) {
	vm := run(t, `
		var s = "hi";
		var a = s + " there";
		var b = s + " there";
		var same = a == b;
	`)
	a := global(t, vm, "a")
	b := global(t, vm, "b")
	require.Equal(t, a, b)
	require.Same(t, a.AsObject(), b.AsObject())
	same := global(t, vm, "same")
	require.True(t, same.IsBool())
	require.True(t, same.AsBool())
}

func TestCompileIsExpression(t *testing.T) {
	vm := run(t, `
		class Animal { }
		class Dog < Animal { }
		var d = Dog();
		var isDog = d is Dog;
		var isAnimal = d is Animal;
	`)
	require.True(t, global(t, vm, "isDog").AsBool())
	require.True(t, global(t, vm, "isAnimal").AsBool())
}

func TestCompileIsExpressionNegative(t *testing.T) {
	vm := run(t, `
		class Animal { }
		class Rock { }
		var r = Rock();
		var isAnimal = r is Animal;
	`)
	require.False(t, global(t, vm, "isAnimal").AsBool())
}

func TestCompileRuntimeErrorFormatsTraceback(t *testing.T) {
	res, err := compile.Compile("test", []byte(`
		fun blow() {
			var x = nil;
			x.boom();
		}
		blow();
	`), stdlib.Predeclared())
	require.NoError(t, err)

	vm := runtime.New()
	stdlib.Define(vm)
	res.Mem.TransferTo(vm.Mem)

	_, err = vm.Execute(res.Func)
	require.Error(t, err)
	require.ErrorContains(t, err, "Runtime error:")
	require.ErrorContains(t, err, "\tat blow():")
	require.ErrorContains(t, err, "\tat $main():")
}

func TestCompileVMUsableAfterRuntimeError(t *testing.T) {
	vm := runtime.New()
	stdlib.Define(vm)

	bad, err := compile.Compile("bad", []byte(`var x = nil; x();`), stdlib.Predeclared())
	require.NoError(t, err)
	bad.Mem.TransferTo(vm.Mem)
	_, err = vm.Execute(bad.Func)
	require.Error(t, err)

	good, err := compile.Compile("good", []byte(`var ok = 1 + 1;`), stdlib.Predeclared())
	require.NoError(t, err)
	good.Mem.TransferTo(vm.Mem)
	_, err = vm.Execute(good.Func)
	require.NoError(t, err)
	v := global(t, vm, "ok")
	require.Equal(t, float64(2), v.AsNumber())
}

func TestCompileStaticClassMembersImplicitlyStatic(t *testing.T) {
	vm := run(t, `
		static class MathUtil {
			Int base = 10;
			double(x Int) > Int { return x * 2; }
		}
		var b = MathUtil.base;
		var d = MathUtil.double(21);
	`)
	require.Equal(t, float64(10), global(t, vm, "b").AsNumber())
	require.Equal(t, float64(42), global(t, vm, "d").AsNumber())
}

func TestCompileStackOverflowOnRunawayRecursion(t *testing.T) {
	res, err := compile.Compile("test", []byte(`
		fun loop() { loop(); }
		loop();
	`), stdlib.Predeclared())
	require.NoError(t, err)

	vm := runtime.New()
	stdlib.Define(vm)
	res.Mem.TransferTo(vm.Mem)

	_, err = vm.Execute(res.Func)
	require.Error(t, err)
	require.ErrorContains(t, err, "Stack overflow")
}

func TestCompileLazyStaticInitRunsOnceOnFirstAccess(t *testing.T) {
	vm := run(t, `
		class Counter {
			static Int inits = 0;
		}
		var before = Counter.inits;
		Counter.inits = 5;
		var after = Counter.inits;
	`)
	before := global(t, vm, "before")
	after := global(t, vm, "after")
	require.Equal(t, float64(0), before.AsNumber())
	// a second run of the initializer would reset the field to 0
	require.Equal(t, float64(5), after.AsNumber())
}
