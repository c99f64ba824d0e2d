package resolver_test

import (
	"testing"

	"github.com/mna/lit/lang/ast"
	"github.com/mna/lit/lang/parser"
	"github.com/mna/lit/lang/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustResolve(t *testing.T, src string, predeclared ...resolver.Predeclared) (*ast.Chunk, *resolver.Function, map[string]*resolver.Class) {
	t.Helper()
	chunk, file, perrs := parser.Parse("test", []byte(src))
	require.NoError(t, perrs.Err(), "source:\n%s", src)
	script, classes, errs := resolver.Resolve(file, chunk, predeclared...)
	require.NoError(t, errs.Err(), "source:\n%s", src)
	return chunk, script, classes
}

func resolveErr(t *testing.T, src string) error {
	t.Helper()
	chunk, file, perrs := parser.Parse("test", []byte(src))
	require.NoError(t, perrs.Err(), "source:\n%s", src)
	_, _, errs := resolver.Resolve(file, chunk)
	return errs.Err()
}

func TestResolverLiteralTypes(t *testing.T) {
	chunk, _, _ := mustResolve(t, `
		var a = 1;
		var b = 1.5;
		var c = "s";
		var d = 'x';
		var e = true;
	`)
	want := []string{resolver.TyInt, resolver.TyDouble, resolver.TyString, resolver.TyChar, resolver.TyBool}
	for i, w := range want {
		v := chunk.Block.Stmts[i].(*ast.VarStmt)
		assert.Equal(t, w, v.ResolvedType, "stmt %d", i)
	}
}

func TestResolverFunctionSignatureCanonicalization(t *testing.T) {
	chunk, _, _ := mustResolve(t, `fun add(a Int, b Int) > Int { return a + b; }`)
	fs := chunk.Block.Stmts[0].(*ast.FuncStmt)
	assert.Equal(t, "Function<int, int, int>", fs.Fn.Signature)
}

func TestResolverLambdaSignatureInfersReturnFromBody(t *testing.T) {
	chunk, _, _ := mustResolve(t, `var f = fun(x) => x;`)
	v := chunk.Block.Stmts[0].(*ast.VarStmt)
	fe := v.Value.(*ast.FuncExpr)
	assert.Equal(t, "Function<any, any>", fe.Signature)
}

func TestResolverUndefinedVariable(t *testing.T) {
	err := resolveErr(t, "var a = b;")
	assert.ErrorContains(t, err, "Undefined variable b")
}

func TestResolverAssignToFinal(t *testing.T) {
	err := resolveErr(t, "val a = 1; a = 2;")
	assert.ErrorContains(t, err, "Cannot assign to final variable a")
}

func TestResolverBreakOutsideLoop(t *testing.T) {
	err := resolveErr(t, "break;")
	assert.ErrorContains(t, err, "break outside of a loop")
}

func TestResolverPredeclaredGlobalsVisible(t *testing.T) {
	_, _, _ = mustResolve(t, `var p = print;`, resolver.Predeclared{Name: "print", Type: "Function<any,void>"})
}

func TestResolverAbstractMethodRequiresAbstractClass(t *testing.T) {
	err := resolveErr(t, `
		class Shape {
			area() > Double;
		}
	`)
	assert.ErrorContains(t, err, "Only an abstract class can declare abstract method area")
}

func TestResolverOverrideWithoutModifierErrors(t *testing.T) {
	err := resolveErr(t, `
		class Animal {
			speak() { }
		}
		class Dog < Animal {
			speak() { }
		}
	`)
	assert.ErrorContains(t, err, "without the override modifier")
}

func TestResolverOverrideFinalMethodErrors(t *testing.T) {
	err := resolveErr(t, `
		class Animal {
			final speak() { }
		}
		class Dog < Animal {
			override speak() { }
		}
	`)
	assert.ErrorContains(t, err, "Cannot override final method speak")
}

func TestResolverInheritFinalClassErrors(t *testing.T) {
	err := resolveErr(t, `
		final class Animal { }
		class Dog < Animal { }
	`)
	assert.ErrorContains(t, err, "Cannot inherit final class Animal")
}

func TestResolverOverrideWithModifierSucceeds(t *testing.T) {
	_, _, classes := mustResolve(t, `
		class Animal {
			speak() > String { return "..."; }
		}
		class Dog < Animal {
			override speak() > String { return "Woof"; }
		}
	`)
	dog := classes["Dog"]
	require.NotNil(t, dog)
	m := dog.Methods["speak"]
	require.NotNil(t, m)
	assert.Equal(t, "Dog", m.DefinedIn)
	assert.True(t, m.Overridden, "the subclass's own record carries the override bit")

	animal := classes["Animal"]
	require.NotNil(t, animal)
	require.NotNil(t, animal.Methods["speak"])
	assert.False(t, animal.Methods["speak"].Overridden, "the superclass's record stays untouched")
}

// An inherited (non-overridden) entry in the subclass table is a copy of
// the superclass's record: same defining class, override bit still unset,
// and annotating one table never leaks into the other.
func TestResolverInheritedMethodRecordIsCopied(t *testing.T) {
	_, _, classes := mustResolve(t, `
		class Animal {
			speak() > String { return "..."; }
			eat() { }
		}
		class Dog < Animal {
			override speak() > String { return "Woof"; }
		}
	`)
	animal, dog := classes["Animal"], classes["Dog"]
	require.NotNil(t, animal)
	require.NotNil(t, dog)

	inherited := dog.Methods["eat"]
	require.NotNil(t, inherited)
	assert.Equal(t, "Animal", inherited.DefinedIn)
	assert.False(t, inherited.Overridden)
	assert.NotSame(t, animal.Methods["eat"], inherited)
}

func TestResolverAbstractMethodMustBeImplemented(t *testing.T) {
	err := resolveErr(t, `
		abstract class A {
			public abstract foo() > Int;
		}
		class B < A { }
	`)
	assert.ErrorContains(t, err, "Abstract method foo must be implemented in child class B")
}

func TestResolverReturnTypeMismatch(t *testing.T) {
	err := resolveErr(t, `fun f() > Int { return "no"; }`)
	assert.ErrorContains(t, err, "Return type mismatch: required int, but got String")
}

func TestResolverMissingReturnInNonVoidFunction(t *testing.T) {
	err := resolveErr(t, `fun f() > Int { var x = 1; }`)
	assert.ErrorContains(t, err, "Missing return statement")
}

func TestResolverFinalVariableNeedsInitializer(t *testing.T) {
	err := resolveErr(t, "val a Int;")
	assert.ErrorContains(t, err, "Final variable a must be initialized")
}

func TestResolverFinalFieldNeedsInitializer(t *testing.T) {
	err := resolveErr(t, `
		class C {
			final Int x;
		}
	`)
	assert.ErrorContains(t, err, "Final field x must be initialized")
}

func TestResolverOverrideSignatureMustMatch(t *testing.T) {
	err := resolveErr(t, `
		class Animal {
			speak() > String { return "..."; }
		}
		class Dog < Animal {
			override speak() > Int { return 1; }
		}
	`)
	assert.ErrorContains(t, err, "Signature of speak must match")
}

func TestResolverOverrideAccessMustMatch(t *testing.T) {
	err := resolveErr(t, `
		class Animal {
			public speak() { }
		}
		class Dog < Animal {
			protected override speak() { }
		}
	`)
	assert.ErrorContains(t, err, "Access modifier of speak must match")
}

func TestResolverCannotOverrideStaticMethod(t *testing.T) {
	err := resolveErr(t, `
		class Animal {
			static speak() { }
		}
		class Dog < Animal {
			static override speak() { }
		}
	`)
	assert.ErrorContains(t, err, "Cannot override static method speak")
}

func TestResolverConstructorMustReturnVoid(t *testing.T) {
	err := resolveErr(t, `
		class C {
			init() > Int { return 1; }
		}
	`)
	assert.ErrorContains(t, err, "Constructor init must return void")
}

func TestResolverStaticClassCannotInherit(t *testing.T) {
	err := resolveErr(t, `
		class Base { }
		static class Util < Base { }
	`)
	assert.ErrorContains(t, err, "Static class Util cannot inherit")
}

func TestResolverStaticClassRejectsStaticMember(t *testing.T) {
	err := resolveErr(t, `
		static class Util {
			static helper() { }
		}
	`)
	assert.ErrorContains(t, err, "Redundant static modifier")
}

func TestResolverCannotInstantiateStaticClass(t *testing.T) {
	err := resolveErr(t, `
		static class Util { }
		var u = Util();
	`)
	assert.ErrorContains(t, err, "Cannot instantiate a static or abstract class")
}

func TestResolverPrivateMemberBlockedOutsideClass(t *testing.T) {
	err := resolveErr(t, `
		class C {
			private Int x = 1;
		}
		var c = C();
		var v = c.x;
	`)
	assert.ErrorContains(t, err, "Cannot access private member x")
}

func TestResolverPrivateMemberReachableViaThis(t *testing.T) {
	_, _, _ = mustResolve(t, `
		class C {
			private Int x = 1;
			get() > Int { return this.x; }
		}
	`)
}

func TestResolverCannotCallInitDirectly(t *testing.T) {
	err := resolveErr(t, `
		class C {
			init() { }
		}
		C.init();
	`)
	assert.ErrorContains(t, err, "Cannot call init directly")
}

func TestResolverIsExprRequiresClass(t *testing.T) {
	err := resolveErr(t, `
		var n = 1;
		var b = n is n;
	`)
	assert.ErrorContains(t, err, "must be a class")
}

func TestResolverThisOutsideMethodErrors(t *testing.T) {
	err := resolveErr(t, "var a = this;")
	assert.ErrorContains(t, err, "Cannot use 'this' outside of a method")
}

func TestResolverUpvalueCapture(t *testing.T) {
	chunk, _, _ := mustResolve(t, `
		fun outer() {
			var x = 1;
			fun inner() > Int => x;
			return inner;
		}
	`)
	fs := chunk.Block.Stmts[0].(*ast.FuncStmt)
	var innerFn *ast.FuncExpr
	for _, s := range fs.Fn.Body.Stmts {
		if fstmt, ok := s.(*ast.FuncStmt); ok {
			innerFn = fstmt.Fn
		}
	}
	require.NotNil(t, innerFn)
	resolved := innerFn.Resolved.(*resolver.Function)
	require.Len(t, resolved.Upvalues, 1)
	assert.Equal(t, "x", resolved.Upvalues[0].Name)
	assert.True(t, resolved.Upvalues[0].IsLocal)
}
