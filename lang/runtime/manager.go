package runtime

import (
	"github.com/dolthub/swiss"
	"github.com/mna/lit/lang/bytecode"
)

// ManagerKind distinguishes the compiler's allocator from the VM's.
type ManagerKind int

const (
	ManagerCompiler ManagerKind = iota
	ManagerVM
)

// gcHeapGrowFactor is the heap growth heuristic: after a collection, the
// next one triggers once live bytes double.
const gcHeapGrowFactor = 2

// initialNextGC is deliberately small so a collection is easy to trigger in
// tests and under the LIT_GC_STRESS toggle.
const initialNextGC = 1 << 20

// Manager owns every heap object allocated on its behalf, plus the
// interned-string table. Two kinds exist: a ManagerCompiler instance never
// collects (it pins every compile-time allocation until ownership
// transfers to the VM's manager); a ManagerVM instance triggers a
// collection whenever BytesAllocated exceeds NextGC.
type Manager struct {
	Kind           ManagerKind
	BytesAllocated int
	NextGC         int
	Head           bytecode.Obj

	Strings *swiss.Map[string, *String]

	// Collect, if set, is invoked before growing the heap further. The VM
	// installs its own mark-sweep pass here; it is left nil for compiler
	// managers.
	Collect func()

	// StressGC forces a collection on every allocation when true (wired to
	// LIT_GC_STRESS).
	StressGC bool
}

// NewManager creates a Manager of the given kind.
func NewManager(kind ManagerKind) *Manager {
	return &Manager{
		Kind:    kind,
		NextGC:  initialNextGC,
		Strings: swiss.NewMap[string, *String](64),
	}
}

// track links o at the head of the object list and accounts for size bytes
// of allocation, triggering a collection first if the VM manager's
// threshold has been crossed.
func (m *Manager) track(o bytecode.Obj, size int) {
	if m.Kind == ManagerVM && m.Collect != nil && (m.StressGC || m.BytesAllocated+size > m.NextGC) {
		m.Collect()
	}
	o.SetNext(m.Head)
	m.Head = o
	m.BytesAllocated += size
}

// sizeOf is a rough per-variant accounting size; exact byte counts aren't
// load-bearing for correctness, only for the growth heuristic.
func sizeOf(k bytecode.ObjKind) int {
	switch k {
	case bytecode.ObjString:
		return 32
	case bytecode.ObjUpvalue:
		return 24
	case bytecode.ObjFunction:
		return 64
	case bytecode.ObjNative:
		return 48
	case bytecode.ObjClosure:
		return 48
	case bytecode.ObjBoundMethod:
		return 32
	case bytecode.ObjClass:
		return 96
	case bytecode.ObjInstance:
		return 48
	case bytecode.ObjNativeMethod:
		return 40
	case bytecode.ObjFiber:
		return 64
	default:
		return 16
	}
}

// InternString returns the canonical *String for s, allocating and
// registering it the first time s is seen. Any two calls with equal bytes
// on the same manager return the identical pointer.
func (m *Manager) InternString(s string) *String {
	if str, ok := m.Strings.Get(s); ok {
		return str
	}
	str := newString(s)
	m.track(str, sizeOf(bytecode.ObjString))
	m.Strings.Put(s, str)
	return str
}

func (m *Manager) newFunction() *Function {
	fn := newFunction()
	m.track(fn, sizeOf(bytecode.ObjFunction))
	return fn
}

// NewFunction allocates an empty function object (with a fresh chunk) for
// the emitter to populate as it finishes compiling one function body.
func (m *Manager) NewFunction() *Function { return m.newFunction() }

// NewClosure wraps a fully emitted function in a closure with no upvalues,
// used for the synthesized top-level script function.
func (m *Manager) NewClosure(fn *Function) *Closure { return m.newClosure(fn) }

func (m *Manager) newClosure(fn *Function) *Closure {
	cl := newClosure(fn)
	m.track(cl, sizeOf(bytecode.ObjClosure))
	return cl
}

func (m *Manager) newClass(name *String, super *Class) *Class {
	c := newClass(name, super)
	m.track(c, sizeOf(bytecode.ObjClass))
	return c
}

func (m *Manager) newInstance(c *Class) *Instance {
	inst := newInstance(c)
	m.track(inst, sizeOf(bytecode.ObjInstance))
	return inst
}

func (m *Manager) newUpvalue(loc *bytecode.Value) *Upvalue {
	uv := &Upvalue{Header: Header{kind: bytecode.ObjUpvalue}, Location: loc}
	m.track(uv, sizeOf(bytecode.ObjUpvalue))
	return uv
}

func (m *Manager) newNative(name *String, arity int, fn NativeFn) *Native {
	n := &Native{Header: Header{kind: bytecode.ObjNative}, Name: name, Arity: arity, Fn: fn}
	m.track(n, sizeOf(bytecode.ObjNative))
	return n
}

func (m *Manager) newNativeMethod(name *String, isStatic bool, fn NativeMethodFn) *NativeMethod {
	nm := &NativeMethod{Header: Header{kind: bytecode.ObjNativeMethod}, Name: name, Fn: fn, IsStatic: isStatic}
	m.track(nm, sizeOf(bytecode.ObjNativeMethod))
	return nm
}

func (m *Manager) newBoundMethod(recv bytecode.Value, method bytecode.Value) *BoundMethod {
	bm := &BoundMethod{Header: Header{kind: bytecode.ObjBoundMethod}, Receiver: recv, Method: method}
	m.track(bm, sizeOf(bytecode.ObjBoundMethod))
	return bm
}

// TransferTo moves every object and the interned-string set owned by m
// into dst, preserving identity: strings already interned keep serving as
// the canonical pointer. Used once, at
// the compiler/VM boundary: the compile-time manager's objects become
// roots of the runtime manager.
func (m *Manager) TransferTo(dst *Manager) {
	for o := m.Head; o != nil; {
		next := o.Next()
		o.SetNext(dst.Head)
		dst.Head = o
		o = next
	}
	dst.BytesAllocated += m.BytesAllocated
	m.Strings.Iter(func(k string, v *String) bool {
		if _, ok := dst.Strings.Get(k); !ok {
			dst.Strings.Put(k, v)
		}
		return false
	})
	m.Head = nil
	m.BytesAllocated = 0
}
