// Package runtime implements the object model, memory manager, garbage
// collector and interpreter loop executing the bytecode produced by the
// emitter.
package runtime

import (
	"fmt"

	"github.com/dolthub/swiss"
	"github.com/mna/lit/lang/bytecode"
)

// Header is embedded by every object variant to satisfy bytecode.Obj.
type Header struct {
	dark    bool
	hasSlot bool
	kind    bytecode.ObjKind
	slot    uint32
	next    bytecode.Obj
}

func (h *Header) Dark() bool             { return h.dark }
func (h *Header) SetDark(d bool)         { h.dark = d }
func (h *Header) Next() bytecode.Obj     { return h.next }
func (h *Header) SetNext(o bytecode.Obj) { h.next = o }
func (h *Header) Kind() bytecode.ObjKind { return h.kind }
func (h *Header) Slot() (uint32, bool)   { return h.slot, h.hasSlot }
func (h *Header) SetSlot(s uint32)       { h.slot, h.hasSlot = s, true }

// String is an immutable, interned byte sequence.
type String struct {
	Header
	Chars string
	Hash  uint32
}

func newString(s string) *String {
	return &String{Header: Header{kind: bytecode.ObjString}, Chars: s, Hash: fnv1a(s)}
}

func fnv1a(s string) uint32 {
	const offset, prime = 2166136261, 16777619
	h := uint32(offset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime
	}
	return h
}

// Upvalue points at a live stack slot while open, or owns a closed-over
// value once the frame that declared it returns.
type Upvalue struct {
	Header
	Location *bytecode.Value // points into the VM value stack while open
	Closed   bytecode.Value
	IsClosed bool
	NextOpen *Upvalue // link in the VM's open-upvalue list, ordered by descending slot address
}

func (u *Upvalue) Get() bytecode.Value {
	if u.IsClosed {
		return u.Closed
	}
	return *u.Location
}

func (u *Upvalue) Set(v bytecode.Value) {
	if u.IsClosed {
		u.Closed = v
		return
	}
	*u.Location = v
}

// Function is immutable after compilation: arity, captured-variable count,
// owning chunk, and an optional name. It does not carry a register file of
// its own; registers are allocated per call in the VM's shared value
// stack, since a function may be active in more than one frame at once
// (recursion).
type Function struct {
	Header
	Name         *String
	Arity        int
	UpvalueCount int
	Chunk        *bytecode.Chunk
	NumRegisters int
}

func newFunction() *Function {
	return &Function{Header: Header{kind: bytecode.ObjFunction}, Chunk: &bytecode.Chunk{}}
}

// NativeFn is a host function trampoline.
type NativeFn func(vm *VM, args []bytecode.Value) (bytecode.Value, error)

// Native wraps a host function as a callable object.
type Native struct {
	Header
	Name  *String
	Fn    NativeFn
	Arity int
}

// Closure binds a Function to the upvalues it captured at creation.
type Closure struct {
	Header
	Fn       *Function
	Upvalues []*Upvalue
}

func newClosure(fn *Function) *Closure {
	return &Closure{Header: Header{kind: bytecode.ObjClosure}, Fn: fn, Upvalues: make([]*Upvalue, fn.UpvalueCount)}
}

// Method is one entry in a class's method table: the callable value plus
// the metadata the VM needs to honor override/static semantics at
// dispatch time. Overridden is carried in DEFINE_METHOD's flags operand
// and marks an entry that replaces a superclass method; an inherited
// entry copied down at class construction keeps the defining class's bit.
type Method struct {
	Value      bytecode.Value // Closure or Native(Method)
	IsStatic   bool
	Overridden bool
}

// Class has a name, an optional superclass, and four member tables:
// instance methods, static methods, instance field initializers, and
// static fields (the latter populated lazily by STATIC_INIT).
type Class struct {
	Header
	Name     *String
	Super    *Class
	Final    bool
	Abstract bool
	Static   bool

	Methods       *swiss.Map[string, Method]
	StaticMethods *swiss.Map[string, Method]
	Fields        *swiss.Map[string, bytecode.Value]
	StaticFields  *swiss.Map[string, bytecode.Value]

	// StaticInit is the synthesized zero-arity closure that runs static
	// field initializers, executed lazily on first static access.
	StaticInit        *Closure
	StaticInitialized bool
}

func newClass(name *String, super *Class) *Class {
	c := &Class{
		Header:        Header{kind: bytecode.ObjClass},
		Name:          name,
		Super:         super,
		Methods:       swiss.NewMap[string, Method](8),
		StaticMethods: swiss.NewMap[string, Method](4),
		Fields:        swiss.NewMap[string, bytecode.Value](4),
		StaticFields:  swiss.NewMap[string, bytecode.Value](4),
	}
	if super != nil {
		super.Methods.Iter(func(k string, v Method) bool { c.Methods.Put(k, v); return false })
		super.Fields.Iter(func(k string, v bytecode.Value) bool { c.Fields.Put(k, v); return false })
	}
	return c
}

// FindMethod walks the class chain looking up name, returning the class
// that defines it (for super-call resolution) alongside the method.
func (c *Class) FindMethod(name string) (Method, *Class, bool) {
	for cls := c; cls != nil; cls = cls.Super {
		if m, ok := cls.Methods.Get(name); ok {
			return m, cls, true
		}
	}
	return Method{}, nil, false
}

// Instance is a class value's runtime representation: a class pointer plus
// a fields table seeded by cloning the class's field initializers.
type Instance struct {
	Header
	Class  *Class
	Fields *swiss.Map[string, bytecode.Value]
}

func newInstance(c *Class) *Instance {
	inst := &Instance{Header: Header{kind: bytecode.ObjInstance}, Class: c, Fields: swiss.NewMap[string, bytecode.Value](uint32(c.Fields.Count()) + 1)}
	c.Fields.Iter(func(k string, v bytecode.Value) bool { inst.Fields.Put(k, v); return false })
	return inst
}

// BoundMethod pairs a receiver value with the closure to invoke it with
// "this" already resolved.
type BoundMethod struct {
	Header
	Receiver bytecode.Value
	Method   bytecode.Value // Closure or Native
}

// NativeMethod is a host-provided method on a built-in class.
type NativeMethodFn func(vm *VM, recv bytecode.Value, args []bytecode.Value) (bytecode.Value, error)

type NativeMethod struct {
	Header
	Name     *String
	Fn       NativeMethodFn
	IsStatic bool
}

// Fiber is reserved in the object enum, but the
// interpreter never suspends one: it always runs main to completion or to
// an unhandled runtime error. Kept as a stub so the object kind exists and
// round-trips through the GC like every other variant would.
type Fiber struct {
	Header
	Frames []Frame
	Caller *Fiber
}

func (o *Function) String() string {
	if o.Name == nil {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", o.Name.Chars)
}
