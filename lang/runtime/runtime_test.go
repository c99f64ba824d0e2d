package runtime

import (
	"testing"

	"github.com/mna/lit/lang/bytecode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func liveObjects(m *Manager) []bytecode.Obj {
	var objs []bytecode.Obj
	for o := m.Head; o != nil; o = o.Next() {
		objs = append(objs, o)
	}
	return objs
}

func TestInternStringReturnsIdenticalPointer(t *testing.T) {
	m := NewManager(ManagerCompiler)
	a := m.InternString("hello")
	b := m.InternString("hello")
	require.Same(t, a, b)

	c := m.InternString("world")
	assert.NotSame(t, a, c)

	// a distinct manager has its own intern table
	m2 := NewManager(ManagerCompiler)
	d := m2.InternString("hello")
	assert.NotSame(t, a, d)
}

func TestCompilerManagerNeverCollects(t *testing.T) {
	m := NewManager(ManagerCompiler)
	m.StressGC = true
	for i := 0; i < 100; i++ {
		m.NewFunction()
	}
	assert.Len(t, liveObjects(m), 100)
}

func TestTransferToMovesObjectsAndStrings(t *testing.T) {
	vm := New()
	cm := NewManager(ManagerCompiler)
	s := cm.InternString("shared")
	fn := cm.NewFunction()

	before := len(liveObjects(vm.Mem))
	cm.TransferTo(vm.Mem)

	assert.Nil(t, cm.Head)
	assert.Zero(t, cm.BytesAllocated)
	assert.Len(t, liveObjects(vm.Mem), before+2)

	// the transferred string becomes the canonical pointer in the VM too
	require.Same(t, s, vm.Mem.InternString("shared"))
	_ = fn
}

func TestTransferToKeepsExistingInternWinner(t *testing.T) {
	vm := New()
	vmInit := vm.Mem.InternString("init")

	cm := NewManager(ManagerCompiler)
	cm.InternString("init")
	cm.TransferTo(vm.Mem)

	// the VM's pre-existing intern entry wins; identity for "init" is stable
	require.Same(t, vmInit, vm.Mem.InternString("init"))
}

func TestCollectFreesUnreachableObjects(t *testing.T) {
	vm := New()
	base := len(liveObjects(vm.Mem))

	fn := vm.Mem.NewFunction()
	dead := vm.Mem.NewClosure(fn)
	_ = dead
	live := vm.Mem.NewClosure(fn)
	vm.push(bytecode.Object(live))

	vm.collectGarbage()

	objs := liveObjects(vm.Mem)
	// dead is swept; fn survives (referenced by live's closure), live
	// survives (stack root)
	assert.Len(t, objs, base+2)
	for _, o := range objs {
		assert.False(t, o.Dark(), "mark bits are cleared between collections")
	}

	// a second collection with no mutation keeps the same live set
	vm.collectGarbage()
	assert.Len(t, liveObjects(vm.Mem), base+2)
}

func TestCollectReleasesValueSlots(t *testing.T) {
	vm := New()
	fn := vm.Mem.NewFunction()
	dead := vm.Mem.NewClosure(fn)
	v := bytecode.Object(dead)
	slot, ok := dead.Slot()
	require.True(t, ok)
	_ = v

	// fn is unreachable too, but was never boxed so it has no slot
	vm.collectGarbage()

	_, stillHas := dead.Slot()
	assert.True(t, stillHas, "the object keeps its stale slot record")
	_ = slot
}

func TestOpenUpvaluesOrderedByDescendingSlot(t *testing.T) {
	vm := New()
	u5 := vm.captureUpvalue(5)
	u2 := vm.captureUpvalue(2)
	u8 := vm.captureUpvalue(8)

	var slots []int
	for u := vm.openUpvalues; u != nil; u = u.NextOpen {
		slots = append(slots, vm.upvalueSlot(u))
	}
	assert.Equal(t, []int{8, 5, 2}, slots)

	// capturing an already-open slot reuses the upvalue
	require.Same(t, u5, vm.captureUpvalue(5))

	// closing at slot 5 closes 8 and 5, leaves 2 open
	vm.stack[5] = bytecode.Number(42)
	vm.closeUpvalues(5)
	assert.True(t, u5.IsClosed)
	assert.True(t, u8.IsClosed)
	assert.False(t, u2.IsClosed)
	assert.Equal(t, float64(42), u5.Get().AsNumber())

	var open []int
	for u := vm.openUpvalues; u != nil; u = u.NextOpen {
		open = append(open, vm.upvalueSlot(u))
	}
	assert.Equal(t, []int{2}, open)
}

func TestClassInheritsMethodAndFieldTables(t *testing.T) {
	vm := New()
	super := vm.NewClass("Animal", nil)
	vm.AddMethod(super, "speak", func(vm *VM, recv bytecode.Value, args []bytecode.Value) (bytecode.Value, error) {
		return bytecode.Nil, nil
	})
	super.Fields.Put("legs", bytecode.Number(4))

	sub := vm.NewClass("Dog", super)
	_, ok := sub.Methods.Get("speak")
	assert.True(t, ok, "methods are copied down at construction")
	v, ok := sub.Fields.Get("legs")
	require.True(t, ok, "field initializers are copied down at construction")
	assert.Equal(t, float64(4), v.AsNumber())

	// statics are not inherited
	super.StaticFields.Put("kingdom", vm.NewString("Animalia"))
	sub2 := vm.NewClass("Cat", super)
	_, ok = sub2.StaticFields.Get("kingdom")
	assert.False(t, ok)
}

func TestFindMethodReportsDefiningClass(t *testing.T) {
	vm := New()
	super := vm.NewClass("A", nil)
	vm.AddMethod(super, "m", func(vm *VM, recv bytecode.Value, args []bytecode.Value) (bytecode.Value, error) {
		return bytecode.Nil, nil
	})
	sub := vm.NewClass("B", super)

	_, definedIn, ok := sub.FindMethod("m")
	require.True(t, ok)
	// the inherited entry was copied into B's own table at construction
	assert.Same(t, sub, definedIn)
}
