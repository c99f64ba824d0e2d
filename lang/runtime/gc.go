package runtime

import (
	"fmt"
	"os"

	"github.com/mna/lit/lang/bytecode"
)

// collectGarbage runs one precise mark-sweep pass: gray every root, drain
// the gray stack by blackening each object's children, then sweep the
// object list freeing everything still white.
func (vm *VM) collectGarbage() {
	before := vm.Mem.BytesAllocated
	if vm.DebugGC {
		fmt.Fprintf(os.Stderr, "-- gc begin (%d bytes allocated)\n", before)
	}

	var gray []bytecode.Obj

	gray = vm.grayRoots(gray)
	gray = vm.processGray(gray)
	vm.sweep()

	vm.Mem.NextGC = vm.Mem.BytesAllocated * gcHeapGrowFactor

	if vm.DebugGC {
		fmt.Fprintf(os.Stderr, "-- gc end (%d bytes collected, next at %d)\n", before-vm.Mem.BytesAllocated, vm.Mem.NextGC)
	}
}

func grayObj(gray []bytecode.Obj, o bytecode.Obj) []bytecode.Obj {
	if o == nil || o.Dark() {
		return gray
	}
	o.SetDark(true)
	return append(gray, o)
}

func grayValue(gray []bytecode.Obj, v bytecode.Value) []bytecode.Obj {
	if v.IsObject() {
		return grayObj(gray, v.AsObject())
	}
	return gray
}

// grayRoots marks the value stack, every active frame's closure, the
// open-upvalue list, the globals table, the interned-string table's
// values, init_string, and the standard-class handles.
func (vm *VM) grayRoots(gray []bytecode.Obj) []bytecode.Obj {
	for i := 0; i < vm.stackTop; i++ {
		gray = grayValue(gray, vm.stack[i])
	}
	for i := range vm.frames {
		gray = grayObj(gray, vm.frames[i].Closure)
	}
	for u := vm.openUpvalues; u != nil; u = u.NextOpen {
		gray = grayObj(gray, u)
	}
	vm.Globals.Iter(func(_ string, v bytecode.Value) bool {
		gray = grayValue(gray, v)
		return false
	})
	vm.Mem.Strings.Iter(func(_ string, s *String) bool {
		gray = grayObj(gray, s)
		return false
	})
	gray = grayObj(gray, vm.InitString)
	for _, c := range []*Class{
		vm.ClassClass, vm.ObjectClass, vm.BoolClass, vm.IntClass,
		vm.DoubleClass, vm.CharClass, vm.StringClass, vm.FunctionClass,
	} {
		if c != nil {
			gray = grayObj(gray, c)
		}
	}
	return gray
}

// processGray drains the worklist, blackening each object's children.
func (vm *VM) processGray(gray []bytecode.Obj) []bytecode.Obj {
	for len(gray) > 0 {
		o := gray[len(gray)-1]
		gray = gray[:len(gray)-1]
		gray = blacken(gray, o)
	}
	return gray
}

// blacken grays the children of o, per its variant.
func blacken(gray []bytecode.Obj, o bytecode.Obj) []bytecode.Obj {
	switch v := o.(type) {
	case *Function:
		if v.Name != nil {
			gray = grayObj(gray, v.Name)
		}
		for _, c := range v.Chunk.Constants {
			gray = grayValue(gray, c)
		}
	case *Closure:
		gray = grayObj(gray, v.Fn)
		for _, u := range v.Upvalues {
			if u != nil {
				gray = grayObj(gray, u)
			}
		}
	case *Upvalue:
		if v.IsClosed {
			gray = grayValue(gray, v.Closed)
		}
	case *Class:
		gray = grayObj(gray, v.Name)
		if v.Super != nil {
			gray = grayObj(gray, v.Super)
		}
		if v.StaticInit != nil {
			gray = grayObj(gray, v.StaticInit)
		}
		v.Methods.Iter(func(_ string, m Method) bool { gray = grayValue(gray, m.Value); return false })
		v.StaticMethods.Iter(func(_ string, m Method) bool { gray = grayValue(gray, m.Value); return false })
		v.Fields.Iter(func(_ string, val bytecode.Value) bool { gray = grayValue(gray, val); return false })
		v.StaticFields.Iter(func(_ string, val bytecode.Value) bool { gray = grayValue(gray, val); return false })
	case *Instance:
		gray = grayObj(gray, v.Class)
		v.Fields.Iter(func(_ string, val bytecode.Value) bool { gray = grayValue(gray, val); return false })
	case *BoundMethod:
		gray = grayValue(gray, v.Receiver)
		gray = grayValue(gray, v.Method)
	case *Native:
		gray = grayObj(gray, v.Name)
	case *NativeMethod:
		gray = grayObj(gray, v.Name)
	case *String:
		// no children
	}
	return gray
}

// sweep walks the object list, freeing anything still white and clearing
// the mark bit on survivors. White string-intern keys are removed first so
// a freed string never remains reachable through the intern table.
func (vm *VM) sweep() {
	vm.Mem.Strings.Iter(func(k string, s *String) bool {
		if !s.Dark() {
			vm.Mem.Strings.Delete(k)
		}
		return false
	})

	var prev bytecode.Obj
	cur := vm.Mem.Head
	for cur != nil {
		next := cur.Next()
		if cur.Dark() {
			cur.SetDark(false)
			prev = cur
		} else {
			if prev == nil {
				vm.Mem.Head = next
			} else {
				prev.SetNext(next)
			}
			cur.SetNext(nil)
			if slot, ok := cur.Slot(); ok {
				bytecode.ReleaseObjSlot(slot)
			}
			vm.Mem.BytesAllocated -= sizeOf(cur.Kind())
		}
		cur = next
	}
}
