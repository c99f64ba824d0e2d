package runtime

import "github.com/mna/lit/lang/bytecode"

// Frame is one active call: the running closure, its instruction pointer,
// and a base index into the VM's shared value stack where its registers
// begin. A frame's slots stay valid until it returns.
type Frame struct {
	Closure *Closure
	IP      int
	Base    int // index into VM.stack where this frame's registers start

	// ReturnDst is the register in the caller's frame that should receive
	// this frame's result when it returns. Unused (and ignored) for the
	// outermost frame.
	ReturnDst int

	// IsConstruct marks a frame running a class's "init" method. Its
	// RETURN/EXIT delivers ConstructResult (the new instance) to the
	// caller instead of whatever init's own return register holds, since
	// init is required to return void but the construction
	// expression's value is always the instance.
	IsConstruct     bool
	ConstructResult bytecode.Value
}

func (f *Frame) chunk() *bytecode.Chunk { return f.Closure.Fn.Chunk }
