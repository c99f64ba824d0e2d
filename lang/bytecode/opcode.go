// Package bytecode defines the register-based instruction set, the chunk
// container that holds one function's compiled code, and the constant pool
// encoding shared by the emitter and the interpreter.
package bytecode

// Opcode identifies a single bytecode instruction. Most opcodes operate on
// register indices into the owning frame's slice of the VM value stack.
type Opcode uint8

const (
	OpNop Opcode = iota

	OpExit   // no operands; pop the frame without a return value
	OpReturn // reg; pop the frame, returning the value in reg

	OpConstant     // dst, idx8
	OpConstantLong // dst, idx16

	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpModulo
	OpPower
	OpRoot

	OpNot    // dst, a
	OpNegate // dst, a

	OpTrue  // dst
	OpFalse // dst
	OpNil   // dst

	OpDefineGlobal // nameIdx8, reg
	OpGetGlobal    // dst, nameIdx8
	OpSetGlobal    // nameIdx8, reg
	OpGetLocal     // dst, slot8
	OpSetLocal     // slot8, reg
	OpGetUpvalue   // dst, idx8
	OpSetUpvalue   // idx8, reg
	OpCloseUpvalue // slot8

	OpJump        // off16
	OpJumpIfFalse // reg, off16
	OpLoop        // off16

	OpEqual
	OpNotEqual
	OpLess
	OpGreater
	OpLessEqual
	OpGreaterEqual

	OpDefineFunction     // dst, idx8; (isLocal u8, index u8) pairs follow if the function captures
	OpDefineFunctionLong // dst, idx16; same trailing pairs
	OpClosure            // dst, idx8, then one (isLocal u8, index u8) pair per upvalue
	OpCall               // calleeReg, argc
	OpInvoke             // recvReg, nameIdx8, argc

	OpClass        // dst, nameIdx8
	OpSubclass     // dst, nameIdx8, superReg
	OpMethod       // classReg, nameIdx8, methodReg
	OpGetField     // dst, objReg, nameIdx8
	OpSetField     // objReg, nameIdx8, valReg
	OpDefineField  // classReg, nameIdx8, valReg
	OpDefineMethod // classReg, nameIdx8, methodReg, flags8 (bit 0: overrides a superclass method)

	OpDefineStaticField
	OpDefineStaticMethod

	OpSuper      // dst, objReg, nameIdx8
	OpStaticInit // classReg, funcReg
	OpIs         // dst, objReg, classReg
	OpPop        // reg (discard, kept for symmetry with stack-style traces)

	opcodeCount
)

// MethodFlagOverridden marks, in DEFINE_METHOD's flags operand, a method
// that replaces a superclass method of the same name.
const MethodFlagOverridden = 1 << 0

var opcodeNames = [opcodeCount]string{
	OpNop:                "NOP",
	OpExit:               "EXIT",
	OpReturn:             "RETURN",
	OpConstant:           "CONSTANT",
	OpConstantLong:       "CONSTANT_LONG",
	OpAdd:                "ADD",
	OpSubtract:           "SUBTRACT",
	OpMultiply:           "MULTIPLY",
	OpDivide:             "DIVIDE",
	OpModulo:             "MODULO",
	OpPower:              "POWER",
	OpRoot:               "ROOT",
	OpNot:                "NOT",
	OpNegate:             "NEGATE",
	OpTrue:               "TRUE",
	OpFalse:              "FALSE",
	OpNil:                "NIL",
	OpDefineGlobal:       "DEFINE_GLOBAL",
	OpGetGlobal:          "GET_GLOBAL",
	OpSetGlobal:          "SET_GLOBAL",
	OpGetLocal:           "GET_LOCAL",
	OpSetLocal:           "SET_LOCAL",
	OpGetUpvalue:         "GET_UPVALUE",
	OpSetUpvalue:         "SET_UPVALUE",
	OpCloseUpvalue:       "CLOSE_UPVALUE",
	OpJump:               "JUMP",
	OpJumpIfFalse:        "JUMP_IF_FALSE",
	OpLoop:               "LOOP",
	OpEqual:              "EQUAL",
	OpNotEqual:           "NOT_EQUAL",
	OpLess:               "LESS",
	OpGreater:            "GREATER",
	OpLessEqual:          "LESS_EQUAL",
	OpGreaterEqual:       "GREATER_EQUAL",
	OpDefineFunction:     "DEFINE_FUNCTION",
	OpDefineFunctionLong: "DEFINE_FUNCTION_LONG",
	OpClosure:            "CLOSURE",
	OpCall:               "CALL",
	OpInvoke:             "INVOKE",
	OpClass:              "CLASS",
	OpSubclass:           "SUBCLASS",
	OpMethod:             "METHOD",
	OpGetField:           "GET_FIELD",
	OpSetField:           "SET_FIELD",
	OpDefineField:        "DEFINE_FIELD",
	OpDefineMethod:       "DEFINE_METHOD",
	OpDefineStaticField:  "DEFINE_STATIC_FIELD",
	OpDefineStaticMethod: "DEFINE_STATIC_METHOD",
	OpSuper:              "SUPER",
	OpStaticInit:         "STATIC_INIT",
	OpIs:                 "IS",
	OpPop:                "POP",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return "UNKNOWN"
}

// operandBytes reports how many fixed operand bytes follow the opcode
// byte. The closure-building instructions additionally carry trailing
// (isLocal, index) pairs counted by the function constant they load.
var operandBytes = [opcodeCount]int{
	OpNop:                0,
	OpExit:               0,
	OpReturn:             1,
	OpConstant:           2,
	OpConstantLong:       3,
	OpAdd:                3,
	OpSubtract:           3,
	OpMultiply:           3,
	OpDivide:             3,
	OpModulo:             3,
	OpPower:              3,
	OpRoot:               3,
	OpNot:                2,
	OpNegate:             2,
	OpTrue:               1,
	OpFalse:              1,
	OpNil:                1,
	OpDefineGlobal:       2,
	OpGetGlobal:          2,
	OpSetGlobal:          2,
	OpGetLocal:           2,
	OpSetLocal:           2,
	OpGetUpvalue:         2,
	OpSetUpvalue:         2,
	OpCloseUpvalue:       1,
	OpJump:               2,
	OpJumpIfFalse:        3,
	OpLoop:               2,
	OpEqual:              3,
	OpNotEqual:           3,
	OpLess:               3,
	OpGreater:            3,
	OpLessEqual:          3,
	OpGreaterEqual:       3,
	OpDefineFunction:     2,
	OpDefineFunctionLong: 3,
	OpClosure:            2, // dst, idx8; (isLocal, index) pairs follow
	OpCall:               2,
	OpInvoke:             3,
	OpClass:              2,
	OpSubclass:           3,
	OpMethod:             3,
	OpGetField:           3,
	OpSetField:           3,
	OpDefineField:        3,
	OpDefineMethod:       4,
	OpDefineStaticField:  3,
	OpDefineStaticMethod: 3,
	OpSuper:              3,
	OpStaticInit:         2,
	OpIs:                 3,
	OpPop:                1,
}

// IsJump reports whether op encodes a 16-bit branch offset as its last two
// operand bytes (JUMP, JUMP_IF_FALSE, LOOP); JUMP_IF_FALSE carries its
// condition register byte before the offset.
func (op Opcode) IsJump() bool {
	return op == OpJump || op == OpJumpIfFalse || op == OpLoop
}

// OperandWidth reports how many fixed operand bytes follow op. The
// closure-building instructions (CLOSURE, DEFINE_FUNCTION/_LONG) carry
// additional trailing (isLocal, index) pairs, one per upvalue of the
// function constant being loaded; that count is not encoded here.
func (op Opcode) OperandWidth() int {
	if int(op) >= len(operandBytes) {
		return 0
	}
	return operandBytes[op]
}
