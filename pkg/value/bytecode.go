package value

import "fmt"

// OpCode identifies one VM instruction, per spec §4.3.
type OpCode uint8

const (
	OpMove OpCode = iota
	OpLoadConst
	OpLoadInt
	OpLoadNull
	OpLoadTrue
	OpLoadFalse
	OpBinary
	OpUnary
	OpGetGlobal
	OpSetGlobal
	OpGetUpvalue
	OpSetUpvalue
	OpClosure
	OpCloseUpvalues
	OpJump
	OpJumpIfFalse
	OpJumpIfTrue
	OpCall
	OpReturn
	OpHalt
	OpNewArray
	OpNewHash
	OpGetIndex
	OpSetIndex
	OpGetKeys
	OpGetValues
	OpNewClass
	OpNewInstance
	OpGetProp
	OpSetProp
	OpSetMethod
	OpInherit
	OpGetSuper
	OpImportModule
	OpExport
	OpGetExport
	OpGetModuleExport
	OpImportAll
	OpSetupTry
	OpPopTry
	OpThrow

	numOpCodes
)

var opCodeNames = [numOpCodes]string{
	OpMove:             "MOVE",
	OpLoadConst:        "LOAD_CONST",
	OpLoadInt:          "LOAD_INT",
	OpLoadNull:         "LOAD_NULL",
	OpLoadTrue:         "LOAD_TRUE",
	OpLoadFalse:        "LOAD_FALSE",
	OpBinary:           "BINARY",
	OpUnary:            "UNARY",
	OpGetGlobal:        "GET_GLOBAL",
	OpSetGlobal:        "SET_GLOBAL",
	OpGetUpvalue:       "GET_UPVALUE",
	OpSetUpvalue:       "SET_UPVALUE",
	OpClosure:          "CLOSURE",
	OpCloseUpvalues:    "CLOSE_UPVALUES",
	OpJump:             "JUMP",
	OpJumpIfFalse:      "JUMP_IF_FALSE",
	OpJumpIfTrue:       "JUMP_IF_TRUE",
	OpCall:             "CALL",
	OpReturn:           "RETURN",
	OpHalt:             "HALT",
	OpNewArray:         "NEW_ARRAY",
	OpNewHash:          "NEW_HASH",
	OpGetIndex:         "GET_INDEX",
	OpSetIndex:         "SET_INDEX",
	OpGetKeys:          "GET_KEYS",
	OpGetValues:        "GET_VALUES",
	OpNewClass:         "NEW_CLASS",
	OpNewInstance:      "NEW_INSTANCE",
	OpGetProp:          "GET_PROP",
	OpSetProp:          "SET_PROP",
	OpSetMethod:        "SET_METHOD",
	OpInherit:          "INHERIT",
	OpGetSuper:         "GET_SUPER",
	OpImportModule:     "IMPORT_MODULE",
	OpExport:           "EXPORT",
	OpGetExport:        "GET_EXPORT",
	OpGetModuleExport:  "GET_MODULE_EXPORT",
	OpImportAll:        "IMPORT_ALL",
	OpSetupTry:         "SETUP_TRY",
	OpPopTry:           "POP_TRY",
	OpThrow:            "THROW",
}

func (op OpCode) String() string {
	if int(op) < len(opCodeNames) && opCodeNames[op] != "" {
		return opCodeNames[op]
	}
	return fmt.Sprintf("OP(%d)", op)
}

// OpCodeByName is the reverse of String, used by pkg/loader to parse
// instruction mnemonics.
func OpCodeByName(name string) (OpCode, bool) {
	for i, n := range opCodeNames {
		if n == name {
			return OpCode(i), true
		}
	}
	return 0, false
}

// BinaryOp / UnaryOp name the operator carried by an OpBinary/OpUnary
// instruction's Args[0], per spec §4.1's operator dispatch table.
type BinaryOp uint8

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNeq
	OpLt
	OpLe
	OpGt
	OpGe

	numBinaryOps
)

var binaryOpNames = [numBinaryOps]string{
	OpAdd: "ADD", OpSub: "SUB", OpMul: "MUL", OpDiv: "DIV", OpMod: "MOD",
	OpEq: "EQ", OpNeq: "NEQ", OpLt: "LT", OpLe: "LE", OpGt: "GT", OpGe: "GE",
}

func (op BinaryOp) String() string {
	if int(op) < len(binaryOpNames) {
		return binaryOpNames[op]
	}
	return fmt.Sprintf("BINOP(%d)", op)
}

func BinaryOpByName(name string) (BinaryOp, bool) {
	for i, n := range binaryOpNames {
		if n == name {
			return BinaryOp(i), true
		}
	}
	return 0, false
}

type UnaryOp uint8

const (
	OpNeg UnaryOp = iota
	OpNot

	numUnaryOps
)

var unaryOpNames = [numUnaryOps]string{OpNeg: "NEG", OpNot: "NOT"}

func (op UnaryOp) String() string {
	if int(op) < len(unaryOpNames) {
		return unaryOpNames[op]
	}
	return fmt.Sprintf("UNOP(%d)", op)
}

func UnaryOpByName(name string) (UnaryOp, bool) {
	for i, n := range unaryOpNames {
		if n == name {
			return UnaryOp(i), true
		}
	}
	return 0, false
}

// NumBinaryOps / NumUnaryOps / NumOpCodes / NumTypes let pkg/operators
// size its dispatch arrays without duplicating these constants.
func NumBinaryOps() int { return int(numBinaryOps) }
func NumUnaryOps() int  { return int(numUnaryOps) }
func NumOpCodes() int   { return int(numOpCodes) }
func NumTypes() int     { return int(TypeNativeFn) + 1 }

// Instruction is one decoded bytecode instruction: an opcode plus a
// flat argument list. Operand meaning (register index, constant index,
// immediate, jump offset) is opcode-specific, per spec §4.3.
type Instruction struct {
	Op   OpCode
	Args []int64
}

// UpvalueDesc describes one upvalue captured by a CLOSURE instruction:
// either the enclosing frame's local register Index, or the enclosing
// closure's own upvalue slot Index, per spec §3.
type UpvalueDesc struct {
	IsLocal bool
	Index   int
}

// Prototype is the immutable compiled body of a function, per spec §3.
type Prototype struct {
	Code         []Instruction
	ConstantPool []Value
	UpvalueDescs []UpvalueDesc
	NumRegisters int
	NumUpvalues  int
	// NumParams is the required argument count for a strict arity check
	// (spec §7's ArityError, §9's open question resolved per DESIGN.md):
	// an optional 4th field on .proto. Protos that omit it default to 0,
	// which disables the check and falls back to Null-padding in
	// pushClosureFrame.
	NumParams  int
	SourceName string

	// Labels and PendingJumps exist only during loading (spec §3: "a
	// label map... used only during loading") and are nil once a
	// module has finished linking; pkg/loader populates and consumes
	// them, ported from original_source's ObjFunctionProto.labels /
	// pendingJumps.
	Labels       map[string]int
	PendingJumps []PendingJump
}

// PendingJump records one unresolved label reference: instruction
// InstrIndex's ArgIndex-th argument should become the offset to Label,
// resolved once every .proto block in the source has been scanned for
// labels (original_source/include/common/definitions.h pendingJumps).
type PendingJump struct {
	InstrIndex int
	ArgIndex   int
	Label      string
}

func (p *Prototype) Trace(v Visitor) {
	for _, c := range p.ConstantPool {
		v.VisitValue(c)
	}
}
