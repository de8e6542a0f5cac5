// Package nativecall marshals Go values into machine words and dispatches
// calls to native functions in the host process. Argument memory (string
// buffers in particular) is kept alive for the duration of the call and no
// longer; the callee must not retain pointers into it.
package nativecall

import (
	"math"
	"unicode/utf16"
	"unsafe"

	"hostbridge/bridge"
)

// Kind tags a call argument.
type Kind int

const (
	KindU8 Kind = iota
	KindU16
	KindU32
	KindU64
	KindI8
	KindI16
	KindI32
	KindI64
	KindF32
	KindF64
	KindBool
	KindPointer
	KindString
	KindWString
)

var kindNames = [...]string{
	KindU8:      "u8",
	KindU16:     "u16",
	KindU32:     "u32",
	KindU64:     "u64",
	KindI8:      "i8",
	KindI16:     "i16",
	KindI32:     "i32",
	KindI64:     "i64",
	KindF32:     "f32",
	KindF64:     "f64",
	KindBool:    "bool",
	KindPointer: "pointer",
	KindString:  "string",
	KindWString: "wstring",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "invalid"
	}
	return kindNames[k]
}

// Value is one tagged call argument.
type Value struct {
	kind Kind
	word uint64
	str  string
}

// Integer arguments widen into a full machine word; signed kinds
// sign-extend.
func U8(v uint8) Value   { return Value{kind: KindU8, word: uint64(v)} }
func U16(v uint16) Value { return Value{kind: KindU16, word: uint64(v)} }
func U32(v uint32) Value { return Value{kind: KindU32, word: uint64(v)} }
func U64(v uint64) Value { return Value{kind: KindU64, word: v} }

func I8(v int8) Value   { return Value{kind: KindI8, word: uint64(int64(v))} }
func I16(v int16) Value { return Value{kind: KindI16, word: uint64(int64(v))} }
func I32(v int32) Value { return Value{kind: KindI32, word: uint64(int64(v))} }
func I64(v int64) Value { return Value{kind: KindI64, word: uint64(v)} }

// Float arguments travel by bit pattern in integer slots, the convention the
// loader's thunks use.
func F32(v float32) Value { return Value{kind: KindF32, word: uint64(math.Float32bits(v))} }
func F64(v float64) Value { return Value{kind: KindF64, word: math.Float64bits(v)} }

func Bool(v bool) Value {
	var w uint64
	if v {
		w = 1
	}
	return Value{kind: KindBool, word: w}
}

// Ptr passes a raw host address.
func Ptr(addr bridge.Address) Value { return Value{kind: KindPointer, word: uint64(addr)} }

// Str passes s as a NUL-terminated byte string; the buffer lives only for
// the call.
func Str(s string) Value { return Value{kind: KindString, str: s} }

// WStr passes s as a NUL-terminated UTF-16 string.
func WStr(s string) Value { return Value{kind: KindWString, str: s} }

func (v Value) Kind() Kind { return v.kind }

// marshaled is the flattened argument list plus the buffers that must stay
// reachable until the call returns.
type marshaled struct {
	words    []uintptr
	retained []any
}

// marshalArgs flattens values into machine words. String kinds allocate a
// terminated buffer and pass its address.
func marshalArgs(args []Value) marshaled {
	m := marshaled{words: make([]uintptr, 0, len(args))}
	for _, a := range args {
		switch a.kind {
		case KindString:
			buf := append([]byte(a.str), 0)
			m.retained = append(m.retained, buf)
			m.words = append(m.words, uintptr(bufferAddr(buf)))
		case KindWString:
			buf := append(utf16.Encode([]rune(a.str)), 0)
			m.retained = append(m.retained, buf)
			m.words = append(m.words, uintptr(wbufferAddr(buf)))
		default:
			m.words = append(m.words, uintptr(a.word))
		}
	}
	return m
}

// Marshaled buffers always carry at least the terminator, so indexing the
// first element is safe.
func bufferAddr(b []byte) bridge.Address {
	return bridge.Address(uintptr(unsafe.Pointer(&b[0])))
}

func wbufferAddr(b []uint16) bridge.Address {
	return bridge.Address(uintptr(unsafe.Pointer(&b[0])))
}

// RetKind tags the callee's return type so the raw result word can be
// narrowed or sign-extended correctly before the caller reads it.
type RetKind int

const (
	RetVoid RetKind = iota
	RetU8
	RetU16
	RetU32
	RetU64
	RetI8
	RetI16
	RetI32
	RetI64
	RetF32
	RetF64
	RetBool
	RetPtr
)

var retNames = [...]string{
	RetVoid: "void",
	RetU8:   "u8",
	RetU16:  "u16",
	RetU32:  "u32",
	RetU64:  "u64",
	RetI8:   "i8",
	RetI16:  "i16",
	RetI32:  "i32",
	RetI64:  "i64",
	RetF32:  "f32",
	RetF64:  "f64",
	RetBool: "bool",
	RetPtr:  "pointer",
}

func (k RetKind) String() string {
	if k < 0 || int(k) >= len(retNames) {
		return "invalid"
	}
	return retNames[k]
}

// convertResult normalizes the raw return word per the declared return kind:
// unsigned kinds mask to their width, signed kinds sign-extend, void drops
// the word entirely. Garbage in the callee's unused high bits never reaches
// the caller.
func convertResult(raw uintptr, ret RetKind) (Result, bool) {
	switch ret {
	case RetVoid:
		return 0, true
	case RetU8:
		return Result(raw & 0xFF), true
	case RetU16:
		return Result(raw & 0xFFFF), true
	case RetU32, RetF32:
		return Result(raw & 0xFFFFFFFF), true
	case RetU64, RetF64, RetPtr:
		return Result(raw), true
	case RetI8:
		return Result(uint64(int64(int8(raw)))), true
	case RetI16:
		return Result(uint64(int64(int16(raw)))), true
	case RetI32:
		return Result(uint64(int64(int32(raw)))), true
	case RetI64:
		return Result(raw), true
	case RetBool:
		if raw != 0 {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// Result is the normalized machine word a native call returned, with typed
// views. Float returns come back through the integer result slot, which
// matches the loader's thunk convention, not the bare SysV/Win64 XMM0 path.
type Result uintptr

func (r Result) U64() uint64         { return uint64(r) }
func (r Result) I64() int64          { return int64(r) }
func (r Result) F32() float32        { return math.Float32frombits(uint32(r)) }
func (r Result) F64() float64        { return math.Float64frombits(uint64(r)) }
func (r Result) Bool() bool          { return r != 0 }
func (r Result) Ptr() bridge.Address { return bridge.Address(r) }
func (r Result) IsNull() bool        { return r == 0 }
