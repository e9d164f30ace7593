package wasmtest

const (
	opUnreachable = 0x00
	opEnd         = 0x0b
	opCall        = 0x10
	opDrop        = 0x1a
	opLocalGet    = 0x20
	opGlobalGet   = 0x23
	opGlobalSet   = 0x24
	opI32Load     = 0x28
	opI32Load8U   = 0x2d
	opI32Store    = 0x36
	opI64Store    = 0x37
	opI32Const    = 0x41
	opI64Const    = 0x42
	opI32Add      = 0x6a
	opI32And      = 0x71
	opI64Add      = 0x7c
)

func Unreachable() []byte { return []byte{opUnreachable} }

func Drop() []byte { return []byte{opDrop} }

func Call(fn uint32) []byte { return append([]byte{opCall}, ULEB(uint64(fn))...) }

func LocalGet(i uint32) []byte { return append([]byte{opLocalGet}, ULEB(uint64(i))...) }

func GlobalGet(i uint32) []byte { return append([]byte{opGlobalGet}, ULEB(uint64(i))...) }

func GlobalSet(i uint32) []byte { return append([]byte{opGlobalSet}, ULEB(uint64(i))...) }

func I32Const(v int32) []byte { return append([]byte{opI32Const}, SLEB(int64(v))...) }

func I64Const(v int64) []byte { return append([]byte{opI64Const}, SLEB(v)...) }

func I32Add() []byte { return []byte{opI32Add} }

func I32And() []byte { return []byte{opI32And} }

func I64Add() []byte { return []byte{opI64Add} }

// I32Load loads from the address on the stack plus offset.
func I32Load(offset uint32) []byte { return memarg(opI32Load, 2, offset) }

func I32Load8U(offset uint32) []byte { return memarg(opI32Load8U, 0, offset) }

func I32Store(offset uint32) []byte { return memarg(opI32Store, 2, offset) }

func I64Store(offset uint32) []byte { return memarg(opI64Store, 3, offset) }

func memarg(op byte, align, offset uint32) []byte {
	out := []byte{op}
	out = append(out, ULEB(uint64(align))...)
	return append(out, ULEB(uint64(offset))...)
}
