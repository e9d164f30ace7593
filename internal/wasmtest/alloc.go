package wasmtest

// FreeCountExport returns the number of calls made to the allocator's free.
const FreeCountExport = "free_count"

// BumpAllocator adds an allocator exported as alloc(size i32) i32 and
// free(ptr i32). Allocations start at heapStart and are 8-byte aligned; free
// only counts calls, readable through FreeCountExport.
func (m *Module) BumpAllocator(alloc, free string, heapStart int32) *Module {
	heap := m.Global(I32, true, int64(heapStart))
	frees := m.Global(I32, true, 0)

	m.Func(alloc, []ValType{I32}, []ValType{I32}, nil,
		GlobalGet(heap),
		GlobalGet(heap),
		LocalGet(0), I32Const(7), I32Add(), I32Const(-8), I32And(),
		I32Add(),
		GlobalSet(heap),
	)
	m.Func(free, []ValType{I32}, nil, nil,
		GlobalGet(frees), I32Const(1), I32Add(), GlobalSet(frees),
	)
	m.Func(FreeCountExport, nil, []ValType{I32}, nil, GlobalGet(frees))
	return m
}

// CString returns s followed by a NUL terminator.
func CString(s string) []byte {
	return append([]byte(s), 0)
}
