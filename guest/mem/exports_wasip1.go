//go:build wasip1

package mem

//go:wasmexport wasmcall_abi_version_1
func abiVersion1() {}

//go:wasmexport wasmcall_alloc
func wasmcallAlloc(size uint32) uint32 {
	return Alloc(size)
}

//go:wasmexport wasmcall_free
func wasmcallFree(ptr uint32) {
	Free(ptr)
}
