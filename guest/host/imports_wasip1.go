//go:build wasip1

package host

import (
	"runtime"
	"unsafe"
)

//go:wasmimport wasmcall raise
func hostRaise(ptr, size uint32)

//go:wasmimport wasmcall log
func hostLog(ptr, size uint32)

func ptrSize(b []byte) (uint32, uint32) {
	if len(b) == 0 {
		return 0, 0
	}
	return uint32(uintptr(unsafe.Pointer(unsafe.SliceData(b)))), uint32(len(b))
}

func raise(b []byte) {
	ptr, size := ptrSize(b)
	hostRaise(ptr, size)
	runtime.KeepAlive(b)
}

func log(b []byte) {
	ptr, size := ptrSize(b)
	hostLog(ptr, size)
	runtime.KeepAlive(b)
}
