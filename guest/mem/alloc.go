// Package mem implements the allocator exports of a Go guest library.
//
// Buffers handed to the host are Go slices kept reachable in a table until the
// host frees them, so the garbage collector never reclaims memory the host
// still writes into.
package mem

import (
	"fmt"
	"sort"
	"unsafe"
)

// pinned maps the address of every live allocation to its buffer.
var pinned = map[uint32][]byte{}

// Alloc allocates and pins size bytes. It returns 0 for a zero size.
func Alloc(size uint32) uint32 {
	if size == 0 {
		return 0
	}
	buf := make([]byte, size)
	ptr := addr(buf)
	pinned[ptr] = buf
	return ptr
}

// Free unpins the allocation at ptr. Freeing 0 is a no-op.
func Free(ptr uint32) {
	if ptr == 0 {
		return
	}
	if _, ok := pinned[ptr]; !ok {
		panic(fmt.Sprintf("mem: free of unknown pointer %d", ptr))
	}
	delete(pinned, ptr)
}

// Live returns the number of pinned allocations.
func Live() int {
	return len(pinned)
}

// View returns size bytes at ptr, which must lie inside a live allocation.
// Pointers into the middle of an allocation, such as the cells of an arena,
// are accepted.
func View(ptr, size uint32) []byte {
	if ptr == 0 && size == 0 {
		return nil
	}
	base, buf, ok := containing(ptr)
	if !ok {
		panic(fmt.Sprintf("mem: pointer %d is not in a live allocation", ptr))
	}
	off := ptr - base
	if uint64(off)+uint64(size) > uint64(len(buf)) {
		panic(fmt.Sprintf("mem: %d bytes at %d exceed allocation of %d", size, ptr, len(buf)))
	}
	return buf[off : off+size]
}

// CString returns the NUL-terminated string at ptr.
func CString(ptr uint32) string {
	base, buf, ok := containing(ptr)
	if !ok {
		panic(fmt.Sprintf("mem: pointer %d is not in a live allocation", ptr))
	}
	rest := buf[ptr-base:]
	for i, b := range rest {
		if b == 0 {
			return string(rest[:i])
		}
	}
	panic(fmt.Sprintf("mem: string at %d is not terminated", ptr))
}

// Pin copies b into a new allocation and returns its address.
func Pin(b []byte) uint32 {
	ptr := Alloc(uint32(len(b)))
	if ptr != 0 {
		copy(pinned[ptr], b)
	}
	return ptr
}

func containing(ptr uint32) (uint32, []byte, bool) {
	if buf, ok := pinned[ptr]; ok {
		return ptr, buf, true
	}
	bases := make([]uint32, 0, len(pinned))
	for base := range pinned {
		bases = append(bases, base)
	}
	sort.Slice(bases, func(i, j int) bool { return bases[i] < bases[j] })
	i := sort.Search(len(bases), func(i int) bool { return bases[i] > ptr })
	if i == 0 {
		return 0, nil, false
	}
	base := bases[i-1]
	buf := pinned[base]
	if ptr-base >= uint32(len(buf)) {
		return 0, nil, false
	}
	return base, buf, true
}

func addr(buf []byte) uint32 {
	return uint32(uintptr(unsafe.Pointer(unsafe.SliceData(buf))))
}
