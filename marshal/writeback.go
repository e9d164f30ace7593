package marshal

import "fmt"

// arrayWriteback returns the action copying the native buffer at ptr back into
// dst. The buffer length was fixed at acquisition, so a failed read means the
// memory went away underneath the call and is not recoverable.
func arrayWriteback[T number](mem Memory, t ValueType, ptr uint32, dst []T) func() {
	size := uint32(len(dst)) * t.Width()
	return func() {
		buf, ok := mem.Read(ptr, size)
		if !ok {
			panic(fmt.Sprintf("array writeback: %d bytes at %d out of range", size, ptr))
		}
		decodeElems(t, buf, dst)
	}
}
