// Package errctx keeps the last error of every handle of a Go guest library
// and serves it through the error context exports.
package errctx

import (
	"github.com/otelwasm/wasmcall/guest/mem"
)

type entry struct {
	code    int32
	message string
}

var (
	last = map[uint64]entry{}
	// messages holds the NUL-terminated copies handed to the host, one per
	// handle, until the next query of that handle.
	messages = map[uint64]uint32{}
)

// Set records code and message as the last error of handle h.
func Set(h uint64, code int32, message string) {
	last[h] = entry{code: code, message: message}
}

// Clear forgets the last error of h. Functions should call it on success.
func Clear(h uint64) {
	delete(last, h)
}

// Code returns the last error code of h, 0 when there is none.
func Code(h uint64) int32 {
	return last[h].code
}

// Message returns the message recorded for h if its last error has code.
func Message(h uint64, code int32) (string, bool) {
	e, ok := last[h]
	if !ok || e.code != code || e.message == "" {
		return "", false
	}
	return e.message, true
}

// messagePtr returns a pointer to the message of h, or 0 when there is none.
// The previous pointer returned for h is freed.
func messagePtr(h uint64, code int32) uint32 {
	if old, ok := messages[h]; ok {
		mem.Free(old)
		delete(messages, h)
	}
	msg, ok := Message(h, code)
	if !ok {
		return 0
	}
	ptr := mem.Pin(append([]byte(msg), 0))
	messages[h] = ptr
	return ptr
}
