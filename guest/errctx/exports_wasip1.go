//go:build wasip1

package errctx

//go:wasmexport wasmcall_last_error_code
func lastErrorCode(h uint64) int32 {
	return Code(h)
}

//go:wasmexport wasmcall_error_message
func errorMessage(h uint64, code int32) uint32 {
	return messagePtr(h, code)
}
