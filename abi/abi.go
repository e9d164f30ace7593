// Package abi holds the names and wire formats shared by the host and guest
// libraries written against the wasmcall ABI.
package abi

import "log/slog"

// Guest exports.
const (
	// VersionMarkerV1 is exported (as a no-op function) by guests implementing
	// this ABI. Its presence selects the export names below.
	VersionMarkerV1 = "wasmcall_abi_version_1"

	// Alloc is alloc(size i32) i32. It returns 0 when memory is exhausted.
	Alloc = "wasmcall_alloc"
	// Free is free(ptr i32).
	Free = "wasmcall_free"
	// LastErrorCode is last_error_code(handle i64) i32.
	LastErrorCode = "wasmcall_last_error_code"
	// ErrorMessage is error_message(handle i64, code i32) i32, returning a
	// pointer to a NUL-terminated message.
	ErrorMessage = "wasmcall_error_message"
)

// Exports used by guests that do not export VersionMarkerV1.
const (
	LegacyAlloc = "malloc"
	LegacyFree  = "free"
)

// Host module imported by guests.
const (
	HostModule = "wasmcall"

	// HostRaise is raise(ptr i32, len i32). It records the UTF-8 message as the
	// failure of the call in progress, overriding its return value.
	HostRaise = "raise"
	// HostLog is log(ptr i32, len i32) with a JSON encoded LogMessage.
	HostLog = "log"
)

// LogMessage is the payload of HostLog.
type LogMessage struct {
	Level   slog.Level     `json:"level"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}
