package wasmlib

import (
	"slices"

	"github.com/otelwasm/wasmcall/abi"
	"github.com/otelwasm/wasmcall/marshal"
)

// ABIVersion represents the detected library ABI.
type ABIVersion uint8

const (
	// ABIUnknown indicates that no known ABI marker was exported.
	ABIUnknown ABIVersion = iota
	// ABIV1 indicates the library exports the ABI v1 marker.
	ABIV1
)

func (v ABIVersion) String() string {
	switch v {
	case ABIV1:
		return "v1"
	case ABIUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// ErrorAccessors returns the error context accessors the ABI defines, or the
// zero value when it defines none.
func (v ABIVersion) ErrorAccessors() marshal.ErrorAccessors {
	if v == ABIV1 {
		return marshal.ErrorAccessors{Code: abi.LastErrorCode, Message: abi.ErrorMessage}
	}
	return marshal.ErrorAccessors{}
}

func detectABIVersion(exports []string) ABIVersion {
	if slices.Contains(exports, abi.VersionMarkerV1) {
		return ABIV1
	}
	return ABIUnknown
}
