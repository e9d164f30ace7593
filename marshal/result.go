package marshal

import (
	"context"
	"fmt"
	"strings"

	"github.com/tetratelabs/wazero/api"
)

// ReturnKind selects how the native return value is translated.
type ReturnKind uint8

const (
	ReturnVoid ReturnKind = iota
	ReturnValue
	ReturnHandle
	// ReturnHandleChecked reports a null handle with the error context message.
	ReturnHandleChecked
	ReturnString
	// ReturnStringChecked consults the error context before copying the string.
	ReturnStringChecked
	// ReturnStatus treats a non-zero i32 as failure.
	ReturnStatus
)

var returnKindNames = [...]string{
	ReturnVoid:          "void",
	ReturnValue:         "value",
	ReturnHandle:        "handle",
	ReturnHandleChecked: "handle_checked",
	ReturnString:        "string",
	ReturnStringChecked: "string_checked",
	ReturnStatus:        "status",
}

func (k ReturnKind) String() string {
	if int(k) < len(returnKindNames) {
		return returnKindNames[k]
	}
	return fmt.Sprintf("ReturnKind(%d)", k)
}

// checked reports whether the kind needs an error context.
func (k ReturnKind) checked() bool {
	return k == ReturnHandleChecked || k == ReturnStringChecked
}

// ReturnStrategy describes the native return of a Descriptor.
type ReturnStrategy struct {
	Kind ReturnKind
	// Type is the native type of a ReturnValue.
	Type ValueType
}

func ReturnsVoid() ReturnStrategy { return ReturnStrategy{Kind: ReturnVoid} }

func ReturnsValue(t ValueType) ReturnStrategy { return ReturnStrategy{Kind: ReturnValue, Type: t} }

func ReturnsHandle(checked bool) ReturnStrategy {
	if checked {
		return ReturnStrategy{Kind: ReturnHandleChecked}
	}
	return ReturnStrategy{Kind: ReturnHandle}
}

func ReturnsString(checked bool) ReturnStrategy {
	if checked {
		return ReturnStrategy{Kind: ReturnStringChecked}
	}
	return ReturnStrategy{Kind: ReturnString}
}

func ReturnsStatus() ReturnStrategy { return ReturnStrategy{Kind: ReturnStatus} }

func (r ReturnStrategy) String() string {
	if r.Kind == ReturnValue {
		return r.Kind.String() + ":" + r.Type.String()
	}
	return r.Kind.String()
}

// results is the number of native results the function must produce.
func (r ReturnStrategy) results() int {
	if r.Kind == ReturnVoid {
		return 0
	}
	return 1
}

func (r ReturnStrategy) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText parses the form produced by String, for example "value:i32"
// or "handle_checked".
func (r *ReturnStrategy) UnmarshalText(text []byte) error {
	kind, typ, hasType := strings.Cut(string(text), ":")
	for i, name := range returnKindNames {
		if name != kind {
			continue
		}
		out := ReturnStrategy{Kind: ReturnKind(i)}
		switch {
		case out.Kind == ReturnValue && !hasType:
			return fmt.Errorf("return kind %q needs a value type", kind)
		case out.Kind != ReturnValue && hasType:
			return fmt.Errorf("return kind %q takes no value type", kind)
		case hasType:
			if err := out.Type.UnmarshalText([]byte(typ)); err != nil {
				return err
			}
		}
		*r = out
		return nil
	}
	return fmt.Errorf("unknown return kind %q", text)
}

// Outcome is what the native function left behind: its raw return slot and
// any failure raised through the host module while it ran.
type Outcome struct {
	Return  uint64
	Pending error
}

// Translator turns an Outcome into the caller's value or failure.
type Translator struct {
	// Name is the logical function name used in generic messages.
	Name   string
	Return ReturnStrategy
	// Errors is queried only when a failure must be reported. It may be nil.
	Errors ErrorContext
	// Memory is read for string returns.
	Memory Memory
}

// Translate applies the return rules. A pending failure always wins over the
// return value.
func (t Translator) Translate(ctx context.Context, o Outcome) (any, error) {
	if o.Pending != nil {
		return nil, o.Pending
	}

	switch t.Return.Kind {
	case ReturnVoid:
		return nil, nil
	case ReturnValue:
		return decodeValue(t.Return.Type, o.Return), nil
	case ReturnHandle:
		if Handle(o.Return) == Null {
			return nil, callError(t.Name, ErrNativeCallFailure, "native function returned a null handle")
		}
		return Handle(o.Return), nil
	case ReturnHandleChecked:
		if Handle(o.Return) == Null {
			code, known := t.code(ctx)
			return nil, t.fail(ctx, code, known, "native function returned a null handle")
		}
		return Handle(o.Return), nil
	case ReturnString:
		return t.copyString(o.Return)
	case ReturnStringChecked:
		code, known := t.code(ctx)
		if known && code != 0 {
			return nil, t.fail(ctx, code, true, fmt.Sprintf("native error code %d", code))
		}
		if uint32(o.Return) == 0 {
			return nil, t.fail(ctx, code, known, "native function returned a null string")
		}
		return t.copyString(o.Return)
	case ReturnStatus:
		status := api.DecodeI32(o.Return)
		if status != 0 {
			return nil, t.fail(ctx, status, true, fmt.Sprintf("native function returned status %d", status))
		}
		return nil, nil
	}
	return nil, callError(t.Name, ErrPreconditionViolation, "unknown return kind %s", t.Return.Kind)
}

func (t Translator) code(ctx context.Context) (int32, bool) {
	if t.Errors == nil {
		return 0, false
	}
	code, err := t.Errors.Code(ctx)
	if err != nil {
		return 0, false
	}
	return code, true
}

// fail builds the NativeCallFailure for code. The error context message is
// used verbatim when one can be obtained. An unknown code never reaches the
// message accessor.
func (t Translator) fail(ctx context.Context, code int32, known bool, generic string) *Error {
	if known && t.Errors != nil {
		if msg, err := t.Errors.Message(ctx, code); err == nil && msg != "" {
			return &Error{Function: t.Name, Kind: ErrNativeCallFailure, Message: msg}
		}
	}
	return callError(t.Name, ErrNativeCallFailure, "%s", generic)
}

func (t Translator) copyString(slot uint64) (any, error) {
	ptr := uint32(slot)
	if ptr == 0 {
		return nil, nil
	}
	s, err := readCString(t.Memory, ptr)
	if err != nil {
		return nil, callError(t.Name, ErrNativeCallFailure, "reading returned string: %v", err)
	}
	return s, nil
}
