package marshal

import (
	"context"
	"fmt"
	"strings"
)

// Handle is an opaque reference to an object owned by the native library.
type Handle uint64

// Null is the caller's null handle sentinel.
const Null Handle = 0

// HandleRef receives a handle written by the native function through an
// output pointer.
type HandleRef struct {
	Handle Handle
}

// handleWidth is the size of a handle in native memory (cells and arrays).
const handleWidth = 8

// ParamKind selects the acquisition strategy of a parameter.
type ParamKind uint8

const (
	// KindValue is a scalar copied into its native-sized slot.
	KindValue ParamKind = iota
	// KindHandle is a borrowed native handle that must not be null.
	KindHandle
	// KindHandleOut is a pointer to a scratch cell the callee writes a handle into.
	KindHandleOut
	// KindString is a NUL-terminated byte buffer in native memory.
	KindString
	// KindArray is a buffer of scalars in native memory.
	KindArray
	// KindHandleArray is a buffer of borrowed, non-null handles.
	KindHandleArray
)

var paramKindNames = [...]string{
	KindValue:       "value",
	KindHandle:      "handle",
	KindHandleOut:   "handle_out",
	KindString:      "string",
	KindArray:       "array",
	KindHandleArray: "handle_array",
}

func (k ParamKind) String() string {
	if int(k) < len(paramKindNames) {
		return paramKindNames[k]
	}
	return fmt.Sprintf("ParamKind(%d)", k)
}

func (k ParamKind) valid() bool {
	return int(k) < len(paramKindNames)
}

func (k ParamKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ParamKind) UnmarshalText(text []byte) error {
	for i, name := range paramKindNames {
		if name == string(text) {
			*k = ParamKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown parameter kind %q", text)
}

// Direction tells whether the native side reads, writes, or both.
type Direction uint8

const (
	In Direction = iota
	Out
	InOut
)

var directionNames = [...]string{In: "in", Out: "out", InOut: "inout"}

func (d Direction) String() string {
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	return fmt.Sprintf("Direction(%d)", d)
}

func (d Direction) writesBack() bool {
	return d == Out || d == InOut
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(text []byte) error {
	for i, name := range directionNames {
		if name == string(text) {
			*d = Direction(i)
			return nil
		}
	}
	return fmt.Errorf("unknown direction %q", text)
}

// ValueType is a native scalar type.
type ValueType uint8

const (
	I32 ValueType = iota
	U32
	I64
	F32
	F64
	Bool
)

var valueTypeNames = [...]string{I32: "i32", U32: "u32", I64: "i64", F32: "f32", F64: "f64", Bool: "bool"}

func (t ValueType) String() string {
	if int(t) < len(valueTypeNames) {
		return valueTypeNames[t]
	}
	return fmt.Sprintf("ValueType(%d)", t)
}

func (t ValueType) valid() bool {
	return int(t) < len(valueTypeNames)
}

// Width is the size in bytes of one element of this type in a native array.
func (t ValueType) Width() uint32 {
	switch t {
	case I64, F64:
		return 8
	case Bool:
		return 1
	default:
		return 4
	}
}

func (t ValueType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *ValueType) UnmarshalText(text []byte) error {
	for i, name := range valueTypeNames {
		if name == string(text) {
			*t = ValueType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown value type %q", text)
}

// ParamSpec describes one parameter of a Descriptor.
type ParamSpec struct {
	// Position is assigned 1..N by NewDescriptor.
	Position  int
	Kind      ParamKind
	Direction Direction
	// Type is the native scalar type of a value or the element type of an array.
	Type ValueType
	// Strategy overrides the built-in strategy for Kind when set.
	Strategy Strategy
}

func ValueParam(t ValueType) ParamSpec {
	return ParamSpec{Kind: KindValue, Type: t}
}

func HandleParam() ParamSpec {
	return ParamSpec{Kind: KindHandle}
}

func HandleOutParam() ParamSpec {
	return ParamSpec{Kind: KindHandleOut, Direction: Out}
}

func StringParam() ParamSpec {
	return ParamSpec{Kind: KindString}
}

func ArrayParam(elem ValueType, dir Direction) ParamSpec {
	return ParamSpec{Kind: KindArray, Type: elem, Direction: dir}
}

func HandleArrayParam() ParamSpec {
	return ParamSpec{Kind: KindHandleArray}
}

func (p ParamSpec) String() string {
	switch p.Kind {
	case KindValue:
		return p.Kind.String() + ":" + p.Type.String()
	case KindArray:
		return p.Kind.String() + ":" + p.Type.String() + ":" + p.Direction.String()
	default:
		return p.Kind.String()
	}
}

func (p ParamSpec) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses the form produced by String. The direction of an
// array defaults to in, and handle_out always has direction out.
func (p *ParamSpec) UnmarshalText(text []byte) error {
	parts := strings.Split(string(text), ":")
	var out ParamSpec
	if err := out.Kind.UnmarshalText([]byte(parts[0])); err != nil {
		return err
	}
	want := 1
	switch out.Kind {
	case KindValue:
		want = 2
	case KindArray:
		want = 3
		if len(parts) == 2 {
			parts = append(parts, In.String())
		}
	case KindHandleOut:
		out.Direction = Out
	}
	if len(parts) != want {
		return fmt.Errorf("malformed %s parameter %q", out.Kind, text)
	}
	if want >= 2 {
		if err := out.Type.UnmarshalText([]byte(parts[1])); err != nil {
			return err
		}
	}
	if want == 3 {
		if err := out.Direction.UnmarshalText([]byte(parts[2])); err != nil {
			return err
		}
	}
	*p = out
	return nil
}

func (p ParamSpec) strategy() Strategy {
	if p.Strategy != nil {
		return p.Strategy
	}
	return builtinStrategies[p.Kind]
}

// Acquired is the native form of one argument, owned by the call that
// acquired it.
type Acquired struct {
	// Native is the slot passed to the native function.
	Native uint64
	// Release returns whatever the acquisition allocated. It is nil when
	// nothing needs to be returned.
	Release func(ctx context.Context) error
	// Writeback copies native results into the caller's storage. It runs after
	// the native call completes and before Release.
	Writeback func()
}

// Strategy acquires the native representation of one argument. On failure it
// must leave nothing allocated.
type Strategy interface {
	Acquire(f *Frame, spec ParamSpec, arg any) (Acquired, error)
}
